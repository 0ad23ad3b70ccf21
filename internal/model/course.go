package model

type CourseStatus string

const (
	CourseDraft     CourseStatus = "draft"
	CoursePublished CourseStatus = "published"
	CourseHidden    CourseStatus = "hidden"
)

// swagger:model Course
type Course struct {
	BaseModel
	Title       string       `gorm:"size:120;not null" json:"title"`
	Description string       `gorm:"type:text" json:"description"`
	Status      CourseStatus `gorm:"type:enum('draft','published','hidden');default:'draft'" json:"status"`
	TeacherID   uint         `gorm:"index;type:bigint unsigned;not null" json:"teacherId"`
}

func (Course) TableName() string {
	return "courses"
}

// swagger:model Lesson
type Lesson struct {
	BaseModel
	CourseID        uint   `gorm:"index;type:bigint unsigned;not null" json:"courseId"`
	Title           string `gorm:"size:120;not null" json:"title"`
	Content         string `gorm:"type:text" json:"content"`
	VideoURL        string `gorm:"size:255" json:"videoUrl"`
	DurationSeconds int    `gorm:"default:0" json:"durationSeconds"`
	Order           int    `gorm:"column:sort_order;default:1" json:"order"`
}

func (Lesson) TableName() string {
	return "lessons"
}

// swagger:model Enrollment
type Enrollment struct {
	BaseModel
	StudentID uint `gorm:"index;type:bigint unsigned;not null" json:"studentId"`
	CourseID  uint `gorm:"index;type:bigint unsigned;not null" json:"courseId"`
}

func (Enrollment) TableName() string {
	return "enrollments"
}

// swagger:model Progress
type Progress struct {
	BaseModel
	StudentID    uint    `gorm:"index;type:bigint unsigned;not null" json:"studentId"`
	CourseID     uint    `gorm:"index;type:bigint unsigned;not null" json:"courseId"`
	LastLessonID *uint   `gorm:"type:bigint unsigned" json:"lastLessonId,omitempty"`
	Percent      float64 `gorm:"default:0" json:"percent"`
}

func (Progress) TableName() string {
	return "progress"
}
