package model

type QuestionKind string

const (
	SingleChoice QuestionKind = "single_choice"
)

// Quiz 定义归属某课程的测验；TimeLimitMinutes/MaxAttempts 为空表示不限制
// swagger:model Quiz
type Quiz struct {
	BaseModel
	CourseID         uint   `gorm:"index;type:bigint unsigned;not null" json:"courseId"`
	Title            string `gorm:"size:120;not null" json:"title"`
	TimeLimitMinutes *int   `json:"timeLimitMinutes,omitempty"`
	MaxAttempts      *int   `json:"maxAttempts,omitempty"`
}

func (Quiz) TableName() string {
	return "quizzes"
}

// swagger:model Question
type Question struct {
	BaseModel
	QuizID uint         `gorm:"index;type:bigint unsigned;not null" json:"quizId"`
	Prompt string       `gorm:"type:text;not null" json:"prompt"`
	Kind   QuestionKind `gorm:"size:20;default:'single_choice'" json:"kind"`
}

func (Question) TableName() string {
	return "questions"
}

// swagger:model Option
type Option struct {
	BaseModel
	QuestionID uint   `gorm:"index;type:bigint unsigned;not null" json:"questionId"`
	Text       string `gorm:"size:255;not null" json:"text"`
	Correct    bool   `gorm:"default:false" json:"correct"`
}

func (Option) TableName() string {
	return "options"
}
