package repository

import (
	"lms_backend/internal/model"

	"gorm.io/gorm"
)

type EnrollmentRepository struct {
	DB *gorm.DB
}

func NewEnrollmentRepository(db *gorm.DB) *EnrollmentRepository {
	return &EnrollmentRepository{DB: db}
}

// Enroll 创建报名记录并初始化学习进度
func (r *EnrollmentRepository) Enroll(studentID, courseID uint) (*model.Enrollment, error) {
	enrollment := &model.Enrollment{StudentID: studentID, CourseID: courseID}

	err := r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(enrollment).Error; err != nil {
			return err
		}
		progress := &model.Progress{StudentID: studentID, CourseID: courseID, Percent: 0}
		return tx.Create(progress).Error
	})
	if err != nil {
		return nil, err
	}
	return enrollment, nil
}

func (r *EnrollmentRepository) Exists(studentID, courseID uint) (bool, error) {
	var count int64
	err := r.DB.Model(&model.Enrollment{}).
		Where("student_id = ? AND course_id = ?", studentID, courseID).
		Count(&count).Error
	return count > 0, err
}

type EnrollmentWithCourse struct {
	EnrollmentID uint   `json:"enrollmentId"`
	CourseID     uint   `json:"courseId"`
	CourseTitle  string `json:"courseTitle"`
}

func (r *EnrollmentRepository) ListByStudent(studentID uint) ([]EnrollmentWithCourse, error) {
	var items []EnrollmentWithCourse
	err := r.DB.Model(&model.Enrollment{}).
		Select("enrollments.id AS enrollment_id, courses.id AS course_id, courses.title AS course_title").
		Joins("JOIN courses ON courses.id = enrollments.course_id").
		Where("enrollments.student_id = ?", studentID).
		Scan(&items).Error
	return items, err
}

func (r *EnrollmentRepository) CountByCourse(courseID uint) (int64, error) {
	var count int64
	err := r.DB.Model(&model.Enrollment{}).Where("course_id = ?", courseID).Count(&count).Error
	return count, err
}
