package repository

import (
	"lms_backend/internal/model"

	"gorm.io/gorm"
)

// AttemptRepository 作答记录存储，配额与单次评分的不变量由 service 层在互斥范围内保证
type AttemptRepository struct {
	DB *gorm.DB
}

func NewAttemptRepository(db *gorm.DB) *AttemptRepository {
	return &AttemptRepository{DB: db}
}

func (r *AttemptRepository) Create(attempt *model.QuizAttempt) error {
	return r.DB.Create(attempt).Error
}

func (r *AttemptRepository) Update(attempt *model.QuizAttempt) error {
	return r.DB.Save(attempt).Error
}

func (r *AttemptRepository) FindByID(id string) (*model.QuizAttempt, error) {
	var a model.QuizAttempt
	if err := r.DB.Where("id = ?", id).First(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

// CountByQuizAndStudent 统计某学生在某测验下的全部作答（含已评分）
func (r *AttemptRepository) CountByQuizAndStudent(quizID, studentID uint) (int64, error) {
	var count int64
	err := r.DB.Model(&model.QuizAttempt{}).
		Where("quiz_id = ? AND student_id = ?", quizID, studentID).
		Count(&count).Error
	return count, err
}

type QuizAttemptStats struct {
	AttemptCount int64   `json:"attemptCount"`
	AverageScore float64 `json:"averageScore"`
	BestScore    float64 `json:"bestScore"`
}

// AggregateByQuiz 聚合已评分的作答；未提交的不计入
func (r *AttemptRepository) AggregateByQuiz(quizID uint) (*QuizAttemptStats, error) {
	var row struct {
		Cnt  int64
		Avg  *float64
		Best *float64
	}
	err := r.DB.Model(&model.QuizAttempt{}).
		Select("COUNT(*) AS cnt, AVG(score) AS avg, MAX(score) AS best").
		Where("quiz_id = ? AND status = ?", quizID, model.AttemptGraded).
		Scan(&row).Error
	if err != nil {
		return nil, err
	}

	stats := &QuizAttemptStats{AttemptCount: row.Cnt}
	if row.Avg != nil {
		stats.AverageScore = *row.Avg
	}
	if row.Best != nil {
		stats.BestScore = *row.Best
	}
	return stats, nil
}
