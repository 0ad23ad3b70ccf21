package repository

import (
	"lms_backend/internal/model"

	"gorm.io/gorm"
)

// QuizRepository 测验目录存储：测验、题目、选项
type QuizRepository struct {
	DB *gorm.DB
}

func NewQuizRepository(db *gorm.DB) *QuizRepository {
	return &QuizRepository{DB: db}
}

func (r *QuizRepository) Create(quiz *model.Quiz) error {
	return r.DB.Create(quiz).Error
}

func (r *QuizRepository) FindByID(id uint) (*model.Quiz, error) {
	var quiz model.Quiz
	if err := r.DB.First(&quiz, id).Error; err != nil {
		return nil, err
	}
	return &quiz, nil
}

func (r *QuizRepository) CreateQuestion(q *model.Question) error {
	return r.DB.Create(q).Error
}

func (r *QuizRepository) UpdateQuestion(q *model.Question) error {
	return r.DB.Save(q).Error
}

func (r *QuizRepository) FindQuestionByID(id uint) (*model.Question, error) {
	var q model.Question
	if err := r.DB.First(&q, id).Error; err != nil {
		return nil, err
	}
	return &q, nil
}

// ListQuestions 按插入顺序返回测验的全部题目
func (r *QuizRepository) ListQuestions(quizID uint) ([]model.Question, error) {
	var qs []model.Question
	err := r.DB.Where("quiz_id = ?", quizID).Order("id ASC").Find(&qs).Error
	return qs, err
}

func (r *QuizRepository) CountQuestions(quizID uint) (int64, error) {
	var count int64
	err := r.DB.Model(&model.Question{}).Where("quiz_id = ?", quizID).Count(&count).Error
	return count, err
}

func (r *QuizRepository) CreateOption(o *model.Option) error {
	return r.DB.Create(o).Error
}

func (r *QuizRepository) FindOptionByID(id uint) (*model.Option, error) {
	var o model.Option
	if err := r.DB.First(&o, id).Error; err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *QuizRepository) DeleteOption(id uint) error {
	return r.DB.Delete(&model.Option{}, id).Error
}

func (r *QuizRepository) ListOptions(questionID uint) ([]model.Option, error) {
	var opts []model.Option
	err := r.DB.Where("question_id = ?", questionID).Order("id ASC").Find(&opts).Error
	return opts, err
}
