package service

import (
	"errors"

	"lms_backend/internal/model"
	"lms_backend/internal/repository"
	"lms_backend/internal/util"

	"gorm.io/gorm"
)

// QuizService 测验目录的维护与查询，归属校验落在测验所属课程上
type QuizService struct {
	QuizRepo   *repository.QuizRepository
	CourseRepo *repository.CourseRepository
}

func NewQuizService(quizRepo *repository.QuizRepository, courseRepo *repository.CourseRepository) *QuizService {
	return &QuizService{QuizRepo: quizRepo, CourseRepo: courseRepo}
}

func (s *QuizService) findQuiz(quizID uint) (*model.Quiz, error) {
	quiz, err := s.QuizRepo.FindByID(quizID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrQuizNotFound
		}
		return nil, storageErr(err)
	}
	return quiz, nil
}

// checkCourseOwnership 测验变更要求操作者拥有其所属课程
func (s *QuizService) checkCourseOwnership(courseID, actorID uint, role model.UserRole) error {
	course, err := s.CourseRepo.FindByID(courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return util.ErrCourseNotFound
		}
		return storageErr(err)
	}
	if role != model.RoleAdmin && course.TeacherID != actorID {
		return util.ErrPermissionDenied
	}
	return nil
}

func (s *QuizService) CreateQuiz(actorID uint, role model.UserRole, courseID uint, title string, timeLimitMinutes, maxAttempts *int) (*model.Quiz, error) {
	if err := s.checkCourseOwnership(courseID, actorID, role); err != nil {
		return nil, err
	}

	quiz := &model.Quiz{
		CourseID:         courseID,
		Title:            title,
		TimeLimitMinutes: timeLimitMinutes,
		MaxAttempts:      maxAttempts,
	}
	if err := s.QuizRepo.Create(quiz); err != nil {
		return nil, storageErr(err)
	}
	return quiz, nil
}

type QuizSummary struct {
	ID               uint   `json:"id"`
	CourseID         uint   `json:"courseId"`
	Title            string `json:"title"`
	TimeLimitMinutes *int   `json:"timeLimitMinutes"`
	MaxAttempts      *int   `json:"maxAttempts"`
	QuestionCount    int64  `json:"questionCount"`
}

func (s *QuizService) GetQuizSummary(quizID uint) (*QuizSummary, error) {
	quiz, err := s.findQuiz(quizID)
	if err != nil {
		return nil, err
	}

	count, err := s.QuizRepo.CountQuestions(quizID)
	if err != nil {
		return nil, storageErr(err)
	}

	return &QuizSummary{
		ID:               quiz.ID,
		CourseID:         quiz.CourseID,
		Title:            quiz.Title,
		TimeLimitMinutes: quiz.TimeLimitMinutes,
		MaxAttempts:      quiz.MaxAttempts,
		QuestionCount:    count,
	}, nil
}

type OptionView struct {
	ID      uint   `json:"id"`
	Text    string `json:"text"`
	Correct *bool  `json:"correct,omitempty"`
}

type QuestionView struct {
	ID      uint               `json:"id"`
	Prompt  string             `json:"prompt"`
	Kind    model.QuestionKind `json:"kind"`
	Options []OptionView       `json:"options"`
}

// ListQuestions 返回测验的题目与选项，学生视角不暴露正确答案
func (s *QuizService) ListQuestions(quizID uint, role model.UserRole) ([]QuestionView, error) {
	if _, err := s.findQuiz(quizID); err != nil {
		return nil, err
	}

	questions, err := s.QuizRepo.ListQuestions(quizID)
	if err != nil {
		return nil, storageErr(err)
	}

	revealCorrect := role == model.RoleTeacher || role == model.RoleAdmin

	views := make([]QuestionView, 0, len(questions))
	for _, q := range questions {
		opts, err := s.QuizRepo.ListOptions(q.ID)
		if err != nil {
			return nil, storageErr(err)
		}

		view := QuestionView{ID: q.ID, Prompt: q.Prompt, Kind: q.Kind, Options: make([]OptionView, 0, len(opts))}
		for _, o := range opts {
			ov := OptionView{ID: o.ID, Text: o.Text}
			if revealCorrect {
				correct := o.Correct
				ov.Correct = &correct
			}
			view.Options = append(view.Options, ov)
		}
		views = append(views, view)
	}
	return views, nil
}

func (s *QuizService) AddQuestion(actorID uint, role model.UserRole, quizID uint, prompt string) (*model.Question, error) {
	quiz, err := s.findQuiz(quizID)
	if err != nil {
		return nil, err
	}
	if err := s.checkCourseOwnership(quiz.CourseID, actorID, role); err != nil {
		return nil, err
	}

	question := &model.Question{QuizID: quizID, Prompt: prompt, Kind: model.SingleChoice}
	if err := s.QuizRepo.CreateQuestion(question); err != nil {
		return nil, storageErr(err)
	}
	return question, nil
}

func (s *QuizService) findOwnedQuestion(questionID, actorID uint, role model.UserRole) (*model.Question, error) {
	question, err := s.QuizRepo.FindQuestionByID(questionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrQuestionNotFound
		}
		return nil, storageErr(err)
	}

	quiz, err := s.findQuiz(question.QuizID)
	if err != nil {
		return nil, err
	}
	if err := s.checkCourseOwnership(quiz.CourseID, actorID, role); err != nil {
		return nil, err
	}
	return question, nil
}

func (s *QuizService) UpdateQuestion(actorID uint, role model.UserRole, questionID uint, prompt *string) (*model.Question, error) {
	question, err := s.findOwnedQuestion(questionID, actorID, role)
	if err != nil {
		return nil, err
	}

	if prompt != nil {
		question.Prompt = *prompt
	}
	if err := s.QuizRepo.UpdateQuestion(question); err != nil {
		return nil, storageErr(err)
	}
	return question, nil
}

func (s *QuizService) AddOption(actorID uint, role model.UserRole, questionID uint, text string, correct bool) (*model.Option, error) {
	if _, err := s.findOwnedQuestion(questionID, actorID, role); err != nil {
		return nil, err
	}

	option := &model.Option{QuestionID: questionID, Text: text, Correct: correct}
	if err := s.QuizRepo.CreateOption(option); err != nil {
		return nil, storageErr(err)
	}
	return option, nil
}

func (s *QuizService) DeleteOption(actorID uint, role model.UserRole, questionID, optionID uint) error {
	if _, err := s.findOwnedQuestion(questionID, actorID, role); err != nil {
		return err
	}

	option, err := s.QuizRepo.FindOptionByID(optionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return util.ErrOptionNotFound
		}
		return storageErr(err)
	}
	if option.QuestionID != questionID {
		return util.ErrOptionNotFound
	}

	if err := s.QuizRepo.DeleteOption(optionID); err != nil {
		return storageErr(err)
	}
	return nil
}
