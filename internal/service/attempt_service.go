package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"lms_backend/internal/model"
	"lms_backend/internal/repository"
	"lms_backend/internal/util"

	"gorm.io/gorm"
)

// CatalogStore 作答流程所需的测验目录读取能力
type CatalogStore interface {
	FindByID(id uint) (*model.Quiz, error)
	ListQuestions(quizID uint) ([]model.Question, error)
	ListOptions(questionID uint) ([]model.Option, error)
}

// AttemptStore 作答记录的读写能力
type AttemptStore interface {
	Create(attempt *model.QuizAttempt) error
	Update(attempt *model.QuizAttempt) error
	FindByID(id string) (*model.QuizAttempt, error)
	CountByQuizAndStudent(quizID, studentID uint) (int64, error)
	AggregateByQuiz(quizID uint) (*repository.QuizAttemptStats, error)
}

// AttemptService 作答与评分的状态机。
// 配额检查与创建在 (quizID, studentID) 键上互斥，提交在 attemptID 键上互斥，
// 两类临界区互不嵌套，不会产生环路。
type AttemptService struct {
	Catalog      CatalogStore
	Attempts     AttemptStore
	quizLocks    *keyedMutex
	attemptLocks *keyedMutex
}

func NewAttemptService(catalog CatalogStore, attempts AttemptStore) *AttemptService {
	return &AttemptService{
		Catalog:      catalog,
		Attempts:     attempts,
		quizLocks:    newKeyedMutex(),
		attemptLocks: newKeyedMutex(),
	}
}

// SubmitResult 提交并评分后的完整结果
type SubmitResult struct {
	Attempt  *model.QuizAttempt
	Verdicts []model.AnswerVerdict
	Correct  int
	Total    int
}

func storageErr(err error) error {
	return fmt.Errorf("%w: %v", util.ErrStorageUnavailable, err)
}

// StartAttempt 开始一次作答。配额以已存在的全部作答计数（含未提交），
// maxAttempts 为空或 0 表示不限次数。
func (s *AttemptService) StartAttempt(quizID, studentID uint, now time.Time) (*model.QuizAttempt, error) {
	quiz, err := s.Catalog.FindByID(quizID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrQuizNotFound
		}
		return nil, storageErr(err)
	}

	unlock := s.quizLocks.Lock(fmt.Sprintf("quiz:%d:student:%d", quizID, studentID))
	defer unlock()

	if quiz.MaxAttempts != nil && *quiz.MaxAttempts > 0 {
		count, err := s.Attempts.CountByQuizAndStudent(quizID, studentID)
		if err != nil {
			return nil, storageErr(err)
		}
		if count >= int64(*quiz.MaxAttempts) {
			return nil, util.ErrAttemptQuotaExceeded
		}
	}

	attempt := &model.QuizAttempt{
		QuizID:    quizID,
		StudentID: studentID,
		Status:    model.AttemptOpen,
		StartedAt: now,
	}
	if err := s.Attempts.Create(attempt); err != nil {
		return nil, storageErr(err)
	}
	return attempt, nil
}

// SubmitAttempt 提交答案并评分。答案键为题目ID的十进制串，值为所选选项ID。
// 超时提交不落库，作答保持未提交状态；重复提交返回冲突且不改动已有成绩。
func (s *AttemptService) SubmitAttempt(attemptID string, studentID uint, answers map[string]uint, now time.Time) (*SubmitResult, error) {
	unlock := s.attemptLocks.Lock("attempt:" + attemptID)
	defer unlock()

	attempt, err := s.Attempts.FindByID(attemptID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrAttemptNotFound
		}
		return nil, storageErr(err)
	}

	if attempt.StudentID != studentID {
		return nil, util.ErrPermissionDenied
	}
	if attempt.Status == model.AttemptGraded {
		return nil, util.ErrAttemptAlreadyGraded
	}

	quiz, err := s.Catalog.FindByID(attempt.QuizID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrQuizNotFound
		}
		return nil, storageErr(err)
	}

	if quiz.TimeLimitMinutes != nil && *quiz.TimeLimitMinutes > 0 {
		deadline := attempt.StartedAt.Add(time.Duration(*quiz.TimeLimitMinutes) * time.Minute)
		if now.After(deadline) {
			return nil, util.ErrAttemptDeadlinePassed
		}
	}

	questions, err := s.Catalog.ListQuestions(quiz.ID)
	if err != nil {
		return nil, storageErr(err)
	}

	parsed, err := s.parseAnswers(answers, questions)
	if err != nil {
		return nil, err
	}

	optionsByQuestion := make(map[uint][]model.Option, len(questions))
	for _, q := range questions {
		opts, err := s.Catalog.ListOptions(q.ID)
		if err != nil {
			return nil, storageErr(err)
		}
		optionsByQuestion[q.ID] = opts
	}

	graded := GradeQuiz(questions, optionsByQuestion, parsed)

	verdictsJSON, err := json.Marshal(graded.Verdicts)
	if err != nil {
		return nil, storageErr(err)
	}

	submittedAt := now
	score := graded.Score
	attempt.Status = model.AttemptGraded
	attempt.SubmittedAt = &submittedAt
	attempt.Score = &score
	attempt.Verdicts = string(verdictsJSON)

	if err := s.Attempts.Update(attempt); err != nil {
		return nil, storageErr(err)
	}

	return &SubmitResult{
		Attempt:  attempt,
		Verdicts: graded.Verdicts,
		Correct:  graded.Correct,
		Total:    graded.Total,
	}, nil
}

// parseAnswers 校验并解析答案键值，题目必须属于本测验
func (s *AttemptService) parseAnswers(answers map[string]uint, questions []model.Question) (map[uint]uint, error) {
	known := make(map[uint]bool, len(questions))
	for _, q := range questions {
		known[q.ID] = true
	}

	parsed := make(map[uint]uint, len(answers))
	for key, optionID := range answers {
		questionID, err := util.ParseUintStrict(key)
		if err != nil {
			return nil, fmt.Errorf("%w: 非法题目键 %q", util.ErrInvalidAnswerPayload, key)
		}
		if !known[questionID] {
			return nil, fmt.Errorf("%w: 题目 %d 不属于该测验", util.ErrInvalidAnswerPayload, questionID)
		}
		parsed[questionID] = optionID
	}
	return parsed, nil
}

// GetAttempt 查询单次作答，学生只能看自己的记录
func (s *AttemptService) GetAttempt(attemptID string, userID uint, role model.UserRole) (*model.QuizAttempt, []model.AnswerVerdict, error) {
	attempt, err := s.Attempts.FindByID(attemptID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, util.ErrAttemptNotFound
		}
		return nil, nil, storageErr(err)
	}

	if role == model.RoleStudent && attempt.StudentID != userID {
		return nil, nil, util.ErrPermissionDenied
	}

	var verdicts []model.AnswerVerdict
	if attempt.Verdicts != "" {
		if err := json.Unmarshal([]byte(attempt.Verdicts), &verdicts); err != nil {
			return nil, nil, storageErr(err)
		}
	}
	return attempt, verdicts, nil
}

// GetQuizStats 返回测验的聚合统计，只统计已评分的作答
func (s *AttemptService) GetQuizStats(quizID uint) (*repository.QuizAttemptStats, error) {
	if _, err := s.Catalog.FindByID(quizID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrQuizNotFound
		}
		return nil, storageErr(err)
	}

	stats, err := s.Attempts.AggregateByQuiz(quizID)
	if err != nil {
		return nil, storageErr(err)
	}
	return stats, nil
}
