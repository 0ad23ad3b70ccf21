package service

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"lms_backend/internal/model"
	"lms_backend/internal/repository"
	"lms_backend/internal/util"

	"gorm.io/gorm"
)

type fakeCatalog struct {
	quizzes   map[uint]*model.Quiz
	questions map[uint][]model.Question
	options   map[uint][]model.Option
}

func (f *fakeCatalog) FindByID(id uint) (*model.Quiz, error) {
	quiz, ok := f.quizzes[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *quiz
	return &copied, nil
}

func (f *fakeCatalog) ListQuestions(quizID uint) ([]model.Question, error) {
	return f.questions[quizID], nil
}

func (f *fakeCatalog) ListOptions(questionID uint) ([]model.Option, error) {
	return f.options[questionID], nil
}

type fakeAttempts struct {
	mu       sync.Mutex
	attempts map[string]*model.QuizAttempt
	seq      int
}

func newFakeAttempts() *fakeAttempts {
	return &fakeAttempts{attempts: make(map[string]*model.QuizAttempt)}
}

func (f *fakeAttempts) Create(attempt *model.QuizAttempt) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	attempt.ID = fmt.Sprintf("att-%d", f.seq)
	copied := *attempt
	f.attempts[attempt.ID] = &copied
	return nil
}

func (f *fakeAttempts) Update(attempt *model.QuizAttempt) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *attempt
	f.attempts[attempt.ID] = &copied
	return nil
}

func (f *fakeAttempts) FindByID(id string) (*model.QuizAttempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	attempt, ok := f.attempts[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *attempt
	return &copied, nil
}

func (f *fakeAttempts) CountByQuizAndStudent(quizID, studentID uint) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var count int64
	for _, a := range f.attempts {
		if a.QuizID == quizID && a.StudentID == studentID {
			count++
		}
	}
	return count, nil
}

func (f *fakeAttempts) AggregateByQuiz(quizID uint) (*repository.QuizAttemptStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stats := &repository.QuizAttemptStats{}
	var sum float64
	for _, a := range f.attempts {
		if a.QuizID != quizID || a.Status != model.AttemptGraded || a.Score == nil {
			continue
		}
		stats.AttemptCount++
		sum += *a.Score
		if *a.Score > stats.BestScore {
			stats.BestScore = *a.Score
		}
	}
	if stats.AttemptCount > 0 {
		stats.AverageScore = sum / float64(stats.AttemptCount)
	}
	return stats, nil
}

func intPtr(v int) *int { return &v }

// newTestService 构建一个含单个测验的服务，测验有 4 道题，每题 3 个选项，第一个为正确答案
func newTestService(timeLimitMinutes, maxAttempts *int) (*AttemptService, *fakeCatalog, *fakeAttempts) {
	questions, options := buildCatalog(4, 3)
	catalog := &fakeCatalog{
		quizzes: map[uint]*model.Quiz{
			1: {BaseModel: model.BaseModel{ID: 1}, CourseID: 1, Title: "quiz", TimeLimitMinutes: timeLimitMinutes, MaxAttempts: maxAttempts},
		},
		questions: map[uint][]model.Question{1: questions},
		options:   options,
	}
	attempts := newFakeAttempts()
	return NewAttemptService(catalog, attempts), catalog, attempts
}

func TestStartAttempt(t *testing.T) {
	now := time.Now()

	t.Run("unknown quiz", func(t *testing.T) {
		svc, _, _ := newTestService(nil, nil)
		_, err := svc.StartAttempt(99, 1, now)
		if !errors.Is(err, util.ErrQuizNotFound) {
			t.Errorf("err = %v, want ErrQuizNotFound", err)
		}
	})

	t.Run("quota enforced", func(t *testing.T) {
		svc, _, _ := newTestService(nil, intPtr(2))

		for i := 0; i < 2; i++ {
			if _, err := svc.StartAttempt(1, 7, now); err != nil {
				t.Fatalf("attempt %d: %v", i+1, err)
			}
		}

		_, err := svc.StartAttempt(1, 7, now)
		if !errors.Is(err, util.ErrAttemptQuotaExceeded) {
			t.Errorf("err = %v, want ErrAttemptQuotaExceeded", err)
		}

		// 其他学生不受影响
		if _, err := svc.StartAttempt(1, 8, now); err != nil {
			t.Errorf("other student: %v", err)
		}
	})

	t.Run("open attempts count against quota", func(t *testing.T) {
		svc, _, _ := newTestService(nil, intPtr(1))

		attempt, err := svc.StartAttempt(1, 7, now)
		if err != nil {
			t.Fatalf("start: %v", err)
		}
		if attempt.Status != model.AttemptOpen {
			t.Errorf("status = %s, want open", attempt.Status)
		}

		_, err = svc.StartAttempt(1, 7, now)
		if !errors.Is(err, util.ErrAttemptQuotaExceeded) {
			t.Errorf("err = %v, want ErrAttemptQuotaExceeded", err)
		}
	})

	t.Run("nil and zero max attempts are unlimited", func(t *testing.T) {
		for _, maxAttempts := range []*int{nil, intPtr(0)} {
			svc, _, _ := newTestService(nil, maxAttempts)
			for i := 0; i < 5; i++ {
				if _, err := svc.StartAttempt(1, 7, now); err != nil {
					t.Fatalf("attempt %d: %v", i+1, err)
				}
			}
		}
	})

	t.Run("concurrent starts respect quota", func(t *testing.T) {
		svc, _, attempts := newTestService(nil, intPtr(3))

		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				svc.StartAttempt(1, 7, now)
			}()
		}
		wg.Wait()

		count, _ := attempts.CountByQuizAndStudent(1, 7)
		if count != 3 {
			t.Errorf("created attempts = %d, want 3", count)
		}
	})
}

func TestSubmitAttempt(t *testing.T) {
	now := time.Now()

	answersFor := func(catalog *fakeCatalog, correct int) map[string]uint {
		answers := make(map[string]uint)
		for i := 1; i <= 4; i++ {
			qid := uint(i)
			if i <= correct {
				answers[fmt.Sprint(qid)] = correctOption(catalog.options, qid)
			} else {
				answers[fmt.Sprint(qid)] = wrongOption(catalog.options, qid)
			}
		}
		return answers
	}

	t.Run("grades and persists", func(t *testing.T) {
		svc, catalog, attempts := newTestService(nil, nil)
		attempt, _ := svc.StartAttempt(1, 7, now)

		result, err := svc.SubmitAttempt(attempt.ID, 7, answersFor(catalog, 3), now.Add(time.Minute))
		if err != nil {
			t.Fatalf("submit: %v", err)
		}

		if result.Correct != 3 || result.Total != 4 {
			t.Errorf("correct/total = %d/%d, want 3/4", result.Correct, result.Total)
		}
		if result.Attempt.Score == nil || *result.Attempt.Score != 75.0 {
			t.Errorf("score = %v, want 75.0", result.Attempt.Score)
		}

		stored, _ := attempts.FindByID(attempt.ID)
		if stored.Status != model.AttemptGraded {
			t.Errorf("status = %s, want graded", stored.Status)
		}
		if stored.SubmittedAt == nil {
			t.Error("submittedAt not set")
		}
		if stored.Verdicts == "" {
			t.Error("verdicts not persisted")
		}
	})

	t.Run("unknown attempt", func(t *testing.T) {
		svc, _, _ := newTestService(nil, nil)
		_, err := svc.SubmitAttempt("missing", 7, map[string]uint{}, now)
		if !errors.Is(err, util.ErrAttemptNotFound) {
			t.Errorf("err = %v, want ErrAttemptNotFound", err)
		}
	})

	t.Run("other student forbidden", func(t *testing.T) {
		svc, _, _ := newTestService(nil, nil)
		attempt, _ := svc.StartAttempt(1, 7, now)

		_, err := svc.SubmitAttempt(attempt.ID, 8, map[string]uint{}, now)
		if !errors.Is(err, util.ErrPermissionDenied) {
			t.Errorf("err = %v, want ErrPermissionDenied", err)
		}
	})

	t.Run("double submit keeps first grade", func(t *testing.T) {
		svc, catalog, attempts := newTestService(nil, nil)
		attempt, _ := svc.StartAttempt(1, 7, now)

		if _, err := svc.SubmitAttempt(attempt.ID, 7, answersFor(catalog, 3), now); err != nil {
			t.Fatalf("first submit: %v", err)
		}

		_, err := svc.SubmitAttempt(attempt.ID, 7, answersFor(catalog, 4), now)
		if !errors.Is(err, util.ErrAttemptAlreadyGraded) {
			t.Errorf("err = %v, want ErrAttemptAlreadyGraded", err)
		}

		stored, _ := attempts.FindByID(attempt.ID)
		if stored.Score == nil || *stored.Score != 75.0 {
			t.Errorf("score changed to %v, want 75.0", stored.Score)
		}
	})

	t.Run("late submit leaves attempt open", func(t *testing.T) {
		svc, catalog, attempts := newTestService(intPtr(30), nil)
		attempt, _ := svc.StartAttempt(1, 7, now)

		_, err := svc.SubmitAttempt(attempt.ID, 7, answersFor(catalog, 4), now.Add(31*time.Minute))
		if !errors.Is(err, util.ErrAttemptDeadlinePassed) {
			t.Errorf("err = %v, want ErrAttemptDeadlinePassed", err)
		}

		stored, _ := attempts.FindByID(attempt.ID)
		if stored.Status != model.AttemptOpen {
			t.Errorf("status = %s, want open", stored.Status)
		}
		if stored.Score != nil {
			t.Errorf("score = %v, want nil", stored.Score)
		}
	})

	t.Run("submit exactly at deadline is accepted", func(t *testing.T) {
		svc, catalog, _ := newTestService(intPtr(30), nil)
		attempt, _ := svc.StartAttempt(1, 7, now)

		if _, err := svc.SubmitAttempt(attempt.ID, 7, answersFor(catalog, 4), now.Add(30*time.Minute)); err != nil {
			t.Errorf("submit at deadline: %v", err)
		}
	})

	t.Run("malformed answer key", func(t *testing.T) {
		svc, _, _ := newTestService(nil, nil)
		attempt, _ := svc.StartAttempt(1, 7, now)

		_, err := svc.SubmitAttempt(attempt.ID, 7, map[string]uint{"abc": 101}, now)
		if !errors.Is(err, util.ErrInvalidAnswerPayload) {
			t.Errorf("err = %v, want ErrInvalidAnswerPayload", err)
		}
	})

	t.Run("foreign question rejected", func(t *testing.T) {
		svc, _, attempts := newTestService(nil, nil)
		attempt, _ := svc.StartAttempt(1, 7, now)

		_, err := svc.SubmitAttempt(attempt.ID, 7, map[string]uint{"999": 101}, now)
		if !errors.Is(err, util.ErrInvalidAnswerPayload) {
			t.Errorf("err = %v, want ErrInvalidAnswerPayload", err)
		}

		// 校验失败不改变作答状态
		stored, _ := attempts.FindByID(attempt.ID)
		if stored.Status != model.AttemptOpen {
			t.Errorf("status = %s, want open", stored.Status)
		}
	})

	t.Run("empty answers grade all incorrect", func(t *testing.T) {
		svc, _, _ := newTestService(nil, nil)
		attempt, _ := svc.StartAttempt(1, 7, now)

		result, err := svc.SubmitAttempt(attempt.ID, 7, map[string]uint{}, now)
		if err != nil {
			t.Fatalf("submit: %v", err)
		}
		if *result.Attempt.Score != 0.0 {
			t.Errorf("score = %v, want 0.0", *result.Attempt.Score)
		}
		if len(result.Verdicts) != 4 {
			t.Errorf("verdicts = %d, want 4", len(result.Verdicts))
		}
	})

	t.Run("quiz without questions grades to zero", func(t *testing.T) {
		svc, catalog, _ := newTestService(nil, nil)
		catalog.questions[1] = nil
		attempt, _ := svc.StartAttempt(1, 7, now)

		result, err := svc.SubmitAttempt(attempt.ID, 7, map[string]uint{}, now)
		if err != nil {
			t.Fatalf("submit: %v", err)
		}
		if result.Total != 0 || *result.Attempt.Score != 0.0 {
			t.Errorf("total=%d score=%v, want 0 and 0.0", result.Total, *result.Attempt.Score)
		}
		if result.Attempt.Status != model.AttemptGraded {
			t.Errorf("status = %s, want graded", result.Attempt.Status)
		}
	})
}

func TestGetAttempt(t *testing.T) {
	now := time.Now()

	svc, _, _ := newTestService(nil, nil)
	attempt, _ := svc.StartAttempt(1, 7, now)

	t.Run("owner can read", func(t *testing.T) {
		got, _, err := svc.GetAttempt(attempt.ID, 7, model.RoleStudent)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got.ID != attempt.ID {
			t.Errorf("id = %s, want %s", got.ID, attempt.ID)
		}
	})

	t.Run("other student forbidden", func(t *testing.T) {
		_, _, err := svc.GetAttempt(attempt.ID, 8, model.RoleStudent)
		if !errors.Is(err, util.ErrPermissionDenied) {
			t.Errorf("err = %v, want ErrPermissionDenied", err)
		}
	})

	t.Run("teacher can read any", func(t *testing.T) {
		if _, _, err := svc.GetAttempt(attempt.ID, 8, model.RoleTeacher); err != nil {
			t.Errorf("teacher get: %v", err)
		}
	})

	t.Run("unknown attempt", func(t *testing.T) {
		_, _, err := svc.GetAttempt("missing", 7, model.RoleStudent)
		if !errors.Is(err, util.ErrAttemptNotFound) {
			t.Errorf("err = %v, want ErrAttemptNotFound", err)
		}
	})
}

func TestGetQuizStats(t *testing.T) {
	now := time.Now()

	t.Run("unknown quiz", func(t *testing.T) {
		svc, _, _ := newTestService(nil, nil)
		_, err := svc.GetQuizStats(42)
		if !errors.Is(err, util.ErrQuizNotFound) {
			t.Errorf("err = %v, want ErrQuizNotFound", err)
		}
	})

	t.Run("no graded attempts", func(t *testing.T) {
		svc, _, _ := newTestService(nil, nil)
		svc.StartAttempt(1, 7, now)

		stats, err := svc.GetQuizStats(1)
		if err != nil {
			t.Fatalf("stats: %v", err)
		}
		if stats.AttemptCount != 0 || stats.AverageScore != 0 || stats.BestScore != 0 {
			t.Errorf("stats = %+v, want all zero", stats)
		}
	})

	t.Run("aggregates graded only", func(t *testing.T) {
		svc, catalog, _ := newTestService(nil, nil)

		submit := func(correct int) {
			attempt, err := svc.StartAttempt(1, 7, now)
			if err != nil {
				t.Fatalf("start: %v", err)
			}
			answers := make(map[string]uint)
			for i := 1; i <= 4; i++ {
				qid := uint(i)
				if i <= correct {
					answers[fmt.Sprint(qid)] = correctOption(catalog.options, qid)
				} else {
					answers[fmt.Sprint(qid)] = wrongOption(catalog.options, qid)
				}
			}
			if _, err := svc.SubmitAttempt(attempt.ID, 7, answers, now); err != nil {
				t.Fatalf("submit: %v", err)
			}
		}

		submit(4) // 100.0
		submit(2) // 50.0
		svc.StartAttempt(1, 7, now) // 未提交，不计入

		stats, err := svc.GetQuizStats(1)
		if err != nil {
			t.Fatalf("stats: %v", err)
		}
		if stats.AttemptCount != 2 {
			t.Errorf("count = %d, want 2", stats.AttemptCount)
		}
		if stats.AverageScore != 75.0 {
			t.Errorf("avg = %v, want 75.0", stats.AverageScore)
		}
		if stats.BestScore != 100.0 {
			t.Errorf("best = %v, want 100.0", stats.BestScore)
		}
	})
}
