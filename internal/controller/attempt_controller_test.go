package controller

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"lms_backend/internal/model"
	"lms_backend/internal/repository"
	"lms_backend/internal/service"
	"lms_backend/internal/util"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type memCatalog struct {
	quizzes   map[uint]*model.Quiz
	questions map[uint][]model.Question
	options   map[uint][]model.Option
}

func (m *memCatalog) FindByID(id uint) (*model.Quiz, error) {
	quiz, ok := m.quizzes[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *quiz
	return &copied, nil
}

func (m *memCatalog) ListQuestions(quizID uint) ([]model.Question, error) {
	return m.questions[quizID], nil
}

func (m *memCatalog) ListOptions(questionID uint) ([]model.Option, error) {
	return m.options[questionID], nil
}

type memAttempts struct {
	mu       sync.Mutex
	attempts map[string]*model.QuizAttempt
	seq      int
}

func (m *memAttempts) Create(attempt *model.QuizAttempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	attempt.ID = fmt.Sprintf("att-%d", m.seq)
	copied := *attempt
	m.attempts[attempt.ID] = &copied
	return nil
}

func (m *memAttempts) Update(attempt *model.QuizAttempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *attempt
	m.attempts[attempt.ID] = &copied
	return nil
}

func (m *memAttempts) FindByID(id string) (*model.QuizAttempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	attempt, ok := m.attempts[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *attempt
	return &copied, nil
}

func (m *memAttempts) CountByQuizAndStudent(quizID, studentID uint) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int64
	for _, a := range m.attempts {
		if a.QuizID == quizID && a.StudentID == studentID {
			count++
		}
	}
	return count, nil
}

func (m *memAttempts) AggregateByQuiz(quizID uint) (*repository.QuizAttemptStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := &repository.QuizAttemptStats{}
	var sum float64
	for _, a := range m.attempts {
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

// asUser 注入默认身份，X-Test-User 头可按请求覆盖用户ID
func asUser(userID uint, role model.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := userID
		if override := c.GetHeader("X-Test-User"); override != "" {
			if parsed, err := util.ParseUintStrict(override); err == nil {
				id = parsed
			}
		}
		c.Set("user", &util.Claims{UserID: id, Role: role})
		c.Next()
	}
}

// newAttemptRouter 搭建带单个测验的作答路由，测验含两道题，每题两个选项，第一个为正确答案
func newAttemptRouter(maxAttempts *int, userID uint) (*gin.Engine, *memCatalog) {
	gin.SetMode(gin.TestMode)

	catalog := &memCatalog{
		quizzes: map[uint]*model.Quiz{
			1: {BaseModel: model.BaseModel{ID: 1}, CourseID: 1, Title: "quiz", MaxAttempts: maxAttempts},
		},
		questions: map[uint][]model.Question{1: {
			{BaseModel: model.BaseModel{ID: 1}, QuizID: 1, Prompt: "q1", Kind: model.SingleChoice},
			{BaseModel: model.BaseModel{ID: 2}, QuizID: 1, Prompt: "q2", Kind: model.SingleChoice},
		}},
		options: map[uint][]model.Option{
			1: {
				{BaseModel: model.BaseModel{ID: 11}, QuestionID: 1, Correct: true},
				{BaseModel: model.BaseModel{ID: 12}, QuestionID: 1},
			},
			2: {
				{BaseModel: model.BaseModel{ID: 21}, QuestionID: 2, Correct: true},
				{BaseModel: model.BaseModel{ID: 22}, QuestionID: 2},
			},
		},
	}

	svc := service.NewAttemptService(catalog, &memAttempts{attempts: make(map[string]*model.QuizAttempt)})
	ctrl := NewAttemptController(svc)

	router := gin.New()
	router.Use(asUser(userID, model.RoleStudent))
	router.POST("/api/quizzes/:id/attempts", ctrl.Start)
	router.POST("/api/quizzes/attempts/:id/submit", ctrl.Submit)
	router.GET("/api/quizzes/attempts/:id", ctrl.Get)
	router.GET("/api/quizzes/:id/stats", ctrl.Stats)
	return router, catalog
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func startAttempt(t *testing.T, router *gin.Engine) string {
	t.Helper()
	w := doJSON(t, router, http.MethodPost, "/api/quizzes/1/attempts", nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("start status = %d, body %s", w.Code, w.Body.String())
	}
	var resp struct {
		Data struct {
			AttemptID string `json:"attemptId"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	return resp.Data.AttemptID
}

func TestAttemptEndpoints(t *testing.T) {
	t.Run("start unknown quiz returns 404", func(t *testing.T) {
		router, _ := newAttemptRouter(nil, 7)
		w := doJSON(t, router, http.MethodPost, "/api/quizzes/99/attempts", nil)
		if w.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", w.Code)
		}
	})

	t.Run("quota exhaustion returns 409", func(t *testing.T) {
		one := 1
		router, _ := newAttemptRouter(&one, 7)

		startAttempt(t, router)
		w := doJSON(t, router, http.MethodPost, "/api/quizzes/1/attempts", nil)
		if w.Code != http.StatusConflict {
			t.Errorf("status = %d, want 409", w.Code)
		}
	})

	t.Run("submit grades and returns verdicts", func(t *testing.T) {
		router, _ := newAttemptRouter(nil, 7)
		attemptID := startAttempt(t, router)

		w := doJSON(t, router, http.MethodPost, "/api/quizzes/attempts/"+attemptID+"/submit", gin.H{
			"answers": gin.H{"1": 11, "2": 22},
		})
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
		}

		var resp struct {
			Data struct {
				Correct  int                   `json:"correct"`
				Total    int                   `json:"total"`
				Score    float64               `json:"score"`
				Verdicts []model.AnswerVerdict `json:"verdicts"`
			} `json:"data"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatal(err)
		}
		if resp.Data.Correct != 1 || resp.Data.Total != 2 || resp.Data.Score != 50.0 {
			t.Errorf("got %d/%d score %v, want 1/2 score 50.0", resp.Data.Correct, resp.Data.Total, resp.Data.Score)
		}
		if len(resp.Data.Verdicts) != 2 {
			t.Errorf("verdicts = %d, want 2", len(resp.Data.Verdicts))
		}
	})

	t.Run("double submit returns 409", func(t *testing.T) {
		router, _ := newAttemptRouter(nil, 7)
		attemptID := startAttempt(t, router)

		doJSON(t, router, http.MethodPost, "/api/quizzes/attempts/"+attemptID+"/submit", gin.H{"answers": gin.H{}})
		w := doJSON(t, router, http.MethodPost, "/api/quizzes/attempts/"+attemptID+"/submit", gin.H{"answers": gin.H{}})
		if w.Code != http.StatusConflict {
			t.Errorf("status = %d, want 409", w.Code)
		}
	})

	t.Run("malformed answers return 400", func(t *testing.T) {
		router, _ := newAttemptRouter(nil, 7)
		attemptID := startAttempt(t, router)

		w := doJSON(t, router, http.MethodPost, "/api/quizzes/attempts/"+attemptID+"/submit", gin.H{
			"answers": gin.H{"abc": 11},
		})
		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", w.Code)
		}
	})

	t.Run("stats reflect graded attempts", func(t *testing.T) {
		router, _ := newAttemptRouter(nil, 7)
		attemptID := startAttempt(t, router)
		doJSON(t, router, http.MethodPost, "/api/quizzes/attempts/"+attemptID+"/submit", gin.H{
			"answers": gin.H{"1": 11, "2": 21},
		})
		startAttempt(t, router) // 未提交

		w := doJSON(t, router, http.MethodGet, "/api/quizzes/1/stats", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d", w.Code)
		}

		var resp struct {
			Data repository.QuizAttemptStats `json:"data"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatal(err)
		}
		if resp.Data.AttemptCount != 1 || resp.Data.BestScore != 100.0 {
			t.Errorf("stats = %+v, want count 1 best 100.0", resp.Data)
		}
	})

	t.Run("foreign attempt returns 403", func(t *testing.T) {
		router, _ := newAttemptRouter(nil, 7)
		attemptID := startAttempt(t, router)

		req := httptest.NewRequest(http.MethodGet, "/api/quizzes/attempts/"+attemptID, nil)
		req.Header.Set("X-Test-User", "8")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusForbidden {
			t.Errorf("status = %d, want 403", w.Code)
		}
	})
}
