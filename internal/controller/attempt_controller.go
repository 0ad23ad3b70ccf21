package controller

import (
	"errors"
	"time"

	"lms_backend/internal/service"
	"lms_backend/internal/util"
	"lms_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
)

type AttemptController struct {
	AttemptService *service.AttemptService
}

func NewAttemptController(attemptService *service.AttemptService) *AttemptController {
	return &AttemptController{AttemptService: attemptService}
}

// attemptOutcome 把业务结果折算成指标标签
func attemptOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, util.ErrAttemptQuotaExceeded):
		return "quota_exceeded"
	case errors.Is(err, util.ErrAttemptDeadlinePassed):
		return "deadline_passed"
	case errors.Is(err, util.ErrAttemptAlreadyGraded):
		return "already_graded"
	case errors.Is(err, util.ErrInvalidAnswerPayload):
		return "invalid_payload"
	case errors.Is(err, util.ErrQuizNotFound), errors.Is(err, util.ErrAttemptNotFound):
		return "not_found"
	case errors.Is(err, util.ErrPermissionDenied):
		return "forbidden"
	default:
		return "error"
	}
}

// Start godoc
// @Summary 开始一次作答
// @Tags 作答
// @Produce  json
// @Security BearerAuth
// @Success 201 {object} util.Response{data=object} "返回 attemptId"
// @Failure 404 {object} util.Response "测验不存在"
// @Failure 409 {object} util.Response "次数已用完"
// @Router /api/quizzes/{id}/attempts [post]
func (c *AttemptController) Start(ctx *gin.Context) {
	quizID, err := util.ParseUintStrict(ctx.Param("id"))
	if err != nil {
		util.BadRequest(ctx, "invalid quiz id")
		return
	}

	claims := util.GetUserFromContext(ctx)
	attempt, err := c.AttemptService.StartAttempt(quizID, claims.UserID, time.Now())
	monitoring.AttemptCounter.WithLabelValues("start", attemptOutcome(err)).Inc()
	if err != nil {
		respondError(ctx, err)
		return
	}

	util.Created(ctx, gin.H{
		"attemptId": attempt.ID,
		"quizId":    attempt.QuizID,
		"startedAt": attempt.StartedAt,
	})
}

type SubmitAttemptRequest struct {
	Answers map[string]uint `json:"answers" binding:"required"`
}

// Submit godoc
// @Summary 提交答案并评分
// @Description 超时提交返回 409，作答保持未提交状态且不消耗次数
// @Tags 作答
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=object} "返回得分与逐题判定"
// @Failure 409 {object} util.Response "已评分或已超时"
// @Router /api/quizzes/attempts/{id}/submit [post]
func (c *AttemptController) Submit(ctx *gin.Context) {
	attemptID := ctx.Param("id")

	var req SubmitAttemptRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	claims := util.GetUserFromContext(ctx)
	result, err := c.AttemptService.SubmitAttempt(attemptID, claims.UserID, req.Answers, time.Now())
	monitoring.AttemptCounter.WithLabelValues("submit", attemptOutcome(err)).Inc()
	if err != nil {
		respondError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{
		"attemptId":   result.Attempt.ID,
		"correct":     result.Correct,
		"total":       result.Total,
		"score":       result.Attempt.Score,
		"verdicts":    result.Verdicts,
		"submittedAt": result.Attempt.SubmittedAt,
	})
}

// Get godoc
// @Summary 查询单次作答
// @Tags 作答
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=object}
// @Router /api/quizzes/attempts/{id} [get]
func (c *AttemptController) Get(ctx *gin.Context) {
	attemptID := ctx.Param("id")

	claims := util.GetUserFromContext(ctx)
	attempt, verdicts, err := c.AttemptService.GetAttempt(attemptID, claims.UserID, claims.Role)
	if err != nil {
		respondError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{
		"id":          attempt.ID,
		"quizId":      attempt.QuizID,
		"status":      attempt.Status,
		"startedAt":   attempt.StartedAt,
		"submittedAt": attempt.SubmittedAt,
		"score":       attempt.Score,
		"verdicts":    verdicts,
	})
}

// Stats godoc
// @Summary 测验聚合统计
// @Description 只统计已评分的作答
// @Tags 作答
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=repository.QuizAttemptStats}
// @Router /api/quizzes/{id}/stats [get]
func (c *AttemptController) Stats(ctx *gin.Context) {
	quizID, err := util.ParseUintStrict(ctx.Param("id"))
	if err != nil {
		util.BadRequest(ctx, "invalid quiz id")
		return
	}

	stats, err := c.AttemptService.GetQuizStats(quizID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, stats)
}
