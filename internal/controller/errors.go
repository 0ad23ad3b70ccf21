package controller

import (
	"errors"

	"lms_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// respondError 将业务错误映射为 HTTP 响应。
// 只有存储层故障返回 503，其余均为确定性结果。
func respondError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, util.ErrUserNotFound),
		errors.Is(err, util.ErrCourseNotFound),
		errors.Is(err, util.ErrLessonNotFound),
		errors.Is(err, util.ErrQuizNotFound),
		errors.Is(err, util.ErrQuestionNotFound),
		errors.Is(err, util.ErrOptionNotFound),
		errors.Is(err, util.ErrAttemptNotFound):
		util.NotFound(ctx)
	case errors.Is(err, util.ErrPermissionDenied):
		util.Forbidden(ctx)
	case errors.Is(err, util.ErrAttemptQuotaExceeded),
		errors.Is(err, util.ErrAttemptAlreadyGraded),
		errors.Is(err, util.ErrAttemptDeadlinePassed),
		errors.Is(err, util.ErrAlreadyEnrolled),
		errors.Is(err, util.ErrCourseNotOpen),
		errors.Is(err, util.ErrEmailRegistered):
		util.Conflict(ctx, err.Error())
	case errors.Is(err, util.ErrInvalidAnswerPayload),
		errors.Is(err, util.ErrInvalidRequest):
		util.BadRequest(ctx, err.Error())
	case errors.Is(err, util.ErrInvalidCredentials):
		util.Unauthorized(ctx)
	case errors.Is(err, util.ErrStorageUnavailable):
		util.ServiceUnavailable(ctx)
	default:
		util.LogInternalError(ctx, err)
	}
}
