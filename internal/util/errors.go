package util

import "errors"

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailRegistered    = errors.New("该邮箱已被注册")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrPermissionDenied   = errors.New("permission denied")

	ErrCourseNotFound   = errors.New("course not found")
	ErrCourseNotOpen    = errors.New("course not open for enrollment")
	ErrAlreadyEnrolled  = errors.New("already enrolled")
	ErrLessonNotFound   = errors.New("lesson not found")
	ErrQuizNotFound     = errors.New("quiz not found")
	ErrQuestionNotFound = errors.New("question not found")
	ErrOptionNotFound   = errors.New("option not found")
	ErrAttemptNotFound  = errors.New("attempt not found")

	ErrAttemptQuotaExceeded  = errors.New("attempt quota exceeded")
	ErrAttemptAlreadyGraded  = errors.New("attempt already graded")
	ErrAttemptDeadlinePassed = errors.New("attempt deadline passed")
	ErrInvalidAnswerPayload  = errors.New("invalid answer payload")
	ErrInvalidRequest        = errors.New("invalid request")

	// 存储层故障（可重试），其余错误均为确定性结果
	ErrStorageUnavailable = errors.New("storage unavailable")
)
