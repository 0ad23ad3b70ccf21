package model

import "time"

type AttemptStatus string

const (
	AttemptOpen   AttemptStatus = "open"
	AttemptGraded AttemptStatus = "graded"
)

// 每题判定结果
const (
	VerdictCorrect          = "CORRECT"
	VerdictIncorrect        = "INCORRECT"
	VerdictInvalidSelection = "INVALID_SELECTION"
)

// AnswerVerdict 单题判定，随提交一次性写入
type AnswerVerdict struct {
	QuestionID uint   `json:"questionId"`
	OptionID   *uint  `json:"optionId,omitempty"`
	Verdict    string `json:"verdict"`
}

// QuizAttempt 学生的一次测验作答记录。
// 评分后 Status/Score/Verdicts 不再变更。
// swagger:model QuizAttempt
type QuizAttempt struct {
	UUIDBase

	QuizID      uint          `gorm:"index;type:bigint unsigned;not null" json:"quizId"`
	StudentID   uint          `gorm:"index;type:bigint unsigned;not null" json:"studentId"`
	Status      AttemptStatus `gorm:"size:10;default:'open'" json:"status"`
	StartedAt   time.Time     `json:"startedAt"`
	SubmittedAt *time.Time    `json:"submittedAt,omitempty"`
	Score       *float64      `json:"score,omitempty"`
	Verdicts    string        `gorm:"type:json" json:"verdicts,omitempty"`
}

func (QuizAttempt) TableName() string {
	return "quiz_attempts"
}
