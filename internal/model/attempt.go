package model

import (
	"fmt"
	"time"
)

type AttemptStatus string

const (
	AttemptInProgress AttemptStatus = "in_progress"
	AttemptCompleted  AttemptStatus = "completed"
)

// UserQuizAttempt is one user's pass at one quiz. Score, Passed and
// CompletedAt stay nil until the attempt is finalized.
//
// ActiveKey is only set while the attempt is in progress; its unique index
// keeps a single open attempt per (user, quiz).
//
// swagger:model UserQuizAttempt
type UserQuizAttempt struct {
	UUIDBase
	UserID      string        `gorm:"index;type:varchar(36);not null" json:"userId"`
	QuizID      string        `gorm:"index;type:varchar(36);not null" json:"quizId"`
	Status      AttemptStatus `gorm:"size:20;default:'in_progress';index" json:"status"`
	Score       *float64      `json:"score"`
	Passed      *bool         `json:"passed"`
	StartedAt   time.Time     `json:"startedAt"`
	CompletedAt *time.Time    `gorm:"index" json:"completedAt"`
	ActiveKey   *string       `gorm:"size:80;uniqueIndex" json:"-"`
}

func (UserQuizAttempt) TableName() string {
	return "user_quiz_attempts"
}

func (a *UserQuizAttempt) IsCompleted() bool {
	return a.Status == AttemptCompleted || a.CompletedAt != nil
}

// ActiveAttemptKey builds the value stored in ActiveKey for an open attempt.
func ActiveAttemptKey(userID, quizID string) string {
	return fmt.Sprintf("%s:%s", userID, quizID)
}

// UserAnswer stores one selected option of a submitted question. IsCorrect is
// the verdict for the whole question, repeated on every row of that question.
//
// swagger:model UserAnswer
type UserAnswer struct {
	UUIDBase
	AttemptID  string `gorm:"index;type:varchar(36);not null" json:"attemptId"`
	QuestionID string `gorm:"index;type:varchar(36);not null" json:"questionId"`
	AnswerID   string `gorm:"type:varchar(36);not null" json:"answerId"`
	IsCorrect  bool   `json:"isCorrect"`
}

func (UserAnswer) TableName() string {
	return "user_answers"
}
