package service

import "time"

const (
	EventAttemptCompleted = "attempt.completed"
	EventProgressAdvanced = "progress.advanced"
)

// EventPublisher sends domain events to whoever listens downstream.
type EventPublisher interface {
	Publish(eventType string, payload interface{}) error
}

type AttemptCompletedEvent struct {
	AttemptID   string    `json:"attemptId"`
	UserID      string    `json:"userId"`
	QuizID      string    `json:"quizId"`
	CategoryID  string    `json:"categoryId"`
	Score       float64   `json:"score"`
	Passed      bool      `json:"passed"`
	CompletedAt time.Time `json:"completedAt"`
}

type ProgressAdvancedEvent struct {
	UserID     string `json:"userId"`
	CategoryID string `json:"categoryId"`
	Level      string `json:"level"`
}
