package model

import "time"

// QuizSummary is the quiz header shared by the start and detail views.
type QuizSummary struct {
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	Level      QuizLevel  `json:"level"`
	Status     QuizStatus `json:"status"`
	CategoryID string     `json:"categoryId"`
}

// AnswerOption is an answer as shown while an attempt is running: no correctness.
type AnswerOption struct {
	ID         string `json:"id"`
	AnswerText string `json:"answerText"`
	Order      int    `json:"order"`
}

type QuestionView struct {
	ID           string         `json:"id"`
	QuestionText string         `json:"questionText"`
	Order        int            `json:"order"`
	Answers      []AnswerOption `json:"answers"`
}

type StartAttemptResult struct {
	AttemptID string         `json:"attemptId"`
	Resumed   bool           `json:"resumed"`
	Quiz      QuizSummary    `json:"quiz"`
	Questions []QuestionView `json:"questions"`
}

type QuestionResult struct {
	QuestionID     string   `json:"questionId"`
	QuestionText   string   `json:"questionText"`
	UserAnswers    []string `json:"userAnswers"`
	CorrectAnswers []string `json:"correctAnswers"`
	IsCorrect      bool     `json:"isCorrect"`
}

type SubmissionResult struct {
	AttemptID      string           `json:"attemptId"`
	Score          float64          `json:"score"`
	Passed         bool             `json:"passed"`
	CorrectAnswers int              `json:"correctAnswers"`
	TotalQuestions int              `json:"totalQuestions"`
	Details        []QuestionResult `json:"details"`
}

type AttemptSummary struct {
	ID          string        `json:"id"`
	QuizID      string        `json:"quizId"`
	QuizTitle   string        `json:"quizTitle"`
	Status      AttemptStatus `json:"status"`
	Score       *float64      `json:"score"`
	Passed      *bool         `json:"passed"`
	StartedAt   time.Time     `json:"startedAt"`
	CompletedAt *time.Time    `json:"completedAt"`
}

type AnswerDetail struct {
	ID           string `json:"id"`
	AnswerText   string `json:"answerText"`
	Order        int    `json:"order"`
	IsCorrect    bool   `json:"isCorrect"`
	UserSelected bool   `json:"userSelected"`
}

type AttemptQuestionDetail struct {
	ID           string         `json:"id"`
	QuestionText string         `json:"questionText"`
	Order        int            `json:"order"`
	Answers      []AnswerDetail `json:"answers"`
}

type AttemptDetail struct {
	Attempt   AttemptSummary          `json:"attempt"`
	Quiz      QuizSummary             `json:"quiz"`
	Questions []AttemptQuestionDetail `json:"questionsWithAnswers"`
}

type ProgressEntry struct {
	Category     Category  `json:"category"`
	CurrentLevel QuizLevel `json:"currentLevel"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type AvailableQuiz struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Level        QuizLevel  `json:"level"`
	CategoryID   string     `json:"categoryId"`
	Status       QuizStatus `json:"status"`
	IsAccessible bool       `json:"isAccessible"`
}

type UserStats struct {
	TotalAttempts      int64            `json:"totalAttempts"`
	AverageScore       float64          `json:"averageScore"`
	CategoriesMastered int64            `json:"categoriesMastered"`
	RecentAttempts     []AttemptSummary `json:"recentAttempts"`
}

func NewQuizSummary(q *Quiz) QuizSummary {
	return QuizSummary{
		ID:         q.ID,
		Title:      q.Title,
		Level:      q.Level,
		Status:     q.Status,
		CategoryID: q.CategoryID,
	}
}
