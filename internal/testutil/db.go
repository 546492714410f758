// Package testutil builds throwaway databases and fixtures for package tests.
package testutil

import (
	"fmt"
	"testing"
	"time"

	"quiz_backend/internal/model"
	"quiz_backend/pkg/database"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewTestDB opens a private in-memory SQLite database migrated with the
// production model set. It holds a single connection, so code running inside
// a transaction must only use the transaction handle.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

func CreateUser(t *testing.T, db *gorm.DB, role model.UserRole) *model.User {
	t.Helper()
	id := uuid.NewString()
	user := &model.User{
		UUIDBase: model.UUIDBase{ID: id},
		Name:     "user-" + id[:8],
		Email:    id[:8] + "@example.com",
		Password: "not-a-hash",
		Role:     role,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func CreateCategory(t *testing.T, db *gorm.DB, name string) *model.Category {
	t.Helper()
	c := &model.Category{Name: name, Description: name + " questions", IsActive: true}
	require.NoError(t, db.Create(c).Error)
	return c
}

func CreateQuiz(t *testing.T, db *gorm.DB, categoryID string, level model.QuizLevel, status model.QuizStatus) *model.Quiz {
	t.Helper()
	q := &model.Quiz{
		CategoryID: categoryID,
		Title:      fmt.Sprintf("%s quiz", level),
		Level:      level,
		Status:     status,
	}
	require.NoError(t, db.Omit("Questions").Create(q).Error)
	return q
}

// QuestionSpec describes a fixture question: its answer texts and which of
// them, by index, are correct.
type QuestionSpec struct {
	Text    string
	Answers []string
	Correct []int
}

// AddQuestions appends questions to the quiz in the given order and returns
// them with their answers loaded.
func AddQuestions(t *testing.T, db *gorm.DB, quizID string, specs ...QuestionSpec) []model.Question {
	t.Helper()
	questions := make([]model.Question, 0, len(specs))
	for i, spec := range specs {
		correct := make(map[int]bool, len(spec.Correct))
		for _, idx := range spec.Correct {
			correct[idx] = true
		}
		q := model.Question{QuizID: quizID, QuestionText: spec.Text, Order: i + 1}
		for j, text := range spec.Answers {
			q.Answers = append(q.Answers, model.Answer{AnswerText: text, IsCorrect: correct[j], Order: j + 1})
		}
		require.NoError(t, db.Create(&q).Error)
		questions = append(questions, q)
	}
	return questions
}

// PublishedQuizWithQuestions creates a published quiz holding n questions of
// two answers each, the first answer being the correct one.
func PublishedQuizWithQuestions(t *testing.T, db *gorm.DB, categoryID string, level model.QuizLevel, n int) (*model.Quiz, []model.Question) {
	t.Helper()
	quiz := CreateQuiz(t, db, categoryID, level, model.QuizStatusPublished)
	specs := make([]QuestionSpec, 0, n)
	for i := 0; i < n; i++ {
		specs = append(specs, QuestionSpec{
			Text:    fmt.Sprintf("Question %d", i+1),
			Answers: []string{"right", "wrong"},
			Correct: []int{0},
		})
	}
	return quiz, AddQuestions(t, db, quiz.ID, specs...)
}

// CompletedAttempt inserts a finished attempt with the given outcome.
func CompletedAttempt(t *testing.T, db *gorm.DB, userID, quizID string, score float64) *model.UserQuizAttempt {
	t.Helper()
	passed := score >= 80
	a := &model.UserQuizAttempt{
		UserID: userID,
		QuizID: quizID,
		Status: model.AttemptCompleted,
		Score:  &score,
		Passed: &passed,
	}
	a.StartedAt = nowUTC()
	completed := a.StartedAt
	a.CompletedAt = &completed
	require.NoError(t, db.Create(a).Error)
	return a
}

func nowUTC() time.Time {
	return time.Now().UTC()
}
