package repository

import (
	"context"
	"testing"

	"quiz_backend/internal/model"
	"quiz_backend/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestFindQuestionsWithAnswersIsOrdered(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewQuizRepository(db)
	cat := testutil.CreateCategory(t, db, "Go")
	quiz := testutil.CreateQuiz(t, db, cat.ID, model.LevelBeginner, model.QuizStatusPublished)

	// inserted out of order
	for _, order := range []int{3, 1, 2} {
		q := model.Question{QuizID: quiz.ID, QuestionText: "q", Order: order, Answers: []model.Answer{
			{AnswerText: "second", Order: 2},
			{AnswerText: "first", Order: 1, IsCorrect: true},
		}}
		require.NoError(t, db.Create(&q).Error)
	}

	questions, err := repo.FindQuestionsWithAnswers(context.Background(), quiz.ID)
	require.NoError(t, err)
	require.Len(t, questions, 3)
	for i, q := range questions {
		assert.Equal(t, i+1, q.Order)
		require.Len(t, q.Answers, 2)
		assert.Equal(t, "first", q.Answers[0].AnswerText)
		assert.Equal(t, "second", q.Answers[1].AnswerText)
	}

	taken, err := repo.QuestionOrderExists(context.Background(), quiz.ID, 2)
	require.NoError(t, err)
	assert.True(t, taken)
	taken, err = repo.QuestionOrderExists(context.Background(), quiz.ID, 4)
	require.NoError(t, err)
	assert.False(t, taken)
}

func TestFindPublishedQuiz(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewQuizRepository(db)
	ctx := context.Background()
	cat := testutil.CreateCategory(t, db, "Go")
	draft := testutil.CreateQuiz(t, db, cat.ID, model.LevelBeginner, model.QuizStatusDraft)
	published := testutil.CreateQuiz(t, db, cat.ID, model.LevelBeginner, model.QuizStatusPublished)

	_, err := repo.FindPublishedQuiz(ctx, draft.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	got, err := repo.FindPublishedQuiz(ctx, published.ID)
	require.NoError(t, err)
	assert.Equal(t, published.ID, got.ID)

	deleted, err := repo.DeleteQuiz(ctx, published.ID)
	require.NoError(t, err)
	assert.True(t, deleted)
	_, err = repo.FindPublishedQuiz(ctx, published.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	list, err := repo.FindPublishedQuizzesByCategory(ctx, cat.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}
