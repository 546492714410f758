package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"quiz_backend/internal/model"
	"quiz_backend/internal/testutil"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openAttempt(t *testing.T, repo *AttemptRepository, userID, quizID string) (*model.UserQuizAttempt, error) {
	t.Helper()
	key := model.ActiveAttemptKey(userID, quizID)
	a := &model.UserQuizAttempt{
		UserID:    userID,
		QuizID:    quizID,
		Status:    model.AttemptInProgress,
		StartedAt: time.Now().UTC(),
		ActiveKey: &key,
	}
	return a, repo.Create(context.Background(), a)
}

func TestActiveKeyAllowsOneOpenAttempt(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewAttemptRepository(db)
	ctx := context.Background()
	user := testutil.CreateUser(t, db, model.RoleUser)
	cat := testutil.CreateCategory(t, db, "Go")
	quiz := testutil.CreateQuiz(t, db, cat.ID, model.LevelBeginner, model.QuizStatusPublished)

	first, err := openAttempt(t, repo, user.ID, quiz.ID)
	require.NoError(t, err)
	_, err = openAttempt(t, repo, user.ID, quiz.ID)
	require.Error(t, err)

	found, err := repo.FindInProgress(ctx, user.ID, quiz.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, found.ID)

	ok, err := repo.Finalize(ctx, first.ID, 100, true, time.Now().UTC())
	require.NoError(t, err)
	require.True(t, ok)

	_, err = repo.FindInProgress(ctx, user.ID, quiz.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	// finalizing released the key
	_, err = openAttempt(t, repo, user.ID, quiz.ID)
	assert.NoError(t, err)
}

func TestFinalizeOnlyOnce(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewAttemptRepository(db)
	ctx := context.Background()
	user := testutil.CreateUser(t, db, model.RoleUser)
	cat := testutil.CreateCategory(t, db, "Go")
	quiz := testutil.CreateQuiz(t, db, cat.ID, model.LevelBeginner, model.QuizStatusPublished)

	a, err := openAttempt(t, repo, user.ID, quiz.ID)
	require.NoError(t, err)

	ok, err := repo.Finalize(ctx, a.ID, 50, false, time.Now().UTC())
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Finalize(ctx, a.ID, 100, true, time.Now().UTC())
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := repo.FindByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 50.0, *got.Score)
	assert.False(t, *got.Passed)
	assert.Equal(t, model.AttemptCompleted, got.Status)
}

func TestHighestPassedLevels(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewAttemptRepository(db)
	user := testutil.CreateUser(t, db, model.RoleUser)
	goCat := testutil.CreateCategory(t, db, "Go")
	sqlCat := testutil.CreateCategory(t, db, "SQL")

	goBeginner := testutil.CreateQuiz(t, db, goCat.ID, model.LevelBeginner, model.QuizStatusPublished)
	goAdvanced := testutil.CreateQuiz(t, db, goCat.ID, model.LevelAdvanced, model.QuizStatusPublished)
	sqlBeginner := testutil.CreateQuiz(t, db, sqlCat.ID, model.LevelBeginner, model.QuizStatusPublished)
	sqlIntermediate := testutil.CreateQuiz(t, db, sqlCat.ID, model.LevelIntermediate, model.QuizStatusPublished)

	testutil.CompletedAttempt(t, db, user.ID, goBeginner.ID, 90)
	testutil.CompletedAttempt(t, db, user.ID, goAdvanced.ID, 100)
	testutil.CompletedAttempt(t, db, user.ID, sqlBeginner.ID, 80)
	testutil.CompletedAttempt(t, db, user.ID, sqlIntermediate.ID, 70)

	highest, err := repo.HighestPassedLevels(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, map[string]model.QuizLevel{
		goCat.ID:  model.LevelAdvanced,
		sqlCat.ID: model.LevelBeginner,
	}, highest)
}

func newMockRepo(t *testing.T) (*AttemptRepository, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	return NewAttemptRepository(db), mock
}

func TestFindByIDPropagatesStoreFailure(t *testing.T) {
	repo, mock := newMockRepo(t)
	storeErr := errors.New("connection reset by peer")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `user_quiz_attempts`")).WillReturnError(storeErr)

	_, err := repo.FindByID(context.Background(), model.GenerateUUID())
	assert.ErrorIs(t, err, storeErr)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFinalizeReportsLostRace(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE `user_quiz_attempts` SET")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	ok, err := repo.Finalize(context.Background(), model.GenerateUUID(), 90, true, time.Now())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}
