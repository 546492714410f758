package service

import (
	"context"
	"testing"

	"quiz_backend/internal/model"
	"quiz_backend/internal/testutil"
	"quiz_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func claimsFor(user *model.User) *util.Claims {
	return &util.Claims{UserID: user.ID, Role: user.Role, Email: user.Email}
}

func TestAdvanceNeverRegresses(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, f.db, model.RoleUser)
	cat := testutil.CreateCategory(t, f.db, "Go")
	quiz := func(level model.QuizLevel) *model.Quiz {
		return &model.Quiz{CategoryID: cat.ID, Level: level}
	}

	steps := []struct {
		level   model.QuizLevel
		changed bool
		want    model.QuizLevel
	}{
		{model.LevelIntermediate, true, model.LevelIntermediate},
		{model.LevelBeginner, false, model.LevelIntermediate},
		{model.LevelIntermediate, false, model.LevelIntermediate},
		{model.LevelAdvanced, true, model.LevelAdvanced},
		{model.LevelBeginner, false, model.LevelAdvanced},
	}
	for _, step := range steps {
		changed, err := f.progress.Advance(ctx, f.db, user.ID, quiz(step.level))
		require.NoError(t, err)
		assert.Equal(t, step.changed, changed, "advance to %s", step.level)
		level, ok := f.progressLevel(t, user.ID, cat.ID)
		require.True(t, ok)
		assert.Equal(t, step.want, level)
	}
}

func TestIsQuizAccessible(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, f.db, model.RoleUser)
	cat := testutil.CreateCategory(t, f.db, "Go")
	otherCat := testutil.CreateCategory(t, f.db, "Rust")
	beginner := testutil.CreateQuiz(t, f.db, cat.ID, model.LevelBeginner, model.QuizStatusPublished)
	intermediate := testutil.CreateQuiz(t, f.db, cat.ID, model.LevelIntermediate, model.QuizStatusPublished)
	advanced := testutil.CreateQuiz(t, f.db, cat.ID, model.LevelAdvanced, model.QuizStatusPublished)

	check := func(q *model.Quiz) bool {
		ok, err := f.progress.IsQuizAccessible(ctx, user.ID, q)
		require.NoError(t, err)
		return ok
	}

	assert.True(t, check(beginner))
	assert.False(t, check(intermediate))
	assert.False(t, check(advanced))
	assert.False(t, check(&model.Quiz{CategoryID: cat.ID, Level: "expert"}))

	// a failing attempt does not unlock
	testutil.CompletedAttempt(t, f.db, user.ID, beginner.ID, 60)
	assert.False(t, check(intermediate))

	// a pass in another category does not unlock
	otherBeginner := testutil.CreateQuiz(t, f.db, otherCat.ID, model.LevelBeginner, model.QuizStatusPublished)
	testutil.CompletedAttempt(t, f.db, user.ID, otherBeginner.ID, 100)
	assert.False(t, check(intermediate))

	testutil.CompletedAttempt(t, f.db, user.ID, beginner.ID, 80)
	assert.True(t, check(intermediate))
	assert.False(t, check(advanced), "no skipping levels")

	// progress rows alone unlock nothing
	require.NoError(t, f.db.Create(&model.UserProgress{UserID: user.ID, CategoryID: cat.ID, CurrentLevel: model.LevelAdvanced}).Error)
	assert.False(t, check(advanced))
}

func TestPrerequisitePassOnDraftQuizDoesNotCount(t *testing.T) {
	f := newFixture(t)
	user := testutil.CreateUser(t, f.db, model.RoleUser)
	cat := testutil.CreateCategory(t, f.db, "Go")
	draft := testutil.CreateQuiz(t, f.db, cat.ID, model.LevelBeginner, model.QuizStatusDraft)
	intermediate := testutil.CreateQuiz(t, f.db, cat.ID, model.LevelIntermediate, model.QuizStatusPublished)

	testutil.CompletedAttempt(t, f.db, user.ID, draft.ID, 100)
	ok, err := f.progress.IsQuizAccessible(context.Background(), user.ID, intermediate)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestListAvailableQuizzes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, f.db, model.RoleUser)
	cat := testutil.CreateCategory(t, f.db, "Go")
	advanced := testutil.CreateQuiz(t, f.db, cat.ID, model.LevelAdvanced, model.QuizStatusPublished)
	beginner := testutil.CreateQuiz(t, f.db, cat.ID, model.LevelBeginner, model.QuizStatusPublished)
	intermediate := testutil.CreateQuiz(t, f.db, cat.ID, model.LevelIntermediate, model.QuizStatusPublished)
	testutil.CreateQuiz(t, f.db, cat.ID, model.LevelBeginner, model.QuizStatusDraft)

	quizzes, err := f.progress.ListAvailableQuizzes(ctx, cat.ID, claimsFor(user))
	require.NoError(t, err)
	require.Len(t, quizzes, 3)
	assert.Equal(t, beginner.ID, quizzes[0].ID)
	assert.True(t, quizzes[0].IsAccessible)
	assert.Equal(t, intermediate.ID, quizzes[1].ID)
	assert.False(t, quizzes[1].IsAccessible)
	assert.Equal(t, advanced.ID, quizzes[2].ID)
	assert.False(t, quizzes[2].IsAccessible)

	// cached until an attempt in the category finishes
	assert.True(t, f.cache.cached(user.ID, cat.ID))

	testutil.CompletedAttempt(t, f.db, user.ID, beginner.ID, 90)
	stale, err := f.progress.ListAvailableQuizzes(ctx, cat.ID, claimsFor(user))
	require.NoError(t, err)
	assert.False(t, stale[1].IsAccessible)

	f.progress.InvalidateAccess(ctx, user.ID, cat.ID)
	fresh, err := f.progress.ListAvailableQuizzes(ctx, cat.ID, claimsFor(user))
	require.NoError(t, err)
	assert.True(t, fresh[1].IsAccessible)
	assert.False(t, fresh[2].IsAccessible)
}

func TestListAvailableQuizzesWithoutCache(t *testing.T) {
	f := newFixture(t)
	f.progress.Cache = nil
	user := testutil.CreateUser(t, f.db, model.RoleUser)
	cat := testutil.CreateCategory(t, f.db, "Go")
	testutil.CreateQuiz(t, f.db, cat.ID, model.LevelBeginner, model.QuizStatusPublished)

	quizzes, err := f.progress.ListAvailableQuizzes(context.Background(), cat.ID, claimsFor(user))
	require.NoError(t, err)
	assert.Len(t, quizzes, 1)
}

func TestListAvailableQuizzesCategoryVisibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, f.db, model.RoleUser)
	admin := testutil.CreateUser(t, f.db, model.RoleAdmin)
	cat := testutil.CreateCategory(t, f.db, "Go")
	require.NoError(t, f.db.Model(cat).Update("is_active", false).Error)

	_, err := f.progress.ListAvailableQuizzes(ctx, cat.ID, claimsFor(user))
	assert.ErrorIs(t, err, util.ErrCategoryNotFound)

	_, err = f.progress.ListAvailableQuizzes(ctx, cat.ID, claimsFor(admin))
	assert.NoError(t, err)

	_, err = f.progress.ListAvailableQuizzes(ctx, model.GenerateUUID(), claimsFor(admin))
	assert.ErrorIs(t, err, util.ErrCategoryNotFound)
}

func TestListProgressJoinsCategory(t *testing.T) {
	f := newFixture(t)
	user := testutil.CreateUser(t, f.db, model.RoleUser)
	cat := testutil.CreateCategory(t, f.db, "Go")
	quiz, questions := testutil.PublishedQuizWithQuestions(t, f.db, cat.ID, model.LevelBeginner, 1)
	f.takeQuiz(t, user.ID, quiz, questions, 1)

	entries, err := f.progress.ListProgress(context.Background(), user.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Go", entries[0].Category.Name)
	assert.Equal(t, model.LevelBeginner, entries[0].CurrentLevel)
}

func TestRebuildProgressFromHistory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, f.db, model.RoleUser)
	goCat := testutil.CreateCategory(t, f.db, "Go")
	rustCat := testutil.CreateCategory(t, f.db, "Rust")
	goBeginner := testutil.CreateQuiz(t, f.db, goCat.ID, model.LevelBeginner, model.QuizStatusPublished)
	goIntermediate := testutil.CreateQuiz(t, f.db, goCat.ID, model.LevelIntermediate, model.QuizStatusPublished)
	rustBeginner := testutil.CreateQuiz(t, f.db, rustCat.ID, model.LevelBeginner, model.QuizStatusPublished)

	testutil.CompletedAttempt(t, f.db, user.ID, goBeginner.ID, 90)
	testutil.CompletedAttempt(t, f.db, user.ID, goIntermediate.ID, 85)
	testutil.CompletedAttempt(t, f.db, user.ID, rustBeginner.ID, 40)

	// a stale row that history does not back
	require.NoError(t, f.db.Create(&model.UserProgress{UserID: user.ID, CategoryID: rustCat.ID, CurrentLevel: model.LevelAdvanced}).Error)

	entries, err := f.progress.RebuildProgress(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, goCat.ID, entries[0].Category.ID)
	assert.Equal(t, model.LevelIntermediate, entries[0].CurrentLevel)

	_, ok := f.progressLevel(t, user.ID, rustCat.ID)
	assert.False(t, ok)
}

func TestListAvailableQuizzesFollowsQuizChanges(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, f.db, model.RoleUser)
	cat := testutil.CreateCategory(t, f.db, "Go")
	beginner := testutil.CreateQuiz(t, f.db, cat.ID, model.LevelBeginner, model.QuizStatusPublished)
	intermediate := testutil.CreateQuiz(t, f.db, cat.ID, model.LevelIntermediate, model.QuizStatusPublished)
	testutil.CompletedAttempt(t, f.db, user.ID, beginner.ID, 90)

	quizzes, err := f.progress.ListAvailableQuizzes(ctx, cat.ID, claimsFor(user))
	require.NoError(t, err)
	require.Len(t, quizzes, 2)
	assert.True(t, quizzes[1].IsAccessible)
	require.True(t, f.cache.cached(user.ID, cat.ID))

	// the only beginner quiz goes back to draft: its pass no longer unlocks
	require.NoError(t, f.content.UpdateQuizStatus(ctx, beginner.ID, model.QuizStatusDraft))
	quizzes, err = f.progress.ListAvailableQuizzes(ctx, cat.ID, claimsFor(user))
	require.NoError(t, err)
	require.Len(t, quizzes, 1)
	assert.Equal(t, intermediate.ID, quizzes[0].ID)
	assert.False(t, quizzes[0].IsAccessible)

	advanced := &model.Quiz{CategoryID: cat.ID, Title: "Go advanced", Level: model.LevelAdvanced, Status: model.QuizStatusPublished}
	require.NoError(t, f.content.CreateQuiz(ctx, advanced))
	quizzes, err = f.progress.ListAvailableQuizzes(ctx, cat.ID, claimsFor(user))
	require.NoError(t, err)
	require.Len(t, quizzes, 2)
	assert.Equal(t, advanced.ID, quizzes[1].ID)

	require.NoError(t, f.content.DeleteQuiz(ctx, intermediate.ID))
	quizzes, err = f.progress.ListAvailableQuizzes(ctx, cat.ID, claimsFor(user))
	require.NoError(t, err)
	require.Len(t, quizzes, 1)
	assert.Equal(t, advanced.ID, quizzes[0].ID)
}

func TestListAvailableQuizzesDropsListReadBeforeSubmit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, f.db, model.RoleUser)
	cat := testutil.CreateCategory(t, f.db, "Go")
	beginner := testutil.CreateQuiz(t, f.db, cat.ID, model.LevelBeginner, model.QuizStatusPublished)
	testutil.CreateQuiz(t, f.db, cat.ID, model.LevelIntermediate, model.QuizStatusPublished)

	// a submission commits and invalidates after the list was read from the
	// database but before it is cached
	f.cache.beforeSet = func() {
		testutil.CompletedAttempt(t, f.db, user.ID, beginner.ID, 85)
		f.progress.InvalidateAccess(ctx, user.ID, cat.ID)
	}
	locked, err := f.progress.ListAvailableQuizzes(ctx, cat.ID, claimsFor(user))
	require.NoError(t, err)
	assert.False(t, locked[1].IsAccessible)
	assert.False(t, f.cache.cached(user.ID, cat.ID))

	quizzes, err := f.progress.ListAvailableQuizzes(ctx, cat.ID, claimsFor(user))
	require.NoError(t, err)
	assert.True(t, quizzes[1].IsAccessible)
}

func TestAdvanceRereadsRowCreatedConcurrently(t *testing.T) {
	cases := []struct {
		name    string
		seeded  model.QuizLevel
		passed  model.QuizLevel
		changed bool
		want    model.QuizLevel
	}{
		{"higher level already stored", model.LevelAdvanced, model.LevelBeginner, false, model.LevelAdvanced},
		{"lower level already stored", model.LevelBeginner, model.LevelIntermediate, true, model.LevelIntermediate},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			user := testutil.CreateUser(t, f.db, model.RoleUser)
			cat := testutil.CreateCategory(t, f.db, "Go")

			// a concurrent first pass creates the row after our lookup missed it
			beforeCreate(t, f.db, "user_progress", func(tx *gorm.DB) {
				row := &model.UserProgress{UserID: user.ID, CategoryID: cat.ID, CurrentLevel: tc.seeded}
				require.NoError(t, tx.Create(row).Error)
			})

			var changed bool
			err := f.db.Transaction(func(tx *gorm.DB) error {
				var err error
				changed, err = f.progress.Advance(ctx, tx, user.ID, &model.Quiz{CategoryID: cat.ID, Level: tc.passed})
				return err
			})
			require.NoError(t, err)
			assert.Equal(t, tc.changed, changed)

			level, ok := f.progressLevel(t, user.ID, cat.ID)
			require.True(t, ok)
			assert.Equal(t, tc.want, level)

			var count int64
			require.NoError(t, f.db.Model(&model.UserProgress{}).Where("user_id = ?", user.ID).Count(&count).Error)
			assert.Equal(t, int64(1), count)
		})
	}
}
