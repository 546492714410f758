package repository

import (
	"context"
	"time"

	"quiz_backend/internal/model"

	"gorm.io/gorm"
)

type AttemptRepository struct {
	DB *gorm.DB
}

func NewAttemptRepository(db *gorm.DB) *AttemptRepository {
	return &AttemptRepository{DB: db}
}

func (r *AttemptRepository) WithTx(tx *gorm.DB) *AttemptRepository {
	return &AttemptRepository{DB: tx}
}

// AttemptWithTitle is an attempt row joined with its quiz title. QuizTitle is
// nil when the quiz no longer exists.
type AttemptWithTitle struct {
	ID          string
	QuizID      string
	Status      model.AttemptStatus
	Score       *float64
	Passed      *bool
	StartedAt   time.Time
	CompletedAt *time.Time
	QuizTitle   *string
}

func (r *AttemptRepository) Create(ctx context.Context, a *model.UserQuizAttempt) error {
	return r.DB.WithContext(ctx).Create(a).Error
}

func (r *AttemptRepository) FindByID(ctx context.Context, id string) (*model.UserQuizAttempt, error) {
	var a model.UserQuizAttempt
	if err := r.DB.WithContext(ctx).First(&a, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

// FindInProgress returns gorm.ErrRecordNotFound when the user has no open
// attempt on the quiz.
func (r *AttemptRepository) FindInProgress(ctx context.Context, userID, quizID string) (*model.UserQuizAttempt, error) {
	var a model.UserQuizAttempt
	err := r.DB.WithContext(ctx).
		Where("user_id = ? AND quiz_id = ? AND status = ?", userID, quizID, model.AttemptInProgress).
		First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Finalize moves an in-progress attempt to completed. It is a conditional
// update: false means the attempt was not in progress any more.
func (r *AttemptRepository) Finalize(ctx context.Context, id string, score float64, passed bool, completedAt time.Time) (bool, error) {
	res := r.DB.WithContext(ctx).Model(&model.UserQuizAttempt{}).
		Where("id = ? AND status = ?", id, model.AttemptInProgress).
		Updates(map[string]interface{}{
			"status":       model.AttemptCompleted,
			"score":        score,
			"passed":       passed,
			"completed_at": completedAt,
			"active_key":   nil,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *AttemptRepository) CreateAnswers(ctx context.Context, answers []model.UserAnswer) error {
	if len(answers) == 0 {
		return nil
	}
	return r.DB.WithContext(ctx).Create(&answers).Error
}

func (r *AttemptRepository) FindAnswers(ctx context.Context, attemptID string) ([]model.UserAnswer, error) {
	var answers []model.UserAnswer
	err := r.DB.WithContext(ctx).Where("attempt_id = ?", attemptID).Find(&answers).Error
	return answers, err
}

// ListByUserWithTitle returns the user's attempts, most recently completed
// first and in-progress attempts last.
func (r *AttemptRepository) ListByUserWithTitle(ctx context.Context, userID string) ([]AttemptWithTitle, error) {
	return r.listWithTitle(ctx, userID, false, 0)
}

func (r *AttemptRepository) ListRecentCompleted(ctx context.Context, userID string, limit int) ([]AttemptWithTitle, error) {
	return r.listWithTitle(ctx, userID, true, limit)
}

func (r *AttemptRepository) listWithTitle(ctx context.Context, userID string, completedOnly bool, limit int) ([]AttemptWithTitle, error) {
	var rows []AttemptWithTitle
	query := r.DB.WithContext(ctx).
		Table("user_quiz_attempts AS a").
		Select("a.id, a.quiz_id, a.status, a.score, a.passed, a.started_at, a.completed_at, q.title AS quiz_title").
		Joins("LEFT JOIN quizzes q ON q.id = a.quiz_id AND q.deleted_at IS NULL").
		Where("a.user_id = ? AND a.deleted_at IS NULL", userID)
	if completedOnly {
		query = query.Where("a.completed_at IS NOT NULL")
	}
	query = query.Order("a.completed_at DESC").Order("a.started_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Scan(&rows).Error
	return rows, err
}

// HasQualifyingPass reports whether the user passed, with at least minScore,
// a published quiz of the given level in the category.
func (r *AttemptRepository) HasQualifyingPass(ctx context.Context, userID, categoryID string, level model.QuizLevel, minScore float64) (bool, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.UserQuizAttempt{}).
		Joins("JOIN quizzes ON quizzes.id = user_quiz_attempts.quiz_id AND quizzes.deleted_at IS NULL").
		Where("user_quiz_attempts.user_id = ?", userID).
		Where("quizzes.category_id = ? AND quizzes.level = ? AND quizzes.status = ?", categoryID, level, model.QuizStatusPublished).
		Where("user_quiz_attempts.passed = ? AND user_quiz_attempts.score >= ?", true, minScore).
		Count(&count).Error
	return count > 0, err
}

// HighestPassedLevels maps each category to the highest quiz level the user
// has passed there.
func (r *AttemptRepository) HighestPassedLevels(ctx context.Context, userID string) (map[string]model.QuizLevel, error) {
	var rows []struct {
		CategoryID string
		Level      model.QuizLevel
	}
	err := r.DB.WithContext(ctx).Model(&model.UserQuizAttempt{}).
		Select("DISTINCT quizzes.category_id AS category_id, quizzes.level AS level").
		Joins("JOIN quizzes ON quizzes.id = user_quiz_attempts.quiz_id").
		Where("user_quiz_attempts.user_id = ? AND user_quiz_attempts.passed = ?", userID, true).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	highest := make(map[string]model.QuizLevel)
	for _, row := range rows {
		if row.Level.Rank() > highest[row.CategoryID].Rank() {
			highest[row.CategoryID] = row.Level
		}
	}
	return highest, nil
}

// Stats returns the number of attempts and the mean score of completed ones.
func (r *AttemptRepository) Stats(ctx context.Context, userID string) (int64, float64, error) {
	var total int64
	if err := r.DB.WithContext(ctx).Model(&model.UserQuizAttempt{}).
		Where("user_id = ?", userID).
		Count(&total).Error; err != nil {
		return 0, 0, err
	}

	var avg struct {
		Avg *float64
	}
	if err := r.DB.WithContext(ctx).Model(&model.UserQuizAttempt{}).
		Select("AVG(score) AS avg").
		Where("user_id = ? AND completed_at IS NOT NULL", userID).
		Scan(&avg).Error; err != nil {
		return 0, 0, err
	}
	if avg.Avg == nil {
		return total, 0, nil
	}
	return total, *avg.Avg, nil
}

// DeleteByUser hard-deletes the user's attempts and their answers.
func (r *AttemptRepository) DeleteByUser(ctx context.Context, userID string) error {
	db := r.DB.WithContext(ctx)
	attemptIDs := db.Unscoped().Model(&model.UserQuizAttempt{}).Select("id").Where("user_id = ?", userID)
	if err := db.Unscoped().Where("attempt_id IN (?)", attemptIDs).Delete(&model.UserAnswer{}).Error; err != nil {
		return err
	}
	return db.Unscoped().Where("user_id = ?", userID).Delete(&model.UserQuizAttempt{}).Error
}
