package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"quiz_backend/internal/model"
	"quiz_backend/internal/repository"
	"quiz_backend/internal/util"
	"quiz_backend/pkg/logger"
	"quiz_backend/pkg/monitoring"
	"quiz_backend/pkg/tracing"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AccessCache stores computed quiz availability per (user, category). Reads
// and writes name the version loaded before the database was read, so an
// invalidation that lands in between retires the write as well.
type AccessCache interface {
	Version(ctx context.Context, userID, categoryID string) (string, error)
	Get(ctx context.Context, userID, categoryID, version string) ([]model.AvailableQuiz, bool, error)
	Set(ctx context.Context, userID, categoryID, version string, quizzes []model.AvailableQuiz) error
	Invalidate(ctx context.Context, userID, categoryID string) error
	InvalidateCategory(ctx context.Context, categoryID string) error
}

// ProgressService tracks how far each user got in each category and decides
// which quizzes are unlocked.
type ProgressService struct {
	DB           *gorm.DB
	QuizRepo     *repository.QuizRepository
	AttemptRepo  *repository.AttemptRepository
	ProgressRepo *repository.ProgressRepository
	Cache        AccessCache
}

func NewProgressService(db *gorm.DB, quizRepo *repository.QuizRepository, attemptRepo *repository.AttemptRepository,
	progressRepo *repository.ProgressRepository, cache AccessCache) *ProgressService {
	return &ProgressService{
		DB:           db,
		QuizRepo:     quizRepo,
		AttemptRepo:  attemptRepo,
		ProgressRepo: progressRepo,
		Cache:        cache,
	}
}

// Advance records that userID passed quiz. The stored level is created at the
// quiz level or raised to it, never lowered. It runs inside tx and reports
// whether the stored level changed.
func (s *ProgressService) Advance(ctx context.Context, tx *gorm.DB, userID string, quiz *model.Quiz) (bool, error) {
	progress := s.ProgressRepo.WithTx(tx)

	current, err := progress.Find(ctx, userID, quiz.CategoryID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		created := &model.UserProgress{UserID: userID, CategoryID: quiz.CategoryID, CurrentLevel: quiz.Level}
		createErr := progress.Create(ctx, created)
		if createErr == nil {
			s.logAdvance(userID, quiz)
			return true, nil
		}
		if !errors.Is(createErr, gorm.ErrDuplicatedKey) {
			return false, fmt.Errorf("create progress: %w", createErr)
		}
		// another submission created the row first
		current, err = progress.Find(ctx, userID, quiz.CategoryID)
	}
	if err != nil {
		return false, fmt.Errorf("load progress: %w", err)
	}

	if quiz.Level.Rank() <= current.CurrentLevel.Rank() {
		return false, nil
	}
	raised, err := progress.UpdateLevel(ctx, current.ID, quiz.Level)
	if err != nil {
		return false, fmt.Errorf("update progress: %w", err)
	}
	if raised {
		s.logAdvance(userID, quiz)
	}
	return raised, nil
}

func (s *ProgressService) logAdvance(userID string, quiz *model.Quiz) {
	monitoring.ProgressAdvanced.WithLabelValues(string(quiz.Level)).Inc()
	logger.Log.Info("progress advanced",
		zap.String("userId", userID),
		zap.String("categoryId", quiz.CategoryID),
		zap.String("level", string(quiz.Level)))
}

// IsQuizAccessible reports whether userID may take quiz. Beginner quizzes are
// always open; higher levels need a passing attempt on some published quiz of
// the previous level in the same category.
func (s *ProgressService) IsQuizAccessible(ctx context.Context, userID string, quiz *model.Quiz) (bool, error) {
	if !quiz.Level.IsValid() {
		return false, nil
	}
	prereq, ok := quiz.Level.Prerequisite()
	if !ok {
		return true, nil
	}
	return s.AttemptRepo.HasQualifyingPass(ctx, userID, quiz.CategoryID, prereq, PassingScore)
}

// ListAvailableQuizzes returns the published quizzes of a category, each
// flagged with whether user can take it.
func (s *ProgressService) ListAvailableQuizzes(ctx context.Context, categoryID string, user *util.Claims) (quizzes []model.AvailableQuiz, err error) {
	ctx, span := tracing.StartSpan(ctx, "ProgressService.ListAvailableQuizzes", "categoryId", categoryID, "userId", user.UserID)
	defer func() { tracing.EndSpan(span, err) }()

	category, err := s.QuizRepo.FindCategory(ctx, categoryID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrCategoryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load category: %w", err)
	}
	if !category.IsActive && !user.IsAdmin() {
		return nil, util.ErrCategoryNotFound
	}

	useCache := s.Cache != nil
	var version string
	if useCache {
		var cacheErr error
		version, cacheErr = s.Cache.Version(ctx, user.UserID, categoryID)
		if cacheErr != nil {
			logger.Log.Warn("access cache version read failed", zap.Error(cacheErr))
			useCache = false
		}
	}
	if useCache {
		cached, ok, cacheErr := s.Cache.Get(ctx, user.UserID, categoryID, version)
		if cacheErr != nil {
			logger.Log.Warn("access cache read failed", zap.Error(cacheErr))
		} else if ok {
			return cached, nil
		}
	}

	published, err := s.QuizRepo.FindPublishedQuizzesByCategory(ctx, categoryID)
	if err != nil {
		return nil, fmt.Errorf("load quizzes: %w", err)
	}
	sort.SliceStable(published, func(i, j int) bool {
		return published[i].Level.Rank() < published[j].Level.Rank()
	})

	// one prerequisite lookup per level
	unlocked := make(map[model.QuizLevel]bool)
	quizzes = make([]model.AvailableQuiz, 0, len(published))
	for i := range published {
		q := &published[i]
		accessible, seen := unlocked[q.Level]
		if !seen {
			accessible, err = s.IsQuizAccessible(ctx, user.UserID, q)
			if err != nil {
				return nil, fmt.Errorf("check access: %w", err)
			}
			unlocked[q.Level] = accessible
		}
		quizzes = append(quizzes, model.AvailableQuiz{
			ID:           q.ID,
			Title:        q.Title,
			Level:        q.Level,
			CategoryID:   q.CategoryID,
			Status:       q.Status,
			IsAccessible: accessible,
		})
	}

	if useCache {
		if cacheErr := s.Cache.Set(ctx, user.UserID, categoryID, version, quizzes); cacheErr != nil {
			logger.Log.Warn("access cache write failed", zap.Error(cacheErr))
		}
	}
	return quizzes, nil
}

// InvalidateAccess drops the cached availability of a category for a user.
func (s *ProgressService) InvalidateAccess(ctx context.Context, userID, categoryID string) {
	if s.Cache == nil {
		return
	}
	if err := s.Cache.Invalidate(ctx, userID, categoryID); err != nil {
		logger.Log.Warn("access cache invalidation failed",
			zap.String("userId", userID),
			zap.String("categoryId", categoryID),
			zap.Error(err))
	}
}

// InvalidateCategory drops the cached availability of a category for every
// user. Call it after the category's quizzes change.
func (s *ProgressService) InvalidateCategory(ctx context.Context, categoryID string) {
	if s.Cache == nil {
		return
	}
	if err := s.Cache.InvalidateCategory(ctx, categoryID); err != nil {
		logger.Log.Warn("access cache category invalidation failed",
			zap.String("categoryId", categoryID),
			zap.Error(err))
	}
}

func (s *ProgressService) ListProgress(ctx context.Context, userID string) ([]model.ProgressEntry, error) {
	rows, err := s.ProgressRepo.ListWithCategory(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load progress: %w", err)
	}
	entries := make([]model.ProgressEntry, 0, len(rows))
	for _, row := range rows {
		if row.Category == nil {
			continue
		}
		entries = append(entries, model.ProgressEntry{
			Category:     *row.Category,
			CurrentLevel: row.CurrentLevel,
			UpdatedAt:    row.UpdatedAt,
		})
	}
	return entries, nil
}

// RebuildProgress recomputes the user's progress rows from their passing
// attempts and returns the result.
func (s *ProgressService) RebuildProgress(ctx context.Context, userID string) (entries []model.ProgressEntry, err error) {
	ctx, span := tracing.StartSpan(ctx, "ProgressService.RebuildProgress", "userId", userID)
	defer func() { tracing.EndSpan(span, err) }()

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		highest, err := s.AttemptRepo.WithTx(tx).HighestPassedLevels(ctx, userID)
		if err != nil {
			return err
		}
		progress := s.ProgressRepo.WithTx(tx)
		if err := progress.DeleteByUser(ctx, userID); err != nil {
			return err
		}
		for categoryID, level := range highest {
			row := &model.UserProgress{UserID: userID, CategoryID: categoryID, CurrentLevel: level}
			if err := progress.Create(ctx, row); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("rebuild progress: %w", err)
	}

	logger.Log.Info("progress rebuilt", zap.String("userId", userID))
	return s.ListProgress(ctx, userID)
}
