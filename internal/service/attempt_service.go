package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"sync/atomic"
	"time"

	"quiz_backend/internal/model"
	"quiz_backend/internal/repository"
	"quiz_backend/internal/util"
	"quiz_backend/pkg/logger"
	"quiz_backend/pkg/monitoring"
	"quiz_backend/pkg/tracing"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	unknownQuizTitle   = "Unknown Quiz"
	recentAttemptLimit = 5
)

// AttemptService runs the attempt lifecycle: start, submit and the history
// views over finished attempts.
type AttemptService struct {
	DB              *gorm.DB
	QuizRepo        *repository.QuizRepository
	AttemptRepo     *repository.AttemptRepository
	ProgressRepo    *repository.ProgressRepository
	ProgressService *ProgressService
	Events          EventPublisher

	enforceAccess atomic.Bool
	now           func() time.Time
}

func NewAttemptService(db *gorm.DB, quizRepo *repository.QuizRepository, attemptRepo *repository.AttemptRepository,
	progressRepo *repository.ProgressRepository, progressService *ProgressService, events EventPublisher) *AttemptService {
	return &AttemptService{
		DB:              db,
		QuizRepo:        quizRepo,
		AttemptRepo:     attemptRepo,
		ProgressRepo:    progressRepo,
		ProgressService: progressService,
		Events:          events,
		now:             func() time.Time { return time.Now().UTC() },
	}
}

// SetEnforceAccess makes StartAttempt refuse quizzes whose prerequisite level
// has not been passed yet. Safe to call while serving.
func (s *AttemptService) SetEnforceAccess(enabled bool) {
	s.enforceAccess.Store(enabled)
}

func (s *AttemptService) EnforcesAccess() bool {
	return s.enforceAccess.Load()
}

// StartAttempt opens an attempt on a published quiz, or hands back the open
// one if the user already has it.
func (s *AttemptService) StartAttempt(ctx context.Context, userID, quizID string) (result *model.StartAttemptResult, err error) {
	ctx, span := tracing.StartSpan(ctx, "AttemptService.StartAttempt", "userId", userID, "quizId", quizID)
	defer func() { tracing.EndSpan(span, err) }()

	quiz, err := s.QuizRepo.FindPublishedQuiz(ctx, quizID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrQuizNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load quiz: %w", err)
	}

	if s.enforceAccess.Load() {
		accessible, err := s.ProgressService.IsQuizAccessible(ctx, userID, quiz)
		if err != nil {
			return nil, fmt.Errorf("check access: %w", err)
		}
		if !accessible {
			return nil, util.ErrQuizLocked
		}
	}

	attempt, resumed, err := s.findOrCreateAttempt(ctx, userID, quizID)
	if err != nil {
		return nil, err
	}

	questions, err := s.QuizRepo.FindQuestionsWithAnswers(ctx, quizID)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}

	result = &model.StartAttemptResult{
		AttemptID: attempt.ID,
		Resumed:   resumed,
		Quiz:      model.NewQuizSummary(quiz),
		Questions: make([]model.QuestionView, 0, len(questions)),
	}
	for _, q := range questions {
		view := model.QuestionView{
			ID:           q.ID,
			QuestionText: q.QuestionText,
			Order:        q.Order,
			Answers:      make([]model.AnswerOption, 0, len(q.Answers)),
		}
		for _, a := range q.Answers {
			view.Answers = append(view.Answers, model.AnswerOption{ID: a.ID, AnswerText: a.AnswerText, Order: a.Order})
		}
		result.Questions = append(result.Questions, view)
	}

	monitoring.AttemptsStarted.WithLabelValues(strconv.FormatBool(resumed)).Inc()
	logger.Log.Info("attempt started",
		zap.String("attemptId", attempt.ID),
		zap.String("userId", userID),
		zap.String("quizId", quizID),
		zap.Bool("resumed", resumed))
	return result, nil
}

func (s *AttemptService) findOrCreateAttempt(ctx context.Context, userID, quizID string) (*model.UserQuizAttempt, bool, error) {
	existing, err := s.AttemptRepo.FindInProgress(ctx, userID, quizID)
	if err == nil {
		return existing, true, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, fmt.Errorf("load open attempt: %w", err)
	}

	key := model.ActiveAttemptKey(userID, quizID)
	attempt := &model.UserQuizAttempt{
		UserID:    userID,
		QuizID:    quizID,
		Status:    model.AttemptInProgress,
		StartedAt: s.now(),
		ActiveKey: &key,
	}
	if err := s.AttemptRepo.Create(ctx, attempt); err != nil {
		// a concurrent start holds the key; return its attempt
		if winner, findErr := s.AttemptRepo.FindInProgress(ctx, userID, quizID); findErr == nil {
			return winner, true, nil
		}
		return nil, false, fmt.Errorf("create attempt: %w", err)
	}
	return attempt, false, nil
}

// SubmitAttempt grades and finalizes an attempt. Everything it writes is
// committed together or not at all.
func (s *AttemptService) SubmitAttempt(ctx context.Context, userID, attemptID string, answers []AnswerSubmission) (result *model.SubmissionResult, err error) {
	ctx, span := tracing.StartSpan(ctx, "AttemptService.SubmitAttempt", "userId", userID, "attemptId", attemptID)
	defer func() { tracing.EndSpan(span, err) }()

	var (
		card        *Scorecard
		quiz        *model.Quiz
		advanced    bool
		completedAt = s.now()
	)

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		attempts := s.AttemptRepo.WithTx(tx)
		quizzes := s.QuizRepo.WithTx(tx)

		attempt, err := attempts.FindByID(ctx, attemptID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return util.ErrAttemptNotFound
		}
		if err != nil {
			return fmt.Errorf("load attempt: %w", err)
		}
		if attempt.UserID != userID {
			return util.ErrAttemptForbidden
		}
		if attempt.IsCompleted() {
			return util.ErrAttemptCompleted
		}

		quiz, err = quizzes.FindQuiz(ctx, attempt.QuizID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return util.ErrQuizNotFound
		}
		if err != nil {
			return fmt.Errorf("load quiz: %w", err)
		}
		questions, err := quizzes.FindQuestionsWithAnswers(ctx, quiz.ID)
		if err != nil {
			return fmt.Errorf("load questions: %w", err)
		}

		card = ScoreSubmission(questions, answers)
		for i := range card.Answers {
			card.Answers[i].AttemptID = attempt.ID
		}
		if err := attempts.CreateAnswers(ctx, card.Answers); err != nil {
			return fmt.Errorf("save answers: %w", err)
		}

		finalized, err := attempts.Finalize(ctx, attempt.ID, card.Score, card.Passed, completedAt)
		if err != nil {
			return fmt.Errorf("finalize attempt: %w", err)
		}
		if !finalized {
			// lost to a concurrent submission; drop our answers too
			return util.ErrAttemptCompleted
		}

		if card.Passed {
			advanced, err = s.ProgressService.Advance(ctx, tx, userID, quiz)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.afterSubmit(ctx, userID, attemptID, quiz, card, completedAt, advanced)

	return &model.SubmissionResult{
		AttemptID:      attemptID,
		Score:          card.Score,
		Passed:         card.Passed,
		CorrectAnswers: card.CorrectCount,
		TotalQuestions: card.TotalQuestions,
		Details:        card.Details,
	}, nil
}

// afterSubmit runs the side effects of a committed submission. None of them
// can fail the request.
func (s *AttemptService) afterSubmit(ctx context.Context, userID, attemptID string, quiz *model.Quiz, card *Scorecard, completedAt time.Time, advanced bool) {
	s.ProgressService.InvalidateAccess(ctx, userID, quiz.CategoryID)

	result := "failed"
	if card.Passed {
		result = "passed"
	}
	monitoring.AttemptsSubmitted.WithLabelValues(result).Inc()
	logger.Log.Info("attempt submitted",
		zap.String("attemptId", attemptID),
		zap.String("userId", userID),
		zap.String("quizId", quiz.ID),
		zap.Float64("score", card.Score),
		zap.Bool("passed", card.Passed))

	if s.Events == nil {
		return
	}
	s.publish(EventAttemptCompleted, AttemptCompletedEvent{
		AttemptID:   attemptID,
		UserID:      userID,
		QuizID:      quiz.ID,
		CategoryID:  quiz.CategoryID,
		Score:       card.Score,
		Passed:      card.Passed,
		CompletedAt: completedAt,
	})
	if advanced {
		s.publish(EventProgressAdvanced, ProgressAdvancedEvent{
			UserID:     userID,
			CategoryID: quiz.CategoryID,
			Level:      string(quiz.Level),
		})
	}
}

func (s *AttemptService) publish(eventType string, payload interface{}) {
	if err := s.Events.Publish(eventType, payload); err != nil {
		logger.Log.Warn("failed to publish event", zap.String("event", eventType), zap.Error(err))
	}
}

// ListAttempts returns every attempt of the user, latest completion first.
func (s *AttemptService) ListAttempts(ctx context.Context, userID string) ([]model.AttemptSummary, error) {
	rows, err := s.AttemptRepo.ListByUserWithTitle(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	return toSummaries(rows), nil
}

func toSummaries(rows []repository.AttemptWithTitle) []model.AttemptSummary {
	out := make([]model.AttemptSummary, 0, len(rows))
	for _, row := range rows {
		title := unknownQuizTitle
		if row.QuizTitle != nil {
			title = *row.QuizTitle
		}
		out = append(out, model.AttemptSummary{
			ID:          row.ID,
			QuizID:      row.QuizID,
			QuizTitle:   title,
			Status:      row.Status,
			Score:       row.Score,
			Passed:      row.Passed,
			StartedAt:   row.StartedAt,
			CompletedAt: row.CompletedAt,
		})
	}
	return out
}

// GetAttemptDetail shows an attempt of the caller with every question of the
// quiz and, per answer, whether it is correct and whether it was picked.
func (s *AttemptService) GetAttemptDetail(ctx context.Context, userID, attemptID string) (detail *model.AttemptDetail, err error) {
	ctx, span := tracing.StartSpan(ctx, "AttemptService.GetAttemptDetail", "userId", userID, "attemptId", attemptID)
	defer func() { tracing.EndSpan(span, err) }()

	attempt, err := s.AttemptRepo.FindByID(ctx, attemptID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrAttemptNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load attempt: %w", err)
	}
	if attempt.UserID != userID {
		return nil, util.ErrAttemptForbidden
	}

	quiz, err := s.QuizRepo.FindQuiz(ctx, attempt.QuizID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrQuizNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load quiz: %w", err)
	}

	questions, err := s.QuizRepo.FindQuestionsWithAnswers(ctx, quiz.ID)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	picked, err := s.AttemptRepo.FindAnswers(ctx, attempt.ID)
	if err != nil {
		return nil, fmt.Errorf("load answers: %w", err)
	}
	selected := make(map[string]bool, len(picked))
	for _, ua := range picked {
		selected[ua.AnswerID] = true
	}

	detail = &model.AttemptDetail{
		Attempt: model.AttemptSummary{
			ID:          attempt.ID,
			QuizID:      attempt.QuizID,
			QuizTitle:   quiz.Title,
			Status:      attempt.Status,
			Score:       attempt.Score,
			Passed:      attempt.Passed,
			StartedAt:   attempt.StartedAt,
			CompletedAt: attempt.CompletedAt,
		},
		Quiz:      model.NewQuizSummary(quiz),
		Questions: make([]model.AttemptQuestionDetail, 0, len(questions)),
	}
	for _, q := range questions {
		qd := model.AttemptQuestionDetail{
			ID:           q.ID,
			QuestionText: q.QuestionText,
			Order:        q.Order,
			Answers:      make([]model.AnswerDetail, 0, len(q.Answers)),
		}
		for _, a := range q.Answers {
			qd.Answers = append(qd.Answers, model.AnswerDetail{
				ID:           a.ID,
				AnswerText:   a.AnswerText,
				Order:        a.Order,
				IsCorrect:    a.IsCorrect,
				UserSelected: selected[a.ID],
			})
		}
		detail.Questions = append(detail.Questions, qd)
	}
	return detail, nil
}

// GetUserStats summarises the user's activity.
func (s *AttemptService) GetUserStats(ctx context.Context, userID string) (*model.UserStats, error) {
	total, avg, err := s.AttemptRepo.Stats(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("attempt stats: %w", err)
	}
	mastered, err := s.ProgressRepo.CountByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("count progress: %w", err)
	}
	recent, err := s.AttemptRepo.ListRecentCompleted(ctx, userID, recentAttemptLimit)
	if err != nil {
		return nil, fmt.Errorf("recent attempts: %w", err)
	}

	return &model.UserStats{
		TotalAttempts:      total,
		AverageScore:       math.Round(avg*100) / 100,
		CategoriesMastered: mastered,
		RecentAttempts:     toSummaries(recent),
	}, nil
}
