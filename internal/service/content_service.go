package service

import (
	"context"
	"errors"
	"fmt"

	"quiz_backend/internal/model"
	"quiz_backend/internal/repository"
	"quiz_backend/internal/util"
	"quiz_backend/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ContentService manages authored content: categories, quizzes and questions.
type ContentService struct {
	DB       *gorm.DB
	QuizRepo *repository.QuizRepository
	Progress *ProgressService
}

func NewContentService(db *gorm.DB, quizRepo *repository.QuizRepository, progress *ProgressService) *ContentService {
	return &ContentService{DB: db, QuizRepo: quizRepo, Progress: progress}
}

// quizzesChanged retires cached availability lists of the category.
func (s *ContentService) quizzesChanged(ctx context.Context, categoryID string) {
	if s.Progress != nil {
		s.Progress.InvalidateCategory(ctx, categoryID)
	}
}

func (s *ContentService) CreateCategory(ctx context.Context, category *model.Category) error {
	exists, err := s.QuizRepo.CategoryNameExists(ctx, category.Name)
	if err != nil {
		return err
	}
	if exists {
		return util.ErrCategoryNameTaken
	}
	if err := s.QuizRepo.CreateCategory(ctx, category); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return util.ErrCategoryNameTaken
		}
		return err
	}
	return nil
}

// ListCategories hides inactive categories unless includeInactive is set.
func (s *ContentService) ListCategories(ctx context.Context, includeInactive bool) ([]model.Category, error) {
	return s.QuizRepo.ListCategories(ctx, includeInactive)
}

// CreateQuiz adds a quiz to an existing category. New quizzes are drafts
// unless a status is given.
func (s *ContentService) CreateQuiz(ctx context.Context, quiz *model.Quiz) error {
	if !quiz.Level.IsValid() {
		return util.ErrInvalidLevel
	}
	if quiz.Status == "" {
		quiz.Status = model.QuizStatusDraft
	}
	if !validStatus(quiz.Status) {
		return util.ErrInvalidStatus
	}

	if _, err := s.QuizRepo.FindCategory(ctx, quiz.CategoryID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return util.ErrCategoryNotFound
		}
		return err
	}
	if err := s.QuizRepo.CreateQuiz(ctx, quiz); err != nil {
		return err
	}
	if quiz.Status == model.QuizStatusPublished {
		s.quizzesChanged(ctx, quiz.CategoryID)
	}
	logger.Log.Info("quiz created", zap.String("quizId", quiz.ID), zap.String("level", string(quiz.Level)))
	return nil
}

func validStatus(status model.QuizStatus) bool {
	return status == model.QuizStatusDraft || status == model.QuizStatusPublished
}

func (s *ContentService) UpdateQuizStatus(ctx context.Context, quizID string, status model.QuizStatus) error {
	if !validStatus(status) {
		return util.ErrInvalidStatus
	}
	quiz, err := s.QuizRepo.FindQuiz(ctx, quizID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return util.ErrQuizNotFound
		}
		return err
	}
	// an unchanged status affects no rows, so the result is not checked
	if _, err := s.QuizRepo.UpdateQuizStatus(ctx, quizID, status); err != nil {
		return err
	}
	s.quizzesChanged(ctx, quiz.CategoryID)
	return nil
}

func (s *ContentService) DeleteQuiz(ctx context.Context, quizID string) error {
	quiz, err := s.QuizRepo.FindQuiz(ctx, quizID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return util.ErrQuizNotFound
		}
		return err
	}
	deleted, err := s.QuizRepo.DeleteQuiz(ctx, quizID)
	if err != nil {
		return err
	}
	if !deleted {
		return util.ErrQuizNotFound
	}
	s.quizzesChanged(ctx, quiz.CategoryID)
	logger.Log.Info("quiz deleted", zap.String("quizId", quizID))
	return nil
}

// ListQuestions returns the quiz's questions with answers, correctness
// included.
func (s *ContentService) ListQuestions(ctx context.Context, quizID string) ([]model.Question, error) {
	if _, err := s.QuizRepo.FindQuiz(ctx, quizID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrQuizNotFound
		}
		return nil, err
	}
	return s.QuizRepo.FindQuestionsWithAnswers(ctx, quizID)
}

// AddQuestion stores a question and its answers atomically. An Order of 0
// appends the question after the last one; answers without an order keep
// their position in the slice.
func (s *ContentService) AddQuestion(ctx context.Context, quizID string, question *model.Question) error {
	hasCorrect := false
	for i := range question.Answers {
		if question.Answers[i].IsCorrect {
			hasCorrect = true
		}
		if question.Answers[i].Order == 0 {
			question.Answers[i].Order = i + 1
		}
	}
	if !hasCorrect {
		return util.ErrNoCorrectAnswer
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		quizzes := s.QuizRepo.WithTx(tx)
		if _, err := quizzes.FindQuiz(ctx, quizID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return util.ErrQuizNotFound
			}
			return err
		}

		if question.Order == 0 {
			existing, err := quizzes.FindQuestionsByQuiz(ctx, quizID)
			if err != nil {
				return err
			}
			question.Order = 1
			if n := len(existing); n > 0 {
				question.Order = existing[n-1].Order + 1
			}
		} else {
			taken, err := quizzes.QuestionOrderExists(ctx, quizID, question.Order)
			if err != nil {
				return err
			}
			if taken {
				return util.ErrQuestionOrderTaken
			}
		}

		question.QuizID = quizID
		if err := quizzes.CreateQuestionWithAnswers(ctx, question); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return util.ErrQuestionOrderTaken
			}
			return err
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("add question: %w", err)
	}
	return nil
}
