package util

import (
	"errors"
	"fmt"
)

// Error classes. Domain errors wrap exactly one of them so transport code can
// classify with errors.Is.
var (
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrForbidden       = errors.New("forbidden")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrInvalidInput    = errors.New("invalid input")
)

var (
	ErrUserNotFound       = fmt.Errorf("user %w", ErrNotFound)
	ErrCategoryNotFound   = fmt.Errorf("category %w", ErrNotFound)
	ErrQuizNotFound       = fmt.Errorf("quiz %w or not published", ErrNotFound)
	ErrAttemptNotFound    = fmt.Errorf("attempt %w", ErrNotFound)
	ErrAttemptForbidden   = fmt.Errorf("attempt belongs to another user: %w", ErrForbidden)
	ErrAttemptCompleted   = fmt.Errorf("attempt already completed: %w", ErrConflict)
	ErrQuizLocked         = fmt.Errorf("prerequisite level not passed: %w", ErrForbidden)
	ErrEmailRegistered    = fmt.Errorf("email already registered: %w", ErrConflict)
	ErrCategoryNameTaken  = fmt.Errorf("category name already exists: %w", ErrConflict)
	ErrQuestionOrderTaken = fmt.Errorf("question order must be unique for this quiz: %w", ErrConflict)
	ErrInvalidCredentials = fmt.Errorf("invalid email or password: %w", ErrUnauthenticated)
	ErrInvalidLevel       = fmt.Errorf("unknown quiz level: %w", ErrInvalidInput)
	ErrInvalidStatus      = fmt.Errorf("unknown quiz status: %w", ErrInvalidInput)
	ErrNoCorrectAnswer    = fmt.Errorf("question needs at least one correct answer: %w", ErrInvalidInput)
)
