package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"quiz_backend/internal/model"
	"quiz_backend/internal/repository"
	"quiz_backend/internal/testutil"

	"gorm.io/gorm"
)

type publishedEvent struct {
	Type    string
	Payload interface{}
}

type fakePublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *fakePublisher) Publish(eventType string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{Type: eventType, Payload: payload})
	return nil
}

func (p *fakePublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

// fakeCache mirrors the versioned keys of the redis access cache.
type fakeCache struct {
	mu          sync.Mutex
	entries     map[string][]model.AvailableQuiz
	categoryGen map[string]int
	userGen     map[string]int
	invalidated []string
	// beforeSet runs once, right before the next Set stores its list.
	beforeSet func()
}

func newFakeCache() *fakeCache {
	return &fakeCache{
		entries:     make(map[string][]model.AvailableQuiz),
		categoryGen: make(map[string]int),
		userGen:     make(map[string]int),
	}
}

func (c *fakeCache) version(userID, categoryID string) string {
	return fmt.Sprintf("%d.%d", c.categoryGen[categoryID], c.userGen[userID+"/"+categoryID])
}

func (c *fakeCache) Version(_ context.Context, userID, categoryID string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.version(userID, categoryID), nil
}

func (c *fakeCache) Get(_ context.Context, userID, categoryID, version string) ([]model.AvailableQuiz, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[userID+"/"+categoryID+"/"+version]
	return v, ok, nil
}

func (c *fakeCache) Set(_ context.Context, userID, categoryID, version string, quizzes []model.AvailableQuiz) error {
	c.mu.Lock()
	hook := c.beforeSet
	c.beforeSet = nil
	c.mu.Unlock()
	if hook != nil {
		hook()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[userID+"/"+categoryID+"/"+version] = quizzes
	return nil
}

func (c *fakeCache) Invalidate(_ context.Context, userID, categoryID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := userID + "/" + categoryID
	c.userGen[key]++
	c.invalidated = append(c.invalidated, key)
	return nil
}

func (c *fakeCache) InvalidateCategory(_ context.Context, categoryID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.categoryGen[categoryID]++
	c.invalidated = append(c.invalidated, categoryID)
	return nil
}

// cached reports whether a list is stored under the current version.
func (c *fakeCache) cached(userID, categoryID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[userID+"/"+categoryID+"/"+c.version(userID, categoryID)]
	return ok
}

// clock hands out strictly increasing timestamps.
type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Minute)
	return c.t
}

type fixture struct {
	db       *gorm.DB
	attempts *AttemptService
	progress *ProgressService
	content  *ContentService
	cache    *fakeCache
	events   *fakePublisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewTestDB(t)

	quizRepo := repository.NewQuizRepository(db)
	attemptRepo := repository.NewAttemptRepository(db)
	progressRepo := repository.NewProgressRepository(db)

	cache := newFakeCache()
	events := &fakePublisher{}
	progress := NewProgressService(db, quizRepo, attemptRepo, progressRepo, cache)
	attempts := NewAttemptService(db, quizRepo, attemptRepo, progressRepo, progress, events)
	c := &clock{t: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)}
	attempts.now = c.Now

	return &fixture{
		db:       db,
		attempts: attempts,
		progress: progress,
		content:  NewContentService(db, quizRepo, progress),
		cache:    cache,
		events:   events,
	}
}

// answersFor picks the correct answer for the first `correct` questions and a
// wrong one for the rest. Fixture questions have answer 0 correct, 1 wrong.
func answersFor(questions []model.Question, correct int) []AnswerSubmission {
	subs := make([]AnswerSubmission, 0, len(questions))
	for i, q := range questions {
		pick := q.Answers[1].ID
		if i < correct {
			pick = q.Answers[0].ID
		}
		subs = append(subs, AnswerSubmission{QuestionID: q.ID, AnswerIDs: []string{pick}})
	}
	return subs
}

// takeQuiz starts and submits a quiz with `correct` right answers.
func (f *fixture) takeQuiz(t *testing.T, userID string, quiz *model.Quiz, questions []model.Question, correct int) *model.SubmissionResult {
	t.Helper()
	ctx := context.Background()
	started, err := f.attempts.StartAttempt(ctx, userID, quiz.ID)
	if err != nil {
		t.Fatalf("start attempt: %v", err)
	}
	result, err := f.attempts.SubmitAttempt(ctx, userID, started.AttemptID, answersFor(questions, correct))
	if err != nil {
		t.Fatalf("submit attempt: %v", err)
	}
	return result
}

func (f *fixture) progressLevel(t *testing.T, userID, categoryID string) (model.QuizLevel, bool) {
	t.Helper()
	var p model.UserProgress
	err := f.db.Where("user_id = ? AND category_id = ?", userID, categoryID).First(&p).Error
	if err == gorm.ErrRecordNotFound {
		return "", false
	}
	if err != nil {
		t.Fatalf("load progress: %v", err)
	}
	return p.CurrentLevel, true
}

// beforeCreate runs fn once, inside the same connection or transaction, just
// before the next insert into table. It stands in for a concurrent writer
// winning a race.
func beforeCreate(t *testing.T, db *gorm.DB, table string, fn func(tx *gorm.DB)) {
	t.Helper()
	var fired atomic.Bool
	err := db.Callback().Create().Before("gorm:create").Register("test:before_create_"+table, func(tx *gorm.DB) {
		// fn inserts into table as well; only the first insert triggers it
		if tx.Statement.Table != table || !fired.CompareAndSwap(false, true) {
			return
		}
		fn(tx.Session(&gorm.Session{NewDB: true}))
	})
	if err != nil {
		t.Fatalf("register callback: %v", err)
	}
}
