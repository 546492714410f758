package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"quiz_backend/internal/model"

	"github.com/go-redis/redis/v8"
)

// AccessCacheRepository keeps the computed quiz accessibility list of a user
// for one category in redis.
//
// Entries are keyed by a version made of two counters: one per category,
// bumped when its quizzes change, and one per (user, category), bumped when
// the user finishes an attempt there. Invalidation only bumps a counter, so a
// reader that loaded the version before the bump writes to a key nobody
// reads again.
type AccessCacheRepository struct {
	Redis *redis.Client
	TTL   time.Duration
}

func NewAccessCacheRepository(rdb *redis.Client, ttl time.Duration) *AccessCacheRepository {
	return &AccessCacheRepository{Redis: rdb, TTL: ttl}
}

func categoryGenKey(categoryID string) string {
	return fmt.Sprintf("quiz:access:gen:%s", categoryID)
}

func userGenKey(userID, categoryID string) string {
	return fmt.Sprintf("quiz:access:gen:%s:%s", userID, categoryID)
}

func accessKey(userID, categoryID, version string) string {
	return fmt.Sprintf("quiz:access:%s:%s:%s", userID, categoryID, version)
}

// Version returns the current cache version of (userID, categoryID).
func (r *AccessCacheRepository) Version(ctx context.Context, userID, categoryID string) (string, error) {
	vals, err := r.Redis.MGet(ctx, categoryGenKey(categoryID), userGenKey(userID, categoryID)).Result()
	if err != nil {
		return "", err
	}
	gen := func(v interface{}) string {
		if s, ok := v.(string); ok {
			return s
		}
		return "0"
	}
	return gen(vals[0]) + "." + gen(vals[1]), nil
}

// Get returns ok=false on a cache miss.
func (r *AccessCacheRepository) Get(ctx context.Context, userID, categoryID, version string) ([]model.AvailableQuiz, bool, error) {
	raw, err := r.Redis.Get(ctx, accessKey(userID, categoryID, version)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var quizzes []model.AvailableQuiz
	if err := json.Unmarshal(raw, &quizzes); err != nil {
		return nil, false, err
	}
	return quizzes, true, nil
}

func (r *AccessCacheRepository) Set(ctx context.Context, userID, categoryID, version string, quizzes []model.AvailableQuiz) error {
	raw, err := json.Marshal(quizzes)
	if err != nil {
		return err
	}
	return r.Redis.Set(ctx, accessKey(userID, categoryID, version), raw, r.TTL).Err()
}

// Invalidate retires every cached list of userID for categoryID.
func (r *AccessCacheRepository) Invalidate(ctx context.Context, userID, categoryID string) error {
	return r.Redis.Incr(ctx, userGenKey(userID, categoryID)).Err()
}

// InvalidateCategory retires the cached lists of every user for categoryID.
func (r *AccessCacheRepository) InvalidateCategory(ctx context.Context, categoryID string) error {
	return r.Redis.Incr(ctx, categoryGenKey(categoryID)).Err()
}
