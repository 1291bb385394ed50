package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// QuestionCacheRepository keeps generated practice question sets in redis.
// Every method is a no-op when redis is disabled.
type QuestionCacheRepository struct {
	Redis *redis.Client
	ctx   context.Context
}

func NewQuestionCacheRepository(rdb *redis.Client) *QuestionCacheRepository {
	return &QuestionCacheRepository{
		Redis: rdb,
		ctx:   context.Background(),
	}
}

// QuestionSetKey is one cache slot per language, level, topic and day.
func QuestionSetKey(language, level, topic, day string) string {
	return fmt.Sprintf("tutor:questions:%s:%s:%s:%s", language, level, topic, day)
}

func (r *QuestionCacheRepository) Get(key string) ([]byte, bool) {
	if r.Redis == nil {
		return nil, false
	}
	raw, err := r.Redis.Get(r.ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	return raw, true
}

func (r *QuestionCacheRepository) Set(key string, value []byte, ttl time.Duration) error {
	if r.Redis == nil {
		return nil
	}
	return r.Redis.Set(r.ctx, key, value, ttl).Err()
}

func (r *QuestionCacheRepository) Ping(ctx context.Context) error {
	if r.Redis == nil {
		return nil
	}
	return r.Redis.Ping(ctx).Err()
}
