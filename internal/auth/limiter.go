package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/campus-market/backend/internal/domain"
)

// AttemptLimiter counts failed code verifications per user and purpose.
type AttemptLimiter interface {
	Blocked(ctx context.Context, userID string, tokenType domain.TokenType) (bool, error)
	Fail(ctx context.Context, userID string, tokenType domain.TokenType) error
	Reset(ctx context.Context, userID string, tokenType domain.TokenType) error
}

// RedisAttemptLimiter keeps a fixed-window counter in redis.
type RedisAttemptLimiter struct {
	client redis.Cmdable
	max    int64
	window time.Duration
}

// NewRedisAttemptLimiter builds a limiter allowing max failures per window.
func NewRedisAttemptLimiter(client redis.Cmdable, max int, window time.Duration) *RedisAttemptLimiter {
	if max <= 0 {
		max = 5
	}
	if window <= 0 {
		window = 10 * time.Minute
	}
	return &RedisAttemptLimiter{client: client, max: int64(max), window: window}
}

func attemptKey(userID string, tokenType domain.TokenType) string {
	return fmt.Sprintf("auth:attempts:%s:%s", tokenType, userID)
}

func (l *RedisAttemptLimiter) Blocked(ctx context.Context, userID string, tokenType domain.TokenType) (bool, error) {
	n, err := l.client.Get(ctx, attemptKey(userID, tokenType)).Int64()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return n >= l.max, nil
}

// Fail counts one failed attempt. The window starts with the first failure and
// the counter is created with its TTL in the same MULTI, so a counter never
// outlives its window.
func (l *RedisAttemptLimiter) Fail(ctx context.Context, userID string, tokenType domain.TokenType) error {
	key := attemptKey(userID, tokenType)
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SetNX(ctx, key, 0, l.window)
		pipe.Incr(ctx, key)
		return nil
	})
	return err
}

func (l *RedisAttemptLimiter) Reset(ctx context.Context, userID string, tokenType domain.TokenType) error {
	return l.client.Del(ctx, attemptKey(userID, tokenType)).Err()
}

// NoopAttemptLimiter never blocks. Used when redis is not configured.
type NoopAttemptLimiter struct{}

func (NoopAttemptLimiter) Blocked(context.Context, string, domain.TokenType) (bool, error) {
	return false, nil
}

func (NoopAttemptLimiter) Fail(context.Context, string, domain.TokenType) error { return nil }

func (NoopAttemptLimiter) Reset(context.Context, string, domain.TokenType) error { return nil }
