package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// TokenRevoker revokes codes that expired without being used.
type TokenRevoker interface {
	RevokeExpired(ctx context.Context, now time.Time) (int64, error)
}

// TokenSweeper periodically revokes expired verification codes so the
// one-unused-code-per-purpose index only ever holds live codes.
type TokenSweeper struct {
	tokens   TokenRevoker
	interval time.Duration
	logger   *zap.Logger
	now      func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

// NewTokenSweeper builds the job.
func NewTokenSweeper(tokens TokenRevoker, interval time.Duration, logger *zap.Logger) *TokenSweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &TokenSweeper{
		tokens:   tokens,
		interval: interval,
		logger:   logger.Named("token_sweeper"),
		now:      time.Now,
		stop:     make(chan struct{}),
	}
}

// Start blocks until ctx is cancelled or Stop is called.
func (j *TokenSweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-j.stop:
			return
		case <-ticker.C:
			j.sweep(ctx)
		}
	}
}

// Stop ends Start.
func (j *TokenSweeper) Stop() {
	j.stopOnce.Do(func() { close(j.stop) })
}

func (j *TokenSweeper) sweep(ctx context.Context) {
	n, err := j.tokens.RevokeExpired(ctx, j.now())
	if err != nil {
		j.logger.Error("revoke expired tokens", zap.Error(err))
		return
	}
	if n > 0 {
		j.logger.Info("revoked expired tokens", zap.Int64("count", n))
	}
}
