package repository

import (
	"context"
	"sync/atomic"
	"time"

	"carrental/internal/domain"

	"github.com/rs/zerolog"
)

const recoveryInterval = time.Minute

// FailoverAttemptRepository uses primary (Redis) until it errors, then the
// fallback, probing the primary again once per recoveryInterval.
type FailoverAttemptRepository struct {
	primary   domain.AttemptStore
	fallback  domain.AttemptStore
	logger    *zerolog.Logger
	isDown    atomic.Bool
	lastCheck atomic.Int64
	now       func() time.Time
}

func NewFailoverAttemptRepository(primary, fallback domain.AttemptStore, logger *zerolog.Logger) *FailoverAttemptRepository {
	return &FailoverAttemptRepository{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
		now:      time.Now,
	}
}

func (r *FailoverAttemptRepository) markDown(err error) {
	r.logger.Error().Err(err).Msg("Primary attempt store failed, falling back to memory")
	r.isDown.Store(true)
	r.lastCheck.Store(r.now().UnixNano())
}

func (r *FailoverAttemptRepository) CheckRateLimit(ctx context.Context, userID int64, limit int, window time.Duration) (bool, error) {
	if !r.isDown.Load() {
		allowed, err := r.primary.CheckRateLimit(ctx, userID, limit, window)
		if err == nil {
			return allowed, nil
		}
		r.markDown(err)
	} else if r.now().Sub(time.Unix(0, r.lastCheck.Load())) > recoveryInterval {
		allowed, err := r.primary.CheckRateLimit(ctx, userID, limit, window)
		if err == nil {
			r.logger.Info().Msg("Primary attempt store recovered")
			r.isDown.Store(false)
			return allowed, nil
		}
		r.lastCheck.Store(r.now().UnixNano())
	}

	return r.fallback.CheckRateLimit(ctx, userID, limit, window)
}

// Degraded reports whether calls currently go to the fallback.
func (r *FailoverAttemptRepository) Degraded() bool {
	return r.isDown.Load()
}
