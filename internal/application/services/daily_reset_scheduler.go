package services

import (
	"context"
	"time"

	"github.com/zatekoja/pediatric-clinic/internal/domain/entities"
	"github.com/zatekoja/pediatric-clinic/internal/domain/providers"
	"github.com/zatekoja/pediatric-clinic/internal/infrastructure/observability"
)

// DailyResetScheduler runs the daily reset once a day at a fixed wall-clock
// time in the clock's location
type DailyResetScheduler struct {
	hall   *HallService
	clock  providers.Clock
	hour   int
	minute int
}

// NewDailyResetScheduler creates a scheduler firing at hour:minute
func NewDailyResetScheduler(hall *HallService, clock providers.Clock, hour, minute int) *DailyResetScheduler {
	return &DailyResetScheduler{
		hall:   hall,
		clock:  clock,
		hour:   hour,
		minute: minute,
	}
}

// NextRun returns the first scheduled instant strictly after now
func (s *DailyResetScheduler) NextRun(now time.Time) time.Time {
	y, m, d := now.Date()
	next := time.Date(y, m, d, s.hour, s.minute, 0, 0, now.Location())
	if !next.After(now) {
		next = time.Date(y, m, d+1, s.hour, s.minute, 0, 0, now.Location())
	}
	return next
}

// RunOnce performs a reset as the system identity
func (s *DailyResetScheduler) RunOnce(ctx context.Context) (DailyResetResult, error) {
	logger := observability.LoggerFromContext(ctx)
	result, err := s.hall.DailyReset(ctx, entities.SystemIdentity)
	if err != nil {
		logger.Error().Err(err).Msg("scheduled daily reset failed")
		return result, err
	}
	logger.Info().
		Int("reset_count", result.ResetCount).
		Int("cleared_count", result.ClearedCount).
		Msg("scheduled daily reset completed")
	return result, nil
}

// Start runs the scheduler in a background goroutine until ctx is cancelled
func (s *DailyResetScheduler) Start(ctx context.Context) {
	logger := observability.LoggerFromContext(ctx)

	go func() {
		for {
			now := s.clock.Now()
			next := s.NextRun(now)
			logger.Info().Time("next_run", next).Msg("daily reset scheduled")

			timer := time.NewTimer(next.Sub(now))
			select {
			case <-ctx.Done():
				timer.Stop()
				logger.Info().Msg("daily reset scheduler stopped")
				return
			case <-timer.C:
				_, _ = s.RunOnce(ctx)
			}
		}
	}()
}
