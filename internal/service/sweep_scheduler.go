package service

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/hora/billing-engine/internal/observability"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const (
	defaultSweepCronSpec   = "0 9 * * *"
	defaultSweepMaxRetries = 3
	baseRetryDelay         = 30 * time.Second
	maxRetryDelay          = 10 * time.Minute
	maxRetryJitterMillis   = 250
)

// SweepRunner is the part of NotificationSweep the scheduler drives.
type SweepRunner interface {
	Run(ctx context.Context, nowDate time.Time) (*SweepResult, error)
}

// SweepScheduler triggers the sweep on a cron spec and retries a failed run
// with exponential backoff. Only whole-run failures are retried; per-item
// delivery failures are already isolated inside the sweep.
type SweepScheduler struct {
	cronEngine *cron.Cron
	sweep      SweepRunner
	logger     *zap.Logger
	spec       string
	maxRetries int
	now        func() time.Time
	sleep      func(ctx context.Context, d time.Duration) error
	randIntn   func(n int) int
}

func NewSweepScheduler(
	sweep SweepRunner,
	spec string,
	maxRetries int,
	logger *zap.Logger,
) (*SweepScheduler, error) {
	if sweep == nil {
		return nil, fmt.Errorf("sweep runner is required")
	}
	if spec == "" {
		spec = defaultSweepCronSpec
	}
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("invalid sweep cron spec %q: %w", spec, err)
	}
	if maxRetries < 0 {
		maxRetries = defaultSweepMaxRetries
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &SweepScheduler{
		cronEngine: cron.New(),
		sweep:      sweep,
		logger:     logger,
		spec:       spec,
		maxRetries: maxRetries,
		now:        time.Now,
		sleep:      sleepWithContext,
		randIntn:   rand.Intn,
	}, nil
}

// Start registers the cron job and blocks until ctx is canceled.
func (s *SweepScheduler) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if _, err := s.cronEngine.AddFunc(s.spec, func() {
		s.runWithRetry(ctx)
	}); err != nil {
		return fmt.Errorf("failed to register sweep cron job: %w", err)
	}

	s.cronEngine.Start()
	s.logger.Info("sweep scheduler started", zap.String("spec", s.spec))

	<-ctx.Done()
	<-s.cronEngine.Stop().Done()
	return nil
}

func (s *SweepScheduler) runWithRetry(ctx context.Context) {
	runCtx := observability.WithRunID(ctx, uuid.NewString())
	logger := observability.WithContextLogger(s.logger, runCtx)

	for attempt := 1; ; attempt++ {
		result, err := s.sweep.Run(runCtx, s.now())
		if err == nil {
			logger.Info("sweep run finished",
				zap.Int("attempt", attempt),
				zap.Int("notified", len(result.Notified)),
			)
			return
		}

		if runCtx.Err() != nil {
			return
		}

		if attempt > s.maxRetries {
			logger.Error("sweep run failed, retries exhausted",
				zap.Int("attempts", attempt),
				zap.Error(err),
			)
			return
		}

		delay := s.computeRetryDelay(attempt)
		logger.Warn("sweep run failed, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
		if sleepErr := s.sleep(runCtx, delay); sleepErr != nil {
			return
		}
	}
}

func (s *SweepScheduler) computeRetryDelay(attemptNumber int) time.Duration {
	if attemptNumber < 1 {
		attemptNumber = 1
	}

	delay := baseRetryDelay
	for i := 1; i < attemptNumber; i++ {
		delay *= 2
		if delay >= maxRetryDelay {
			delay = maxRetryDelay
			break
		}
	}

	if delay > maxRetryDelay {
		delay = maxRetryDelay
	}

	jitterMillis := 0
	if s.randIntn != nil && maxRetryJitterMillis > 0 {
		jitterMillis = s.randIntn(maxRetryJitterMillis + 1)
	}

	return delay + time.Duration(jitterMillis)*time.Millisecond
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
