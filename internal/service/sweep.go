package service

import (
	"context"
	"fmt"
	"time"

	"github.com/hora/billing-engine/internal/domain"
	"github.com/hora/billing-engine/internal/notify"
	"github.com/hora/billing-engine/internal/observability"
	"github.com/hora/billing-engine/internal/ratelimit"
	"github.com/hora/billing-engine/internal/repository"
	"go.uber.org/zap"
)

// DefaultReminderHorizonDays is the fixed horizon within which the sweep
// reminds. It is deliberately independent of the user-configurable UI
// urgency window.
const DefaultReminderHorizonDays = 7

const reminderChannel = "push"

// SweepResult reports one sweep run: which subscriptions were reminded and
// which individual deliveries failed. Per-item failures never abort the run.
type SweepResult struct {
	Notified []string
	Skipped  int
	Errors   map[string]error
}

// NotificationSweep scans every active subscription and delivers at most one
// reminder per subscription per run. It only reads subscription state, so it
// can run concurrently with the ledger without coordination; a reminder made
// stale by a concurrent payment is acceptable.
type NotificationSweep struct {
	subscriptions repository.SubscriptionRepository
	notifier      notify.Notifier
	rateLimiter   ratelimit.RateLimiter
	logger        *zap.Logger
	metrics       *observability.Metrics
	horizonDays   int
}

func NewNotificationSweep(
	subscriptions repository.SubscriptionRepository,
	notifier notify.Notifier,
	rateLimiter ratelimit.RateLimiter,
	horizonDays int,
	logger *zap.Logger,
) (*NotificationSweep, error) {
	if subscriptions == nil {
		return nil, fmt.Errorf("subscription repository is required")
	}
	if notifier == nil {
		return nil, fmt.Errorf("notifier is required")
	}
	if horizonDays <= 0 {
		horizonDays = DefaultReminderHorizonDays
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &NotificationSweep{
		subscriptions: subscriptions,
		notifier:      notifier,
		rateLimiter:   rateLimiter,
		logger:        logger,
		horizonDays:   horizonDays,
	}, nil
}

func (s *NotificationSweep) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}

// Run executes one sweep relative to nowDate. A failure loading the
// subscription set fails the whole run and is retryable; once loaded, each
// subscription is processed in isolation. A permission denial from the
// delivery surface stops delivery for the rest of the run without being an
// error.
func (s *NotificationSweep) Run(ctx context.Context, nowDate time.Time) (*SweepResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	start := time.Now()
	defer func() {
		s.metrics.ObserveSweepDuration(time.Since(start))
	}()

	subscriptions, err := s.subscriptions.ListAllActive(ctx)
	if err != nil {
		s.metrics.IncSweepRun("fetch_failed")
		return nil, fmt.Errorf("failed to fetch active subscriptions: %w", err)
	}

	logger := observability.WithContextLogger(s.logger, ctx)
	result := &SweepResult{Errors: make(map[string]error)}

	for i := range subscriptions {
		if ctx.Err() != nil {
			s.metrics.IncSweepRun("canceled")
			return result, ctx.Err()
		}

		subscription := subscriptions[i]
		if subscription.DueDate == nil {
			result.Skipped++
			continue
		}

		daysLeft := domain.DaysBetween(*subscription.DueDate, nowDate)
		if daysLeft < 0 || daysLeft > s.horizonDays {
			result.Skipped++
			continue
		}

		if subscription.ID == "" {
			logger.Error("subscription without id in sweep candidate set",
				zap.String("name", subscription.Name),
			)
			result.Errors[subscription.Name] = domain.ErrIdentityMissing
			s.metrics.IncReminderFailed("identity_missing")
			continue
		}

		if err := s.deliver(ctx, subscription, daysLeft); err != nil {
			if notify.IsPermissionDenied(err) {
				// The user has not granted notification permission; skip the
				// rest of delivery silently.
				logger.Info("notification permission not granted, skipping delivery",
					zap.Int("remaining", len(subscriptions)-i),
				)
				result.Skipped += len(subscriptions) - i
				s.metrics.IncSweepRun("permission_denied")
				return result, nil
			}

			logger.Error("failed to deliver reminder",
				zap.String("subscriptionId", subscription.ID),
				zap.Error(err),
			)
			result.Errors[subscription.ID] = err
			s.metrics.IncReminderFailed(failureReason(err))
			continue
		}

		result.Notified = append(result.Notified, subscription.ID)
		s.metrics.IncReminderSent()
	}

	s.sendSummary(ctx, logger, len(result.Notified))

	s.metrics.IncSweepRun("success")
	logger.Info("sweep completed",
		zap.Int("notified", len(result.Notified)),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", len(result.Errors)),
	)

	return result, nil
}

func (s *NotificationSweep) deliver(ctx context.Context, subscription domain.Subscription, daysLeft int) error {
	if s.rateLimiter != nil {
		if err := s.rateLimiter.Wait(ctx, reminderChannel); err != nil {
			return fmt.Errorf("rate limiter wait failed: %w", err)
		}
	}

	return s.notifier.Send(ctx, buildReminder(subscription, daysLeft))
}

// buildReminder keys the reminder on the subscription id alone, so the same
// subscription swept twice on the same day replaces its earlier reminder
// instead of duplicating it.
func buildReminder(subscription domain.Subscription, daysLeft int) notify.Reminder {
	return notify.Reminder{
		Key:            notify.ReminderKey(subscription.ID),
		Group:          notify.GroupKey,
		Title:          reminderTitle(daysLeft),
		Body:           fmt.Sprintf("%s: %s %s", subscription.Name, subscription.Currency, subscription.Cost.String()),
		SubscriptionID: subscription.ID,
	}
}

func reminderTitle(daysLeft int) string {
	switch daysLeft {
	case 0:
		return "Due Today"
	case 1:
		return "Due Tomorrow"
	default:
		return fmt.Sprintf("Due in %d days", daysLeft)
	}
}

func (s *NotificationSweep) sendSummary(ctx context.Context, logger *zap.Logger, notified int) {
	if notified == 0 {
		return
	}

	summary := notify.Reminder{
		Key:   notify.SummaryKey,
		Group: notify.GroupKey,
		Title: "Upcoming subscriptions",
		Body:  fmt.Sprintf("%d subscriptions due soon", notified),
	}
	if err := s.notifier.Send(ctx, summary); err != nil {
		// The summary is best-effort; individual reminders already went out.
		logger.Warn("failed to deliver summary reminder", zap.Error(err))
	}
}

func failureReason(err error) string {
	if notify.IsTransient(err) {
		return "transient"
	}
	return "permanent"
}
