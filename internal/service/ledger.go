package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hora/billing-engine/internal/domain"
	"github.com/hora/billing-engine/internal/observability"
	"github.com/hora/billing-engine/internal/repository"
	"go.uber.org/zap"
)

// LedgerResult is the outcome of one recorded payment. UpdatedDueDate is nil
// when the subscription's recurrence has no next cycle (Custom).
type LedgerResult struct {
	Payment        domain.PaymentRecord
	UpdatedDueDate *time.Time
}

// PaymentLedger records payment events and advances the owning
// subscription's due date in the same storage transaction.
type PaymentLedger struct {
	subscriptions repository.SubscriptionRepository
	payments      repository.PaymentRepository
	logger        *zap.Logger
	metrics       *observability.Metrics
	now           func() time.Time
}

func NewPaymentLedger(
	subscriptions repository.SubscriptionRepository,
	payments repository.PaymentRepository,
	logger *zap.Logger,
) (*PaymentLedger, error) {
	if subscriptions == nil {
		return nil, fmt.Errorf("subscription repository is required")
	}
	if payments == nil {
		return nil, fmt.Errorf("payment repository is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &PaymentLedger{
		subscriptions: subscriptions,
		payments:      payments,
		logger:        logger,
		now:           time.Now,
	}, nil
}

func (l *PaymentLedger) SetMetrics(metrics *observability.Metrics) {
	if l == nil {
		return
	}
	l.metrics = metrics
}

// RecordPayment appends a payment dated paymentDate to the subscription and
// advances its due date when the recurrence defines a next cycle. The amount
// is a snapshot of the subscription's cost at this moment; later cost edits
// never touch past records. On a write failure nothing is committed and the
// caller may retry.
func (l *PaymentLedger) RecordPayment(ctx context.Context, subscriptionID string, paymentDate time.Time) (*LedgerResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	subscriptionID = strings.TrimSpace(subscriptionID)
	if subscriptionID == "" {
		return nil, domain.ErrIdentityMissing
	}

	subscription, err := l.subscriptions.GetByID(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}
	if !subscription.Active {
		return nil, fmt.Errorf("%w: payments cannot be recorded", domain.ErrInactive)
	}

	var updatedDueDate *time.Time
	if next, ok := domain.NextDueDate(paymentDate, subscription.Recurrence); ok {
		updatedDueDate = &next
	}

	payment := domain.PaymentRecord{
		ID:             uuid.NewString(),
		SubscriptionID: subscription.ID,
		Date:           paymentDate,
		Amount:         subscription.Cost,
		CreatedAt:      l.now().UTC(),
	}

	if err := l.payments.RecordPayment(ctx, &payment, updatedDueDate); err != nil {
		return nil, fmt.Errorf("payment write rejected: %w", err)
	}

	l.metrics.IncPaymentRecorded()
	l.logger.Info("payment recorded",
		zap.String("subscriptionId", subscription.ID),
		zap.String("amount", payment.Amount.String()),
		zap.Bool("dueDateAdvanced", updatedDueDate != nil),
	)

	return &LedgerResult{
		Payment:        payment,
		UpdatedDueDate: updatedDueDate,
	}, nil
}

// History returns the subscription's recorded payments, newest first.
func (l *PaymentLedger) History(ctx context.Context, subscriptionID string, limit int) ([]domain.PaymentRecord, error) {
	subscriptionID = strings.TrimSpace(subscriptionID)
	if subscriptionID == "" {
		return nil, domain.ErrIdentityMissing
	}

	records, err := l.payments.ListBySubscription(ctx, subscriptionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	return records, nil
}
