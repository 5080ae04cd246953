package repository

import (
	"context"
	"sort"
	"time"

	"github.com/hora/billing-engine/internal/domain"
	"gorm.io/gorm"
)

const defaultHistoryLimit = 10

type PaymentRepository interface {
	// RecordPayment appends a payment and, when nextDueDate is non-nil,
	// advances the owning subscription's due date. The two writes commit as
	// one unit: on any failure neither is visible.
	RecordPayment(ctx context.Context, p *domain.PaymentRecord, nextDueDate *time.Time) error
	ListBySubscription(ctx context.Context, subscriptionID string, limit int) ([]domain.PaymentRecord, error)
}

type GormPaymentRepo struct {
	db *gorm.DB
}

func NewGormPaymentRepo(db *gorm.DB) *GormPaymentRepo {
	return &GormPaymentRepo{db: db}
}

func (r *GormPaymentRepo) RecordPayment(ctx context.Context, p *domain.PaymentRecord, nextDueDate *time.Time) error {
	model := paymentModelFromDomain(p)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(model).Error; err != nil {
			return err
		}

		if nextDueDate == nil {
			return nil
		}

		// The due-date write is guarded on active so a concurrent
		// deactivation rolls the whole unit back instead of advancing a
		// frozen subscription.
		result := tx.Model(&SubscriptionModel{}).
			Where("id = ? AND active = ?", model.SubscriptionID, true).
			Update("due_date", *nextDueDate)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return domain.ErrConflict
		}
		return nil
	})
	if err != nil {
		return err
	}

	if p != nil {
		*p = *paymentModelToDomain(model)
	}
	return nil
}

// ListBySubscription returns payment history newest first with a bounded
// page size. When the ordered query fails (a supporting sort index may be
// absent), it falls back to an unordered fetch and sorts client-side.
func (r *GormPaymentRepo) ListBySubscription(ctx context.Context, subscriptionID string, limit int) ([]domain.PaymentRecord, error) {
	if limit < 1 {
		limit = defaultHistoryLimit
	}

	var models []PaymentModel
	err := r.db.WithContext(ctx).
		Where("subscription_id = ?", subscriptionID).
		Order("date DESC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return r.listUnordered(ctx, subscriptionID, limit)
	}

	return paymentsToDomain(models), nil
}

func (r *GormPaymentRepo) listUnordered(ctx context.Context, subscriptionID string, limit int) ([]domain.PaymentRecord, error) {
	var models []PaymentModel
	err := r.db.WithContext(ctx).
		Where("subscription_id = ?", subscriptionID).
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	payments := paymentsToDomain(models)
	sort.Slice(payments, func(i, j int) bool {
		return payments[i].Date.After(payments[j].Date)
	})
	return payments, nil
}

func paymentsToDomain(models []PaymentModel) []domain.PaymentRecord {
	payments := make([]domain.PaymentRecord, 0, len(models))
	for i := range models {
		payments = append(payments, *paymentModelToDomain(&models[i]))
	}
	return payments
}
