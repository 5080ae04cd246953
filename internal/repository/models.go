package repository

import (
	"time"

	"github.com/hora/billing-engine/internal/domain"
	"github.com/shopspring/decimal"
)

// SubscriptionModel is the persistence model for the subscriptions table.
type SubscriptionModel struct {
	ID         string          `gorm:"type:uuid;primaryKey"`
	OwnerID    string          `gorm:"type:varchar(64);not null;index:idx_subscriptions_owner_active,priority:1"`
	Name       string          `gorm:"type:varchar(120);not null"`
	DueDate    *time.Time      `gorm:"type:timestamptz"`
	Cost       decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	Currency   string          `gorm:"type:varchar(8);not null"`
	Recurrence string          `gorm:"type:varchar(32);not null"`
	Category   string          `gorm:"type:varchar(64);not null"`
	Active     bool            `gorm:"not null;default:true;index:idx_subscriptions_owner_active,priority:2"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (SubscriptionModel) TableName() string {
	return "subscriptions"
}

// PaymentModel is the persistence model for the payments table. Rows are
// append-only; nothing in the engine updates or deletes them.
type PaymentModel struct {
	ID             string          `gorm:"type:uuid;primaryKey"`
	SubscriptionID string          `gorm:"type:uuid;not null;index:idx_payments_subscription_date,priority:1"`
	Date           time.Time       `gorm:"type:timestamptz;not null;index:idx_payments_subscription_date,priority:2,sort:desc"`
	Amount         decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	CreatedAt      time.Time
}

func (PaymentModel) TableName() string {
	return "payments"
}

// OwnerSettingsModel stores the per-owner UI notification window.
type OwnerSettingsModel struct {
	OwnerID    string `gorm:"type:varchar(64);primaryKey"`
	WindowDays int    `gorm:"not null"`
	UpdatedAt  time.Time
}

func (OwnerSettingsModel) TableName() string {
	return "owner_settings"
}

func subscriptionModelFromDomain(s *domain.Subscription) *SubscriptionModel {
	if s == nil {
		return nil
	}

	return &SubscriptionModel{
		ID:         s.ID,
		OwnerID:    s.OwnerID,
		Name:       s.Name,
		DueDate:    s.DueDate,
		Cost:       s.Cost,
		Currency:   s.Currency,
		Recurrence: s.Recurrence,
		Category:   s.Category,
		Active:     s.Active,
		CreatedAt:  s.CreatedAt,
		UpdatedAt:  s.UpdatedAt,
	}
}

func subscriptionModelToDomain(m *SubscriptionModel) *domain.Subscription {
	if m == nil {
		return nil
	}

	return &domain.Subscription{
		ID:         m.ID,
		OwnerID:    m.OwnerID,
		Name:       m.Name,
		DueDate:    m.DueDate,
		Cost:       m.Cost,
		Currency:   m.Currency,
		Recurrence: m.Recurrence,
		Category:   m.Category,
		Active:     m.Active,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}

func paymentModelFromDomain(p *domain.PaymentRecord) *PaymentModel {
	if p == nil {
		return nil
	}

	return &PaymentModel{
		ID:             p.ID,
		SubscriptionID: p.SubscriptionID,
		Date:           p.Date,
		Amount:         p.Amount,
		CreatedAt:      p.CreatedAt,
	}
}

func paymentModelToDomain(m *PaymentModel) *domain.PaymentRecord {
	if m == nil {
		return nil
	}

	return &domain.PaymentRecord{
		ID:             m.ID,
		SubscriptionID: m.SubscriptionID,
		Date:           m.Date,
		Amount:         m.Amount,
		CreatedAt:      m.CreatedAt,
	}
}
