package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Defaults applied to new subscriptions when the caller leaves the field empty.
const (
	DefaultCurrency   = "USD"
	DefaultRecurrence = "Monthly"
	DefaultCategory   = "Entertainment"
)

const maxNameLength = 120

// Subscription is the core domain entity: one recurring bill tracked for an
// owner. A nil DueDate means the subscription has no scheduled due date and
// is invisible to both urgency scoring and the reminder sweep.
type Subscription struct {
	ID         string
	OwnerID    string
	Name       string
	DueDate    *time.Time
	Cost       decimal.Decimal
	Currency   string
	Recurrence string
	Category   string
	Active     bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (s *Subscription) Validate() error {
	if s == nil {
		return fmt.Errorf("%w: subscription is required", ErrValidation)
	}
	if strings.TrimSpace(s.OwnerID) == "" {
		return fmt.Errorf("%w: owner id is required", ErrValidation)
	}
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}
	if nameLen := len([]rune(s.Name)); nameLen > maxNameLength {
		return fmt.Errorf("%w: name exceeds %d characters (got %d)", ErrValidation, maxNameLength, nameLen)
	}
	if s.Cost.IsNegative() {
		return fmt.Errorf("%w: cost must not be negative", ErrValidation)
	}
	return nil
}

// PaymentRecord is one recorded payment event. It is owned by exactly one
// subscription and immutable once written; Amount is a snapshot of the
// subscription's cost at recording time.
type PaymentRecord struct {
	ID             string
	SubscriptionID string
	Date           time.Time
	Amount         decimal.Decimal
	CreatedAt      time.Time
}
