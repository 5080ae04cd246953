package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hora/billing-engine/internal/domain"
	"github.com/hora/billing-engine/internal/repository"
	"go.uber.org/zap"
)

// SubscriptionView is a subscription decorated for the read path. Urgency is
// nil when the subscription has no due date.
type SubscriptionView struct {
	Subscription domain.Subscription
	Urgency      *domain.Urgency
}

// SubscriptionCatalog manages the subscription roster: creation with
// defaults, owner-scoped reads with urgency decoration, soft deletion, and
// the per-owner notification window preference.
type SubscriptionCatalog struct {
	subscriptions repository.SubscriptionRepository
	settings      repository.SettingsRepository
	logger        *zap.Logger
	now           func() time.Time
}

func NewSubscriptionCatalog(
	subscriptions repository.SubscriptionRepository,
	settings repository.SettingsRepository,
	logger *zap.Logger,
) (*SubscriptionCatalog, error) {
	if subscriptions == nil {
		return nil, fmt.Errorf("subscription repository is required")
	}
	if settings == nil {
		return nil, fmt.Errorf("settings repository is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &SubscriptionCatalog{
		subscriptions: subscriptions,
		settings:      settings,
		logger:        logger,
		now:           time.Now,
	}, nil
}

// Create fills defaults, validates, and stores a new subscription. The id is
// always server-assigned. A provided due date is pinned to midday UTC.
func (c *SubscriptionCatalog) Create(ctx context.Context, sub *domain.Subscription) (*domain.Subscription, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if sub == nil {
		return nil, fmt.Errorf("%w: subscription is required", domain.ErrValidation)
	}

	sub.Name = strings.TrimSpace(sub.Name)
	sub.OwnerID = strings.TrimSpace(sub.OwnerID)
	if strings.TrimSpace(sub.Currency) == "" {
		sub.Currency = domain.DefaultCurrency
	}
	if strings.TrimSpace(sub.Recurrence) == "" {
		sub.Recurrence = domain.DefaultRecurrence
	}
	if strings.TrimSpace(sub.Category) == "" {
		sub.Category = domain.DefaultCategory
	}

	if err := sub.Validate(); err != nil {
		return nil, err
	}

	now := c.now().UTC()
	sub.ID = uuid.NewString()
	sub.Active = true
	sub.CreatedAt = now
	sub.UpdatedAt = now
	if sub.DueDate != nil {
		due := domain.AtMidday(*sub.DueDate)
		sub.DueDate = &due
	}

	if err := c.subscriptions.Create(ctx, sub); err != nil {
		return nil, fmt.Errorf("failed to create subscription: %w", err)
	}

	c.logger.Info("subscription created",
		zap.String("subscriptionId", sub.ID),
		zap.String("ownerId", sub.OwnerID),
	)

	return sub, nil
}

func (c *SubscriptionCatalog) GetByID(ctx context.Context, id string) (*domain.Subscription, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: subscription id is required", domain.ErrValidation)
	}
	return c.subscriptions.GetByID(ctx, id)
}

// ListByOwner returns the owner's subscriptions decorated with urgency
// scores computed against the owner's notification window.
func (c *SubscriptionCatalog) ListByOwner(ctx context.Context, ownerID string) ([]SubscriptionView, error) {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return nil, fmt.Errorf("%w: owner id is required", domain.ErrValidation)
	}

	subs, err := c.subscriptions.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}

	windowDays, err := c.settings.GetWindowDays(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load notification window: %w", err)
	}

	today := c.now().UTC()
	views := make([]SubscriptionView, 0, len(subs))
	for _, sub := range subs {
		view := SubscriptionView{Subscription: sub}
		if sub.DueDate != nil {
			urgency := domain.Score(*sub.DueDate, today, windowDays)
			view.Urgency = &urgency
		}
		views = append(views, view)
	}

	return views, nil
}

func (c *SubscriptionCatalog) Deactivate(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("%w: subscription id is required", domain.ErrValidation)
	}

	if err := c.subscriptions.Deactivate(ctx, id); err != nil {
		return err
	}

	c.logger.Info("subscription deactivated", zap.String("subscriptionId", id))
	return nil
}

func (c *SubscriptionCatalog) GetWindowDays(ctx context.Context, ownerID string) (int, error) {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return 0, fmt.Errorf("%w: owner id is required", domain.ErrValidation)
	}
	return c.settings.GetWindowDays(ctx, ownerID)
}

func (c *SubscriptionCatalog) SetWindowDays(ctx context.Context, ownerID string, windowDays int) error {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return fmt.Errorf("%w: owner id is required", domain.ErrValidation)
	}
	return c.settings.SetWindowDays(ctx, ownerID, windowDays)
}
