package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hora/billing-engine/internal/domain"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type fakeSettingsRepo struct {
	getWindowDaysFn func(ctx context.Context, ownerID string) (int, error)
	setWindowDaysFn func(ctx context.Context, ownerID string, windowDays int) error
}

func (f *fakeSettingsRepo) GetWindowDays(ctx context.Context, ownerID string) (int, error) {
	if f.getWindowDaysFn == nil {
		return 7, nil
	}
	return f.getWindowDaysFn(ctx, ownerID)
}

func (f *fakeSettingsRepo) SetWindowDays(ctx context.Context, ownerID string, windowDays int) error {
	if f.setWindowDaysFn == nil {
		return nil
	}
	return f.setWindowDaysFn(ctx, ownerID, windowDays)
}

func newTestCatalog(t *testing.T, subs *fakeSubscriptionRepo, settings *fakeSettingsRepo) *SubscriptionCatalog {
	t.Helper()

	catalog, err := NewSubscriptionCatalog(subs, settings, zap.NewNop())
	if err != nil {
		t.Fatalf("NewSubscriptionCatalog() error = %v", err)
	}
	return catalog
}

func TestSubscriptionCatalogCreateAppliesDefaults(t *testing.T) {
	var stored *domain.Subscription
	subs := &fakeSubscriptionRepo{
		createFn: func(ctx context.Context, s *domain.Subscription) error {
			stored = s
			return nil
		},
	}
	catalog := newTestCatalog(t, subs, &fakeSettingsRepo{})

	due := time.Date(2026, time.March, 15, 23, 45, 0, 0, time.FixedZone("X", 3*3600))
	created, err := catalog.Create(context.Background(), &domain.Subscription{
		OwnerID: "owner-1",
		Name:    "  Streaming  ",
		DueDate: &due,
		Cost:    decimal.RequireFromString("9.99"),
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if stored == nil {
		t.Fatal("expected subscription to be stored")
	}

	if created.ID == "" {
		t.Error("expected server-assigned id")
	}
	if !created.Active {
		t.Error("new subscription should be active")
	}
	if created.Name != "Streaming" {
		t.Errorf("Name = %q, want trimmed %q", created.Name, "Streaming")
	}
	if created.Currency != domain.DefaultCurrency {
		t.Errorf("Currency = %q, want default %q", created.Currency, domain.DefaultCurrency)
	}
	if created.Recurrence != domain.DefaultRecurrence {
		t.Errorf("Recurrence = %q, want default %q", created.Recurrence, domain.DefaultRecurrence)
	}
	if created.Category != domain.DefaultCategory {
		t.Errorf("Category = %q, want default %q", created.Category, domain.DefaultCategory)
	}

	wantDue := time.Date(2026, time.March, 15, 12, 0, 0, 0, time.UTC)
	if created.DueDate == nil || !created.DueDate.Equal(wantDue) {
		t.Errorf("DueDate = %v, want %v", created.DueDate, wantDue)
	}
}

func TestSubscriptionCatalogCreateRejectsInvalid(t *testing.T) {
	catalog := newTestCatalog(t, &fakeSubscriptionRepo{}, &fakeSettingsRepo{})

	_, err := catalog.Create(context.Background(), &domain.Subscription{
		OwnerID: "owner-1",
		Name:    "   ",
	})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("Create() error = %v, want %v", err, domain.ErrValidation)
	}
}

func TestSubscriptionCatalogListDecoratesUrgency(t *testing.T) {
	due := time.Date(2026, time.March, 4, 12, 0, 0, 0, time.UTC)
	subs := &fakeSubscriptionRepo{
		listByOwnerFn: func(ctx context.Context, ownerID string) ([]domain.Subscription, error) {
			return []domain.Subscription{
				{ID: "sub-1", OwnerID: ownerID, Name: "Streaming", DueDate: &due, Active: true},
				{ID: "sub-2", OwnerID: ownerID, Name: "No date", Active: true},
			}, nil
		},
	}
	settings := &fakeSettingsRepo{
		getWindowDaysFn: func(ctx context.Context, ownerID string) (int, error) {
			return 7, nil
		},
	}

	catalog := newTestCatalog(t, subs, settings)
	catalog.now = func() time.Time {
		return time.Date(2026, time.March, 1, 9, 0, 0, 0, time.UTC)
	}

	views, err := catalog.ListByOwner(context.Background(), "owner-1")
	if err != nil {
		t.Fatalf("ListByOwner() error = %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("got %d views, want 2", len(views))
	}

	if views[0].Urgency == nil {
		t.Fatal("subscription with a due date should carry urgency")
	}
	if views[0].Urgency.DaysLeft != 3 {
		t.Errorf("DaysLeft = %d, want 3", views[0].Urgency.DaysLeft)
	}
	if views[0].Urgency.Label != "3 Days" {
		t.Errorf("Label = %q, want %q", views[0].Urgency.Label, "3 Days")
	}

	if views[1].Urgency != nil {
		t.Error("subscription without a due date should have no urgency")
	}
}

func TestSubscriptionCatalogListRequiresOwner(t *testing.T) {
	catalog := newTestCatalog(t, &fakeSubscriptionRepo{}, &fakeSettingsRepo{})

	_, err := catalog.ListByOwner(context.Background(), "  ")
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("ListByOwner() error = %v, want %v", err, domain.ErrValidation)
	}
}

func TestSubscriptionCatalogDeactivatePropagatesNotFound(t *testing.T) {
	subs := &fakeSubscriptionRepo{
		deactivateFn: func(ctx context.Context, id string) error {
			return domain.ErrNotFound
		},
	}
	catalog := newTestCatalog(t, subs, &fakeSettingsRepo{})

	if err := catalog.Deactivate(context.Background(), "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Deactivate() error = %v, want %v", err, domain.ErrNotFound)
	}
}

func TestSubscriptionCatalogWindowRoundTrip(t *testing.T) {
	var savedOwner string
	var savedDays int
	settings := &fakeSettingsRepo{
		getWindowDaysFn: func(ctx context.Context, ownerID string) (int, error) {
			return 14, nil
		},
		setWindowDaysFn: func(ctx context.Context, ownerID string, windowDays int) error {
			savedOwner = ownerID
			savedDays = windowDays
			return nil
		},
	}
	catalog := newTestCatalog(t, &fakeSubscriptionRepo{}, settings)

	if err := catalog.SetWindowDays(context.Background(), "owner-1", 14); err != nil {
		t.Fatalf("SetWindowDays() error = %v", err)
	}
	if savedOwner != "owner-1" || savedDays != 14 {
		t.Errorf("saved (%q, %d), want (%q, %d)", savedOwner, savedDays, "owner-1", 14)
	}

	days, err := catalog.GetWindowDays(context.Background(), "owner-1")
	if err != nil {
		t.Fatalf("GetWindowDays() error = %v", err)
	}
	if days != 14 {
		t.Errorf("GetWindowDays() = %d, want 14", days)
	}
}
