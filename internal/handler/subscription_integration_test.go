package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/hora/billing-engine/internal/domain"
	"github.com/hora/billing-engine/internal/service"
	"github.com/hora/billing-engine/internal/transport"
)

type stubCatalogService struct {
	createFn        func(ctx context.Context, sub *domain.Subscription) (*domain.Subscription, error)
	getByIDFn       func(ctx context.Context, id string) (*domain.Subscription, error)
	listByOwnerFn   func(ctx context.Context, ownerID string) ([]service.SubscriptionView, error)
	deactivateFn    func(ctx context.Context, id string) error
	getWindowDaysFn func(ctx context.Context, ownerID string) (int, error)
	setWindowDaysFn func(ctx context.Context, ownerID string, windowDays int) error
}

func (s *stubCatalogService) Create(ctx context.Context, sub *domain.Subscription) (*domain.Subscription, error) {
	return s.createFn(ctx, sub)
}

func (s *stubCatalogService) GetByID(ctx context.Context, id string) (*domain.Subscription, error) {
	return s.getByIDFn(ctx, id)
}

func (s *stubCatalogService) ListByOwner(ctx context.Context, ownerID string) ([]service.SubscriptionView, error) {
	return s.listByOwnerFn(ctx, ownerID)
}

func (s *stubCatalogService) Deactivate(ctx context.Context, id string) error {
	return s.deactivateFn(ctx, id)
}

func (s *stubCatalogService) GetWindowDays(ctx context.Context, ownerID string) (int, error) {
	return s.getWindowDaysFn(ctx, ownerID)
}

func (s *stubCatalogService) SetWindowDays(ctx context.Context, ownerID string, windowDays int) error {
	return s.setWindowDaysFn(ctx, ownerID, windowDays)
}

type stubLedgerService struct {
	recordPaymentFn func(ctx context.Context, subscriptionID string, paymentDate time.Time) (*service.LedgerResult, error)
	historyFn       func(ctx context.Context, subscriptionID string, limit int) ([]domain.PaymentRecord, error)
}

func (s *stubLedgerService) RecordPayment(ctx context.Context, subscriptionID string, paymentDate time.Time) (*service.LedgerResult, error) {
	return s.recordPaymentFn(ctx, subscriptionID, paymentDate)
}

func (s *stubLedgerService) History(ctx context.Context, subscriptionID string, limit int) ([]domain.PaymentRecord, error) {
	return s.historyFn(ctx, subscriptionID, limit)
}

func newSubscriptionTestApp(t *testing.T, catalog CatalogService, ledger LedgerService) *fiber.App {
	t.Helper()

	app := fiber.New(fiber.Config{
		ErrorHandler: transport.ErrorHandler(zap.NewNop()),
	})

	if err := RegisterSubscriptionRoutes(app, catalog, ledger); err != nil {
		t.Fatalf("RegisterSubscriptionRoutes() error = %v", err)
	}

	return app
}

func performRequest(t *testing.T, app *fiber.App, method, path, owner, body string) (*http.Response, []byte) {
	t.Helper()

	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if owner != "" {
		req.Header.Set(headerOwnerID, owner)
	}

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	_ = resp.Body.Close()

	return resp, respBody
}

func TestSubscriptionIntegration_Create(t *testing.T) {
	t.Parallel()

	catalog := &stubCatalogService{
		createFn: func(ctx context.Context, sub *domain.Subscription) (*domain.Subscription, error) {
			if sub.OwnerID != "owner-1" {
				t.Fatalf("OwnerID = %q, want owner-1", sub.OwnerID)
			}
			if sub.DueDate == nil {
				t.Fatal("DueDate should be parsed from request")
			}
			sub.ID = "sub-created"
			sub.Active = true
			return sub, nil
		},
	}

	app := newSubscriptionTestApp(t, catalog, &stubLedgerService{})

	body := `{"name":"Streaming","dueDate":"2026-03-15","cost":"9.99","recurrence":"Monthly"}`
	resp, respBody := performRequest(t, app, http.MethodPost, "/v1/subscriptions", "owner-1", body)
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("status = %d, want 201, body=%s", resp.StatusCode, string(respBody))
	}

	var created map[string]any
	if err := json.Unmarshal(respBody, &created); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}
	if created["id"] != "sub-created" {
		t.Fatalf("id = %v, want sub-created", created["id"])
	}
	if created["active"] != true {
		t.Fatalf("active = %v, want true", created["active"])
	}
}

func TestSubscriptionIntegration_CreateRequiresOwnerHeader(t *testing.T) {
	t.Parallel()

	app := newSubscriptionTestApp(t, &stubCatalogService{}, &stubLedgerService{})

	resp, _ := performRequest(t, app, http.MethodPost, "/v1/subscriptions", "", `{"name":"x"}`)
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for missing owner header", resp.StatusCode)
	}
}

func TestSubscriptionIntegration_ListWithUrgency(t *testing.T) {
	t.Parallel()

	due := time.Date(2026, time.March, 4, 12, 0, 0, 0, time.UTC)
	catalog := &stubCatalogService{
		listByOwnerFn: func(ctx context.Context, ownerID string) ([]service.SubscriptionView, error) {
			return []service.SubscriptionView{
				{
					Subscription: domain.Subscription{ID: "sub-1", OwnerID: ownerID, Name: "Streaming", DueDate: &due, Active: true},
					Urgency:      &domain.Urgency{DaysLeft: 3, Label: "3 Days", Progress: 57},
				},
				{
					Subscription: domain.Subscription{ID: "sub-2", OwnerID: ownerID, Name: "No date", Active: true},
				},
			}, nil
		},
	}

	app := newSubscriptionTestApp(t, catalog, &stubLedgerService{})

	resp, respBody := performRequest(t, app, http.MethodGet, "/v1/subscriptions", "owner-1", "")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", resp.StatusCode, string(respBody))
	}

	var listResp struct {
		Data []struct {
			ID      string `json:"id"`
			Urgency *struct {
				DaysLeft int    `json:"daysLeft"`
				Label    string `json:"label"`
				Progress int    `json:"progress"`
			} `json:"urgency"`
		} `json:"data"`
	}
	if err := json.Unmarshal(respBody, &listResp); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}
	if len(listResp.Data) != 2 {
		t.Fatalf("got %d items, want 2", len(listResp.Data))
	}
	if listResp.Data[0].Urgency == nil || listResp.Data[0].Urgency.Progress != 57 {
		t.Fatalf("first item urgency = %+v, want progress 57", listResp.Data[0].Urgency)
	}
	if listResp.Data[1].Urgency != nil {
		t.Fatal("second item should carry no urgency block")
	}
}

func TestSubscriptionIntegration_GetNotFound(t *testing.T) {
	t.Parallel()

	catalog := &stubCatalogService{
		getByIDFn: func(ctx context.Context, id string) (*domain.Subscription, error) {
			return nil, domain.ErrNotFound
		},
	}

	app := newSubscriptionTestApp(t, catalog, &stubLedgerService{})

	resp, _ := performRequest(t, app, http.MethodGet, "/v1/subscriptions/missing", "", "")
	if resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestSubscriptionIntegration_Deactivate(t *testing.T) {
	t.Parallel()

	var deactivated string
	catalog := &stubCatalogService{
		deactivateFn: func(ctx context.Context, id string) error {
			deactivated = id
			return nil
		},
	}

	app := newSubscriptionTestApp(t, catalog, &stubLedgerService{})

	resp, _ := performRequest(t, app, http.MethodPost, "/v1/subscriptions/sub-1/deactivate", "", "")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if deactivated != "sub-1" {
		t.Fatalf("deactivated id = %q, want sub-1", deactivated)
	}
}

func TestSubscriptionIntegration_RecordPayment(t *testing.T) {
	t.Parallel()

	nextDue := time.Date(2026, time.April, 1, 12, 0, 0, 0, time.UTC)
	ledger := &stubLedgerService{
		recordPaymentFn: func(ctx context.Context, subscriptionID string, paymentDate time.Time) (*service.LedgerResult, error) {
			if subscriptionID != "sub-1" {
				t.Fatalf("subscriptionID = %q, want sub-1", subscriptionID)
			}
			return &service.LedgerResult{
				Payment: domain.PaymentRecord{
					ID:             "p-1",
					SubscriptionID: subscriptionID,
					Date:           paymentDate,
					Amount:         decimal.RequireFromString("9.99"),
				},
				UpdatedDueDate: &nextDue,
			}, nil
		},
	}

	app := newSubscriptionTestApp(t, &stubCatalogService{}, ledger)

	resp, respBody := performRequest(t, app, http.MethodPost, "/v1/subscriptions/sub-1/payments", "", `{"date":"2026-03-01"}`)
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("status = %d, want 201, body=%s", resp.StatusCode, string(respBody))
	}

	var recorded struct {
		Payment struct {
			ID     string `json:"id"`
			Amount string `json:"amount"`
		} `json:"payment"`
		UpdatedDueDate *time.Time `json:"updatedDueDate"`
	}
	if err := json.Unmarshal(respBody, &recorded); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}
	if recorded.Payment.ID != "p-1" {
		t.Fatalf("payment id = %q, want p-1", recorded.Payment.ID)
	}
	if recorded.UpdatedDueDate == nil || !recorded.UpdatedDueDate.Equal(nextDue) {
		t.Fatalf("updatedDueDate = %v, want %v", recorded.UpdatedDueDate, nextDue)
	}
}

func TestSubscriptionIntegration_RecordPaymentInactiveConflict(t *testing.T) {
	t.Parallel()

	ledger := &stubLedgerService{
		recordPaymentFn: func(ctx context.Context, subscriptionID string, paymentDate time.Time) (*service.LedgerResult, error) {
			return nil, domain.ErrInactive
		},
	}

	app := newSubscriptionTestApp(t, &stubCatalogService{}, ledger)

	resp, _ := performRequest(t, app, http.MethodPost, "/v1/subscriptions/sub-1/payments", "", "")
	if resp.StatusCode != fiber.StatusConflict {
		t.Fatalf("status = %d, want 409 for inactive subscription", resp.StatusCode)
	}
}

func TestSubscriptionIntegration_ListPayments(t *testing.T) {
	t.Parallel()

	ledger := &stubLedgerService{
		historyFn: func(ctx context.Context, subscriptionID string, limit int) ([]domain.PaymentRecord, error) {
			if limit != defaultHistoryLimit {
				t.Fatalf("limit = %d, want default %d", limit, defaultHistoryLimit)
			}
			return []domain.PaymentRecord{
				{ID: "p-2", SubscriptionID: subscriptionID, Date: time.Date(2026, time.April, 1, 12, 0, 0, 0, time.UTC)},
				{ID: "p-1", SubscriptionID: subscriptionID, Date: time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)},
			}, nil
		},
	}

	app := newSubscriptionTestApp(t, &stubCatalogService{}, ledger)

	resp, respBody := performRequest(t, app, http.MethodGet, "/v1/subscriptions/sub-1/payments", "", "")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", resp.StatusCode, string(respBody))
	}

	var listResp struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(respBody, &listResp); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}
	if len(listResp.Data) != 2 || listResp.Data[0].ID != "p-2" {
		t.Fatalf("payments = %+v, want newest first", listResp.Data)
	}

	resp, _ = performRequest(t, app, http.MethodGet, "/v1/subscriptions/sub-1/payments?limit=0", "", "")
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for invalid limit", resp.StatusCode)
	}
}

func TestSubscriptionIntegration_NotificationWindow(t *testing.T) {
	t.Parallel()

	var savedDays int
	catalog := &stubCatalogService{
		getWindowDaysFn: func(ctx context.Context, ownerID string) (int, error) {
			return 7, nil
		},
		setWindowDaysFn: func(ctx context.Context, ownerID string, windowDays int) error {
			if windowDays < 1 {
				return domain.ErrValidation
			}
			savedDays = windowDays
			return nil
		},
	}

	app := newSubscriptionTestApp(t, catalog, &stubLedgerService{})

	resp, respBody := performRequest(t, app, http.MethodGet, "/v1/settings/notification-window", "owner-1", "")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var window struct {
		WindowDays int `json:"windowDays"`
	}
	if err := json.Unmarshal(respBody, &window); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}
	if window.WindowDays != 7 {
		t.Fatalf("windowDays = %d, want 7", window.WindowDays)
	}

	resp, _ = performRequest(t, app, http.MethodPut, "/v1/settings/notification-window", "owner-1", `{"windowDays":14}`)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if savedDays != 14 {
		t.Fatalf("saved windowDays = %d, want 14", savedDays)
	}

	resp, _ = performRequest(t, app, http.MethodPut, "/v1/settings/notification-window", "owner-1", `{"windowDays":0}`)
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for invalid window", resp.StatusCode)
	}
}
