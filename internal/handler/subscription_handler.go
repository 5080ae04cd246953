package handler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/hora/billing-engine/internal/domain"
	"github.com/hora/billing-engine/internal/service"
)

const (
	headerOwnerID       = "X-Owner-ID"
	defaultHistoryLimit = 10
	maxHistoryLimit     = 100
)

type CatalogService interface {
	Create(ctx context.Context, sub *domain.Subscription) (*domain.Subscription, error)
	GetByID(ctx context.Context, id string) (*domain.Subscription, error)
	ListByOwner(ctx context.Context, ownerID string) ([]service.SubscriptionView, error)
	Deactivate(ctx context.Context, id string) error
	GetWindowDays(ctx context.Context, ownerID string) (int, error)
	SetWindowDays(ctx context.Context, ownerID string, windowDays int) error
}

type LedgerService interface {
	RecordPayment(ctx context.Context, subscriptionID string, paymentDate time.Time) (*service.LedgerResult, error)
	History(ctx context.Context, subscriptionID string, limit int) ([]domain.PaymentRecord, error)
}

type SubscriptionHandler struct {
	catalog CatalogService
	ledger  LedgerService
}

func NewSubscriptionHandler(catalog CatalogService, ledger LedgerService) (*SubscriptionHandler, error) {
	if catalog == nil {
		return nil, fmt.Errorf("catalog service is required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("ledger service is required")
	}
	return &SubscriptionHandler{catalog: catalog, ledger: ledger}, nil
}

func RegisterSubscriptionRoutes(router fiber.Router, catalog CatalogService, ledger LedgerService) error {
	h, err := NewSubscriptionHandler(catalog, ledger)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Post("/subscriptions", h.CreateSubscription)
	v1.Get("/subscriptions", h.ListSubscriptions)
	v1.Get("/subscriptions/:id", h.GetSubscription)
	v1.Post("/subscriptions/:id/deactivate", h.DeactivateSubscription)
	v1.Post("/subscriptions/:id/payments", h.RecordPayment)
	v1.Get("/subscriptions/:id/payments", h.ListPayments)
	v1.Get("/settings/notification-window", h.GetNotificationWindow)
	v1.Put("/settings/notification-window", h.SetNotificationWindow)

	return nil
}

type createSubscriptionRequest struct {
	Name       string          `json:"name"`
	DueDate    *string         `json:"dueDate,omitempty"`
	Cost       decimal.Decimal `json:"cost"`
	Currency   string          `json:"currency"`
	Recurrence string          `json:"recurrence"`
	Category   string          `json:"category"`
}

type recordPaymentRequest struct {
	Date *string `json:"date,omitempty"`
}

type setWindowRequest struct {
	WindowDays int `json:"windowDays"`
}

type urgencyResponse struct {
	DaysLeft int    `json:"daysLeft"`
	Label    string `json:"label"`
	Progress int    `json:"progress"`
}

type subscriptionResponse struct {
	ID         string           `json:"id"`
	OwnerID    string           `json:"ownerId"`
	Name       string           `json:"name"`
	DueDate    *time.Time       `json:"dueDate,omitempty"`
	Cost       decimal.Decimal  `json:"cost"`
	Currency   string           `json:"currency"`
	Recurrence string           `json:"recurrence"`
	Category   string           `json:"category"`
	Active     bool             `json:"active"`
	CreatedAt  time.Time        `json:"createdAt"`
	UpdatedAt  time.Time        `json:"updatedAt"`
	Urgency    *urgencyResponse `json:"urgency,omitempty"`
}

type paymentResponse struct {
	ID             string          `json:"id"`
	SubscriptionID string          `json:"subscriptionId"`
	Date           time.Time       `json:"date"`
	Amount         decimal.Decimal `json:"amount"`
	CreatedAt      time.Time       `json:"createdAt"`
}

type recordPaymentResponse struct {
	Payment        paymentResponse `json:"payment"`
	UpdatedDueDate *time.Time      `json:"updatedDueDate,omitempty"`
}

type listSubscriptionsResponse struct {
	Data []subscriptionResponse `json:"data"`
}

type listPaymentsResponse struct {
	Data []paymentResponse `json:"data"`
}

type windowResponse struct {
	WindowDays int `json:"windowDays"`
}

func (h *SubscriptionHandler) CreateSubscription(c *fiber.Ctx) error {
	ownerID, err := requestOwnerID(c)
	if err != nil {
		return err
	}

	var req createSubscriptionRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	dueDate, err := parseDueDate(req.DueDate)
	if err != nil {
		return err
	}

	created, err := h.catalog.Create(c.Context(), &domain.Subscription{
		OwnerID:    ownerID,
		Name:       req.Name,
		DueDate:    dueDate,
		Cost:       req.Cost,
		Currency:   req.Currency,
		Recurrence: req.Recurrence,
		Category:   req.Category,
	})
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(toSubscriptionResponse(created, nil))
}

func (h *SubscriptionHandler) ListSubscriptions(c *fiber.Ctx) error {
	ownerID, err := requestOwnerID(c)
	if err != nil {
		return err
	}

	views, err := h.catalog.ListByOwner(c.Context(), ownerID)
	if err != nil {
		return err
	}

	data := make([]subscriptionResponse, 0, len(views))
	for _, view := range views {
		sub := view.Subscription
		data = append(data, toSubscriptionResponse(&sub, view.Urgency))
	}

	return c.Status(fiber.StatusOK).JSON(listSubscriptionsResponse{Data: data})
}

func (h *SubscriptionHandler) GetSubscription(c *fiber.Ctx) error {
	sub, err := h.catalog.GetByID(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(toSubscriptionResponse(sub, nil))
}

func (h *SubscriptionHandler) DeactivateSubscription(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	if err := h.catalog.Deactivate(c.Context(), id); err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"subscriptionId": id,
		"active":         false,
	})
}

func (h *SubscriptionHandler) RecordPayment(c *fiber.Ctx) error {
	var req recordPaymentRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
	}

	paymentDate := time.Now().UTC()
	if parsed, err := parseDueDate(req.Date); err != nil {
		return err
	} else if parsed != nil {
		paymentDate = *parsed
	}

	result, err := h.ledger.RecordPayment(c.Context(), c.Params("id"), paymentDate)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(recordPaymentResponse{
		Payment:        toPaymentResponse(result.Payment),
		UpdatedDueDate: result.UpdatedDueDate,
	})
}

func (h *SubscriptionHandler) ListPayments(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", defaultHistoryLimit)
	if limit < 1 || limit > maxHistoryLimit {
		return fmt.Errorf("%w: limit must be between 1 and %d", domain.ErrValidation, maxHistoryLimit)
	}

	records, err := h.ledger.History(c.Context(), c.Params("id"), limit)
	if err != nil {
		return err
	}

	data := make([]paymentResponse, 0, len(records))
	for _, record := range records {
		data = append(data, toPaymentResponse(record))
	}

	return c.Status(fiber.StatusOK).JSON(listPaymentsResponse{Data: data})
}

func (h *SubscriptionHandler) GetNotificationWindow(c *fiber.Ctx) error {
	ownerID, err := requestOwnerID(c)
	if err != nil {
		return err
	}

	days, err := h.catalog.GetWindowDays(c.Context(), ownerID)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(windowResponse{WindowDays: days})
}

func (h *SubscriptionHandler) SetNotificationWindow(c *fiber.Ctx) error {
	ownerID, err := requestOwnerID(c)
	if err != nil {
		return err
	}

	var req setWindowRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if err := h.catalog.SetWindowDays(c.Context(), ownerID, req.WindowDays); err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(windowResponse{WindowDays: req.WindowDays})
}

func requestOwnerID(c *fiber.Ctx) (string, error) {
	ownerID := strings.TrimSpace(c.Get(headerOwnerID))
	if ownerID == "" {
		return "", fmt.Errorf("%w: %s header is required", domain.ErrValidation, headerOwnerID)
	}
	return ownerID, nil
}

// parseDueDate accepts either a bare calendar date or a full RFC3339
// timestamp; only the date component is kept.
func parseDueDate(value *string) (*time.Time, error) {
	if value == nil {
		return nil, nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil, nil
	}

	if t, err := time.Parse(time.DateOnly, trimmed); err == nil {
		return &t, nil
	}
	if t, err := time.Parse(time.RFC3339, trimmed); err == nil {
		return &t, nil
	}
	return nil, fmt.Errorf("%w: date must be YYYY-MM-DD or RFC3339", domain.ErrValidation)
}

func toSubscriptionResponse(sub *domain.Subscription, urgency *domain.Urgency) subscriptionResponse {
	if sub == nil {
		return subscriptionResponse{}
	}

	resp := subscriptionResponse{
		ID:         sub.ID,
		OwnerID:    sub.OwnerID,
		Name:       sub.Name,
		DueDate:    sub.DueDate,
		Cost:       sub.Cost,
		Currency:   sub.Currency,
		Recurrence: sub.Recurrence,
		Category:   sub.Category,
		Active:     sub.Active,
		CreatedAt:  sub.CreatedAt,
		UpdatedAt:  sub.UpdatedAt,
	}
	if urgency != nil {
		resp.Urgency = &urgencyResponse{
			DaysLeft: urgency.DaysLeft,
			Label:    urgency.Label,
			Progress: urgency.Progress,
		}
	}
	return resp
}

func toPaymentResponse(p domain.PaymentRecord) paymentResponse {
	return paymentResponse{
		ID:             p.ID,
		SubscriptionID: p.SubscriptionID,
		Date:           p.Date,
		Amount:         p.Amount,
		CreatedAt:      p.CreatedAt,
	}
}
