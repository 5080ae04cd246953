package notify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const defaultGatewayTimeout = 10 * time.Second

type pushRequest struct {
	Key            string `json:"key"`
	Group          string `json:"group"`
	Title          string `json:"title"`
	Body           string `json:"body"`
	SubscriptionID string `json:"subscriptionId"`
}

// PushGatewayNotifier delivers reminders to an HTTP push gateway. The
// gateway keys delivery on Reminder.Key, so redelivery under the same key
// updates the existing notification in place. A 403 from the gateway means
// the user has not granted notification permission.
type PushGatewayNotifier struct {
	client   *resty.Client
	endpoint string
}

func NewPushGatewayNotifier(endpoint string) (*PushGatewayNotifier, error) {
	client := resty.New()
	client.SetTimeout(defaultGatewayTimeout)
	client.SetRetryCount(0)

	return NewPushGatewayNotifierWithClient(endpoint, client)
}

func NewPushGatewayNotifierWithClient(endpoint string, client *resty.Client) (*PushGatewayNotifier, error) {
	trimmedEndpoint := strings.TrimSpace(endpoint)
	if trimmedEndpoint == "" {
		return nil, fmt.Errorf("push gateway endpoint is required")
	}
	if _, err := url.ParseRequestURI(trimmedEndpoint); err != nil {
		return nil, fmt.Errorf("invalid push gateway endpoint: %w", err)
	}
	if client == nil {
		return nil, fmt.Errorf("resty client is required")
	}

	if client.GetClient().Timeout == 0 {
		client.SetTimeout(defaultGatewayTimeout)
	}
	client.SetRetryCount(0)

	return &PushGatewayNotifier{
		client:   client,
		endpoint: trimmedEndpoint,
	}, nil
}

func (n *PushGatewayNotifier) Send(ctx context.Context, reminder Reminder) error {
	if n == nil || n.client == nil {
		return fmt.Errorf("notifier is not initialized")
	}
	if strings.TrimSpace(reminder.Key) == "" {
		return fmt.Errorf("reminder key is required")
	}

	reqBody := pushRequest{
		Key:            reminder.Key,
		Group:          reminder.Group,
		Title:          reminder.Title,
		Body:           reminder.Body,
		SubscriptionID: reminder.SubscriptionID,
	}

	response, err := n.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(reqBody).
		Post(n.endpoint)
	if err != nil {
		return &DeliveryError{
			Message:   "push gateway request failed",
			Transient: !errors.Is(err, context.Canceled),
			Cause:     err,
		}
	}
	if response == nil {
		return &DeliveryError{
			Message:   "push gateway returned empty response",
			Transient: true,
		}
	}

	statusCode := response.StatusCode()
	if statusCode >= http.StatusOK && statusCode < http.StatusMultipleChoices {
		return nil
	}

	return &DeliveryError{
		StatusCode:       statusCode,
		Message:          gatewayErrorMessage(statusCode, strings.TrimSpace(response.String())),
		Transient:        isTransientHTTPStatus(statusCode),
		PermissionDenied: isPermissionHTTPStatus(statusCode),
	}
}

func gatewayErrorMessage(statusCode int, body string) string {
	base := fmt.Sprintf("push gateway returned status %d", statusCode)
	if body == "" {
		return base
	}
	return fmt.Sprintf("%s: %s", base, body)
}
