package notify

import (
	"context"
	"fmt"
	"strings"
)

// GroupKey is the collection key all subscription reminders are delivered
// under so the delivery surface can collapse them into one group.
const GroupKey = "billing.subscriptions"

// SummaryKey identifies the per-run summary reminder. It is distinct from
// every subscription key.
const SummaryKey = "billing.subscriptions.summary"

// Reminder is one message handed to the delivery surface. Key is stable for
// a given subscription across runs, so re-delivering the same reminder
// replaces the previous one instead of duplicating it.
type Reminder struct {
	Key            string
	Group          string
	Title          string
	Body           string
	SubscriptionID string
}

// Notifier delivers reminders. Implementations classify failures via
// DeliveryError so callers can tell transient outages from permission
// denials.
type Notifier interface {
	Send(ctx context.Context, reminder Reminder) error
}

// ReminderKey derives the stable delivery key for a subscription. It embeds
// only the subscription id, never a timestamp: two sweeps on the same day
// must produce the same key.
func ReminderKey(subscriptionID string) string {
	return fmt.Sprintf("billing.subscription.%s", strings.TrimSpace(subscriptionID))
}
