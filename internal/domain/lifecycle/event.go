package lifecycle

import "time"

type EventKind string

const (
	EventSubscriptionCreated EventKind = "customer.subscription.created"
	EventSubscriptionUpdated EventKind = "customer.subscription.updated"
	EventSubscriptionDeleted EventKind = "customer.subscription.deleted"
	EventPaymentSucceeded    EventKind = "invoice.payment_succeeded"
	EventPaymentFailed       EventKind = "invoice.payment_failed"
)

func (k EventKind) Recognized() bool {
	switch k {
	case EventSubscriptionCreated, EventSubscriptionUpdated, EventSubscriptionDeleted,
		EventPaymentSucceeded, EventPaymentFailed:
		return true
	}
	return false
}

// Event is a verified provider callback. OccurredAt is the provider's
// timestamp and orders events for the same subscription.
type Event struct {
	ID         string
	Kind       EventKind
	OccurredAt time.Time
	TenantID   string

	Subscription *ProviderSubscription // subscription kinds
	Invoice      *Invoice              // invoice kinds
}

type Invoice struct {
	ID              string
	SubscriptionRef string
	AmountCents     int64
	Currency        string
	ReceiptURL      string
}

// SubscriptionRef returns the provider subscription the event is about.
func (e Event) SubscriptionRef() string {
	if e.Subscription != nil {
		return e.Subscription.ID
	}
	if e.Invoice != nil {
		return e.Invoice.SubscriptionRef
	}
	return ""
}

// Outcome is what reconcile did with an event. It is logged and counted,
// never returned to the provider.
type Outcome string

const (
	OutcomeApplied       Outcome = "applied"
	OutcomeDuplicate     Outcome = "duplicate"
	OutcomeStale         Outcome = "stale"
	OutcomeSkipped       Outcome = "skipped"
	OutcomeIgnored       Outcome = "ignored"
	OutcomeUnknownTenant Outcome = "unknown_tenant"
	OutcomeUnknownPlan   Outcome = "unknown_plan"
	OutcomeFailed        Outcome = "failed"
)
