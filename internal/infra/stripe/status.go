package stripe

import (
	"strings"

	stripego "github.com/stripe/stripe-go/v75"

	"crm-entitlements/internal/domain/subscriptions"
)

// LocalStatus maps a provider subscription status onto the local state
// machine. Anything unrecognized is treated as canceled.
func LocalStatus(s stripego.SubscriptionStatus) subscriptions.Status {
	switch strings.TrimSpace(string(s)) {
	case "active", "trialing":
		return subscriptions.StatusActive
	case "past_due":
		return subscriptions.StatusPastDue
	case "incomplete":
		return subscriptions.StatusPending
	case "incomplete_expired":
		return subscriptions.StatusExpired
	case "canceled", "unpaid":
		return subscriptions.StatusCanceled
	default:
		return subscriptions.StatusCanceled
	}
}
