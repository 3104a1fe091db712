package stripe

import (
	"encoding/json"
	"fmt"
	"time"

	stripego "github.com/stripe/stripe-go/v75"
	"github.com/stripe/stripe-go/v75/webhook"

	"crm-entitlements/internal/apperr"
	"crm-entitlements/internal/domain/lifecycle"
)

// Verifier checks webhook signatures against the endpoint secret.
type Verifier struct {
	secret    string
	tolerance time.Duration
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: secret, tolerance: webhook.DefaultTolerance}
}

// Verify authenticates payload and decodes it. Any failure is
// SignatureInvalid and nothing in the payload may be trusted.
func (v *Verifier) Verify(payload []byte, signature string) (stripego.Event, error) {
	const op = "webhook.verify"
	if v.secret == "" {
		return stripego.Event{}, apperr.New(apperr.KindInternal, op, "webhook secret not configured")
	}
	ev, err := webhook.ConstructEventWithOptions(payload, signature, v.secret, webhook.ConstructEventOptions{
		Tolerance:                v.tolerance,
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return stripego.Event{}, apperr.Wrap(apperr.KindSignatureInvalid, op, "signature verification failed", err)
	}
	return ev, nil
}

// TranslateEvent turns a verified Stripe event into a lifecycle event.
// Unrecognized kinds translate with no payload and are ignored downstream.
func TranslateEvent(ev stripego.Event) (lifecycle.Event, error) {
	out := lifecycle.Event{
		ID:         ev.ID,
		Kind:       lifecycle.EventKind(ev.Type),
		OccurredAt: time.Unix(ev.Created, 0).UTC(),
	}
	if ev.Data == nil {
		return out, nil
	}

	switch out.Kind {
	case lifecycle.EventSubscriptionCreated, lifecycle.EventSubscriptionUpdated, lifecycle.EventSubscriptionDeleted:
		var sub stripego.Subscription
		if err := json.Unmarshal(ev.Data.Raw, &sub); err != nil {
			return out, fmt.Errorf("decode subscription: %w", err)
		}
		out.Subscription = FromSubscription(&sub)
		out.TenantID = out.Subscription.TenantID()

	case lifecycle.EventPaymentSucceeded, lifecycle.EventPaymentFailed:
		var inv stripego.Invoice
		if err := json.Unmarshal(ev.Data.Raw, &inv); err != nil {
			return out, fmt.Errorf("decode invoice: %w", err)
		}
		out.Invoice = fromInvoice(&inv, out.Kind)
		out.TenantID = invoiceTenant(&inv)
	}
	return out, nil
}

func fromInvoice(inv *stripego.Invoice, kind lifecycle.EventKind) *lifecycle.Invoice {
	out := &lifecycle.Invoice{
		ID:          inv.ID,
		Currency:    string(inv.Currency),
		ReceiptURL:  inv.HostedInvoiceURL,
		AmountCents: inv.AmountPaid,
	}
	if kind == lifecycle.EventPaymentFailed {
		out.AmountCents = inv.AmountDue
	}
	if inv.Subscription != nil {
		out.SubscriptionRef = inv.Subscription.ID
	}
	return out
}

// invoiceTenant reads the tenant from the subscription metadata snapshot on
// the invoice, then from the invoice's own metadata.
func invoiceTenant(inv *stripego.Invoice) string {
	if inv.SubscriptionDetails != nil {
		if id := inv.SubscriptionDetails.Metadata[lifecycle.MetadataTenantID]; id != "" {
			return id
		}
	}
	return inv.Metadata[lifecycle.MetadataTenantID]
}
