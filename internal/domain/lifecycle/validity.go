package lifecycle

import (
	"context"
	"time"

	"crm-entitlements/internal/apperr"
	"crm-entitlements/internal/domain/plans"
	"crm-entitlements/internal/domain/subscriptions"
)

// Validity is the entitlement verdict for one instant. Expiry is evaluated
// lazily here, no sweeper flips the stored status.
type Validity struct {
	Valid     bool                 `json:"valid"`
	Status    subscriptions.Status `json:"status"`
	ExpiresAt *time.Time           `json:"expires_at"`
	Reason    string               `json:"reason,omitempty"`
}

// Evaluate decides validity. Only ACTIVE with an open window is valid;
// PAST_DUE has no grace period.
func Evaluate(s *subscriptions.Subscription, now time.Time) Validity {
	v := Validity{Status: s.Status, ExpiresAt: s.ExpiresAt}
	switch {
	case s.Status != subscriptions.StatusActive:
		v.Reason = "subscription is " + string(s.Status)
	case s.Elapsed(now):
		v.Reason = "subscription expired"
	default:
		v.Valid = true
	}
	return v
}

func (o *Orchestrator) Validity(ctx context.Context, tenantID string) (Validity, error) {
	ctx, cancel := o.storeCtx(ctx)
	defer cancel()

	sub, err := o.subs.Get(ctx, tenantID)
	if err != nil {
		return Validity{}, apperr.FromContext("lifecycle.validity", err)
	}
	return Evaluate(sub, o.now()), nil
}

type Label string

const (
	LabelActive    Label = "ACTIVE"
	LabelExpired   Label = "EXPIRED"
	LabelTrial     Label = "TRIAL"
	LabelCancelled Label = "CANCELLED"
)

// StatusLabel is the display status shown to tenants. A free plan with a
// closing window is a trial.
func StatusLabel(s *subscriptions.Subscription, plan *plans.Plan, now time.Time) Label {
	if s.Status == subscriptions.StatusCanceled {
		return LabelCancelled
	}
	if !Evaluate(s, now).Valid {
		return LabelExpired
	}
	if plan != nil && plan.IsFree() && s.ExpiresAt != nil {
		return LabelTrial
	}
	return LabelActive
}

// Now exposes the orchestrator clock to handlers rendering labels.
func (o *Orchestrator) Now() time.Time { return o.now() }
