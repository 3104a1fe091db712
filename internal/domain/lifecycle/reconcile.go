package lifecycle

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"crm-entitlements/internal/apperr"
	"crm-entitlements/internal/domain/billing"
	"crm-entitlements/internal/domain/subscriptions"
	"crm-entitlements/internal/metrics"
)

// Reconcile applies a verified provider event. It never fails: events that
// cannot be applied are logged and dropped. Processed event ids are
// remembered, so redelivery is a no-op. Each write runs under the tenant's
// row lock and carries the event time as its ordering stamp, so an older
// event never overwrites a newer one.
func (o *Orchestrator) Reconcile(ctx context.Context, ev Event) Outcome {
	l := o.logger(ctx).With().
		Str("event_id", ev.ID).
		Str("event_kind", string(ev.Kind)).
		Logger()

	outcome := o.reconcile(ctx, ev, l)
	metrics.ReconcileEventsTotal.WithLabelValues(string(ev.Kind), string(outcome)).Inc()
	return outcome
}

func (o *Orchestrator) reconcile(ctx context.Context, ev Event, l zerolog.Logger) Outcome {
	if !ev.Kind.Recognized() {
		l.Debug().Msg("ignoring provider event")
		return OutcomeIgnored
	}

	if ev.ID != "" {
		sctx, cancel := o.storeCtx(ctx)
		done, err := o.ledger.IsProcessed(sctx, ev.ID)
		cancel()
		if err != nil {
			l.Warn().Err(err).Msg("processed-event lookup failed, applying anyway")
		} else if done {
			l.Info().Msg("duplicate provider event")
			return OutcomeDuplicate
		}
	}

	outcome, tenantID, err := o.dispatch(ctx, ev)
	if tenantID != "" {
		l = l.With().Str("tenant_id", tenantID).Logger()
	}
	if err != nil {
		l.Error().Err(err).Msg("provider event not applied")
		return OutcomeFailed
	}

	switch outcome {
	case OutcomeUnknownTenant, OutcomeUnknownPlan:
		l.Warn().Str("outcome", string(outcome)).Str("subscription_ref", ev.SubscriptionRef()).Msg("provider event dropped")
	default:
		l.Info().Str("outcome", string(outcome)).Msg("provider event reconciled")
	}

	if ev.ID != "" {
		sctx, cancel := o.storeCtx(ctx)
		if err := o.ledger.MarkProcessed(sctx, ev.ID, string(ev.Kind), string(outcome)); err != nil {
			l.Warn().Err(err).Msg("could not mark provider event processed")
		}
		cancel()
	}
	return outcome
}

var (
	errStale = errors.New("newer provider event already applied")
	errSkip  = errors.New("event does not apply to the current subscription")
)

func (o *Orchestrator) dispatch(ctx context.Context, ev Event) (Outcome, string, error) {
	cur, err := o.resolveTenant(ctx, ev)
	if err != nil {
		return OutcomeFailed, "", err
	}
	if cur == nil {
		return OutcomeUnknownTenant, "", nil
	}
	at := ev.OccurredAt
	if at.IsZero() {
		at = o.now()
	}

	switch ev.Kind {
	case EventSubscriptionCreated, EventSubscriptionUpdated:
		if ev.Subscription == nil {
			return OutcomeSkipped, cur.TenantID, nil
		}
		outcome, err := o.syncOutcome(ctx, cur, ev.Subscription, at)
		return outcome, cur.TenantID, err

	case EventSubscriptionDeleted:
		outcome, err := o.applyEvent(ctx, cur.TenantID, func(s *subscriptions.Subscription) error {
			if foreignRef(s, ev.SubscriptionRef()) {
				return errSkip
			}
			if s.StaleFor(at, subscriptions.StatusCanceled) {
				return errStale
			}
			s.Status = subscriptions.StatusCanceled
			if s.CanceledAt == nil {
				canceledAt := at
				s.CanceledAt = &canceledAt
			}
			s.LastEventAt = &at
			return nil
		})
		return outcome, cur.TenantID, err

	case EventPaymentSucceeded:
		o.recordPayment(ctx, cur, ev, billing.PaymentPaid)
		ref := ev.SubscriptionRef()
		if ref == "" {
			return OutcomeSkipped, cur.TenantID, nil
		}
		if o.gateway == nil {
			return OutcomeFailed, cur.TenantID, errNoGateway
		}
		gctx, cancel := o.gatewayCtx(ctx)
		ps, err := o.gateway.RetrieveSubscription(gctx, ref)
		cancel()
		if err != nil {
			return OutcomeFailed, cur.TenantID, gatewayErr("lifecycle.reconcile", err)
		}
		outcome, err := o.syncOutcome(ctx, cur, ps, at)
		return outcome, cur.TenantID, err

	case EventPaymentFailed:
		o.recordPayment(ctx, cur, ev, billing.PaymentFailed)
		outcome, err := o.applyEvent(ctx, cur.TenantID, func(s *subscriptions.Subscription) error {
			if s.Status == subscriptions.StatusCanceled || foreignRef(s, ev.SubscriptionRef()) ||
				s.StaleFor(at, subscriptions.StatusPastDue) {
				return errSkip
			}
			s.Status = subscriptions.StatusPastDue
			s.LastEventAt = &at
			return nil
		})
		return outcome, cur.TenantID, err
	}
	return OutcomeIgnored, cur.TenantID, nil
}

// resolveTenant finds the subscription an event belongs to. The tenant in
// metadata wins; without it the provider subscription id is looked up. A nil
// result means the tenant is unknown.
func (o *Orchestrator) resolveTenant(ctx context.Context, ev Event) (*subscriptions.Subscription, error) {
	ctx, cancel := o.storeCtx(ctx)
	defer cancel()

	tenantID := ev.TenantID
	if tenantID == "" {
		tenantID = ev.Subscription.TenantID()
	}

	var (
		sub *subscriptions.Subscription
		err error
	)
	switch {
	case tenantID != "":
		sub, err = o.subs.Get(ctx, tenantID)
	case ev.SubscriptionRef() != "":
		sub, err = o.subs.GetByStripeSubscriptionID(ctx, ev.SubscriptionRef())
	default:
		return nil, nil
	}
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, nil
	}
	return sub, err
}

// foreignRef reports whether ref names a provider subscription other than
// the one the tenant is linked to, e.g. one replaced by a later checkout.
func foreignRef(cur *subscriptions.Subscription, ref string) bool {
	return ref != "" && cur.GatewayLinked() && cur.SubscriptionRef() != ref
}

func (o *Orchestrator) syncOutcome(ctx context.Context, cur *subscriptions.Subscription, ps *ProviderSubscription, at time.Time) (Outcome, error) {
	_, applied, err := o.applyProvider(ctx, cur, ps, at)
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return OutcomeUnknownPlan, nil
	case err != nil:
		return OutcomeFailed, err
	case !applied:
		return OutcomeStale, nil
	}
	return OutcomeApplied, nil
}

// applyProvider maps the provider's subscription onto the tenant's record.
// Dates come from the provider's billing period; renewedAt is the event
// time so replaying the same payload yields the same record.
func (o *Orchestrator) applyProvider(ctx context.Context, cur *subscriptions.Subscription, ps *ProviderSubscription, at time.Time) (*subscriptions.Subscription, bool, error) {
	sctx, cancel := o.storeCtx(ctx)
	defer cancel()

	plan, err := o.catalog.GetByExternalPriceRef(sctx, ps.PriceID)
	if err != nil {
		return nil, false, err
	}
	status := ps.Status
	if !status.Valid() {
		status = subscriptions.StatusCanceled
	}

	next, err := o.subs.Update(sctx, cur.TenantID, func(s *subscriptions.Subscription) error {
		if s.StaleFor(at, status) {
			return errStale
		}
		// a replaced provider subscription ending must not cancel its successor
		if status == subscriptions.StatusCanceled && foreignRef(s, ps.ID) {
			return errStale
		}

		s.PlanID = plan.ID
		s.Status = status
		if !ps.PeriodStart.IsZero() {
			s.StartedAt = ps.PeriodStart
		}
		if !ps.PeriodEnd.IsZero() {
			end := ps.PeriodEnd
			s.ExpiresAt = &end
		}
		renewed := at
		s.RenewedAt = &renewed

		if status == subscriptions.StatusCanceled {
			if s.CanceledAt == nil {
				canceledAt := at
				s.CanceledAt = &canceledAt
			}
		} else {
			s.CanceledAt = nil
		}

		if ps.ID != "" {
			ref := ps.ID
			s.StripeSubscriptionID = &ref
		}
		if ps.CustomerID != "" {
			customer := ps.CustomerID
			s.StripeCustomerID = &customer
		}
		stamp := at
		s.LastEventAt = &stamp
		return nil
	})
	if errors.Is(err, errStale) {
		return cur, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return next, true, nil
}

// applyEvent runs fn under the tenant's row lock. fn returns errStale or
// errSkip to leave the record untouched.
func (o *Orchestrator) applyEvent(ctx context.Context, tenantID string, fn func(*subscriptions.Subscription) error) (Outcome, error) {
	ctx, cancel := o.storeCtx(ctx)
	defer cancel()

	_, err := o.subs.Update(ctx, tenantID, fn)
	switch {
	case errors.Is(err, errStale):
		return OutcomeStale, nil
	case errors.Is(err, errSkip):
		return OutcomeSkipped, nil
	case err != nil:
		return OutcomeFailed, err
	}
	return OutcomeApplied, nil
}

func (o *Orchestrator) recordPayment(ctx context.Context, cur *subscriptions.Subscription, ev Event, status string) {
	if ev.Invoice == nil || ev.Invoice.ID == "" {
		return
	}
	inv := ev.Invoice

	p := &billing.Payment{
		TenantID:        cur.TenantID,
		StripeInvoiceID: inv.ID,
		AmountCents:     inv.AmountCents,
		Currency:        inv.Currency,
		Status:          status,
		OccurredAt:      ev.OccurredAt,
	}
	planID := cur.PlanID
	p.PlanID = &planID
	if inv.SubscriptionRef != "" {
		ref := inv.SubscriptionRef
		p.StripeSubscriptionID = &ref
	}
	if inv.ReceiptURL != "" {
		url := inv.ReceiptURL
		p.ReceiptURL = &url
	}

	ctx, cancel := o.storeCtx(ctx)
	defer cancel()
	if err := o.ledger.RecordPayment(ctx, p); err != nil {
		l := o.logger(ctx)
		l.Warn().Err(err).Str("tenant_id", cur.TenantID).Str("invoice_id", inv.ID).Msg("could not record payment")
	}
}
