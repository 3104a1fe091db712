// Package lifecycle drives subscription state: first-party transitions
// (provision, upgrade, renew, cancel, expire) and reconciliation of billing
// provider events.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"crm-entitlements/internal/apperr"
	"crm-entitlements/internal/domain/billing"
	"crm-entitlements/internal/domain/plans"
	"crm-entitlements/internal/domain/subscriptions"
	"crm-entitlements/internal/logging"
	"crm-entitlements/internal/metrics"
)

// RenewalPeriod is the validity added by a local renew or upgrade.
const RenewalPeriod = 30 * 24 * time.Hour

var (
	ErrAlreadyCanceled = errors.New("subscription already canceled")
	errNoGateway       = errors.New("billing provider not configured")
)

type Options struct {
	Gateway        Gateway
	Logger         *zerolog.Logger
	Now            func() time.Time
	StoreTimeout   time.Duration
	GatewayTimeout time.Duration
}

type Orchestrator struct {
	subs    subscriptions.Store
	catalog plans.Catalog
	ledger  billing.Ledger
	gateway Gateway

	log            zerolog.Logger
	now            func() time.Time
	storeTimeout   time.Duration
	gatewayTimeout time.Duration
}

func New(subs subscriptions.Store, catalog plans.Catalog, ledger billing.Ledger, opts Options) *Orchestrator {
	o := &Orchestrator{
		subs:           subs,
		catalog:        catalog,
		ledger:         ledger,
		gateway:        opts.Gateway,
		now:            opts.Now,
		storeTimeout:   opts.StoreTimeout,
		gatewayTimeout: opts.GatewayTimeout,
	}
	if opts.Logger != nil {
		o.log = *opts.Logger
	} else {
		o.log = logging.Logger()
	}
	if o.now == nil {
		o.now = time.Now
	}
	return o
}

func (o *Orchestrator) logger(ctx context.Context) zerolog.Logger {
	if id := logging.RequestID(ctx); id != "" {
		return o.log.With().Str("request_id", id).Logger()
	}
	return o.log
}

func bounded(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d)
}

func (o *Orchestrator) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return bounded(ctx, o.storeTimeout)
}

func (o *Orchestrator) gatewayCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return bounded(ctx, o.gatewayTimeout)
}

func record(op string, err error) {
	metrics.SubscriptionTransitionsTotal.WithLabelValues(op, metrics.Result(err)).Inc()
}

func (o *Orchestrator) planByName(ctx context.Context, op, name string) (*plans.Plan, error) {
	p, err := o.catalog.GetByName(ctx, plans.NormalizeName(name))
	if err != nil {
		return nil, apperr.FromContext(op, err)
	}
	return p, nil
}

// Get returns the tenant's subscription.
func (o *Orchestrator) Get(ctx context.Context, tenantID string) (*subscriptions.Subscription, error) {
	ctx, cancel := o.storeCtx(ctx)
	defer cancel()

	sub, err := o.subs.Get(ctx, tenantID)
	return sub, apperr.FromContext("lifecycle.get", err)
}

// Provision creates the tenant's single subscription: ACTIVE on a zero-cost
// plan, PENDING on a paid plan until the first payment lands.
func (o *Orchestrator) Provision(ctx context.Context, tenantID, planName string) (sub *subscriptions.Subscription, err error) {
	const op = "lifecycle.provision"
	defer func() { record("provision", err) }()

	ctx, cancel := o.storeCtx(ctx)
	defer cancel()

	plan, err := o.planByName(ctx, op, planName)
	if err != nil {
		return nil, err
	}

	status := subscriptions.StatusPending
	if plan.IsFree() {
		status = subscriptions.StatusActive
	}
	sub = &subscriptions.Subscription{
		TenantID:  tenantID,
		PlanID:    plan.ID,
		Status:    status,
		StartedAt: o.now(),
	}
	if err := o.subs.Create(ctx, sub); err != nil {
		if errors.Is(err, subscriptions.ErrAlreadyExists) {
			return nil, apperr.InvalidTransition(op, "tenant already has a subscription")
		}
		return nil, apperr.FromContext(op, err)
	}

	l := o.logger(ctx)
	l.Info().Str("tenant_id", tenantID).Str("plan", plan.Name).Str("status", string(status)).Msg("subscription provisioned")
	return sub, nil
}

func checkUpgrade(op string, current, target *plans.Plan) error {
	if !plans.Outranks(target.Name, current.Name) {
		return apperr.InvalidTransition(op,
			fmt.Sprintf("cannot upgrade from %s to %s: target plan does not outrank current plan", current.Name, target.Name))
	}
	return nil
}

// Upgrade moves the tenant to a higher-ranked plan. Subscriptions billed by
// the provider change through the gateway and take their dates from the
// provider's answer. Others extend the remaining window locally.
func (o *Orchestrator) Upgrade(ctx context.Context, tenantID, planName string) (sub *subscriptions.Subscription, err error) {
	const op = "lifecycle.upgrade"
	defer func() { record("upgrade", err) }()

	sctx, cancel := o.storeCtx(ctx)
	defer cancel()

	target, err := o.planByName(sctx, op, planName)
	if err != nil {
		return nil, err
	}
	cur, err := o.subs.Get(sctx, tenantID)
	if err != nil {
		return nil, apperr.FromContext(op, err)
	}
	if cur.Status == subscriptions.StatusCanceled {
		return nil, apperr.InvalidTransition(op, "cannot upgrade a canceled subscription")
	}
	if cur.GatewayLinked() {
		return o.upgradeViaGateway(ctx, cur, target)
	}

	sub, err = o.subs.Update(sctx, tenantID, func(s *subscriptions.Subscription) error {
		if s.GatewayLinked() {
			return apperr.InvalidTransition(op, "subscription became provider-billed, retry the upgrade")
		}
		current, err := o.catalog.GetByID(sctx, s.PlanID)
		if err != nil {
			return err
		}
		if err := checkUpgrade(op, current, target); err != nil {
			return err
		}

		now := o.now()
		base := now
		if s.ExpiresAt != nil && s.ExpiresAt.After(now) {
			base = *s.ExpiresAt
		}
		expires := base.Add(RenewalPeriod)
		s.PlanID = target.ID
		s.ExpiresAt = &expires
		s.RenewedAt = &now
		return nil
	})
	if err != nil {
		return nil, apperr.FromContext(op, err)
	}

	l := o.logger(ctx)
	l.Info().Str("tenant_id", tenantID).Str("plan", target.Name).Msg("subscription upgraded")
	return sub, nil
}

func (o *Orchestrator) upgradeViaGateway(ctx context.Context, cur *subscriptions.Subscription, target *plans.Plan) (*subscriptions.Subscription, error) {
	const op = "lifecycle.upgrade"

	sctx, cancel := o.storeCtx(ctx)
	current, err := o.catalog.GetByID(sctx, cur.PlanID)
	cancel()
	if err != nil {
		return nil, apperr.FromContext(op, err)
	}
	if err := checkUpgrade(op, current, target); err != nil {
		return nil, err
	}
	if target.PriceRef() == "" {
		return nil, apperr.InvalidTransition(op, fmt.Sprintf("plan %s has no provider price", target.Name))
	}
	if o.gateway == nil {
		return nil, apperr.Gateway(op, errNoGateway)
	}

	gctx, gcancel := o.gatewayCtx(ctx)
	ps, err := o.gateway.UpdateSubscription(gctx, cur.SubscriptionRef(), target.PriceRef())
	gcancel()
	if err != nil {
		return nil, gatewayErr(op, err)
	}

	sub, _, err := o.applyProvider(ctx, cur, ps, o.now())
	if err != nil {
		return nil, apperr.FromContext(op, err)
	}

	l := o.logger(ctx)
	l.Info().Str("tenant_id", cur.TenantID).Str("plan", target.Name).Msg("subscription upgraded through billing provider")
	return sub, nil
}

// Renew reactivates the subscription on plan for a fresh renewal period.
// Renewing a canceled subscription drops its provider subscription link: that
// subscription has ended, and events it sent before the renewal are stale.
// The customer ref is kept for the next checkout.
func (o *Orchestrator) Renew(ctx context.Context, tenantID, planName string) (sub *subscriptions.Subscription, err error) {
	const op = "lifecycle.renew"
	defer func() { record("renew", err) }()

	ctx, cancel := o.storeCtx(ctx)
	defer cancel()

	plan, err := o.planByName(ctx, op, planName)
	if err != nil {
		return nil, err
	}
	sub, err = o.subs.Update(ctx, tenantID, func(s *subscriptions.Subscription) error {
		now := o.now()
		if s.Status == subscriptions.StatusCanceled && s.GatewayLinked() {
			s.StripeSubscriptionID = nil
			if s.LastEventAt == nil || s.LastEventAt.Before(now) {
				stamp := now
				s.LastEventAt = &stamp
			}
		}
		expires := now.Add(RenewalPeriod)
		s.Status = subscriptions.StatusActive
		s.PlanID = plan.ID
		s.ExpiresAt = &expires
		s.RenewedAt = &now
		s.CanceledAt = nil
		if s.StartedAt.After(now) {
			s.StartedAt = now
		}
		return nil
	})
	if err != nil {
		return nil, apperr.FromContext(op, err)
	}

	l := o.logger(ctx)
	l.Info().Str("tenant_id", tenantID).Str("plan", plan.Name).Msg("subscription renewed")
	return sub, nil
}

func alreadyCanceled(op string) error {
	return apperr.Wrap(apperr.KindInvalidTransition, op, "subscription is already canceled", ErrAlreadyCanceled)
}

// Cancel cancels the subscription locally. The provider-side cancel is best
// effort; its failure is logged and the local record still converges.
func (o *Orchestrator) Cancel(ctx context.Context, tenantID string) (sub *subscriptions.Subscription, err error) {
	const op = "lifecycle.cancel"
	defer func() { record("cancel", err) }()

	sctx, cancel := o.storeCtx(ctx)
	cur, err := o.subs.Get(sctx, tenantID)
	cancel()
	if err != nil {
		return nil, apperr.FromContext(op, err)
	}
	if cur.Status == subscriptions.StatusCanceled {
		return nil, alreadyCanceled(op)
	}

	l := o.logger(ctx)
	if cur.GatewayLinked() {
		if o.gateway == nil {
			l.Warn().Str("tenant_id", tenantID).Msg("no billing provider configured, provider subscription left running")
		} else {
			gctx, gcancel := o.gatewayCtx(ctx)
			gerr := o.gateway.CancelSubscription(gctx, cur.SubscriptionRef())
			gcancel()
			if gerr != nil {
				l.Warn().Err(gerr).Str("tenant_id", tenantID).Msg("provider cancel failed, canceling locally")
			}
		}
	}

	sctx, cancel = o.storeCtx(ctx)
	defer cancel()
	sub, err = o.subs.Update(sctx, tenantID, func(s *subscriptions.Subscription) error {
		if s.Status == subscriptions.StatusCanceled {
			return alreadyCanceled(op)
		}
		now := o.now()
		s.Status = subscriptions.StatusCanceled
		s.CanceledAt = &now
		return nil
	})
	if err != nil {
		return nil, apperr.FromContext(op, err)
	}

	l.Info().Str("tenant_id", tenantID).Msg("subscription canceled")
	return sub, nil
}

// Expire closes an elapsed ACTIVE or PAST_DUE subscription.
func (o *Orchestrator) Expire(ctx context.Context, tenantID string) (sub *subscriptions.Subscription, err error) {
	const op = "lifecycle.expire"
	defer func() { record("expire", err) }()

	ctx, cancel := o.storeCtx(ctx)
	defer cancel()

	sub, err = o.subs.Update(ctx, tenantID, func(s *subscriptions.Subscription) error {
		if s.Status != subscriptions.StatusActive && s.Status != subscriptions.StatusPastDue {
			return apperr.InvalidTransition(op, fmt.Sprintf("cannot expire a %s subscription", s.Status))
		}
		if !s.Elapsed(o.now()) {
			return apperr.InvalidTransition(op, "validity window has not elapsed")
		}
		s.Status = subscriptions.StatusExpired
		return nil
	})
	if err != nil {
		return nil, apperr.FromContext(op, err)
	}

	l := o.logger(ctx)
	l.Info().Str("tenant_id", tenantID).Msg("subscription expired")
	return sub, nil
}

func gatewayErr(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return apperr.Wrap(apperr.KindTimeout, op, "billing provider timed out", err)
	}
	return apperr.Gateway(op, err)
}
