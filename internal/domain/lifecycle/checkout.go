package lifecycle

import (
	"context"
	"fmt"

	"crm-entitlements/internal/apperr"
	"crm-entitlements/internal/domain/subscriptions"
)

type CheckoutInput struct {
	TenantID   string
	PlanName   string
	Email      string
	Name       string
	SuccessURL string
	CancelURL  string
}

// Checkout starts a provider checkout for a paid plan and returns its URL.
// A provider customer is created on first use and stored on the record.
func (o *Orchestrator) Checkout(ctx context.Context, in CheckoutInput) (string, error) {
	const op = "lifecycle.checkout"

	sctx, cancel := o.storeCtx(ctx)
	plan, err := o.planByName(sctx, op, in.PlanName)
	if err != nil {
		cancel()
		return "", err
	}
	cur, err := o.subs.Get(sctx, in.TenantID)
	cancel()
	if err != nil {
		return "", apperr.FromContext(op, err)
	}

	if plan.PriceRef() == "" {
		return "", apperr.InvalidTransition(op, fmt.Sprintf("plan %s has no provider price", plan.Name))
	}
	if cur.GatewayLinked() && cur.Status != subscriptions.StatusCanceled {
		return "", apperr.InvalidTransition(op, "tenant already has a provider subscription, use upgrade")
	}
	if o.gateway == nil {
		return "", apperr.Gateway(op, errNoGateway)
	}

	customerRef := cur.CustomerRef()
	if customerRef == "" {
		gctx, gcancel := o.gatewayCtx(ctx)
		customerRef, err = o.gateway.CreateCustomer(gctx, in.Email, in.Name, in.TenantID)
		gcancel()
		if err != nil {
			return "", gatewayErr(op, err)
		}

		sctx, cancel := o.storeCtx(ctx)
		_, err = o.subs.Update(sctx, in.TenantID, func(s *subscriptions.Subscription) error {
			s.StripeCustomerID = &customerRef
			return nil
		})
		cancel()
		if err != nil {
			return "", apperr.FromContext(op, err)
		}
	}

	gctx, gcancel := o.gatewayCtx(ctx)
	defer gcancel()
	url, err := o.gateway.CreateCheckoutSession(gctx, CheckoutRequest{
		TenantID:    in.TenantID,
		CustomerRef: customerRef,
		PriceRef:    plan.PriceRef(),
		SuccessURL:  in.SuccessURL,
		CancelURL:   in.CancelURL,
	})
	if err != nil {
		return "", gatewayErr(op, err)
	}
	return url, nil
}

// Portal returns a provider billing-portal URL for the tenant's customer.
func (o *Orchestrator) Portal(ctx context.Context, tenantID, returnURL string) (string, error) {
	const op = "lifecycle.portal"

	cur, err := o.Get(ctx, tenantID)
	if err != nil {
		return "", err
	}
	if cur.CustomerRef() == "" {
		return "", apperr.InvalidTransition(op, "no billing customer yet, subscribe first")
	}
	if o.gateway == nil {
		return "", apperr.Gateway(op, errNoGateway)
	}

	gctx, cancel := o.gatewayCtx(ctx)
	defer cancel()
	url, err := o.gateway.CreatePortalSession(gctx, cur.CustomerRef(), returnURL)
	if err != nil {
		return "", gatewayErr(op, err)
	}
	return url, nil
}
