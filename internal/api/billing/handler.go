// Package billing serves the tenant-facing subscription and payment routes.
package billing

import (
	"context"
	"time"

	"crm-entitlements/internal/domain/billing"
	"crm-entitlements/internal/domain/lifecycle"
	"crm-entitlements/internal/domain/plans"
	"crm-entitlements/internal/domain/subscriptions"
)

// Lifecycle is the part of the orchestrator these routes drive.
type Lifecycle interface {
	Get(ctx context.Context, tenantID string) (*subscriptions.Subscription, error)
	Checkout(ctx context.Context, in lifecycle.CheckoutInput) (string, error)
	Portal(ctx context.Context, tenantID, returnURL string) (string, error)
	Upgrade(ctx context.Context, tenantID, planName string) (*subscriptions.Subscription, error)
	Renew(ctx context.Context, tenantID, planName string) (*subscriptions.Subscription, error)
	Cancel(ctx context.Context, tenantID string) (*subscriptions.Subscription, error)
	Now() time.Time
}

type Handler struct {
	lifecycle Lifecycle
	catalog   plans.Catalog
	ledger    billing.Ledger
	appURL    string
}

func NewHandler(lc Lifecycle, catalog plans.Catalog, ledger billing.Ledger, appURL string) *Handler {
	if appURL == "" {
		appURL = "http://localhost:5173"
	}
	return &Handler{lifecycle: lc, catalog: catalog, ledger: ledger, appURL: appURL}
}

type planRequest struct {
	Plan string `json:"plan" binding:"required"`
}
