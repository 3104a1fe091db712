package lifecycle

import (
	"context"
	"time"

	"crm-entitlements/internal/domain/subscriptions"
)

// ProviderSubscription is the billing provider's view of a subscription,
// already translated into local terms.
type ProviderSubscription struct {
	ID          string
	CustomerID  string
	PriceID     string
	Status      subscriptions.Status
	PeriodStart time.Time
	PeriodEnd   time.Time
	Metadata    map[string]string
}

// TenantID returns the tenant stamped on the provider object at checkout.
func (p *ProviderSubscription) TenantID() string {
	if p == nil || p.Metadata == nil {
		return ""
	}
	return p.Metadata[MetadataTenantID]
}

// MetadataTenantID is the metadata key carrying the tenant on provider objects.
const MetadataTenantID = "tenant_id"

type CheckoutRequest struct {
	TenantID    string
	CustomerRef string
	PriceRef    string
	SuccessURL  string
	CancelURL   string
}

// Gateway is the outbound billing provider.
type Gateway interface {
	CreateCustomer(ctx context.Context, email, name, tenantID string) (string, error)
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (string, error)
	UpdateSubscription(ctx context.Context, subRef, priceRef string) (*ProviderSubscription, error)
	CancelSubscription(ctx context.Context, subRef string) error
	CreatePortalSession(ctx context.Context, customerRef, returnURL string) (string, error)
	RetrieveSubscription(ctx context.Context, subRef string) (*ProviderSubscription, error)
}
