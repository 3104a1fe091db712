package subscriptions

import "context"

// Store persists subscriptions. Writes for one tenant are serialized by the
// storage layer; different tenants never contend.
type Store interface {
	Create(ctx context.Context, s *Subscription) error
	Get(ctx context.Context, tenantID string) (*Subscription, error)
	GetByStripeSubscriptionID(ctx context.Context, ref string) (*Subscription, error)
	List(ctx context.Context) ([]Subscription, error)

	// Update runs fn on the current record under the tenant's row lock and
	// persists the result. An error from fn aborts without writing.
	// Provider events go through it too, so they serialize with local
	// transitions on the same tenant.
	Update(ctx context.Context, tenantID string, fn func(*Subscription) error) (*Subscription, error)
}
