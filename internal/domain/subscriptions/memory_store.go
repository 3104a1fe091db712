package subscriptions

import (
	"context"
	"sort"
	"sync"
	"time"

	"crm-entitlements/internal/apperr"
)

// MemoryStore is an in-memory store for development and tests.
type MemoryStore struct {
	mu   sync.Mutex
	subs map[string]*Subscription
	now  func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{subs: make(map[string]*Subscription), now: time.Now}
}

func (m *MemoryStore) Create(_ context.Context, s *Subscription) error {
	if err := s.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.subs[s.TenantID]; exists {
		return ErrAlreadyExists
	}
	now := m.now()
	s.CreatedAt, s.UpdatedAt = now, now
	m.subs[s.TenantID] = s.clone()
	return nil
}

func (m *MemoryStore) Get(_ context.Context, tenantID string) (*Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.subs[tenantID]
	if !ok {
		return nil, errNotFound("subscriptions.get")
	}
	return s.clone(), nil
}

func (m *MemoryStore) GetByStripeSubscriptionID(_ context.Context, ref string) (*Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ref != "" {
		for _, s := range m.subs {
			if s.SubscriptionRef() == ref {
				return s.clone(), nil
			}
		}
	}
	return nil, errNotFound("subscriptions.get_by_stripe_id")
}

func (m *MemoryStore) List(_ context.Context) ([]Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Subscription, 0, len(m.subs))
	for _, s := range m.subs {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TenantID < out[j].TenantID })
	return out, nil
}

func (m *MemoryStore) Update(_ context.Context, tenantID string, fn func(*Subscription) error) (*Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.subs[tenantID]
	if !ok {
		return nil, errNotFound("subscriptions.update")
	}
	next := cur.clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	next.TenantID = tenantID
	if err := next.Validate(); err != nil {
		return nil, err
	}
	next.Version = cur.Version + 1
	next.UpdatedAt = m.now()
	m.subs[tenantID] = next
	return next.clone(), nil
}

func errNotFound(op string) error {
	return apperr.NotFound(op, "subscription not found")
}

var _ Store = (*MemoryStore)(nil)
