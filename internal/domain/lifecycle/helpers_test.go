package lifecycle

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"crm-entitlements/internal/domain/billing"
	"crm-entitlements/internal/domain/plans"
	"crm-entitlements/internal/domain/subscriptions"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	orch    *Orchestrator
	subs    *subscriptions.MemoryStore
	catalog *plans.MemoryCatalog
	ledger  *billing.MemoryLedger
	gw      *fakeGateway
	clock   *clock
}

// catalog with provider prices: price_starter, price_pro, price_ent.
func pricedCatalog() *plans.MemoryCatalog {
	seed := plans.Defaults()
	refs := map[string]string{
		plans.NameStarter:      "price_starter",
		plans.NameProfessional: "price_pro",
		plans.NameEnterprise:   "price_ent",
	}
	for i := range seed {
		if ref, ok := refs[seed[i].Name]; ok {
			r := ref
			seed[i].StripePriceID = &r
		}
	}
	return plans.NewMemoryCatalog(seed...)
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		subs:    subscriptions.NewMemoryStore(),
		catalog: pricedCatalog(),
		ledger:  billing.NewMemoryLedger(),
		gw:      newFakeGateway(),
		clock:   &clock{now: t0},
	}
	nop := zerolog.Nop()
	f.orch = New(f.subs, f.catalog, f.ledger, Options{
		Gateway:        f.gw,
		Logger:         &nop,
		Now:            f.clock.Now,
		StoreTimeout:   time.Second,
		GatewayTimeout: time.Second,
	})
	return f
}

func (f *fixture) plan(t *testing.T, name string) *plans.Plan {
	t.Helper()
	p, err := f.catalog.GetByName(context.Background(), name)
	require.NoError(t, err)
	return p
}

// seed stores a subscription directly, bypassing provisioning.
func (f *fixture) seed(t *testing.T, s subscriptions.Subscription) {
	t.Helper()
	require.NoError(t, f.subs.Create(context.Background(), &s))
}

func (f *fixture) get(t *testing.T, tenantID string) *subscriptions.Subscription {
	t.Helper()
	s, err := f.subs.Get(context.Background(), tenantID)
	require.NoError(t, err)
	return s
}

func ptrTime(t time.Time) *time.Time { return &t }

func ptrStr(s string) *string { return &s }
