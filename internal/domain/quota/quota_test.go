package quota

import (
	"context"
	"errors"
	"testing"
	"time"

	"crm-entitlements/internal/apperr"
	"crm-entitlements/internal/domain/access"
	"crm-entitlements/internal/domain/plans"
	"crm-entitlements/internal/domain/subscriptions"
	"crm-entitlements/internal/domain/usage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T, planName string, counts usage.Snapshot) *Evaluator {
	t.Helper()
	ctx := context.Background()
	catalog := plans.NewMemoryCatalog(plans.Defaults()...)
	store := subscriptions.NewMemoryStore()

	p, err := catalog.GetByName(ctx, planName)
	require.NoError(t, err)
	require.NoError(t, store.Create(ctx, &subscriptions.Subscription{
		TenantID: "t1", PlanID: p.ID, Status: subscriptions.StatusActive, StartedAt: time.Now(),
	}))

	return NewEvaluator(store, catalog, usage.Static{"t1": counts}, time.Second)
}

func TestCheckUsage_StarterAtPropertyLimit(t *testing.T) {
	ev := setup(t, plans.NameStarter, usage.Snapshot{Properties: 1000, Contacts: 10})

	report, err := ev.CheckUsage(context.Background(), "t1")
	require.NoError(t, err)
	assert.False(t, report.Properties.CanAdd)
	assert.Equal(t, int64(1000), report.Properties.Current)
	assert.Equal(t, int64(1000), *report.Properties.Limit)
	assert.True(t, report.Contacts.CanAdd)
	assert.False(t, report.API.Enabled)
	assert.Equal(t, plans.NameStarter, report.Plan)
}

func TestCheckUsage_UnlimitedAlwaysCanAdd(t *testing.T) {
	ev := setup(t, plans.NameEnterprise, usage.Snapshot{Properties: 10000, Contacts: 1_000_000, Users: 500})

	report, err := ev.CheckUsage(context.Background(), "t1")
	require.NoError(t, err)
	assert.True(t, report.Properties.CanAdd)
	assert.Nil(t, report.Properties.Limit)
	assert.True(t, report.Contacts.CanAdd)
	assert.True(t, report.Users.CanAdd)
	assert.True(t, report.API.Enabled)
}

func TestCheckUsage_NoSubscriptionIsNotFound(t *testing.T) {
	ev := setup(t, plans.NameStarter, usage.Snapshot{})

	_, err := ev.CheckUsage(context.Background(), "ghost")
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestCheckUsage_DoesNotMutateUsage(t *testing.T) {
	src := usage.Static{"t1": {Properties: 5}}
	ev := setup(t, plans.NameStarter, usage.Snapshot{})
	ev.usage = src

	for i := 0; i < 3; i++ {
		_, err := ev.CheckUsage(context.Background(), "t1")
		require.NoError(t, err)
	}
	assert.Equal(t, int64(5), src["t1"].Properties)
}

func TestCheckCreate(t *testing.T) {
	ev := setup(t, plans.NameStarter, usage.Snapshot{Properties: 1000, Contacts: 4999, Users: 10})
	ctx := context.Background()

	err := ev.CheckCreate(ctx, "t1", access.ResourceProperties)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrQuotaExceeded))
	assert.Contains(t, err.Error(), "1000 of 1000")

	var ae *apperr.Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "properties", ae.Details["resource"])

	assert.NoError(t, ev.CheckCreate(ctx, "t1", access.ResourceContacts))
	assert.True(t, errors.Is(ev.CheckCreate(ctx, "t1", access.ResourceUsers), apperr.ErrQuotaExceeded))
}

func TestCheckCreate_UnmeteredSkipsLookup(t *testing.T) {
	ev := setup(t, plans.NameStarter, usage.Snapshot{})
	// a tenant without subscription would fail any lookup
	assert.NoError(t, ev.CheckCreate(context.Background(), "ghost", access.ResourceLeads))
}

type errSource struct{}

func (errSource) Usage(context.Context, string) (usage.Snapshot, error) {
	return usage.Snapshot{}, errors.New("db down")
}

func TestCheckUsage_SourceError(t *testing.T) {
	ev := setup(t, plans.NameStarter, usage.Snapshot{})
	ev.usage = errSource{}

	_, err := ev.CheckUsage(context.Background(), "t1")
	require.Error(t, err)
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
}
