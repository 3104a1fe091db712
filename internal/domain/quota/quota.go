// Package quota answers "is there room for one more" against plan limits.
// It never changes usage counters.
package quota

import (
	"context"
	"fmt"
	"time"

	"crm-entitlements/internal/apperr"
	"crm-entitlements/internal/domain/access"
	"crm-entitlements/internal/domain/plans"
	"crm-entitlements/internal/domain/subscriptions"
	"crm-entitlements/internal/domain/usage"
)

// Meter is one metered resource. A nil Limit is unlimited.
type Meter struct {
	Current int64  `json:"current"`
	Limit   *int64 `json:"limit"`
	CanAdd  bool   `json:"can_add"`
}

func newMeter(current int64, limit *int64) Meter {
	return Meter{
		Current: current,
		Limit:   limit,
		CanAdd:  limit == nil || current < *limit,
	}
}

type API struct {
	Enabled bool `json:"enabled"`
}

// Report is the tenant's usage against its plan.
type Report struct {
	Plan        string `json:"plan"`
	Properties  Meter  `json:"properties"`
	Contacts    Meter  `json:"contacts"`
	Users       Meter  `json:"users"`
	API         API    `json:"api"`
	UsageSource string `json:"usage_source"`
}

// Meter returns the meter governing creation of resource, if any.
func (r Report) Meter(resource access.Resource) (Meter, bool) {
	switch resource {
	case access.ResourceProperties:
		return r.Properties, true
	case access.ResourceContacts:
		return r.Contacts, true
	case access.ResourceUsers:
		return r.Users, true
	}
	return Meter{}, false
}

type Evaluator struct {
	subs    subscriptions.Store
	catalog plans.Catalog
	usage   usage.Source
	timeout time.Duration
}

func NewEvaluator(subs subscriptions.Store, catalog plans.Catalog, src usage.Source, timeout time.Duration) *Evaluator {
	return &Evaluator{subs: subs, catalog: catalog, usage: src, timeout: timeout}
}

// CheckUsage reports current counts and limits. A tenant without a
// subscription is a data-integrity fault and yields NotFound.
func (e *Evaluator) CheckUsage(ctx context.Context, tenantID string) (Report, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	sub, err := e.subs.Get(ctx, tenantID)
	if err != nil {
		return Report{}, apperr.FromContext("quota.check_usage", err)
	}
	plan, err := e.catalog.GetByID(ctx, sub.PlanID)
	if err != nil {
		return Report{}, apperr.FromContext("quota.check_usage", err)
	}
	snap, err := e.usage.Usage(ctx, tenantID)
	if err != nil {
		return Report{}, apperr.FromContext("quota.check_usage", fmt.Errorf("read usage: %w", err))
	}

	return Report{
		Plan:        plan.Name,
		Properties:  newMeter(snap.Properties, plan.MaxProperties),
		Contacts:    newMeter(snap.Contacts, plan.MaxContacts),
		Users:       newMeter(snap.Users, plan.MaxUsers),
		API:         API{Enabled: plan.HasAPI},
		UsageSource: snap.Source,
	}, nil
}

// CheckCreate returns QuotaExceeded when resource is metered and full.
// Unmetered resources always pass without a lookup.
func (e *Evaluator) CheckCreate(ctx context.Context, tenantID string, resource access.Resource) error {
	if _, metered := (Report{}).Meter(resource); !metered {
		return nil
	}

	report, err := e.CheckUsage(ctx, tenantID)
	if err != nil {
		return err
	}
	m, _ := report.Meter(resource)
	if m.CanAdd {
		return nil
	}
	return apperr.New(apperr.KindQuotaExceeded, "quota.check_create",
		fmt.Sprintf("%s limit reached for plan %s (%d of %d)", resource, report.Plan, m.Current, *m.Limit)).
		WithDetails(map[string]any{
			"resource": string(resource),
			"current":  m.Current,
			"limit":    *m.Limit,
		})
}
