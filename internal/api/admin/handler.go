// Package admin serves platform-operator routes: tenant provisioning,
// subscription oversight and permission introspection.
package admin

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"crm-entitlements/internal/apperr"
	"crm-entitlements/internal/domain/access"
	"crm-entitlements/internal/domain/lifecycle"
	"crm-entitlements/internal/domain/plans"
	"crm-entitlements/internal/domain/subscriptions"
	"crm-entitlements/internal/logging"
)

type Lifecycle interface {
	Provision(ctx context.Context, tenantID, planName string) (*subscriptions.Subscription, error)
	Expire(ctx context.Context, tenantID string) (*subscriptions.Subscription, error)
	Now() time.Time
}

type Handler struct {
	lifecycle Lifecycle
	subs      subscriptions.Store
	catalog   plans.Catalog
	matrix    *access.Matrix
}

func NewHandler(lc Lifecycle, subs subscriptions.Store, catalog plans.Catalog, matrix *access.Matrix) *Handler {
	return &Handler{lifecycle: lc, subs: subs, catalog: catalog, matrix: matrix}
}

type AdminSubscription struct {
	TenantID             string               `json:"tenant_id"`
	PlanName             *string              `json:"plan_name,omitempty"`
	Status               subscriptions.Status `json:"status"`
	Label                lifecycle.Label      `json:"label"`
	StartedAt            time.Time            `json:"started_at"`
	ExpiresAt            *time.Time           `json:"expires_at,omitempty"`
	CanceledAt           *time.Time           `json:"canceled_at,omitempty"`
	StripeCustomerID     *string              `json:"stripe_customer_id,omitempty"`
	StripeSubscriptionID *string              `json:"stripe_subscription_id,omitempty"`
}

type AdminStats struct {
	TotalTenants     int            `json:"total_tenants"`
	TenantsPerPlan   map[string]int `json:"tenants_per_plan"`
	TenantsPerStatus map[string]int `json:"tenants_per_status"`
	ProviderBilled   int            `json:"provider_billed"`
}

// ListSubscriptions returns every tenant's subscription with summary stats.
func (h *Handler) ListSubscriptions(c *gin.Context) {
	ctx := c.Request.Context()

	list, err := h.subs.List(ctx)
	if err != nil {
		apperr.Write(c, apperr.FromContext("admin.list_subscriptions", err))
		return
	}
	catalog, err := h.catalog.List(ctx)
	if err != nil {
		apperr.Write(c, apperr.FromContext("admin.list_subscriptions", err))
		return
	}
	byID := make(map[uint]*plans.Plan, len(catalog))
	for i := range catalog {
		byID[catalog[i].ID] = &catalog[i]
	}

	now := h.lifecycle.Now()
	stats := AdminStats{
		TenantsPerPlan:   map[string]int{},
		TenantsPerStatus: map[string]int{},
	}
	out := make([]AdminSubscription, 0, len(list))
	for i := range list {
		s := &list[i]
		plan := byID[s.PlanID]

		var planName *string
		if plan != nil {
			planName = &plan.Name
			stats.TenantsPerPlan[plan.Name]++
		}
		stats.TenantsPerStatus[string(s.Status)]++
		if s.GatewayLinked() {
			stats.ProviderBilled++
		}

		out = append(out, AdminSubscription{
			TenantID:             s.TenantID,
			PlanName:             planName,
			Status:               s.Status,
			Label:                lifecycle.StatusLabel(s, plan, now),
			StartedAt:            s.StartedAt,
			ExpiresAt:            s.ExpiresAt,
			CanceledAt:           s.CanceledAt,
			StripeCustomerID:     s.StripeCustomerID,
			StripeSubscriptionID: s.StripeSubscriptionID,
		})
	}
	stats.TotalTenants = len(out)

	c.JSON(http.StatusOK, gin.H{"subscriptions": out, "stats": stats})
}

type provisionRequest struct {
	TenantID string `json:"tenant_id"`
	Plan     string `json:"plan"`
}

// ProvisionTenant creates the subscription for a new tenant. A tenant id is
// generated when none is given; the plan defaults to FREE.
func (h *Handler) ProvisionTenant(c *gin.Context) {
	var body provisionRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "invalid body"})
			return
		}
	}
	if body.TenantID == "" {
		body.TenantID = uuid.NewString()
	}
	if body.Plan == "" {
		body.Plan = plans.NameFree
	}

	sub, err := h.lifecycle.Provision(c.Request.Context(), body.TenantID, body.Plan)
	if err != nil {
		apperr.Write(c, err)
		return
	}

	l := logging.FromContext(c.Request.Context())
	l.Info().Str("tenant_id", sub.TenantID).Str("plan", body.Plan).Msg("tenant provisioned by admin")
	c.JSON(http.StatusCreated, sub)
}

// ExpireSubscription records an elapsed subscription as EXPIRED. Validity
// is already evaluated at read time; this only makes the status explicit.
func (h *Handler) ExpireSubscription(c *gin.Context) {
	sub, err := h.lifecycle.Expire(c.Request.Context(), c.Param("tenant"))
	if err != nil {
		apperr.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, sub)
}
