package billing

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"crm-entitlements/internal/app/http/middleware"
	"crm-entitlements/internal/apperr"
	"crm-entitlements/internal/domain/lifecycle"
	"crm-entitlements/internal/domain/plans"
	"crm-entitlements/internal/domain/subscriptions"
)

// SubscriptionView is the tenant-facing subscription summary.
type SubscriptionView struct {
	Plan          *plans.Plan          `json:"plan"`
	Status        subscriptions.Status `json:"status"`
	Label         lifecycle.Label      `json:"label"`
	Valid         bool                 `json:"valid"`
	StartedAt     time.Time            `json:"started_at"`
	ExpiresAt     *time.Time           `json:"expires_at"`
	RenewedAt     *time.Time           `json:"renewed_at,omitempty"`
	CanceledAt    *time.Time           `json:"canceled_at,omitempty"`
	ProviderOwned bool                 `json:"provider_billed"`
}

func (h *Handler) view(c *gin.Context, sub *subscriptions.Subscription) SubscriptionView {
	now := h.lifecycle.Now()
	plan, err := h.catalog.GetByID(c.Request.Context(), sub.PlanID)
	if err != nil {
		plan = nil
	}
	return SubscriptionView{
		Plan:          plan,
		Status:        sub.Status,
		Label:         lifecycle.StatusLabel(sub, plan, now),
		Valid:         lifecycle.Evaluate(sub, now).Valid,
		StartedAt:     sub.StartedAt,
		ExpiresAt:     sub.ExpiresAt,
		RenewedAt:     sub.RenewedAt,
		CanceledAt:    sub.CanceledAt,
		ProviderOwned: sub.GatewayLinked(),
	}
}

// GetSubscription returns the tenant's plan, status label and expiry.
func (h *Handler) GetSubscription(c *gin.Context) {
	actor := middleware.ActorFrom(c)

	sub, err := h.lifecycle.Get(c.Request.Context(), actor.TenantID)
	if err != nil {
		apperr.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, h.view(c, sub))
}
