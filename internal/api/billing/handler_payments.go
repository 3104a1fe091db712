package billing

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"crm-entitlements/internal/app/http/middleware"
	"crm-entitlements/internal/apperr"
	"crm-entitlements/internal/domain/billing"
)

// GetPaymentHistory lists the tenant's invoice outcomes, newest first.
func (h *Handler) GetPaymentHistory(c *gin.Context) {
	actor := middleware.ActorFrom(c)

	payments, err := h.ledger.ListPayments(c.Request.Context(), actor.TenantID)
	if err != nil {
		apperr.Write(c, apperr.FromContext("billing.payments", err))
		return
	}
	if payments == nil {
		payments = []billing.Payment{}
	}
	c.JSON(http.StatusOK, payments)
}
