package billing

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"crm-entitlements/internal/app/http/middleware"
	"crm-entitlements/internal/apperr"
)

// Upgrade moves the tenant to a higher-ranked plan.
func (h *Handler) Upgrade(c *gin.Context) {
	actor := middleware.ActorFrom(c)

	var body planRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "missing or invalid plan"})
		return
	}

	sub, err := h.lifecycle.Upgrade(c.Request.Context(), actor.TenantID, body.Plan)
	if err != nil {
		apperr.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, h.view(c, sub))
}

// Renew reactivates the subscription for a fresh period on the given plan.
func (h *Handler) Renew(c *gin.Context) {
	actor := middleware.ActorFrom(c)

	var body planRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "missing or invalid plan"})
		return
	}

	sub, err := h.lifecycle.Renew(c.Request.Context(), actor.TenantID, body.Plan)
	if err != nil {
		apperr.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, h.view(c, sub))
}
