package billing

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"crm-entitlements/internal/app/http/middleware"
	"crm-entitlements/internal/apperr"
	"crm-entitlements/internal/domain/lifecycle"
)

type checkoutRequest struct {
	Plan  string `json:"plan" binding:"required"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// CreateCheckoutSession starts a provider checkout for a paid plan.
func (h *Handler) CreateCheckoutSession(c *gin.Context) {
	actor := middleware.ActorFrom(c)

	var body checkoutRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "missing or invalid plan"})
		return
	}

	url, err := h.lifecycle.Checkout(c.Request.Context(), lifecycle.CheckoutInput{
		TenantID:   actor.TenantID,
		PlanName:   body.Plan,
		Email:      body.Email,
		Name:       body.Name,
		SuccessURL: h.appURL + "/account",
		CancelURL:  h.appURL + "/account?canceled=1",
	})
	if err != nil {
		apperr.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

// CreateBillingPortal opens the provider's self-service portal.
func (h *Handler) CreateBillingPortal(c *gin.Context) {
	actor := middleware.ActorFrom(c)

	url, err := h.lifecycle.Portal(c.Request.Context(), actor.TenantID, h.appURL+"/account")
	if err != nil {
		apperr.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}
