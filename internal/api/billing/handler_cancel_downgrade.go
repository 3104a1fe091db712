package billing

import (
	"github.com/gin-gonic/gin"
	"net/http"

	"crm-entitlements/internal/app/http/middleware"
	"crm-entitlements/internal/apperr"
)

// Cancel ends the tenant's subscription. The provider-side cancel is best
// effort; the local record is canceled either way.
func (h *Handler) Cancel(c *gin.Context) {
	actor := middleware.ActorFrom(c)

	sub, err := h.lifecycle.Cancel(c.Request.Context(), actor.TenantID)
	if err != nil {
		apperr.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, h.view(c, sub))
}
