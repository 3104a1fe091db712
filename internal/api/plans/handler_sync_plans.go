package plans

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"crm-entitlements/internal/apperr"
	"crm-entitlements/internal/logging"
)

// SyncPlansFromStripe upserts a catalog plan for every recurring provider
// price whose metadata names a known tier. Prices that do not map are
// skipped and counted.
func (h *Handler) SyncPlansFromStripe(c *gin.Context) {
	const op = "plans.sync"
	l := logging.FromContext(c.Request.Context())

	if h.prices == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "gateway_error", "message": "billing provider not configured"})
		return
	}

	prices, err := h.prices.ListRecurringPrices(c.Request.Context(), h.productID)
	if err != nil {
		apperr.Write(c, apperr.Gateway(op, err))
		return
	}

	created, updated, skipped := 0, 0, 0
	for _, p := range prices {
		plan, err := p.Plan()
		if err != nil {
			l.Warn().Err(err).Str("price_id", p.PriceID).Msg("skipping provider price")
			skipped++
			continue
		}

		isNew, err := h.catalog.Upsert(c.Request.Context(), &plan)
		if err != nil {
			apperr.Write(c, apperr.FromContext(op, err))
			return
		}
		if isNew {
			created++
		} else {
			updated++
		}
	}

	l.Info().Int("created", created).Int("updated", updated).Int("skipped", skipped).Msg("plans synced")
	c.JSON(http.StatusOK, gin.H{
		"synced":  created + updated,
		"created": created,
		"updated": updated,
		"skipped": skipped,
	})
}
