// Package plans serves the plan catalog and its admin sync from the billing
// provider.
package plans

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"crm-entitlements/internal/apperr"
	"crm-entitlements/internal/domain/plans"
	"crm-entitlements/internal/infra/stripe"
)

// PriceSource lists the provider's recurring prices.
type PriceSource interface {
	ListRecurringPrices(ctx context.Context, productID string) ([]stripe.Price, error)
}

type Handler struct {
	catalog   plans.Catalog
	prices    PriceSource
	productID string
}

// NewHandler builds the plan routes. prices may be nil when no provider is
// configured; sync then answers 503.
func NewHandler(catalog plans.Catalog, prices PriceSource, productID string) *Handler {
	return &Handler{catalog: catalog, prices: prices, productID: productID}
}

// ListPlans returns the catalog, cheapest first.
func (h *Handler) ListPlans(c *gin.Context) {
	list, err := h.catalog.List(c.Request.Context())
	if err != nil {
		apperr.Write(c, apperr.FromContext("plans.list", err))
		return
	}
	c.JSON(http.StatusOK, list)
}
