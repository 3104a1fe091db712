// Package entitlements exposes usage and the request gate to callers that
// enforce entitlements outside this process.
package entitlements

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"crm-entitlements/internal/app/http/middleware"
	"crm-entitlements/internal/apperr"
	"crm-entitlements/internal/domain/access"
	"crm-entitlements/internal/domain/gate"
	"crm-entitlements/internal/domain/quota"
)

type UsageReporter interface {
	CheckUsage(ctx context.Context, tenantID string) (quota.Report, error)
}

type Handler struct {
	gate  *gate.Gate
	usage UsageReporter
}

func NewHandler(g *gate.Gate, usage UsageReporter) *Handler {
	return &Handler{gate: g, usage: usage}
}

// GetUsage reports current usage against the tenant's plan limits.
func (h *Handler) GetUsage(c *gin.Context) {
	actor := middleware.ActorFrom(c)

	report, err := h.usage.CheckUsage(c.Request.Context(), actor.TenantID)
	if err != nil {
		apperr.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

type checkRequest struct {
	Path        string              `json:"path"`
	Permissions []access.Permission `json:"permissions"`
	Creates     access.Resource     `json:"creates"`
}

// Check runs the gate for the calling actor against the described request.
// Denials use the same error body as in-process routes.
func (h *Handler) Check(c *gin.Context) {
	var body checkRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "invalid body"})
		return
	}

	d := h.gate.Evaluate(c.Request.Context(), gate.Request{
		Actor:    middleware.ActorFrom(c),
		Path:     body.Path,
		Required: body.Permissions,
		Creates:  body.Creates,
	})
	if !d.Allowed {
		apperr.Write(c, d.Err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"allowed": true, "failed_open": d.FailedOpen})
}
