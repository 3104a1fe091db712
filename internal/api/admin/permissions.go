package admin

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"crm-entitlements/internal/domain/access"
)

// RolesWithPermission answers which roles may perform action on resource.
func (h *Handler) RolesWithPermission(c *gin.Context) {
	resource := access.Resource(c.Query("resource"))
	action := access.Action(c.Query("action"))
	if resource == "" || action == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "resource and action are required"})
		return
	}

	roles := h.matrix.RolesWithPermission(resource, action)
	if roles == nil {
		roles = []access.Role{}
	}
	c.JSON(http.StatusOK, gin.H{"resource": resource, "action": action, "roles": roles})
}

// ResourceAccess answers whether role has any action on resource.
func (h *Handler) ResourceAccess(c *gin.Context) {
	role := access.ParseRole(c.Query("role"))
	resource := access.Resource(c.Query("resource"))
	if role == "" || resource == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "role and resource are required"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"role":     role,
		"resource": resource,
		"access":   h.matrix.ResourceAccess(role, resource),
	})
}
