package middleware

import (
	"github.com/gin-gonic/gin"

	"crm-entitlements/internal/apperr"
	"crm-entitlements/internal/domain/access"
	"crm-entitlements/internal/domain/gate"
)

// Rule declares what a route needs from the gate.
type Rule struct {
	Required []access.Permission
	Creates  access.Resource
	// AllowLapsed keeps the route open to tenants without a valid
	// subscription (billing self-service).
	AllowLapsed bool
}

// Lapsed returns a copy of r that skips the validity check.
func (r Rule) Lapsed() Rule {
	r.AllowLapsed = true
	return r
}

// Needs is shorthand for a rule requiring action on resource.
func Needs(resource access.Resource, action access.Action) Rule {
	r := Rule{Required: []access.Permission{{Resource: resource, Action: action}}}
	if action == access.ActionCreate {
		r.Creates = resource
	}
	return r
}

// Guard runs the request gate for the authenticated actor and aborts with
// the gate's error on denial.
func Guard(g *gate.Gate, rule Rule) gin.HandlerFunc {
	return func(c *gin.Context) {
		d := g.Evaluate(c.Request.Context(), gate.Request{
			Actor:       ActorFrom(c),
			Path:        c.Request.URL.Path,
			Required:    rule.Required,
			Creates:     rule.Creates,
			AllowLapsed: rule.AllowLapsed,
		})
		if !d.Allowed {
			apperr.Write(c, d.Err)
			return
		}
		if d.FailedOpen {
			c.Header("X-Entitlement-Degraded", string(d.Step))
		}
		c.Next()
	}
}
