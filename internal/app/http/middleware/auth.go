package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"crm-entitlements/internal/apperr"
	"crm-entitlements/internal/domain/access"
	"crm-entitlements/internal/domain/gate"
	"crm-entitlements/internal/logging"
)

const actorKey = "actor"

// Authenticator turns a bearer token into an actor.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*gate.Actor, error)
}

// AuthMiddleware accepts the first authenticator that verifies the bearer
// token.
func AuthMiddleware(auths ...Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		const op = "authenticate"

		header := c.GetHeader("Authorization")
		if header == "" {
			apperr.Write(c, apperr.New(apperr.KindUnauthenticated, op, "authorization header missing"))
			return
		}
		token := strings.TrimPrefix(header, "Bearer ")
		if token == header || strings.TrimSpace(token) == "" {
			apperr.Write(c, apperr.New(apperr.KindUnauthenticated, op, "bearer token malformed"))
			return
		}

		l := logging.FromContext(c.Request.Context())
		for _, a := range auths {
			actor, err := a.Authenticate(c.Request.Context(), token)
			if err != nil {
				l.Debug().Err(err).Msg("authenticator rejected token")
				continue
			}
			c.Set(actorKey, actor)
			c.Next()
			return
		}
		apperr.Write(c, apperr.New(apperr.KindUnauthenticated, op, "invalid or expired token"))
	}
}

// ActorFrom returns the authenticated actor or nil.
func ActorFrom(c *gin.Context) *gate.Actor {
	v, ok := c.Get(actorKey)
	if !ok {
		return nil
	}
	actor, _ := v.(*gate.Actor)
	return actor
}

// SetActor stores actor on the context. Used by tests and trusted
// upstream proxies.
func SetActor(c *gin.Context, actor *gate.Actor) {
	c.Set(actorKey, actor)
}

// RequireRole admits only actors with role.
func RequireRole(role access.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := ActorFrom(c)
		if actor == nil {
			apperr.Write(c, apperr.New(apperr.KindUnauthenticated, "require_role", "authentication required"))
			return
		}
		if actor.Role != role {
			apperr.Write(c, apperr.New(apperr.KindForbidden, "require_role", "role "+string(role)+" required"))
			return
		}
		c.Next()
	}
}

// RequirePlatformAdmin admits only operators of the platform itself, not
// tenant administrators.
func RequirePlatformAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := ActorFrom(c)
		if actor == nil || !actor.PlatformAdmin {
			apperr.Write(c, apperr.New(apperr.KindForbidden, "require_platform_admin", "platform administrator required"))
			return
		}
		c.Next()
	}
}
