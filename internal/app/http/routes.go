package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	adminapi "crm-entitlements/internal/api/admin"
	"crm-entitlements/internal/api/billing"
	"crm-entitlements/internal/api/entitlements"
	"crm-entitlements/internal/api/plans"
	stripewebhooks "crm-entitlements/internal/api/stripewebhook"
	"crm-entitlements/internal/app/http/middleware"
	"crm-entitlements/internal/domain/access"
	"crm-entitlements/internal/domain/gate"
	"crm-entitlements/internal/metrics"
)

// Deps are the handlers and guards the router is assembled from.
type Deps struct {
	Authenticators []middleware.Authenticator
	Gate           *gate.Gate

	Webhook      *stripewebhooks.Handler
	Billing      *billing.Handler
	Plans        *plans.Handler
	Admin        *adminapi.Handler
	Entitlements *entitlements.Handler
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	r.Use(middleware.RequestLogger(), metrics.Middleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", metrics.Handler())

	// Signature covers the raw body; never sanitize it.
	r.POST("/webhook", d.Webhook.StripeWebhook)

	public := r.Group("/")
	public.Use(middleware.SanitizeInput())
	public.GET("/plans", d.Plans.ListPlans)

	// Authenticated
	v1 := r.Group("/v1")
	v1.Use(middleware.AuthMiddleware(d.Authenticators...))
	v1.GET("/subscription", d.Billing.GetSubscription)
	v1.GET("/usage", d.Entitlements.GetUsage)
	v1.POST("/entitlements/check", d.Entitlements.Check)

	// Billing stays reachable after a subscription lapses so the tenant can
	// pay or renew.
	readBilling := middleware.Needs(access.ResourceBilling, access.ActionRead).Lapsed()
	manageBilling := middleware.Needs(access.ResourceBilling, access.ActionUpdate).Lapsed()

	b := v1.Group("/billing")
	b.GET("/payments", middleware.Guard(d.Gate, readBilling), d.Billing.GetPaymentHistory)

	bw := b.Group("/")
	bw.Use(middleware.Guard(d.Gate, manageBilling), middleware.SanitizeInput())
	bw.POST("/checkout", d.Billing.CreateCheckoutSession)
	bw.POST("/portal", d.Billing.CreateBillingPortal)
	bw.POST("/upgrade", d.Billing.Upgrade)
	bw.POST("/renew", d.Billing.Renew)
	bw.POST("/cancel", d.Billing.Cancel)

	// Platform operators
	admin := r.Group("/admin")
	admin.Use(
		middleware.AuthMiddleware(d.Authenticators...),
		middleware.RequireRole(access.RoleAdmin),
		middleware.RequirePlatformAdmin(),
		middleware.SanitizeInput(),
	)
	admin.POST("/tenants", d.Admin.ProvisionTenant)
	admin.GET("/subscriptions", d.Admin.ListSubscriptions)
	admin.POST("/subscriptions/:tenant/expire", d.Admin.ExpireSubscription)
	admin.POST("/sync-plans", d.Plans.SyncPlansFromStripe)
	admin.GET("/permissions/roles", d.Admin.RolesWithPermission)
	admin.GET("/permissions/access", d.Admin.ResourceAccess)
}
