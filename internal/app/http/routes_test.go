package routes

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	adminapi "crm-entitlements/internal/api/admin"
	"crm-entitlements/internal/api/billing"
	"crm-entitlements/internal/api/entitlements"
	"crm-entitlements/internal/api/plans"
	stripewebhooks "crm-entitlements/internal/api/stripewebhook"
	"crm-entitlements/internal/app/http/middleware"
	"crm-entitlements/internal/domain/access"
	billingdomain "crm-entitlements/internal/domain/billing"
	"crm-entitlements/internal/domain/gate"
	"crm-entitlements/internal/domain/lifecycle"
	plansdomain "crm-entitlements/internal/domain/plans"
	"crm-entitlements/internal/domain/quota"
	"crm-entitlements/internal/domain/subscriptions"
	"crm-entitlements/internal/domain/usage"
	"crm-entitlements/internal/infra/stripe"
	"crm-entitlements/internal/testutil"
)

const (
	jwtSecret     = "test-secret"
	webhookSecret = "whsec_routes"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type server struct {
	router *gin.Engine
	jwt    *middleware.JWTAuthenticator
	subs   *subscriptions.MemoryStore
}

func newServer(t *testing.T) *server {
	t.Helper()
	catalog := plansdomain.NewMemoryCatalog(plansdomain.Defaults()...)
	subs := subscriptions.NewMemoryStore()
	ledger := billingdomain.NewMemoryLedger()
	nop := zerolog.Nop()

	orch := lifecycle.New(subs, catalog, ledger, lifecycle.Options{Logger: &nop})
	q := quota.NewEvaluator(subs, catalog, usage.Static{}, time.Second)
	matrix := access.Default()
	g := gate.New(matrix, orch, q, gate.DefaultPolicy()).WithLogger(nop)
	auth := middleware.NewJWTAuthenticator(jwtSecret)

	r := gin.New()
	RegisterRoutes(r, Deps{
		Authenticators: []middleware.Authenticator{auth},
		Gate:           g,
		Webhook:        stripewebhooks.NewHandler(stripe.NewVerifier(webhookSecret), orch),
		Billing:        billing.NewHandler(orch, catalog, ledger, "https://app.example"),
		Plans:          plans.NewHandler(catalog, nil, ""),
		Admin:          adminapi.NewHandler(orch, subs, catalog, matrix),
		Entitlements:   entitlements.NewHandler(g, q),
	})
	return &server{router: r, jwt: auth, subs: subs}
}

func (s *server) token(t *testing.T, tenant string, role access.Role, platformAdmin bool) string {
	t.Helper()
	tok, err := s.jwt.IssueToken(middleware.Claims{
		TenantID:      tenant,
		Role:          string(role),
		PlatformAdmin: platformAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u-" + tenant,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	require.NoError(t, err)
	return "Bearer " + tok
}

func (s *server) do(method, path, authz, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *server) seed(t *testing.T, sub subscriptions.Subscription) {
	t.Helper()
	require.NoError(t, s.subs.Create(context.Background(), &sub))
}

func TestPublicRoutes(t *testing.T) {
	s := newServer(t)

	w := s.do(http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))

	w = s.do(http.MethodGet, "/plans", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), plansdomain.NameEnterprise)

	w = s.do(http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "entitlements_http_requests_total")
}

func TestV1RequiresToken(t *testing.T) {
	s := newServer(t)

	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, "/v1/subscription", "", "").Code)
	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, "/v1/subscription", "Bearer junk", "").Code)

	s.seed(t, subscriptions.Subscription{TenantID: "t1", PlanID: 1, Status: subscriptions.StatusActive, StartedAt: time.Now()})
	w := s.do(http.MethodGet, "/v1/subscription", s.token(t, "t1", access.RoleViewer, false), "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"label":"ACTIVE"`)
}

func TestBillingReachableAfterLapse(t *testing.T) {
	s := newServer(t)
	past := time.Now().Add(-time.Hour)
	s.seed(t, subscriptions.Subscription{
		TenantID: "t1", PlanID: 2, Status: subscriptions.StatusActive,
		StartedAt: past.Add(-30 * 24 * time.Hour), ExpiresAt: &past,
	})
	admin := s.token(t, "t1", access.RoleAdmin, false)

	w := s.do(http.MethodPost, "/v1/entitlements/check", admin, `{"path":"/v1/leads","permissions":[{"resource":"leads","action":"read"}]}`)
	assert.Equal(t, http.StatusPaymentRequired, w.Code)

	w = s.do(http.MethodPost, "/v1/billing/renew", admin, `{"plan":"STARTER"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(http.MethodPost, "/v1/entitlements/check", admin, `{"path":"/v1/leads","permissions":[{"resource":"leads","action":"read"}]}`)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestBillingRequiresPermission(t *testing.T) {
	s := newServer(t)
	s.seed(t, subscriptions.Subscription{TenantID: "t1", PlanID: 1, Status: subscriptions.StatusActive, StartedAt: time.Now()})

	w := s.do(http.MethodPost, "/v1/billing/cancel", s.token(t, "t1", access.RoleManager, false), "")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "billing:update")

	w = s.do(http.MethodGet, "/v1/billing/payments", s.token(t, "t1", access.RoleManager, false), "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAdminRequiresPlatformAdmin(t *testing.T) {
	s := newServer(t)

	w := s.do(http.MethodGet, "/admin/subscriptions", s.token(t, "t1", access.RoleAdmin, false), "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(http.MethodGet, "/admin/subscriptions", s.token(t, "ops", access.RoleManager, true), "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(http.MethodPost, "/admin/tenants", s.token(t, "ops", access.RoleAdmin, true), `{"tenant_id":"acme"}`)
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}

func TestWebhookRoute(t *testing.T) {
	s := newServer(t)
	payload := []byte(`{"id":"evt_1","object":"event","type":"charge.refunded","created":1767225700,"data":{"object":{"id":"ch_1","object":"charge"}}}`)

	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(payload))
	req.Header.Set("Stripe-Signature", testutil.SignStripePayload(payload, webhookSecret, time.Now()))
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(payload))
	req.Header.Set("Stripe-Signature", "t=1,v1=deadbeef")
	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
