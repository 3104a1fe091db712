package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crm-entitlements/internal/app/http/middleware"
	"crm-entitlements/internal/domain/access"
	"crm-entitlements/internal/domain/billing"
	"crm-entitlements/internal/domain/gate"
	"crm-entitlements/internal/domain/lifecycle"
	"crm-entitlements/internal/domain/plans"
	"crm-entitlements/internal/domain/subscriptions"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type stubGateway struct {
	checkouts []lifecycle.CheckoutRequest
}

func (g *stubGateway) CreateCustomer(context.Context, string, string, string) (string, error) {
	return "cus_1", nil
}

func (g *stubGateway) CreateCheckoutSession(_ context.Context, req lifecycle.CheckoutRequest) (string, error) {
	g.checkouts = append(g.checkouts, req)
	return "https://checkout.example/s/1", nil
}

func (g *stubGateway) UpdateSubscription(context.Context, string, string) (*lifecycle.ProviderSubscription, error) {
	return nil, nil
}

func (g *stubGateway) CancelSubscription(context.Context, string) error { return nil }

func (g *stubGateway) CreatePortalSession(_ context.Context, customerRef, _ string) (string, error) {
	return "https://portal.example/" + customerRef, nil
}

func (g *stubGateway) RetrieveSubscription(context.Context, string) (*lifecycle.ProviderSubscription, error) {
	return nil, nil
}

type env struct {
	router *gin.Engine
	subs   *subscriptions.MemoryStore
	ledger *billing.MemoryLedger
	gw     *stubGateway
}

func newEnv(t *testing.T) *env {
	t.Helper()
	seed := plans.Defaults()
	ref := "price_starter"
	seed[1].StripePriceID = &ref
	catalog := plans.NewMemoryCatalog(seed...)

	e := &env{
		subs:   subscriptions.NewMemoryStore(),
		ledger: billing.NewMemoryLedger(),
		gw:     &stubGateway{},
	}
	nop := zerolog.Nop()
	orch := lifecycle.New(e.subs, catalog, e.ledger, lifecycle.Options{
		Gateway: e.gw,
		Logger:  &nop,
		Now:     func() time.Time { return now },
	})
	_, err := orch.Provision(context.Background(), "t1", plans.NameFree)
	require.NoError(t, err)

	h := NewHandler(orch, catalog, e.ledger, "https://app.example")
	r := gin.New()
	r.Use(func(c *gin.Context) {
		middleware.SetActor(c, &gate.Actor{TenantID: "t1", Subject: "u1", Role: access.RoleAdmin})
	})
	r.GET("/subscription", h.GetSubscription)
	r.POST("/checkout", h.CreateCheckoutSession)
	r.POST("/portal", h.CreateBillingPortal)
	r.POST("/upgrade", h.Upgrade)
	r.POST("/renew", h.Renew)
	r.POST("/cancel", h.Cancel)
	r.GET("/payments", h.GetPaymentHistory)
	e.router = r
	return e
}

func (e *env) do(method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestGetSubscription_FreePlanIsActive(t *testing.T) {
	e := newEnv(t)

	w := e.do(http.MethodGet, "/subscription", nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	assert.Equal(t, "ACTIVE", body["status"])
	assert.Equal(t, "ACTIVE", body["label"])
	assert.Equal(t, true, body["valid"])
	assert.Equal(t, plans.NameFree, body["plan"].(map[string]any)["name"])
}

func TestUpgrade_ExtendsAndReportsPlan(t *testing.T) {
	e := newEnv(t)

	w := e.do(http.MethodPost, "/upgrade", gin.H{"plan": "starter"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	sub, err := e.subs.Get(context.Background(), "t1")
	require.NoError(t, err)
	require.NotNil(t, sub.ExpiresAt)
	assert.Equal(t, now.Add(lifecycle.RenewalPeriod), *sub.ExpiresAt)
	assert.Equal(t, plans.NameStarter, decode(t, w)["plan"].(map[string]any)["name"])
}

func TestUpgrade_LowerPlanRejected(t *testing.T) {
	e := newEnv(t)
	require.Equal(t, http.StatusOK, e.do(http.MethodPost, "/upgrade", gin.H{"plan": "STARTER"}).Code)

	w := e.do(http.MethodPost, "/upgrade", gin.H{"plan": "FREE"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_transition", decode(t, w)["error"])
}

func TestUpgrade_MissingPlanIsBadRequest(t *testing.T) {
	e := newEnv(t)
	w := e.do(http.MethodPost, "/upgrade", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpgrade_UnknownPlanIsNotFound(t *testing.T) {
	e := newEnv(t)
	w := e.do(http.MethodPost, "/upgrade", gin.H{"plan": "PLATINUM"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCancelThenRenew(t *testing.T) {
	e := newEnv(t)

	w := e.do(http.MethodPost, "/cancel", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "CANCELLED", decode(t, w)["label"])

	again := e.do(http.MethodPost, "/cancel", nil)
	assert.Equal(t, http.StatusBadRequest, again.Code)

	w = e.do(http.MethodPost, "/renew", gin.H{"plan": "STARTER"})
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "ACTIVE", body["status"])
	assert.Nil(t, body["canceled_at"])
}

func TestCheckout_PaidPlanReturnsURL(t *testing.T) {
	e := newEnv(t)

	w := e.do(http.MethodPost, "/checkout", gin.H{"plan": "STARTER", "email": "a@b.c"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "https://checkout.example/s/1", decode(t, w)["url"])

	require.Len(t, e.gw.checkouts, 1)
	got := e.gw.checkouts[0]
	assert.Equal(t, "t1", got.TenantID)
	assert.Equal(t, "price_starter", got.PriceRef)
	assert.Equal(t, "https://app.example/account", got.SuccessURL)

	sub, err := e.subs.Get(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, "cus_1", sub.CustomerRef())
}

func TestCheckout_PlanWithoutPriceRejected(t *testing.T) {
	e := newEnv(t)
	w := e.do(http.MethodPost, "/checkout", gin.H{"plan": "PROFESSIONAL"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, e.gw.checkouts)
}

func TestPortal_RequiresCustomer(t *testing.T) {
	e := newEnv(t)
	assert.Equal(t, http.StatusBadRequest, e.do(http.MethodPost, "/portal", nil).Code)

	require.Equal(t, http.StatusOK, e.do(http.MethodPost, "/checkout", gin.H{"plan": "STARTER"}).Code)
	w := e.do(http.MethodPost, "/portal", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://portal.example/cus_1", decode(t, w)["url"])
}

func TestGetPaymentHistory(t *testing.T) {
	e := newEnv(t)

	w := e.do(http.MethodGet, "/payments", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())

	require.NoError(t, e.ledger.RecordPayment(context.Background(), &billing.Payment{
		TenantID: "t1", StripeInvoiceID: "in_1", AmountCents: 2900, Currency: "eur",
		Status: billing.PaymentPaid, OccurredAt: now,
	}))
	require.NoError(t, e.ledger.RecordPayment(context.Background(), &billing.Payment{
		TenantID: "t2", StripeInvoiceID: "in_2", Status: billing.PaymentPaid, OccurredAt: now,
	}))

	w = e.do(http.MethodGet, "/payments", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "in_1", list[0]["invoice_id"])
}
