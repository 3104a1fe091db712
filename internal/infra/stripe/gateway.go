// Package stripe is the billing gateway backed by the Stripe API.
package stripe

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	stripego "github.com/stripe/stripe-go/v75"
	"github.com/stripe/stripe-go/v75/client"

	"crm-entitlements/internal/domain/lifecycle"
	"crm-entitlements/internal/metrics"
)

type Config struct {
	SecretKey string
	Timeout   time.Duration
	// BaseURL overrides the API endpoint, used against stub servers.
	BaseURL string
	AppEnv  string
}

// Gateway implements lifecycle.Gateway on a per-instance Stripe client.
type Gateway struct {
	api    *client.API
	appEnv string
}

func New(cfg Config) (*Gateway, error) {
	if cfg.SecretKey == "" {
		return nil, errors.New("stripe: secret key not configured")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	backendCfg := &stripego.BackendConfig{
		HTTPClient:        &http.Client{Timeout: timeout},
		MaxNetworkRetries: stripego.Int64(1),
		LeveledLogger:     &stripego.LeveledLogger{Level: stripego.LevelError},
	}
	if cfg.BaseURL != "" {
		backendCfg.URL = stripego.String(cfg.BaseURL)
		backendCfg.MaxNetworkRetries = stripego.Int64(0)
	}

	backends := &stripego.Backends{
		API:     stripego.GetBackendWithConfig(stripego.APIBackend, backendCfg),
		Connect: stripego.GetBackendWithConfig(stripego.ConnectBackend, backendCfg),
		Uploads: stripego.GetBackendWithConfig(stripego.UploadsBackend, backendCfg),
	}
	return &Gateway{api: client.New(cfg.SecretKey, backends), appEnv: cfg.AppEnv}, nil
}

func observe(op string, fn func() error) error {
	start := time.Now()
	err := fn()
	metrics.GatewayCallDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	metrics.GatewayCallsTotal.WithLabelValues(op, metrics.Result(err)).Inc()
	return err
}

func (g *Gateway) CreateCustomer(ctx context.Context, email, name, tenantID string) (string, error) {
	params := &stripego.CustomerParams{
		Metadata: map[string]string{
			lifecycle.MetadataTenantID: tenantID,
			"app_env":                  g.appEnv,
		},
	}
	if email != "" {
		params.Email = stripego.String(email)
	}
	if name != "" {
		params.Name = stripego.String(name)
	}
	params.Context = ctx

	var id string
	err := observe("create_customer", func() error {
		cus, err := g.api.Customers.New(params)
		if err != nil {
			return err
		}
		id = cus.ID
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("create customer: %w", err)
	}
	return id, nil
}

// CreateCheckoutSession stamps the tenant on the session and on the
// subscription it creates, so later webhooks carry it in metadata.
func (g *Gateway) CreateCheckoutSession(ctx context.Context, req lifecycle.CheckoutRequest) (string, error) {
	params := &stripego.CheckoutSessionParams{
		SuccessURL: stripego.String(req.SuccessURL),
		CancelURL:  stripego.String(req.CancelURL),
		Mode:       stripego.String(string(stripego.CheckoutSessionModeSubscription)),
		Customer:   stripego.String(req.CustomerRef),
		LineItems: []*stripego.CheckoutSessionLineItemParams{
			{Price: stripego.String(req.PriceRef), Quantity: stripego.Int64(1)},
		},
		ClientReferenceID: stripego.String(req.TenantID),
		SubscriptionData: &stripego.CheckoutSessionSubscriptionDataParams{
			Metadata: map[string]string{lifecycle.MetadataTenantID: req.TenantID},
		},
	}
	params.AddMetadata(lifecycle.MetadataTenantID, req.TenantID)
	params.Context = ctx

	var url string
	err := observe("create_checkout_session", func() error {
		s, err := g.api.CheckoutSessions.New(params)
		if err != nil {
			return err
		}
		url = s.URL
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("create checkout session: %w", err)
	}
	return url, nil
}

// UpdateSubscription swaps the subscription's single item to priceRef,
// prorated immediately.
func (g *Gateway) UpdateSubscription(ctx context.Context, subRef, priceRef string) (*lifecycle.ProviderSubscription, error) {
	var out *lifecycle.ProviderSubscription
	err := observe("update_subscription", func() error {
		getParams := &stripego.SubscriptionParams{}
		getParams.Context = ctx
		sub, err := g.api.Subscriptions.Get(subRef, getParams)
		if err != nil {
			return err
		}
		if sub.Items == nil || len(sub.Items.Data) == 0 {
			return fmt.Errorf("subscription %s has no items", subRef)
		}

		params := &stripego.SubscriptionParams{
			Items: []*stripego.SubscriptionItemsParams{
				{ID: stripego.String(sub.Items.Data[0].ID), Price: stripego.String(priceRef)},
			},
			ProrationBehavior: stripego.String("create_prorations"),
		}
		params.Context = ctx
		updated, err := g.api.Subscriptions.Update(subRef, params)
		if err != nil {
			return err
		}
		out = FromSubscription(updated)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("update subscription: %w", err)
	}
	return out, nil
}

func (g *Gateway) CancelSubscription(ctx context.Context, subRef string) error {
	params := &stripego.SubscriptionCancelParams{}
	params.Context = ctx
	err := observe("cancel_subscription", func() error {
		_, err := g.api.Subscriptions.Cancel(subRef, params)
		return err
	})
	if err != nil {
		return fmt.Errorf("cancel subscription: %w", err)
	}
	return nil
}

func (g *Gateway) CreatePortalSession(ctx context.Context, customerRef, returnURL string) (string, error) {
	params := &stripego.BillingPortalSessionParams{
		Customer:  stripego.String(customerRef),
		ReturnURL: stripego.String(returnURL),
	}
	params.Context = ctx

	var url string
	err := observe("create_portal_session", func() error {
		s, err := g.api.BillingPortalSessions.New(params)
		if err != nil {
			return err
		}
		url = s.URL
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("create portal session: %w", err)
	}
	return url, nil
}

func (g *Gateway) RetrieveSubscription(ctx context.Context, subRef string) (*lifecycle.ProviderSubscription, error) {
	params := &stripego.SubscriptionParams{}
	params.Context = ctx

	var out *lifecycle.ProviderSubscription
	err := observe("retrieve_subscription", func() error {
		sub, err := g.api.Subscriptions.Get(subRef, params)
		if err != nil {
			return err
		}
		out = FromSubscription(sub)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("retrieve subscription: %w", err)
	}
	return out, nil
}

// FromSubscription translates a Stripe subscription into local terms.
func FromSubscription(sub *stripego.Subscription) *lifecycle.ProviderSubscription {
	ps := &lifecycle.ProviderSubscription{
		ID:       sub.ID,
		Status:   LocalStatus(sub.Status),
		Metadata: sub.Metadata,
	}
	if sub.Customer != nil {
		ps.CustomerID = sub.Customer.ID
	}
	if sub.Items != nil && len(sub.Items.Data) > 0 && sub.Items.Data[0].Price != nil {
		ps.PriceID = sub.Items.Data[0].Price.ID
	}
	if sub.CurrentPeriodStart > 0 {
		ps.PeriodStart = time.Unix(sub.CurrentPeriodStart, 0).UTC()
	}
	if sub.CurrentPeriodEnd > 0 {
		ps.PeriodEnd = time.Unix(sub.CurrentPeriodEnd, 0).UTC()
	}
	return ps
}

var _ lifecycle.Gateway = (*Gateway)(nil)
