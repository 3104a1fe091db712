package stripe

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	stripego "github.com/stripe/stripe-go/v75"

	"crm-entitlements/internal/domain/plans"
)

// Price is an active recurring price as offered by the provider.
type Price struct {
	PriceID     string
	ProductID   string
	ProductName string
	Currency    string
	UnitAmount  int64
	Interval    string
	Metadata    map[string]string
}

// ListRecurringPrices returns active recurring prices of active products,
// optionally restricted to one product.
func (g *Gateway) ListRecurringPrices(ctx context.Context, productID string) ([]Price, error) {
	params := &stripego.PriceListParams{}
	params.Active = stripego.Bool(true)
	params.Type = stripego.String("recurring")
	if productID != "" {
		params.Product = stripego.String(productID)
	}
	params.AddExpand("data.product")
	params.Context = ctx

	var out []Price
	err := observe("list_prices", func() error {
		it := g.api.Prices.List(params)
		for it.Next() {
			p := it.Price()
			if !p.Active || p.Recurring == nil {
				continue
			}
			if p.Product == nil || !p.Product.Active {
				continue
			}
			if p.Metadata["visible"] == "false" {
				continue
			}
			out = append(out, Price{
				PriceID:     p.ID,
				ProductID:   p.Product.ID,
				ProductName: p.Product.Name,
				Currency:    string(p.Currency),
				UnitAmount:  p.UnitAmount,
				Interval:    string(p.Recurring.Interval),
				Metadata:    p.Metadata,
			})
		}
		return it.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("list prices: %w", err)
	}
	return out, nil
}

// Plan builds a catalog plan from price metadata. The plan name comes from
// metadata "plan" (falling back to the product name) and must be a known
// tier; limits come from max_users, max_properties and max_contacts, where
// a missing or "unlimited" value means no limit.
func (p Price) Plan() (plans.Plan, error) {
	name := plans.NormalizeName(p.Metadata["plan"])
	if name == "" {
		name = plans.NormalizeName(p.ProductName)
	}
	if plans.Rank(name) < 0 {
		return plans.Plan{}, fmt.Errorf("price %s: unknown plan %q", p.PriceID, name)
	}

	plan := plans.Plan{
		Name:          name,
		DisplayName:   p.ProductName,
		PriceCents:    p.UnitAmount,
		Currency:      p.Currency,
		Interval:      p.Interval,
		StripePriceID: stripego.String(p.PriceID),
		HasAPI:        p.Metadata["has_api"] == "true",
	}
	var err error
	if plan.MaxUsers, err = limitFrom(p.Metadata, "max_users"); err != nil {
		return plans.Plan{}, err
	}
	if plan.MaxProperties, err = limitFrom(p.Metadata, "max_properties"); err != nil {
		return plans.Plan{}, err
	}
	if plan.MaxContacts, err = limitFrom(p.Metadata, "max_contacts"); err != nil {
		return plans.Plan{}, err
	}
	return plan, nil
}

func limitFrom(md map[string]string, key string) (*int64, error) {
	raw := strings.TrimSpace(md[key])
	if raw == "" || strings.EqualFold(raw, "unlimited") {
		return nil, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n < 0 {
		return nil, fmt.Errorf("metadata %s=%q is not a limit", key, raw)
	}
	return plans.Limit(n), nil
}
