package plans

import "time"

// Plan is a billing tier with its quota limits. Nil limits are unlimited.
type Plan struct {
	ID            uint    `gorm:"primaryKey" json:"id"`
	Name          string  `gorm:"not null;uniqueIndex:idx_plans_name" json:"name"`
	DisplayName   string  `json:"display_name"`
	PriceCents    int64   `gorm:"not null;default:0" json:"price_cents"`
	Currency      string  `gorm:"type:varchar(3);not null;default:'eur'" json:"currency"`
	Interval      string  `json:"interval"`
	StripePriceID *string `gorm:"column:stripe_price_id;uniqueIndex:idx_plans_stripe_price_id" json:"stripe_price_id,omitempty"`

	MaxUsers      *int64 `json:"max_users"`
	MaxProperties *int64 `json:"max_properties"`
	MaxContacts   *int64 `json:"max_contacts"`
	HasAPI        bool   `gorm:"column:has_api" json:"has_api"`

	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

// IsFree reports whether the plan costs nothing (subscriptions start ACTIVE).
func (p *Plan) IsFree() bool {
	return p != nil && p.PriceCents == 0
}

// PriceRef returns the provider price id or "".
func (p *Plan) PriceRef() string {
	if p == nil || p.StripePriceID == nil {
		return ""
	}
	return *p.StripePriceID
}

func Limit(n int64) *int64 { return &n }
