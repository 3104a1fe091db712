// Package subscriptions holds the durable per-tenant subscription record.
package subscriptions

import (
	"errors"
	"fmt"
	"time"
)

type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusPending  Status = "PENDING"
	StatusPastDue  Status = "PAST_DUE"
	StatusCanceled Status = "CANCELED"
	StatusExpired  Status = "EXPIRED"
)

func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusPending, StatusPastDue, StatusCanceled, StatusExpired:
		return true
	}
	return false
}

// progress orders statuses along the lifecycle for events that share a stamp.
func (s Status) progress() int {
	switch s {
	case StatusPending:
		return 0
	case StatusActive, StatusPastDue:
		return 1
	default:
		return 2
	}
}

var (
	ErrAlreadyExists = errors.New("subscriptions: tenant already has a subscription")
	ErrConflict      = errors.New("subscriptions: concurrent update")
	ErrInvalid       = errors.New("subscriptions: invalid record")
)

// Subscription binds one tenant to one plan. TenantID is both owner and key.
type Subscription struct {
	TenantID string `gorm:"primaryKey;type:varchar(64)" json:"tenant_id"`
	PlanID   uint   `gorm:"not null;index" json:"plan_id"`
	Status   Status `gorm:"type:varchar(16);not null;index" json:"status"`

	StartedAt  time.Time  `gorm:"not null" json:"started_at"`
	ExpiresAt  *time.Time `json:"expires_at"`
	RenewedAt  *time.Time `json:"renewed_at"`
	CanceledAt *time.Time `json:"canceled_at"`

	StripeCustomerID     *string `gorm:"column:stripe_customer_id;uniqueIndex:idx_subscriptions_stripe_customer_id" json:"-"`
	StripeSubscriptionID *string `gorm:"column:stripe_subscription_id;uniqueIndex:idx_subscriptions_stripe_subscription_id" json:"-"`

	// LastEventAt is the provider timestamp of the newest applied event.
	// Older events never overwrite a newer one.
	LastEventAt *time.Time `gorm:"column:last_event_at" json:"-"`
	Version     int64      `gorm:"not null;default:0" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks the record invariants.
func (s *Subscription) Validate() error {
	if s.TenantID == "" {
		return fmt.Errorf("%w: missing tenant", ErrInvalid)
	}
	if !s.Status.Valid() {
		return fmt.Errorf("%w: status %q", ErrInvalid, s.Status)
	}
	if s.ExpiresAt != nil && s.ExpiresAt.Before(s.StartedAt) {
		return fmt.Errorf("%w: expires before start", ErrInvalid)
	}
	if (s.CanceledAt != nil) != (s.Status == StatusCanceled) {
		return fmt.Errorf("%w: canceled_at must be set exactly when canceled", ErrInvalid)
	}
	return nil
}

// GatewayLinked reports whether the provider owns billing for this subscription.
func (s *Subscription) GatewayLinked() bool {
	return s.StripeSubscriptionID != nil && *s.StripeSubscriptionID != ""
}

// CustomerRef returns the provider customer id or "".
func (s *Subscription) CustomerRef() string {
	if s.StripeCustomerID == nil {
		return ""
	}
	return *s.StripeCustomerID
}

// SubscriptionRef returns the provider subscription id or "".
func (s *Subscription) SubscriptionRef() string {
	if s.StripeSubscriptionID == nil {
		return ""
	}
	return *s.StripeSubscriptionID
}

// Elapsed reports whether the validity window has closed at now.
func (s *Subscription) Elapsed(now time.Time) bool {
	return s.ExpiresAt != nil && !s.ExpiresAt.After(now)
}

// StaleFor reports whether an event stamped at, moving the record to status,
// must not be applied. Provider stamps have one-second resolution, so on a
// tie the status further along the lifecycle wins: a late "incomplete"
// never undoes an "active" sent in the same second.
func (s *Subscription) StaleFor(at time.Time, status Status) bool {
	switch {
	case s.LastEventAt == nil:
		return false
	case s.LastEventAt.Equal(at):
		return status.progress() < s.Status.progress()
	default:
		return s.LastEventAt.After(at)
	}
}

func (s *Subscription) clone() *Subscription {
	cp := *s
	return &cp
}
