package billing

import "time"

const (
	PaymentPaid   = "paid"
	PaymentFailed = "failed"
)

// Payment is one invoice outcome reported by the provider. An invoice can
// fail and later succeed, so (invoice, status) is the unique key.
type Payment struct {
	ID                   uint      `gorm:"primaryKey" json:"id"`
	TenantID             string    `gorm:"type:varchar(64);not null;index" json:"-"`
	PlanID               *uint     `json:"plan_id,omitempty"`
	StripeInvoiceID      string    `gorm:"not null;uniqueIndex:idx_payments_invoice_status" json:"invoice_id"`
	StripeSubscriptionID *string   `json:"-"`
	AmountCents          int64     `json:"amount_cents"`
	Currency             string    `gorm:"type:varchar(3)" json:"currency"`
	Status               string    `gorm:"type:varchar(16);not null;uniqueIndex:idx_payments_invoice_status" json:"status"`
	ReceiptURL           *string   `json:"receipt_url,omitempty"`
	OccurredAt           time.Time `json:"occurred_at"`
	CreatedAt            time.Time `json:"-"`
}

// ProcessedEvent remembers provider event ids that were fully handled.
type ProcessedEvent struct {
	EventID     string    `gorm:"primaryKey;type:varchar(255)"`
	Kind        string    `gorm:"type:varchar(64)"`
	Outcome     string    `gorm:"type:varchar(32)"`
	ProcessedAt time.Time `gorm:"not null"`
}
