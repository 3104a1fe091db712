// Package billing records what the payment provider told us: processed
// webhook events and invoice outcomes.
package billing

import (
	"context"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Ledger is append-only; every write is idempotent.
type Ledger interface {
	IsProcessed(ctx context.Context, eventID string) (bool, error)
	MarkProcessed(ctx context.Context, eventID, kind, outcome string) error
	RecordPayment(ctx context.Context, p *Payment) error
	ListPayments(ctx context.Context, tenantID string) ([]Payment, error)
}

// GormLedger stores the ledger in PostgreSQL.
type GormLedger struct {
	db *gorm.DB
}

func NewGormLedger(db *gorm.DB) *GormLedger {
	return &GormLedger{db: db}
}

func (g *GormLedger) IsProcessed(ctx context.Context, eventID string) (bool, error) {
	var n int64
	err := g.db.WithContext(ctx).Model(&ProcessedEvent{}).Where("event_id = ?", eventID).Count(&n).Error
	return n > 0, err
}

func (g *GormLedger) MarkProcessed(ctx context.Context, eventID, kind, outcome string) error {
	return g.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&ProcessedEvent{
		EventID:     eventID,
		Kind:        kind,
		Outcome:     outcome,
		ProcessedAt: time.Now(),
	}).Error
}

func (g *GormLedger) RecordPayment(ctx context.Context, p *Payment) error {
	return g.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(p).Error
}

func (g *GormLedger) ListPayments(ctx context.Context, tenantID string) ([]Payment, error) {
	var list []Payment
	err := g.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("occurred_at DESC").
		Find(&list).Error
	return list, err
}

// MemoryLedger is the in-memory ledger for development and tests.
type MemoryLedger struct {
	mu       sync.Mutex
	events   map[string]ProcessedEvent
	payments map[string]Payment // invoice|status
	nextID   uint
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		events:   make(map[string]ProcessedEvent),
		payments: make(map[string]Payment),
	}
}

func (m *MemoryLedger) IsProcessed(_ context.Context, eventID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.events[eventID]
	return ok, nil
}

func (m *MemoryLedger) MarkProcessed(_ context.Context, eventID, kind, outcome string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.events[eventID]; !ok {
		m.events[eventID] = ProcessedEvent{EventID: eventID, Kind: kind, Outcome: outcome, ProcessedAt: time.Now()}
	}
	return nil
}

func (m *MemoryLedger) RecordPayment(_ context.Context, p *Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := p.StripeInvoiceID + "|" + p.Status
	if _, ok := m.payments[key]; ok {
		return nil
	}
	m.nextID++
	p.ID = m.nextID
	p.CreatedAt = time.Now()
	m.payments[key] = *p
	return nil
}

func (m *MemoryLedger) ListPayments(_ context.Context, tenantID string) ([]Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Payment
	for _, p := range m.payments {
		if p.TenantID == tenantID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OccurredAt.After(out[j].OccurredAt) })
	return out, nil
}

var (
	_ Ledger = (*GormLedger)(nil)
	_ Ledger = (*MemoryLedger)(nil)
)
