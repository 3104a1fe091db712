package subscriptions

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore persists subscriptions in PostgreSQL.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (g *GormStore) Create(ctx context.Context, s *Subscription) error {
	if err := s.Validate(); err != nil {
		return err
	}
	err := g.db.WithContext(ctx).Create(s).Error
	if isUniqueViolation(err) {
		return ErrAlreadyExists
	}
	return err
}

func (g *GormStore) Get(ctx context.Context, tenantID string) (*Subscription, error) {
	return g.first(ctx, g.db, "subscriptions.get", "tenant_id = ?", tenantID)
}

func (g *GormStore) GetByStripeSubscriptionID(ctx context.Context, ref string) (*Subscription, error) {
	if ref == "" {
		return nil, errNotFound("subscriptions.get_by_stripe_id")
	}
	return g.first(ctx, g.db, "subscriptions.get_by_stripe_id", "stripe_subscription_id = ?", ref)
}

func (g *GormStore) List(ctx context.Context) ([]Subscription, error) {
	var list []Subscription
	err := g.db.WithContext(ctx).Order("tenant_id ASC").Find(&list).Error
	return list, err
}

// Update locks the tenant row (SELECT ... FOR UPDATE) for the duration of
// fn and guards the write with the version it read.
func (g *GormStore) Update(ctx context.Context, tenantID string, fn func(*Subscription) error) (*Subscription, error) {
	var out *Subscription
	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cur, err := g.first(ctx, tx.Clauses(clause.Locking{Strength: "UPDATE"}), "subscriptions.update", "tenant_id = ?", tenantID)
		if err != nil {
			return err
		}
		read := cur.Version

		if err := fn(cur); err != nil {
			return err
		}
		cur.TenantID = tenantID
		if err := cur.Validate(); err != nil {
			return err
		}
		cur.Version = read + 1

		res := tx.Model(&Subscription{}).
			Where("tenant_id = ? AND version = ?", tenantID, read).
			Select("*").Omit("tenant_id", "created_at").
			Updates(cur)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrConflict
		}
		out = cur
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (g *GormStore) first(ctx context.Context, db *gorm.DB, op, query string, arg any) (*Subscription, error) {
	var s Subscription
	err := db.WithContext(ctx).Where(query, arg).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errNotFound(op)
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// isUniqueViolation matches SQLSTATE 23505 without importing the driver.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return strings.Contains(err.Error(), "23505")
}

var _ Store = (*GormStore)(nil)
