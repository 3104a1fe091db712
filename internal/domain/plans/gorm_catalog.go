package plans

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// GormCatalog reads plans from the plans table.
type GormCatalog struct {
	db *gorm.DB
}

func NewGormCatalog(db *gorm.DB) *GormCatalog {
	return &GormCatalog{db: db}
}

func (g *GormCatalog) GetByName(ctx context.Context, name string) (*Plan, error) {
	return g.first(ctx, "catalog.get_by_name", "name = ?", NormalizeName(name))
}

func (g *GormCatalog) GetByID(ctx context.Context, id uint) (*Plan, error) {
	return g.first(ctx, "catalog.get_by_id", "id = ?", id)
}

func (g *GormCatalog) GetByExternalPriceRef(ctx context.Context, ref string) (*Plan, error) {
	if ref == "" {
		return nil, errPlanNotFound("catalog.get_by_price")
	}
	return g.first(ctx, "catalog.get_by_price", "stripe_price_id = ?", ref)
}

func (g *GormCatalog) List(ctx context.Context) ([]Plan, error) {
	var list []Plan
	if err := g.db.WithContext(ctx).Order("price_cents ASC").Find(&list).Error; err != nil {
		return nil, err
	}
	sortPlans(list)
	return list, nil
}

// Upsert creates or updates a plan keyed on its name.
func (g *GormCatalog) Upsert(ctx context.Context, p *Plan) (bool, error) {
	p.Name = NormalizeName(p.Name)

	var existing Plan
	err := g.db.WithContext(ctx).Where("name = ?", p.Name).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return true, g.db.WithContext(ctx).Create(p).Error
	}
	if err != nil {
		return false, err
	}

	p.ID = existing.ID
	p.CreatedAt = existing.CreatedAt
	return false, g.db.WithContext(ctx).Save(p).Error
}

func (g *GormCatalog) first(ctx context.Context, op, query string, arg any) (*Plan, error) {
	var p Plan
	err := g.db.WithContext(ctx).Where(query, arg).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errPlanNotFound(op)
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

var _ Catalog = (*GormCatalog)(nil)
