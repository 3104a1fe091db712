package plans

import (
	"context"
	"sort"

	"crm-entitlements/internal/apperr"
)

// Catalog resolves plans. A NotFound from it is a configuration error.
type Catalog interface {
	GetByName(ctx context.Context, name string) (*Plan, error)
	GetByID(ctx context.Context, id uint) (*Plan, error)
	GetByExternalPriceRef(ctx context.Context, ref string) (*Plan, error)
	List(ctx context.Context) ([]Plan, error)
	Upsert(ctx context.Context, p *Plan) (created bool, err error)
}

func errPlanNotFound(op string) error {
	return apperr.NotFound(op, "plan not found")
}

// sortPlans orders by price ascending, then rank.
func sortPlans(list []Plan) {
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].PriceCents != list[j].PriceCents {
			return list[i].PriceCents < list[j].PriceCents
		}
		return Rank(list[i].Name) < Rank(list[j].Name)
	})
}
