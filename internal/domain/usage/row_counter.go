package usage

import (
	"context"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// Tables counted by RowCounter. The CRUD layer owns them; every row carries
// tenant_id and soft-deleted rows have deleted_at set.
var (
	PropertiesTable = "properties"
	ContactsTable   = "contacts"
	UsersTable      = "users"
)

// RowCounter counts live rows on demand.
type RowCounter struct {
	db *gorm.DB
}

func NewRowCounter(db *gorm.DB) *RowCounter {
	return &RowCounter{db: db}
}

func (r *RowCounter) Usage(ctx context.Context, tenantID string) (Snapshot, error) {
	snap := Snapshot{Source: SourceLive}

	g, ctx := errgroup.WithContext(ctx)
	for table, dst := range map[string]*int64{
		PropertiesTable: &snap.Properties,
		ContactsTable:   &snap.Contacts,
		UsersTable:      &snap.Users,
	} {
		g.Go(func() error {
			return r.db.WithContext(ctx).
				Table(table).
				Where("tenant_id = ? AND deleted_at IS NULL", tenantID).
				Count(dst).Error
		})
	}
	if err := g.Wait(); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}
