// Package database opens the PostgreSQL connection and prepares the schema.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"crm-entitlements/internal/domain/billing"
	"crm-entitlements/internal/domain/plans"
	"crm-entitlements/internal/domain/subscriptions"
)

// Models are the tables this service owns.
func Models() []any {
	return []any{
		&plans.Plan{},
		&subscriptions.Subscription{},
		&billing.Payment{},
		&billing.ProcessedEvent{},
	}
}

// Open connects to dsn and bounds the pool.
func Open(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("database: DB_URL not set")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("database: connect: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("database: pool: %w", err)
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	return db, nil
}

// Migrate creates or updates the service tables.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("database: automigrate: %w", err)
	}
	log.Info().Msg("database migrated")
	return nil
}

// SeedPlans inserts the default catalog into an empty plans table. An
// existing catalog is left untouched.
func SeedPlans(ctx context.Context, db *gorm.DB) error {
	var n int64
	if err := db.WithContext(ctx).Model(&plans.Plan{}).Count(&n).Error; err != nil {
		return fmt.Errorf("database: count plans: %w", err)
	}
	if n > 0 {
		return nil
	}

	seed := plans.Defaults()
	if err := db.WithContext(ctx).Create(&seed).Error; err != nil {
		return fmt.Errorf("database: seed plans: %w", err)
	}
	log.Info().Int("plans", len(seed)).Msg("seeded default plan catalog")
	return nil
}
