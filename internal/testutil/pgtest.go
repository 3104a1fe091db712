// Package testutil provides shared test infrastructure for integration tests.
package testutil

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// PGTest returns a gorm handle on a throwaway PostgreSQL with models
// migrated. TEST_DB_URL points it at an existing database instead of starting a
// container; -short or a missing docker provider skips the test.
//
//	db := testutil.PGTest(t, &subscriptions.Subscription{})
func PGTest(t *testing.T, models ...any) *gorm.DB {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping postgres integration test in -short mode")
	}

	dsn := os.Getenv("TEST_DB_URL")
	if dsn == "" {
		dsn = startContainer(t)
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("pgtest: open database: %v", err)
	}
	if err := db.AutoMigrate(models...); err != nil {
		t.Fatalf("pgtest: migrate: %v", err)
	}

	t.Cleanup(func() {
		for _, m := range models {
			_ = db.Session(&gorm.Session{AllowGlobalUpdate: true}).Unscoped().Delete(m).Error
		}
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func startContainer(t *testing.T) string {
	t.Helper()
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	ctr, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("entitlements"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		tcpostgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	if err != nil {
		t.Fatalf("pgtest: start postgres container: %v", err)
	}

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("pgtest: connection string: %v", err)
	}
	return dsn
}
