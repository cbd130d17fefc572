package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/tqserver/core/internal/store/migrations"
)

var gooseOnce sync.Once

// RunMigrations applies every pending goose migration embedded in
// internal/store/migrations, grounded on the teacher's
// internal/db/migrate.go.
func RunMigrations(ctx context.Context, dsn string) error {
	sqlDB, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("store: opening migration connection: %w", err)
	}
	defer sqlDB.Close()

	var setupErr error
	gooseOnce.Do(func() {
		goose.SetBaseFS(migrations.FS)
		setupErr = goose.SetDialect("postgres")
	})
	if setupErr != nil {
		return fmt.Errorf("store: setting goose dialect: %w", setupErr)
	}

	if err := goose.UpContext(ctx, sqlDB, "."); err != nil {
		return fmt.Errorf("store: running migrations: %w", err)
	}
	return nil
}
