package db

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"sync"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

const migrationDir = "migrations"

var gooseInit sync.Once
var gooseInitErr error

// goose keeps its FS and dialect in package globals.
func setupGoose() error {
	gooseInit.Do(func() {
		goose.SetBaseFS(migrationFiles)
		gooseInitErr = goose.SetDialect("postgres")
	})
	return gooseInitErr
}

// RunMigrations applies every pending migration. A nil pool is a no-op so the
// in-memory mode can share the call site.
func RunMigrations(ctx context.Context, pool *sql.DB) error {
	if pool == nil {
		return nil
	}
	if err := setupGoose(); err != nil {
		return err
	}
	return goose.UpContext(ctx, pool, migrationDir)
}

// RollbackMigration reverts the most recent migration.
func RollbackMigration(ctx context.Context, pool *sql.DB) error {
	if pool == nil {
		return errors.New("rollback requires a database")
	}
	if err := setupGoose(); err != nil {
		return err
	}
	return goose.DownContext(ctx, pool, migrationDir)
}

// MigrationVersion reports the applied schema version.
func MigrationVersion(ctx context.Context, pool *sql.DB) (int64, error) {
	if pool == nil {
		return 0, errors.New("version requires a database")
	}
	if err := setupGoose(); err != nil {
		return 0, err
	}
	v, err := goose.GetDBVersionContext(ctx, pool)
	if err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return v, nil
}

// LatestMigration is the highest version embedded in the binary.
func LatestMigration() (int64, error) {
	if err := setupGoose(); err != nil {
		return 0, err
	}
	all, err := goose.CollectMigrations(migrationDir, 0, goose.MaxVersion)
	if err != nil {
		return 0, err
	}
	last, err := all.Last()
	if err != nil {
		return 0, err
	}
	return last.Version, nil
}
