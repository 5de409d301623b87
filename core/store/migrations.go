package store

import (
	"context"
	"embed"
	"fmt"
	"io/fs"

	"status-service/core/utils"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrationsFS embed.FS

func newMigrationProvider(db *DB) (*goose.Provider, error) {
	dialect := goose.DialectSQLite3
	dir := "migrations/sqlite"
	if db.IsPostgres() {
		dialect = goose.DialectPostgres
		dir = "migrations/postgres"
	}
	sub, err := fs.Sub(migrationsFS, dir)
	if err != nil {
		return nil, fmt.Errorf("migrations fs: %w", err)
	}
	provider, err := goose.NewProvider(dialect, db.DB, sub)
	if err != nil {
		return nil, fmt.Errorf("goose provider: %w", err)
	}
	return provider, nil
}

// ApplyMigrations brings the schema up to date for the database dialect.
func ApplyMigrations(ctx context.Context, db *DB, logger *utils.Logger) error {
	provider, err := newMigrationProvider(db)
	if err != nil {
		return err
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	if logger == nil {
		return nil
	}
	for _, r := range results {
		if r == nil || r.Source == nil {
			continue
		}
		logger.Printf("migrations: applied %d (%s) in %s", r.Source.Version, r.Source.Path, r.Duration)
	}
	return nil
}

// SchemaVersion reports the goose version recorded in the database.
func SchemaVersion(ctx context.Context, db *DB) (int64, error) {
	provider, err := newMigrationProvider(db)
	if err != nil {
		return 0, err
	}
	return provider.GetDBVersion(ctx)
}
