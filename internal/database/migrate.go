package database

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"time"

	"github.com/pressly/goose/v3"
	"gorm.io/gorm"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationsFS embed.FS

// MigrationState describes one migration as reported by Status.
type MigrationState struct {
	Version   int64
	Path      string
	Applied   bool
	AppliedAt time.Time
}

// AppliedMigration describes one migration executed by Migrate.
type AppliedMigration struct {
	Version  int64
	Path     string
	Duration time.Duration
}

func newProvider(db *gorm.DB) (*goose.Provider, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	var (
		dialect goose.Dialect
		dir     string
	)
	switch db.Dialector.Name() {
	case "postgres":
		dialect, dir = goose.DialectPostgres, "migrations/postgres"
	case "sqlite":
		dialect, dir = goose.DialectSQLite3, "migrations/sqlite"
	default:
		return nil, fmt.Errorf("no migrations for dialect %q", db.Dialector.Name())
	}

	sub, err := fs.Sub(migrationsFS, dir)
	if err != nil {
		return nil, err
	}
	return goose.NewProvider(dialect, sqlDB, sub)
}

// Migrate applies every pending migration for the connected dialect.
func Migrate(ctx context.Context, db *gorm.DB) ([]AppliedMigration, error) {
	provider, err := newProvider(db)
	if err != nil {
		return nil, fmt.Errorf("init migrations: %w", err)
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return nil, fmt.Errorf("apply migrations: %w", err)
	}
	applied := make([]AppliedMigration, 0, len(results))
	for _, res := range results {
		applied = append(applied, AppliedMigration{
			Version:  res.Source.Version,
			Path:     res.Source.Path,
			Duration: res.Duration,
		})
	}
	return applied, nil
}

func Status(ctx context.Context, db *gorm.DB) ([]MigrationState, error) {
	provider, err := newProvider(db)
	if err != nil {
		return nil, fmt.Errorf("init migrations: %w", err)
	}
	statuses, err := provider.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("migration status: %w", err)
	}
	out := make([]MigrationState, 0, len(statuses))
	for _, st := range statuses {
		out = append(out, MigrationState{
			Version:   st.Source.Version,
			Path:      st.Source.Path,
			Applied:   st.State == goose.StateApplied,
			AppliedAt: st.AppliedAt,
		})
	}
	return out, nil
}
