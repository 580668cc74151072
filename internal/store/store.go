// Package store persists reference entities and canonical vehicles. Two
// backends implement the same interface: Postgres (pgx) for production and
// SQLite (modernc) for local runs. All reference uniqueness is enforced by
// database constraints so idempotent duplicate creates converge instead of
// erroring.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/drivebase/catalog-cli/internal/model"
)

// PageTx is the atomic unit for one catalog page: reference get-or-creates
// and vehicle upserts either all commit or all roll back together.
type PageTx interface {
	// GetOrCreateMake resolves a manufacturer by exact name, creating it if
	// absent. Returns the ref and whether a row was created.
	GetOrCreateMake(ctx context.Context, name string) (model.Ref, bool, error)

	// GetOrCreateModel resolves a model by (make, name), creating it if absent.
	GetOrCreateModel(ctx context.Context, makeID int64, name string) (model.Ref, bool, error)

	// UpsertVehicle creates or overwrites the vehicle row keyed by external id.
	UpsertVehicle(ctx context.Context, v model.Vehicle) error

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Store is the persistence interface for the import pipeline.
type Store interface {
	// Migrate creates the schema if needed.
	Migrate(ctx context.Context) error

	// Seed creates the closed fuel and transmission enumerations, idempotently.
	Seed(ctx context.Context) (created int, err error)

	// FuelTypes returns the pre-seeded fuel enumeration keyed by name.
	FuelTypes(ctx context.Context) (map[string]model.Ref, error)

	// TransmissionTypes returns the pre-seeded transmission enumeration keyed by name.
	TransmissionTypes(ctx context.Context) (map[string]model.Ref, error)

	// Begin opens a page transaction.
	Begin(ctx context.Context) (PageTx, error)

	// Run log.
	StartRun(ctx context.Context, makeName string) (string, error)
	CompleteRun(ctx context.Context, runID string, status model.RunStatus, counts RunCounts, errMsg string) error
	ListRuns(ctx context.Context, limit int) ([]model.ImportRun, error)

	Close() error
}

// RunCounts holds the per-partition counters recorded in the run log.
type RunCounts struct {
	Processed int
	Succeeded int
	Failed    int
	Skipped   int
}

// Config selects and configures a backend.
type Config struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// Open creates a Store for the configured driver.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Driver {
	case "postgres", "":
		return NewPostgres(ctx, cfg.DatabaseURL)
	case "sqlite":
		return NewSQLite(cfg.DatabaseURL)
	default:
		return nil, eris.Errorf("store: unknown driver %q (valid: postgres, sqlite)", cfg.Driver)
	}
}
