package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/drivebase/catalog-cli/internal/db"
	"github.com/drivebase/catalog-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS makes (
	id      BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
	name    TEXT NOT NULL UNIQUE,
	name_ru TEXT NOT NULL DEFAULT '',
	name_kr TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS models (
	id      BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
	make_id BIGINT NOT NULL REFERENCES makes(id) ON DELETE CASCADE,
	name    TEXT NOT NULL,
	name_ru TEXT NOT NULL DEFAULT '',
	name_kr TEXT NOT NULL DEFAULT '',
	UNIQUE (make_id, name)
);

CREATE TABLE IF NOT EXISTS fuels (
	id      BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
	name    TEXT NOT NULL UNIQUE,
	name_ru TEXT NOT NULL DEFAULT '',
	name_kr TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS transmissions (
	id      BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
	name    TEXT NOT NULL UNIQUE,
	name_ru TEXT NOT NULL DEFAULT '',
	name_kr TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS vehicles (
	id              BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
	external_id     TEXT NOT NULL UNIQUE,
	make_id         BIGINT NOT NULL REFERENCES makes(id),
	model_id        BIGINT NOT NULL REFERENCES models(id),
	year            INTEGER NOT NULL,
	engine_volume   NUMERIC(5,2),
	body_style      TEXT,
	drivetrain      TEXT,
	fuel_id         BIGINT NOT NULL REFERENCES fuels(id),
	transmission_id BIGINT NOT NULL REFERENCES transmissions(id),
	seats           SMALLINT NOT NULL DEFAULT 4,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_vehicles_make_id ON vehicles(make_id);
CREATE INDEX IF NOT EXISTS idx_vehicles_model_id ON vehicles(model_id);
CREATE INDEX IF NOT EXISTS idx_vehicles_year ON vehicles(year);

CREATE TABLE IF NOT EXISTS import_runs (
	id           TEXT PRIMARY KEY,
	make         TEXT NOT NULL,
	status       TEXT NOT NULL DEFAULT 'running',
	processed    INTEGER NOT NULL DEFAULT 0,
	succeeded    INTEGER NOT NULL DEFAULT 0,
	failed       INTEGER NOT NULL DEFAULT 0,
	skipped      INTEGER NOT NULL DEFAULT 0,
	error        TEXT,
	started_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	completed_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_import_runs_make ON import_runs(make);
CREATE INDEX IF NOT EXISTS idx_import_runs_started_at ON import_runs(started_at DESC);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) Seed(ctx context.Context) (int, error) {
	created := 0
	for _, seed := range []struct {
		table string
		rows  []refSeed
	}{
		{"fuels", fuelSeed},
		{"transmissions", transmissionSeed},
	} {
		sql := db.InsertIgnoreSQL(seed.table, []string{"name", "name_ru", "name_kr"}, []string{"name"})
		for _, r := range seed.rows {
			tag, err := s.pool.Exec(ctx, sql, r.Name, r.NameRU, r.NameKR)
			if err != nil {
				return created, eris.Wrapf(err, "postgres: seed %s %q", seed.table, r.Name)
			}
			created += int(tag.RowsAffected())
		}
	}
	return created, nil
}

func (s *PostgresStore) FuelTypes(ctx context.Context) (map[string]model.Ref, error) {
	return s.refTable(ctx, "fuels")
}

func (s *PostgresStore) TransmissionTypes(ctx context.Context) (map[string]model.Ref, error) {
	return s.refTable(ctx, "transmissions")
}

func (s *PostgresStore) refTable(ctx context.Context, table string) (map[string]model.Ref, error) {
	rows, err := s.pool.Query(ctx, "SELECT id, name FROM "+table+" ORDER BY id")
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list %s", table)
	}
	defer rows.Close()

	refs := make(map[string]model.Ref)
	for rows.Next() {
		var r model.Ref
		if err := rows.Scan(&r.ID, &r.Name); err != nil {
			return nil, eris.Wrapf(err, "postgres: scan %s", table)
		}
		refs[r.Name] = r
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrapf(err, "postgres: iterate %s", table)
	}
	return refs, nil
}

// Begin opens a page transaction.
func (s *PostgresStore) Begin(ctx context.Context) (PageTx, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: begin page tx")
	}
	return &pgPageTx{tx: tx}, nil
}

type pgPageTx struct {
	tx pgx.Tx
}

func (t *pgPageTx) GetOrCreateMake(ctx context.Context, name string) (model.Ref, bool, error) {
	return getOrCreateRef(ctx, t.tx,
		`SELECT id FROM makes WHERE name = $1`,
		`INSERT INTO makes (name, name_ru, name_kr) VALUES ($1, $1, $1)
		 ON CONFLICT (name) DO NOTHING RETURNING id`,
		name)
}

func (t *pgPageTx) GetOrCreateModel(ctx context.Context, makeID int64, name string) (model.Ref, bool, error) {
	return getOrCreateRef(ctx, t.tx,
		`SELECT id FROM models WHERE make_id = $2 AND name = $1`,
		`INSERT INTO models (make_id, name, name_ru, name_kr) VALUES ($2, $1, $1, $1)
		 ON CONFLICT (make_id, name) DO NOTHING RETURNING id`,
		name, makeID)
}

// getOrCreateRef runs select-then-insert with an ON CONFLICT DO NOTHING
// insert; a lost race falls through to a final select, so concurrent
// resolution of the same name never errors and never duplicates.
func getOrCreateRef(ctx context.Context, q db.Querier, selectSQL, insertSQL, name string, extra ...any) (model.Ref, bool, error) {
	args := append([]any{name}, extra...)

	var id int64
	err := q.QueryRow(ctx, selectSQL, args...).Scan(&id)
	if err == nil {
		return model.Ref{ID: id, Name: name}, false, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return model.Ref{}, false, eris.Wrapf(err, "postgres: select ref %q", name)
	}

	err = q.QueryRow(ctx, insertSQL, args...).Scan(&id)
	if err == nil {
		return model.Ref{ID: id, Name: name}, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return model.Ref{}, false, eris.Wrapf(err, "postgres: insert ref %q", name)
	}

	// Another transaction created the row between our select and insert.
	if err := q.QueryRow(ctx, selectSQL, args...).Scan(&id); err != nil {
		return model.Ref{}, false, eris.Wrapf(err, "postgres: reselect ref %q", name)
	}
	return model.Ref{ID: id, Name: name}, false, nil
}

var vehicleColumns = []string{
	"external_id", "make_id", "model_id", "year", "engine_volume",
	"body_style", "drivetrain", "fuel_id", "transmission_id", "seats", "updated_at",
}

var vehicleUpsertSQL = db.UpsertSQL("vehicles", vehicleColumns, []string{"external_id"})

func (t *pgPageTx) UpsertVehicle(ctx context.Context, v model.Vehicle) error {
	_, err := t.tx.Exec(ctx, vehicleUpsertSQL,
		v.ExternalID, v.Make.ID, v.Model.ID, v.Year, v.EngineVolume,
		nullIfEmpty(string(v.BodyStyle)), nullIfEmpty(string(v.Drivetrain)),
		v.Fuel.ID, v.Transmission.ID, v.Seats, time.Now().UTC(),
	)
	return eris.Wrapf(err, "postgres: upsert vehicle %s", v.ExternalID)
}

func (t *pgPageTx) Commit(ctx context.Context) error {
	return eris.Wrap(t.tx.Commit(ctx), "postgres: commit page tx")
}

func (t *pgPageTx) Rollback(ctx context.Context) error {
	err := t.tx.Rollback(ctx)
	if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return eris.Wrap(err, "postgres: rollback page tx")
	}
	return nil
}

func (s *PostgresStore) StartRun(ctx context.Context, makeName string) (string, error) {
	id := uuid.New().String()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO import_runs (id, make, status, started_at) VALUES ($1, $2, $3, $4)`,
		id, makeName, string(model.RunRunning), time.Now().UTC(),
	)
	if err != nil {
		return "", eris.Wrapf(err, "postgres: start run for %s", makeName)
	}
	return id, nil
}

func (s *PostgresStore) CompleteRun(ctx context.Context, runID string, status model.RunStatus, counts RunCounts, errMsg string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE import_runs
		 SET status = $1, processed = $2, succeeded = $3, failed = $4, skipped = $5,
		     error = NULLIF($6, ''), completed_at = $7
		 WHERE id = $8`,
		string(status), counts.Processed, counts.Succeeded, counts.Failed, counts.Skipped,
		errMsg, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("postgres: run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, limit int) ([]model.ImportRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, make, status, processed, succeeded, failed, skipped,
		        COALESCE(error, ''), started_at, completed_at
		 FROM import_runs ORDER BY started_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.ImportRun
	for rows.Next() {
		var r model.ImportRun
		if err := rows.Scan(&r.ID, &r.Make, &r.Status, &r.Processed, &r.Succeeded,
			&r.Failed, &r.Skipped, &r.Error, &r.StartedAt, &r.CompletedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// nullIfEmpty maps an absent categorical value to SQL NULL.
func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
