package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/drivebase/catalog-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. Intended for local
// runs without a Postgres instance.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS makes (
	id      INTEGER PRIMARY KEY AUTOINCREMENT,
	name    TEXT NOT NULL UNIQUE,
	name_ru TEXT NOT NULL DEFAULT '',
	name_kr TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS models (
	id      INTEGER PRIMARY KEY AUTOINCREMENT,
	make_id INTEGER NOT NULL REFERENCES makes(id) ON DELETE CASCADE,
	name    TEXT NOT NULL,
	name_ru TEXT NOT NULL DEFAULT '',
	name_kr TEXT NOT NULL DEFAULT '',
	UNIQUE (make_id, name)
);

CREATE TABLE IF NOT EXISTS fuels (
	id      INTEGER PRIMARY KEY AUTOINCREMENT,
	name    TEXT NOT NULL UNIQUE,
	name_ru TEXT NOT NULL DEFAULT '',
	name_kr TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS transmissions (
	id      INTEGER PRIMARY KEY AUTOINCREMENT,
	name    TEXT NOT NULL UNIQUE,
	name_ru TEXT NOT NULL DEFAULT '',
	name_kr TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS vehicles (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	external_id     TEXT NOT NULL UNIQUE,
	make_id         INTEGER NOT NULL REFERENCES makes(id),
	model_id        INTEGER NOT NULL REFERENCES models(id),
	year            INTEGER NOT NULL,
	engine_volume   REAL,
	body_style      TEXT,
	drivetrain      TEXT,
	fuel_id         INTEGER NOT NULL REFERENCES fuels(id),
	transmission_id INTEGER NOT NULL REFERENCES transmissions(id),
	seats           INTEGER NOT NULL DEFAULT 4,
	created_at      DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at      DATETIME NOT NULL DEFAULT (datetime('now'))
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
	started_at   DATETIME NOT NULL DEFAULT (datetime('now')),
	completed_at DATETIME
);

CREATE INDEX IF NOT EXISTS idx_import_runs_make ON import_runs(make);
CREATE INDEX IF NOT EXISTS idx_import_runs_started_at ON import_runs(started_at DESC);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Seed(ctx context.Context) (int, error) {
	created := 0
	for _, seed := range []struct {
		table string
		rows  []refSeed
	}{
		{"fuels", fuelSeed},
		{"transmissions", transmissionSeed},
	} {
		for _, r := range seed.rows {
			res, err := s.db.ExecContext(ctx,
				"INSERT OR IGNORE INTO "+seed.table+" (name, name_ru, name_kr) VALUES (?, ?, ?)",
				r.Name, r.NameRU, r.NameKR,
			)
			if err != nil {
				return created, eris.Wrapf(err, "sqlite: seed %s %q", seed.table, r.Name)
			}
			if n, err := res.RowsAffected(); err == nil {
				created += int(n)
			}
		}
	}
	return created, nil
}

func (s *SQLiteStore) FuelTypes(ctx context.Context) (map[string]model.Ref, error) {
	return s.refTable(ctx, "fuels")
}

func (s *SQLiteStore) TransmissionTypes(ctx context.Context) (map[string]model.Ref, error) {
	return s.refTable(ctx, "transmissions")
}

func (s *SQLiteStore) refTable(ctx context.Context, table string) (map[string]model.Ref, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, name FROM "+table+" ORDER BY id")
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list %s", table)
	}
	defer rows.Close()

	refs := make(map[string]model.Ref)
	for rows.Next() {
		var r model.Ref
		if err := rows.Scan(&r.ID, &r.Name); err != nil {
			return nil, eris.Wrapf(err, "sqlite: scan %s", table)
		}
		refs[r.Name] = r
	}
	return refs, rows.Err()
}

// Begin opens a page transaction.
func (s *SQLiteStore) Begin(ctx context.Context) (PageTx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: begin page tx")
	}
	return &sqlitePageTx{tx: tx}, nil
}

type sqlitePageTx struct {
	tx *sql.Tx
}

func (t *sqlitePageTx) GetOrCreateMake(ctx context.Context, name string) (model.Ref, bool, error) {
	return t.getOrCreateRef(ctx,
		"SELECT id FROM makes WHERE name = ?",
		"INSERT OR IGNORE INTO makes (name, name_ru, name_kr) VALUES (?, ?, ?)",
		[]any{name},
		[]any{name, name, name},
		name)
}

func (t *sqlitePageTx) GetOrCreateModel(ctx context.Context, makeID int64, name string) (model.Ref, bool, error) {
	return t.getOrCreateRef(ctx,
		"SELECT id FROM models WHERE make_id = ? AND name = ?",
		"INSERT OR IGNORE INTO models (make_id, name, name_ru, name_kr) VALUES (?, ?, ?, ?)",
		[]any{makeID, name},
		[]any{makeID, name, name, name},
		name)
}

func (t *sqlitePageTx) getOrCreateRef(ctx context.Context, selectSQL, insertSQL string, selectArgs, insertArgs []any, name string) (model.Ref, bool, error) {
	var id int64
	err := t.tx.QueryRowContext(ctx, selectSQL, selectArgs...).Scan(&id)
	if err == nil {
		return model.Ref{ID: id, Name: name}, false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return model.Ref{}, false, eris.Wrapf(err, "sqlite: select ref %q", name)
	}

	res, err := t.tx.ExecContext(ctx, insertSQL, insertArgs...)
	if err != nil {
		return model.Ref{}, false, eris.Wrapf(err, "sqlite: insert ref %q", name)
	}
	n, _ := res.RowsAffected()

	if err := t.tx.QueryRowContext(ctx, selectSQL, selectArgs...).Scan(&id); err != nil {
		return model.Ref{}, false, eris.Wrapf(err, "sqlite: reselect ref %q", name)
	}
	return model.Ref{ID: id, Name: name}, n > 0, nil
}

const sqliteVehicleUpsert = `
INSERT INTO vehicles (external_id, make_id, model_id, year, engine_volume,
                      body_style, drivetrain, fuel_id, transmission_id, seats, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (external_id) DO UPDATE SET
	make_id = excluded.make_id,
	model_id = excluded.model_id,
	year = excluded.year,
	engine_volume = excluded.engine_volume,
	body_style = excluded.body_style,
	drivetrain = excluded.drivetrain,
	fuel_id = excluded.fuel_id,
	transmission_id = excluded.transmission_id,
	seats = excluded.seats,
	updated_at = excluded.updated_at`

func (t *sqlitePageTx) UpsertVehicle(ctx context.Context, v model.Vehicle) error {
	_, err := t.tx.ExecContext(ctx, sqliteVehicleUpsert,
		v.ExternalID, v.Make.ID, v.Model.ID, v.Year, v.EngineVolume,
		nullIfEmpty(string(v.BodyStyle)), nullIfEmpty(string(v.Drivetrain)),
		v.Fuel.ID, v.Transmission.ID, v.Seats, time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: upsert vehicle %s", v.ExternalID)
}

func (t *sqlitePageTx) Commit(ctx context.Context) error {
	return eris.Wrap(t.tx.Commit(), "sqlite: commit page tx")
}

func (t *sqlitePageTx) Rollback(ctx context.Context) error {
	err := t.tx.Rollback()
	if err != nil && !errors.Is(err, sql.ErrTxDone) {
		return eris.Wrap(err, "sqlite: rollback page tx")
	}
	return nil
}

func (s *SQLiteStore) StartRun(ctx context.Context, makeName string) (string, error) {
	id := uuid.New().String()
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO import_runs (id, make, status, started_at) VALUES (?, ?, ?, ?)",
		id, makeName, string(model.RunRunning), time.Now().UTC(),
	)
	if err != nil {
		return "", eris.Wrapf(err, "sqlite: start run for %s", makeName)
	}
	return id, nil
}

func (s *SQLiteStore) CompleteRun(ctx context.Context, runID string, status model.RunStatus, counts RunCounts, errMsg string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE import_runs
		 SET status = ?, processed = ?, succeeded = ?, failed = ?, skipped = ?,
		     error = NULLIF(?, ''), completed_at = ?
		 WHERE id = ?`,
		string(status), counts.Processed, counts.Succeeded, counts.Failed, counts.Skipped,
		errMsg, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete run %s", runID)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return eris.Errorf("sqlite: run not found: %s", runID)
	}
	return nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]model.ImportRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, make, status, processed, succeeded, failed, skipped,
		        COALESCE(error, ''), started_at, completed_at
		 FROM import_runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []model.ImportRun
	for rows.Next() {
		var r model.ImportRun
		if err := rows.Scan(&r.ID, &r.Make, &r.Status, &r.Processed, &r.Succeeded,
			&r.Failed, &r.Skipped, &r.Error, &r.StartedAt, &r.CompletedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
