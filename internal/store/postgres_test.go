package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drivebase/catalog-cli/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS makes`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Seed_CountsCreatedRows(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	for _, r := range fuelSeed {
		mock.ExpectExec(`INSERT INTO "fuels"`).
			WithArgs(r.Name, r.NameRU, r.NameKR).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
	}
	// Transmissions already present: ON CONFLICT DO NOTHING affects no rows.
	for _, r := range transmissionSeed {
		mock.ExpectExec(`INSERT INTO "transmissions"`).
			WithArgs(r.Name, r.NameRU, r.NameKR).
			WillReturnResult(pgxmock.NewResult("INSERT", 0))
	}

	created, err := s.Seed(context.Background())
	require.NoError(t, err)
	assert.Equal(t, len(fuelSeed), created)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_FuelTypes(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id, name FROM fuels`).
		WillReturnRows(pgxmock.NewRows([]string{"id", "name"}).
			AddRow(int64(1), "gasoline").
			AddRow(int64(2), "diesel"))

	refs, err := s.FuelTypes(context.Background())
	require.NoError(t, err)
	assert.Len(t, refs, 2)
	assert.Equal(t, int64(1), refs["gasoline"].ID)
	assert.Equal(t, int64(2), refs["diesel"].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPageTx_GetOrCreateMake_Existing(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM makes WHERE name = \$1`).
		WithArgs("Toyota").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(7)))

	tx, err := s.Begin(context.Background())
	require.NoError(t, err)

	ref, created, err := tx.GetOrCreateMake(context.Background(), "Toyota")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, model.Ref{ID: 7, Name: "Toyota"}, ref)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPageTx_GetOrCreateMake_Creates(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM makes WHERE name = \$1`).
		WithArgs("Toyota").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery(`INSERT INTO makes`).
		WithArgs("Toyota").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(8)))

	tx, err := s.Begin(context.Background())
	require.NoError(t, err)

	ref, created, err := tx.GetOrCreateMake(context.Background(), "Toyota")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, int64(8), ref.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPageTx_GetOrCreateMake_LostRaceReselects(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM makes WHERE name = \$1`).
		WithArgs("Toyota").
		WillReturnError(pgx.ErrNoRows)
	// ON CONFLICT DO NOTHING returns no row when another tx won the insert.
	mock.ExpectQuery(`INSERT INTO makes`).
		WithArgs("Toyota").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery(`SELECT id FROM makes WHERE name = \$1`).
		WithArgs("Toyota").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(9)))

	tx, err := s.Begin(context.Background())
	require.NoError(t, err)

	ref, created, err := tx.GetOrCreateMake(context.Background(), "Toyota")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, int64(9), ref.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPageTx_GetOrCreateModel_ScopedByMake(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM models WHERE make_id = \$2 AND name = \$1`).
		WithArgs("Camry", int64(7)).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery(`INSERT INTO models`).
		WithArgs("Camry", int64(7)).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(31)))

	tx, err := s.Begin(context.Background())
	require.NoError(t, err)

	ref, created, err := tx.GetOrCreateModel(context.Background(), 7, "Camry")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, int64(31), ref.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPageTx_UpsertVehicle(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "vehicles"`).
		WithArgs("opendatasoft_12345", int64(7), int64(31), 2020, pgxmock.AnyArg(),
			"SEDAN", "fwd", int64(1), int64(2), 4, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	tx, err := s.Begin(context.Background())
	require.NoError(t, err)

	vol := 2.5
	err = tx.UpsertVehicle(context.Background(), model.Vehicle{
		ExternalID:   "opendatasoft_12345",
		Make:         model.Ref{ID: 7, Name: "Toyota"},
		Model:        model.Ref{ID: 31, Name: "Camry"},
		Year:         2020,
		EngineVolume: &vol,
		BodyStyle:    model.BodySedan,
		Drivetrain:   model.DriveFront,
		Fuel:         model.Ref{ID: 1, Name: "gasoline"},
		Transmission: model.Ref{ID: 2, Name: "automatic"},
		Seats:        4,
	})
	require.NoError(t, err)
	require.NoError(t, tx.Commit(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPageTx_UpsertVehicle_NullCategoricals(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "vehicles"`).
		WithArgs("opendatasoft_x", int64(7), int64(31), 2020, pgxmock.AnyArg(),
			nil, nil, int64(1), int64(2), 4, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	tx, err := s.Begin(context.Background())
	require.NoError(t, err)

	err = tx.UpsertVehicle(context.Background(), model.Vehicle{
		ExternalID:   "opendatasoft_x",
		Make:         model.Ref{ID: 7},
		Model:        model.Ref{ID: 31},
		Year:         2020,
		Fuel:         model.Ref{ID: 1},
		Transmission: model.Ref{ID: 2},
		Seats:        4,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPageTx_RollbackAfterCommitIsQuiet(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectCommit()
	mock.ExpectRollback().WillReturnError(pgx.ErrTxClosed)

	tx, err := s.Begin(context.Background())
	require.NoError(t, err)
	require.NoError(t, tx.Commit(context.Background()))
	assert.NoError(t, tx.Rollback(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_StartRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO import_runs`).
		WithArgs(pgxmock.AnyArg(), "Toyota", "running", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	id, err := s.StartRun(context.Background(), "Toyota")
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CompleteRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE import_runs`).
		WithArgs("complete", 10, 8, 1, 1, "", pgxmock.AnyArg(), "run-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := s.CompleteRun(context.Background(), "run-1", model.RunComplete,
		RunCounts{Processed: 10, Succeeded: 8, Failed: 1, Skipped: 1}, "")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CompleteRun_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE import_runs`).
		WithArgs("complete", 0, 0, 0, 0, "", pgxmock.AnyArg(), "missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.CompleteRun(context.Background(), "missing", model.RunComplete, RunCounts{}, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListRuns(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	started := time.Now().UTC()
	completed := started.Add(time.Minute)
	mock.ExpectQuery(`SELECT id, make, status`).
		WithArgs(20).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "make", "status", "processed", "succeeded", "failed", "skipped",
			"error", "started_at", "completed_at",
		}).AddRow("run-1", "Toyota", "complete", 10, 8, 1, 1, "", started, &completed))

	runs, err := s.ListRuns(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "Toyota", runs[0].Make)
	assert.Equal(t, model.RunComplete, runs[0].Status)
	assert.Equal(t, 10, runs[0].Processed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), Config{Driver: "oracle"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown driver")
}
