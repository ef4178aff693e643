package store

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/urbansense/fleetcover/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	return NewPostgresFromPool(mock), mock
}

func TestPostgresStore_InsertRecords_CopyFrom(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectCopyFrom(
		pgx.Identifier{"mobility_records"},
		[]string{"agent_id", "latitude", "longitude", "timestamp"},
	).WillReturnResult(2)

	n, err := s.InsertRecords(context.Background(), []model.Record{
		{AgentID: 1, Latitude: 40.7, Longitude: -74.0, Timestamp: 1000},
		{AgentID: 2, Latitude: 40.8, Longitude: -74.1, Timestamp: 2000},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_InsertRecords_Empty(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	n, err := s.InsertRecords(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_TimestampRange_NoRecords(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT MIN\(timestamp\), MAX\(timestamp\) FROM mobility_records`).
		WillReturnRows(pgxmock.NewRows([]string{"min", "max"}).AddRow(nil, nil))

	_, _, err := s.TimestampRange(context.Background())
	assert.True(t, eris.Is(err, model.ErrInvalidArgument))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateStratum(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE mobility_records SET stratum_id = \$1 WHERE id = \$2`).
		WithArgs(3, int64(42)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := s.UpdateStratum(context.Background(), 42, 3)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateStratum_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE mobility_records SET stratum_id = \$1 WHERE id = \$2`).
		WithArgs(3, int64(42)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.UpdateStratum(context.Background(), 42, 3)
	assert.True(t, eris.Is(err, model.ErrInvalidArgument))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_IncidenceTable(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT agent_id, stratum_id, temporal_id, COUNT\(\*\)`).
		WillReturnRows(pgxmock.NewRows([]string{"agent_id", "stratum_id", "temporal_id", "count"}).
			AddRow(int64(1), 0, int64(100), 2).
			AddRow(int64(1), 1, int64(200), 1).
			AddRow(int64(2), 0, int64(100), 5))

	table, err := s.IncidenceTable(context.Background(), IncidenceFilter{})
	require.NoError(t, err)
	assert.Equal(t, 2, table.NumAgents())
	assert.Equal(t, 2, table.Segments(1)[model.Segment{StratumID: 0, TemporalID: 100}])
	assert.Equal(t, 5, table.Segments(2)[model.Segment{StratumID: 0, TemporalID: 100}])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_IncidenceTable_TemporalBounds(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	minT, maxT := int64(100), int64(200)
	mock.ExpectQuery(`temporal_id >= \$1 AND temporal_id <= \$2`).
		WithArgs(minT, maxT).
		WillReturnRows(pgxmock.NewRows([]string{"agent_id", "stratum_id", "temporal_id", "count"}))

	table, err := s.IncidenceTable(context.Background(), IncidenceFilter{
		MinTemporalID: &minT,
		MaxTemporalID: &maxT,
	})
	require.NoError(t, err)
	assert.Zero(t, table.NumAgents())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO selection_runs`).
		WithArgs(pgxmock.AnyArg(), "greedy", 10, int64(5000), "percentage_coverage",
			string(RunStatusRunning), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	run, err := s.CreateRun(context.Background(), "greedy", 10, 5000, "percentage_coverage")
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, RunStatusRunning, run.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CompleteRun_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE selection_runs SET result = \$1, status = \$2`).
		WithArgs(pgxmock.AnyArg(), string(RunStatusComplete), pgxmock.AnyArg(), "missing-run").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.CompleteRun(context.Background(), "missing-run", &model.CoverageResult{})
	assert.True(t, eris.Is(err, model.ErrInvalidArgument))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetRun_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id, strategy, count, split_ts, metric, status, result, created_at, updated_at`).
		WithArgs("missing-run").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetRun(context.Background(), "missing-run")
	assert.True(t, eris.Is(err, model.ErrInvalidArgument))
	assert.NoError(t, mock.ExpectationsWereMet())
}
