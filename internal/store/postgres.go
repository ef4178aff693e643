package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/urbansense/fleetcover/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses. pgxmock satisfies it,
// which keeps the Postgres store testable without a live database.
type Pool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
	Close()
}

// PostgresStore implements Store on a pgx connection pool.
type PostgresStore struct {
	pool Pool
}

// NewPostgres connects a pgx pool to the given database URL.
func NewPostgres(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: connect")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresFromPool wraps an existing pool (or a pgxmock pool in tests).
func NewPostgresFromPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS mobility_records (
	id          BIGSERIAL PRIMARY KEY,
	agent_id    BIGINT NOT NULL,
	latitude    DOUBLE PRECISION NOT NULL,
	longitude   DOUBLE PRECISION NOT NULL,
	timestamp   BIGINT NOT NULL,
	stratum_id  INTEGER,
	temporal_id BIGINT
);

CREATE TABLE IF NOT EXISTS selection_runs (
	id         TEXT PRIMARY KEY,
	strategy   TEXT NOT NULL,
	count      INTEGER NOT NULL,
	split_ts   BIGINT NOT NULL,
	metric     TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'running',
	result     JSONB,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_mobility_records_timestamp ON mobility_records(timestamp);
CREATE INDEX IF NOT EXISTS idx_mobility_records_agent ON mobility_records(agent_id);
CREATE INDEX IF NOT EXISTS idx_mobility_records_temporal ON mobility_records(temporal_id);
CREATE INDEX IF NOT EXISTS idx_selection_runs_status ON selection_runs(status);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) InsertRecords(ctx context.Context, records []model.Record) (int64, error) {
	if len(records) == 0 {
		zap.L().Warn("postgres: no records to insert")
		return 0, nil
	}

	rows := make([][]any, 0, len(records))
	for _, r := range records {
		rows = append(rows, []any{r.AgentID, r.Latitude, r.Longitude, r.Timestamp})
	}

	n, err := s.pool.CopyFrom(ctx,
		pgx.Identifier{"mobility_records"},
		[]string{"agent_id", "latitude", "longitude", "timestamp"},
		pgx.CopyFromRows(rows))
	if err != nil {
		return 0, eris.Wrap(err, "postgres: copy records")
	}
	return n, nil
}

func (s *PostgresStore) CountRecords(ctx context.Context) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM mobility_records`).Scan(&n)
	return n, eris.Wrap(err, "postgres: count records")
}

func (s *PostgresStore) Records(ctx context.Context) ([]StoredRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, agent_id, latitude, longitude, timestamp, stratum_id, temporal_id
		 FROM mobility_records ORDER BY id`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query records")
	}
	defer rows.Close()
	return scanPgRecords(rows)
}

func (s *PostgresStore) RecordsByTimeRange(ctx context.Context, from, to int64) ([]StoredRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, agent_id, latitude, longitude, timestamp, stratum_id, temporal_id
		 FROM mobility_records WHERE timestamp >= $1 AND timestamp < $2 ORDER BY id`,
		from, to)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query records by time range")
	}
	defer rows.Close()
	return scanPgRecords(rows)
}

func (s *PostgresStore) TimestampRange(ctx context.Context) (int64, int64, error) {
	var minTS, maxTS *int64
	err := s.pool.QueryRow(ctx,
		`SELECT MIN(timestamp), MAX(timestamp) FROM mobility_records`).Scan(&minTS, &maxTS)
	if err != nil {
		return 0, 0, eris.Wrap(err, "postgres: timestamp range")
	}
	if minTS == nil || maxTS == nil {
		return 0, 0, eris.Wrap(model.ErrInvalidArgument, "postgres: no records stored")
	}
	return *minTS, *maxTS, nil
}

func (s *PostgresStore) UpdateStratum(ctx context.Context, recordID int64, stratumID int) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE mobility_records SET stratum_id = $1 WHERE id = $2`, stratumID, recordID)
	if err != nil {
		return eris.Wrapf(err, "postgres: update stratum for record %d", recordID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(model.ErrInvalidArgument, "postgres: record %d not found", recordID)
	}
	return nil
}

func (s *PostgresStore) UpdateTemporal(ctx context.Context, recordID int64, temporalID int64) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE mobility_records SET temporal_id = $1 WHERE id = $2`, temporalID, recordID)
	if err != nil {
		return eris.Wrapf(err, "postgres: update temporal for record %d", recordID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(model.ErrInvalidArgument, "postgres: record %d not found", recordID)
	}
	return nil
}

func (s *PostgresStore) IncidenceTable(ctx context.Context, filter IncidenceFilter) (*model.IncidenceTable, error) {
	query := `SELECT agent_id, stratum_id, temporal_id, COUNT(*)
		FROM mobility_records
		WHERE stratum_id IS NOT NULL AND temporal_id IS NOT NULL`
	var args []any

	if filter.MinTemporalID != nil {
		args = append(args, *filter.MinTemporalID)
		query += ` AND temporal_id >= $1`
	}
	if filter.MaxTemporalID != nil {
		args = append(args, *filter.MaxTemporalID)
		if len(args) == 2 {
			query += ` AND temporal_id <= $2`
		} else {
			query += ` AND temporal_id <= $1`
		}
	}
	query += ` GROUP BY agent_id, stratum_id, temporal_id`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query incidence table")
	}
	defer rows.Close()

	table := model.NewIncidenceTable()
	for rows.Next() {
		var r model.IncidenceRow
		if err := rows.Scan(&r.AgentID, &r.StratumID, &r.TemporalID, &r.Count); err != nil {
			return nil, eris.Wrap(err, "postgres: scan incidence row")
		}
		table.Add(r.AgentID, model.Segment{StratumID: r.StratumID, TemporalID: r.TemporalID}, r.Count)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate incidence rows")
	}
	return table, nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, strategy string, count int, splitTS int64, metric string) (*Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO selection_runs (id, strategy, count, split_ts, metric, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		id, strategy, count, splitTS, metric, string(RunStatusRunning), now, now)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}

	return &Run{
		ID:        id,
		Strategy:  strategy,
		Count:     count,
		SplitTS:   splitTS,
		Metric:    metric,
		Status:    RunStatusRunning,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *PostgresStore) CompleteRun(ctx context.Context, runID string, result *model.CoverageResult) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal run result")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE selection_runs SET result = $1, status = $2, updated_at = $3 WHERE id = $4`,
		resultJSON, string(RunStatusComplete), time.Now().UTC(), runID)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(model.ErrInvalidArgument, "postgres: run %s not found", runID)
	}
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*Run, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, strategy, count, split_ts, metric, status, result, created_at, updated_at
		 FROM selection_runs WHERE id = $1`, runID)
	return scanPgRun(row)
}

func (s *PostgresStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, strategy, count, split_ts, metric, status, result, created_at, updated_at
		 FROM selection_runs ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanPgRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: iterate runs")
}

func scanPgRun(row pgx.Row) (*Run, error) {
	var r Run
	var status string
	var resultJSON []byte
	if err := row.Scan(&r.ID, &r.Strategy, &r.Count, &r.SplitTS, &r.Metric,
		&status, &resultJSON, &r.CreatedAt, &r.UpdatedAt); err != nil {
		if eris.Is(err, pgx.ErrNoRows) || eris.Is(err, sql.ErrNoRows) {
			return nil, eris.Wrap(model.ErrInvalidArgument, "postgres: run not found")
		}
		return nil, eris.Wrap(err, "postgres: scan run")
	}
	r.Status = RunStatus(status)

	if len(resultJSON) > 0 {
		var result model.CoverageResult
		if err := json.Unmarshal(resultJSON, &result); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal run result")
		}
		r.Result = &result
	}
	return &r, nil
}

func scanPgRecords(rows pgx.Rows) ([]StoredRecord, error) {
	var records []StoredRecord
	for rows.Next() {
		var r StoredRecord
		var stratum *int64
		var temporal *int64
		if err := rows.Scan(&r.ID, &r.AgentID, &r.Latitude, &r.Longitude,
			&r.Timestamp, &stratum, &temporal); err != nil {
			return nil, eris.Wrap(err, "postgres: scan record")
		}
		if stratum != nil {
			r.StratumID = int(*stratum)
			r.HasStratum = true
		}
		if temporal != nil {
			r.TemporalID = *temporal
			r.HasTemporal = true
		}
		records = append(records, r)
	}
	return records, eris.Wrap(rows.Err(), "postgres: iterate records")
}
