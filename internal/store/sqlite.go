package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/urbansense/fleetcover/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
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
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS mobility_records (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	agent_id    INTEGER NOT NULL,
	latitude    REAL NOT NULL,
	longitude   REAL NOT NULL,
	timestamp   INTEGER NOT NULL,
	stratum_id  INTEGER,
	temporal_id INTEGER
);

CREATE TABLE IF NOT EXISTS selection_runs (
	id         TEXT PRIMARY KEY,
	strategy   TEXT NOT NULL,
	count      INTEGER NOT NULL,
	split_ts   INTEGER NOT NULL,
	metric     TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'running',
	result     TEXT,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_mobility_records_timestamp ON mobility_records(timestamp);
CREATE INDEX IF NOT EXISTS idx_mobility_records_agent ON mobility_records(agent_id);
CREATE INDEX IF NOT EXISTS idx_mobility_records_temporal ON mobility_records(temporal_id);
CREATE INDEX IF NOT EXISTS idx_selection_runs_status ON selection_runs(status);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) InsertRecords(ctx context.Context, records []model.Record) (int64, error) {
	if len(records) == 0 {
		zap.L().Warn("sqlite: no records to insert")
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin insert tx")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO mobility_records (agent_id, latitude, longitude, timestamp) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare insert")
	}
	defer stmt.Close() //nolint:errcheck

	var inserted int64
	for _, r := range records {
		if _, err := stmt.ExecContext(ctx, r.AgentID, r.Latitude, r.Longitude, r.Timestamp); err != nil {
			return inserted, eris.Wrap(err, "sqlite: insert record")
		}
		inserted++
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit insert tx")
	}
	return inserted, nil
}

func (s *SQLiteStore) CountRecords(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM mobility_records`).Scan(&n)
	return n, eris.Wrap(err, "sqlite: count records")
}

func (s *SQLiteStore) Records(ctx context.Context) ([]StoredRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, agent_id, latitude, longitude, timestamp, stratum_id, temporal_id
		 FROM mobility_records ORDER BY id`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query records")
	}
	defer rows.Close() //nolint:errcheck
	return scanStoredRecords(rows)
}

func (s *SQLiteStore) RecordsByTimeRange(ctx context.Context, from, to int64) ([]StoredRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, agent_id, latitude, longitude, timestamp, stratum_id, temporal_id
		 FROM mobility_records WHERE timestamp >= ? AND timestamp < ? ORDER BY id`,
		from, to)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query records by time range")
	}
	defer rows.Close() //nolint:errcheck
	return scanStoredRecords(rows)
}

func (s *SQLiteStore) TimestampRange(ctx context.Context) (int64, int64, error) {
	var minTS, maxTS sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT MIN(timestamp), MAX(timestamp) FROM mobility_records`).Scan(&minTS, &maxTS)
	if err != nil {
		return 0, 0, eris.Wrap(err, "sqlite: timestamp range")
	}
	if !minTS.Valid {
		return 0, 0, eris.Wrap(model.ErrInvalidArgument, "sqlite: no records stored")
	}
	return minTS.Int64, maxTS.Int64, nil
}

func (s *SQLiteStore) UpdateStratum(ctx context.Context, recordID int64, stratumID int) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE mobility_records SET stratum_id = ? WHERE id = ?`, stratumID, recordID)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update stratum for record %d", recordID)
	}
	return checkRowsAffected(res, "record", recordID)
}

func (s *SQLiteStore) UpdateTemporal(ctx context.Context, recordID int64, temporalID int64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE mobility_records SET temporal_id = ? WHERE id = ?`, temporalID, recordID)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update temporal for record %d", recordID)
	}
	return checkRowsAffected(res, "record", recordID)
}

func (s *SQLiteStore) IncidenceTable(ctx context.Context, filter IncidenceFilter) (*model.IncidenceTable, error) {
	query := `SELECT agent_id, stratum_id, temporal_id, COUNT(*)
		FROM mobility_records
		WHERE stratum_id IS NOT NULL AND temporal_id IS NOT NULL`
	var args []any

	if filter.MinTemporalID != nil {
		query += ` AND temporal_id >= ?`
		args = append(args, *filter.MinTemporalID)
	}
	if filter.MaxTemporalID != nil {
		query += ` AND temporal_id <= ?`
		args = append(args, *filter.MaxTemporalID)
	}
	query += ` GROUP BY agent_id, stratum_id, temporal_id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query incidence table")
	}
	defer rows.Close() //nolint:errcheck

	table := model.NewIncidenceTable()
	for rows.Next() {
		var r model.IncidenceRow
		if err := rows.Scan(&r.AgentID, &r.StratumID, &r.TemporalID, &r.Count); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan incidence row")
		}
		table.Add(r.AgentID, model.Segment{StratumID: r.StratumID, TemporalID: r.TemporalID}, r.Count)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate incidence rows")
	}
	return table, nil
}

func (s *SQLiteStore) CreateRun(ctx context.Context, strategy string, count int, splitTS int64, metric string) (*Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO selection_runs (id, strategy, count, split_ts, metric, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, strategy, count, splitTS, metric, string(RunStatusRunning), now, now)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
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

func (s *SQLiteStore) CompleteRun(ctx context.Context, runID string, result *model.CoverageResult) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal run result")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE selection_runs SET result = ?, status = ?, updated_at = ? WHERE id = ?`,
		string(resultJSON), string(RunStatusComplete), time.Now().UTC(), runID)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete run %s", runID)
	}
	return checkRowsAffectedStr(res, "run", runID)
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, strategy, count, split_ts, metric, status, result, created_at, updated_at
		 FROM selection_runs WHERE id = ?`, runID)
	return scanRun(row)
}

func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, strategy, count, split_ts, metric, status, result, created_at, updated_at
		 FROM selection_runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close() //nolint:errcheck

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: iterate runs")
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var r Run
	var status string
	var resultJSON sql.NullString
	if err := row.Scan(&r.ID, &r.Strategy, &r.Count, &r.SplitTS, &r.Metric,
		&status, &resultJSON, &r.CreatedAt, &r.UpdatedAt); err != nil {
		if eris.Is(err, sql.ErrNoRows) {
			return nil, eris.Wrap(model.ErrInvalidArgument, "sqlite: run not found")
		}
		return nil, eris.Wrap(err, "sqlite: scan run")
	}
	r.Status = RunStatus(status)

	if resultJSON.Valid && resultJSON.String != "" {
		var result model.CoverageResult
		if err := json.Unmarshal([]byte(resultJSON.String), &result); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal run result")
		}
		r.Result = &result
	}
	return &r, nil
}

func scanStoredRecords(rows *sql.Rows) ([]StoredRecord, error) {
	var records []StoredRecord
	for rows.Next() {
		var r StoredRecord
		var stratum sql.NullInt64
		var temporal sql.NullInt64
		if err := rows.Scan(&r.ID, &r.AgentID, &r.Latitude, &r.Longitude,
			&r.Timestamp, &stratum, &temporal); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan record")
		}
		if stratum.Valid {
			r.StratumID = int(stratum.Int64)
			r.HasStratum = true
		}
		if temporal.Valid {
			r.TemporalID = temporal.Int64
			r.HasTemporal = true
		}
		records = append(records, r)
	}
	return records, eris.Wrap(rows.Err(), "sqlite: iterate records")
}

func checkRowsAffected(res sql.Result, entity string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Wrapf(model.ErrInvalidArgument, "sqlite: %s %d not found", entity, id)
	}
	return nil
}

func checkRowsAffectedStr(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Wrapf(model.ErrInvalidArgument, "sqlite: %s %s not found", entity, id)
	}
	return nil
}
