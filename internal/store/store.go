// Package store persists mobility records and selection runs. It is the
// persistence collaborator of the coverage core: bulk insert of records,
// range queries by timestamp, tag updates by identity, and the grouped
// incidence-table query.
package store

import (
	"context"
	"time"

	"github.com/urbansense/fleetcover/internal/model"
)

// RunStatus tracks the lifecycle of a selection run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
)

// Run records one selection run: its parameters, status, and result.
type Run struct {
	ID        string                `json:"id"`
	Strategy  string                `json:"strategy"`
	Count     int                   `json:"count"`
	SplitTS   int64                 `json:"split_ts"`
	Metric    string                `json:"metric"`
	Status    RunStatus             `json:"status"`
	Result    *model.CoverageResult `json:"result,omitempty"`
	CreatedAt time.Time             `json:"created_at"`
	UpdatedAt time.Time             `json:"updated_at"`
}

// StoredRecord is a mobility record with its storage identity and any tags
// computed so far.
type StoredRecord struct {
	ID int64 `json:"id"`
	model.TaggedRecord
}

// IncidenceFilter restricts the incidence-table query by temporal bucket.
// Nil bounds are open.
type IncidenceFilter struct {
	MinTemporalID *int64
	MaxTemporalID *int64
}

// Store is the persistence interface for the selection pipeline.
type Store interface {
	// Records
	InsertRecords(ctx context.Context, records []model.Record) (int64, error)
	CountRecords(ctx context.Context) (int64, error)
	Records(ctx context.Context) ([]StoredRecord, error)
	RecordsByTimeRange(ctx context.Context, from, to int64) ([]StoredRecord, error)
	TimestampRange(ctx context.Context) (minTS, maxTS int64, err error)

	// Tagging (update by identity)
	UpdateStratum(ctx context.Context, recordID int64, stratumID int) error
	UpdateTemporal(ctx context.Context, recordID int64, temporalID int64) error

	// Aggregation
	IncidenceTable(ctx context.Context, filter IncidenceFilter) (*model.IncidenceTable, error)

	// Selection runs
	CreateRun(ctx context.Context, strategy string, count int, splitTS int64, metric string) (*Run, error)
	CompleteRun(ctx context.Context, runID string, result *model.CoverageResult) error
	GetRun(ctx context.Context, runID string) (*Run, error)
	ListRuns(ctx context.Context, limit int) ([]Run, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
