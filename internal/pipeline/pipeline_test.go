package pipeline

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/urbansense/fleetcover/internal/model"
	"github.com/urbansense/fleetcover/internal/store"
	"github.com/urbansense/fleetcover/internal/stratify"
)

// fleetRecords builds a small fleet over a 2x2 degree grid: agent 1 roams
// widely, agent 2 duplicates part of agent 1's trace, agent 3 visits a cell
// nobody else does.
func fleetRecords() []model.Record {
	return []model.Record{
		{AgentID: 1, Latitude: 0.5, Longitude: 0.5, Timestamp: 100},
		{AgentID: 1, Latitude: 0.5, Longitude: 1.5, Timestamp: 150},
		{AgentID: 1, Latitude: 1.5, Longitude: 0.5, Timestamp: 250},
		{AgentID: 2, Latitude: 0.5, Longitude: 0.5, Timestamp: 120},
		{AgentID: 2, Latitude: 0.5, Longitude: 0.6, Timestamp: 260},
		{AgentID: 3, Latitude: 1.5, Longitude: 1.5, Timestamp: 130},
		{AgentID: 3, Latitude: 1.5, Longitude: 1.5, Timestamp: 270},
	}
}

func testStrata(t *testing.T) []model.Stratum {
	t.Helper()
	g, err := stratify.NewGrid(111, 0, 0, 2, 2)
	require.NoError(t, err)
	return g.Strata()
}

func TestRun(t *testing.T) {
	report, err := Run(testStrata(t), fleetRecords(), Options{
		Granularity: 100,
		SplitTS:     100,
		Count:       2,
	})
	require.NoError(t, err)

	require.NotNil(t, report.Result)
	require.NotNil(t, report.Selection)
	assert.Equal(t, 4, report.TrainRecords)
	assert.Equal(t, 3, report.TestRecords)
	assert.Zero(t, report.Dropped)
	assert.Equal(t, 2, report.Buckets)

	// Agent 1 covers two training segments and is picked first; agent 3 adds
	// the only uncovered segment while agent 2 duplicates agent 1.
	assert.Equal(t, []int64{1, 3}, report.Selection.Agents)

	// Test partition has three segments, the selection covers two.
	assert.InDelta(t, 100.0*2/3, report.Result.CoverageScore, 1e-9)
}

func TestRun_NoRecords(t *testing.T) {
	_, err := Run(testStrata(t), nil, Options{Granularity: 100, Count: 1})
	assert.True(t, eris.Is(err, model.ErrValidation))
}

func TestRun_RecordsOutsideStrataAreDropped(t *testing.T) {
	records := append(fleetRecords(),
		model.Record{AgentID: 9, Latitude: 50, Longitude: 50, Timestamp: 140})

	report, err := Run(testStrata(t), records, Options{
		Granularity: 100,
		SplitTS:     100,
		Count:       2,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Dropped)
	assert.NotContains(t, report.Selection.Agents, int64(9))
}

func TestRun_CountExceedsAgents(t *testing.T) {
	_, err := Run(testStrata(t), fleetRecords(), Options{
		Granularity: 100,
		SplitTS:     200,
		Count:       50,
	})
	assert.True(t, eris.Is(err, model.ErrInvalidArgument))
}

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "pipeline.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func TestTagStore(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	_, err := st.InsertRecords(ctx, fleetRecords())
	require.NoError(t, err)

	updated, err := TagStore(ctx, st, stratify.NewClassifier(testStrata(t)), 100)
	require.NoError(t, err)
	assert.Equal(t, int64(7), updated)

	stored, err := st.Records(ctx)
	require.NoError(t, err)
	for _, r := range stored {
		assert.True(t, r.Tagged(), "record %d", r.ID)
	}
}

func TestRunFromStore(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	_, err := st.InsertRecords(ctx, fleetRecords())
	require.NoError(t, err)

	_, err = TagStore(ctx, st, stratify.NewClassifier(testStrata(t)), 100)
	require.NoError(t, err)

	report, run, err := RunFromStore(ctx, st, "greedy", Options{
		Granularity: 100,
		SplitTS:     100,
		Count:       2,
	})
	require.NoError(t, err)

	assert.Len(t, report.Selection.Agents, 2)
	assert.Equal(t, store.RunStatusComplete, run.Status)
	require.NotNil(t, run.Result)

	fetched, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, store.RunStatusComplete, fetched.Status)
	require.NotNil(t, fetched.Result)
	assert.InDelta(t, report.Result.CoverageScore, fetched.Result.CoverageScore, 1e-9)
}
