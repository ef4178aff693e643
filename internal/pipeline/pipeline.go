// Package pipeline wires the coverage stages end to end: tag raw records,
// aggregate them into an incidence table, split by time, select agents on the
// training partition, and score the selection on the held-out partition.
package pipeline

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/urbansense/fleetcover/internal/bucket"
	"github.com/urbansense/fleetcover/internal/evaluate"
	"github.com/urbansense/fleetcover/internal/ingest"
	"github.com/urbansense/fleetcover/internal/model"
	"github.com/urbansense/fleetcover/internal/segment"
	"github.com/urbansense/fleetcover/internal/selector"
	"github.com/urbansense/fleetcover/internal/store"
	"github.com/urbansense/fleetcover/internal/stratify"
)

// Options configures one selection run.
type Options struct {
	Granularity int64  // temporal bucket width in seconds
	SplitTS     int64  // train/test boundary (compared against temporal IDs)
	Count       int    // number of agents to select
	Metric      string // evaluation metric identifier
	Selector    selector.Selector
	Evaluator   *evaluate.Evaluator
}

// Report is the outcome of a run plus its diagnostics. Degenerate-but-valid
// outcomes (dropped records, early-stopped selection, empty test partition)
// surface here rather than as errors.
type Report struct {
	Result       *model.CoverageResult `json:"result"`
	Selection    *model.Selection      `json:"selection"`
	TrainRecords int                   `json:"train_records"`
	TestRecords  int                   `json:"test_records"`
	Dropped      int                   `json:"dropped_records"`
	Buckets      int                   `json:"buckets"`
}

// Run executes the in-memory pipeline over raw records and a pre-built
// stratification.
func Run(strata []model.Stratum, records []model.Record, opts Options) (*Report, error) {
	if opts.Evaluator == nil {
		opts.Evaluator = evaluate.New()
	}
	if opts.Metric == "" {
		opts.Metric = evaluate.PercentageCoverage
	}
	if opts.Selector == nil {
		opts.Selector = selector.NewGreedy()
	}

	minTS, maxTS, ok := ingest.TimestampRange(records)
	if !ok {
		return nil, eris.Wrap(model.ErrValidation, "pipeline: no records to process")
	}

	bk, err := bucket.New(minTS, maxTS, opts.Granularity)
	if err != nil {
		return nil, err
	}

	tagged := ingest.Tag(records, stratify.NewClassifier(strata), bk)

	dropped := 0
	for _, t := range tagged {
		if !t.Tagged() {
			dropped++
		}
	}

	train, test := selector.SplitByTime(tagged, opts.SplitTS)

	trainTable := segment.Aggregate(train)
	testTable := segment.Aggregate(test)

	sel, err := opts.Selector.Select(trainTable, opts.Count)
	if err != nil {
		return nil, err
	}

	result, err := opts.Evaluator.Evaluate(sel.Agents, testTable, opts.Metric)
	if err != nil {
		return nil, err
	}

	zap.L().Info("selection pipeline complete",
		zap.Int("selected", len(sel.Agents)),
		zap.Float64("coverage_score", result.CoverageScore),
		zap.Bool("exhausted", sel.Exhausted),
		zap.Int("dropped_records", dropped),
	)

	return &Report{
		Result:       result,
		Selection:    sel,
		TrainRecords: len(train),
		TestRecords:  len(test),
		Dropped:      dropped,
		Buckets:      len(bk.Buckets()),
	}, nil
}

// TagStore computes stratum and temporal IDs for every record in the store
// and writes them back by identity, mirroring the in-memory tagging stage.
// Returns the number of records that received at least one tag.
func TagStore(ctx context.Context, st store.Store, classifier *stratify.Classifier, granularity int64) (int64, error) {
	minTS, maxTS, err := st.TimestampRange(ctx)
	if err != nil {
		return 0, err
	}

	bk, err := bucket.New(minTS, maxTS, granularity)
	if err != nil {
		return 0, err
	}

	records, err := st.Records(ctx)
	if err != nil {
		return 0, err
	}

	var updated int64
	for _, r := range records {
		tagged := false
		if id, ok := classifier.Classify(r.Longitude, r.Latitude); ok {
			if err := st.UpdateStratum(ctx, r.ID, id); err != nil {
				return updated, err
			}
			tagged = true
		}
		if id, ok := bk.Classify(r.Timestamp); ok {
			if err := st.UpdateTemporal(ctx, r.ID, id); err != nil {
				return updated, err
			}
			tagged = true
		}
		if tagged {
			updated++
		}
	}

	if updated == 0 {
		zap.L().Warn("pipeline: no records received tags; check stratification and bucket range",
			zap.Int("records", len(records)),
		)
	}
	return updated, nil
}

// RunFromStore executes a selection run over tagged records already in the
// store. The train and test incidence tables come from the store's grouped
// query; the run itself is recorded in the store with its result.
func RunFromStore(ctx context.Context, st store.Store, strategy string, opts Options) (*Report, *store.Run, error) {
	if opts.Evaluator == nil {
		opts.Evaluator = evaluate.New()
	}
	if opts.Metric == "" {
		opts.Metric = evaluate.PercentageCoverage
	}
	if opts.Selector == nil {
		opts.Selector = selector.NewGreedy()
	}

	run, err := st.CreateRun(ctx, strategy, opts.Count, opts.SplitTS, opts.Metric)
	if err != nil {
		return nil, nil, err
	}

	splitMax := opts.SplitTS
	testMin := opts.SplitTS + 1

	trainTable, err := st.IncidenceTable(ctx, store.IncidenceFilter{MaxTemporalID: &splitMax})
	if err != nil {
		return nil, nil, err
	}
	testTable, err := st.IncidenceTable(ctx, store.IncidenceFilter{MinTemporalID: &testMin})
	if err != nil {
		return nil, nil, err
	}

	sel, err := opts.Selector.Select(trainTable, opts.Count)
	if err != nil {
		return nil, nil, err
	}

	result, err := opts.Evaluator.Evaluate(sel.Agents, testTable, opts.Metric)
	if err != nil {
		return nil, nil, err
	}

	if err := st.CompleteRun(ctx, run.ID, result); err != nil {
		return nil, nil, err
	}
	run.Status = store.RunStatusComplete
	run.Result = result

	report := &Report{
		Result:    result,
		Selection: sel,
	}
	return report, run, nil
}
