// Package evaluate scores a selected agent subset against held-out mobility
// data using pluggable coverage metrics.
package evaluate

import (
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/urbansense/fleetcover/internal/model"
)

// PercentageCoverage is the identifier of the default metric.
const PercentageCoverage = "percentage_coverage"

// Metric scores a selection against an incidence table. What coverage would
// we get if we had deployed sensors on exactly these agents and they had
// travelled according to the table?
type Metric func(selected []int64, table *model.IncidenceTable) float64

// Evaluator holds an explicit metric registry keyed by string identifier.
// The registry is owned by the evaluator instance; there is no process-wide
// mutable metric state.
type Evaluator struct {
	metrics map[string]Metric
}

// New returns an evaluator seeded with the built-in metrics.
func New() *Evaluator {
	return &Evaluator{
		metrics: map[string]Metric{
			PercentageCoverage: percentageCoverage,
		},
	}
}

// Register adds or replaces a named metric.
func (e *Evaluator) Register(name string, m Metric) {
	e.metrics[name] = m
}

// Metric resolves a metric by identifier.
func (e *Evaluator) Metric(name string) (Metric, error) {
	m, ok := e.metrics[name]
	if !ok {
		return nil, eris.Wrapf(model.ErrUnsupportedMetric,
			"evaluate: metric %q is not registered; register a custom metric or use EvaluateWith", name)
	}
	return m, nil
}

// Evaluate scores the selected agents against the test table with a named
// metric.
func (e *Evaluator) Evaluate(selected []int64, test *model.IncidenceTable, metricName string) (*model.CoverageResult, error) {
	m, err := e.Metric(metricName)
	if err != nil {
		return nil, err
	}
	return EvaluateWith(selected, test, m), nil
}

// EvaluateWith scores the selected agents with a caller-supplied metric,
// bypassing the registry. A test table with zero segments yields a score of 0
// by convention (never NaN) and sets Empty on the result.
func EvaluateWith(selected []int64, test *model.IncidenceTable, m Metric) *model.CoverageResult {
	result := &model.CoverageResult{SelectedAgents: selected}

	if test.NumSegments() == 0 {
		result.Empty = true
		zap.L().Warn("evaluate: test partition covers zero segments; score is 0 by convention")
		return result
	}

	result.CoverageScore = m(selected, test)
	return result
}

// percentageCoverage is the default metric: segments covered by the selected
// agents as a percentage of segments covered by all agents in the table.
func percentageCoverage(selected []int64, table *model.IncidenceTable) float64 {
	total := table.NumSegments()
	if total == 0 {
		return 0
	}

	covered := make(map[model.Segment]struct{})
	for _, id := range selected {
		for seg := range table.Segments(id) {
			covered[seg] = struct{}{}
		}
	}

	return float64(len(covered)) / float64(total) * 100
}
