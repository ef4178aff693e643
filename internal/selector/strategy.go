package selector

import (
	"github.com/rotisserie/eris"

	"github.com/urbansense/fleetcover/internal/model"
)

// Strategy identifiers accepted by ForStrategy.
const (
	StrategyGreedy   = "greedy"
	StrategyTopCount = "topcount"
	StrategyRandom   = "random"
)

// ForStrategy builds the selector for a named strategy. The seed only
// applies to the random strategy.
func ForStrategy(name string, seed int64) (Selector, error) {
	switch name {
	case StrategyGreedy:
		return NewGreedy(), nil
	case StrategyTopCount:
		return NewTopCount(), nil
	case StrategyRandom:
		return NewRandom(seed), nil
	default:
		return nil, eris.Wrapf(model.ErrValidation, "selector: unknown strategy %q", name)
	}
}
