package hyperopt

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Pruner is consulted between intermediate reports to decide whether a
// Running trial looks unpromising enough to stop early. Pruning is
// advisory: the caller observes the bool and, if it chooses to act on it,
// signals the outcome itself via Tell(number, Pruned).
type Pruner interface {
	ShouldPrune(trial *Trial, allTrials []*Trial) bool
}

// NopPruner never recommends pruning.
type NopPruner struct{}

// ShouldPrune implements Pruner.
func (NopPruner) ShouldPrune(*Trial, []*Trial) bool { return false }

// MedianPruner recommends pruning a Running trial when its most recently
// reported intermediate value, at the current step, is worse than the
// median of all Complete trials' values at that same step - provided at
// least MinTrials Complete trials have reported at that step.
type MedianPruner struct {
	// MinTrials is the minimum number of Complete trials that must have
	// reported at a given step before pruning is considered. Default 5.
	MinTrials int
	// Direction determines whether "worse" means higher or lower.
	Direction Direction
}

// NewMedianPruner builds a MedianPruner with a default minimum of 5
// trials.
func NewMedianPruner(direction Direction) *MedianPruner {
	return &MedianPruner{MinTrials: 5, Direction: direction}
}

var _ Pruner = (*MedianPruner)(nil)

// ShouldPrune implements Pruner.
func (p *MedianPruner) ShouldPrune(trial *Trial, allTrials []*Trial) bool {
	step, current, ok := latestIntermediate(trial)
	if !ok {
		return false
	}

	minTrials := p.MinTrials
	if minTrials <= 0 {
		minTrials = 5
	}

	var atStep []float64
	for _, t := range allTrials {
		if t.State() != Complete {
			continue
		}
		if v, ok := t.IntermediateValue(step); ok && isFinite(v) {
			atStep = append(atStep, v)
		}
	}
	if len(atStep) < minTrials {
		return false
	}

	sort.Float64s(atStep)
	median := stat.Quantile(0.5, stat.Empirical, atStep, nil)

	return !p.Direction.better(current, median) && current != median
}

// latestIntermediate returns the step/value of the most recently reported
// intermediate value on trial, i.e. the one with the largest step number.
func latestIntermediate(trial *Trial) (step int, value float64, ok bool) {
	vals := trial.IntermediateValues()
	if len(vals) == 0 {
		return 0, 0, false
	}
	best := 0
	first := true
	for s := range vals {
		if first || s > best {
			best = s
			first = false
		}
	}
	return best, vals[best], true
}
