package hyperopt

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNopPrunerNeverPrunes(t *testing.T) {
	assert.False(t, (NopPruner{}).ShouldPrune(newTrial(0, nil), nil))
}

func trialWithIntermediate(number int, step int, value float64) *Trial {
	tr := newTrial(number, nil)
	tr.state = Complete
	tr.Report(step, value)
	return tr
}

func TestMedianPrunerRequiresMinTrials(t *testing.T) {
	p := &MedianPruner{MinTrials: 5, Direction: Minimize}

	running := newTrial(100, nil)
	running.state = Running
	running.Report(0, 10)

	var completed []*Trial
	for i := 0; i < 4; i++ {
		completed = append(completed, trialWithIntermediate(i, 0, 1))
	}

	all := append(completed, running)
	assert.False(t, p.ShouldPrune(running, all), "fewer than MinTrials reported at this step")
}

func TestMedianPrunerPrunesWorseThanMedian(t *testing.T) {
	p := NewMedianPruner(Minimize)

	running := newTrial(100, nil)
	running.state = Running
	running.Report(0, 100) // much worse than the others

	var all []*Trial
	for i := 0; i < 5; i++ {
		all = append(all, trialWithIntermediate(i, 0, float64(i)))
	}
	all = append(all, running)

	assert.True(t, p.ShouldPrune(running, all))
}

func TestMedianPrunerDoesNotPruneBetterThanMedian(t *testing.T) {
	p := NewMedianPruner(Minimize)

	running := newTrial(100, nil)
	running.state = Running
	running.Report(0, -1) // better than all others

	var all []*Trial
	for i := 0; i < 5; i++ {
		all = append(all, trialWithIntermediate(i, 0, float64(i)))
	}
	all = append(all, running)

	assert.False(t, p.ShouldPrune(running, all))
}

func TestMedianPrunerNoIntermediateValues(t *testing.T) {
	p := NewMedianPruner(Minimize)
	running := newTrial(1, nil)
	assert.False(t, p.ShouldPrune(running, nil))
}
