package hyperopt

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTrialStateTerminal(t *testing.T) {
	assert.False(t, Running.terminal())
	assert.True(t, Complete.terminal())
	assert.True(t, Fail.terminal())
	assert.True(t, Pruned.terminal())
}

func TestTrialReportAndIntermediateValues(t *testing.T) {
	tr := newTrial(0, map[string]Value{"x": FloatValue(1)})
	tr.Report(1, 0.5)
	tr.Report(2, 0.25)

	v, ok := tr.IntermediateValue(2)
	assert.True(t, ok)
	assert.Equal(t, 0.25, v)

	_, ok = tr.IntermediateValue(99)
	assert.False(t, ok)

	assert.Equal(t, map[int]float64{1: 0.5, 2: 0.25}, tr.IntermediateValues())
}

// TestTrialReportConcurrent exercises the documented guarantee that Report
// may be called concurrently without the owning study's lock.
func TestTrialReportConcurrent(t *testing.T) {
	tr := newTrial(0, nil)
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(step int) {
			defer wg.Done()
			tr.Report(step, float64(step))
		}(i)
	}
	wg.Wait()
	assert.Len(t, tr.IntermediateValues(), 100)
}

func TestTrialIsFeasible(t *testing.T) {
	tr := newTrial(0, nil)
	assert.True(t, tr.IsFeasible(), "no constraint vector is vacuously feasible")

	tr.constraintValues = []float64{-1, 0}
	assert.True(t, tr.IsFeasible())

	tr.constraintValues = []float64{-1, 0.1}
	assert.False(t, tr.IsFeasible())
}

func TestTrialCloneIsIndependent(t *testing.T) {
	tr := newTrial(3, map[string]Value{"x": IntValue(5)})
	tr.Report(0, 1.0)
	v := 2.0
	tr.value = &v

	cp := tr.clone()
	cp.parameters["x"] = IntValue(9)
	cp.intermediates.set(0, 99)

	orig, _ := tr.Parameters()["x"], true
	assert.Equal(t, IntValue(5), orig)
	iv, _ := tr.IntermediateValue(0)
	assert.Equal(t, 1.0, iv)
}

func TestNewTrialFromFields(t *testing.T) {
	v := 1.5
	tr := NewTrialFromFields(Complete, map[string]Value{"x": FloatValue(1)}, &v, []float64{1, 2}, []float64{-1}, map[int]float64{0: 0.1})
	assert.Equal(t, Complete, tr.State())
	val, ok := tr.Value()
	assert.True(t, ok)
	assert.Equal(t, 1.5, val)
	assert.Equal(t, []float64{1, 2}, tr.Values())
	assert.Equal(t, []float64{-1}, tr.ConstraintValues())
	iv, ok := tr.IntermediateValue(0)
	assert.True(t, ok)
	assert.Equal(t, 0.1, iv)
}
