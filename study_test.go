package hyperopt

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func simpleSpace() SearchSpace {
	return NewSearchSpace(NewFloatRange("x", 0, 1, false))
}

func TestStudyAskAssignsSequentialNumbers(t *testing.T) {
	study := NewRandomStudy("s", simpleSpace(), Minimize, 1)
	a := study.Ask()
	b := study.Ask()
	assert.Equal(t, 0, a.Number())
	assert.Equal(t, 1, b.Number())
}

func TestStudyAskEmptySpaceReturnsEmptyParameters(t *testing.T) {
	study := NewRandomStudy("s", NewSearchSpace(), Minimize, 1)
	tr := study.Ask()
	assert.Empty(t, tr.Parameters())
}

func TestStudyTellUnknownTrialIsDomainError(t *testing.T) {
	study := NewRandomStudy("s", simpleSpace(), Minimize, 1)
	err := study.Tell(999, 1.0)
	require.Error(t, err)
	de, ok := AsDomainError(err)
	require.True(t, ok)
	assert.Equal(t, ErrUnknownTrial, de.Code)
}

func TestStudyTellTwiceIsInvalidTransition(t *testing.T) {
	study := NewRandomStudy("s", simpleSpace(), Minimize, 1)
	tr := study.Ask()
	require.NoError(t, study.Tell(tr.Number(), 1.0))

	err := study.Tell(tr.Number(), 2.0)
	require.Error(t, err)
	de, ok := AsDomainError(err)
	require.True(t, ok)
	assert.Equal(t, ErrInvalidTransition, de.Code)
}

func TestStudyTellStateRejectsRunningAndComplete(t *testing.T) {
	study := NewRandomStudy("s", simpleSpace(), Minimize, 1)
	tr := study.Ask()

	err := study.TellState(tr.Number(), Running)
	require.Error(t, err)
	de, ok := AsDomainError(err)
	require.True(t, ok)
	assert.Equal(t, ErrInvalidTransition, de.Code)

	err = study.TellState(tr.Number(), Complete)
	require.Error(t, err)
}

func TestStudyTellStateAcceptsFailAndPruned(t *testing.T) {
	study := NewRandomStudy("s", simpleSpace(), Minimize, 1)
	tr1 := study.Ask()
	tr2 := study.Ask()

	require.NoError(t, study.TellState(tr1.Number(), Fail))
	require.NoError(t, study.TellState(tr2.Number(), Pruned))

	trials := study.Trials()
	assert.Equal(t, Fail, trials[0].State())
	assert.Equal(t, Pruned, trials[1].State())
}

func TestStudyTellBatchSkipsUnknownNumbers(t *testing.T) {
	study := NewRandomStudy("s", simpleSpace(), Minimize, 1)
	tr := study.Ask()

	study.TellBatch([]BatchResult{
		{Number: tr.Number(), Value: 1.0},
		{Number: 9999, Value: 2.0}, // silently skipped
	})

	trials := study.Trials()
	require.Len(t, trials, 1)
	v, ok := trials[0].Value()
	require.True(t, ok)
	assert.Equal(t, 1.0, v)
}

func TestStudyBestTrialFirstWinsTie(t *testing.T) {
	study := NewRandomStudy("s", simpleSpace(), Minimize, 1)
	a := study.Ask()
	b := study.Ask()
	require.NoError(t, study.Tell(a.Number(), 1.0))
	require.NoError(t, study.Tell(b.Number(), 1.0))

	best, ok := study.BestTrial()
	require.True(t, ok)
	assert.Equal(t, a.Number(), best.Number())
}

func TestStudyBestTrialIgnoresNonFiniteAndIncomplete(t *testing.T) {
	study := NewRandomStudy("s", simpleSpace(), Minimize, 1)
	a := study.Ask()
	b := study.Ask()
	c := study.Ask()

	require.NoError(t, study.Tell(a.Number(), math.NaN()))
	require.NoError(t, study.TellState(b.Number(), Fail))
	require.NoError(t, study.Tell(c.Number(), 0.5))

	best, ok := study.BestTrial()
	require.True(t, ok)
	assert.Equal(t, c.Number(), best.Number())
}

func TestStudyParetoFrontSingleObjective(t *testing.T) {
	study := NewRandomStudy("s", simpleSpace(), Minimize, 1)
	a := study.Ask()
	require.NoError(t, study.Tell(a.Number(), 0.1))

	front := study.ParetoFront()
	require.Len(t, front, 1)
	assert.Equal(t, a.Number(), front[0].Number())
}

func TestStudyParetoFrontMultiObjective(t *testing.T) {
	study := NewMultiObjectiveStudy("s", simpleSpace(), []Direction{Minimize, Minimize}, nil, nil)
	a := study.Ask()
	b := study.Ask()
	require.NoError(t, study.TellValues(a.Number(), []float64{1, 5}))
	require.NoError(t, study.TellValues(b.Number(), []float64{5, 1}))

	front := study.ParetoFront()
	assert.Len(t, front, 2)
}

func TestStudyEmptyDirectionsPanics(t *testing.T) {
	assert.Panics(t, func() {
		NewMultiObjectiveStudy("s", simpleSpace(), nil, nil, nil)
	})
}

func TestStudySetConstraintFuncAppliedAtTellTime(t *testing.T) {
	study := NewRandomStudy("s", simpleSpace(), Minimize, 1)
	study.SetConstraintFunc(func(t *Trial) []float64 {
		return []float64{-1}
	})
	tr := study.Ask()
	require.NoError(t, study.Tell(tr.Number(), 1.0))

	trials := study.Trials()
	assert.True(t, trials[0].IsFeasible())
	assert.Equal(t, []float64{-1}, trials[0].ConstraintValues())
}

func TestStudyPrePopulateWarmTrialsRenumbersAndCopies(t *testing.T) {
	study := NewRandomStudy("s", simpleSpace(), Minimize, 1)

	warm := newTrial(777, map[string]Value{"x": FloatValue(0.2)})
	warm.state = Complete
	v := 0.4
	warm.value = &v
	warm.Report(0, 1.0)

	study.PrePopulateWarmTrials([]*Trial{warm})

	trials := study.Trials()
	require.Len(t, trials, 1)
	assert.Equal(t, 0, trials[0].Number(), "renumbered from the study's own counter")
	val, ok := trials[0].Value()
	require.True(t, ok)
	assert.Equal(t, 0.4, val)
	iv, ok := trials[0].IntermediateValue(0)
	require.True(t, ok)
	assert.Equal(t, 1.0, iv)

	next := study.Ask()
	assert.Equal(t, 1, next.Number(), "next Ask continues after imported trials")
}

func TestStudyAskBatchAssignsSequentialNumbers(t *testing.T) {
	study := NewRandomStudy("s", simpleSpace(), Minimize, 1)
	trials := study.AskBatch(5)
	require.Len(t, trials, 5)
	for i, tr := range trials {
		assert.Equal(t, i, tr.Number())
	}
}

func TestStudyConcurrentAskTellIsSafe(t *testing.T) {
	study := NewRandomStudy("s", simpleSpace(), Minimize, 1)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr := study.Ask()
			tr.Report(0, 1.0) // allowed without the study's lock
			_ = study.Tell(tr.Number(), 1.0)
		}()
	}
	wg.Wait()
	assert.Len(t, study.Trials(), 50)
}

func TestStudyProgressChanReceivesEvents(t *testing.T) {
	study := NewRandomStudy("s", simpleSpace(), Minimize, 1)
	ch := make(chan ProgressEvent, 10)
	study.SetProgressChan(ch)

	tr := study.Ask()
	require.NoError(t, study.Tell(tr.Number(), 1.0))

	ev := <-ch
	assert.Equal(t, "Ask", ev.Op)
	ev = <-ch
	assert.Equal(t, "Tell", ev.Op)
}

func TestStudyDirectionsNilForSingleObjective(t *testing.T) {
	study := NewRandomStudy("s", simpleSpace(), Minimize, 1)
	assert.Nil(t, study.Directions())
	assert.Equal(t, Minimize, study.Direction())
}
