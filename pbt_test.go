package hyperopt

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pbtSpace() SearchSpace {
	return NewSearchSpace(
		NewFloatRange("lr", 0.001, 1.0, false),
		NewIntRange("batch", 1, 256, 1),
		NewCategoricalRange("opt", "sgd", "adam"),
	)
}

func TestAskPopulationInitializesMembers(t *testing.T) {
	coord := NewPbtCoordinator(pbtSpace(), 1)
	population := coord.AskPopulation(10)

	require.Len(t, population, 10)
	for i, m := range population {
		assert.Equal(t, i, m.ID)
		assert.Equal(t, math.Inf(-1), m.Performance)
		assert.Equal(t, 0, m.Step)
		require.Len(t, m.History, 1)
		assert.Equal(t, m.Parameters, m.History[0])
	}
}

func TestReportUpdatesPerformanceAndStep(t *testing.T) {
	coord := NewPbtCoordinator(pbtSpace(), 1)
	population := coord.AskPopulation(1)

	updated := coord.Report(population[0], 0.75, 5)
	assert.Equal(t, 0.75, updated.Performance)
	assert.Equal(t, 5, updated.Step)
	assert.Equal(t, math.Inf(-1), population[0].Performance, "Report must not mutate its input")
}

// TestEvolveExploitFraction checks a concrete scenario: a population of 10
// with exploitFraction 0.2 keeps the top 8 byte-identical and replaces the
// bottom 2 with perturbed, performance-reset copies.
func TestEvolveExploitFraction(t *testing.T) {
	coord := NewPbtCoordinator(pbtSpace(), 1)
	coord.ExploitFraction = 0.2

	population := coord.AskPopulation(10)
	for i := range population {
		population[i] = coord.Report(population[i], float64(i+1), 1) // performances 1..10
	}

	evolved := coord.Evolve(population)
	require.Len(t, evolved, 10)

	keptPerformances := make(map[float64]bool)
	replacedCount := 0
	for _, m := range evolved {
		if m.Performance == math.Inf(-1) {
			replacedCount++
			assert.Equal(t, 0, m.Step)
			continue
		}
		keptPerformances[m.Performance] = true
	}

	assert.Equal(t, 2, replacedCount, "bottom 2 of 10 slots are replaced")
	for perf := 3.0; perf <= 10.0; perf++ {
		assert.True(t, keptPerformances[perf], "performance %v should survive in the top 8", perf)
	}
}

func TestPerturbStaysWithinBounds(t *testing.T) {
	coord := NewPbtCoordinator(pbtSpace(), 1)
	space := pbtSpace()

	params := map[string]Value{
		"lr":    FloatValue(0.5),
		"batch": IntValue(128),
		"opt":   CategoricalValue("sgd"),
	}

	for i := 0; i < 200; i++ {
		perturbed := coord.Perturb(params)
		require.NoError(t, space.Validate(perturbed))
	}
}
