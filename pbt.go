package hyperopt

import (
	"math"
	"math/rand"
	"sort"
)

// PbtMember is one individual in a Population-Based Training run: a
// parameter assignment plus the performance/step bookkeeping PBT's
// exploit/explore loop needs. Higher performance is always better, by
// PBT convention, independent of any Study's Direction.
type PbtMember struct {
	ID          int
	Parameters  map[string]Value
	Performance float64
	Step        int
	History     []map[string]Value
}

func (m PbtMember) clone() PbtMember {
	cp := PbtMember{
		ID:          m.ID,
		Parameters:  make(map[string]Value, len(m.Parameters)),
		Performance: m.Performance,
		Step:        m.Step,
		History:     make([]map[string]Value, len(m.History)),
	}
	for k, v := range m.Parameters {
		cp.Parameters[k] = v
	}
	for i, h := range m.History {
		snap := make(map[string]Value, len(h))
		for k, v := range h {
			snap[k] = v
		}
		cp.History[i] = snap
	}
	return cp
}

// PbtCoordinator runs the evolve/perturb loop over a population of
// PbtMember, generalizing the ask/tell loop from a single trial stream to
// a fixed-size population.
type PbtCoordinator struct {
	rng            *rand.Rand
	space          SearchSpace
	random         *RandomSampler
	ExploitFraction float64 // fraction of the population replaced on Evolve; default 0.2
	PerturbFactor   float64 // multiplicative perturbation spread; default 0.2
}

// NewPbtCoordinator builds a PbtCoordinator over space, seeded from seed.
func NewPbtCoordinator(space SearchSpace, seed int64) *PbtCoordinator {
	return &PbtCoordinator{
		rng:             rand.New(rand.NewSource(seed)),
		space:           space,
		random:          NewRandomSampler(seed),
		ExploitFraction: 0.2,
		PerturbFactor:   0.2,
	}
}

// AskPopulation produces populationSize freshly-initialized members: Random
// draws for parameters, performance = -Inf, step = 0, history seeded with
// the initial parameters.
func (p *PbtCoordinator) AskPopulation(populationSize int) []PbtMember {
	out := make([]PbtMember, populationSize)
	for i := range out {
		params := p.random.draw(p.space)
		out[i] = PbtMember{
			ID:          i,
			Parameters:  params,
			Performance: math.Inf(-1),
			Step:        0,
			History:     []map[string]Value{cloneParams(params)},
		}
	}
	return out
}

// Report returns a copy of member with performance and step updated.
func (p *PbtCoordinator) Report(member PbtMember, performance float64, step int) PbtMember {
	cp := member.clone()
	cp.Performance = performance
	cp.Step = step
	return cp
}

// Evolve runs one round of exploit/explore: the top n_keep members by
// performance survive byte-identically; the remaining slots are replaced
// by perturbed copies of randomly-chosen top members, with performance
// reset to -Inf and step reset to 0. The replacement member is emitted
// under the id of the slot it replaces - a deliberate choice (see
// DESIGN.md) rather than preserving per-member lineage ids.
func (p *PbtCoordinator) Evolve(population []PbtMember) []PbtMember {
	n := len(population)
	sorted := make([]PbtMember, n)
	copy(sorted, population)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Performance > sorted[j].Performance
	})

	fraction := p.ExploitFraction
	if fraction <= 0 {
		fraction = 0.2
	}
	nKeep := int(math.Floor((1 - fraction) * float64(n)))
	if nKeep < 1 {
		nKeep = 1
	}
	if nKeep > n {
		nKeep = n
	}

	out := make([]PbtMember, n)
	for i := 0; i < nKeep; i++ {
		out[i] = sorted[i].clone()
	}
	for i := nKeep; i < n; i++ {
		source := sorted[p.rng.Intn(nKeep)]
		perturbed := p.Perturb(source.Parameters)
		out[i] = PbtMember{
			ID:          sorted[i].ID, // id = replaced slot, see DESIGN.md
			Parameters:  perturbed,
			Performance: math.Inf(-1),
			Step:        0,
			History:     append(append([]map[string]Value{}, source.History...), cloneParams(perturbed)),
		}
	}
	return out
}

// Perturb applies the PBT explore step to params: FloatRange/IntRange
// entries are multiplicatively jittered by U(1-perturbFactor,
// 1+perturbFactor) and clipped to range; CategoricalRange entries are
// resampled uniformly with probability 0.5, else kept unchanged.
func (p *PbtCoordinator) Perturb(params map[string]Value) map[string]Value {
	factor := p.PerturbFactor
	if factor <= 0 {
		factor = 0.2
	}

	out := make(map[string]Value, len(params))
	for _, rg := range p.space.Ranges() {
		v, ok := params[rg.Name]
		if !ok {
			continue
		}
		switch rg.Kind {
		case FloatKind:
			jitter := 1 - factor + p.rng.Float64()*2*factor
			out[rg.Name] = rg.Clip(v.AsFloat64() * jitter)
		case IntKind:
			jitter := 1 - factor + p.rng.Float64()*2*factor
			scaled := math.Round(v.AsFloat64() * jitter)
			out[rg.Name] = rg.Clip(scaled)
		case CategoricalKind:
			if p.rng.Float64() < 0.5 {
				out[rg.Name] = CategoricalValue(rg.Choices[p.rng.Intn(len(rg.Choices))])
			} else {
				out[rg.Name] = v
			}
		default:
			out[rg.Name] = v
		}
	}
	return out
}

func cloneParams(params map[string]Value) map[string]Value {
	cp := make(map[string]Value, len(params))
	for k, v := range params {
		cp[k] = v
	}
	return cp
}
