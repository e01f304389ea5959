package hyperopt

import (
	"math"
	"math/rand"
)

// RandomSampler draws each parameter uniformly and independently from its
// range. It is both a standalone sampler and the fallback every other
// sampler delegates to during its startup phase or for dimensions it does
// not specialize in (categorical ranges for CMA-ES, for instance).
//
// Seeded construction is deterministic given a fixed draw order: the
// Study's mutex already serializes every call into the sampler, so the
// embedded *rand.Rand needs no lock of its own.
type RandomSampler struct {
	rng *rand.Rand
}

// NewRandomSampler builds a RandomSampler seeded deterministically from
// seed.
func NewRandomSampler(seed int64) *RandomSampler {
	return &RandomSampler{rng: rand.New(rand.NewSource(seed))}
}

var _ Sampler = (*RandomSampler)(nil)
var _ BatchSampler = (*RandomSampler)(nil)

// Sample implements Sampler.
func (r *RandomSampler) Sample(_ History, _ Direction, space SearchSpace) map[string]Value {
	return r.draw(space)
}

// SampleMultiObjective implements Sampler; Random draws are direction-
// agnostic, so this simply delegates to the single draw.
func (r *RandomSampler) SampleMultiObjective(_ History, _ []Direction, space SearchSpace) map[string]Value {
	return r.draw(space)
}

// SampleBatch implements BatchSampler.
func (r *RandomSampler) SampleBatch(_ History, _ Direction, space SearchSpace, n int) []map[string]Value {
	out := make([]map[string]Value, n)
	for i := range out {
		out[i] = r.draw(space)
	}
	return out
}

func (r *RandomSampler) draw(space SearchSpace) map[string]Value {
	out := make(map[string]Value, space.Len())
	for _, rg := range space.Ranges() {
		out[rg.Name] = r.drawOne(rg)
	}
	return out
}

func (r *RandomSampler) drawOne(rg ParameterRange) Value {
	switch rg.Kind {
	case IntKind:
		steps := int64(math.Floor((rg.High - rg.Low) / rg.Step))
		k := r.rng.Int63n(steps + 1)
		return IntValue(int64(rg.Low) + k*int64(rg.Step))
	case FloatKind:
		if rg.Log {
			lo, hi := math.Log(rg.Low), math.Log(rg.High)
			return FloatValue(math.Exp(lo + r.rng.Float64()*(hi-lo)))
		}
		return FloatValue(rg.Low + r.rng.Float64()*(rg.High-rg.Low))
	case CategoricalKind:
		return CategoricalValue(rg.Choices[r.rng.Intn(len(rg.Choices))])
	default:
		panic(newDomainError(ErrUnknownParameterKind, "unknown parameter kind %v", rg.Kind))
	}
}
