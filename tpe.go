package hyperopt

import (
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// TPESampler implements a Tree-structured Parzen Estimator: it partitions
// trial history into a "good" and a "bad" subset by objective, fits a
// density ratio per parameter, and proposes candidates that maximize that
// ratio. The model is a per-parameter Parzen mixture rather than a joint
// kernel regressor, and the Gaussian math is delegated to
// gonum/stat/distuv rather than hand-rolled density helpers.
type TPESampler struct {
	rng    *rand.Rand
	random *RandomSampler

	// NStartupTrials: until this many Complete trials exist, delegate to
	// the random sampler. Default 10.
	NStartupTrials int
	// Gamma is the good-fraction. Default 0.25.
	Gamma float64
	// MaxGood caps the absolute size of the good set (0 = unlimited, i.e.
	// ceil(Gamma*n) is used unmodified).
	MaxGood int
	// NEICandidates is the number of candidates drawn per parameter (or,
	// in batch mode, per requested sample) when scoring the acquisition.
	// Default 24.
	NEICandidates int
}

// NewTPESampler builds a TPESampler with the default tuning
// (NStartupTrials=10, Gamma=0.25, NEICandidates=24), seeded from seed.
func NewTPESampler(seed int64) *TPESampler {
	return &TPESampler{
		rng:            rand.New(rand.NewSource(seed)),
		random:         NewRandomSampler(seed + 1),
		NStartupTrials: 10,
		Gamma:          0.25,
		NEICandidates:  24,
	}
}

var _ Sampler = (*TPESampler)(nil)
var _ BatchSampler = (*TPESampler)(nil)

// Sample implements Sampler.
func (t *TPESampler) Sample(history History, direction Direction, space SearchSpace) map[string]Value {
	complete := completeFiniteSingle(history)
	if len(complete) < t.startupTrials() {
		return t.random.Sample(history, direction, space)
	}
	good, bad := t.splitSingleObjective(complete, direction)
	return t.proposeOne(good, bad, space)
}

// SampleMultiObjective implements Sampler.
func (t *TPESampler) SampleMultiObjective(history History, directions []Direction, space SearchSpace) map[string]Value {
	complete := completeFiniteMulti(history, len(directions))
	if len(complete) < t.startupTrials() {
		return t.random.SampleMultiObjective(history, directions, space)
	}
	good, bad := t.splitMultiObjective(complete, directions)
	return t.proposeOne(good, bad, space)
}

// SampleBatch implements BatchSampler: fits the good/bad densities once,
// draws n*NEICandidates joint candidates, and returns the top n distinct
// by summed acquisition score. When fewer than n distinct candidates are
// produced, the remainder is filled with random draws.
func (t *TPESampler) SampleBatch(history History, direction Direction, space SearchSpace, n int) []map[string]Value {
	complete := completeFiniteSingle(history)
	if len(complete) < t.startupTrials() {
		return t.random.SampleBatch(history, direction, space, n)
	}
	good, bad := t.splitSingleObjective(complete, direction)
	return t.proposeBatch(good, bad, space, n)
}

func (t *TPESampler) startupTrials() int {
	if t.NStartupTrials <= 0 {
		return 10
	}
	return t.NStartupTrials
}

func (t *TPESampler) gamma() float64 {
	if t.Gamma <= 0 {
		return 0.25
	}
	return t.Gamma
}

func (t *TPESampler) candidates() int {
	if t.NEICandidates <= 0 {
		return 24
	}
	return t.NEICandidates
}

// completeFiniteSingle returns Complete trials with a finite single
// objective value.
func completeFiniteSingle(history History) []*Trial {
	var out []*Trial
	for _, tr := range history {
		if tr.State() != Complete {
			continue
		}
		v, ok := tr.Value()
		if !ok || !isFinite(v) {
			continue
		}
		out = append(out, tr)
	}
	return out
}

// completeFiniteMulti returns Complete trials with a values vector of the
// expected length whose entries are all finite.
func completeFiniteMulti(history History, n int) []*Trial {
	var out []*Trial
	for _, tr := range history {
		if tr.State() != Complete {
			continue
		}
		vs := tr.Values()
		if len(vs) != n {
			continue
		}
		ok := true
		for _, v := range vs {
			if !isFinite(v) {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, tr)
		}
	}
	return out
}

// splitSingleObjective sorts complete trials by objective under direction
// (lower-is-better if Minimize) and splits into good/bad by gamma.
func (t *TPESampler) splitSingleObjective(complete []*Trial, direction Direction) (good, bad []*Trial) {
	sorted := make([]*Trial, len(complete))
	copy(sorted, complete)
	sort.Slice(sorted, func(i, j int) bool {
		vi, _ := sorted[i].Value()
		vj, _ := sorted[j].Value()
		return direction.signed(vi) < direction.signed(vj)
	})
	goodSize := t.goodSize(len(sorted))
	return sorted[:goodSize], sorted[goodSize:]
}

// splitMultiObjective builds the good set as the union of the current
// Pareto front plus, if the front is smaller than ceil(gamma*n), the
// remaining trials ranked by crowding distance descending.
func (t *TPESampler) splitMultiObjective(complete []*Trial, directions []Direction) (good, bad []*Trial) {
	front := ComputeParetoFront(complete, directions)
	target := t.goodSize(len(complete))

	inFront := make(map[*Trial]bool, len(front))
	for _, tr := range front {
		inFront[tr] = true
	}
	var remaining []*Trial
	for _, tr := range complete {
		if !inFront[tr] {
			remaining = append(remaining, tr)
		}
	}

	good = append(good, front...)
	if len(good) < target && len(remaining) > 0 {
		cd := CrowdingDistances(remaining, directions)
		sort.Slice(remaining, func(i, j int) bool {
			return cd[remaining[i]] > cd[remaining[j]]
		})
		need := target - len(good)
		if need > len(remaining) {
			need = len(remaining)
		}
		good = append(good, remaining[:need]...)
	}

	goodSet := make(map[*Trial]bool, len(good))
	for _, tr := range good {
		goodSet[tr] = true
	}
	for _, tr := range complete {
		if !goodSet[tr] {
			bad = append(bad, tr)
		}
	}
	return good, bad
}

func (t *TPESampler) goodSize(n int) int {
	size := int(math.Ceil(t.gamma() * float64(n)))
	if t.MaxGood > 0 && size > t.MaxGood {
		size = t.MaxGood
	}
	if size < 1 {
		size = 1
	}
	if size > n {
		size = n
	}
	return size
}

// proposeOne fits fG/fB per parameter and, exploiting the additive
// separability of the summed acquisition across independently-sampled
// parameters, picks each parameter's argmax independently - equivalent to
// a joint argmax over all parameters at once, and far cheaper.
func (t *TPESampler) proposeOne(good, bad []*Trial, space SearchSpace) map[string]Value {
	out := make(map[string]Value, space.Len())
	for _, rg := range space.Ranges() {
		fG, fB := t.fit(rg, good, bad)
		var best Value
		bestScore := math.Inf(-1)
		for i := 0; i < t.candidates(); i++ {
			x := fG.sample(t.rng)
			score := fG.logProb(x) - fB.logProb(x)
			if score > bestScore {
				bestScore = score
				best = x
			}
		}
		out[rg.Name] = best
	}
	return out
}

type scoredCandidate struct {
	params map[string]Value
	score  float64
}

// proposeBatch draws n*candidates() joint candidates and returns the top
// n distinct by summed acquisition score, random-filling any shortfall.
func (t *TPESampler) proposeBatch(good, bad []*Trial, space SearchSpace, n int) []map[string]Value {
	ranges := space.Ranges()
	densities := make([][2]density, len(ranges))
	for i, rg := range ranges {
		fG, fB := t.fit(rg, good, bad)
		densities[i] = [2]density{fG, fB}
	}

	draws := n * t.candidates()
	scored := make([]scoredCandidate, 0, draws)
	for i := 0; i < draws; i++ {
		params := make(map[string]Value, len(ranges))
		var score float64
		for j, rg := range ranges {
			fG, fB := densities[j][0], densities[j][1]
			x := fG.sample(t.rng)
			score += fG.logProb(x) - fB.logProb(x)
			params[rg.Name] = x
		}
		scored = append(scored, scoredCandidate{params: params, score: score})
	}

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].score > scored[j].score })

	out := make([]map[string]Value, 0, n)
	seen := make([]map[string]Value, 0, n)
	for _, c := range scored {
		if len(out) == n {
			break
		}
		if containsEqualParams(seen, c.params) {
			continue
		}
		seen = append(seen, c.params)
		out = append(out, c.params)
	}
	for len(out) < n {
		out = append(out, t.random.draw(space))
	}
	return out
}

func containsEqualParams(seen []map[string]Value, params map[string]Value) bool {
	for _, s := range seen {
		if paramsEqual(s, params) {
			return true
		}
	}
	return false
}

func paramsEqual(a, b map[string]Value) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		ov, ok := b[k]
		if !ok || !v.Equal(ov) {
			return false
		}
	}
	return true
}

// fit builds the good/bad densities for one parameter range.
func (t *TPESampler) fit(rg ParameterRange, good, bad []*Trial) (fG, fB density) {
	if rg.Kind == CategoricalKind {
		return fitCategorical(rg, extractCategorical(good, rg.Name)), fitCategorical(rg, extractCategorical(bad, rg.Name))
	}
	return fitParzen(rg, extractNumeric(good, rg.Name)), fitParzen(rg, extractNumeric(bad, rg.Name))
}

func extractNumeric(trials []*Trial, name string) []float64 {
	var out []float64
	for _, tr := range trials {
		v, ok := tr.Parameters()[name]
		if !ok {
			continue
		}
		f := v.AsFloat64()
		if isFinite(f) {
			out = append(out, f)
		}
	}
	return out
}

func extractCategorical(trials []*Trial, name string) []string {
	var out []string
	for _, tr := range trials {
		v, ok := tr.Parameters()[name]
		if !ok {
			continue
		}
		out = append(out, v.Categorical)
	}
	return out
}

// density is a one-dimensional distribution a TPESampler can draw from
// and evaluate a log-density at, for one parameter.
type density interface {
	logProb(v Value) float64
	sample(rng *rand.Rand) Value
}

// parzenEstimator is a mixture of one Gaussian per observed point plus a
// broad prior Gaussian centered at the range midpoint, operating in the
// range's transformed (linear or ln) space.
type parzenEstimator struct {
	rg      ParameterRange
	mus     []float64
	sigmas  []float64
	weights []float64
}

func fitParzen(rg ParameterRange, values []float64) *parzenEstimator {
	transformed := make([]float64, len(values))
	for i, v := range values {
		transformed[i] = rg.Transform(v)
	}
	sort.Float64s(transformed)

	width := rg.Width()
	if width <= 0 {
		width = 1
	}

	n := len(transformed)
	mus := make([]float64, 0, n+1)
	sigmas := make([]float64, 0, n+1)

	if n > 0 {
		baseSigma := width / 10
		if n > 1 {
			std := stat.StdDev(transformed, nil)
			if std > 0 {
				baseSigma = 1.06 * std * math.Pow(float64(n), -0.2)
			}
		}
		floor := width / 100
		for i, mu := range transformed {
			gap := width
			hasNeighbor := false
			if i > 0 {
				gap = mu - transformed[i-1]
				hasNeighbor = true
			}
			if i < n-1 {
				right := transformed[i+1] - mu
				if !hasNeighbor || right < gap {
					gap = right
				}
				hasNeighbor = true
			}
			if !hasNeighbor {
				gap = width
			}
			sigma := math.Min(baseSigma, gap)
			if sigma < floor {
				sigma = floor
			}
			mus = append(mus, mu)
			sigmas = append(sigmas, sigma)
		}
	}

	// Prior component, always present.
	mus = append(mus, rg.Midpoint())
	sigmas = append(sigmas, width)

	weights := uniformWeights(len(mus))

	return &parzenEstimator{rg: rg, mus: mus, sigmas: sigmas, weights: weights}
}

func uniformWeights(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 1.0 / float64(n)
	}
	return w
}

func (p *parzenEstimator) logProb(v Value) float64 {
	x := p.rg.Transform(v.AsFloat64())
	var sum float64
	for i, mu := range p.mus {
		n := distuv.Normal{Mu: mu, Sigma: p.sigmas[i]}
		sum += p.weights[i] * n.Prob(x)
	}
	if sum <= 0 {
		return math.Inf(-1)
	}
	return math.Log(sum)
}

func (p *parzenEstimator) sample(rng *rand.Rand) Value {
	r := rng.Float64()
	var cum float64
	idx := len(p.mus) - 1
	for i, w := range p.weights {
		cum += w
		if r <= cum {
			idx = i
			break
		}
	}
	n := distuv.Normal{Mu: p.mus[idx], Sigma: p.sigmas[idx], Src: rng}
	x := n.Rand()
	return p.rg.Clip(p.rg.Untransform(x))
}

var _ density = (*parzenEstimator)(nil)

// categoricalDensity is a Laplace-smoothed categorical distribution over
// a range's choices: prior weight 1 per choice, plus observation counts.
type categoricalDensity struct {
	choices []string
	probs   map[string]float64
}

func fitCategorical(rg ParameterRange, observed []string) *categoricalDensity {
	counts := make(map[string]float64, len(rg.Choices))
	for _, c := range rg.Choices {
		counts[c] = 1 // Laplace prior
	}
	for _, v := range observed {
		if _, ok := counts[v]; ok {
			counts[v]++
		}
	}
	var total float64
	for _, c := range counts {
		total += c
	}
	probs := make(map[string]float64, len(counts))
	for k, c := range counts {
		probs[k] = c / total
	}
	return &categoricalDensity{choices: rg.Choices, probs: probs}
}

func (c *categoricalDensity) logProb(v Value) float64 {
	p, ok := c.probs[v.Categorical]
	if !ok || p <= 0 {
		return math.Inf(-1)
	}
	return math.Log(p)
}

func (c *categoricalDensity) sample(rng *rand.Rand) Value {
	r := rng.Float64()
	var cum float64
	last := c.choices[len(c.choices)-1]
	for _, choice := range c.choices {
		cum += c.probs[choice]
		if r <= cum {
			return CategoricalValue(choice)
		}
	}
	return CategoricalValue(last)
}

var _ density = (*categoricalDensity)(nil)
