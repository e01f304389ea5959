package hyperopt

import (
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// CMAESSampler is an evolution-strategy sampler operating on the
// continuous (Int/Float) sub-space of a search space; categorical
// dimensions are delegated to a RandomSampler on every call. The
// (μ/μ_w,λ)-CMA-ES recurrences, weighting scheme and bound-clipping
// follow the same shape as gonum.org/v1/gonum/optimize/cmaes.go, adapted
// from that package's asynchronous task-channel protocol to this
// package's synchronous sample/update contract, using gonum/mat and
// gonum/floats for the covariance and vector math.
type CMAESSampler struct {
	rng    *rand.Rand
	random *RandomSampler

	// NStartupTrials: until this many Complete trials exist, delegate to
	// the random sampler. Default is the continuous dimensionality d.
	NStartupTrials int

	dims  []int // indices into the search space that are continuous
	ready bool

	mean  []float64 // transformed-space mean
	sigma float64
	chol  *mat.Cholesky // Cholesky factor of the covariance matrix
	pc    []float64
	ps    []float64

	lambda  int
	weights []float64
	muEff   float64
	cc, cs, c1, cmu, ds float64
	eChi                float64

	pending []cmaesCandidate // generation accumulated since last update
	iter    int
}

type cmaesCandidate struct {
	x []float64 // transformed-space point, length len(dims)
}

// NewCMAESSampler builds a CMAESSampler seeded from seed. NStartupTrials
// defaults to the continuous dimensionality on first use if left at 0.
func NewCMAESSampler(seed int64) *CMAESSampler {
	return &CMAESSampler{
		rng:    rand.New(rand.NewSource(seed)),
		random: NewRandomSampler(seed + 1),
	}
}

var _ Sampler = (*CMAESSampler)(nil)
var _ BatchSampler = (*CMAESSampler)(nil)

// Sample implements Sampler.
func (c *CMAESSampler) Sample(history History, direction Direction, space SearchSpace) map[string]Value {
	c.ensureInit(space)
	if len(c.dims) == 0 {
		// Purely categorical space: nothing here for CMA-ES to model.
		return c.random.Sample(history, direction, space)
	}

	complete := completeFiniteSingle(history)
	if len(complete) < c.startupTrials() {
		return c.delegateRandomMerge(history, direction, space)
	}

	c.maybeUpdate(complete, direction, space)
	return c.drawCandidate(history, direction, space)
}

// SampleMultiObjective implements Sampler by delegating to Sample using
// directions[0].
func (c *CMAESSampler) SampleMultiObjective(history History, directions []Direction, space SearchSpace) map[string]Value {
	return c.Sample(history, directions[0], space)
}

// SampleBatch implements BatchSampler by repeating Sample n times; CMA-ES
// has no cheaper amortized batch path because each draw accumulates into
// the same pending generation.
func (c *CMAESSampler) SampleBatch(history History, direction Direction, space SearchSpace, n int) []map[string]Value {
	out := make([]map[string]Value, n)
	for i := range out {
		out[i] = c.Sample(history, direction, space)
	}
	return out
}

func (c *CMAESSampler) startupTrials() int {
	if c.NStartupTrials > 0 {
		return c.NStartupTrials
	}
	return len(c.dims)
}

// ensureInit lazily initializes the continuous dimension list and CMA
// state on first use, once the search space is known.
func (c *CMAESSampler) ensureInit(space SearchSpace) {
	if c.ready {
		return
	}
	for i, rg := range space.Ranges() {
		if rg.Kind == IntKind || rg.Kind == FloatKind {
			c.dims = append(c.dims, i)
		}
	}
	d := len(c.dims)
	if d == 0 {
		c.ready = true
		return
	}

	c.mean = make([]float64, d)
	for i, idx := range c.dims {
		c.mean[i] = space.Range(idx).Midpoint()
	}
	c.sigma = 0.3 * averageWidth(space, c.dims)
	if c.sigma <= 0 {
		c.sigma = 0.3
	}

	id := mat.NewSymDense(d, nil)
	for i := 0; i < d; i++ {
		id.SetSym(i, i, 1)
	}
	var chol mat.Cholesky
	chol.Factorize(id)
	c.chol = &chol

	c.pc = make([]float64, d)
	c.ps = make([]float64, d)

	n := float64(d)
	c.lambda = 4 + int(3*math.Log(n))
	mu := c.lambda / 2
	c.weights = make([]float64, mu)
	for i := range c.weights {
		c.weights[i] = math.Log(float64(mu)+0.5) - math.Log(float64(i)+1)
	}
	floats.Scale(1/floats.Sum(c.weights), c.weights)
	var muEffInv float64
	for _, w := range c.weights {
		muEffInv += w * w
	}
	c.muEff = 1 / muEffInv

	c.cc = (4 + c.muEff/n) / (n + 4 + 2*c.muEff/n)
	c.cs = (c.muEff + 2) / (n + c.muEff + 5)
	c.c1 = 2 / ((n+1.3)*(n+1.3) + c.muEff)
	c.cmu = math.Min(1-c.c1, 2*(c.muEff-2+1/c.muEff)/((n+2)*(n+2)+c.muEff))
	c.ds = 1 + 2*math.Max(0, math.Sqrt((c.muEff-1)/(n+1))-1) + c.cs
	c.eChi = math.Sqrt(n) * (1 - 1.0/(4*n) + 1/(21*n*n))

	c.ready = true
}

func averageWidth(space SearchSpace, dims []int) float64 {
	if len(dims) == 0 {
		return 0
	}
	var sum float64
	for _, idx := range dims {
		sum += space.Range(idx).Width()
	}
	return sum / float64(len(dims))
}

// delegateRandomMerge draws continuous dimensions uniformly and
// categorical dimensions via Random, used during the startup phase.
func (c *CMAESSampler) delegateRandomMerge(history History, direction Direction, space SearchSpace) map[string]Value {
	return c.random.Sample(history, direction, space)
}

// drawCandidate samples one candidate from the current CMA distribution,
// merges in random draws for categorical dimensions, and accumulates the
// transformed-space point into the pending generation.
func (c *CMAESSampler) drawCandidate(history History, direction Direction, space SearchSpace) map[string]Value {
	out := c.random.draw(space) // categorical dims filled; continuous dims overwritten below

	z := make([]float64, len(c.dims))
	for i := range z {
		z[i] = c.rng.NormFloat64()
	}
	// x = mean + sigma * L*z, where L is the Cholesky factor of C.
	lz := make([]float64, len(c.dims))
	var L mat.TriDense
	L.LFromCholesky(c.chol)
	lzVec := mat.NewVecDense(len(c.dims), lz)
	lzVec.MulVec(&L, mat.NewVecDense(len(z), z))

	x := make([]float64, len(c.dims))
	for i, idx := range c.dims {
		rg := space.Range(idx)
		val := c.mean[i] + c.sigma*lz[i]
		lo, hi := rg.Transform(rg.Low), rg.Transform(rg.High)
		if lo > hi {
			lo, hi = hi, lo
		}
		val = clamp(val, lo, hi)
		x[i] = val
		out[rg.Name] = rg.Clip(rg.Untransform(val))
	}

	c.pending = append(c.pending, cmaesCandidate{x: x})
	return out
}

// maybeUpdate runs the CMA-ES recurrences once lambda Complete trials have
// accumulated since the last update.
func (c *CMAESSampler) maybeUpdate(complete []*Trial, direction Direction, space SearchSpace) {
	if len(c.pending) < c.lambda || len(complete) < c.lambda {
		return
	}

	recent := complete[len(complete)-c.lambda:]
	pending := c.pending[len(c.pending)-c.lambda:]

	type scored struct {
		x []float64
		f float64
	}
	items := make([]scored, len(pending))
	for i, p := range pending {
		v, _ := recent[i].Value()
		items[i] = scored{x: p.x, f: direction.signed(v)}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].f < items[j].f })

	d := len(c.dims)
	meanOld := make([]float64, d)
	copy(meanOld, c.mean)

	newMean := make([]float64, d)
	for i, w := range c.weights {
		floats.AddScaled(newMean, w, items[i].x)
	}
	c.mean = newMean

	meanDiff := make([]float64, d)
	floats.SubTo(meanDiff, c.mean, meanOld)

	floats.Scale(1-c.cc, c.pc)
	scaleC := math.Sqrt(c.cc*(2-c.cc)*c.muEff) / c.sigma
	floats.AddScaled(c.pc, scaleC, meanDiff)

	floats.Scale(1-c.cs, c.ps)
	tmp := make([]float64, d)
	tmpVec := mat.NewVecDense(d, tmp)
	diffVec := mat.NewVecDense(d, meanDiff)
	if err := tmpVec.SolveVec(c.chol.RawU().T(), diffVec); err == nil {
		scaleS := math.Sqrt(c.cs*(2-c.cs)*c.muEff) / c.sigma
		floats.AddScaled(c.ps, scaleS, tmp)
	}

	scaleChol := 1 - c.c1 - c.cmu
	if scaleChol <= 0 {
		scaleChol = math.SmallestNonzeroFloat64
	}
	c.chol.Scale(scaleChol, c.chol)
	c.chol.SymRankOne(c.chol, c.c1, mat.NewVecDense(d, c.pc))
	for i := range c.weights {
		floats.SubTo(tmp, items[i].x, meanOld)
		c.chol.SymRankOne(c.chol, c.cmu*c.weights[i]/c.sigma, tmpVec)
	}

	normPs := floats.Norm(c.ps, 2)
	c.sigma *= math.Exp(c.cs / c.ds * (normPs/c.eChi - 1))

	c.iter++
	c.pending = nil
}
