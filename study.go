package hyperopt

import (
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ConstraintFunc maps a completed trial to a vector of constraint values;
// a trial is feasible when every entry is <= 0 (see Trial.IsFeasible).
type ConstraintFunc func(t *Trial) []float64

// ProgressEvent is a best-effort, non-blocking notification sent on
// Ask/Tell so a caller driving a long ask/tell loop can observe progress
// without polling.
type ProgressEvent struct {
	Op         string // "Ask", "Tell", "AskBatch", "TellBatch"
	TrialCount int
	Number     int
	State      TrialState
}

// Study owns a set of trials, a sampler, a search space, and (optionally)
// a pruner and constraint function. It is the ask/tell state machine:
// every mutating operation, and every read query, serializes on a single
// internal mutex - the same "one lock guards everything touched
// together" discipline applied to the trial log, the index, the counter
// and the sampler's own state.
type Study struct {
	mu sync.Mutex

	name  string
	runID string // unique per construction, correlates log lines across a study's lifetime
	directions []Direction // len==1 for single-objective studies
	space      SearchSpace
	sampler    Sampler
	pruner     Pruner

	trials     []*Trial
	byNumber   map[int]*Trial
	nextNumber int

	constraintFunc ConstraintFunc

	logger       *zerolog.Logger
	progressChan chan<- ProgressEvent
}

// NewStudy builds a single-objective Study. sampler and pruner may be
// nil, defaulting to a RandomSampler seeded with 1 and NopPruner
// respectively.
func NewStudy(name string, space SearchSpace, direction Direction, sampler Sampler, pruner Pruner) *Study {
	return newStudy(name, space, []Direction{direction}, sampler, pruner)
}

// NewMultiObjectiveStudy builds a multi-objective Study. directions must
// be non-empty - an empty vector is a fatal domain error surfaced by
// panic at construction time, matching NewSearchSpace's precondition-
// panic convention.
func NewMultiObjectiveStudy(name string, space SearchSpace, directions []Direction, sampler Sampler, pruner Pruner) *Study {
	if len(directions) == 0 {
		panic(newDomainError(ErrEmptyDirections, "multi-objective study requires at least one direction"))
	}
	return newStudy(name, space, directions, sampler, pruner)
}

// NewRandomStudy is a convenience constructor wiring a RandomSampler.
func NewRandomStudy(name string, space SearchSpace, direction Direction, seed int64) *Study {
	return NewStudy(name, space, direction, NewRandomSampler(seed), nil)
}

// NewTPEStudy is a convenience constructor wiring a TPESampler.
func NewTPEStudy(name string, space SearchSpace, direction Direction, seed int64) *Study {
	return NewStudy(name, space, direction, NewTPESampler(seed), nil)
}

// NewCMAESStudy is a convenience constructor wiring a CMAESSampler.
func NewCMAESStudy(name string, space SearchSpace, direction Direction, seed int64) *Study {
	return NewStudy(name, space, direction, NewCMAESSampler(seed), nil)
}

func newStudy(name string, space SearchSpace, directions []Direction, sampler Sampler, pruner Pruner) *Study {
	if sampler == nil {
		sampler = NewRandomSampler(1)
	}
	if pruner == nil {
		pruner = NopPruner{}
	}
	return &Study{
		name:       name,
		runID:      uuid.NewString(),
		directions: directions,
		space:      space,
		sampler:    sampler,
		pruner:     pruner,
		byNumber:   make(map[int]*Trial),
	}
}

// IsMultiObjective reports whether the study has more than one direction.
func (s *Study) IsMultiObjective() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.directions) > 1
}

// Direction returns the single-objective direction. Panics if the study
// is multi-objective; use Directions instead.
func (s *Study) Direction() Direction {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.directions) != 1 {
		panic("hyperopt: Direction called on a multi-objective study")
	}
	return s.directions[0]
}

// Directions returns the directions vector, or nil for a single-objective
// study.
func (s *Study) Directions() []Direction {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.directions) <= 1 {
		return nil
	}
	cp := make([]Direction, len(s.directions))
	copy(cp, s.directions)
	return cp
}

// SetLogger attaches a structured logger; passing nil disables logging.
func (s *Study) SetLogger(logger *zerolog.Logger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logger = logger
}

// SetProgressChan attaches a channel that receives best-effort,
// non-blocking ProgressEvent notifications: sends use select/default so a
// slow or absent consumer never blocks Ask/Tell.
func (s *Study) SetProgressChan(ch chan<- ProgressEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.progressChan = ch
}

// SetConstraintFunc installs f, invoked synchronously at Tell-time.
func (s *Study) SetConstraintFunc(f ConstraintFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.constraintFunc = f
}

func (s *Study) emit(ev ProgressEvent) {
	if s.progressChan == nil {
		return
	}
	select {
	case s.progressChan <- ev:
	default:
	}
}

func (s *Study) logEvent(event string, fields map[string]any) {
	if s.logger == nil {
		return
	}
	e := s.logger.Debug().Str("study", s.name).Str("run_id", s.runID)
	for k, v := range fields {
		e = e.Interface(k, v)
	}
	e.Msg(event)
}

// Ask calls the sampler and registers a new Trial in state Running,
// assigning the next trial number. An empty search space yields a trial
// with empty parameters.
func (s *Study) Ask() *Trial {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.askLocked()
	s.logEvent("ask", map[string]any{"number": t.number})
	s.emit(ProgressEvent{Op: "Ask", TrialCount: len(s.trials), Number: t.number, State: t.state})
	return t
}

func (s *Study) askLocked() *Trial {
	var params map[string]Value
	if s.space.Len() == 0 {
		params = map[string]Value{}
	} else if len(s.directions) > 1 {
		params = s.sampler.SampleMultiObjective(s.historyLocked(), s.directions, s.space)
	} else {
		params = s.sampler.Sample(s.historyLocked(), s.directions[0], s.space)
	}

	t := newTrial(s.nextNumber, params)
	s.nextNumber++
	s.trials = append(s.trials, t)
	s.byNumber[t.number] = t
	return t
}

// AskBatch produces n trials in a single critical section. If the
// sampler advertises BatchSampler, the study is single-objective and the
// search space is non-empty, that capability is used once; otherwise n
// single draws are issued inside the same critical section.
func (s *Study) AskBatch(n int) []*Trial {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*Trial, 0, n)
	if batch, ok := s.sampler.(BatchSampler); ok && s.space.Len() > 0 && len(s.directions) == 1 {
		proposals := batch.SampleBatch(s.historyLocked(), s.directions[0], s.space, n)
		for _, params := range proposals {
			t := newTrial(s.nextNumber, params)
			s.nextNumber++
			s.trials = append(s.trials, t)
			s.byNumber[t.number] = t
			out = append(out, t)
		}
	} else {
		for i := 0; i < n; i++ {
			out = append(out, s.askLocked())
		}
	}

	s.logEvent("ask_batch", map[string]any{"count": len(out)})
	s.emit(ProgressEvent{Op: "AskBatch", TrialCount: len(s.trials)})
	return out
}

func (s *Study) historyLocked() History {
	return History(s.trials)
}

// Tell transitions a trial to Complete with a single-objective value. It
// is a fatal domain error to tell an unknown trial, or to tell a trial
// already in a terminal state.
func (s *Study) Tell(number int, value float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.byNumber[number]
	if !ok {
		return newDomainError(ErrUnknownTrial, "unknown trial number %d", number)
	}
	if t.state.terminal() {
		return newDomainError(ErrInvalidTransition, "trial %d already in terminal state %s", number, t.state)
	}

	t.state = Complete
	v := value
	t.value = &v
	s.applyConstraintLocked(t)

	s.logEvent("tell", map[string]any{"number": number, "value": value})
	s.emit(ProgressEvent{Op: "Tell", TrialCount: len(s.trials), Number: number, State: t.state})
	return nil
}

// TellValues transitions a trial to Complete with a multi-objective
// result vector. For back-compatibility, Value is also set to values[0] so
// BestTrial remains meaningful for mixed single/multi-objective callers.
// This Value mirror is deprecated; multi-objective results are read
// through Values.
func (s *Study) TellValues(number int, values []float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.byNumber[number]
	if !ok {
		return newDomainError(ErrUnknownTrial, "unknown trial number %d", number)
	}
	if t.state.terminal() {
		return newDomainError(ErrInvalidTransition, "trial %d already in terminal state %s", number, t.state)
	}
	if len(values) == 0 {
		return newDomainError(ErrMissingValue, "TellValues requires at least one value")
	}

	t.state = Complete
	t.values = append([]float64(nil), values...)
	v := values[0]
	t.value = &v
	s.applyConstraintLocked(t)

	s.logEvent("tell_values", map[string]any{"number": number, "values": values})
	s.emit(ProgressEvent{Op: "Tell", TrialCount: len(s.trials), Number: number, State: t.state})
	return nil
}

// TellState transitions a trial to a terminal non-Complete state (Fail or
// Pruned only). Passing Running or Complete is a fatal domain error -
// Complete must go through Tell/TellValues, which carry a value.
func (s *Study) TellState(number int, state TrialState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if state != Fail && state != Pruned {
		return newDomainError(ErrInvalidTransition, "TellState only accepts Fail or Pruned, got %s", state)
	}
	t, ok := s.byNumber[number]
	if !ok {
		return newDomainError(ErrUnknownTrial, "unknown trial number %d", number)
	}
	if t.state.terminal() {
		return newDomainError(ErrInvalidTransition, "trial %d already in terminal state %s", number, t.state)
	}

	t.state = state
	s.logEvent("tell_state", map[string]any{"number": number, "state": state.String()})
	s.emit(ProgressEvent{Op: "Tell", TrialCount: len(s.trials), Number: number, State: t.state})
	return nil
}

func (s *Study) applyConstraintLocked(t *Trial) {
	if s.constraintFunc == nil {
		return
	}
	t.constraintValues = s.constraintFunc(t)
}

// BatchResult is one entry of a TellBatch call.
type BatchResult struct {
	Number int
	Value  float64
	Values []float64 // if non-nil, takes priority over Value
	State  TrialState // Fail or Pruned; zero value (Running) means "use Value/Values"
}

// TellBatch applies results in a single critical section. Unknown trial
// numbers are silently skipped (batch-tolerant, for idempotent replay).
func (s *Study) TellBatch(results []BatchResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	applied := 0
	for _, r := range results {
		t, ok := s.byNumber[r.Number]
		if !ok || t.state.terminal() {
			continue
		}
		switch {
		case r.State == Fail || r.State == Pruned:
			t.state = r.State
		case len(r.Values) > 0:
			t.state = Complete
			t.values = append([]float64(nil), r.Values...)
			v := r.Values[0]
			t.value = &v
			s.applyConstraintLocked(t)
		default:
			t.state = Complete
			v := r.Value
			t.value = &v
			s.applyConstraintLocked(t)
		}
		applied++
	}

	s.logEvent("tell_batch", map[string]any{"requested": len(results), "applied": applied})
	s.emit(ProgressEvent{Op: "TellBatch", TrialCount: len(s.trials)})
}

// Trials returns a defensive copy of every trial in the study, in Ask
// order.
func (s *Study) Trials() []*Trial {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Trial, len(s.trials))
	for i, t := range s.trials {
		out[i] = t.clone()
	}
	return out
}

// BestTrial scans Complete single-objective trials with finite values and
// returns the first-encountered best by direction (first-wins tie-break).
func (s *Study) BestTrial() (*Trial, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bestTrialLocked()
}

func (s *Study) bestTrialLocked() (*Trial, bool) {
	var best *Trial
	var bestVal float64
	for _, t := range s.trials {
		if t.State() != Complete {
			continue
		}
		v, ok := t.Value()
		if !ok || !isFinite(v) {
			continue
		}
		if best == nil || s.directions[0].better(v, bestVal) {
			best = t
			bestVal = v
		}
	}
	if best == nil {
		return nil, false
	}
	return best.clone(), true
}

// ParetoFront returns ComputeParetoFront for multi-objective studies, or
// []*Trial{BestTrial} / nil for single-objective studies.
func (s *Study) ParetoFront() []*Trial {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.directions) > 1 {
		return ComputeParetoFront(s.trials, s.directions)
	}
	best, ok := s.bestTrialLocked()
	if !ok {
		return nil
	}
	return []*Trial{best}
}

// ShouldPrune delegates to the configured pruner under the study's lock,
// so the pruner observes a consistent view of all trials.
func (s *Study) ShouldPrune(trial *Trial) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pruner.ShouldPrune(trial, s.trials)
}

// IsFeasible reports whether trial has no constraint vector, or every
// entry is <= 0.
func (s *Study) IsFeasible(trial *Trial) bool {
	return trial.IsFeasible()
}

// PrePopulateWarmTrials imports Complete or Pruned trials from a prior
// run: their parameters are deep-copied, numbers are reassigned from this
// study's next counter (in input order), and intermediate values are
// replayed. This is the single shared routine snapshot loading also uses,
// per the "warm-start and load symmetry" design note: both paths need
// the same deep-copy/renumber/replay semantics, only the trial source
// differs (a caller-supplied slice vs. a deserialized snapshot).
func (s *Study) PrePopulateWarmTrials(trials []*Trial) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prePopulateLocked(trials)
}

func (s *Study) prePopulateLocked(trials []*Trial) {
	for _, src := range trials {
		state := src.State()
		if state != Complete && state != Pruned {
			continue
		}
		imported := newTrial(s.nextNumber, src.Parameters())
		s.nextNumber++
		imported.state = state
		if v, ok := src.Value(); ok {
			vv := v
			imported.value = &vv
		}
		imported.values = src.Values()
		imported.constraintValues = src.ConstraintValues()
		for step, v := range src.IntermediateValues() {
			imported.Report(step, v)
		}
		s.trials = append(s.trials, imported)
		s.byNumber[imported.number] = imported
	}
}

// SearchSpace returns the study's search space.
func (s *Study) SearchSpace() SearchSpace {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.space
}

// Name returns the study's name.
func (s *Study) Name() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.name
}

// RunID returns the unique identifier assigned when the study was
// constructed, used to correlate its log lines across a process lifetime.
func (s *Study) RunID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runID
}
