package hyperopt

import (
	"fmt"
	"math"
)

// Kind discriminates the runtime shape of a ParameterRange and its Values.
type Kind int

const (
	// IntKind ranges over integers in [Low, High], discretized by Step.
	IntKind Kind = iota
	// FloatKind ranges over reals in [Low, High], optionally in log space.
	FloatKind
	// CategoricalKind ranges over an ordered, non-empty list of choices
	// compared by equality.
	CategoricalKind
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case IntKind:
		return "Int"
	case FloatKind:
		return "Float"
	case CategoricalKind:
		return "Categorical"
	default:
		return "Unknown"
	}
}

// Value is a tagged union holding one concrete parameter value whose
// runtime shape matches the Kind of the ParameterRange it was drawn from.
// Using a discriminated type here (rather than an opaque interface{} as a
// dynamically-typed source would) makes "value whose type matches its
// range" a property the compiler helps enforce.
type Value struct {
	Kind        Kind
	Int         int64
	Float       float64
	Categorical string
}

// IntValue builds an IntKind Value.
func IntValue(v int64) Value { return Value{Kind: IntKind, Int: v} }

// FloatValue builds a FloatKind Value.
func FloatValue(v float64) Value { return Value{Kind: FloatKind, Float: v} }

// CategoricalValue builds a CategoricalKind Value.
func CategoricalValue(v string) Value { return Value{Kind: CategoricalKind, Categorical: v} }

// AsFloat64 returns the value's numeric interpretation regardless of Kind;
// it panics for CategoricalKind, which has no numeric meaning.
func (v Value) AsFloat64() float64 {
	switch v.Kind {
	case IntKind:
		return float64(v.Int)
	case FloatKind:
		return v.Float
	default:
		panic("hyperopt: categorical value has no numeric interpretation")
	}
}

// Equal reports whether two values are equal, comparing by Kind and the
// matching payload field.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case IntKind:
		return v.Int == o.Int
	case FloatKind:
		return v.Float == o.Float
	case CategoricalKind:
		return v.Categorical == o.Categorical
	default:
		return false
	}
}

// String implements fmt.Stringer.
func (v Value) String() string {
	switch v.Kind {
	case IntKind:
		return fmt.Sprintf("%d", v.Int)
	case FloatKind:
		return fmt.Sprintf("%g", v.Float)
	case CategoricalKind:
		return v.Categorical
	default:
		return "<invalid>"
	}
}

// ParameterRange is a tagged variant describing one dimension of a search
// space: IntRange, FloatRange, or CategoricalRange.
type ParameterRange struct {
	Kind Kind
	Name string

	// Int/Float ranges.
	Low  float64
	High float64
	Step float64 // IntKind only; defaults to 1.
	Log  bool    // FloatKind only.

	// Categorical ranges.
	Choices []string
}

// NewIntRange builds an IntKind range over [low, high], discretized by
// step. A zero step defaults to 1.
func NewIntRange(name string, low, high int64, step int64) ParameterRange {
	if step <= 0 {
		step = 1
	}
	return ParameterRange{
		Kind: IntKind,
		Name: name,
		Low:  float64(low),
		High: float64(high),
		Step: float64(step),
	}
}

// NewFloatRange builds a FloatKind range over [low, high]. When log is
// true, sampling and density estimation operate on ln(x), and low/high
// must be strictly positive.
func NewFloatRange(name string, low, high float64, log bool) ParameterRange {
	if log && (low <= 0 || high <= 0) {
		panic("hyperopt: log-scale FloatRange bounds must be strictly positive")
	}
	return ParameterRange{
		Kind: FloatKind,
		Name: name,
		Low:  low,
		High: high,
		Log:  log,
	}
}

// NewCategoricalRange builds a CategoricalKind range over an ordered,
// non-empty list of choices.
func NewCategoricalRange(name string, choices ...string) ParameterRange {
	if len(choices) == 0 {
		panic("hyperopt: CategoricalRange requires at least one choice")
	}
	cp := make([]string, len(choices))
	copy(cp, choices)
	return ParameterRange{
		Kind:    CategoricalKind,
		Name:    name,
		Choices: cp,
	}
}

// Midpoint returns the midpoint of a numeric range in its natural
// transformed space (ln(x) for log ranges). Panics for categorical ranges.
func (p ParameterRange) Midpoint() float64 {
	switch p.Kind {
	case IntKind:
		return (p.Low + p.High) / 2
	case FloatKind:
		if p.Log {
			return (math.Log(p.Low) + math.Log(p.High)) / 2
		}
		return (p.Low + p.High) / 2
	default:
		panic("hyperopt: Midpoint undefined for CategoricalKind")
	}
}

// Width returns the full width of a numeric range in its transformed
// space. Panics for categorical ranges.
func (p ParameterRange) Width() float64 {
	switch p.Kind {
	case IntKind:
		return p.High - p.Low
	case FloatKind:
		if p.Log {
			return math.Log(p.High) - math.Log(p.Low)
		}
		return p.High - p.Low
	default:
		panic("hyperopt: Width undefined for CategoricalKind")
	}
}

// Contains reports whether v lies within this range's support. Numeric
// ranges are checked against [Low, High] (and, for IntKind, alignment to
// Step); categorical ranges are checked by membership in Choices.
func (p ParameterRange) Contains(v Value) bool {
	switch p.Kind {
	case IntKind:
		if v.Kind != IntKind {
			return false
		}
		f := float64(v.Int)
		if f < p.Low || f > p.High {
			return false
		}
		steps := (f - p.Low) / p.Step
		return math.Abs(steps-math.Round(steps)) < 1e-9
	case FloatKind:
		if v.Kind != FloatKind {
			return false
		}
		return v.Float >= p.Low && v.Float <= p.High
	case CategoricalKind:
		if v.Kind != CategoricalKind {
			return false
		}
		for _, c := range p.Choices {
			if c == v.Categorical {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// Clip projects x into this range's support, rounding IntKind to the
// nearest valid step and clamping Float/Int to [Low, High]. Panics for
// CategoricalKind, which has no notion of "nearest".
func (p ParameterRange) Clip(x float64) Value {
	switch p.Kind {
	case IntKind:
		steps := math.Round((x - p.Low) / p.Step)
		v := p.Low + steps*p.Step
		if v < p.Low {
			v = p.Low
		}
		if v > p.High {
			v = p.Low + math.Floor((p.High-p.Low)/p.Step)*p.Step
		}
		return IntValue(int64(math.Round(v)))
	case FloatKind:
		if x < p.Low {
			x = p.Low
		}
		if x > p.High {
			x = p.High
		}
		return FloatValue(x)
	default:
		panic("hyperopt: Clip undefined for CategoricalKind")
	}
}

// Transform maps a concrete numeric x into the space density estimators
// and CMA-ES operate in (ln(x) for log-scale float ranges, x otherwise).
func (p ParameterRange) Transform(x float64) float64 {
	if p.Kind == FloatKind && p.Log {
		return math.Log(x)
	}
	return x
}

// Untransform is the inverse of Transform, additionally rounding to the
// nearest integer for IntKind.
func (p ParameterRange) Untransform(x float64) float64 {
	if p.Kind == FloatKind && p.Log {
		return math.Exp(x)
	}
	if p.Kind == IntKind {
		return math.Round(x)
	}
	return x
}

// SearchSpace is an ordered sequence of parameter ranges plus a name→
// position index. It is immutable after construction.
type SearchSpace struct {
	ranges []ParameterRange
	index  map[string]int
}

// NewSearchSpace builds a SearchSpace from an ordered list of ranges.
// Constructing with a duplicate parameter name panics: this is a
// programmer error caught at wiring time, not a runtime domain condition
// a caller is expected to recover from.
func NewSearchSpace(ranges ...ParameterRange) SearchSpace {
	index := make(map[string]int, len(ranges))
	for i, r := range ranges {
		if _, dup := index[r.Name]; dup {
			panic(newDomainError(ErrDuplicateParameterName, "duplicate parameter name %q", r.Name))
		}
		index[r.Name] = i
	}
	cp := make([]ParameterRange, len(ranges))
	copy(cp, ranges)
	return SearchSpace{ranges: cp, index: index}
}

// Len returns the number of ranges in the space.
func (s SearchSpace) Len() int { return len(s.ranges) }

// Ranges returns a defensive copy of the ordered ranges.
func (s SearchSpace) Ranges() []ParameterRange {
	cp := make([]ParameterRange, len(s.ranges))
	copy(cp, s.ranges)
	return cp
}

// Range returns the range at position i.
func (s SearchSpace) Range(i int) ParameterRange { return s.ranges[i] }

// IndexOf returns the position of name and whether it exists.
func (s SearchSpace) IndexOf(name string) (int, bool) {
	i, ok := s.index[name]
	return i, ok
}

// ByName returns the range named name and whether it exists.
func (s SearchSpace) ByName(name string) (ParameterRange, bool) {
	i, ok := s.index[name]
	if !ok {
		return ParameterRange{}, false
	}
	return s.ranges[i], true
}

// Names returns the ordered parameter names.
func (s SearchSpace) Names() []string {
	names := make([]string, len(s.ranges))
	for i, r := range s.ranges {
		names[i] = r.Name
	}
	return names
}

// Validate reports whether params contains exactly the names in s, each
// within its declared support (spec property P3).
func (s SearchSpace) Validate(params map[string]Value) error {
	if len(params) != len(s.ranges) {
		return newDomainError(ErrParameterNotInSpace, "expected %d parameters, got %d", len(s.ranges), len(params))
	}
	for _, r := range s.ranges {
		v, ok := params[r.Name]
		if !ok {
			return newDomainError(ErrParameterNotInSpace, "missing parameter %q", r.Name)
		}
		if !r.Contains(v) {
			return newDomainError(ErrParameterNotInSpace, "value %v out of support for parameter %q", v, r.Name)
		}
	}
	return nil
}
