// Package snapshot implements the JSON persistence boundary contract for
// a hyperopt.Study: Marshal produces a self-contained document covering
// the study's Complete and Pruned trials; Unmarshal rebuilds a Study from
// that document and a caller-supplied search space, sampler and pruner.
//
// This is a boundary contract, not part of the core algorithms: it uses
// plain encoding/json since the format is JSON by contract and no
// available serialization library (e.g. a YAML encoder) fits a JSON wire
// format; see DESIGN.md for the full reasoning.
package snapshot

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/thalesfsp/hyperopt"
)

// trialSnapshot is the wire shape of one Complete or Pruned trial.
type trialSnapshot struct {
	Number             int                `json:"number"`
	State              string             `json:"state"`
	Value              *float64           `json:"value"`
	Values             []float64          `json:"values"`
	ConstraintValues   []float64          `json:"constraintValues"`
	Parameters         map[string]any     `json:"parameters"`
	IntermediateValues map[string]float64 `json:"intermediateValues"`
}

// studySnapshot is the wire shape of a whole study.
type studySnapshot struct {
	Name       string          `json:"name"`
	Direction  string          `json:"direction"`
	Directions []string        `json:"directions"`
	Trials     []trialSnapshot `json:"trials"`
}

// Marshal serializes s into the JSON snapshot format. Only Complete and
// Pruned trials are included, in ascending number order.
func Marshal(s *hyperopt.Study) ([]byte, error) {
	doc := studySnapshot{Name: s.Name()}

	if directions := s.Directions(); directions != nil {
		doc.Direction = directions[0].String()
		doc.Directions = make([]string, len(directions))
		for i, d := range directions {
			doc.Directions[i] = d.String()
		}
	} else {
		doc.Direction = s.Direction().String()
	}

	all := s.Trials()
	sort.Slice(all, func(i, j int) bool { return all[i].Number() < all[j].Number() })

	for _, t := range all {
		if t.State() != hyperopt.Complete && t.State() != hyperopt.Pruned {
			continue
		}
		doc.Trials = append(doc.Trials, trialSnapshotFrom(t))
	}

	return json.Marshal(doc)
}

func trialSnapshotFrom(t *hyperopt.Trial) trialSnapshot {
	ts := trialSnapshot{
		Number:           t.Number(),
		State:            t.State().String(),
		Values:           t.Values(),
		ConstraintValues: t.ConstraintValues(),
		Parameters:       make(map[string]any, len(t.Parameters())),
	}
	if v, ok := t.Value(); ok {
		ts.Value = &v
	}
	for name, v := range t.Parameters() {
		ts.Parameters[name] = scalarFromValue(v)
	}
	if iv := t.IntermediateValues(); len(iv) > 0 {
		ts.IntermediateValues = make(map[string]float64, len(iv))
		for step, v := range iv {
			ts.IntermediateValues[strconv.Itoa(step)] = v
		}
	}
	return ts
}

func scalarFromValue(v hyperopt.Value) any {
	switch v.Kind {
	case hyperopt.IntKind:
		return v.Int
	case hyperopt.FloatKind:
		return v.Float
	case hyperopt.CategoricalKind:
		return v.Categorical
	default:
		return nil
	}
}

// Config supplies the pieces that live outside the JSON document itself:
// the search space (needed to type-check and deserialize parameters), and
// the sampler/pruner the rebuilt study should use.
type Config struct {
	Space   hyperopt.SearchSpace
	Sampler hyperopt.Sampler
	Pruner  hyperopt.Pruner
}

// Unmarshal rebuilds a Study from data and cfg. Parameters deserialize by
// consulting cfg.Space: a name whose range is Float reads a number as a
// float64, Int reads a number truncated to int64, Categorical reads a
// string. A parameter name absent from the space is a fatal
// deserialization error. Trials are imported through
// PrePopulateWarmTrials, so they are renumbered from 0 in document order;
// the numbers stored in the document are not kept.
func Unmarshal(data []byte, cfg Config) (*hyperopt.Study, error) {
	var doc studySnapshot
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, hyperopt.WrapDomainError(hyperopt.ErrInvalidSnapshot, err, "decode document")
	}

	directions, err := parseDirections(doc)
	if err != nil {
		return nil, err
	}

	var study *hyperopt.Study
	if len(directions) > 1 {
		study = hyperopt.NewMultiObjectiveStudy(doc.Name, cfg.Space, directions, cfg.Sampler, cfg.Pruner)
	} else {
		study = hyperopt.NewStudy(doc.Name, cfg.Space, directions[0], cfg.Sampler, cfg.Pruner)
	}

	trials := make([]*hyperopt.Trial, 0, len(doc.Trials))
	for _, ts := range doc.Trials {
		t, err := trialFromSnapshot(ts, cfg.Space)
		if err != nil {
			return nil, err
		}
		trials = append(trials, t)
	}
	study.PrePopulateWarmTrials(trials)

	return study, nil
}

func parseDirections(doc studySnapshot) ([]hyperopt.Direction, error) {
	if len(doc.Directions) > 0 {
		out := make([]hyperopt.Direction, len(doc.Directions))
		for i, s := range doc.Directions {
			d, err := parseDirection(s)
			if err != nil {
				return nil, err
			}
			out[i] = d
		}
		return out, nil
	}
	d, err := parseDirection(doc.Direction)
	if err != nil {
		return nil, err
	}
	return []hyperopt.Direction{d}, nil
}

func parseDirection(s string) (hyperopt.Direction, error) {
	switch s {
	case "Maximize":
		return hyperopt.Maximize, nil
	case "Minimize":
		return hyperopt.Minimize, nil
	default:
		return 0, fmt.Errorf("snapshot: unknown direction %q", s)
	}
}

func parseState(s string) (hyperopt.TrialState, error) {
	switch s {
	case "Complete":
		return hyperopt.Complete, nil
	case "Pruned":
		return hyperopt.Pruned, nil
	case "Fail":
		return hyperopt.Fail, nil
	case "Running":
		return hyperopt.Running, nil
	default:
		return 0, fmt.Errorf("snapshot: unknown trial state %q", s)
	}
}

func trialFromSnapshot(ts trialSnapshot, space hyperopt.SearchSpace) (*hyperopt.Trial, error) {
	state, err := parseState(ts.State)
	if err != nil {
		return nil, err
	}

	params := make(map[string]hyperopt.Value, len(ts.Parameters))
	for name, raw := range ts.Parameters {
		rg, ok := space.ByName(name)
		if !ok {
			return nil, hyperopt.WrapDomainError(hyperopt.ErrParameterNotInSpace, nil,
				"trial %d: parameter %q not in search space", ts.Number, name)
		}
		v, err := valueFromScalar(rg, raw)
		if err != nil {
			return nil, fmt.Errorf("snapshot: trial %d: parameter %q: %w", ts.Number, name, err)
		}
		params[name] = v
	}

	var intermediate map[int]float64
	if len(ts.IntermediateValues) > 0 {
		intermediate = make(map[int]float64, len(ts.IntermediateValues))
		for stepStr, v := range ts.IntermediateValues {
			step, err := strconv.Atoi(stepStr)
			if err != nil {
				return nil, fmt.Errorf("snapshot: trial %d: bad intermediate step %q: %w", ts.Number, stepStr, err)
			}
			intermediate[step] = v
		}
	}

	return hyperopt.NewTrialFromFields(state, params, ts.Value, ts.Values, ts.ConstraintValues, intermediate), nil
}

func valueFromScalar(rg hyperopt.ParameterRange, raw any) (hyperopt.Value, error) {
	switch rg.Kind {
	case hyperopt.FloatKind:
		f, ok := raw.(float64)
		if !ok {
			return hyperopt.Value{}, fmt.Errorf("expected number for Float parameter, got %T", raw)
		}
		return hyperopt.FloatValue(f), nil
	case hyperopt.IntKind:
		f, ok := raw.(float64)
		if !ok {
			return hyperopt.Value{}, fmt.Errorf("expected number for Int parameter, got %T", raw)
		}
		return hyperopt.IntValue(int64(f)), nil
	case hyperopt.CategoricalKind:
		s, ok := raw.(string)
		if !ok {
			return hyperopt.Value{}, fmt.Errorf("expected string for Categorical parameter, got %T", raw)
		}
		return hyperopt.CategoricalValue(s), nil
	default:
		return hyperopt.Value{}, fmt.Errorf("unknown parameter kind %v", rg.Kind)
	}
}
