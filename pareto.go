package hyperopt

import "sort"

// Dominates reports whether a dominates b under directions: a is no worse
// in every objective and strictly better in at least one. Equality in
// every objective means neither dominates the other.
//
// len(a), len(b) and len(directions) must all agree; a mismatch is a fatal
// domain error.
func Dominates(a, b []float64, directions []Direction) (bool, error) {
	if len(a) != len(b) || len(a) != len(directions) {
		return false, newDomainError(ErrLengthMismatch,
			"Dominates requires equal-length vectors: len(a)=%d len(b)=%d len(directions)=%d",
			len(a), len(b), len(directions))
	}
	strictlyBetter := false
	for i, d := range directions {
		switch {
		case d.better(a[i], b[i]):
			strictlyBetter = true
		case d.better(b[i], a[i]):
			return false, nil
		}
	}
	return strictlyBetter, nil
}

// ComputeParetoFront returns the non-dominated Complete trials among
// trials, considering only those whose Values() length equals
// len(directions). The working front is built by iterating candidates in
// insertion order: a candidate dominated by any current front member is
// skipped; otherwise, front members it dominates are removed before it is
// added. O(n²·m).
func ComputeParetoFront(trials []*Trial, directions []Direction) []*Trial {
	var front []*Trial
	for _, candidate := range trials {
		if candidate.State() != Complete {
			continue
		}
		cv := candidate.Values()
		if len(cv) != len(directions) {
			continue
		}

		dominated := false
		kept := front[:0:0]
		for _, member := range front {
			mv := member.Values()
			if memberDominates, _ := Dominates(mv, cv, directions); memberDominates {
				dominated = true
				kept = append(kept, member)
				continue
			}
			if candidateDominates, _ := Dominates(cv, mv, directions); candidateDominates {
				continue // member is dominated by candidate, drop it
			}
			kept = append(kept, member)
		}
		if dominated {
			front = kept
			continue
		}
		front = append(kept, candidate)
	}
	return front
}

// CrowdingDistances computes the NSGA-II crowding distance for each member
// of front under directions. Fronts of size <= 2 get +Inf for every
// member. Otherwise each objective contributes the normalized gap between
// a point's neighbors, summed across objectives; an objective with
// max == min is skipped entirely for that pass.
func CrowdingDistances(front []*Trial, directions []Direction) map[*Trial]float64 {
	dist := make(map[*Trial]float64, len(front))
	for _, t := range front {
		dist[t] = 0
	}
	if len(front) <= 2 {
		for _, t := range front {
			dist[t] = inf
		}
		return dist
	}

	order := make([]*Trial, len(front))
	copy(order, front)

	for m := range directions {
		sort.Slice(order, func(i, j int) bool {
			return order[i].Values()[m] < order[j].Values()[m]
		})

		min := order[0].Values()[m]
		max := order[len(order)-1].Values()[m]
		if max == min {
			continue
		}

		dist[order[0]] = inf
		dist[order[len(order)-1]] = inf

		for i := 1; i < len(order)-1; i++ {
			if dist[order[i]] == inf {
				continue
			}
			next := order[i+1].Values()[m]
			prev := order[i-1].Values()[m]
			dist[order[i]] += (next - prev) / (max - min)
		}
	}
	return dist
}
