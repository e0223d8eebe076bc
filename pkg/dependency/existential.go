package dependency

import "github.com/proclens/proclens/internal/model"

// ExistentialAnalyzer infers existential relations between ordered
// activity pairs from co-occurrence counts. Construct it once per log;
// Relation is then a pure lookup safe for concurrent use.
type ExistentialAnalyzer struct {
	threshold float64
	presence  []map[model.Activity]struct{}
}

// NewExistentialAnalyzer precomputes per-trace presence sets. Trace
// presence means at least one occurrence; order within the trace is
// irrelevant here.
func NewExistentialAnalyzer(log *model.EventLog, threshold float64) *ExistentialAnalyzer {
	a := &ExistentialAnalyzer{
		threshold: threshold,
		presence:  make([]map[model.Activity]struct{}, 0, len(log.Traces)),
	}
	for _, trace := range log.Traces {
		set := make(map[model.Activity]struct{}, len(trace.Activities))
		for _, act := range trace.Activities {
			set[act] = struct{}{}
		}
		a.presence = append(a.presence, set)
	}
	return a
}

// Relation decides the existential relation for the ordered pair
// (from, to). Equivalence is the strictly stronger claim and is
// checked before one-directional Implication so symmetry is never
// under-reported. Every accepted relation needs at least one
// supporting trace; ratios with a zero denominator count as zero.
func (a *ExistentialAnalyzer) Relation(from, to model.Activity) ExistentialRelation {
	var withFrom, withTo, withBoth int
	for _, set := range a.presence {
		_, hasFrom := set[from]
		_, hasTo := set[to]
		if hasFrom {
			withFrom++
		}
		if hasTo {
			withTo++
		}
		if hasFrom && hasTo {
			withBoth++
		}
	}

	forward := ratio(withBoth, withFrom)
	backward := ratio(withBoth, withTo)

	switch {
	case withBoth > 0 && forward >= a.threshold && backward >= a.threshold:
		return Equivalence
	case withBoth > 0 && forward >= a.threshold:
		return Implication
	}

	// Mutual exclusion: fraction of traces containing exactly one of
	// the two activities, measured against traces containing either.
	exclusive := withFrom + withTo - 2*withBoth
	either := withFrom + withTo - withBoth
	if exclusive > 0 && ratio(exclusive, either) >= a.threshold {
		return NegatedEquivalence
	}
	return ExistentialNone
}

// Discover evaluates every ordered pair of distinct activities drawn
// from the given alphabet.
func (a *ExistentialAnalyzer) Discover(alphabet []model.Activity) map[Pair]ExistentialRelation {
	relations := make(map[Pair]ExistentialRelation, len(alphabet)*(len(alphabet)-1))
	for _, from := range alphabet {
		for _, to := range alphabet {
			if from == to {
				continue
			}
			relations[Pair{From: from, To: to}] = a.Relation(from, to)
		}
	}
	return relations
}

func ratio(numerator, denominator int) float64 {
	if denominator == 0 {
		return 0
	}
	return float64(numerator) / float64(denominator)
}
