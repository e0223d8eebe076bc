package dependency

import "github.com/proclens/proclens/internal/model"

// traceOrderStats holds the per-trace occurrence statistics the
// temporal analyzer needs: first and last occurrence positions per
// activity, and the set of adjacent activity pairs.
type traceOrderStats struct {
	first  map[model.Activity]int
	last   map[model.Activity]int
	direct map[Pair]struct{}
}

func newTraceOrderStats(trace model.Trace) traceOrderStats {
	s := traceOrderStats{
		first:  make(map[model.Activity]int),
		last:   make(map[model.Activity]int),
		direct: make(map[Pair]struct{}),
	}
	for i, act := range trace.Activities {
		if _, ok := s.first[act]; !ok {
			s.first[act] = i
		}
		s.last[act] = i
		if i+1 < len(trace.Activities) {
			s.direct[Pair{From: act, To: trace.Activities[i+1]}] = struct{}{}
		}
	}
	return s
}

// TemporalAnalyzer infers temporal relations between ordered activity
// pairs. Construct it once per log; Relation is then a pure lookup
// safe for concurrent use.
type TemporalAnalyzer struct {
	threshold float64
	traces    []traceOrderStats
}

// NewTemporalAnalyzer precomputes occurrence statistics for every
// trace in the log. The threshold is the minimum fraction of
// qualifying traces that must support a relation; callers validate it
// is within [0.0, 1.0] before construction.
func NewTemporalAnalyzer(log *model.EventLog, threshold float64) *TemporalAnalyzer {
	a := &TemporalAnalyzer{
		threshold: threshold,
		traces:    make([]traceOrderStats, 0, len(log.Traces)),
	}
	for _, trace := range log.Traces {
		a.traces = append(a.traces, newTraceOrderStats(trace))
	}
	return a
}

// Relation decides the temporal relation for the ordered pair
// (from, to). Only traces containing both activities qualify as
// evidence. Ties break toward the stronger relation: DirectlyFollows
// is checked before EventuallyFollows. A pair with no co-occurring
// trace, or no supporting observation at all, resolves to None.
func (a *TemporalAnalyzer) Relation(from, to model.Activity) TemporalRelation {
	var qualifying, directCount, eventualCount int
	pair := Pair{From: from, To: to}

	for _, stats := range a.traces {
		firstFrom, hasFrom := stats.first[from]
		lastTo, hasTo := stats.last[to]
		if !hasFrom || !hasTo {
			continue
		}
		qualifying++
		if _, ok := stats.direct[pair]; ok {
			directCount++
		}
		// Some occurrence of from precedes some occurrence of to.
		if firstFrom < lastTo {
			eventualCount++
		}
	}

	if qualifying == 0 {
		return TemporalNone
	}

	total := float64(qualifying)
	switch {
	case directCount > 0 && float64(directCount)/total >= a.threshold:
		return DirectlyFollows
	case eventualCount > 0 && float64(eventualCount)/total >= a.threshold:
		return EventuallyFollows
	default:
		return TemporalNone
	}
}

// Discover evaluates every ordered pair of distinct activities drawn
// from the given alphabet.
func (a *TemporalAnalyzer) Discover(alphabet []model.Activity) map[Pair]TemporalRelation {
	relations := make(map[Pair]TemporalRelation, len(alphabet)*(len(alphabet)-1))
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
