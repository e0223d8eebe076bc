// Package dependency discovers pairwise behavioral relations between
// process activities: temporal relations (does A reliably precede B?)
// and existential relations (does A's presence predict B's?).
//
// Both analyzers precompute per-trace statistics at construction time
// and are safe for concurrent per-pair lookups afterwards: a pair's
// relation depends only on read-only trace data, never on another
// pair's result.
package dependency

import "github.com/proclens/proclens/internal/model"

// TemporalRelation describes how one activity's occurrences are ordered
// relative to another's across the log.
type TemporalRelation uint8

const (
	// TemporalNone means no consistent ordering was observed.
	TemporalNone TemporalRelation = iota

	// EventuallyFollows means an occurrence of the first activity
	// precedes an occurrence of the second, not necessarily adjacently.
	EventuallyFollows

	// DirectlyFollows means an occurrence of the first activity is
	// immediately followed by an occurrence of the second.
	DirectlyFollows
)

// String returns the relation name.
func (r TemporalRelation) String() string {
	switch r {
	case DirectlyFollows:
		return "direct"
	case EventuallyFollows:
		return "eventual"
	default:
		return "none"
	}
}

// ExistentialRelation describes how one activity's presence in a trace
// predicts another's presence or absence.
type ExistentialRelation uint8

const (
	// ExistentialNone means no existential relation was observed.
	ExistentialNone ExistentialRelation = iota

	// Implication means traces containing the first activity also
	// contain the second. Directional: A requires B does not mean B
	// requires A.
	Implication

	// Equivalence means implication holds in both directions.
	Equivalence

	// NegatedEquivalence means the two activities are mutually
	// exclusive: they do not co-occur.
	NegatedEquivalence
)

// String returns the relation name.
func (r ExistentialRelation) String() string {
	switch r {
	case Implication:
		return "implication"
	case Equivalence:
		return "equivalence"
	case NegatedEquivalence:
		return "negated-equivalence"
	default:
		return "none"
	}
}

// Pair is an ordered pair of distinct activities. The relation for
// (A, B) is independent of the relation for (B, A).
type Pair struct {
	From model.Activity
	To   model.Activity
}
