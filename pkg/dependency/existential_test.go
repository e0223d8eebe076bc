package dependency

import (
	"testing"

	"github.com/proclens/proclens/internal/model"
)

func TestExistentialRelation_AlwaysCoOccur(t *testing.T) {
	log := logOf(repeat(10, "A", "B", "C"))
	a := NewExistentialAnalyzer(log, 1.0)

	pairs := [][2]model.Activity{
		{"A", "B"}, {"B", "A"},
		{"A", "C"}, {"C", "A"},
		{"B", "C"}, {"C", "B"},
	}
	for _, p := range pairs {
		if got := a.Relation(p[0], p[1]); got != Equivalence {
			t.Errorf("Relation(%s, %s) = %v, want Equivalence", p[0], p[1], got)
		}
	}
}

func TestExistentialRelation_NeverCoOccur(t *testing.T) {
	log := logOf(repeat(5, "A"), repeat(5, "B"))
	a := NewExistentialAnalyzer(log, 1.0)

	if got := a.Relation("A", "B"); got != NegatedEquivalence {
		t.Errorf("Relation(A, B) = %v, want NegatedEquivalence", got)
	}
	if got := a.Relation("B", "A"); got != NegatedEquivalence {
		t.Errorf("Relation(B, A) = %v, want NegatedEquivalence", got)
	}
}

func TestExistentialRelation_OneDirectionalImplication(t *testing.T) {
	// Every trace with A also has B, but half the traces have B alone.
	log := logOf(repeat(5, "A", "B"), repeat(5, "B"))
	a := NewExistentialAnalyzer(log, 1.0)

	if got := a.Relation("A", "B"); got != Implication {
		t.Errorf("Relation(A, B) = %v, want Implication", got)
	}
	if got := a.Relation("B", "A"); got != ExistentialNone {
		t.Errorf("Relation(B, A) = %v, want ExistentialNone", got)
	}
}

func TestExistentialRelation_EquivalenceIsSymmetric(t *testing.T) {
	logs := []*model.EventLog{
		logOf(repeat(10, "A", "B")),
		logOf(repeat(5, "A", "B"), repeat(5, "B")),
		logOf(repeat(3, "A"), repeat(3, "B"), repeat(4, "A", "B")),
	}
	for i, log := range logs {
		a := NewExistentialAnalyzer(log, 1.0)
		forward := a.Relation("A", "B") == Equivalence
		backward := a.Relation("B", "A") == Equivalence
		if forward != backward {
			t.Errorf("log %d: Equivalence(A, B)=%v but Equivalence(B, A)=%v", i, forward, backward)
		}
	}
}

func TestExistentialRelation_PartialCoOccurrenceBelowThreshold(t *testing.T) {
	// A and B co-occur in 4 of the traces containing either, exclusive
	// in 6. Nothing reaches full agreement.
	log := logOf(repeat(3, "A"), repeat(3, "B"), repeat(4, "A", "B"))
	a := NewExistentialAnalyzer(log, 1.0)

	if got := a.Relation("A", "B"); got != ExistentialNone {
		t.Errorf("at threshold 1.0: Relation(A, B) = %v, want ExistentialNone", got)
	}

	// Lowering the threshold to the observed exclusion ratio flips the
	// decision order: implication is checked first and now holds.
	loose := NewExistentialAnalyzer(log, 0.5)
	if got := loose.Relation("A", "B"); got != Equivalence {
		t.Errorf("at threshold 0.5: Relation(A, B) = %v, want Equivalence", got)
	}
}

func TestExistentialRelation_ZeroThresholdNeedsEvidence(t *testing.T) {
	// At threshold 0 a single co-occurrence is enough for equivalence,
	// but activities that never co-occur must still not report it.
	log := logOf(repeat(1, "A", "B"), repeat(9, "C"))
	a := NewExistentialAnalyzer(log, 0.0)

	if got := a.Relation("A", "B"); got != Equivalence {
		t.Errorf("Relation(A, B) = %v, want Equivalence", got)
	}
	if got := a.Relation("A", "C"); got != NegatedEquivalence {
		t.Errorf("Relation(A, C) = %v, want NegatedEquivalence", got)
	}
}

func TestExistentialRelation_UnknownActivities(t *testing.T) {
	// Activities absent from every trace provide no evidence either way.
	log := logOf(repeat(5, "A", "B"))
	a := NewExistentialAnalyzer(log, 1.0)

	if got := a.Relation("Y", "Z"); got != ExistentialNone {
		t.Errorf("Relation(Y, Z) = %v, want ExistentialNone", got)
	}
}

func TestExistentialDiscover_CoversAllOrderedPairs(t *testing.T) {
	log := logOf(repeat(3, "A", "B", "C"))
	a := NewExistentialAnalyzer(log, 1.0)

	relations := a.Discover(log.Alphabet())
	if len(relations) != 6 {
		t.Fatalf("Discover returned %d pairs, want 6", len(relations))
	}
	for pair, rel := range relations {
		if rel != Equivalence {
			t.Errorf("Discover pair (%s, %s) = %v, want Equivalence", pair.From, pair.To, rel)
		}
	}
}
