package core

import (
	"context"
	"testing"

	"github.com/proclens/proclens/internal/model"
	"github.com/proclens/proclens/pkg/classify"
	"github.com/proclens/proclens/pkg/dependency"
	"github.com/proclens/proclens/pkg/errors"
	"github.com/proclens/proclens/pkg/matrix"
)

func repeatedLog(n int, seq ...model.Activity) *model.EventLog {
	sequences := make([][]model.Activity, n)
	for i := range sequences {
		sequences[i] = seq
	}
	return model.NewEventLog(sequences...)
}

func TestEngine_StrictSequenceIsStructured(t *testing.T) {
	engine := NewEngine()
	log := repeatedLog(10, "A", "B", "C")

	m, err := engine.BuildMatrix(context.Background(), log, 1.0, 1.0)
	if err != nil {
		t.Fatalf("BuildMatrix failed: %v", err)
	}

	wantCells := map[[2]model.Activity]matrix.Cell{
		{"A", "B"}: {Temporal: dependency.DirectlyFollows, Existential: dependency.Equivalence},
		{"B", "C"}: {Temporal: dependency.DirectlyFollows, Existential: dependency.Equivalence},
		{"A", "C"}: {Temporal: dependency.EventuallyFollows, Existential: dependency.Equivalence},
	}
	for pair, want := range wantCells {
		got, ok := m.Cell(pair[0], pair[1])
		if !ok || got != want {
			t.Errorf("Cell(%s, %s) = %+v, want %+v", pair[0], pair[1], got, want)
		}
	}

	result := engine.Classify(m.Ratios())
	if result.Label != classify.Structured {
		t.Errorf("Classify() = %v, want Structured", result.Label)
	}
}

func TestEngine_DisjointActivities(t *testing.T) {
	log := model.NewEventLog(
		[]model.Activity{"A"},
		[]model.Activity{"A"},
		[]model.Activity{"B"},
	)

	m, err := NewEngine().BuildMatrix(context.Background(), log, 1.0, 1.0)
	if err != nil {
		t.Fatalf("BuildMatrix failed: %v", err)
	}

	cell, _ := m.Cell("A", "B")
	if cell.Temporal != dependency.TemporalNone {
		t.Errorf("temporal(A, B) = %v, want TemporalNone", cell.Temporal)
	}
	if cell.Existential != dependency.NegatedEquivalence {
		t.Errorf("existential(A, B) = %v, want NegatedEquivalence", cell.Existential)
	}
}

func TestEngine_EmptyLog(t *testing.T) {
	_, err := NewEngine().BuildMatrix(context.Background(), model.NewEventLog(), 1.0, 1.0)
	if !errors.IsCode(err, errors.CodeEmptyLog) {
		t.Errorf("error code = %s, want %s", errors.GetCode(err), errors.CodeEmptyLog)
	}

	_, err = ClassifyLog(context.Background(), model.NewEventLog(), 1.0, 1.0)
	if !errors.IsCode(err, errors.CodeEmptyLog) {
		t.Errorf("ClassifyLog error code = %s, want %s", errors.GetCode(err), errors.CodeEmptyLog)
	}
}

func TestEngine_InvalidThreshold(t *testing.T) {
	log := repeatedLog(1, "A", "B")

	_, err := NewEngine().BuildMatrix(context.Background(), log, 1.01, 1.0)
	if !errors.IsCode(err, errors.CodeInvalidThreshold) {
		t.Errorf("error code = %s, want %s", errors.GetCode(err), errors.CodeInvalidThreshold)
	}
}

func TestEngine_InconsistentOrdering(t *testing.T) {
	sequences := make([][]model.Activity, 0, 10)
	for i := 0; i < 5; i++ {
		sequences = append(sequences, []model.Activity{"A", "B"})
		sequences = append(sequences, []model.Activity{"B", "A"})
	}
	log := model.NewEventLog(sequences...)

	m, err := NewEngine().BuildMatrix(context.Background(), log, 1.0, 1.0)
	if err != nil {
		t.Fatalf("BuildMatrix failed: %v", err)
	}

	for _, pair := range [][2]model.Activity{{"A", "B"}, {"B", "A"}} {
		cell, _ := m.Cell(pair[0], pair[1])
		if cell.Temporal != dependency.TemporalNone {
			t.Errorf("temporal(%s, %s) = %v, want TemporalNone", pair[0], pair[1], cell.Temporal)
		}
		if cell.Existential != dependency.Equivalence {
			t.Errorf("existential(%s, %s) = %v, want Equivalence", pair[0], pair[1], cell.Existential)
		}
	}
}

func TestClassifyLog_EndToEnd(t *testing.T) {
	result, err := ClassifyLog(context.Background(), repeatedLog(10, "A", "B", "C"), 1.0, 1.0)
	if err != nil {
		t.Fatalf("ClassifyLog failed: %v", err)
	}
	if result.Label != classify.Structured {
		t.Errorf("label = %v, want Structured", result.Label)
	}
	if len(result.Ratios) == 0 {
		t.Error("result should carry the ratio breakdown")
	}
}

func TestEngine_CustomRules(t *testing.T) {
	// A rule table whose only primary rule always matches forces every
	// log into its category.
	rules := classify.RuleSet{
		Primary: []classify.Rule{{
			Name:       "always",
			Category:   classify.CategoryLooselyStructured,
			CategoryID: classify.CategoryLooselyStructured.String(),
			Conditions: []classify.Condition{{
				Metric: classify.MetricNoneNone,
				Op:     classify.OpGE,
				Value:  0.0,
			}},
		}},
	}

	engine := NewEngine(WithRules(rules))
	result, err := engine.ClassifyLog(context.Background(), repeatedLog(10, "A", "B", "C"), 1.0, 1.0)
	if err != nil {
		t.Fatalf("ClassifyLog failed: %v", err)
	}
	if result.Label != classify.LooselyStructured {
		t.Errorf("label = %v, want LooselyStructured", result.Label)
	}
}
