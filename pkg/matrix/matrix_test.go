package matrix

import (
	"context"
	"math"
	"reflect"
	"testing"

	"github.com/proclens/proclens/internal/model"
	"github.com/proclens/proclens/pkg/dependency"
	"github.com/proclens/proclens/pkg/errors"
)

func sequenceLog(n int, seq ...model.Activity) *model.EventLog {
	sequences := make([][]model.Activity, n)
	for i := range sequences {
		sequences[i] = seq
	}
	return model.NewEventLog(sequences...)
}

func TestBuild_StrictSequence(t *testing.T) {
	log := sequenceLog(10, "A", "B", "C")

	m, err := Build(context.Background(), log, 1.0, 1.0)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if m.Size() != 6 {
		t.Errorf("Size() = %d, want 6", m.Size())
	}

	cases := []struct {
		from, to model.Activity
		want     Cell
	}{
		{"A", "B", Cell{dependency.DirectlyFollows, dependency.Equivalence}},
		{"B", "C", Cell{dependency.DirectlyFollows, dependency.Equivalence}},
		{"A", "C", Cell{dependency.EventuallyFollows, dependency.Equivalence}},
		{"B", "A", Cell{dependency.TemporalNone, dependency.Equivalence}},
	}
	for _, tc := range cases {
		got, ok := m.Cell(tc.from, tc.to)
		if !ok {
			t.Errorf("Cell(%s, %s) missing", tc.from, tc.to)
			continue
		}
		if got != tc.want {
			t.Errorf("Cell(%s, %s) = %+v, want %+v", tc.from, tc.to, got, tc.want)
		}
	}

	if _, ok := m.Cell("A", "A"); ok {
		t.Error("diagonal Cell(A, A) must not exist")
	}
}

func TestBuild_InvalidThreshold(t *testing.T) {
	log := sequenceLog(1, "A", "B")

	for _, tc := range []struct {
		name                  string
		temporal, existential float64
	}{
		{"temporal above one", 1.01, 1.0},
		{"temporal negative", -0.01, 1.0},
		{"existential above one", 1.0, 1.5},
		{"existential negative", 1.0, -1.0},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Build(context.Background(), log, tc.temporal, tc.existential)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !errors.IsCode(err, errors.CodeInvalidThreshold) {
				t.Errorf("error code = %s, want %s", errors.GetCode(err), errors.CodeInvalidThreshold)
			}
		})
	}
}

func TestBuild_EmptyLog(t *testing.T) {
	_, err := Build(context.Background(), model.NewEventLog(), 1.0, 1.0)
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !errors.IsCode(err, errors.CodeEmptyLog) {
		t.Errorf("error code = %s, want %s", errors.GetCode(err), errors.CodeEmptyLog)
	}
}

func TestBuild_InvalidThresholdCheckedBeforeEmptyLog(t *testing.T) {
	_, err := Build(context.Background(), model.NewEventLog(), 2.0, 1.0)
	if !errors.IsCode(err, errors.CodeInvalidThreshold) {
		t.Errorf("error code = %s, want %s", errors.GetCode(err), errors.CodeInvalidThreshold)
	}
}

func TestBuild_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Build(ctx, sequenceLog(5, "A", "B"), 1.0, 1.0)
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

func TestBuild_Idempotent(t *testing.T) {
	log := model.NewEventLog(
		[]model.Activity{"A", "B", "C"},
		[]model.Activity{"A", "C", "B"},
		[]model.Activity{"B", "D"},
		[]model.Activity{"A", "B"},
	)

	first, err := Build(context.Background(), log, 0.8, 0.8)
	if err != nil {
		t.Fatalf("first Build failed: %v", err)
	}
	second, err := Build(context.Background(), log, 0.8, 0.8)
	if err != nil {
		t.Fatalf("second Build failed: %v", err)
	}

	if !reflect.DeepEqual(first.Cells(), second.Cells()) {
		t.Error("rebuilding the same log produced different cells")
	}
	if !reflect.DeepEqual(first.Ratios(), second.Ratios()) {
		t.Error("rebuilding the same log produced different ratios")
	}
}

func TestRatios_SumToOne(t *testing.T) {
	logs := []*model.EventLog{
		sequenceLog(10, "A", "B", "C"),
		model.NewEventLog(
			[]model.Activity{"A", "B"},
			[]model.Activity{"C"},
			[]model.Activity{"A", "C", "D"},
		),
	}
	for i, log := range logs {
		m, err := Build(context.Background(), log, 1.0, 1.0)
		if err != nil {
			t.Fatalf("log %d: Build failed: %v", i, err)
		}
		sum := 0.0
		for _, ratio := range m.Ratios() {
			sum += ratio
		}
		if math.Abs(sum-1.0) > 1e-9 {
			t.Errorf("log %d: ratios sum to %v, want 1.0", i, sum)
		}
	}
}

func TestRatios_SingleActivityAlphabet(t *testing.T) {
	m, err := Build(context.Background(), sequenceLog(5, "A"), 1.0, 1.0)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if m.Size() != 0 {
		t.Errorf("Size() = %d, want 0", m.Size())
	}
	if ratios := m.Ratios(); len(ratios) != 0 {
		t.Errorf("Ratios() has %d buckets, want 0", len(ratios))
	}
}

func TestMatrix_ThresholdAccessors(t *testing.T) {
	m, err := Build(context.Background(), sequenceLog(2, "A", "B"), 0.7, 0.9)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if m.TemporalThreshold() != 0.7 {
		t.Errorf("TemporalThreshold() = %v, want 0.7", m.TemporalThreshold())
	}
	if m.ExistentialThreshold() != 0.9 {
		t.Errorf("ExistentialThreshold() = %v, want 0.9", m.ExistentialThreshold())
	}
}
