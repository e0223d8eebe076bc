package classify

import (
	"encoding/json"
	"testing"

	"github.com/proclens/proclens/pkg/dependency"
	"github.com/proclens/proclens/pkg/matrix"
)

// bucketCounts holds cell counts per combined-relation bucket, in the
// order: none/none, none/implication, none/equivalence,
// none/negated-equivalence, direct/none, direct/implication,
// direct/equivalence, eventual/none, eventual/implication,
// eventual/equivalence.
type bucketCounts [10]int

var bucketCells = [10]matrix.Cell{
	{Temporal: dependency.TemporalNone, Existential: dependency.ExistentialNone},
	{Temporal: dependency.TemporalNone, Existential: dependency.Implication},
	{Temporal: dependency.TemporalNone, Existential: dependency.Equivalence},
	{Temporal: dependency.TemporalNone, Existential: dependency.NegatedEquivalence},
	{Temporal: dependency.DirectlyFollows, Existential: dependency.ExistentialNone},
	{Temporal: dependency.DirectlyFollows, Existential: dependency.Implication},
	{Temporal: dependency.DirectlyFollows, Existential: dependency.Equivalence},
	{Temporal: dependency.EventuallyFollows, Existential: dependency.ExistentialNone},
	{Temporal: dependency.EventuallyFollows, Existential: dependency.Implication},
	{Temporal: dependency.EventuallyFollows, Existential: dependency.Equivalence},
}

func (c bucketCounts) ratios() matrix.Ratios {
	total := 0
	for _, n := range c {
		total += n
	}
	ratios := make(matrix.Ratios)
	if total == 0 {
		return ratios
	}
	for i, n := range c {
		if n > 0 {
			ratios[bucketCells[i]] = float64(n) / float64(total)
		}
	}
	return ratios
}

func TestClassify_ReferenceDistributions(t *testing.T) {
	cases := []struct {
		name   string
		counts bucketCounts
		want   Label
	}{
		{"dominant isolation", bucketCounts{81, 0, 0, 0, 5, 0, 0, 5, 0, 0}, Unstructured},
		{"dominant unordered equivalence", bucketCounts{0, 0, 81, 0, 0, 0, 0, 0, 0, 19}, Unstructured},
		{"strong eventual implication", bucketCounts{4, 9, 0, 0, 35, 0, 0, 0, 41, 11}, Structured},
		{"borderline implication heavy", bucketCounts{19, 41, 0, 0, 0, 0, 0, 0, 0, 40}, SemiStructured},
		{"sequential with choices", bucketCounts{0, 0, 7, 13, 0, 13, 7, 0, 47, 13}, Structured},
		{"unordered implication web", bucketCounts{13, 47, 13, 7, 0, 13, 7, 0, 0, 0}, SemiStructured},
		{"sparse with exclusions", bucketCounts{60, 7, 7, 13, 0, 0, 0, 0, 13, 0}, LooselyStructured},
		{"ordered equivalence mix", bucketCounts{0, 0, 7, 7, 0, 13, 0, 0, 40, 33}, Structured},
		{"direct ordering dominant", bucketCounts{0, 0, 0, 27, 53, 0, 0, 7, 13, 0}, Structured},
		{"equivalence without order", bucketCounts{0, 28, 5, 0, 0, 0, 10, 0, 0, 57}, SemiStructured},
		{"balanced partial order", bucketCounts{6, 21, 11, 3, 0, 11, 6, 0, 17, 25}, SemiStructured},
		{"weak scattered order", bucketCounts{23, 14, 0, 14, 0, 10, 0, 10, 24, 5}, LooselyStructured},
		{"pure unordered equivalence", bucketCounts{0, 0, 100, 0, 0, 0, 0, 0, 0, 0}, Unstructured},
		{"eventual equivalence heavy", bucketCounts{5, 19, 5, 0, 0, 0, 5, 0, 28, 38}, SemiStructured},
		{"mostly isolated pairs", bucketCounts{66, 7, 7, 0, 0, 0, 0, 0, 20, 0}, LooselyStructured},
		{"exclusion rich ordering", bucketCounts{0, 0, 6, 35, 3, 14, 0, 6, 25, 11}, Structured},
		{"partial order with noise", bucketCounts{22, 2, 2, 16, 0, 0, 0, 15, 30, 13}, SemiStructured},
		{"contending weak evidence", bucketCounts{33, 33, 0, 17, 0, 0, 0, 0, 17, 0}, SemiStructuredLooselyStructured},
		{"implication chain", bucketCounts{0, 0, 8, 8, 0, 11, 3, 11, 44, 15}, Structured},
		{"isolated with stray order", bucketCounts{80, 0, 10, 0, 0, 0, 0, 10, 0, 0}, LooselyStructured},
		{"implication without order", bucketCounts{14, 33, 3, 0, 0, 0, 3, 0, 22, 25}, SemiStructured},
		{"indicator weighted order", bucketCounts{0, 20, 20, 0, 0, 0, 0, 10, 40, 10}, Structured},
		{"indicator weighted exclusion", bucketCounts{0, 20, 20, 10, 0, 0, 0, 0, 40, 10}, Structured},
	}

	c := Default()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result := c.Classify(tc.counts.ratios())
			if result.Label != tc.want {
				t.Errorf("Classify() = %v, want %v (matched rules: %v)", result.Label, tc.want, result.MatchedRules)
			}
		})
	}
}

func TestClassify_EmptyRatios(t *testing.T) {
	result := Default().Classify(matrix.Ratios{})
	if result.Label != Unstructured {
		t.Errorf("Classify(empty) = %v, want Unstructured", result.Label)
	}
}

func TestClassify_IsTotal(t *testing.T) {
	// Every distribution resolves to a result, including degenerate
	// single-bucket ones.
	c := Default()
	for i, cell := range bucketCells {
		result := c.Classify(matrix.Ratios{cell: 1.0})
		_ = result.Label.String()
		if result.Label > StructuredSemiStructured {
			t.Errorf("bucket %d: invalid label %d", i, result.Label)
		}
	}
}

func TestClassify_ReportsMatchedRules(t *testing.T) {
	c := Default()

	// The dominant-isolation guard short-circuits.
	result := c.Classify(bucketCounts{81, 0, 0, 0, 5, 0, 0, 5, 0, 0}.ratios())
	if len(result.MatchedRules) != 1 || result.MatchedRules[0] != "U1" {
		t.Errorf("MatchedRules = %v, want [U1]", result.MatchedRules)
	}

	// A dominant direct ordering matches the unconditional ordering rule.
	result = c.Classify(bucketCounts{0, 0, 0, 27, 53, 0, 0, 7, 13, 0}.ratios())
	if !contains(result.MatchedRules, "S3") {
		t.Errorf("MatchedRules = %v, want S3 included", result.MatchedRules)
	}
}

func TestLabel_MixedAndSublabels(t *testing.T) {
	if !StructuredSemiStructured.Mixed() || !SemiStructuredLooselyStructured.Mixed() {
		t.Error("mixed labels must report Mixed()")
	}
	if Structured.Mixed() {
		t.Error("Structured must not report Mixed()")
	}

	subs := SemiStructuredLooselyStructured.Sublabels()
	if len(subs) != 2 || subs[0] != SemiStructured || subs[1] != LooselyStructured {
		t.Errorf("Sublabels() = %v", subs)
	}
	if subs := Structured.Sublabels(); len(subs) != 1 || subs[0] != Structured {
		t.Errorf("Sublabels() = %v", subs)
	}
}

func TestLabel_String(t *testing.T) {
	cases := map[Label]string{
		Structured:                      "Structured",
		SemiStructured:                  "Semi-Structured",
		LooselyStructured:               "Loosely Structured",
		Unstructured:                    "Unstructured",
		StructuredSemiStructured:        "Structured / Semi-Structured",
		SemiStructuredLooselyStructured: "Semi-Structured / Loosely Structured",
	}
	for label, want := range cases {
		if got := label.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", label, got, want)
		}
	}
}

func TestLabel_JSONRoundTrip(t *testing.T) {
	labels := []Label{
		Unstructured,
		LooselyStructured,
		SemiStructured,
		Structured,
		SemiStructuredLooselyStructured,
		StructuredSemiStructured,
	}
	for _, label := range labels {
		data, err := json.Marshal(Result{Label: label, MatchedRules: []string{"S1"}})
		if err != nil {
			t.Fatalf("Marshal(%v) failed: %v", label, err)
		}

		var decoded Result
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("Unmarshal(%s) failed: %v", data, err)
		}
		if decoded.Label != label {
			t.Errorf("round trip changed label: got %v, want %v", decoded.Label, label)
		}
	}
}

func TestLabel_UnmarshalRejectsUnknown(t *testing.T) {
	var l Label
	if err := json.Unmarshal([]byte(`"Baroque"`), &l); err == nil {
		t.Error("unknown label string must not decode")
	}
	if err := json.Unmarshal([]byte(`42`), &l); err == nil {
		t.Error("non-string label must not decode")
	}
}

func contains(names []string, want string) bool {
	for _, n := range names {
		if n == want {
			return true
		}
	}
	return false
}
