package classify

import (
	"encoding/json"
	"fmt"

	"github.com/proclens/proclens/pkg/matrix"
)

// Label is the final classification of a process.
type Label uint8

const (
	// Unstructured: relation mass is dominated by unrelated pairs.
	Unstructured Label = iota
	// LooselyStructured: sparse ordering, little implication.
	LooselyStructured
	// SemiStructured: partial ordering and implication structure.
	SemiStructured
	// Structured: strong combined relations dominate the matrix.
	Structured
	// SemiStructuredLooselyStructured is the mixed result when the
	// semi-structured and loosely structured evidence is contending.
	SemiStructuredLooselyStructured
	// StructuredSemiStructured is the mixed result when the structured
	// and semi-structured evidence is contending.
	StructuredSemiStructured
)

// String renders the label the way reports display it.
func (l Label) String() string {
	switch l {
	case Structured:
		return "Structured"
	case SemiStructured:
		return "Semi-Structured"
	case LooselyStructured:
		return "Loosely Structured"
	case StructuredSemiStructured:
		return "Structured / Semi-Structured"
	case SemiStructuredLooselyStructured:
		return "Semi-Structured / Loosely Structured"
	default:
		return "Unstructured"
	}
}

// MarshalJSON renders the label as its display string.
func (l Label) MarshalJSON() ([]byte, error) {
	return []byte(`"` + l.String() + `"`), nil
}

// ParseLabel parses a display string back into a label.
func ParseLabel(s string) (Label, error) {
	for _, l := range []Label{
		Unstructured,
		LooselyStructured,
		SemiStructured,
		Structured,
		SemiStructuredLooselyStructured,
		StructuredSemiStructured,
	} {
		if l.String() == s {
			return l, nil
		}
	}
	return Unstructured, fmt.Errorf("classify: unknown label %q", s)
}

// UnmarshalJSON is the inverse of MarshalJSON, so exported results
// decode back into Go types.
func (l *Label) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseLabel(s)
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// Mixed reports whether the label carries two contending sub-labels.
func (l Label) Mixed() bool {
	return l == StructuredSemiStructured || l == SemiStructuredLooselyStructured
}

// Sublabels returns the contending labels of a mixed result, or the
// label itself.
func (l Label) Sublabels() []Label {
	switch l {
	case StructuredSemiStructured:
		return []Label{Structured, SemiStructured}
	case SemiStructuredLooselyStructured:
		return []Label{SemiStructured, LooselyStructured}
	default:
		return []Label{l}
	}
}

// Result is the classification outcome: the label, the rules that
// argued for it, and the ratio breakdown they were evaluated against.
type Result struct {
	Label        Label         `json:"label"`
	MatchedRules []string      `json:"matched_rules,omitempty"`
	Profile      Profile       `json:"-"`
	Ratios       matrix.Ratios `json:"-"`
}

// Classifier applies a rule table to ratio mappings. Classification is
// a total function: every ratio mapping, including the all-zero one,
// resolves to exactly one result.
type Classifier struct {
	rules RuleSet
}

// NewClassifier builds a classifier over the given rule set.
func NewClassifier(rules RuleSet) *Classifier {
	return &Classifier{rules: rules}
}

// Default returns a classifier over the reference rule table.
func Default() *Classifier {
	return NewClassifier(DefaultRuleSet())
}

// Classify maps a ratio breakdown to a classification result.
func (c *Classifier) Classify(ratios matrix.Ratios) Result {
	result := Result{Ratios: ratios, Profile: NewProfile(ratios)}

	// No off-diagonal pairs means no observable pairwise structure.
	if len(ratios) == 0 {
		result.Label = Unstructured
		return result
	}

	p := result.Profile

	for _, r := range c.rules.Unstructured {
		if matched, _ := r.Eval(p); matched {
			result.Label = Unstructured
			result.MatchedRules = []string{r.Name}
			return result
		}
	}

	primaryCategories, primaryEvals := evalGroup(c.rules.Primary, p)
	result.MatchedRules = matchedNames(c.rules.Primary, primaryEvals)

	if label, ok := decideCategories(primaryCategories); ok {
		result.Label = label
		return result
	}

	secondaryCategories, secondaryEvals := evalGroup(c.rules.Secondary, p)

	// A single borderline match decides only when the primary rules
	// were inconclusive (none matched, or several disagreed).
	if len(secondaryCategories) == 1 && len(primaryCategories) != 1 {
		result.MatchedRules = append(result.MatchedRules, matchedNames(c.rules.Secondary, secondaryEvals)...)
		for category := range secondaryCategories {
			result.Label = categoryLabel(category)
		}
		return result
	}

	result.Label = c.mostIndicators(primaryEvals, secondaryEvals)
	return result
}

// ruleEval pairs a rule with its per-condition outcomes.
type ruleEval struct {
	rule     Rule
	matched  bool
	outcomes []bool
}

func evalGroup(rules []Rule, p Profile) (map[Category]struct{}, []ruleEval) {
	categories := make(map[Category]struct{})
	evals := make([]ruleEval, 0, len(rules))
	for _, r := range rules {
		matched, outcomes := r.Eval(p)
		if matched {
			categories[r.Category] = struct{}{}
		}
		evals = append(evals, ruleEval{rule: r, matched: matched, outcomes: outcomes})
	}
	return categories, evals
}

func matchedNames(rules []Rule, evals []ruleEval) []string {
	var names []string
	for _, e := range evals {
		if e.matched {
			names = append(names, e.rule.Name)
		}
	}
	return names
}

// decideCategories resolves an unambiguous primary outcome. Adjacent
// category pairs yield a mixed label; a structured/loosely-structured
// split or a three-way match stays undecided.
func decideCategories(categories map[Category]struct{}) (Label, bool) {
	_, s := categories[CategoryStructured]
	_, ss := categories[CategorySemiStructured]
	_, ls := categories[CategoryLooselyStructured]

	switch len(categories) {
	case 1:
		switch {
		case s:
			return Structured, true
		case ss:
			return SemiStructured, true
		default:
			return LooselyStructured, true
		}
	case 2:
		if s && ss {
			return StructuredSemiStructured, true
		}
		if ss && ls {
			return SemiStructuredLooselyStructured, true
		}
	}
	return Unstructured, false
}

// mostIndicators is the fallback when no rule resolves cleanly: count
// satisfied conditions per category, weighting primary rules double.
func (c *Classifier) mostIndicators(primary, secondary []ruleEval) Label {
	scores := map[Category]int{}
	for _, e := range primary {
		scores[e.rule.Category] += 2 * countTrue(e.outcomes)
	}
	for _, e := range secondary {
		scores[e.rule.Category] += countTrue(e.outcomes)
	}

	max := 0
	for _, score := range scores {
		if score > max {
			max = score
		}
	}
	if max == 0 {
		// No indicator leaned anywhere at all.
		return Unstructured
	}

	top := make(map[Category]struct{})
	for category, score := range scores {
		if score == max {
			top[category] = struct{}{}
		}
	}

	_, s := top[CategoryStructured]
	_, ss := top[CategorySemiStructured]
	_, ls := top[CategoryLooselyStructured]

	switch len(top) {
	case 1:
		switch {
		case s:
			return Structured
		case ss:
			return SemiStructured
		default:
			return LooselyStructured
		}
	case 2:
		switch {
		case s && ss:
			return StructuredSemiStructured
		case ss && ls:
			return SemiStructuredLooselyStructured
		default:
			// Structured and loosely structured contending evens out.
			return SemiStructured
		}
	default:
		return SemiStructured
	}
}

func categoryLabel(c Category) Label {
	switch c {
	case CategoryStructured:
		return Structured
	case CategorySemiStructured:
		return SemiStructured
	default:
		return LooselyStructured
	}
}

func countTrue(outcomes []bool) int {
	n := 0
	for _, ok := range outcomes {
		if ok {
			n++
		}
	}
	return n
}
