// Package classify labels a process's structural regularity from the
// dependency matrix's combined-relation ratios.
//
// The rule table is data, not code: every boundary number lives in a
// Rule value that can be inspected, unit-tested rule by rule, and
// overridden through configuration. The numeric boundaries separating
// the categories are tuning policy, validated against reference logs.
package classify

import (
	"fmt"

	"github.com/proclens/proclens/pkg/dependency"
	"github.com/proclens/proclens/pkg/matrix"
)

// Metric names one aggregate statistic derived from the ratio buckets.
type Metric uint8

const (
	// MetricNoneNone is the fraction of cells with no relation at all.
	MetricNoneNone Metric = iota
	// MetricNoneImplication pairs no temporal relation with implication.
	MetricNoneImplication
	// MetricNoneEquivalence pairs no temporal relation with equivalence.
	MetricNoneEquivalence
	// MetricNoneNegatedEquivalence pairs no temporal relation with
	// mutual exclusion.
	MetricNoneNegatedEquivalence
	// MetricEventualImplication pairs eventual ordering with implication.
	MetricEventualImplication
	// MetricEventualEquivalence pairs eventual ordering with equivalence.
	MetricEventualEquivalence
	// MetricEventualAny is eventual ordering with any existential relation.
	MetricEventualAny
	// MetricDirectAny is direct ordering with any existential relation.
	MetricDirectAny
	// MetricDirectNone is direct ordering with no existential relation.
	MetricDirectNone

	numMetrics
)

var metricNames = map[Metric]string{
	MetricNoneNone:               "none_none",
	MetricNoneImplication:        "none_implication",
	MetricNoneEquivalence:        "none_equivalence",
	MetricNoneNegatedEquivalence: "none_negated_equivalence",
	MetricEventualImplication:    "eventual_implication",
	MetricEventualEquivalence:    "eventual_equivalence",
	MetricEventualAny:            "eventual_any",
	MetricDirectAny:              "direct_any",
	MetricDirectNone:             "direct_none",
}

// String returns the metric's configuration name.
func (m Metric) String() string {
	if name, ok := metricNames[m]; ok {
		return name
	}
	return fmt.Sprintf("metric(%d)", uint8(m))
}

// ParseMetric resolves a configuration name to a Metric.
func ParseMetric(name string) (Metric, error) {
	for metric, n := range metricNames {
		if n == name {
			return metric, nil
		}
	}
	return 0, fmt.Errorf("classify: unknown metric %q", name)
}

// MarshalYAML encodes the metric by name.
func (m Metric) MarshalYAML() (interface{}, error) {
	return m.String(), nil
}

// UnmarshalYAML decodes the metric from its name.
func (m *Metric) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var name string
	if err := unmarshal(&name); err != nil {
		return err
	}
	parsed, err := ParseMetric(name)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Profile holds the metric values computed from one ratio mapping.
type Profile [numMetrics]float64

// NewProfile derives the rule metrics from the matrix ratio buckets.
func NewProfile(ratios matrix.Ratios) Profile {
	var p Profile
	for cell, fraction := range ratios {
		switch cell.Temporal {
		case dependency.TemporalNone:
			switch cell.Existential {
			case dependency.ExistentialNone:
				p[MetricNoneNone] += fraction
			case dependency.Implication:
				p[MetricNoneImplication] += fraction
			case dependency.Equivalence:
				p[MetricNoneEquivalence] += fraction
			case dependency.NegatedEquivalence:
				p[MetricNoneNegatedEquivalence] += fraction
			}
		case dependency.EventuallyFollows:
			if cell.Existential != dependency.ExistentialNone {
				p[MetricEventualAny] += fraction
			}
			switch cell.Existential {
			case dependency.Implication:
				p[MetricEventualImplication] += fraction
			case dependency.Equivalence:
				p[MetricEventualEquivalence] += fraction
			}
		case dependency.DirectlyFollows:
			if cell.Existential != dependency.ExistentialNone {
				p[MetricDirectAny] += fraction
			} else {
				p[MetricDirectNone] += fraction
			}
		}
	}
	return p
}

// Op is a comparison operator used by rule conditions.
type Op string

const (
	OpLT Op = "lt"
	OpLE Op = "le"
	OpGT Op = "gt"
	OpGE Op = "ge"
)

// Apply evaluates the comparison.
func (o Op) Apply(value, bound float64) bool {
	switch o {
	case OpLT:
		return value < bound
	case OpLE:
		return value <= bound
	case OpGT:
		return value > bound
	case OpGE:
		return value >= bound
	default:
		return false
	}
}

// Condition is one boundary check a rule performs.
type Condition struct {
	Metric Metric  `yaml:"metric"`
	Op     Op      `yaml:"op"`
	Value  float64 `yaml:"value"`
}

// Holds evaluates the condition against a profile.
func (c Condition) Holds(p Profile) bool {
	return c.Op.Apply(p[c.Metric], c.Value)
}

// Category is the base structural category a rule argues for.
type Category uint8

const (
	CategoryStructured Category = iota
	CategorySemiStructured
	CategoryLooselyStructured
	// CategoryGuard marks rules that gate classification without
	// arguing for any category.
	CategoryGuard
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryStructured:
		return "structured"
	case CategorySemiStructured:
		return "semi-structured"
	case CategoryLooselyStructured:
		return "loosely-structured"
	case CategoryGuard:
		return "guard"
	default:
		return fmt.Sprintf("category(%d)", uint8(c))
	}
}

// Rule is one entry in the classification rule table: a named
// conjunction of boundary conditions arguing for a category.
type Rule struct {
	Name       string      `yaml:"name"`
	Category   Category    `yaml:"-"`
	CategoryID string      `yaml:"category"`
	Conditions []Condition `yaml:"conditions"`
}

// Eval reports whether the rule matches, plus the per-condition
// outcomes used by the indicator-count fallback.
func (r Rule) Eval(p Profile) (bool, []bool) {
	outcomes := make([]bool, len(r.Conditions))
	matched := true
	for i, cond := range r.Conditions {
		outcomes[i] = cond.Holds(p)
		if !outcomes[i] {
			matched = false
		}
	}
	return matched, outcomes
}

// RuleSet is the full ordered rule table: unstructured guards checked
// first, then primary rules, then secondary (borderline) rules.
type RuleSet struct {
	Unstructured []Rule `yaml:"unstructured"`
	Primary      []Rule `yaml:"primary"`
	Secondary    []Rule `yaml:"secondary"`
}

func rule(name string, category Category, conditions ...Condition) Rule {
	return Rule{
		Name:       name,
		Category:   category,
		CategoryID: category.String(),
		Conditions: conditions,
	}
}

func cond(metric Metric, op Op, value float64) Condition {
	return Condition{Metric: metric, Op: op, Value: value}
}

// DefaultRuleSet returns the reference boundary values. They are a
// starting point validated against reference logs, not fixed
// constants; override them through configuration.
func DefaultRuleSet() RuleSet {
	return RuleSet{
		Unstructured: []Rule{
			rule("U1", CategoryGuard,
				cond(MetricNoneNone, OpGT, 0.80),
				cond(MetricEventualAny, OpLT, 0.10),
				cond(MetricDirectAny, OpLT, 0.10),
			),
			rule("U2", CategoryGuard,
				cond(MetricNoneEquivalence, OpGT, 0.80),
			),
		},
		Primary: []Rule{
			rule("S1", CategoryStructured,
				cond(MetricNoneNone, OpLT, 0.05),
				cond(MetricNoneImplication, OpLT, 0.10),
				cond(MetricEventualEquivalence, OpGT, 0.10),
				cond(MetricEventualImplication, OpGT, 0.40),
			),
			rule("S2", CategoryStructured,
				cond(MetricNoneNone, OpLT, 0.05),
				cond(MetricNoneImplication, OpLE, 0.15),
				cond(MetricEventualEquivalence, OpGE, 0.10),
				cond(MetricEventualImplication, OpGT, 0.30),
			),
			rule("S3", CategoryStructured,
				cond(MetricDirectNone, OpGT, 0.50),
			),
			rule("SS1", CategorySemiStructured,
				cond(MetricNoneNone, OpLT, 0.35),
				cond(MetricNoneImplication, OpGT, 0.30),
				cond(MetricEventualEquivalence, OpLT, 0.05),
				cond(MetricEventualImplication, OpLT, 0.20),
			),
			rule("SS2", CategorySemiStructured,
				cond(MetricNoneNone, OpLT, 0.25),
				cond(MetricNoneImplication, OpGT, 0.01),
				cond(MetricEventualEquivalence, OpGT, 0.10),
				cond(MetricEventualImplication, OpLT, 0.40),
			),
			rule("LS1", CategoryLooselyStructured,
				cond(MetricNoneNone, OpGT, 0.20),
				cond(MetricNoneImplication, OpLT, 0.35),
				cond(MetricEventualEquivalence, OpLT, 0.10),
				cond(MetricEventualImplication, OpLT, 0.30),
			),
			rule("LS2", CategoryLooselyStructured,
				cond(MetricNoneNone, OpGT, 0.50),
				cond(MetricNoneImplication, OpLT, 0.10),
				cond(MetricEventualEquivalence, OpLT, 0.05),
				cond(MetricEventualImplication, OpLT, 0.25),
			),
		},
		Secondary: []Rule{
			rule("BS1", CategoryStructured,
				cond(MetricNoneNone, OpLT, 0.10),
				cond(MetricNoneNegatedEquivalence, OpGT, 0.50),
				cond(MetricEventualImplication, OpGT, 0.60),
			),
			rule("BS2", CategorySemiStructured,
				cond(MetricNoneNone, OpLT, 0.20),
				cond(MetricNoneImplication, OpGT, 0.40),
			),
			rule("BL1", CategoryLooselyStructured,
				cond(MetricNoneNone, OpGT, 0.60),
				cond(MetricNoneImplication, OpLT, 0.30),
			),
		},
	}
}

// Resolve fills the parsed Category from CategoryID after YAML
// decoding. Rules built in code already carry both.
func (rs *RuleSet) Resolve() error {
	for _, group := range [][]Rule{rs.Unstructured, rs.Primary, rs.Secondary} {
		for i := range group {
			switch group[i].CategoryID {
			case "", CategoryStructured.String():
				group[i].Category = CategoryStructured
			case CategorySemiStructured.String():
				group[i].Category = CategorySemiStructured
			case CategoryLooselyStructured.String():
				group[i].Category = CategoryLooselyStructured
			case CategoryGuard.String():
				group[i].Category = CategoryGuard
			default:
				return fmt.Errorf("classify: unknown category %q in rule %q", group[i].CategoryID, group[i].Name)
			}
		}
	}
	return nil
}
