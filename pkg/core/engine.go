// Package core wires the analyzers, matrix builder, and classifier
// into the engine entry points presentation layers consume.
package core

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/proclens/proclens/internal/model"
	"github.com/proclens/proclens/pkg/classify"
	"github.com/proclens/proclens/pkg/matrix"
)

const tracerName = "proclens/core"

// Engine classifies event logs. It holds no state across invocations;
// every call recomputes its alphabet and matrix from its own input.
type Engine struct {
	classifier *classify.Classifier
}

// Option configures an Engine.
type Option func(*Engine)

// WithRules overrides the classification rule table.
func WithRules(rules classify.RuleSet) Option {
	return func(e *Engine) {
		e.classifier = classify.NewClassifier(rules)
	}
}

// NewEngine creates an engine with the reference rule table unless
// overridden.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{classifier: classify.Default()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// BuildMatrix validates the thresholds and log, then discovers both
// relation dimensions and assembles the dependency matrix.
func (e *Engine) BuildMatrix(ctx context.Context, log *model.EventLog, temporalThreshold, existentialThreshold float64) (*matrix.Matrix, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "engine.build_matrix")
	defer span.End()

	m, err := matrix.Build(ctx, log, temporalThreshold, existentialThreshold)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("log.traces", len(log.Traces)),
		attribute.Int("matrix.alphabet", len(m.Alphabet())),
		attribute.Int("matrix.cells", m.Size()),
	)
	return m, nil
}

// Classify maps a ratio breakdown to a classification result. Total:
// it never fails once a matrix exists.
func (e *Engine) Classify(ratios matrix.Ratios) classify.Result {
	return e.classifier.Classify(ratios)
}

// ClassifyLog composes matrix construction and classification.
func (e *Engine) ClassifyLog(ctx context.Context, log *model.EventLog, temporalThreshold, existentialThreshold float64) (classify.Result, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "engine.classify_log")
	defer span.End()

	m, err := e.BuildMatrix(ctx, log, temporalThreshold, existentialThreshold)
	if err != nil {
		return classify.Result{}, err
	}

	result := e.Classify(m.Ratios())
	span.SetAttributes(attribute.String("classification", result.Label.String()))
	return result, nil
}

// ClassifyLog classifies with the reference rule table. Shorthand for
// callers that do not configure an engine.
func ClassifyLog(ctx context.Context, log *model.EventLog, temporalThreshold, existentialThreshold float64) (classify.Result, error) {
	return NewEngine().ClassifyLog(ctx, log, temporalThreshold, existentialThreshold)
}
