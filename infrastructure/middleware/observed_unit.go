package middleware

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/go-pitch/internal/domain"
	"github.com/ahrav/go-pitch/internal/ports"
)

const tracerName = "github.com/ahrav/go-pitch/pipeline"

var _ ports.Unit = (*ObservedUnit)(nil)

// ObservedUnit wraps a pipeline stage with a span and a latency metric.
// It is transparent: state and errors pass through unchanged.
type ObservedUnit struct {
	next    ports.Unit
	tracer  trace.Tracer
	metrics ports.MetricsCollector
}

// NewObservedUnit wraps next. A nil tracer uses the global provider; a nil
// metrics collector disables latency recording.
func NewObservedUnit(next ports.Unit, tracer trace.Tracer, metrics ports.MetricsCollector) *ObservedUnit {
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}
	return &ObservedUnit{next: next, tracer: tracer, metrics: metrics}
}

// Name returns the wrapped unit's name.
func (o *ObservedUnit) Name() string { return o.next.Name() }

// Execute runs the wrapped unit inside a "pipeline.stage" span.
func (o *ObservedUnit) Execute(ctx context.Context, state domain.State) (domain.State, error) {
	ctx, span := o.tracer.Start(ctx, "pipeline.stage", trace.WithAttributes(
		attribute.String("pipeline.unit", o.next.Name()),
	))
	defer span.End()

	if runID, ok := domain.Get(state, domain.KeyRunID); ok {
		span.SetAttributes(attribute.String("pipeline.run_id", runID))
	}

	start := time.Now()
	out, err := o.next.Execute(ctx, state)
	elapsed := time.Since(start)

	status := "success"
	if err != nil {
		status = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetAttributes(stageAttributes(out)...)
		span.SetStatus(codes.Ok, "")
	}

	if o.metrics != nil {
		o.metrics.RecordLatency(OperationStage, elapsed, map[string]string{
			"unit":   o.next.Name(),
			"status": status,
		})
	}
	return out, err
}

// Validate delegates to the wrapped unit.
func (o *ObservedUnit) Validate() error { return o.next.Validate() }

// stageAttributes summarises what a stage produced.
func stageAttributes(state domain.State) []attribute.KeyValue {
	var attrs []attribute.KeyValue
	if drafts, ok := domain.Get(state, domain.KeyDrafts); ok {
		empty := 0
		for _, d := range drafts {
			if d.Text == "" {
				empty++
			}
		}
		attrs = append(attrs,
			attribute.Int("pipeline.drafts", len(drafts)),
			attribute.Int("pipeline.drafts.empty", empty),
		)
	}
	if costs, ok := domain.Get(state, domain.KeyCosts); ok {
		attrs = append(attrs,
			attribute.Int("pipeline.cost.calls", costs.Calls),
			attribute.Float64("pipeline.cost.estimated", costs.EstimatedCost),
		)
	}
	if res, ok := domain.Get(state, domain.KeyRunResult); ok && res != nil {
		attrs = append(attrs,
			attribute.Int("pipeline.chosen_agent", res.ChosenAgent),
			attribute.Int("pipeline.score", res.Score),
		)
	}
	return attrs
}
