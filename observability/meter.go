package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/kbukum/automl/logger"
)

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// SearchMetrics holds the instruments recorded by the orchestrator and engines.
type SearchMetrics struct {
	evaluations   metric.Int64Counter
	taskDuration  metric.Float64Histogram
	batchDuration metric.Float64Histogram
	failedFolds   metric.Int64Counter
	inFlight      metric.Int64UpDownCounter
	bestScore     metric.Float64Gauge
	errors        metric.Int64Counter
}

// NewSearchMetrics creates metric instruments on the given meter.
func NewSearchMetrics(meter metric.Meter) (*SearchMetrics, error) {
	evaluations, err := meter.Int64Counter("automl.pipelines.evaluated",
		metric.WithDescription("Evaluated pipeline configurations by family and status"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating automl.pipelines.evaluated counter: %w", err)
	}

	taskDuration, err := meter.Float64Histogram("automl.task.duration",
		metric.WithDescription("Duration of evaluation tasks in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating automl.task.duration histogram: %w", err)
	}

	batchDuration, err := meter.Float64Histogram("automl.batch.duration",
		metric.WithDescription("Duration of search batches in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating automl.batch.duration histogram: %w", err)
	}

	failedFolds, err := meter.Int64Counter("automl.folds.failed",
		metric.WithDescription("Cross-validation folds that raised"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating automl.folds.failed counter: %w", err)
	}

	inFlight, err := meter.Int64UpDownCounter("automl.tasks.in_flight",
		metric.WithDescription("Tasks submitted to an engine and not yet resolved"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating automl.tasks.in_flight counter: %w", err)
	}

	bestScore, err := meter.Float64Gauge("automl.search.best_score",
		metric.WithDescription("Best primary objective score so far"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating automl.search.best_score gauge: %w", err)
	}

	errorTotal, err := meter.Int64Counter("automl.errors",
		metric.WithDescription("Errors by kind and component"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating automl.errors counter: %w", err)
	}

	return &SearchMetrics{
		evaluations:   evaluations,
		taskDuration:  taskDuration,
		batchDuration: batchDuration,
		failedFolds:   failedFolds,
		inFlight:      inFlight,
		bestScore:     bestScore,
		errors:        errorTotal,
	}, nil
}

// NewDefaultSearchMetrics creates instruments on the global meter provider.
// It falls back to no-op instruments if creation fails.
func NewDefaultSearchMetrics() *SearchMetrics {
	m, err := NewSearchMetrics(Meter(instrumentationName))
	if err != nil {
		logger.Warn("search metrics unavailable", logger.ErrorFields("new_search_metrics", err))
		return nil
	}
	return m
}

// RecordEvaluation records one resolved evaluation task.
func (m *SearchMetrics) RecordEvaluation(ctx context.Context, family, status string, duration time.Duration, failedFolds int) {
	if m == nil {
		return
	}
	m.evaluations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("family", family),
		attribute.String("status", status),
	))
	m.taskDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("family", family),
	))
	if failedFolds > 0 {
		m.failedFolds.Add(ctx, int64(failedFolds), metric.WithAttributes(
			attribute.String("family", family),
		))
	}
}

// RecordBatch records a completed batch.
func (m *SearchMetrics) RecordBatch(ctx context.Context, batch, size int, duration time.Duration) {
	if m == nil {
		return
	}
	m.batchDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.Int("batch", batch),
		attribute.Int("size", size),
	))
}

// TaskStarted and TaskFinished track engine occupancy.
func (m *SearchMetrics) TaskStarted(ctx context.Context, engine string) {
	if m == nil {
		return
	}
	m.inFlight.Add(ctx, 1, metric.WithAttributes(attribute.String("engine", engine)))
}

func (m *SearchMetrics) TaskFinished(ctx context.Context, engine string) {
	if m == nil {
		return
	}
	m.inFlight.Add(ctx, -1, metric.WithAttributes(attribute.String("engine", engine)))
}

// RecordBestScore records the running best score of the primary objective.
func (m *SearchMetrics) RecordBestScore(ctx context.Context, objective string, score float64) {
	if m == nil {
		return
	}
	m.bestScore.Record(ctx, score, metric.WithAttributes(attribute.String("objective", objective)))
}

// RecordError records an error by kind and component.
func (m *SearchMetrics) RecordError(ctx context.Context, kind, component string) {
	if m == nil {
		return
	}
	m.errors.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("component", component),
	))
}
