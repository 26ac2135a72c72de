package observability

import (
	"context"
	"fmt"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("collect failed: %v", err)
	}
	out := make(map[string]metricdata.Metrics)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func sumOf(t *testing.T, m metricdata.Metrics) int64 {
	t.Helper()
	sum, ok := m.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("metric %s is not an int64 sum", m.Name)
	}
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

// --- config tests ---

func TestDefaultExportConfig(t *testing.T) {
	cfg := DefaultExportConfig("automl")
	if cfg.ServiceName != "automl" || cfg.SampleRatio != 1.0 || !cfg.Insecure {
		t.Errorf("unexpected export config %+v", cfg)
	}
	if cfg.MetricInterval != 15*time.Second || cfg.Endpoint != "localhost:4318" {
		t.Errorf("unexpected export config %+v", cfg)
	}
}

func TestSampler(t *testing.T) {
	tests := map[float64]string{1: "AlwaysOnSampler", 0: "AlwaysOffSampler", 0.25: "TraceIDRatioBased{0.25}"}
	for ratio, want := range tests {
		if got := sampler(ratio).Description(); got != want {
			t.Errorf("sampler(%v) = %s, want %s", ratio, got, want)
		}
	}
}

// --- metrics tests ---

func TestSearchMetrics_RecordEvaluation(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer mp.Shutdown(context.Background())

	m, err := NewSearchMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("NewSearchMetrics failed: %v", err)
	}

	ctx := context.Background()
	m.RecordEvaluation(ctx, "linear_model", "succeeded", 120*time.Millisecond, 0)
	m.RecordEvaluation(ctx, "decision_tree", "succeeded", 80*time.Millisecond, 2)
	m.RecordEvaluation(ctx, "k_neighbors", "errored", 10*time.Millisecond, 3)
	m.RecordBatch(ctx, 1, 3, time.Second)
	m.RecordBestScore(ctx, "R2", 0.81)
	m.RecordError(ctx, "data", "Imputer")
	m.TaskStarted(ctx, "threads")
	m.TaskStarted(ctx, "threads")
	m.TaskFinished(ctx, "threads")

	metrics := collect(t, reader)
	if got := sumOf(t, metrics["automl.pipelines.evaluated"]); got != 3 {
		t.Errorf("expected 3 evaluations, got %d", got)
	}
	if got := sumOf(t, metrics["automl.folds.failed"]); got != 5 {
		t.Errorf("expected 5 failed folds, got %d", got)
	}
	if got := sumOf(t, metrics["automl.tasks.in_flight"]); got != 1 {
		t.Errorf("expected 1 task in flight, got %d", got)
	}
	if got := sumOf(t, metrics["automl.errors"]); got != 1 {
		t.Errorf("expected 1 error, got %d", got)
	}
	if _, ok := metrics["automl.batch.duration"]; !ok {
		t.Error("expected batch duration histogram")
	}
	gauge, ok := metrics["automl.search.best_score"].Data.(metricdata.Gauge[float64])
	if !ok || len(gauge.DataPoints) != 1 || gauge.DataPoints[0].Value != 0.81 {
		t.Errorf("unexpected best score gauge %+v", metrics["automl.search.best_score"].Data)
	}
}

func TestSearchMetrics_NilSafe(t *testing.T) {
	var m *SearchMetrics
	ctx := context.Background()
	m.RecordEvaluation(ctx, "x", "succeeded", time.Second, 1)
	m.RecordBatch(ctx, 0, 1, time.Second)
	m.RecordBestScore(ctx, "R2", 1)
	m.RecordError(ctx, "data", "x")
	m.TaskStarted(ctx, "x")
	m.TaskFinished(ctx, "x")
}

func TestNewDefaultSearchMetrics(t *testing.T) {
	if NewDefaultSearchMetrics() == nil {
		t.Error("expected instruments on the global no-op provider")
	}
}

// --- tracing tests ---

func TestStartSpan_RecordsAttributesAndErrors(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	defer tp.Shutdown(context.Background())

	ctx, span := tp.Tracer("test").Start(context.Background(), SpanBatch)
	SetSpanAttribute(ctx, AttrBatch, 2)
	SetSpanAttribute(ctx, AttrFamily, "linear_model")
	SetSpanAttribute(ctx, AttrStatus, true)
	SetSpanError(ctx, fmt.Errorf("boom"))
	span.End()

	ended := recorder.Ended()
	if len(ended) != 1 {
		t.Fatalf("expected 1 span, got %d", len(ended))
	}
	if ended[0].Name() != SpanBatch {
		t.Errorf("unexpected span name %q", ended[0].Name())
	}
	if len(ended[0].Attributes()) != 3 {
		t.Errorf("expected 3 attributes, got %v", ended[0].Attributes())
	}
	if len(ended[0].Events()) != 1 {
		t.Errorf("expected the error event, got %v", ended[0].Events())
	}
}

func TestSpanHelpers_NoSpan(t *testing.T) {
	ctx := context.Background()
	SetSpanAttribute(ctx, "key", "value")
	SetSpanError(ctx, fmt.Errorf("ignored"))
	ctx, span := StartSpan(ctx, SpanEvaluate)
	defer span.End()
	if SpanFromContext(ctx) == nil {
		t.Error("expected a span in context")
	}
}

func TestInit(t *testing.T) {
	cfg := DefaultExportConfig("automl-test")
	cfg.MetricInterval = 0
	p, err := Init(context.Background(), cfg)
	if err != nil {
		t.Skipf("Init failed: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = p.Shutdown(ctx)
}
