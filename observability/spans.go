package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Span names.
const (
	SpanSearch   = "automl.search"
	SpanBatch    = "automl.batch"
	SpanEvaluate = "automl.evaluate"
	SpanFold     = "automl.fold"
)

// Attribute keys.
const (
	AttrSearchID    = "automl.search_id"
	AttrBatch       = "automl.batch"
	AttrPipeline    = "automl.pipeline"
	AttrFamily      = "automl.family"
	AttrFingerprint = "automl.fingerprint"
	AttrFold        = "automl.fold"
	AttrStatus      = "automl.status"
	AttrEngine      = "automl.engine"
)

// StartSpan starts a span on the module tracer of the global provider.
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return otel.Tracer(instrumentationName).Start(ctx, name, opts...)
}

// SpanFromContext returns the span from context.
func SpanFromContext(ctx context.Context) trace.Span {
	return trace.SpanFromContext(ctx)
}

// SetSpanAttribute sets an attribute on the recording span in ctx. Values of
// unsupported types are dropped.
func SetSpanAttribute(ctx context.Context, key string, value any) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	if kv, ok := keyValue(key, value); ok {
		span.SetAttributes(kv)
	}
}

func keyValue(key string, value any) (attribute.KeyValue, bool) {
	switch v := value.(type) {
	case string:
		return attribute.String(key, v), true
	case int:
		return attribute.Int(key, v), true
	case int64:
		return attribute.Int64(key, v), true
	case float64:
		return attribute.Float64(key, v), true
	case bool:
		return attribute.Bool(key, v), true
	case []string:
		return attribute.StringSlice(key, v), true
	case interface{ String() string }:
		return attribute.String(key, v.String()), true
	}
	return attribute.KeyValue{}, false
}

// SetSpanError records err on the recording span in ctx and marks it failed.
func SetSpanError(ctx context.Context, err error) {
	span := trace.SpanFromContext(ctx)
	if err == nil || !span.IsRecording() {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
