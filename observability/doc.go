// Package observability provides OpenTelemetry tracing and metrics for
// searches and evaluation engines.
//
//	providers, err := observability.Init(ctx, observability.DefaultExportConfig("automl"))
//	defer providers.Shutdown(ctx)
//
//	ctx, span := observability.StartSpan(ctx, observability.SpanBatch)
//	defer span.End()
//
//	metrics := observability.NewDefaultSearchMetrics()
//	metrics.RecordEvaluation(ctx, "linear_model", "succeeded", duration, 0)
//
// Without Init the global no-op providers are used, so instrumented code
// runs unchanged in tests and libraries.
package observability
