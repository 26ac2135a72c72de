package observability

import (
	"context"
	stderrors "errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"

	"github.com/kbukum/automl/errors"
	"github.com/kbukum/automl/logger"
)

// instrumentationName scopes the tracer and meter of this module.
const instrumentationName = "github.com/kbukum/automl"

// ExportConfig configures OTLP/HTTP export of spans and metrics.
type ExportConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	// Endpoint is the collector host:port.
	Endpoint string
	Insecure bool
	// SampleRatio is the fraction of searches traced, 0 to 1.
	SampleRatio float64
	// MetricInterval is how often metrics are pushed. Zero keeps the SDK default.
	MetricInterval time.Duration
}

// DefaultExportConfig targets a local collector and samples everything.
func DefaultExportConfig(serviceName string) ExportConfig {
	return ExportConfig{
		ServiceName:    serviceName,
		Environment:    "development",
		Endpoint:       "localhost:4318",
		Insecure:       true,
		SampleRatio:    1.0,
		MetricInterval: 15 * time.Second,
	}
}

// Providers are the installed global tracer and meter providers.
type Providers struct {
	Tracer *sdktrace.TracerProvider
	Meter  *sdkmetric.MeterProvider
}

// Shutdown flushes and stops both providers.
func (p *Providers) Shutdown(ctx context.Context) error {
	return stderrors.Join(p.Tracer.Shutdown(ctx), p.Meter.Shutdown(ctx))
}

// Init creates both exporters and installs the providers globally. The
// exporters connect lazily, so an unreachable collector does not fail Init.
func Init(ctx context.Context, cfg ExportConfig) (*Providers, error) {
	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
		attribute.String("environment", cfg.Environment),
	)

	traceOpts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.Endpoint)}
	metricOpts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		traceOpts = append(traceOpts, otlptracehttp.WithInsecure())
		metricOpts = append(metricOpts, otlpmetrichttp.WithInsecure())
	}

	spanExporter, err := otlptracehttp.New(ctx, traceOpts...)
	if err != nil {
		return nil, errors.Configuration("creating trace exporter").WithCause(err)
	}
	metricExporter, err := otlpmetrichttp.New(ctx, metricOpts...)
	if err != nil {
		_ = spanExporter.Shutdown(ctx)
		return nil, errors.Configuration("creating metric exporter").WithCause(err)
	}

	var readerOpts []sdkmetric.PeriodicReaderOption
	if cfg.MetricInterval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(cfg.MetricInterval))
	}
	p := &Providers{
		Tracer: sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(spanExporter),
			sdktrace.WithResource(res),
			sdktrace.WithSampler(sdktrace.ParentBased(sampler(cfg.SampleRatio))),
		),
		Meter: sdkmetric.NewMeterProvider(
			sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter, readerOpts...)),
			sdkmetric.WithResource(res),
		),
	}
	otel.SetTracerProvider(p.Tracer)
	otel.SetMeterProvider(p.Meter)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger.Info("Telemetry export initialized", logger.Fields(
		"service", cfg.ServiceName,
		"endpoint", cfg.Endpoint,
		"sample_ratio", cfg.SampleRatio,
	))
	return p, nil
}

func sampler(ratio float64) sdktrace.Sampler {
	switch {
	case ratio >= 1:
		return sdktrace.AlwaysSample()
	case ratio <= 0:
		return sdktrace.NeverSample()
	default:
		return sdktrace.TraceIDRatioBased(ratio)
	}
}
