// Package telemetry sets up OpenTelemetry tracing for the search pipeline
// and the TMDB transport.
package telemetry

import (
	"context"
	"os"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const (
	exportTimeout = 3 * time.Second
	initTimeout   = 5 * time.Second
)

// Init installs a global tracer provider exporting over OTLP/HTTP.
// Without OTEL_EXPORTER_OTLP_ENDPOINT tracing stays off and shutdown is a noop.
// OTEL_TRACES_SAMPLER_ARG sets the parent-based sampling ratio (default 1).
func Init(ctx context.Context, serviceName string) (shutdown func(context.Context) error, err error) {
	noop := func(context.Context) error { return nil }

	endpoint := strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"))
	if endpoint == "" {
		return noop, nil
	}

	initCtx, cancel := context.WithTimeout(ctx, initTimeout)
	defer cancel()
	exporter, err := otlptracehttp.New(initCtx, exporterOptions(endpoint)...)
	if err != nil {
		// Searches run untraced rather than blocking startup.
		return noop, nil
	}

	attrs := resource.WithAttributes(semconv.ServiceName(serviceName))
	res, err := resource.New(ctx, attrs, resource.WithFromEnv(), resource.WithHost())
	if err != nil {
		return noop, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(samplingRatio(os.Getenv("OTEL_TRACES_SAMPLER_ARG"))))),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return tp.Shutdown, nil
}

// exporterOptions accepts a bare host:port or a URL. Only https:// endpoints
// use TLS.
func exporterOptions(endpoint string) []otlptracehttp.Option {
	host := strings.TrimPrefix(strings.TrimPrefix(endpoint, "http://"), "https://")
	host = strings.TrimSuffix(host, "/")
	options := []otlptracehttp.Option{
		otlptracehttp.WithEndpoint(host),
		otlptracehttp.WithTimeout(exportTimeout),
		otlptracehttp.WithRetry(otlptracehttp.RetryConfig{Enabled: false}),
	}
	if !strings.HasPrefix(endpoint, "https://") {
		options = append(options, otlptracehttp.WithInsecure())
	}
	return options
}

func samplingRatio(raw string) float64 {
	ratio, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || ratio < 0 || ratio > 1 {
		return 1
	}
	return ratio
}
