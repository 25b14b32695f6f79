package tracing

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-connect-api/pkg/config"
)

// Shutdown flushes and stops the tracer provider.
type Shutdown func(context.Context) error

// Init installs a global tracer provider. Disabled tracing returns a no-op shutdown.
func Init(ctx context.Context, cfg *config.Config, logger *zap.Logger) (Shutdown, error) {
	noop := func(context.Context) error { return nil }
	if !cfg.Tracing.Enabled {
		return noop, nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	serviceName := strings.TrimSpace(cfg.Tracing.ServiceName)
	if serviceName == "" {
		serviceName = "campus-connect-api"
	}
	res, err := resource.New(ctx, resource.WithAttributes(
		attribute.String("service.name", serviceName),
		attribute.String("deployment.environment", cfg.Env),
	))
	if err != nil {
		logger.Warn("otel resource init failed", zap.Error(err))
		res = resource.Default()
	}

	exporter, err := buildExporter(ctx, cfg.Tracing)
	if err != nil {
		return noop, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(5*time.Second)),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.Tracing.SampleRatio))),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	logger.Info("otel tracing initialized", zap.String("service", serviceName), zap.String("endpoint", cfg.Tracing.Endpoint))
	return tp.Shutdown, nil
}

func buildExporter(ctx context.Context, cfg config.TracingConfig) (sdktrace.SpanExporter, error) {
	if cfg.Endpoint == "" {
		return stdouttrace.New(stdouttrace.WithPrettyPrint())
	}
	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	return otlptracehttp.New(ctx, opts...)
}
