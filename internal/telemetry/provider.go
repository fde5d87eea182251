package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

type Config struct {
	ServiceName    string  `json:",default=cohortchat"`
	ServiceVersion string  `json:",default=dev"`
	Environment    string  `json:",default=development"`
	CollectorURL   string  `json:",default=localhost:4318"`
	EnableTracing  bool    `json:",optional"`
	EnableMetrics  bool    `json:",optional"`
	SamplingRatio  float64 `json:",default=1.0"`
}

// Provider owns the SDK providers; when both signals are disabled the
// global no-op providers stay in place and Metrics record nothing.
type Provider struct {
	TracerProvider *trace.TracerProvider
	MeterProvider  *metric.MeterProvider
	Metrics        *ChatMetrics
}

func NewProvider(ctx context.Context, c Config) (*Provider, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(c.ServiceName),
			semconv.ServiceVersionKey.String(c.ServiceVersion),
			semconv.DeploymentEnvironmentKey.String(c.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	p := &Provider{}
	if c.EnableTracing {
		exp, err := otlptracehttp.New(ctx,
			otlptracehttp.WithEndpoint(c.CollectorURL),
			otlptracehttp.WithURLPath("/v1/traces"),
			otlptracehttp.WithInsecure(),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to init tracing: %w", err)
		}
		p.TracerProvider = trace.NewTracerProvider(
			trace.WithResource(res),
			trace.WithBatcher(exp, trace.WithBatchTimeout(5*time.Second)),
			trace.WithSampler(trace.ParentBased(trace.TraceIDRatioBased(c.SamplingRatio))),
		)
		otel.SetTracerProvider(p.TracerProvider)
	}
	if c.EnableMetrics {
		exp, err := otlpmetrichttp.New(ctx,
			otlpmetrichttp.WithEndpoint(c.CollectorURL),
			otlpmetrichttp.WithURLPath("/v1/metrics"),
			otlpmetrichttp.WithInsecure(),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to init metrics: %w", err)
		}
		p.MeterProvider = metric.NewMeterProvider(
			metric.WithResource(res),
			metric.WithReader(metric.NewPeriodicReader(exp, metric.WithInterval(30*time.Second))),
		)
		otel.SetMeterProvider(p.MeterProvider)
	}
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	p.Metrics, err = NewChatMetrics(otel.Meter("cohortchat.chat"))
	if err != nil {
		return nil, fmt.Errorf("failed to create chat metrics: %w", err)
	}
	return p, nil
}

func (p *Provider) Shutdown(ctx context.Context) error {
	var errs []error
	if p.TracerProvider != nil {
		if err := p.TracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown TracerProvider: %w", err))
		}
	}
	if p.MeterProvider != nil {
		if err := p.MeterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown MeterProvider: %w", err))
		}
	}
	return errors.Join(errs...)
}
