// Package telemetry installs an OpenTelemetry tracer provider that exports state
// machine spans over OTLP/HTTP.
package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/amp-labs/lifecycle/logger"
	"github.com/caarlos0/env/v11"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
)

const (
	defaultServiceVersion = "1.0.0"
	defaultTimeout        = 5 * time.Second

	// kubernetesCollectorEndpoint is used when running inside a cluster and no
	// endpoint is configured.
	kubernetesCollectorEndpoint = "http://opentelemetry-collector.opentelemetry.svc.cluster.local:4318"
)

var tracerProvider *sdktrace.TracerProvider //nolint:gochecknoglobals

// Config holds the OpenTelemetry configuration.
type Config struct {
	ServiceName    string        `env:"OTEL_SERVICE_NAME"`
	ServiceVersion string        `env:"OTEL_SERVICE_VERSION"               envDefault:"1.0.0"`
	Environment    string        `env:"ENVIRONMENT"                        envDefault:"local"`
	Endpoint       string        `env:"OTEL_EXPORTER_OTLP_TRACES_ENDPOINT"`
	Enabled        bool          `env:"OTEL_ENABLED"                       envDefault:"false"`
	Timeout        time.Duration `env:"OTEL_EXPORTER_OTLP_TRACES_TIMEOUT"  envDefault:"5s"`
	SampleRatio    float64       `env:"OTEL_TRACES_SAMPLER_RATIO"          envDefault:"1"`

	KubernetesHost string `env:"KUBERNETES_SERVICE_HOST"`
}

// LoadConfigFromEnv loads OpenTelemetry configuration from environment variables.
// The service name defaults to the logging subsystem.
func LoadConfigFromEnv(ctx context.Context) (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("failed to read telemetry environment: %w", err)
	}

	if cfg.ServiceName == "" {
		cfg.ServiceName = logger.GetSubsystem(ctx)
	}

	if cfg.ServiceVersion == "" {
		cfg.ServiceVersion = defaultServiceVersion
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	// Default to the in-cluster collector when running in Kubernetes.
	if cfg.Endpoint == "" && cfg.KubernetesHost != "" {
		cfg.Endpoint = kubernetesCollectorEndpoint
	}

	return &cfg, nil
}

func (c *Config) sampler() sdktrace.Sampler { //nolint:ireturn
	switch {
	case c.SampleRatio >= 1:
		return sdktrace.AlwaysSample()
	case c.SampleRatio <= 0:
		return sdktrace.NeverSample()
	default:
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(c.SampleRatio))
	}
}

// Initialize sets up OpenTelemetry tracing with the given configuration. With
// tracing disabled or no endpoint it leaves the global no-op provider in place.
func Initialize(ctx context.Context, config *Config) error {
	if !config.Enabled {
		slog.Info("OpenTelemetry tracing is disabled")

		return nil
	}

	if config.Endpoint == "" {
		slog.Warn("OpenTelemetry endpoint not configured, tracing will be disabled")

		return nil
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(config.ServiceName),
			semconv.ServiceVersionKey.String(config.ServiceVersion),
			semconv.DeploymentEnvironmentKey.String(config.Environment),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpointURL(config.Endpoint),
		otlptracehttp.WithTimeout(config.Timeout),
	)
	if err != nil {
		return fmt.Errorf("failed to create OTLP trace exporter: %w", err)
	}

	tracerProvider = sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(config.sampler()),
	)

	otel.SetTracerProvider(tracerProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	slog.Info("OpenTelemetry tracing initialized",
		"service", config.ServiceName,
		"version", config.ServiceVersion,
		"environment", config.Environment,
		"endpoint", config.Endpoint,
	)

	return nil
}

// Shutdown flushes and stops the tracer provider installed by Initialize.
func Shutdown(ctx context.Context) error {
	if tracerProvider == nil {
		return nil
	}

	slog.Info("Shutting down OpenTelemetry tracer provider")

	err := tracerProvider.Shutdown(ctx)
	tracerProvider = nil

	return err
}
