package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"student-manager/common/metrics"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const defaultEndpoint = "otel-collector.infra.svc.cluster.local:4317"

type Options struct {
	ServiceName    string
	ServiceVersion string
	Env            string
	// Enabled turns on the OTLP exporter. When false instruments are no-ops.
	Enabled  bool
	Endpoint string
	Interval time.Duration
}

type Telemetry struct {
	MeterProvider *sdkmetric.MeterProvider
	Metrics       *metrics.Metrics
	logger        *slog.Logger
}

func InitMeterProvider(ctx context.Context, opts Options, logger *slog.Logger) (*sdkmetric.MeterProvider, error) {
	endpoint := opts.Endpoint
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	interval := opts.Interval
	if interval == 0 {
		interval = 10 * time.Second
	}

	logger.Info("initializing OTel metrics", "endpoint", endpoint, "interval", interval)

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(opts.ServiceName),
			semconv.ServiceVersion(opts.ServiceVersion),
			semconv.DeploymentEnvironment(opts.Env),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	exporter, err := otlpmetricgrpc.New(ctx,
		otlpmetricgrpc.WithEndpoint(endpoint),
		otlpmetricgrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create metric exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval))),
	)
	otel.SetMeterProvider(provider)

	return provider, nil
}

func Init(ctx context.Context, opts Options, logger *slog.Logger) (*Telemetry, error) {
	t := &Telemetry{logger: logger}

	if opts.Enabled {
		provider, err := InitMeterProvider(ctx, opts, logger)
		if err != nil {
			return nil, err
		}
		t.MeterProvider = provider
	} else {
		logger.Info("OTel exporter disabled, metrics stay in-process")
	}

	m, err := metrics.New(opts.ServiceName, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}
	t.Metrics = m

	meter := otel.Meter(opts.ServiceName)
	if err := m.Health.RegisterServiceInfo(meter, opts.ServiceName, opts.ServiceVersion, opts.Env); err != nil {
		logger.Warn("failed to register service info", "error", err)
	}

	return t, nil
}

func (t *Telemetry) Shutdown(ctx context.Context) error {
	if t == nil || t.MeterProvider == nil {
		return nil
	}
	t.logger.Info("shutting down OTel meter provider")
	if err := t.MeterProvider.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown meter provider: %w", err)
	}
	return nil
}
