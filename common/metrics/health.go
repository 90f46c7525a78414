package metrics

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type HealthMetrics struct {
	dependencyUp           metric.Int64ObservableGauge
	dependencyResponseTime metric.Float64Histogram
	serviceInfo            metric.Int64ObservableGauge

	mu           sync.RWMutex
	dependencies map[string]bool
}

func NewHealthMetrics(meter metric.Meter) (*HealthMetrics, error) {
	hm := &HealthMetrics{dependencies: make(map[string]bool)}

	var err error

	// 1 = up, 0 = down
	if hm.dependencyUp, err = meter.Int64ObservableGauge(
		"dependency.up",
		metric.WithDescription("Dependency availability status (1=up, 0=down)"),
		metric.WithUnit("{status}"),
	); err != nil {
		return nil, err
	}

	if hm.dependencyResponseTime, err = meter.Float64Histogram(
		"dependency.response_time",
		metric.WithDescription("Dependency health check response time"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(queryBuckets...),
	); err != nil {
		return nil, err
	}

	if hm.serviceInfo, err = meter.Int64ObservableGauge(
		"service.info",
		metric.WithDescription("Service metadata information"),
		metric.WithUnit("{info}"),
	); err != nil {
		return nil, err
	}

	_, err = meter.RegisterCallback(
		func(ctx context.Context, observer metric.Observer) error {
			hm.mu.RLock()
			defer hm.mu.RUnlock()
			for name, up := range hm.dependencies {
				value := int64(0)
				if up {
					value = 1
				}
				observer.ObserveInt64(hm.dependencyUp, value, metric.WithAttributes(attribute.String("dependency", name)))
			}
			return nil
		},
		hm.dependencyUp,
	)
	if err != nil {
		return nil, err
	}

	return hm, nil
}

// RegisterServiceInfo exports a constant gauge labelled with build metadata.
func (hm *HealthMetrics) RegisterServiceInfo(meter metric.Meter, serviceName, version, env string) error {
	if hm == nil || hm.serviceInfo == nil {
		return nil
	}

	attrs := metric.WithAttributes(
		attribute.String("service_name", serviceName),
		attribute.String("version", version),
		attribute.String("environment", env),
	)
	_, err := meter.RegisterCallback(
		func(ctx context.Context, observer metric.Observer) error {
			observer.ObserveInt64(hm.serviceInfo, 1, attrs)
			return nil
		},
		hm.serviceInfo,
	)
	return err
}

func (hm *HealthMetrics) RecordDependencyCheck(ctx context.Context, dependency string, duration time.Duration, err error) {
	if hm == nil || hm.dependencyResponseTime == nil {
		return
	}

	hm.dependencyResponseTime.Record(ctx, duration.Seconds(),
		metric.WithAttributes(attribute.String("dependency", dependency)))

	hm.mu.Lock()
	hm.dependencies[dependency] = err == nil
	hm.mu.Unlock()
}
