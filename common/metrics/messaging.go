package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type MessagingMetrics struct {
	eventsPublished metric.Int64Counter
	publishErrors   metric.Int64Counter
	publishDuration metric.Float64Histogram
}

func NewMessagingMetrics(meter metric.Meter) (*MessagingMetrics, error) {
	mm := &MessagingMetrics{}

	var err error

	if mm.eventsPublished, err = meter.Int64Counter(
		"messaging.events.published",
		metric.WithDescription("Domain events handed to the broker"),
		metric.WithUnit("{event}"),
	); err != nil {
		return nil, err
	}

	if mm.publishErrors, err = meter.Int64Counter(
		"messaging.events.errors",
		metric.WithDescription("Domain events the broker rejected"),
		metric.WithUnit("{error}"),
	); err != nil {
		return nil, err
	}

	// 100µs .. 1s
	if mm.publishDuration, err = meter.Float64Histogram(
		"messaging.events.publish_duration",
		metric.WithDescription("Time spent publishing a domain event"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1),
	); err != nil {
		return nil, err
	}

	return mm, nil
}

func (mm *MessagingMetrics) RecordPublish(ctx context.Context, broker, eventType string, duration time.Duration, err error) {
	if mm == nil || mm.eventsPublished == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String("broker", broker),
		attribute.String("event_type", eventType),
	)

	mm.eventsPublished.Add(ctx, 1, attrs)
	mm.publishDuration.Record(ctx, duration.Seconds(), attrs)
	if err != nil {
		mm.publishErrors.Add(ctx, 1, attrs)
	}
}
