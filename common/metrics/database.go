package metrics

import (
	"context"
	"database/sql"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// queryBuckets: 1ms .. 10s
var queryBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

type DatabaseMetrics struct {
	connectionsOpen  metric.Int64ObservableGauge
	connectionsIdle  metric.Int64ObservableGauge
	connectionsInUse metric.Int64ObservableGauge
	waitCount        metric.Int64ObservableCounter
	queryDuration    metric.Float64Histogram
	queryErrors      metric.Int64Counter
	txDuration       metric.Float64Histogram
	txRollbacks      metric.Int64Counter
}

func NewDatabaseMetrics(meter metric.Meter) (*DatabaseMetrics, error) {
	dm := &DatabaseMetrics{}

	var err error

	if dm.connectionsOpen, err = meter.Int64ObservableGauge(
		"db.connections.open",
		metric.WithDescription("Current number of open database connections"),
		metric.WithUnit("{connection}"),
	); err != nil {
		return nil, err
	}

	if dm.connectionsIdle, err = meter.Int64ObservableGauge(
		"db.connections.idle",
		metric.WithDescription("Current number of idle database connections"),
		metric.WithUnit("{connection}"),
	); err != nil {
		return nil, err
	}

	if dm.connectionsInUse, err = meter.Int64ObservableGauge(
		"db.connections.in_use",
		metric.WithDescription("Current number of in-use database connections"),
		metric.WithUnit("{connection}"),
	); err != nil {
		return nil, err
	}

	if dm.waitCount, err = meter.Int64ObservableCounter(
		"db.connections.wait_count",
		metric.WithDescription("Total number of connections waited for"),
		metric.WithUnit("{wait}"),
	); err != nil {
		return nil, err
	}

	if dm.queryDuration, err = meter.Float64Histogram(
		"db.query.duration",
		metric.WithDescription("Database query duration"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(queryBuckets...),
	); err != nil {
		return nil, err
	}

	if dm.queryErrors, err = meter.Int64Counter(
		"db.query.errors",
		metric.WithDescription("Database query errors"),
		metric.WithUnit("{error}"),
	); err != nil {
		return nil, err
	}

	if dm.txDuration, err = meter.Float64Histogram(
		"db.tx.duration",
		metric.WithDescription("Duration of multi-record transactions"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(queryBuckets...),
	); err != nil {
		return nil, err
	}

	if dm.txRollbacks, err = meter.Int64Counter(
		"db.tx.rollbacks",
		metric.WithDescription("Transactions rolled back"),
		metric.WithUnit("{tx}"),
	); err != nil {
		return nil, err
	}

	return dm, nil
}

// RegisterDB observes pool statistics of db on every collection.
func (dm *DatabaseMetrics) RegisterDB(db *sql.DB, meter metric.Meter) error {
	if dm == nil || dm.connectionsOpen == nil {
		return nil
	}

	_, err := meter.RegisterCallback(
		func(ctx context.Context, observer metric.Observer) error {
			stats := db.Stats()
			observer.ObserveInt64(dm.connectionsOpen, int64(stats.OpenConnections))
			observer.ObserveInt64(dm.connectionsIdle, int64(stats.Idle))
			observer.ObserveInt64(dm.connectionsInUse, int64(stats.InUse))
			observer.ObserveInt64(dm.waitCount, stats.WaitCount)
			return nil
		},
		dm.connectionsOpen,
		dm.connectionsIdle,
		dm.connectionsInUse,
		dm.waitCount,
	)
	return err
}

func (dm *DatabaseMetrics) RecordQuery(ctx context.Context, operation string, table string, duration time.Duration, err error) {
	if dm == nil || dm.queryDuration == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("operation", operation),
		attribute.String("table", table),
	}
	dm.queryDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))

	if err != nil {
		dm.queryErrors.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

// RecordTx records one transaction named after the operation it wraps.
func (dm *DatabaseMetrics) RecordTx(ctx context.Context, operation string, duration time.Duration, err error) {
	if dm == nil || dm.txDuration == nil {
		return
	}

	attrs := metric.WithAttributes(attribute.String("operation", operation))
	dm.txDuration.Record(ctx, duration.Seconds(), attrs)
	if err != nil {
		dm.txRollbacks.Add(ctx, 1, attrs)
	}
}
