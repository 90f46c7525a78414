package metrics

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics are the domain counters of the service.
type Metrics struct {
	usersCreated        metric.Int64Counter
	usersDeleted        metric.Int64Counter
	classesCreated      metric.Int64Counter
	classesDeleted      metric.Int64Counter
	membershipsLinked   metric.Int64Counter
	membershipsUnlinked metric.Int64Counter
	sessionsCreated     metric.Int64Counter
	sessionsDeleted     metric.Int64Counter
	pointsRecorded      metric.Int64Counter
	pointsDeleted       metric.Int64Counter
}

func New(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}

	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
		unit string
	}{
		{&m.usersCreated, "student_manager.users.created", "Users created", "{user}"},
		{&m.usersDeleted, "student_manager.users.deleted", "Users deleted", "{user}"},
		{&m.classesCreated, "student_manager.classes.created", "Classes created", "{class}"},
		{&m.classesDeleted, "student_manager.classes.deleted", "Classes deleted", "{class}"},
		{&m.membershipsLinked, "student_manager.memberships.linked", "Users linked to classes", "{membership}"},
		{&m.membershipsUnlinked, "student_manager.memberships.unlinked", "Users unlinked from classes", "{membership}"},
		{&m.sessionsCreated, "student_manager.sessions.created", "Sessions created", "{session}"},
		{&m.sessionsDeleted, "student_manager.sessions.deleted", "Sessions deleted", "{session}"},
		{&m.pointsRecorded, "student_manager.points.recorded", "Points created", "{point}"},
		{&m.pointsDeleted, "student_manager.points.deleted", "Points deleted", "{point}"},
	}

	for _, c := range counters {
		counter, err := meter.Int64Counter(c.name, metric.WithDescription(c.desc), metric.WithUnit(c.unit))
		if err != nil {
			return nil, err
		}
		*c.dst = counter
	}

	return m, nil
}

func add(ctx context.Context, c metric.Int64Counter, opts ...metric.AddOption) {
	if c != nil {
		c.Add(ctx, 1, opts...)
	}
}

func (m *Metrics) RecordUserCreated(ctx context.Context, role string) {
	if m != nil {
		add(ctx, m.usersCreated, metric.WithAttributes(attribute.String("role", role)))
	}
}

func (m *Metrics) RecordUserDeleted(ctx context.Context) {
	if m != nil {
		add(ctx, m.usersDeleted)
	}
}

func (m *Metrics) RecordClassCreated(ctx context.Context) {
	if m != nil {
		add(ctx, m.classesCreated)
	}
}

func (m *Metrics) RecordClassDeleted(ctx context.Context) {
	if m != nil {
		add(ctx, m.classesDeleted)
	}
}

func (m *Metrics) RecordMembershipLinked(ctx context.Context, role string) {
	if m != nil {
		add(ctx, m.membershipsLinked, metric.WithAttributes(attribute.String("role", role)))
	}
}

func (m *Metrics) RecordMembershipUnlinked(ctx context.Context, role string) {
	if m != nil {
		add(ctx, m.membershipsUnlinked, metric.WithAttributes(attribute.String("role", role)))
	}
}

func (m *Metrics) RecordSessionCreated(ctx context.Context) {
	if m != nil {
		add(ctx, m.sessionsCreated)
	}
}

func (m *Metrics) RecordSessionDeleted(ctx context.Context) {
	if m != nil {
		add(ctx, m.sessionsDeleted)
	}
}

func (m *Metrics) RecordPointRecorded(ctx context.Context) {
	if m != nil {
		add(ctx, m.pointsRecorded)
	}
}

func (m *Metrics) RecordPointDeleted(ctx context.Context) {
	if m != nil {
		add(ctx, m.pointsDeleted)
	}
}

// NewMock creates a no-op Metrics instance for testing
func NewMock() *Metrics {
	return &Metrics{}
}
