// Package events describes the domain events emitted after committed writes.
package events

import (
	"context"
	"log/slog"
	"time"
)

type Type string

const (
	UserCreated        Type = "user.created"
	UserDeleted        Type = "user.deleted"
	ClassCreated       Type = "class.created"
	ClassDeleted       Type = "class.deleted"
	MembershipLinked   Type = "membership.linked"
	MembershipUnlinked Type = "membership.unlinked"
	SessionCreated     Type = "session.created"
	SessionDeleted     Type = "session.deleted"
	PointCreated       Type = "point.created"
	PointDeleted       Type = "point.deleted"
)

type Event struct {
	Type       Type      `json:"type"`
	EntityID   string    `json:"entityId"`
	RelatedID  string    `json:"relatedId,omitempty"`
	Role       string    `json:"role,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

func New(t Type, entityID, relatedID string) Event {
	return Event{Type: t, EntityID: entityID, RelatedID: relatedID, OccurredAt: time.Now().UTC()}
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

type nopPublisher struct{}

// Nop drops every event.
func Nop() Publisher { return nopPublisher{} }

func (nopPublisher) Publish(context.Context, Event) error { return nil }
func (nopPublisher) Close() error                         { return nil }

// Emit publishes event and only logs a failure; the write it describes is
// already committed.
func Emit(ctx context.Context, p Publisher, logger *slog.Logger, event Event) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, event); err != nil {
		logger.WarnContext(ctx, "failed to publish event", "type", event.Type, "entity_id", event.EntityID, "error", err)
	}
}
