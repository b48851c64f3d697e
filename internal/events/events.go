// Package events publishes activity lifecycle events for downstream consumers.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	ActivityCreated    Type = "activity.created"
	ActivityJoined     Type = "activity.joined"
	ActivityWaitlisted Type = "activity.waitlisted"
	ActivityLeft       Type = "activity.left"
	ActivityPromoted   Type = "activity.promoted"
	ActivityDeleted    Type = "activity.deleted"
)

// Event describes a change to an activity's roster.
type Event struct {
	Type            Type      `json:"type"`
	ActivityID      uuid.UUID `json:"activity_id"`
	UserID          uuid.UUID `json:"user_id"`
	Participants    int       `json:"participants"`
	MaxParticipants int       `json:"max_participants"`
	OccurredAt      time.Time `json:"occurred_at"`
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// NopPublisher drops every event. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
func (NopPublisher) Close() error { return nil }
