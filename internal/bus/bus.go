// Package bus provides event bus implementations for snapshot notifications.
package bus

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/awardintel/award-engine/internal/pkg/errors"
)

// Handler is a function that handles events.
type Handler func(ctx context.Context, event Event) error

// Bus defines the interface for event bus implementations.
type Bus interface {
	// Publish publishes an event to a topic.
	Publish(ctx context.Context, topic string, event Event) error

	// Subscribe subscribes to events on a topic.
	Subscribe(ctx context.Context, topic string, handler Handler) error

	// Close closes the bus and releases resources.
	Close() error
}

// Event represents a bus event.
type Event struct {
	// ID is the unique event identifier.
	ID string `json:"id"`

	// Type is the event type (e.g., "snapshot.ingested").
	Type string `json:"type"`

	// Source is the component that generated the event.
	Source string `json:"source"`

	// Timestamp is when the event was created, in Unix milliseconds.
	Timestamp int64 `json:"timestamp"`

	// Payload contains the JSON encoded event data.
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Topics for different event types.
const (
	TopicSnapshotIngested = "awards.snapshot.ingested"
	TopicAlertSent        = "awards.alert.sent"
)

// NewEvent builds an event with a fresh id and the payload encoded as JSON.
func NewEvent(eventType, source string, payload any) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, errors.InternalError("encoding event payload", err)
	}
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Source:    source,
		Timestamp: time.Now().UnixMilli(),
		Payload:   data,
	}, nil
}

// Decode unmarshals the payload into v.
func (e Event) Decode(v any) error {
	if len(e.Payload) == 0 {
		return errors.ValidationError("event has no payload")
	}
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return errors.Wrap(errors.CodeValidation, "decoding event payload", err)
	}
	return nil
}
