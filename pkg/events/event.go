package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
)

const (
	TypeSessionCreated = "session.created"
	TypeSessionUpdated = "session.updated"
)

// Event defines the contract for all system events.
type Event interface {
	// EventID is unique and sorts by creation time.
	EventID() string

	// EventType returns the unique code for this event (e.g., "session.created").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

type BaseEvent struct {
	ID         string
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventID() string {
	return e.ID
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// Scope returns the user scope the event belongs to, "" when unscoped.
func (e BaseEvent) Scope() string {
	s, _ := e.Data["scope"].(string)
	return s
}

func NewID(at time.Time) string {
	return ulid.MustNew(ulid.Timestamp(at), ulid.DefaultEntropy()).String()
}

func NewSessionCreated(scope, sessionId, preview, title string, at time.Time) BaseEvent {
	return BaseEvent{
		ID:   NewID(at),
		Type: TypeSessionCreated,
		Data: map[string]interface{}{
			"scope":      scope,
			"session_id": sessionId,
			"preview":    preview,
			"title":      title,
		},
		OccurredAt: at,
	}
}

func NewSessionUpdated(scope, sessionId, preview string, at time.Time) BaseEvent {
	return BaseEvent{
		ID:   NewID(at),
		Type: TypeSessionUpdated,
		Data: map[string]interface{}{
			"scope":      scope,
			"session_id": sessionId,
			"preview":    preview,
		},
		OccurredAt: at,
	}
}

// envelope is the wire form shared by the bus, NATS and websocket clients.
type envelope struct {
	ID         string                 `json:"id"`
	Type       string                 `json:"type"`
	OccurredAt time.Time              `json:"occurred_at"`
	Data       map[string]interface{} `json:"data"`
}

func Encode(e Event) ([]byte, error) {
	return json.Marshal(envelope{
		ID:         e.EventID(),
		Type:       e.EventType(),
		OccurredAt: e.Timestamp(),
		Data:       e.Payload(),
	})
}

func Decode(data []byte) (BaseEvent, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return BaseEvent{}, fmt.Errorf("failed to decode event: %w", err)
	}
	if env.Type == "" {
		return BaseEvent{}, fmt.Errorf("failed to decode event: missing type")
	}
	if env.Data == nil {
		env.Data = map[string]interface{}{}
	}
	return BaseEvent{
		ID:         env.ID,
		Type:       env.Type,
		Data:       env.Data,
		OccurredAt: env.OccurredAt,
	}, nil
}

type scopeKey struct{}

// WithScope tags ctx with the user scope whose session list is changing.
func WithScope(ctx context.Context, scope string) context.Context {
	return context.WithValue(ctx, scopeKey{}, scope)
}

func ScopeFromContext(ctx context.Context) string {
	s, _ := ctx.Value(scopeKey{}).(string)
	return s
}
