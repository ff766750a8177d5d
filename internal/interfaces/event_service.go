package interfaces

import (
	"context"
	"encoding/json"
)

// EventType names a message on the engine's push channel.
type EventType string

const (
	// Inbound from the engine.
	EventTasks            EventType = "tasks"
	EventActiveTasks      EventType = "active_tasks"
	EventActiveTasksEvent EventType = "active_tasks_event"
	EventJobDetails       EventType = "job_details"
	EventLogs             EventType = "logs"

	// Link lifecycle, published locally by the event source.
	EventConnect    EventType = "connect"
	EventDisconnect EventType = "disconnect"

	// Outbound requests to the engine.
	EventConnected     EventType = "connected"
	EventGetTasks      EventType = "get_tasks"
	EventGetJobDetails EventType = "get_job_details"
)

// Event is one message received from the push channel.
type Event struct {
	Type    EventType
	Payload json.RawMessage
}

// EventHandler handles one event.
type EventHandler func(ctx context.Context, event Event) error

// EventService is the in-process bus the push channel publishes to.
type EventService interface {
	// Subscribe registers handler and returns a func that removes it.
	Subscribe(eventType EventType, handler EventHandler) (func(), error)

	// Publish delivers the event to every subscriber in subscription order.
	Publish(ctx context.Context, event Event) error

	// Close drops all subscriptions.
	Close() error
}

// Emitter sends requests back over the push channel.
type Emitter interface {
	Emit(ctx context.Context, eventType EventType, payload interface{}) error
}
