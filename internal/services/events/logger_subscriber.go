package events

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/prinde/internal/interfaces"
)

// NewLoggerSubscriber creates an event handler that logs all events
func NewLoggerSubscriber(logger arbor.ILogger) interfaces.EventHandler {
	return func(ctx context.Context, event interfaces.Event) error {
		logger.Debug().
			Str("event_type", string(event.Type)).
			Int("payload_bytes", len(event.Payload)).
			Msg("Event received")
		return nil
	}
}

// SubscribeLoggerToAllEvents subscribes the logger to every inbound event type
func SubscribeLoggerToAllEvents(eventService interfaces.EventService, logger arbor.ILogger) error {
	subscriber := NewLoggerSubscriber(logger)

	eventTypes := []interfaces.EventType{
		interfaces.EventTasks,
		interfaces.EventActiveTasks,
		interfaces.EventActiveTasksEvent,
		interfaces.EventJobDetails,
		interfaces.EventLogs,
		interfaces.EventConnect,
		interfaces.EventDisconnect,
	}

	for _, eventType := range eventTypes {
		if _, err := eventService.Subscribe(eventType, subscriber); err != nil {
			return fmt.Errorf("failed to subscribe logger to event type %s: %w", eventType, err)
		}
	}

	logger.Debug().
		Int("event_type_count", len(eventTypes)).
		Msg("Logger subscribed to all event types")

	return nil
}
