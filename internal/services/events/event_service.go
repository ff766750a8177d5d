package events

import (
	"context"
	"fmt"
	"sync"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/prinde/internal/interfaces"
)

type subscription struct {
	id      int
	handler interfaces.EventHandler
}

// Service implements EventService. Handlers run on the publisher's goroutine in
// subscription order, so events from one source are seen in arrival order.
type Service struct {
	subscribers map[interfaces.EventType][]subscription
	nextID      int
	mu          sync.RWMutex
	logger      arbor.ILogger
}

// NewService creates a new event service
func NewService(logger arbor.ILogger) *Service {
	return &Service{
		subscribers: make(map[interfaces.EventType][]subscription),
		logger:      logger,
	}
}

// Subscribe registers a handler for an event type
func (s *Service) Subscribe(eventType interfaces.EventType, handler interfaces.EventHandler) (func(), error) {
	if handler == nil {
		return nil, fmt.Errorf("handler cannot be nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.subscribers[eventType] = append(s.subscribers[eventType], subscription{id: id, handler: handler})

	s.logger.Debug().
		Str("event_type", string(eventType)).
		Int("subscriber_count", len(s.subscribers[eventType])).
		Msg("Event handler subscribed")

	return func() { s.unsubscribe(eventType, id) }, nil
}

func (s *Service) unsubscribe(eventType interfaces.EventType, id int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	subs := s.subscribers[eventType]
	for i, sub := range subs {
		if sub.id == id {
			s.subscribers[eventType] = append(subs[:i:i], subs[i+1:]...)
			s.logger.Debug().
				Str("event_type", string(eventType)).
				Msg("Event handler unsubscribed")
			return
		}
	}
}

// Publish delivers the event to every subscriber and waits for them.
// A failing handler is logged and does not stop delivery to the rest.
func (s *Service) Publish(ctx context.Context, event interfaces.Event) error {
	s.mu.RLock()
	subs := make([]subscription, len(s.subscribers[event.Type]))
	copy(subs, s.subscribers[event.Type])
	s.mu.RUnlock()

	if len(subs) == 0 {
		s.logger.Debug().
			Str("event_type", string(event.Type)).
			Msg("No subscribers for event")
		return nil
	}

	var failed int
	for _, sub := range subs {
		if err := s.dispatch(ctx, sub.handler, event); err != nil {
			failed++
			s.logger.Error().
				Err(err).
				Str("event_type", string(event.Type)).
				Msg("Event handler failed")
		}
	}

	if failed > 0 {
		return fmt.Errorf("event handlers failed: %d errors", failed)
	}
	return nil
}

// dispatch runs one handler, turning a panic into an error.
func (s *Service) dispatch(ctx context.Context, handler interfaces.EventHandler, event interfaces.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()
	return handler(ctx, event)
}

// Close shuts down the event service
func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.subscribers = make(map[interfaces.EventType][]subscription)
	s.logger.Info().Msg("Event service closed")

	return nil
}
