// Package confirm implements the two-step confirmation that guards every
// engine operation with side effects.
package confirm

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"
)

// ErrActionNotFound is returned for unknown, expired or already resolved actions.
var ErrActionNotFound = errors.New("confirmation not found")

// DefaultTTL is how long a pending action waits for an answer.
const DefaultTTL = 5 * time.Minute

// Operation performs the confirmed action and returns where the view should go next.
type Operation func(ctx context.Context) (navigate string, err error)

// Action is a pending confirmation.
type Action struct {
	ID          string    `json:"id"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at"`

	op Operation
}

// Result is the outcome of an accepted action.
type Result struct {
	ActionID string `json:"action_id"`
	Navigate string `json:"navigate"`
}

// Recorder receives confirmation outcomes. internal/metrics implements it.
type Recorder interface {
	Confirmation(outcome string)
}

// Service keeps pending actions until they are accepted, rejected or expire.
type Service struct {
	logger   arbor.ILogger
	ttl      time.Duration
	now      func() time.Time
	recorder Recorder

	mu      sync.Mutex
	pending map[string]*Action
}

// NewService creates a service whose actions expire after ttl.
func NewService(logger arbor.ILogger, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{
		logger:  logger,
		ttl:     ttl,
		now:     time.Now,
		pending: make(map[string]*Action),
	}
}

// SetRecorder attaches a metrics recorder.
func (s *Service) SetRecorder(r Recorder) {
	s.recorder = r
}

// Request registers an action described as in "Are you sure you want to <description>?".
func (s *Service) Request(description string, op Operation) Action {
	now := s.now()
	action := &Action{
		ID:          uuid.New().String(),
		Description: description,
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.ttl),
		op:          op,
	}

	s.mu.Lock()
	s.pruneLocked(now)
	s.pending[action.ID] = action
	s.mu.Unlock()

	s.record("requested")
	s.logger.Debug().
		Str("action_id", action.ID).
		Str("action", description).
		Msg("Confirmation requested")

	return *action
}

// Accept runs the action. The action is consumed even when the operation fails.
func (s *Service) Accept(ctx context.Context, id string) (Result, error) {
	action, err := s.take(id)
	if err != nil {
		return Result{}, err
	}

	navigate, err := action.op(ctx)
	if err != nil {
		s.record("failed")
		s.logger.Warn().
			Err(err).
			Str("action_id", id).
			Str("action", action.Description).
			Msg("Confirmed action failed")
		return Result{}, fmt.Errorf("%s: %w", action.Description, err)
	}

	s.record("accepted")
	s.logger.Info().
		Str("action_id", id).
		Str("action", action.Description).
		Str("navigate", navigate).
		Msg("Confirmed action completed")

	return Result{ActionID: id, Navigate: navigate}, nil
}

// Reject discards the action without running it.
func (s *Service) Reject(id string) error {
	action, err := s.take(id)
	if err != nil {
		return err
	}
	s.record("rejected")
	s.logger.Debug().
		Str("action_id", id).
		Str("action", action.Description).
		Msg("Confirmation rejected")
	return nil
}

// Pending lists the open actions, oldest first.
func (s *Service) Pending() []Action {
	s.mu.Lock()
	s.pruneLocked(s.now())
	actions := make([]Action, 0, len(s.pending))
	for _, a := range s.pending {
		actions = append(actions, *a)
	}
	s.mu.Unlock()

	sort.Slice(actions, func(i, j int) bool {
		return actions[i].CreatedAt.Before(actions[j].CreatedAt)
	})
	return actions
}

func (s *Service) take(id string) (*Action, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneLocked(s.now())
	action, ok := s.pending[id]
	if !ok {
		return nil, ErrActionNotFound
	}
	delete(s.pending, id)
	return action, nil
}

func (s *Service) pruneLocked(now time.Time) {
	for id, a := range s.pending {
		if now.After(a.ExpiresAt) {
			delete(s.pending, id)
			s.record("expired")
		}
	}
}

func (s *Service) record(outcome string) {
	if s.recorder != nil {
		s.recorder.Confirmation(outcome)
	}
}
