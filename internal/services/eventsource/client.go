// Package eventsource maintains the push-event channel to the engine and
// republishes everything it receives on the in-process event bus.
package eventsource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/prinde/internal/interfaces"
)

// ErrNotConnected is returned by Emit while the channel is down.
var ErrNotConnected = errors.New("event source not connected")

const defaultWriteTimeout = 10 * time.Second

// Envelope is one frame on the channel.
type Envelope struct {
	Type    interfaces.EventType `json:"type"`
	Payload json.RawMessage      `json:"payload,omitempty"`
}

// Config controls dialing and reconnection.
type Config struct {
	URL               string
	ReconnectDelay    time.Duration
	MaxReconnectDelay time.Duration
	HandshakeTimeout  time.Duration
	// RefreshSchedule re-requests the task list on a cron schedule while connected.
	RefreshSchedule string
}

// Status describes the channel.
type Status struct {
	URL       string    `json:"url"`
	Connected bool      `json:"connected"`
	Since     time.Time `json:"since"`
}

// Recorder receives link metrics. internal/metrics implements it.
type Recorder interface {
	SetConnected(connected bool)
	Reconnect()
}

// Client dials the engine, reconnecting with exponential backoff until its
// context ends. Inbound frames are published in arrival order.
type Client struct {
	cfg      Config
	events   interfaces.EventService
	logger   arbor.ILogger
	dialer   *websocket.Dialer
	recorder Recorder

	mu    sync.RWMutex
	conn  *websocket.Conn
	since time.Time

	writeMu sync.Mutex
}

// NewClient creates a client publishing to events.
func NewClient(cfg Config, events interfaces.EventService, logger arbor.ILogger) *Client {
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = time.Second
	}
	if cfg.MaxReconnectDelay < cfg.ReconnectDelay {
		cfg.MaxReconnectDelay = cfg.ReconnectDelay
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = 10 * time.Second
	}
	return &Client{
		cfg:    cfg,
		events: events,
		logger: logger,
		dialer: &websocket.Dialer{
			HandshakeTimeout: cfg.HandshakeTimeout,
			ReadBufferSize:   4096,
			WriteBufferSize:  1024,
		},
		since: time.Now(),
	}
}

// SetRecorder attaches a metrics recorder.
func (c *Client) SetRecorder(r Recorder) {
	c.recorder = r
}

// Run keeps the channel up until ctx is cancelled.
func (c *Client) Run(ctx context.Context) error {
	if c.cfg.RefreshSchedule != "" {
		scheduler := cron.New()
		if _, err := scheduler.AddFunc(c.cfg.RefreshSchedule, func() { c.refresh(ctx) }); err != nil {
			return fmt.Errorf("invalid refresh schedule %q: %w", c.cfg.RefreshSchedule, err)
		}
		scheduler.Start()
		defer scheduler.Stop()
	}

	delay := c.cfg.ReconnectDelay
	for {
		connected, err := c.session(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if connected {
			delay = c.cfg.ReconnectDelay
		}

		c.logger.Warn().
			Err(err).
			Str("url", c.cfg.URL).
			Dur("retry_in", delay).
			Msg("Event source unavailable")

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}

		if c.recorder != nil {
			c.recorder.Reconnect()
		}
		delay *= 2
		if delay > c.cfg.MaxReconnectDelay {
			delay = c.cfg.MaxReconnectDelay
		}
	}
}

// Emit sends a request to the engine.
func (c *Client) Emit(ctx context.Context, eventType interfaces.EventType, payload interface{}) error {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()
	if conn == nil {
		return ErrNotConnected
	}

	env := Envelope{Type: eventType}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to encode %s payload: %w", eventType, err)
		}
		env.Payload = data
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(defaultWriteTimeout)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := conn.SetWriteDeadline(deadline); err != nil {
		return fmt.Errorf("emit %s: %w", eventType, err)
	}
	if err := conn.WriteJSON(env); err != nil {
		return fmt.Errorf("emit %s: %w", eventType, err)
	}
	return nil
}

// Connected reports whether the channel is up.
func (c *Client) Connected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn != nil
}

// Status returns the channel state and when it last changed.
func (c *Client) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Status{URL: c.cfg.URL, Connected: c.conn != nil, Since: c.since}
}

// session runs one connection. The bool reports whether the dial succeeded.
func (c *Client) session(ctx context.Context) (bool, error) {
	dialCtx, cancel := context.WithTimeout(ctx, c.cfg.HandshakeTimeout)
	conn, _, err := c.dialer.DialContext(dialCtx, c.cfg.URL, nil)
	cancel()
	if err != nil {
		return false, fmt.Errorf("dial: %w", err)
	}

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	c.setConn(conn)
	c.logger.Info().Str("url", c.cfg.URL).Msg("Event source connected")

	c.publish(ctx, interfaces.Event{Type: interfaces.EventConnect})
	for _, req := range []interfaces.EventType{interfaces.EventConnected, interfaces.EventGetTasks} {
		if err := c.Emit(ctx, req, nil); err != nil {
			c.logger.Warn().Err(err).Str("event_type", string(req)).Msg("Failed to send handshake request")
		}
	}

	err = c.readLoop(ctx, conn)

	c.setConn(nil)
	conn.Close()
	c.logger.Info().Err(err).Msg("Event source disconnected")
	c.publish(context.WithoutCancel(ctx), interfaces.Event{Type: interfaces.EventDisconnect})
	return true, err
}

func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn) error {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil || env.Type == "" {
			c.logger.Warn().Int("bytes", len(data)).Msg("Ignoring malformed event frame")
			continue
		}
		if env.Type == interfaces.EventConnect || env.Type == interfaces.EventDisconnect {
			continue
		}
		c.publish(ctx, interfaces.Event{Type: env.Type, Payload: env.Payload})
	}
}

func (c *Client) publish(ctx context.Context, event interfaces.Event) {
	if err := c.events.Publish(ctx, event); err != nil {
		c.logger.Warn().Err(err).Str("event_type", string(event.Type)).Msg("Event handlers reported errors")
	}
}

func (c *Client) setConn(conn *websocket.Conn) {
	c.mu.Lock()
	c.conn = conn
	c.since = time.Now()
	c.mu.Unlock()

	if c.recorder != nil {
		c.recorder.SetConnected(conn != nil)
	}
}

func (c *Client) refresh(ctx context.Context) {
	if !c.Connected() {
		return
	}
	if err := c.Emit(ctx, interfaces.EventGetTasks, nil); err != nil {
		c.logger.Warn().Err(err).Msg("Scheduled task refresh failed")
	}
}
