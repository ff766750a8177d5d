package handlers

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/prinde/internal/common"
	"github.com/ternarybob/prinde/internal/jobs"
	"github.com/ternarybob/prinde/internal/models"
	"golang.org/x/time/rate"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

const writeWait = 10 * time.Second

// Message types pushed to browsers.
const (
	MessageStatus     = "status"
	MessageActiveJobs = "active_jobs"
	MessageTasks      = "tasks"
	MessageLogs       = "logs"
	MessageJobDetails = "job_details"
	MessageLink       = "link_status"
)

// WSMessage is one frame sent to a browser.
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// ActiveJobsPayload is the body of an active_jobs message.
type ActiveJobsPayload struct {
	Revision uint64         `json:"revision"`
	Jobs     *models.JobSet `json:"jobs"`
}

// ClientRecorder receives the connected client count. internal/metrics implements it.
type ClientRecorder interface {
	BrowserClients(n int)
}

// WebSocketHandler is the hub browsers connect to for live view updates.
type WebSocketHandler struct {
	logger           arbor.ILogger
	clients          map[*websocket.Conn]bool
	clientMutex      map[*websocket.Conn]*sync.Mutex
	mu               sync.RWMutex
	allowedEvents    map[string]bool // Whitelist of message types to broadcast (empty = allow all)
	serverInstanceID string          // Unique ID generated on startup - clients use to detect server restart
	initialState     func() []WSMessage
	recorder         ClientRecorder

	// active_jobs coalescing: at most one push per interval, the latest always delivered
	jobsThrottler *rate.Limiter
	pendingMu     sync.Mutex
	pendingJobs   *ActiveJobsPayload
	flushTimer    *time.Timer
	lastRevision  uint64
}

// NewWebSocketHandler creates the hub. A nil config disables throttling and filtering.
func NewWebSocketHandler(logger arbor.ILogger, config *common.WebSocketConfig) *WebSocketHandler {
	h := &WebSocketHandler{
		logger:           logger,
		clients:          make(map[*websocket.Conn]bool),
		clientMutex:      make(map[*websocket.Conn]*sync.Mutex),
		allowedEvents:    make(map[string]bool),
		serverInstanceID: uuid.New().String(),
	}

	logger.Info().Str("server_instance_id", h.serverInstanceID).Msg("WebSocket handler initialized with server instance ID")

	if config == nil {
		return h
	}

	for _, eventType := range config.AllowedEvents {
		h.allowedEvents[eventType] = true
	}

	if config.ThrottleInterval != "" {
		if interval, err := time.ParseDuration(config.ThrottleInterval); err == nil && interval > 0 {
			h.jobsThrottler = rate.NewLimiter(rate.Every(interval), 1)
			logger.Debug().
				Str("event_type", MessageActiveJobs).
				Str("interval", config.ThrottleInterval).
				Msg("Throttler initialized for active_jobs messages")
		} else {
			logger.Warn().
				Err(err).
				Str("interval", config.ThrottleInterval).
				Msg("Failed to parse active_jobs throttle interval - throttler disabled")
		}
	}

	return h
}

// ServerInstanceID identifies this process to browsers.
func (h *WebSocketHandler) ServerInstanceID() string {
	return h.serverInstanceID
}

// SetInitialState sets the messages every new client receives after status.
func (h *WebSocketHandler) SetInitialState(fn func() []WSMessage) {
	h.initialState = fn
}

// SetRecorder attaches a metrics recorder.
func (h *WebSocketHandler) SetRecorder(r ClientRecorder) {
	h.recorder = r
}

// HandleWebSocket upgrades the request and keeps the client registered until it goes away.
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}

	// The client is registered with its write lock held: broadcasts issued while
	// the initial frames are written queue behind them instead of skipping it.
	mutex := &sync.Mutex{}
	mutex.Lock()
	h.mu.Lock()
	h.clients[conn] = true
	h.clientMutex[conn] = mutex
	count := len(h.clients)
	h.mu.Unlock()

	err = h.sendInitial(conn)
	mutex.Unlock()
	if err != nil {
		h.logger.Warn().Err(err).Msg("Failed to send initial state to client")
		h.unregister(conn)
		return
	}
	h.recordClients(count)

	h.logger.Debug().Int("clients", count).Msg("WebSocket client connected")

	defer h.unregister(conn)

	// Browsers only listen; reads keep the connection's control frames flowing.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *WebSocketHandler) unregister(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, conn)
	delete(h.clientMutex, conn)
	count := len(h.clients)
	h.mu.Unlock()
	conn.Close()
	h.recordClients(count)
	h.logger.Debug().Int("clients", count).Msg("WebSocket client disconnected")
}

func (h *WebSocketHandler) sendInitial(conn *websocket.Conn) error {
	msgs := []WSMessage{{
		Type: MessageStatus,
		Payload: map[string]interface{}{
			"server_instance_id": h.serverInstanceID,
			"version":            common.GetVersion(),
		},
	}}
	if h.initialState != nil {
		msgs = append(msgs, h.initialState()...)
	}

	for _, msg := range msgs {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(msg); err != nil {
			return err
		}
	}
	return nil
}

// Broadcast sends a message to every connected client.
func (h *WebSocketHandler) Broadcast(msgType string, payload interface{}) {
	if len(h.allowedEvents) > 0 && !h.allowedEvents[msgType] {
		return
	}

	data, err := json.Marshal(WSMessage{Type: msgType, Payload: payload})
	if err != nil {
		h.logger.Error().Err(err).Str("type", msgType).Msg("Failed to marshal WebSocket message")
		return
	}

	h.mu.RLock()
	clients := make([]*websocket.Conn, 0, len(h.clients))
	mutexes := make([]*sync.Mutex, 0, len(h.clients))
	for conn := range h.clients {
		clients = append(clients, conn)
		mutexes = append(mutexes, h.clientMutex[conn])
	}
	h.mu.RUnlock()

	for i, conn := range clients {
		mutex := mutexes[i]
		mutex.Lock()
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		err := conn.WriteMessage(websocket.TextMessage, data)
		mutex.Unlock()

		if err != nil {
			h.logger.Warn().Err(err).Str("type", msgType).Msg("Failed to send message to client")
		}
	}
}

// BroadcastJobs pushes an active job change, coalescing bursts. Changes older
// than the last one seen are dropped.
func (h *WebSocketHandler) BroadcastJobs(change jobs.Change) {
	payload := &ActiveJobsPayload{Revision: change.Revision, Jobs: change.Jobs}

	h.pendingMu.Lock()
	if change.Revision <= h.lastRevision {
		h.pendingMu.Unlock()
		return
	}
	h.lastRevision = change.Revision

	if h.jobsThrottler == nil || (h.flushTimer == nil && h.jobsThrottler.Allow()) {
		h.pendingMu.Unlock()
		h.Broadcast(MessageActiveJobs, payload)
		return
	}

	h.pendingJobs = payload
	if h.flushTimer == nil {
		delay := h.jobsThrottler.Reserve().Delay()
		h.flushTimer = time.AfterFunc(delay, h.flushJobs)
	}
	h.pendingMu.Unlock()
}

func (h *WebSocketHandler) flushJobs() {
	h.pendingMu.Lock()
	payload := h.pendingJobs
	h.pendingJobs = nil
	h.flushTimer = nil
	h.pendingMu.Unlock()

	if payload != nil {
		h.Broadcast(MessageActiveJobs, payload)
	}
}

// ClientCount returns the number of connected clients.
func (h *WebSocketHandler) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *WebSocketHandler) Close() {
	h.pendingMu.Lock()
	if h.flushTimer != nil {
		h.flushTimer.Stop()
		h.flushTimer = nil
	}
	h.pendingMu.Unlock()

	h.mu.Lock()
	for conn := range h.clients {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(time.Second))
		conn.Close()
	}
	h.mu.Unlock()
}

func (h *WebSocketHandler) recordClients(n int) {
	if h.recorder != nil {
		h.recorder.BrowserClients(n)
	}
}
