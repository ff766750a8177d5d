package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/prinde/internal/common"
	"github.com/ternarybob/prinde/internal/jobs"
	"github.com/ternarybob/prinde/internal/services/eventsource"
)

// LinkStatus reports the state of the engine's event channel.
type LinkStatus interface {
	Status() eventsource.Status
}

// StatusResponse is the body of GET /api/status.
type StatusResponse struct {
	Version          string             `json:"version"`
	ServerInstanceID string             `json:"server_instance_id"`
	EventSource      eventsource.Status `json:"event_source"`
	ActiveJobs       int                `json:"active_jobs"`
	PendingExpiries  int                `json:"pending_expiries"`
	Revision         uint64             `json:"revision"`
	DetailViews      []string           `json:"detail_views"`
	BrowserClients   int                `json:"browser_clients"`
	Goroutines       int64              `json:"goroutines_spawned"`
}

// StatusHandler handles HTTP requests for application status
type StatusHandler struct {
	link    LinkStatus
	tracker *jobs.Tracker
	details *jobs.DetailRegistry
	hub     *WebSocketHandler
	logger  arbor.ILogger
}

// NewStatusHandler creates a new StatusHandler
func NewStatusHandler(link LinkStatus, tracker *jobs.Tracker, details *jobs.DetailRegistry, hub *WebSocketHandler, logger arbor.ILogger) *StatusHandler {
	return &StatusHandler{
		link:    link,
		tracker: tracker,
		details: details,
		hub:     hub,
		logger:  logger,
	}
}

// Status collects the current state.
func (h *StatusHandler) Status() StatusResponse {
	return StatusResponse{
		Version:          common.GetVersion(),
		ServerInstanceID: h.hub.ServerInstanceID(),
		EventSource:      h.link.Status(),
		ActiveJobs:       h.tracker.Snapshot().Len(),
		PendingExpiries:  h.tracker.PendingExpiries(),
		Revision:         h.tracker.Revision(),
		DetailViews:      h.details.JobIDs(),
		BrowserClients:   h.hub.ClientCount(),
		Goroutines:       common.GetGoroutineCount(),
	}
}

// GetStatusHandler handles GET /api/status
func (h *StatusHandler) GetStatusHandler(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.Status())
}
