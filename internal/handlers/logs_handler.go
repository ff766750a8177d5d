package handlers

import (
	"net/http"

	"github.com/ternarybob/prinde/internal/logs"
	"github.com/ternarybob/prinde/internal/models"
)

// LogsHandler serves the system log viewer
type LogsHandler struct {
	buffer   *logs.Buffer
	minLevel int
}

// NewLogsHandler filters at minLevel unless the request asks otherwise
func NewLogsHandler(buffer *logs.Buffer, minLevel int) *LogsHandler {
	return &LogsHandler{buffer: buffer, minLevel: minLevel}
}

// GetLogs handles GET /api/logs?min_level=N (a number or a level name)
func (h *LogsHandler) GetLogs(w http.ResponseWriter, r *http.Request) {
	minLevel := h.minLevel
	if v := r.URL.Query().Get("min_level"); v != "" {
		minLevel = logs.ParseLevel(v)
	}

	entries := h.buffer.Entries(minLevel)
	if entries == nil {
		entries = []models.LogLine{}
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"min_level": minLevel,
		"count":     len(entries),
		"logs":      entries,
	})
}
