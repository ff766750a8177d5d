package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/prinde/internal/services/confirm"
)

// ConfirmationResponse is returned when an operation needs confirmation.
type ConfirmationResponse struct {
	Action   confirm.Action `json:"action"`
	Question string         `json:"question"`
	Accept   string         `json:"accept"`
	Reject   string         `json:"reject"`
}

// writeConfirmation answers 202 with the pending action and where to resolve it.
func writeConfirmation(w http.ResponseWriter, action confirm.Action) error {
	base := "/api/confirmations/" + action.ID
	return WriteJSON(w, http.StatusAccepted, ConfirmationResponse{
		Action:   action,
		Question: "Are you sure you want to " + action.Description + "?",
		Accept:   base + "/accept",
		Reject:   base + "/reject",
	})
}

// ConfirmHandler resolves pending confirmations.
type ConfirmHandler struct {
	confirm *confirm.Service
	logger  arbor.ILogger
}

func NewConfirmHandler(svc *confirm.Service, logger arbor.ILogger) *ConfirmHandler {
	return &ConfirmHandler{confirm: svc, logger: logger}
}

// ListHandler handles GET /api/confirmations
func (h *ConfirmHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"confirmations": h.confirm.Pending(),
	})
}

// AcceptHandler handles POST /api/confirmations/{id}/accept
func (h *ConfirmHandler) AcceptHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	result, err := h.confirm.Accept(r.Context(), id)
	if err != nil {
		h.logger.Warn().Err(err).Str("action_id", id).Msg("Confirmed action failed")
		WriteServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, result)
}

// RejectHandler handles POST /api/confirmations/{id}/reject
func (h *ConfirmHandler) RejectHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.confirm.Reject(id); err != nil {
		WriteServiceError(w, err)
		return
	}

	WriteSuccess(w, "Action rejected")
}
