package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/prinde/internal/jobs"
	"github.com/ternarybob/prinde/internal/services/confirm"
	"github.com/ternarybob/prinde/internal/services/tasks"
)

// JobsHandler serves the active job list, the job queue and job detail views.
type JobsHandler struct {
	tracker *jobs.Tracker
	details *jobs.DetailRegistry
	tasks   *tasks.Store
	actions *confirm.Actions
	logger  arbor.ILogger
}

func NewJobsHandler(tracker *jobs.Tracker, details *jobs.DetailRegistry, store *tasks.Store, actions *confirm.Actions, logger arbor.ILogger) *JobsHandler {
	return &JobsHandler{
		tracker: tracker,
		details: details,
		tasks:   store,
		actions: actions,
		logger:  logger,
	}
}

// ActiveJobsHandler handles GET /api/jobs/active
func (h *JobsHandler) ActiveJobsHandler(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, ActiveJobsPayload{
		Revision: h.tracker.Revision(),
		Jobs:     h.tracker.Snapshot(),
	})
}

// QueueHandler handles GET /api/jobs/queue
func (h *JobsHandler) QueueHandler(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.tasks.Get())
}

// DetailHandler handles GET /api/jobs/{id}. The first request opens the view
// and asks the engine for the job's details.
func (h *JobsHandler) DetailHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		WriteError(w, http.StatusBadRequest, "job id is required")
		return
	}

	view, created := h.details.Open(r.Context(), id)
	if created {
		h.logger.Debug().Str("job_id", id).Msg("Job detail view opened")
	}

	WriteJSON(w, http.StatusOK, view.State())
}

// CloseDetailHandler handles DELETE /api/jobs/{id}
func (h *JobsHandler) CloseDetailHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !h.details.Close(id) {
		WriteError(w, http.StatusNotFound, "no open view for job "+id)
		return
	}
	WriteSuccess(w, "Job detail view closed")
}

// RunNowHandler handles POST /api/jobs/{id}/run_now
func (h *JobsHandler) RunNowHandler(w http.ResponseWriter, r *http.Request) {
	writeConfirmation(w, h.actions.RunNow(chi.URLParam(r, "id")))
}

// CancelHandler handles POST /api/jobs/{id}/cancel
func (h *JobsHandler) CancelHandler(w http.ResponseWriter, r *http.Request) {
	writeConfirmation(w, h.actions.Cancel(chi.URLParam(r, "id")))
}
