package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/prinde/internal/common"
	"github.com/ternarybob/prinde/internal/interfaces"
	"github.com/ternarybob/prinde/internal/services/confirm"
	"github.com/ternarybob/prinde/internal/views"
)

// AddDateRequest is the body of POST /api/forecasts/{file}/dates
type AddDateRequest struct {
	Date string `json:"date" validate:"required,datetime=2006-01-02"`
}

// ForecastsHandler serves the forecast pane
type ForecastsHandler struct {
	gateway  interfaces.Gateway
	actions  *confirm.Actions
	validate *validator.Validate
	logger   arbor.ILogger
}

func NewForecastsHandler(gateway interfaces.Gateway, actions *confirm.Actions, logger arbor.ILogger) *ForecastsHandler {
	return &ForecastsHandler{
		gateway:  gateway,
		actions:  actions,
		validate: common.NewValidator(),
		logger:   logger,
	}
}

// ListHandler handles GET /api/forecasts: forecasts grouped by file name
func (h *ForecastsHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	raw, err := h.gateway.Forecasts(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to fetch forecasts")
		WriteServiceError(w, err)
		return
	}

	groups, err := views.GroupForecasts(raw)
	if err != nil {
		WriteError(w, http.StatusBadGateway, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, groups)
}

// ReloadHandler handles POST /api/forecasts/{file}/reload
func (h *ForecastsHandler) ReloadHandler(w http.ResponseWriter, r *http.Request) {
	writeConfirmation(w, h.actions.ReloadForecast(chi.URLParam(r, "file")))
}

// AddDateHandler handles POST /api/forecasts/{file}/dates
func (h *ForecastsHandler) AddDateHandler(w http.ResponseWriter, r *http.Request) {
	var req AddDateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		WriteError(w, http.StatusBadRequest, "date must be formatted YYYY-MM-DD")
		return
	}

	writeConfirmation(w, h.actions.AddForecastDate(chi.URLParam(r, "file"), req.Date))
}
