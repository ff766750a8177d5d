package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/prinde/internal/interfaces"
	"github.com/ternarybob/prinde/internal/views"
)

// WeatherHandler serves the weather pane
type WeatherHandler struct {
	gateway interfaces.Gateway
	logger  arbor.ILogger
}

func NewWeatherHandler(gateway interfaces.Gateway, logger arbor.ILogger) *WeatherHandler {
	return &WeatherHandler{gateway: gateway, logger: logger}
}

// GetWeather handles GET /api/weather: station names indexed by data value
func (h *WeatherHandler) GetWeather(w http.ResponseWriter, r *http.Request) {
	raw, err := h.gateway.WeatherData(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to fetch weather data")
		WriteServiceError(w, err)
		return
	}

	index, err := views.InvertWeather(raw)
	if err != nil {
		WriteError(w, http.StatusBadGateway, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, index)
}
