package server

import (
	"github.com/go-chi/chi/v5"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() chi.Router {
	r := chi.NewRouter()
	r.Use(s.loggingMiddleware, s.corsMiddleware, s.recoveryMiddleware)

	// WebSocket route
	r.Get("/ws", s.app.WSHandler.HandleWebSocket)

	r.Route("/api", func(r chi.Router) {
		// System
		r.Get("/version", s.app.APIHandler.VersionHandler)
		r.Get("/health", s.app.APIHandler.HealthHandler)
		r.Get("/status", s.app.StatusHandler.GetStatusHandler)
		r.Get("/settings", s.app.ConfigHandler.GetSettings)

		// Jobs
		r.Get("/jobs/active", s.app.JobsHandler.ActiveJobsHandler)
		r.Get("/jobs/queue", s.app.JobsHandler.QueueHandler)
		r.Get("/jobs/{id}", s.app.JobsHandler.DetailHandler)
		r.Delete("/jobs/{id}", s.app.JobsHandler.CloseDetailHandler)
		r.Post("/jobs/{id}/run_now", s.app.JobsHandler.RunNowHandler)
		r.Post("/jobs/{id}/cancel", s.app.JobsHandler.CancelHandler)

		// Engine configuration, forecasts and weather
		r.Get("/config", s.app.ConfigHandler.GetConfig)
		r.Post("/config/reload", s.app.ConfigHandler.ReloadConfig)
		r.Get("/forecasts", s.app.ForecastsHandler.ListHandler)
		r.Post("/forecasts/{file}/reload", s.app.ForecastsHandler.ReloadHandler)
		r.Post("/forecasts/{file}/dates", s.app.ForecastsHandler.AddDateHandler)
		r.Get("/weather", s.app.WeatherHandler.GetWeather)

		// System log
		r.Get("/logs", s.app.LogsHandler.GetLogs)

		// Confirmations
		r.Get("/confirmations", s.app.ConfirmHandler.ListHandler)
		r.Post("/confirmations/{id}/accept", s.app.ConfirmHandler.AcceptHandler)
		r.Post("/confirmations/{id}/reject", s.app.ConfirmHandler.RejectHandler)
	})

	if s.app.Config.Metrics.Enabled {
		r.Method("GET", s.app.Config.Metrics.Path, s.app.Metrics.Handler())
	}

	r.NotFound(s.app.APIHandler.NotFoundHandler)

	return r
}
