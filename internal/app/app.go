package app

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/prinde/internal/common"
	"github.com/ternarybob/prinde/internal/handlers"
	"github.com/ternarybob/prinde/internal/interfaces"
	"github.com/ternarybob/prinde/internal/jobs"
	"github.com/ternarybob/prinde/internal/logs"
	"github.com/ternarybob/prinde/internal/metrics"
	"github.com/ternarybob/prinde/internal/services/confirm"
	"github.com/ternarybob/prinde/internal/services/events"
	"github.com/ternarybob/prinde/internal/services/eventsource"
	"github.com/ternarybob/prinde/internal/services/gateway"
	"github.com/ternarybob/prinde/internal/services/tasks"
)

// App holds all application components and dependencies
type App struct {
	Config    *common.Config
	Logger    arbor.ILogger
	ctx       context.Context
	cancelCtx context.CancelFunc
	done      chan struct{}

	Metrics *metrics.Collector

	// Event-driven services
	EventService interfaces.EventService
	EventSource  *eventsource.Client

	// View state
	Tracker *jobs.Tracker
	Details *jobs.DetailRegistry
	Tasks   *tasks.Store
	Logs    *logs.Buffer

	// Engine operations
	Gateway *gateway.Client
	Confirm *confirm.Service
	Actions *confirm.Actions

	unsubscribe []func()

	// HTTP handlers
	APIHandler       *handlers.APIHandler
	WSHandler        *handlers.WebSocketHandler
	StatusHandler    *handlers.StatusHandler
	JobsHandler      *handlers.JobsHandler
	ConfigHandler    *handlers.ConfigHandler
	ForecastsHandler *handlers.ForecastsHandler
	WeatherHandler   *handlers.WeatherHandler
	LogsHandler      *handlers.LogsHandler
	ConfirmHandler   *handlers.ConfirmHandler
}

// New initializes the application with all dependencies. Nothing connects to
// the engine until Start is called.
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	app.Metrics = metrics.NewCollector(prometheus.NewRegistry())

	app.EventService = events.NewService(app.Logger)
	app.WSHandler = handlers.NewWebSocketHandler(app.Logger, &app.Config.WebSocket)
	app.WSHandler.SetRecorder(app.Metrics)

	if err := app.initServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.initHandlers()

	if err := app.subscribe(); err != nil {
		return nil, fmt.Errorf("failed to subscribe to engine events: %w", err)
	}

	logger.Info().
		Str("event_source", cfg.EventSource.URL).
		Str("gateway", cfg.Gateway.BaseURL).
		Str("grace_delay", app.Tracker.GraceDelay().String()).
		Msg("Application initialization complete")

	return app, nil
}

func (a *App) initServices() error {
	a.EventSource = eventsource.NewClient(eventsource.Config{
		URL:               a.Config.EventSource.URL,
		ReconnectDelay:    common.ParseDurationOr(a.Config.EventSource.ReconnectDelay, time.Second),
		MaxReconnectDelay: common.ParseDurationOr(a.Config.EventSource.MaxReconnectDelay, 30*time.Second),
		HandshakeTimeout:  common.ParseDurationOr(a.Config.EventSource.HandshakeTimeout, 10*time.Second),
		RefreshSchedule:   a.Config.EventSource.RefreshSchedule,
	}, a.EventService, a.Logger)
	a.EventSource.SetRecorder(a.Metrics)

	a.Tracker = jobs.NewTracker(a.Logger,
		common.ParseDurationOr(a.Config.Jobs.GraceDelay, jobs.DefaultGraceDelay),
		jobs.WithRecorder(a.Metrics))
	a.Details = jobs.NewDetailRegistry(a.Logger, a.EventSource)
	a.Tasks = tasks.NewStore()
	a.Logs = logs.NewBuffer(a.Config.Logs.MaxEntries)

	gw, err := NewGateway(a.Config, a.Logger)
	if err != nil {
		return err
	}
	gw.SetRecorder(a.Metrics)
	a.Gateway = gw

	a.Confirm = confirm.NewService(a.Logger, common.ParseDurationOr(a.Config.Confirm.TTL, confirm.DefaultTTL))
	a.Confirm.SetRecorder(a.Metrics)
	a.Actions = confirm.NewActions(a.Confirm, a.Gateway)

	return nil
}

func (a *App) initHandlers() {
	a.APIHandler = handlers.NewAPIHandler(a.Logger)
	a.StatusHandler = handlers.NewStatusHandler(a.EventSource, a.Tracker, a.Details, a.WSHandler, a.Logger)
	a.JobsHandler = handlers.NewJobsHandler(a.Tracker, a.Details, a.Tasks, a.Actions, a.Logger)
	a.ConfigHandler = handlers.NewConfigHandler(a.Logger, a.Config, a.Gateway, a.Actions)
	a.ForecastsHandler = handlers.NewForecastsHandler(a.Gateway, a.Actions, a.Logger)
	a.WeatherHandler = handlers.NewWeatherHandler(a.Gateway, a.Logger)
	a.LogsHandler = handlers.NewLogsHandler(a.Logs, logs.ParseLevel(a.Config.Logs.MinLevel))
	a.ConfirmHandler = handlers.NewConfirmHandler(a.Confirm, a.Logger)

	a.WSHandler.SetInitialState(a.initialMessages)
}

// NewGateway builds the engine REST client from configuration.
func NewGateway(cfg *common.Config, logger arbor.ILogger) (*gateway.Client, error) {
	return gateway.NewClient(cfg.Gateway.BaseURL,
		common.ParseDurationOr(cfg.Gateway.Timeout, 30*time.Second), nil, logger)
}

// Start connects to the engine in the background.
func (a *App) Start(ctx context.Context) {
	a.ctx, a.cancelCtx = context.WithCancel(ctx)
	a.done = make(chan struct{})

	common.SafeGoWithContext(a.ctx, a.Logger, "eventSource", func() {
		defer close(a.done)
		if err := a.EventSource.Run(a.ctx); err != nil {
			a.Logger.Error().Err(err).Msg("Event source stopped")
		}
	})
}

// Close stops the event channel, pending timers and browser connections.
func (a *App) Close() error {
	if a.cancelCtx != nil {
		a.Logger.Info().Msg("Stopping event source")
		a.cancelCtx()
		select {
		case <-a.done:
		case <-time.After(5 * time.Second):
			a.Logger.Warn().Msg("Event source did not stop in time")
		}
	}

	for _, unsubscribe := range a.unsubscribe {
		unsubscribe()
	}
	a.unsubscribe = nil

	a.Tracker.Reset()
	a.WSHandler.Close()

	if err := a.EventService.Close(); err != nil {
		a.Logger.Warn().Err(err).Msg("Failed to close event service")
	}

	a.Logger.Info().Msg("Application closed")
	return nil
}
