package interfaces

import (
	"context"
	"encoding/json"
)

// Gateway is the engine's REST API.
type Gateway interface {
	RunNow(ctx context.Context, jobID string) error
	Cancel(ctx context.Context, jobID string) error
	Config(ctx context.Context) (json.RawMessage, error)
	// ReloadConfig starts a reload job and returns its id.
	ReloadConfig(ctx context.Context) (string, error)
	Forecasts(ctx context.Context) (json.RawMessage, error)
	ReloadForecast(ctx context.Context, file string) error
	AddForecastDate(ctx context.Context, file, date string) error
	WeatherData(ctx context.Context) (json.RawMessage, error)
}
