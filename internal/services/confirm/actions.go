package confirm

import (
	"context"
	"fmt"

	"github.com/ternarybob/prinde/internal/interfaces"
)

// Home is where the views return after most operations.
const Home = "/"

// JobPath is the detail page of a job.
func JobPath(jobID string) string {
	return "/job/" + jobID
}

// Actions builds the confirmable engine operations.
type Actions struct {
	confirm *Service
	gateway interfaces.Gateway
}

// NewActions binds the operations to a gateway.
func NewActions(confirm *Service, gateway interfaces.Gateway) *Actions {
	return &Actions{confirm: confirm, gateway: gateway}
}

// RunNow asks to run a job immediately.
func (a *Actions) RunNow(jobID string) Action {
	return a.confirm.Request(fmt.Sprintf("run job %q now", jobID), func(ctx context.Context) (string, error) {
		return Home, a.gateway.RunNow(ctx, jobID)
	})
}

// Cancel asks to cancel a job.
func (a *Actions) Cancel(jobID string) Action {
	return a.confirm.Request(fmt.Sprintf("cancel job %q", jobID), func(ctx context.Context) (string, error) {
		return Home, a.gateway.Cancel(ctx, jobID)
	})
}

// ReloadConfig asks to reload the system configuration; the view follows the reload job.
func (a *Actions) ReloadConfig() Action {
	return a.confirm.Request("reload system configuration", func(ctx context.Context) (string, error) {
		jobID, err := a.gateway.ReloadConfig(ctx)
		if err != nil {
			return "", err
		}
		return JobPath(jobID), nil
	})
}

// ReloadForecast asks to reload one forecast file.
func (a *Actions) ReloadForecast(file string) Action {
	return a.confirm.Request(fmt.Sprintf("reload forecast file %q", file), func(ctx context.Context) (string, error) {
		return Home, a.gateway.ReloadForecast(ctx, file)
	})
}

// AddForecastDate asks to add a run date to a forecast file.
func (a *Actions) AddForecastDate(file, date string) Action {
	return a.confirm.Request(fmt.Sprintf("add date %s to forecast file %q", date, file), func(ctx context.Context) (string, error) {
		return Home, a.gateway.AddForecastDate(ctx, file, date)
	})
}
