package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ternarybob/prinde/internal/handlers"
	"github.com/ternarybob/prinde/internal/interfaces"
	"github.com/ternarybob/prinde/internal/jobs"
	"github.com/ternarybob/prinde/internal/models"
	"github.com/ternarybob/prinde/internal/services/events"
)

// subscribe routes engine events into the view state and view changes out to browsers.
func (a *App) subscribe() error {
	routes := map[interfaces.EventType]interfaces.EventHandler{
		interfaces.EventActiveTasks:      a.onActiveTasks,
		interfaces.EventActiveTasksEvent: a.onActiveTasksEvent,
		interfaces.EventJobDetails:       a.onJobDetails,
		interfaces.EventTasks:            a.onTasks,
		interfaces.EventLogs:             a.onLogs,
		interfaces.EventConnect:          a.onConnect,
		interfaces.EventDisconnect:       a.onDisconnect,
	}
	for eventType, handler := range routes {
		unsubscribe, err := a.EventService.Subscribe(eventType, handler)
		if err != nil {
			return fmt.Errorf("subscribe %s: %w", eventType, err)
		}
		a.unsubscribe = append(a.unsubscribe, unsubscribe)
	}

	if err := events.SubscribeLoggerToAllEvents(a.EventService, a.Logger); err != nil {
		return err
	}

	a.unsubscribe = append(a.unsubscribe,
		a.Tracker.Subscribe(a.WSHandler.BroadcastJobs),
		a.Details.Subscribe(func(state jobs.DetailState) {
			a.WSHandler.Broadcast(handlers.MessageJobDetails, state)
		}),
	)
	return nil
}

func (a *App) onActiveTasks(ctx context.Context, event interfaces.Event) error {
	list, err := models.DecodeJobEvents(event.Payload)
	if err != nil {
		return fmt.Errorf("active_tasks: %w", err)
	}
	a.Tracker.ApplySnapshot(list)
	return nil
}

func (a *App) onActiveTasksEvent(ctx context.Context, event interfaces.Event) error {
	var ev models.JobEvent
	if err := json.Unmarshal(event.Payload, &ev); err != nil {
		return fmt.Errorf("active_tasks_event: %w", err)
	}
	a.Tracker.Apply(ev)
	a.Details.HandleEvent(ev)
	return nil
}

func (a *App) onJobDetails(ctx context.Context, event interfaces.Event) error {
	payload := bytes.TrimSpace(event.Payload)
	if len(payload) == 0 || bytes.Equal(payload, []byte("null")) {
		a.Details.HandleDetails(nil)
		return nil
	}

	var details models.JobEvent
	if err := json.Unmarshal(payload, &details); err != nil {
		return fmt.Errorf("job_details: %w", err)
	}
	a.Details.HandleDetails(&details)
	return nil
}

func (a *App) onTasks(ctx context.Context, event interfaces.Event) error {
	snapshot, err := a.Tasks.Replace(event.Payload)
	if err != nil {
		return fmt.Errorf("tasks: %w", err)
	}
	a.WSHandler.Broadcast(handlers.MessageTasks, snapshot)
	return nil
}

func (a *App) onLogs(ctx context.Context, event interfaces.Event) error {
	lines, err := logLines(event.Payload)
	if err != nil {
		return fmt.Errorf("logs: %w", err)
	}
	if added := a.Logs.Append(lines); len(added) > 0 {
		a.WSHandler.Broadcast(handlers.MessageLogs, added)
	}
	return nil
}

// onConnect drops state that belonged to the previous connection. The engine
// resends the task list, and every open detail view is requested again.
func (a *App) onConnect(ctx context.Context, event interfaces.Event) error {
	a.Tasks.Clear()
	a.Logs.Clear()
	a.Details.HandleConnected(ctx)
	a.WSHandler.Broadcast(handlers.MessageLink, a.EventSource.Status())
	return nil
}

func (a *App) onDisconnect(ctx context.Context, event interfaces.Event) error {
	a.Tracker.Reset()
	a.WSHandler.Broadcast(handlers.MessageLink, a.EventSource.Status())
	return nil
}

// initialMessages is what a browser receives right after connecting.
func (a *App) initialMessages() []handlers.WSMessage {
	msgs := []handlers.WSMessage{
		{Type: handlers.MessageLink, Payload: a.EventSource.Status()},
		{Type: handlers.MessageActiveJobs, Payload: handlers.ActiveJobsPayload{
			Revision: a.Tracker.Revision(),
			Jobs:     a.Tracker.Snapshot(),
		}},
		{Type: handlers.MessageTasks, Payload: a.Tasks.Get()},
		{Type: handlers.MessageLogs, Payload: a.Logs.Entries(0)},
	}
	for _, id := range a.Details.JobIDs() {
		if view, ok := a.Details.Get(id); ok {
			msgs = append(msgs, handlers.WSMessage{Type: handlers.MessageJobDetails, Payload: view.State()})
		}
	}
	return msgs
}

// logLines accepts a list of lines or a single newline separated string.
func logLines(payload json.RawMessage) ([]string, error) {
	var lines []string
	if err := json.Unmarshal(payload, &lines); err == nil {
		return lines, nil
	}
	var text string
	if err := json.Unmarshal(payload, &text); err != nil {
		return nil, fmt.Errorf("expected a list of lines or a string")
	}
	return strings.Split(text, "\n"), nil
}
