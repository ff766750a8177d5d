package app

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/prinde/internal/common"
	"github.com/ternarybob/prinde/internal/handlers"
	"github.com/ternarybob/prinde/internal/interfaces"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	app, err := New(common.NewDefaultConfig(), arbor.NewNoOpLogger())
	require.NoError(t, err)
	t.Cleanup(func() { app.Close() })
	return app
}

func publish(t *testing.T, app *App, eventType interfaces.EventType, payload string) {
	t.Helper()
	event := interfaces.Event{Type: eventType}
	if payload != "" {
		event.Payload = json.RawMessage(payload)
	}
	require.NoError(t, app.EventService.Publish(context.Background(), event))
}

func TestApp_ProgressEventsReachTracker(t *testing.T) {
	app := newTestApp(t)

	publish(t, app, interfaces.EventActiveTasks, `[{"job": {"id": 1, "status": 1}, "current_value": 1, "end_value": 4}]`)
	publish(t, app, interfaces.EventActiveTasksEvent, `{"job": {"id": 2, "parent": 1, "status": 1}, "end_value": 2}`)

	jobs := app.Tracker.Snapshot()
	require.Equal(t, []string{"1"}, jobs.Keys())
	root, _ := jobs.Get("1")
	assert.InDelta(t, 25, root.PercCompleted, 0.001)
	assert.Equal(t, []string{"2"}, root.SubJobs.Keys())

	publish(t, app, interfaces.EventDisconnect, "")
	assert.Equal(t, 0, app.Tracker.Snapshot().Len())
}

func TestApp_DetailViewFollowsEvents(t *testing.T) {
	app := newTestApp(t)
	view, created := app.Details.Open(context.Background(), "1")
	require.True(t, created)

	publish(t, app, interfaces.EventJobDetails, `null`)
	assert.Nil(t, view.State().TaskDetails)

	publish(t, app, interfaces.EventJobDetails, `{"job": {"id": 1, "status": 3}, "sub_jobs": [{"job": {"id": 5, "parent": 1, "status": 1}}]}`)
	state := view.State()
	require.NotNil(t, state.TaskDetails)
	assert.Equal(t, []string{"5"}, state.TaskDetails.SubJobs.Keys())

	publish(t, app, interfaces.EventActiveTasksEvent, `{"job": {"id": 6, "parent": 1, "status": 2}}`)
	assert.Equal(t, []string{"5", "6"}, view.State().TaskDetails.SubJobs.Keys())
}

func TestApp_TasksAndLogsClearedOnConnect(t *testing.T) {
	app := newTestApp(t)

	publish(t, app, interfaces.EventTasks, `{"job_queue": [], "finished_tasks": [{"id": 1}]}`)
	publish(t, app, interfaces.EventLogs, `["INFO started", "ERR broke"]`)
	publish(t, app, interfaces.EventLogs, `"WARN one\nDEBUG two"`)

	assert.False(t, app.Tasks.Get().UpdatedAt.IsZero())
	assert.Equal(t, 4, app.Logs.Len())

	publish(t, app, interfaces.EventConnect, "")
	assert.True(t, app.Tasks.Get().UpdatedAt.IsZero())
	assert.Equal(t, 0, app.Logs.Len())
}

func TestApp_BadPayloadReportsError(t *testing.T) {
	app := newTestApp(t)

	err := app.EventService.Publish(context.Background(), interfaces.Event{
		Type:    interfaces.EventLogs,
		Payload: json.RawMessage(`{"not": "lines"}`),
	})
	assert.Error(t, err)
}

func TestApp_InitialMessages(t *testing.T) {
	app := newTestApp(t)
	app.Details.Open(context.Background(), "3")

	var types []string
	for _, msg := range app.initialMessages() {
		types = append(types, msg.Type)
	}
	assert.Equal(t, []string{
		handlers.MessageLink,
		handlers.MessageActiveJobs,
		handlers.MessageTasks,
		handlers.MessageLogs,
		handlers.MessageJobDetails,
	}, types)
}
