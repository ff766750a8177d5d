package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/prinde/internal/common"
	"github.com/ternarybob/prinde/internal/interfaces"
	"github.com/ternarybob/prinde/internal/jobs"
	"github.com/ternarybob/prinde/internal/logs"
	"github.com/ternarybob/prinde/internal/models"
	"github.com/ternarybob/prinde/internal/services/confirm"
	"github.com/ternarybob/prinde/internal/services/gateway"
	"github.com/ternarybob/prinde/internal/services/tasks"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// MockGateway is a mock implementation of interfaces.Gateway
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) RunNow(ctx context.Context, jobID string) error {
	return m.Called(jobID).Error(0)
}

func (m *MockGateway) Cancel(ctx context.Context, jobID string) error {
	return m.Called(jobID).Error(0)
}

func (m *MockGateway) Config(ctx context.Context) (json.RawMessage, error) {
	args := m.Called()
	raw, _ := args.Get(0).(json.RawMessage)
	return raw, args.Error(1)
}

func (m *MockGateway) ReloadConfig(ctx context.Context) (string, error) {
	args := m.Called()
	return args.String(0), args.Error(1)
}

func (m *MockGateway) Forecasts(ctx context.Context) (json.RawMessage, error) {
	args := m.Called()
	raw, _ := args.Get(0).(json.RawMessage)
	return raw, args.Error(1)
}

func (m *MockGateway) ReloadForecast(ctx context.Context, file string) error {
	return m.Called(file).Error(0)
}

func (m *MockGateway) AddForecastDate(ctx context.Context, file, date string) error {
	return m.Called(file, date).Error(0)
}

func (m *MockGateway) WeatherData(ctx context.Context) (json.RawMessage, error) {
	args := m.Called()
	raw, _ := args.Get(0).(json.RawMessage)
	return raw, args.Error(1)
}

type recordingEmitter struct {
	mu   sync.Mutex
	sent []string
}

func (e *recordingEmitter) Emit(ctx context.Context, eventType interfaces.EventType, payload interface{}) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sent = append(e.sent, fmt.Sprintf("%s:%v", eventType, payload))
	return nil
}

type testEnv struct {
	router  chi.Router
	gateway *MockGateway
	tracker *jobs.Tracker
	details *jobs.DetailRegistry
	emitter *recordingEmitter
	tasks   *tasks.Store
	logs    *logs.Buffer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := arbor.NewNoOpLogger()

	env := &testEnv{
		gateway: &MockGateway{},
		tracker: jobs.NewTracker(logger, time.Minute),
		emitter: &recordingEmitter{},
		tasks:   tasks.NewStore(),
		logs:    logs.NewBuffer(10),
	}
	env.details = jobs.NewDetailRegistry(logger, env.emitter)
	t.Cleanup(env.tracker.Reset)

	confirmSvc := confirm.NewService(logger, time.Minute)
	actions := confirm.NewActions(confirmSvc, env.gateway)

	jobsHandler := NewJobsHandler(env.tracker, env.details, env.tasks, actions, logger)
	configHandler := NewConfigHandler(logger, common.NewDefaultConfig(), env.gateway, actions)
	forecastsHandler := NewForecastsHandler(env.gateway, actions, logger)
	weatherHandler := NewWeatherHandler(env.gateway, logger)
	logsHandler := NewLogsHandler(env.logs, models.LogLevelDebug)
	confirmHandler := NewConfirmHandler(confirmSvc, logger)

	r := chi.NewRouter()
	r.Get("/api/jobs/active", jobsHandler.ActiveJobsHandler)
	r.Get("/api/jobs/queue", jobsHandler.QueueHandler)
	r.Get("/api/jobs/{id}", jobsHandler.DetailHandler)
	r.Delete("/api/jobs/{id}", jobsHandler.CloseDetailHandler)
	r.Post("/api/jobs/{id}/run_now", jobsHandler.RunNowHandler)
	r.Post("/api/jobs/{id}/cancel", jobsHandler.CancelHandler)
	r.Get("/api/settings", configHandler.GetSettings)
	r.Get("/api/config", configHandler.GetConfig)
	r.Post("/api/config/reload", configHandler.ReloadConfig)
	r.Get("/api/forecasts", forecastsHandler.ListHandler)
	r.Post("/api/forecasts/{file}/reload", forecastsHandler.ReloadHandler)
	r.Post("/api/forecasts/{file}/dates", forecastsHandler.AddDateHandler)
	r.Get("/api/weather", weatherHandler.GetWeather)
	r.Get("/api/logs", logsHandler.GetLogs)
	r.Get("/api/confirmations", confirmHandler.ListHandler)
	r.Post("/api/confirmations/{id}/accept", confirmHandler.AcceptHandler)
	r.Post("/api/confirmations/{id}/reject", confirmHandler.RejectHandler)
	env.router = r
	return env
}

func (e *testEnv) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

// requestAndAccept posts an operation and accepts the confirmation it returns.
func (e *testEnv) requestAndAccept(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	rec := e.do(method, path, body)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	var pending ConfirmationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pending))
	require.NotEmpty(t, pending.Action.ID)
	assert.True(t, strings.HasPrefix(pending.Question, "Are you sure you want to "))

	return e.do(http.MethodPost, pending.Accept, "")
}

func TestJobsHandler_ActiveJobs(t *testing.T) {
	env := newTestEnv(t)
	env.tracker.Apply(models.JobEvent{
		Job:          models.JobRef{ID: "7", Name: "import", Status: models.StatusRunning},
		CurrentValue: 5,
		EndValue:     10,
	})

	rec := env.do(http.MethodGet, "/api/jobs/active", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Revision uint64                     `json:"revision"`
		Jobs     map[string]json.RawMessage `json:"jobs"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, uint64(1), body.Revision)
	require.Contains(t, body.Jobs, "7")

	var node struct {
		PercCompleted float64 `json:"perc_completed"`
	}
	require.NoError(t, json.Unmarshal(body.Jobs["7"], &node))
	assert.InDelta(t, 50, node.PercCompleted, 0.001)
}

func TestJobsHandler_Queue(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.tasks.Replace(json.RawMessage(`{"job_queue": [{"id": 3}], "finished_tasks": []}`))
	require.NoError(t, err)

	rec := env.do(http.MethodGet, "/api/jobs/queue", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"job_queue":[{"id":3}]`)
}

func TestJobsHandler_DetailView(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/api/jobs/42", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"job_id": "42", "task_details": null}`, rec.Body.String())

	env.do(http.MethodGet, "/api/jobs/42", "")
	assert.Equal(t, []string{"get_job_details:42"}, env.emitter.sent, "details are requested once per view")

	env.details.HandleEvent(models.JobEvent{Job: models.JobRef{ID: "42", Status: models.StatusRunning}, EndValue: 4, CurrentValue: 1})
	rec = env.do(http.MethodGet, "/api/jobs/42", "")
	assert.Contains(t, rec.Body.String(), `"perc_completed":25`)

	assert.Equal(t, http.StatusOK, env.do(http.MethodDelete, "/api/jobs/42", "").Code)
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodDelete, "/api/jobs/42", "").Code)
}

func TestJobsHandler_RunNowConfirmed(t *testing.T) {
	env := newTestEnv(t)
	env.gateway.On("RunNow", "9").Return(nil).Once()

	rec := env.requestAndAccept(t, http.MethodPost, "/api/jobs/9/run_now", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var result confirm.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, confirm.Home, result.Navigate)
	env.gateway.AssertExpectations(t)
}

func TestJobsHandler_CancelRejected(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/api/jobs/9/cancel", "")
	require.Equal(t, http.StatusAccepted, rec.Code)
	var pending ConfirmationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pending))

	assert.Equal(t, http.StatusOK, env.do(http.MethodPost, pending.Reject, "").Code)
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodPost, pending.Accept, "").Code)
	env.gateway.AssertNotCalled(t, "Cancel", mock.Anything)
}

func TestConfirmHandler_ListPending(t *testing.T) {
	env := newTestEnv(t)
	env.do(http.MethodPost, "/api/jobs/1/cancel", "")

	rec := env.do(http.MethodGet, "/api/confirmations", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Confirmations []confirm.Action `json:"confirmations"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Confirmations, 1)
	assert.Equal(t, `cancel job "1"`, body.Confirmations[0].Description)
}

func TestConfigHandler_Flattened(t *testing.T) {
	env := newTestEnv(t)
	env.gateway.On("Config").Return(json.RawMessage(`{"name": "engine", "db": {"host": "h", "port": 1}}`), nil)

	rec := env.do(http.MethodGet, "/api/config", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"name":"engine","db > host":"h","db > port":1}`, rec.Body.String())

	pane := orderedmap.New[string, json.RawMessage]()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), pane))
	var keys []string
	for pair := pane.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	assert.Equal(t, []string{"name", "db > host", "db > port"}, keys)
}

func TestConfigHandler_EngineErrors(t *testing.T) {
	env := newTestEnv(t)
	env.gateway.On("Config").Return(nil, &gateway.StatusError{Operation: "config", StatusCode: http.StatusNotFound})

	assert.Equal(t, http.StatusNotFound, env.do(http.MethodGet, "/api/config", "").Code)
}

func TestConfigHandler_ReloadNavigatesToJob(t *testing.T) {
	env := newTestEnv(t)
	env.gateway.On("ReloadConfig").Return("55", nil)

	rec := env.requestAndAccept(t, http.MethodPost, "/api/config/reload", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var result confirm.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "/job/55", result.Navigate)
}

func TestConfigHandler_Settings(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/api/settings", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body SettingsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 8085, body.Port)
	assert.Equal(t, "localhost", body.Host)
}

func TestForecastsHandler_Grouped(t *testing.T) {
	env := newTestEnv(t)
	env.gateway.On("Forecasts").Return(json.RawMessage(
		`[{"file_name": "b.csv", "n": 1}, {"file_name": "a.csv", "n": 2}, {"file_name": "b.csv", "n": 3}]`), nil)

	rec := env.do(http.MethodGet, "/api/forecasts", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t,
		`{"b.csv":[{"file_name":"b.csv","n":1},{"file_name":"b.csv","n":3}],"a.csv":[{"file_name":"a.csv","n":2}]}`,
		strings.TrimSpace(rec.Body.String()))
}

func TestForecastsHandler_AddDate(t *testing.T) {
	env := newTestEnv(t)
	env.gateway.On("AddForecastDate", "a.csv", "2024-03-01").Return(nil).Once()

	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodPost, "/api/forecasts/a.csv/dates", `{"date": "01/03/2024"}`).Code)
	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodPost, "/api/forecasts/a.csv/dates", `{}`).Code)
	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodPost, "/api/forecasts/a.csv/dates", `nope`).Code)

	rec := env.requestAndAccept(t, http.MethodPost, "/api/forecasts/a.csv/dates", `{"date": "2024-03-01"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	env.gateway.AssertExpectations(t)
}

func TestForecastsHandler_ReloadFailure(t *testing.T) {
	env := newTestEnv(t)
	env.gateway.On("ReloadForecast", "a.csv").Return(&gateway.StatusError{Operation: "reload_forecast", StatusCode: http.StatusInternalServerError})

	rec := env.requestAndAccept(t, http.MethodPost, "/api/forecasts/a.csv/reload", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestWeatherHandler_Inverted(t *testing.T) {
	env := newTestEnv(t)
	env.gateway.On("WeatherData").Return(json.RawMessage(`{"oslo": "rain", "rome": "sun", "bergen": "rain"}`), nil)

	rec := env.do(http.MethodGet, "/api/weather", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `{"rain":"oslo, bergen","sun":"rome"}`, strings.TrimSpace(rec.Body.String()))
}

func TestLogsHandler_MinLevel(t *testing.T) {
	env := newTestEnv(t)
	env.logs.Append([]string{"DEBUG a", "INFO b", "WARN c", "ERR d"})

	var body struct {
		Count int              `json:"count"`
		Logs  []models.LogLine `json:"logs"`
	}

	rec := env.do(http.MethodGet, "/api/logs", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 4, body.Count)

	rec = env.do(http.MethodGet, "/api/logs?min_level=2", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Logs, 2)
	assert.Equal(t, "WARN c", body.Logs[0].Text)

	rec = env.do(http.MethodGet, "/api/logs?min_level=error", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Count)
}
