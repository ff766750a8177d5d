package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEngine struct {
	mu    sync.Mutex
	paths []string
}

func (f *fakeEngine) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.paths = append(f.paths, r.URL.Path)
	f.mu.Unlock()

	switch r.URL.Path {
	case "/api/config/reload":
		w.Write([]byte(`55`))
	case "/api/weather_data":
		w.Write([]byte(`{"oslo": "rain", "rome": "sun", "bergen": "rain"}`))
	default:
		w.WriteHeader(http.StatusOK)
	}
}

func (f *fakeEngine) requested() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.paths...)
}

// execute runs the CLI against a fake engine with the given stdin.
func execute(t *testing.T, stdin string, args ...string) (*fakeEngine, string, error) {
	t.Helper()
	engine := &fakeEngine{}
	ts := httptest.NewServer(engine)
	t.Cleanup(ts.Close)

	t.Setenv("PRINDE_GATEWAY_URL", ts.URL)
	t.Setenv("PRINDE_LOG_OUTPUT", "stdout")
	t.Setenv("PRINDE_LOG_LEVEL", "error")
	assumeYes = false
	configFiles = nil

	var out bytes.Buffer
	rootCmd.SetArgs(args)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	err := rootCmd.Execute()
	return engine, out.String(), err
}

func TestRunNow_AssumeYes(t *testing.T) {
	engine, out, err := execute(t, "", "run-now", "7", "--yes")
	require.NoError(t, err)
	assert.Equal(t, []string{"/api/job/run_now/7"}, engine.requested())
	assert.Contains(t, out, "Done: /")
}

func TestReloadConfig_PromptAccepted(t *testing.T) {
	engine, out, err := execute(t, "y\n", "reload-config")
	require.NoError(t, err)
	assert.Equal(t, []string{"/api/config/reload"}, engine.requested())
	assert.Contains(t, out, "Are you sure you want to reload system configuration? [y/N] ")
	assert.Contains(t, out, "Done: /job/55")
}

func TestCancel_PromptDeclined(t *testing.T) {
	engine, out, err := execute(t, "n\n", "cancel", "3")
	require.NoError(t, err)
	assert.Empty(t, engine.requested())
	assert.Contains(t, out, "Cancelled")
}

func TestAddDate_RejectsBadDate(t *testing.T) {
	engine, _, err := execute(t, "", "add-date", "a.csv", "03/01/2024", "--yes")
	assert.Error(t, err)
	assert.Empty(t, engine.requested())
}

func TestAddDate_Confirmed(t *testing.T) {
	engine, _, err := execute(t, "", "add-date", "a.csv", "2024-03-01", "--yes")
	require.NoError(t, err)
	assert.Equal(t, []string{"/api/forecasts/add_date/a.csv/2024-03-01"}, engine.requested())
}

func TestWeather_Printed(t *testing.T) {
	_, out, err := execute(t, "", "weather")
	require.NoError(t, err)
	assert.Contains(t, out, "rain: oslo, bergen\n")
	assert.Contains(t, out, "sun: rome\n")
}
