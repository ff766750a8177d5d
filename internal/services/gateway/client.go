// Package gateway calls the engine's REST API.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/prinde/internal/httpclient"
)

// ErrNotFound is returned (wrapped) when the engine answers 404.
var ErrNotFound = errors.New("not found")

const maxErrorBody = 512

// StatusError is a non-2xx answer from the engine.
type StatusError struct {
	Operation  string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: engine returned %d", e.Operation, e.StatusCode)
	}
	return fmt.Sprintf("%s: engine returned %d: %s", e.Operation, e.StatusCode, e.Body)
}

func (e *StatusError) Unwrap() error {
	if e.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	return nil
}

// Recorder receives one call per request. internal/metrics implements it.
type Recorder interface {
	GatewayRequest(operation string, err error)
}

// Client implements interfaces.Gateway over HTTP.
type Client struct {
	baseURL  string
	http     *http.Client
	logger   arbor.ILogger
	recorder Recorder
}

// NewClient creates a client for the API rooted at baseURL. A nil httpClient
// gets a default one with the given timeout.
func NewClient(baseURL string, timeout time.Duration, httpClient *http.Client, logger arbor.ILogger) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid gateway base URL %q", baseURL)
	}
	if httpClient == nil {
		httpClient = httpclient.NewDefaultHTTPClient(timeout)
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		logger:  logger,
	}, nil
}

// SetRecorder attaches a metrics recorder.
func (c *Client) SetRecorder(r Recorder) {
	c.recorder = r
}

// RunNow asks the engine to run a job immediately.
func (c *Client) RunNow(ctx context.Context, jobID string) error {
	_, err := c.get(ctx, "run_now", "api", "job", "run_now", jobID)
	return err
}

// Cancel asks the engine to cancel a job.
func (c *Client) Cancel(ctx context.Context, jobID string) error {
	_, err := c.get(ctx, "cancel", "api", "job", "cancel", jobID)
	return err
}

// Config returns the engine's configuration document.
func (c *Client) Config(ctx context.Context) (json.RawMessage, error) {
	return c.getJSON(ctx, "config", "api", "config")
}

// ReloadConfig starts a configuration reload and returns the id of the reload job.
func (c *Client) ReloadConfig(ctx context.Context) (string, error) {
	body, err := c.get(ctx, "reload_config", "api", "config", "reload")
	if err != nil {
		return "", err
	}
	return parseJobID(body)
}

// Forecasts returns the forecast list.
func (c *Client) Forecasts(ctx context.Context) (json.RawMessage, error) {
	return c.getJSON(ctx, "forecasts", "api", "forecasts")
}

// ReloadForecast asks the engine to re-read one forecast file.
func (c *Client) ReloadForecast(ctx context.Context, file string) error {
	_, err := c.get(ctx, "reload_forecast", "api", "forecasts", "reload", file)
	return err
}

// AddForecastDate adds a run date to a forecast file.
func (c *Client) AddForecastDate(ctx context.Context, file, date string) error {
	_, err := c.get(ctx, "add_forecast_date", "api", "forecasts", "add_date", file, date)
	return err
}

// WeatherData returns the weather station listing.
func (c *Client) WeatherData(ctx context.Context) (json.RawMessage, error) {
	return c.getJSON(ctx, "weather_data", "api", "weather_data")
}

func (c *Client) getJSON(ctx context.Context, operation string, segments ...string) (json.RawMessage, error) {
	body, err := c.get(ctx, operation, segments...)
	if err != nil {
		return nil, err
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("%s: engine returned invalid JSON", operation)
	}
	return json.RawMessage(body), nil
}

func (c *Client) get(ctx context.Context, operation string, segments ...string) (body []byte, err error) {
	defer func() {
		if c.recorder != nil {
			c.recorder.GatewayRequest(operation, err)
		}
	}()

	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = url.PathEscape(s)
	}
	endpoint := c.baseURL + "/" + strings.Join(escaped, "/")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", operation, err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", operation, err)
	}
	defer resp.Body.Close()

	body, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read response: %w", operation, err)
	}

	c.logger.Debug().
		Str("operation", operation).
		Str("url", endpoint).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("Engine request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet := bytes.TrimSpace(body)
		if len(snippet) > maxErrorBody {
			snippet = snippet[:maxErrorBody]
		}
		return nil, &StatusError{Operation: operation, StatusCode: resp.StatusCode, Body: string(snippet)}
	}
	return body, nil
}

// parseJobID accepts a JSON string, a JSON number or bare text.
func parseJobID(body []byte) (string, error) {
	trimmed := bytes.TrimSpace(body)
	var s string
	if err := json.Unmarshal(trimmed, &s); err == nil && s != "" {
		return s, nil
	}
	var n json.Number
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	if err := dec.Decode(&n); err == nil {
		return n.String(), nil
	}
	if len(trimmed) > 0 && !bytes.ContainsAny(trimmed, "{}[]\" \n") {
		return string(trimmed), nil
	}
	return "", fmt.Errorf("reload_config: unexpected job id %q", string(trimmed))
}
