package confirm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

// MockGateway is a mock implementation of interfaces.Gateway
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) RunNow(ctx context.Context, jobID string) error {
	return m.Called(ctx, jobID).Error(0)
}

func (m *MockGateway) Cancel(ctx context.Context, jobID string) error {
	return m.Called(ctx, jobID).Error(0)
}

func (m *MockGateway) Config(ctx context.Context) (json.RawMessage, error) {
	args := m.Called(ctx)
	raw, _ := args.Get(0).(json.RawMessage)
	return raw, args.Error(1)
}

func (m *MockGateway) ReloadConfig(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockGateway) Forecasts(ctx context.Context) (json.RawMessage, error) {
	args := m.Called(ctx)
	raw, _ := args.Get(0).(json.RawMessage)
	return raw, args.Error(1)
}

func (m *MockGateway) ReloadForecast(ctx context.Context, file string) error {
	return m.Called(ctx, file).Error(0)
}

func (m *MockGateway) AddForecastDate(ctx context.Context, file, date string) error {
	return m.Called(ctx, file, date).Error(0)
}

func (m *MockGateway) WeatherData(ctx context.Context) (json.RawMessage, error) {
	args := m.Called(ctx)
	raw, _ := args.Get(0).(json.RawMessage)
	return raw, args.Error(1)
}

func newTestService() *Service {
	return NewService(arbor.NewNoOpLogger(), time.Minute)
}

func TestService_AcceptRunsOperation(t *testing.T) {
	svc := newTestService()
	gw := new(MockGateway)
	gw.On("RunNow", mock.Anything, "12").Return(nil).Once()

	action := NewActions(svc, gw).RunNow("12")
	assert.Equal(t, `run job "12" now`, action.Description)

	result, err := svc.Accept(context.Background(), action.ID)
	require.NoError(t, err)
	assert.Equal(t, Home, result.Navigate)
	gw.AssertExpectations(t)

	_, err = svc.Accept(context.Background(), action.ID)
	assert.ErrorIs(t, err, ErrActionNotFound, "an action runs at most once")
}

func TestService_RejectHasNoSideEffect(t *testing.T) {
	svc := newTestService()
	gw := new(MockGateway)

	action := NewActions(svc, gw).Cancel("3")
	require.NoError(t, svc.Reject(action.ID))

	gw.AssertNotCalled(t, "Cancel", mock.Anything, mock.Anything)
	assert.Empty(t, svc.Pending())
	assert.ErrorIs(t, svc.Reject(action.ID), ErrActionNotFound)
}

func TestService_ReloadConfigNavigatesToJob(t *testing.T) {
	svc := newTestService()
	gw := new(MockGateway)
	gw.On("ReloadConfig", mock.Anything).Return("88", nil)

	action := NewActions(svc, gw).ReloadConfig()
	result, err := svc.Accept(context.Background(), action.ID)

	require.NoError(t, err)
	assert.Equal(t, "/job/88", result.Navigate)
}

func TestService_FailedOperation(t *testing.T) {
	svc := newTestService()
	gw := new(MockGateway)
	gw.On("ReloadForecast", mock.Anything, "a.ini").Return(errors.New("engine down"))

	action := NewActions(svc, gw).ReloadForecast("a.ini")
	_, err := svc.Accept(context.Background(), action.ID)

	require.Error(t, err)
	assert.Contains(t, err.Error(), `reload forecast file "a.ini"`)
	assert.Empty(t, svc.Pending())
}

func TestService_Expiry(t *testing.T) {
	svc := newTestService()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	first := svc.Request("first", func(ctx context.Context) (string, error) { return Home, nil })
	now = now.Add(30 * time.Second)
	second := svc.Request("second", func(ctx context.Context) (string, error) { return Home, nil })

	pending := svc.Pending()
	require.Len(t, pending, 2)
	assert.Equal(t, first.ID, pending[0].ID)

	now = now.Add(45 * time.Second)
	_, err := svc.Accept(context.Background(), first.ID)
	assert.ErrorIs(t, err, ErrActionNotFound)

	_, err = svc.Accept(context.Background(), second.ID)
	assert.NoError(t, err)
}

func TestPrompter_Resolve(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		ran    bool
		called bool
	}{
		{"yes", "y\n", true, true},
		{"full yes", " YES \n", true, true},
		{"no", "n\n", false, false},
		{"empty", "\n", false, false},
		{"eof", "", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService()
			gw := new(MockGateway)
			gw.On("AddForecastDate", mock.Anything, "f.ini", "2024-02-03").Return(nil).Maybe()
			action := NewActions(svc, gw).AddForecastDate("f.ini", "2024-02-03")

			var out bytes.Buffer
			prompter := NewPrompter(strings.NewReader(tt.input), &out)
			_, ran, err := prompter.Resolve(context.Background(), svc, action)

			require.NoError(t, err)
			assert.Equal(t, tt.ran, ran)
			assert.Contains(t, out.String(), `Are you sure you want to add date 2024-02-03 to forecast file "f.ini"? [y/N]`)
			if tt.called {
				gw.AssertCalled(t, "AddForecastDate", mock.Anything, "f.ini", "2024-02-03")
			} else {
				gw.AssertNotCalled(t, "AddForecastDate", mock.Anything, mock.Anything, mock.Anything)
			}
			assert.Empty(t, svc.Pending())
		})
	}
}
