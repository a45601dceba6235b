package dispatcher

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BarkinBalci/feature-flag-events/internal/event"
)

func newLogEvent(url string) *event.LogEvent {
	return &event.LogEvent{
		URL:      url,
		HTTPVerb: http.MethodPost,
		Headers:  map[string]string{"Content-Type": "application/json", "X-Test": "1"},
		Params: event.EventBatch{
			AccountID: "12001",
			ProjectID: "111001",
			Revision:  "42",
			Visitors: []event.Visitor{{
				VisitorID: "user1",
				Snapshots: []event.Snapshot{{Events: []event.SnapshotEvent{{EntityID: "7", Key: "purchase", UUID: "u1", Timestamp: 1}}}},
			}},
		},
	}
}

func newTestDispatcher(maxRetries int) *HTTPDispatcher {
	return NewHTTPDispatcher(HTTPConfig{
		MaxRetries:     maxRetries,
		Timeout:        time.Second,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
	}, zap.NewNop())
}

func TestHTTPDispatcher_Dispatch(t *testing.T) {
	var received event.EventBatch
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "1", r.Header.Get("X-Test"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	err := newTestDispatcher(3).Dispatch(context.Background(), newLogEvent(server.URL))

	require.NoError(t, err)
	assert.Equal(t, "111001", received.ProjectID)
	require.Len(t, received.Visitors, 1)
	assert.Equal(t, "user1", received.Visitors[0].VisitorID)
}

func TestHTTPDispatcher_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	err := newTestDispatcher(3).Dispatch(context.Background(), newLogEvent(server.URL))

	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestHTTPDispatcher_GivesUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	err := newTestDispatcher(2).Dispatch(context.Background(), newLogEvent(server.URL))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status code: 500")
	assert.Equal(t, int32(3), calls.Load())
}

func TestHTTPDispatcher_EndpointOverride(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/v1/events", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	d := NewHTTPDispatcher(HTTPConfig{Endpoint: server.URL + "/v1/events"}, zap.NewNop())
	err := d.Dispatch(context.Background(), newLogEvent("http://127.0.0.1:1/unreachable"))

	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestHTTPDispatcher_ZeroRetriesSendsOnce(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	err := newTestDispatcher(0).Dispatch(context.Background(), newLogEvent(server.URL))

	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}
