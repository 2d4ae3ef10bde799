package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"soundlink/internal/reconnect"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(t *testing.T) (*gin.Engine, *reconnect.Store) {
	t.Helper()
	store := reconnect.NewStore(reconnect.StoreConfig{})
	return NewRouter(Config{Store: store}), store
}

func doJSON(t *testing.T, r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, into any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), into))
}

func TestPlanReturnsAnalysisAndSchedule(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/v1/reconnect/plan", `{
		"clientId": "desk-1",
		"reason": "ping timeout detected",
		"history": {"recentFailures": 6, "networkType": "wifi"}
	}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp planResponse
	decode(t, w, &resp)
	assert.Equal(t, "desk-1", resp.ClientID)
	assert.Equal(t, reconnect.CauseNetworkTimeout, resp.Analysis.Cause)
	assert.Equal(t, reconnect.StrategyExponentialBackoff, resp.Analysis.Strategy)
	assert.InDelta(t, 2.25, resp.Analysis.BackoffMultiplier, 1e-9)
	require.Len(t, resp.Schedule, resp.Analysis.MaxAttempts)
	assert.Equal(t, 1, resp.Schedule[0].Attempt)
	// A client with no history predicts at the neutral default.
	assert.InDelta(t, 0.7, resp.PredictedSuccess, 1e-9)
}

func TestPlanUserPromptEmptySchedule(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/v1/reconnect/plan", `{
		"clientId": "desk-1",
		"reason": "client namespace disconnect"
	}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp planResponse
	decode(t, w, &resp)
	assert.Equal(t, reconnect.StrategyUserPrompt, resp.Analysis.Strategy)
	assert.Empty(t, resp.Schedule)
}

func TestPlanRejectsBadInput(t *testing.T) {
	r, _ := newTestRouter(t)

	cases := map[string]string{
		"missing clientId":  `{"reason": "ping timeout"}`,
		"negative failures": `{"clientId": "d", "history": {"recentFailures": -1}}`,
		"negative base":     `{"clientId": "d", "baseDelayMs": -5}`,
		"not json":          `{{`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			w := doJSON(t, r, http.MethodPost, "/v1/reconnect/plan", body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestTrackAttemptAndStats(t *testing.T) {
	r, store := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/v1/reconnect/attempts",
		`{"clientId": "desk-2", "attempt": 1, "success": true, "durationMs": 1200}`)
	require.Equal(t, http.StatusAccepted, w.Code)

	state, ok := store.State("desk-2")
	require.True(t, ok)
	assert.Equal(t, 1, state.Successes)

	w = doJSON(t, r, http.MethodGet, "/v1/stats", "")
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Stats          reconnect.Stats `json:"stats"`
		TrackedClients int             `json:"trackedClients"`
	}
	decode(t, w, &resp)
	assert.Equal(t, int64(1), resp.Stats.TotalAttempts)
	assert.Equal(t, 1, resp.TrackedClients)
}

func TestTrackAttemptValidation(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/v1/reconnect/attempts",
		`{"clientId": "desk-2", "attempt": 0}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodPost, "/v1/reconnect/attempts",
		`{"attempt": 1}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRecommendationsEndpoint(t *testing.T) {
	r, store := newTestRouter(t)

	for i := 1; i <= 10; i++ {
		store.Track("desk-3", i, false, 500)
	}

	w := doJSON(t, r, http.MethodGet, "/v1/clients/desk-3/recommendations", "")
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Recommendations []reconnect.Recommendation `json:"recommendations"`
	}
	decode(t, w, &resp)
	require.NotEmpty(t, resp.Recommendations)
	assert.Equal(t, reconnect.PriorityHigh, resp.Recommendations[0].Priority)

	// Unknown clients get an empty list, not a 404.
	w = doJSON(t, r, http.MethodGet, "/v1/clients/ghost/recommendations", "")
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &resp)
	assert.Empty(t, resp.Recommendations)
}

func TestPredictionEndpoint(t *testing.T) {
	r, store := newTestRouter(t)

	for i := 1; i <= 5; i++ {
		store.Track("desk-4", i, true, 300)
	}

	w := doJSON(t, r, http.MethodGet, "/v1/clients/desk-4/prediction?strategy=immediate_retry", "")
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		PredictedSuccess float64 `json:"predictedSuccess"`
	}
	decode(t, w, &resp)
	assert.InDelta(t, 0.8, resp.PredictedSuccess, 1e-9)

	w = doJSON(t, r, http.MethodGet, "/v1/clients/desk-4/prediction?strategy=teleport", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestResetClient(t *testing.T) {
	r, store := newTestRouter(t)
	store.Track("desk-5", 1, true, 100)

	w := doJSON(t, r, http.MethodDelete, "/v1/clients/desk-5", "")
	assert.Equal(t, http.StatusOK, w.Code)
	_, ok := store.State("desk-5")
	assert.False(t, ok)

	w = doJSON(t, r, http.MethodDelete, "/v1/clients/desk-5", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHealthz(t *testing.T) {
	store := reconnect.NewStore(reconnect.StoreConfig{})

	r := NewRouter(Config{Store: store})
	w := doJSON(t, r, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)

	r = NewRouter(Config{Store: store, Ready: func() error { return errors.New("db down") }})
	w = doJSON(t, r, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	store := reconnect.NewStore(reconnect.StoreConfig{})
	reg := prometheus.NewRegistry()

	r := NewRouter(Config{Store: store, Gatherer: reg})
	w := doJSON(t, r, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
}
