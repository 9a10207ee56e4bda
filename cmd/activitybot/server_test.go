package main

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rickgao/artblocks-activity/internal/config"
	"github.com/rickgao/artblocks-activity/internal/metrics"
	"github.com/rickgao/artblocks-activity/internal/notify"
	"github.com/rickgao/artblocks-activity/internal/poller"
)

type fixedStatus poller.Status

func (s fixedStatus) Status() poller.Status { return poller.Status(s) }

func newTestHandler(t *testing.T, status poller.Status) http.Handler {
	t.Helper()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	m.PollCycles.WithLabelValues("ok").Inc()

	cfg := &config.ActivityConfig{
		Metrics: config.MetricsConfig{Path: "/metrics"},
	}
	sink := notify.SinkFunc{SinkName: "discord"}
	return createHandler(handlerDeps{
		cfg:        cfg,
		poller:     fixedStatus(status),
		registry:   reg,
		dispatcher: notify.NewDispatcher(m, nil, sink),
		bans:       notify.NewBanList([]string{"0xabc"}),
	})
}

func TestHealth(t *testing.T) {
	h := newTestHandler(t, poller.Status{Cycles: 3})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Status     string                     `json:"status"`
		Components map[string]json.RawMessage `json:"components"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body.Status)
	assert.Contains(t, body.Components, "poller")
	assert.NotContains(t, body.Components, "archive")
}

func TestHealth_DegradedAfterPollError(t *testing.T) {
	h := newTestHandler(t, poller.Status{Cycles: 1, LastError: "fetch events: timeout"})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"degraded"`)
}

func TestDebugWatermark(t *testing.T) {
	wm := time.Date(2022, 5, 4, 16, 21, 14, 0, time.UTC)
	h := newTestHandler(t, poller.Status{Watermark: wm, Cycles: 7})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/watermark", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, float64(wm.UnixMilli()), body["watermark_ms"])
	assert.Equal(t, float64(7), body["cycles"])
	assert.Equal(t, []any{"discord"}, body["sinks"])
	assert.Equal(t, float64(1), body["banned_addresses"])
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestHandler(t, poller.Status{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `activitybot_poll_cycles_total{result="ok"} 1`)
}

func TestNewLogger(t *testing.T) {
	l := newLogger(config.LogConfig{Level: "warn", Format: "json"})
	assert.False(t, l.Enabled(t.Context(), slog.LevelDebug))
	assert.True(t, l.Enabled(t.Context(), slog.LevelWarn))
}
