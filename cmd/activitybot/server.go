package main

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rickgao/artblocks-activity/internal/config"
	"github.com/rickgao/artblocks-activity/internal/notify"
	"github.com/rickgao/artblocks-activity/internal/poller"
	"github.com/rickgao/artblocks-activity/internal/stream"
	"github.com/rickgao/artblocks-activity/internal/version"
)

// statusSource is the read-only view of the poller used by the HTTP handlers.
type statusSource interface {
	Status() poller.Status
}

type handlerDeps struct {
	cfg        *config.ActivityConfig
	poller     statusSource
	pool       *pgxpool.Pool // nil when the archive is disabled
	hub        *stream.Hub   // nil when the live stream is disabled
	registry   prometheus.Gatherer
	dispatcher *notify.Dispatcher
	bans       *notify.BanList
}

// createHandler creates the HTTP handler for health, debug, metrics and the live stream.
func createHandler(deps handlerDeps) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		health := struct {
			Status     string         `json:"status"`
			Version    string         `json:"version"`
			Components map[string]any `json:"components"`
		}{
			Status:     "healthy",
			Version:    version.String(),
			Components: make(map[string]any),
		}

		// Check database
		if deps.pool != nil {
			if err := deps.pool.Ping(ctx); err != nil {
				health.Status = "unhealthy"
				health.Components["archive"] = map[string]string{
					"status": "disconnected",
					"error":  err.Error(),
				}
			} else {
				health.Components["archive"] = "connected"
			}
		}

		// Check poller
		status := deps.poller.Status()
		poll := map[string]any{
			"cycles":       status.Cycles,
			"last_poll_at": status.LastPollAt,
		}
		if status.LastError != "" {
			poll["last_error"] = status.LastError
			if health.Status == "healthy" {
				health.Status = "degraded"
			}
		}
		health.Components["poller"] = poll

		if deps.hub != nil {
			health.Components["stream"] = map[string]int{"subscribers": deps.hub.Subscribers()}
		}

		// Set response
		w.Header().Set("Content-Type", "application/json")
		if health.Status == "unhealthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(health)
	})

	mux.HandleFunc("/debug/watermark", func(w http.ResponseWriter, r *http.Request) {
		status := deps.poller.Status()

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"watermark":        status.Watermark,
			"watermark_ms":     status.Watermark.UnixMilli(),
			"cycles":           status.Cycles,
			"last_poll_at":     status.LastPollAt,
			"last_error":       status.LastError,
			"sinks":            deps.dispatcher.Sinks(),
			"banned_addresses": deps.bans.Len(),
		})
	})

	mux.Handle(deps.cfg.Metrics.Path, promhttp.HandlerFor(deps.registry, promhttp.HandlerOpts{}))

	if deps.hub != nil {
		mux.Handle(deps.cfg.Stream.Path, deps.hub)
	}

	return mux
}
