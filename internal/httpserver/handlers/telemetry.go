package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/vertx/internal/domain"
	"github.com/MrSnakeDoc/vertx/internal/httpserver/deps"
	"github.com/MrSnakeDoc/vertx/internal/logger"
)

const (
	defaultHistoryLimit = 100
	maxHistoryLimit     = 1000
)

type forwardingStats struct {
	Pending int   `json:"pending"`
	Dropped int64 `json:"dropped"`
	Failed  int64 `json:"failed"`
}

type telemetryResponse struct {
	Count      int              `json:"count"`
	LastUpdate *time.Time       `json:"last_update,omitempty"`
	Readings   []domain.Reading `json:"readings"`
	Forwarding *forwardingStats `json:"forwarding,omitempty"`
}

type historyResponse struct {
	Name    string          `json:"name"`
	Samples []domain.Sample `json:"samples"`
}

// Telemetry returns the latest value of every metric.
func Telemetry(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := telemetryResponse{Readings: d.Readings.Snapshot()}
		resp.Count = len(resp.Readings)
		if lu := d.Readings.LastUpdate(); !lu.IsZero() {
			resp.LastUpdate = &lu
		}
		if d.Metrics != nil {
			resp.Forwarding = &forwardingStats{
				Pending: d.Metrics.Pending(),
				Dropped: d.Metrics.Dropped(),
				Failed:  d.Metrics.Failed(),
			}
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// History returns the persisted samples of one metric, newest first.
func History(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if d.Telemetry == nil {
			writeError(w, http.StatusServiceUnavailable, "telemetry store disabled")
			return
		}

		name := chi.URLParam(r, "name")
		limit := defaultHistoryLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 {
				writeError(w, http.StatusBadRequest, "limit must be a positive integer")
				return
			}
			limit = min(n, maxHistoryLimit)
		}

		samples, err := d.Telemetry.History(r.Context(), name, limit)
		if err != nil {
			d.Logger.Warn("failed to read metric history",
				logger.String("metric", name),
				logger.Error(err))
			writeError(w, http.StatusBadGateway, "telemetry store unavailable")
			return
		}

		writeJSON(w, http.StatusOK, historyResponse{Name: name, Samples: samples})
	}
}
