package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/vertx/internal/httpserver/deps"
	"github.com/MrSnakeDoc/vertx/internal/link"
)

type componentStatus struct {
	OK         bool   `json:"ok"`
	State      string `json:"state,omitempty"`
	Count      *int   `json:"count,omitempty"`
	Pending    *int   `json:"pending,omitempty"`
	Dropped    *int64 `json:"dropped,omitempty"`
	Failed     *int64 `json:"failed,omitempty"`
	LastUpdate string `json:"last_update,omitempty"`
	Impact     string `json:"impact,omitempty"`
	Error      string `json:"error,omitempty"`
}

type infraResponse struct {
	Mode       string                     `json:"mode"`
	Components map[string]componentStatus `json:"components"`
}

// Infra reports every component the controller depends on.
func Infra(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st := d.Link.Status()

		count := d.Readings.Count()
		lastUpdate := "never"
		if lu := d.Readings.LastUpdate(); !lu.IsZero() {
			lastUpdate = lu.Format(time.RFC3339)
		}

		components := map[string]componentStatus{
			"link": {
				OK:    st.State == link.Connected,
				State: st.StateName,
			},
			"readings": {
				OK:         true,
				Count:      &count,
				LastUpdate: lastUpdate,
			},
			"telemetry_store": checkTelemetryStore(r.Context(), d),
			"remote_metrics":  checkRemoteMetrics(d),
		}

		writeJSON(w, http.StatusOK, infraResponse{
			Mode:       determineMode(components),
			Components: components,
		})
	}
}

func determineMode(components map[string]componentStatus) string {
	if l, ok := components["link"]; ok && !l.OK {
		return "critical" // device unreachable, nothing is controlled
	}
	if s, ok := components["telemetry_store"]; ok && !s.OK {
		return "degraded"
	}
	return "nominal"
}

func checkTelemetryStore(ctx context.Context, d deps.Deps) componentStatus {
	if d.Telemetry == nil {
		return componentStatus{
			OK:     false,
			Impact: "history-disabled",
			Error:  "not configured",
		}
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := d.Telemetry.Ping(ctx); err != nil {
		return componentStatus{
			OK:     false,
			Impact: "history-unavailable",
			Error:  err.Error(),
		}
	}
	return componentStatus{OK: true}
}

// remote metrics never change the mode: losing them costs history, not control
func checkRemoteMetrics(d deps.Deps) componentStatus {
	if d.Metrics == nil {
		return componentStatus{OK: true, State: "disabled"}
	}
	pending, dropped, failed := d.Metrics.Pending(), d.Metrics.Dropped(), d.Metrics.Failed()
	st := componentStatus{
		OK:      true,
		State:   "enabled",
		Pending: &pending,
		Dropped: &dropped,
		Failed:  &failed,
	}
	if dropped > 0 || failed > 0 {
		st.Impact = "records-lost"
	}
	return st
}
