package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/vertx/internal/httpserver/deps"
)

type healthzResponse struct {
	Status        string  `json:"status"`
	Program       string  `json:"program,omitempty"`
	UptimeSeconds float64 `json:"uptime_seconds"`
	Version       string  `json:"version,omitempty"`
	Commit        string  `json:"commit,omitempty"`
	BuildDate     string  `json:"build_date,omitempty"`
	GoVersion     string  `json:"go_version,omitempty"`
}

// Healthz reports that the process is alive, whatever the link state.
func Healthz(d deps.Deps) http.HandlerFunc {
	start := d.StartTime
	return func(w http.ResponseWriter, r *http.Request) {
		resp := healthzResponse{
			Status:        "ok",
			Version:       d.Version,
			Commit:        d.Commit,
			BuildDate:     d.BuildDate,
			GoVersion:     d.GoVersion,
			UptimeSeconds: d.Now().Sub(start).Seconds(),
		}
		if d.Program != nil {
			resp.Program = d.Program.Name()
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
