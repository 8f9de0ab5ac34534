package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/vertx/internal/httpserver/deps"
	"github.com/MrSnakeDoc/vertx/internal/link"
)

type readyzResponse struct {
	Ready bool   `json:"ready"`
	Link  string `json:"link"`
}

// Readyz is ready only while the device link is Connected.
func Readyz(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st := d.Link.Status()
		ready := st.State == link.Connected

		status := http.StatusOK
		if !ready {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, readyzResponse{Ready: ready, Link: st.StateName})
	}
}
