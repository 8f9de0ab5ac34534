package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/vertx/internal/httpserver/deps"
)

// Link returns the device link snapshot.
func Link(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, d.Link.Status())
	}
}
