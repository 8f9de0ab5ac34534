package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/vertx/internal/httpserver/deps"
)

type programResponse struct {
	Name       string            `json:"name"`
	Parameters map[string]string `json:"parameters"`
}

// Program returns the active growth program.
func Program(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, programResponse{
			Name:       d.Program.Name(),
			Parameters: d.Program.Parameters(),
		})
	}
}
