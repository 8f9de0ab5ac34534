package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/vertx/internal/httpserver/deps"
	"github.com/MrSnakeDoc/vertx/internal/httpserver/handlers"
)

func init() { Register("status", Operator, registerStatus) }

func registerStatus(r chi.Router, d deps.Deps) {
	r.Get("/link", handlers.Link(d))
	r.Get("/program", handlers.Program(d))
	r.Get("/telemetry", handlers.Telemetry(d))
	r.Get("/telemetry/{name}/history", handlers.History(d))
}
