package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/vertx/internal/httpserver/deps"
	"github.com/MrSnakeDoc/vertx/internal/httpserver/handlers"
)

func init() {
	Register("liveness", Public, func(r chi.Router, d deps.Deps) {
		r.Get("/healthz", handlers.Healthz(d))
	})
	Register("readiness", Internal, func(r chi.Router, d deps.Deps) {
		r.Get("/readyz", handlers.Readyz(d))
	})
	Register("infra", Operator, func(r chi.Router, d deps.Deps) {
		r.Get("/infra", handlers.Infra(d))
	})
}
