package routes

import (
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/vertx/internal/httpserver/deps"
	"github.com/MrSnakeDoc/vertx/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/vertx/internal/httpserver/mw"
)

func init() { Register("stop", Operator, registerStop) }

func registerStop(r chi.Router, d deps.Deps) {
	r.With(mw.RateLimit(mw.RateLimitConfig{
		Burst:             3,
		RefillPerIPPerMin: 6,
		MaxEntries:        1024,
		IdleTTL:           15 * time.Minute,
		TrustProxy:        d.TrustProxy,
		Logger:            d.Logger,
	})).Post("/stop", handlers.Stop(d))
}
