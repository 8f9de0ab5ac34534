package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/vertx/internal/httpserver/deps"
	"github.com/MrSnakeDoc/vertx/internal/logger"
)

// Stop asks the controller to shut down, like typing exit on the console.
func Stop(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		select {
		case d.StopTrigger <- struct{}{}:
			d.Logger.Info("operator stop requested via endpoint",
				logger.String("remote_ip", r.RemoteAddr))
			w.WriteHeader(http.StatusAccepted)
			if _, err := w.Write([]byte("✅ Stop requested\n")); err != nil {
				d.Logger.Debug("failed to write response", logger.Error(err))
			}
		default:
			d.Logger.Warn("operator stop already requested",
				logger.String("remote_ip", r.RemoteAddr))
			w.WriteHeader(http.StatusTooManyRequests)
			if _, err := w.Write([]byte("⏳ Stop already in progress\n")); err != nil {
				d.Logger.Debug("failed to write response", logger.Error(err))
			}
		}
	}
}
