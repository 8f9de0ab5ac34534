package protocol

import (
	"github.com/MrSnakeDoc/vertx/internal/logger"
)

// DiagnosticHandler reports the read health codes the device sends about
// its own serial input (ARDUINO_READ).
type DiagnosticHandler struct {
	logger logger.Logger
}

func NewDiagnosticHandler(log logger.Logger) *DiagnosticHandler {
	return &DiagnosticHandler{logger: log}
}

// Handle logs WARNING, ERROR and OK at warn, error and info level.
// Other codes are ignored.
func (h *DiagnosticHandler) Handle(code string) {
	switch code {
	case "WARNING":
		h.logger.Warn("transient read error on growth unit")
	case "ERROR":
		h.logger.Error("recurring read error on growth unit")
	case "OK":
		h.logger.Info("growth unit read recovered")
	}
}
