package protocol

import (
	"fmt"

	"github.com/MrSnakeDoc/vertx/internal/logger"
)

// Handler processes the payload of one category.
type Handler interface {
	Handle(payload string)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(payload string)

func (f HandlerFunc) Handle(payload string) { f(payload) }

// Router dispatches inbound lines to the handler registered for their
// category. It never fails: unknown categories, malformed lines and handler
// panics are logged and dropped so the read loop keeps running.
type Router struct {
	handlers map[Category]Handler
	logger   logger.Logger
}

// NewRouter builds the fixed dispatch table.
func NewRouter(log logger.Logger, diagnostic, handshake, telemetry Handler) *Router {
	return &Router{
		handlers: map[Category]Handler{
			CategoryDiagnostic: diagnostic,
			CategoryHandshake:  handshake,
			CategoryTelemetry:  telemetry,
		},
		logger: log,
	}
}

// Route parses line and hands its payload to exactly one handler.
func (r *Router) Route(line string) {
	msg, err := ParseLine(line)
	if err != nil {
		r.logger.Error("malformed line from growth unit",
			logger.String("line", line))
		return
	}

	h, ok := r.handlers[msg.Category]
	if !ok || h == nil {
		r.logger.Error(fmt.Sprintf("unknown command %s", msg.Category),
			logger.String("category", string(msg.Category)),
			logger.String("payload", msg.Payload))
		return
	}

	r.dispatch(msg, h)
}

func (r *Router) dispatch(msg Message, h Handler) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("handler panicked",
				logger.String("category", string(msg.Category)),
				logger.String("payload", msg.Payload),
				logger.Any("panic", rec))
		}
	}()
	h.Handle(msg.Payload)
}
