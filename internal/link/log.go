package link

import (
	"time"

	"github.com/MrSnakeDoc/vertx/internal/logger"
)

// connectionLogger handles all link connection logging.
type connectionLogger struct {
	logger logger.Logger
	path   string
	baud   int
}

func (cl *connectionLogger) logConnectionStart() {
	cl.logger.Info("connecting to growth unit",
		logger.String("path", cl.path),
		logger.Int("baud", cl.baud))
}

func (cl *connectionLogger) logSuccess(reconnects int) {
	if reconnects > 0 {
		cl.logger.Warn("growth unit reconnected",
			logger.String("path", cl.path),
			logger.Int("reconnects", reconnects))
		return
	}
	cl.logger.Info("growth unit connected",
		logger.String("path", cl.path))
}

func (cl *connectionLogger) logRetry(attempt int, nextRetry time.Duration, err error) {
	cl.logger.Debug("growth unit connection failed, retrying",
		logger.String("path", cl.path),
		logger.Int("attempt", attempt),
		logger.Duration("next_retry_in", nextRetry),
		logger.Error(err))
}

func (cl *connectionLogger) logBudgetExceeded(attempt, ceiling int, err error) {
	cl.logger.Error("link acquisition exceeding retry budget",
		logger.String("path", cl.path),
		logger.Int("attempts", attempt),
		logger.Int("ceiling", ceiling),
		logger.Error(err))
}

func (cl *connectionLogger) logLost(err error) {
	cl.logger.Warn("growth unit link lost, reconnecting",
		logger.String("path", cl.path),
		logger.Error(err))
}
