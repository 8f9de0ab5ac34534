package redis

import (
	"time"

	"github.com/MrSnakeDoc/vertx/internal/logger"
)

type connectionLogger struct {
	logger logger.Logger
	addr   string
}

func (cl *connectionLogger) logConnectionStart(timeout time.Duration) {
	cl.logger.Info("connecting to telemetry store",
		logger.String("addr", cl.addr),
		logger.Duration("timeout", timeout))
}

func (cl *connectionLogger) logSuccess(attempts int, elapsed time.Duration) {
	if attempts > 1 {
		cl.logger.Warn("telemetry store reachable after retry",
			logger.String("addr", cl.addr),
			logger.Int("attempts", attempts),
			logger.Duration("elapsed", elapsed))
		return
	}
	cl.logger.Info("telemetry store reachable", logger.String("addr", cl.addr))
}

func (cl *connectionLogger) logGiveUp(attempts int, timeout time.Duration, err error) {
	cl.logger.Error("telemetry store unavailable, giving up",
		logger.String("addr", cl.addr),
		logger.Int("attempts", attempts),
		logger.Duration("timeout", timeout),
		logger.Error(err))
}

// logRetry escalates to error once the warn threshold is passed or less than
// ten seconds of budget remain.
func (cl *connectionLogger) logRetry(attempt int, remaining, next time.Duration, warnThreshold int, err error) {
	fields := []logger.Field{
		logger.String("addr", cl.addr),
		logger.Int("attempt", attempt),
		logger.Duration("remaining", remaining),
		logger.Duration("next_retry_in", next),
		logger.Error(err),
	}
	if attempt <= warnThreshold && remaining >= 10*time.Second {
		cl.logger.Warn("telemetry store ping failed, retrying", fields...)
		return
	}
	cl.logger.Error("telemetry store still down", fields...)
}
