package scheduler

import (
	"context"

	"github.com/MrSnakeDoc/vertx/internal/domain"
	"github.com/MrSnakeDoc/vertx/internal/index"
	"github.com/MrSnakeDoc/vertx/internal/logger"
)

// ReadingSource lists the latest persisted readings.
type ReadingSource interface {
	All(ctx context.Context) ([]domain.Reading, error)
}

// ReadingsRestorer warms the in-memory readings from the telemetry store on
// startup, so the API has values before the device reports again.
type ReadingsRestorer struct {
	source ReadingSource
	index  *index.Readings
	logger logger.Logger
}

func NewReadingsRestorer(source ReadingSource, idx *index.Readings, log logger.Logger) *ReadingsRestorer {
	return &ReadingsRestorer{
		source: source,
		index:  idx,
		logger: log,
	}
}

// Restore copies every persisted reading newer than what the index holds.
func (rr *ReadingsRestorer) Restore(ctx context.Context) error {
	readings, err := rr.source.All(ctx)
	if err != nil {
		return err
	}

	if len(readings) == 0 {
		rr.logger.Info("no readings found in telemetry store")
		return nil
	}

	n := rr.index.Restore(readings)
	rr.logger.Info("restored readings from telemetry store",
		logger.Int("found", len(readings)),
		logger.Int("restored", n))
	return nil
}
