package scheduler

import (
	"context"
	"time"

	"github.com/MrSnakeDoc/vertx/internal/index"
	"github.com/MrSnakeDoc/vertx/internal/logger"
)

// DefaultStaleAfter is the age after which a reading is no longer reported.
const DefaultStaleAfter = 15 * time.Minute

// StaleSweeper periodically evicts readings the device stopped refreshing,
// so the API does not serve a frozen sensor as current. Only the in-memory
// table is swept, persisted history is left untouched.
type StaleSweeper struct {
	index      *index.Readings
	logger     logger.Logger
	interval   time.Duration
	staleAfter time.Duration
	now        func() time.Time
	stopCh     chan struct{}
	done       chan struct{}
}

func NewStaleSweeper(idx *index.Readings, log logger.Logger, interval, staleAfter time.Duration) *StaleSweeper {
	if staleAfter == 0 {
		staleAfter = DefaultStaleAfter
	}

	return &StaleSweeper{
		index:      idx,
		logger:     log,
		interval:   interval,
		staleAfter: staleAfter,
		now:        time.Now,
		stopCh:     make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Start launches the periodic sweep and returns.
func (s *StaleSweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	go func() {
		defer close(s.done)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.Sweep()
			case <-s.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop stops the sweeper and waits for it to exit. Start must have been called.
func (s *StaleSweeper) Stop() {
	close(s.stopCh)
	<-s.done
}

// Sweep removes stale readings and returns how many were removed.
func (s *StaleSweeper) Sweep() int {
	now := s.now()
	removed := 0

	for _, r := range s.index.Snapshot() {
		if !r.IsStale(now, s.staleAfter) {
			continue
		}

		s.index.Delete(r.Name)
		s.logger.Warn("evicted stale reading",
			logger.String("metric", r.Name),
			logger.String("last_value", r.Value),
			logger.String("age", now.Sub(r.RecordedAt).Round(time.Second).String()))
		removed++
	}

	if removed == 0 {
		s.logger.Debug("no stale readings")
	}
	return removed
}
