package metrics

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrSnakeDoc/vertx/internal/logger"
)

// DefaultQueueSize bounds the pending records of an Async sink.
const DefaultQueueSize = 64

// drainBudget bounds the time spent forwarding queued records at shutdown.
const drainBudget = 5 * time.Second

type record struct {
	name  string
	value string
}

// Async decouples a slow sink from the caller. Record enqueues and returns
// immediately; a single worker forwards records in order. When the queue is
// full the record is dropped.
type Async struct {
	next    Sink
	logger  logger.Logger
	queue   chan record
	timeout time.Duration

	dropped atomic.Int64
	failed  atomic.Int64

	startOnce sync.Once
	stopOnce  sync.Once
	stopCh    chan struct{}
	done      chan struct{}
}

// NewAsync wraps next. timeout bounds each forwarded record, zero means none.
func NewAsync(next Sink, log logger.Logger, queueSize int, timeout time.Duration) *Async {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Async{
		next:    next,
		logger:  log,
		queue:   make(chan record, queueSize),
		timeout: timeout,
		stopCh:  make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Record enqueues a value. It never blocks and never fails.
func (a *Async) Record(_ context.Context, name, value string) error {
	select {
	case <-a.stopCh:
		a.drop(name, value, "sink stopped")
		return nil
	case <-a.done:
		a.drop(name, value, "sink stopped")
		return nil
	default:
	}

	select {
	case a.queue <- record{name: name, value: value}:
	default:
		a.drop(name, value, "queue full")
	}
	return nil
}

func (a *Async) drop(name, value, reason string) {
	n := a.dropped.Add(1)
	a.logger.Warn("metric dropped",
		logger.String("metric", name),
		logger.String("value", value),
		logger.String("reason", reason),
		logger.Int64("dropped_total", n))
}

// Start launches the worker. It returns immediately.
func (a *Async) Start(ctx context.Context) {
	a.startOnce.Do(func() {
		go a.run(ctx)
	})
}

// run forwards records until Stop or ctx cancellation, then drains the
// queue. Forwarding is detached from ctx so a cancelled process context does
// not abort records already accepted; each record is bounded by timeout.
func (a *Async) run(ctx context.Context) {
	defer close(a.done)
	work := context.WithoutCancel(ctx)
	for {
		select {
		case <-a.stopCh:
			a.drain(work)
			return
		case <-ctx.Done():
			a.drain(work)
			return
		case r := <-a.queue:
			a.forward(work, r)
		}
	}
}

// drain forwards what is already queued, within drainBudget. Records left
// once the budget is spent are dropped.
func (a *Async) drain(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, drainBudget)
	defer cancel()
	for {
		select {
		case r := <-a.queue:
			if ctx.Err() != nil {
				a.drop(r.name, r.value, "shutdown budget spent")
				continue
			}
			a.forward(ctx, r)
		default:
			return
		}
	}
}

func (a *Async) forward(ctx context.Context, r record) {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}
	if err := a.next.Record(ctx, r.name, r.value); err != nil {
		a.failed.Add(1)
		a.logger.Warn("failed to record metric",
			logger.String("metric", r.name),
			logger.String("value", r.value),
			logger.Error(err))
	}
}

// Stop forwards the records still queued, then stops the worker. The worker
// also drains and exits on its own when the Start context is cancelled. It is safe
// to call more than once and before Start.
func (a *Async) Stop() {
	a.stopOnce.Do(func() {
		close(a.stopCh)
	})
	// never started: nothing will close done
	a.startOnce.Do(func() { close(a.done) })
	<-a.done
}

// Dropped returns the number of records lost to a full queue or a stopped sink.
func (a *Async) Dropped() int64 { return a.dropped.Load() }

// Failed returns the number of records the wrapped sink rejected.
func (a *Async) Failed() int64 { return a.failed.Load() }

// Pending returns the number of records waiting in the queue.
func (a *Async) Pending() int { return len(a.queue) }
