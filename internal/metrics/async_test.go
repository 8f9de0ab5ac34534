package metrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/MrSnakeDoc/vertx/internal/logger"
)

// blockingSink holds every record until released.
type blockingSink struct {
	memorySink
	release chan struct{}
}

func (s *blockingSink) Record(ctx context.Context, name, value string) error {
	<-s.release
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.memorySink.Record(ctx, name, value)
}

func TestAsyncForwardsInOrder(t *testing.T) {
	next := &memorySink{}
	a := NewAsync(next, logger.Nop(), 8, time.Second)
	a.Start(context.Background())

	for _, v := range []string{"1", "2", "3"} {
		if err := a.Record(context.Background(), "fan_state", v); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}
	a.Stop()

	got := next.all()
	want := []string{"fan_state=1", "fan_state=2", "fan_state=3"}
	if len(got) != len(want) {
		t.Fatalf("forwarded %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("record %d = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestAsyncDropsWhenFull(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	next := &blockingSink{release: make(chan struct{})}
	a := NewAsync(next, logger.NewFromCore(core), 1, 0)

	// not started: the queue holds exactly one record
	_ = a.Record(context.Background(), "air_temp", "20.00")
	_ = a.Record(context.Background(), "air_temp", "21.00")
	_ = a.Record(context.Background(), "air_temp", "22.00")

	if a.Dropped() != 2 {
		t.Errorf("Dropped() = %d, want 2", a.Dropped())
	}
	if logs.FilterMessage("metric dropped").Len() != 2 {
		t.Errorf("expected two drop warnings, got %v", logs.All())
	}

	a.Start(context.Background())
	close(next.release)
	a.Stop()

	if got := next.all(); len(got) != 1 || got[0] != "air_temp=20.00" {
		t.Errorf("forwarded %v, want only the queued record", got)
	}
}

func TestAsyncLogsSinkFailures(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	a := NewAsync(&memorySink{err: errors.New("remote down")}, logger.NewFromCore(core), 4, 0)
	a.Start(context.Background())

	_ = a.Record(context.Background(), "heat_state", "1")
	a.Stop()

	if a.Failed() != 1 {
		t.Errorf("Failed() = %d, want 1", a.Failed())
	}
	if logs.FilterMessage("failed to record metric").Len() != 1 {
		t.Errorf("expected one failure warning, got %v", logs.All())
	}
}

func TestAsyncRecordAfterStop(t *testing.T) {
	next := &memorySink{}
	a := NewAsync(next, logger.Nop(), 4, 0)
	a.Start(context.Background())
	a.Stop()
	a.Stop()

	_ = a.Record(context.Background(), "light_state", "0")
	if a.Dropped() != 1 {
		t.Errorf("Dropped() = %d, want 1", a.Dropped())
	}
	if len(next.all()) != 0 {
		t.Errorf("record forwarded after Stop")
	}
}

func TestAsyncStopWithoutStart(t *testing.T) {
	a := NewAsync(&memorySink{}, logger.Nop(), 0, 0)

	done := make(chan struct{})
	go func() {
		a.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop() blocked on a sink that was never started")
	}
}

func TestAsyncRecordNeverBlocks(t *testing.T) {
	next := &blockingSink{release: make(chan struct{})}
	defer close(next.release)
	a := NewAsync(next, logger.Nop(), 1, 0)
	a.Start(context.Background())

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			_ = a.Record(context.Background(), "fan_state", "1")
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Record() blocked behind a slow sink")
	}
}

func TestAsyncDrainsWhenContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	next := &blockingSink{release: make(chan struct{})}
	a := NewAsync(next, logger.Nop(), 4, time.Second)
	a.Start(ctx)

	for _, v := range []string{"1", "2", "3"} {
		_ = a.Record(context.Background(), "light_state", v)
	}
	cancel()
	close(next.release)

	select {
	case <-a.done:
	case <-time.After(time.Second):
		t.Fatal("worker did not exit after cancellation")
	}

	if got := next.all(); len(got) != 3 {
		t.Errorf("forwarded %v, want all three queued records", got)
	}
	if a.Failed() != 0 || a.Pending() != 0 {
		t.Errorf("Failed() = %d Pending() = %d, want 0 and 0", a.Failed(), a.Pending())
	}

	// worker gone: later records are counted, not stranded in the queue
	_ = a.Record(context.Background(), "light_state", "4")
	if a.Dropped() != 1 || a.Pending() != 0 {
		t.Errorf("Dropped() = %d Pending() = %d, want 1 and 0", a.Dropped(), a.Pending())
	}
	a.Stop()
}
