package link

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/MrSnakeDoc/vertx/internal/logger"
	"github.com/MrSnakeDoc/vertx/internal/serial"
)

var errNoDevice = errors.New("no such file or directory")

// fakePort is an in-memory serial device. Chunks pushed on reads are
// returned by Read; closing reads simulates the device being unplugged.
type fakePort struct {
	reads     chan []byte
	closed    chan struct{}
	closeOnce sync.Once

	mu         sync.Mutex
	written    bytes.Buffer
	failWrites bool
}

func newFakePort() *fakePort {
	return &fakePort{
		reads:  make(chan []byte, 16),
		closed: make(chan struct{}),
	}
}

func (p *fakePort) Read(b []byte) (int, error) {
	select {
	case chunk, ok := <-p.reads:
		if !ok {
			return 0, errors.New("device unplugged")
		}
		return copy(b, chunk), nil
	case <-p.closed:
		return 0, errors.New("port closed")
	case <-time.After(5 * time.Millisecond):
		return 0, io.EOF
	}
}

func (p *fakePort) Write(b []byte) (int, error) {
	select {
	case <-p.closed:
		return 0, errors.New("port closed")
	default:
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failWrites {
		return 0, errors.New("input/output error")
	}
	return p.written.Write(b)
}

func (p *fakePort) Close() error {
	p.closeOnce.Do(func() { close(p.closed) })
	return nil
}

func (p *fakePort) Written() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.written.String()
}

func (p *fakePort) isClosed() bool {
	select {
	case <-p.closed:
		return true
	default:
		return false
	}
}

func testOptions() Options {
	return Options{
		Path:         "/dev/ttyUSB0",
		Baud:         115200,
		RetryDelay:   time.Millisecond,
		RetryCeiling: 3,
	}
}

func portOpener(ports ...*fakePort) OpenFunc {
	var mu sync.Mutex
	i := 0
	return func() (serial.Port, error) {
		mu.Lock()
		defer mu.Unlock()
		if i >= len(ports) {
			return nil, errNoDevice
		}
		p := ports[i]
		i++
		return p, nil
	}
}

func TestSendWhileDisconnected(t *testing.T) {
	m := NewManager(testOptions(), portOpener(), logger.Nop())

	err := m.Send("SET_RED_LEVEL:70")
	if !errors.Is(err, ErrLinkUnavailable) {
		t.Errorf("Send() error = %v, want ErrLinkUnavailable", err)
	}
	if m.State() != Disconnected {
		t.Errorf("State() = %v, want disconnected", m.State())
	}
}

func TestConnectRetryBudget(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)

	var m *Manager
	var observed []int
	port := newFakePort()
	calls := 0
	open := func() (serial.Port, error) {
		observed = append(observed, m.Status().Attempts)
		if m.State() != Connecting {
			t.Errorf("State() during attempt = %v, want connecting", m.State())
		}
		calls++
		if calls <= 5 {
			return nil, errNoDevice
		}
		return port, nil
	}
	m = NewManager(testOptions(), open, logger.NewFromCore(core))

	if err := m.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	want := []int{0, 1, 2, 3, 0, 1}
	if len(observed) != len(want) {
		t.Fatalf("observed attempts = %v, want %v", observed, want)
	}
	for i := range want {
		if observed[i] != want[i] {
			t.Errorf("retry counter before attempt %d = %d, want %d", i+1, observed[i], want[i])
		}
	}

	budget := logs.FilterMessage("link acquisition exceeding retry budget").All()
	if len(budget) != 1 {
		t.Fatalf("retry budget diagnostics = %d, want exactly 1", len(budget))
	}
	if budget[0].Level != zapcore.ErrorLevel {
		t.Errorf("retry budget level = %v, want error", budget[0].Level)
	}
	if n := logs.FilterLevelExact(zapcore.ErrorLevel).Len(); n != 1 {
		t.Errorf("error entries = %d, want 1", n)
	}

	st := m.Status()
	if st.State != Connected || st.Attempts != 0 {
		t.Errorf("Status() = %+v, want connected with counter reset", st)
	}
	if st.ConnectedSince.IsZero() {
		t.Error("ConnectedSince should be set once connected")
	}
}

func TestConnectNeverGivesUp(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	opts := testOptions()
	opts.RetryCeiling = 2

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	open := func() (serial.Port, error) {
		calls++
		if calls == 10 {
			cancel()
		}
		return nil, errNoDevice
	}
	m := NewManager(opts, open, logger.NewFromCore(core))

	err := m.Connect(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Connect() error = %v, want context.Canceled", err)
	}
	if calls != 10 {
		t.Errorf("attempts = %d, want 10", calls)
	}
	// ceiling 2: the counter overflows on attempts 3, 6 and 9
	if n := logs.Len(); n != 3 {
		t.Errorf("retry budget diagnostics = %d, want 3", n)
	}
	if m.State() != Disconnected {
		t.Errorf("State() = %v, want disconnected", m.State())
	}
}

func TestConnectStop(t *testing.T) {
	m := NewManager(testOptions(), portOpener(), logger.Nop())

	done := make(chan error, 1)
	go func() { done <- m.Connect(context.Background()) }()

	time.Sleep(10 * time.Millisecond)
	m.Stop()

	select {
	case err := <-done:
		if !errors.Is(err, ErrStopped) {
			t.Errorf("Connect() error = %v, want ErrStopped", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Connect() did not return after Stop()")
	}
	if m.State() != Disconnected {
		t.Errorf("State() = %v, want disconnected", m.State())
	}
}

func TestSendWritesCommandLine(t *testing.T) {
	port := newFakePort()
	m := NewManager(testOptions(), portOpener(port), logger.Nop())

	if err := m.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if err := m.Send("SET_RED_LEVEL:70"); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if err := m.Send("SET_GREEN_LEVEL:20"); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	if got, want := port.Written(), "SET_RED_LEVEL:70\nSET_GREEN_LEVEL:20\n"; got != want {
		t.Errorf("written = %q, want %q", got, want)
	}
}

func TestSendReportsWriteFailure(t *testing.T) {
	port := newFakePort()
	m := NewManager(testOptions(), portOpener(port), logger.Nop())
	if err := m.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	_ = port.Close()
	err := m.Send("SET_TIME:0")
	if err == nil || errors.Is(err, ErrLinkUnavailable) {
		t.Errorf("Send() error = %v, want underlying write error", err)
	}

	st := m.Status()
	if st.State != Failed || st.Reconnects != 1 {
		t.Errorf("Status() = %+v, want failed with 1 reconnect", st)
	}
	if err := m.Send("SET_TIME:0"); !errors.Is(err, ErrLinkUnavailable) {
		t.Errorf("Send() after failure error = %v, want ErrLinkUnavailable", err)
	}
}

type timeoutError struct{}

func (timeoutError) Error() string { return "write timeout" }
func (timeoutError) Timeout() bool { return true }

type slowPort struct{ *fakePort }

func (slowPort) Write([]byte) (int, error) { return 0, timeoutError{} }

func TestSendTimeoutKeepsLink(t *testing.T) {
	port := slowPort{newFakePort()}
	m := NewManager(testOptions(), func() (serial.Port, error) { return port, nil }, logger.Nop())
	if err := m.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	if err := m.Send("SET_TIME:0"); err == nil {
		t.Fatal("Send() error = nil, want timeout")
	}
	if m.State() != Connected {
		t.Errorf("State() = %v, want connected after a write timeout", m.State())
	}
}

func TestWriteFailureReconnectsServe(t *testing.T) {
	first, second := newFakePort(), newFakePort()
	m := NewManager(testOptions(), portOpener(first, second), logger.Nop())

	lines := make(chan string, 8)
	done := make(chan error, 1)
	go func() {
		done <- m.Serve(context.Background(), func(line string) { lines <- line })
	}()

	deadline := time.Now().Add(time.Second)
	for m.State() != Connected {
		if time.Now().After(deadline) {
			t.Fatal("link never connected")
		}
		time.Sleep(time.Millisecond)
	}

	// reads stay quiet, only the write notices the dead device
	first.mu.Lock()
	first.failWrites = true
	first.mu.Unlock()
	if err := m.Send("SET_TIME:0"); err == nil {
		t.Fatal("Send() on a dead port should fail")
	}

	second.reads <- []byte("ARDUINO_READ:OK\n")
	select {
	case got := <-lines:
		if got != "ARDUINO_READ:OK" {
			t.Errorf("line = %q", got)
		}
	case <-time.After(time.Second):
		t.Fatal("Serve() did not reconnect after the write failure")
	}
	if !first.isClosed() {
		t.Error("port that failed a write should be closed")
	}
	if st := m.Status(); st.Reconnects != 1 {
		t.Errorf("Reconnects = %d, want 1", st.Reconnects)
	}

	m.Stop()
	<-done
}

func TestStatusJSONOmitsConnectedSinceWhileDown(t *testing.T) {
	m := NewManager(testOptions(), portOpener(), logger.Nop())

	data, err := json.Marshal(m.Status())
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if strings.Contains(string(data), "connected_since") {
		t.Errorf("status = %s, want no connected_since while disconnected", data)
	}
}

func TestServeDeliversLinesAndSelfHeals(t *testing.T) {
	first, second := newFakePort(), newFakePort()
	m := NewManager(testOptions(), portOpener(first, second), logger.Nop())

	lines := make(chan string, 8)
	done := make(chan error, 1)
	go func() {
		done <- m.Serve(context.Background(), func(line string) {
			lines <- line
			if line == "INIT:GET_PROGRAM" {
				// handlers answer from inside the callback
				if err := m.Send("SET_PROGRAM:BASILIC"); err != nil {
					t.Errorf("Send() from callback error = %v", err)
				}
			}
		})
	}()

	first.reads <- []byte("INIT:GET_PROGRAM\r\nINFO:FL")
	first.reads <- []byte("OW=ON\n")

	expect := func(want string) {
		t.Helper()
		select {
		case got := <-lines:
			if got != want {
				t.Errorf("line = %q, want %q", got, want)
			}
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for %q", want)
		}
	}
	expect("INIT:GET_PROGRAM")
	expect("INFO:FLOW=ON")

	if got := first.Written(); got != "SET_PROGRAM:BASILIC\n" {
		t.Errorf("written = %q", got)
	}

	// unplug: the manager must reconnect on its own
	close(first.reads)
	second.reads <- []byte("ARDUINO_READ:OK\n")
	expect("ARDUINO_READ:OK")

	if !first.isClosed() {
		t.Error("failed port should be closed")
	}
	st := m.Status()
	if st.State != Connected || st.Reconnects != 1 {
		t.Errorf("Status() = %+v, want connected after 1 reconnect", st)
	}

	m.Stop()
	select {
	case err := <-done:
		if !errors.Is(err, ErrStopped) {
			t.Errorf("Serve() error = %v, want ErrStopped", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Serve() did not return after Stop()")
	}
	if !second.isClosed() {
		t.Error("Stop() should close the active port")
	}
}

func TestStopIsIdempotent(t *testing.T) {
	port := newFakePort()
	m := NewManager(testOptions(), portOpener(port), logger.Nop())
	if err := m.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	m.Stop()
	m.Stop()

	if m.State() != Disconnected {
		t.Errorf("State() = %v, want disconnected", m.State())
	}
	if err := m.Send("SET_TIME:0"); !errors.Is(err, ErrLinkUnavailable) {
		t.Errorf("Send() after Stop() error = %v, want ErrLinkUnavailable", err)
	}
	if err := m.Connect(context.Background()); !errors.Is(err, ErrStopped) {
		t.Errorf("Connect() after Stop() error = %v, want ErrStopped", err)
	}
}

func TestStateString(t *testing.T) {
	tests := map[State]string{
		Disconnected: "disconnected",
		Connecting:   "connecting",
		Connected:    "connected",
		Failed:       "failed",
		State(42):    "unknown",
	}
	for s, want := range tests {
		if got := s.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", s, got, want)
		}
	}
}
