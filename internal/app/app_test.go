package app

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/MrSnakeDoc/vertx/internal/config"
	"github.com/MrSnakeDoc/vertx/internal/link"
	"github.com/MrSnakeDoc/vertx/internal/logger"
	"github.com/MrSnakeDoc/vertx/internal/serial"
)

const programsYAML = `
BASILIC:
  light:
    red: 70
    green: 30
`

// device is an in-memory growth unit that emits scripted lines and records
// what the host writes.
type device struct {
	reads  chan []byte
	closed chan struct{}
	once   sync.Once

	mu      sync.Mutex
	written bytes.Buffer
}

func newDevice(lines ...string) *device {
	d := &device{reads: make(chan []byte, len(lines)), closed: make(chan struct{})}
	for _, l := range lines {
		d.reads <- []byte(l)
	}
	return d
}

func (d *device) Read(b []byte) (int, error) {
	select {
	case <-d.closed:
		return 0, io.ErrClosedPipe
	case chunk := <-d.reads:
		return copy(b, chunk), nil
	case <-time.After(5 * time.Millisecond):
		return 0, io.EOF
	}
}

func (d *device) Write(b []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.written.Write(b)
}

func (d *device) Close() error {
	d.once.Do(func() { close(d.closed) })
	return nil
}

func (d *device) output() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.written.String()
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	path := filepath.Join(t.TempDir(), "programs.yaml")
	if err := os.WriteFile(path, []byte(programsYAML), 0o600); err != nil {
		t.Fatalf("write programs: %v", err)
	}
	return &config.Config{
		ProgramName:     "BASILIC",
		ProgramsFile:    path,
		UTCOffset:       time.Hour,
		SerialPort:      "/dev/ttyFAKE",
		SerialBaud:      115200,
		ConnectWait:     5 * time.Millisecond,
		ConnectRetry:    10,
		MaxLineLength:   256,
		ShutdownTimeout: time.Second,
		StaleAfter:      time.Hour,
		SweepInterval:   time.Minute,
	}
}

func opener(d *device) link.OpenFunc {
	return func() (serial.Port, error) { return d, nil }
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestRunServesDeviceUntilStopRequested(t *testing.T) {
	dev := newDevice("INIT:GET_PROGRAM\n", "INIT:GET_RED_LEVEL\r\n", "INFO:AIR_TEMP=21.50\n")
	a, err := build(context.Background(), testConfig(t), logger.Nop(), opener(dev), strings.NewReader(""), io.Discard)
	if err != nil {
		t.Fatalf("build() error = %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- a.Run(context.Background()) }()

	waitFor(t, "handshake answers", func() bool {
		return strings.Contains(dev.output(), "SET_PROGRAM:BASILIC\nSET_RED_LEVEL:70\n")
	})
	waitFor(t, "air temperature reading", func() bool {
		r, ok := a.readings.Get("air_temp")
		return ok && r.Value == "21.50"
	})

	if r, ok := a.readings.Get(MetricAppStart); !ok || r.Value != "BASILIC" {
		t.Errorf("app_start = %+v, %v", r, ok)
	}
	if a.link.State() != link.Connected {
		t.Errorf("link state = %v, want connected", a.link.State())
	}

	a.stopTrigger <- struct{}{}
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not return after a stop request")
	}

	if a.link.State() != link.Disconnected {
		t.Errorf("link state after stop = %v, want disconnected", a.link.State())
	}
	select {
	case <-dev.closed:
	default:
		t.Error("serial port left open")
	}
}

func TestRunStopsOnConsoleExit(t *testing.T) {
	cfg := testConfig(t)
	cfg.ConsoleEnabled = true
	var out bytes.Buffer

	a, err := build(context.Background(), cfg, logger.Nop(), opener(newDevice()), strings.NewReader("exit\n"), &out)
	if err != nil {
		t.Fatalf("build() error = %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- a.Run(context.Background()) }()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not return after exit")
	}
	if !strings.Contains(out.String(), "*** PROGRAM: BASILIC ***") {
		t.Errorf("program not rendered:\n%s", out.String())
	}
}

func TestRunKeepsGoingWhenConsoleInputCloses(t *testing.T) {
	cfg := testConfig(t)
	cfg.ConsoleEnabled = true

	a, err := build(context.Background(), cfg, logger.Nop(), opener(newDevice()), strings.NewReader(""), io.Discard)
	if err != nil {
		t.Fatalf("build() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	select {
	case <-done:
		t.Fatal("Run() returned on console EOF")
	case <-time.After(100 * time.Millisecond):
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}
}

func TestRunInterruptedWhileConnecting(t *testing.T) {
	open := func() (serial.Port, error) { return nil, errors.New("no such file or directory") }
	a, err := build(context.Background(), testConfig(t), logger.Nop(), open, strings.NewReader(""), io.Discard)
	if err != nil {
		t.Fatalf("build() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	if err := a.Run(ctx); err != nil {
		t.Errorf("Run() error = %v, want nil on interruption", err)
	}
	if _, ok := a.readings.Get(MetricAppStart); ok {
		t.Error("app_start recorded without a link")
	}
}

func TestBuildUnknownProgram(t *testing.T) {
	cfg := testConfig(t)
	cfg.ProgramName = "CACTUS"

	if _, err := build(context.Background(), cfg, logger.Nop(), opener(newDevice()), strings.NewReader(""), io.Discard); err == nil {
		t.Fatal("build() should fail for an unknown program")
	}
}

func TestBuildWithRemoteMetrics(t *testing.T) {
	cfg := testConfig(t)
	cfg.MetricsEnabled = true
	cfg.MetricsURL = "http://127.0.0.1:1"
	cfg.MetricsTimeout = 10 * time.Millisecond

	a, err := build(context.Background(), cfg, logger.Nop(), opener(newDevice()), strings.NewReader(""), io.Discard)
	if err != nil {
		t.Fatalf("build() error = %v", err)
	}
	if a.async == nil {
		t.Fatal("remote metrics should be queued")
	}
	a.async.Stop()
}
