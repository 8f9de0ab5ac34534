package link

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/MrSnakeDoc/vertx/internal/logger"
	"github.com/MrSnakeDoc/vertx/internal/serial"
)

// idleDelay paces the reader when the device has nothing to say.
const idleDelay = 10 * time.Millisecond

// OpenFunc opens the physical transport. Each call is one connection attempt.
type OpenFunc func() (serial.Port, error)

// LineHandler receives every complete inbound line.
type LineHandler func(line string)

// Options defines the link retry behavior.
type Options struct {
	Path          string        // device path, used for diagnostics
	Baud          int           // baud rate, used for diagnostics
	RetryDelay    time.Duration // wait between two connection attempts
	RetryCeiling  int           // failed attempts tolerated before the budget error is logged
	MaxLineLength int           // longest inbound line accepted
}

// Manager owns the device transport. It acquires the link with unbounded
// retries, serves inbound lines to a single reader callback, serializes
// outbound writes and re-acquires the link after transport failures.
type Manager struct {
	opts Options
	open OpenFunc
	log  *connectionLogger
	now  func() time.Time

	mu          sync.Mutex
	state       State
	port        serial.Port
	attempts    int
	reconnects  int
	connectedAt time.Time

	writeMu sync.Mutex

	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewManager creates a Manager in the Disconnected state.
func NewManager(opts Options, open OpenFunc, log logger.Logger) *Manager {
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 2 * time.Second
	}
	if opts.RetryCeiling < 0 {
		opts.RetryCeiling = 0
	}
	return &Manager{
		opts:   opts,
		open:   open,
		log:    &connectionLogger{logger: log, path: opts.Path, baud: opts.Baud},
		now:    time.Now,
		state:  Disconnected,
		stopCh: make(chan struct{}),
	}
}

// Connect blocks until the transport is open, ctx is cancelled or Stop is
// called. Failed attempts are retried forever after RetryDelay; every time
// the consecutive failure count exceeds RetryCeiling an error is logged and
// the count starts over.
func (m *Manager) Connect(ctx context.Context) error {
	if m.State() == Connected {
		return nil
	}
	m.setState(Connecting)
	m.log.logConnectionStart()

	for {
		if err := m.interrupted(ctx); err != nil {
			m.setState(Disconnected)
			return err
		}

		port, err := m.open()
		if err == nil {
			return m.attach(port)
		}

		m.mu.Lock()
		m.attempts++
		attempt := m.attempts
		exceeded := attempt > m.opts.RetryCeiling
		if exceeded {
			m.attempts = 0
		}
		m.mu.Unlock()

		if exceeded {
			m.log.logBudgetExceeded(attempt, m.opts.RetryCeiling, err)
		} else {
			m.log.logRetry(attempt, m.opts.RetryDelay, err)
		}

		timer := time.NewTimer(m.opts.RetryDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			m.setState(Disconnected)
			return ctx.Err()
		case <-m.stopCh:
			timer.Stop()
			m.setState(Disconnected)
			return ErrStopped
		case <-timer.C:
		}
	}
}

func (m *Manager) attach(port serial.Port) error {
	m.mu.Lock()
	select {
	case <-m.stopCh:
		m.mu.Unlock()
		_ = port.Close()
		return ErrStopped
	default:
	}
	m.port = port
	m.state = Connected
	m.attempts = 0
	m.connectedAt = m.now()
	reconnects := m.reconnects
	m.mu.Unlock()

	m.log.logSuccess(reconnects)
	return nil
}

// Serve reads the link until ctx is cancelled or Stop is called, handing
// every complete line to onLine from a single goroutine. Transport errors
// move the link to Failed and trigger a new Connect.
func (m *Manager) Serve(ctx context.Context, onLine LineHandler) error {
	for {
		if err := m.Connect(ctx); err != nil {
			return err
		}

		m.mu.Lock()
		port := m.port
		m.mu.Unlock()

		err := m.readLoop(ctx, port, onLine)
		if ierr := m.interrupted(ctx); ierr != nil {
			return ierr
		}
		m.fail(port, err)
	}
}

func (m *Manager) readLoop(ctx context.Context, port serial.Port, onLine LineHandler) error {
	if port == nil {
		return ErrLinkUnavailable
	}

	lr := newLineReader(port, m.opts.MaxLineLength)
	for {
		if err := m.interrupted(ctx); err != nil {
			return err
		}

		line, ok, err := lr.next()
		switch {
		case errors.Is(err, errLineTooLong):
			m.log.logger.Warn("discarding oversized line from growth unit",
				logger.Int("max_length", lr.max))
			continue
		case err != nil:
			return err
		case ok:
			onLine(line)
			continue
		}

		timer := time.NewTimer(idleDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
		case <-m.stopCh:
			timer.Stop()
		case <-timer.C:
		}
	}
}

// fail drops port after a transport error. It is a no-op when port is no
// longer the active transport, so the reader and a writer racing on the
// same failure count one reconnect.
func (m *Manager) fail(port serial.Port, cause error) {
	m.mu.Lock()
	if port == nil || m.port != port {
		m.mu.Unlock()
		return
	}
	m.port = nil
	m.state = Failed
	m.reconnects++
	m.mu.Unlock()

	_ = port.Close()
	m.log.logLost(cause)
}

// Send writes one command line to the device. It fails with
// ErrLinkUnavailable unless the link is Connected. A write error other than
// a timeout fails the link, and Serve re-acquires it.
func (m *Manager) Send(command string) error {
	m.mu.Lock()
	port, state := m.port, m.state
	m.mu.Unlock()

	if state != Connected || port == nil {
		return ErrLinkUnavailable
	}

	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	if _, err := io.WriteString(port, command+"\n"); err != nil {
		if !isTimeout(err) {
			m.fail(port, err)
		}
		return fmt.Errorf("send %q: %w", command, err)
	}
	m.log.logger.Debug("command sent to growth unit", logger.String("command", command))
	return nil
}

// Stop releases the transport and leaves the link Disconnected. It unblocks
// Connect and Serve. Calling Stop more than once is a no-op.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopCh)

		m.mu.Lock()
		port := m.port
		m.port = nil
		m.state = Disconnected
		m.mu.Unlock()

		if port != nil {
			if err := port.Close(); err != nil {
				m.log.logger.Warn("failed to close serial port", logger.Error(err))
			}
		}
		m.log.logger.Info("link stopped", logger.String("path", m.opts.Path))
	})
}

// State returns the current connection state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Status returns a snapshot of the link.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	st := Status{
		State:      m.state,
		StateName:  m.state.String(),
		Path:       m.opts.Path,
		Baud:       m.opts.Baud,
		Attempts:   m.attempts,
		Reconnects: m.reconnects,
	}
	if m.state == Connected {
		st.ConnectedSince = m.connectedAt
	}
	return st
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}

func (m *Manager) interrupted(ctx context.Context) error {
	select {
	case <-m.stopCh:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}
