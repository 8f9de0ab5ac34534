package deps

import (
	"context"
	"time"

	"github.com/MrSnakeDoc/vertx/internal/domain"
	"github.com/MrSnakeDoc/vertx/internal/index"
	"github.com/MrSnakeDoc/vertx/internal/link"
	"github.com/MrSnakeDoc/vertx/internal/logger"
	"github.com/MrSnakeDoc/vertx/internal/program"
)

// LinkStatus reports the device link state.
type LinkStatus interface {
	Status() link.Status
}

// TelemetryStore serves persisted metric history.
type TelemetryStore interface {
	History(ctx context.Context, name string, limit int) ([]domain.Sample, error)
	Ping(ctx context.Context) error
}

// MetricsQueue reports the remote metrics forwarder.
type MetricsQueue interface {
	Pending() int
	Dropped() int64
	Failed() int64
}

type Deps struct {
	Logger       logger.Logger
	StartTime    time.Time
	Version      string
	Commit       string
	BuildDate    string
	GoVersion    string
	TimeNow      func() time.Time // for testing, defaults to time.Now
	AllowedHosts []string         // Host headers allowed to access the server
	AllowedCIDRS []string         // IPs allowed to access the API
	TrustProxy   bool             // true if running behind a trusted reverse proxy
	Link         LinkStatus       // device link
	Program      *program.Program // active growth program
	Readings     *index.Readings  // latest telemetry
	Telemetry    TelemetryStore   // nil when redis is disabled
	Metrics      MetricsQueue     // nil when remote metrics are disabled
	StopTrigger  chan struct{}    // operator stop request, buffered (cap 1)
}

// Now returns the current time using TimeNow when set.
func (d Deps) Now() time.Time {
	if d.TimeNow != nil {
		return d.TimeNow()
	}
	return time.Now()
}
