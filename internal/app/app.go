package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/vertx/internal/config"
	"github.com/MrSnakeDoc/vertx/internal/console"
	"github.com/MrSnakeDoc/vertx/internal/httpserver"
	"github.com/MrSnakeDoc/vertx/internal/httpserver/deps"
	"github.com/MrSnakeDoc/vertx/internal/index"
	"github.com/MrSnakeDoc/vertx/internal/link"
	"github.com/MrSnakeDoc/vertx/internal/logger"
	"github.com/MrSnakeDoc/vertx/internal/metrics"
	"github.com/MrSnakeDoc/vertx/internal/program"
	"github.com/MrSnakeDoc/vertx/internal/protocol"
	"github.com/MrSnakeDoc/vertx/internal/redis"
	"github.com/MrSnakeDoc/vertx/internal/scheduler"
	"github.com/MrSnakeDoc/vertx/internal/serial"
	redisstore "github.com/MrSnakeDoc/vertx/internal/store/redis"
	"github.com/MrSnakeDoc/vertx/internal/utils"
	"github.com/MrSnakeDoc/vertx/internal/version"
)

// MetricAppStart is recorded once the device link is up.
const MetricAppStart = "app_start"

type App struct {
	cfg     *config.Config
	logger  logger.Logger
	program *program.Program

	link   *link.Manager
	router *protocol.Router

	readings  *index.Readings
	recorder  metrics.Sink   // readings + remote sinks
	async     *metrics.Async // nil when no remote sink is configured
	sweeper   *scheduler.StaleSweeper
	telemetry *redisstore.TelemetryStore
	redis     *goredis.Client

	server      *httpserver.Server
	console     *console.Console
	stopTrigger chan struct{}
}

// New wires every component on the configured serial device and the
// process terminal. It fails only when the program cannot be loaded. Remote
// sinks that cannot be reached are disabled with a warning.
func New(ctx context.Context, cfg *config.Config, log logger.Logger) (*App, error) {
	open := func() (serial.Port, error) {
		return serial.Open(serial.Config{
			Name:        cfg.SerialPort,
			Baud:        cfg.SerialBaud,
			ReadTimeout: cfg.SerialReadTimeout,
		})
	}
	return build(ctx, cfg, log, open, os.Stdin, os.Stdout)
}

func build(ctx context.Context, cfg *config.Config, log logger.Logger, open link.OpenFunc, in io.Reader, out io.Writer) (*App, error) {
	prog, err := program.NewLoader(cfg.ProgramsFile).Load(cfg.ProgramName)
	if err != nil {
		return nil, fmt.Errorf("load program: %w", err)
	}
	log.Info("growth program loaded",
		logger.String("program", prog.Name()),
		logger.String("file", cfg.ProgramsFile),
		logger.Int("parameters", len(prog.Keys())))

	a := &App{
		cfg:         cfg,
		logger:      log,
		program:     prog,
		readings:    index.NewReadings(),
		stopTrigger: make(chan struct{}, 1),
	}

	a.initSinks(ctx)

	a.link = link.NewManager(link.Options{
		Path:          cfg.SerialPort,
		Baud:          cfg.SerialBaud,
		RetryDelay:    cfg.ConnectWait,
		RetryCeiling:  cfg.ConnectRetry,
		MaxLineLength: cfg.MaxLineLength,
	}, open, log)

	sender := protocol.SenderFunc(func(cmd protocol.Command) error {
		return a.link.Send(cmd.String())
	})
	a.router = protocol.NewRouter(log,
		protocol.NewDiagnosticHandler(log),
		protocol.NewHandshakeHandler(prog, sender, log, cfg.UTCOffset),
		protocol.NewTelemetryHandler(log, a.recorder),
	)

	a.sweeper = scheduler.NewStaleSweeper(a.readings, log, cfg.SweepInterval, cfg.StaleAfter)

	if cfg.HTTPEnabled {
		d := deps.Deps{
			Logger:       log,
			StartTime:    time.Now(),
			Version:      version.Version,
			Commit:       version.Commit,
			BuildDate:    version.BuildDate,
			GoVersion:    version.GoVersion,
			TimeNow:      time.Now,
			AllowedHosts: cfg.AllowedHosts,
			AllowedCIDRS: cfg.AllowedCIDRS,
			TrustProxy:   cfg.TrustProxy,
			Link:         a.link,
			Program:      prog,
			Readings:     a.readings,
			StopTrigger:  a.stopTrigger,
		}
		if a.telemetry != nil {
			d.Telemetry = a.telemetry
		}
		if a.async != nil {
			d.Metrics = a.async
		}
		a.server = httpserver.New(cfg.ListenPort, d)
	}

	if cfg.ConsoleEnabled {
		a.console = console.New(in, out, prog, log)
	}

	return a, nil
}

// initSinks builds the recorder the telemetry handler mirrors to: the
// in-memory readings always, then the HTTP insert endpoint and the redis
// store behind a single async queue when configured.
func (a *App) initSinks(ctx context.Context) {
	cfg := a.cfg
	var remote metrics.Fanout

	if cfg.MetricsEnabled {
		remote = append(remote, metrics.NewHTTPSink(metrics.HTTPSinkConfig{
			BaseURL:  cfg.MetricsURL,
			User:     cfg.MetricsUser,
			Password: cfg.MetricsPassword,
			Timeout:  cfg.MetricsTimeout,
		}))
		a.logger.Info("remote metrics enabled", logger.String("url", cfg.MetricsURL))
	}

	if cfg.RedisAddr != "" {
		client, err := redis.New(ctx, redis.ConnectOptions{
			Addr:           cfg.RedisAddr,
			User:           cfg.RedisUser,
			Password:       cfg.RedisPassword,
			DB:             cfg.RedisDB,
			DialTimeout:    cfg.RedisDT,
			ReadTimeout:    cfg.RedisRT,
			WriteTimeout:   cfg.RedisWT,
			PoolSize:       cfg.RedisPoolSize,
			ConnectTimeout: cfg.RedisConnectTimeout,
			RetryInterval:  cfg.RedisRetryInterval,
			MaxWait:        cfg.RedisMaxWait,
			PingTimeout:    cfg.RedisPingTimeout,
			WarnThreshold:  cfg.RedisWarnThreshold,
		}, a.logger)
		if err != nil {
			a.logger.Warn("telemetry store disabled, history will not be kept", logger.Error(err))
		} else {
			a.redis = client
			a.telemetry = redisstore.NewTelemetryStore(client, cfg.RedisHistory)
			remote = append(remote, a.telemetry)

			restorer := scheduler.NewReadingsRestorer(a.telemetry, a.readings, a.logger)
			if err := restorer.Restore(ctx); err != nil {
				a.logger.Warn("failed to restore readings from telemetry store", logger.Error(err))
			}
		}
	}

	if len(remote) == 0 {
		a.recorder = a.readings
		return
	}
	a.async = metrics.NewAsync(remote, a.logger, cfg.MetricsQueueSize, cfg.MetricsTimeout)
	a.recorder = metrics.Fanout{a.readings, a.async}
}

// Run acquires the device link in the foreground, then serves it until a
// signal, an operator stop (console exit or POST /stop) or an HTTP server
// failure. ctx is expected to be cancelled on SIGINT/SIGTERM.
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("🚀 " + version.String())

	if a.async != nil {
		a.async.Start(ctx)
	}
	a.sweeper.Start(ctx)

	if err := a.link.Connect(ctx); err != nil {
		a.logger.Info("⏳ interrupted before the growth unit was reached")
		a.shutdown(nil)
		return nil
	}

	a.logger.Info("*** growth unit started ***", logger.String("program", a.program.Name()))
	if err := a.recorder.Record(ctx, MetricAppStart, a.program.Name()); err != nil {
		a.logger.Warn("failed to record start", logger.Error(err))
	}

	serveDone := make(chan struct{})
	go func() {
		defer close(serveDone)
		err := a.link.Serve(ctx, a.router.Route)
		if err != nil && !errors.Is(err, link.ErrStopped) && !errors.Is(err, context.Canceled) {
			a.logger.Error("link reader stopped", logger.Error(err))
		}
	}()

	errCh := make(chan error, 1)
	if a.server != nil {
		go func() {
			if err := a.server.Start(); err != nil {
				errCh <- fmt.Errorf("http server error: %w", err)
			}
		}()
	}

	var consoleDone chan error
	if a.console != nil {
		consoleDone = make(chan error, 1)
		go func() { consoleDone <- a.console.Run(ctx) }()
	}

	var runErr error
wait:
	for {
		select {
		case <-ctx.Done():
			a.logger.Info("⏳ Shutting down gracefully...")
			break wait
		case <-a.stopTrigger:
			a.logger.Info("⏳ Stop requested, shutting down...")
			break wait
		case err := <-consoleDone:
			if errors.Is(err, console.ErrInputClosed) {
				// detached from a terminal, keep running until a signal
				a.logger.Info("console input closed, running without operator prompt")
				consoleDone = nil
				continue
			}
			if err != nil && !errors.Is(err, context.Canceled) {
				a.logger.Warn("console stopped", logger.Error(err))
				consoleDone = nil
				continue
			}
			break wait
		case err := <-errCh:
			runErr = err
			break wait
		}
	}

	a.shutdown(serveDone)
	return runErr
}

// shutdown releases the link first so the device stops being driven, then
// the API, the background jobs and the sinks.
func (a *App) shutdown(serveDone <-chan struct{}) {
	a.link.Stop()
	if serveDone != nil {
		<-serveDone
	}

	if a.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
		defer cancel()
		if err := a.server.Stop(shutdownCtx); err != nil {
			a.logger.Warn("failed to stop http server", logger.Error(err))
		}
	}

	a.sweeper.Stop()
	if a.async != nil {
		a.async.Stop()
	}

	if a.redis != nil {
		utils.CloseLogged(a.redis, "redis", a.logger)
	}

	a.logger.Info("✅ vertx stopped cleanly")
}
