package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	LogLevel  string // "debug" | "info" | "warn" | "error"
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)
	LogFile   string // optional rotated JSON log file
	LogMaxMB  int    // rotate the log file after this size

	// Growth program
	ProgramName  string        // section of the programs file to run (ex: "BASILIC")
	ProgramsFile string        // path to programs.yaml
	UTCOffset    time.Duration // added to UTC when answering the device clock pull

	// Device link
	SerialPort        string        // ex: "/dev/ttyUSB0"
	SerialBaud        int           // ex: 115200
	SerialReadTimeout time.Duration // read timeout so the reader can observe shutdown
	ConnectWait       time.Duration // delay between two connection attempts
	ConnectRetry      int           // failed attempts before the retry budget error is logged
	MaxLineLength     int           // longest inbound line accepted from the device

	ConsoleEnabled bool // true => operator console on stdin/stdout

	// Readings
	StaleAfter    time.Duration // readings older than this are evicted from /telemetry
	SweepInterval time.Duration // how often stale readings are evicted

	// Supervision HTTP API
	HTTPEnabled     bool
	ListenPort      string        // ex: ":8080"
	ShutdownTimeout time.Duration // ex: 5s
	AllowedHosts    []string      // optional, restrict access to specific Host headers
	AllowedCIDRS    []string      // optional, restrict access to specific IPs
	TrustProxy      bool          // true => trust X-Forwarded-For headers

	// Remote metrics (HTTP insert endpoint)
	MetricsEnabled   bool
	MetricsURL       string        // base URL, "/insert" is appended
	MetricsUser      string        // basic auth user
	MetricsPassword  string        // basic auth password
	MetricsTimeout   time.Duration // per-request timeout (ex: 2s)
	MetricsQueueSize int           // pending records before new ones are dropped

	// Redis telemetry store (disabled when RedisAddr is empty)
	RedisAddr           string
	RedisUser           string
	RedisPassword       string
	RedisDB             int
	RedisDT             time.Duration // dial timeout
	RedisRT             time.Duration // read timeout
	RedisWT             time.Duration // write timeout
	RedisMaxWait        time.Duration // max wait between retries
	RedisPingTimeout    time.Duration // timeout for each ping attempt
	RedisPoolSize       int
	RedisConnectTimeout time.Duration // total time to retry connecting
	RedisRetryInterval  time.Duration // initial wait between retries, grows exponentially
	RedisWarnThreshold  int           // warn after this many attempts
	RedisHistory        int           // samples kept per metric
}

func Load() *Config {
	cfg := &Config{
		// Logging
		LogLevel:  getenv("VERTX_LOG_LEVEL", "info"),
		PrettyLog: mustBool("VERTX_PRETTY_LOG", true),
		LogFile:   getenv("VERTX_LOG_FILE", ""),
		LogMaxMB:  getenvInt("VERTX_LOG_MAX_MB", 10),

		// Program
		ProgramName:  getenv("VERTX_PROGRAM", "BASILIC"),
		ProgramsFile: getenv("VERTX_PROGRAMS_FILE", "programs.yaml"),
		UTCOffset:    mustDuration("VERTX_UTC_OFFSET", 1*time.Hour),

		// Device link
		SerialPort:        getenv("VERTX_SERIAL_PORT", "/dev/ttyUSB0"),
		SerialBaud:        getenvInt("VERTX_SERIAL_BAUD", 115200),
		SerialReadTimeout: mustDuration("VERTX_SERIAL_READ_TIMEOUT", 500*time.Millisecond),
		ConnectWait:       mustDuration("VERTX_CONNECT_WAIT", 2*time.Second),
		ConnectRetry:      getenvInt("VERTX_CONNECT_RETRY", 10),
		MaxLineLength:     getenvInt("VERTX_MAX_LINE_LENGTH", 256),

		ConsoleEnabled: mustBool("VERTX_CONSOLE", true),

		// Readings
		StaleAfter:    mustDuration("VERTX_STALE_AFTER", 15*time.Minute),
		SweepInterval: mustDuration("VERTX_SWEEP_INTERVAL", time.Minute),

		// HTTP
		HTTPEnabled:     mustBool("VERTX_HTTP_ENABLED", true),
		ListenPort:      getenv("VERTX_LISTEN_PORT", ":8080"),
		ShutdownTimeout: mustDuration("VERTX_SHUTDOWN_TIMEOUT", 5*time.Second),
		AllowedHosts:    splitAndTrim(getenv("VERTX_ALLOWED_HOSTS", "")),
		AllowedCIDRS:    parseAllowedIPs(getenv("VERTX_ALLOWED_CIDRS", "")),
		TrustProxy:      mustBool("VERTX_TRUST_PROXY", false),

		// Metrics
		MetricsEnabled:   mustBool("VERTX_METRICS_ENABLED", false),
		MetricsURL:       strings.TrimRight(getenv("VERTX_METRICS_URL", ""), "/"),
		MetricsUser:      getenv("VERTX_METRICS_USER", ""),
		MetricsPassword:  getenv("VERTX_METRICS_PASSWORD", ""),
		MetricsTimeout:   mustDuration("VERTX_METRICS_TIMEOUT", 2*time.Second),
		MetricsQueueSize: getenvInt("VERTX_METRICS_QUEUE_SIZE", 64),

		// Redis settings
		RedisAddr:           getenv("VERTX_REDIS_ADDR", ""),
		RedisUser:           getenv("VERTX_REDIS_USERNAME", ""),
		RedisPassword:       getenv("VERTX_REDIS_PASSWORD", ""),
		RedisDB:             getenvInt("VERTX_REDIS_DB", 0),
		RedisDT:             mustDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
		RedisRT:             mustDuration("REDIS_READ_TIMEOUT", 3*time.Second),
		RedisWT:             mustDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		RedisMaxWait:        mustDuration("REDIS_MAX_WAIT", 10*time.Second),
		RedisPingTimeout:    mustDuration("REDIS_PING_TIMEOUT", 5*time.Second),
		RedisPoolSize:       getenvInt("REDIS_POOL_SIZE", 4),
		RedisConnectTimeout: mustDuration("REDIS_CONNECT_TIMEOUT", 30*time.Second),
		RedisRetryInterval:  mustDuration("REDIS_RETRY_INTERVAL", 2*time.Second),
		RedisWarnThreshold:  getenvInt("REDIS_WARN_THRESHOLD", 3),
		RedisHistory:        getenvInt("VERTX_REDIS_HISTORY", 1000),
	}

	if cfg.MetricsEnabled && cfg.MetricsURL == "" {
		panic("❌ FATAL: VERTX_METRICS_URL is required when VERTX_METRICS_ENABLED=true")
	}
	if cfg.ConnectRetry < 0 {
		panic(fmt.Sprintf("❌ FATAL: VERTX_CONNECT_RETRY must be >= 0, got %d", cfg.ConnectRetry))
	}

	// Log config only in debug mode with redacted sensitive fields
	if cfg.LogLevel == "debug" {
		log.Printf("[DEBUG] cfg: %+v\n", cfg.Redacted())
	}

	return cfg
}

// Redacted returns a copy safe to print.
func (c *Config) Redacted() Config {
	cp := *c
	if cp.MetricsPassword != "" {
		cp.MetricsPassword = "***REDACTED***"
	}
	if cp.RedisPassword != "" {
		cp.RedisPassword = "***REDACTED***"
	}
	if cp.RedisUser != "" {
		cp.RedisUser = "***REDACTED***"
	}
	return cp
}

// helpers
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func mustBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func mustDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func parseAllowedIPs(allowed string) []string {
	if allowed == "" {
		return nil
	}
	ips := make([]string, 0, 4)
	for _, ip := range splitAndTrim(allowed) {
		if ip != "" {
			ips = append(ips, ip)
		}
	}
	return ips
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	raw := strings.Split(s, ",")
	parts := make([]string, 0, len(raw))
	for _, part := range raw {
		trimmed := strings.TrimSpace(part)
		// Remove surrounding quotes if present
		trimmed = strings.Trim(trimmed, `"'`)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
