package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultAPIURL         = "http://localhost:3000"
	DefaultAPITimeout     = 10 * time.Second
	DefaultConnectTimeout = 15 * time.Second
	DefaultHistoryLimit   = 100
	DefaultRunTimeout     = 5 * time.Minute
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "text"
)

var (
	ErrInvalidAPIURL       = errors.New("api url must be an absolute http(s) url")
	ErrInvalidRealtimeURL  = errors.New("realtime url must be an absolute http(s) or ws(s) url")
	ErrInvalidTimeout      = errors.New("timeouts must be positive")
	ErrInvalidHistoryLimit = errors.New("history limit must be at least 1")
	ErrInvalidLogLevel     = errors.New("log level must be one of debug, info, warn, error")
	ErrInvalidLogFormat    = errors.New("log format must be text or json")
	ErrInvalidPort         = errors.New("port must be between 0 and 65535")
)

type (
	// Config is the complete application configuration.
	Config struct {
		API       APIConfig
		Realtime  RealtimeConfig
		Editor    EditorConfig
		Execution ExecutionConfig
		Log       LogConfig
		Inspect   InspectConfig
	}

	// APIConfig addresses the engine's HTTP API.
	APIConfig struct {
		URL     string
		Token   string
		Timeout time.Duration
	}

	// RealtimeConfig addresses the engine's socket.io endpoint.
	RealtimeConfig struct {
		URL                string
		Namespace          string
		InsecureSkipVerify bool
		ConnectTimeout     time.Duration
	}

	// EditorConfig tunes the editing session.
	EditorConfig struct {
		HistoryLimit int
	}

	// ExecutionConfig tunes runs.
	ExecutionConfig struct {
		Timeout time.Duration
	}

	// LogConfig selects the slog handler.
	LogConfig struct {
		Level  string
		Format string
	}

	// InspectConfig controls the HTTP inspection server. Port 0 disables it.
	InspectConfig struct {
		Port int
	}
)

// Default returns a configuration with every default applied.
func Default() *Config {
	return &Config{
		API: APIConfig{
			URL:     DefaultAPIURL,
			Timeout: DefaultAPITimeout,
		},
		Realtime: RealtimeConfig{
			ConnectTimeout: DefaultConnectTimeout,
		},
		Editor: EditorConfig{
			HistoryLimit: DefaultHistoryLimit,
		},
		Execution: ExecutionConfig{
			Timeout: DefaultRunTimeout,
		},
		Log: LogConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}

// RealtimeURL is the socket.io endpoint, falling back to the API URL.
func (c *Config) RealtimeURL() string {
	if c.Realtime.URL != "" {
		return c.Realtime.URL
	}
	return c.API.URL
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	var errs []error
	if !absoluteURL(c.API.URL, "http", "https") {
		errs = append(errs, fmt.Errorf("%w: %q", ErrInvalidAPIURL, c.API.URL))
	}
	if c.Realtime.URL != "" && !absoluteURL(c.Realtime.URL, "http", "https", "ws", "wss") {
		errs = append(errs, fmt.Errorf("%w: %q", ErrInvalidRealtimeURL, c.Realtime.URL))
	}
	if c.API.Timeout <= 0 || c.Realtime.ConnectTimeout <= 0 {
		errs = append(errs, ErrInvalidTimeout)
	}
	if c.Execution.Timeout < 0 {
		errs = append(errs, ErrInvalidTimeout)
	}
	if c.Editor.HistoryLimit < 1 {
		errs = append(errs, ErrInvalidHistoryLimit)
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, ErrInvalidLogLevel)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, ErrInvalidLogFormat)
	}
	if c.Inspect.Port < 0 || c.Inspect.Port > 65535 {
		errs = append(errs, ErrInvalidPort)
	}
	return errors.Join(errs...)
}

func absoluteURL(raw string, schemes ...string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return false
	}
	for _, s := range schemes {
		if u.Scheme == s {
			return true
		}
	}
	return false
}
