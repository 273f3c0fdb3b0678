package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, DefaultAPIURL, cfg.RealtimeURL())
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"relative api url", func(c *Config) { c.API.URL = "/api" }, ErrInvalidAPIURL},
		{"ftp realtime url", func(c *Config) { c.Realtime.URL = "ftp://x" }, ErrInvalidRealtimeURL},
		{"zero api timeout", func(c *Config) { c.API.Timeout = 0 }, ErrInvalidTimeout},
		{"negative run timeout", func(c *Config) { c.Execution.Timeout = -1 }, ErrInvalidTimeout},
		{"zero history", func(c *Config) { c.Editor.HistoryLimit = 0 }, ErrInvalidHistoryLimit},
		{"bad level", func(c *Config) { c.Log.Level = "trace" }, ErrInvalidLogLevel},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }, ErrInvalidLogFormat},
		{"bad port", func(c *Config) { c.Inspect.Port = 70000 }, ErrInvalidPort},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), tc.want)
		})
	}
}

func TestRealtimeURL_Override(t *testing.T) {
	cfg := Default()
	cfg.Realtime.URL = "wss://events.example.com"

	require.NoError(t, cfg.Validate())
	assert.Equal(t, "wss://events.example.com", cfg.RealtimeURL())
}
