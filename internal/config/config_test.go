package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(vars map[string]string) func(string) string {
	return func(k string) string { return vars[k] }
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	assert.Equal(t, ":8501", cfg.Addr)
	assert.Equal(t, 100, cfg.MaxSessions)
	assert.Equal(t, 30*time.Minute, cfg.IdleTimeout)
	assert.Empty(t, cfg.Journal)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.NoError(t, cfg.Validate())
}

func TestApplyCUE_OverlaysSetFields(t *testing.T) {
	cfg := Defaults()
	err := ApplyCUE(&cfg, "jeamlit.cue", []byte(`
addr:         "127.0.0.1:9000"
idle_timeout: "1h30m"
log_format:   "json"
`))
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.Addr)
	assert.Equal(t, 90*time.Minute, cfg.IdleTimeout)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 100, cfg.MaxSessions, "omitted fields keep their defaults")
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestApplyCUE_Rejects(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{name: "unknown field", src: `port: 8080`},
		{name: "wrong type", src: `max_sessions: "ten"`},
		{name: "negative sessions", src: `max_sessions: -1`},
		{name: "bad duration", src: `idle_timeout: "soon"`},
		{name: "unknown level", src: `log_level: "trace"`},
		{name: "empty addr", src: `addr: ""`},
		{name: "syntax error", src: `addr: `},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			err := ApplyCUE(&cfg, "bad.cue", []byte(tt.src))
			require.Error(t, err)
			var cerr *Error
			assert.ErrorAs(t, err, &cerr)
			assert.Equal(t, Defaults(), cfg, "a rejected file changes nothing")
		})
	}
}

func TestApplyEnv(t *testing.T) {
	cfg := Defaults()
	err := ApplyEnv(&cfg, env(map[string]string{
		EnvAddr:        ":9999",
		EnvMaxSessions: "5",
		EnvIdleTimeout: "45s",
		EnvJournal:     "/tmp/j.db",
		EnvLogLevel:    "DEBUG",
	}))
	require.NoError(t, err)
	assert.Equal(t, Config{
		Addr:        ":9999",
		MaxSessions: 5,
		IdleTimeout: 45 * time.Second,
		Journal:     "/tmp/j.db",
		LogLevel:    "debug",
		LogFormat:   "text",
	}, cfg)
}

func TestApplyEnv_Invalid(t *testing.T) {
	cfg := Defaults()
	err := ApplyEnv(&cfg, env(map[string]string{EnvMaxSessions: "many"}))
	assert.ErrorContains(t, err, EnvMaxSessions)

	err = ApplyEnv(&cfg, env(map[string]string{EnvIdleTimeout: "forever"}))
	assert.ErrorContains(t, err, EnvIdleTimeout)
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jeamlit.cue")
	require.NoError(t, os.WriteFile(path, []byte("max_sessions: 7\njournal: \"file.db\"\n"), 0o644))
	t.Setenv(EnvJournal, "env.db")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.MaxSessions)
	assert.Equal(t, "env.db", cfg.Journal, "environment wins over the file")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.cue"))
	assert.ErrorContains(t, err, "read config")
}

func TestLoad_InvalidEnvLevel(t *testing.T) {
	t.Setenv(EnvLogLevel, "loud")
	_, err := Load("")
	assert.ErrorContains(t, err, "log_level")
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	cfg := Defaults()
	cfg.LogFormat = "json"
	cfg.LogLevel = "warn"

	log := cfg.Logger(&buf)
	log.Info("hidden")
	log.Warn("shown", "k", "v")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)
	assert.Contains(t, buf.String(), `"k":"v"`)
}
