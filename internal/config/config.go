// Package config loads server settings: defaults, then an optional CUE
// file validated against an embedded schema, then environment variables.
package config

import (
	_ "embed"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

//go:embed schema.cue
var schemaSrc string

// Environment variables read by ApplyEnv.
const (
	EnvAddr        = "JEAMLIT_ADDR"
	EnvMaxSessions = "JEAMLIT_MAX_SESSIONS"
	EnvIdleTimeout = "JEAMLIT_IDLE_TIMEOUT"
	EnvJournal     = "JEAMLIT_JOURNAL"
	EnvLogLevel    = "JEAMLIT_LOG_LEVEL"
)

// Config holds server configuration.
type Config struct {
	Addr        string
	MaxSessions int
	IdleTimeout time.Duration
	Journal     string
	LogLevel    string
	LogFormat   string
	StaticDir   string
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Addr:        ":8501",
		MaxSessions: 100,
		IdleTimeout: 30 * time.Minute,
		Journal:     "",
		LogLevel:    "info",
		LogFormat:   "text",
		StaticDir:   "",
	}
}

// Error is a configuration error, with the file position when it came
// from a config file.
type Error struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *Error) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Load builds the configuration from defaults, the CUE file at path (if
// path is not empty) and the process environment.
func Load(path string) (Config, error) {
	cfg := Defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := ApplyCUE(&cfg, path, data); err != nil {
			return cfg, err
		}
	}
	if err := ApplyEnv(&cfg, os.Getenv); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// fileConfig mirrors #Config. Nil fields were omitted.
type fileConfig struct {
	Addr        *string `json:"addr"`
	MaxSessions *int    `json:"max_sessions"`
	IdleTimeout *string `json:"idle_timeout"`
	Journal     *string `json:"journal"`
	LogLevel    *string `json:"log_level"`
	LogFormat   *string `json:"log_format"`
	StaticDir   *string `json:"static_dir"`
}

// ApplyCUE validates CUE source against #Config and overlays the fields
// it sets onto cfg. Unknown fields are rejected.
func ApplyCUE(cfg *Config, filename string, src []byte) error {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaSrc, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))

	v := ctx.CompileBytes(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return formatCUEError(err)
	}

	unified := def.Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return formatCUEError(err)
	}

	var fc fileConfig
	if err := unified.Decode(&fc); err != nil {
		return formatCUEError(err)
	}

	if fc.Addr != nil {
		cfg.Addr = *fc.Addr
	}
	if fc.MaxSessions != nil {
		cfg.MaxSessions = *fc.MaxSessions
	}
	if fc.IdleTimeout != nil {
		d, err := time.ParseDuration(*fc.IdleTimeout)
		if err != nil {
			return &Error{Field: "idle_timeout", Message: err.Error(), Pos: unified.LookupPath(cue.ParsePath("idle_timeout")).Pos()}
		}
		cfg.IdleTimeout = d
	}
	if fc.Journal != nil {
		cfg.Journal = *fc.Journal
	}
	if fc.LogLevel != nil {
		cfg.LogLevel = *fc.LogLevel
	}
	if fc.LogFormat != nil {
		cfg.LogFormat = *fc.LogFormat
	}
	if fc.StaticDir != nil {
		cfg.StaticDir = *fc.StaticDir
	}
	return nil
}

// ApplyEnv overlays the JEAMLIT_* variables that are set.
func ApplyEnv(cfg *Config, getenv func(string) string) error {
	if v := getenv(EnvAddr); v != "" {
		cfg.Addr = v
	}
	if v := getenv(EnvMaxSessions); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return &Error{Field: EnvMaxSessions, Message: fmt.Sprintf("not an integer: %q", v)}
		}
		cfg.MaxSessions = n
	}
	if v := getenv(EnvIdleTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return &Error{Field: EnvIdleTimeout, Message: err.Error()}
		}
		cfg.IdleTimeout = d
	}
	if v := getenv(EnvJournal); v != "" {
		cfg.Journal = v
	}
	if v := getenv(EnvLogLevel); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	return nil
}

// Validate checks values that environment overrides can get wrong.
func (c Config) Validate() error {
	if c.Addr == "" {
		return &Error{Field: "addr", Message: "must not be empty"}
	}
	if c.MaxSessions < 0 {
		return &Error{Field: "max_sessions", Message: "must not be negative"}
	}
	if c.IdleTimeout < 0 {
		return &Error{Field: "idle_timeout", Message: "must not be negative"}
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return &Error{Field: "log_level", Message: err.Error()}
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return &Error{Field: "log_format", Message: fmt.Sprintf("unknown format %q", c.LogFormat)}
	}
	return nil
}

// Logger builds the configured logger writing to w.
func (c Config) Logger(w io.Writer) *slog.Logger {
	level, err := parseLevel(c.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) (slog.Level, error) {
	switch s {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown level %q", s)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info
	first := errs[0]
	if positions := errors.Positions(first); len(positions) > 0 {
		return &Error{Field: "config", Message: first.Error(), Pos: positions[0]}
	}
	return &Error{Field: "config", Message: first.Error()}
}
