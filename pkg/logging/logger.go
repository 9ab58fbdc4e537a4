// Package logging builds the zerolog loggers used across upcmap and carries
// them through contexts so sources log with the code and source they serve.
//
// Example usage:
//
//	logger := logging.NewLoggerFromConfig(&logging.Config{Level: "debug"})
//	ctx := logging.WithLogger(context.Background(), &logger)
//	ctx = logging.WithCode(ctx, "0123456789012")
//	logging.FromContext(ctx).Debug().Msg("Cache hit")
package logging

import (
	"io"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/agentstation/upcmap/pkg/constants"
)

// Config selects the level, encoding and destination of a logger.
type Config struct {
	// Level is a zerolog level name. Empty means info.
	Level string

	// Format is json, console or auto. Auto picks console on a terminal.
	Format string

	// Output is stderr, stdout, discard or a file path opened for append.
	Output string

	NoColor   bool
	AddCaller bool
}

var defaultLogger atomic.Pointer[zerolog.Logger]

func init() {
	l := NewLoggerFromConfig(&Config{
		Level:   os.Getenv("LOG_LEVEL"),
		Format:  os.Getenv("LOG_FORMAT"),
		NoColor: os.Getenv("NO_COLOR") != "",
	})
	defaultLogger.Store(&l)
}

// Default returns the process-wide logger.
func Default() *zerolog.Logger {
	return defaultLogger.Load()
}

// SetDefault replaces the process-wide logger, including zerolog's global one.
func SetDefault(logger zerolog.Logger) {
	defaultLogger.Store(&logger)
	log.Logger = logger
}

// OrDefault returns logger, or the default logger when logger is nil.
func OrDefault(logger *zerolog.Logger) *zerolog.Logger {
	if logger == nil {
		return Default()
	}
	return logger
}

// NewNopLogger returns a logger that drops every event.
func NewNopLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

// NewLoggerFromConfig builds a timestamped logger from cfg. A nil cfg means
// info level, auto format, stderr. Debug and lower always record the caller.
func NewLoggerFromConfig(cfg *Config) zerolog.Logger {
	if cfg == nil {
		cfg = &Config{}
	}

	level := parseLevel(cfg.Level)
	ctx := zerolog.New(writerFor(cfg)).Level(level).With().Timestamp()
	if cfg.AddCaller || level <= zerolog.DebugLevel {
		ctx = ctx.Caller()
	}
	return ctx.Logger()
}

func writerFor(cfg *Config) io.Writer {
	var out io.Writer
	switch strings.ToLower(cfg.Output) {
	case "", "stderr":
		out = os.Stderr
	case "stdout":
		out = os.Stdout
	case "discard", "none":
		return io.Discard
	default:
		f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_APPEND|os.O_WRONLY, constants.FilePermissions)
		if err != nil {
			out = os.Stderr
		} else {
			out = f
		}
	}

	console := false
	switch strings.ToLower(cfg.Format) {
	case "console", "pretty":
		console = true
	case "", "auto":
		f, ok := out.(*os.File)
		console = ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
	}
	if !console {
		return out
	}
	return zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen, NoColor: cfg.NoColor}
}

func parseLevel(s string) zerolog.Level {
	switch strings.ToLower(s) {
	case "":
		return zerolog.InfoLevel
	case "warning":
		return zerolog.WarnLevel
	case "none", "off":
		return zerolog.Disabled
	}
	if l, err := zerolog.ParseLevel(strings.ToLower(s)); err == nil {
		return l
	}
	return zerolog.InfoLevel
}
