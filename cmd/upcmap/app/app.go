// Package app provides the application context and dependency management
// for the upcmap CLI. It centralizes configuration, logging and the
// lifecycle of the lookup session.
package app

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/agentstation/upcmap"
	"github.com/agentstation/upcmap/internal/appcontext"
	"github.com/agentstation/upcmap/pkg/errors"
)

// App represents the upcmap application with all its dependencies.
type App struct {
	// Version information
	version string
	commit  string
	date    string
	builtBy string

	config *Config
	logger *zerolog.Logger

	// Upcmap instance (lazy-initialized, singleton)
	mu     sync.RWMutex
	upcmap upcmap.Upcmap
}

// New creates a new App instance with the given version information.
// Configuration is loaded before options are applied, so WithConfig
// replaces it.
func New(version, commit, date, builtBy string, opts ...Option) (*App, error) {
	app := &App{
		version: version,
		commit:  commit,
		date:    date,
		builtBy: builtBy,
	}

	config, err := LoadConfig()
	if err != nil {
		return nil, errors.WrapResource("load", "config", "", err)
	}
	app.config = config

	logger := NewLogger(config)
	app.logger = &logger

	for _, opt := range opts {
		if err := opt(app); err != nil {
			return nil, err
		}
	}

	return app, nil
}

// Version returns the version information.
func (a *App) Version() string {
	return a.version
}

// Commit returns the git commit hash.
func (a *App) Commit() string {
	return a.commit
}

// Date returns the build date.
func (a *App) Date() string {
	return a.date
}

// BuiltBy returns the build system identifier.
func (a *App) BuiltBy() string {
	return a.builtBy
}

// Config returns the application configuration.
func (a *App) Config() *Config {
	return a.config
}

// Logger returns the application logger.
func (a *App) Logger() *zerolog.Logger {
	return a.logger
}

// OutputFormat returns the configured output format.
func (a *App) OutputFormat() string {
	return a.config.Format
}

// Upcmap returns the upcmap instance, creating it lazily if needed.
// This is thread-safe and ensures only one instance is created, so every
// command of a process shares one cache and one set of budgets.
func (a *App) Upcmap() (upcmap.Upcmap, error) {
	a.mu.RLock()
	if a.upcmap != nil {
		u := a.upcmap
		a.mu.RUnlock()
		return u, nil
	}
	a.mu.RUnlock()

	a.mu.Lock()
	defer a.mu.Unlock()

	// Double-check after acquiring write lock
	if a.upcmap != nil {
		return a.upcmap, nil
	}

	u, err := a.UpcmapWithOptions()
	if err != nil {
		return nil, err
	}

	a.upcmap = u
	return u, nil
}

// UpcmapWithOptions returns a new upcmap instance built from the
// configuration, with opts applied after the configured ones.
func (a *App) UpcmapWithOptions(opts ...upcmap.Option) (upcmap.Upcmap, error) {
	base, err := a.config.Options()
	if err != nil {
		return nil, err
	}
	base = append(base, upcmap.WithLogger(a.logger))

	u, err := upcmap.New(append(base, opts...)...)
	if err != nil {
		return nil, errors.WrapResource("create", "upcmap", "", err)
	}
	return u, nil
}

// Shutdown logs how much of each host budget the session used.
func (a *App) Shutdown(_ context.Context) error {
	a.mu.RLock()
	u := a.upcmap
	a.mu.RUnlock()

	if u == nil {
		return nil
	}
	for _, b := range u.State().Budgets() {
		a.logger.Debug().
			Str("host", b.Host).
			Int("used", b.Used).
			Int("limit", b.Limit).
			Msg("Request budget at shutdown")
	}
	return nil
}

// Option is a functional option for configuring the App.
type Option func(*App) error

// WithConfig sets a custom configuration.
func WithConfig(config *Config) Option {
	return func(a *App) error {
		if err := config.Validate(); err != nil {
			return err
		}
		a.config = config
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(a *App) error {
		a.logger = logger
		return nil
	}
}

// WithUpcmap sets a custom upcmap instance (useful for testing).
func WithUpcmap(u upcmap.Upcmap) Option {
	return func(a *App) error {
		a.upcmap = u
		return nil
	}
}

// Ensure App implements appcontext.Interface at compile time.
var _ appcontext.Interface = (*App)(nil)
