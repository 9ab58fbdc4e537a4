// Package appcontext provides the shared application context interface
// used by all commands.
package appcontext

import (
	"github.com/rs/zerolog"

	"github.com/agentstation/upcmap"
)

// Interface defines what commands need from the application.
// The App struct from cmd/upcmap/app implements it; tests use Mock.
type Interface interface {
	// Upcmap returns the default instance built from configuration,
	// creating it lazily if needed.
	Upcmap() (upcmap.Upcmap, error)

	// UpcmapWithOptions creates a new instance from configuration with
	// extra options applied last. Use this when command flags change the
	// run, such as --sources or --limit.
	UpcmapWithOptions(...upcmap.Option) (upcmap.Upcmap, error)

	// Logger returns the configured logger instance.
	Logger() *zerolog.Logger

	// OutputFormat returns the configured output format (json, yaml, table, wide).
	OutputFormat() string

	// Version returns the application version string.
	Version() string

	// Commit returns the git commit hash.
	Commit() string

	// Date returns the build date.
	Date() string

	// BuiltBy returns the build system identifier.
	BuiltBy() string
}
