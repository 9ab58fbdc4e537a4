package appcontext

import (
	"github.com/rs/zerolog"

	"github.com/agentstation/upcmap"
	"github.com/agentstation/upcmap/pkg/logging"
)

// Mock provides a mock implementation of Interface for testing.
// A nil function field returns a default value.
type Mock struct {
	UpcmapFunc            func() (upcmap.Upcmap, error)
	UpcmapWithOptionsFunc func(...upcmap.Option) (upcmap.Upcmap, error)
	LoggerFunc            func() *zerolog.Logger
	Format                string
}

// Upcmap returns an instance using the mock function or upcmap.New.
func (m *Mock) Upcmap() (upcmap.Upcmap, error) {
	if m.UpcmapFunc != nil {
		return m.UpcmapFunc()
	}
	return upcmap.New()
}

// UpcmapWithOptions returns an instance using the mock function or
// upcmap.New with the given options.
func (m *Mock) UpcmapWithOptions(opts ...upcmap.Option) (upcmap.Upcmap, error) {
	if m.UpcmapWithOptionsFunc != nil {
		return m.UpcmapWithOptionsFunc(opts...)
	}
	return upcmap.New(opts...)
}

// Logger returns a logger using the mock function or a no-op logger.
func (m *Mock) Logger() *zerolog.Logger {
	if m.LoggerFunc != nil {
		return m.LoggerFunc()
	}
	return logging.NewNopLogger()
}

// OutputFormat returns Format, defaulting to json.
func (m *Mock) OutputFormat() string {
	if m.Format == "" {
		return "json"
	}
	return m.Format
}

// Version returns "test".
func (m *Mock) Version() string { return "test" }

// Commit returns "test".
func (m *Mock) Commit() string { return "test" }

// Date returns "test".
func (m *Mock) Date() string { return "test" }

// BuiltBy returns "test".
func (m *Mock) BuiltBy() string { return "test" }

// Ensure Mock implements Interface at compile time.
var _ Interface = (*Mock)(nil)
