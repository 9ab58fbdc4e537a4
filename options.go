package upcmap

import (
	"net/http"
	"slices"
	"time"

	"github.com/rs/zerolog"

	"github.com/agentstation/upcmap/internal/secrets"
	"github.com/agentstation/upcmap/pkg/budget"
	"github.com/agentstation/upcmap/pkg/collector"
	"github.com/agentstation/upcmap/pkg/constants"
	"github.com/agentstation/upcmap/pkg/errors"
	"github.com/agentstation/upcmap/pkg/products"
	"github.com/agentstation/upcmap/pkg/sources"
)

// Option is a function that configures an Upcmap instance
type Option func(*config) error

// config holds the options of an Upcmap instance
type config struct {
	sourceIDs        []products.SourceID
	instances        []sources.Source
	state            *budget.State
	defaultHostLimit int
	hostLimits       []budget.HostLimit
	stateOptions     []budget.StateOption
	credentials      secrets.Lookup
	overflowPolicy   collector.OverflowPolicy
	concurrency      int
	httpClient       *http.Client
	timeout          time.Duration
	logger           *zerolog.Logger
	maxCodes         int
	precedence       []products.SourceID
	provenance       bool
}

func defaultConfig() *config {
	return &config{
		defaultHostLimit: constants.DefaultHostLimit,
		credentials:      secrets.EnvLookup(),
		overflowPolicy:   collector.OverflowSkipSource,
		concurrency:      constants.DefaultConcurrency,
		timeout:          constants.DefaultHTTPTimeout,
		maxCodes:         constants.MaxItems,
	}
}

// WithSources selects registered sources by id, in precedence order.
func WithSources(ids ...products.SourceID) Option {
	return func(c *config) error {
		c.sourceIDs = slices.Clone(ids)
		return nil
	}
}

// WithSourceInstances adds caller-built sources. They follow any sources
// selected with WithSources; when WithSources is not given, only these
// sources are used. Build them against the State passed to WithState so
// they share the session cache and budgets.
func WithSourceInstances(srcs ...sources.Source) Option {
	return func(c *config) error {
		c.instances = append(c.instances, srcs...)
		return nil
	}
}

// WithState uses an existing shared state instead of creating one.
// Budget options are ignored when a state is supplied.
func WithState(state *budget.State) Option {
	return func(c *config) error {
		if state == nil {
			return errors.NewValidationError("state", nil, "state cannot be nil")
		}
		c.state = state
		return nil
	}
}

// WithDefaultHostLimit sets the per-host call budget for hosts without an
// explicit limit.
func WithDefaultHostLimit(n int) Option {
	return func(c *config) error {
		if n < 0 {
			return errors.NewValidationError("default_host_limit", n, "must be non-negative")
		}
		c.defaultHostLimit = n
		return nil
	}
}

// WithHostLimit sets the call budget of one host.
func WithHostLimit(host string, n int) Option {
	return func(c *config) error {
		c.hostLimits = append(c.hostLimits, budget.HostLimit{Host: host, Limit: n})
		return nil
	}
}

// WithStateOptions passes extra options, such as host pacing, to the
// shared state.
func WithStateOptions(opts ...budget.StateOption) Option {
	return func(c *config) error {
		c.stateOptions = append(c.stateOptions, opts...)
		return nil
	}
}

// WithCredentials sets how source credentials are resolved. The default
// reads the environment.
func WithCredentials(lookup secrets.Lookup) Option {
	return func(c *config) error {
		if lookup == nil {
			lookup = secrets.None()
		}
		c.credentials = lookup
		return nil
	}
}

// WithOverflowPolicy configures what a lookup does when a budget runs out
func WithOverflowPolicy(p collector.OverflowPolicy) Option {
	return func(c *config) error {
		c.overflowPolicy = p
		return nil
	}
}

// WithConcurrency configures how many codes are collected in parallel
func WithConcurrency(n int) Option {
	return func(c *config) error {
		c.concurrency = n
		return nil
	}
}

// WithHTTPClient configures the HTTP client used by registry sources
func WithHTTPClient(hc *http.Client) Option {
	return func(c *config) error {
		c.httpClient = hc
		return nil
	}
}

// WithTimeout configures the per-request timeout of registry sources
func WithTimeout(d time.Duration) Option {
	return func(c *config) error {
		if d <= 0 {
			return errors.NewValidationError("timeout", d, "must be positive")
		}
		c.timeout = d
		return nil
	}
}

// WithLogger configures the logger
func WithLogger(logger *zerolog.Logger) Option {
	return func(c *config) error {
		c.logger = logger
		return nil
	}
}

// WithMaxCodes caps how many codes a single Lookup accepts. Zero removes
// the cap.
func WithMaxCodes(n int) Option {
	return func(c *config) error {
		if n < 0 {
			return errors.NewValidationError("max_codes", n, "must be non-negative")
		}
		c.maxCodes = n
		return nil
	}
}

// WithPrecedence overrides the reconciliation precedence. By default it
// follows source order.
func WithPrecedence(ids ...products.SourceID) Option {
	return func(c *config) error {
		c.precedence = slices.Clone(ids)
		return nil
	}
}

// WithProvenance records which sources were consulted for each field.
func WithProvenance(enabled bool) Option {
	return func(c *config) error {
		c.provenance = enabled
		return nil
	}
}
