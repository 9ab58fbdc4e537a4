// Package budget guards outbound calls to each upstream host with a request
// budget and a read-through response cache shared by every source that
// targets the same host.
//
// A State is created by whoever owns a lookup session and passed explicitly
// to each Client. Cache entries are write-once and never expire; budget
// counters are never reset for the lifetime of the State.
package budget

import (
	"context"
	"encoding/json"
	"slices"
	"sort"
	"sync"

	"github.com/go-playground/validator/v10"
	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"github.com/agentstation/upcmap/pkg/constants"
	"github.com/agentstation/upcmap/pkg/errors"
)

// Response is a cached upstream outcome. Found is false for the absence
// marker recorded after a non-200 status or an unusable payload.
type Response struct {
	Found bool
	Body  []byte
}

// Missing is the absence marker.
var Missing = Response{}

// Decode unmarshals the payload into v. It returns ErrNotFound for the
// absence marker.
func (r Response) Decode(v any) error {
	if !r.Found {
		return errors.ErrNotFound
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return errors.WrapParse("json", "response", err)
	}
	return nil
}

// HostLimit configures the call budget of one host.
type HostLimit struct {
	Host  string `json:"host" yaml:"host" mapstructure:"host" validate:"required,excludesall=/?#"`
	Limit int    `json:"limit" yaml:"limit" mapstructure:"limit" validate:"gte=0"`
}

// HostRate configures the pacing of live calls to one host.
type HostRate struct {
	Host      string  `json:"host" yaml:"host" mapstructure:"host" validate:"required,excludesall=/?#"`
	PerSecond float64 `json:"per_second" yaml:"per_second" mapstructure:"per_second" validate:"gt=0"`
	Burst     int     `json:"burst,omitempty" yaml:"burst,omitempty" mapstructure:"burst" validate:"gte=0"`
}

// HostBudget is a snapshot of a host's budget.
type HostBudget struct {
	Host  string `json:"host" yaml:"host"`
	Limit int    `json:"limit" yaml:"limit"`
	Used  int    `json:"used" yaml:"used"`
}

// Remaining returns how many live calls the host still allows.
func (b HostBudget) Remaining() int {
	if b.Used >= b.Limit {
		return 0
	}
	return b.Limit - b.Used
}

type pacing struct {
	limit rate.Limit
	burst int
}

// State holds the response cache and per-host budgets of a session.
type State struct {
	mu           sync.Mutex
	defaultLimit int
	budgets      map[string]*HostBudget
	limiters     map[string]*rate.Limiter
	cache        *gocache.Cache
}

// StateOption configures a State.
type StateOption func(*stateConfig)

type stateConfig struct {
	defaultLimit int
	limits       []HostLimit
	rates        []HostRate
	pacing       map[string]pacing
}

// WithDefaultLimit sets the budget applied to hosts without an explicit limit.
func WithDefaultLimit(n int) StateOption {
	return func(c *stateConfig) {
		c.defaultLimit = n
	}
}

// WithHostLimit sets the budget for a single host.
func WithHostLimit(host string, n int) StateOption {
	return func(c *stateConfig) {
		c.limits = append(c.limits, HostLimit{Host: host, Limit: n})
	}
}

// WithHostLimits sets budgets for several hosts.
func WithHostLimits(limits []HostLimit) StateOption {
	return func(c *stateConfig) {
		c.limits = append(c.limits, limits...)
	}
}

// WithHostRate spaces live calls to host at most r per second with the
// given burst. Cache hits are never paced.
func WithHostRate(host string, r rate.Limit, burst int) StateOption {
	return func(c *stateConfig) {
		if c.pacing == nil {
			c.pacing = make(map[string]pacing)
		}
		c.pacing[host] = pacing{limit: r, burst: burst}
	}
}

// WithHostRates paces several hosts. Entries are validated by NewState; a
// zero burst means one.
func WithHostRates(rates []HostRate) StateOption {
	return func(c *stateConfig) {
		c.rates = append(c.rates, rates...)
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// NewState creates an empty State.
func NewState(opts ...StateOption) (*State, error) {
	cfg := &stateConfig{defaultLimit: constants.DefaultHostLimit}
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.defaultLimit < 0 {
		return nil, errors.NewValidationError("default_limit", cfg.defaultLimit, "must be non-negative")
	}

	s := &State{
		defaultLimit: cfg.defaultLimit,
		budgets:      make(map[string]*HostBudget, len(cfg.limits)),
		limiters:     make(map[string]*rate.Limiter, len(cfg.pacing)),
		// Entries never expire and no janitor goroutine is started.
		cache: gocache.New(gocache.NoExpiration, 0),
	}

	for _, l := range cfg.limits {
		if err := validate.Struct(l); err != nil {
			return nil, errors.NewValidationError("host_limits", l, err.Error())
		}
		s.budgets[l.Host] = &HostBudget{Host: l.Host, Limit: l.Limit}
	}

	for _, r := range cfg.rates {
		if err := validate.Struct(r); err != nil {
			return nil, errors.NewValidationError("host_rates", r, err.Error())
		}
		WithHostRate(r.Host, rate.Limit(r.PerSecond), r.Burst)(cfg)
	}

	for host, p := range cfg.pacing {
		if p.burst < 1 {
			p.burst = 1
		}
		s.limiters[host] = rate.NewLimiter(p.limit, p.burst)
	}

	return s, nil
}

// MustNewState is NewState for fixed, known-valid options.
func MustNewState(opts ...StateOption) *State {
	s, err := NewState(opts...)
	if err != nil {
		panic(err)
	}
	return s
}

// budget returns the host's budget, creating it with the default limit.
// Callers must hold s.mu.
func (s *State) budget(host string) *HostBudget {
	b, ok := s.budgets[host]
	if !ok {
		b = &HostBudget{Host: host, Limit: s.defaultLimit}
		s.budgets[host] = b
	}
	return b
}

// Reserve claims one live call against host's budget. The check and the
// increment happen atomically; an exhausted budget yields a
// RequestOverflowError and leaves the counter unchanged.
func (s *State) Reserve(host string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b := s.budget(host)
	if b.Used >= b.Limit {
		return errors.NewRequestOverflowError(host, b.Limit, b.Used)
	}
	b.Used++
	return nil
}

// wait blocks until host's pacing allows another live call.
func (s *State) wait(ctx context.Context, host string) error {
	s.mu.Lock()
	lim, ok := s.limiters[host]
	s.mu.Unlock()
	if !ok {
		return nil
	}
	return lim.Wait(ctx)
}

// Budget returns a snapshot of host's budget.
func (s *State) Budget(host string) HostBudget {
	s.mu.Lock()
	defer s.mu.Unlock()

	if b, ok := s.budgets[host]; ok {
		return *b
	}
	return HostBudget{Host: host, Limit: s.defaultLimit}
}

// Budgets returns snapshots of all known host budgets sorted by host.
func (s *State) Budgets() []HostBudget {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]HostBudget, 0, len(s.budgets))
	for _, b := range s.budgets {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Host < out[j].Host })
	return out
}

// Lookup returns the cached response for url.
func (s *State) Lookup(url string) (Response, bool) {
	v, ok := s.cache.Get(url)
	if !ok {
		return Response{}, false
	}
	return v.(Response), true
}

// Store caches resp for url unless an entry already exists, and returns the
// entry that ends up cached. The first writer wins.
func (s *State) Store(url string, resp Response) Response {
	resp.Body = slices.Clone(resp.Body)
	if err := s.cache.Add(url, resp, gocache.NoExpiration); err != nil {
		if existing, ok := s.Lookup(url); ok {
			return existing
		}
	}
	return resp
}

// CacheLen returns the number of cached URLs.
func (s *State) CacheLen() int {
	return s.cache.ItemCount()
}
