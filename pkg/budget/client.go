package budget

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/agentstation/upcmap/internal/transport"
	"github.com/agentstation/upcmap/pkg/constants"
	"github.com/agentstation/upcmap/pkg/errors"
	"github.com/agentstation/upcmap/pkg/logging"
)

// Client fetches paths from one host through a shared State.
type Client struct {
	state     *State
	host      string
	scheme    string
	name      string
	transport *transport.Client
	logger    *zerolog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*clientConfig)

type clientConfig struct {
	scheme    string
	name      string
	timeout   time.Duration
	logger    *zerolog.Logger
	transport []transport.Option
}

// WithScheme overrides the URL scheme (default https).
func WithScheme(scheme string) ClientOption {
	return func(c *clientConfig) {
		c.scheme = scheme
	}
}

// WithName labels the client in logs and errors, usually with the source id.
func WithName(name string) ClientOption {
	return func(c *clientConfig) {
		c.name = name
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *clientConfig) {
		c.timeout = d
	}
}

// WithLogger sets the client logger.
func WithLogger(logger *zerolog.Logger) ClientOption {
	return func(c *clientConfig) {
		c.logger = logger
	}
}

// WithTransport passes options to the underlying transport client.
func WithTransport(opts ...transport.Option) ClientOption {
	return func(c *clientConfig) {
		c.transport = append(c.transport, opts...)
	}
}

// NewClient creates a client for host backed by state.
func NewClient(state *State, host string, opts ...ClientOption) *Client {
	cfg := &clientConfig{
		scheme:  constants.DefaultScheme,
		name:    host,
		timeout: constants.DefaultHTTPTimeout,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	topts := append(cfg.transport, transport.WithTimeout(cfg.timeout))

	return &Client{
		state:     state,
		host:      host,
		scheme:    cfg.scheme,
		name:      cfg.name,
		transport: transport.New(topts...),
		logger:    logging.OrDefault(cfg.logger),
	}
}

// Host returns the host the client targets.
func (c *Client) Host() string {
	return c.host
}

// URL builds the full request URL for path. It is also the cache key.
func (c *Client) URL(path string) string {
	return c.scheme + "://" + c.host + path
}

// Fetch returns the response for path.
//
// A cached response, including a cached absence marker, is returned without
// touching the budget. Otherwise one call is reserved against the host's
// budget; an exhausted budget returns a RequestOverflowError before any
// network activity. A non-200 status, malformed JSON or a transport failure
// is cached as the absence marker, so a URL reaches the network at most
// once per State. Only a cancelled or expired ctx leaves the cache
// untouched.
func (c *Client) Fetch(ctx context.Context, path string) (Response, error) {
	url := c.URL(path)
	logger := c.logger.With().Str("source", c.name).Str("host", c.host).Logger()

	if resp, ok := c.state.Lookup(url); ok {
		logger.Trace().Str("path", path).Bool("found", resp.Found).Msg("Cache hit")
		return resp, nil
	}

	if err := c.state.Reserve(c.host); err != nil {
		logger.Warn().Err(err).Str("path", path).Msg("Request budget exhausted")
		return Response{}, err
	}

	if err := c.state.wait(ctx, c.host); err != nil {
		return Response{}, err
	}

	httpResp, err := c.transport.Get(ctx, url)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Response{}, ctxErr
		}
		logger.Warn().Err(err).Str("path", path).Msg("Upstream request failed")
		return c.state.Store(url, Missing), nil
	}

	body, err := transport.ReadJSON(httpResp, c.name)
	if err != nil {
		event := logger.Debug()
		if errors.IsRateLimited(err) || errors.Is(err, errors.ErrProviderUnavailable) {
			event = logger.Warn()
		}
		event.Err(err).Str("path", path).Msg("Upstream returned no usable payload")
		return c.state.Store(url, Missing), nil
	}

	logger.Debug().Str("path", path).Int("bytes", len(body)).Msg("Fetched upstream payload")
	return c.state.Store(url, Response{Found: true, Body: body}), nil
}
