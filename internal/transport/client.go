// Package transport performs authenticated HTTP GETs against upstream food
// data APIs. It knows nothing about budgets or caching.
package transport

import (
	"context"
	"net/http"
	"time"

	"github.com/agentstation/upcmap/pkg/constants"
	"github.com/agentstation/upcmap/pkg/errors"
)

// DefaultUserAgent identifies upcmap to upstream APIs.
const DefaultUserAgent = "upcmap/1.0 (+https://github.com/agentstation/upcmap)"

// Client provides HTTP client functionality with authentication.
type Client struct {
	http       *http.Client
	auth       Authenticator
	credential string
	userAgent  string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			clone := *c.http
			clone.Timeout = d
			c.http = &clone
		}
	}
}

// WithAuth applies credential to every request through auth.
func WithAuth(auth Authenticator, credential string) Option {
	return func(c *Client) {
		if auth != nil {
			c.auth = auth
			c.credential = credential
		}
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// New creates a new transport client.
func New(opts ...Option) *Client {
	c := &Client{
		http:      &http.Client{Timeout: constants.DefaultHTTPTimeout},
		auth:      &NoAuth{},
		userAgent: DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Timeout returns the per-request timeout.
func (c *Client) Timeout() time.Duration {
	return c.http.Timeout
}

// Get performs a GET request with authentication applied.
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.WrapResource("create", "request", "GET "+url, err)
	}

	if c.credential != "" {
		c.auth.Apply(req, c.credential)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	return c.http.Do(req)
}
