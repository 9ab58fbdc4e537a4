// Package openfoodfacts implements a product source backed by the Open Food
// Facts v3 product API. The API needs no credential.
package openfoodfacts

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/agentstation/upcmap/pkg/budget"
	"github.com/agentstation/upcmap/pkg/constants"
	"github.com/agentstation/upcmap/pkg/logging"
	"github.com/agentstation/upcmap/pkg/products"
)

// ID is the source id of Open Food Facts.
const ID products.SourceID = "open_food_facts"

// Source fetches product records from Open Food Facts.
type Source struct {
	client *budget.Client
	logger *zerolog.Logger
}

// Option configures a Source.
type Option func(*options)

type options struct {
	host   string
	client []budget.ClientOption
	logger *zerolog.Logger
}

// WithHost overrides the API host.
func WithHost(host string) Option {
	return func(o *options) {
		o.host = host
	}
}

// WithClientOptions passes options to the budgeted client.
func WithClientOptions(opts ...budget.ClientOption) Option {
	return func(o *options) {
		o.client = append(o.client, opts...)
	}
}

// WithLogger sets the source logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// New creates an Open Food Facts source that shares state's cache and budgets.
func New(state *budget.State, opts ...Option) *Source {
	o := &options{host: constants.OpenFoodFactsHost}
	for _, opt := range opts {
		opt(o)
	}
	logger := logging.OrDefault(o.logger)

	clientOpts := append([]budget.ClientOption{
		budget.WithName(string(ID)),
		budget.WithLogger(logger),
	}, o.client...)

	return &Source{
		client: budget.NewClient(state, o.host, clientOpts...),
		logger: logger,
	}
}

// ID returns the source id.
func (s *Source) ID() products.SourceID {
	return ID
}

// Description describes the source.
func (s *Source) Description() string {
	return "Open Food Facts product API (v3)"
}

// Host returns the API host.
func (s *Source) Host() string {
	return s.client.Host()
}

// Fetch returns the name and ingredients Open Food Facts has for code.
// An unknown code or an unusable payload yields an absent record.
// Budget overflow is returned unchanged.
func (s *Source) Fetch(ctx context.Context, code products.Code) (products.PartialRecord, error) {
	resp, err := s.client.Fetch(ctx, productPath(code))
	if err != nil {
		return products.Absent(), err
	}
	if !resp.Found {
		return products.Absent(), nil
	}

	var payload Response
	if err := resp.Decode(&payload); err != nil {
		s.logger.Debug().Err(err).Str("code", code.String()).Msg("Ignoring undecodable Open Food Facts payload")
		return products.Absent(), nil
	}

	return payload.product().record(), nil
}

func productPath(code products.Code) string {
	return "/api/v3/product/" + code.Escaped() + ".json"
}
