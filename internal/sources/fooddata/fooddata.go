// Package fooddata implements a product source backed by the USDA FoodData
// Central search API. Branded foods are matched on their GTIN/UPC.
//
// The API requires a key (FDC_API_KEY). Without one the source stays
// configured but answers every code with an absent record and never calls
// out.
package fooddata

import (
	"context"
	"net/url"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/agentstation/upcmap/internal/transport"
	"github.com/agentstation/upcmap/pkg/budget"
	"github.com/agentstation/upcmap/pkg/constants"
	"github.com/agentstation/upcmap/pkg/logging"
	"github.com/agentstation/upcmap/pkg/products"
)

// ID is the source id of FoodData Central.
const ID products.SourceID = "food_data_central"

// KeyParam is the query parameter carrying the API key.
const KeyParam = "api_key"

const defaultPageSize = 10

// Source fetches branded food records from FoodData Central.
type Source struct {
	client   *budget.Client
	hasKey   bool
	pageSize int
	logger   *zerolog.Logger
}

// Option configures a Source.
type Option func(*options)

type options struct {
	host     string
	pageSize int
	client   []budget.ClientOption
	logger   *zerolog.Logger
}

// WithHost overrides the API host.
func WithHost(host string) Option {
	return func(o *options) {
		o.host = host
	}
}

// WithPageSize sets how many search results are inspected per code.
func WithPageSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.pageSize = n
		}
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

// New creates a FoodData Central source. apiKey may be empty.
func New(state *budget.State, apiKey string, opts ...Option) *Source {
	o := &options{
		host:     constants.FoodDataCentralHost,
		pageSize: defaultPageSize,
	}
	for _, opt := range opts {
		opt(o)
	}
	logger := logging.OrDefault(o.logger)

	if apiKey == "" {
		logger.Warn().
			Str("source", string(ID)).
			Str("credential", constants.FoodDataCentralKeyName).
			Msg("Credential not set, source will report no data")
	}

	clientOpts := append([]budget.ClientOption{
		budget.WithName(string(ID)),
		budget.WithLogger(logger),
		budget.WithTransport(transport.WithAuth(&transport.QueryAuth{Param: KeyParam}, apiKey)),
	}, o.client...)

	return &Source{
		client:   budget.NewClient(state, o.host, clientOpts...),
		hasKey:   apiKey != "",
		pageSize: o.pageSize,
		logger:   logger,
	}
}

// ID returns the source id.
func (s *Source) ID() products.SourceID {
	return ID
}

// Description describes the source.
func (s *Source) Description() string {
	return "USDA FoodData Central branded foods search"
}

// Host returns the API host.
func (s *Source) Host() string {
	return s.client.Host()
}

// HasCredential reports whether an API key was configured.
func (s *Source) HasCredential() bool {
	return s.hasKey
}

// Fetch searches FoodData Central for code and returns the first branded
// food whose GTIN/UPC matches it.
func (s *Source) Fetch(ctx context.Context, code products.Code) (products.PartialRecord, error) {
	if !s.hasKey {
		return products.Absent(), nil
	}

	resp, err := s.client.Fetch(ctx, s.searchPath(code))
	if err != nil {
		return products.Absent(), err
	}
	if !resp.Found {
		return products.Absent(), nil
	}

	var result SearchResult
	if err := resp.Decode(&result); err != nil {
		s.logger.Debug().Err(err).Str("code", code.String()).Msg("Ignoring undecodable FoodData Central payload")
		return products.Absent(), nil
	}

	food, ok := result.match(code)
	if !ok {
		return products.Absent(), nil
	}
	return food.record(), nil
}

// searchPath excludes the API key so the cache key does not depend on it.
func (s *Source) searchPath(code products.Code) string {
	q := url.Values{}
	q.Set("query", code.String())
	q.Set("dataType", "Branded")
	q.Set("pageSize", strconv.Itoa(s.pageSize))
	return "/fdc/v1/foods/search?" + q.Encode()
}
