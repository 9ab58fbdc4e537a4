// Package registry maps source ids to constructors and builds the ordered
// source set of a session.
package registry

import (
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/rs/zerolog"

	"github.com/agentstation/upcmap/internal/secrets"
	"github.com/agentstation/upcmap/internal/sources/fooddata"
	"github.com/agentstation/upcmap/internal/sources/local"
	"github.com/agentstation/upcmap/internal/sources/openfoodfacts"
	"github.com/agentstation/upcmap/internal/transport"
	"github.com/agentstation/upcmap/pkg/budget"
	"github.com/agentstation/upcmap/pkg/constants"
	"github.com/agentstation/upcmap/pkg/errors"
	"github.com/agentstation/upcmap/pkg/logging"
	"github.com/agentstation/upcmap/pkg/products"
	"github.com/agentstation/upcmap/pkg/sources"
)

// Deps carries what source constructors need.
type Deps struct {
	State       *budget.State
	Credentials secrets.Lookup
	Logger      *zerolog.Logger
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// clientOptions returns the budgeted client options shared by all sources.
func (d Deps) clientOptions() []budget.ClientOption {
	var opts []budget.ClientOption
	if d.HTTPClient != nil {
		opts = append(opts, budget.WithTransport(transport.WithHTTPClient(d.HTTPClient)))
	}
	if d.Timeout > 0 {
		opts = append(opts, budget.WithTimeout(d.Timeout))
	}
	return opts
}

func (d Deps) credential(name string) string {
	if d.Credentials == nil {
		return ""
	}
	v, _ := d.Credentials(name)
	return v
}

// Constructor creates a source.
type Constructor func(Deps) sources.Source

var registry = map[products.SourceID]Constructor{
	openfoodfacts.ID: func(d Deps) sources.Source {
		return openfoodfacts.New(d.State,
			openfoodfacts.WithLogger(d.Logger),
			openfoodfacts.WithClientOptions(d.clientOptions()...),
		)
	},
	fooddata.ID: func(d Deps) sources.Source {
		return fooddata.New(d.State, d.credential(constants.FoodDataCentralKeyName),
			fooddata.WithLogger(d.Logger),
			fooddata.WithClientOptions(d.clientOptions()...),
		)
	},
	local.ID: func(Deps) sources.Source {
		return local.New()
	},
}

// DefaultOrder returns the ids used when none are configured, in
// precedence order.
func DefaultOrder() []products.SourceID {
	return []products.SourceID{openfoodfacts.ID, fooddata.ID, local.ID}
}

// Has checks if a source id has a constructor.
func Has(id products.SourceID) bool {
	_, ok := registry[id]
	return ok
}

// List returns all registered source ids sorted by name.
func List() []products.SourceID {
	ids := make([]products.SourceID, 0, len(registry))
	for id := range registry {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Build creates the sources named by ids, in order. An empty ids uses
// DefaultOrder. Unknown or repeated ids are validation errors.
func Build(ids []products.SourceID, deps Deps) (*sources.Sources, error) {
	if deps.State == nil {
		return nil, errors.NewValidationError("state", nil, "shared state is required")
	}
	if len(ids) == 0 {
		ids = DefaultOrder()
	}
	deps.Logger = logging.OrDefault(deps.Logger)

	srcs := sources.NewSources()
	for _, id := range ids {
		newSource, ok := registry[id]
		if !ok {
			return nil, &errors.ValidationError{
				Field:   "sources",
				Value:   id,
				Message: fmt.Sprintf("unsupported source: %s", id),
			}
		}
		if err := srcs.Add(newSource(deps)); err != nil {
			return nil, err
		}
	}
	return srcs, nil
}
