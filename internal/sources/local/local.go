// Package local implements the local product database source.
//
// No database is attached yet; every code is answered with an absent record
// and nothing leaves the process.
package local

import (
	"context"

	"github.com/agentstation/upcmap/pkg/products"
)

// ID is the source id of the local database.
const ID products.SourceID = "local_database"

// Source is the local product database.
type Source struct{}

// New creates a local database source.
func New() *Source {
	return &Source{}
}

// ID returns the source id.
func (s *Source) ID() products.SourceID {
	return ID
}

// Description describes the source.
func (s *Source) Description() string {
	return "Local product database (empty)"
}

// Host returns an empty string; the source makes no network calls.
func (s *Source) Host() string {
	return ""
}

// Fetch returns an absent record for every code.
func (s *Source) Fetch(ctx context.Context, _ products.Code) (products.PartialRecord, error) {
	if err := ctx.Err(); err != nil {
		return products.Absent(), err
	}
	return products.Absent(), nil
}
