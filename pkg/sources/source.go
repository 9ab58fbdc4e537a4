// Package sources defines the interface implemented by product data sources
// and an ordered container used to configure them for a run.
//
// A source answers one question: what does it know about a given product
// code. Upstream failures, missing credentials and malformed payloads are
// reported as absent fields rather than errors. The only error a source is
// expected to return is a request budget overflow from the underlying
// budgeted client, which callers use to stop querying that source.
//
// Example usage:
//
//	srcs := sources.NewSources()
//	if err := srcs.Add(off); err != nil {
//	    log.Fatal(err)
//	}
//
//	for _, src := range srcs.List() {
//	    rec, err := src.Fetch(ctx, "0041196910759")
//	    ...
//	}
package sources

import (
	"context"
	"sync"

	"github.com/agentstation/upcmap/pkg/errors"
	"github.com/agentstation/upcmap/pkg/products"
)

// Source represents a data source for product information.
type Source interface {
	// ID returns the unique identifier of this source.
	ID() products.SourceID

	// Fetch returns what this source knows about code.
	Fetch(ctx context.Context, code products.Code) (products.PartialRecord, error)
}

// Describer is implemented by sources that can describe themselves for
// listings.
type Describer interface {
	Description() string
	Host() string
}

// CredentialReporter is implemented by sources that need a credential.
type CredentialReporter interface {
	// HasCredential reports whether the source's credential was found.
	HasCredential() bool
}

// Sources is a thread-safe, ordered container of sources with unique ids.
// Order is insertion order and is the default precedence of a run.
type Sources struct {
	mu      sync.RWMutex
	order   []products.SourceID
	sources map[products.SourceID]Source
}

// NewSources creates a container holding srcs in order. It panics on a
// duplicate id; use Add when the input is not known to be valid.
func NewSources(srcs ...Source) *Sources {
	s := &Sources{
		sources: make(map[products.SourceID]Source, len(srcs)),
	}
	for _, src := range srcs {
		if err := s.Add(src); err != nil {
			panic(err)
		}
	}
	return s
}

// Add appends src. A nil source or a duplicate id is a validation error.
func (s *Sources) Add(src Source) error {
	if src == nil {
		return errors.NewValidationError("source", nil, "source cannot be nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := src.ID()
	if id == "" {
		return errors.NewValidationError("source.id", id, "source id cannot be empty")
	}
	if _, exists := s.sources[id]; exists {
		return errors.NewValidationError("source.id", id, "duplicate source id "+id.String())
	}
	s.order = append(s.order, id)
	s.sources[id] = src
	return nil
}

// Get returns a source by ID.
func (s *Sources) Get(id products.SourceID) (Source, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	src, found := s.sources[id]
	return src, found
}

// Len returns the number of sources.
func (s *Sources) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// List returns the sources in order.
func (s *Sources) List() []Source {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := make([]Source, 0, len(s.order))
	for _, id := range s.order {
		list = append(list, s.sources[id])
	}
	return list
}

// IDs returns the source ids in order.
func (s *Sources) IDs() []products.SourceID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]products.SourceID, len(s.order))
	copy(ids, s.order)
	return ids
}
