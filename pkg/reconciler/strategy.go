package reconciler

import "github.com/agentstation/upcmap/pkg/products"

// Candidate is one source's offering for a single field.
type Candidate struct {
	Source  products.SourceID
	Value   any
	Present bool
}

// Strategy picks the winning candidate for a field. Candidates arrive in
// precedence order.
type Strategy interface {
	// Name returns the strategy name
	Name() string

	// Resolve returns the chosen candidate and whether any was chosen
	Resolve(field string, candidates []Candidate) (Candidate, bool)
}

// FirstNonNull picks the first present candidate.
type FirstNonNull struct{}

// Name returns the strategy name.
func (FirstNonNull) Name() string {
	return "first-non-null"
}

// Resolve implements Strategy.
func (FirstNonNull) Resolve(_ string, candidates []Candidate) (Candidate, bool) {
	for _, c := range candidates {
		if c.Present {
			return c, true
		}
	}
	return Candidate{}, false
}
