// Package reconciler merges the partial records of a RawTable into one
// record per code.
//
// Each field is resolved independently: the first source in precedence
// order that has a value for the field supplies it, and the reconciled
// field records which source that was. A field no source knows stays
// absent.
package reconciler

import (
	"slices"

	"github.com/agentstation/upcmap/pkg/products"
	"github.com/agentstation/upcmap/pkg/provenance"
)

// Field names used in provenance.
const (
	FieldName        = "name"
	FieldIngredients = "ingredients"
)

// Reconciler turns RawTables into reconciled records.
type Reconciler struct {
	precedence []products.SourceID
	strategy   Strategy
	provenance bool
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithPrecedence sets the source precedence. Sources in a table but not in
// ids are consulted after them, in table order. Without this option the
// table's own source order is used.
func WithPrecedence(ids ...products.SourceID) Option {
	return func(r *Reconciler) {
		r.precedence = slices.Clone(ids)
	}
}

// WithProvenance makes ReconcileWithProvenance record every source
// consulted per field.
func WithProvenance(enabled bool) Option {
	return func(r *Reconciler) {
		r.provenance = enabled
	}
}

// New creates a reconciler using the FirstNonNull strategy.
func New(opts ...Option) *Reconciler {
	r := &Reconciler{strategy: FirstNonNull{}}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Strategy returns the resolution strategy.
func (r *Reconciler) Strategy() Strategy {
	return r.strategy
}

// Reconcile merges table into a new Reconciled mapping with the same codes
// in the same order. The table is not modified.
func (r *Reconciler) Reconcile(table *products.RawTable) *products.Reconciled {
	out, _ := r.ReconcileWithProvenance(table)
	return out
}

// ReconcileWithProvenance is Reconcile that also returns the provenance of
// this call. The map is nil unless provenance is enabled. Calls share no
// state and may run concurrently.
func (r *Reconciler) ReconcileWithProvenance(table *products.RawTable) (*products.Reconciled, provenance.Map) {
	out := products.NewReconciled()
	tracker := provenance.NewTracker(r.provenance)
	if table == nil {
		return out, tracker.Map()
	}

	order := r.order(table.Sources())

	for _, code := range table.Codes() {
		names := make([]Candidate, 0, len(order))
		ingredients := make([]Candidate, 0, len(order))

		for _, id := range order {
			rec, _ := table.Get(code, id)

			name, ok := rec.Name()
			names = append(names, Candidate{Source: id, Value: name, Present: ok})

			ingr, ok := rec.Ingredients()
			ingredients = append(ingredients, Candidate{Source: id, Value: ingr, Present: ok})
		}

		var result products.Record
		if c, ok := r.resolve(tracker, code, FieldName, names); ok {
			result.Name = products.NewField(c.Source, c.Value.(string))
		}
		if c, ok := r.resolve(tracker, code, FieldIngredients, ingredients); ok {
			result.Ingredients = products.NewField(c.Source, c.Value.([]string))
		}
		out.Set(code, result)
	}

	return out, tracker.Map()
}

// resolve applies the strategy and tracks every candidate.
func (r *Reconciler) resolve(tracker provenance.Tracker, code products.Code, field string, candidates []Candidate) (Candidate, bool) {
	winner, ok := r.strategy.Resolve(field, candidates)

	reason := "no source supplied a value"
	if ok {
		reason = "first source in precedence order with a value"
	}
	for _, c := range candidates {
		p := provenance.Provenance{
			Source:   c.Source,
			Present:  c.Present,
			Selected: ok && c.Source == winner.Source,
			Reason:   reason,
		}
		if c.Present {
			p.Value = c.Value
		}
		tracker.Track(code, field, p)
	}

	return winner, ok
}

// order returns the precedence list followed by any table sources it does
// not mention.
func (r *Reconciler) order(tableSources []products.SourceID) []products.SourceID {
	if len(r.precedence) == 0 {
		return tableSources
	}

	order := make([]products.SourceID, 0, len(r.precedence)+len(tableSources))
	for _, id := range r.precedence {
		if !slices.Contains(order, id) {
			order = append(order, id)
		}
	}
	for _, id := range tableSources {
		if !slices.Contains(order, id) {
			order = append(order, id)
		}
	}
	return order
}
