// Package products defines the data model shared by sources, the collector
// and the reconciler: product codes, per-source partial records, the raw
// per-run table and the reconciled records handed back to callers.
package products

import (
	"encoding/json"
	"net/url"
	"slices"
	"strings"
)

// Code is an opaque product identifier such as a UPC.
// It is passed verbatim to sources and never parsed.
type Code string

// String returns the string representation of a code.
func (c Code) String() string {
	return string(c)
}

// Escaped returns the code escaped for use as a URL path segment.
func (c Code) Escaped() string {
	return url.PathEscape(string(c))
}

// Codes converts raw strings to codes, dropping blank entries.
func Codes(raw ...string) []Code {
	codes := make([]Code, 0, len(raw))
	for _, r := range raw {
		if r = strings.TrimSpace(r); r != "" {
			codes = append(codes, Code(r))
		}
	}
	return codes
}

// SourceID identifies a data source. It must be unique among the sources
// configured for a run.
type SourceID string

// String returns the string representation of a source id.
func (id SourceID) String() string {
	return string(id)
}

// PartialRecord is what a single source knows about a single code.
// Either field may be absent. A record is immutable once built.
type PartialRecord struct {
	name        *string
	ingredients []string
	hasIngr     bool
}

// RecordOption sets a field on a PartialRecord under construction.
type RecordOption func(*PartialRecord)

// WithName sets the product name.
func WithName(name string) RecordOption {
	return func(r *PartialRecord) {
		r.name = &name
	}
}

// WithIngredients sets the ingredient list. A nil or empty list leaves the
// field absent.
func WithIngredients(ingredients []string) RecordOption {
	return func(r *PartialRecord) {
		if len(ingredients) == 0 {
			return
		}
		r.ingredients = slices.Clone(ingredients)
		r.hasIngr = true
	}
}

// NewPartialRecord builds a record from options.
func NewPartialRecord(opts ...RecordOption) PartialRecord {
	var r PartialRecord
	for _, opt := range opts {
		opt(&r)
	}
	return r
}

// Absent returns a record with no fields set.
func Absent() PartialRecord {
	return PartialRecord{}
}

// Name returns the product name and whether it is present.
func (r PartialRecord) Name() (string, bool) {
	if r.name == nil {
		return "", false
	}
	return *r.name, true
}

// Ingredients returns a copy of the ingredient list and whether it is present.
func (r PartialRecord) Ingredients() ([]string, bool) {
	if !r.hasIngr {
		return nil, false
	}
	return slices.Clone(r.ingredients), true
}

// IsEmpty reports whether no field is present.
func (r PartialRecord) IsEmpty() bool {
	return r.name == nil && !r.hasIngr
}

// Equal reports whether two records hold the same values.
func (r PartialRecord) Equal(other PartialRecord) bool {
	an, aok := r.Name()
	bn, bok := other.Name()
	if aok != bok || an != bn {
		return false
	}
	return r.hasIngr == other.hasIngr && slices.Equal(r.ingredients, other.ingredients)
}

type partialRecordJSON struct {
	Name        *string  `json:"name" yaml:"name"`
	Ingredients []string `json:"ingredients" yaml:"ingredients"`
}

// MarshalJSON renders absent fields as null.
func (r PartialRecord) MarshalJSON() ([]byte, error) {
	out := partialRecordJSON{Name: r.name}
	if r.hasIngr {
		out.Ingredients = r.ingredients
	}
	return json.Marshal(out)
}

// UnmarshalJSON restores a record from its JSON form.
func (r *PartialRecord) UnmarshalJSON(data []byte) error {
	var in partialRecordJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	var opts []RecordOption
	if in.Name != nil {
		opts = append(opts, WithName(*in.Name))
	}
	opts = append(opts, WithIngredients(in.Ingredients))
	*r = NewPartialRecord(opts...)
	return nil
}
