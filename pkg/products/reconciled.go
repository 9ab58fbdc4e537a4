package products

import (
	"bytes"
	"encoding/json"
	"slices"
)

// Field is a reconciled value together with the source that supplied it.
// A nil Source and Value mean no source supplied the field.
type Field[T any] struct {
	Source *SourceID `json:"source" yaml:"source"`
	Value  *T        `json:"value" yaml:"value"`
}

// NewField returns a field set from the given source.
func NewField[T any](source SourceID, value T) Field[T] {
	return Field[T]{Source: &source, Value: &value}
}

// Present reports whether a source supplied the field.
func (f Field[T]) Present() bool {
	return f.Source != nil && f.Value != nil
}

// From returns the winning source, or "" when absent.
func (f Field[T]) From() SourceID {
	if f.Source == nil {
		return ""
	}
	return *f.Source
}

// Get returns the value and whether it is present.
func (f Field[T]) Get() (T, bool) {
	var zero T
	if f.Value == nil {
		return zero, false
	}
	return *f.Value, true
}

// Record is the reconciled view of one product code.
type Record struct {
	Name        Field[string]   `json:"name" yaml:"name"`
	Ingredients Field[[]string] `json:"ingredients" yaml:"ingredients"`
}

// Reconciled maps codes to reconciled records, preserving code order.
type Reconciled struct {
	codes   []Code
	records map[Code]Record
}

// NewReconciled creates an empty reconciled mapping.
func NewReconciled() *Reconciled {
	return &Reconciled{records: make(map[Code]Record)}
}

// Set stores the record for a code.
func (r *Reconciled) Set(code Code, rec Record) {
	if _, ok := r.records[code]; !ok {
		r.codes = append(r.codes, code)
	}
	r.records[code] = rec
}

// Get returns the record for a code.
func (r *Reconciled) Get(code Code) (Record, bool) {
	rec, ok := r.records[code]
	return rec, ok
}

// Codes returns codes in insertion order.
func (r *Reconciled) Codes() []Code {
	return slices.Clone(r.codes)
}

// Len returns the number of records.
func (r *Reconciled) Len() int {
	return len(r.codes)
}

// Map returns the records as a plain map.
func (r *Reconciled) Map() map[Code]Record {
	out := make(map[Code]Record, len(r.records))
	for k, v := range r.records {
		out[k] = v
	}
	return out
}

// MarshalJSON renders records as an object keyed by code in insertion order.
func (r *Reconciled) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, code := range r.codes {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeKey(&buf, string(code)); err != nil {
			return nil, err
		}
		rec, err := json.Marshal(r.records[code])
		if err != nil {
			return nil, err
		}
		buf.Write(rec)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
