package products

import (
	"bytes"
	"encoding/json"
	"slices"
	"sync"
)

// Entry is one source's contribution for a code.
type Entry struct {
	Source SourceID
	Record PartialRecord
}

// RawTable maps each code to every source's partial record for that code.
// The source order fixed at construction is the precedence order used by
// reconciliation. Codes keep first-seen order. The table only grows.
type RawTable struct {
	mu      sync.RWMutex
	sources []SourceID
	codes   []Code
	rows    map[Code]map[SourceID]PartialRecord
}

// NewRawTable creates an empty table for the given source order.
func NewRawTable(sources []SourceID) *RawTable {
	return &RawTable{
		sources: slices.Clone(sources),
		rows:    make(map[Code]map[SourceID]PartialRecord),
	}
}

// Set records a source's contribution for a code. Setting the same
// code and source again overwrites the entry.
func (t *RawTable) Set(code Code, source SourceID, rec PartialRecord) {
	t.mu.Lock()
	defer t.mu.Unlock()

	row, ok := t.rows[code]
	if !ok {
		row = make(map[SourceID]PartialRecord, len(t.sources))
		t.rows[code] = row
		t.codes = append(t.codes, code)
	}
	if !slices.Contains(t.sources, source) {
		t.sources = append(t.sources, source)
	}
	row[source] = rec
}

// Touch registers a code without any contribution so it still appears in
// output when every source is skipped.
func (t *RawTable) Touch(code Code) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.rows[code]; ok {
		return
	}
	t.rows[code] = make(map[SourceID]PartialRecord, len(t.sources))
	t.codes = append(t.codes, code)
}

// Get returns the record a source supplied for a code.
func (t *RawTable) Get(code Code, source SourceID) (PartialRecord, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	rec, ok := t.rows[code][source]
	return rec, ok
}

// Row returns all contributions for a code in source order.
func (t *RawTable) Row(code Code) []Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()

	row := t.rows[code]
	entries := make([]Entry, 0, len(row))
	for _, id := range t.sources {
		if rec, ok := row[id]; ok {
			entries = append(entries, Entry{Source: id, Record: rec})
		}
	}
	return entries
}

// Codes returns codes in first-seen order.
func (t *RawTable) Codes() []Code {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return slices.Clone(t.codes)
}

// Sources returns the source precedence order.
func (t *RawTable) Sources() []SourceID {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return slices.Clone(t.sources)
}

// Len returns the number of codes in the table.
func (t *RawTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.codes)
}

// Equal reports whether two tables hold the same contributions.
// Code order is ignored.
func (t *RawTable) Equal(other *RawTable) bool {
	if other == nil {
		return false
	}
	if t.Len() != other.Len() || !slices.Equal(t.Sources(), other.Sources()) {
		return false
	}
	for _, code := range t.Codes() {
		a, b := t.Row(code), other.Row(code)
		if len(a) != len(b) {
			return false
		}
		for i := range a {
			if a[i].Source != b[i].Source || !a[i].Record.Equal(b[i].Record) {
				return false
			}
		}
	}
	return true
}

// MarshalJSON renders the table as an object keyed by code, then source,
// preserving code and source order.
func (t *RawTable) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, code := range t.Codes() {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeKey(&buf, string(code)); err != nil {
			return nil, err
		}
		buf.WriteByte('{')
		for j, entry := range t.Row(code) {
			if j > 0 {
				buf.WriteByte(',')
			}
			if err := writeKey(&buf, string(entry.Source)); err != nil {
				return nil, err
			}
			rec, err := json.Marshal(entry.Record)
			if err != nil {
				return nil, err
			}
			buf.Write(rec)
		}
		buf.WriteByte('}')
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeKey(buf *bytes.Buffer, key string) error {
	k, err := json.Marshal(key)
	if err != nil {
		return err
	}
	buf.Write(k)
	buf.WriteByte(':')
	return nil
}
