package products

import "github.com/goccy/go-yaml"

// MarshalYAML renders absent fields as null.
func (r PartialRecord) MarshalYAML() (any, error) {
	out := partialRecordJSON{Name: r.name}
	if r.hasIngr {
		out.Ingredients = r.ingredients
	}
	return out, nil
}

// MarshalYAML renders the table keyed by code, then source, in order.
func (t *RawTable) MarshalYAML() (any, error) {
	codes := t.Codes()
	out := make(yaml.MapSlice, 0, len(codes))
	for _, code := range codes {
		row := t.Row(code)
		entries := make(yaml.MapSlice, 0, len(row))
		for _, entry := range row {
			entries = append(entries, yaml.MapItem{Key: string(entry.Source), Value: entry.Record})
		}
		out = append(out, yaml.MapItem{Key: string(code), Value: entries})
	}
	return out, nil
}

// MarshalYAML renders records keyed by code in insertion order.
func (r *Reconciled) MarshalYAML() (any, error) {
	out := make(yaml.MapSlice, 0, len(r.codes))
	for _, code := range r.codes {
		out = append(out, yaml.MapItem{Key: string(code), Value: r.records[code]})
	}
	return out, nil
}
