package table

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/agentstation/upcmap/pkg/provenance"
)

// ProvenanceToTableData converts provenance history to table format.
// Keys are "code:field"; each source consulted for a field gets a row and
// the selected one is marked with an arrow.
func ProvenanceToTableData(m provenance.Map) Data {
	var rows [][]string

	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		history := m[key]
		if len(history) == 0 {
			continue
		}

		for i, entry := range history {
			keyCell := ""
			if i == 0 {
				keyCell = key
			}

			current := ""
			if entry.Selected {
				current = "→"
			}

			value := "-"
			if entry.Present {
				value = formatValueAsYAML(entry.Value)
			}

			rows = append(rows, []string{
				keyCell,
				current,
				entry.Source.String(),
				value,
				formatTimestamp(entry.Timestamp),
				entry.Reason,
			})
		}
	}

	return Data{
		Headers: []string{"Field", "Curr", "Source", "Value", "When", "Reason"},
		Rows:    rows,
		ColumnAlignment: []Align{
			AlignLeft,   // Field
			AlignCenter, // Curr
			AlignLeft,   // Source
			AlignLeft,   // Value
			AlignLeft,   // When
			AlignLeft,   // Reason
		},
	}
}

// FilterProvenance keeps the entries whose key matches any pattern.
func FilterProvenance(m provenance.Map, patterns []string) provenance.Map {
	if len(patterns) == 0 {
		return m
	}
	out := make(provenance.Map)
	for key, history := range m {
		if MatchField(key, patterns) {
			out[key] = history
		}
	}
	return out
}

// MatchField checks if a provenance key matches any of the provided patterns.
// Supports wildcard matching (e.g., "*:name" matches "0041196910759:name").
// Matching is case-insensitive.
func MatchField(key string, patterns []string) bool {
	if len(patterns) == 0 {
		return true
	}

	keyLower := strings.ToLower(key)
	for _, pattern := range patterns {
		patternLower := strings.ToLower(pattern)

		matched, err := filepath.Match(patternLower, keyLower)
		if err == nil && matched {
			return true
		}

		// A bare code matches all of its fields.
		if !strings.Contains(patternLower, ":") && strings.HasPrefix(keyLower, patternLower+":") {
			return true
		}
	}

	return false
}

// formatValueAsYAML formats a provenance value for display.
// Lists are rendered as flow-style YAML on a single line.
func formatValueAsYAML(val any) string {
	if val == nil {
		return "<nil>"
	}

	switch v := val.(type) {
	case string:
		if v == "" {
			return "<empty>"
		}
		return v
	case bool:
		return fmt.Sprintf("%t", v)
	}

	yamlBytes, err := yaml.MarshalWithOptions(val, yaml.Flow(true))
	if err != nil {
		return fmt.Sprintf("%v", val)
	}
	return strings.TrimSuffix(string(yamlBytes), "\n")
}

// formatTimestamp formats a timestamp for display.
func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return "-"
	}

	diff := time.Since(t)
	if diff < time.Minute {
		return "just now"
	}
	if diff < time.Hour {
		return fmt.Sprintf("%d min ago", int(diff.Minutes()))
	}
	if diff < 24*time.Hour {
		return fmt.Sprintf("%d hr ago", int(diff.Hours()))
	}

	return t.Format("2006-01-02 15:04")
}
