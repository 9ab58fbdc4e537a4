// Package provenance provides field-level tracking of which source supplied
// each reconciled value and which sources were consulted before it.
package provenance

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/agentstation/upcmap/pkg/products"
)

// Provenance records one source consulted for a field.
type Provenance struct {
	Source    products.SourceID `json:"source" yaml:"source"`
	Field     string            `json:"field" yaml:"field"`
	Present   bool              `json:"present" yaml:"present"`                 // Source had a value for the field
	Selected  bool              `json:"selected" yaml:"selected"`               // Value was chosen for the reconciled record
	Value     any               `json:"value,omitempty" yaml:"value,omitempty"` // Value the source supplied
	Reason    string            `json:"reason,omitempty" yaml:"reason,omitempty"`
	Timestamp time.Time         `json:"timestamp" yaml:"timestamp"`
}

// Map tracks provenance for multiple codes.
type Map map[string][]Provenance // key is "code:field"

// Tracker manages provenance tracking during reconciliation.
type Tracker interface {
	// Track records provenance for a field
	Track(code products.Code, field string, p Provenance)

	// FindByField retrieves provenance for a specific field, in the order tracked
	FindByField(code products.Code, field string) []Provenance

	// FindByCode retrieves all provenance for a code keyed by field
	FindByCode(code products.Code) map[string][]Provenance

	// Map returns the complete provenance map
	Map() Map

	// Clear removes all provenance data
	Clear()
}

// tracker is the default implementation.
type tracker struct {
	mu         sync.RWMutex
	provenance Map
	enabled    bool
}

// NewTracker creates a new provenance tracker. A disabled tracker records
// nothing and returns nil from every lookup.
func NewTracker(enabled bool) Tracker {
	return &tracker{
		provenance: make(Map),
		enabled:    enabled,
	}
}

// Track records provenance for a field.
func (p *tracker) Track(code products.Code, field string, history Provenance) {
	if !p.enabled {
		return
	}

	if history.Timestamp.IsZero() {
		history.Timestamp = time.Now()
	}
	history.Field = field

	p.mu.Lock()
	defer p.mu.Unlock()
	key := makeKey(code, field)
	p.provenance[key] = append(p.provenance[key], history)
}

// FindByField retrieves provenance for a specific field.
func (p *tracker) FindByField(code products.Code, field string) []Provenance {
	if !p.enabled {
		return nil
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]Provenance(nil), p.provenance[makeKey(code, field)]...)
}

// FindByCode retrieves all provenance for a code.
func (p *tracker) FindByCode(code products.Code) map[string][]Provenance {
	if !p.enabled {
		return nil
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.provenance.ForCode(code)
}

// Map returns the complete provenance map.
func (p *tracker) Map() Map {
	if !p.enabled {
		return nil
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	// Return a copy to prevent external modification
	result := make(Map, len(p.provenance))
	for k, v := range p.provenance {
		result[k] = append([]Provenance{}, v...)
	}
	return result
}

// Clear removes all provenance data.
func (p *tracker) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.provenance = make(Map)
}

// makeKey creates a unique key for provenance tracking.
func makeKey(code products.Code, field string) string {
	return fmt.Sprintf("%s:%s", code, field)
}

// ForCode returns copies of the histories recorded for code, keyed by field.
func (m Map) ForCode(code products.Code) map[string][]Provenance {
	result := make(map[string][]Provenance)
	prefix := string(code) + ":"
	for key, info := range m {
		if field, found := strings.CutPrefix(key, prefix); found && !strings.Contains(field, ":") {
			result[field] = append([]Provenance(nil), info...)
		}
	}
	return result
}

// Selected returns the entry chosen for the field, if any.
func Selected(history []Provenance) (Provenance, bool) {
	for _, p := range history {
		if p.Selected {
			return p, true
		}
	}
	return Provenance{}, false
}

// String generates a human-readable provenance report, sorted by key.
func (m Map) String() string {
	var sb strings.Builder

	sb.WriteString("Provenance Report\n")
	sb.WriteString("=================\n\n")

	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		history := m[key]
		sb.WriteString(key)
		sb.WriteString("\n")
		if selected, ok := Selected(history); ok {
			sb.WriteString(fmt.Sprintf("  Current: %v (from %s)\n", selected.Value, selected.Source))
		} else {
			sb.WriteString("  Current: none\n")
		}
		for _, info := range history {
			state := "absent"
			if info.Present {
				state = "present"
			}
			sb.WriteString(fmt.Sprintf("  - %s: %s\n", info.Source, state))
		}
	}

	return sb.String()
}

// WriteYAML writes m as YAML under a top-level provenance key.
func WriteYAML(w io.Writer, m Map) error {
	data, err := yaml.Marshal(struct {
		Provenance Map `yaml:"provenance"`
	}{m})
	if err != nil {
		return fmt.Errorf("failed to marshal provenance: %w", err)
	}
	_, err = w.Write(data)
	return err
}
