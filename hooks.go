package upcmap

import (
	"sync"

	"github.com/agentstation/upcmap/pkg/products"
)

// Hook function types for lookup events
type (
	// RecordHook is called for each reconciled record of a lookup
	RecordHook func(code products.Code, rec products.Record)

	// SourceExhaustedHook is called when a source ran out of budget during a lookup
	SourceExhaustedHook func(id products.SourceID)
)

// hooks manages event callbacks for lookups
type hooks struct {
	mu                sync.RWMutex
	onRecord          []RecordHook
	onSourceExhausted []SourceExhaustedHook
}

// newHooks creates a new hooks instance
func newHooks() *hooks {
	return &hooks{}
}

// OnRecord registers a callback for reconciled records
func (h *hooks) OnRecord(fn RecordHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onRecord = append(h.onRecord, fn)
}

// OnSourceExhausted registers a callback for exhausted sources
func (h *hooks) OnSourceExhausted(fn SourceExhaustedHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onSourceExhausted = append(h.onSourceExhausted, fn)
}

// trigger runs the hooks for a finished lookup in code order
func (h *hooks) trigger(records *products.Reconciled, exhausted []products.SourceID) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, fn := range h.onSourceExhausted {
		for _, id := range exhausted {
			fn(id)
		}
	}

	if len(h.onRecord) == 0 {
		return
	}
	for _, code := range records.Codes() {
		rec, _ := records.Get(code)
		for _, fn := range h.onRecord {
			fn(code, rec)
		}
	}
}
