// Package upcmap looks up grocery products by UPC across several food data
// sources and reconciles their answers into one record per code.
//
// A session owns a shared request budget and response cache. Each Lookup
// queries every configured source for every code, subject to the budget,
// and merges the partial records by source precedence: for each field the
// first source that has a value wins.
//
// Example usage:
//
//	um, err := upcmap.New(upcmap.WithDefaultHostLimit(50))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	result, err := um.Lookup(ctx, products.Codes("0041196910759"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	rec, _ := result.Records.Get("0041196910759")
//	if name, ok := rec.Name.Get(); ok {
//	    fmt.Println(name, "from", rec.Name.From())
//	}
package upcmap

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/agentstation/upcmap/internal/sources/registry"
	"github.com/agentstation/upcmap/pkg/budget"
	"github.com/agentstation/upcmap/pkg/collector"
	"github.com/agentstation/upcmap/pkg/errors"
	"github.com/agentstation/upcmap/pkg/logging"
	"github.com/agentstation/upcmap/pkg/products"
	"github.com/agentstation/upcmap/pkg/provenance"
	"github.com/agentstation/upcmap/pkg/reconciler"
	"github.com/agentstation/upcmap/pkg/sources"
)

// Upcmap is a product lookup session.
type Upcmap interface {
	// Lookup collects and reconciles records for codes
	Lookup(ctx context.Context, codes []products.Code) (*Result, error)

	// LookupOne looks up a single code
	LookupOne(ctx context.Context, code products.Code) (products.Record, error)

	// Sources returns the configured source ids in precedence order
	Sources() []products.SourceID

	// Describe returns listing information for the configured sources
	Describe() []SourceInfo

	// State returns the shared cache and budget state of the session
	State() *budget.State

	// OnRecord registers a callback for reconciled records
	OnRecord(RecordHook)

	// OnSourceExhausted registers a callback for exhausted sources
	OnSourceExhausted(SourceExhaustedHook)
}

// Result is the outcome of one Lookup.
type Result struct {
	RunID      string               `json:"run_id" yaml:"run_id"`
	Records    *products.Reconciled `json:"records" yaml:"records"`
	Raw        *products.RawTable   `json:"raw,omitempty" yaml:"raw,omitempty"`
	Exhausted  []products.SourceID  `json:"exhausted,omitempty" yaml:"exhausted,omitempty"`
	Budgets    []budget.HostBudget  `json:"budgets" yaml:"budgets"`
	Provenance provenance.Map       `json:"provenance,omitempty" yaml:"provenance,omitempty"`
}

// SourceInfo describes a configured source.
type SourceInfo struct {
	ID              products.SourceID `json:"id" yaml:"id"`
	Description     string            `json:"description,omitempty" yaml:"description,omitempty"`
	Host            string            `json:"host,omitempty" yaml:"host,omitempty"`
	NeedsCredential bool              `json:"needs_credential" yaml:"needs_credential"`
	HasCredential   bool              `json:"has_credential" yaml:"has_credential"`
}

// upcmap is the internal implementation of the Upcmap interface
type upcmap struct {
	config     *config
	state      *budget.State
	sources    *sources.Sources
	collector  *collector.Collector
	reconciler *reconciler.Reconciler
	logger     *zerolog.Logger
	hooks      *hooks
}

// New creates a new session with the given options
func New(opts ...Option) (Upcmap, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, fmt.Errorf("applying options: %w", err)
		}
	}

	um := &upcmap{
		config: cfg,
		logger: logging.OrDefault(cfg.logger),
		hooks:  newHooks(),
	}

	state, err := um.newState()
	if err != nil {
		return nil, err
	}
	um.state = state

	if um.sources, err = um.buildSources(); err != nil {
		return nil, err
	}

	um.collector, err = collector.New(um.sources,
		collector.WithOverflowPolicy(cfg.overflowPolicy),
		collector.WithConcurrency(cfg.concurrency),
		collector.WithLogger(um.logger),
	)
	if err != nil {
		return nil, err
	}

	um.reconciler = reconciler.New(
		reconciler.WithPrecedence(cfg.precedence...),
		reconciler.WithProvenance(cfg.provenance),
	)

	um.logger.Debug().
		Strs("sources", sourceNames(um.sources.IDs())).
		Int("default_host_limit", cfg.defaultHostLimit).
		Msg("Lookup session ready")

	return um, nil
}

func (u *upcmap) newState() (*budget.State, error) {
	if u.config.state != nil {
		return u.config.state, nil
	}
	opts := []budget.StateOption{
		budget.WithDefaultLimit(u.config.defaultHostLimit),
		budget.WithHostLimits(u.config.hostLimits),
	}
	return budget.NewState(append(opts, u.config.stateOptions...)...)
}

func (u *upcmap) buildSources() (*sources.Sources, error) {
	ids := u.config.sourceIDs
	if len(ids) == 0 && len(u.config.instances) > 0 {
		srcs := sources.NewSources()
		return srcs, u.addInstances(srcs)
	}

	srcs, err := registry.Build(ids, registry.Deps{
		State:       u.state,
		Credentials: u.config.credentials,
		Logger:      u.logger,
		HTTPClient:  u.config.httpClient,
		Timeout:     u.config.timeout,
	})
	if err != nil {
		return nil, err
	}
	return srcs, u.addInstances(srcs)
}

func (u *upcmap) addInstances(srcs *sources.Sources) error {
	for _, src := range u.config.instances {
		if err := srcs.Add(src); err != nil {
			return err
		}
	}
	return nil
}

// Lookup collects and reconciles records for codes.
//
// Codes are passed to sources verbatim and are not deduplicated. When the
// run stops early (OverflowAbortRun or cancellation) the partial result is
// returned together with the error.
func (u *upcmap) Lookup(ctx context.Context, codes []products.Code) (*Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	// Step 1: Validate input
	if u.config.maxCodes > 0 && len(codes) > u.config.maxCodes {
		return nil, errors.NewValidationError("codes", len(codes),
			fmt.Sprintf("at most %d codes per lookup, got %d", u.config.maxCodes, len(codes)))
	}

	// Step 2: Tag the run
	runID := uuid.NewString()
	ctx = logging.WithRunID(logging.WithLogger(ctx, u.logger), runID)
	logger := logging.FromContext(ctx)
	logger.Info().Int("codes", len(codes)).Msg("Starting lookup")

	// Step 3: Collect partial records from every source
	collected, collectErr := u.collector.Collect(ctx, codes)

	// Step 4: Reconcile whatever was collected
	records, prov := u.reconciler.ReconcileWithProvenance(collected.Table)

	result := &Result{
		RunID:      runID,
		Records:    records,
		Raw:        collected.Table,
		Exhausted:  collected.Exhausted,
		Budgets:    u.state.Budgets(),
		Provenance: prov,
	}

	// Step 5: Notify listeners
	u.hooks.trigger(records, result.Exhausted)

	if collectErr != nil {
		logger.Warn().Err(collectErr).Msg("Lookup stopped early")
		return result, collectErr
	}

	logger.Info().
		Int("records", records.Len()).
		Int("exhausted", len(result.Exhausted)).
		Msg("Lookup complete")
	return result, nil
}

// LookupOne looks up a single code.
func (u *upcmap) LookupOne(ctx context.Context, code products.Code) (products.Record, error) {
	result, err := u.Lookup(ctx, []products.Code{code})
	if result == nil {
		return products.Record{}, err
	}
	rec, _ := result.Records.Get(code)
	return rec, err
}

// Sources returns the configured source ids.
func (u *upcmap) Sources() []products.SourceID {
	return u.sources.IDs()
}

// Describe returns listing information for the configured sources.
func (u *upcmap) Describe() []SourceInfo {
	list := u.sources.List()
	infos := make([]SourceInfo, 0, len(list))
	for _, src := range list {
		info := SourceInfo{ID: src.ID()}
		if d, ok := src.(sources.Describer); ok {
			info.Description = d.Description()
			info.Host = d.Host()
		}
		if c, ok := src.(sources.CredentialReporter); ok {
			info.NeedsCredential = true
			info.HasCredential = c.HasCredential()
		}
		infos = append(infos, info)
	}
	return infos
}

// State returns the shared state.
func (u *upcmap) State() *budget.State {
	return u.state
}

// OnRecord registers a callback for reconciled records.
func (u *upcmap) OnRecord(fn RecordHook) {
	u.hooks.OnRecord(fn)
}

// OnSourceExhausted registers a callback for exhausted sources.
func (u *upcmap) OnSourceExhausted(fn SourceExhaustedHook) {
	u.hooks.OnSourceExhausted(fn)
}

func sourceNames(ids []products.SourceID) []string {
	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = id.String()
	}
	return names
}
