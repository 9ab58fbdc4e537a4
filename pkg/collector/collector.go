// Package collector queries every configured source for every product code
// and gathers the partial records into a RawTable.
//
// Sources are consulted in configured order. A source error never fails a
// run except for a request budget overflow under OverflowAbortRun and
// context cancellation; every other failure is logged and recorded as an
// absent contribution.
package collector

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/agentstation/upcmap/pkg/constants"
	"github.com/agentstation/upcmap/pkg/errors"
	"github.com/agentstation/upcmap/pkg/logging"
	"github.com/agentstation/upcmap/pkg/products"
	"github.com/agentstation/upcmap/pkg/sources"
)

// Collector gathers partial records from a fixed, ordered set of sources.
type Collector struct {
	sources     *sources.Sources
	policy      OverflowPolicy
	concurrency int
	logger      *zerolog.Logger
}

// Result is the outcome of one Collect call.
type Result struct {
	Table *products.RawTable

	// Exhausted lists, in source order, the sources whose budget ran out
	// during this run.
	Exhausted []products.SourceID
}

// Option configures a Collector.
type Option func(*Collector)

// WithOverflowPolicy sets the overflow policy (default OverflowSkipSource).
func WithOverflowPolicy(p OverflowPolicy) Option {
	return func(c *Collector) {
		c.policy = p
	}
}

// WithConcurrency sets how many codes are collected in parallel. Sources
// within a code are always queried sequentially.
func WithConcurrency(n int) Option {
	return func(c *Collector) {
		c.concurrency = n
	}
}

// WithLogger sets the collector logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(c *Collector) {
		c.logger = logger
	}
}

// New creates a collector over srcs.
func New(srcs *sources.Sources, opts ...Option) (*Collector, error) {
	if srcs == nil {
		return nil, errors.NewValidationError("sources", nil, "sources cannot be nil")
	}

	c := &Collector{
		sources:     srcs,
		policy:      OverflowSkipSource,
		concurrency: constants.DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.OrDefault(c.logger)

	if c.concurrency < 1 || c.concurrency > constants.MaxConcurrency {
		return nil, errors.NewValidationError("concurrency", c.concurrency, "must be between 1 and 16")
	}
	if c.policy != OverflowSkipSource && c.policy != OverflowAbortRun {
		return nil, errors.NewValidationError("overflow_policy", c.policy, "unknown overflow policy")
	}

	return c, nil
}

// Sources returns the ids of the configured sources in order.
func (c *Collector) Sources() []products.SourceID {
	return c.sources.IDs()
}

// Collect builds a fresh RawTable for codes. A Collector holds no per-run
// state, so concurrent calls are independent. Codes are not deduplicated; a
// repeated code is fetched again and overwrites its row with the same
// values, which normally come from the response cache.
//
// Every code in codes appears in the table, in input order, even when the
// run stops early. On OverflowAbortRun or cancellation the partial table is
// returned along with the error.
//
// With concurrency above one the table matches a sequential run as long as
// no budget runs out; which codes were served before an exhaustion then
// depends on scheduling.
func (c *Collector) Collect(ctx context.Context, codes []products.Code) (*Result, error) {
	table := products.NewRawTable(c.sources.IDs())
	for _, code := range codes {
		table.Touch(code)
	}

	r := newRun(c.sources.List())
	logger := c.logger
	if id := logging.RunID(ctx); id != "" {
		l := logger.With().Str("run_id", id).Logger()
		logger = &l
	}
	ctx = logging.WithLogger(ctx, logger)

	logger.Debug().
		Int("codes", len(codes)).
		Int("sources", c.sources.Len()).
		Int("concurrency", c.concurrency).
		Str("overflow_policy", c.policy.String()).
		Msg("Collecting product data")

	var err error
	if c.concurrency <= 1 {
		for _, code := range codes {
			if err = c.collectCode(ctx, r, table, code); err != nil {
				break
			}
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(c.concurrency)
		for _, code := range codes {
			g.Go(func() error {
				return c.collectCode(gctx, r, table, code)
			})
		}
		err = g.Wait()
	}

	res := &Result{Table: table, Exhausted: r.exhaustedIDs()}
	if err != nil {
		logger.Warn().Err(err).Int("codes", table.Len()).Msg("Collection stopped early")
		return res, err
	}

	logger.Debug().Int("codes", table.Len()).Msg("Collection complete")
	return res, nil
}

// collectCode queries each source for code in order. Sources receive a
// context whose logger carries the code and source id.
func (c *Collector) collectCode(ctx context.Context, r *run, table *products.RawTable, code products.Code) error {
	ctx = logging.WithCode(ctx, code.String())
	for _, src := range r.sources {
		if err := ctx.Err(); err != nil {
			return err
		}

		id := src.ID()
		if r.isExhausted(id) {
			table.Set(code, id, products.Absent())
			continue
		}

		srcCtx := logging.WithSource(ctx, id.String())
		rec, err := src.Fetch(srcCtx, code)
		switch {
		case err == nil:
			table.Set(code, id, rec)

		case errors.IsRequestOverflow(err):
			table.Set(code, id, products.Absent())
			first := r.markExhausted(id)
			if c.policy == OverflowAbortRun {
				return err
			}
			if first {
				logging.FromContext(srcCtx).Warn().Err(err).
					Msg("Source budget exhausted, skipping it for the rest of the run")
			}

		case ctx.Err() != nil:
			return ctx.Err()

		default:
			logging.FromContext(srcCtx).Warn().Err(err).
				Msg("Source fetch failed, recording no data")
			table.Set(code, id, products.Absent())
		}
	}
	return nil
}

// run holds the per-Collect exhaustion flags.
type run struct {
	sources []sources.Source

	mu        sync.Mutex
	exhausted map[products.SourceID]bool
}

func newRun(srcs []sources.Source) *run {
	return &run{
		sources:   srcs,
		exhausted: make(map[products.SourceID]bool),
	}
}

func (r *run) isExhausted(id products.SourceID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.exhausted[id]
}

// markExhausted flags id and reports whether this call set the flag.
func (r *run) markExhausted(id products.SourceID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.exhausted[id] {
		return false
	}
	r.exhausted[id] = true
	return true
}

func (r *run) exhaustedIDs() []products.SourceID {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []products.SourceID
	for _, src := range r.sources {
		if r.exhausted[src.ID()] {
			out = append(out, src.ID())
		}
	}
	return out
}
