package collector_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/upcmap/internal/sources/openfoodfacts"
	"github.com/agentstation/upcmap/internal/sources/testhelper"
	"github.com/agentstation/upcmap/pkg/budget"
	"github.com/agentstation/upcmap/pkg/collector"
	"github.com/agentstation/upcmap/pkg/errors"
	"github.com/agentstation/upcmap/pkg/logging"
	"github.com/agentstation/upcmap/pkg/products"
	"github.com/agentstation/upcmap/pkg/sources"
)

// fakeSource answers from a fixed map and charges one call per fetch
// against its host in state.
type fakeSource struct {
	id      products.SourceID
	state   *budget.State
	records map[products.Code]products.PartialRecord
	fail    error
	calls   atomic.Int64
}

func (s *fakeSource) ID() products.SourceID { return s.id }

func (s *fakeSource) Fetch(_ context.Context, code products.Code) (products.PartialRecord, error) {
	s.calls.Add(1)
	if s.state != nil {
		if err := s.state.Reserve(string(s.id) + ".example"); err != nil {
			return products.Absent(), err
		}
	}
	if s.fail != nil {
		return products.Absent(), s.fail
	}
	return s.records[code], nil
}

func named(name string) products.PartialRecord {
	return products.NewPartialRecord(products.WithName(name))
}

func TestCollect(t *testing.T) {
	a := &fakeSource{id: "a", records: map[products.Code]products.PartialRecord{
		"1": named("Tofu"),
	}}
	b := &fakeSource{id: "b", records: map[products.Code]products.PartialRecord{
		"1": products.NewPartialRecord(products.WithIngredients([]string{"SOY", "WATER"})),
		"2": named("Milk"),
	}}

	c, err := collector.New(sources.NewSources(a, b), collector.WithLogger(logging.NewNopLogger()))
	require.NoError(t, err)

	res, err := c.Collect(context.Background(), products.Codes("1", "2"))
	table := res.Table
	require.NoError(t, err)

	assert.Equal(t, []products.Code{"1", "2"}, table.Codes())
	assert.Equal(t, []products.SourceID{"a", "b"}, table.Sources())

	rec, ok := table.Get("1", "a")
	require.True(t, ok)
	assert.True(t, rec.Equal(named("Tofu")))

	rec, ok = table.Get("2", "a")
	require.True(t, ok)
	assert.True(t, rec.IsEmpty())

	row := table.Row("1")
	require.Len(t, row, 2)
	assert.Equal(t, products.SourceID("b"), row[1].Source)
	assert.Empty(t, res.Exhausted)
}

func TestCollectSkipsExhaustedSource(t *testing.T) {
	state := budget.MustNewState(budget.WithHostLimit("a.example", 1))
	a := &fakeSource{id: "a", state: state, records: map[products.Code]products.PartialRecord{
		"1": named("A1"), "2": named("A2"), "3": named("A3"),
	}}
	b := &fakeSource{id: "b", records: map[products.Code]products.PartialRecord{
		"1": named("B1"), "2": named("B2"), "3": named("B3"),
	}}

	logger := logging.NewTestLogger(t)
	c, err := collector.New(sources.NewSources(a, b), collector.WithLogger(logger.Logger))
	require.NoError(t, err)

	res, err := c.Collect(context.Background(), products.Codes("1", "2", "3"))
	table := res.Table
	require.NoError(t, err)

	rec, _ := table.Get("1", "a")
	assert.True(t, rec.Equal(named("A1")))
	for _, code := range []products.Code{"2", "3"} {
		rec, ok := table.Get(code, "a")
		require.True(t, ok, "exhausted source still records an entry")
		assert.True(t, rec.IsEmpty())

		rec, _ = table.Get(code, "b")
		assert.False(t, rec.IsEmpty())
	}

	assert.Equal(t, int64(2), a.calls.Load(), "exhausted source is not queried again")
	assert.Equal(t, int64(3), b.calls.Load())
	assert.Equal(t, []products.SourceID{"a"}, res.Exhausted)
	assert.Equal(t, 1, logger.Count("budget exhausted"))
}

func TestCollectAbortsOnOverflow(t *testing.T) {
	state := budget.MustNewState(budget.WithHostLimit("a.example", 1))
	a := &fakeSource{id: "a", state: state, records: map[products.Code]products.PartialRecord{
		"1": named("A1"),
	}}
	b := &fakeSource{id: "b", records: map[products.Code]products.PartialRecord{
		"1": named("B1"),
	}}

	c, err := collector.New(sources.NewSources(a, b),
		collector.WithOverflowPolicy(collector.OverflowAbortRun),
		collector.WithLogger(logging.NewNopLogger()),
	)
	require.NoError(t, err)

	res, err := c.Collect(context.Background(), products.Codes("1", "2", "3"))
	table := res.Table
	require.Error(t, err)
	assert.True(t, errors.IsRequestOverflow(err))

	require.NotNil(t, res)
	assert.Equal(t, []products.Code{"1", "2", "3"}, table.Codes())
	_, ok := table.Get("1", "b")
	assert.True(t, ok)
	_, ok = table.Get("2", "b")
	assert.False(t, ok, "run stops before later sources")
	assert.Equal(t, int64(1), b.calls.Load())
	assert.Equal(t, []products.SourceID{"a"}, res.Exhausted)
}

func TestCollectRecordsFailuresAsAbsent(t *testing.T) {
	a := &fakeSource{id: "a", fail: fmt.Errorf("boom")}
	b := &fakeSource{id: "b", records: map[products.Code]products.PartialRecord{"1": named("B1")}}

	logger := logging.NewTestLogger(t)
	c, err := collector.New(sources.NewSources(a, b), collector.WithLogger(logger.Logger))
	require.NoError(t, err)

	res, err := c.Collect(context.Background(), products.Codes("1"))
	table := res.Table
	require.NoError(t, err)

	rec, ok := table.Get("1", "a")
	require.True(t, ok)
	assert.True(t, rec.IsEmpty())
	rec, _ = table.Get("1", "b")
	assert.True(t, rec.Equal(named("B1")))
	assert.True(t, logger.Contains("boom"))
}

func TestCollectParallelMatchesSequential(t *testing.T) {
	records := make(map[products.Code]products.PartialRecord)
	var codes []products.Code
	for i := 0; i < 40; i++ {
		code := products.Code(fmt.Sprintf("%012d", i))
		codes = append(codes, code)
		if i%3 != 0 {
			records[code] = named(fmt.Sprintf("Product %d", i))
		}
	}
	srcs := sources.NewSources(
		&fakeSource{id: "a", records: records},
		&fakeSource{id: "b", records: map[products.Code]products.PartialRecord{}},
	)

	seq, err := collector.New(srcs, collector.WithLogger(logging.NewNopLogger()))
	require.NoError(t, err)
	par, err := collector.New(srcs, collector.WithConcurrency(8), collector.WithLogger(logging.NewNopLogger()))
	require.NoError(t, err)

	want, err := seq.Collect(context.Background(), codes)
	require.NoError(t, err)
	got, err := par.Collect(context.Background(), codes)
	require.NoError(t, err)

	assert.True(t, want.Table.Equal(got.Table))
	assert.Equal(t, want.Table.Codes(), got.Table.Codes(), "codes keep input order")
}

func TestCollectIsIdempotent(t *testing.T) {
	server := testhelper.NewServer(t, map[string]string{
		"/api/v3/product/0041196910759.json": "off_tofu.json",
	})
	off := openfoodfacts.New(budget.MustNewState(),
		openfoodfacts.WithHost(server.Host()),
		openfoodfacts.WithClientOptions(server.ClientOptions()...),
		openfoodfacts.WithLogger(logging.NewNopLogger()),
	)

	c, err := collector.New(sources.NewSources(off), collector.WithLogger(logging.NewNopLogger()))
	require.NoError(t, err)

	codes := products.Codes("0041196910759", "0000000000031", "0041196910759")
	first, err := c.Collect(context.Background(), codes)
	require.NoError(t, err)
	hits := server.Hits()

	second, err := c.Collect(context.Background(), codes)
	require.NoError(t, err)

	assert.True(t, first.Table.Equal(second.Table))
	assert.Equal(t, hits, server.Hits(), "second run is served from cache")
	assert.Equal(t, 2, hits)
	assert.Equal(t, 2, first.Table.Len(), "repeated code is not duplicated")
}

func TestCollectCancelled(t *testing.T) {
	a := &fakeSource{id: "a"}
	c, err := collector.New(sources.NewSources(a), collector.WithLogger(logging.NewNopLogger()))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := c.Collect(ctx, products.Codes("1", "2"))
	table := res.Table
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, table.Len())
	assert.Zero(t, a.calls.Load())
}

func TestCollectConcurrentRunsKeepOwnExhaustion(t *testing.T) {
	state := budget.MustNewState(budget.WithHostLimit("a.example", 0))
	srcs := sources.NewSources(
		&fakeSource{id: "a", state: state},
		&fakeSource{id: "b", records: map[products.Code]products.PartialRecord{"1": named("B1")}},
	)
	c, err := collector.New(srcs, collector.WithLogger(logging.NewNopLogger()))
	require.NoError(t, err)

	// Only runs reaching source a exhaust it; runs over no codes never do.
	var wg sync.WaitGroup
	for i := range 40 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if i%2 == 0 {
				res, err := c.Collect(context.Background(), products.Codes("1"))
				assert.NoError(t, err)
				assert.Equal(t, []products.SourceID{"a"}, res.Exhausted)
				return
			}
			res, err := c.Collect(context.Background(), nil)
			assert.NoError(t, err)
			assert.Empty(t, res.Exhausted)
		}()
	}
	wg.Wait()
}

func TestNewValidation(t *testing.T) {
	srcs := sources.NewSources()

	_, err := collector.New(nil)
	assert.True(t, errors.IsValidationError(err))

	for _, n := range []int{0, -1, 17} {
		_, err := collector.New(srcs, collector.WithConcurrency(n))
		assert.True(t, errors.IsValidationError(err), "concurrency %d", n)
	}

	_, err = collector.New(srcs, collector.WithOverflowPolicy(collector.OverflowPolicy(9)))
	assert.True(t, errors.IsValidationError(err))
}

func TestParseOverflowPolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    collector.OverflowPolicy
		wantErr bool
	}{
		{"", collector.OverflowSkipSource, false},
		{"skip_source", collector.OverflowSkipSource, false},
		{"ABORT_RUN", collector.OverflowAbortRun, false},
		{"abort", collector.OverflowAbortRun, false},
		{"retry", collector.OverflowSkipSource, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := collector.ParseOverflowPolicy(tt.in)
			if tt.wantErr {
				assert.True(t, errors.IsValidationError(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, mustParse(t, got.String()))
		})
	}
}

func mustParse(t *testing.T, s string) collector.OverflowPolicy {
	t.Helper()
	p, err := collector.ParseOverflowPolicy(s)
	require.NoError(t, err)
	return p
}
