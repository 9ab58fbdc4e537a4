package reconciler

import (
	"fmt"
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/upcmap/pkg/products"
)

func tofuTable() *products.RawTable {
	table := products.NewRawTable([]products.SourceID{"A", "B"})
	table.Set("1", "A", products.NewPartialRecord(products.WithName("Tofu")))
	table.Set("1", "B", products.NewPartialRecord(products.WithIngredients([]string{"SOY", "WATER"})))
	return table
}

func TestReconcileFieldsIndependently(t *testing.T) {
	got := New().Reconcile(tofuTable())

	want := products.Record{
		Name:        products.NewField[string]("A", "Tofu"),
		Ingredients: products.NewField("B", []string{"SOY", "WATER"}),
	}

	rec, ok := got.Get("1")
	require.True(t, ok)
	if diff := cmp.Diff(want, rec); diff != "" {
		t.Errorf("Reconcile() mismatch (-want +got):\n%s", diff)
	}
}

func TestReconcileAllAbsent(t *testing.T) {
	table := products.NewRawTable([]products.SourceID{"A", "B"})
	table.Set("2", "A", products.Absent())
	table.Set("2", "B", products.Absent())
	table.Touch("3")

	got := New().Reconcile(table)
	assert.Equal(t, []products.Code{"2", "3"}, got.Codes())

	for _, code := range got.Codes() {
		rec, _ := got.Get(code)
		assert.False(t, rec.Name.Present())
		assert.False(t, rec.Ingredients.Present())
		assert.Nil(t, rec.Name.Source)
		assert.Nil(t, rec.Name.Value)
	}
}

func TestReconcilePrecedence(t *testing.T) {
	table := products.NewRawTable([]products.SourceID{"A", "B", "C"})
	table.Set("1", "A", products.NewPartialRecord(products.WithName("from A")))
	table.Set("1", "B", products.NewPartialRecord(products.WithName("from B")))
	table.Set("1", "C", products.NewPartialRecord(
		products.WithName("from C"),
		products.WithIngredients([]string{"C"}),
	))

	tests := []struct {
		name       string
		precedence []products.SourceID
		wantName   products.SourceID
	}{
		{"table order", nil, "A"},
		{"explicit", []products.SourceID{"B", "A", "C"}, "B"},
		{"partial list", []products.SourceID{"C"}, "C"},
		{"unknown ids ignored", []products.SourceID{"Z", "B"}, "B"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, _ := New(WithPrecedence(tt.precedence...)).Reconcile(table).Get("1")
			assert.Equal(t, tt.wantName, rec.Name.From())
			assert.Equal(t, products.SourceID("C"), rec.Ingredients.From())
		})
	}
}

func TestReconcileFirstNonNullProperty(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	ids := []products.SourceID{"s0", "s1", "s2", "s3"}

	for iter := 0; iter < 200; iter++ {
		table := products.NewRawTable(ids)
		code := products.Code(fmt.Sprintf("%d", iter))
		table.Touch(code)
		for _, id := range ids {
			if rng.IntN(3) == 0 {
				continue // source did not respond
			}
			var opts []products.RecordOption
			if rng.IntN(2) == 0 {
				opts = append(opts, products.WithName(string(id)))
			}
			if rng.IntN(2) == 0 {
				opts = append(opts, products.WithIngredients([]string{string(id)}))
			}
			table.Set(code, id, products.NewPartialRecord(opts...))
		}

		rec, ok := New().Reconcile(table).Get(code)
		require.True(t, ok)

		var wantName, wantIngr products.SourceID
		for _, id := range ids {
			entry, _ := table.Get(code, id)
			if _, ok := entry.Name(); ok && wantName == "" {
				wantName = id
			}
			if _, ok := entry.Ingredients(); ok && wantIngr == "" {
				wantIngr = id
			}
		}

		assert.Equal(t, wantName, rec.Name.From(), "iteration %d", iter)
		assert.Equal(t, wantIngr, rec.Ingredients.From(), "iteration %d", iter)
		if name, ok := rec.Name.Get(); ok {
			assert.Equal(t, string(wantName), name)
		}
	}
}

func TestReconcileDeterministic(t *testing.T) {
	r := New()
	first := r.Reconcile(tofuTable())
	second := r.Reconcile(tofuTable())
	if diff := cmp.Diff(first.Map(), second.Map()); diff != "" {
		t.Errorf("Reconcile() not deterministic (-first +second):\n%s", diff)
	}
}

func TestReconcileDoesNotAliasTable(t *testing.T) {
	table := tofuTable()
	rec, _ := New().Reconcile(table).Get("1")

	ingr, _ := rec.Ingredients.Get()
	ingr[0] = "MUTATED"

	entry, _ := table.Get("1", "B")
	stored, _ := entry.Ingredients()
	assert.Equal(t, []string{"SOY", "WATER"}, stored)
}

func TestReconcileNilTable(t *testing.T) {
	assert.Zero(t, New().Reconcile(nil).Len())
}

func TestProvenance(t *testing.T) {
	r := New(WithProvenance(true))
	_, m := r.ReconcileWithProvenance(tofuTable())

	prov := m.ForCode("1")
	require.Contains(t, prov, FieldName)
	require.Contains(t, prov, FieldIngredients)

	names := prov[FieldName]
	require.Len(t, names, 2)
	assert.Equal(t, products.SourceID("A"), names[0].Source)
	assert.True(t, names[0].Selected)
	assert.Equal(t, "Tofu", names[0].Value)
	assert.False(t, names[1].Present)
	assert.False(t, names[1].Selected)

	ingr := prov[FieldIngredients]
	require.Len(t, ingr, 2)
	assert.False(t, ingr[0].Selected)
	assert.True(t, ingr[1].Selected)

	assert.Len(t, m, 2)

	// Each call returns its own provenance.
	_, empty := r.ReconcileWithProvenance(products.NewRawTable(nil))
	assert.Empty(t, empty)
	assert.Len(t, m, 2)
}

func TestProvenanceDisabled(t *testing.T) {
	out, m := New().ReconcileWithProvenance(tofuTable())
	assert.Nil(t, m)
	assert.Equal(t, 1, out.Len())
}

func TestProvenanceConcurrentCalls(t *testing.T) {
	r := New(WithProvenance(true))

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			code := products.Code(fmt.Sprintf("%d", i))
			table := products.NewRawTable([]products.SourceID{"A"})
			table.Set(code, "A", products.NewPartialRecord(products.WithName("n")))

			_, m := r.ReconcileWithProvenance(table)
			assert.Len(t, m, 2)
			assert.Contains(t, m, string(code)+":"+FieldName)
		}()
	}
	wg.Wait()
}

func TestFirstNonNull(t *testing.T) {
	s := FirstNonNull{}
	assert.Equal(t, "first-non-null", s.Name())

	_, ok := s.Resolve(FieldName, nil)
	assert.False(t, ok)

	c, ok := s.Resolve(FieldName, []Candidate{
		{Source: "a"},
		{Source: "b", Value: "x", Present: true},
		{Source: "c", Value: "y", Present: true},
	})
	require.True(t, ok)
	assert.Equal(t, products.SourceID("b"), c.Source)
}
