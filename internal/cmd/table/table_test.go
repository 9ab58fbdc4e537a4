package table

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/upcmap"
	"github.com/agentstation/upcmap/internal/cmd/emoji"
	"github.com/agentstation/upcmap/pkg/budget"
	"github.com/agentstation/upcmap/pkg/products"
	"github.com/agentstation/upcmap/pkg/provenance"
)

const (
	off products.SourceID = "open_food_facts"
	fdc products.SourceID = "food_data_central"
)

func sampleRecords() *products.Reconciled {
	records := products.NewReconciled()
	records.Set("0041196910759", products.Record{
		Name:        products.NewField(off, "Tofu"),
		Ingredients: products.NewField(fdc, []string{"SOY", "WATER"}),
	})
	records.Set("000", products.Record{})
	return records
}

func TestRecordsToTableData(t *testing.T) {
	data := RecordsToTableData(sampleRecords(), false)

	assert.Equal(t, []string{"Code", "Name", "Ingredients"}, data.Headers)
	require.Len(t, data.Rows, 2)
	assert.Equal(t, []string{"0041196910759", "Tofu", "SOY, WATER"}, data.Rows[0])
	assert.Equal(t, []string{"000", NameNotAvailable, IngredientsNotAvailable}, data.Rows[1])
}

func TestRecordsToTableDataWide(t *testing.T) {
	data := RecordsToTableData(sampleRecords(), true)

	assert.Len(t, data.Headers, 5)
	require.Len(t, data.Rows, 2)
	assert.Equal(t, "open_food_facts", data.Rows[0][3])
	assert.Equal(t, "food_data_central", data.Rows[0][4])
	assert.Equal(t, None, data.Rows[1][3])
	assert.Equal(t, None, data.Rows[1][4])
}

func TestRecordsToTableDataNil(t *testing.T) {
	data := RecordsToTableData(nil, false)
	assert.NotEmpty(t, data.Headers)
	assert.Empty(t, data.Rows)
}

func TestRecordsTruncateLongIngredients(t *testing.T) {
	long := make([]string, 30)
	for i := range long {
		long[i] = "INGREDIENT"
	}
	records := products.NewReconciled()
	records.Set("1", products.Record{Ingredients: products.NewField(off, long)})

	narrow := RecordsToTableData(records, false)
	assert.Len(t, []rune(narrow.Rows[0][2]), maxCellWidth)
	assert.Contains(t, narrow.Rows[0][2], "...")

	wide := RecordsToTableData(records, true)
	assert.Equal(t, FormatIngredients(long), wide.Rows[0][2])
}

func TestFormatIngredients(t *testing.T) {
	assert.Equal(t, "(none)", FormatIngredients(nil))
	assert.Equal(t, "(none)", FormatIngredients([]string{}))
	assert.Equal(t, "A, B", FormatIngredients([]string{"A", "B"}))
}

func TestRawToTableData(t *testing.T) {
	raw := products.NewRawTable([]products.SourceID{off, fdc})
	raw.Set("1", off, products.NewPartialRecord(products.WithName("Tofu")))
	raw.Set("1", fdc, products.NewPartialRecord(products.WithIngredients([]string{"SOY"})))
	raw.Touch("2")

	data := RawToTableData(raw)
	require.Len(t, data.Rows, 3)
	assert.Equal(t, []string{"1", "open_food_facts", "Tofu", None}, data.Rows[0])
	assert.Equal(t, []string{"", "food_data_central", None, "SOY"}, data.Rows[1])
	assert.Equal(t, []string{"2", None, None, None}, data.Rows[2])

	assert.Empty(t, RawToTableData(nil).Rows)
}

func TestSourcesToTableData(t *testing.T) {
	data := SourcesToTableData([]upcmap.SourceInfo{
		{ID: off, Host: "world.openfoodfacts.org", Description: "Open Food Facts"},
		{ID: fdc, Host: "api.nal.usda.gov", NeedsCredential: true},
		{ID: "with_key", NeedsCredential: true, HasCredential: true},
	})

	require.Len(t, data.Rows, 3)
	assert.Len(t, data.ColumnAlignment, len(data.Headers))
	assert.Equal(t, emoji.Optional, data.Rows[0][2])
	assert.Contains(t, data.Rows[1][2], "missing")
	assert.Contains(t, data.Rows[2][2], "configured")
	assert.Equal(t, None, data.Rows[2][1])
}

func TestBudgetsToTableData(t *testing.T) {
	data := BudgetsToTableData([]budget.HostBudget{
		{Host: "a.example", Limit: 2, Used: 2},
		{Host: "b.example", Limit: 5, Used: 1},
	})

	require.Len(t, data.Rows, 2)
	assert.Equal(t, []string{"a.example", "2", "2", "0", emoji.Warning}, data.Rows[0])
	assert.Equal(t, []string{"b.example", "1", "5", "4", ""}, data.Rows[1])
}

func TestProvenanceToTableData(t *testing.T) {
	now := time.Now()
	m := provenance.Map{
		"1:name": {
			{Source: off, Field: "name", Present: true, Selected: true, Value: "Tofu", Timestamp: now},
			{Source: fdc, Field: "name", Timestamp: now},
		},
		"1:ingredients": {
			{Source: off, Field: "ingredients"},
		},
		"2:name": nil,
	}

	data := ProvenanceToTableData(m)
	assert.Len(t, data.ColumnAlignment, len(data.Headers))
	require.Len(t, data.Rows, 3)

	// sorted by key, empty histories dropped
	assert.Equal(t, "1:ingredients", data.Rows[0][0])
	assert.Equal(t, "-", data.Rows[0][3])
	assert.Equal(t, "-", data.Rows[0][4])

	assert.Equal(t, "1:name", data.Rows[1][0])
	assert.Equal(t, "→", data.Rows[1][1])
	assert.Equal(t, "Tofu", data.Rows[1][3])
	assert.Equal(t, "just now", data.Rows[1][4])

	assert.Equal(t, "", data.Rows[2][0])
	assert.Equal(t, "", data.Rows[2][1])
}

func TestMatchField(t *testing.T) {
	tests := []struct {
		key      string
		patterns []string
		want     bool
	}{
		{"1:name", nil, true},
		{"1:name", []string{"*:name"}, true},
		{"1:NAME", []string{"*:name"}, true},
		{"1:ingredients", []string{"*:name"}, false},
		{"1:ingredients", []string{"1"}, true},
		{"12:ingredients", []string{"1"}, false},
		{"1:name", []string{"2:*", "1:*"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			assert.Equal(t, tt.want, MatchField(tt.key, tt.patterns))
		})
	}
}

func TestFilterProvenance(t *testing.T) {
	m := provenance.Map{
		"1:name":        {{Source: off}},
		"1:ingredients": {{Source: off}},
	}
	assert.Len(t, FilterProvenance(m, nil), 2)
	filtered := FilterProvenance(m, []string{"*:name"})
	assert.Len(t, filtered, 1)
	assert.Contains(t, filtered, "1:name")
}

func TestFormatValueAsYAML(t *testing.T) {
	assert.Equal(t, "<nil>", formatValueAsYAML(nil))
	assert.Equal(t, "<empty>", formatValueAsYAML(""))
	assert.Equal(t, "true", formatValueAsYAML(true))

	list := formatValueAsYAML([]string{"SOY", "WATER"})
	assert.NotContains(t, list, "\n")
	assert.Contains(t, list, "SOY")
	assert.Contains(t, list, "WATER")
}

func TestFormatTimestamp(t *testing.T) {
	assert.Equal(t, "-", formatTimestamp(time.Time{}))
	assert.Equal(t, "5 min ago", formatTimestamp(time.Now().Add(-5*time.Minute-time.Second)))
	assert.Equal(t, "3 hr ago", formatTimestamp(time.Now().Add(-3*time.Hour-time.Second)))

	old := time.Date(2020, 1, 2, 3, 4, 0, 0, time.UTC)
	assert.Equal(t, old.Format("2006-01-02 15:04"), formatTimestamp(old))
}
