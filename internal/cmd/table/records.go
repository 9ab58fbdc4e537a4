package table

import (
	"strings"

	"github.com/agentstation/upcmap/pkg/products"
)

// maxCellWidth bounds ingredient cells in the narrow table.
const maxCellWidth = 60

// RecordsToTableData converts reconciled records to table format.
// The wide form adds the source that supplied each field and does not
// truncate ingredient lists.
func RecordsToTableData(records *products.Reconciled, wide bool) Data {
	headers := []string{"Code", "Name", "Ingredients"}
	if wide {
		headers = append(headers, "Name Source", "Ingredients Source")
	}

	if records == nil {
		return Data{Headers: headers}
	}

	rows := make([][]string, 0, records.Len())
	for _, code := range records.Codes() {
		rec, _ := records.Get(code)

		name := NameNotAvailable
		if v, ok := rec.Name.Get(); ok {
			name = v
		}

		ingredients := IngredientsNotAvailable
		if v, ok := rec.Ingredients.Get(); ok {
			ingredients = FormatIngredients(v)
			if !wide {
				ingredients = truncate(ingredients, maxCellWidth)
			}
		}

		row := []string{code.String(), name, ingredients}
		if wide {
			row = append(row, sourceOf(rec.Name.From()), sourceOf(rec.Ingredients.From()))
		}
		rows = append(rows, row)
	}

	return Data{Headers: headers, Rows: rows}
}

// RawToTableData lists every source's contribution per code.
func RawToTableData(raw *products.RawTable) Data {
	headers := []string{"Code", "Source", "Name", "Ingredients"}
	if raw == nil {
		return Data{Headers: headers}
	}

	var rows [][]string
	for _, code := range raw.Codes() {
		entries := raw.Row(code)
		if len(entries) == 0 {
			rows = append(rows, []string{code.String(), None, None, None})
			continue
		}
		for i, entry := range entries {
			codeCell := ""
			if i == 0 {
				codeCell = code.String()
			}

			name := None
			if v, ok := entry.Record.Name(); ok {
				name = v
			}
			ingredients := None
			if v, ok := entry.Record.Ingredients(); ok {
				ingredients = truncate(FormatIngredients(v), maxCellWidth)
			}

			rows = append(rows, []string{codeCell, entry.Source.String(), name, ingredients})
		}
	}

	return Data{Headers: headers, Rows: rows}
}

// FormatIngredients joins an ingredient list for display. An empty list
// is shown as "(none)" since it differs from an absent one.
func FormatIngredients(ingredients []string) string {
	if len(ingredients) == 0 {
		return "(none)"
	}
	return strings.Join(ingredients, ", ")
}

func sourceOf(id products.SourceID) string {
	if id == "" {
		return None
	}
	return id.String()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
