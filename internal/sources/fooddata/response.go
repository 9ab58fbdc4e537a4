package fooddata

import (
	"strings"

	"github.com/agentstation/upcmap/pkg/products"
)

// SearchResult is the body of /fdc/v1/foods/search.
type SearchResult struct {
	TotalHits   int    `json:"totalHits"`
	CurrentPage int    `json:"currentPage"`
	TotalPages  int    `json:"totalPages"`
	Foods       []Food `json:"foods"`
}

// Food is one search hit.
type Food struct {
	FdcID       int    `json:"fdcId"`
	Description string `json:"description"`
	DataType    string `json:"dataType"`
	GtinUpc     string `json:"gtinUpc"`
	BrandOwner  string `json:"brandOwner"`
	Ingredients string `json:"ingredients"`
}

// match returns the first food whose GTIN/UPC equals code, ignoring leading
// zeros on both sides.
func (r SearchResult) match(code products.Code) (Food, bool) {
	want := normalizeGTIN(code.String())
	if want == "" {
		return Food{}, false
	}
	for _, food := range r.Foods {
		if normalizeGTIN(food.GtinUpc) == want {
			return food, true
		}
	}
	return Food{}, false
}

func normalizeGTIN(s string) string {
	return strings.TrimLeft(strings.TrimSpace(s), "0")
}

func (f Food) record() products.PartialRecord {
	var opts []products.RecordOption
	if name := strings.TrimSpace(f.Description); name != "" {
		opts = append(opts, products.WithName(name))
	}
	opts = append(opts, products.WithIngredients(splitIngredients(f.Ingredients)))
	return products.NewPartialRecord(opts...)
}
