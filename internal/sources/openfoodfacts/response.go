package openfoodfacts

import (
	"encoding/json"
	"strings"

	"github.com/agentstation/upcmap/pkg/products"
)

// Response is the envelope returned by /api/v3/product/{code}.json.
type Response struct {
	Code    string          `json:"code"`
	Status  string          `json:"status"`
	Result  *Result         `json:"result,omitempty"`
	Product json.RawMessage `json:"product,omitempty"`
}

// Result describes the outcome of a lookup.
type Result struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Product holds the fields read from the product object.
type Product struct {
	Name        string
	Ingredients []Ingredient
}

// Ingredient is one top-level entry of product.ingredients.
type Ingredient struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// product decodes the product object field by field, so a key with an
// unexpected type only loses that key.
func (r Response) product() Product {
	var p Product
	if len(r.Product) == 0 {
		return p
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(r.Product, &fields); err != nil {
		return p
	}

	if raw, ok := fields["product_name"]; ok {
		_ = json.Unmarshal(raw, &p.Name)
	}

	if raw, ok := fields["ingredients"]; ok {
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err == nil {
			for _, item := range items {
				var ingr Ingredient
				if err := json.Unmarshal(item, &ingr); err == nil {
					p.Ingredients = append(p.Ingredients, ingr)
				}
			}
		}
	}

	return p
}

func (p Product) record() products.PartialRecord {
	var opts []products.RecordOption

	if name := strings.TrimSpace(p.Name); name != "" {
		opts = append(opts, products.WithName(name))
	}

	texts := make([]string, 0, len(p.Ingredients))
	for _, ingr := range p.Ingredients {
		if text := strings.TrimSpace(ingr.Text); text != "" {
			texts = append(texts, text)
		}
	}
	opts = append(opts, products.WithIngredients(texts))

	return products.NewPartialRecord(opts...)
}
