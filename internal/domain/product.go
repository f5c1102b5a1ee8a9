package domain

import (
	"maps"
	"slices"
	"strings"
)

// Product is a single scraped item. Price stays a string; numeric parsing is
// the price analyzer's job.
type Product struct {
	Description  string            `json:"description"`
	Price        string            `json:"price"`
	SKU          string            `json:"sku"`
	Translations map[string]string `json:"-"`
}

// SetTranslation stores text under the upper-cased code, replacing any
// previous value for that code. Description is never touched.
func (p *Product) SetTranslation(code, text string) {
	if p.Translations == nil {
		p.Translations = make(map[string]string)
	}
	p.Translations[strings.ToUpper(code)] = text
}

// Flatten renders the product with one description_<CODE> field per translation.
func (p Product) Flatten() map[string]any {
	out := map[string]any{
		"description": p.Description,
		"price":       p.Price,
		"sku":         p.SKU,
	}
	for _, code := range slices.Sorted(maps.Keys(p.Translations)) {
		out["description_"+code] = p.Translations[code]
	}
	return out
}

// ShopEntry tells the scraper where to look and how to find each field.
type ShopEntry struct {
	URL                 string      `json:"url"`
	SelectorPrice       string      `json:"selector_price"`
	SelectorDescription string      `json:"selector_description"`
	SelectorSKU         SKUSelector `json:"selector_sku"`
}

// SKUSelector identifies the DOM node and attribute holding a product SKU.
type SKUSelector struct {
	Tag       string `json:"tag"`
	Attribute string `json:"attribute"`
}
