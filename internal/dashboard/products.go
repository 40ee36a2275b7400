package dashboard

import (
	"sort"
	"strings"
)

// Product categories.
const (
	CategoryToppers = "Toppers"
	CategoryPillows = "Pillows"
	CategoryDuvets  = "Duvets"
	CategoryOther   = "Other"
)

var topperAliases = map[string]bool{"9300": true, "9605": true, "9183": true, "9421": true, "9606": true}

// Category classifies a product by alias, then by name.
func Category(name, alias string) string {
	if topperAliases[strings.TrimSpace(alias)] {
		return CategoryToppers
	}
	ln := strings.ToLower(name)
	switch {
	case strings.Contains(ln, "pillow") && !strings.Contains(ln, "pillow case"):
		return CategoryPillows
	case strings.Contains(ln, "duvet"), strings.Contains(ln, "comforter"):
		return CategoryDuvets
	default:
		return CategoryOther
	}
}

// ProductSummary is one alias's sales across both sales collections.
type ProductSummary struct {
	Alias    string  `json:"alias"`
	Name     string  `json:"name"`
	Category string  `json:"category"`
	Price    float64 `json:"price"`
	SoldQty  float64 `json:"soldQty"`
	Amount   float64 `json:"amount"`
}

// Products groups sales by alias, most units first. Name and price come
// from the first line seen for the alias.
func Products(snap *Snapshot) []ProductSummary {
	index := map[string]int{}
	var out []ProductSummary
	add := func(sales []Sale) {
		for _, s := range sales {
			if s.Alias == "" {
				continue
			}
			i, ok := index[s.Alias]
			if !ok {
				i = len(out)
				index[s.Alias] = i
				out = append(out, ProductSummary{
					Alias:    s.Alias,
					Name:     s.ItemName,
					Category: Category(s.ItemName, s.Alias),
					Price:    s.Rate,
				})
			}
			out[i].SoldQty += s.Quantity
			out[i].Amount += s.Amount
		}
	}
	add(snap.Products)
	add(snap.Duvets)

	sort.SliceStable(out, func(i, j int) bool { return out[i].SoldQty > out[j].SoldQty })
	return out
}

// ProductFilter narrows the product table. Empty fields match everything.
type ProductFilter struct {
	Name     string
	Alias    string
	Category string
	// PriceRange is one of "<150", "150-500", ">500".
	PriceRange string
}

// Match reports whether p passes the filter.
func (f ProductFilter) Match(p ProductSummary) bool {
	if f.Name != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(f.Name)) {
		return false
	}
	if f.Alias != "" && !strings.Contains(strings.ToLower(p.Alias), strings.ToLower(f.Alias)) {
		return false
	}
	if f.Category != "" && !strings.EqualFold(f.Category, "all") && !strings.EqualFold(f.Category, p.Category) {
		return false
	}
	switch f.PriceRange {
	case "<150":
		return p.Price < 150
	case "150-500":
		return p.Price >= 150 && p.Price <= 500
	case ">500":
		return p.Price > 500
	}
	return true
}

// FilterProducts keeps the products matching f.
func FilterProducts(products []ProductSummary, f ProductFilter) []ProductSummary {
	out := make([]ProductSummary, 0, len(products))
	for _, p := range products {
		if f.Match(p) {
			out = append(out, p)
		}
	}
	return out
}
