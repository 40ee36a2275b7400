package dashboard

import "sort"

// Duvet price bands.
const (
	BandLow    = "Low Value (199-399)"
	BandMedium = "Medium Value (495-695)"
	BandHigh   = "High Value (795-999)"
)

// Bands lists the price bands from cheapest.
var Bands = []string{BandLow, BandMedium, BandHigh}

// DuvetBand returns the band of a unit price. Prices between bands have
// none.
func DuvetBand(price float64) (string, bool) {
	switch {
	case price >= 199 && price <= 399:
		return BandLow, true
	case price >= 495 && price <= 695:
		return BandMedium, true
	case price >= 795 && price <= 999:
		return BandHigh, true
	default:
		return "", false
	}
}

// StoreDuvets counts a store's banded duvet units.
type StoreDuvets struct {
	Name  string             `json:"name"`
	Bands map[string]float64 `json:"bands"`
	Total float64            `json:"total"`
}

// DuvetsByStore counts units per band and store, sorted by store name.
// Sales outside every band are ignored.
func DuvetsByStore(sales []Sale) []StoreDuvets {
	byStore := map[string]*StoreDuvets{}
	for _, s := range sales {
		band, ok := DuvetBand(s.Rate)
		if !ok {
			continue
		}
		name := s.Store
		if name == "" {
			name = "Unknown"
		}
		sd := byStore[name]
		if sd == nil {
			sd = &StoreDuvets{Name: name, Bands: emptyBands()}
			byStore[name] = sd
		}
		sd.Bands[band] += s.Quantity
		sd.Total += s.Quantity
	}
	out := make([]StoreDuvets, 0, len(byStore))
	for _, sd := range byStore {
		out = append(out, *sd)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// EmployeeDuvets is one employee's banded duvet units against target.
type EmployeeDuvets struct {
	Name        string             `json:"name"`
	Bands       map[string]float64 `json:"bands"`
	Share       map[string]float64 `json:"share"`
	Total       float64            `json:"total"`
	Target      float64            `json:"target"`
	Achievement float64            `json:"achievement"`
}

// DuvetsForEmployee counts the banded units sold by e.
func DuvetsForEmployee(sales []Sale, e Employee) EmployeeDuvets {
	out := EmployeeDuvets{Name: e.Name, Bands: emptyBands(), Share: emptyBands(), Target: e.DuvetTarget}
	for _, s := range sales {
		if s.Salesman != e.Name {
			continue
		}
		if band, ok := DuvetBand(s.Rate); ok {
			out.Bands[band] += s.Quantity
			out.Total += s.Quantity
		}
	}
	for _, b := range Bands {
		out.Share[b] = ratio(out.Bands[b], out.Total) * 100
	}
	out.Achievement = ratio(out.Total, out.Target) * 100
	return out
}

func emptyBands() map[string]float64 {
	m := make(map[string]float64, len(Bands))
	for _, b := range Bands {
		m[b] = 0
	}
	return m
}
