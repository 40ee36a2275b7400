package dashboard

import (
	"sort"
	"strings"
)

// StoreSummary is a store's totals for the selected window.
type StoreSummary struct {
	Name              string  `json:"name"`
	Target            float64 `json:"target"`
	TotalSales        float64 `json:"totalSales"`
	TransactionCount  float64 `json:"transactionCount"`
	Visitors          float64 `json:"visitors"`
	ATV               float64 `json:"atv"`
	VisitorRate       float64 `json:"visitorRate"`
	SalesPerVisitor   float64 `json:"salesPerVisitor"`
	TargetAchievement float64 `json:"targetAchievement"`
}

// EmployeeSummary is an employee's totals for the selected window.
type EmployeeSummary struct {
	Name              string  `json:"name"`
	Store             string  `json:"store"`
	Target            float64 `json:"target"`
	DuvetTarget       float64 `json:"duvetTarget"`
	TotalSales        float64 `json:"totalSales"`
	TotalTransactions float64 `json:"totalTransactions"`
	ATV               float64 `json:"atv"`
	Achievement       float64 `json:"achievement"`
}

// KPI is the chain-wide headline.
type KPI struct {
	TotalSales              float64 `json:"totalSales"`
	TotalTransactions       float64 `json:"totalTransactions"`
	TotalVisitors           float64 `json:"totalVisitors"`
	AverageTransactionValue float64 `json:"averageTransactionValue"`
	ConversionRate          float64 `json:"conversionRate"`
	SalesPerVisitor         float64 `json:"salesPerVisitor"`
}

// DaySales is one point of the sales trend.
type DaySales struct {
	Date  string  `json:"date"`
	Sales float64 `json:"sales"`
}

// Overview is the main dashboard page.
type Overview struct {
	KPI           KPI                          `json:"kpi"`
	Stores        []StoreSummary               `json:"stores"`
	Employees     map[string][]EmployeeSummary `json:"employees"`
	TopEmployees  []EmployeeSummary            `json:"topEmployees"`
	SalesOverTime []DaySales                   `json:"salesOverTime"`
}

// TopEmployeeCount is the length of the achievement ranking.
const TopEmployeeCount = 10

// BuildOverview computes the overview of an already filtered snapshot.
func BuildOverview(snap *Snapshot) Overview {
	stores := StoreSummaries(snap)
	employees := EmployeeSummaries(snap)
	return Overview{
		KPI:           Headline(stores),
		Stores:        stores,
		Employees:     employees,
		TopEmployees:  TopEmployees(employees, TopEmployeeCount),
		SalesOverTime: SalesOverTime(snap.Metrics),
	}
}

func ratio(a, b float64) float64 {
	if b > 0 {
		return a / b
	}
	return 0
}

// StoreSummaries totals every metric row per known store, sorted by sales
// descending. Employee rows count toward their store.
func StoreSummaries(snap *Snapshot) []StoreSummary {
	byStore := make(map[string][]Metric)
	for _, m := range snap.Metrics {
		byStore[m.Store] = append(byStore[m.Store], m)
	}

	out := make([]StoreSummary, 0, len(snap.Stores))
	for _, st := range snap.Stores {
		s := StoreSummary{Name: st.Name, Target: st.Target}
		for _, m := range byStore[st.Name] {
			s.TotalSales += m.TotalSales
			s.TransactionCount += m.TransactionCount
			s.Visitors += m.Visitors
		}
		s.ATV = ratio(s.TotalSales, s.TransactionCount)
		s.VisitorRate = ratio(s.TransactionCount, s.Visitors) * 100
		s.SalesPerVisitor = ratio(s.TotalSales, s.Visitors)
		s.TargetAchievement = ratio(s.TotalSales, s.Target) * 100
		out = append(out, s)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].TotalSales > out[j].TotalSales })
	return out
}

// EmployeeSummaries groups employees by store with their totals. Employees
// without a name or store are left out.
func EmployeeSummaries(snap *Snapshot) map[string][]EmployeeSummary {
	type totals struct{ sales, transactions float64 }
	byName := make(map[string]totals)
	for _, m := range snap.Metrics {
		if m.Employee == "" {
			continue
		}
		t := byName[m.Employee]
		t.sales += m.TotalSales
		t.transactions += m.TransactionCount
		byName[m.Employee] = t
	}

	out := make(map[string][]EmployeeSummary)
	for _, e := range snap.Employees {
		if e.Name == "" || e.Store == "" {
			continue
		}
		t := byName[e.Name]
		out[e.Store] = append(out[e.Store], EmployeeSummary{
			Name:              e.Name,
			Store:             e.Store,
			Target:            e.Target,
			DuvetTarget:       e.DuvetTarget,
			TotalSales:        t.sales,
			TotalTransactions: t.transactions,
			ATV:               ratio(t.sales, t.transactions),
			Achievement:       ratio(t.sales, e.Target) * 100,
		})
	}
	for store := range out {
		list := out[store]
		sort.SliceStable(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	}
	return out
}

// Headline sums the store summaries.
func Headline(stores []StoreSummary) KPI {
	var k KPI
	for _, s := range stores {
		k.TotalSales += s.TotalSales
		k.TotalTransactions += s.TransactionCount
		k.TotalVisitors += s.Visitors
	}
	k.AverageTransactionValue = ratio(k.TotalSales, k.TotalTransactions)
	k.ConversionRate = ratio(k.TotalTransactions, k.TotalVisitors) * 100
	k.SalesPerVisitor = ratio(k.TotalSales, k.TotalVisitors)
	return k
}

// TopEmployees ranks employees by target achievement, highest first.
func TopEmployees(byStore map[string][]EmployeeSummary, n int) []EmployeeSummary {
	var all []EmployeeSummary
	for _, list := range byStore {
		all = append(all, list...)
	}
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].Achievement != all[j].Achievement {
			return all[i].Achievement > all[j].Achievement
		}
		return all[i].Name < all[j].Name
	})
	if len(all) > n {
		all = all[:n]
	}
	return all
}

// SalesOverTime sums sales per day, oldest first.
func SalesOverTime(metrics []Metric) []DaySales {
	byDate := make(map[string]float64)
	for _, m := range metrics {
		date, _, _ := strings.Cut(m.Date, "T")
		if date == "" {
			continue
		}
		byDate[date] += m.TotalSales
	}
	out := make([]DaySales, 0, len(byDate))
	for d, s := range byDate {
		out = append(out, DaySales{Date: d, Sales: s})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}
