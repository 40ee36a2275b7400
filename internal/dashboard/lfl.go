package dashboard

import "time"

// Period is the total of a date window.
type Period struct {
	TotalSales        float64 `json:"totalSales"`
	TotalTransactions float64 `json:"totalTransactions"`
	TotalVisitors     float64 `json:"totalVisitors"`
	ATV               float64 `json:"atv"`
	VisitorRate       float64 `json:"visitorRate"`
}

// Comparison sets a window against the same window one year earlier.
// Change holds the percentage change of each figure.
type Comparison struct {
	Current  Period `json:"current"`
	Previous Period `json:"previous"`
	Change   Period `json:"change"`
}

// LFL is the like-for-like page: today, month to date and year to date.
type LFL struct {
	Store string     `json:"store"`
	Today Comparison `json:"today"`
	Month Comparison `json:"month"`
	Year  Comparison `json:"year"`
}

// LikeForLike compares against last year. It always uses every metric,
// whatever date filter the rest of the dashboard is on. An empty store
// means all stores.
func LikeForLike(metrics []Metric, store string, now time.Time) LFL {
	if store != "" {
		var only []Metric
		for _, m := range metrics {
			if m.Store == store {
				only = append(only, m)
			}
		}
		metrics = only
	}

	today := truncateDay(now)
	monthStart := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)
	yearStart := time.Date(today.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	lastYear := func(t time.Time) time.Time { return t.AddDate(-1, 0, 0) }

	compare := func(start time.Time) Comparison {
		c := Comparison{
			Current:  periodTotals(metrics, start, today),
			Previous: periodTotals(metrics, lastYear(start), lastYear(today)),
		}
		c.Change = Period{
			TotalSales:        pctChange(c.Current.TotalSales, c.Previous.TotalSales),
			TotalTransactions: pctChange(c.Current.TotalTransactions, c.Previous.TotalTransactions),
			TotalVisitors:     pctChange(c.Current.TotalVisitors, c.Previous.TotalVisitors),
			ATV:               pctChange(c.Current.ATV, c.Previous.ATV),
			VisitorRate:       pctChange(c.Current.VisitorRate, c.Previous.VisitorRate),
		}
		return c
	}

	name := store
	if name == "" {
		name = "All"
	}
	return LFL{
		Store: name,
		Today: compare(today),
		Month: compare(monthStart),
		Year:  compare(yearStart),
	}
}

// periodTotals sums metrics dated within [from, to], both inclusive.
func periodTotals(metrics []Metric, from, to time.Time) Period {
	var p Period
	for _, m := range metrics {
		d, ok := parseDay(m.Date)
		if !ok || d.Before(from) || d.After(to) {
			continue
		}
		p.TotalSales += m.TotalSales
		p.TotalTransactions += m.TransactionCount
		p.TotalVisitors += m.Visitors
	}
	p.ATV = ratio(p.TotalSales, p.TotalTransactions)
	p.VisitorRate = ratio(p.TotalTransactions, p.TotalVisitors) * 100
	return p
}

// pctChange is 0 when there is nothing to compare against.
func pctChange(current, previous float64) float64 {
	if previous == 0 {
		return 0
	}
	return (current - previous) / previous * 100
}
