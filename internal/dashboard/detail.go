package dashboard

import (
	"fmt"
	"math"
	"time"
)

// TargetProgress tracks a store's month against its target.
type TargetProgress struct {
	Target                 float64 `json:"target"`
	SalesMTD               float64 `json:"salesMTD"`
	RemainingTarget        float64 `json:"remainingTarget"`
	RemainingTarget90      float64 `json:"remainingTarget90"`
	RemainingDays          int     `json:"remainingDays"`
	RequiredDailyAverage   float64 `json:"requiredDailyAverage"`
	RequiredDailyAverage90 float64 `json:"requiredDailyAverage90"`
	// RunRate projects the month from the daily average so far.
	RunRate float64 `json:"runRate"`
}

// StoreDetail is the store page.
type StoreDetail struct {
	Store    StoreSummary   `json:"store"`
	Today    Period         `json:"today"`
	MTD      Period         `json:"mtd"`
	YTD      Period         `json:"ytd"`
	Progress TargetProgress `json:"progress"`
}

// BuildStoreDetail computes the store page for name. It returns an error
// when the store does not exist.
func BuildStoreDetail(snap *Snapshot, name string, now time.Time) (StoreDetail, error) {
	var store *Store
	for i := range snap.Stores {
		if snap.Stores[i].Name == name {
			store = &snap.Stores[i]
			break
		}
	}
	if store == nil {
		return StoreDetail{}, fmt.Errorf("store %q not found", name)
	}

	var metrics []Metric
	for _, m := range snap.Metrics {
		if m.Store == name {
			metrics = append(metrics, m)
		}
	}

	today := truncateDay(now)
	d := StoreDetail{
		Today: periodTotals(metrics, today, today),
		MTD:   periodTotals(metrics, FilterMonthToDay.Start(now), today),
		YTD:   periodTotals(metrics, FilterYearToDay.Start(now), today),
	}
	if summaries := StoreSummaries(&Snapshot{Metrics: metrics, Stores: []Store{*store}}); len(summaries) == 1 {
		d.Store = summaries[0]
	}
	d.Progress = Progress(store.Target, d.MTD.TotalSales, now)
	return d, nil
}

// Progress works out what a store still needs this month. Today counts as
// a remaining day.
func Progress(target, salesMTD float64, now time.Time) TargetProgress {
	daysInMonth := time.Date(now.Year(), now.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
	remainingDays := daysInMonth - now.Day() + 1

	p := TargetProgress{
		Target:            target,
		SalesMTD:          salesMTD,
		RemainingTarget:   target - salesMTD,
		RemainingTarget90: target*0.9 - salesMTD,
		RemainingDays:     remainingDays,
	}
	if remainingDays > 0 {
		p.RequiredDailyAverage = math.Max(0, p.RemainingTarget) / float64(remainingDays)
		p.RequiredDailyAverage90 = math.Max(0, p.RemainingTarget90) / float64(remainingDays)
	}
	p.RunRate = salesMTD / float64(now.Day()) * float64(daysInMonth)
	return p
}
