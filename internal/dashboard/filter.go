package dashboard

import (
	"fmt"
	"strings"
	"time"
)

// DateFilter narrows the snapshot to a trailing window.
type DateFilter string

const (
	FilterAll        DateFilter = "all"
	FilterLast7Days  DateFilter = "7d"
	FilterMonthToDay DateFilter = "mtd"
	FilterYearToDay  DateFilter = "ytd"
)

// ParseFilter accepts the filter names used in query strings. Empty means
// all.
func ParseFilter(s string) (DateFilter, error) {
	switch f := DateFilter(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FilterAll, nil
	case FilterAll, FilterLast7Days, FilterMonthToDay, FilterYearToDay:
		return f, nil
	default:
		return "", fmt.Errorf("unknown date filter %q", s)
	}
}

// Start returns the first day included by the filter, or the zero time for
// all.
func (f DateFilter) Start(now time.Time) time.Time {
	today := truncateDay(now)
	switch f {
	case FilterLast7Days:
		return today.AddDate(0, 0, -7)
	case FilterMonthToDay:
		return time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)
	case FilterYearToDay:
		return time.Date(today.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	default:
		return time.Time{}
	}
}

// Apply returns the part of snap inside the filter. Stores and employees
// are not dated and pass through.
func (f DateFilter) Apply(snap *Snapshot, now time.Time) *Snapshot {
	start := f.Start(now)
	if start.IsZero() {
		return snap
	}
	keep := func(date string) bool {
		t, ok := parseDay(date)
		return ok && !t.Before(start)
	}
	out := &Snapshot{Stores: snap.Stores, Employees: snap.Employees}
	for _, m := range snap.Metrics {
		if keep(m.Date) {
			out.Metrics = append(out.Metrics, m)
		}
	}
	for _, p := range snap.Products {
		if keep(p.Date) {
			out.Products = append(out.Products, p)
		}
	}
	for _, d := range snap.Duvets {
		if keep(d.Date) {
			out.Duvets = append(out.Duvets, d)
		}
	}
	return out
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
