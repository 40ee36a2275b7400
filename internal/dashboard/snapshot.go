// Package dashboard computes the cockpit's KPIs, rankings, comparisons and
// commissions from a snapshot of the document store.
package dashboard

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kha159-create/alsani-cockpit/internal/docstore"
	"github.com/kha159-create/alsani-cockpit/internal/importer"
)

// Metric is a dailyMetrics document: an employee's day, a store's manual
// entry, or a store's visitor count.
type Metric struct {
	ID               string  `json:"id,omitempty"`
	Date             string  `json:"date"`
	Store            string  `json:"store"`
	Employee         string  `json:"employee,omitempty"`
	TotalSales       float64 `json:"totalSales"`
	TransactionCount float64 `json:"transactionCount"`
	Visitors         float64 `json:"visitors"`
}

// Store is a stores document.
type Store struct {
	ID     string  `json:"id,omitempty"`
	Name   string  `json:"name"`
	Target float64 `json:"target"`
}

// Employee is an employees document.
type Employee struct {
	ID          string  `json:"id,omitempty"`
	Name        string  `json:"name"`
	Store       string  `json:"store"`
	Target      float64 `json:"target"`
	DuvetTarget float64 `json:"duvetTarget"`
}

// Sale is a product sale line from salesTransactions or kingDuvetSales.
type Sale struct {
	ID       string  `json:"id,omitempty"`
	Store    string  `json:"Outlet Name"`
	Date     string  `json:"Bill Dt."`
	ItemName string  `json:"Item Name"`
	Alias    string  `json:"Item Alias"`
	Quantity float64 `json:"Sold Qty"`
	Rate     float64 `json:"Item Rate"`
	Salesman string  `json:"SalesMan Name"`
	Amount   float64 `json:"Item Net Amt"`
}

// Snapshot is everything the dashboard reads at one point in time.
type Snapshot struct {
	Metrics   []Metric
	Stores    []Store
	Employees []Employee
	Products  []Sale
	Duvets    []Sale
}

// Load reads every dashboard collection concurrently. Documents that do
// not decode are logged and left out.
func Load(ctx context.Context, s docstore.Store) (*Snapshot, error) {
	snap := &Snapshot{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return loadInto(gctx, s, docstore.DailyMetrics, &snap.Metrics, func(m *Metric, id string) { m.ID = id })
	})
	g.Go(func() error {
		return loadInto(gctx, s, docstore.Stores, &snap.Stores, func(st *Store, id string) { st.ID = id })
	})
	g.Go(func() error {
		return loadInto(gctx, s, docstore.Employees, &snap.Employees, func(e *Employee, id string) { e.ID = id })
	})
	g.Go(func() error {
		return loadInto(gctx, s, docstore.SalesTransactions, &snap.Products, func(p *Sale, id string) { p.ID = id })
	})
	g.Go(func() error {
		return loadInto(gctx, s, docstore.KingDuvetSales, &snap.Duvets, func(p *Sale, id string) { p.ID = id })
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return snap, nil
}

func loadInto[T any](ctx context.Context, s docstore.Store, coll string, dst *[]T, setID func(*T, string)) error {
	docs, err := s.List(ctx, coll)
	if err != nil {
		return fmt.Errorf("load %s: %w", coll, err)
	}
	out := make([]T, 0, len(docs))
	for _, d := range docs {
		var v T
		if err := d.Decode(&v); err != nil {
			log.Printf("[dashboard] skipping %s/%s: %v", coll, d.ID, err)
			continue
		}
		setID(&v, d.ID)
		out = append(out, v)
	}
	*dst = out
	return nil
}

// parseDay reads a stored date. Older rows may carry a time part or a
// spreadsheet serial; both go through the importer's date rules.
func parseDay(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	day, ok := importer.NormalizeDate(strings.TrimSpace(s))
	if !ok {
		return time.Time{}, false
	}
	t, err := time.Parse("2006-01-02", day)
	return t, err == nil
}
