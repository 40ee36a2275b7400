package api

import (
	"errors"
	"net/http"
	"sort"

	"github.com/kha159-create/alsani-cockpit/internal/dashboard"
	"github.com/kha159-create/alsani-cockpit/internal/docstore"
	"github.com/kha159-create/alsani-cockpit/internal/pkg/httputil"
	"github.com/kha159-create/alsani-cockpit/internal/worker"
)

// GetDashboard returns KPIs, store and employee tables, the top
// employees and the sales trend.
//
//	GET /api/dashboard?filter=all|7d|mtd|ytd
func (h *Handlers) GetDashboard(w http.ResponseWriter, r *http.Request) {
	snap, filter, ok := h.snapshot(w, r)
	if !ok {
		return
	}
	httputil.OK(w, map[string]any{
		"filter":   filter,
		"overview": dashboard.BuildOverview(snap),
	})
}

// GetLikeForLike compares with the same periods last year. The date
// filter does not apply.
//
//	GET /api/dashboard/lfl?store=
func (h *Handlers) GetLikeForLike(w http.ResponseWriter, r *http.Request) {
	snap, err := dashboard.Load(r.Context(), h.Store)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, dashboard.LikeForLike(snap.Metrics, r.URL.Query().Get("store"), h.now()))
}

// GetStoreDetail returns one store's periods and target progress.
//
//	GET /api/stores/{name}/detail
func (h *Handlers) GetStoreDetail(w http.ResponseWriter, r *http.Request) {
	snap, err := dashboard.Load(r.Context(), h.Store)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	detail, err := dashboard.BuildStoreDetail(snap, pathParam(r, "name"), h.now())
	if err != nil {
		httputil.NotFound(w, err.Error())
		return
	}
	httputil.OK(w, detail)
}

// GetBriefing returns today's scheduled briefing.
//
//	GET /api/briefing
func (h *Handlers) GetBriefing(w http.ResponseWriter, r *http.Request) {
	b, err := worker.Latest(r.Context(), h.Store, h.now())
	if errors.Is(err, docstore.ErrNotFound) {
		httputil.NotFound(w, "no briefing for today yet")
		return
	}
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, b)
}

// GetProducts lists product sales.
//
//	GET /api/products?filter=&name=&alias=&category=&price=<150|150-500|>500
func (h *Handlers) GetProducts(w http.ResponseWriter, r *http.Request) {
	snap, _, ok := h.snapshot(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	f := dashboard.ProductFilter{
		Name:       q.Get("name"),
		Alias:      q.Get("alias"),
		Category:   q.Get("category"),
		PriceRange: q.Get("price"),
	}
	httputil.OK(w, map[string]any{
		"products": dashboard.FilterProducts(dashboard.Products(snap), f),
	})
}

// GetDuvets returns the duvet bands per store and per employee.
//
//	GET /api/duvets?filter=
func (h *Handlers) GetDuvets(w http.ResponseWriter, r *http.Request) {
	snap, _, ok := h.snapshot(w, r)
	if !ok {
		return
	}
	employees := make([]dashboard.EmployeeDuvets, 0, len(snap.Employees))
	for _, e := range snap.Employees {
		employees = append(employees, dashboard.DuvetsForEmployee(snap.Duvets, e))
	}
	sort.Slice(employees, func(i, j int) bool { return employees[i].Name < employees[j].Name })
	httputil.OK(w, map[string]any{
		"bands":     dashboard.Bands,
		"stores":    dashboard.DuvetsByStore(snap.Duvets),
		"employees": employees,
	})
}

// GetCommissions works out each store's commission table.
//
//	GET /api/commissions?filter=
func (h *Handlers) GetCommissions(w http.ResponseWriter, r *http.Request) {
	snap, _, ok := h.snapshot(w, r)
	if !ok {
		return
	}
	commissions := dashboard.Commissions(dashboard.StoreSummaries(snap), dashboard.EmployeeSummaries(snap))
	if commissions == nil {
		commissions = []dashboard.StoreCommission{}
	}
	httputil.OK(w, map[string]any{"stores": commissions})
}
