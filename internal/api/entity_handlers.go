package api

import (
	"errors"
	"net/http"
	"sort"
	"strings"

	"github.com/kha159-create/alsani-cockpit/internal/dashboard"
	"github.com/kha159-create/alsani-cockpit/internal/docstore"
	"github.com/kha159-create/alsani-cockpit/internal/importer"
	"github.com/kha159-create/alsani-cockpit/internal/pkg/httputil"
)

// StoreRequest is the body of POST /api/stores.
type StoreRequest struct {
	Name   string  `json:"name"`
	Target float64 `json:"target"`
}

// EmployeeRequest is the body of POST /api/employees.
type EmployeeRequest struct {
	Name        string  `json:"name"`
	Store       string  `json:"store"`
	Target      float64 `json:"target"`
	DuvetTarget float64 `json:"duvetTarget"`
}

// ProductRequest is the body of POST /api/catalog.
type ProductRequest struct {
	Name  string  `json:"name"`
	Alias string  `json:"alias"`
	Price float64 `json:"price"`
}

// CatalogProduct is one entry of the product catalog.
type CatalogProduct struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Alias string  `json:"alias"`
	Price float64 `json:"price"`
}

// MetricRequest is a manually entered day. Employee is empty for a
// store-level entry.
type MetricRequest struct {
	Date             string  `json:"date"`
	Store            string  `json:"store"`
	Employee         string  `json:"employee,omitempty"`
	TotalSales       float64 `json:"totalSales"`
	TransactionCount float64 `json:"transactionCount"`
	Visitors         float64 `json:"visitors"`
}

// ListStores returns every store, by name.
//
//	GET /api/stores
func (h *Handlers) ListStores(w http.ResponseWriter, r *http.Request) {
	snap, err := dashboard.Load(r.Context(), h.Store)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	stores := append([]dashboard.Store{}, snap.Stores...)
	sort.Slice(stores, func(i, j int) bool { return stores[i].Name < stores[j].Name })
	httputil.OK(w, map[string]any{"stores": stores})
}

// SaveStore creates or updates a store, keyed by name.
//
//	POST /api/stores
func (h *Handlers) SaveStore(w http.ResponseWriter, r *http.Request) {
	var req StoreRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		httputil.BadRequest(w, "name is required")
		return
	}
	if req.Target < 0 {
		httputil.BadRequest(w, "target cannot be negative")
		return
	}
	id := importer.StoreID(req.Name)
	if err := h.Store.Set(r.Context(), docstore.Stores, id, map[string]any{
		"name":   req.Name,
		"target": req.Target,
	}, true); err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.Created(w, dashboard.Store{ID: id, Name: req.Name, Target: req.Target})
}

// DeleteStore removes a store document.
//
//	DELETE /api/stores/{id}
func (h *Handlers) DeleteStore(w http.ResponseWriter, r *http.Request) {
	h.deleteDoc(w, r, docstore.Stores)
}

// ListEmployees returns every employee, by store then name.
//
//	GET /api/employees
func (h *Handlers) ListEmployees(w http.ResponseWriter, r *http.Request) {
	snap, err := dashboard.Load(r.Context(), h.Store)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	employees := append([]dashboard.Employee{}, snap.Employees...)
	sort.Slice(employees, func(i, j int) bool {
		if employees[i].Store != employees[j].Store {
			return employees[i].Store < employees[j].Store
		}
		return employees[i].Name < employees[j].Name
	})
	httputil.OK(w, map[string]any{"employees": employees})
}

// SaveEmployee creates or updates an employee, keyed by name.
//
//	POST /api/employees
func (h *Handlers) SaveEmployee(w http.ResponseWriter, r *http.Request) {
	var req EmployeeRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Store = strings.TrimSpace(req.Store)
	if req.Name == "" || req.Store == "" {
		httputil.BadRequest(w, "name and store are required")
		return
	}
	id := importer.EmployeeID(req.Name)
	if err := h.Store.Set(r.Context(), docstore.Employees, id, map[string]any{
		"name":        req.Name,
		"store":       req.Store,
		"target":      req.Target,
		"duvetTarget": req.DuvetTarget,
	}, true); err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.Created(w, dashboard.Employee{
		ID:          id,
		Name:        req.Name,
		Store:       req.Store,
		Target:      req.Target,
		DuvetTarget: req.DuvetTarget,
	})
}

// DeleteEmployee removes an employee document.
//
//	DELETE /api/employees/{id}
func (h *Handlers) DeleteEmployee(w http.ResponseWriter, r *http.Request) {
	h.deleteDoc(w, r, docstore.Employees)
}

// ListCatalog returns the product catalog, by alias.
//
//	GET /api/catalog
func (h *Handlers) ListCatalog(w http.ResponseWriter, r *http.Request) {
	docs, err := h.Store.List(r.Context(), docstore.Products)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	products := make([]CatalogProduct, 0, len(docs))
	for _, d := range docs {
		var p CatalogProduct
		if err := d.Decode(&p); err != nil {
			httputil.InternalError(w, err)
			return
		}
		p.ID = d.ID
		products = append(products, p)
	}
	sort.Slice(products, func(i, j int) bool { return products[i].Alias < products[j].Alias })
	httputil.OK(w, map[string]any{"products": products})
}

// SaveProduct creates or updates a catalog entry, keyed by alias.
//
//	POST /api/catalog
func (h *Handlers) SaveProduct(w http.ResponseWriter, r *http.Request) {
	var req ProductRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Alias = strings.TrimSpace(req.Alias)
	if req.Name == "" || req.Alias == "" {
		httputil.BadRequest(w, "name and alias are required")
		return
	}
	if req.Price < 0 {
		httputil.BadRequest(w, "price cannot be negative")
		return
	}
	id := importer.ProductID(req.Alias)
	if err := h.Store.Set(r.Context(), docstore.Products, id, map[string]any{
		"name":  req.Name,
		"alias": req.Alias,
		"price": req.Price,
	}, true); err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.Created(w, CatalogProduct{ID: id, Name: req.Name, Alias: req.Alias, Price: req.Price})
}

// DeleteProduct removes a catalog entry.
//
//	DELETE /api/catalog/{id}
func (h *Handlers) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	h.deleteDoc(w, r, docstore.Products)
}

func (h *Handlers) deleteDoc(w http.ResponseWriter, r *http.Request, collection string) {
	id := pathParam(r, "id")
	if _, err := h.Store.Get(r.Context(), collection, id); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			httputil.NotFound(w, "not found")
			return
		}
		httputil.InternalError(w, err)
		return
	}
	if err := h.Store.Delete(r.Context(), collection, id); err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.NoContent(w)
}

// ListMetrics returns daily metrics inside the filter, newest first.
//
//	GET /api/metrics?filter=&store=
func (h *Handlers) ListMetrics(w http.ResponseWriter, r *http.Request) {
	snap, _, ok := h.snapshot(w, r)
	if !ok {
		return
	}
	store := r.URL.Query().Get("store")
	metrics := make([]dashboard.Metric, 0, len(snap.Metrics))
	for _, m := range snap.Metrics {
		if store == "" || m.Store == store {
			metrics = append(metrics, m)
		}
	}
	sort.SliceStable(metrics, func(i, j int) bool { return metrics[i].Date > metrics[j].Date })
	httputil.OK(w, map[string]any{"metrics": metrics})
}

// SaveMetric stores a manually entered day with its derived ATV and
// visitor rate.
//
//	POST /api/metrics
func (h *Handlers) SaveMetric(w http.ResponseWriter, r *http.Request) {
	var req MetricRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	date, ok := importer.NormalizeDate(req.Date)
	if !ok {
		httputil.BadRequest(w, "date is missing or invalid")
		return
	}
	req.Store = strings.TrimSpace(req.Store)
	if req.Store == "" {
		httputil.BadRequest(w, "store is required")
		return
	}
	if req.TotalSales < 0 || req.TransactionCount < 0 || req.Visitors < 0 {
		httputil.BadRequest(w, "figures cannot be negative")
		return
	}

	fields := map[string]any{
		"date":             date,
		"store":            req.Store,
		"totalSales":       req.TotalSales,
		"transactionCount": req.TransactionCount,
		"visitors":         req.Visitors,
		"atv":              0.0,
		"visitorRate":      0.0,
	}
	if req.TransactionCount > 0 {
		fields["atv"] = req.TotalSales / req.TransactionCount
	}
	if req.Visitors > 0 {
		fields["visitorRate"] = req.TransactionCount / req.Visitors * 100
	}
	if e := strings.TrimSpace(req.Employee); e != "" {
		fields["employee"] = e
	}

	id, err := h.Store.Add(r.Context(), docstore.DailyMetrics, fields)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	fields["id"] = id
	httputil.Created(w, fields)
}

// DeleteAllData wipes every data collection. It takes the upload lock so
// it cannot interleave with an import.
//
//	DELETE /api/data
func (h *Handlers) DeleteAllData(w http.ResponseWriter, r *http.Request) {
	lock := h.UploadLock()
	ok, err := lock.Acquire(r.Context())
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	if !ok {
		httputil.Conflict(w, "an upload is in progress")
		return
	}
	defer releaseLock(r.Context(), lock)

	n, err := docstore.DeleteAll(r.Context(), h.Store, docstore.DataCollections, importer.DefaultChunkSize)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, map[string]any{"deleted": n})
}
