// Package api serves the cockpit's HTTP API.
package api

import (
	"context"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kha159-create/alsani-cockpit/internal/archive"
	"github.com/kha159-create/alsani-cockpit/internal/dashboard"
	"github.com/kha159-create/alsani-cockpit/internal/docstore"
	"github.com/kha159-create/alsani-cockpit/internal/importer"
	"github.com/kha159-create/alsani-cockpit/internal/importlog"
	"github.com/kha159-create/alsani-cockpit/internal/insights"
	"github.com/kha159-create/alsani-cockpit/internal/pkg/distlock"
	"github.com/kha159-create/alsani-cockpit/internal/pkg/httputil"
)

// Deps are the services the handlers use. Archive may be nil.
type Deps struct {
	Store     docstore.Store
	Pipeline  *importer.Pipeline
	Insights  *insights.Service
	Archive   *archive.Archive
	ImportLog importlog.Log
	// UploadLock returns a fresh lock instance per request.
	UploadLock   func() distlock.DistLock
	MaxUploadMB  int
	PreviewLimit int
}

// Handlers contains all HTTP handlers
type Handlers struct {
	Deps
	now func() time.Time
}

// NewHandlers creates the handlers.
func NewHandlers(d Deps) *Handlers {
	if d.MaxUploadMB <= 0 {
		d.MaxUploadMB = 32
	}
	if d.PreviewLimit <= 0 {
		d.PreviewLimit = 10
	}
	if d.ImportLog == nil {
		d.ImportLog = importlog.NewMemoryLog(0)
	}
	if d.UploadLock == nil {
		d.UploadLock = func() distlock.DistLock { return distlock.NewLocalLock("upload") }
	}
	return &Handlers{Deps: d, now: time.Now}
}

// snapshot loads the store and applies the ?filter= query parameter.
// It writes the error response itself and returns false on failure.
func (h *Handlers) snapshot(w http.ResponseWriter, r *http.Request) (*dashboard.Snapshot, dashboard.DateFilter, bool) {
	filter, err := dashboard.ParseFilter(r.URL.Query().Get("filter"))
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return nil, "", false
	}
	snap, err := dashboard.Load(r.Context(), h.Store)
	if err != nil {
		httputil.InternalError(w, err)
		return nil, "", false
	}
	return filter.Apply(snap, h.now()), filter, true
}

// pathParam returns the unescaped URL parameter.
func pathParam(r *http.Request, key string) string {
	v := chi.URLParam(r, key)
	if u, err := url.PathUnescape(v); err == nil {
		return u
	}
	return v
}

// releaseLock frees lock even when the request was cancelled mid-import.
func releaseLock(ctx context.Context, lock distlock.DistLock) {
	if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
		log.Printf("[api] release lock: %v", err)
	}
}
