package api

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/kha159-create/alsani-cockpit/internal/auth"
	"github.com/kha159-create/alsani-cockpit/internal/importer"
	"github.com/kha159-create/alsani-cockpit/internal/importlog"
	"github.com/kha159-create/alsani-cockpit/internal/pkg/distlock"
	"github.com/kha159-create/alsani-cockpit/internal/pkg/httputil"
	"github.com/kha159-create/alsani-cockpit/internal/pkg/logger"
	"github.com/kha159-create/alsani-cockpit/internal/sheet"
)

// UploadResponse is the result of POST /api/uploads.
type UploadResponse struct {
	FileName   string             `json:"fileName"`
	ArchiveKey string             `json:"archiveKey,omitempty"`
	Accepted   int                `json:"accepted"`
	Skipped    int                `json:"skipped"`
	Progress   float64            `json:"progress"`
	FileType   importer.FileShape `json:"fileType"`
	Format     importer.Layout    `json:"format,omitempty"`
	Stage      importer.Stage     `json:"stage"`
	Chunks     int                `json:"chunks"`
	Preview    []importer.Summary `json:"preview"`
}

type uploadedFile struct {
	name        string
	contentType string
	data        []byte
	table       *sheet.Table
}

// readUpload reads and parses the multipart "file" field.
func (h *Handlers) readUpload(w http.ResponseWriter, r *http.Request) (*uploadedFile, bool) {
	maxBytes := int64(h.MaxUploadMB) << 20
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		httputil.BadRequest(w, fmt.Sprintf("invalid upload (max %d MB): %v", h.MaxUploadMB, err))
		return nil, false
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		httputil.BadRequest(w, "missing file field")
		return nil, false
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		httputil.BadRequest(w, "could not read file")
		return nil, false
	}
	table, err := sheet.Read(header.Filename, bytes.NewReader(data))
	if errors.Is(err, sheet.ErrUnsupported) {
		httputil.Error(w, http.StatusUnsupportedMediaType, "only .xlsx, .xls and .csv files are supported")
		return nil, false
	}
	if err != nil {
		httputil.BadRequest(w, "could not parse spreadsheet: "+err.Error())
		return nil, false
	}
	return &uploadedFile{
		name:        header.Filename,
		contentType: header.Header.Get("Content-Type"),
		data:        data,
		table:       table,
	}, true
}

// Upload imports a spreadsheet. Only one upload runs at a time.
//
//	POST /api/uploads
func (h *Handlers) Upload(w http.ResponseWriter, r *http.Request) {
	lock := h.UploadLock()
	ok, err := lock.Acquire(r.Context())
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	if !ok {
		httputil.Conflict(w, "another upload is in progress")
		return
	}
	defer releaseLock(r.Context(), lock)

	up, ok := h.readUpload(w, r)
	if !ok {
		return
	}

	resp := UploadResponse{FileName: up.name}
	if h.Archive != nil {
		key, err := h.Archive.Put(r.Context(), up.name, up.contentType, up.data)
		if err != nil {
			log.Printf("[api] archive %s: %v", up.name, err)
		}
		resp.ArchiveKey = key
	}

	// each committed chunk keeps the lock alive for large files
	refresh := func(float64) {
		if err := distlock.Refresh(r.Context(), lock); err != nil {
			log.Printf("[api] refresh upload lock: %v", err)
		}
	}
	out, importErr := h.Pipeline.ImportTable(r.Context(), up.table.Headers, up.table.Rows, refresh)
	if out != nil {
		resp.Accepted = len(out.Successful)
		resp.Skipped = out.Skipped
		resp.Progress = out.Progress
		resp.FileType = out.Shape
		resp.Format = out.Layout
		resp.Stage = out.Stage
		resp.Chunks = out.Chunks
		resp.Preview = out.Preview(h.PreviewLimit)
	}

	entry := importlog.Entry{
		FileName:   up.name,
		ArchiveKey: resp.ArchiveKey,
		Accepted:   resp.Accepted,
		Skipped:    resp.Skipped,
		Progress:   resp.Progress,
		Stage:      string(resp.Stage),
	}
	if out != nil && out.Shape != importer.ShapeUnknown {
		entry.Shape = out.Shape.String()
		if out.Layout != importer.LayoutNone {
			entry.Layout = out.Layout.String()
		}
	}
	if s := auth.FromContext(r.Context()); s != nil {
		entry.User = s.Email
	}
	if importErr != nil {
		entry.Error = importErr.Error()
	}
	if err := h.ImportLog.Record(r.Context(), entry); err != nil {
		log.Printf("[api] import log: %v", err)
	}

	var (
		classErr  *importer.ClassificationError
		commitErr *importer.CommitError
	)
	switch {
	case importErr == nil:
		logger.Info("upload imported", "file", up.name, "accepted", resp.Accepted, "skipped", resp.Skipped)
		httputil.OK(w, resp)
	case errors.As(importErr, &classErr):
		httputil.ErrorDetails(w, http.StatusUnprocessableEntity, string(importer.StageClassifyFailed), classErr.Error(), resp)
	case errors.As(importErr, &commitErr):
		httputil.ErrorDetails(w, http.StatusBadGateway, string(importer.StageChunkCommitFailed), commitErr.Error(), resp)
	default:
		httputil.InternalError(w, importErr)
	}
}

// AnalyzeUpload asks the model to describe a file without importing it.
//
//	POST /api/uploads/analyze
func (h *Handlers) AnalyzeUpload(w http.ResponseWriter, r *http.Request) {
	up, ok := h.readUpload(w, r)
	if !ok {
		return
	}
	if len(up.table.Rows) == 0 {
		httputil.Error(w, http.StatusUnprocessableEntity, "file is empty")
		return
	}
	summary, err := h.Insights.FileSummary(r.Context(), importer.NewPreview(up.table.Headers, up.table.Rows))
	if err != nil {
		insightFailed(w, err)
		return
	}
	httputil.OK(w, map[string]any{
		"fileName": up.name,
		"rows":     len(up.table.Rows),
		"headers":  up.table.Headers,
		"summary":  summary,
	})
}

// UploadHistory lists recent imports, newest first.
//
//	GET /api/uploads/history?limit=20
func (h *Handlers) UploadHistory(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 500 {
			httputil.BadRequest(w, "limit must be between 1 and 500")
			return
		}
		limit = n
	}
	entries, err := h.ImportLog.Recent(r.Context(), limit)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	if entries == nil {
		entries = []importlog.Entry{}
	}
	httputil.OK(w, map[string]any{"entries": entries})
}

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// DownloadTemplate serves the blank workbook for a file type.
//
//	GET /api/templates/{shape}
func (h *Handlers) DownloadTemplate(w http.ResponseWriter, r *http.Request) {
	shape, err := importer.ParseShape(pathParam(r, "shape"))
	if err != nil {
		httputil.NotFound(w, err.Error())
		return
	}
	buf, err := sheet.Template(shape)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, sheet.Filename(shape)))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	buf.WriteTo(w)
}
