package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kha159-create/alsani-cockpit/internal/docstore"
	"github.com/kha159-create/alsani-cockpit/internal/importer"
	"github.com/kha159-create/alsani-cockpit/internal/importlog"
	"github.com/kha159-create/alsani-cockpit/internal/insights"
	"github.com/kha159-create/alsani-cockpit/internal/llm"
	"github.com/kha159-create/alsani-cockpit/internal/llm/llmtest"
	"github.com/kha159-create/alsani-cockpit/internal/pkg/distlock"
)

const visitorsReply = `{"fileType": "visitors", "format": null, "headerMap": {"Date": "Date", "Store Name": "Store Name", "Visitors": "Visitors"}}`

const visitorsCSV = "Date,Store Name,Visitors\n2024-03-01,Riyadh,120\n2024-03-02,Riyadh,80\n,Jeddah,5\n"

type testAPI struct {
	h      *Handlers
	router http.Handler
	store  docstore.Store
	fake   *llmtest.Fake
	log    *importlog.MemoryLog
}

// failingStore rejects the Nth commit.
type failingStore struct {
	docstore.Store
	failOn  int
	commits int
}

func (s *failingStore) Commit(ctx context.Context, b *docstore.Batch) error {
	s.commits++
	if s.commits == s.failOn {
		return errors.New("quota exceeded")
	}
	return s.Store.Commit(ctx, b)
}

func newTestAPI(t *testing.T, store docstore.Store, replies ...string) *testAPI {
	t.Helper()
	if store == nil {
		store = docstore.NewMemoryStore()
	}
	prompts, err := llm.NewPrompts("English")
	require.NoError(t, err)
	fake := llmtest.NewFake(replies...)
	classifier, err := importer.NewClassifier(fake, prompts)
	require.NoError(t, err)

	memLog := importlog.NewMemoryLog(0)
	lockKey := "upload-" + t.Name()
	h := NewHandlers(Deps{
		Store:      store,
		Pipeline:   importer.NewPipeline(classifier, store, importer.WithChunkSize(1)),
		Insights:   insights.NewService(fake, prompts, nil, 0),
		ImportLog:  memLog,
		UploadLock: func() distlock.DistLock { return distlock.NewLocalLock(lockKey) },
	})
	h.now = func() time.Time { return time.Date(2024, 3, 20, 12, 0, 0, 0, time.UTC) }
	return &testAPI{
		h:      h,
		router: SetupRoutes(h, NewHealthChecker(store, nil), nil, nil),
		store:  store,
		fake:   fake,
		log:    memLog,
	}
}

func (a *testAPI) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func (a *testAPI) upload(t *testing.T, path, filename, content string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestUploadVisitors(t *testing.T) {
	a := newTestAPI(t, nil, visitorsReply)

	rec := a.upload(t, "/api/uploads", "visitors.csv", visitorsCSV)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decode[UploadResponse](t, rec)
	assert.Equal(t, 2, resp.Accepted)
	assert.Equal(t, 1, resp.Skipped)
	assert.Equal(t, importer.StageDone, resp.Stage)
	assert.Equal(t, importer.ShapeVisitors, resp.FileType)
	assert.InDelta(t, 100, resp.Progress, 0.001)
	require.Len(t, resp.Preview, 2)
	assert.Equal(t, "120 visitors on 2024-03-01", resp.Preview[0].Value)

	docs, err := a.store.List(context.Background(), docstore.DailyMetrics)
	require.NoError(t, err)
	assert.Len(t, docs, 2)

	entries, err := a.log.Recent(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "visitors.csv", entries[0].FileName)
	assert.Equal(t, "visitors", entries[0].Shape)
	assert.Equal(t, "done", entries[0].Stage)

	// history endpoint serves the same entry
	hist := decode[struct {
		Entries []importlog.Entry `json:"entries"`
	}](t, a.do(t, http.MethodGet, "/api/uploads/history", nil))
	require.Len(t, hist.Entries, 1)
	assert.Equal(t, 2, hist.Entries[0].Accepted)
}

func TestUploadClassificationFailure(t *testing.T) {
	a := newTestAPI(t, nil, "I am not sure what this is.")

	rec := a.upload(t, "/api/uploads", "mystery.csv", "A,B\n1,2\n")
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	body := decode[map[string]any](t, rec)
	assert.Equal(t, "classify_failed", body["code"])
	assert.Contains(t, body["error"], "classification failed")

	entries, _ := a.log.Recent(context.Background(), 5)
	require.Len(t, entries, 1)
	assert.Equal(t, "classify_failed", entries[0].Stage)
	assert.NotEmpty(t, entries[0].Error)
}

func TestUploadCommitFailureReturnsPartialOutcome(t *testing.T) {
	store := &failingStore{Store: docstore.NewMemoryStore(), failOn: 2}
	a := newTestAPI(t, store, visitorsReply)

	rec := a.upload(t, "/api/uploads", "visitors.csv", visitorsCSV)
	require.Equal(t, http.StatusBadGateway, rec.Code)

	var body struct {
		Code    string         `json:"code"`
		Details UploadResponse `json:"details"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "chunk_commit_failed", body.Code)
	assert.Equal(t, 1, body.Details.Chunks)
	assert.Equal(t, 1, body.Details.Accepted)
	assert.InDelta(t, 100.0/3, body.Details.Progress, 0.01)
}

func TestUploadRejectsConcurrentUpload(t *testing.T) {
	a := newTestAPI(t, nil, visitorsReply)
	held := a.h.UploadLock()
	ok, _ := held.Acquire(context.Background())
	require.True(t, ok)
	defer held.Release(context.Background())

	rec := a.upload(t, "/api/uploads", "visitors.csv", visitorsCSV)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, 0, a.fake.Calls())

	rec = a.do(t, http.MethodDelete, "/api/data", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestUploadUnsupportedFile(t *testing.T) {
	a := newTestAPI(t, nil, visitorsReply)
	rec := a.upload(t, "/api/uploads", "notes.txt", "hello")
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
	assert.Contains(t, rec.Body.String(), ".xls and")
	assert.Equal(t, 0, a.fake.Calls())
}

func TestAnalyzeUpload(t *testing.T) {
	a := newTestAPI(t, nil, `{"summary": "Daily visitor counts for two stores."}`)
	rec := a.upload(t, "/api/uploads/analyze", "visitors.csv", visitorsCSV)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode[map[string]any](t, rec)
	assert.Equal(t, "Daily visitor counts for two stores.", body["summary"])
	assert.EqualValues(t, 3, body["rows"])
}

func TestDownloadTemplate(t *testing.T) {
	a := newTestAPI(t, nil)
	rec := a.do(t, http.MethodGet, "/api/templates/install", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, xlsxContentType, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "install_template.xlsx")
	assert.NotZero(t, rec.Body.Len())

	rec = a.do(t, http.MethodGet, "/api/templates/payroll", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func seedDashboard(t *testing.T, a *testAPI) {
	t.Helper()
	for _, s := range []StoreRequest{{Name: "Riyadh", Target: 10000}, {Name: "Jeddah", Target: 5000}} {
		require.Equal(t, http.StatusCreated, a.do(t, http.MethodPost, "/api/stores", s).Code)
	}
	require.Equal(t, http.StatusCreated, a.do(t, http.MethodPost, "/api/employees",
		EmployeeRequest{Name: "Ali", Store: "Riyadh", Target: 5000, DuvetTarget: 4}).Code)
	for _, m := range []MetricRequest{
		{Date: "2024-03-18", Store: "Riyadh", Employee: "Ali", TotalSales: 6000, TransactionCount: 12},
		{Date: "2024-03-19", Store: "Jeddah", TotalSales: 1000, TransactionCount: 4, Visitors: 40},
		{Date: "2023-03-19", Store: "Riyadh", TotalSales: 3000, TransactionCount: 6},
	} {
		require.Equal(t, http.StatusCreated, a.do(t, http.MethodPost, "/api/metrics", m).Code)
	}
}

func TestDashboard(t *testing.T) {
	a := newTestAPI(t, nil)
	seedDashboard(t, a)

	var body struct {
		Filter   string `json:"filter"`
		Overview struct {
			KPI struct {
				TotalSales float64 `json:"totalSales"`
			} `json:"kpi"`
			Stores []struct {
				Name       string  `json:"name"`
				TotalSales float64 `json:"totalSales"`
			} `json:"stores"`
			TopEmployees []struct {
				Name string `json:"name"`
			} `json:"topEmployees"`
		} `json:"overview"`
	}
	rec := a.do(t, http.MethodGet, "/api/dashboard?filter=mtd", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "mtd", body.Filter)
	assert.InDelta(t, 7000, body.Overview.KPI.TotalSales, 0.001)
	require.Len(t, body.Overview.Stores, 2)
	assert.Equal(t, "Riyadh", body.Overview.Stores[0].Name)
	require.Len(t, body.Overview.TopEmployees, 1)
	assert.Equal(t, "Ali", body.Overview.TopEmployees[0].Name)

	rec = a.do(t, http.MethodGet, "/api/dashboard", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.InDelta(t, 10000, body.Overview.KPI.TotalSales, 0.001)

	assert.Equal(t, http.StatusBadRequest, a.do(t, http.MethodGet, "/api/dashboard?filter=decade", nil).Code)
}

func TestStoreDetailAndLFL(t *testing.T) {
	a := newTestAPI(t, nil)
	seedDashboard(t, a)

	rec := a.do(t, http.MethodGet, "/api/stores/Riyadh/detail", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var detail struct {
		Progress struct {
			SalesMTD      float64 `json:"salesMTD"`
			RemainingDays int     `json:"remainingDays"`
		} `json:"progress"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &detail))
	assert.Equal(t, 12, detail.Progress.RemainingDays)

	assert.Equal(t, http.StatusNotFound, a.do(t, http.MethodGet, "/api/stores/Dammam/detail", nil).Code)

	rec = a.do(t, http.MethodGet, "/api/dashboard/lfl?store=Riyadh", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"store":"Riyadh"`)
}

func TestSaveMetricDerivesRatios(t *testing.T) {
	a := newTestAPI(t, nil)
	rec := a.do(t, http.MethodPost, "/api/metrics", MetricRequest{Date: "20/03/2024", Store: "Riyadh", TotalSales: 900, TransactionCount: 3, Visitors: 12})
	require.Equal(t, http.StatusCreated, rec.Code)
	body := decode[map[string]any](t, rec)
	assert.Equal(t, "2024-03-20", body["date"])
	assert.InDelta(t, 300, body["atv"], 0.001)
	assert.InDelta(t, 25, body["visitorRate"], 0.001)
	_, hasEmployee := body["employee"]
	assert.False(t, hasEmployee)

	tests := []MetricRequest{
		{Date: "", Store: "Riyadh"},
		{Date: "2024-03-20", Store: " "},
		{Date: "2024-03-20", Store: "Riyadh", TotalSales: -1},
	}
	for _, tt := range tests {
		assert.Equal(t, http.StatusBadRequest, a.do(t, http.MethodPost, "/api/metrics", tt).Code)
	}
}

func TestStoreAndEmployeeCRUD(t *testing.T) {
	a := newTestAPI(t, nil)

	rec := a.do(t, http.MethodPost, "/api/stores", StoreRequest{Name: "Riyadh", Target: 100})
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decode[map[string]any](t, rec)
	id := created["id"].(string)
	assert.Equal(t, importer.StoreID("Riyadh"), id)

	// posting the same name again updates in place
	a.do(t, http.MethodPost, "/api/stores", StoreRequest{Name: "Riyadh", Target: 200})
	list := decode[struct {
		Stores []struct {
			Name   string  `json:"name"`
			Target float64 `json:"target"`
		} `json:"stores"`
	}](t, a.do(t, http.MethodGet, "/api/stores", nil))
	require.Len(t, list.Stores, 1)
	assert.InDelta(t, 200, list.Stores[0].Target, 0.001)

	assert.Equal(t, http.StatusBadRequest, a.do(t, http.MethodPost, "/api/employees", EmployeeRequest{Name: "Ali"}).Code)
	assert.Equal(t, http.StatusBadRequest, a.do(t, http.MethodPost, "/api/stores", map[string]any{"name": "X", "colour": "red"}).Code)

	assert.Equal(t, http.StatusNoContent, a.do(t, http.MethodDelete, "/api/stores/"+id, nil).Code)
	assert.Equal(t, http.StatusNotFound, a.do(t, http.MethodDelete, "/api/stores/"+id, nil).Code)
}

func TestCatalogCRUD(t *testing.T) {
	a := newTestAPI(t, nil)

	rec := a.do(t, http.MethodPost, "/api/catalog", ProductRequest{Name: "King Duvet", Alias: "4501", Price: 450})
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decode[CatalogProduct](t, rec).ID
	assert.Equal(t, importer.ProductID("4501"), id)

	// same alias updates in place
	a.do(t, http.MethodPost, "/api/catalog", ProductRequest{Name: "King Duvet", Alias: " 4501 ", Price: 500})
	a.do(t, http.MethodPost, "/api/catalog", ProductRequest{Name: "Pillow", Alias: "1501", Price: 80})
	list := decode[struct {
		Products []CatalogProduct `json:"products"`
	}](t, a.do(t, http.MethodGet, "/api/catalog", nil))
	require.Len(t, list.Products, 2)
	assert.Equal(t, "1501", list.Products[0].Alias)
	assert.Equal(t, id, list.Products[1].ID)
	assert.InDelta(t, 500, list.Products[1].Price, 0.001)

	assert.Equal(t, http.StatusBadRequest, a.do(t, http.MethodPost, "/api/catalog", ProductRequest{Name: "No alias"}).Code)
	assert.Equal(t, http.StatusBadRequest, a.do(t, http.MethodPost, "/api/catalog", ProductRequest{Name: "X", Alias: "1", Price: -1}).Code)

	assert.Equal(t, http.StatusNoContent, a.do(t, http.MethodDelete, "/api/catalog/"+id, nil).Code)
	assert.Equal(t, http.StatusNotFound, a.do(t, http.MethodDelete, "/api/catalog/"+id, nil).Code)
}

func TestCommissionsAndDuvets(t *testing.T) {
	a := newTestAPI(t, nil)
	seedDashboard(t, a)

	rec := a.do(t, http.MethodGet, "/api/commissions?filter=mtd", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var comm struct {
		Stores []struct {
			Name      string  `json:"name"`
			Rate      float64 `json:"rate"`
			Employees []struct {
				Name   string  `json:"name"`
				Amount float64 `json:"amount"`
			} `json:"employees"`
		} `json:"stores"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &comm))
	// Riyadh MTD is 6000 of 10000, below every band
	require.Len(t, comm.Stores, 1)
	assert.Equal(t, "Riyadh", comm.Stores[0].Name)
	assert.Zero(t, comm.Stores[0].Rate)

	rec = a.do(t, http.MethodGet, "/api/duvets", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Low Value (199-399)")
}

func TestInsights(t *testing.T) {
	a := newTestAPI(t, nil, "Suggest pillows with every duvet.")
	seedDashboard(t, a)

	rec := a.do(t, http.MethodPost, "/api/insights/coaching", InsightRequest{Name: "Ali"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode[map[string]any](t, rec)
	assert.Equal(t, "Suggest pillows with every duvet.", body["text"])
	scenario := body["scenario"].(map[string]any)
	// 6000 over 12 bills is 500; 525 × 12
	assert.InDelta(t, 6300, scenario["boostedSales"], 0.001)

	assert.Equal(t, http.StatusNotFound, a.do(t, http.MethodPost, "/api/insights/coaching", InsightRequest{Name: "Nobody"}).Code)
	assert.Equal(t, http.StatusOK, a.do(t, http.MethodPost, "/api/insights/briefing", InsightRequest{Filter: "mtd"}).Code)
	assert.Equal(t, http.StatusOK, a.do(t, http.MethodPost, "/api/insights/store", InsightRequest{Name: "Jeddah"}).Code)
	assert.Equal(t, http.StatusOK, a.do(t, http.MethodPost, "/api/insights/forecast", InsightRequest{Name: "Riyadh"}).Code)
	assert.Equal(t, http.StatusBadRequest, a.do(t, http.MethodPost, "/api/insights/chat", InsightRequest{}).Code)

	rec = a.do(t, http.MethodPost, "/api/insights/chat", InsightRequest{
		Question: "Which store is ahead?",
		History:  []llm.Message{{Role: llm.RoleUser, Text: "hi"}, {Role: llm.RoleModel, Text: "hello"}},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	last := a.fake.Requests[len(a.fake.Requests)-1]
	require.Len(t, last.Messages, 3)
	assert.True(t, strings.Contains(last.Messages[2].Text, "Which store is ahead?"))
}

func TestInsightModelFailure(t *testing.T) {
	a := newTestAPI(t, nil)
	a.fake.Err = errors.New("quota")
	rec := a.do(t, http.MethodPost, "/api/insights/briefing", InsightRequest{})
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestDeleteAllData(t *testing.T) {
	a := newTestAPI(t, nil)
	seedDashboard(t, a)
	require.Equal(t, http.StatusCreated,
		a.do(t, http.MethodPost, "/api/catalog", ProductRequest{Name: "Pillow", Alias: "1501", Price: 80}).Code)

	rec := a.do(t, http.MethodDelete, "/api/data", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]any](t, rec)
	assert.EqualValues(t, 7, body["deleted"])

	for _, coll := range docstore.DataCollections {
		docs, err := a.store.List(context.Background(), coll)
		require.NoError(t, err)
		assert.Empty(t, docs, coll)
	}
}

func TestBriefingNotYetGenerated(t *testing.T) {
	a := newTestAPI(t, nil)
	assert.Equal(t, http.StatusNotFound, a.do(t, http.MethodGet, "/api/briefing", nil).Code)

	require.NoError(t, a.store.Set(context.Background(), docstore.Briefings, "2024-03-20", map[string]any{
		"date": "2024-03-20", "text": "Good start to the week.", "filter": "mtd",
	}, false))
	rec := a.do(t, http.MethodGet, "/api/briefing", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Good start to the week.")
}

func TestHealth(t *testing.T) {
	a := newTestAPI(t, nil)
	rec := a.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	status := decode[HealthStatus](t, rec)
	assert.Equal(t, "healthy", status.Status)
	assert.Equal(t, "up", status.Checks["store"].Status)
	assert.Equal(t, "not configured", status.Checks["redis"].Message)

	assert.Equal(t, http.StatusOK, a.do(t, http.MethodGet, "/health/ready", nil).Code)
}
