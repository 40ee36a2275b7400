package api

import (
	"net/http"
	"strings"

	"github.com/kha159-create/alsani-cockpit/internal/dashboard"
	"github.com/kha159-create/alsani-cockpit/internal/insights"
	"github.com/kha159-create/alsani-cockpit/internal/llm"
	"github.com/kha159-create/alsani-cockpit/internal/pkg/httputil"
	"github.com/kha159-create/alsani-cockpit/internal/pkg/logger"
)

// InsightRequest is the body of the /api/insights endpoints. Which fields
// matter depends on the endpoint.
type InsightRequest struct {
	Filter   string        `json:"filter,omitempty"`
	Name     string        `json:"name,omitempty"`
	Alias    string        `json:"alias,omitempty"`
	Question string        `json:"question,omitempty"`
	History  []llm.Message `json:"history,omitempty"`
}

func insightFailed(w http.ResponseWriter, err error) {
	logger.Warn("insight generation failed", "error", err.Error())
	httputil.Error(w, http.StatusBadGateway, "the AI service did not answer, try again")
}

// insightSnapshot decodes the request and loads the filtered snapshot.
func (h *Handlers) insightSnapshot(w http.ResponseWriter, r *http.Request) (*InsightRequest, *dashboard.Snapshot, dashboard.DateFilter, bool) {
	var req InsightRequest
	if !httputil.Decode(w, r, &req) {
		return nil, nil, "", false
	}
	filter, err := dashboard.ParseFilter(req.Filter)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return nil, nil, "", false
	}
	snap, err := dashboard.Load(r.Context(), h.Store)
	if err != nil {
		httputil.InternalError(w, err)
		return nil, nil, "", false
	}
	return &req, filter.Apply(snap, h.now()), filter, true
}

// CoachingInsight coaches one employee and shows the bigger-ticket scenario.
//
//	POST /api/insights/coaching {"name": "...", "filter": "mtd"}
func (h *Handlers) CoachingInsight(w http.ResponseWriter, r *http.Request) {
	req, snap, _, ok := h.insightSnapshot(w, r)
	if !ok {
		return
	}
	var found *dashboard.EmployeeSummary
	for _, list := range dashboard.EmployeeSummaries(snap) {
		for i := range list {
			if list[i].Name == req.Name {
				found = &list[i]
			}
		}
	}
	if found == nil {
		httputil.NotFound(w, "employee not found")
		return
	}
	text, err := h.Insights.Coaching(r.Context(), *found)
	if err != nil {
		insightFailed(w, err)
		return
	}
	httputil.OK(w, map[string]any{"text": text, "scenario": dashboard.Coaching(*found)})
}

// PitchInsight writes a sales pitch for a product, found by alias or name.
//
//	POST /api/insights/pitch {"alias": "..."}
func (h *Handlers) PitchInsight(w http.ResponseWriter, r *http.Request) {
	req, snap, _, ok := h.insightSnapshot(w, r)
	if !ok {
		return
	}
	for _, p := range dashboard.Products(snap) {
		if (req.Alias != "" && p.Alias == req.Alias) || (req.Alias == "" && req.Name != "" && strings.EqualFold(p.Name, req.Name)) {
			text, err := h.Insights.Pitch(r.Context(), p)
			if err != nil {
				insightFailed(w, err)
				return
			}
			httputil.OK(w, map[string]any{"text": text, "product": p})
			return
		}
	}
	httputil.NotFound(w, "product not found")
}

// BriefingInsight writes a briefing for the filtered overview.
//
//	POST /api/insights/briefing {"filter": "7d"}
func (h *Handlers) BriefingInsight(w http.ResponseWriter, r *http.Request) {
	_, snap, filter, ok := h.insightSnapshot(w, r)
	if !ok {
		return
	}
	text, err := h.Insights.Briefing(r.Context(), dashboard.BuildOverview(snap), filter)
	if err != nil {
		insightFailed(w, err)
		return
	}
	httputil.OK(w, map[string]any{"text": text})
}

// StoreInsight analyses one store.
//
//	POST /api/insights/store {"name": "...", "filter": "mtd"}
func (h *Handlers) StoreInsight(w http.ResponseWriter, r *http.Request) {
	req, snap, _, ok := h.insightSnapshot(w, r)
	if !ok {
		return
	}
	for _, st := range dashboard.StoreSummaries(snap) {
		if st.Name != req.Name {
			continue
		}
		text, err := h.Insights.StoreAnalysis(r.Context(), st)
		if err != nil {
			insightFailed(w, err)
			return
		}
		httputil.OK(w, map[string]any{"text": text, "store": st})
		return
	}
	httputil.NotFound(w, "store not found")
}

// ForecastInsight predicts how a store's month closes. The filter is
// ignored; progress is always month to date.
//
//	POST /api/insights/forecast {"name": "..."}
func (h *Handlers) ForecastInsight(w http.ResponseWriter, r *http.Request) {
	var req InsightRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	snap, err := dashboard.Load(r.Context(), h.Store)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	detail, err := dashboard.BuildStoreDetail(snap, req.Name, h.now())
	if err != nil {
		httputil.NotFound(w, err.Error())
		return
	}
	text, err := h.Insights.Forecast(r.Context(), req.Name, detail.Progress)
	if err != nil {
		insightFailed(w, err)
		return
	}
	httputil.OK(w, map[string]any{"text": text, "progress": detail.Progress})
}

// Chat answers a question about the filtered data.
//
//	POST /api/insights/chat {"question": "...", "history": [...]}
func (h *Handlers) Chat(w http.ResponseWriter, r *http.Request) {
	req, snap, _, ok := h.insightSnapshot(w, r)
	if !ok {
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		httputil.BadRequest(w, "question is required")
		return
	}
	chatSnap := insights.NewChatSnapshot(dashboard.BuildOverview(snap), dashboard.Products(snap))
	text, err := h.Insights.Chat(r.Context(), req.History, req.Question, chatSnap)
	if err != nil {
		insightFailed(w, err)
		return
	}
	httputil.OK(w, map[string]any{"text": text})
}
