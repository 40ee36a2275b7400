// Package insights writes the dashboard's narrative commentary with a text
// model: coaching, pitches, briefings, store analyses, forecasts, file
// summaries and the advisor chat.
package insights

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/zeebo/xxh3"

	"github.com/kha159-create/alsani-cockpit/internal/dashboard"
	"github.com/kha159-create/alsani-cockpit/internal/importer"
	"github.com/kha159-create/alsani-cockpit/internal/llm"
)

// SnapshotSize is how many stores, employees and products the chat sees.
const SnapshotSize = 5

const cachePrefix = "insights:"

// Service renders prompts and calls the model.
type Service struct {
	gen     llm.Generator
	prompts *llm.Prompts
	cache   *redis.Client
	ttl     time.Duration
}

// NewService creates the service. cache may be nil, in which case nothing
// is cached.
func NewService(gen llm.Generator, prompts *llm.Prompts, cache *redis.Client, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Service{gen: gen, prompts: prompts, cache: cache, ttl: ttl}
}

func (s *Service) generate(ctx context.Context, name string, vars map[string]any) (string, error) {
	prompt, err := s.prompts.Render(name, vars)
	if err != nil {
		return "", err
	}
	text, err := s.gen.Generate(ctx, llm.Prompt(prompt))
	if err != nil {
		return "", fmt.Errorf("%s: %w", name, err)
	}
	return strings.TrimSpace(text), nil
}

// cached serves the prompt's answer from Redis when present and stores
// fresh answers. Cache failures only cost a model call.
func (s *Service) cached(ctx context.Context, name string, vars map[string]any) (string, error) {
	if s.cache == nil {
		return s.generate(ctx, name, vars)
	}
	prompt, err := s.prompts.Render(name, vars)
	if err != nil {
		return "", err
	}
	sum := xxh3.Hash128([]byte(prompt)).Bytes()
	key := cachePrefix + name + ":" + hex.EncodeToString(sum[:])

	hit, err := s.cache.Get(ctx, key).Result()
	switch {
	case err == nil:
		return hit, nil
	case !errors.Is(err, redis.Nil):
		log.Printf("[insights] cache read %s: %v", name, err)
	}

	text, err := s.gen.Generate(ctx, llm.Prompt(prompt))
	if err != nil {
		return "", fmt.Errorf("%s: %w", name, err)
	}
	text = strings.TrimSpace(text)
	if err := s.cache.Set(ctx, key, text, s.ttl).Err(); err != nil {
		log.Printf("[insights] cache write %s: %v", name, err)
	}
	return text, nil
}

// Coaching writes advice for an employee around the bigger-ticket scenario.
func (s *Service) Coaching(ctx context.Context, e dashboard.EmployeeSummary) (string, error) {
	sc := dashboard.Coaching(e)
	return s.generate(ctx, llm.PromptCoaching, map[string]any{
		"name":          sc.Name,
		"total_sales":   sc.TotalSales,
		"transactions":  sc.TotalTransactions,
		"atv":           sc.ATV,
		"boosted_sales": sc.BoostedSales,
	})
}

// Pitch writes an in-store sales pitch for a product.
func (s *Service) Pitch(ctx context.Context, p dashboard.ProductSummary) (string, error) {
	return s.generate(ctx, llm.PromptPitch, map[string]any{
		"name":     p.Name,
		"alias":    p.Alias,
		"category": p.Category,
		"sold_qty": p.SoldQty,
		"price":    p.Price,
	})
}

var periodNames = map[dashboard.DateFilter]string{
	dashboard.FilterAll:        "all time",
	dashboard.FilterLast7Days:  "last 7 days",
	dashboard.FilterMonthToDay: "this month",
	dashboard.FilterYearToDay:  "this year",
}

// Briefing writes the two to three sentence summary of an overview.
func (s *Service) Briefing(ctx context.Context, ov dashboard.Overview, filter dashboard.DateFilter) (string, error) {
	top := "N/A"
	if len(ov.Stores) > 0 {
		top = ov.Stores[0].Name
	}
	return s.cached(ctx, llm.PromptBriefing, map[string]any{
		"period":          periodNames[filter],
		"total_sales":     ov.KPI.TotalSales,
		"atv":             ov.KPI.AverageTransactionValue,
		"conversion_rate": ov.KPI.ConversionRate,
		"top_store":       top,
	})
}

// StoreAnalysis writes the manager's summary of one store.
func (s *Service) StoreAnalysis(ctx context.Context, st dashboard.StoreSummary) (string, error) {
	return s.cached(ctx, llm.PromptStoreAnalysis, map[string]any{
		"name":         st.Name,
		"total_sales":  st.TotalSales,
		"visitors":     st.Visitors,
		"transactions": st.TransactionCount,
		"atv":          st.ATV,
		"visitor_rate": st.VisitorRate,
		"target":       st.Target,
		"achievement":  st.TargetAchievement,
	})
}

// Forecast says how a store's month is likely to close.
func (s *Service) Forecast(ctx context.Context, name string, p dashboard.TargetProgress) (string, error) {
	return s.generate(ctx, llm.PromptForecast, map[string]any{
		"name":              name,
		"mtd":               p.SalesMTD,
		"target":            p.Target,
		"remaining":         p.RemainingTarget,
		"remaining_days":    p.RemainingDays,
		"required_daily":    p.RequiredDailyAverage,
		"required_daily_90": p.RequiredDailyAverage90,
		"run_rate":          p.RunRate,
	})
}

// FileSummary describes an uploaded file before it is imported. A reply
// without the expected JSON is returned as plain text.
func (s *Service) FileSummary(ctx context.Context, preview importer.Preview) (string, error) {
	prompt, err := s.prompts.Render(llm.PromptFileSummary, map[string]any{"preview": preview.Text()})
	if err != nil {
		return "", err
	}
	req := llm.Prompt(prompt)
	req.JSON = true
	reply, err := s.gen.Generate(ctx, req)
	if err != nil {
		return "", fmt.Errorf("%s: %w", llm.PromptFileSummary, err)
	}
	if raw, ok := llm.ExtractJSONObject(reply); ok {
		var parsed struct {
			Summary string `json:"summary"`
		}
		if json.Unmarshal([]byte(raw), &parsed) == nil && parsed.Summary != "" {
			return parsed.Summary, nil
		}
	}
	return strings.TrimSpace(reply), nil
}

// ChatSnapshot is the data the advisor answers from.
type ChatSnapshot struct {
	KPI       dashboard.KPI
	Stores    []dashboard.StoreSummary
	Employees []dashboard.EmployeeSummary
	Products  []dashboard.ProductSummary
}

// NewChatSnapshot keeps the top stores and employees by sales and the top
// products by quantity.
func NewChatSnapshot(ov dashboard.Overview, products []dashboard.ProductSummary) ChatSnapshot {
	var employees []dashboard.EmployeeSummary
	for _, list := range ov.Employees {
		employees = append(employees, list...)
	}
	sort.SliceStable(employees, func(i, j int) bool {
		if employees[i].TotalSales != employees[j].TotalSales {
			return employees[i].TotalSales > employees[j].TotalSales
		}
		return employees[i].Name < employees[j].Name
	})
	return ChatSnapshot{
		KPI:       ov.KPI,
		Stores:    firstN(ov.Stores, SnapshotSize),
		Employees: firstN(employees, SnapshotSize),
		Products:  firstN(products, SnapshotSize),
	}
}

func firstN[T any](s []T, n int) []T {
	if len(s) > n {
		return s[:n]
	}
	return s
}

// Chat answers question with the conversation so far. Only the new
// question carries the data snapshot.
func (s *Service) Chat(ctx context.Context, history []llm.Message, question string, snap ChatSnapshot) (string, error) {
	system, err := s.prompts.Render(llm.PromptChatSystem, nil)
	if err != nil {
		return "", err
	}
	turn, err := s.prompts.Render(llm.PromptChatContext, map[string]any{
		"kpi":       compactJSON(snap.KPI),
		"stores":    compactJSON(snap.Stores),
		"employees": compactJSON(snap.Employees),
		"products":  compactJSON(snap.Products),
		"question":  question,
	})
	if err != nil {
		return "", err
	}

	msgs := make([]llm.Message, 0, len(history)+1)
	msgs = append(msgs, history...)
	msgs = append(msgs, llm.Message{Role: llm.RoleUser, Text: turn})

	reply, err := s.gen.Generate(ctx, llm.Request{System: system, Messages: msgs})
	if err != nil {
		return "", fmt.Errorf("chat: %w", err)
	}
	return strings.TrimSpace(reply), nil
}

func compactJSON(v any) string {
	raw, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(raw)
}
