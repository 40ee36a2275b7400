package worker

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/kha159-create/alsani-cockpit/internal/dashboard"
	"github.com/kha159-create/alsani-cockpit/internal/docstore"
	"github.com/kha159-create/alsani-cockpit/internal/pkg/distlock"
)

// BriefingFilter is the period the scheduled briefing covers.
const BriefingFilter = dashboard.FilterMonthToDay

// Briefer writes the narrative for an overview.
type Briefer interface {
	Briefing(ctx context.Context, ov dashboard.Overview, filter dashboard.DateFilter) (string, error)
}

// Briefing is the stored result, one document per day under briefings/<date>.
type Briefing struct {
	Date        string    `json:"date"`
	Filter      string    `json:"filter"`
	Text        string    `json:"text"`
	TotalSales  float64   `json:"totalSales"`
	GeneratedAt time.Time `json:"generatedAt"`
}

// BriefingWorker regenerates the daily briefing on a cron schedule.
type BriefingWorker struct {
	store    docstore.Store
	briefer  Briefer
	schedule string
	loc      *time.Location
	lock     distlock.DistLock
	now      func() time.Time
}

// NewBriefingWorker creates a worker. An empty timezone means UTC. lock
// may be nil; with several server instances it keeps one run per tick.
func NewBriefingWorker(store docstore.Store, briefer Briefer, schedule, timezone string, lock distlock.DistLock) (*BriefingWorker, error) {
	loc := time.UTC
	if timezone != "" {
		l, err := time.LoadLocation(timezone)
		if err != nil {
			return nil, fmt.Errorf("invalid briefing timezone %q: %w", timezone, err)
		}
		loc = l
	}
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("invalid briefing schedule %q: %w", schedule, err)
	}
	return &BriefingWorker{
		store:    store,
		briefer:  briefer,
		schedule: schedule,
		loc:      loc,
		lock:     lock,
		now:      time.Now,
	}, nil
}

// Start runs the schedule until ctx is cancelled.
func (w *BriefingWorker) Start(ctx context.Context) error {
	c := cron.New(cron.WithLocation(w.loc))
	if _, err := c.AddFunc(w.schedule, func() {
		if _, err := w.RunOnce(ctx); err != nil {
			log.Printf("[Briefing] run failed: %v", err)
		}
	}); err != nil {
		return err
	}
	log.Printf("[Briefing] Starting (schedule=%q, tz=%s)", w.schedule, w.loc)
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	log.Println("[Briefing] Stopping")
	return nil
}

// RunOnce generates and stores today's briefing. It returns nil without
// error when another instance holds the lock.
func (w *BriefingWorker) RunOnce(ctx context.Context) (*Briefing, error) {
	if w.lock != nil {
		ok, err := w.lock.Acquire(ctx)
		if err != nil {
			return nil, fmt.Errorf("acquire briefing lock: %w", err)
		}
		if !ok {
			log.Println("[Briefing] another instance is running, skipping")
			return nil, nil
		}
		defer func() {
			if err := w.lock.Release(context.WithoutCancel(ctx)); err != nil {
				log.Printf("[Briefing] release lock: %v", err)
			}
		}()
	}

	now := w.now().In(w.loc)
	snap, err := dashboard.Load(ctx, w.store)
	if err != nil {
		return nil, err
	}
	ov := dashboard.BuildOverview(BriefingFilter.Apply(snap, now))
	text, err := w.briefer.Briefing(ctx, ov, BriefingFilter)
	if err != nil {
		return nil, err
	}

	b := &Briefing{
		Date:        now.Format("2006-01-02"),
		Filter:      string(BriefingFilter),
		Text:        text,
		TotalSales:  ov.KPI.TotalSales,
		GeneratedAt: now.UTC(),
	}
	if err := w.store.Set(ctx, docstore.Briefings, b.Date, map[string]any{
		"date":        b.Date,
		"filter":      b.Filter,
		"text":        b.Text,
		"totalSales":  b.TotalSales,
		"generatedAt": b.GeneratedAt.Format(time.RFC3339),
	}, false); err != nil {
		return nil, fmt.Errorf("store briefing %s: %w", b.Date, err)
	}
	log.Printf("[Briefing] stored %s (%d chars)", b.Date, len(b.Text))
	return b, nil
}

// Latest returns the briefing for day, or docstore.ErrNotFound.
func Latest(ctx context.Context, store docstore.Store, day time.Time) (*Briefing, error) {
	doc, err := store.Get(ctx, docstore.Briefings, day.Format("2006-01-02"))
	if err != nil {
		return nil, err
	}
	var b Briefing
	if err := doc.Decode(&b); err != nil {
		return nil, err
	}
	return &b, nil
}
