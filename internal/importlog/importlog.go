// Package importlog records one entry per spreadsheet import so the
// admin page can show recent uploads and their outcome.
package importlog

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Entry is one import attempt.
type Entry struct {
	ID         string    `json:"id" dynamodbav:"id"`
	FileName   string    `json:"fileName" dynamodbav:"file_name"`
	ArchiveKey string    `json:"archiveKey,omitempty" dynamodbav:"archive_key,omitempty"`
	Shape      string    `json:"shape,omitempty" dynamodbav:"shape,omitempty"`
	Layout     string    `json:"layout,omitempty" dynamodbav:"layout,omitempty"`
	Accepted   int       `json:"accepted" dynamodbav:"accepted"`
	Skipped    int       `json:"skipped" dynamodbav:"skipped"`
	Progress   float64   `json:"progress" dynamodbav:"progress"`
	Stage      string    `json:"stage" dynamodbav:"stage"`
	Error      string    `json:"error,omitempty" dynamodbav:"error,omitempty"`
	User       string    `json:"user,omitempty" dynamodbav:"user,omitempty"`
	CreatedAt  time.Time `json:"createdAt" dynamodbav:"created_at"`
}

// Log stores and lists import entries.
type Log interface {
	Record(ctx context.Context, e Entry) error
	// Recent returns up to n entries, newest first.
	Recent(ctx context.Context, n int) ([]Entry, error)
}

// prepare fills in the ID and timestamp when the caller left them empty.
func prepare(e Entry) Entry {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	return e
}

// MemoryLog keeps entries in process memory, capped at Max.
type MemoryLog struct {
	mu      sync.Mutex
	entries []Entry
	Max     int
}

// NewMemoryLog returns an empty log that keeps the last max entries.
func NewMemoryLog(max int) *MemoryLog {
	if max <= 0 {
		max = 500
	}
	return &MemoryLog{Max: max}
}

func (m *MemoryLog) Record(ctx context.Context, e Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, prepare(e))
	if over := len(m.entries) - m.Max; over > 0 {
		m.entries = m.entries[over:]
	}
	return nil
}

func (m *MemoryLog) Recent(ctx context.Context, n int) ([]Entry, error) {
	m.mu.Lock()
	out := make([]Entry, len(m.entries))
	copy(out, m.entries)
	m.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out, nil
}
