// Package docstore is the document database behind the dashboard: named
// collections of schemaless JSON documents, with atomic multi-document
// batches. Memory, PostgreSQL and Redis backends share one contract.
package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Collection names.
const (
	DailyMetrics      = "dailyMetrics"
	SalesTransactions = "salesTransactions"
	KingDuvetSales    = "kingDuvetSales"
	Employees         = "employees"
	Stores            = "stores"
	Products          = "products"
	Briefings         = "briefings"
)

// DataCollections are the collections wiped by a delete-all.
var DataCollections = []string{DailyMetrics, SalesTransactions, KingDuvetSales, Employees, Stores, Products}

// ErrNotFound is returned by Get when the document does not exist.
var ErrNotFound = errors.New("docstore: document not found")

// Document is one stored document.
type Document struct {
	ID   string         `json:"id"`
	Data map[string]any `json:"data"`
}

// Decode copies the document's fields into dst through JSON, so struct
// tags on dst decide the mapping.
func (d Document) Decode(dst any) error {
	raw, err := json.Marshal(d.Data)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dst)
}

// Store is implemented by every backend.
type Store interface {
	Get(ctx context.Context, collection, id string) (Document, error)
	List(ctx context.Context, collection string) ([]Document, error)
	// Add inserts a document under a generated ID and returns it.
	Add(ctx context.Context, collection string, data map[string]any) (string, error)
	// Set writes a document. With merge, top-level fields are merged into
	// an existing document instead of replacing it.
	Set(ctx context.Context, collection, id string, data map[string]any, merge bool) error
	Delete(ctx context.Context, collection, id string) error
	// Commit applies every op in the batch, or none of them.
	Commit(ctx context.Context, b *Batch) error
	Close() error
}

// OpKind is the type of a batched write.
type OpKind int

const (
	OpSet OpKind = iota
	OpDelete
)

// Op is one write inside a Batch.
type Op struct {
	Kind       OpKind
	Collection string
	ID         string
	Data       map[string]any
	Merge      bool
}

// Batch collects writes to be committed together.
type Batch struct {
	ops []Op
}

// NewBatch returns an empty batch.
func NewBatch() *Batch {
	return &Batch{}
}

// Set queues a set (or merge) of a document.
func (b *Batch) Set(collection, id string, data map[string]any, merge bool) {
	b.ops = append(b.ops, Op{Kind: OpSet, Collection: collection, ID: id, Data: data, Merge: merge})
}

// Add queues an insert under a fresh ID and returns that ID.
func (b *Batch) Add(collection string, data map[string]any) string {
	id := uuid.NewString()
	b.Set(collection, id, data, false)
	return id
}

// Delete queues a delete.
func (b *Batch) Delete(collection, id string) {
	b.ops = append(b.ops, Op{Kind: OpDelete, Collection: collection, ID: id})
}

// Len returns the number of queued ops.
func (b *Batch) Len() int { return len(b.ops) }

// Ops returns the queued ops in order.
func (b *Batch) Ops() []Op { return b.ops }

// DeleteAll removes every document in the given collections, committing
// deletes in batches of batchSize. Returns the number of documents removed.
func DeleteAll(ctx context.Context, s Store, collections []string, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = 400
	}
	deleted := 0
	for _, coll := range collections {
		docs, err := s.List(ctx, coll)
		if err != nil {
			return deleted, fmt.Errorf("list %s: %w", coll, err)
		}
		for start := 0; start < len(docs); start += batchSize {
			end := min(start+batchSize, len(docs))
			b := NewBatch()
			for _, d := range docs[start:end] {
				b.Delete(coll, d.ID)
			}
			if err := s.Commit(ctx, b); err != nil {
				return deleted, fmt.Errorf("delete %s: %w", coll, err)
			}
			deleted += b.Len()
		}
	}
	return deleted, nil
}

// normalize round-trips data through JSON so every backend hands back the
// same value types (float64 numbers, string dates).
func normalize(data map[string]any) (map[string]any, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	out := map[string]any{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// mergeFields returns a new map holding dst overlaid with src.
func mergeFields(dst, src map[string]any) map[string]any {
	out := make(map[string]any, len(dst)+len(src))
	for k, v := range dst {
		out[k] = v
	}
	for k, v := range src {
		out[k] = v
	}
	return out
}
