package docstore

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore keeps documents in process memory.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]map[string]map[string]any
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]map[string]map[string]any)}
}

func (m *MemoryStore) Get(ctx context.Context, collection, id string) (Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.data[collection][id]
	if !ok {
		return Document{}, ErrNotFound
	}
	return Document{ID: id, Data: copyFields(doc)}, nil
}

func (m *MemoryStore) List(ctx context.Context, collection string) ([]Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	docs := make([]Document, 0, len(m.data[collection]))
	for id, doc := range m.data[collection] {
		docs = append(docs, Document{ID: id, Data: copyFields(doc)})
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs, nil
}

func (m *MemoryStore) Add(ctx context.Context, collection string, data map[string]any) (string, error) {
	id := uuid.NewString()
	return id, m.Set(ctx, collection, id, data, false)
}

func (m *MemoryStore) Set(ctx context.Context, collection, id string, data map[string]any, merge bool) error {
	b := NewBatch()
	b.Set(collection, id, data, merge)
	return m.Commit(ctx, b)
}

func (m *MemoryStore) Delete(ctx context.Context, collection, id string) error {
	b := NewBatch()
	b.Delete(collection, id)
	return m.Commit(ctx, b)
}

// Commit normalizes every op before taking the lock, so a bad document
// fails the batch without touching stored data.
func (m *MemoryStore) Commit(ctx context.Context, b *Batch) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	prepared := make([]Op, len(b.ops))
	for i, op := range b.ops {
		if op.Kind == OpSet {
			fields, err := normalize(op.Data)
			if err != nil {
				return err
			}
			op.Data = fields
		}
		prepared[i] = op
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, op := range prepared {
		coll := m.data[op.Collection]
		if coll == nil {
			coll = make(map[string]map[string]any)
			m.data[op.Collection] = coll
		}
		switch op.Kind {
		case OpDelete:
			delete(coll, op.ID)
		case OpSet:
			if op.Merge {
				coll[op.ID] = mergeFields(coll[op.ID], op.Data)
			} else {
				coll[op.ID] = op.Data
			}
		}
	}
	return nil
}

func (m *MemoryStore) Close() error { return nil }

func copyFields(src map[string]any) map[string]any {
	out := make(map[string]any, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
