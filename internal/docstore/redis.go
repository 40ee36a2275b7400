package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const redisCommitRetries = 3

// RedisStore keeps each document as a JSON string under doc:<coll>:<id>,
// with a set per collection listing its IDs. Batches run as MULTI/EXEC;
// merged documents are WATCHed so a concurrent write forces a retry.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore wraps a client. prefix namespaces all keys (may be empty).
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (r *RedisStore) docKey(collection, id string) string {
	return fmt.Sprintf("%sdoc:%s:%s", r.prefix, collection, id)
}

func (r *RedisStore) indexKey(collection string) string {
	return fmt.Sprintf("%scoll:%s", r.prefix, collection)
}

func (r *RedisStore) Get(ctx context.Context, collection, id string) (Document, error) {
	raw, err := r.client.Get(ctx, r.docKey(collection, id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	doc := Document{ID: id}
	if err := json.Unmarshal(raw, &doc.Data); err != nil {
		return Document{}, fmt.Errorf("decode %s/%s: %w", collection, id, err)
	}
	return doc, nil
}

func (r *RedisStore) List(ctx context.Context, collection string) ([]Document, error) {
	ids, err := r.client.SMembers(ctx, r.indexKey(collection)).Result()
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	sort.Strings(ids)

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.docKey(collection, id)
	}
	vals, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}

	docs := make([]Document, 0, len(ids))
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			continue
		}
		doc := Document{ID: ids[i]}
		if err := json.Unmarshal([]byte(s), &doc.Data); err != nil {
			continue
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (r *RedisStore) Add(ctx context.Context, collection string, data map[string]any) (string, error) {
	id := uuid.NewString()
	return id, r.Set(ctx, collection, id, data, false)
}

func (r *RedisStore) Set(ctx context.Context, collection, id string, data map[string]any, merge bool) error {
	b := NewBatch()
	b.Set(collection, id, data, merge)
	return r.Commit(ctx, b)
}

func (r *RedisStore) Delete(ctx context.Context, collection, id string) error {
	b := NewBatch()
	b.Delete(collection, id)
	return r.Commit(ctx, b)
}

func (r *RedisStore) Commit(ctx context.Context, b *Batch) error {
	if b.Len() == 0 {
		return nil
	}

	var watched []string
	for _, op := range b.ops {
		if op.Kind == OpSet && op.Merge {
			watched = append(watched, r.docKey(op.Collection, op.ID))
		}
	}

	txf := func(tx *redis.Tx) error {
		// existing documents for merge ops, read under WATCH
		current := make(map[string]map[string]any)
		for _, key := range watched {
			if _, seen := current[key]; seen {
				continue
			}
			raw, err := tx.Get(ctx, key).Bytes()
			switch {
			case errors.Is(err, redis.Nil):
				current[key] = map[string]any{}
			case err != nil:
				return err
			default:
				fields := map[string]any{}
				if err := json.Unmarshal(raw, &fields); err != nil {
					return fmt.Errorf("decode %s: %w", key, err)
				}
				current[key] = fields
			}
		}

		writes := make([]func(pipe redis.Pipeliner), 0, len(b.ops))
		for _, op := range b.ops {
			key := r.docKey(op.Collection, op.ID)
			idx := r.indexKey(op.Collection)
			id := op.ID
			switch op.Kind {
			case OpDelete:
				delete(current, key)
				writes = append(writes, func(pipe redis.Pipeliner) {
					pipe.Del(ctx, key)
					pipe.SRem(ctx, idx, id)
				})
			case OpSet:
				fields := op.Data
				if op.Merge {
					fields = mergeFields(current[key], op.Data)
				}
				current[key] = fields
				raw, err := json.Marshal(fields)
				if err != nil {
					return fmt.Errorf("encode %s/%s: %w", op.Collection, op.ID, err)
				}
				writes = append(writes, func(pipe redis.Pipeliner) {
					pipe.Set(ctx, key, raw, 0)
					pipe.SAdd(ctx, idx, id)
				})
			}
		}

		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for _, w := range writes {
				w(pipe)
			}
			return nil
		})
		return err
	}

	var err error
	for attempt := 0; attempt < redisCommitRetries; attempt++ {
		err = r.client.Watch(ctx, txf, watched...)
		if !errors.Is(err, redis.TxFailedErr) {
			break
		}
	}
	if err != nil {
		return fmt.Errorf("commit batch of %d: %w", b.Len(), err)
	}
	return nil
}

// Close is a no-op; the client belongs to the caller.
func (r *RedisStore) Close() error { return nil }
