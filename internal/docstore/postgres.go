package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// PostgresStore keeps every collection in one JSONB table keyed by
// (collection, id). A batch is one transaction.
type PostgresStore struct {
	db    *sql.DB
	table string
}

// NewPostgresStore wraps an open database handle. table defaults to "documents".
func NewPostgresStore(db *sql.DB, table string) *PostgresStore {
	if table == "" {
		table = "documents"
	}
	return &PostgresStore{db: db, table: pq.QuoteIdentifier(table)}
}

// OpenPostgres connects with the lib/pq driver and verifies the connection.
func OpenPostgres(ctx context.Context, databaseURL, table string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return NewPostgresStore(db, table), nil
}

// DB exposes the handle for the advisory upload lock.
func (p *PostgresStore) DB() *sql.DB { return p.db }

// Migrate creates the documents table if it does not exist.
func (p *PostgresStore) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		collection TEXT NOT NULL,
		id TEXT NOT NULL,
		data JSONB NOT NULL DEFAULT '{}'::jsonb,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (collection, id)
	)`, p.table))
	if err != nil {
		return fmt.Errorf("migrate %s: %w", p.table, err)
	}
	return nil
}

func (p *PostgresStore) Get(ctx context.Context, collection, id string) (Document, error) {
	var raw []byte
	err := p.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT data FROM %s WHERE collection = $1 AND id = $2`, p.table),
		collection, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
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

func (p *PostgresStore) List(ctx context.Context, collection string) ([]Document, error) {
	rows, err := p.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT id, data FROM %s WHERE collection = $1 ORDER BY id`, p.table),
		collection)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var (
			doc Document
			raw []byte
		)
		if err := rows.Scan(&doc.ID, &raw); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw, &doc.Data); err != nil {
			log.Printf("[docstore] skipping undecodable %s/%s: %v", collection, doc.ID, err)
			continue
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (p *PostgresStore) Add(ctx context.Context, collection string, data map[string]any) (string, error) {
	id := uuid.NewString()
	return id, p.Set(ctx, collection, id, data, false)
}

func (p *PostgresStore) Set(ctx context.Context, collection, id string, data map[string]any, merge bool) error {
	b := NewBatch()
	b.Set(collection, id, data, merge)
	return p.Commit(ctx, b)
}

func (p *PostgresStore) Delete(ctx context.Context, collection, id string) error {
	b := NewBatch()
	b.Delete(collection, id)
	return p.Commit(ctx, b)
}

func (p *PostgresStore) Commit(ctx context.Context, b *Batch) error {
	if b.Len() == 0 {
		return nil
	}
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch: %w", err)
	}
	for _, op := range b.ops {
		if err := p.apply(ctx, tx, op); err != nil {
			tx.Rollback()
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch of %d: %w", b.Len(), err)
	}
	return nil
}

func (p *PostgresStore) apply(ctx context.Context, tx *sql.Tx, op Op) error {
	switch op.Kind {
	case OpDelete:
		_, err := tx.ExecContext(ctx,
			fmt.Sprintf(`DELETE FROM %s WHERE collection = $1 AND id = $2`, p.table),
			op.Collection, op.ID)
		if err != nil {
			return fmt.Errorf("delete %s/%s: %w", op.Collection, op.ID, err)
		}
		return nil
	case OpSet:
		raw, err := json.Marshal(op.Data)
		if err != nil {
			return fmt.Errorf("encode %s/%s: %w", op.Collection, op.ID, err)
		}
		onConflict := `data = EXCLUDED.data`
		if op.Merge {
			onConflict = fmt.Sprintf(`data = %s.data || EXCLUDED.data`, p.table)
		}
		_, err = tx.ExecContext(ctx, fmt.Sprintf(`INSERT INTO %s (collection, id, data, updated_at)
			VALUES ($1, $2, $3, NOW())
			ON CONFLICT (collection, id) DO UPDATE SET %s, updated_at = NOW()`, p.table, onConflict),
			op.Collection, op.ID, string(raw))
		if err != nil {
			return fmt.Errorf("set %s/%s: %w", op.Collection, op.ID, err)
		}
		return nil
	default:
		return fmt.Errorf("unknown op kind %d", op.Kind)
	}
}

func (p *PostgresStore) Close() error { return p.db.Close() }
