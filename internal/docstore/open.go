package docstore

import (
	"context"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"

	"github.com/kha159-create/alsani-cockpit/internal/config"
)

// Open builds the backend selected by cfg.Type. rdb is required for the
// redis backend and ignored otherwise.
func Open(ctx context.Context, cfg config.StoreConfig, rdb *redis.Client) (Store, error) {
	switch cfg.Type {
	case "", "memory":
		log.Printf("[docstore] using in-memory store")
		return NewMemoryStore(), nil
	case "postgres":
		pg, err := OpenPostgres(ctx, cfg.DatabaseURL, cfg.Table)
		if err != nil {
			return nil, err
		}
		if err := pg.Migrate(ctx); err != nil {
			pg.Close()
			return nil, err
		}
		log.Printf("[docstore] using postgres table %s", cfg.Table)
		return pg, nil
	case "redis":
		if rdb == nil {
			return nil, fmt.Errorf("docstore: redis backend selected but redis.addr is empty")
		}
		log.Printf("[docstore] using redis")
		return NewRedisStore(rdb, "cockpit:"), nil
	default:
		return nil, fmt.Errorf("docstore: unknown store type %q", cfg.Type)
	}
}
