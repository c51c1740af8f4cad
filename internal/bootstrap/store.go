package bootstrap

import (
	"fmt"
	"path/filepath"

	"paperchat/internal/config"
	"paperchat/internal/repository/blob"
	"paperchat/internal/repository/contract"
	"paperchat/internal/repository/memory"
	"paperchat/pkg/database"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// NewBlobStore opens the session index backend named by cfg.Driver. rdb is
// only used by the redis driver and may be nil otherwise.
func NewBlobStore(cfg config.IndexConfig, rdb *redis.Client) (contract.BlobStore, error) {
	switch cfg.Driver {
	case "", "file":
		return blob.NewFileStore(cfg.Dir), nil
	case "memory":
		return memory.NewBlobStore(cfg.MemoryTTL), nil
	case "redis":
		if rdb == nil {
			return nil, fmt.Errorf("index driver redis needs REDIS_URL")
		}
		return blob.NewRedisStore(rdb, cfg.KeyPrefix), nil
	case "postgres":
		db, err := database.NewGormDBFromDSN(cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		return newGormStore(db)
	case "sqlite":
		db, err := database.NewSqliteDB(cfg.SqlitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		return newGormStore(db)
	case "badger":
		store, err := blob.NewBadgerStore(filepath.Join(cfg.Dir, "badger"), cfg.KeyPrefix)
		if err != nil {
			return nil, fmt.Errorf("open badger: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown index driver %q", cfg.Driver)
	}
}

func newGormStore(db *gorm.DB) (contract.BlobStore, error) {
	store, err := blob.NewGormStore(db)
	if err != nil {
		return nil, err
	}
	return store, nil
}

// NewRedisClient returns nil when url is empty.
func NewRedisClient(url string) *redis.Client {
	if url == "" {
		return nil
	}
	opt, err := redis.ParseURL(url)
	if err != nil {
		opt = &redis.Options{Addr: url}
	}
	return redis.NewClient(opt)
}
