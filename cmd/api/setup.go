package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/yourusername/secret-board/internal/config"
	"github.com/yourusername/secret-board/internal/db"
	"github.com/yourusername/secret-board/internal/jobs"
	"github.com/yourusername/secret-board/internal/session"
	"github.com/yourusername/secret-board/internal/users"
)

const sweepInterval = time.Minute

// backends は設定に応じて選んだ保存先と、その後始末をまとめます。
type backends struct {
	users    users.Store
	sessions session.Store

	redis  *redis.Client
	pool   *pgxpool.Pool
	cancel context.CancelFunc
}

func setupBackends(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*backends, error) {
	b := &backends{}

	if cfg.StoreBackend == config.BackendRedis || cfg.SessionBackend == config.BackendRedis {
		rdb, err := newRedisClient(ctx, cfg.RedisURL, cfg.StoreTimeout)
		if err != nil {
			return nil, err
		}
		b.redis = rdb
	}

	switch cfg.StoreBackend {
	case config.BackendRedis:
		b.users = users.NewRedisStore(b.redis, cfg.StoreTimeout)
	case config.BackendPostgres:
		if err := db.Migrate(cfg.DatabaseURL); err != nil {
			b.Close()
			return nil, err
		}
		pool, err := db.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			b.Close()
			return nil, err
		}
		b.pool = pool
		b.users = users.NewPostgresStore(pool, cfg.StoreTimeout)
	default:
		b.users = users.NewMemoryStore()
	}

	switch cfg.SessionBackend {
	case config.BackendRedis:
		b.sessions = session.NewRedisStore(b.redis, cfg.StoreTimeout)
	default:
		mem := session.NewMemoryStore()
		sweepCtx, cancel := context.WithCancel(context.Background())
		b.cancel = cancel
		go mem.Run(sweepCtx, sweepInterval)
		b.sessions = mem
	}

	logger.Info("backends ready", "store", cfg.StoreBackend, "sessions", cfg.SessionBackend)
	return b, nil
}

// Close は接続とバックグラウンド処理を閉じます。
func (b *backends) Close() {
	if b.cancel != nil {
		b.cancel()
	}
	if b.pool != nil {
		b.pool.Close()
	}
	if b.redis != nil {
		_ = b.redis.Close()
	}
}

func newRedisClient(ctx context.Context, rawURL string, timeout time.Duration) (*redis.Client, error) {
	opt, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	rdb := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return rdb, nil
}

// setupAudit は監査イベントの送り先を用意します。無効な場合は NopPublisher です。
func setupAudit(cfg *config.Config, logger *slog.Logger) (jobs.Publisher, func(), error) {
	if !cfg.AuditEnabled {
		return jobs.NopPublisher{}, func() {}, nil
	}

	opt, err := redis.ParseURL(cfg.QueueRedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse queue redis url: %w", err)
	}
	rdb := redis.NewClient(opt)

	store := jobs.NewStore(rdb, cfg.AuditMaxEvents)
	manager, err := jobs.NewManager(cfg.QueueRedisURL, store, logger)
	if err != nil {
		_ = rdb.Close()
		return nil, nil, err
	}
	manager.StartWorkers()

	shutdown := func() {
		if err := manager.Shutdown(context.Background()); err != nil {
			logger.Warn("failed to shut down audit queue", "error", err)
		}
		_ = rdb.Close()
	}
	return manager, shutdown, nil
}
