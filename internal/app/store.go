package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sundayezeilo/shortlinks/internal/config"
	"github.com/sundayezeilo/shortlinks/internal/shortener"
	"github.com/sundayezeilo/shortlinks/internal/storage/filestore"
	"github.com/sundayezeilo/shortlinks/internal/storage/memstore"
	"github.com/sundayezeilo/shortlinks/internal/storage/pgstore"
	"github.com/sundayezeilo/shortlinks/internal/storage/redisstore"
	"github.com/sundayezeilo/shortlinks/internal/storage/sqlitestore"
)

func noopClose() error { return nil }

// openStore connects the backend selected by cfg.Driver. The returned func
// releases any connection the store holds.
func openStore(ctx context.Context, cfg config.StoreConfig, logger *slog.Logger) (shortener.Store, func() error, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		logger.Warn("using in-memory store, links are lost on exit")
		return memstore.New(), noopClose, nil

	case config.DriverFile:
		s, err := filestore.New(cfg.FilePath)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("using file store", "path", s.Path())
		return s, noopClose, nil

	case config.DriverSQLite:
		s, err := sqlitestore.Open(ctx, cfg.SQLiteDSN, cfg.Key)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("using sqlite store", "driver", sqlitestore.DriverFor(cfg.SQLiteDSN))
		return s, s.Close, nil

	case config.DriverPostgres:
		logger.Info("connecting to database")
		pool, err := pgstore.Connect(ctx, cfg.PostgresDSN, cfg.PostgresMaxConns)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("database connection established")
		return pgstore.New(pool, cfg.Key), func() error { pool.Close(); return nil }, nil

	case config.DriverRedis:
		client, err := redisstore.Connect(ctx, cfg.RedisAddr, cfg.RedisDB)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("using redis store", "addr", cfg.RedisAddr, "db", cfg.RedisDB)
		return redisstore.New(client, cfg.Key), client.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
