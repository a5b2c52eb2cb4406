package storage

import (
	"context"
	"fmt"

	"github.com/bher20/shipratemanager/internal/logger"
)

// Config controls how the storage backend is opened.
type Config struct {
	Driver string
	DSN    string
}

// Open constructs a Storage based on the given configuration.
func Open(ctx context.Context, cfg Config) (Storage, error) {
	drv := cfg.Driver
	if drv == "" {
		drv = "sqlite"
	}
	log := logger.Component("storage")
	switch drv {
	case "memory":
		log.Info().Msg("using in-memory backend")
		return NewMemory(), nil

	case "sqlite":
		log.Info().Str("dsn", cfg.DSN).Msg("using sqlite backend")
		return OpenSQLite(cfg.DSN)

	case "gorm-sqlite", "postgres":
		log.Info().Str("driver", drv).Msg("using gorm backend")
		return NewGormStorage(drv, cfg.DSN)

	case "postgrespool":
		log.Info().Msg("using pgxpool backend")
		return OpenPostgresPool(ctx, cfg.DSN)

	default:
		return nil, fmt.Errorf("unsupported storage driver %q", drv)
	}
}
