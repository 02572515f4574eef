package factory

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/matoous/changelog/internal/config"
	"github.com/matoous/changelog/internal/ids"
	storepkg "github.com/matoous/changelog/internal/store"
	storepg "github.com/matoous/changelog/internal/store/postgres"
	storesqlite "github.com/matoous/changelog/internal/store/sqlite"
)

// NewStore returns the store.Store selected by cfg.DBDriver.
// The connection is opened synchronously since health checks need it
// immediately; the embedded schema is applied when cfg.DBMigrate is set.
func NewStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (storepkg.Store, error) {
	gen, err := ids.New(cfg.IDStrategy)
	if err != nil {
		return nil, err
	}
	opts := storepkg.Options{
		IDs: gen,
		Timeouts: storepkg.Timeouts{
			Acquire: cfg.DBAcquireTimeout,
			Query:   cfg.DBQueryTimeout,
		},
	}

	switch cfg.DBDriver {
	case config.DriverPostgres:
		return newPostgresStore(ctx, cfg, opts, log)
	case config.DriverSQLite:
		return newSQLiteStore(ctx, cfg, opts, log)
	default:
		return nil, fmt.Errorf("unknown DB__DRIVER: %s", cfg.DBDriver)
	}
}

func newPostgresStore(ctx context.Context, cfg *config.Config, opts storepkg.Options, log zerolog.Logger) (storepkg.Store, error) {
	pool, err := storepg.Open(ctx, cfg.PostgresDSN(), cfg.DBMaxConns)
	if err != nil {
		return nil, fmt.Errorf("open postgres %s: %w", cfg.RedactedDSN(), err)
	}
	if cfg.DBMigrate {
		if err := storepg.EnsureSchema(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		log.Debug().Str("driver", cfg.DBDriver).Msg("store schema applied")
	}
	return storepg.NewWithPool(pool, opts), nil
}

func newSQLiteStore(ctx context.Context, cfg *config.Config, opts storepkg.Options, log zerolog.Logger) (storepkg.Store, error) {
	db, err := storesqlite.Open(cfg.SQLitePath)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(int(cfg.DBMaxConns))
	if cfg.DBMigrate {
		if err := storesqlite.EnsureSchema(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
		log.Debug().Str("driver", cfg.DBDriver).Str("path", cfg.SQLitePath).Msg("store schema applied")
	}
	return storesqlite.NewWithDB(db, opts), nil
}
