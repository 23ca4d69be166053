package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/surendar1863/student-edge-program/internal/store"
	"github.com/surendar1863/student-edge-program/internal/store/postgres"
	"github.com/surendar1863/student-edge-program/internal/store/rediskv"
	"github.com/surendar1863/student-edge-program/internal/store/sqlite"
)

func DatabaseTypeFromDSN(dsn string) store.DatabaseType {
	switch {
	case strings.HasPrefix(dsn, "postgres"):
		return store.DBTypePostgres
	case strings.HasPrefix(dsn, "redis://"), strings.HasPrefix(dsn, "rediss://"):
		return store.DBTypeRedis
	default:
		return store.DBTypeSQLite
	}
}

func NewStore(ctx context.Context, cfg store.DBConfig) (store.Store, error) {
	if cfg.Type == "" {
		cfg.Type = DatabaseTypeFromDSN(cfg.DSN)
	}

	switch cfg.Type {
	case store.DBTypePostgres:
		return postgres.NewPostgresStore(cfg.DSN, cfg.MigrationsDir)
	case store.DBTypeSQLite:
		return sqlite.NewSQLiteStore(cfg.DSN, cfg.MigrationsDir)
	case store.DBTypeRedis:
		return rediskv.NewRedisStore(ctx, cfg.DSN)
	default:
		return nil, fmt.Errorf("unable to determine database type from DSN: %s", cfg.DSN)
	}
}
