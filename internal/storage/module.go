package storage

import (
	"context"
	"fmt"
	"log/slog"

	"go.uber.org/fx"

	"github.com/polkiloo/ordersync/internal/config"
	"github.com/polkiloo/ordersync/internal/domain/repository"
	"github.com/polkiloo/ordersync/internal/storage/memory"
	"github.com/polkiloo/ordersync/internal/storage/postgres"
	"github.com/polkiloo/ordersync/internal/storage/sqlite"
)

// Module wires the configured key-value backend.
var Module = fx.Provide(newKeyValueStore)

type storeParams struct {
	fx.In

	Ctx       context.Context
	Lifecycle fx.Lifecycle
	Config    *config.Config
	Logger    *slog.Logger
}

func newKeyValueStore(p storeParams) (repository.KeyValueStore, error) {
	logger := p.Logger.With(slog.String("store", p.Config.StoreDriver))

	switch p.Config.StoreDriver {
	case config.DriverMemory, "":
		return memory.NewStore(p.Config.StoreQuotaBytes), nil
	case config.DriverPostgres:
		st, err := postgres.New(p.Ctx, p.Config.DatabaseURI, logger)
		if err != nil {
			return nil, err
		}
		p.Lifecycle.Append(fx.Hook{
			OnStop: func(context.Context) error {
				st.Close()
				return nil
			},
		})
		return st, nil
	case config.DriverSQLite:
		st, err := sqlite.New(p.Ctx, p.Config.SQLitePath, logger)
		if err != nil {
			return nil, err
		}
		p.Lifecycle.Append(fx.Hook{
			OnStop: func(context.Context) error {
				return st.Close()
			},
		})
		return st, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", p.Config.StoreDriver)
	}
}
