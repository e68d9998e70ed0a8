package reconciler

import (
	"context"
	"log/slog"

	"go.uber.org/fx"

	"github.com/polkiloo/ordersync/internal/config"
	"github.com/polkiloo/ordersync/internal/domain/repository"
	"github.com/polkiloo/ordersync/internal/eventbus"
	"github.com/polkiloo/ordersync/internal/metrics"
	"github.com/polkiloo/ordersync/internal/usecase"
)

// Module provides the configured views and mounts them with the app.
var Module = fx.Options(
	fx.Provide(newRegistry),
	fx.Invoke(registerLifecycle),
)

type registryParams struct {
	fx.In

	Config  *config.Config
	Orders  repository.OrderSource
	Store   *usecase.StatusStore
	Bus     *eventbus.Bus
	Logger  *slog.Logger
	Metrics *metrics.Metrics `optional:"true"`
}

func newRegistry(p registryParams) *Registry {
	views := make([]*View, 0, len(p.Config.Views))
	for _, name := range p.Config.Views {
		views = append(views, NewView(
			Config{Name: name, Interval: p.Config.ResyncInterval},
			p.Orders, p.Store, p.Bus, p.Logger, p.Metrics,
		))
	}
	return NewRegistry(views...)
}

func registerLifecycle(lc fx.Lifecycle, r *Registry) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return r.MountAll(ctx)
		},
		OnStop: func(context.Context) error {
			r.UnmountAll()
			return nil
		},
	})
}
