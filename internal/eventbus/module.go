package eventbus

import (
	"context"
	"log/slog"

	"go.uber.org/fx"

	"github.com/polkiloo/ordersync/internal/config"
	"github.com/polkiloo/ordersync/internal/metrics"
)

// Module provides the process-wide bus and broadcaster.
var Module = fx.Options(
	fx.Provide(
		New,
		newBroadcaster,
	),
	fx.Invoke(registerLifecycle),
)

type broadcasterParams struct {
	fx.In

	Bus     *Bus
	Config  *config.Config
	Logger  *slog.Logger
	Metrics *metrics.Metrics `optional:"true"`
}

func newBroadcaster(p broadcasterParams) *Broadcaster {
	return NewBroadcaster(p.Bus, Options{
		Schedule: p.Config.RepeatSchedule,
		Legacy:   p.Config.LegacySignals,
	}, p.Logger, p.Metrics)
}

func registerLifecycle(lc fx.Lifecycle, b *Broadcaster) {
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			b.Stop()
			return nil
		},
	})
}
