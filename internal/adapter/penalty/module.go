package penalty

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/polkiloo/ordersync/internal/domain/repository"
	"github.com/polkiloo/ordersync/internal/metrics"
	"github.com/polkiloo/ordersync/internal/pkg/clock"
)

// Module provides the simulated penalty charger.
var Module = fx.Options(
	fx.Provide(newCharger),
	fx.Provide(func(c *Charger) repository.PenaltyCharger { return c }),
)

type chargerParams struct {
	fx.In

	Clock   clock.Clock
	Logger  *slog.Logger
	Metrics *metrics.Metrics `optional:"true"`
}

func newCharger(p chargerParams) *Charger {
	return NewCharger(p.Clock, p.Logger.With(slog.String("component", "penalty")), p.Metrics)
}
