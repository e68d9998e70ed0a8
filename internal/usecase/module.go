package usecase

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/polkiloo/ordersync/internal/config"
	"github.com/polkiloo/ordersync/internal/domain/repository"
	"github.com/polkiloo/ordersync/internal/eventbus"
	"github.com/polkiloo/ordersync/internal/metrics"
	"github.com/polkiloo/ordersync/internal/pkg/clock"
)

// Module provides core business use cases to the fx container.
var Module = fx.Provide(
	newStatusStore,
	newMutator,
	NewSessionUseCase,
)

type storeParams struct {
	fx.In

	KV      repository.KeyValueStore
	Logger  *slog.Logger
	Metrics *metrics.Metrics `optional:"true"`
}

func newStatusStore(p storeParams) *StatusStore {
	return NewStatusStore(p.KV, p.Logger.With(slog.String("component", "status_store")), p.Metrics)
}

type mutatorParams struct {
	fx.In

	Config      *config.Config
	Orders      repository.OrderSource
	Store       *StatusStore
	Broadcaster *eventbus.Broadcaster
	Notifier    repository.Notifier
	Penalties   repository.PenaltyCharger
	Clock       clock.Clock
	Sequencer   *clock.Sequencer
	Logger      *slog.Logger
	Metrics     *metrics.Metrics `optional:"true"`
}

func newMutator(p mutatorParams) *Mutator {
	return NewMutator(MutatorDeps{
		Orders:    p.Orders,
		Store:     p.Store,
		Publisher: p.Broadcaster,
		Notifier:  p.Notifier,
		Penalties: p.Penalties,
		Clock:     p.Clock,
		Sequencer: p.Sequencer,
		Logger:    p.Logger.With(slog.String("component", "mutator")),
		Metrics:   p.Metrics,
	}, MutatorOptions{
		Latency:     p.Config.ActionLatency,
		SettleDelay: p.Config.SettleDelay,
		Policy: CancellationPolicy{
			Window: p.Config.CancellationWindow,
			Fee:    p.Config.PenaltyFee,
		},
	})
}
