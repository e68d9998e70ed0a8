package catalog

import (
	"context"
	"fmt"
	"log/slog"

	"go.uber.org/fx"

	"github.com/polkiloo/ordersync/internal/config"
	"github.com/polkiloo/ordersync/internal/domain/model"
	"github.com/polkiloo/ordersync/internal/domain/repository"
	"github.com/polkiloo/ordersync/internal/pkg/clock"
)

// Module exposes the base order list to the fx graph.
var Module = fx.Options(
	fx.Provide(newSource),
	fx.Provide(func(s *Source) repository.OrderSource { return s }),
)

type sourceParams struct {
	fx.In

	Ctx    context.Context
	Config *config.Config
	Clock  clock.Clock
	Logger *slog.Logger
}

const remoteAttempts = 3

func newSource(p sourceParams) (*Source, error) {
	seed, origin, err := loadSeed(p)
	if err != nil {
		return nil, err
	}
	p.Logger.Info("base order list loaded", slog.String("origin", origin), slog.Int("orders", len(seed)))
	return NewSource(seed), nil
}

func loadSeed(p sourceParams) ([]model.Order, string, error) {
	switch {
	case p.Config.OrdersSourceURL != "":
		client, err := NewHTTPClient(p.Config.OrdersSourceURL, p.Logger)
		if err != nil {
			return nil, "", err
		}
		orders, err := client.FetchWithRetry(p.Ctx, remoteAttempts)
		if err != nil {
			return nil, "", fmt.Errorf("fetch base orders: %w", err)
		}
		return orders, "remote", nil
	case p.Config.OrdersSeedFile != "":
		orders, err := LoadFile(p.Config.OrdersSeedFile)
		if err != nil {
			return nil, "", err
		}
		return orders, "file", nil
	default:
		return DefaultSeed(p.Clock.Now()), "default", nil
	}
}
