package di

import (
	"go.uber.org/fx"

	"github.com/polkiloo/ordersync/internal/adapter/catalog"
	"github.com/polkiloo/ordersync/internal/adapter/notify"
	"github.com/polkiloo/ordersync/internal/adapter/penalty"
	"github.com/polkiloo/ordersync/internal/app"
	"github.com/polkiloo/ordersync/internal/config"
	"github.com/polkiloo/ordersync/internal/eventbus"
	"github.com/polkiloo/ordersync/internal/logger"
	"github.com/polkiloo/ordersync/internal/metrics"
	"github.com/polkiloo/ordersync/internal/pkg/auth"
	"github.com/polkiloo/ordersync/internal/pkg/clock"
	"github.com/polkiloo/ordersync/internal/reconciler"
	"github.com/polkiloo/ordersync/internal/server/http/router"
	"github.com/polkiloo/ordersync/internal/server/ws"
	"github.com/polkiloo/ordersync/internal/storage"
	"github.com/polkiloo/ordersync/internal/usecase"
)

// Module assembles the whole application. Extra options are appended last,
// so callers can fx.Replace any component.
func Module(opts ...fx.Option) fx.Option {
	modules := []fx.Option{
		config.Module,
		logger.Module,
		clock.Module,
		metrics.Module,
		auth.Module,
		storage.Module,
		eventbus.Module,
		catalog.Module,
		notify.Module,
		penalty.Module,
		usecase.Module,
		reconciler.Module,
		ws.Module,
		router.Module,
		app.Module,
	}
	modules = append(modules, opts...)
	return fx.Options(modules...)
}
