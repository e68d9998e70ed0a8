package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"

	"github.com/polkiloo/ordersync/internal/adapter/notify"
	"github.com/polkiloo/ordersync/internal/config"
	"github.com/polkiloo/ordersync/internal/eventbus"
	"github.com/polkiloo/ordersync/internal/reconciler"
	"github.com/polkiloo/ordersync/internal/server/http/handlers"
	"github.com/polkiloo/ordersync/internal/server/ws"
)

// Module wires the facade, the HTTP server and the live update fan-out.
var Module = fx.Options(
	fx.Provide(
		NewSyncFacade,
		func(f *SyncFacade) handlers.SyncFacade { return f },
		newHTTPServer,
	),
	fx.Invoke(registerLifecycle),
)

type serverParams struct {
	fx.In

	Config *config.Config
	Router *gin.Engine
}

func newHTTPServer(p serverParams) *http.Server {
	return &http.Server{
		Addr:    p.Config.RunAddress,
		Handler: p.Router,
	}
}

type lifecycleParams struct {
	fx.In

	Lifecycle  fx.Lifecycle
	Shutdowner fx.Shutdowner
	Logger     *slog.Logger
	Server     *http.Server
	Hub        *ws.Hub
	Bus        *eventbus.Bus
	Notifier   *notify.Notifier
	Views      *reconciler.Registry
	Config     *config.Config
}

// registerLifecycle connects the hub to every live source before the views
// mount, then serves HTTP until stopped. Messages produced before the hub
// starts wait in its broadcast queue.
func registerLifecycle(p lifecycleParams) {
	unsubscribe := p.Bus.Subscribe(eventbus.SignalStatusChange, p.Hub.OnStatusChange)
	p.Notifier.AddSink(p.Hub.Notify)
	for _, v := range p.Views.Views() {
		v.OnRender(p.Hub.ViewRendered)
	}

	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			p.Logger.Info("starting ordersync",
				slog.String("addr", p.Server.Addr),
				slog.Any("views", p.Views.Names()),
				slog.String("store", p.Config.StoreDriver),
			)
			p.Hub.Start()
			go func() {
				if err := p.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					p.Logger.Error("http server terminated", slog.String("error", err.Error()))
					_ = p.Shutdowner.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx := ctx
			cancel := func() {}
			if _, ok := ctx.Deadline(); !ok {
				shutdownCtx, cancel = context.WithTimeout(ctx, p.Config.ShutdownTimeout)
			}
			defer cancel()

			err := p.Server.Shutdown(shutdownCtx)
			unsubscribe()
			p.Hub.Stop()
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			p.Logger.Info("ordersync stopped")
			return nil
		},
	})
}
