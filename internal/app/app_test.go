package app

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"

	"github.com/polkiloo/ordersync/internal/adapter/notify"
	"github.com/polkiloo/ordersync/internal/config"
	"github.com/polkiloo/ordersync/internal/domain/model"
	"github.com/polkiloo/ordersync/internal/eventbus"
	"github.com/polkiloo/ordersync/internal/pkg/clock"
	"github.com/polkiloo/ordersync/internal/reconciler"
	"github.com/polkiloo/ordersync/internal/server/ws"
	testhelpers "github.com/polkiloo/ordersync/internal/test"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func newLifecycleParams(server *http.Server, cfg *config.Config) (lifecycleParams, *testhelpers.LifecycleRecorder, *testhelpers.ShutdownerStub) {
	recorder := &testhelpers.LifecycleRecorder{}
	shutdowner := &testhelpers.ShutdownerStub{Called: make(chan struct{}, 1)}
	logger := discardLogger()
	return lifecycleParams{
		Lifecycle:  recorder,
		Shutdowner: shutdowner,
		Logger:     logger,
		Server:     server,
		Hub:        ws.NewHub(logger),
		Bus:        eventbus.New(logger),
		Notifier:   notify.New(clock.System{}, logger, 5),
		Views:      reconciler.NewRegistry(),
		Config:     cfg,
	}, recorder, shutdowner
}

func TestNewHTTPServer(t *testing.T) {
	cfg := &config.Config{RunAddress: ":9999"}
	router := gin.New()
	server := newHTTPServer(serverParams{Config: cfg, Router: router})
	if server.Addr != ":9999" {
		t.Fatalf("expected address :9999, got %q", server.Addr)
	}
	if server.Handler != router {
		t.Fatalf("expected handler to be router")
	}
}

func TestRegisterLifecycleStartStop(t *testing.T) {
	server := &http.Server{Addr: "127.0.0.1:0", Handler: http.NewServeMux()}
	p, recorder, _ := newLifecycleParams(server, &config.Config{ShutdownTimeout: 100 * time.Millisecond})

	registerLifecycle(p)

	if len(recorder.Hooks) != 1 {
		t.Fatalf("expected one hook registered, got %d", len(recorder.Hooks))
	}
	if n := p.Bus.Subscribers(eventbus.SignalStatusChange); n != 1 {
		t.Fatalf("expected hub subscribed to status changes, got %d subscribers", n)
	}

	hook := recorder.Hooks[0]
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := hook.OnStart(ctx); err != nil {
		t.Fatalf("on start failed: %v", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = hook.OnStop(context.Background())
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("expected on stop to finish")
	}
	if n := p.Bus.Subscribers(eventbus.SignalStatusChange); n != 0 {
		t.Fatalf("expected hub unsubscribed after stop, got %d subscribers", n)
	}
}

func TestRegisterLifecycleShutdownOnServerError(t *testing.T) {
	p, recorder, shutdowner := newLifecycleParams(&http.Server{Addr: "bad addr"}, &config.Config{ShutdownTimeout: time.Second})

	registerLifecycle(p)

	hook := recorder.Hooks[0]
	if err := hook.OnStart(context.Background()); err != nil {
		t.Fatalf("on start returned error: %v", err)
	}

	select {
	case <-shutdowner.Called:
	case <-time.After(time.Second):
		t.Fatal("expected shutdown to be triggered on server error")
	}

	_ = hook.OnStop(context.Background())
}

func TestRegisterLifecycleAttachesNotifierSink(t *testing.T) {
	server := &http.Server{Addr: "127.0.0.1:0", Handler: http.NewServeMux()}
	p, recorder, _ := newLifecycleParams(server, &config.Config{ShutdownTimeout: 100 * time.Millisecond})
	registerLifecycle(p)

	// Without clients the hub drops broadcasts; the sink must not block.
	done := make(chan struct{})
	go func() {
		defer close(done)
		p.Notifier.Notify(context.Background(), model.Notification{Level: model.NotificationInfo, Title: "hello"})
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("notify blocked on the hub sink")
	}
	if got := p.Notifier.Recent(1); len(got) != 1 || got[0].Title != "hello" {
		t.Fatalf("unexpected history %+v", got)
	}
	_ = recorder.Hooks[0].OnStop(context.Background())
}

func TestLifecycleRecorderAppend(t *testing.T) {
	recorder := &testhelpers.LifecycleRecorder{}
	hook := fx.Hook{}
	recorder.Append(hook)
	if len(recorder.Hooks) != 1 {
		t.Fatalf("expected hook to be appended")
	}
}

func TestShutdownerStub(t *testing.T) {
	shutdowner := &testhelpers.ShutdownerStub{Called: make(chan struct{}, 1)}
	if err := shutdowner.Shutdown(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	select {
	case <-shutdowner.Called:
	default:
		t.Fatal("expected shutdown notification")
	}
}
