package notify

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/polkiloo/ordersync/internal/domain/repository"
	"github.com/polkiloo/ordersync/internal/pkg/clock"
)

// Module provides the process notifier.
var Module = fx.Options(
	fx.Provide(newNotifier),
	fx.Provide(func(n *Notifier) repository.Notifier { return n }),
)

func newNotifier(c clock.Clock, logger *slog.Logger) *Notifier {
	return New(c, logger.With(slog.String("component", "notify")), defaultCapacity)
}
