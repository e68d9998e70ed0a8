package ws

import (
	"log/slog"

	"go.uber.org/fx"
)

// Module provides the live update hub.
var Module = fx.Provide(newHub)

func newHub(logger *slog.Logger) *Hub {
	return NewHub(logger.With(slog.String("component", "ws")))
}
