package auth

import (
	"go.uber.org/fx"

	"github.com/polkiloo/ordersync/internal/config"
)

// Module provides authentication primitives via fx.
var Module = fx.Options(
	fx.Provide(newKeyHasher),
	fx.Provide(newKeyVerifier),
	fx.Provide(newTokenStrategy),
)

func newKeyHasher() KeyHasher {
	return NewBcryptHasher(0)
}

type strategyParams struct {
	fx.In

	Config *config.Config
}

func newTokenStrategy(p strategyParams) Strategy {
	return NewHMACStrategy(p.Config.TokenSecret, Options{TTL: p.Config.TokenTTL})
}

type verifierParams struct {
	fx.In

	Config *config.Config
	Hasher KeyHasher
}

func newKeyVerifier(p verifierParams) (*KeyVerifier, error) {
	return NewKeyVerifier(p.Hasher, p.Config.ActorKey)
}
