package auth

import (
	"time"

	"github.com/polkiloo/ordersync/internal/domain/model"
)

type Strategy interface {
	IssueToken(actor model.Actor) (string, error)
	ParseToken(token string) (model.Actor, error)
	Name() string
}

type Options struct {
	TTL time.Duration
}
