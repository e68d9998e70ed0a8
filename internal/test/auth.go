package test

import (
	"errors"
	"strings"

	"github.com/polkiloo/ordersync/internal/domain/model"
	pkgAuth "github.com/polkiloo/ordersync/internal/pkg/auth"
)

// HasherStub provides deterministic hashing for tests.
type HasherStub struct {
	HashFn    func(string) (string, error)
	CompareFn func(string, string) error
}

// Hash returns a predictable hash for the supplied key.
func (h HasherStub) Hash(key string) (string, error) {
	if h.HashFn != nil {
		return h.HashFn(key)
	}
	return "hash:" + key, nil
}

// Compare validates key against stored hash.
func (h HasherStub) Compare(hash string, key string) error {
	if h.CompareFn != nil {
		return h.CompareFn(hash, key)
	}
	if hash != "hash:"+key {
		return errors.New("mismatch")
	}
	return nil
}

// StrategyStub issues and parses tokens via function overrides. Without
// overrides tokens look like "token:<role>:<subject>".
type StrategyStub struct {
	IssueFn func(model.Actor) (string, error)
	ParseFn func(string) (model.Actor, error)
	NameVal string
}

// IssueToken returns deterministic tokens for tests.
func (s StrategyStub) IssueToken(actor model.Actor) (string, error) {
	if s.IssueFn != nil {
		return s.IssueFn(actor)
	}
	return "token:" + string(actor.Role) + ":" + actor.Subject, nil
}

// ParseToken parses previously issued token strings.
func (s StrategyStub) ParseToken(token string) (model.Actor, error) {
	if s.ParseFn != nil {
		return s.ParseFn(token)
	}
	var role, subject string
	for i, part := range strings.Split(token, ":") {
		switch i {
		case 0:
			if part != "token" {
				return model.Actor{}, pkgAuth.ErrInvalidToken
			}
		case 1:
			role = part
		case 2:
			subject = part
		}
	}
	if role == "" {
		return model.Actor{}, pkgAuth.ErrInvalidToken
	}
	return model.Actor{Role: model.Source(role), Subject: subject}, nil
}

// Name returns the strategy identifier used in tests.
func (s StrategyStub) Name() string {
	if s.NameVal != "" {
		return s.NameVal
	}
	return "stub"
}

// TokenParserStub implements the middleware token parsing contract.
type TokenParserStub struct {
	Actor   model.Actor
	Err     error
	ParseFn func(string) (model.Actor, error)
}

// ParseToken either delegates to override or returns predefined result.
func (s TokenParserStub) ParseToken(token string) (model.Actor, error) {
	if s.ParseFn != nil {
		return s.ParseFn(token)
	}
	if s.Err != nil {
		return model.Actor{}, s.Err
	}
	return s.Actor, nil
}

var _ pkgAuth.KeyHasher = HasherStub{}
var _ pkgAuth.Strategy = StrategyStub{}
