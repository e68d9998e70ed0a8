package usecase

import (
	"strings"

	domainErrors "github.com/polkiloo/ordersync/internal/domain/errors"
	"github.com/polkiloo/ordersync/internal/domain/model"
	pkgAuth "github.com/polkiloo/ordersync/internal/pkg/auth"
)

// KeyChecker verifies an actor access key.
type KeyChecker interface {
	Verify(key string) bool
}

// SessionUseCase opens actor sessions for the views that mutate orders.
type SessionUseCase struct {
	keys   KeyChecker
	tokens pkgAuth.Strategy
}

// NewSessionUseCase constructs SessionUseCase.
func NewSessionUseCase(keys *pkgAuth.KeyVerifier, strategy pkgAuth.Strategy) *SessionUseCase {
	return &SessionUseCase{keys: keys, tokens: strategy}
}

// Login checks the access key and issues a token for role. The system role
// is internal and cannot log in.
func (u *SessionUseCase) Login(role, subject, key string) (model.Actor, string, error) {
	actor := model.Actor{
		Role:    model.Source(strings.ToLower(strings.TrimSpace(role))),
		Subject: strings.TrimSpace(subject),
	}
	if !actor.Role.Valid() || actor.Role == model.SourceSystem || key == "" {
		return model.Actor{}, "", domainErrors.ErrInvalidCredentials
	}
	if !u.keys.Verify(key) {
		return model.Actor{}, "", domainErrors.ErrInvalidCredentials
	}
	if actor.Subject == "" {
		actor.Subject = string(actor.Role)
	}

	token, err := u.tokens.IssueToken(actor)
	if err != nil {
		return model.Actor{}, "", err
	}
	return actor, token, nil
}

// ParseToken resolves the actor behind token.
func (u *SessionUseCase) ParseToken(token string) (model.Actor, error) {
	if token == "" {
		return model.Actor{}, pkgAuth.ErrInvalidToken
	}
	return u.tokens.ParseToken(token)
}
