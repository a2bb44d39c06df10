// Package credentials serves broker sessions from configuration.
package credentials

import (
	"context"
	"net/http"

	"order-gateway/internal/interfaces"
	"order-gateway/internal/store"
	"order-gateway/internal/types"
)

// Static is a read-only credential store built at startup. Environment
// references in the configuration are already expanded.
type Static struct {
	users map[string]store.UserCredentials
}

var _ interfaces.CredentialStore = (*Static)(nil)

func NewStatic(users map[string]store.UserCredentials) *Static {
	m := make(map[string]store.UserCredentials, len(users))
	for name, u := range users {
		m[name] = u
	}
	return &Static{users: m}
}

// Session returns an empty token for unknown users, which the gateway
// reports as unauthenticated.
func (s *Static) Session(_ context.Context, user string) (types.Session, error) {
	u := s.users[user]
	return types.Session{User: user, AuthToken: u.AuthToken, APIKey: u.BrokerKey}, nil
}

func (s *Static) APIKey(_ context.Context, user string) (string, error) {
	u, ok := s.users[user]
	if !ok || u.APIKey == "" {
		return "", types.AuthError("credentials.APIKey", types.ErrInvalidAPIKey, http.StatusForbidden, "Invalid API key")
	}
	return u.APIKey, nil
}
