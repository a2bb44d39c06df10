package redis

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/redis/go-redis/v9"

	"order-gateway/internal/interfaces"
	"order-gateway/internal/types"
)

// Credentials reads broker sessions written by the login flow. Per user:
// auth:<user> holds the broker token, apikey:<user> the gateway API key and
// brokerkey:<user> the broker API key.
type Credentials struct {
	rdb *redis.Client
}

var _ interfaces.CredentialStore = (*Credentials)(nil)

func NewCredentials(c *Client) *Credentials {
	return &Credentials{rdb: c.Underlying()}
}

func authKey(user string) string      { return "auth:" + user }
func apiKeyKey(user string) string    { return "apikey:" + user }
func brokerKeyKey(user string) string { return "brokerkey:" + user }

// Session returns the user's broker session. A missing token yields an
// empty AuthToken, which callers treat as unauthenticated.
func (c *Credentials) Session(ctx context.Context, user string) (types.Session, error) {
	vals, err := c.rdb.MGet(ctx, authKey(user), brokerKeyKey(user)).Result()
	if err != nil {
		return types.Session{}, types.TransportError("redis.Session", fmt.Errorf("read session %s: %w", user, err))
	}
	return types.Session{User: user, AuthToken: str(vals[0]), APIKey: str(vals[1])}, nil
}

func (c *Credentials) APIKey(ctx context.Context, user string) (string, error) {
	v, err := c.rdb.Get(ctx, apiKeyKey(user)).Result()
	if errors.Is(err, redis.Nil) {
		return "", types.AuthError("redis.APIKey", types.ErrInvalidAPIKey, http.StatusForbidden, "Invalid API key")
	}
	if err != nil {
		return "", types.TransportError("redis.APIKey", fmt.Errorf("read api key %s: %w", user, err))
	}
	return v, nil
}

// Store saves a user's credentials. Empty values are skipped.
func (c *Credentials) Store(ctx context.Context, user string, sess types.Session, apiKey string) error {
	pipe := c.rdb.TxPipeline()
	if sess.AuthToken != "" {
		pipe.Set(ctx, authKey(user), sess.AuthToken, 0)
	}
	if sess.APIKey != "" {
		pipe.Set(ctx, brokerKeyKey(user), sess.APIKey, 0)
	}
	if apiKey != "" {
		pipe.Set(ctx, apiKeyKey(user), apiKey, 0)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: store credentials %s: %w", user, err)
	}
	return nil
}

// Revoke deletes the user's broker token, forcing a new login.
func (c *Credentials) Revoke(ctx context.Context, user string) error {
	if err := c.rdb.Del(ctx, authKey(user)).Err(); err != nil {
		return fmt.Errorf("redis: revoke %s: %w", user, err)
	}
	return nil
}

func str(v any) string {
	s, _ := v.(string)
	return s
}
