package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/servicehub/session-gateway/internal/core/domain"
	"github.com/servicehub/session-gateway/internal/core/ports"
)

const defaultPrefix = "session"

// SessionStoreFactory hands out Redis-backed session stores.
// Key format: <prefix>:<client_id>:token and <prefix>:<client_id>:user
type SessionStoreFactory struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	log    zerolog.Logger
}

// NewSessionStoreFactory wraps client. A zero ttl keeps keys until cleared.
func NewSessionStoreFactory(client *redis.Client, prefix string, ttl time.Duration, log zerolog.Logger) *SessionStoreFactory {
	prefix = strings.TrimSuffix(strings.TrimSpace(prefix), ":")
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &SessionStoreFactory{
		client: client,
		prefix: prefix,
		ttl:    ttl,
		log:    log.With().Str("component", "redis_store").Logger(),
	}
}

func (f *SessionStoreFactory) For(clientID string) ports.SessionStore {
	base := f.prefix + ":" + clientID
	return &SessionStore{
		client:   f.client,
		tokenKey: base + ":token",
		userKey:  base + ":user",
		ttl:      f.ttl,
		log:      f.log.With().Str("client_id", clientID).Logger(),
	}
}

// SessionStore keeps one client's token and user record as two string keys.
type SessionStore struct {
	client   *redis.Client
	tokenKey string
	userKey  string
	ttl      time.Duration
	log      zerolog.Logger
}

func (s *SessionStore) Token(ctx context.Context) (string, error) {
	v, err := s.client.Get(ctx, s.tokenKey).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get token: %w", err)
	}
	return v, nil
}

func (s *SessionStore) SetToken(ctx context.Context, token string) error {
	if err := s.client.Set(ctx, s.tokenKey, token, s.ttl).Err(); err != nil {
		return fmt.Errorf("set token: %w", err)
	}
	return nil
}

func (s *SessionStore) User(ctx context.Context) (*domain.User, error) {
	v, err := s.client.Get(ctx, s.userKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	var u domain.User
	if err := json.Unmarshal(v, &u); err != nil {
		s.log.Warn().Err(err).Msg("stored user record is corrupt, treating as absent")
		return nil, nil
	}
	return &u, nil
}

func (s *SessionStore) SetUser(ctx context.Context, user *domain.User) error {
	b, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	if err := s.client.Set(ctx, s.userKey, b, s.ttl).Err(); err != nil {
		return fmt.Errorf("set user: %w", err)
	}
	return nil
}

// Clear deletes both keys in a single command.
func (s *SessionStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.tokenKey, s.userKey).Err(); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

func (s *SessionStore) IsAuthenticated(ctx context.Context) bool {
	token, err := s.Token(ctx)
	return err == nil && token != ""
}
