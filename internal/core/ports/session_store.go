package ports

import (
	"context"

	"github.com/servicehub/session-gateway/internal/core/domain"
)

// SessionStore is the durable {token, user} pair of one browser client.
//
// Missing keys are not errors: Token returns "" and User returns nil. A user
// record that cannot be decoded is reported as absent, never as an error.
type SessionStore interface {
	Token(ctx context.Context) (string, error)
	SetToken(ctx context.Context, token string) error
	User(ctx context.Context) (*domain.User, error)
	SetUser(ctx context.Context, user *domain.User) error
	// Clear removes the token and the user together.
	Clear(ctx context.Context) error
	// IsAuthenticated reports token presence only.
	IsAuthenticated(ctx context.Context) bool
}

// StoreFactory hands out the store scoped to one client.
type StoreFactory interface {
	For(clientID string) SessionStore
}
