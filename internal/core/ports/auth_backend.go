package ports

import (
	"context"

	"github.com/servicehub/session-gateway/internal/core/domain"
)

// AuthBackend is the marketplace REST backend as seen by a session.
// Non-2xx answers are reported as *domain.BackendError.
type AuthBackend interface {
	Register(ctx context.Context, reg domain.Registration) (*domain.AuthPayload, error)
	Login(ctx context.Context, creds domain.Credentials) (*domain.AuthPayload, error)
	// Logout notifies the backend; callers treat any error as advisory.
	Logout(ctx context.Context, token string) error
}
