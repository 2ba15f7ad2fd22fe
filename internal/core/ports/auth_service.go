package ports

import (
	"context"

	"github.com/servicehub/session-gateway/internal/core/domain"
)

// AuthService is the contract stub's register/login logic.
type AuthService interface {
	Register(ctx context.Context, reg domain.Registration) (*domain.AuthPayload, error)
	Login(ctx context.Context, email, password string) (*domain.AuthPayload, error)
}
