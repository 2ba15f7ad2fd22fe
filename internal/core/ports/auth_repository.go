package ports

import (
	"context"

	"github.com/servicehub/session-gateway/internal/core/domain"
)

// AuthRepository persists the contract stub's accounts.
type AuthRepository interface {
	FindByEmail(ctx context.Context, email string) (*domain.Account, error)
	Create(ctx context.Context, account *domain.Account) (*domain.Account, error)
}
