package ports

import (
	"context"

	"github.com/servicehub/session-gateway/internal/core/domain"
)

// TransitionRepository is the append-only audit trail of session transitions.
type TransitionRepository interface {
	InsertTransition(ctx context.Context, t domain.Transition) error
}
