package ports

import (
	"context"

	"github.com/servicehub/session-gateway/internal/core/domain"
)

// AuditService records session transitions.
type AuditService interface {
	Record(ctx context.Context, t domain.Transition) error
}
