package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/servicehub/session-gateway/internal/api/metrics"
	"github.com/servicehub/session-gateway/internal/core/domain"
	"github.com/servicehub/session-gateway/internal/core/ports"
)

type auditService struct {
	repo ports.TransitionRepository
	log  zerolog.Logger
}

// NewAuditService returns an AuditService. A nil repo only logs transitions.
func NewAuditService(repo ports.TransitionRepository, log zerolog.Logger) ports.AuditService {
	return &auditService{
		repo: repo,
		log:  log.With().Str("component", "audit").Logger(),
	}
}

// Record persists a single session transition.
func (s *auditService) Record(ctx context.Context, t domain.Transition) error {
	// Pending steps carry no outcome; only settled ones go to the trail.
	if t.Phase == domain.PhasePending {
		return nil
	}

	s.log.Debug().
		Str("client_id", t.ClientID).
		Str("op", string(t.Op)).
		Str("phase", string(t.Phase)).
		Uint64("request_id", t.RequestID).
		Bool("authenticated", t.Authenticated).
		Msg("session transition")

	if s.repo == nil {
		return nil
	}
	if err := s.repo.InsertTransition(ctx, t); err != nil {
		metrics.AuditErrorsTotal.WithLabelValues("insert_failed").Inc()
		return fmt.Errorf("record transition: %w", err)
	}
	return nil
}
