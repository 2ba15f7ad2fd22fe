package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/servicehub/session-gateway/internal/core/domain"
)

type stubTransitionRepo struct {
	inserted  []domain.Transition
	insertErr error
}

func (r *stubTransitionRepo) InsertTransition(_ context.Context, t domain.Transition) error {
	if r.insertErr != nil {
		return r.insertErr
	}
	r.inserted = append(r.inserted, t)
	return nil
}

func transition(phase domain.Phase) domain.Transition {
	return domain.Transition{
		ClientID:  "c1",
		Op:        domain.OpLogin,
		Phase:     phase,
		RequestID: 3,
		At:        time.Now().UTC(),
	}
}

func TestAuditService_RecordsSettledTransitions(t *testing.T) {
	repo := &stubTransitionRepo{}
	svc := NewAuditService(repo, zerolog.Nop())

	if err := svc.Record(context.Background(), transition(domain.PhaseFulfilled)); err != nil {
		t.Fatalf("Record returned error: %v", err)
	}
	if len(repo.inserted) != 1 || repo.inserted[0].RequestID != 3 {
		t.Fatalf("expected one inserted transition, got %+v", repo.inserted)
	}
}

func TestAuditService_SkipsPending(t *testing.T) {
	repo := &stubTransitionRepo{}
	svc := NewAuditService(repo, zerolog.Nop())

	if err := svc.Record(context.Background(), transition(domain.PhasePending)); err != nil {
		t.Fatalf("Record returned error: %v", err)
	}
	if len(repo.inserted) != 0 {
		t.Fatalf("pending transitions must not be stored")
	}
}

func TestAuditService_InsertFailure(t *testing.T) {
	repo := &stubTransitionRepo{insertErr: errors.New("mongo down")}
	svc := NewAuditService(repo, zerolog.Nop())

	err := svc.Record(context.Background(), transition(domain.PhaseRejected))
	if err == nil || !errors.Is(err, repo.insertErr) {
		t.Fatalf("expected wrapped insert error, got %v", err)
	}
}

func TestAuditService_NilRepoOnlyLogs(t *testing.T) {
	svc := NewAuditService(nil, zerolog.Nop())
	if err := svc.Record(context.Background(), transition(domain.PhaseFulfilled)); err != nil {
		t.Fatalf("Record returned error: %v", err)
	}
}
