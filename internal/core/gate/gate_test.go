package gate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/servicehub/session-gateway/internal/core/domain"
)

func session(role domain.Role) domain.SessionState {
	return domain.SessionState{
		User:     &domain.User{ID: "1", Role: role},
		Token:    "t",
		Hydrated: true,
	}
}

func TestDecide(t *testing.T) {
	anonymous := domain.SessionState{Hydrated: true}

	tests := []struct {
		name    string
		state   domain.SessionState
		allowed []domain.Role
		want    Decision
	}{
		{
			name:  "not hydrated yet",
			state: domain.SessionState{},
			want:  Decision{Outcome: OutcomeLoading},
		},
		{
			name:    "operation in flight",
			state:   domain.SessionState{Hydrated: true, Loading: true},
			allowed: []domain.Role{domain.RoleAdmin},
			want:    Decision{Outcome: OutcomeLoading},
		},
		{
			name:  "anonymous, no whitelist",
			state: anonymous,
			want:  Decision{Outcome: OutcomeLogin, From: "/bookings?page=2"},
		},
		{
			name:    "anonymous, whitelist",
			state:   anonymous,
			allowed: []domain.Role{domain.RoleCustomer, domain.RoleWorker, domain.RoleAdmin},
			want:    Decision{Outcome: OutcomeLogin, From: "/bookings?page=2"},
		},
		{
			name:    "user without token",
			state:   domain.SessionState{Hydrated: true, User: &domain.User{Role: domain.RoleAdmin}},
			allowed: []domain.Role{domain.RoleAdmin},
			want:    Decision{Outcome: OutcomeLogin, From: "/bookings?page=2"},
		},
		{
			name:    "worker on customer view",
			state:   session(domain.RoleWorker),
			allowed: []domain.Role{domain.RoleCustomer},
			want:    Decision{Outcome: OutcomeUnauthorized},
		},
		{
			name:    "worker, empty whitelist",
			state:   session(domain.RoleWorker),
			allowed: []domain.Role{},
			want:    Decision{Outcome: OutcomeRender},
		},
		{
			name:    "worker on worker view",
			state:   session(domain.RoleWorker),
			allowed: []domain.Role{domain.RoleWorker},
			want:    Decision{Outcome: OutcomeRender},
		},
		{
			name:    "admin among several roles",
			state:   session(domain.RoleAdmin),
			allowed: []domain.Role{domain.RoleWorker, domain.RoleAdmin},
			want:    Decision{Outcome: OutcomeRender},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Decide(tt.state, tt.allowed, "/bookings?page=2")
			assert.Equal(t, tt.want, got)
		})
	}
}
