package mongo

import (
	"testing"
	"time"

	"github.com/servicehub/session-gateway/internal/core/domain"
)

func TestMongoUserRoundTrip(t *testing.T) {
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	in := &domain.Account{
		User: domain.User{
			ID:        "u-1",
			FirstName: "Ana",
			LastName:  "Diaz",
			Email:     "ana@example.com",
			Role:      domain.RoleWorker,
		},
		PasswordHash: "hash",
		CreatedAt:    created,
		UpdatedAt:    created,
	}

	out := fromMongoUser(toMongoUser(in))
	if out.User != in.User || out.PasswordHash != "hash" || !out.CreatedAt.Equal(created) {
		t.Fatalf("round trip mismatch: %+v", out)
	}
}

func TestUnixToTimeZero(t *testing.T) {
	if !unixToTime(0).IsZero() {
		t.Fatalf("expected zero time for ts 0")
	}
}
