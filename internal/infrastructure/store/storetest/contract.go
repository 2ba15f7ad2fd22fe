// Package storetest holds the behaviour every ports.SessionStore backend must
// share, so each backend runs the same suite from its own tests.
package storetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/servicehub/session-gateway/internal/core/domain"
	"github.com/servicehub/session-gateway/internal/core/ports"
)

// Harness is one empty store under test.
type Harness struct {
	Store ports.SessionStore
	// CorruptUser replaces the stored user record with bytes that do not
	// decode, leaving the token in place.
	CorruptUser func(t *testing.T)
}

// Run executes the shared suite. newHarness must return an empty store on
// every call.
func Run(t *testing.T, newHarness func(t *testing.T) Harness) {
	t.Run("missing keys read as empty", func(t *testing.T) {
		s := newHarness(t).Store
		ctx := context.Background()

		token, err := s.Token(ctx)
		require.NoError(t, err)
		assert.Empty(t, token)

		u, err := s.User(ctx)
		require.NoError(t, err)
		assert.Nil(t, u)
		assert.False(t, s.IsAuthenticated(ctx))
	})

	t.Run("token and user round trip", func(t *testing.T) {
		s := newHarness(t).Store
		ctx := context.Background()
		want := &domain.User{ID: "42", FirstName: "Lia", LastName: "Soto", Email: "lia@example.com", Role: domain.RoleAdmin}

		require.NoError(t, s.SetToken(ctx, "tok-1"))
		require.NoError(t, s.SetUser(ctx, want))

		token, err := s.Token(ctx)
		require.NoError(t, err)
		assert.Equal(t, "tok-1", token)

		got, err := s.User(ctx)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, *want, *got)
		assert.True(t, s.IsAuthenticated(ctx))
	})

	t.Run("later writes replace earlier ones", func(t *testing.T) {
		s := newHarness(t).Store
		ctx := context.Background()

		require.NoError(t, s.SetUser(ctx, &domain.User{ID: "1", Role: domain.RoleCustomer}))
		require.NoError(t, s.SetUser(ctx, &domain.User{ID: "1", Role: domain.RoleWorker}))

		got, err := s.User(ctx)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, domain.RoleWorker, got.Role)
	})

	t.Run("corrupt user reads as absent", func(t *testing.T) {
		h := newHarness(t)
		ctx := context.Background()
		require.NoError(t, h.Store.SetToken(ctx, "tok-2"))
		require.NoError(t, h.Store.SetUser(ctx, &domain.User{ID: "2", Role: domain.RoleCustomer}))
		h.CorruptUser(t)

		u, err := h.Store.User(ctx)
		require.NoError(t, err)
		assert.Nil(t, u)

		token, err := h.Store.Token(ctx)
		require.NoError(t, err)
		assert.Equal(t, "tok-2", token)
	})

	t.Run("clear removes token and user", func(t *testing.T) {
		s := newHarness(t).Store
		ctx := context.Background()
		require.NoError(t, s.SetToken(ctx, "tok-3"))
		require.NoError(t, s.SetUser(ctx, &domain.User{ID: "3", Role: domain.RoleWorker}))

		require.NoError(t, s.Clear(ctx))

		token, err := s.Token(ctx)
		require.NoError(t, err)
		assert.Empty(t, token)
		u, err := s.User(ctx)
		require.NoError(t, err)
		assert.Nil(t, u)
		assert.False(t, s.IsAuthenticated(ctx))

		// Clearing an empty store is not an error.
		require.NoError(t, s.Clear(ctx))
	})
}
