package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUserUpsert(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	u, err := env.users.Upsert(ctx, "auth-user-1", "Alice@Example.com", " Alice ")
	require.NoError(t, err)
	require.Equal(t, "alice@example.com", u.Email)
	require.Equal(t, "Alice", u.Name)

	t.Run("push refreshes the record", func(t *testing.T) {
		u2, err := env.users.Upsert(ctx, "auth-user-1", "alice@new.example", "Alice B")
		require.NoError(t, err)
		require.Equal(t, "alice@new.example", u2.Email)
		require.Equal(t, "Alice B", u2.Name)
	})

	t.Run("email owned by another id is rejected", func(t *testing.T) {
		_, err := env.users.Upsert(ctx, "auth-user-2", "alice@new.example", "Impostor")
		require.ErrorIs(t, err, ErrEmailTaken)
	})

	t.Run("validation", func(t *testing.T) {
		_, err := env.users.Upsert(ctx, "", "a@example.com", "A")
		require.ErrorIs(t, err, ErrInvalidUserRecord)

		_, err = env.users.Upsert(ctx, "id", "not-an-email", "A")
		require.ErrorIs(t, err, ErrInvalidUserRecord)
	})
}

func TestUserDeleteCascadesMemberships(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	owner := env.seedUser(t, "owner@example.com", "Owner")
	tn := env.seedTenant(t, "acme", owner)
	bob := env.seedUser(t, "bob@example.com", "Bob")
	require.NoError(t, env.memberships.Sync(ctx, tn.ID, bob.ID, "member"))

	require.NoError(t, env.users.Delete(ctx, bob.ID))

	ok, err := env.memberships.AlreadyMember(ctx, tn.ID, bob.ID)
	require.NoError(t, err)
	require.False(t, ok, "memberships cascade away with the directory record")

	require.ErrorIs(t, env.users.Delete(ctx, bob.ID), ErrUnknownUser)
}
