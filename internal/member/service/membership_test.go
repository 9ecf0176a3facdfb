package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSyncIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	owner := env.seedUser(t, "owner@example.com", "Owner")
	tn := env.seedTenant(t, "acme", owner)
	bob := env.seedUser(t, "bob@example.com", "Bob")

	require.NoError(t, env.memberships.Sync(ctx, tn.ID, bob.ID, "member"))

	// A second sync with a different role leaves the membership untouched.
	require.NoError(t, env.memberships.Sync(ctx, tn.ID, bob.ID, "admin"))

	m, err := env.store.Memberships().GetMembership(ctx, tn.ID, bob.ID)
	require.NoError(t, err)
	require.Equal(t, "member", m.Role, "reconciliation must not flap roles")

	require.ErrorIs(t, env.memberships.Sync(ctx, tn.ID, bob.ID, "superuser"), ErrUnknownRole)
}

func TestChangeRole(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	owner := env.seedUser(t, "owner@example.com", "Owner")
	tn := env.seedTenant(t, "acme", owner)
	bob := env.seedUser(t, "bob@example.com", "Bob")
	require.NoError(t, env.memberships.Sync(ctx, tn.ID, bob.ID, "member"))

	t.Run("plain promotion works", func(t *testing.T) {
		require.NoError(t, env.memberships.ChangeRole(ctx, tn.ID, bob.ID, "admin"))

		m, err := env.store.Memberships().GetMembership(ctx, tn.ID, bob.ID)
		require.NoError(t, err)
		require.Equal(t, "admin", m.Role)
	})

	t.Run("owner role cannot be granted", func(t *testing.T) {
		require.ErrorIs(t, env.memberships.ChangeRole(ctx, tn.ID, bob.ID, "owner"), ErrOwnerImmutable)
	})

	t.Run("owner's role cannot be changed", func(t *testing.T) {
		require.ErrorIs(t, env.memberships.ChangeRole(ctx, tn.ID, owner.ID, "member"), ErrOwnerImmutable)
	})

	t.Run("unknown role rejected", func(t *testing.T) {
		require.ErrorIs(t, env.memberships.ChangeRole(ctx, tn.ID, bob.ID, "superuser"), ErrUnknownRole)
	})

	t.Run("unknown member rejected", func(t *testing.T) {
		stranger := env.seedUser(t, "stranger@example.com", "Stranger")
		require.ErrorIs(t, env.memberships.ChangeRole(ctx, tn.ID, stranger.ID, "admin"), ErrMemberNotFound)
	})
}

func TestRemove(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	owner := env.seedUser(t, "owner@example.com", "Owner")
	tn := env.seedTenant(t, "acme", owner)
	bob := env.seedUser(t, "bob@example.com", "Bob")
	require.NoError(t, env.memberships.Sync(ctx, tn.ID, bob.ID, "member"))

	t.Run("owner cannot be removed", func(t *testing.T) {
		require.ErrorIs(t, env.memberships.Remove(ctx, tn.ID, owner.ID), ErrOwnerImmutable)
	})

	t.Run("regular member can be removed", func(t *testing.T) {
		require.NoError(t, env.memberships.Remove(ctx, tn.ID, bob.ID))

		ok, err := env.memberships.AlreadyMember(ctx, tn.ID, bob.ID)
		require.NoError(t, err)
		require.False(t, ok)

		require.ErrorIs(t, env.memberships.Remove(ctx, tn.ID, bob.ID), ErrMemberNotFound)
	})
}

func TestListMembersOrdering(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	owner := env.seedUser(t, "owner@example.com", "Zoe")
	tn := env.seedTenant(t, "acme", owner)

	adam := env.seedUser(t, "adam@example.com", "Adam")
	bea := env.seedUser(t, "bea@example.com", "bea") // lower-case name
	carl := env.seedUser(t, "carl@example.com", "Carl")

	require.NoError(t, env.memberships.Sync(ctx, tn.ID, bea.ID, "member"))
	require.NoError(t, env.memberships.Sync(ctx, tn.ID, carl.ID, "admin"))
	require.NoError(t, env.memberships.Sync(ctx, tn.ID, adam.ID, "member"))

	members, err := env.memberships.ListMembers(ctx, tn.ID)
	require.NoError(t, err)
	require.Len(t, members, 4)

	// Role priority first (owner, admin, member), then name, case-folded.
	var order []string
	for _, m := range members {
		order = append(order, m.Name)
	}
	require.Equal(t, []string{"Zoe", "Carl", "Adam", "bea"}, order)
}
