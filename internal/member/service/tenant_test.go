package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTenantCreate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	owner := env.seedUser(t, "owner@example.com", "Owner")

	tn, err := env.tenants.Create(ctx, " Acme Corp ", "Acme", owner.ID)
	require.NoError(t, err)
	require.Equal(t, "Acme Corp", tn.Name)
	require.Equal(t, "acme", tn.Slug, "slug lower-cased")
	require.Equal(t, "active", tn.Status)

	t.Run("creator becomes owner atomically", func(t *testing.T) {
		m, err := env.store.Memberships().GetMembership(ctx, tn.ID, owner.ID)
		require.NoError(t, err)
		require.Equal(t, "owner", m.Role)
	})

	t.Run("slug collision", func(t *testing.T) {
		_, err := env.tenants.Create(ctx, "Other", "acme", owner.ID)
		require.ErrorIs(t, err, ErrSlugTaken)
	})

	t.Run("input validation", func(t *testing.T) {
		_, err := env.tenants.Create(ctx, "", "x", owner.ID)
		require.ErrorIs(t, err, ErrInvalidTenantRequest)

		_, err = env.tenants.Create(ctx, "Name", "Bad Slug!", owner.ID)
		require.ErrorIs(t, err, ErrInvalidTenantRequest)

		_, err = env.tenants.Create(ctx, "Name", "ok-slug", "no-such-user")
		require.ErrorIs(t, err, ErrUnknownUser)
	})

	t.Run("lookup by slug", func(t *testing.T) {
		got, err := env.tenants.GetBySlug(ctx, "ACME")
		require.NoError(t, err)
		require.Equal(t, tn.ID, got.ID)

		_, err = env.tenants.GetBySlug(ctx, "missing")
		require.ErrorIs(t, err, ErrTenantNotFound)
	})
}

func TestGenericInviteTokenLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	owner := env.seedUser(t, "owner@example.com", "Owner")
	tn := env.seedTenant(t, "acme", owner)

	// Ensure mints once and then keeps returning the same token.
	tok1, err := env.tenants.EnsureGenericInviteToken(ctx, tn.ID)
	require.NoError(t, err)
	require.NotEmpty(t, tok1)

	tok2, err := env.tenants.EnsureGenericInviteToken(ctx, tn.ID)
	require.NoError(t, err)
	require.Equal(t, tok1, tok2)

	// Rotation invalidates the old token immediately.
	tok3, err := env.tenants.RotateGenericInviteToken(ctx, tn.ID)
	require.NoError(t, err)
	require.NotEqual(t, tok1, tok3)

	_, err = env.invites.ResolveByToken(ctx, tok1)
	require.ErrorIs(t, err, ErrInvalidInviteToken)

	r, err := env.invites.ResolveByToken(ctx, tok3)
	require.NoError(t, err)
	require.Equal(t, tn.ID, r.Tenant.ID)

	// Clearing revokes the link entirely.
	require.NoError(t, env.tenants.ClearGenericInviteToken(ctx, tn.ID))
	_, err = env.invites.ResolveByToken(ctx, tok3)
	require.ErrorIs(t, err, ErrInvalidInviteToken)

	t.Run("unknown tenant", func(t *testing.T) {
		_, err := env.tenants.EnsureGenericInviteToken(ctx, "missing")
		require.ErrorIs(t, err, ErrTenantNotFound)
		_, err = env.tenants.RotateGenericInviteToken(ctx, "missing")
		require.ErrorIs(t, err, ErrTenantNotFound)
		require.ErrorIs(t, env.tenants.ClearGenericInviteToken(ctx, "missing"), ErrTenantNotFound)
	})
}

func TestTenantUpdateProfile(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	owner := env.seedUser(t, "owner@example.com", "Owner")
	tn := env.seedTenant(t, "acme", owner)

	require.NoError(t, env.tenants.UpdateProfile(ctx, tn.ID, "Acme International"))

	got, err := env.tenants.Get(ctx, tn.ID)
	require.NoError(t, err)
	require.Equal(t, "Acme International", got.Name)

	require.ErrorIs(t, env.tenants.UpdateProfile(ctx, tn.ID, "  "), ErrInvalidTenantRequest)
	require.ErrorIs(t, env.tenants.UpdateProfile(ctx, "missing", "x"), ErrTenantNotFound)
}
