package service

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestInviteBatch(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	owner := env.seedUser(t, "owner@example.com", "Owner")
	tn := env.seedTenant(t, "acme", owner)

	member := env.seedUser(t, "bob@example.com", "Bob")
	require.NoError(t, env.memberships.Sync(ctx, tn.ID, member.ID, "member"))

	results, err := env.invites.Invite(ctx, tn.ID, owner.ID, []InviteRequest{
		{Email: "Carol@Example.com", Role: "admin"},
		{Email: "not-an-email"},
		{Email: "dave@example.com", Role: "superuser"},
		{Email: "erin@example.com", Role: "owner"},
		{Email: "bob@example.com", Role: "member"},
		{Email: "frank@example.com"}, // defaults to member
	})
	require.NoError(t, err)
	require.Len(t, results, 6)

	require.Empty(t, results[0].Skipped)
	require.Equal(t, "carol@example.com", results[0].Email, "address normalized")
	require.Equal(t, "admin", results[0].Role)
	require.NotEmpty(t, results[0].InviteID)

	require.Equal(t, SkipInvalidEmail, results[1].Skipped)
	require.Equal(t, SkipUnknownRole, results[2].Skipped)
	require.Equal(t, SkipOwnerRole, results[3].Skipped)
	require.Equal(t, SkipAlreadyMember, results[4].Skipped)

	require.Empty(t, results[5].Skipped)
	require.Equal(t, "member", results[5].Role, "empty role falls back to default")

	// One notification per created invite, none for skipped entries.
	events := env.notifier.all()
	require.Len(t, events, 2)
	require.Equal(t, "carol@example.com", events[0].Email)
	require.Equal(t, tn.Name, events[0].TenantName)
	require.Contains(t, events[0].AcceptURL, "/invite/")
	require.Contains(t, events[0].AcceptURL, "sig=")
	require.False(t, events[0].Resend)
}

func TestInviteRequireRole(t *testing.T) {
	env := newTestEnv(t)
	env.invites.Config.RequireRole = true
	ctx := context.Background()

	owner := env.seedUser(t, "owner@example.com", "Owner")
	tn := env.seedTenant(t, "acme", owner)

	results, err := env.invites.Invite(ctx, tn.ID, owner.ID, []InviteRequest{
		{Email: "carol@example.com"},
		{Email: "dave@example.com", Role: "member"},
	})
	require.NoError(t, err)
	require.Equal(t, SkipRoleRequired, results[0].Skipped)
	require.Empty(t, results[1].Skipped)
}

func TestInviteDuplicatePending(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	owner := env.seedUser(t, "owner@example.com", "Owner")
	tn := env.seedTenant(t, "acme", owner)

	first, err := env.invites.Invite(ctx, tn.ID, owner.ID, []InviteRequest{{Email: "carol@example.com", Role: "member"}})
	require.NoError(t, err)
	require.Empty(t, first[0].Skipped)

	second, err := env.invites.Invite(ctx, tn.ID, owner.ID, []InviteRequest{{Email: "carol@example.com", Role: "admin"}})
	require.NoError(t, err)
	require.Equal(t, SkipDuplicatePending, second[0].Skipped)

	// The skipped entry must not have emitted a second notification.
	require.Len(t, env.notifier.all(), 1)
}

func TestInviteUnknownTenant(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.invites.Invite(context.Background(), "missing", "", []InviteRequest{{Email: "a@example.com"}})
	require.ErrorIs(t, err, ErrTenantNotFound)
}

func TestResendKeepsToken(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	owner := env.seedUser(t, "owner@example.com", "Owner")
	tn := env.seedTenant(t, "acme", owner)

	results, err := env.invites.Invite(ctx, tn.ID, owner.ID, []InviteRequest{{Email: "carol@example.com", Role: "member"}})
	require.NoError(t, err)

	before, err := env.store.Invites().GetInviteByID(ctx, results[0].InviteID)
	require.NoError(t, err)

	resent, err := env.invites.Resend(ctx, before.ID)
	require.NoError(t, err)
	require.Equal(t, before.Token, resent.Token, "resend must not rotate the token")
	require.True(t, resent.ExpiresAt.After(before.ExpiresAt) || resent.ExpiresAt.Equal(before.ExpiresAt))

	events := env.notifier.all()
	require.Len(t, events, 2)
	require.True(t, events[1].Resend)

	// The original link still resolves.
	resolved, err := env.invites.ResolveByToken(ctx, before.Token)
	require.NoError(t, err)
	require.True(t, resolved.Targeted)
}

func TestResendRejectsNonPending(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	owner := env.seedUser(t, "owner@example.com", "Owner")
	tn := env.seedTenant(t, "acme", owner)

	results, err := env.invites.Invite(ctx, tn.ID, owner.ID, []InviteRequest{{Email: "carol@example.com", Role: "member"}})
	require.NoError(t, err)
	inviteID := results[0].InviteID

	carol := env.seedUser(t, "carol@example.com", "Carol")
	inv, err := env.store.Invites().GetInviteByID(ctx, inviteID)
	require.NoError(t, err)

	resolved, err := env.invites.ResolveByToken(ctx, inv.Token)
	require.NoError(t, err)
	_, err = env.invites.Accept(ctx, resolved, carol.ID)
	require.NoError(t, err)

	_, err = env.invites.Resend(ctx, inviteID)
	require.ErrorIs(t, err, ErrInviteNotFound)

	_, err = env.invites.Resend(ctx, "missing")
	require.ErrorIs(t, err, ErrInviteNotFound)
}

func TestCancel(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	owner := env.seedUser(t, "owner@example.com", "Owner")
	tn := env.seedTenant(t, "acme", owner)

	results, err := env.invites.Invite(ctx, tn.ID, owner.ID, []InviteRequest{{Email: "carol@example.com", Role: "member"}})
	require.NoError(t, err)

	inv, err := env.store.Invites().GetInviteByID(ctx, results[0].InviteID)
	require.NoError(t, err)

	require.NoError(t, env.invites.Cancel(ctx, inv.ID))

	_, err = env.invites.ResolveByToken(ctx, inv.Token)
	require.ErrorIs(t, err, ErrInvalidInviteToken, "cancelled token stops resolving immediately")

	require.ErrorIs(t, env.invites.Cancel(ctx, inv.ID), ErrInviteNotFound)
}

func TestResolveByToken(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	owner := env.seedUser(t, "owner@example.com", "Owner")
	tn := env.seedTenant(t, "acme", owner)

	results, err := env.invites.Invite(ctx, tn.ID, owner.ID, []InviteRequest{{Email: "carol@example.com", Role: "admin"}})
	require.NoError(t, err)
	inv, err := env.store.Invites().GetInviteByID(ctx, results[0].InviteID)
	require.NoError(t, err)

	generic, err := env.tenants.EnsureGenericInviteToken(ctx, tn.ID)
	require.NoError(t, err)

	t.Run("targeted token", func(t *testing.T) {
		r, err := env.invites.ResolveByToken(ctx, inv.Token)
		require.NoError(t, err)
		require.True(t, r.Targeted)
		require.Equal(t, "admin", r.Role)
		require.Equal(t, tn.ID, r.Tenant.ID)
		require.NotNil(t, r.Invite)
	})

	t.Run("generic token carries default role", func(t *testing.T) {
		r, err := env.invites.ResolveByToken(ctx, generic)
		require.NoError(t, err)
		require.False(t, r.Targeted)
		require.Nil(t, r.Invite)
		require.Equal(t, "member", r.Role)
		require.Equal(t, tn.ID, r.Tenant.ID)
	})

	t.Run("unknown and empty tokens fail uniformly", func(t *testing.T) {
		_, err := env.invites.ResolveByToken(ctx, "garbage")
		require.ErrorIs(t, err, ErrInvalidInviteToken)

		_, err = env.invites.ResolveByToken(ctx, "")
		require.ErrorIs(t, err, ErrInvalidInviteToken)
	})
}

func TestAccept(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	owner := env.seedUser(t, "owner@example.com", "Owner")
	tn := env.seedTenant(t, "acme", owner)

	results, err := env.invites.Invite(ctx, tn.ID, owner.ID, []InviteRequest{{Email: "carol@example.com", Role: "admin"}})
	require.NoError(t, err)
	inv, err := env.store.Invites().GetInviteByID(ctx, results[0].InviteID)
	require.NoError(t, err)

	t.Run("email mismatch is rejected", func(t *testing.T) {
		mallory := env.seedUser(t, "mallory@example.com", "Mallory")

		r, err := env.invites.ResolveByToken(ctx, inv.Token)
		require.NoError(t, err)

		_, err = env.invites.Accept(ctx, r, mallory.ID)
		require.ErrorIs(t, err, ErrEmailMismatch)

		// The invite survives the failed attempt.
		_, err = env.invites.ResolveByToken(ctx, inv.Token)
		require.NoError(t, err)
	})

	t.Run("matching identity joins with the invite role", func(t *testing.T) {
		// Directory casing differs from the invited address.
		carol := env.seedUser(t, "Carol@Example.com", "Carol")

		r, err := env.invites.ResolveByToken(ctx, inv.Token)
		require.NoError(t, err)

		m, err := env.invites.Accept(ctx, r, carol.ID)
		require.NoError(t, err)
		require.Equal(t, "admin", m.Role)

		ok, err := env.memberships.AlreadyMember(ctx, tn.ID, carol.ID)
		require.NoError(t, err)
		require.True(t, ok)

		// Consumed: the token no longer resolves and a second accept with a
		// stale resolution fails closed.
		_, err = env.invites.ResolveByToken(ctx, inv.Token)
		require.ErrorIs(t, err, ErrInvalidInviteToken)

		require.NoError(t, env.store.Memberships().DeleteMembership(ctx, tn.ID, carol.ID))
		_, err = env.invites.Accept(ctx, r, carol.ID)
		require.ErrorIs(t, err, ErrInvalidInviteToken)

		ok, err = env.memberships.AlreadyMember(ctx, tn.ID, carol.ID)
		require.NoError(t, err)
		require.False(t, ok, "failed accept must not leave a membership behind")
	})

	t.Run("unknown user is rejected", func(t *testing.T) {
		generic, err := env.tenants.EnsureGenericInviteToken(ctx, tn.ID)
		require.NoError(t, err)
		r, err := env.invites.ResolveByToken(ctx, generic)
		require.NoError(t, err)

		_, err = env.invites.Accept(ctx, r, "no-such-user")
		require.ErrorIs(t, err, ErrUnknownUser)
	})

	t.Run("generic accept admits any identity with the default role", func(t *testing.T) {
		dave := env.seedUser(t, "dave@example.com", "Dave")

		generic, err := env.tenants.EnsureGenericInviteToken(ctx, tn.ID)
		require.NoError(t, err)
		r, err := env.invites.ResolveByToken(ctx, generic)
		require.NoError(t, err)

		m, err := env.invites.Accept(ctx, r, dave.ID)
		require.NoError(t, err)
		require.Equal(t, "member", m.Role)

		// Accepting again is informational only.
		_, err = env.invites.Accept(ctx, r, dave.ID)
		require.ErrorIs(t, err, ErrAlreadyMember)
	})
}

func TestAcceptURL(t *testing.T) {
	env := newTestEnv(t)

	expiry := time.Now().UTC().Add(time.Hour)
	raw, err := env.invites.AcceptURL("some-token", expiry)
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(u.Path, "/invite/some-token/accept"))
	require.NotEmpty(t, u.Query().Get("sig"))

	require.NoError(t, env.invites.Signer.Verify(raw))
}

func TestNormalizeEmail(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"Alice@Example.COM", "alice@example.com", true},
		{"  bob@example.com ", "bob@example.com", true},
		{"", "", false},
		{"not-an-email", "", false},
		{"Alice <alice@example.com>", "", false},
		{"a@b@c", "", false},
	}

	for _, tc := range cases {
		got, ok := normalizeEmail(tc.in)
		require.Equal(t, tc.ok, ok, "input %q", tc.in)
		require.Equal(t, tc.want, got, "input %q", tc.in)
	}
}
