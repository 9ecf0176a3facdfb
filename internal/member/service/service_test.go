package service

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/crewlane/memberd/internal/member/domain"
	"github.com/crewlane/memberd/internal/member/roles"
	"github.com/crewlane/memberd/internal/member/store/drivers/sqlite"
	"github.com/crewlane/memberd/pkg/idx"
	"github.com/crewlane/memberd/pkg/linksign"
	"github.com/stretchr/testify/require"
)

// Shared test fixtures for the service package.

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()

	s, err := sqlite.NewStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.ApplyMigrations())
	return s
}

func newTestRegistry(t *testing.T) *roles.Registry {
	t.Helper()

	r, err := roles.New([]roles.Definition{
		{Value: "owner", Label: "Owner", Color: "warning"},
		{Value: "admin", Label: "Administrator", Color: "danger"},
		{Value: "member", Label: "Member", Color: "success"},
	}, []string{"owner", "admin", "member"}, "owner", "member")
	require.NoError(t, err)
	return r
}

func newTestSigner(t *testing.T) *linksign.Signer {
	t.Helper()

	signer, err := linksign.New("test-link-secret", "https://app.example")
	require.NoError(t, err)
	return signer
}

// captureNotifier records every notification for assertions.
type captureNotifier struct {
	mu     sync.Mutex
	events []InviteNotification
}

func (c *captureNotifier) InviteCreated(_ context.Context, n InviteNotification) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, n)
}

func (c *captureNotifier) all() []InviteNotification {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]InviteNotification(nil), c.events...)
}

type testEnv struct {
	store       *sqlite.Store
	registry    *roles.Registry
	notifier    *captureNotifier
	invites     *InviteService
	memberships *MembershipService
	tenants     *TenantService
	users       *UserService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	s := newTestStore(t)
	reg := newTestRegistry(t)
	notifier := &captureNotifier{}

	env := &testEnv{
		store:    s,
		registry: reg,
		notifier: notifier,
		invites: &InviteService{
			Store:    s,
			Roles:    reg,
			Signer:   newTestSigner(t),
			Notifier: notifier,
			Config: InviteConfig{
				TTL:            7 * 24 * time.Hour,
				GenericLinkTTL: 30 * 24 * time.Hour,
			},
		},
		memberships: &MembershipService{Store: s, Roles: reg},
		tenants:     &TenantService{Store: s, Roles: reg, DefaultStatus: "active"},
		users:       &UserService{Store: s},
	}
	return env
}

func (e *testEnv) seedUser(t *testing.T, email, name string) domain.User {
	t.Helper()

	u, err := e.users.Upsert(context.Background(), idx.New().String(), email, name)
	require.NoError(t, err)
	return u
}

func (e *testEnv) seedTenant(t *testing.T, slug string, owner domain.User) domain.Tenant {
	t.Helper()

	tn, err := e.tenants.Create(context.Background(), "Tenant "+slug, slug, owner.ID)
	require.NoError(t, err)
	return tn
}
