package store

import (
	"context"
	"errors"
	"time"

	"github.com/crewlane/memberd/internal/member/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite today,
// postgres later) implement this. It exposes sub-repositories to keep
// concerns tidy and testable, and to stop callers from accidentally opening
// transactions within transactions.
type Store interface {
	Users() Users
	Tenants() Tenants
	Memberships() Memberships
	Invites() Invites

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction. If fn returns an error the
	// transaction is rolled back, otherwise it is committed. Prefer this
	// over Tx for multi-step operations (invite create, accept).
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. Same repos plus Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	// GetUserByID returns a directory record by id.
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByEmail looks up by normalized (lower-cased) email.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// UpsertUser inserts or refreshes a directory record pushed by the
	// external auth system. Email is stored lower-cased.
	UpsertUser(ctx context.Context, u domain.User) error

	// DeleteUser removes a directory record. Memberships cascade per schema.
	DeleteUser(ctx context.Context, id string) error
}

type Tenants interface {
	// GetTenantByID fetches a tenant by id.
	GetTenantByID(ctx context.Context, id string) (domain.Tenant, error)

	// GetTenantBySlug fetches a tenant by its unique slug.
	GetTenantBySlug(ctx context.Context, slug string) (domain.Tenant, error)

	// GetTenantByGenericToken resolves a tenant from its join-link token.
	GetTenantByGenericToken(ctx context.Context, token string) (domain.Tenant, error)

	// CreateTenant inserts a new tenant (id is ULID, slug must be unique).
	CreateTenant(ctx context.Context, t domain.Tenant) error

	// UpdateTenantProfile mutates name and bumps updated_at.
	UpdateTenantProfile(ctx context.Context, tenantID, name string) error

	// SetGenericInviteToken replaces the join-link token. nil clears it.
	SetGenericInviteToken(ctx context.Context, tenantID string, token *string) error
}

type Memberships interface {
	// GetMembership returns the membership for (tenantID, userID).
	GetMembership(ctx context.Context, tenantID, userID string) (domain.Membership, error)

	// CreateMembership attaches a user to a tenant with a role.
	CreateMembership(ctx context.Context, m domain.Membership) error

	// UpdateMembershipRole changes the role of an existing membership.
	UpdateMembershipRole(ctx context.Context, tenantID, userID, role string) error

	// DeleteMembership detaches a user from a tenant.
	DeleteMembership(ctx context.Context, tenantID, userID string) error

	// ListMembers returns the tenant's memberships joined with directory
	// records, unordered. Callers sort by role priority in memory.
	ListMembers(ctx context.Context, tenantID string) ([]domain.Member, error)
}

type Invites interface {
	// CreateInvite writes a new invite after deleting any lapsed (expired,
	// never accepted) rows for the same (tenant, email). A still-pending row
	// for that pair surfaces as ErrAlreadyExists.
	CreateInvite(ctx context.Context, inv domain.Invite) error

	// GetInviteByID fetches an invite regardless of state.
	GetInviteByID(ctx context.Context, id string) (domain.Invite, error)

	// GetPendingInviteByToken returns the invite for a token only when it is
	// still pending at `now`. Unknown, accepted and expired tokens are all
	// ErrNotFound; callers must not be able to distinguish them.
	GetPendingInviteByToken(ctx context.Context, token string, now time.Time) (domain.Invite, error)

	// MarkInviteAccepted stamps accepted_at. One-way: a row that is already
	// accepted or has expired is not updated and reports ErrNotFound, which
	// is what makes a second concurrent accept fail closed.
	MarkInviteAccepted(ctx context.Context, id string, at time.Time) error

	// ExtendInviteExpiry pushes expires_at forward on a pending invite.
	// The token is left untouched.
	ExtendInviteExpiry(ctx context.Context, id string, until time.Time) error

	// ListPendingInvites returns the tenant's pending invites, newest first.
	ListPendingInvites(ctx context.Context, tenantID string, now time.Time) ([]domain.Invite, error)

	// DeleteInvite removes an invite outright (cancellation).
	DeleteInvite(ctx context.Context, id string) error

	// DeleteLapsedInvites removes rows that expired without being accepted.
	// Housekeeping only; pendingness stays a derived predicate either way.
	DeleteLapsedInvites(ctx context.Context, now time.Time) (int64, error)
}
