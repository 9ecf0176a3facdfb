package service

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"

	"github.com/crewlane/memberd/internal/member/domain"
	"github.com/crewlane/memberd/internal/member/roles"
	"github.com/crewlane/memberd/internal/member/store"
	"github.com/crewlane/memberd/pkg/slogx"
)

var (
	ErrUnknownRole    = errors.New("unknown role")
	ErrOwnerImmutable = errors.New("owner membership cannot be changed")
	ErrMemberNotFound = errors.New("member not found")
)

// MembershipService reconciles who belongs to a tenant and with what role.
// The owner role is terminal here: it is granted only when a tenant is
// created, and nothing in this service can grant, revoke or reassign it.
type MembershipService struct {
	Store store.Store
	Roles *roles.Registry
}

// Sync idempotently attaches a user to a tenant with the given role. An
// existing membership is left untouched, whatever role it carries; repeated
// reconciliation must not flap roles.
func (s *MembershipService) Sync(ctx context.Context, tenantID, userID, role string) error {
	log := slogx.FromContext(ctx)

	// 1. Validate the role against the registry.
	if !s.Roles.Valid(role) {
		log.Warn("membership sync with unknown role",
			slog.String("tenant_id", tenantID),
			slog.String("role", role),
		)
		return ErrUnknownRole
	}

	// 2. Attach; an existing membership makes this a no-op.
	err := s.Store.Memberships().CreateMembership(ctx, domain.Membership{
		TenantID: tenantID,
		UserID:   userID,
		Role:     role,
	})
	if errors.Is(err, store.ErrAlreadyExists) {
		return nil
	}
	if err != nil {
		log.Error("failed to create membership", slog.Any("error", err))
		return err
	}

	log.Info("membership created",
		slog.String("tenant_id", tenantID),
		slog.String("user_id", userID),
		slog.String("role", role),
	)
	return nil
}

// AlreadyMember reports whether the user currently belongs to the tenant.
func (s *MembershipService) AlreadyMember(ctx context.Context, tenantID, userID string) (bool, error) {
	_, err := s.Store.Memberships().GetMembership(ctx, tenantID, userID)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ChangeRole moves an existing member to a different role. The owner is
// untouchable in both directions: the owner's role cannot be changed and no
// one can be promoted into the owner role.
func (s *MembershipService) ChangeRole(ctx context.Context, tenantID, userID, role string) error {
	log := slogx.FromContext(ctx)

	// 1. Validate the requested role.
	if !s.Roles.Valid(role) {
		return ErrUnknownRole
	}
	if role == s.Roles.OwnerRole() {
		log.Warn("attempted promotion into owner role",
			slog.String("tenant_id", tenantID),
			slog.String("user_id", userID),
		)
		return ErrOwnerImmutable
	}

	// 2. Load the membership and refuse to touch the owner.
	m, err := s.Store.Memberships().GetMembership(ctx, tenantID, userID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrMemberNotFound
	}
	if err != nil {
		return err
	}
	if m.Role == s.Roles.OwnerRole() {
		log.Warn("attempted role change on tenant owner",
			slog.String("tenant_id", tenantID),
			slog.String("user_id", userID),
		)
		return ErrOwnerImmutable
	}

	// 3. Apply.
	if err := s.Store.Memberships().UpdateMembershipRole(ctx, tenantID, userID, role); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrMemberNotFound
		}
		log.Error("failed to update membership role", slog.Any("error", err))
		return err
	}

	log.Info("membership role changed",
		slog.String("tenant_id", tenantID),
		slog.String("user_id", userID),
		slog.String("role", role),
	)
	return nil
}

// Remove detaches a member from the tenant. The owner cannot be removed.
func (s *MembershipService) Remove(ctx context.Context, tenantID, userID string) error {
	log := slogx.FromContext(ctx)

	m, err := s.Store.Memberships().GetMembership(ctx, tenantID, userID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrMemberNotFound
	}
	if err != nil {
		return err
	}
	if m.Role == s.Roles.OwnerRole() {
		log.Warn("attempted removal of tenant owner",
			slog.String("tenant_id", tenantID),
			slog.String("user_id", userID),
		)
		return ErrOwnerImmutable
	}

	if err := s.Store.Memberships().DeleteMembership(ctx, tenantID, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrMemberNotFound
		}
		log.Error("failed to delete membership", slog.Any("error", err))
		return err
	}

	log.Info("membership removed",
		slog.String("tenant_id", tenantID),
		slog.String("user_id", userID),
	)
	return nil
}

// ListMembers returns the tenant's members ordered by role priority, then by
// display name. The ordering is an in-memory comparator on the registry, not
// a SQL expression, so the priority list stays a plain config value.
func (s *MembershipService) ListMembers(ctx context.Context, tenantID string) ([]domain.Member, error) {
	members, err := s.Store.Memberships().ListMembers(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(members, func(i, j int) bool {
		if c := s.Roles.Compare(members[i].Role, members[j].Role); c != 0 {
			return c < 0
		}
		return strings.ToLower(members[i].Name) < strings.ToLower(members[j].Name)
	})

	return members, nil
}
