package service

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strings"

	"github.com/crewlane/memberd/internal/member/domain"
	"github.com/crewlane/memberd/internal/member/roles"
	"github.com/crewlane/memberd/internal/member/store"
	"github.com/crewlane/memberd/pkg/cryptox"
	"github.com/crewlane/memberd/pkg/idx"
	"github.com/crewlane/memberd/pkg/slogx"
)

var (
	ErrInvalidTenantRequest = errors.New("invalid tenant request")
	ErrSlugTaken            = errors.New("tenant slug already taken")
)

var slugRe = regexp.MustCompile(`^[a-z0-9](?:[a-z0-9-]{0,61}[a-z0-9])?$`)

// TenantService owns tenant registration, profile updates and the tenant's
// shareable join link.
type TenantService struct {
	Store         store.Store
	Roles         *roles.Registry
	DefaultStatus string
}

// Create registers a tenant and attaches the creator as its owner, in one
// transaction. There is never a window in which a tenant exists without its
// owner membership.
func (s *TenantService) Create(ctx context.Context, name, slug, ownerUserID string) (domain.Tenant, error) {
	log := slogx.FromContext(ctx)

	// 1. Validate input.
	name = strings.TrimSpace(name)
	slug = strings.ToLower(strings.TrimSpace(slug))
	if name == "" || ownerUserID == "" || !slugRe.MatchString(slug) {
		return domain.Tenant{}, ErrInvalidTenantRequest
	}

	// 2. The creator must exist in the directory.
	if _, err := s.Store.Users().GetUserByID(ctx, ownerUserID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Tenant{}, ErrUnknownUser
		}
		return domain.Tenant{}, err
	}

	tenant := domain.Tenant{
		ID:          idx.New().String(),
		Name:        name,
		Slug:        slug,
		OwnerUserID: ownerUserID,
		Status:      s.DefaultStatus,
	}

	// 3. Create tenant + owner membership atomically.
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Tenants().CreateTenant(ctx, tenant); err != nil {
			return err
		}
		return tx.Memberships().CreateMembership(ctx, domain.Membership{
			TenantID: tenant.ID,
			UserID:   ownerUserID,
			Role:     s.Roles.OwnerRole(),
		})
	})
	if errors.Is(err, store.ErrAlreadyExists) {
		return domain.Tenant{}, ErrSlugTaken
	}
	if err != nil {
		log.Error("failed to create tenant", slog.Any("error", err))
		return domain.Tenant{}, err
	}

	log.Info("tenant created",
		slog.String("tenant_id", tenant.ID),
		slog.String("slug", slug),
		slog.String("owner_user_id", ownerUserID),
	)
	return tenant, nil
}

// GetBySlug fetches a tenant by its slug.
func (s *TenantService) GetBySlug(ctx context.Context, slug string) (domain.Tenant, error) {
	t, err := s.Store.Tenants().GetTenantBySlug(ctx, strings.ToLower(slug))
	if errors.Is(err, store.ErrNotFound) {
		return domain.Tenant{}, ErrTenantNotFound
	}
	return t, err
}

// Get fetches a tenant by id.
func (s *TenantService) Get(ctx context.Context, tenantID string) (domain.Tenant, error) {
	t, err := s.Store.Tenants().GetTenantByID(ctx, tenantID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Tenant{}, ErrTenantNotFound
	}
	return t, err
}

// UpdateProfile renames a tenant.
func (s *TenantService) UpdateProfile(ctx context.Context, tenantID, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrInvalidTenantRequest
	}

	err := s.Store.Tenants().UpdateTenantProfile(ctx, tenantID, name)
	if errors.Is(err, store.ErrNotFound) {
		return ErrTenantNotFound
	}
	return err
}

// EnsureGenericInviteToken returns the tenant's join-link token, minting one
// on first use. Safe to call repeatedly.
func (s *TenantService) EnsureGenericInviteToken(ctx context.Context, tenantID string) (string, error) {
	tenant, err := s.Get(ctx, tenantID)
	if err != nil {
		return "", err
	}
	if tenant.GenericInviteToken != nil {
		return *tenant.GenericInviteToken, nil
	}
	return s.RotateGenericInviteToken(ctx, tenantID)
}

// RotateGenericInviteToken replaces the join-link token. Links minted from
// the old token stop resolving immediately.
func (s *TenantService) RotateGenericInviteToken(ctx context.Context, tenantID string) (string, error) {
	log := slogx.FromContext(ctx)

	token, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		log.Error("failed to generate join-link token", slog.Any("error", err))
		return "", err
	}

	if err := s.Store.Tenants().SetGenericInviteToken(ctx, tenantID, &token); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrTenantNotFound
		}
		return "", err
	}

	log.Info("join-link token rotated",
		slog.String("tenant_id", tenantID),
		slog.String("token_fp", cryptox.FingerprintToken(token)),
	)
	return token, nil
}

// ClearGenericInviteToken revokes the tenant's join link entirely.
func (s *TenantService) ClearGenericInviteToken(ctx context.Context, tenantID string) error {
	if err := s.Store.Tenants().SetGenericInviteToken(ctx, tenantID, nil); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrTenantNotFound
		}
		return err
	}

	slogx.FromContext(ctx).Info("join-link token cleared", slog.String("tenant_id", tenantID))
	return nil
}
