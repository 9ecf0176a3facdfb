package service

import (
	"context"
	"errors"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/crewlane/memberd/internal/member/domain"
	"github.com/crewlane/memberd/internal/member/roles"
	"github.com/crewlane/memberd/internal/member/store"
	"github.com/crewlane/memberd/pkg/cryptox"
	"github.com/crewlane/memberd/pkg/idx"
	"github.com/crewlane/memberd/pkg/linksign"
	"github.com/crewlane/memberd/pkg/slogx"
)

var (
	ErrTenantNotFound         = errors.New("tenant not found")
	ErrInviteNotFound         = errors.New("invite not found")
	ErrInvalidInviteToken     = errors.New("invite token is invalid or expired")
	ErrEmailMismatch          = errors.New("invite was issued for a different email address")
	ErrAlreadyMember          = errors.New("user is already a member of this tenant")
	ErrDuplicatePendingInvite = errors.New("a pending invite already exists for this email")
	ErrUnknownUser            = errors.New("user not found in directory")
)

// Skip reasons for batch invite entries that were not created.
const (
	SkipInvalidEmail     = "invalid_email"
	SkipRoleRequired     = "role_required"
	SkipUnknownRole      = "unknown_role"
	SkipOwnerRole        = "owner_role"
	SkipAlreadyMember    = "already_member"
	SkipDuplicatePending = "duplicate_pending"
)

// InviteConfig carries the invite policy knobs.
type InviteConfig struct {
	// TTL is the lifetime of a targeted invite from creation or resend.
	TTL time.Duration
	// GenericLinkTTL is the signature lifetime of a shareable join link.
	// The underlying token only dies when it is rotated or cleared.
	GenericLinkTTL time.Duration
	// RequireRole rejects invite entries that carry no explicit role
	// instead of falling back to the default role.
	RequireRole bool
}

// InviteService owns the invitation lifecycle: batch creation with
// per-entry skip reasons, resend, cancellation, token resolution and
// acceptance.
type InviteService struct {
	Store    store.Store
	Roles    *roles.Registry
	Signer   *linksign.Signer
	Notifier Notifier
	Config   InviteConfig
}

// InviteRequest is one entry of a batch invite. Role may be empty when the
// deployment allows defaulting.
type InviteRequest struct {
	Email string
	Role  string
}

// InviteResult reports what happened to one batch entry. Skipped is empty
// when an invite was created.
type InviteResult struct {
	Email    string
	Role     string
	InviteID string
	Skipped  string
}

// Invite creates invites for a batch of email addresses. Entries that cannot
// be invited are skipped with a reason rather than failing the batch; only
// infrastructure errors abort. Each created invite emits exactly one
// InviteCreated notification, after its transaction has committed.
func (s *InviteService) Invite(ctx context.Context, tenantID, inviterUserID string, reqs []InviteRequest) ([]InviteResult, error) {
	log := slogx.FromContext(ctx)

	// 1. The tenant must exist; its name travels in the notification.
	tenant, err := s.Store.Tenants().GetTenantByID(ctx, tenantID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrTenantNotFound
		}
		return nil, err
	}

	results := make([]InviteResult, 0, len(reqs))
	for _, req := range reqs {
		res, err := s.inviteOne(ctx, tenant, inviterUserID, req)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}

	log.Info("invite batch processed",
		slog.String("tenant_id", tenantID),
		slog.Int("requested", len(reqs)),
		slog.Int("created", countCreated(results)),
	)
	return results, nil
}

func (s *InviteService) inviteOne(ctx context.Context, tenant domain.Tenant, inviterUserID string, req InviteRequest) (InviteResult, error) {
	log := slogx.FromContext(ctx)

	// 1. Normalize and validate the address.
	email, ok := normalizeEmail(req.Email)
	if !ok {
		return InviteResult{Email: req.Email, Skipped: SkipInvalidEmail}, nil
	}
	res := InviteResult{Email: email}

	// 2. Resolve the role: explicit, or the default when allowed.
	role := strings.TrimSpace(req.Role)
	switch {
	case role == "" && s.Config.RequireRole:
		res.Skipped = SkipRoleRequired
		return res, nil
	case role == "":
		role = s.Roles.DefaultRole()
	case role == s.Roles.OwnerRole():
		// The owner role is granted at tenant creation only.
		res.Skipped = SkipOwnerRole
		return res, nil
	case !s.Roles.Valid(role):
		res.Skipped = SkipUnknownRole
		return res, nil
	}
	res.Role = role

	// 3. Skip addresses that already belong to the tenant.
	member, err := s.emailIsMember(ctx, tenant.ID, email)
	if err != nil {
		return InviteResult{}, err
	}
	if member {
		res.Skipped = SkipAlreadyMember
		return res, nil
	}

	// 4. Build the invite row.
	token, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		log.Error("failed to generate invite token", slog.Any("error", err))
		return InviteResult{}, err
	}

	inv := domain.Invite{
		ID:            idx.New().String(),
		TenantID:      tenant.ID,
		InviterUserID: inviterUserID,
		Email:         email,
		Token:         token,
		Role:          role,
		ExpiresAt:     time.Now().UTC().Add(s.Config.TTL),
	}

	// 5. Create inside a transaction: the store deletes lapsed rows for the
	// pair first, and a surviving pending row surfaces as a duplicate.
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		return tx.Invites().CreateInvite(ctx, inv)
	})
	if errors.Is(err, store.ErrAlreadyExists) {
		res.Skipped = SkipDuplicatePending
		return res, nil
	}
	if err != nil {
		log.Error("failed to create invite",
			slog.String("invite_id", inv.ID),
			slog.Any("error", err),
		)
		return InviteResult{}, err
	}
	res.InviteID = inv.ID

	// 6. Notify after commit, exactly once per created invite.
	s.notify(ctx, tenant, inv, false)

	log.Debug("invite created",
		slog.String("invite_id", inv.ID),
		slog.String("tenant_id", tenant.ID),
		slog.String("role", role),
		slog.String("token_fp", cryptox.FingerprintToken(token)),
		slog.Time("expires_at", inv.ExpiresAt),
	)
	return res, nil
}

// Resend extends a pending invite's expiry from now and re-emits the
// notification. The token is deliberately left as issued, so links already
// sitting in inboxes keep working until the new expiry.
func (s *InviteService) Resend(ctx context.Context, inviteID string) (domain.Invite, error) {
	log := slogx.FromContext(ctx)

	inv, err := s.Store.Invites().GetInviteByID(ctx, inviteID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Invite{}, ErrInviteNotFound
		}
		return domain.Invite{}, err
	}
	if !inv.Pending(time.Now().UTC()) {
		return domain.Invite{}, ErrInviteNotFound
	}

	inv.ExpiresAt = time.Now().UTC().Add(s.Config.TTL)
	if err := s.Store.Invites().ExtendInviteExpiry(ctx, inv.ID, inv.ExpiresAt); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Invite{}, ErrInviteNotFound
		}
		log.Error("failed to extend invite expiry", slog.Any("error", err))
		return domain.Invite{}, err
	}

	tenant, err := s.Store.Tenants().GetTenantByID(ctx, inv.TenantID)
	if err != nil {
		return domain.Invite{}, err
	}
	s.notify(ctx, tenant, inv, true)

	log.Info("invite resent",
		slog.String("invite_id", inv.ID),
		slog.String("tenant_id", inv.TenantID),
		slog.Time("expires_at", inv.ExpiresAt),
	)
	return inv, nil
}

// Cancel removes an invite outright. Its token stops resolving immediately.
func (s *InviteService) Cancel(ctx context.Context, inviteID string) error {
	err := s.Store.Invites().DeleteInvite(ctx, inviteID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrInviteNotFound
	}
	if err != nil {
		return err
	}

	slogx.FromContext(ctx).Info("invite cancelled", slog.String("invite_id", inviteID))
	return nil
}

// ListPending returns the tenant's pending invites, newest first.
func (s *InviteService) ListPending(ctx context.Context, tenantID string) ([]domain.Invite, error) {
	return s.Store.Invites().ListPendingInvites(ctx, tenantID, time.Now().UTC())
}

// ResolvedInvite is the outcome of token resolution: either a targeted
// invite (Invite set) or a tenant's generic join link (Invite nil).
type ResolvedInvite struct {
	Tenant   domain.Tenant
	Invite   *domain.Invite
	Role     string
	Targeted bool
}

// ResolveByToken resolves an opaque token, trying targeted invites first and
// tenant join links second. Everything else is a single uniform failure;
// callers can never tell unknown, accepted and expired apart.
func (s *InviteService) ResolveByToken(ctx context.Context, token string) (ResolvedInvite, error) {
	if token == "" {
		return ResolvedInvite{}, ErrInvalidInviteToken
	}

	now := time.Now().UTC()

	// 1. Targeted invite.
	inv, err := s.Store.Invites().GetPendingInviteByToken(ctx, token, now)
	if err == nil {
		tenant, terr := s.Store.Tenants().GetTenantByID(ctx, inv.TenantID)
		if terr != nil {
			return ResolvedInvite{}, terr
		}
		return ResolvedInvite{Tenant: tenant, Invite: &inv, Role: inv.Role, Targeted: true}, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return ResolvedInvite{}, err
	}

	// 2. Generic join link.
	tenant, err := s.Store.Tenants().GetTenantByGenericToken(ctx, token)
	if err == nil {
		return ResolvedInvite{Tenant: tenant, Role: s.Roles.DefaultRole()}, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return ResolvedInvite{}, err
	}

	return ResolvedInvite{}, ErrInvalidInviteToken
}

// Accept turns a resolved invite into a membership for the authenticated
// user. Targeted invites are bound to the invited address; a logged-in user
// with a different email gets ErrEmailMismatch and must re-authenticate.
// ErrAlreadyMember is informational, nothing was changed.
func (s *InviteService) Accept(ctx context.Context, r ResolvedInvite, userID string) (domain.Membership, error) {
	log := slogx.FromContext(ctx)

	// 1. The accepting identity must exist in the directory.
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Membership{}, ErrUnknownUser
		}
		return domain.Membership{}, err
	}

	// 2. Targeted invites only admit the invited address.
	if r.Targeted && !strings.EqualFold(r.Invite.Email, user.Email) {
		log.Warn("invite accept email mismatch",
			slog.String("invite_id", r.Invite.ID),
			slog.String("tenant_id", r.Tenant.ID),
			slog.String("user_id", userID),
		)
		return domain.Membership{}, ErrEmailMismatch
	}

	// 3. An existing member has nothing to accept.
	already, err := s.alreadyMember(ctx, r.Tenant.ID, userID)
	if err != nil {
		return domain.Membership{}, err
	}
	if already {
		return domain.Membership{}, ErrAlreadyMember
	}

	// 4. Attach and consume atomically. When two requests race on the same
	// targeted invite, the second one finds no pending row to stamp and the
	// whole transaction rolls back.
	m := domain.Membership{
		TenantID: r.Tenant.ID,
		UserID:   userID,
		Role:     r.Role,
	}
	now := time.Now().UTC()

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Memberships().CreateMembership(ctx, m); err != nil {
			return err
		}
		if r.Targeted {
			return tx.Invites().MarkInviteAccepted(ctx, r.Invite.ID, now)
		}
		return nil
	})
	if errors.Is(err, store.ErrAlreadyExists) {
		return domain.Membership{}, ErrAlreadyMember
	}
	if errors.Is(err, store.ErrNotFound) {
		return domain.Membership{}, ErrInvalidInviteToken
	}
	if err != nil {
		log.Error("failed to accept invite", slog.Any("error", err))
		return domain.Membership{}, err
	}

	log.Info("invite accepted",
		slog.String("tenant_id", r.Tenant.ID),
		slog.String("user_id", userID),
		slog.String("role", r.Role),
		slog.Bool("targeted", r.Targeted),
	)
	return m, nil
}

// AcceptURL builds the signed acceptance link for a token. Targeted links
// carry the invite's own expiry so neither the signature nor the row
// outlives the other; generic links get the configured signature lifetime.
func (s *InviteService) AcceptURL(token string, expiresAt time.Time) (string, error) {
	return s.Signer.Sign("/invite/"+token+"/accept", nil, expiresAt)
}

// GenericAcceptURL signs a join-link URL with the configured lifetime.
func (s *InviteService) GenericAcceptURL(token string) (string, error) {
	return s.AcceptURL(token, time.Now().UTC().Add(s.Config.GenericLinkTTL))
}

func (s *InviteService) notify(ctx context.Context, tenant domain.Tenant, inv domain.Invite, resend bool) {
	if s.Notifier == nil {
		return
	}

	url, err := s.AcceptURL(inv.Token, inv.ExpiresAt)
	if err != nil {
		slogx.FromContext(ctx).Error("failed to sign accept url",
			slog.String("invite_id", inv.ID),
			slog.Any("error", err),
		)
		return
	}

	s.Notifier.InviteCreated(ctx, InviteNotification{
		InviteID:   inv.ID,
		TenantID:   tenant.ID,
		TenantName: tenant.Name,
		Email:      inv.Email,
		Role:       inv.Role,
		AcceptURL:  url,
		ExpiresAt:  inv.ExpiresAt,
		Resend:     resend,
	})
}

func (s *InviteService) emailIsMember(ctx context.Context, tenantID, email string) (bool, error) {
	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return s.alreadyMember(ctx, tenantID, user.ID)
}

func (s *InviteService) alreadyMember(ctx context.Context, tenantID, userID string) (bool, error) {
	_, err := s.Store.Memberships().GetMembership(ctx, tenantID, userID)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func normalizeEmail(s string) (string, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "", false
	}
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s {
		return "", false
	}
	return s, true
}

func countCreated(results []InviteResult) int {
	n := 0
	for _, r := range results {
		if r.Skipped == "" {
			n++
		}
	}
	return n
}
