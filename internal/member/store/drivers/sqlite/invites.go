package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/crewlane/memberd/internal/member/domain"
)

type invitesRepo struct {
	db dbtx
}

const inviteColumns = `id, tenant_id, inviter_user_id, email, token, role, expires_at, accepted_at, created_at, updated_at`

func scanInvite(row *sql.Row) (domain.Invite, error) {
	var (
		inv      domain.Invite
		inviter  sql.NullString
		accepted sql.NullTime
	)
	if err := row.Scan(&inv.ID, &inv.TenantID, &inviter, &inv.Email, &inv.Token,
		&inv.Role, &inv.ExpiresAt, &accepted, &inv.CreatedAt, &inv.UpdatedAt); err != nil {
		return domain.Invite{}, mapNotFound(err)
	}
	if inviter.Valid {
		inv.InviterUserID = inviter.String
	}
	if accepted.Valid {
		at := accepted.Time
		inv.AcceptedAt = &at
	}
	return inv, nil
}

// CreateInvite deletes lapsed pending rows for the (tenant, email) pair and
// inserts the new invite. Run it inside WithTx so the two statements are
// atomic; the partial unique index arbitrates concurrent creators and the
// loser comes back as ErrAlreadyExists.
func (r *invitesRepo) CreateInvite(ctx context.Context, inv domain.Invite) error {
	now := time.Now().UTC()
	email := strings.ToLower(inv.Email)

	if _, err := r.db.ExecContext(ctx, `
		DELETE FROM tenant_invites
		WHERE tenant_id = ? AND email = ? AND accepted_at IS NULL AND expires_at <= ?`,
		inv.TenantID, email, now); err != nil {
		return err
	}

	var inviter sql.NullString
	if inv.InviterUserID != "" {
		inviter = sql.NullString{String: inv.InviterUserID, Valid: true}
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO tenant_invites (id, tenant_id, inviter_user_id, email, token, role, expires_at, accepted_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, NULL, ?, ?)`,
		inv.ID, inv.TenantID, inviter, email, inv.Token, inv.Role, inv.ExpiresAt.UTC(), now, now)

	return mapConstraint(err)
}

func (r *invitesRepo) GetInviteByID(ctx context.Context, id string) (domain.Invite, error) {
	return scanInvite(r.db.QueryRowContext(ctx,
		`SELECT `+inviteColumns+` FROM tenant_invites WHERE id = ?`, id))
}

// GetPendingInviteByToken matches only rows that are still pending at `now`.
// Unknown, accepted and expired tokens are indistinguishable to the caller.
func (r *invitesRepo) GetPendingInviteByToken(ctx context.Context, token string, now time.Time) (domain.Invite, error) {
	return scanInvite(r.db.QueryRowContext(ctx, `
		SELECT `+inviteColumns+` FROM tenant_invites
		WHERE token = ? AND accepted_at IS NULL AND expires_at > ?`,
		token, now.UTC()))
}

// MarkInviteAccepted is one-way: the guard re-checks pendingness so a row
// accepted by a concurrent request (or expired in the meantime) reports
// ErrNotFound instead of being stamped twice.
func (r *invitesRepo) MarkInviteAccepted(ctx context.Context, id string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE tenant_invites SET accepted_at = ?, updated_at = ?
		WHERE id = ? AND accepted_at IS NULL AND expires_at > ?`,
		at.UTC(), at.UTC(), id, at.UTC())
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *invitesRepo) ExtendInviteExpiry(ctx context.Context, id string, until time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE tenant_invites SET expires_at = ?, updated_at = ?
		WHERE id = ? AND accepted_at IS NULL`,
		until.UTC(), time.Now().UTC(), id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *invitesRepo) ListPendingInvites(ctx context.Context, tenantID string, now time.Time) ([]domain.Invite, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+inviteColumns+` FROM tenant_invites
		WHERE tenant_id = ? AND accepted_at IS NULL AND expires_at > ?
		ORDER BY created_at DESC, id DESC`,
		tenantID, now.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invites []domain.Invite
	for rows.Next() {
		var (
			inv      domain.Invite
			inviter  sql.NullString
			accepted sql.NullTime
		)
		if err := rows.Scan(&inv.ID, &inv.TenantID, &inviter, &inv.Email, &inv.Token,
			&inv.Role, &inv.ExpiresAt, &accepted, &inv.CreatedAt, &inv.UpdatedAt); err != nil {
			return nil, err
		}
		if inviter.Valid {
			inv.InviterUserID = inviter.String
		}
		if accepted.Valid {
			at := accepted.Time
			inv.AcceptedAt = &at
		}
		invites = append(invites, inv)
	}
	return invites, rows.Err()
}

func (r *invitesRepo) DeleteInvite(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tenant_invites WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *invitesRepo) DeleteLapsedInvites(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM tenant_invites WHERE accepted_at IS NULL AND expires_at <= ?`,
		now.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
