package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/crewlane/memberd/internal/member/domain"
	"github.com/crewlane/memberd/internal/member/store"
)

type tenantsRepo struct {
	db dbtx
}

const tenantColumns = `id, name, slug, owner_user_id, status, generic_invite_token, created_at, updated_at`

func scanTenant(row *sql.Row) (domain.Tenant, error) {
	var (
		t     domain.Tenant
		token sql.NullString
	)
	if err := row.Scan(&t.ID, &t.Name, &t.Slug, &t.OwnerUserID, &t.Status,
		&token, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return domain.Tenant{}, mapNotFound(err)
	}
	if token.Valid {
		t.GenericInviteToken = &token.String
	}
	return t, nil
}

func (r *tenantsRepo) GetTenantByID(ctx context.Context, id string) (domain.Tenant, error) {
	return scanTenant(r.db.QueryRowContext(ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE id = ?`, id))
}

func (r *tenantsRepo) GetTenantBySlug(ctx context.Context, slug string) (domain.Tenant, error) {
	return scanTenant(r.db.QueryRowContext(ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE slug = ?`, slug))
}

func (r *tenantsRepo) GetTenantByGenericToken(ctx context.Context, token string) (domain.Tenant, error) {
	return scanTenant(r.db.QueryRowContext(ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE generic_invite_token = ?`, token))
}

func (r *tenantsRepo) CreateTenant(ctx context.Context, t domain.Tenant) error {
	now := time.Now().UTC()

	var token sql.NullString
	if t.GenericInviteToken != nil {
		token = sql.NullString{String: *t.GenericInviteToken, Valid: true}
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO tenants (id, name, slug, owner_user_id, status, generic_invite_token, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Name, t.Slug, t.OwnerUserID, t.Status, token, now, now)

	return mapConstraint(err)
}

func (r *tenantsRepo) UpdateTenantProfile(ctx context.Context, tenantID, name string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE tenants SET name = ?, updated_at = ? WHERE id = ?`,
		name, time.Now().UTC(), tenantID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *tenantsRepo) SetGenericInviteToken(ctx context.Context, tenantID string, token *string) error {
	var nt sql.NullString
	if token != nil {
		nt = sql.NullString{String: *token, Valid: true}
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE tenants SET generic_invite_token = ?, updated_at = ? WHERE id = ?`,
		nt, time.Now().UTC(), tenantID)
	if err != nil {
		return mapConstraint(err)
	}
	return requireRow(res)
}

// requireRow maps a zero-row update/delete to ErrNotFound.
func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
