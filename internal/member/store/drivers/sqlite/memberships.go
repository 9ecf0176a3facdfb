package sqlite

import (
	"context"
	"time"

	"github.com/crewlane/memberd/internal/member/domain"
)

type membershipsRepo struct {
	db dbtx
}

func (r *membershipsRepo) GetMembership(ctx context.Context, tenantID, userID string) (domain.Membership, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT tenant_id, user_id, role, created_at
		FROM memberships
		WHERE tenant_id = ? AND user_id = ?`,
		tenantID, userID)

	var m domain.Membership
	if err := row.Scan(&m.TenantID, &m.UserID, &m.Role, &m.CreatedAt); err != nil {
		return domain.Membership{}, mapNotFound(err)
	}
	return m, nil
}

func (r *membershipsRepo) CreateMembership(ctx context.Context, m domain.Membership) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO memberships (tenant_id, user_id, role, created_at)
		VALUES (?, ?, ?, ?)`,
		m.TenantID, m.UserID, m.Role, time.Now().UTC())

	return mapConstraint(err)
}

func (r *membershipsRepo) UpdateMembershipRole(ctx context.Context, tenantID, userID, role string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE memberships SET role = ?
		WHERE tenant_id = ? AND user_id = ?`,
		role, tenantID, userID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *membershipsRepo) DeleteMembership(ctx context.Context, tenantID, userID string) error {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM memberships WHERE tenant_id = ? AND user_id = ?`,
		tenantID, userID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *membershipsRepo) ListMembers(ctx context.Context, tenantID string) ([]domain.Member, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT m.tenant_id, m.user_id, m.role, m.created_at, u.email, u.name
		FROM memberships m
		JOIN users u ON u.id = m.user_id
		WHERE m.tenant_id = ?`,
		tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []domain.Member
	for rows.Next() {
		var m domain.Member
		if err := rows.Scan(&m.TenantID, &m.UserID, &m.Role, &m.CreatedAt, &m.Email, &m.Name); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}
