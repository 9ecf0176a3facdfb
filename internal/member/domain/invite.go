package domain

import "time"

// Invite is a targeted invitation of an email address into a tenant.
//
// An invite is "pending" while AcceptedAt is nil and ExpiresAt is in the
// future. Both are derived predicates; nothing flips a stored status flag
// when the expiry instant passes.
type Invite struct {
	ID       string
	TenantID string
	// InviterUserID is empty when the inviting user has since been deleted.
	InviterUserID string
	Email         string // normalized to lower case on write
	Token         string
	Role          string
	ExpiresAt     time.Time
	AcceptedAt    *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Pending reports whether the invite is still acceptable at the given time.
func (i Invite) Pending(now time.Time) bool {
	return i.AcceptedAt == nil && i.ExpiresAt.After(now)
}
