package domain

import "time"

// Membership links a user to a tenant with exactly one role. The pair
// (TenantID, UserID) is the identity; there is no surrogate id.
type Membership struct {
	TenantID  string
	UserID    string
	Role      string
	CreatedAt time.Time
}

// Member is a membership joined with the user's directory record, as the
// member listing returns it.
type Member struct {
	Membership
	Email string
	Name  string
}
