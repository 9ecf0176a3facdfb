package membersdk

import "time"

// HealthChecks reports the state of critical dependencies.
type HealthChecks struct {
	Database string `json:"database"`
}

// HealthResponse is returned by /livez and /readyz.
type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime"`
	Version string        `json:"version"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}

// UpsertUserRequest is the directory push from the external auth system.
type UpsertUserRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// UserRecord is a directory mirror entry.
type UserRecord struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateTenantRequest registers a tenant; the authenticated caller becomes
// its owner.
type CreateTenantRequest struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// UpdateTenantRequest renames a tenant.
type UpdateTenantRequest struct {
	Name string `json:"name"`
}

// TenantInfo is the public shape of a tenant.
type TenantInfo struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Status      string    `json:"status"`
	OwnerUserID string    `json:"owner_user_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// RoleOption is one entry of the deployment's role registry.
type RoleOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
	Color string `json:"color,omitempty"`
}

// ListRolesResponse describes the closed role set.
type ListRolesResponse struct {
	Roles       []RoleOption `json:"roles"`
	DefaultRole string       `json:"default_role"`
	OwnerRole   string       `json:"owner_role"`
}

// MemberInfo is one row of a tenant's member listing.
type MemberInfo struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	RoleLabel string    `json:"role_label"`
	RoleColor string    `json:"role_color,omitempty"`
	JoinedAt  time.Time `json:"joined_at"`
}

// ListMembersResponse is ordered by role priority, then name.
type ListMembersResponse struct {
	Members []MemberInfo `json:"members"`
}

// ChangeRoleRequest moves a member to a different role.
type ChangeRoleRequest struct {
	Role string `json:"role"`
}

// InviteEntry is one address in a batch invite request. Role may be empty
// when the deployment allows defaulting.
type InviteEntry struct {
	Email string `json:"email"`
	Role  string `json:"role,omitempty"`
}

// CreateInvitesRequest invites a batch of addresses into a tenant.
type CreateInvitesRequest struct {
	Invites []InviteEntry `json:"invites"`
}

// InviteOutcome reports per-entry results; Skipped is empty for created
// invites and a reason code otherwise.
type InviteOutcome struct {
	Email    string `json:"email"`
	Role     string `json:"role,omitempty"`
	InviteID string `json:"invite_id,omitempty"`
	Skipped  string `json:"skipped,omitempty"`
}

// CreateInvitesResponse mirrors the request order.
type CreateInvitesResponse struct {
	Results []InviteOutcome `json:"results"`
}

// PendingInvite is one row of a tenant's pending invitations. The raw token
// never appears here.
type PendingInvite struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	Role          string    `json:"role"`
	InviterUserID string    `json:"inviter_user_id,omitempty"`
	ExpiresAt     time.Time `json:"expires_at"`
	CreatedAt     time.Time `json:"created_at"`
}

// ListInvitesResponse lists pending invitations, newest first.
type ListInvitesResponse struct {
	Invites []PendingInvite `json:"invites"`
}

// InviteLinkResponse carries a signed acceptance URL.
type InviteLinkResponse struct {
	AcceptURL string    `json:"accept_url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Accept endpoint status values.
const (
	AcceptStatusAccepted      = "accepted"
	AcceptStatusAlreadyMember = "already_member"
	AcceptStatusLoginRequired = "login_required"
)

// AcceptResponse is the outcome of GET /invite/{token}/accept.
type AcceptResponse struct {
	Status     string `json:"status"`
	TenantID   string `json:"tenant_id,omitempty"`
	TenantSlug string `json:"tenant_slug,omitempty"`
	TenantName string `json:"tenant_name,omitempty"`
	Role       string `json:"role,omitempty"`
	RedirectTo string `json:"redirect_to,omitempty"`
	LoginURL   string `json:"login_url,omitempty"`
}

// ResumeResponse reports what a deferred acceptance did after login.
type ResumeResponse struct {
	Accepted   bool   `json:"accepted"`
	TenantID   string `json:"tenant_id,omitempty"`
	TenantSlug string `json:"tenant_slug,omitempty"`
	RedirectTo string `json:"redirect_to,omitempty"`
	Warning    string `json:"warning,omitempty"`
}
