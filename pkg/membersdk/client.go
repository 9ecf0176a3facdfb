package membersdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"
)

// Client is a client for the memberd service. Token is the bearer access
// token from the external auth system; leave it empty for unauthenticated
// calls.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Token      string
}

// New creates a client for the given base URL. The client keeps cookies and
// does not follow redirects: the accept endpoint answers a login deferral
// with a 302 plus a session cookie, and the caller needs to see both.
func New(baseURL string) *Client {
	jar, _ := cookiejar.New(nil)
	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
			Jar:     jar,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// WithToken returns a copy of the client that authenticates as the given
// bearer token.
func (c *Client) WithToken(token string) *Client {
	clone := *c
	clone.Token = token
	return &clone
}

func (c *Client) do(ctx context.Context, method, path string, reqBody, out any, expectedStatus int) error {
	var body io.Reader
	if reqBody != nil {
		buf, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != expectedStatus {
		return parseErrorResponse(resp, raw)
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// Livez checks the liveness endpoint.
func (c *Client) Livez(ctx context.Context) (HealthResponse, error) {
	var out HealthResponse
	err := c.do(ctx, http.MethodGet, "/livez", nil, &out, http.StatusOK)
	return out, err
}

// Readyz checks the readiness endpoint.
func (c *Client) Readyz(ctx context.Context) (HealthResponse, error) {
	var out HealthResponse
	err := c.do(ctx, http.MethodGet, "/readyz", nil, &out, http.StatusOK)
	return out, err
}

// UpsertUser pushes a directory record. The bearer token's subject must be
// the same user id.
func (c *Client) UpsertUser(ctx context.Context, userID string, req UpsertUserRequest) (UserRecord, error) {
	var out UserRecord
	err := c.do(ctx, http.MethodPut, "/v1/users/"+url.PathEscape(userID), req, &out, http.StatusOK)
	return out, err
}

// CreateTenant registers a tenant owned by the authenticated user.
func (c *Client) CreateTenant(ctx context.Context, req CreateTenantRequest) (TenantInfo, error) {
	var out TenantInfo
	err := c.do(ctx, http.MethodPost, "/v1/tenants", req, &out, http.StatusCreated)
	return out, err
}

// GetTenant fetches a tenant the caller belongs to.
func (c *Client) GetTenant(ctx context.Context, tenantID string) (TenantInfo, error) {
	var out TenantInfo
	err := c.do(ctx, http.MethodGet, "/v1/tenants/"+url.PathEscape(tenantID), nil, &out, http.StatusOK)
	return out, err
}

// UpdateTenant renames a tenant.
func (c *Client) UpdateTenant(ctx context.Context, tenantID string, req UpdateTenantRequest) (TenantInfo, error) {
	var out TenantInfo
	err := c.do(ctx, http.MethodPatch, "/v1/tenants/"+url.PathEscape(tenantID), req, &out, http.StatusOK)
	return out, err
}

// Roles returns the deployment's role registry.
func (c *Client) Roles(ctx context.Context) (ListRolesResponse, error) {
	var out ListRolesResponse
	err := c.do(ctx, http.MethodGet, "/v1/roles", nil, &out, http.StatusOK)
	return out, err
}

// ListMembers returns the tenant's members ordered by role priority.
func (c *Client) ListMembers(ctx context.Context, tenantID string) (ListMembersResponse, error) {
	var out ListMembersResponse
	err := c.do(ctx, http.MethodGet, "/v1/tenants/"+url.PathEscape(tenantID)+"/members", nil, &out, http.StatusOK)
	return out, err
}

// ChangeMemberRole moves a member to a different role.
func (c *Client) ChangeMemberRole(ctx context.Context, tenantID, userID, role string) error {
	return c.do(ctx, http.MethodPut,
		"/v1/tenants/"+url.PathEscape(tenantID)+"/members/"+url.PathEscape(userID),
		ChangeRoleRequest{Role: role}, nil, http.StatusNoContent)
}

// RemoveMember detaches a member from the tenant.
func (c *Client) RemoveMember(ctx context.Context, tenantID, userID string) error {
	return c.do(ctx, http.MethodDelete,
		"/v1/tenants/"+url.PathEscape(tenantID)+"/members/"+url.PathEscape(userID),
		nil, nil, http.StatusNoContent)
}

// CreateInvites invites a batch of addresses into the tenant.
func (c *Client) CreateInvites(ctx context.Context, tenantID string, req CreateInvitesRequest) (CreateInvitesResponse, error) {
	var out CreateInvitesResponse
	err := c.do(ctx, http.MethodPost,
		"/v1/tenants/"+url.PathEscape(tenantID)+"/invites", req, &out, http.StatusOK)
	return out, err
}

// ListInvites returns the tenant's pending invitations.
func (c *Client) ListInvites(ctx context.Context, tenantID string) (ListInvitesResponse, error) {
	var out ListInvitesResponse
	err := c.do(ctx, http.MethodGet,
		"/v1/tenants/"+url.PathEscape(tenantID)+"/invites", nil, &out, http.StatusOK)
	return out, err
}

// ResendInvite extends a pending invite and re-emits its notification.
func (c *Client) ResendInvite(ctx context.Context, tenantID, inviteID string) (PendingInvite, error) {
	var out PendingInvite
	err := c.do(ctx, http.MethodPost,
		"/v1/tenants/"+url.PathEscape(tenantID)+"/invites/"+url.PathEscape(inviteID)+"/resend",
		nil, &out, http.StatusOK)
	return out, err
}

// CancelInvite deletes a pending invite.
func (c *Client) CancelInvite(ctx context.Context, tenantID, inviteID string) error {
	return c.do(ctx, http.MethodDelete,
		"/v1/tenants/"+url.PathEscape(tenantID)+"/invites/"+url.PathEscape(inviteID),
		nil, nil, http.StatusNoContent)
}

// InviteLink returns the tenant's shareable join link, minting the token on
// first use.
func (c *Client) InviteLink(ctx context.Context, tenantID string) (InviteLinkResponse, error) {
	var out InviteLinkResponse
	err := c.do(ctx, http.MethodGet,
		"/v1/tenants/"+url.PathEscape(tenantID)+"/invite-link", nil, &out, http.StatusOK)
	return out, err
}

// RotateInviteLink replaces the join-link token.
func (c *Client) RotateInviteLink(ctx context.Context, tenantID string) (InviteLinkResponse, error) {
	var out InviteLinkResponse
	err := c.do(ctx, http.MethodPost,
		"/v1/tenants/"+url.PathEscape(tenantID)+"/invite-link/rotate", nil, &out, http.StatusOK)
	return out, err
}

// ClearInviteLink revokes the join link.
func (c *Client) ClearInviteLink(ctx context.Context, tenantID string) error {
	return c.do(ctx, http.MethodDelete,
		"/v1/tenants/"+url.PathEscape(tenantID)+"/invite-link", nil, nil, http.StatusNoContent)
}

// Accept follows a signed acceptance URL (absolute or relative). The server
// answers 200 with an AcceptResponse for every non-error outcome.
func (c *Client) Accept(ctx context.Context, acceptURL string) (AcceptResponse, int, error) {
	u, err := url.Parse(acceptURL)
	if err != nil {
		return AcceptResponse{}, 0, fmt.Errorf("invalid accept url: %w", err)
	}
	path := u.Path
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return AcceptResponse{}, 0, err
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return AcceptResponse{}, 0, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return AcceptResponse{}, resp.StatusCode, err
	}

	if resp.StatusCode >= 400 {
		return AcceptResponse{}, resp.StatusCode, parseErrorResponse(resp, raw)
	}

	var out AcceptResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return AcceptResponse{}, resp.StatusCode, fmt.Errorf("failed to decode response: %w", err)
	}
	return out, resp.StatusCode, nil
}

// Resume replays a deferred acceptance after login.
func (c *Client) Resume(ctx context.Context) (ResumeResponse, error) {
	var out ResumeResponse
	err := c.do(ctx, http.MethodPost, "/v1/auth/resume", nil, &out, http.StatusOK)
	return out, err
}

// Logout releases any deferred acceptance parked for the session.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/v1/auth/logout", nil, nil, http.StatusNoContent)
}
