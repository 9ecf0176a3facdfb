package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/crewlane/memberd/internal/member/domain"
	"github.com/crewlane/memberd/internal/member/store"
	"github.com/crewlane/memberd/pkg/httpx"
	"github.com/crewlane/memberd/pkg/membersdk"
)

// decodeJSON reads the request body into dst. On failure it writes the 400
// response itself and reports false.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, membersdk.ErrorCodeInvalidRequest, "malformed JSON body")
		return false
	}
	return true
}

// requireMember loads the caller's membership in the tenant and writes the
// error response itself when access is denied. Non-members get a 404 rather
// than a 403 so tenant ids cannot be probed. With manage set, the caller's
// role must additionally be in the managing set.
func (r *Router) requireMember(w http.ResponseWriter, req *http.Request, tenantID string, manage bool) (domain.Membership, bool) {
	userID := httpx.UserIDFromContext(req.Context())

	m, err := r.store.Memberships().GetMembership(req.Context(), tenantID, userID)
	if errors.Is(err, store.ErrNotFound) {
		httpx.WriteError(w, http.StatusNotFound, membersdk.ErrorCodeNotFound, "tenant not found")
		return domain.Membership{}, false
	}
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, membersdk.ErrorCodeServerError, "internal error")
		return domain.Membership{}, false
	}

	if manage && !r.manageRoles[m.Role] {
		httpx.WriteError(w, http.StatusForbidden, membersdk.ErrorCodeForbidden, "managing role required")
		return domain.Membership{}, false
	}
	return m, true
}

func writeInternalError(w http.ResponseWriter) {
	httpx.WriteError(w, http.StatusInternalServerError, membersdk.ErrorCodeServerError, "internal error")
}

func tenantInfo(t domain.Tenant) membersdk.TenantInfo {
	return membersdk.TenantInfo{
		ID:          t.ID,
		Name:        t.Name,
		Slug:        t.Slug,
		Status:      t.Status,
		OwnerUserID: t.OwnerUserID,
		CreatedAt:   t.CreatedAt,
	}
}

func pendingInviteInfo(inv domain.Invite) membersdk.PendingInvite {
	return membersdk.PendingInvite{
		ID:            inv.ID,
		Email:         inv.Email,
		Role:          inv.Role,
		InviterUserID: inv.InviterUserID,
		ExpiresAt:     inv.ExpiresAt,
		CreatedAt:     inv.CreatedAt,
	}
}
