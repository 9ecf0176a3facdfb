package http

import (
	"errors"
	"net/http"

	"github.com/crewlane/memberd/internal/member/service"
	"github.com/crewlane/memberd/pkg/httpx"
	"github.com/crewlane/memberd/pkg/membersdk"
)

// MembersHandler serves the member listing and administration endpoints.
type MembersHandler struct {
	Router *Router
}

func (h *MembersHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	tenantID := r.PathValue("id")
	if _, ok := h.Router.requireMember(w, r, tenantID, false); !ok {
		return
	}

	members, err := h.Router.MembershipService.ListMembers(r.Context(), tenantID)
	if err != nil {
		writeInternalError(w)
		return
	}

	out := membersdk.ListMembersResponse{Members: make([]membersdk.MemberInfo, 0, len(members))}
	for _, m := range members {
		out.Members = append(out.Members, membersdk.MemberInfo{
			UserID:    m.UserID,
			Email:     m.Email,
			Name:      m.Name,
			Role:      m.Role,
			RoleLabel: h.Router.registry.Label(m.Role),
			RoleColor: h.Router.registry.Color(m.Role),
			JoinedAt:  m.CreatedAt,
		})
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (h *MembersHandler) HandleChangeRole(w http.ResponseWriter, r *http.Request) {
	tenantID := r.PathValue("id")
	if _, ok := h.Router.requireMember(w, r, tenantID, true); !ok {
		return
	}

	var req membersdk.ChangeRoleRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	err := h.Router.MembershipService.ChangeRole(r.Context(), tenantID, r.PathValue("userID"), req.Role)
	if !h.writeMembershipError(w, err) {
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *MembersHandler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	tenantID := r.PathValue("id")
	if _, ok := h.Router.requireMember(w, r, tenantID, true); !ok {
		return
	}

	err := h.Router.MembershipService.Remove(r.Context(), tenantID, r.PathValue("userID"))
	if !h.writeMembershipError(w, err) {
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeMembershipError maps membership service errors to API responses.
// Reports true when err was nil and the caller should write its success
// response.
func (h *MembersHandler) writeMembershipError(w http.ResponseWriter, err error) bool {
	switch {
	case err == nil:
		return true
	case errors.Is(err, service.ErrUnknownRole):
		httpx.WriteError(w, http.StatusBadRequest, membersdk.ErrorCodeInvalidRequest, "unknown role")
	case errors.Is(err, service.ErrOwnerImmutable):
		httpx.WriteError(w, http.StatusConflict, membersdk.ErrorCodeOwnerImmutable, "the owner membership cannot be changed")
	case errors.Is(err, service.ErrMemberNotFound):
		httpx.WriteError(w, http.StatusNotFound, membersdk.ErrorCodeNotFound, "member not found")
	default:
		writeInternalError(w)
	}
	return false
}
