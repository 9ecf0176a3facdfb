package http

import (
	"errors"
	"net/http"

	"github.com/crewlane/memberd/internal/member/service"
	"github.com/crewlane/memberd/internal/member/store"
	"github.com/crewlane/memberd/pkg/httpx"
	"github.com/crewlane/memberd/pkg/membersdk"
)

// InvitesHandler serves targeted invite administration for a tenant.
type InvitesHandler struct {
	Router *Router
}

func (h *InvitesHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	tenantID := r.PathValue("id")
	if _, ok := h.Router.requireMember(w, r, tenantID, true); !ok {
		return
	}

	var req membersdk.CreateInvitesRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.Invites) == 0 {
		httpx.WriteError(w, http.StatusBadRequest, membersdk.ErrorCodeInvalidRequest, "at least one invite entry is required")
		return
	}

	entries := make([]service.InviteRequest, 0, len(req.Invites))
	for _, e := range req.Invites {
		entries = append(entries, service.InviteRequest{Email: e.Email, Role: e.Role})
	}

	results, err := h.Router.InviteService.Invite(r.Context(), tenantID, httpx.UserIDFromContext(r.Context()), entries)
	switch {
	case errors.Is(err, service.ErrTenantNotFound):
		httpx.WriteError(w, http.StatusNotFound, membersdk.ErrorCodeNotFound, "tenant not found")
		return
	case err != nil:
		writeInternalError(w)
		return
	}

	out := membersdk.CreateInvitesResponse{Results: make([]membersdk.InviteOutcome, 0, len(results))}
	for _, res := range results {
		out.Results = append(out.Results, membersdk.InviteOutcome{
			Email:    res.Email,
			Role:     res.Role,
			InviteID: res.InviteID,
			Skipped:  res.Skipped,
		})
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (h *InvitesHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	tenantID := r.PathValue("id")
	if _, ok := h.Router.requireMember(w, r, tenantID, true); !ok {
		return
	}

	invites, err := h.Router.InviteService.ListPending(r.Context(), tenantID)
	if err != nil {
		writeInternalError(w)
		return
	}

	out := membersdk.ListInvitesResponse{Invites: make([]membersdk.PendingInvite, 0, len(invites))}
	for _, inv := range invites {
		out.Invites = append(out.Invites, pendingInviteInfo(inv))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (h *InvitesHandler) HandleResend(w http.ResponseWriter, r *http.Request) {
	tenantID := r.PathValue("id")
	if _, ok := h.Router.requireMember(w, r, tenantID, true); !ok {
		return
	}
	if !h.inviteBelongsToTenant(w, r, tenantID) {
		return
	}

	inv, err := h.Router.InviteService.Resend(r.Context(), r.PathValue("inviteID"))
	switch {
	case errors.Is(err, service.ErrInviteNotFound):
		httpx.WriteError(w, http.StatusNotFound, membersdk.ErrorCodeNotFound, "invite not found")
		return
	case err != nil:
		writeInternalError(w)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, pendingInviteInfo(inv))
}

func (h *InvitesHandler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	tenantID := r.PathValue("id")
	if _, ok := h.Router.requireMember(w, r, tenantID, true); !ok {
		return
	}
	if !h.inviteBelongsToTenant(w, r, tenantID) {
		return
	}

	err := h.Router.InviteService.Cancel(r.Context(), r.PathValue("inviteID"))
	switch {
	case errors.Is(err, service.ErrInviteNotFound):
		httpx.WriteError(w, http.StatusNotFound, membersdk.ErrorCodeNotFound, "invite not found")
		return
	case err != nil:
		writeInternalError(w)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// inviteBelongsToTenant scopes the {inviteID} path segment to the tenant in
// the URL; an invite from another tenant is indistinguishable from a missing
// one. Writes the error response itself on failure.
func (h *InvitesHandler) inviteBelongsToTenant(w http.ResponseWriter, r *http.Request, tenantID string) bool {
	inv, err := h.Router.store.Invites().GetInviteByID(r.Context(), r.PathValue("inviteID"))
	if errors.Is(err, store.ErrNotFound) || (err == nil && inv.TenantID != tenantID) {
		httpx.WriteError(w, http.StatusNotFound, membersdk.ErrorCodeNotFound, "invite not found")
		return false
	}
	if err != nil {
		writeInternalError(w)
		return false
	}
	return true
}
