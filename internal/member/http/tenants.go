package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/crewlane/memberd/internal/member/service"
	"github.com/crewlane/memberd/pkg/httpx"
	"github.com/crewlane/memberd/pkg/membersdk"
)

// TenantsHandler serves tenant registration, profile updates and the
// tenant's shareable join link.
type TenantsHandler struct {
	Router *Router
}

func (h *TenantsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req membersdk.CreateTenantRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	t, err := h.Router.TenantService.Create(r.Context(), req.Name, req.Slug, httpx.UserIDFromContext(r.Context()))
	switch {
	case errors.Is(err, service.ErrInvalidTenantRequest):
		httpx.WriteError(w, http.StatusBadRequest, membersdk.ErrorCodeInvalidRequest, "invalid tenant name or slug")
		return
	case errors.Is(err, service.ErrUnknownUser):
		// The auth system has not pushed the caller's directory record yet.
		httpx.WriteError(w, http.StatusBadRequest, membersdk.ErrorCodeInvalidRequest, "no directory record for the caller")
		return
	case errors.Is(err, service.ErrSlugTaken):
		httpx.WriteError(w, http.StatusConflict, membersdk.ErrorCodeSlugTaken, "slug already in use")
		return
	case err != nil:
		writeInternalError(w)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, tenantInfo(t))
}

func (h *TenantsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	tenantID := r.PathValue("id")
	if _, ok := h.Router.requireMember(w, r, tenantID, false); !ok {
		return
	}

	t, err := h.Router.TenantService.Get(r.Context(), tenantID)
	if err != nil {
		writeInternalError(w)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, tenantInfo(t))
}

func (h *TenantsHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	tenantID := r.PathValue("id")
	if _, ok := h.Router.requireMember(w, r, tenantID, true); !ok {
		return
	}

	var req membersdk.UpdateTenantRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	err := h.Router.TenantService.UpdateProfile(r.Context(), tenantID, req.Name)
	switch {
	case errors.Is(err, service.ErrInvalidTenantRequest):
		httpx.WriteError(w, http.StatusBadRequest, membersdk.ErrorCodeInvalidRequest, "invalid tenant name")
		return
	case errors.Is(err, service.ErrTenantNotFound):
		httpx.WriteError(w, http.StatusNotFound, membersdk.ErrorCodeNotFound, "tenant not found")
		return
	case err != nil:
		writeInternalError(w)
		return
	}

	t, err := h.Router.TenantService.Get(r.Context(), tenantID)
	if err != nil {
		writeInternalError(w)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, tenantInfo(t))
}

// HandleInviteLink returns the tenant's signed join link, minting the
// underlying token on first use.
func (h *TenantsHandler) HandleInviteLink(w http.ResponseWriter, r *http.Request) {
	tenantID := r.PathValue("id")
	if _, ok := h.Router.requireMember(w, r, tenantID, true); !ok {
		return
	}

	token, err := h.Router.TenantService.EnsureGenericInviteToken(r.Context(), tenantID)
	if err != nil {
		writeInternalError(w)
		return
	}
	h.writeInviteLink(w, token)
}

func (h *TenantsHandler) HandleRotateInviteLink(w http.ResponseWriter, r *http.Request) {
	tenantID := r.PathValue("id")
	if _, ok := h.Router.requireMember(w, r, tenantID, true); !ok {
		return
	}

	token, err := h.Router.TenantService.RotateGenericInviteToken(r.Context(), tenantID)
	if err != nil {
		writeInternalError(w)
		return
	}
	h.writeInviteLink(w, token)
}

func (h *TenantsHandler) HandleClearInviteLink(w http.ResponseWriter, r *http.Request) {
	tenantID := r.PathValue("id")
	if _, ok := h.Router.requireMember(w, r, tenantID, true); !ok {
		return
	}

	if err := h.Router.TenantService.ClearGenericInviteToken(r.Context(), tenantID); err != nil {
		writeInternalError(w)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *TenantsHandler) writeInviteLink(w http.ResponseWriter, token string) {
	// The signature lifetime is the only expiry a join link has; the token
	// itself lives until it is rotated or cleared.
	expiresAt := time.Now().UTC().Add(h.Router.InviteService.Config.GenericLinkTTL)
	acceptURL, err := h.Router.InviteService.AcceptURL(token, expiresAt)
	if err != nil {
		writeInternalError(w)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, membersdk.InviteLinkResponse{
		AcceptURL: acceptURL,
		ExpiresAt: expiresAt,
	})
}
