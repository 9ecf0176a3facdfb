package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/crewlane/memberd/internal/member/service"
	"github.com/crewlane/memberd/pkg/httpx"
	"github.com/crewlane/memberd/pkg/idx"
	"github.com/crewlane/memberd/pkg/membersdk"
)

// pendingSessionCookie carries the anonymous visitor's session id across the
// login round trip, so a deferred acceptance can find its way back. The auth
// system's own session id (the sid claim) takes precedence when present.
const pendingSessionCookie = "memberd_pending_session"

// AcceptHandler serves the public acceptance endpoint behind signed URLs.
type AcceptHandler struct {
	Router *Router
}

// HandleAccept resolves a signed acceptance link. Every way a link can be bad
// (forged signature, expired signature, unknown token, consumed invite,
// lapsed invite) collapses into the same 404, so the endpoint leaks nothing
// about which invites exist.
func (h *AcceptHandler) HandleAccept(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// 1. The signature covers path, query and expiry.
	signed := r.URL.Path
	if r.URL.RawQuery != "" {
		signed += "?" + r.URL.RawQuery
	}
	if err := h.Router.InviteService.Signer.Verify(signed); err != nil {
		h.writeInvalid(w)
		return
	}

	// 2. Resolve the opaque token: targeted invite or tenant join link.
	resolved, err := h.Router.InviteService.ResolveByToken(ctx, r.PathValue("token"))
	if errors.Is(err, service.ErrInvalidInviteToken) {
		h.writeInvalid(w)
		return
	}
	if err != nil {
		writeInternalError(w)
		return
	}

	// 3. A logged-in visitor accepts immediately.
	claims, authed := httpx.IdentityFromContext(ctx)
	if authed {
		m, err := h.Router.InviteService.Accept(ctx, resolved, claims.UserID)
		switch {
		case err == nil:
			httpx.WriteJSON(w, http.StatusOK, membersdk.AcceptResponse{
				Status:     membersdk.AcceptStatusAccepted,
				TenantID:   resolved.Tenant.ID,
				TenantSlug: resolved.Tenant.Slug,
				TenantName: resolved.Tenant.Name,
				Role:       m.Role,
				RedirectTo: "/t/" + resolved.Tenant.Slug,
			})
			return
		case errors.Is(err, service.ErrAlreadyMember):
			httpx.WriteJSON(w, http.StatusOK, membersdk.AcceptResponse{
				Status:     membersdk.AcceptStatusAlreadyMember,
				TenantID:   resolved.Tenant.ID,
				TenantSlug: resolved.Tenant.Slug,
				TenantName: resolved.Tenant.Name,
				RedirectTo: "/t/" + resolved.Tenant.Slug,
			})
			return
		case errors.Is(err, service.ErrEmailMismatch):
			httpx.WriteError(w, http.StatusConflict, membersdk.ErrorCodeEmailMismatch,
				"this invite was issued for a different email address")
			return
		case errors.Is(err, service.ErrInvalidInviteToken):
			// Lost the race to a concurrent accept.
			h.writeInvalid(w)
			return
		case errors.Is(err, service.ErrUnknownUser):
			// Authenticated but not yet in the directory; treat like an
			// anonymous visitor and let registration finish first.
		default:
			writeInternalError(w)
			return
		}
	}

	// 4. Park the token for the session and send the visitor to log in. The
	// acceptance replays on /v1/auth/resume after the auth system reports a
	// successful login.
	sessionID := claims.SessionID
	if sessionID == "" {
		sessionID = h.ensureSessionCookie(w, r)
	}
	h.Router.Capture.Defer(sessionID, r.PathValue("token"))

	w.Header().Set("Location", h.Router.loginURL)
	httpx.WriteJSON(w, http.StatusFound, membersdk.AcceptResponse{
		Status:     membersdk.AcceptStatusLoginRequired,
		TenantSlug: resolved.Tenant.Slug,
		TenantName: resolved.Tenant.Name,
		LoginURL:   h.Router.loginURL,
	})
}

func (h *AcceptHandler) writeInvalid(w http.ResponseWriter) {
	httpx.WriteError(w, http.StatusNotFound, membersdk.ErrorCodeInviteInvalid,
		"this invite link is invalid or has expired")
}

// ensureSessionCookie reuses the visitor's pending-session cookie or mints a
// fresh one.
func (h *AcceptHandler) ensureSessionCookie(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(pendingSessionCookie); err == nil && c.Value != "" {
		return c.Value
	}

	sessionID := idx.New().String()
	http.SetCookie(w, &http.Cookie{
		Name:     pendingSessionCookie,
		Value:    sessionID,
		Path:     "/",
		MaxAge:   int((30 * time.Minute).Seconds()),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	return sessionID
}
