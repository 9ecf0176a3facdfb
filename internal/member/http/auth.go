package http

import (
	"net/http"

	"github.com/crewlane/memberd/pkg/httpx"
	"github.com/crewlane/memberd/pkg/membersdk"
)

// AuthHandler serves the hooks the auth system calls around login and
// logout. memberd holds no sessions of its own; these endpoints only settle
// deferred invite acceptances.
type AuthHandler struct {
	Router *Router
}

// HandleResume replays the session's parked invite acceptance, if any, for
// the freshly authenticated user. A login with nothing parked is a 200 with
// accepted=false.
func (h *AuthHandler) HandleResume(w http.ResponseWriter, r *http.Request) {
	claims, _ := httpx.IdentityFromContext(r.Context())
	sessionID := h.sessionID(r, claims.SessionID)
	h.clearSessionCookie(w)

	outcome, err := h.Router.Capture.Resume(r.Context(), sessionID, claims.UserID)
	if err != nil {
		writeInternalError(w)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, membersdk.ResumeResponse{
		Accepted:   outcome.Accepted,
		TenantID:   outcome.TenantID,
		TenantSlug: outcome.TenantSlug,
		RedirectTo: outcome.RedirectTo,
		Warning:    outcome.Warning,
	})
}

// HandleLogout drops any parked acceptance for the session.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	claims, _ := httpx.IdentityFromContext(r.Context())
	h.Router.Capture.Release(h.sessionID(r, claims.SessionID))
	h.clearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// sessionID prefers the pending-session cookie set by the accept endpoint;
// the token's sid claim covers visitors whose browser dropped the cookie.
func (h *AuthHandler) sessionID(r *http.Request, claimSID string) string {
	if c, err := r.Cookie(pendingSessionCookie); err == nil && c.Value != "" {
		return c.Value
	}
	return claimSID
}

func (h *AuthHandler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     pendingSessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
