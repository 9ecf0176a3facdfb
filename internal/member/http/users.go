package http

import (
	"errors"
	"net/http"

	"github.com/crewlane/memberd/internal/member/service"
	"github.com/crewlane/memberd/pkg/httpx"
	"github.com/crewlane/memberd/pkg/membersdk"
)

// UsersHandler serves the directory push endpoints. The external auth system
// is the writer; records may only be pushed for the token's own subject.
type UsersHandler struct {
	UserService *service.UserService
}

func (h *UsersHandler) HandleUpsert(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if httpx.UserIDFromContext(r.Context()) != id {
		httpx.WriteError(w, http.StatusForbidden, membersdk.ErrorCodeForbidden, "token subject does not match user id")
		return
	}

	var req membersdk.UpsertUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	u, err := h.UserService.Upsert(r.Context(), id, req.Email, req.Name)
	switch {
	case errors.Is(err, service.ErrInvalidUserRecord):
		httpx.WriteError(w, http.StatusBadRequest, membersdk.ErrorCodeInvalidRequest, "invalid user record")
		return
	case errors.Is(err, service.ErrEmailTaken):
		httpx.WriteError(w, http.StatusConflict, membersdk.ErrorCodeEmailTaken, "email belongs to a different user")
		return
	case err != nil:
		writeInternalError(w)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, membersdk.UserRecord{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	})
}

func (h *UsersHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if httpx.UserIDFromContext(r.Context()) != id {
		httpx.WriteError(w, http.StatusForbidden, membersdk.ErrorCodeForbidden, "token subject does not match user id")
		return
	}

	err := h.UserService.Delete(r.Context(), id)
	switch {
	case errors.Is(err, service.ErrUnknownUser):
		httpx.WriteError(w, http.StatusNotFound, membersdk.ErrorCodeNotFound, "user not found")
		return
	case err != nil:
		writeInternalError(w)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
