package http

import (
	"net/http"

	"github.com/crewlane/memberd/internal/member/roles"
	"github.com/crewlane/memberd/pkg/httpx"
	"github.com/crewlane/memberd/pkg/membersdk"
)

// RolesHandler exposes the deployment's role registry so clients can render
// pickers without hardcoding the role set.
type RolesHandler struct {
	Registry *roles.Registry
}

func (h *RolesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	defs := h.Registry.Options()
	out := membersdk.ListRolesResponse{
		Roles:       make([]membersdk.RoleOption, 0, len(defs)),
		DefaultRole: h.Registry.DefaultRole(),
		OwnerRole:   h.Registry.OwnerRole(),
	}
	for _, d := range defs {
		out.Roles = append(out.Roles, membersdk.RoleOption{
			Value: d.Value,
			Label: h.Registry.Label(d.Value),
			Color: d.Color,
		})
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}
