package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/crewlane/memberd/internal/member/roles"
	"github.com/crewlane/memberd/internal/member/service"
	"github.com/crewlane/memberd/internal/member/store"
	"github.com/crewlane/memberd/pkg/httpx"
	"github.com/crewlane/memberd/pkg/identity"
	"github.com/crewlane/memberd/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	verifier     *identity.Verifier
	registry     *roles.Registry
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
	loginURL     string
	manageRoles  map[string]bool

	store             store.Store
	TenantService     *service.TenantService
	MembershipService *service.MembershipService
	InviteService     *service.InviteService
	UserService       *service.UserService
	Capture           *service.PendingAcceptanceCapture
}

// NewRouter wires the shared handler dependencies. manageRoles lists the
// role values allowed to administer members and invites; the owner role is
// always included.
func NewRouter(
	verifier *identity.Verifier,
	registry *roles.Registry,
	buildVersion, loginURL string,
	manageRoles []string,
	st store.Store,
	logger *slog.Logger,
) *Router {
	manage := make(map[string]bool, len(manageRoles)+1)
	manage[registry.OwnerRole()] = true
	for _, r := range manageRoles {
		manage[r] = true
	}

	r := &Router{
		Mux:          http.NewServeMux(),
		verifier:     verifier,
		registry:     registry,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		logger:       logger,
		loginURL:     loginURL,
		manageRoles:  manage,
		store:        st,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerUsers()
	r.registerTenants()
	r.registerMembers()
	r.registerInvites()
	r.registerAccept()
	r.registerAuth()
	r.registerRoles()
	r.registerSystem()
}

// ServeHTTP implements http.Handler for Router and applies the global
// middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerUsers() {
	h := &UsersHandler{UserService: r.UserService}

	// The external auth system pushes directory records as the user; the
	// bearer token's subject must match the path id.
	secured := func(fn http.HandlerFunc) http.Handler {
		return httpx.Chain(fn,
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		)
	}

	r.Mux.Handle("PUT /v1/users/{id}", secured(h.HandleUpsert))
	r.Mux.Handle("DELETE /v1/users/{id}", secured(h.HandleDelete))
}

func (r *Router) registerTenants() {
	h := &TenantsHandler{Router: r}

	r.Mux.Handle("POST /v1/tenants",
		httpx.Chain(http.HandlerFunc(h.HandleCreate),
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("GET /v1/tenants/{id}",
		httpx.Chain(http.HandlerFunc(h.HandleGet),
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitByUser(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("PATCH /v1/tenants/{id}",
		httpx.Chain(http.HandlerFunc(h.HandleUpdate),
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)

	// Shareable join link management.
	r.Mux.Handle("GET /v1/tenants/{id}/invite-link",
		httpx.Chain(http.HandlerFunc(h.HandleInviteLink),
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("POST /v1/tenants/{id}/invite-link/rotate",
		httpx.Chain(http.HandlerFunc(h.HandleRotateInviteLink),
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("DELETE /v1/tenants/{id}/invite-link",
		httpx.Chain(http.HandlerFunc(h.HandleClearInviteLink),
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerMembers() {
	h := &MembersHandler{Router: r}

	r.Mux.Handle("GET /v1/tenants/{id}/members",
		httpx.Chain(http.HandlerFunc(h.HandleList),
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitByUser(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("PUT /v1/tenants/{id}/members/{userID}",
		httpx.Chain(http.HandlerFunc(h.HandleChangeRole),
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("DELETE /v1/tenants/{id}/members/{userID}",
		httpx.Chain(http.HandlerFunc(h.HandleRemove),
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerInvites() {
	h := &InvitesHandler{Router: r}

	r.Mux.Handle("POST /v1/tenants/{id}/invites",
		httpx.Chain(http.HandlerFunc(h.HandleCreate),
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("GET /v1/tenants/{id}/invites",
		httpx.Chain(http.HandlerFunc(h.HandleList),
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitByUser(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("POST /v1/tenants/{id}/invites/{inviteID}/resend",
		httpx.Chain(http.HandlerFunc(h.HandleResend),
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("DELETE /v1/tenants/{id}/invites/{inviteID}",
		httpx.Chain(http.HandlerFunc(h.HandleCancel),
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerAccept() {
	h := &AcceptHandler{Router: r}

	// Public endpoint: tokens are guessable in principle, so the strict
	// limit keeps brute force impractical. Identity is optional; visitors
	// without one get deferred to login.
	r.Mux.Handle("GET /invite/{token}/accept",
		httpx.Chain(http.HandlerFunc(h.HandleAccept),
			httpx.OptionalAuthnMiddleware(r.verifier),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerAuth() {
	h := &AuthHandler{Router: r}

	r.Mux.Handle("POST /v1/auth/resume",
		httpx.Chain(http.HandlerFunc(h.HandleResume),
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("POST /v1/auth/logout",
		httpx.Chain(http.HandlerFunc(h.HandleLogout),
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerRoles() {
	h := &RolesHandler{Registry: r.registry}

	r.Mux.Handle("GET /v1/roles",
		httpx.Chain(h,
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitByUser(httpx.LenientLimit),
		),
	)
}

func (r *Router) registerSystem() {
	// Health check endpoints - lenient rate limits (monitoring systems may
	// poll frequently)
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}
