package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/crewlane/memberd/internal/member/http"
	"github.com/crewlane/memberd/internal/member/roles"
	"github.com/crewlane/memberd/internal/member/service"
	"github.com/crewlane/memberd/internal/member/store"
	"github.com/crewlane/memberd/internal/member/store/drivers/sqlite"
	"github.com/crewlane/memberd/pkg/identity"
	"github.com/crewlane/memberd/pkg/linksign"
	"github.com/crewlane/memberd/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags. Later problem
	BuildVersion = "v0.1.0"
)

// Application encapsulates the membership service with all its dependencies
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db       store.Store
	registry *roles.Registry
	verifier *identity.Verifier
	signer   *linksign.Signer

	// Services
	userService         *service.UserService
	tenantService       *service.TenantService
	membershipService   *service.MembershipService
	inviteService       *service.InviteService
	capture             *service.PendingAcceptanceCapture
	housekeepingService *service.HousekeepingService

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "memberd",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	registry, err := cfg.BuildRegistry()
	if err != nil {
		return nil, fmt.Errorf("failed to build role registry: %w", err)
	}
	app.registry = registry

	signer, err := linksign.New(cfg.LinkSecret, cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize link signer: %w", err)
	}
	app.signer = signer
	app.verifier = identity.NewVerifier(cfg.IdentitySecret, cfg.IdentityIssuer)

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	app.initServices()
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	// Start housekeeping service
	app.housekeepingService.Start()

	app.logger.Info("memberd starting", "port", app.cfg.Port, "version", BuildVersion)

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	// Setup signal handling for graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a shutdown signal or server error
	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		// Perform graceful shutdown
		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down memberd...")

	// Give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	// Shutdown the HTTP server
	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	// Stop the housekeeping service
	app.housekeepingService.Stop()

	// Close database connection
	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("memberd stopped")
	return nil
}

// initDatabase initializes the database and applies migrations
func (app *Application) initDatabase() error {
	host := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(host)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully")
	return nil
}

// initServices initializes all business logic services
func (app *Application) initServices() {
	app.userService = &service.UserService{Store: app.db}

	app.tenantService = &service.TenantService{
		Store:         app.db,
		Roles:         app.registry,
		DefaultStatus: app.cfg.TenantDefaultStatus,
	}

	app.membershipService = &service.MembershipService{
		Store: app.db,
		Roles: app.registry,
	}

	app.inviteService = &service.InviteService{
		Store:    app.db,
		Roles:    app.registry,
		Signer:   app.signer,
		Notifier: service.LogNotifier{},
		Config: service.InviteConfig{
			TTL:            app.cfg.InviteTTL,
			GenericLinkTTL: app.cfg.JoinLinkTTL,
			RequireRole:    app.cfg.RequireRoleOnInvite,
		},
	}

	app.capture = &service.PendingAcceptanceCapture{
		Invites:             app.inviteService,
		RequireRegistration: app.cfg.RequireRegistration,
		MaxAge:              app.cfg.PendingMaxAge,
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.verifier,
		app.registry,
		BuildVersion,
		app.cfg.LoginURL,
		app.cfg.ManageRoles,
		app.db,
		app.logger,
	)

	// Wire services to router
	router.UserService = app.userService
	router.TenantService = app.tenantService
	router.MembershipService = app.membershipService
	router.InviteService = app.inviteService
	router.Capture = app.capture
	router.ApplyRoutes()

	app.router = router

	// Initialize HTTP server
	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
