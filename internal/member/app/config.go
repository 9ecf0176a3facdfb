package app

import (
	"fmt"

	"time"

	"github.com/caarlos0/env/v11"

	"github.com/crewlane/memberd/internal/member/roles"
)

// Config is the process configuration, loaded from the environment.
type Config struct {
	Env                 string        `env:"ENV" envDefault:"dev"`
	LogLevel            string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat           string        `env:"LOG_FORMAT" envDefault:"json"`
	Port                int           `env:"PORT" envDefault:"8080"`
	ShutdownGracePeriod time.Duration `env:"SHUTDOWN_GRACE_PERIOD" envDefault:"10s"`

	DatabaseFile string `env:"MEMBERD_DATABASE_FILE" envDefault:"memberd.db"`

	// Shared secret and issuer agreed with the external auth service; every
	// bearer token is verified against these.
	IdentitySecret string `env:"MEMBERD_IDENTITY_SECRET,required"`
	IdentityIssuer string `env:"MEMBERD_IDENTITY_ISSUER" envDefault:"crewlane-auth"`

	// LinkSecret signs the acceptance URLs that travel in invite emails.
	// BaseURL is the external address those links are built against.
	LinkSecret string `env:"MEMBERD_LINK_SECRET,required"`
	BaseURL    string `env:"MEMBERD_BASE_URL" envDefault:"http://localhost:8080"`
	LoginURL   string `env:"MEMBERD_LOGIN_URL" envDefault:"/login"`

	// Role registry, in "value:label:color" comma-separated form.
	RoleDefinitions string   `env:"MEMBERD_ROLES" envDefault:"owner:Owner:warning,admin:Admin:danger,member:Member"`
	RolePriority    []string `env:"MEMBERD_ROLE_PRIORITY" envDefault:"owner,admin,member"`
	OwnerRole       string   `env:"MEMBERD_OWNER_ROLE" envDefault:"owner"`
	DefaultRole     string   `env:"MEMBERD_DEFAULT_ROLE" envDefault:"member"`
	// ManageRoles may administer members and invites. The owner role is
	// always included.
	ManageRoles []string `env:"MEMBERD_MANAGE_ROLES" envDefault:"admin"`

	InviteTTL           time.Duration `env:"MEMBERD_INVITE_TTL" envDefault:"168h"`
	JoinLinkTTL         time.Duration `env:"MEMBERD_JOIN_LINK_TTL" envDefault:"720h"`
	RequireRoleOnInvite bool          `env:"MEMBERD_REQUIRE_ROLE_ON_INVITE" envDefault:"false"`
	RequireRegistration bool          `env:"MEMBERD_REQUIRE_REGISTRATION" envDefault:"true"`
	PendingMaxAge       time.Duration `env:"MEMBERD_PENDING_MAX_AGE" envDefault:"30m"`
	TenantDefaultStatus string        `env:"MEMBERD_TENANT_DEFAULT_STATUS" envDefault:"active"`

	HousekeepingInterval time.Duration `env:"HOUSEKEEPING_INTERVAL" envDefault:"1h"`
}

// LoadConfig reads configuration from the environment.
func LoadConfig() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// BuildRegistry constructs the role registry from configuration.
func (c Config) BuildRegistry() (*roles.Registry, error) {
	defs, err := roles.ParseDefinitions(c.RoleDefinitions)
	if err != nil {
		return nil, err
	}
	return roles.New(defs, c.RolePriority, c.OwnerRole, c.DefaultRole)
}
