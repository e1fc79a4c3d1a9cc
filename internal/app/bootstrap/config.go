// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/secretsanta/internal/app/store/remote"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// appConfigKeys defines the configuration keys for secretsanta.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, session_name, etc.
//   - Environment variables: SECRETSANTA_MONGO_URI, SECRETSANTA_STORE_BACKEND, etc.
//   - Command-line flags: --mongo_uri, --store_backend, etc.
var appConfigKeys = []config.AppKey{
	{Name: "store_backend", Default: BackendMongo, Desc: "Store backend: 'mongo', 'remote' or 'memory'"},

	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "secret_santa", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},

	{Name: "remote_base_url", Default: "", Desc: "Base URL of the remote store (participants, users)"},
	{Name: "remote_groups_base_url", Default: "", Desc: "Base URL for /groups when hosted separately"},
	{Name: "remote_timeout", Default: "10s", Desc: "Per-request timeout for the remote store"},

	{Name: "session_key", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "Session signing key (must be strong in production)"},
	{Name: "session_name", Default: "secretsanta-session", Desc: "Session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},
	{Name: "session_max_age", Default: "720h", Desc: "Session lifetime"},

	// Draw
	{Name: "draw_concurrency", Default: 8, Desc: "Concurrent participant writes per draw"},
	{Name: "draw_max_attempts", Default: 50, Desc: "Shuffle attempts before a draw is reported unsatisfiable"},
	{Name: "draw_seed", Default: 0, Desc: "Fixed random seed for draws (0 = seed from clock; testing only)"},
	{Name: "lease_ttl", Default: "2m", Desc: "Lifetime of the per-group draw lease"},

	// Optional infrastructure
	{Name: "redis_url", Default: "", Desc: "Redis URL for cross-instance draw leases (blank = in-process only)"},
	{Name: "nats_url", Default: "", Desc: "NATS URL for draw-completed events (blank = disabled)"},

	// Timeouts
	{Name: "timeout_short", Default: "5s", Desc: "Timeout for single-document operations"},
	{Name: "timeout_medium", Default: "10s", Desc: "Timeout for list operations"},
	{Name: "timeout_draw", Default: "60s", Desc: "Upper bound for a whole draw"},

	// Audit logging settings
	{Name: "audit_log_auth", Default: "all", Desc: "Auth event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_moderation", Default: "all", Desc: "Moderation event logging: 'all', 'db', 'log', or 'off'"},
	{Name: "audit_log_draw", Default: "all", Desc: "Draw event logging: 'all', 'db', 'log', or 'off'"},

	// Admin bootstrap
	{Name: "admin_email", Default: "", Desc: "Email of the admin user (created on startup if missing)"},
	{Name: "admin_password", Default: "", Desc: "Initial password for a newly created admin user"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig handles:
//   - Loading from .env files
//   - Loading from config.yaml/json/toml files
//   - Reading environment variables (WAFFLE_* for core, SECRETSANTA_* for app)
//   - Parsing command-line flags
//   - Merging with precedence: flags > env > files > defaults
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "SECRETSANTA", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		StoreBackend: strings.ToLower(strings.TrimSpace(appValues.String("store_backend"))),

		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),

		RemoteBaseURL:       appValues.String("remote_base_url"),
		RemoteGroupsBaseURL: appValues.String("remote_groups_base_url"),
		RemoteTimeout:       appValues.Duration("remote_timeout", remote.DefaultTimeout),

		SessionKey:    appValues.String("session_key"),
		SessionName:   appValues.String("session_name"),
		SessionDomain: appValues.String("session_domain"),
		SessionMaxAge: appValues.Duration("session_max_age", 30*24*time.Hour),

		DrawConcurrency: appValues.Int("draw_concurrency"),
		DrawMaxAttempts: appValues.Int("draw_max_attempts"),
		DrawSeed:        int64(appValues.Int("draw_seed")),
		LeaseTTL:        appValues.Duration("lease_ttl", 2*time.Minute),

		RedisURL: appValues.String("redis_url"),
		NATSURL:  appValues.String("nats_url"),

		TimeoutShort:  appValues.Duration("timeout_short", 5*time.Second),
		TimeoutMedium: appValues.Duration("timeout_medium", 10*time.Second),
		TimeoutDraw:   appValues.Duration("timeout_draw", 60*time.Second),

		AuditLogAuth:       appValues.String("audit_log_auth"),
		AuditLogModeration: appValues.String("audit_log_moderation"),
		AuditLogDraw:       appValues.String("audit_log_draw"),

		AdminEmail:    appValues.String("admin_email"),
		AdminPassword: appValues.String("admin_password"),
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
// The chosen backend's connection settings are checked here so mistakes
// surface before any connection attempt.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	switch appCfg.StoreBackend {
	case BackendMongo:
		if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
			logger.Error("invalid MongoDB URI", zap.Error(err))
			return fmt.Errorf("invalid MongoDB URI: %w", err)
		}
	case BackendRemote:
		if appCfg.RemoteBaseURL == "" {
			return fmt.Errorf("store_backend=remote requires remote_base_url")
		}
	case BackendMemory:
		if coreCfg.Env == "prod" {
			return fmt.Errorf("store_backend=memory is not allowed in prod")
		}
		logger.Warn("using in-memory store; data is lost on restart")
	default:
		return fmt.Errorf("unknown store_backend %q (want mongo, remote or memory)", appCfg.StoreBackend)
	}

	if appCfg.DrawMaxAttempts < 1 {
		return fmt.Errorf("draw_max_attempts must be at least 1, got %d", appCfg.DrawMaxAttempts)
	}
	if appCfg.LeaseTTL <= appCfg.TimeoutDraw {
		return fmt.Errorf("lease_ttl (%s) must be longer than timeout_draw (%s)", appCfg.LeaseTTL, appCfg.TimeoutDraw)
	}
	if appCfg.DrawSeed != 0 && coreCfg.Env == "prod" {
		return fmt.Errorf("draw_seed must not be set in prod")
	}
	if appCfg.AdminEmail != "" && appCfg.AdminPassword == "" {
		logger.Warn("admin_email set without admin_password; a missing admin account will not be created")
	}

	return nil
}
