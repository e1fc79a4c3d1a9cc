// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// Store backends selectable with store_backend.
const (
	BackendMongo  = "mongo"
	BackendRemote = "remote"
	BackendMemory = "memory"
)

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). WAFFLE's CoreConfig covers
// ports, TLS, logging and CORS; everything below is specific to the gift
// exchange.
type AppConfig struct {
	// Which store backs participants, groups and users.
	StoreBackend string // mongo | remote | memory

	// MongoDB connection configuration
	MongoURI         string
	MongoDatabase    string
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Remote key-collection store
	RemoteBaseURL       string // /participants and /users
	RemoteGroupsBaseURL string // /groups (blank means RemoteBaseURL)
	RemoteTimeout       time.Duration

	// Session management configuration
	SessionKey    string // Secret key for signing session cookies (must be strong in production)
	SessionName   string // Cookie name for sessions
	SessionDomain string // Cookie domain (blank means current host)
	SessionMaxAge time.Duration

	// Draw tuning
	DrawConcurrency int   // in-flight participant writes per draw
	DrawMaxAttempts int   // shuffle attempts before giving up
	DrawSeed        int64 // 0 seeds from the clock
	LeaseTTL        time.Duration

	// Optional coordination and events. Blank disables.
	RedisURL string
	NATSURL  string

	// Timeouts
	TimeoutShort  time.Duration
	TimeoutMedium time.Duration
	TimeoutDraw   time.Duration

	// Audit logging: all | db | log | off
	AuditLogAuth       string
	AuditLogModeration string
	AuditLogDraw       string

	// Admin bootstrap
	AdminEmail    string
	AdminPassword string
}
