// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"

	drawingfeature "github.com/dalemusser/secretsanta/internal/app/features/drawing"
	groupsfeature "github.com/dalemusser/secretsanta/internal/app/features/groups"
	healthfeature "github.com/dalemusser/secretsanta/internal/app/features/health"
	loginfeature "github.com/dalemusser/secretsanta/internal/app/features/login"
	logoutfeature "github.com/dalemusser/secretsanta/internal/app/features/logout"
	systemusersfeature "github.com/dalemusser/secretsanta/internal/app/features/systemusers"
	"github.com/dalemusser/secretsanta/internal/app/system/auditlog"
	"github.com/dalemusser/secretsanta/internal/app/system/auth"
	"github.com/dalemusser/secretsanta/internal/app/system/draw"
	"github.com/dalemusser/secretsanta/internal/app/system/lease"
	"github.com/dalemusser/secretsanta/internal/app/system/metrics"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// any Startup hooks have completed. It builds the session manager, the
// audit logger and the draw service, then mounts the feature routers.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, appCfg.SessionMaxAge, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}

	var sink auditlog.Sink
	var history groupsfeature.HistoryLister
	if deps.Audit != nil {
		sink = deps.Audit
		history = deps.Audit
	}
	audit := auditlog.New(sink, logger, auditlog.Config{
		Auth:       appCfg.AuditLogAuth,
		Moderation: appCfg.AuditLogModeration,
		Draw:       appCfg.AuditLogDraw,
	})

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	drawSvc := newDrawService(appCfg, deps, audit, metrics.NewDraw(reg), logger)

	r := chi.NewRouter()

	// Global auth middleware: loads SessionUser into context if logged in.
	r.Use(sessionMgr.LoadSessionUser)

	// Health check endpoint for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(deps.Store.Pinger, deps.Backend, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	r.Handle("/metrics", metrics.Handler(reg))

	// Authentication
	loginHandler := loginfeature.NewHandler(deps.Store, sessionMgr, audit, logger)
	r.Mount("/login", loginfeature.Routes(loginHandler))
	r.Mount("/register", loginfeature.RegisterRoutes(loginHandler))

	logoutHandler := logoutfeature.NewHandler(sessionMgr, audit, logger)
	r.Mount("/logout", logoutfeature.Routes(logoutHandler))

	// Groups, participants and draws
	groupsHandler := groupsfeature.NewHandler(deps.Store, history, audit, logger)
	groupsHandler.Draws = drawSvc
	drawHandler := drawingfeature.NewHandler(drawSvc, deps.Store.Groups, logger)
	r.Mount("/groups", groupsfeature.Routes(groupsHandler, drawHandler))

	// User administration
	sysUsersHandler := systemusersfeature.NewHandler(deps.Store, logger)
	r.Mount("/admin/users", systemusersfeature.Routes(sysUsersHandler))

	return r, nil
}

// newDrawService builds the draw service with whichever lease and event
// publisher the deployment provides.
func newDrawService(appCfg AppConfig, deps DBDeps, audit *auditlog.Logger, m *metrics.Draw, logger *zap.Logger) *drawingfeature.Service {
	engineOpts := []draw.Option{draw.WithMaxAttempts(appCfg.DrawMaxAttempts)}
	engine := draw.New(engineOpts...)
	if appCfg.DrawSeed != 0 {
		logger.Warn("draws use a fixed seed", zap.Int64("seed", appCfg.DrawSeed))
		engine = draw.NewSeeded(appCfg.DrawSeed, engineOpts...)
	}

	var locker lease.Locker = lease.NewLocal()
	if deps.Redis != nil {
		locker = lease.NewRedis(deps.Redis, "secretsanta:")
	}

	opts := []drawingfeature.Option{
		drawingfeature.WithLocker(locker, appCfg.LeaseTTL),
		drawingfeature.WithAudit(audit),
		drawingfeature.WithMetrics(m),
		drawingfeature.WithConcurrency(appCfg.DrawConcurrency),
	}
	if deps.Bus != nil {
		opts = append(opts, drawingfeature.WithPublisher(deps.Bus))
	}
	return drawingfeature.NewService(deps.Store.Participants, deps.Store.Groups, engine, logger, opts...)
}
