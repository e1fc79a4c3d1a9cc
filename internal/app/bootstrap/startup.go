// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/dalemusser/secretsanta/internal/app/store/storeapi"
	"github.com/dalemusser/secretsanta/internal/app/system/auth"
	"github.com/dalemusser/secretsanta/internal/app/system/timeouts"
	"github.com/dalemusser/secretsanta/internal/domain/models"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	timeouts.Configure(timeouts.Config{
		Short:  appCfg.TimeoutShort,
		Medium: appCfg.TimeoutMedium,
		Draw:   appCfg.TimeoutDraw,
	})

	if appCfg.AdminEmail != "" {
		if err := ensureAdmin(ctx, deps.Store.Users, appCfg.AdminEmail, appCfg.AdminPassword, logger); err != nil {
			return err
		}
	}
	return nil
}

// ensureAdmin creates the admin account when it does not exist yet. An
// existing account is left alone; a non-admin one is only reported.
func ensureAdmin(ctx context.Context, users storeapi.Users, email, password string, logger *zap.Logger) error {
	u, err := users.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		if u.Role != models.RoleAdmin {
			logger.Warn("admin_email belongs to a non-admin account", zap.String("user_id", u.ID))
		}
		return nil
	case !errors.Is(err, storeapi.ErrNotFound):
		return fmt.Errorf("look up admin: %w", err)
	}

	if password == "" {
		logger.Warn("admin account missing and no admin_password set; skipping", zap.String("email", email))
		return nil
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}
	u, err = users.CreateUser(ctx, models.User{
		Name:         "Administrator",
		Email:        email,
		PasswordHash: hash,
		Role:         models.RoleAdmin,
	})
	if err != nil {
		return fmt.Errorf("create admin: %w", err)
	}
	logger.Info("created admin account", zap.String("user_id", u.ID), zap.String("email", u.Email))
	return nil
}
