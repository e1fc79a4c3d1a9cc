// internal/app/features/login/handler.go
package login

import (
	"errors"
	"net/http"

	"github.com/dalemusser/secretsanta/internal/app/store/audit"
	"github.com/dalemusser/secretsanta/internal/app/store/storeapi"
	userstore "github.com/dalemusser/secretsanta/internal/app/store/users"
	"github.com/dalemusser/secretsanta/internal/app/system/auditlog"
	"github.com/dalemusser/secretsanta/internal/app/system/auth"
	"github.com/dalemusser/secretsanta/internal/app/system/inputval"
	"github.com/dalemusser/secretsanta/internal/app/system/ratelimit"
	"github.com/dalemusser/secretsanta/internal/app/system/respond"
	"github.com/dalemusser/secretsanta/internal/app/system/timeouts"
	"go.uber.org/zap"
)

type Handler struct {
	Users        storeapi.Users
	Groups       storeapi.Groups
	Participants storeapi.Participants
	SessionMgr   *auth.SessionManager
	AuditLog     *auditlog.Logger
	Limiter      *ratelimit.LoginLimiter
	Validate     *inputval.Validator
	Log          *zap.Logger
}

func NewHandler(b storeapi.Backend, sessionMgr *auth.SessionManager, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Users:        b.Users,
		Groups:       b.Groups,
		Participants: b.Participants,
		SessionMgr:   sessionMgr,
		AuditLog:     audit,
		Limiter:      ratelimit.NewLoginLimiter(),
		Validate:     inputval.New(),
		Log:          logger,
	}
}

type loginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /login                                                                 |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleLoginPost(w http.ResponseWriter, r *http.Request) {
	var in loginInput
	if err := respond.Decode(w, r, &in); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	in.Email = userstore.NormalizeEmail(in.Email)
	if err := h.Validate.Validate(in); err != nil {
		respond.Invalid(w, err)
		return
	}

	ctx, cancel := timeouts.WithShort(r.Context())
	defer cancel()

	if ok, reason := h.Limiter.Check(r, in.Email); !ok {
		h.AuditLog.LoginFailed(ctx, r, in.Email, audit.EventLoginFailedRateLimited)
		respond.Error(w, http.StatusTooManyRequests, reason)
		return
	}

	u, err := h.Users.GetUserByEmail(ctx, in.Email)
	switch {
	case errors.Is(err, storeapi.ErrNotFound):
		h.AuditLog.LoginFailed(ctx, r, in.Email, audit.EventLoginFailedUserNotFound)
		respond.Error(w, http.StatusUnauthorized, "email or password is incorrect")
		return
	case err != nil:
		h.Log.Error("login lookup failed", zap.Error(err))
		respond.Error(w, http.StatusServiceUnavailable, "could not sign in right now")
		return
	}
	if !auth.CheckPassword(u.PasswordHash, in.Password) {
		h.AuditLog.LoginFailed(ctx, r, in.Email, audit.EventLoginFailedWrongPassword)
		respond.Error(w, http.StatusUnauthorized, "email or password is incorrect")
		return
	}

	su := auth.SessionUser{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
	if err := h.SessionMgr.SignIn(w, r, su); err != nil {
		h.Log.Error("sign in failed", zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, "could not start session")
		return
	}
	h.Limiter.ResetEmail(in.Email)
	h.AuditLog.LoginSuccess(ctx, r, u.ID, u.Email)
	respond.JSON(w, http.StatusOK, su)
}
