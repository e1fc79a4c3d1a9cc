// internal/app/features/login/register.go
package login

import (
	"errors"
	"net/http"

	"github.com/dalemusser/secretsanta/internal/app/store/storeapi"
	userstore "github.com/dalemusser/secretsanta/internal/app/store/users"
	"github.com/dalemusser/secretsanta/internal/app/system/auth"
	"github.com/dalemusser/secretsanta/internal/app/system/htmlsanitize"
	"github.com/dalemusser/secretsanta/internal/app/system/respond"
	"github.com/dalemusser/secretsanta/internal/app/system/timeouts"
	"github.com/dalemusser/secretsanta/internal/domain/models"
	"go.uber.org/zap"
)

// registerInput creates an account and optionally either joins an existing
// group (as a pending participant) or creates a new one (as its moderator).
type registerInput struct {
	Name         string `json:"name" validate:"notblank,max=80"`
	Email        string `json:"email" validate:"required,email,max=254"`
	Password     string `json:"password" validate:"required,min=8,max=72"`
	GroupID      string `json:"groupId,omitempty" validate:"excluded_with=NewGroupName"`
	NewGroupName string `json:"newGroupName,omitempty" validate:"max=80"`
}

type registerResponse struct {
	User          auth.SessionUser `json:"user"`
	GroupID       string           `json:"groupId,omitempty"`
	ParticipantID string           `json:"participantId,omitempty"`
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /register                                                              |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleRegisterPost(w http.ResponseWriter, r *http.Request) {
	var in registerInput
	if err := respond.Decode(w, r, &in); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	in.Name = htmlsanitize.PlainText(in.Name)
	in.Email = userstore.NormalizeEmail(in.Email)
	in.NewGroupName = htmlsanitize.PlainText(in.NewGroupName)
	if err := h.Validate.Validate(in); err != nil {
		respond.Invalid(w, err)
		return
	}

	ctx, cancel := timeouts.WithMedium(r.Context())
	defer cancel()

	// Check the target group before creating anything.
	if in.GroupID != "" {
		g, err := h.Groups.GetGroup(ctx, in.GroupID)
		switch {
		case errors.Is(err, storeapi.ErrNotFound):
			respond.Error(w, http.StatusNotFound, "group not found")
			return
		case err != nil:
			h.Log.Error("register: load group failed", zap.Error(err))
			respond.Error(w, http.StatusServiceUnavailable, "could not register right now")
			return
		case g.IsDrawDone:
			respond.Error(w, http.StatusConflict, "the draw for this group is already done")
			return
		}
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		h.Log.Error("hash password failed", zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, "could not register right now")
		return
	}
	u, err := h.Users.CreateUser(ctx, models.User{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         models.RoleUser,
	})
	switch {
	case errors.Is(err, storeapi.ErrDuplicate):
		respond.Error(w, http.StatusConflict, "an account with this email already exists")
		return
	case err != nil:
		h.Log.Error("create user failed", zap.Error(err))
		respond.Error(w, http.StatusServiceUnavailable, "could not register right now")
		return
	}
	h.AuditLog.UserRegistered(ctx, r, u.ID, u.Email)

	resp := registerResponse{User: auth.SessionUser{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}}

	// The account exists from here on; group failures are reported but the
	// user stays signed up.
	switch {
	case in.NewGroupName != "":
		g, err := h.Groups.CreateGroup(ctx, models.Group{Name: in.NewGroupName, ModeratorID: u.ID})
		if err != nil {
			h.Log.Error("register: create group failed", zap.String("user_id", u.ID), zap.Error(err))
			break
		}
		h.AuditLog.GroupCreated(ctx, r, u.ID, g.ID, g.Name)
		resp.GroupID = g.ID
	case in.GroupID != "":
		p, err := h.Participants.CreateParticipant(ctx, models.Participant{UserID: u.ID, GroupID: in.GroupID})
		if err != nil {
			h.Log.Error("register: join group failed", zap.String("user_id", u.ID), zap.Error(err))
			break
		}
		h.AuditLog.ParticipantJoined(ctx, r, u.ID, in.GroupID, p.ID)
		resp.GroupID = in.GroupID
		resp.ParticipantID = p.ID
	}

	if err := h.SessionMgr.SignIn(w, r, resp.User); err != nil {
		h.Log.Error("sign in after register failed", zap.Error(err))
	}
	respond.JSON(w, http.StatusCreated, resp)
}
