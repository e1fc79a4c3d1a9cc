// internal/app/features/systemusers/delete.go
package systemusers

import (
	"errors"
	"net/http"

	"github.com/dalemusser/secretsanta/internal/app/store/storeapi"
	"github.com/dalemusser/secretsanta/internal/app/system/auth"
	"github.com/dalemusser/secretsanta/internal/app/system/respond"
	"github.com/dalemusser/secretsanta/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// HandleDelete handles DELETE /admin/users/{id}. The user's participations
// in groups that have not drawn yet are removed first; drawn groups keep
// theirs so existing assignments stay intact.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	me, _ := auth.CurrentUser(r)
	id := chi.URLParam(r, "id")
	if id == me.ID {
		respond.Error(w, http.StatusConflict, "you cannot delete your own account")
		return
	}

	ctx, cancel := timeouts.WithMedium(r.Context())
	defer cancel()

	if _, err := h.Users.GetUser(ctx, id); err != nil {
		if errors.Is(err, storeapi.ErrNotFound) {
			respond.Error(w, http.StatusNotFound, "user not found")
			return
		}
		h.Log.Error("load user failed", zap.String("user_id", id), zap.Error(err))
		respond.Error(w, http.StatusServiceUnavailable, "could not delete user")
		return
	}

	ps, err := h.Participants.ListParticipants(ctx, storeapi.ParticipantFilter{UserID: id})
	if err != nil {
		h.Log.Error("list participations failed", zap.String("user_id", id), zap.Error(err))
		respond.Error(w, http.StatusServiceUnavailable, "could not delete user")
		return
	}
	for _, p := range ps {
		g, err := h.Groups.GetGroup(ctx, p.GroupID)
		if err == nil && g.IsDrawDone {
			continue
		}
		if err != nil && !errors.Is(err, storeapi.ErrNotFound) {
			h.Log.Error("load group failed", zap.String("group_id", p.GroupID), zap.Error(err))
			respond.Error(w, http.StatusServiceUnavailable, "could not delete user")
			return
		}
		if err := h.Participants.DeleteParticipant(ctx, p.ID); err != nil && !errors.Is(err, storeapi.ErrNotFound) {
			h.Log.Error("delete participation failed", zap.String("participant_id", p.ID), zap.Error(err))
			respond.Error(w, http.StatusServiceUnavailable, "could not delete user")
			return
		}
	}

	if err := h.Users.DeleteUser(ctx, id); err != nil && !errors.Is(err, storeapi.ErrNotFound) {
		h.Log.Error("delete user failed", zap.String("user_id", id), zap.Error(err))
		respond.Error(w, http.StatusServiceUnavailable, "could not delete user")
		return
	}
	h.Log.Info("user deleted", zap.String("user_id", id), zap.String("actor_id", me.ID))
	w.WriteHeader(http.StatusNoContent)
}
