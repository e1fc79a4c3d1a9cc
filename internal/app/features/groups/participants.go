// internal/app/features/groups/participants.go
package groups

import (
	"context"
	"errors"
	"net/http"

	"github.com/dalemusser/secretsanta/internal/app/store/storeapi"
	"github.com/dalemusser/secretsanta/internal/app/system/auth"
	"github.com/dalemusser/secretsanta/internal/app/system/respond"
	"github.com/dalemusser/secretsanta/internal/app/system/timeouts"
	"github.com/dalemusser/secretsanta/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// loadGroup fetches a group and writes the error response when it cannot.
func (h *Handler) loadGroup(w http.ResponseWriter, ctx context.Context, id string) (models.Group, bool) {
	ctx, cancel := timeouts.WithShort(ctx)
	defer cancel()

	g, err := h.Groups.GetGroup(ctx, id)
	switch {
	case errors.Is(err, storeapi.ErrNotFound):
		respond.Error(w, http.StatusNotFound, "group not found")
		return models.Group{}, false
	case err != nil:
		h.Log.Error("load group failed", zap.String("group_id", id), zap.Error(err))
		respond.Error(w, http.StatusServiceUnavailable, "could not load group")
		return models.Group{}, false
	}
	return g, true
}

// HandleJoin handles POST /groups/{id}/join: the caller asks to take part.
func (h *Handler) HandleJoin(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)
	g, ok := h.loadGroup(w, r.Context(), chi.URLParam(r, "id"))
	if !ok {
		return
	}
	if g.IsDrawDone {
		respond.Error(w, http.StatusConflict, "the draw for this group is already done")
		return
	}

	ctx, cancel := timeouts.WithShort(r.Context())
	defer cancel()
	p, err := h.Participants.CreateParticipant(ctx, models.Participant{UserID: u.ID, GroupID: g.ID})
	switch {
	case errors.Is(err, storeapi.ErrDuplicate):
		respond.Error(w, http.StatusConflict, "you already asked to join this group")
		return
	case err != nil:
		h.Log.Error("join group failed", zap.String("group_id", g.ID), zap.Error(err))
		respond.Error(w, http.StatusServiceUnavailable, "could not join group")
		return
	}
	h.Audit.ParticipantJoined(ctx, r, u.ID, g.ID, p.ID)
	respond.JSON(w, http.StatusCreated, participantView{ID: p.ID, UserID: p.UserID, UserName: u.Name, Status: p.Status})
}

type participantsResponse struct {
	Pending  []participantView `json:"pending"`
	Approved []participantView `json:"approved"`
}

// ServeParticipants handles GET /groups/{id}/participants (moderator only).
// Giftees are never included.
func (h *Handler) ServeParticipants(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)
	g, ok := h.loadGroup(w, r.Context(), chi.URLParam(r, "id"))
	if !ok {
		return
	}
	if !moderates(u, g) {
		respond.Error(w, http.StatusForbidden, "only the group moderator can manage participants")
		return
	}

	ctx, cancel := timeouts.WithMedium(r.Context())
	defer cancel()

	ps, err := h.Participants.ListParticipants(ctx, storeapi.ParticipantFilter{GroupID: g.ID})
	if err != nil {
		h.Log.Error("list participants failed", zap.String("group_id", g.ID), zap.Error(err))
		respond.Error(w, http.StatusServiceUnavailable, "could not load participants")
		return
	}
	names, err := h.userNames(ctx)
	if err != nil {
		h.Log.Warn("list users failed; names omitted", zap.Error(err))
	}

	resp := participantsResponse{Pending: []participantView{}, Approved: []participantView{}}
	for _, p := range ps {
		v := participantView{ID: p.ID, UserID: p.UserID, UserName: names[p.UserID], Status: p.Status}
		switch p.Status {
		case models.ParticipantPending:
			resp.Pending = append(resp.Pending, v)
		case models.ParticipantApproved:
			resp.Approved = append(resp.Approved, v)
		case models.ParticipantRejected:
			// hidden
		}
	}
	respond.JSON(w, http.StatusOK, resp)
}

func (h *Handler) userNames(ctx context.Context) (map[string]string, error) {
	us, err := h.Users.ListUsers(ctx)
	if err != nil {
		return map[string]string{}, err
	}
	names := make(map[string]string, len(us))
	for _, u := range us {
		names[u.ID] = u.Name
	}
	return names, nil
}

// moderatedParticipant loads the group and participant named in the URL and
// checks that the caller moderates the group, that the group is still open
// and that no draw for it is running.
func (h *Handler) moderatedParticipant(w http.ResponseWriter, r *http.Request) (models.Group, models.Participant, bool) {
	u, _ := auth.CurrentUser(r)
	g, ok := h.loadGroup(w, r.Context(), chi.URLParam(r, "id"))
	if !ok {
		return models.Group{}, models.Participant{}, false
	}
	if !moderates(u, g) {
		respond.Error(w, http.StatusForbidden, "only the group moderator can manage participants")
		return models.Group{}, models.Participant{}, false
	}
	if g.IsDrawDone {
		respond.Error(w, http.StatusConflict, "the draw for this group is already done")
		return models.Group{}, models.Participant{}, false
	}
	if h.Draws != nil {
		if _, running := h.Draws.Running(g.ID); running {
			respond.Error(w, http.StatusConflict, "a draw is running for this group; try again when it finishes")
			return models.Group{}, models.Participant{}, false
		}
	}

	ctx, cancel := timeouts.WithShort(r.Context())
	defer cancel()
	p, err := h.Participants.GetParticipant(ctx, chi.URLParam(r, "pid"))
	if errors.Is(err, storeapi.ErrNotFound) || (err == nil && p.GroupID != g.ID) {
		respond.Error(w, http.StatusNotFound, "participant not found")
		return models.Group{}, models.Participant{}, false
	}
	if err != nil {
		h.Log.Error("load participant failed", zap.Error(err))
		respond.Error(w, http.StatusServiceUnavailable, "could not load participant")
		return models.Group{}, models.Participant{}, false
	}
	return g, p, true
}

// HandleApprove handles POST /groups/{id}/participants/{pid}/approve.
func (h *Handler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)
	g, p, ok := h.moderatedParticipant(w, r)
	if !ok {
		return
	}
	if !p.Status.CanTransition(models.ParticipantApproved) {
		respond.Error(w, http.StatusConflict, "participant cannot be approved from status "+string(p.Status))
		return
	}

	ctx, cancel := timeouts.WithShort(r.Context())
	defer cancel()
	approved := models.ParticipantApproved
	updated, err := h.Participants.WriteParticipant(ctx, p.ID, storeapi.ParticipantPatch{Status: &approved})
	if err != nil {
		h.Log.Error("approve participant failed", zap.String("participant_id", p.ID), zap.Error(err))
		respond.Error(w, http.StatusServiceUnavailable, "could not approve participant")
		return
	}
	h.Audit.ParticipantApproved(ctx, r, u.ID, g.ID, p.UserID)
	respond.JSON(w, http.StatusOK, participantView{ID: updated.ID, UserID: updated.UserID, Status: updated.Status})
}

// HandleReject handles POST /groups/{id}/participants/{pid}/reject. A
// rejected participant is deleted.
func (h *Handler) HandleReject(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)
	g, p, ok := h.moderatedParticipant(w, r)
	if !ok {
		return
	}
	if !p.Status.CanTransition(models.ParticipantRejected) {
		respond.Error(w, http.StatusConflict, "participant cannot be rejected from status "+string(p.Status))
		return
	}

	ctx, cancel := timeouts.WithShort(r.Context())
	defer cancel()
	if err := h.Participants.DeleteParticipant(ctx, p.ID); err != nil && !errors.Is(err, storeapi.ErrNotFound) {
		h.Log.Error("reject participant failed", zap.String("participant_id", p.ID), zap.Error(err))
		respond.Error(w, http.StatusServiceUnavailable, "could not reject participant")
		return
	}
	h.Audit.ParticipantRejected(ctx, r, u.ID, g.ID, p.UserID)
	w.WriteHeader(http.StatusNoContent)
}
