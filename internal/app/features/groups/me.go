// internal/app/features/groups/me.go
package groups

import (
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

// Caller status values reported by /me.
const (
	MeNotRegistered = "not_registered"
	MePending       = "pending"
	MeApproved      = "approved"
	MeDrawDone      = "draw_done"
)

type gifteeView struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type meResponse struct {
	GroupID   string      `json:"groupId"`
	GroupName string      `json:"groupName"`
	Status    string      `json:"status"`
	Giftee    *gifteeView `json:"giftee,omitempty"`
}

// ServeMe handles GET /groups/{id}/me: the caller's own participation and,
// once the draw is done, who they give to.
func (h *Handler) ServeMe(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)
	g, ok := h.loadGroup(w, r.Context(), chi.URLParam(r, "id"))
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithMedium(r.Context())
	defer cancel()

	resp := meResponse{GroupID: g.ID, GroupName: g.Name, Status: MeNotRegistered}
	ps, err := h.Participants.ListParticipants(ctx, storeapi.ParticipantFilter{GroupID: g.ID, UserID: u.ID})
	if err != nil {
		h.Log.Error("load participation failed", zap.String("group_id", g.ID), zap.Error(err))
		respond.Error(w, http.StatusServiceUnavailable, "could not load your participation")
		return
	}
	if len(ps) == 0 {
		respond.JSON(w, http.StatusOK, resp)
		return
	}

	p := ps[0]
	switch p.Status {
	case models.ParticipantPending:
		resp.Status = MePending
	case models.ParticipantRejected:
		resp.Status = MeNotRegistered
	case models.ParticipantApproved:
		resp.Status = MeApproved
		if g.IsDrawDone && p.HasGiftee() {
			resp.Status = MeDrawDone
			resp.Giftee = &gifteeView{ID: *p.GifteeID}
			giftee, err := h.Users.GetUser(ctx, *p.GifteeID)
			switch {
			case err == nil:
				resp.Giftee.Name = giftee.Name
			case errors.Is(err, storeapi.ErrNotFound):
				h.Log.Warn("giftee user missing", zap.String("user_id", *p.GifteeID))
			default:
				h.Log.Error("load giftee failed", zap.Error(err))
			}
		}
	}
	respond.JSON(w, http.StatusOK, resp)
}
