// internal/app/features/groups/groups.go
package groups

import (
	"net/http"

	"github.com/dalemusser/secretsanta/internal/app/system/auth"
	"github.com/dalemusser/secretsanta/internal/app/system/htmlsanitize"
	"github.com/dalemusser/secretsanta/internal/app/system/paging"
	"github.com/dalemusser/secretsanta/internal/app/system/respond"
	"github.com/dalemusser/secretsanta/internal/app/system/timeouts"
	"github.com/dalemusser/secretsanta/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type createGroupInput struct {
	Name string `json:"name" validate:"notblank,max=80"`
}

// ServeList handles GET /groups.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithMedium(r.Context())
	defer cancel()

	gs, err := h.Groups.ListGroups(ctx)
	if err != nil {
		h.Log.Error("list groups failed", zap.Error(err))
		respond.Error(w, http.StatusServiceUnavailable, "could not load groups")
		return
	}
	out := make([]groupView, 0, len(gs))
	for _, g := range gs {
		out = append(out, toGroupView(g))
	}
	respond.JSON(w, http.StatusOK, out)
}

// HandleCreate handles POST /groups. The caller becomes the moderator.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)

	var in createGroupInput
	if err := respond.Decode(w, r, &in); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	in.Name = htmlsanitize.PlainText(in.Name)
	if err := h.Validate.Validate(in); err != nil {
		respond.Invalid(w, err)
		return
	}

	ctx, cancel := timeouts.WithShort(r.Context())
	defer cancel()
	g, err := h.Groups.CreateGroup(ctx, models.Group{Name: in.Name, ModeratorID: u.ID})
	if err != nil {
		h.Log.Error("create group failed", zap.Error(err))
		respond.Error(w, http.StatusServiceUnavailable, "could not create group")
		return
	}
	h.Audit.GroupCreated(ctx, r, u.ID, g.ID, g.Name)
	respond.JSON(w, http.StatusCreated, toGroupView(g))
}

// ServeGroup handles GET /groups/{id}.
func (h *Handler) ServeGroup(w http.ResponseWriter, r *http.Request) {
	g, ok := h.loadGroup(w, r.Context(), chi.URLParam(r, "id"))
	if !ok {
		return
	}
	respond.JSON(w, http.StatusOK, toGroupView(g))
}

// ServeHistory handles GET /groups/{id}/history (moderator only).
func (h *Handler) ServeHistory(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)
	g, ok := h.loadGroup(w, r.Context(), chi.URLParam(r, "id"))
	if !ok {
		return
	}
	if !moderates(u, g) {
		respond.Error(w, http.StatusForbidden, "only the group moderator can view history")
		return
	}
	if h.History == nil {
		respond.JSON(w, http.StatusOK, []any{})
		return
	}

	ctx, cancel := timeouts.WithMedium(r.Context())
	defer cancel()
	events, err := h.History.ListByGroup(ctx, g.ID, paging.ParseLimit(r))
	if err != nil {
		h.Log.Error("list group history failed", zap.String("group_id", g.ID), zap.Error(err))
		respond.Error(w, http.StatusServiceUnavailable, "could not load history")
		return
	}
	respond.JSON(w, http.StatusOK, events)
}
