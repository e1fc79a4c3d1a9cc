// internal/app/features/drawing/handler.go
package drawing

import (
	"context"
	"errors"
	"net/http"

	"github.com/dalemusser/secretsanta/internal/app/store/storeapi"
	"github.com/dalemusser/secretsanta/internal/app/system/auth"
	"github.com/dalemusser/secretsanta/internal/app/system/draw"
	"github.com/dalemusser/secretsanta/internal/app/system/respond"
	"github.com/dalemusser/secretsanta/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Handler exposes PerformDraw over HTTP.
type Handler struct {
	Service *Service
	Groups  storeapi.Groups
	Log     *zap.Logger
}

func NewHandler(svc *Service, groups storeapi.Groups, logger *zap.Logger) *Handler {
	return &Handler{Service: svc, Groups: groups, Log: logger}
}

type drawResponse struct {
	RunID         string `json:"runId"`
	Total         int    `json:"total"`
	SuccessCount  int    `json:"successCount"`
	FailureCount  int    `json:"failureCount"`
	ResetFailures int    `json:"resetFailures"`
	IsDrawDone    bool   `json:"isDrawDone"`
	Retry         bool   `json:"retry"`
	Summary       string `json:"summary"`
}

// HandleDraw handles POST /groups/{id}/draw. Only the group's moderator or an
// admin may draw. The response never includes the assignment.
func (h *Handler) HandleDraw(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	groupID := chi.URLParam(r, "id")

	lookupCtx, cancel := timeouts.WithShort(r.Context())
	g, err := h.Groups.GetGroup(lookupCtx, groupID)
	cancel()
	switch {
	case errors.Is(err, storeapi.ErrNotFound):
		respond.Error(w, http.StatusNotFound, "group not found")
		return
	case err != nil:
		h.Log.Error("draw: load group failed", zap.String("group_id", groupID), zap.Error(err))
		respond.Error(w, http.StatusServiceUnavailable, "could not load group")
		return
	}
	if g.ModeratorID != u.ID && !u.IsAdmin() {
		respond.Error(w, http.StatusForbidden, "only the group moderator can run the draw")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Draw())
	defer cancel()
	res, err := h.Service.PerformDraw(ctx, groupID)

	body := drawResponse{
		RunID:         res.RunID,
		Total:         res.Total,
		SuccessCount:  res.SuccessCount,
		FailureCount:  res.FailureCount,
		ResetFailures: res.ResetFailures,
		IsDrawDone:    res.Finalized,
	}

	var ve *draw.ValidationError
	switch {
	case err == nil:
		body.Summary = res.Summary()
		respond.JSON(w, http.StatusOK, body)
	case IsPartialFailure(err):
		body.Retry = true
		body.Summary = res.Summary()
		respond.JSON(w, http.StatusOK, body)
	case errors.Is(err, ErrGroupNotFound):
		respond.Error(w, http.StatusNotFound, "group not found")
	case errors.As(err, &ve):
		respond.Error(w, http.StatusUnprocessableEntity, ve.Err.Error())
	case errors.Is(err, ErrDrawInProgress), errors.Is(err, storeapi.ErrVersionConflict):
		respond.Error(w, http.StatusConflict, "another draw changed this group; reload and try again")
	case errors.Is(err, draw.ErrUnsatisfiable):
		body.Retry = true
		body.Summary = "No valid assignment was found. Run the draw again."
		respond.JSON(w, http.StatusOK, body)
	default:
		h.Log.Error("draw failed", zap.String("group_id", groupID), zap.String("run_id", res.RunID), zap.Error(err))
		respond.Error(w, http.StatusServiceUnavailable, "the draw could not be completed; try again")
	}
}
