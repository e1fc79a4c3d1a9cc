// internal/app/features/systemusers/list.go
package systemusers

import (
	"net/http"

	"github.com/dalemusser/secretsanta/internal/app/system/respond"
	"github.com/dalemusser/secretsanta/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// ServeList handles GET /admin/users.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithMedium(r.Context())
	defer cancel()

	us, err := h.Users.ListUsers(ctx)
	if err != nil {
		h.Log.Error("list users failed", zap.Error(err))
		respond.Error(w, http.StatusServiceUnavailable, "could not load users")
		return
	}
	out := make([]userView, 0, len(us))
	for _, u := range us {
		out = append(out, userView{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role})
	}
	respond.JSON(w, http.StatusOK, out)
}
