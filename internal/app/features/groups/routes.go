// internal/app/features/groups/routes.go
package groups

import (
	"github.com/dalemusser/secretsanta/internal/app/features/drawing"
	"github.com/dalemusser/secretsanta/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

func Routes(h *Handler, dh *drawing.Handler) chi.Router {
	r := chi.NewRouter()

	// Everything under /groups requires authentication
	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireSignedIn)

		pr.Get("/", h.ServeList)
		pr.Post("/", h.HandleCreate)
		pr.Get("/{id}", h.ServeGroup)
		pr.Get("/{id}/me", h.ServeMe)
		pr.Post("/{id}/join", h.HandleJoin)

		// Moderator
		pr.Get("/{id}/participants", h.ServeParticipants)
		pr.Post("/{id}/participants/{pid}/approve", h.HandleApprove)
		pr.Post("/{id}/participants/{pid}/reject", h.HandleReject)
		pr.Get("/{id}/history", h.ServeHistory)
		pr.Post("/{id}/draw", dh.HandleDraw)
	})

	return r
}
