// internal/app/features/systemusers/routes.go
package systemusers

import (
	"github.com/dalemusser/secretsanta/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the user administration routes (typically under
// "/admin/users" from bootstrap).
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		// Only signed-in admins can manage users.
		pr.Use(auth.RequireSignedIn)
		pr.Use(auth.RequireAdmin)

		pr.Get("/", h.ServeList)
		pr.Delete("/{id}", h.HandleDelete)
	})

	return r
}
