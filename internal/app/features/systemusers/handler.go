// internal/app/features/systemusers/handler.go
package systemusers

import (
	"github.com/dalemusser/secretsanta/internal/app/store/storeapi"
	"go.uber.org/zap"
)

type Handler struct {
	Users        storeapi.Users
	Groups       storeapi.Groups
	Participants storeapi.Participants
	Log          *zap.Logger
}

// NewHandler constructs the admin user-management handler.
func NewHandler(b storeapi.Backend, logger *zap.Logger) *Handler {
	return &Handler{
		Users:        b.Users,
		Groups:       b.Groups,
		Participants: b.Participants,
		Log:          logger,
	}
}

type userView struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}
