// internal/app/features/groups/handler.go
package groups

import (
	"context"

	"github.com/dalemusser/secretsanta/internal/app/store/audit"
	"github.com/dalemusser/secretsanta/internal/app/store/storeapi"
	"github.com/dalemusser/secretsanta/internal/app/system/auditlog"
	"github.com/dalemusser/secretsanta/internal/app/system/auth"
	"github.com/dalemusser/secretsanta/internal/app/system/inputval"
	"github.com/dalemusser/secretsanta/internal/domain/models"
	"go.uber.org/zap"
)

// HistoryLister reads a group's audit trail. *audit.Store satisfies it.
type HistoryLister interface {
	ListByGroup(ctx context.Context, groupID string, limit int64) ([]audit.Event, error)
}

// DrawTracker reports draws running in this process. *drawing.Service
// satisfies it.
type DrawTracker interface {
	Running(groupID string) (runID string, ok bool)
}

// Handler is the shared dependency container for the groups feature.
type Handler struct {
	Participants storeapi.Participants
	Groups       storeapi.Groups
	Users        storeapi.Users
	History      HistoryLister // nil when the backend keeps no audit trail
	Draws        DrawTracker   // nil disables the running-draw check
	Audit        *auditlog.Logger
	Validate     *inputval.Validator
	Log          *zap.Logger
}

// NewHandler constructs a groups Handler over a store backend.
func NewHandler(b storeapi.Backend, history HistoryLister, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Participants: b.Participants,
		Groups:       b.Groups,
		Users:        b.Users,
		History:      history,
		Audit:        audit,
		Validate:     inputval.New(),
		Log:          logger,
	}
}

// moderates reports whether u may manage g.
func moderates(u *auth.SessionUser, g models.Group) bool {
	return u.ID == g.ModeratorID || u.IsAdmin()
}

type groupView struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	ModeratorID string             `json:"moderatorId"`
	IsDrawDone  bool               `json:"isDrawDone"`
	Status      models.GroupStatus `json:"status"`
}

func toGroupView(g models.Group) groupView {
	return groupView{
		ID:          g.ID,
		Name:        g.Name,
		ModeratorID: g.ModeratorID,
		IsDrawDone:  g.IsDrawDone,
		Status:      g.Status,
	}
}

type participantView struct {
	ID       string                   `json:"id"`
	UserID   string                   `json:"userId"`
	UserName string                   `json:"userName"`
	Status   models.ParticipantStatus `json:"status"`
}
