// internal/app/store/storeapi/storeapi.go
//
// Package storeapi declares the collaborator contract for participant, group
// and user persistence. Two backends implement it: the remote key-collection
// HTTP store and the MongoDB stores.
package storeapi

import (
	"context"
	"errors"

	"github.com/dalemusser/secretsanta/internal/domain/models"
)

var (
	// ErrNotFound is returned when the addressed record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrVersionConflict is returned by a conditional group write whose
	// expected version no longer matches.
	ErrVersionConflict = errors.New("group was modified concurrently")

	// ErrUnavailable wraps network failures and timeouts talking to the store.
	ErrUnavailable = errors.New("store unavailable")

	// ErrDuplicate is returned when a unique constraint would be violated.
	ErrDuplicate = errors.New("record already exists")
)

// ParticipantFilter narrows ListParticipants. Zero fields are ignored.
type ParticipantFilter struct {
	GroupID string
	UserID  string
	Status  models.ParticipantStatus
}

// Matches reports whether p satisfies the filter.
func (f ParticipantFilter) Matches(p models.Participant) bool {
	if f.GroupID != "" && p.GroupID != f.GroupID {
		return false
	}
	if f.UserID != "" && p.UserID != f.UserID {
		return false
	}
	if f.Status != "" && p.Status != f.Status {
		return false
	}
	return true
}

// ParticipantPatch is a partial participant update. Nil fields are left
// unchanged; ClearGiftee sets giftee to null and wins over GifteeID.
type ParticipantPatch struct {
	Status      *models.ParticipantStatus
	GifteeID    *string
	ClearGiftee bool
}

// Apply returns p with the patch applied.
func (pp ParticipantPatch) Apply(p models.Participant) models.Participant {
	if pp.Status != nil {
		p.Status = *pp.Status
	}
	switch {
	case pp.ClearGiftee:
		p.GifteeID = nil
	case pp.GifteeID != nil:
		g := *pp.GifteeID
		p.GifteeID = &g
	}
	return p
}

// GroupPatch is a partial group update. When IfVersion is set the write only
// succeeds if the stored version still equals it.
type GroupPatch struct {
	IsDrawDone *bool
	Status     *models.GroupStatus
	IfVersion  *int64
}

// Apply returns g with the patch applied. Version handling is left to the
// backend.
func (gp GroupPatch) Apply(g models.Group) models.Group {
	if gp.IsDrawDone != nil {
		g.IsDrawDone = *gp.IsDrawDone
	}
	if gp.Status != nil {
		g.Status = *gp.Status
	}
	return g
}

// Participants is the participant half of the collaborator.
type Participants interface {
	ListParticipants(ctx context.Context, f ParticipantFilter) ([]models.Participant, error)
	GetParticipant(ctx context.Context, id string) (models.Participant, error)
	CreateParticipant(ctx context.Context, p models.Participant) (models.Participant, error)
	WriteParticipant(ctx context.Context, id string, patch ParticipantPatch) (models.Participant, error)
	DeleteParticipant(ctx context.Context, id string) error
}

// Groups is the group half of the collaborator.
type Groups interface {
	GetGroup(ctx context.Context, id string) (models.Group, error)
	ListGroups(ctx context.Context) ([]models.Group, error)
	CreateGroup(ctx context.Context, g models.Group) (models.Group, error)
	WriteGroup(ctx context.Context, id string, patch GroupPatch) (models.Group, error)
}

// Users is the user collaborator used by login, registration and the
// participant views.
type Users interface {
	GetUser(ctx context.Context, id string) (models.User, error)
	GetUserByEmail(ctx context.Context, email string) (models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	CreateUser(ctx context.Context, u models.User) (models.User, error)
	DeleteUser(ctx context.Context, id string) error
}

// Pinger is implemented by backends that can report connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Backend bundles one implementation of each collaborator.
type Backend struct {
	Participants Participants
	Groups       Groups
	Users        Users
	Pinger       Pinger
}
