// internal/domain/models/participant.go
package models

import (
	"fmt"
	"time"
)

// ParticipantStatus is the moderation state of a participant.
type ParticipantStatus string

const (
	ParticipantPending  ParticipantStatus = "pending"
	ParticipantApproved ParticipantStatus = "approved"
	ParticipantRejected ParticipantStatus = "rejected"
)

// ParseParticipantStatus maps a stored string onto the closed set of
// participant states.
func ParseParticipantStatus(s string) (ParticipantStatus, error) {
	switch ParticipantStatus(s) {
	case ParticipantPending:
		return ParticipantPending, nil
	case ParticipantApproved:
		return ParticipantApproved, nil
	case ParticipantRejected:
		return ParticipantRejected, nil
	default:
		return "", fmt.Errorf("unknown participant status %q", s)
	}
}

// CanTransition reports whether a moderator may move a participant from
// s to next. Approved participants never go back to pending.
func (s ParticipantStatus) CanTransition(next ParticipantStatus) bool {
	switch s {
	case ParticipantPending:
		return next == ParticipantApproved || next == ParticipantRejected
	case ParticipantApproved:
		return next == ParticipantRejected
	case ParticipantRejected:
		return false
	default:
		return false
	}
}

// Participant is one user's membership in one group.
// GifteeID is nil until a draw assigns a receiver.
type Participant struct {
	ID       string            `bson:"_id" json:"id"`
	UserID   string            `bson:"user_id" json:"userId"`
	GroupID  string            `bson:"group_id" json:"groupId"`
	Status   ParticipantStatus `bson:"status" json:"status"`
	GifteeID *string           `bson:"giftee_id" json:"gifteeId"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// HasGiftee reports whether a receiver has been assigned.
func (p Participant) HasGiftee() bool {
	return p.GifteeID != nil && *p.GifteeID != ""
}
