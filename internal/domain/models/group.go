// internal/domain/models/group.go
package models

import (
	"fmt"
	"time"
)

// GroupStatus is the lifecycle state of a gift exchange.
type GroupStatus string

const (
	GroupOpen  GroupStatus = "open"
	GroupDrawn GroupStatus = "drawn"
)

// ParseGroupStatus maps a stored string onto the closed set of group states.
// An empty string is treated as open, which is how groups are created by
// the remote store before the first write.
func ParseGroupStatus(s string) (GroupStatus, error) {
	switch GroupStatus(s) {
	case GroupOpen, "":
		return GroupOpen, nil
	case GroupDrawn:
		return GroupDrawn, nil
	default:
		return "", fmt.Errorf("unknown group status %q", s)
	}
}

// Group is the gift-exchange event.
//
// NOTE:
//   - Status and IsDrawDone are redundant; Consistent reports whether they agree.
//   - Version is bumped by every store write and is used as an optimistic
//     concurrency token when a draw finalizes the group.
type Group struct {
	ID          string      `bson:"_id" json:"id"`
	Name        string      `bson:"name" json:"name"`
	NameCI      string      `bson:"name_ci" json:"-"`
	ModeratorID string      `bson:"moderator_id" json:"moderatorId"`
	IsDrawDone  bool        `bson:"is_draw_done" json:"isDrawDone"`
	Status      GroupStatus `bson:"status" json:"status"`
	Version     int64       `bson:"version" json:"version"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// Consistent reports whether Status agrees with IsDrawDone.
func (g Group) Consistent() bool {
	switch g.Status {
	case GroupOpen:
		return !g.IsDrawDone
	case GroupDrawn:
		return g.IsDrawDone
	default:
		return false
	}
}
