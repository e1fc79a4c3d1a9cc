// internal/domain/models/user.go
package models

import (
	"time"
)

// User roles.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// User is a registered person. Group membership is not embedded;
// use the participants collection to discover a user's groups.
type User struct {
	ID           string `bson:"_id" json:"id"`
	Name         string `bson:"name" json:"name"`
	NameCI       string `bson:"name_ci" json:"-"`
	Email        string `bson:"email" json:"email"`
	PasswordHash string `bson:"password_hash" json:"passwordHash,omitempty"`
	Role         string `bson:"role" json:"role"` // admin | user

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}
