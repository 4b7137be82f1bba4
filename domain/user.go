package domain

import "time"

// User is the profile attached to an identity. Credentials never leave the
// auth boundary; the messaging core only ever sees the ID.
type User struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"displayName"`
	Bio         string    `json:"bio,omitempty"`
	AvatarRef   string    `json:"avatarRef,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}
