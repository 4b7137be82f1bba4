// Package domain contains core concepts of the messaging system.
// This file defines the Message entity and its rules.
// Messages are created once, flipped to seen at most once, never deleted.
package domain

import (
	"time"

	"github.com/google/uuid"

	"quickchat/errors"
)

// Message represents a one-to-one chat message.
// ID and CreatedAt are assigned by the store on append.
type Message struct {
	ID         uuid.UUID `json:"id"`
	SenderID   string    `json:"senderId"`
	ReceiverID string    `json:"receiverId"`
	Text       string    `json:"text,omitempty"`
	ImageRef   string    `json:"imageRef,omitempty"`
	Seen       bool      `json:"seen"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Validate enforces the send invariants: both parties identified and at
// least one of Text/ImageRef present.
func (m Message) Validate() error {
	if m.SenderID == "" {
		return errors.Validationf("senderId is empty")
	}
	if m.ReceiverID == "" {
		return errors.Validationf("receiverId is empty")
	}
	if m.Text == "" && m.ImageRef == "" {
		return errors.Validationf("message needs a text or an image reference")
	}
	return nil
}
