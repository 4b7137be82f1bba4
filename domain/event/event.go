// Package event defines the server-to-client events pushed over a live
// session. Event names are part of the wire contract.
package event

import "quickchat/domain"

type DomainEvent interface {
	EventName() string
}

// MessageReceived carries a freshly persisted message to its receiver.
type MessageReceived struct {
	Message domain.Message
}

func (MessageReceived) EventName() string {
	return "newMessage"
}

// PresenceSnapshot carries the full set of currently online user ids.
// Always a complete snapshot, never a diff.
type PresenceSnapshot struct {
	Online []string
}

func (PresenceSnapshot) EventName() string {
	return "getOnlineUsers"
}
