package runtime

import (
	"context"
	"log/slog"

	"quickchat/contract"
	"quickchat/domain"
	"quickchat/domain/event"
	"quickchat/moderation"
	"quickchat/repositories"
)

// SendCommand is the sending intent as received from the API layer.
type SendCommand struct {
	SenderID   string
	ReceiverID string
	Text       string
	ImageRef   string
}

// Dispatcher turns a send command into a persisted message and, when the
// receiver holds a live session, a single push attempt.
//
// "Sent" means durably stored, not delivered: the push is fire-and-forget,
// never acknowledged and never retried. There is no idempotency key on this
// path, so a caller retrying a failed Send can create a duplicate message.
type Dispatcher struct {
	log       *slog.Logger
	registry  contract.IRegistry
	messages  repositories.IMessageRepository
	moderator *moderation.Moderator
}

func NewDispatcher(log *slog.Logger, registry contract.IRegistry,
	messages repositories.IMessageRepository, moderator *moderation.Moderator) *Dispatcher {
	return &Dispatcher{log: log, registry: registry, messages: messages, moderator: moderator}
}

// Send validates, persists, then maybe pushes. Persistence must succeed
// before any delivery attempt; a failed push is logged and absorbed.
func (d *Dispatcher) Send(_ context.Context, cmd SendCommand) (domain.Message, error) {
	message := domain.Message{
		SenderID:   cmd.SenderID,
		ReceiverID: cmd.ReceiverID,
		Text:       cmd.Text,
		ImageRef:   cmd.ImageRef,
	}
	if err := message.Validate(); err != nil {
		return domain.Message{}, err
	}

	if d.moderator != nil && message.Text != "" {
		message.Text = d.moderator.Censor(message.Text)
	}

	stored, err := d.messages.Append(message)
	if err != nil {
		return domain.Message{}, err
	}

	if session, ok := d.registry.Lookup(stored.ReceiverID); ok {
		if err := session.Sink.Consume(event.MessageReceived{Message: stored}); err != nil {
			// Best-effort push: the message stays persisted and
			// unseen, the receiver recovers it on the next fetch.
			d.log.Warn("Push delivery failed",
				"message", stored.ID.String(),
				"receiver", stored.ReceiverID,
				"session", session.SessionID,
				"error", err)
		}
	}

	return stored, nil
}
