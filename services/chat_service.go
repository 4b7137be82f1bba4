package services

import (
	"context"
	"log/slog"

	"quickchat/contract"
	"quickchat/domain"
	"quickchat/domain/event"
	"quickchat/repositories"
	"quickchat/runtime"
	"quickchat/search"
)

type IChatService interface {
	Send(ctx context.Context, cmd runtime.SendCommand) (domain.Message, error)
	History(ctx context.Context, selfID, peerID string) ([]domain.Message, error)
	MarkSeen(messageID string) error
	Sidebar(ctx context.Context, selfID string) (Sidebar, error)
	Search(ctx context.Context, selfID, query string, limit int) ([]search.Hit, error)
	Connect(userID, sessionID string, s contract.EventSink)
	Disconnect(userID, sessionID string)
}

// Sidebar is the contact list with its unread badge counts.
type Sidebar struct {
	Users        []domain.User  `json:"users"`
	UnseenCounts map[string]int `json:"unseenMessages"`
}

type ChatService struct {
	log        *slog.Logger
	dispatcher *runtime.Dispatcher
	registry   contract.IRegistry
	messages   repositories.IMessageRepository
	users      repositories.IUserRepository
	aggregator *UnseenAggregator
	index      *search.Index
}

func NewChatService(log *slog.Logger, dispatcher *runtime.Dispatcher,
	registry contract.IRegistry, messages repositories.IMessageRepository,
	users repositories.IUserRepository, aggregator *UnseenAggregator,
	index *search.Index) *ChatService {
	return &ChatService{
		log:        log,
		dispatcher: dispatcher,
		registry:   registry,
		messages:   messages,
		users:      users,
		aggregator: aggregator,
		index:      index,
	}
}

// Send routes the command through the dispatcher, then feeds the search
// index. Index failures are logged, never surfaced: "sent" only means
// durably stored.
func (s *ChatService) Send(ctx context.Context, cmd runtime.SendCommand) (domain.Message, error) {
	message, err := s.dispatcher.Send(ctx, cmd)
	if err != nil {
		return domain.Message{}, err
	}

	if s.index != nil {
		if err := s.index.IndexMessage(message); err != nil {
			s.log.Warn("Indexing message failed", "message", message.ID.String(), "error", err)
		}
	}
	return message, nil
}

// History returns the full conversation with the peer, ascending, and
// clears the unread state for messages the peer sent to the caller.
func (s *ChatService) History(_ context.Context, selfID, peerID string) ([]domain.Message, error) {
	messages, err := s.messages.Conversation(selfID, peerID)
	if err != nil {
		return nil, err
	}

	if _, err := s.messages.MarkAllSeenFrom(peerID, selfID); err != nil {
		return nil, err
	}
	return messages, nil
}

func (s *ChatService) MarkSeen(messageID string) error {
	return s.messages.MarkSeen(messageID)
}

// Sidebar lists every other user together with the unseen counts computed
// by the aggregator.
func (s *ChatService) Sidebar(ctx context.Context, selfID string) (Sidebar, error) {
	users, err := s.users.ListOthers(selfID)
	if err != nil {
		return Sidebar{}, err
	}

	counts, err := s.aggregator.UnseenCounts(ctx, selfID)
	if err != nil {
		return Sidebar{}, err
	}
	return Sidebar{Users: users, UnseenCounts: counts}, nil
}

func (s *ChatService) Search(ctx context.Context, selfID, query string, limit int) ([]search.Hit, error) {
	return s.index.Search(ctx, selfID, query, limit)
}

// Connect attaches the session to the registry and immediately hands the
// newcomer a presence snapshot, so it does not have to wait for the next
// mutation to learn who is online.
func (s *ChatService) Connect(userID, sessionID string, sink contract.EventSink) {
	s.registry.Register(userID, sessionID, sink)

	if err := sink.Consume(event.PresenceSnapshot{Online: s.registry.ListOnline()}); err != nil {
		s.log.Debug("Initial presence snapshot dropped", "user", userID, "error", err)
	}
}

// Disconnect removes the session only if it is still the user's current
// one: a reconnect may already have replaced it, and tearing down the old
// transport must not evict the new session.
func (s *ChatService) Disconnect(userID, sessionID string) {
	if session, ok := s.registry.Lookup(userID); ok && session.SessionID == sessionID {
		s.registry.Unregister(userID)
	}
}

var _ IChatService = (*ChatService)(nil)
