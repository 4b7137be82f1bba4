// Package client builds a local, render-ready view from pushed events and
// fetched snapshots. It handles unseen bookkeeping and presence; it does
// not own a transport.
package client

import (
	"context"
	"log/slog"
	"sync"

	"quickchat/domain"
)

// ChatAPI is the slice of the server surface the reconciler calls back
// into. Fetching a conversation clears its unread state server-side.
type ChatAPI interface {
	FetchHistory(ctx context.Context, peerID string) ([]domain.Message, error)
	MarkSeen(ctx context.Context, messageID string) error
}

// Reconciler keeps one client's view consistent: the open conversation,
// per-peer unseen counters and the online set. Counters are maintained
// locally from push events; the authoritative recount happens on the next
// sidebar fetch.
type Reconciler struct {
	mu       sync.Mutex
	api      ChatAPI
	log      *slog.Logger
	selfID   string
	openPeer string
	messages []domain.Message
	unseen   map[string]int
	online   map[string]struct{}
}

func NewReconciler(api ChatAPI, log *slog.Logger, selfID string) *Reconciler {
	return &Reconciler{
		api:    api,
		log:    log,
		selfID: selfID,
		unseen: make(map[string]int),
		online: make(map[string]struct{}),
	}
}

// OpenConversation fetches the history with the peer and resets the local
// unseen counter. The server clears the stored unread state as part of the
// fetch.
func (r *Reconciler) OpenConversation(ctx context.Context, peerID string) ([]domain.Message, error) {
	messages, err := r.api.FetchHistory(ctx, peerID)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.openPeer = peerID
	r.messages = messages
	delete(r.unseen, peerID)
	r.mu.Unlock()
	return messages, nil
}

func (r *Reconciler) CloseConversation() {
	r.mu.Lock()
	r.openPeer = ""
	r.messages = nil
	r.mu.Unlock()
}

// HandleMessage processes one pushed message. When its sender's
// conversation is open the message is shown and acknowledged seen,
// best-effort: a failed mark is not retried, the store's idempotent
// contract recovers it later. Otherwise the local counter is bumped
// without contacting the server.
func (r *Reconciler) HandleMessage(ctx context.Context, message domain.Message) {
	r.mu.Lock()
	open := r.openPeer != "" && message.SenderID == r.openPeer
	if open {
		message.Seen = true
		r.messages = append(r.messages, message)
	} else {
		r.unseen[message.SenderID]++
	}
	r.mu.Unlock()

	if open {
		if err := r.api.MarkSeen(ctx, message.ID.String()); err != nil {
			r.log.Debug("Mark seen failed, will recover on next fetch",
				"message", message.ID.String(), "error", err)
		}
	}
}

// HandlePresence replaces the whole online set; snapshots are never diffs.
func (r *Reconciler) HandlePresence(online []string) {
	next := make(map[string]struct{}, len(online))
	for _, userID := range online {
		next[userID] = struct{}{}
	}

	r.mu.Lock()
	r.online = next
	r.mu.Unlock()
}

// SeedUnseen installs the authoritative counts from a sidebar fetch.
func (r *Reconciler) SeedUnseen(counts map[string]int) {
	r.mu.Lock()
	r.unseen = make(map[string]int, len(counts))
	for peerID, count := range counts {
		r.unseen[peerID] = count
	}
	r.mu.Unlock()
}

func (r *Reconciler) IsOnline(userID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.online[userID]
	return ok
}

func (r *Reconciler) UnseenCount(peerID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.unseen[peerID]
}

// Messages snapshots the open conversation.
func (r *Reconciler) Messages() []domain.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Message(nil), r.messages...)
}
