// Package runtime owns the live-session state and the message delivery
// path. It orchestrates the system without containing storage or transport
// details.
package runtime

import (
	"log/slog"
	"sort"
	"sync"

	"quickchat/contract"
)

// Registry maps each user to at most one live transport session. It is the
// only shared mutable structure on the connect/disconnect path; a single
// RWMutex serializes all mutations while reads work on snapshots.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]contract.Session
	changes  chan struct{}
	log      *slog.Logger
}

func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{
		sessions: make(map[string]contract.Session),
		// Capacity one: consecutive mutations coalesce into a single
		// pending presence broadcast.
		changes: make(chan struct{}, 1),
		log:     log,
	}
}

// Register binds a user to a session, replacing any previous one. An empty
// user id is ignored. Every accepted mutation signals the presence fanout.
func (r *Registry) Register(userID, sessionID string, sink contract.EventSink) {
	if userID == "" {
		r.log.Warn("Ignoring registration without user id", "session", sessionID)
		return
	}

	r.mu.Lock()
	if previous, ok := r.sessions[userID]; ok {
		// One session per user: a reconnect silently evicts the old
		// mapping, whether it came from a retry or another device.
		r.log.Info("Replacing live session", "user", userID, "old", previous.SessionID, "new", sessionID)
	}
	r.sessions[userID] = contract.Session{SessionID: sessionID, Sink: sink}
	r.mu.Unlock()

	r.notify()
}

// Unregister drops the user's session if present. Calling it for an absent
// user is a no-op and does not signal the fanout.
func (r *Registry) Unregister(userID string) {
	r.mu.Lock()
	_, present := r.sessions[userID]
	if present {
		delete(r.sessions, userID)
	}
	r.mu.Unlock()

	if present {
		r.notify()
	}
}

// Lookup is a pure read of the user's current session.
func (r *Registry) Lookup(userID string) (contract.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	session, ok := r.sessions[userID]
	return session, ok
}

// ListOnline returns a sorted snapshot of every user holding a live session.
func (r *Registry) ListOnline() []string {
	r.mu.RLock()
	online := make([]string, 0, len(r.sessions))
	for userID := range r.sessions {
		online = append(online, userID)
	}
	r.mu.RUnlock()

	sort.Strings(online)
	return online
}

// Sinks snapshots every live delivery channel, for full broadcasts.
func (r *Registry) Sinks() []contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sinks := make([]contract.EventSink, 0, len(r.sessions))
	for _, session := range r.sessions {
		sinks = append(sinks, session.Sink)
	}
	return sinks
}

// Changes exposes the coalesced mutation signal consumed by the presence
// fanout worker.
func (r *Registry) Changes() <-chan struct{} {
	return r.changes
}

func (r *Registry) notify() {
	select {
	case r.changes <- struct{}{}:
	default:
		// A broadcast is already pending; it will pick up this
		// mutation from the next ListOnline snapshot.
	}
}

var _ contract.IRegistry = (*Registry)(nil)
