package workers

import (
	"context"
	"log/slog"

	"quickchat/contract"
	"quickchat/domain/event"
)

// PresenceView is the slice of the registry the fanout needs: the mutation
// signal and the means to snapshot and reach every live session.
type PresenceView interface {
	ListOnline() []string
	Sinks() []contract.EventSink
	Changes() <-chan struct{}
}

// PresenceFanout broadcasts the full online-user set to every connected
// session after each registry mutation.
//
// Delivery is best-effort with no guarantees regarding ordering relative to
// in-flight message pushes, and no retries. A session that misses a
// snapshot is corrected by the next mutation or by the snapshot sent at
// connection establishment.
type PresenceFanout struct {
	log      *slog.Logger
	registry PresenceView
}

func NewPresenceFanout(log *slog.Logger, registry PresenceView) *PresenceFanout {
	return &PresenceFanout{log: log, registry: registry}
}

func (w *PresenceFanout) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping presence fanout")
			return nil
		case <-w.registry.Changes():
			w.broadcast()
		}
	}
}

// broadcast snapshots the online set once and pushes the same event to
// every sink. Always the full set, never a diff.
func (w *PresenceFanout) broadcast() {
	snapshot := event.PresenceSnapshot{Online: w.registry.ListOnline()}
	for _, sink := range w.registry.Sinks() {
		if err := sink.Consume(snapshot); err != nil {
			w.log.Debug("Presence snapshot dropped", "error", err)
		}
	}
}
