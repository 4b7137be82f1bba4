// Package sink provides EventSink implementations bridging the delivery
// path to a transport writer.
package sink

import (
	"fmt"
	"log/slog"

	"quickchat/domain/event"
)

// ErrBufferFull reports a push dropped because the session's writer is not
// keeping up. Per the delivery contract the event is simply lost.
var ErrBufferFull = fmt.Errorf("sink buffer full, event dropped")

// ChannelSink decouples event producers from a (possibly slow) transport
// writer through a bounded buffer. Consume never blocks: when the buffer is
// full the event is dropped and ErrBufferFull returned so the caller can
// log it.
type ChannelSink struct {
	log    *slog.Logger
	events chan event.DomainEvent
}

func NewChannelSink(log *slog.Logger, bufferSize int) *ChannelSink {
	return &ChannelSink{
		log:    log,
		events: make(chan event.DomainEvent, bufferSize),
	}
}

func (s *ChannelSink) Consume(e event.DomainEvent) error {
	select {
	case s.events <- e:
		return nil
	default:
		return ErrBufferFull
	}
}

// Events is read by the transport writer goroutine owning this sink.
func (s *ChannelSink) Events() <-chan event.DomainEvent {
	return s.events
}
