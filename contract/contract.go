package contract

import (
	"context"
	"reflect"

	"quickchat/domain/event"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

type WorkerName string

// Worker doesn't protect itself.
// Can be silly, focused.
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// Used for logging and supervision, avoiding manual naming in the
// Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// EventSink is one live delivery channel towards a connected client.
// Consume must not block: delivery is best-effort and unacknowledged.
type EventSink interface {
	Consume(e event.DomainEvent) error
}

// Session binds a transport session id to its delivery sink.
type Session struct {
	SessionID string
	Sink      EventSink
}

// IRegistry tracks which users currently hold a live session.
// At most one session per user; a reconnect replaces the previous one.
type IRegistry interface {
	Register(userID, sessionID string, sink EventSink)
	Unregister(userID string)
	Lookup(userID string) (Session, bool)
	ListOnline() []string
}
