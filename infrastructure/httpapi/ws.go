package httpapi

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"quickchat/domain/event"
	"quickchat/sink"
)

// wsEvent is the wire envelope of the real-time channel. The channel is
// one-way: nothing but the connection itself comes from the client.
type wsEvent struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// handleWebsocket establishes a live session. The caller authenticates
// with a token query parameter (browsers cannot set headers on websocket
// upgrades); the verified user id is attached to the registry until the
// connection drops.
func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	claims, err := s.tokens.Validate(r.URL.Query().Get("token"))
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("Websocket upgrade failed", "user", claims.UserID, "error", err)
		return
	}

	sessionID := uuid.NewString()
	session := sink.NewChannelSink(s.log, s.sinkBufferSize)

	done := make(chan struct{})
	go s.writePump(conn, session, done)

	s.chat.Connect(claims.UserID, sessionID, session)
	s.log.Info("User connected", "user", claims.UserID, "session", sessionID)

	// Read loop: the client sends nothing meaningful, reading only
	// detects the disconnect (and answers control frames).
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	s.chat.Disconnect(claims.UserID, sessionID)
	close(done)
	_ = conn.Close()
	s.log.Info("User disconnected", "user", claims.UserID, "session", sessionID)
}

// writePump serializes every event queued on the session sink to the
// websocket. A write failure ends the pump; the read loop notices the dead
// connection and tears the session down.
func (s *Server) writePump(conn *websocket.Conn, session *sink.ChannelSink, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case e := <-session.Events():
			if err := conn.WriteJSON(encodeEvent(e)); err != nil {
				s.log.Debug("Websocket write failed", "error", err)
				return
			}
		}
	}
}

func encodeEvent(e event.DomainEvent) wsEvent {
	switch evt := e.(type) {
	case event.MessageReceived:
		return wsEvent{Event: evt.EventName(), Data: evt.Message}
	case event.PresenceSnapshot:
		return wsEvent{Event: evt.EventName(), Data: evt.Online}
	default:
		return wsEvent{Event: e.EventName()}
	}
}
