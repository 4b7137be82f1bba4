package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"quickchat/auth"
	"quickchat/errors"
	"quickchat/repositories"
	"quickchat/runtime"
)

type response map[string]any

func (s *Server) respondJSON(w http.ResponseWriter, status int, body response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.log.Error("Encoding response failed", "error", err)
	}
}

func (s *Server) respondError(w http.ResponseWriter, err error, message string) {
	s.respondJSON(w, errors.MapToHTTPStatus(err), response{
		"success": false,
		"message": message,
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("Server is live"))
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req auth.SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, errors.ErrValidation, "malformed body")
		return
	}

	token, user, err := s.accounts.Signup(req)
	if err != nil {
		s.respondError(w, err, err.Error())
		return
	}
	s.respondJSON(w, http.StatusCreated, response{"success": true, "token": token, "user": user})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req auth.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, errors.ErrValidation, "malformed body")
		return
	}

	token, user, err := s.accounts.Login(req)
	if err != nil {
		s.respondError(w, err, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, response{"success": true, "token": token, "user": user})
}

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	user, err := s.accounts.Profile(userIDFrom(r.Context()))
	if err != nil {
		s.respondError(w, err, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, response{"success": true, "user": user})
}

type updateProfileRequest struct {
	DisplayName *string `json:"displayName"`
	Bio         *string `json:"bio"`
	AvatarRef   *string `json:"avatarRef"`
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, errors.ErrValidation, "malformed body")
		return
	}

	user, err := s.accounts.UpdateProfile(userIDFrom(r.Context()), repositories.ProfileUpdate{
		DisplayName: req.DisplayName,
		Bio:         req.Bio,
		AvatarRef:   req.AvatarRef,
	})
	if err != nil {
		s.respondError(w, err, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, response{"success": true, "user": user})
}

func (s *Server) handleSidebar(w http.ResponseWriter, r *http.Request) {
	sidebar, err := s.chat.Sidebar(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		s.respondError(w, err, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, response{
		"success":        true,
		"users":          sidebar.Users,
		"unseenMessages": sidebar.UnseenCounts,
	})
}

// handleHistory returns the conversation with the peer and, as a side
// effect, marks everything the peer sent to the caller as seen.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	peerID := chi.URLParam(r, "id")
	messages, err := s.chat.History(r.Context(), userIDFrom(r.Context()), peerID)
	if err != nil {
		s.respondError(w, err, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, response{"success": true, "messages": messages})
}

type sendRequest struct {
	Text     string `json:"text"`
	ImageRef string `json:"imageRef"`
}

func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, errors.ErrValidation, "malformed body")
		return
	}

	message, err := s.chat.Send(r.Context(), runtime.SendCommand{
		SenderID:   userIDFrom(r.Context()),
		ReceiverID: chi.URLParam(r, "id"),
		Text:       req.Text,
		ImageRef:   req.ImageRef,
	})
	if err != nil {
		s.respondError(w, err, err.Error())
		return
	}
	s.respondJSON(w, http.StatusCreated, response{"success": true, "newMessage": message})
}

func (s *Server) handleMarkSeen(w http.ResponseWriter, r *http.Request) {
	if err := s.chat.MarkSeen(chi.URLParam(r, "id")); err != nil {
		s.respondError(w, err, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, response{"success": true})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		s.respondError(w, errors.ErrValidation, "missing q parameter")
		return
	}

	hits, err := s.chat.Search(r.Context(), userIDFrom(r.Context()), query, s.searchLimit)
	if err != nil {
		s.respondError(w, err, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, response{"success": true, "hits": hits})
}
