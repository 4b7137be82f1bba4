// Package httpapi exposes the request/response surface and the real-time
// channel. All domain decisions live in the services; this layer only
// decodes, authenticates and encodes.
package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"

	"quickchat/auth"
	"quickchat/services"
)

type Server struct {
	log            *slog.Logger
	chat           services.IChatService
	accounts       services.IAuthService
	tokens         *auth.TokenManager
	upgrader       websocket.Upgrader
	sinkBufferSize int
	searchLimit    int
	allowedOrigins []string
}

func NewServer(log *slog.Logger, chat services.IChatService, accounts services.IAuthService,
	tokens *auth.TokenManager, sinkBufferSize, searchLimit int, allowedOrigins []string) *Server {
	return &Server{
		log:      log,
		chat:     chat,
		accounts: accounts,
		tokens:   tokens,
		upgrader: websocket.Upgrader{
			// Browser origins are already filtered by the CORS layer;
			// the upgrade itself authenticates via token.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		sinkBufferSize: sinkBufferSize,
		searchLimit:    searchLimit,
		allowedOrigins: allowedOrigins,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/api/status", s.handleStatus)

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/signup", s.handleSignup)
		r.Post("/login", s.handleLogin)
		r.Group(func(r chi.Router) {
			r.Use(s.authenticate)
			r.Get("/check", s.handleCheck)
			r.Put("/update-profile", s.handleUpdateProfile)
		})
	})

	r.Route("/api/messages", func(r chi.Router) {
		r.Use(s.authenticate)
		r.Get("/users", s.handleSidebar)
		r.Get("/search", s.handleSearch)
		r.Get("/{id}", s.handleHistory)
		r.Post("/send/{id}", s.handleSend)
		r.Put("/mark/{id}", s.handleMarkSeen)
	})

	r.Get("/ws", s.handleWebsocket)
	return r
}
