package handler

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"eventchat/internal/auth"
	"eventchat/internal/config"
	"eventchat/internal/model"
	"eventchat/internal/moderation"
	"eventchat/internal/store"
)

// Handler holds application dependencies
type Handler struct {
	Store     store.Store
	Auth      *auth.Authenticator
	Filter    *moderation.Filter
	Config    config.Config
	Clients   map[*websocket.Conn]int64 // conn -> event id
	ClientMu  sync.RWMutex
	Broadcast chan model.ChangeEvent

	validate *validator.Validate
	now      func() time.Time
}

// New creates a new Handler with the given dependencies
func New(s store.Store, a *auth.Authenticator, f *moderation.Filter, cfg config.Config) *Handler {
	return &Handler{
		Store:     s,
		Auth:      a,
		Filter:    f,
		Config:    cfg,
		Clients:   make(map[*websocket.Conn]int64),
		Broadcast: make(chan model.ChangeEvent, 100),
		validate:  validator.New(),
		now:       time.Now,
	}
}

// SetupRouter configures and returns the HTTP router
func (h *Handler) SetupRouter() *mux.Router {
	r := mux.NewRouter()
	r.Use(requestLogger)

	// Page
	r.HandleFunc("/chat/{eventId:[0-9]+}/", h.Page).Methods("GET")

	// JSON API
	r.HandleFunc("/chat/{eventId:[0-9]+}/messages/", h.GetMessages).Methods("GET")
	r.HandleFunc("/chat/{eventId:[0-9]+}/send/", h.SendMessage).Methods("POST")
	r.HandleFunc("/chat/message/{messageId:[0-9]+}/delete/", h.DeleteMessage).Methods("POST")

	// WebSocket
	r.HandleFunc("/chat/{eventId:[0-9]+}/ws", h.HandleWebSocket).Methods("GET")

	return r
}

// requestLogger tags every request with an id and puts a logger carrying it
// in the request context.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		lg := log.With().Str("request_id", id).Str("remote", r.RemoteAddr).Logger()
		next.ServeHTTP(w, r.WithContext(lg.WithContext(r.Context())))
	})
}

func logger(r *http.Request) *zerolog.Logger {
	return zerolog.Ctx(r.Context())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
