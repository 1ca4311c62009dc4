// Package devserver is an in-memory REST backend for exercising the fetch
// primitives locally and in tests.
//
// Routes:
//
//	GET    /health
//	GET    /session          {"authenticated": bool}
//	GET    /users
//	POST   /users
//	GET    /users/{id}
//	PUT    /users/{id}
//	DELETE /users/{id}       409 when the user is locked
package devserver

import (
	"encoding/json"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

// User is the resource served by the dev backend.
type User struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Locked bool   `json:"locked,omitempty"`
}

// Option configures a Server.
type Option func(*Server)

// WithLatency delays every response by d.
func WithLatency(d time.Duration) Option {
	return func(s *Server) { s.latency = d }
}

// WithToken requires "Authorization: Bearer <token>" on writes.
func WithToken(token string) Option {
	return func(s *Server) { s.token = token }
}

// WithLogger sets the request logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithUsers seeds the store.
func WithUsers(users ...User) Option {
	return func(s *Server) {
		for _, u := range users {
			s.users[u.ID] = u
			if u.ID >= s.nextID {
				s.nextID = u.ID + 1
			}
		}
	}
}

// Server holds the in-memory store and its router.
type Server struct {
	mu     sync.RWMutex
	users  map[int]User
	nextID int

	latency time.Duration
	token   string
	logger  zerolog.Logger
	router  *mux.Router
}

// New builds a Server with its routes registered.
func New(opts ...Option) *Server {
	s := &Server{
		users:  make(map[int]User),
		nextID: 1,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := mux.NewRouter()
	r.Use(s.logRequests, s.delay)
	r.HandleFunc("/health", s.health).Methods(http.MethodGet)
	r.HandleFunc("/session", s.session).Methods(http.MethodGet)

	users := r.PathPrefix("/users").Subrouter()
	users.HandleFunc("", s.listUsers).Methods(http.MethodGet)
	users.Handle("", s.requireToken(http.HandlerFunc(s.createUser))).Methods(http.MethodPost)
	users.HandleFunc("/{id:[0-9]+}", s.getUser).Methods(http.MethodGet)
	users.Handle("/{id:[0-9]+}", s.requireToken(http.HandlerFunc(s.updateUser))).Methods(http.MethodPut)
	users.Handle("/{id:[0-9]+}", s.requireToken(http.HandlerFunc(s.deleteUser))).Methods(http.MethodDelete)
	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ------------------------- middleware -------------------------

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("request_id", r.Header.Get("X-Request-ID")).
			Dur("took", time.Since(start)).
			Msg("dev request")
	})
}

func (s *Server) delay(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.latency > 0 {
			select {
			case <-time.After(s.latency):
			case <-r.Context().Done():
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.token != "" && r.Header.Get("Authorization") != "Bearer "+s.token {
			writeError(w, http.StatusUnauthorized, "missing or invalid bearer token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ------------------------- handlers -------------------------

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// session GET /session
func (s *Server) session(w http.ResponseWriter, r *http.Request) {
	auth := r.Header.Get("Authorization")
	ok := strings.HasPrefix(auth, "Bearer ") && (s.token == "" || auth == "Bearer "+s.token)
	writeJSON(w, http.StatusOK, map[string]bool{"authenticated": ok})
}

// listUsers GET /users
func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	out := make([]User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	writeJSON(w, http.StatusOK, out)
}

// createUser POST /users
func (s *Server) createUser(w http.ResponseWriter, r *http.Request) {
	var in User
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if strings.TrimSpace(in.Name) == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	s.mu.Lock()
	in.ID = s.nextID
	s.nextID++
	s.users[in.ID] = in
	s.mu.Unlock()
	writeJSON(w, http.StatusCreated, in)
}

// getUser GET /users/{id}
func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(mux.Vars(r)["id"])
	s.mu.RLock()
	u, ok := s.users[id]
	s.mu.RUnlock()
	if !ok {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// updateUser PUT /users/{id}
func (s *Server) updateUser(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(mux.Vars(r)["id"])
	var in User
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.users[id]
	if !ok {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	if in.Name != "" {
		existing.Name = in.Name
	}
	existing.Locked = in.Locked
	s.users[id] = existing
	writeJSON(w, http.StatusOK, existing)
}

// deleteUser DELETE /users/{id}
func (s *Server) deleteUser(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(mux.Vars(r)["id"])
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	if u.Locked {
		writeError(w, http.StatusConflict, "user is locked")
		return
	}
	delete(s.users, id)
	writeJSON(w, http.StatusOK, u)
}
