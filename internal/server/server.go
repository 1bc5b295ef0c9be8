package server

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/lazypower/nanobrain/internal/engine"
)

// apiKeyHeader carries the shared secret for privileged routes.
const apiKeyHeader = "X-API-KEY"

// Server is the nanobrain HTTP API server.
type Server struct {
	engine   *engine.Engine
	router   chi.Router
	apiKey   string
	version  string
	started  time.Time
	upgrader websocket.Upgrader
	log      zerolog.Logger
}

// New creates a new Server. An empty apiKey locks every privileged route.
func New(eng *engine.Engine, apiKey, version string, log zerolog.Logger) *Server {
	s := &Server{
		engine:  eng,
		apiKey:  apiKey,
		version: version,
		started: time.Now(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		log: log.With().Str("component", "http").Logger(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(requestID)
	r.Use(s.accessLog)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Post("/chat", s.handleChat)
		r.Get("/memory", s.handleMemory)
		r.Get("/ws", s.handleWebSocket)

		r.Group(func(r chi.Router) {
			r.Use(s.requireKey)
			r.Post("/teach", s.handleTeach)
			r.Post("/set_tone", s.handleSetTone)
			r.Get("/users", s.handleUsers)
			r.Post("/save", s.handleSave)
		})
	})

	r.Handle("/metrics", promhttp.Handler())

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
		"uptime":  time.Since(s.started).Seconds(),
		"store":   s.engine.Describe(),
	})
}

// authorized reports whether r carries the configured API key.
func (s *Server) authorized(r *http.Request) bool {
	if s.apiKey == "" {
		return false
	}
	got := r.Header.Get(apiKeyHeader)
	return subtle.ConstantTimeCompare([]byte(got), []byte(s.apiKey)) == 1
}

func (s *Server) requireKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.authorized(r) {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
