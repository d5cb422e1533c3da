// Package web provides the development GraphQL server that backs the ct
// commands with a local SQLite database.
package web

import (
	"crypto/subtle"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/evcraddock/collective-threads/internal/comment"
	"github.com/evcraddock/collective-threads/internal/logging"
)

// Server is the development API server.
type Server struct {
	repo    *comment.Repository
	apiKey  string
	mux     *http.ServeMux
	handler http.Handler
}

// NewServer creates a server over db. When apiKey is non-empty, mutations
// and authenticated health checks must present it as a bearer token.
func NewServer(db *sql.DB, apiKey string) *Server {
	s := &Server{
		repo:   comment.NewRepository(db),
		apiKey: apiKey,
		mux:    http.NewServeMux(),
	}

	s.mux.HandleFunc("/graphql", s.handleGraphQL)
	s.mux.HandleFunc("/health", s.handleHealth)

	s.handler = logging.RequestLogger(s.mux)
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe(port int) error {
	addr := fmt.Sprintf(":%d", port)
	slog.Info("starting dev server", "addr", "http://localhost"+addr, "auth", s.apiKey != "")
	return http.ListenAndServe(addr, s)
}

// handleHealth reports liveness. A bearer token, when sent, must be valid so
// that `ct status` can verify its key.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		apiError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if r.Header.Get("Authorization") != "" && !s.authorized(r) {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	apiJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
}

// authorized reports whether r carries the configured key. With no key
// configured every request is authorized.
func (s *Server) authorized(r *http.Request) bool {
	if s.apiKey == "" {
		return true
	}
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return false
	}
	key := strings.TrimPrefix(authHeader, "Bearer ")
	return subtle.ConstantTimeCompare([]byte(key), []byte(s.apiKey)) == 1
}

// apiError writes a JSON error response.
func apiError(w http.ResponseWriter, msg string, code int) {
	apiJSON(w, map[string]string{"error": msg}, code)
}

// apiJSON writes a JSON response with the given status code.
func apiJSON(w http.ResponseWriter, data interface{}, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("encoding response", "error", err)
	}
}
