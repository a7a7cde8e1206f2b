// Package httpapi exposes the librarian service over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/felixgeelhaar/librarian/internal/librarian"
	"github.com/felixgeelhaar/librarian/internal/observe"
)

const apiVersion = "1.0.0"

// Server serves the book recommendation API.
type Server struct {
	svc  *librarian.Service
	obs  *observe.Observer
	addr string
}

func NewServer(svc *librarian.Service, obs *observe.Observer, addr string) *Server {
	return &Server{svc: svc, obs: obs, addr: addr}
}

// Handler builds the routed handler with middleware applied. Exposed
// separately from Start so tests can drive it with httptest.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/", s.handleRoot)
	mux.HandleFunc("/chat", s.handleChat)
	mux.HandleFunc("/books", s.handleBooks)
	mux.HandleFunc("/book/", s.handleBook)
	mux.HandleFunc("/database/info", s.handleDatabaseInfo)
	mux.HandleFunc("/database/reinitialize", s.handleReinitialize)
	mux.HandleFunc("/health", s.handleHealth)

	return s.corsMiddleware(s.loggingMiddleware(mux))
}

// Start runs the server until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:         s.addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
	}

	s.obs.Log().Info().Str("addr", s.addr).Msg("HTTP server starting")

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	err := server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

type chatRequest struct {
	Message             string           `json:"message"`
	ConversationHistory []librarian.Turn `json:"conversation_history"`
}

type bookRequest struct {
	Title   string `json:"title"`
	Summary string `json:"summary"`
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":     "Smart Librarian API",
		"version":     apiVersion,
		"description": "AI-powered book recommendation chatbot",
		"endpoints": map[string]string{
			"chat":     "/chat",
			"books":    "/books",
			"database": "/database/info",
			"health":   "/health",
		},
	})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	// Pipeline failures ride the success:false payload, never a bare 500.
	result := s.svc.Chat(r.Context(), req.Message, req.ConversationHistory)
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleBooks(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]any{"books": s.svc.Books()})
	case http.MethodPost:
		var req bookRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if err := s.svc.AddBook(req.Title, req.Summary); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{
			"message": "Book added successfully",
			"title":   strings.TrimSpace(req.Title),
		})
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleBook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	title := strings.TrimPrefix(r.URL.Path, "/book/")
	if title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}

	summary, ok := s.svc.Lookup(title)
	if !ok {
		writeError(w, http.StatusNotFound, s.svc.MissMessage(title))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"title":   title,
		"summary": summary,
	})
}

func (s *Server) handleDatabaseInfo(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.svc.DatabaseInfo(r.Context()))
}

func (s *Server) handleReinitialize(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := s.svc.ReinitializeIndex(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":       "Database reinitialized successfully",
		"database_info": s.svc.DatabaseInfo(r.Context()),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	info := s.svc.DatabaseInfo(r.Context())
	status := "empty"
	if info.DocumentCount > 0 {
		status = "connected"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":          "healthy",
		"database_status": status,
		"database_info":   info,
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.obs.Log().Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("duration", time.Since(start).String()).
			Msg("request handled")
	})
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
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

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
