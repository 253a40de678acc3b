// Package api exposes the tutoring service over HTTP: question
// answering (plain and SSE streaming), Socratic mode, knowledge base
// ingestion, session management, and operational endpoints.
package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ycotes/professor/internal/cost"
	"github.com/ycotes/professor/internal/ingest"
	"github.com/ycotes/professor/internal/session"
	"github.com/ycotes/professor/internal/tutor"
)

// ServerConfig contains configuration for creating the API server.
type ServerConfig struct {
	Logger       *slog.Logger
	Tutor        *tutor.Tutor    // Required
	Ingester     *ingest.Ingester // Required
	SessionStore *session.Store  // Required
	Documents    DocumentCounter // Required
	Meter        *cost.Meter     // Required
	Pool         *pgxpool.Pool   // Optional: nil disables pool stats in /ready
	CORSOrigins  []string        // Allowed origins for CORS
	IsDev        bool            // Disables HSTS
	TrustProxy   bool            // Trust X-Real-IP/X-Forwarded-For headers
	RateBurst    int             // Rate limiter burst size per IP (0 = default 60)
}

// Server is the JSON API HTTP server.
type Server struct {
	mux *http.ServeMux
}

// NewServer creates the API server with all routes configured.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Tutor == nil {
		return nil, errors.New("tutor is required")
	}
	if cfg.Ingester == nil {
		return nil, errors.New("ingester is required")
	}
	if cfg.SessionStore == nil {
		return nil, errors.New("session store is required")
	}
	if cfg.Documents == nil {
		return nil, errors.New("document counter is required")
	}
	if cfg.Meter == nil {
		return nil, errors.New("cost meter is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ah := &askHandler{tutor: cfg.Tutor, sessions: cfg.SessionStore, logger: logger}
	ih := &ingestHandler{ingester: cfg.Ingester, logger: logger}
	sh := &sessionHandler{store: cfg.SessionStore, logger: logger}
	st := &statsHandler{documents: cfg.Documents, meter: cfg.Meter, logger: logger}

	mux := http.NewServeMux()

	// Question answering
	mux.HandleFunc("POST /api/v1/ask", ah.ask)
	mux.HandleFunc("POST /api/v1/ask/stream", ah.stream)
	mux.HandleFunc("POST /api/v1/socratic", ah.socratic)

	// Ingestion
	mux.HandleFunc("POST /api/v1/ingest/text", ih.text)
	mux.HandleFunc("POST /api/v1/ingest/url", ih.url)
	mux.HandleFunc("POST /api/v1/ingest/file", ih.file)

	// Session CRUD
	mux.HandleFunc("GET /api/v1/sessions", sh.list)
	mux.HandleFunc("POST /api/v1/sessions", sh.create)
	mux.HandleFunc("GET /api/v1/sessions/{id}", sh.get)
	mux.HandleFunc("GET /api/v1/sessions/{id}/messages", sh.messages)
	mux.HandleFunc("DELETE /api/v1/sessions/{id}", sh.delete)

	// Stats
	mux.HandleFunc("GET /api/v1/stats", st.stats)

	// Rate limiter: per-IP token bucket (1 token/sec refill)
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 60
	}
	rl := newRateLimiter(1.0, burst)

	// Build middleware stack (outermost first):
	//   Recovery → RequestID → Logging → CORS → RateLimit → Routes
	// RequestID must be before Logging so request_id is available in logs.
	// CORS must be before RateLimit so preflight gets proper CORS headers.
	var handler http.Handler = mux
	handler = rateLimitMiddleware(rl, cfg.TrustProxy, logger)(handler)
	handler = corsMiddleware(cfg.CORSOrigins)(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = requestIDMiddleware()(handler)
	handler = recoveryMiddleware(logger)(handler)

	isDev := cfg.IsDev
	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setSecurityHeaders(w, isDev)
		handler.ServeHTTP(w, r)
	})

	// Top-level mux keeps health probes outside the middleware stack.
	topMux := http.NewServeMux()
	topMux.HandleFunc("GET /health", health)
	topMux.Handle("GET /ready", readiness(cfg.Pool))
	topMux.Handle("/", final)

	return &Server{mux: topMux}, nil
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}
