package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/firebase/genkit/go/genkit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ycotes/professor/internal/cost"
	"github.com/ycotes/professor/internal/ingest"
	"github.com/ycotes/professor/internal/knowledge"
	"github.com/ycotes/professor/internal/session"
	"github.com/ycotes/professor/internal/tutor"
)

type noopRetriever struct{}

func (noopRetriever) Search(ctx context.Context, query string, opts ...knowledge.SearchOption) ([]knowledge.Result, error) {
	return nil, nil
}

func testServerConfig(t *testing.T) ServerConfig {
	t.Helper()

	tut, err := tutor.New(tutor.Config{
		Genkit:    genkit.Init(context.Background()),
		Retriever: noopRetriever{},
		Meter:     cost.NewMeter(cost.Rates{}),
		Logger:    discardLogger(),
		ModelName: "openai/gpt-4o",
	})
	require.NoError(t, err)

	return ServerConfig{
		Logger:       discardLogger(),
		Tutor:        tut,
		Ingester:     ingest.NewIngester(&mockDocStore{}, nil, cost.NewMeter(cost.Rates{}), 0, discardLogger()),
		SessionStore: session.New(&mockSessionQuerier{}, nil, discardLogger()),
		Documents:    &mockCounter{count: 3},
		Meter:        cost.NewMeter(cost.Rates{}),
		CORSOrigins:  []string{"http://localhost:5173"},
		IsDev:        true,
	}
}

func TestNewServerMissingDependencies(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ServerConfig)
	}{
		{"tutor", func(c *ServerConfig) { c.Tutor = nil }},
		{"ingester", func(c *ServerConfig) { c.Ingester = nil }},
		{"session store", func(c *ServerConfig) { c.SessionStore = nil }},
		{"document counter", func(c *ServerConfig) { c.Documents = nil }},
		{"meter", func(c *ServerConfig) { c.Meter = nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testServerConfig(t)
			tt.mutate(&cfg)
			_, err := NewServer(cfg)
			assert.Error(t, err)
		})
	}
}

func TestServerRoutes(t *testing.T) {
	server, err := NewServer(testServerConfig(t))
	require.NoError(t, err)

	handler := server.Handler()

	t.Run("health outside middleware", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		// Health probes skip the middleware stack entirely.
		assert.Empty(t, w.Header().Get("X-Request-ID"))
	})

	t.Run("ready without pool", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("stats through middleware", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
		assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
		assert.Contains(t, w.Body.String(), `"documents":3`)
	})

	t.Run("ask validation error", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/ask",
			strings.NewReader(`{"question":""}`)))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("cors preflight", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodOptions, "/api/v1/ask", nil)
		r.Header.Set("Origin", "http://localhost:5173")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)
		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("unknown route", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/nope", nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("method not allowed", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/v1/ask", nil))
		assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	})
}
