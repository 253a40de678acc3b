package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/ycotes/professor/internal/session"
	"github.com/ycotes/professor/internal/tutor"
)

// Session listing bounds.
const (
	defaultListLimit = 20
	maxListLimit     = 100
	maxListOffset    = 10000

	defaultMessageLimit = 200
	maxMessageLimit     = 1000
)

// sessionHandler serves session CRUD endpoints.
type sessionHandler struct {
	store  *session.Store
	logger *slog.Logger
}

// createSessionRequest is the body for POST /api/v1/sessions.
type createSessionRequest struct {
	Title    string `json:"title,omitempty"`
	Style    string `json:"style,omitempty"`
	Language string `json:"language,omitempty"`
}

func (h *sessionHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error(), h.logger)
		return
	}
	if _, err := tutor.ParseStyle(req.Style); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_style", err.Error(), h.logger)
		return
	}

	sess, err := h.store.Create(r.Context(), req.Title, req.Style, req.Language)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "create_failed", "failed to create session", h.logger)
		h.logger.Error("session create failed", "error", err)
		return
	}
	WriteJSON(w, http.StatusCreated, sess)
}

func (h *sessionHandler) list(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", defaultListLimit)
	offset := queryInt(r, "offset", 0)
	if limit <= 0 || limit > maxListLimit {
		WriteError(w, http.StatusBadRequest, "invalid_limit",
			"limit must be between 1 and "+strconv.Itoa(maxListLimit), h.logger)
		return
	}
	if offset < 0 || offset > maxListOffset {
		WriteError(w, http.StatusBadRequest, "invalid_offset",
			"offset must be between 0 and "+strconv.Itoa(maxListOffset), h.logger)
		return
	}

	sessions, err := h.store.List(r.Context(), int32(limit), int32(offset))
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "list_failed", "failed to list sessions", h.logger)
		h.logger.Error("session list failed", "error", err)
		return
	}
	if sessions == nil {
		sessions = []session.Session{}
	}
	WriteJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
}

func (h *sessionHandler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	sess, err := h.store.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			WriteError(w, http.StatusNotFound, "session_not_found", "session not found", h.logger)
			return
		}
		WriteError(w, http.StatusInternalServerError, "get_failed", "failed to get session", h.logger)
		h.logger.Error("session get failed", "error", err)
		return
	}
	WriteJSON(w, http.StatusOK, sess)
}

func (h *sessionHandler) messages(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	limit := queryInt(r, "limit", defaultMessageLimit)
	offset := queryInt(r, "offset", 0)
	if limit <= 0 || limit > maxMessageLimit {
		WriteError(w, http.StatusBadRequest, "invalid_limit",
			"limit must be between 1 and "+strconv.Itoa(maxMessageLimit), h.logger)
		return
	}
	if offset < 0 {
		WriteError(w, http.StatusBadRequest, "invalid_offset", "offset must not be negative", h.logger)
		return
	}

	messages, err := h.store.Messages(r.Context(), id, int32(limit), int32(offset))
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "messages_failed", "failed to get messages", h.logger)
		h.logger.Error("session messages failed", "error", err)
		return
	}
	if messages == nil {
		messages = []session.Message{}
	}
	WriteJSON(w, http.StatusOK, map[string]any{"messages": messages})
}

func (h *sessionHandler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	if err := h.store.Delete(r.Context(), id); err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			WriteError(w, http.StatusNotFound, "session_not_found", "session not found", h.logger)
			return
		}
		WriteError(w, http.StatusInternalServerError, "delete_failed", "failed to delete session", h.logger)
		h.logger.Error("session delete failed", "error", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// pathID parses the {id} path segment; writes the error response itself.
func (h *sessionHandler) pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_id", "invalid session ID", h.logger)
		return uuid.Nil, false
	}
	return id, true
}

// queryInt parses an integer query parameter with a default.
func queryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return -1
	}
	return n
}
