package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/google/uuid"

	"github.com/ycotes/professor/internal/session"
	"github.com/ycotes/professor/internal/tutor"
)

// askHandler serves question answering: synchronous, streaming (SSE),
// and Socratic sub-question generation.
type askHandler struct {
	tutor    *tutor.Tutor
	sessions *session.Store
	logger   *slog.Logger
}

// askRequest is the request body for POST /api/v1/ask and /ask/stream.
type askRequest struct {
	Question  string `json:"question"`
	Style     string `json:"style,omitempty"`
	Language  string `json:"language,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
}

// askResponse wraps a tutor answer with the session it was recorded in.
type askResponse struct {
	*tutor.Answer
	SessionID string `json:"sessionId,omitempty"`
}

// resolve validates the request and loads session history if a session
// is referenced. Returns the parsed options and history.
func (h *askHandler) resolve(ctx context.Context, req *askRequest) (tutor.AskOptions, uuid.UUID, error) {
	style, err := tutor.ParseStyle(req.Style)
	if err != nil {
		return tutor.AskOptions{}, uuid.Nil, err
	}
	opts := tutor.AskOptions{Style: style, Language: req.Language}

	if req.SessionID == "" {
		return opts, uuid.Nil, nil
	}

	sessionID, err := uuid.Parse(req.SessionID)
	if err != nil {
		return tutor.AskOptions{}, uuid.Nil, fmt.Errorf("invalid session ID %q", req.SessionID)
	}
	if _, err := h.sessions.Get(ctx, sessionID); err != nil {
		return tutor.AskOptions{}, uuid.Nil, err
	}
	history, err := h.sessions.History(ctx, sessionID)
	if err != nil {
		return tutor.AskOptions{}, uuid.Nil, err
	}
	opts.History = history
	return opts, sessionID, nil
}

// recordExchange persists a question/answer pair, best-effort.
func (h *askHandler) recordExchange(ctx context.Context, sessionID uuid.UUID, question, answer string) {
	if sessionID == uuid.Nil {
		return
	}
	if err := h.sessions.AppendExchange(ctx, sessionID, question, answer); err != nil {
		h.logger.Warn("failed to record exchange", "session_id", sessionID, "error", err)
	}
}

// ask handles POST /api/v1/ask.
func (h *askHandler) ask(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error(), h.logger)
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		WriteError(w, http.StatusBadRequest, "missing_question", "question is required", h.logger)
		return
	}

	opts, sessionID, err := h.resolve(r.Context(), &req)
	if err != nil {
		status, code := http.StatusBadRequest, "invalid_request"
		if errors.Is(err, session.ErrSessionNotFound) {
			status, code = http.StatusNotFound, "session_not_found"
		}
		WriteError(w, status, code, err.Error(), h.logger)
		return
	}

	answer, err := h.tutor.Ask(r.Context(), req.Question, opts)
	if err != nil {
		WriteError(w, http.StatusBadGateway, "generation_failed", "failed to generate answer", h.logger)
		h.logger.Error("answer generation failed", "error", err)
		return
	}

	h.recordExchange(r.Context(), sessionID, req.Question, answer.Text)

	resp := askResponse{Answer: answer}
	if sessionID != uuid.Nil {
		resp.SessionID = sessionID.String()
	}
	WriteJSON(w, http.StatusOK, resp)
}

// SSE event types for answer streaming.
const (
	EventChunk = "chunk" // Partial answer text
	EventDone  = "done"  // Stream completed successfully
	EventError = "error" // Error occurred during streaming
)

// ChunkPayload is the SSE data payload for streaming text chunks.
type ChunkPayload struct {
	Text string `json:"text"`
}

// DonePayload is the SSE data payload when streaming completes.
type DonePayload struct {
	Answer    *tutor.Answer `json:"answer"`
	SessionID string        `json:"sessionId,omitempty"`
}

// ErrorPayload is the SSE data payload when an error occurs.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// stream handles POST /api/v1/ask/stream with Server-Sent Events.
func (h *askHandler) stream(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	var req askRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = writeEvent(w, flusher, EventError, ErrorPayload{
			Code:    "INVALID_REQUEST",
			Message: "invalid request body",
		})
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		_ = writeEvent(w, flusher, EventError, ErrorPayload{Code: "MISSING_QUESTION", Message: "question is required"})
		return
	}

	opts, sessionID, err := h.resolve(r.Context(), &req)
	if err != nil {
		code := "INVALID_REQUEST"
		if errors.Is(err, session.ErrSessionNotFound) {
			code = "SESSION_NOT_FOUND"
		}
		_ = writeEvent(w, flusher, EventError, ErrorPayload{Code: code, Message: err.Error()})
		return
	}

	ctx := r.Context()
	h.logger.Debug("SSE stream started", "session_id", req.SessionID)

	callback := func(cbCtx context.Context, chunk *ai.ModelResponseChunk) error {
		select {
		case <-cbCtx.Done():
			return cbCtx.Err()
		default:
		}
		text := chunk.Text()
		if text == "" {
			return nil
		}
		return writeEvent(w, flusher, EventChunk, ChunkPayload{Text: text})
	}

	answer, err := h.tutor.AskStream(ctx, req.Question, opts, callback)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			h.logger.Info("client disconnected", "session_id", req.SessionID)
			return
		}
		h.logger.Error("streaming answer failed", "error", err)
		_ = writeEvent(w, flusher, EventError, ErrorPayload{
			Code:    "GENERATION_FAILED",
			Message: "failed to generate answer",
		})
		return
	}

	h.recordExchange(ctx, sessionID, req.Question, answer.Text)

	done := DonePayload{Answer: answer}
	if sessionID != uuid.Nil {
		done.SessionID = sessionID.String()
	}
	_ = writeEvent(w, flusher, EventDone, done)
}

// socraticRequest is the request body for POST /api/v1/socratic.
type socraticRequest struct {
	Question string `json:"question"`
}

// socraticResponse carries the generated sub-questions.
type socraticResponse struct {
	Question     string   `json:"question"`
	SubQuestions []string `json:"subQuestions"`
}

// socratic handles POST /api/v1/socratic.
func (h *askHandler) socratic(w http.ResponseWriter, r *http.Request) {
	var req socraticRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error(), h.logger)
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		WriteError(w, http.StatusBadRequest, "missing_question", "question is required", h.logger)
		return
	}

	questions, err := h.tutor.SubQuestions(r.Context(), req.Question)
	if err != nil {
		WriteError(w, http.StatusBadGateway, "generation_failed", "failed to generate sub-questions", h.logger)
		h.logger.Error("socratic generation failed", "error", err)
		return
	}

	WriteJSON(w, http.StatusOK, socraticResponse{
		Question:     req.Question,
		SubQuestions: questions,
	})
}

// writeEvent writes a single SSE event with JSON-encoded data.
// SSE format: "event: <type>\ndata: <json>\n\n"
func writeEvent[T any](w io.Writer, flusher http.Flusher, event string, data T) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, jsonData); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	flusher.Flush()
	return nil
}
