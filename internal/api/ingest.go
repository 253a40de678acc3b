package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/ycotes/professor/internal/ingest"
)

// maxUploadSize caps file uploads at 20 MiB.
const maxUploadSize = 20 << 20

// ingestHandler serves knowledge base ingestion endpoints.
type ingestHandler struct {
	ingester *ingest.Ingester
	logger   *slog.Logger
}

// ingestTextRequest is the body for POST /api/v1/ingest/text.
type ingestTextRequest struct {
	Text   string `json:"text"`
	Source string `json:"source,omitempty"`
}

func (h *ingestHandler) text(w http.ResponseWriter, r *http.Request) {
	var req ingestTextRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error(), h.logger)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		WriteError(w, http.StatusBadRequest, "missing_text", "text is required", h.logger)
		return
	}

	report, err := h.ingester.Text(r.Context(), req.Text, req.Source)
	if err != nil {
		h.writeIngestError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, report)
}

// ingestURLRequest is the body for POST /api/v1/ingest/url.
type ingestURLRequest struct {
	URL string `json:"url"`
}

func (h *ingestHandler) url(w http.ResponseWriter, r *http.Request) {
	var req ingestURLRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error(), h.logger)
		return
	}
	if strings.TrimSpace(req.URL) == "" {
		WriteError(w, http.StatusBadRequest, "missing_url", "url is required", h.logger)
		return
	}

	report, err := h.ingester.URL(r.Context(), req.URL)
	if err != nil {
		if errors.Is(err, ingest.ErrInvalidURL) {
			WriteError(w, http.StatusBadRequest, "invalid_url", err.Error(), h.logger)
			return
		}
		h.writeIngestError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, report)
}

// file handles POST /api/v1/ingest/file (multipart form, field "file").
// The upload is spooled to a temp file so the extractors can dispatch on
// the original extension.
func (h *ingestHandler) file(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_upload", "invalid multipart upload", h.logger)
		return
	}

	upload, header, err := r.FormFile("file")
	if err != nil {
		WriteError(w, http.StatusBadRequest, "missing_file", `multipart field "file" is required`, h.logger)
		return
	}
	defer upload.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	tmp, err := os.CreateTemp("", "upload-*"+ext)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "upload_failed", "failed to store upload", h.logger)
		return
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := io.Copy(tmp, upload); err != nil {
		tmp.Close()
		WriteError(w, http.StatusInternalServerError, "upload_failed", "failed to store upload", h.logger)
		return
	}
	if err := tmp.Close(); err != nil {
		WriteError(w, http.StatusInternalServerError, "upload_failed", "failed to store upload", h.logger)
		return
	}

	report, err := h.ingester.FileAs(r.Context(), tmpPath, filepath.Base(header.Filename))
	if err != nil {
		if errors.Is(err, ingest.ErrUnsupportedFormat) {
			WriteError(w, http.StatusUnsupportedMediaType, "unsupported_format", err.Error(), h.logger)
			return
		}
		h.writeIngestError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, report)
}

func (h *ingestHandler) writeIngestError(w http.ResponseWriter, err error) {
	if errors.Is(err, ingest.ErrEmptyContent) {
		WriteError(w, http.StatusUnprocessableEntity, "empty_content", err.Error(), h.logger)
		return
	}
	h.logger.Error("ingestion failed", "error", err)
	WriteError(w, http.StatusInternalServerError, "ingest_failed", "ingestion failed", h.logger)
}
