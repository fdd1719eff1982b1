package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/snaptext/snaptext/internal/extraction"
)

// ExtractRequest is the inbound body: a full data URL.
type ExtractRequest struct {
	Base64Image string `json:"base64Image"`
}

// ExtractResponse is the success envelope.
type ExtractResponse struct {
	Text string `json:"text"`
}

type ExtractHandler struct {
	svc *extraction.Service
}

func NewExtractHandler(svc *extraction.Service) *ExtractHandler {
	return &ExtractHandler{svc: svc}
}

// Extract accepts {base64Image}, relays it to the vision model, and returns
// {text} or {error} with a status matching the failure kind.
func (h *ExtractHandler) Extract(w http.ResponseWriter, r *http.Request) {
	var req ExtractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.Base64Image == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "base64Image is required"})
		return
	}

	result, err := h.svc.Extract(r.Context(), req.Base64Image)
	if err != nil {
		var exErr *extraction.Error
		if errors.As(err, &exErr) {
			status := exErr.Kind.HTTPStatus()
			msg := exErr.Message
			if status == http.StatusInternalServerError {
				// Internal detail stays in the logs.
				slog.Error("extraction failed", "error", err)
				msg = "failed to extract text from the image"
			}
			writeJSON(w, status, map[string]string{"error": msg})
			return
		}
		slog.Error("extraction failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to extract text from the image"})
		return
	}

	writeJSON(w, http.StatusOK, ExtractResponse{Text: result.Text})
}
