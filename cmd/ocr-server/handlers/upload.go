package handlers

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rockerrishabh/sanskrit-ocr/internal/observability"
	"github.com/rockerrishabh/sanskrit-ocr/internal/pipeline"
	"github.com/rockerrishabh/sanskrit-ocr/internal/session"
)

// acceptedExtensions are the upload filename extensions the OCR pipeline
// handles. Parts with any other extension are silently skipped.
var acceptedExtensions = map[string]bool{
	".pdf":  true,
	".png":  true,
	".jpg":  true,
	".jpeg": true,
}

// UploadHandler accepts document uploads and starts background OCR sessions.
type UploadHandler struct {
	logger       *observability.Logger
	orchestrator *pipeline.Orchestrator
	tempDir      string
}

// NewUploadHandler creates a new upload handler.
func NewUploadHandler(logger *observability.Logger, orchestrator *pipeline.Orchestrator, tempDir string) *UploadHandler {
	return &UploadHandler{
		logger:       logger,
		orchestrator: orchestrator,
		tempDir:      tempDir,
	}
}

// UploadResponseDTO is the immediate response to an upload; results arrive
// later via the status endpoint.
type UploadResponseDTO struct {
	SessionID string               `json:"session_id"`
	Results   []session.FileResult `json:"results"`
}

// Upload handles POST /upload. It saves every accepted multipart file to
// temp storage, spawns the detached processing pipeline, and returns the
// session id without waiting for the pipeline.
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	sessionID := uuid.New().String()

	reader, err := r.MultipartReader()
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid multipart body"})
		return
	}

	files, err := h.saveParts(reader)
	if err != nil {
		// Temp storage failures indicate environment misconfiguration, not
		// a per-file problem.
		h.logger.Error().Err(err).Msg("Failed to store upload")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to store upload"})
		return
	}

	h.logger.Info().
		Str("session_id", sessionID).
		Int("files", len(files)).
		Msg("Upload accepted")

	// Detached from the request: the pipeline outlives this handler and is
	// observed only through the progress store.
	go h.orchestrator.Run(context.Background(), sessionID, files)

	writeJSON(w, http.StatusOK, UploadResponseDTO{
		SessionID: sessionID,
		Results:   []session.FileResult{},
	})
}

// saveParts writes each accepted multipart file to a unique temp path,
// preserving upload order.
func (h *UploadHandler) saveParts(reader *multipart.Reader) ([]pipeline.UploadedFile, error) {
	var files []pipeline.UploadedFile

	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read multipart part: %w", err)
		}

		filename := part.FileName()
		ext := strings.ToLower(filepath.Ext(filename))
		if !acceptedExtensions[ext] {
			part.Close()
			continue
		}

		tempPath := filepath.Join(h.tempDir, fmt.Sprintf("ocr_%s%s", uuid.New(), ext))
		if err := savePart(part, tempPath); err != nil {
			part.Close()
			return nil, err
		}
		part.Close()

		files = append(files, pipeline.UploadedFile{
			Path:         tempPath,
			OriginalName: filename,
		})
	}

	return files, nil
}

func savePart(part io.Reader, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer file.Close()

	if _, err := io.Copy(file, part); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	return nil
}
