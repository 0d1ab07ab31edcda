package handlers

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rockerrishabh/sanskrit-ocr/internal/observability"
	"github.com/rockerrishabh/sanskrit-ocr/internal/split"
)

// SplitHandler carves uploaded PDFs into downloadable chunks.
type SplitHandler struct {
	logger    *observability.Logger
	splitter  *split.Splitter
	splitsDir string
}

// NewSplitHandler creates a new split handler.
func NewSplitHandler(logger *observability.Logger, splitter *split.Splitter, splitsDir string) *SplitHandler {
	return &SplitHandler{
		logger:    logger,
		splitter:  splitter,
		splitsDir: splitsDir,
	}
}

// SplitResponseDTO is the response for the split endpoint.
type SplitResponseDTO struct {
	Success          bool          `json:"success"`
	OriginalFilename string        `json:"original_filename"`
	TotalPages       int           `json:"total_pages"`
	Chunks           []split.Chunk `json:"chunks"`
	Error            *string       `json:"error"`
}

func (h *SplitHandler) writeError(w http.ResponseWriter, filename string, status int, reason string) {
	writeJSON(w, status, SplitResponseDTO{
		Success:          false,
		OriginalFilename: filename,
		Chunks:           []split.Chunk{},
		Error:            &reason,
	})
}

// Split handles POST /split. Only the first multipart part is used and it
// must be a PDF. The split runs synchronously; chunks that fail to
// materialize are simply absent from the response.
func (h *SplitHandler) Split(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	reader, err := r.MultipartReader()
	if err != nil {
		h.writeError(w, "", http.StatusBadRequest, "No file uploaded")
		return
	}

	part, err := reader.NextPart()
	if err != nil {
		h.writeError(w, "", http.StatusBadRequest, "No file uploaded")
		return
	}
	defer part.Close()

	filename := part.FileName()
	if filename == "" {
		filename = "unnamed.pdf"
	}

	if !strings.EqualFold(filepath.Ext(filename), ".pdf") {
		h.writeError(w, filename, http.StatusBadRequest, "Only PDF files are supported for splitting")
		return
	}

	// Each split gets its own directory under the splits root; chunk files
	// are served from there by the downloads route.
	uploadID := uuid.New().String()
	sessionDir := filepath.Join(h.splitsDir, uploadID)
	if err := os.MkdirAll(sessionDir, 0o755); err != nil {
		h.logger.Error().Err(err).Msg("Failed to create splits directory")
		h.writeError(w, filename, http.StatusInternalServerError, "failed to create splits directory")
		return
	}

	inputPath := filepath.Join(sessionDir, "original.pdf")
	if err := savePart(part, inputPath); err != nil {
		h.logger.Error().Err(err).Msg("Failed to store uploaded PDF")
		h.writeError(w, filename, http.StatusInternalServerError, "failed to store uploaded PDF")
		return
	}

	h.logger.Info().Str("filename", filename).Msg("Analyzing PDF")

	totalPages, err := h.splitter.PageCount(ctx, inputPath)
	if err != nil {
		h.writeError(w, filename, http.StatusInternalServerError, err.Error())
		return
	}
	if totalPages == 0 {
		h.writeError(w, filename, http.StatusInternalServerError, "Could not determine PDF page count")
		return
	}

	downloadBase := fmt.Sprintf("/downloads/%s", uploadID)
	chunks, err := h.splitter.Split(ctx, inputPath, sessionDir, downloadBase, totalPages)
	if err != nil {
		h.writeError(w, filename, http.StatusInternalServerError, err.Error())
		return
	}
	if chunks == nil {
		chunks = []split.Chunk{}
	}

	writeJSON(w, http.StatusOK, SplitResponseDTO{
		Success:          true,
		OriginalFilename: filename,
		TotalPages:       totalPages,
		Chunks:           chunks,
	})
}
