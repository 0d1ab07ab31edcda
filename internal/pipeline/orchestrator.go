// Package pipeline drives the per-session OCR pipeline in the background,
// publishing progress snapshots that the status endpoint serves to pollers.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rockerrishabh/sanskrit-ocr/internal/observability"
	"github.com/rockerrishabh/sanskrit-ocr/internal/session"
)

// PageConverter rasterizes a PDF into ordered page images.
type PageConverter interface {
	Convert(ctx context.Context, pdfPath, outPrefix string) ([]string, error)
}

// Recognizer extracts text from one page image.
type Recognizer interface {
	Recognize(ctx context.Context, imagePath string) (string, error)
}

// UploadedFile is one accepted input artifact: its saved temp path and the
// name the client uploaded it under.
type UploadedFile struct {
	Path         string
	OriginalName string
}

// Orchestrator runs one session's pipeline: convert each PDF to pages,
// recognize each page, aggregate per-file results, and publish progress after
// every stage. One Orchestrator serves all sessions; each Run call is an
// independent unit of work. There is no way to cancel a session once started.
type Orchestrator struct {
	logger     *observability.Logger
	store      session.Store
	converter  PageConverter
	recognizer Recognizer
	tempDir    string
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(logger *observability.Logger, store session.Store, converter PageConverter, recognizer Recognizer, tempDir string) *Orchestrator {
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	return &Orchestrator{
		logger:     logger,
		store:      store,
		converter:  converter,
		recognizer: recognizer,
		tempDir:    tempDir,
	}
}

// Run processes files sequentially in the order received and finishes by
// installing the terminal Complete snapshot. Per-file failures are recorded
// in that file's result and never abort the batch. Uploaded temp files are
// removed as each file finishes, on success and failure alike.
func (o *Orchestrator) Run(ctx context.Context, sessionID string, files []UploadedFile) {
	logger := o.logger.WithSession(sessionID)

	results := make([]session.FileResult, 0, len(files))
	for _, file := range files {
		result := o.processFile(ctx, logger, sessionID, file)
		results = append(results, result)
		_ = os.Remove(file.Path)
	}

	// Terminal snapshot. Nothing writes to this session after it.
	o.publish(ctx, sessionID, session.ProgressState{
		Stage:    session.StageComplete,
		Current:  len(results),
		Total:    len(results),
		Message:  "Processing complete",
		Complete: true,
		Results:  results,
	})

	logger.Info().Int("files", len(results)).Msg("Session complete")
}

// processFile handles one uploaded file and returns its result.
func (o *Orchestrator) processFile(ctx context.Context, logger *observability.Logger, sessionID string, file UploadedFile) session.FileResult {
	if isPDF(file.Path) {
		return o.processPDF(ctx, logger, sessionID, file)
	}
	return o.processImage(ctx, logger, file)
}

// processPDF converts the PDF to page images, recognizes each page, and
// aggregates the text. Failed pages are skipped; the page images are removed
// regardless of per-page outcomes.
func (o *Orchestrator) processPDF(ctx context.Context, logger *observability.Logger, sessionID string, file UploadedFile) session.FileResult {
	// Page count unknown until conversion finishes.
	o.publish(ctx, sessionID, session.ProgressState{
		Stage:   session.StageConverting,
		Current: 0,
		Total:   0,
		Message: fmt.Sprintf("Converting PDF '%s'...", file.OriginalName),
	})

	outPrefix := filepath.Join(o.tempDir, fmt.Sprintf("pdf_convert_%s", uuid.New()))
	logger.Info().Str("filename", file.OriginalName).Msg("Converting PDF to images")

	pages, err := o.converter.Convert(ctx, file.Path, outPrefix)
	if err != nil {
		logger.Error().Err(err).Str("filename", file.OriginalName).Msg("PDF conversion failed")
		return session.FailedResult(file.OriginalName, err.Error())
	}
	defer func() {
		for _, page := range pages {
			_ = os.Remove(page)
		}
	}()

	totalPages := len(pages)
	logger.Info().Int("pages", totalPages).Msg("Converted PDF pages")

	o.publish(ctx, sessionID, session.ProgressState{
		Stage:   session.StageConverted,
		Current: totalPages,
		Total:   totalPages,
		Message: fmt.Sprintf("Converted %d pages, starting OCR...", totalPages),
	})

	var allText strings.Builder
	startTime := time.Now()
	estimatePublished := false

	for idx, pagePath := range pages {
		message := fmt.Sprintf("Processing page %d/%d", idx+1, totalPages)

		// Advisory completion estimate once the first page's timing is
		// known. Not computed for single-page documents.
		if idx == 1 && totalPages >= 2 && !estimatePublished {
			firstPageTime := time.Since(startTime).Seconds()
			estimatedTotal := firstPageTime * float64(totalPages)
			estimatePublished = true

			message = fmt.Sprintf("Processing page %d/%d (estimated total %.1fs)", idx+1, totalPages, estimatedTotal)
			logger.Info().
				Float64("first_page_seconds", firstPageTime).
				Float64("estimated_total_seconds", estimatedTotal).
				Int("remaining_pages", totalPages-1).
				Msg("Estimated completion time")
		}

		// Published before invoking OCR so pollers never see a stalled
		// counter during a long page.
		o.publish(ctx, sessionID, session.ProgressState{
			Stage:   session.StageProcessing,
			Current: idx + 1,
			Total:   totalPages,
			Message: message,
		})

		text, err := o.recognizer.Recognize(ctx, pagePath)
		if err != nil {
			logger.Warn().Err(err).Int("page", idx+1).Msg("Failed to OCR page")
			continue
		}
		if text != "" {
			fmt.Fprintf(&allText, "\n=== Page %d ===\n%s", idx+1, text)
		}
	}

	totalTime := time.Since(startTime).Seconds()
	logger.Info().
		Str("filename", file.OriginalName).
		Int("characters", allText.Len()).
		Float64("seconds", totalTime).
		Msg("OCR completed")

	pagesProcessed := totalPages
	return session.FileResult{
		Filename:             file.OriginalName,
		Text:                 strings.TrimSpace(allText.String()),
		Success:              true,
		PagesProcessed:       &pagesProcessed,
		TotalPages:           &totalPages,
		EstimatedTimeSeconds: &totalTime,
	}
}

// processImage runs the one-shot recognition path for single image uploads.
func (o *Orchestrator) processImage(ctx context.Context, logger *observability.Logger, file UploadedFile) session.FileResult {
	startTime := time.Now()

	text, err := o.recognizer.Recognize(ctx, file.Path)
	if err != nil {
		logger.Error().Err(err).Str("filename", file.OriginalName).Msg("OCR failed")
		return session.FailedResult(file.OriginalName, err.Error())
	}

	elapsed := time.Since(startTime).Seconds()
	logger.Info().
		Str("filename", file.OriginalName).
		Int("characters", len(text)).
		Float64("seconds", elapsed).
		Msg("OCR succeeded")
	if text == "" {
		logger.Warn().Str("filename", file.OriginalName).Msg("Empty text extracted")
	}

	one := 1
	return session.FileResult{
		Filename:             file.OriginalName,
		Text:                 text,
		Success:              true,
		PagesProcessed:       &one,
		TotalPages:           &one,
		EstimatedTimeSeconds: &elapsed,
	}
}

// publish installs a snapshot, logging store failures rather than letting
// them interrupt the pipeline.
func (o *Orchestrator) publish(ctx context.Context, sessionID string, state session.ProgressState) {
	if err := o.store.Put(ctx, sessionID, state); err != nil {
		o.logger.Error().Err(err).Str("session_id", sessionID).Msg("Failed to publish progress")
	}
}

func isPDF(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".pdf")
}
