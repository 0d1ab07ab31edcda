// Package main provides the OCR API server entrypoint.
package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rockerrishabh/sanskrit-ocr/cmd/ocr-server/handlers"
	"github.com/rockerrishabh/sanskrit-ocr/internal/config"
	"github.com/rockerrishabh/sanskrit-ocr/internal/convert"
	"github.com/rockerrishabh/sanskrit-ocr/internal/observability"
	"github.com/rockerrishabh/sanskrit-ocr/internal/pipeline"
	"github.com/rockerrishabh/sanskrit-ocr/internal/recognize"
	"github.com/rockerrishabh/sanskrit-ocr/internal/session"
	"github.com/rockerrishabh/sanskrit-ocr/internal/split"
	"github.com/rockerrishabh/sanskrit-ocr/internal/toolrunner"
)

// NewRouter wires the service dependencies and returns the HTTP handler.
func NewRouter(logger *observability.Logger, cfg *config.Config, store session.Store) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)

	runner := toolrunner.NewExecRunner()
	converter := convert.NewConverter(runner, cfg.Tools.Pdftoppm)
	recognizer := recognize.NewWorker(runner, cfg.Tools.Tesseract, cfg.Tools.OCRLanguage, cfg.TempDir())
	splitter := split.NewSplitter(logger, runner, cfg.Tools.Pdftk, cfg.Tools.TargetChunkKB)
	orchestrator := pipeline.NewOrchestrator(logger, store, converter, recognizer, cfg.TempDir())

	uploadHandler := handlers.NewUploadHandler(logger, orchestrator, cfg.TempDir())
	statusHandler := handlers.NewStatusHandler(logger, store)
	splitHandler := handlers.NewSplitHandler(logger, splitter, cfg.Storage.SplitsDir)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"healthy","service":"sanskrit-ocr"}`))
	})

	r.Post("/upload", uploadHandler.Upload)
	r.Get("/status/{session_id}", statusHandler.Status)
	r.Post("/split", splitHandler.Split)

	// Produced chunk artifacts, keyed by upload id and chunk filename.
	r.Handle("/downloads/*", http.StripPrefix("/downloads/",
		http.FileServer(http.Dir(cfg.Storage.SplitsDir))))

	// Frontend assets, with index.html served at the root.
	r.Handle("/*", http.FileServer(http.Dir(cfg.Storage.PublicDir)))

	return r
}
