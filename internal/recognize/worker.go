// Package recognize extracts text from page images by invoking the external
// tesseract tool.
package recognize

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rockerrishabh/sanskrit-ocr/internal/toolrunner"
)

// Worker runs tesseract on single page images.
type Worker struct {
	runner   toolrunner.Runner
	binary   string
	language string
	tempDir  string
}

// NewWorker creates a Worker. binary is the tesseract executable name and
// language the tesseract -l argument.
func NewWorker(runner toolrunner.Runner, binary, language, tempDir string) *Worker {
	if binary == "" {
		binary = "tesseract"
	}
	if language == "" {
		language = "san"
	}
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	return &Worker{runner: runner, binary: binary, language: language, tempDir: tempDir}
}

// Recognize runs OCR on imagePath and returns the trimmed extracted text.
// Empty text is not an error. The intermediate .txt artifact tesseract
// produces is always removed.
func (w *Worker) Recognize(ctx context.Context, imagePath string) (string, error) {
	outBase := filepath.Join(w.tempDir, fmt.Sprintf("ocr_output_%s", uuid.New()))

	res, err := w.runner.Run(ctx, w.binary, imagePath, outBase, "-l", w.language)
	if err != nil {
		if res.ExitCode > 0 {
			return "", fmt.Errorf("tesseract error: %s", string(res.Stderr))
		}
		return "", fmt.Errorf("failed to execute %s: %w. Make sure tesseract is installed", w.binary, err)
	}

	txtFile := outBase + ".txt"
	data, err := os.ReadFile(txtFile)
	if err != nil {
		return "", fmt.Errorf("failed to read OCR output: %w", err)
	}
	_ = os.Remove(txtFile)

	return strings.TrimSpace(string(data)), nil
}
