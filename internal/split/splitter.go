// Package split partitions large PDFs into smaller downloadable chunks by
// invoking the external pdftk tool.
package split

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rockerrishabh/sanskrit-ocr/internal/observability"
	"github.com/rockerrishabh/sanskrit-ocr/internal/toolrunner"
)

// Chunk describes one produced PDF fragment.
type Chunk struct {
	Filename     string `json:"filename"`
	PageRange    string `json:"page_range"`
	FileSize     int64  `json:"file_size"`
	DownloadPath string `json:"download_path"`
}

// Splitter carves PDFs into page-range chunks with pdftk.
type Splitter struct {
	logger        *observability.Logger
	runner        toolrunner.Runner
	binary        string
	targetChunkKB int
}

// NewSplitter creates a Splitter. binary is the pdftk executable name and
// targetChunkKB the desired chunk size used by the page heuristic.
func NewSplitter(logger *observability.Logger, runner toolrunner.Runner, binary string, targetChunkKB int) *Splitter {
	if binary == "" {
		binary = "pdftk"
	}
	if targetChunkKB <= 0 {
		targetChunkKB = 500
	}
	return &Splitter{
		logger:        logger,
		runner:        runner,
		binary:        binary,
		targetChunkKB: targetChunkKB,
	}
}

// PageCount returns the number of pages in the PDF at path, obtained from
// pdftk's dump_data output.
func (s *Splitter) PageCount(ctx context.Context, path string) (int, error) {
	res, err := s.runner.Run(ctx, s.binary, path, "dump_data")
	if err != nil {
		if res.ExitCode > 0 {
			return 0, fmt.Errorf("failed to analyze PDF with %s. Make sure pdftk is installed", s.binary)
		}
		return 0, fmt.Errorf("%s not found. Please install: sudo apt install pdftk", s.binary)
	}

	pages, err := ParsePageCount(string(res.Stdout))
	if err != nil {
		return 0, err
	}
	return pages, nil
}

// ParsePageCount extracts NumberOfPages from pdftk's line-oriented
// "key: value" dump.
func ParsePageCount(dump string) (int, error) {
	for _, line := range strings.Split(dump, "\n") {
		if !strings.HasPrefix(line, "NumberOfPages:") {
			continue
		}
		value := strings.TrimSpace(strings.TrimPrefix(line, "NumberOfPages:"))
		pages, err := strconv.Atoi(value)
		if err != nil {
			return 0, fmt.Errorf("could not determine PDF page count: malformed value %q", value)
		}
		return pages, nil
	}
	return 0, fmt.Errorf("could not determine PDF page count")
}

// PagesPerChunk computes the chunk size heuristic: estimate KB per page from
// the file size, then fit targetChunkKB worth of pages, clamped to
// [1, totalPages].
func PagesPerChunk(fileSizeBytes int64, totalPages, targetChunkKB int) int {
	fileSizeKB := fileSizeBytes / 1024
	estimatedKBPerPage := math.Max(float64(fileSizeKB)/float64(totalPages), 1.0)

	pages := int(math.Floor(float64(targetChunkKB) / estimatedKBPerPage))
	if pages < 1 {
		pages = 1
	}
	if pages > totalPages {
		pages = totalPages
	}
	return pages
}

// PageRange is one contiguous 1-indexed chunk boundary.
type PageRange struct {
	Start int
	End   int
}

// PlanChunks computes contiguous, non-overlapping ranges covering
// 1..totalPages, each pagesPerChunk pages except possibly the last.
func PlanChunks(totalPages, pagesPerChunk int) []PageRange {
	var ranges []PageRange
	for current := 1; current <= totalPages; current += pagesPerChunk {
		end := current + pagesPerChunk - 1
		if end > totalPages {
			end = totalPages
		}
		ranges = append(ranges, PageRange{Start: current, End: end})
	}
	return ranges
}

// Split carves the PDF at inputPath into chunks written next to it in outDir.
// downloadBase is the URL path prefix recorded on each chunk (the upload id
// segment included). Chunks that fail to materialize are logged and omitted;
// the rest continue.
func (s *Splitter) Split(ctx context.Context, inputPath, outDir, downloadBase string, totalPages int) ([]Chunk, error) {
	info, err := os.Stat(inputPath)
	if err != nil {
		return nil, fmt.Errorf("stat input PDF: %w", err)
	}

	pagesPerChunk := PagesPerChunk(info.Size(), totalPages, s.targetChunkKB)

	s.logger.Info().
		Int("total_pages", totalPages).
		Int("pages_per_chunk", pagesPerChunk).
		Msg("Splitting PDF into chunks")

	var chunks []Chunk
	for i, r := range PlanChunks(totalPages, pagesPerChunk) {
		chunkNum := i + 1
		chunkFilename := fmt.Sprintf("chunk_%03d_pages_%d-%d.pdf", chunkNum, r.Start, r.End)
		chunkPath := filepath.Join(outDir, chunkFilename)

		_, err := s.runner.Run(ctx, s.binary,
			inputPath,
			"cat", fmt.Sprintf("%d-%d", r.Start, r.End),
			"output", chunkPath,
		)
		if err != nil {
			s.logger.Warn().
				Int("chunk", chunkNum).
				Err(err).
				Msg("Failed to create chunk")
			continue
		}

		meta, err := os.Stat(chunkPath)
		if err != nil {
			s.logger.Warn().
				Int("chunk", chunkNum).
				Err(err).
				Msg("Chunk file missing after split")
			continue
		}

		chunks = append(chunks, Chunk{
			Filename:     chunkFilename,
			PageRange:    fmt.Sprintf("%d-%d", r.Start, r.End),
			FileSize:     meta.Size(),
			DownloadPath: downloadBase + "/" + chunkFilename,
		})
	}

	s.logger.Info().Int("chunks", len(chunks)).Msg("Split complete")
	return chunks, nil
}
