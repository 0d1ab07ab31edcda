// Package convert turns multi-page PDFs into ordered page images by invoking
// the external pdftoppm tool.
package convert

import (
	"context"
	"fmt"
	"os"

	"github.com/rockerrishabh/sanskrit-ocr/internal/toolrunner"
)

// Converter rasterizes PDFs with pdftoppm.
type Converter struct {
	runner toolrunner.Runner
	binary string
}

// NewConverter creates a Converter. binary is the pdftoppm executable name.
func NewConverter(runner toolrunner.Runner, binary string) *Converter {
	if binary == "" {
		binary = "pdftoppm"
	}
	return &Converter{runner: runner, binary: binary}
}

// Convert rasterizes pdfPath into PNG page images named from outPrefix and
// returns their paths in page order. pdftoppm pads page numbers
// inconsistently, so each index is probed with 3-digit padding first, then
// 2-digit; the first index where both are absent ends the scan.
func (c *Converter) Convert(ctx context.Context, pdfPath, outPrefix string) ([]string, error) {
	res, err := c.runner.Run(ctx, c.binary, "-png", pdfPath, outPrefix)
	if err != nil {
		if res.ExitCode > 0 {
			return nil, fmt.Errorf("PDF conversion error: %s. Make sure poppler-utils is installed", string(res.Stderr))
		}
		return nil, fmt.Errorf("failed to execute %s: %w. Install poppler-utils package", c.binary, err)
	}

	pages := DiscoverPages(outPrefix)
	if len(pages) == 0 {
		return nil, fmt.Errorf("PDF conversion failed: no output files created")
	}
	return pages, nil
}

// DiscoverPages probes pdftoppm output names starting at page 1 and returns
// the paths found, in order.
func DiscoverPages(outPrefix string) []string {
	var pages []string
	for pageNum := 1; ; pageNum++ {
		path := fmt.Sprintf("%s-%03d.png", outPrefix, pageNum)
		if !fileExists(path) {
			path = fmt.Sprintf("%s-%02d.png", outPrefix, pageNum)
			if !fileExists(path) {
				break
			}
		}
		pages = append(pages, path)
	}
	return pages
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
