package extract

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

// Runner lets us stub external commands in tests
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	start := time.Now()

	cmd := exec.CommandContext(ctx, name, args...)
	var out, errb bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errb

	err := cmd.Run()
	if err != nil {
		slog.Debug("extract.exec.failed",
			"cmd", name,
			"duration_ms", time.Since(start).Milliseconds(),
			"error", err,
			"stderr", truncateUTF8(errb.String(), 4<<10),
		)
	}
	return out.Bytes(), errb.Bytes(), err
}

// PDFExtractor extracts the text layer of a PDF with pdftotext (poppler)
type PDFExtractor struct {
	bin    string
	runner Runner
}

// NewPDFExtractor creates a PDF extractor. A nil runner executes the binary.
func NewPDFExtractor(bin string, runner Runner) *PDFExtractor {
	if bin == "" {
		bin = "pdftotext"
	}
	if runner == nil {
		runner = execRunner{}
	}
	return &PDFExtractor{bin: bin, runner: runner}
}

// Extract runs pdftotext on path and joins the non-empty pages
func (e *PDFExtractor) Extract(ctx context.Context, path string) (string, error) {
	// pdftotext -layout -enc UTF-8 -eol unix <path> -
	out, errb, err := e.runner.Run(ctx, e.bin, "-layout", "-enc", "UTF-8", "-eol", "unix", path, "-")
	if err != nil {
		msg := strings.TrimSpace(string(errb))
		if msg == "" {
			return "", fmt.Errorf("pdftotext: %w", err)
		}
		return "", fmt.Errorf("pdftotext: %w: %s", err, msg)
	}

	// pages are separated by form feeds
	var pages []string
	for _, page := range strings.Split(string(out), "\f") {
		if strings.TrimSpace(page) != "" {
			pages = append(pages, page)
		}
	}
	return strings.Join(pages, "\n"), nil
}
