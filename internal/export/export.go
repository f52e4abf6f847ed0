// Package export writes fetched pages to standalone HTML files.
package export

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// MIMEType is the content type of exported pages.
const MIMEType = "text/html; charset=utf-8"

const filenameLayout = "20060102-150405"

// Filename returns the name an export gets at time t, in the form
// page-YYYYMMDD-HHMMSS.html.
func Filename(t time.Time) string {
	return "page-" + t.Format(filenameLayout) + ".html"
}

// Exporter saves fetched pages as timestamped HTML files in one
// directory.
type Exporter struct {
	dir    string
	logger *slog.Logger
}

// NewExporter creates an Exporter rooted at dir.
func NewExporter(dir string, logger *slog.Logger) *Exporter {
	return &Exporter{
		dir:    dir,
		logger: logger.With("component", "exporter"),
	}
}

// Dir returns the export directory.
func (e *Exporter) Dir() string { return e.dir }

// Write saves html under the export directory using the timestamped
// name, creating the directory as needed, and returns the written
// path. The bytes are written as-is; fetched pages are already UTF-8.
func (e *Exporter) Write(html []byte, t time.Time) (string, error) {
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}

	path := filepath.Join(e.dir, Filename(t))
	if err := os.WriteFile(path, html, 0o644); err != nil {
		return "", fmt.Errorf("write export file: %w", err)
	}

	e.logger.Info("page exported", "path", path, "bytes", len(html))
	return path, nil
}
