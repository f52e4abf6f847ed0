package archive

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/portholelabs/porthole/internal/export"
	"github.com/portholelabs/porthole/internal/types"
)

// JSONLArchive appends one JSON line per fetch to a history file.
// Lines carry the record metadata only; page bodies stay out of the
// ledger.
type JSONLArchive struct {
	path   string
	file   *os.File
	writer *bufio.Writer
	mu     sync.Mutex
	count  int
	logger *slog.Logger
}

// NewJSONLArchive opens (or creates) the history file at path for
// appending.
func NewJSONLArchive(path string, logger *slog.Logger) (*JSONLArchive, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create archive dir: %w", err)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open history file: %w", err)
	}

	return &JSONLArchive{
		path:   path,
		file:   file,
		writer: bufio.NewWriter(file),
		logger: logger.With("component", "archive", "backend", "jsonl"),
	}, nil
}

// Record appends rec as one JSON line.
func (a *JSONLArchive) Record(rec *types.FetchRecord) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	data, err := rec.ToJSON()
	if err != nil {
		return &types.ArchiveError{Backend: "jsonl", Err: err}
	}
	if _, err := a.writer.Write(data); err != nil {
		return &types.ArchiveError{Backend: "jsonl", Err: err}
	}
	if err := a.writer.WriteByte('\n'); err != nil {
		return &types.ArchiveError{Backend: "jsonl", Err: err}
	}

	a.count++
	return nil
}

// Close flushes buffered lines and closes the file.
func (a *JSONLArchive) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.writer.Flush(); err != nil {
		a.file.Close()
		return &types.ArchiveError{Backend: "jsonl", Err: err}
	}
	if err := a.file.Close(); err != nil {
		return &types.ArchiveError{Backend: "jsonl", Err: err}
	}

	a.logger.Info("archive closed", "path", a.path, "records", a.count)
	return nil
}

// Name returns the backend identifier.
func (a *JSONLArchive) Name() string { return "jsonl" }

// HTMLArchive saves the body of each successful fetch as a
// timestamped HTML file. Failed fetches have no body and are skipped.
type HTMLArchive struct {
	exporter *export.Exporter
	mu       sync.Mutex
	count    int
	logger   *slog.Logger
}

// NewHTMLArchive creates an HTMLArchive writing through exporter.
func NewHTMLArchive(exporter *export.Exporter, logger *slog.Logger) *HTMLArchive {
	return &HTMLArchive{
		exporter: exporter,
		logger:   logger.With("component", "archive", "backend", "html"),
	}
}

// Record writes the page body of a successful fetch to disk.
func (a *HTMLArchive) Record(rec *types.FetchRecord) error {
	if !rec.OK || len(rec.HTML) == 0 {
		a.logger.Debug("skipping bodyless record", "target", rec.Target)
		return nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if _, err := a.exporter.Write(rec.HTML, rec.FetchedAt); err != nil {
		return &types.ArchiveError{Backend: "html", Err: err}
	}

	a.count++
	return nil
}

// Close logs the final count. Pages are written eagerly, so there is
// nothing to flush.
func (a *HTMLArchive) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.logger.Info("archive closed", "dir", a.exporter.Dir(), "pages", a.count)
	return nil
}

// Name returns the backend identifier.
func (a *HTMLArchive) Name() string { return "html" }
