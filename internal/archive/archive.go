// Package archive persists fetch history to pluggable backends.
package archive

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/portholelabs/porthole/internal/config"
	"github.com/portholelabs/porthole/internal/export"
	"github.com/portholelabs/porthole/internal/types"
)

// Archiver is the interface for all archive backends.
type Archiver interface {
	// Record persists a single fetch record.
	Record(rec *types.FetchRecord) error

	// Close flushes pending writes and releases resources.
	Close() error

	// Name returns the archive backend identifier.
	Name() string
}

// New creates the archive backend selected by cfg. A comma-separated
// type like "jsonl,mongo" fans out to every listed backend. It returns
// nil without error when archiving is disabled.
func New(cfg *config.ArchiveConfig, logger *slog.Logger) (Archiver, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	if strings.Contains(cfg.Type, ",") {
		var backends []Archiver
		for _, part := range strings.Split(cfg.Type, ",") {
			sub := *cfg
			sub.Type = strings.TrimSpace(part)
			b, err := New(&sub, logger)
			if err != nil {
				for _, open := range backends {
					open.Close()
				}
				return nil, err
			}
			backends = append(backends, b)
		}
		return NewMulti(backends...), nil
	}

	switch cfg.Type {
	case "jsonl":
		return NewJSONLArchive(filepath.Join(cfg.OutputPath, "fetches.jsonl"), logger)
	case "html":
		return NewHTMLArchive(export.NewExporter(cfg.OutputPath, logger), logger), nil
	case "mongo":
		return NewMongoArchive(cfg, logger)
	default:
		return nil, fmt.Errorf("unknown archive type: %s", cfg.Type)
	}
}
