package archive

import (
	"github.com/portholelabs/porthole/internal/types"
)

// MultiArchive fans each record out to several backends. Every
// backend sees every record; the first error is reported after all
// backends have run.
type MultiArchive struct {
	backends []Archiver
}

// NewMulti combines backends into a single Archiver.
func NewMulti(backends ...Archiver) *MultiArchive {
	return &MultiArchive{backends: backends}
}

// Record persists rec in every backend.
func (m *MultiArchive) Record(rec *types.FetchRecord) error {
	var firstErr error
	for _, b := range m.backends {
		if err := b.Record(rec); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Close closes every backend.
func (m *MultiArchive) Close() error {
	var firstErr error
	for _, b := range m.backends {
		if err := b.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Name returns the backend identifier.
func (m *MultiArchive) Name() string { return "multi" }
