package types

import (
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// FetchRecord is one line of fetch history, as persisted by the
// archive backends.
type FetchRecord struct {
	// Target is the URL that was requested.
	Target string

	// FinalURL is the URL after redirects, when known.
	FinalURL string

	// Relay names the relay that served the page, if any.
	Relay string

	// StatusCode is the upstream HTTP status, zero when none was seen.
	StatusCode int

	// OK reports whether the fetch produced a page.
	OK bool

	// Error holds the failure message for unsuccessful fetches.
	Error string

	// Bytes is the size of the fetched HTML.
	Bytes int

	// Elapsed is the total fetch duration across all attempts.
	Elapsed time.Duration

	// FetchedAt is when the fetch completed.
	FetchedAt time.Time

	// HTML carries the page body for backends that store it.
	HTML []byte

	// Checksum is a SHA-256 hex digest of the HTML for change detection.
	Checksum string
}

// NewFetchRecord builds a record from a successful snapshot.
func NewFetchRecord(snap *Snapshot) *FetchRecord {
	return &FetchRecord{
		Target:     snap.SourceURL,
		FinalURL:   snap.FinalURL,
		Relay:      snap.Relay,
		StatusCode: snap.StatusCode,
		OK:         true,
		Bytes:      len(snap.HTML),
		Elapsed:    snap.FetchDuration,
		FetchedAt:  snap.FetchedAt,
		HTML:       snap.HTML,
		Checksum:   fmt.Sprintf("%x", sha256.Sum256(snap.HTML)),
	}
}

// NewFailureRecord builds a record for a fetch that produced no page.
func NewFailureRecord(target string, err error) *FetchRecord {
	rec := &FetchRecord{
		Target:    target,
		FetchedAt: time.Now(),
	}
	if err == nil {
		return rec
	}
	rec.Error = err.Error()

	var ex *ExhaustedError
	if errors.As(err, &ex) && ex.Last != nil {
		rec.Relay = ex.Last.Relay
		rec.StatusCode = ex.Last.StatusCode
	}
	return rec
}

// ToJSON serializes the record to a single JSON object. The page body
// is omitted; body-storing backends write it separately.
func (r *FetchRecord) ToJSON() ([]byte, error) {
	return json.Marshal(struct {
		Target     string    `json:"target"`
		FinalURL   string    `json:"final_url,omitempty"`
		Relay      string    `json:"relay,omitempty"`
		StatusCode int       `json:"status_code,omitempty"`
		OK         bool      `json:"ok"`
		Error      string    `json:"error,omitempty"`
		Bytes      int       `json:"bytes"`
		ElapsedMs  int64     `json:"elapsed_ms"`
		FetchedAt  time.Time `json:"fetched_at"`
		Checksum   string    `json:"checksum,omitempty"`
	}{
		Target:     r.Target,
		FinalURL:   r.FinalURL,
		Relay:      r.Relay,
		StatusCode: r.StatusCode,
		OK:         r.OK,
		Error:      r.Error,
		Bytes:      r.Bytes,
		ElapsedMs:  r.Elapsed.Milliseconds(),
		FetchedAt:  r.FetchedAt,
		Checksum:   r.Checksum,
	})
}
