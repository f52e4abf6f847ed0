package types

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure modes.
var (
	ErrInvalidTarget   = errors.New("invalid target URL")
	ErrRelaysExhausted = errors.New("all relays exhausted")
	ErrEmptyBody       = errors.New("empty response body")
	ErrNoFetcher       = errors.New("no fetcher available for mode")
)

// AttemptError records the failure of a single fetch attempt, either
// through a relay or directly. StatusCode is zero when the attempt
// failed at the transport level before any HTTP status was received.
type AttemptError struct {
	Relay      string
	URL        string
	StatusCode int
	Err        error
}

func (e *AttemptError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("relay %s returned status %d for %s", e.Relay, e.StatusCode, e.URL)
	}
	return fmt.Sprintf("relay %s failed for %s: %v", e.Relay, e.URL, e.Err)
}

func (e *AttemptError) Unwrap() error { return e.Err }

// Transport reports whether the attempt failed before receiving an
// HTTP status (dial, TLS, timeout, reset, malformed response).
func (e *AttemptError) Transport() bool { return e.StatusCode == 0 }

// ExhaustedError is returned when every relay in the chain has been
// tried and none produced a successful response. Last retains the most
// recent attempt failure.
type ExhaustedError struct {
	Target   string
	Attempts int
	Last     *AttemptError
}

func (e *ExhaustedError) Error() string {
	msg := fmt.Sprintf("could not retrieve %s: all %d relay attempts failed; the page may enforce cross-origin restrictions or the upstream may be unavailable", e.Target, e.Attempts)
	if e.Last == nil {
		return msg
	}
	if e.Last.StatusCode > 0 {
		return fmt.Sprintf("%s (last: relay %s returned status %d)", msg, e.Last.Relay, e.Last.StatusCode)
	}
	return fmt.Sprintf("%s (last: relay %s: %v)", msg, e.Last.Relay, e.Last.Err)
}

func (e *ExhaustedError) Unwrap() error { return ErrRelaysExhausted }

// ArchiveError wraps errors from a history backend.
type ArchiveError struct {
	Backend string
	Err     error
}

func (e *ArchiveError) Error() string {
	return fmt.Sprintf("archive error (%s): %v", e.Backend, e.Err)
}

func (e *ArchiveError) Unwrap() error { return e.Err }
