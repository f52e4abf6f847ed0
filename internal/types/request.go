package types

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Fetch modes selecting how a page is retrieved.
const (
	ModeRelay   = "relay"
	ModeDirect  = "direct"
	ModeBrowser = "browser"
)

// FetchRequest describes a single page retrieval.
type FetchRequest struct {
	// URL is the target page to retrieve.
	URL *url.URL

	// Mode selects the fetcher: "relay", "direct" or "browser".
	// Defaults to relay.
	Mode string

	// Headers are extra HTTP headers sent with the outbound request.
	Headers http.Header

	// Timeout overrides the configured per-attempt timeout.
	Timeout time.Duration

	// Meta stores arbitrary metadata attached to this request.
	Meta map[string]any

	// CreatedAt is when this request was created.
	CreatedAt time.Time

	// ID is a unique identifier for this request.
	ID string
}

// ValidTargetURL reports whether raw is an absolute URL whose scheme is
// http or https. Any other scheme (ftp, file, javascript, data, ...),
// scheme-less input, bare paths, and unparseable text are rejected.
// Leading and trailing whitespace is ignored. The check never touches
// the network.
func ValidTargetURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return u.Host != ""
}

// NewFetchRequest validates raw and creates a FetchRequest with defaults.
// Invalid input yields an error wrapping ErrInvalidTarget.
func NewFetchRequest(raw string) (*FetchRequest, error) {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidTarget, raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: %q: scheme must be http or https", ErrInvalidTarget, raw)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: %q: missing host", ErrInvalidTarget, raw)
	}

	return &FetchRequest{
		URL:       u,
		Mode:      ModeRelay,
		Headers:   make(http.Header),
		Meta:      make(map[string]any),
		CreatedAt: time.Now(),
		ID:        fmt.Sprintf("%s-%d", u.String(), time.Now().UnixNano()),
	}, nil
}

// URLString returns the string representation of the target URL.
func (r *FetchRequest) URLString() string {
	if r.URL == nil {
		return ""
	}
	return r.URL.String()
}

// Domain returns the hostname of the target URL.
func (r *FetchRequest) Domain() string {
	if r.URL == nil {
		return ""
	}
	return r.URL.Hostname()
}
