package types

import (
	"bytes"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Snapshot is the result of successfully fetching a page.
type Snapshot struct {
	// StatusCode is the upstream HTTP status code.
	StatusCode int

	// Headers are the response HTTP headers as seen by the fetcher.
	Headers http.Header

	// HTML is the page body, decompressed, as UTF-8 bytes.
	HTML []byte

	// Request is a reference to the originating request.
	Request *FetchRequest

	// ContentType is the MIME type reported by the response.
	ContentType string

	// ContentLength is the size of HTML in bytes.
	ContentLength int64

	// SourceURL is the target URL that was requested.
	SourceURL string

	// FinalURL is the URL after any redirects.
	FinalURL string

	// Relay names the relay endpoint that served the page. Empty for
	// direct and browser fetches.
	Relay string

	// Attempts counts the requests made before this page arrived,
	// including the one that succeeded.
	Attempts int

	// Doc is a parsed goquery document (lazily loaded).
	Doc *goquery.Document

	// FetchDuration is how long the fetch took, across all attempts.
	FetchDuration time.Duration

	// FetchedAt is when the page was received.
	FetchedAt time.Time
}

// NewSnapshot creates a Snapshot from an http.Response served by a relay.
func NewSnapshot(req *FetchRequest, httpResp *http.Response, body []byte, relay string, duration time.Duration) *Snapshot {
	return &Snapshot{
		StatusCode:    httpResp.StatusCode,
		Headers:       httpResp.Header,
		HTML:          body,
		Request:       req,
		ContentType:   httpResp.Header.Get("Content-Type"),
		ContentLength: int64(len(body)),
		SourceURL:     req.URLString(),
		FinalURL:      httpResp.Request.URL.String(),
		Relay:         relay,
		FetchDuration: duration,
		FetchedAt:     time.Now(),
	}
}

// NewBrowserSnapshot creates a Snapshot from headless browser output.
func NewBrowserSnapshot(req *FetchRequest, statusCode int, body []byte, finalURL string, duration time.Duration) *Snapshot {
	return &Snapshot{
		StatusCode:    statusCode,
		Headers:       make(http.Header),
		HTML:          body,
		Request:       req,
		ContentType:   "text/html",
		ContentLength: int64(len(body)),
		SourceURL:     req.URLString(),
		FinalURL:      finalURL,
		FetchDuration: duration,
		FetchedAt:     time.Now(),
	}
}

// Document returns a parsed goquery document, lazily initializing it.
func (s *Snapshot) Document() (*goquery.Document, error) {
	if s.Doc != nil {
		return s.Doc, nil
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(s.HTML))
	if err != nil {
		return nil, err
	}
	s.Doc = doc
	return doc, nil
}

// IsSuccess returns true if the upstream status is 2xx.
func (s *Snapshot) IsSuccess() bool {
	return s.StatusCode >= 200 && s.StatusCode < 300
}
