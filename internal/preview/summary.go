package preview

import (
	"bytes"
	"log/slog"
	"strings"

	"github.com/antchfx/htmlquery"

	"github.com/portholelabs/porthole/internal/types"
)

// Summary captures the shape of a fetched page for the CLI and API.
type Summary struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Canonical   string `json:"canonical,omitempty"`
	OGTitle     string `json:"og_title,omitempty"`
	OGImage     string `json:"og_image,omitempty"`
	Lang        string `json:"lang,omitempty"`
	Links       int    `json:"links"`
	Images      int    `json:"images"`
	Scripts     int    `json:"scripts"`
	Bytes       int    `json:"bytes"`
}

// Summarizer extracts page summaries from snapshots.
type Summarizer struct {
	logger *slog.Logger
}

// NewSummarizer creates a Summarizer.
func NewSummarizer(logger *slog.Logger) *Summarizer {
	return &Summarizer{
		logger: logger.With("component", "summarizer"),
	}
}

// Summarize inspects the snapshot's HTML and reports its shape.
// CSS selection covers the common fields; canonical and OpenGraph
// metadata go through XPath, which tolerates attribute order and
// missing quoting better.
func (s *Summarizer) Summarize(snap *types.Snapshot) (*Summary, error) {
	doc, err := snap.Document()
	if err != nil {
		return nil, err
	}

	sum := &Summary{
		Title:   strings.TrimSpace(doc.Find("title").First().Text()),
		Links:   doc.Find("a[href]").Length(),
		Images:  doc.Find("img").Length(),
		Scripts: doc.Find("script").Length(),
		Bytes:   len(snap.HTML),
	}
	if desc, ok := doc.Find(`meta[name="description"]`).Attr("content"); ok {
		sum.Description = strings.TrimSpace(desc)
	}
	if lang, ok := doc.Find("html").Attr("lang"); ok {
		sum.Lang = lang
	}

	root, err := htmlquery.Parse(bytes.NewReader(snap.HTML))
	if err != nil {
		s.logger.Warn("xpath parse failed, summary incomplete", "error", err)
		return sum, nil
	}
	if n, err := htmlquery.Query(root, "//link[@rel='canonical']"); err == nil && n != nil {
		sum.Canonical = htmlquery.SelectAttr(n, "href")
	}
	if n, err := htmlquery.Query(root, "//meta[@property='og:title']"); err == nil && n != nil {
		sum.OGTitle = htmlquery.SelectAttr(n, "content")
	}
	if n, err := htmlquery.Query(root, "//meta[@property='og:image']"); err == nil && n != nil {
		sum.OGImage = htmlquery.SelectAttr(n, "content")
	}

	return sum, nil
}
