package preview

import (
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/portholelabs/porthole/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

const testHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <title>Preview Test Page</title>
    <meta name="description" content="A page used to exercise the summarizer">
    <meta property="og:title" content="OG Preview Title">
    <meta property="og:image" content="https://example.com/cover.png">
    <link rel="canonical" href="https://example.com/canonical">
    <script src="/app.js"></script>
</head>
<body onload="boot()">
    <h1 id="headline" class="big">Welcome</h1>
    <p>Some <strong>important</strong> text.</p>
    <a href="/one">one</a>
    <a href="https://example.com/two">two</a>
    <a href="#anchor">three</a>
    <img src="/a.png" alt="a">
    <img src="/b.png" alt="b">
    <script>alert("xss")</script>
    <button onclick="steal()">click</button>
</body>
</html>`

// --- Summarizer Tests ---

func TestSummarize(t *testing.T) {
	snap := &types.Snapshot{HTML: []byte(testHTML), StatusCode: 200}
	sum, err := NewSummarizer(testLogger).Summarize(snap)
	if err != nil {
		t.Fatalf("summarize failed: %v", err)
	}

	if sum.Title != "Preview Test Page" {
		t.Errorf("unexpected title %q", sum.Title)
	}
	if sum.Description != "A page used to exercise the summarizer" {
		t.Errorf("unexpected description %q", sum.Description)
	}
	if sum.Canonical != "https://example.com/canonical" {
		t.Errorf("unexpected canonical %q", sum.Canonical)
	}
	if sum.OGTitle != "OG Preview Title" {
		t.Errorf("unexpected og title %q", sum.OGTitle)
	}
	if sum.OGImage != "https://example.com/cover.png" {
		t.Errorf("unexpected og image %q", sum.OGImage)
	}
	if sum.Lang != "en" {
		t.Errorf("unexpected lang %q", sum.Lang)
	}
	if sum.Links != 3 {
		t.Errorf("expected 3 links, got %d", sum.Links)
	}
	if sum.Images != 2 {
		t.Errorf("expected 2 images, got %d", sum.Images)
	}
	if sum.Scripts != 2 {
		t.Errorf("expected 2 scripts, got %d", sum.Scripts)
	}
	if sum.Bytes != len(testHTML) {
		t.Errorf("expected %d bytes, got %d", len(testHTML), sum.Bytes)
	}
}

func TestSummarizeSparsePage(t *testing.T) {
	snap := &types.Snapshot{HTML: []byte("<html><body><p>bare</p></body></html>")}
	sum, err := NewSummarizer(testLogger).Summarize(snap)
	if err != nil {
		t.Fatalf("summarize failed: %v", err)
	}
	if sum.Title != "" || sum.Description != "" || sum.Canonical != "" {
		t.Errorf("expected empty metadata, got %+v", sum)
	}
	if sum.Links != 0 || sum.Images != 0 {
		t.Errorf("expected zero counts, got %+v", sum)
	}
}

// --- Link Extraction Tests ---

func TestLinks(t *testing.T) {
	page := `<html><body>
		<a href="/docs">Docs</a>
		<a href="https://other.example.org/away" rel="nofollow noopener">Away</a>
		<a href="#top">Top</a>
		<a href="javascript:void(0)">Noop</a>
		<a href="article.html">Article</a>
	</body></html>`
	snap := &types.Snapshot{
		HTML:      []byte(page),
		SourceURL: "https://example.com/blog/index.html",
	}

	links, err := Links(snap)
	if err != nil {
		t.Fatalf("links failed: %v", err)
	}
	if len(links) != 3 {
		t.Fatalf("expected 3 links, got %d: %+v", len(links), links)
	}

	if links[0].URL != "https://example.com/docs" {
		t.Errorf("absolute path not resolved: %q", links[0].URL)
	}
	if links[0].External {
		t.Error("same-host link flagged external")
	}
	if links[0].Anchor != "Docs" {
		t.Errorf("unexpected anchor %q", links[0].Anchor)
	}

	if links[1].URL != "https://other.example.org/away" {
		t.Errorf("unexpected url %q", links[1].URL)
	}
	if !links[1].External {
		t.Error("cross-host link not flagged external")
	}
	if !links[1].NoFollow {
		t.Error("rel=nofollow not detected")
	}

	if links[2].URL != "https://example.com/blog/article.html" {
		t.Errorf("relative path not resolved: %q", links[2].URL)
	}
}

func TestLinksIgnoresFragmentsAndJavascript(t *testing.T) {
	snap := &types.Snapshot{
		HTML:      []byte(`<a href="#a">x</a><a href="javascript:alert(1)">y</a>`),
		SourceURL: "https://example.com",
	}
	links, err := Links(snap)
	if err != nil {
		t.Fatalf("links failed: %v", err)
	}
	if len(links) != 0 {
		t.Errorf("expected no links, got %+v", links)
	}
}

// --- Excerpt Tests ---

func TestExcerpt(t *testing.T) {
	snap := &types.Snapshot{HTML: []byte(testHTML)}
	text, err := Excerpt(snap, 0)
	if err != nil {
		t.Fatalf("excerpt failed: %v", err)
	}

	if !strings.Contains(text, "Welcome") || !strings.Contains(text, "important") {
		t.Errorf("visible text missing from excerpt: %q", text)
	}
	if strings.Contains(text, "alert(") {
		t.Errorf("script body leaked into excerpt: %q", text)
	}
	if strings.Contains(text, "  ") {
		t.Errorf("whitespace not collapsed: %q", text)
	}
}

func TestExcerptLimit(t *testing.T) {
	snap := &types.Snapshot{HTML: []byte("<p>" + strings.Repeat("word ", 50) + "</p>")}
	text, err := Excerpt(snap, 20)
	if err != nil {
		t.Fatalf("excerpt failed: %v", err)
	}
	if len([]rune(text)) > 23 {
		t.Errorf("excerpt not cut to limit: %d runes", len([]rune(text)))
	}
	if !strings.HasSuffix(text, "...") {
		t.Errorf("cut excerpt should end with ellipsis: %q", text)
	}
}

// --- Sanitizer Tests ---

func TestSanitizeStripsActiveContent(t *testing.T) {
	s := NewSanitizer(testLogger)
	out := string(s.Sanitize([]byte(testHTML)))

	if strings.Contains(out, "<script") {
		t.Error("script tags should be removed")
	}
	if strings.Contains(out, "alert(") {
		t.Error("inline script bodies should be removed")
	}
	if strings.Contains(out, "onclick") || strings.Contains(out, "onload") {
		t.Error("event handler attributes should be removed")
	}
	if !strings.Contains(out, "Welcome") {
		t.Error("visible text should survive")
	}
	if !strings.Contains(out, "<strong>important</strong>") {
		t.Error("inline formatting should survive")
	}
	if !strings.Contains(out, `id="headline"`) || !strings.Contains(out, `class="big"`) {
		t.Error("id and class attributes should survive for styling hooks")
	}
}

func TestSanitizeKeepsStructure(t *testing.T) {
	in := `<html><body><main><article><h2>Story</h2><p>body</p></article></main></body></html>`
	out := string(NewSanitizer(testLogger).Sanitize([]byte(in)))

	for _, tag := range []string{"<main>", "<article>", "<h2>", "<p>"} {
		if !strings.Contains(out, tag) {
			t.Errorf("expected %s to survive, got %q", tag, out)
		}
	}
}

func TestSanitizeNeutralizesJavascriptHref(t *testing.T) {
	in := `<a href="javascript:alert(1)">x</a><a href="https://example.com">ok</a>`
	out := string(NewSanitizer(testLogger).Sanitize([]byte(in)))

	if strings.Contains(out, "javascript:") {
		t.Errorf("javascript: URLs should be stripped, got %q", out)
	}
	if !strings.Contains(out, `href="https://example.com"`) {
		t.Errorf("safe links should survive, got %q", out)
	}
}
