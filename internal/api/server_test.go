package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/portholelabs/porthole/internal/archive"
	"github.com/portholelabs/porthole/internal/config"
	"github.com/portholelabs/porthole/internal/fetcher"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
	Level: slog.LevelError,
}))

const samplePage = `<html><head><title>Sample</title></head><body><a href="/x">x</a><script>alert(1)</script></body></html>`

func relayServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestServer(t *testing.T, relays ...*httptest.Server) (*Server, *httptest.Server) {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Export.Dir = t.TempDir()
	cfg.Fetcher.AttemptTimeout = 5 * time.Second
	cfg.Relays.Endpoints = nil
	for i, rs := range relays {
		cfg.Relays.Endpoints = append(cfg.Relays.Endpoints, config.RelayEndpoint{
			Name:   fmt.Sprintf("relay%d", i),
			Prefix: rs.URL + "/?url=",
		})
	}

	f, err := fetcher.NewRelayFetcher(cfg, testLogger)
	if err != nil {
		t.Fatalf("NewRelayFetcher() error = %v", err)
	}
	t.Cleanup(func() { f.Close() })

	s := NewServer(cfg, f, testLogger)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

func postJSON(t *testing.T, target string, payload any) *http.Response {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshaling payload: %v", err)
	}
	resp, err := http.Post(target, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST %s: %v", target, err)
	}
	return resp
}

type fetchResult struct {
	OK        bool   `json:"ok"`
	HTML      string `json:"html"`
	SourceURL string `json:"sourceUrl"`
	Relay     string `json:"relay"`
	Error     string `json:"error"`
	Kind      string `json:"kind"`
	Summary   *struct {
		Title   string `json:"title"`
		Links   int    `json:"links"`
		Scripts int    `json:"scripts"`
	} `json:"summary"`
}

func decodeFetch(t *testing.T, resp *http.Response) fetchResult {
	t.Helper()
	defer resp.Body.Close()
	var out fetchResult
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return out
}

// --- Fetch Endpoint Tests ---

func TestFetchEndpoint(t *testing.T) {
	_, ts := newTestServer(t, relayServer(t, http.StatusOK, samplePage))

	resp := postJSON(t, ts.URL+"/api/fetch", map[string]any{"url": "https://example.com/page"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	out := decodeFetch(t, resp)
	if !out.OK {
		t.Fatalf("ok = false, error = %q", out.Error)
	}
	if out.HTML != samplePage {
		t.Errorf("html = %q, want the relayed page", out.HTML)
	}
	if out.SourceURL != "https://example.com/page" {
		t.Errorf("sourceUrl = %q", out.SourceURL)
	}
	if out.Relay != "relay0" {
		t.Errorf("relay = %q, want relay0", out.Relay)
	}
	if out.Summary == nil {
		t.Fatal("summary missing")
	}
	if out.Summary.Title != "Sample" {
		t.Errorf("summary title = %q, want Sample", out.Summary.Title)
	}
	if out.Summary.Links != 1 || out.Summary.Scripts != 1 {
		t.Errorf("summary counts = %d links / %d scripts, want 1/1", out.Summary.Links, out.Summary.Scripts)
	}
}

func TestFetchEndpointSanitize(t *testing.T) {
	_, ts := newTestServer(t, relayServer(t, http.StatusOK, samplePage))

	resp := postJSON(t, ts.URL+"/api/fetch", map[string]any{
		"url":      "https://example.com/page",
		"sanitize": true,
	})
	out := decodeFetch(t, resp)
	if !out.OK {
		t.Fatalf("ok = false, error = %q", out.Error)
	}
	if strings.Contains(out.HTML, "<script") {
		t.Error("sanitized html still contains a script tag")
	}
	if !strings.Contains(out.HTML, "x") {
		t.Error("sanitized html lost the page text")
	}
}

func TestFetchEndpointInvalidURL(t *testing.T) {
	_, ts := newTestServer(t, relayServer(t, http.StatusOK, samplePage))

	resp := postJSON(t, ts.URL+"/api/fetch", map[string]any{"url": "ftp://files.example.com"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}

	out := decodeFetch(t, resp)
	if out.OK {
		t.Error("ok = true for an invalid URL")
	}
	if out.Kind != "invalid_input" {
		t.Errorf("kind = %q, want invalid_input", out.Kind)
	}
}

func TestFetchEndpointBadJSON(t *testing.T) {
	_, ts := newTestServer(t, relayServer(t, http.StatusOK, samplePage))

	resp, err := http.Post(ts.URL+"/api/fetch", "application/json", strings.NewReader("{nope"))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestFetchEndpointExhausted(t *testing.T) {
	s, ts := newTestServer(t,
		relayServer(t, http.StatusNotFound, ""),
		relayServer(t, http.StatusServiceUnavailable, ""),
	)

	resp := postJSON(t, ts.URL+"/api/fetch", map[string]any{"url": "https://example.com/page"})
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", resp.StatusCode)
	}

	out := decodeFetch(t, resp)
	if out.OK {
		t.Error("ok = true after exhaustion")
	}
	if out.Kind != "relays_exhausted" {
		t.Errorf("kind = %q, want relays_exhausted", out.Kind)
	}
	if !strings.Contains(out.Error, "cross-origin") {
		t.Errorf("error = %q, want a cross-origin hint", out.Error)
	}
	if !strings.Contains(out.Error, "503") {
		t.Errorf("error = %q, want the last status", out.Error)
	}

	if got := s.metrics.RelaysExhausted.Load(); got != 1 {
		t.Errorf("relays exhausted counter = %d, want 1", got)
	}
	if got := s.metrics.RelayAttempts.Load(); got != 2 {
		t.Errorf("relay attempts counter = %d, want 2", got)
	}
}

// --- Validate Endpoint Tests ---

func TestValidateEndpoint(t *testing.T) {
	_, ts := newTestServer(t, relayServer(t, http.StatusOK, samplePage))

	tests := []struct {
		raw   string
		valid bool
	}{
		{"https://example.com", true},
		{"http://example.com/a?b=c", true},
		{"ftp://files.example.com", false},
		{"example.com", false},
		{"", false},
	}

	for _, tt := range tests {
		q := url.Values{"url": {tt.raw}}
		resp, err := http.Get(ts.URL + "/api/validate?" + q.Encode())
		if err != nil {
			t.Fatalf("GET validate: %v", err)
		}

		var out struct {
			URL   string `json:"url"`
			Valid bool   `json:"valid"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			t.Fatalf("decoding response: %v", err)
		}
		resp.Body.Close()

		if out.Valid != tt.valid {
			t.Errorf("validate(%q) = %v, want %v", tt.raw, out.Valid, tt.valid)
		}
	}
}

// --- Export Endpoint Tests ---

func TestExportEndpoint(t *testing.T) {
	s, ts := newTestServer(t, relayServer(t, http.StatusOK, samplePage))

	resp := postJSON(t, ts.URL+"/api/export", map[string]any{"html": samplePage})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	if ct := resp.Header.Get("Content-Type"); ct != "text/html; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}
	cd := resp.Header.Get("Content-Disposition")
	if !strings.HasPrefix(cd, `attachment; filename="page-`) || !strings.HasSuffix(cd, `.html"`) {
		t.Errorf("Content-Disposition = %q", cd)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading body: %v", err)
	}
	if string(body) != samplePage {
		t.Error("download did not round-trip the page bytes")
	}

	entries, err := os.ReadDir(s.cfg.Export.Dir)
	if err != nil {
		t.Fatalf("reading export dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("export dir has %d files, want 1", len(entries))
	}
	saved, err := os.ReadFile(filepath.Join(s.cfg.Export.Dir, entries[0].Name()))
	if err != nil {
		t.Fatalf("reading saved file: %v", err)
	}
	if string(saved) != samplePage {
		t.Error("saved file does not match the exported page")
	}
}

func TestExportEndpointEmpty(t *testing.T) {
	_, ts := newTestServer(t, relayServer(t, http.StatusOK, samplePage))

	resp := postJSON(t, ts.URL+"/api/export", map[string]any{"html": ""})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

// --- Introspection Endpoint Tests ---

func TestRelaysEndpoint(t *testing.T) {
	_, ts := newTestServer(t, relayServer(t, http.StatusOK, samplePage))

	postJSON(t, ts.URL+"/api/fetch", map[string]any{"url": "https://example.com/page"}).Body.Close()

	resp, err := http.Get(ts.URL + "/api/relays")
	if err != nil {
		t.Fatalf("GET relays: %v", err)
	}
	defer resp.Body.Close()

	var out struct {
		Mode   string `json:"mode"`
		Relays []struct {
			Name     string `json:"name"`
			Healthy  bool   `json:"healthy"`
			Attempts int64  `json:"attempts"`
		} `json:"relays"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decoding response: %v", err)
	}

	if out.Mode != "relay" {
		t.Errorf("mode = %q, want relay", out.Mode)
	}
	if len(out.Relays) != 1 {
		t.Fatalf("relays = %d, want 1", len(out.Relays))
	}
	if out.Relays[0].Attempts != 1 || !out.Relays[0].Healthy {
		t.Errorf("relay status = %+v after a successful fetch", out.Relays[0])
	}
}

func TestHealthEndpoint(t *testing.T) {
	_, ts := newTestServer(t, relayServer(t, http.StatusOK, samplePage))

	resp, err := http.Get(ts.URL + "/api/health")
	if err != nil {
		t.Fatalf("GET health: %v", err)
	}
	defer resp.Body.Close()

	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if out["status"] != "ok" {
		t.Errorf("status = %v, want ok", out["status"])
	}
	if out["mode"] != "relay" {
		t.Errorf("mode = %v, want relay", out["mode"])
	}
	if out["relays_total"] != float64(1) {
		t.Errorf("relays_total = %v, want 1", out["relays_total"])
	}
}

func TestStatsEndpoint(t *testing.T) {
	_, ts := newTestServer(t, relayServer(t, http.StatusOK, samplePage))

	postJSON(t, ts.URL+"/api/fetch", map[string]any{"url": "https://example.com/page"}).Body.Close()

	resp, err := http.Get(ts.URL + "/api/stats")
	if err != nil {
		t.Fatalf("GET stats: %v", err)
	}
	defer resp.Body.Close()

	var stats map[string]int64
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if stats["fetches_total"] != 1 {
		t.Errorf("fetches_total = %d, want 1", stats["fetches_total"])
	}
	if stats["fetches_succeeded"] != 1 {
		t.Errorf("fetches_succeeded = %d, want 1", stats["fetches_succeeded"])
	}
}

func TestIndexServed(t *testing.T) {
	_, ts := newTestServer(t, relayServer(t, http.StatusOK, samplePage))

	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q", ct)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "<title>Porthole</title>") {
		t.Error("index page missing title")
	}
	if !strings.Contains(string(body), "sandbox") {
		t.Error("index page missing sandboxed preview frame")
	}
}

// --- Archive Wiring Tests ---

func TestFetchRecordsHistory(t *testing.T) {
	s, ts := newTestServer(t,
		relayServer(t, http.StatusOK, samplePage),
	)

	histPath := filepath.Join(t.TempDir(), "fetches.jsonl")
	arch, err := archive.NewJSONLArchive(histPath, testLogger)
	if err != nil {
		t.Fatalf("NewJSONLArchive() error = %v", err)
	}
	s.SetArchiver(arch)

	postJSON(t, ts.URL+"/api/fetch", map[string]any{"url": "https://example.com/page"}).Body.Close()
	postJSON(t, ts.URL+"/api/fetch", map[string]any{"url": "not a url"}).Body.Close()

	if err := arch.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	data, err := os.ReadFile(histPath)
	if err != nil {
		t.Fatalf("reading history: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 1 {
		t.Fatalf("history has %d lines, want 1 (invalid input is rejected before fetching)", len(lines))
	}

	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("history line is not valid JSON: %v", err)
	}
	if rec["ok"] != true || rec["target"] != "https://example.com/page" {
		t.Errorf("history record = %v", rec)
	}
}
