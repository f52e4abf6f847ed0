package export

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
	Level: slog.LevelError,
}))

// --- Filename Tests ---

func TestFilename(t *testing.T) {
	tests := []struct {
		name string
		time time.Time
		want string
	}{
		{
			name: "afternoon",
			time: time.Date(2025, 3, 14, 15, 9, 26, 0, time.Local),
			want: "page-20250314-150926.html",
		},
		{
			name: "midnight",
			time: time.Date(2024, 1, 1, 0, 0, 0, 0, time.Local),
			want: "page-20240101-000000.html",
		},
		{
			name: "single digit fields zero padded",
			time: time.Date(2025, 7, 5, 4, 3, 2, 0, time.Local),
			want: "page-20250705-040302.html",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Filename(tt.time); got != tt.want {
				t.Errorf("Filename() = %q, want %q", got, tt.want)
			}
		})
	}
}

// --- Exporter Tests ---

func TestExporterWrite(t *testing.T) {
	dir := t.TempDir()
	e := NewExporter(dir, testLogger)

	html := []byte("<html><body><h1>héllo wörld</h1></body></html>")
	stamp := time.Date(2025, 6, 2, 10, 30, 0, 0, time.Local)

	path, err := e.Write(html, stamp)
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	want := filepath.Join(dir, "page-20250602-103000.html")
	if path != want {
		t.Errorf("Write() path = %q, want %q", path, want)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading exported file: %v", err)
	}
	if string(got) != string(html) {
		t.Errorf("exported bytes = %q, want %q", got, html)
	}
}

func TestExporterWriteCreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "exports")
	e := NewExporter(dir, testLogger)

	if _, err := e.Write([]byte("<html></html>"), time.Now()); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	info, err := os.Stat(dir)
	if err != nil {
		t.Fatalf("export dir not created: %v", err)
	}
	if !info.IsDir() {
		t.Error("export path is not a directory")
	}
}

func TestExporterWriteExactBytes(t *testing.T) {
	// Raw bytes must survive untouched, including markup that a
	// well-meaning serializer might rewrite.
	e := NewExporter(t.TempDir(), testLogger)

	html := []byte("<!DOCTYPE html>\n<html><head><meta charset=\"utf-8\"></head><body>&amp; unchanged</body></html>\n")
	path, err := e.Write(html, time.Now())
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading exported file: %v", err)
	}
	if len(got) != len(html) {
		t.Fatalf("exported %d bytes, want %d", len(got), len(html))
	}
	for i := range got {
		if got[i] != html[i] {
			t.Fatalf("byte %d = %#x, want %#x", i, got[i], html[i])
		}
	}
}
