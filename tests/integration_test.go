package integration

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/portholelabs/porthole/internal/types"
	"github.com/portholelabs/porthole/pkg/porthole"
)

// TestLiveRelayFetch walks the default relay chain for a real page.
func TestLiveRelayFetch(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping live test")
	}

	client, err := porthole.NewClient(porthole.WithTimeout(20 * time.Second))
	if err != nil {
		t.Fatalf("create client: %v", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	page, err := client.Fetch(ctx, "https://example.com")
	if err != nil {
		if errors.Is(err, types.ErrRelaysExhausted) {
			t.Skipf("every public relay refused the fetch: %v", err)
		}
		t.Fatalf("fetch error: %v", err)
	}

	t.Logf("Relay: %s", page.Relay())
	t.Logf("Status: %d", page.StatusCode())
	t.Logf("Body size: %d bytes", len(page.HTML()))
	t.Logf("Duration: %s", page.Duration())

	if page.Relay() == "" {
		t.Error("expected the page to arrive through a relay")
	}
	if len(page.HTML()) < 100 {
		t.Error("body too short")
	}
	if !strings.Contains(strings.ToLower(string(page.HTML())), "<html") {
		t.Error("body does not look like HTML")
	}
}

// TestLiveDirectFetch bypasses the relays entirely.
func TestLiveDirectFetch(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping live test")
	}

	client, err := porthole.NewClient(porthole.WithDirect())
	if err != nil {
		t.Fatalf("create client: %v", err)
	}
	defer client.Close()

	page, err := client.Fetch(context.Background(), "https://example.com")
	if err != nil {
		t.Fatalf("fetch error: %v", err)
	}

	if page.StatusCode() != 200 {
		t.Errorf("expected 200, got %d", page.StatusCode())
	}
	if page.Relay() != "" {
		t.Errorf("direct fetch reported relay %q", page.Relay())
	}
}

// TestLiveSummarize extracts metadata from a real page.
func TestLiveSummarize(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping live test")
	}

	client, err := porthole.NewClient(porthole.WithDirect())
	if err != nil {
		t.Fatalf("create client: %v", err)
	}
	defer client.Close()

	page, err := client.Fetch(context.Background(), "https://example.com")
	if err != nil {
		t.Fatalf("fetch error: %v", err)
	}

	sum, err := client.Summarize(page)
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}

	t.Logf("Title: %s", sum.Title)
	t.Logf("Links: %d, Images: %d, Scripts: %d", sum.Links, sum.Images, sum.Scripts)

	if sum.Title == "" {
		t.Error("expected a page title")
	}
}

// TestLiveExportRoundTrip saves a fetched page and reads it back.
func TestLiveExportRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping live test")
	}

	dir := t.TempDir()
	client, err := porthole.NewClient(porthole.WithDirect(), porthole.WithExportDir(dir))
	if err != nil {
		t.Fatalf("create client: %v", err)
	}
	defer client.Close()

	page, err := client.Fetch(context.Background(), "https://example.com")
	if err != nil {
		t.Fatalf("fetch error: %v", err)
	}

	path, err := client.Export(page)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	t.Logf("Exported to %s", path)

	namePattern := regexp.MustCompile(`^page-\d{8}-\d{6}\.html$`)
	if !namePattern.MatchString(filepath.Base(path)) {
		t.Errorf("export name %q does not match the timestamp pattern", filepath.Base(path))
	}

	saved, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading export: %v", err)
	}
	if string(saved) != string(page.HTML()) {
		t.Error("exported bytes differ from the fetched page")
	}
}

// TestLiveRelayStatus checks relay bookkeeping after a real fetch.
func TestLiveRelayStatus(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping live test")
	}

	client, err := porthole.NewClient(porthole.WithTimeout(20 * time.Second))
	if err != nil {
		t.Fatalf("create client: %v", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	page, err := client.Fetch(ctx, "https://example.com")
	if err != nil {
		if errors.Is(err, types.ErrRelaysExhausted) {
			t.Skipf("every public relay refused the fetch: %v", err)
		}
		t.Fatalf("fetch error: %v", err)
	}

	statuses := client.Relays()
	if len(statuses) == 0 {
		t.Fatal("no relay statuses reported")
	}

	for _, st := range statuses {
		t.Logf("  %-12s healthy=%v attempts=%d successes=%d latency=%dms",
			st.Name, st.Healthy, st.Attempts, st.Successes, st.LatencyMs)
	}

	served := page.Relay()
	found := false
	for _, st := range statuses {
		if st.Name == served {
			found = true
			if st.Successes < 1 {
				t.Errorf("relay %s served the page but reports no successes", served)
			}
		}
	}
	if !found {
		t.Errorf("serving relay %q missing from statuses", served)
	}
}
