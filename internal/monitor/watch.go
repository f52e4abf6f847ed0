// Package monitor re-fetches pages on an interval and reports when
// their content changes.
package monitor

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/portholelabs/porthole/internal/fetcher"
	"github.com/portholelabs/porthole/internal/types"
)

// ChangeType identifies what kind of change occurred.
type ChangeType string

const (
	ChangeAdded    ChangeType = "added"
	ChangeModified ChangeType = "modified"
)

// Change represents a detected page change.
type Change struct {
	URL       string     `json:"url"`
	Type      ChangeType `json:"type"`
	Field     string     `json:"field,omitempty"`
	OldValue  string     `json:"old_value,omitempty"`
	NewValue  string     `json:"new_value,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}

// pageState is what a page looked like the last time it was seen.
type pageState struct {
	Checksum   string    `json:"checksum"`
	Title      string    `json:"title"`
	Bytes      int       `json:"bytes"`
	StatusCode int       `json:"status_code"`
	FetchedAt  time.Time `json:"fetched_at"`
}

// ChangeDetector compares fetched pages against their last known
// state, kept as one JSON file per URL.
type ChangeDetector struct {
	stateDir string
	logger   *slog.Logger
	mu       sync.Mutex
}

// NewChangeDetector creates a detector persisting state under dir.
func NewChangeDetector(dir string, logger *slog.Logger) *ChangeDetector {
	os.MkdirAll(dir, 0o755)
	return &ChangeDetector{
		stateDir: dir,
		logger:   logger.With("component", "change_detector"),
	}
}

// Detect compares snap against the stored state for its URL and
// returns the changes, updating the stored state.
func (cd *ChangeDetector) Detect(snap *types.Snapshot) ([]Change, error) {
	state := stateOf(snap)

	cd.mu.Lock()
	defer cd.mu.Unlock()

	old, err := cd.load(snap.SourceURL)
	if err != nil {
		// First time seeing this URL.
		if err := cd.save(snap.SourceURL, state); err != nil {
			return nil, err
		}
		return []Change{{URL: snap.SourceURL, Type: ChangeAdded, Timestamp: time.Now()}}, nil
	}

	var changes []Change
	record := func(field, oldVal, newVal string) {
		if oldVal == newVal {
			return
		}
		changes = append(changes, Change{
			URL:       snap.SourceURL,
			Type:      ChangeModified,
			Field:     field,
			OldValue:  truncate(oldVal, 200),
			NewValue:  truncate(newVal, 200),
			Timestamp: time.Now(),
		})
	}

	record("checksum", old.Checksum, state.Checksum)
	record("title", old.Title, state.Title)
	record("bytes", fmt.Sprintf("%d", old.Bytes), fmt.Sprintf("%d", state.Bytes))
	record("status", fmt.Sprintf("%d", old.StatusCode), fmt.Sprintf("%d", state.StatusCode))

	if len(changes) > 0 {
		if err := cd.save(snap.SourceURL, state); err != nil {
			return nil, err
		}
	}
	return changes, nil
}

func stateOf(snap *types.Snapshot) pageState {
	sum := sha256.Sum256(snap.HTML)

	title := ""
	if doc, err := snap.Document(); err == nil {
		title = strings.TrimSpace(doc.Find("title").First().Text())
	}

	return pageState{
		Checksum:   hex.EncodeToString(sum[:]),
		Title:      title,
		Bytes:      len(snap.HTML),
		StatusCode: snap.StatusCode,
		FetchedAt:  snap.FetchedAt,
	}
}

func (cd *ChangeDetector) load(url string) (pageState, error) {
	var state pageState
	data, err := os.ReadFile(cd.statePath(url))
	if err != nil {
		return state, err
	}
	return state, json.Unmarshal(data, &state)
}

func (cd *ChangeDetector) save(url string, state pageState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return os.WriteFile(cd.statePath(url), data, 0o644)
}

func (cd *ChangeDetector) statePath(url string) string {
	hash := sha256.Sum256([]byte(url))
	return filepath.Join(cd.stateDir, hex.EncodeToString(hash[:])+".json")
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

// Watcher re-fetches a set of URLs on an interval and runs a callback
// for any changes.
type Watcher struct {
	fetcher  fetcher.Fetcher
	detector *ChangeDetector
	interval time.Duration
	logger   *slog.Logger
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewWatcher creates a Watcher polling through f every interval.
func NewWatcher(f fetcher.Fetcher, detector *ChangeDetector, interval time.Duration, logger *slog.Logger) *Watcher {
	return &Watcher{
		fetcher:  f,
		detector: detector,
		interval: interval,
		logger:   logger.With("component", "watcher"),
		done:     make(chan struct{}),
	}
}

// Watch polls urls until the context is canceled or Stop is called.
// Each round fetches every URL once; onChange runs for every non-empty
// change set.
func (w *Watcher) Watch(ctx context.Context, urls []string, onChange func([]Change)) {
	ctx, w.cancel = context.WithCancel(ctx)

	go func() {
		defer close(w.done)

		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		w.logger.Info("watch started", "urls", len(urls), "interval", w.interval)
		w.poll(ctx, urls, onChange)

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				w.poll(ctx, urls, onChange)
			}
		}
	}()
}

func (w *Watcher) poll(ctx context.Context, urls []string, onChange func([]Change)) {
	for _, raw := range urls {
		if ctx.Err() != nil {
			return
		}

		req, err := types.NewFetchRequest(raw)
		if err != nil {
			w.logger.Warn("skipping invalid watch target", "url", raw, "error", err)
			continue
		}

		snap, err := w.fetcher.Fetch(ctx, req)
		if err != nil {
			w.logger.Warn("watch fetch failed", "url", raw, "error", err)
			continue
		}

		changes, err := w.detector.Detect(snap)
		if err != nil {
			w.logger.Error("change detection failed", "url", raw, "error", err)
			continue
		}
		if len(changes) > 0 && onChange != nil {
			onChange(changes)
		}
	}
}

// Stop cancels the watch loop and waits for it to exit.
func (w *Watcher) Stop() {
	if w.cancel != nil {
		w.cancel()
		<-w.done
	}
}
