// Package porthole provides a public SDK for embedding porthole as a
// library.
//
// Example usage:
//
//	client, err := porthole.NewClient(
//	    porthole.WithTimeout(15*time.Second),
//	    porthole.WithExportDir("./saved"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	page, err := client.Fetch(context.Background(), "https://example.com")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Println(page.Relay(), len(page.HTML()))
//	path, _ := client.Export(page)
package porthole

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/portholelabs/porthole/internal/archive"
	"github.com/portholelabs/porthole/internal/config"
	"github.com/portholelabs/porthole/internal/export"
	"github.com/portholelabs/porthole/internal/fetcher"
	"github.com/portholelabs/porthole/internal/preview"
	"github.com/portholelabs/porthole/internal/types"
)

// Client is the high-level API for fetching pages through the relay
// chain.
type Client struct {
	cfg        *config.Config
	fetcher    fetcher.Fetcher
	exporter   *export.Exporter
	archiver   archive.Archiver
	sanitizer  *preview.Sanitizer
	summarizer *preview.Summarizer
	logger     *slog.Logger
}

// Page is a fetched page.
type Page struct {
	snap *types.Snapshot
}

// HTML returns the page body.
func (p *Page) HTML() []byte { return p.snap.HTML }

// SourceURL returns the target URL that was requested.
func (p *Page) SourceURL() string { return p.snap.SourceURL }

// FinalURL returns the URL after any redirects.
func (p *Page) FinalURL() string { return p.snap.FinalURL }

// Relay returns the name of the relay that served the page, or an
// empty string for direct and browser fetches.
func (p *Page) Relay() string { return p.snap.Relay }

// StatusCode returns the upstream HTTP status.
func (p *Page) StatusCode() int { return p.snap.StatusCode }

// Duration returns how long the fetch took, across all attempts.
func (p *Page) Duration() time.Duration { return p.snap.FetchDuration }

// Attempts returns how many relay requests were made before this page
// arrived, including the one that succeeded.
func (p *Page) Attempts() int { return p.snap.Attempts }

// Document returns the page parsed as a goquery document.
func (p *Page) Document() (*goquery.Document, error) { return p.snap.Document() }

// Option configures a Client.
type Option func(*config.Config)

// WithRelays replaces the relay chain with the given URL prefixes, in
// order. Each relay is named after its host.
func WithRelays(prefixes ...string) Option {
	return func(c *config.Config) {
		endpoints := make([]config.RelayEndpoint, 0, len(prefixes))
		for i, p := range prefixes {
			name := fmt.Sprintf("relay%d", i+1)
			if u, err := url.Parse(p); err == nil && u.Host != "" {
				name = u.Host
			}
			endpoints = append(endpoints, config.RelayEndpoint{Name: name, Prefix: p})
		}
		c.Relays.Endpoints = endpoints
	}
}

// WithDirect fetches targets directly instead of through relays.
func WithDirect() Option {
	return func(c *config.Config) { c.Fetcher.Mode = types.ModeDirect }
}

// WithBrowser fetches targets with a headless browser.
func WithBrowser() Option {
	return func(c *config.Config) { c.Fetcher.Mode = types.ModeBrowser }
}

// WithTimeout sets the per-attempt timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config.Config) { c.Fetcher.AttemptTimeout = d }
}

// WithUserAgent sets a custom User-Agent.
func WithUserAgent(ua string) Option {
	return func(c *config.Config) { c.Fetcher.UserAgent = ua }
}

// WithMaxBodySize caps how many page bytes are read.
func WithMaxBodySize(n int64) Option {
	return func(c *config.Config) { c.Fetcher.MaxBodySize = n }
}

// WithSanitize strips active content from fetched pages.
func WithSanitize() Option {
	return func(c *config.Config) { c.Preview.Sanitize = true }
}

// WithExportDir sets where Export saves pages.
func WithExportDir(dir string) Option {
	return func(c *config.Config) { c.Export.Dir = dir }
}

// WithArchive records fetch history in the given backend ("jsonl",
// "html", "mongo", or a comma list of them) at path.
func WithArchive(backend, path string) Option {
	return func(c *config.Config) {
		c.Archive.Enabled = true
		c.Archive.Type = backend
		c.Archive.OutputPath = path
	}
}

// WithVerbose enables debug-level logging.
func WithVerbose() Option {
	return func(c *config.Config) { c.Logging.Level = "debug" }
}

// NewClient creates a Client with the given options.
func NewClient(opts ...Option) (*Client, error) {
	cfg := config.DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	level := slog.LevelInfo
	if cfg.Logging.Level == "debug" {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	f, err := fetcher.New(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("create fetcher: %w", err)
	}

	arch, err := archive.New(&cfg.Archive, logger)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("create archive: %w", err)
	}

	return &Client{
		cfg:        cfg,
		fetcher:    f,
		exporter:   export.NewExporter(cfg.Export.Dir, logger),
		archiver:   arch,
		sanitizer:  preview.NewSanitizer(logger),
		summarizer: preview.NewSummarizer(logger),
		logger:     logger,
	}, nil
}

// Validate reports whether raw is an absolute http or https URL.
func (c *Client) Validate(raw string) bool {
	return types.ValidTargetURL(raw)
}

// Fetch retrieves the page at raw, walking the relay chain in order
// until one relay serves it.
func (c *Client) Fetch(ctx context.Context, raw string) (*Page, error) {
	req, err := types.NewFetchRequest(raw)
	if err != nil {
		return nil, err
	}
	req.Mode = c.cfg.Fetcher.Mode

	snap, err := c.fetcher.Fetch(ctx, req)
	if err != nil {
		if c.archiver != nil {
			if aerr := c.archiver.Record(types.NewFailureRecord(req.URLString(), err)); aerr != nil {
				c.logger.Error("archive write failed", "error", aerr)
			}
		}
		return nil, err
	}

	if c.archiver != nil {
		if aerr := c.archiver.Record(types.NewFetchRecord(snap)); aerr != nil {
			c.logger.Error("archive write failed", "error", aerr)
		}
	}

	if c.cfg.Preview.Sanitize {
		snap.HTML = c.sanitizer.Sanitize(snap.HTML)
	}

	return &Page{snap: snap}, nil
}

// Summarize extracts title, meta and element counts from a fetched
// page.
func (c *Client) Summarize(p *Page) (*preview.Summary, error) {
	return c.summarizer.Summarize(p.snap)
}

// Links extracts the outgoing links from a fetched page. Relative
// hrefs resolve against the page's source URL.
func (c *Client) Links(p *Page) ([]preview.Link, error) {
	return preview.Links(p.snap)
}

// Excerpt returns the page's visible text, cut to at most limit runes.
func (c *Client) Excerpt(p *Page, limit int) (string, error) {
	return preview.Excerpt(p.snap, limit)
}

// Export saves the page body as a timestamped HTML file and returns
// the written path.
func (c *Client) Export(p *Page) (string, error) {
	return c.exporter.Write(p.snap.HTML, time.Now())
}

// Relays returns the current status of every relay in the chain, in
// order. It is empty for direct and browser clients.
func (c *Client) Relays() []fetcher.RelayStatus {
	if rf, ok := c.fetcher.(*fetcher.RelayFetcher); ok {
		return rf.Manager().Statuses()
	}
	return nil
}

// Close releases the fetcher and flushes the archive.
func (c *Client) Close() error {
	err := c.fetcher.Close()
	if c.archiver != nil {
		if aerr := c.archiver.Close(); err == nil {
			err = aerr
		}
	}
	return err
}
