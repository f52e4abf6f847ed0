package fetcher

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/portholelabs/porthole/internal/config"
	"github.com/portholelabs/porthole/internal/types"
)

// Fetcher is the interface for all page retrieval implementations.
type Fetcher interface {
	// Fetch retrieves the page at the request's target URL.
	Fetch(ctx context.Context, req *types.FetchRequest) (*types.Snapshot, error)

	// Close releases any resources held by the fetcher.
	Close() error

	// Type returns the fetcher type identifier.
	Type() string
}

// New creates the fetcher selected by cfg.Fetcher.Mode.
func New(cfg *config.Config, logger *slog.Logger) (Fetcher, error) {
	switch cfg.Fetcher.Mode {
	case types.ModeRelay:
		return NewRelayFetcher(cfg, logger)
	case types.ModeDirect:
		return NewDirectFetcher(cfg, logger)
	case types.ModeBrowser:
		return NewBrowserFetcher(cfg, logger)
	default:
		return nil, fmt.Errorf("unknown fetcher mode: %s", cfg.Fetcher.Mode)
	}
}

// newHTTPClient builds the outbound HTTP client shared by the relay and
// direct fetchers. Compression is disabled on the transport because the
// fetchers decode gzip, deflate, and brotli themselves.
func newHTTPClient(cfg *config.FetcherConfig) *http.Client {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        cfg.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.MaxIdleConns / 2,
		IdleConnTimeout:     cfg.IdleConnTimeout,
		TLSHandshakeTimeout: 10 * time.Second,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: cfg.TLSInsecure,
		},
		DisableCompression: true,
	}

	redirectPolicy := func(req *http.Request, via []*http.Request) error {
		if !cfg.FollowRedirects {
			return http.ErrUseLastResponse
		}
		if len(via) >= cfg.MaxRedirects {
			return fmt.Errorf("max redirects (%d) reached", cfg.MaxRedirects)
		}
		return nil
	}

	return &http.Client{
		Transport:     transport,
		Timeout:       cfg.AttemptTimeout,
		CheckRedirect: redirectPolicy,
	}
}
