package fetcher

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/portholelabs/porthole/internal/config"
	"github.com/portholelabs/porthole/internal/types"
)

// DirectFetcher retrieves the target page without a relay. It exists
// for CLI use where cross-origin rules do not apply; the web app
// always goes through the relay chain.
type DirectFetcher struct {
	client *http.Client
	cfg    *config.FetcherConfig
	logger *slog.Logger
}

// NewDirectFetcher creates a fetcher that contacts targets directly.
func NewDirectFetcher(cfg *config.Config, logger *slog.Logger) (*DirectFetcher, error) {
	return &DirectFetcher{
		client: newHTTPClient(&cfg.Fetcher),
		cfg:    &cfg.Fetcher,
		logger: logger.With("component", "direct_fetcher"),
	}, nil
}

// Fetch issues a single GET against the target URL.
func (f *DirectFetcher) Fetch(ctx context.Context, req *types.FetchRequest) (*types.Snapshot, error) {
	target := req.URLString()
	start := time.Now()

	attemptCtx := ctx
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	httpReq, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, target, nil)
	if err != nil {
		return nil, &types.AttemptError{Relay: "direct", URL: target, Err: err}
	}

	ua := f.cfg.UserAgent
	if ua == "" {
		ua = "porthole/" + config.Version
	}
	httpReq.Header.Set("User-Agent", ua)
	httpReq.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	httpReq.Header.Set("Accept-Language", "en-US,en;q=0.9")
	httpReq.Header.Set("Accept-Encoding", "gzip, deflate, br")

	for key, values := range req.Headers {
		for _, v := range values {
			httpReq.Header.Set(key, v)
		}
	}

	httpResp, err := f.client.Do(httpReq)
	if err != nil {
		return nil, &types.AttemptError{Relay: "direct", URL: target, Err: err}
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, &types.AttemptError{Relay: "direct", URL: target, StatusCode: httpResp.StatusCode}
	}

	var reader io.Reader = httpResp.Body
	if f.cfg.MaxBodySize > 0 {
		reader = io.LimitReader(reader, f.cfg.MaxBodySize)
	}

	reader, err = decompressReader(httpResp, reader)
	if err != nil {
		return nil, &types.AttemptError{Relay: "direct", URL: target, Err: err}
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, &types.AttemptError{Relay: "direct", URL: target, Err: err}
	}

	snap := types.NewSnapshot(req, httpResp, body, "", time.Since(start))
	snap.Attempts = 1
	f.logger.Debug("direct fetch complete",
		"target", target,
		"status", snap.StatusCode,
		"size", len(body),
		"duration", snap.FetchDuration,
	)
	return snap, nil
}

// Close releases resources.
func (f *DirectFetcher) Close() error {
	f.client.CloseIdleConnections()
	return nil
}

// Type returns the fetcher type identifier.
func (f *DirectFetcher) Type() string {
	return types.ModeDirect
}
