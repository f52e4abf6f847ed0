package fetcher

import (
	"compress/flate"
	"compress/gzip"
	"context"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/andybalholm/brotli"

	"github.com/portholelabs/porthole/internal/config"
	"github.com/portholelabs/porthole/internal/types"
)

// RelayFetcher retrieves pages by walking an ordered chain of CORS
// relay endpoints. Each relay is tried once, in order; the first
// success wins and later relays are never contacted. When every relay
// has failed the fetch reports exhaustion, retaining the last failure.
type RelayFetcher struct {
	client     *http.Client
	relays     []Relay
	mgr        *RelayManager
	cfg        *config.FetcherConfig
	logger     *slog.Logger
	userAgents []string
	uaIndex    atomic.Int64
}

// NewRelayFetcher creates a fetcher for the configured relay chain.
func NewRelayFetcher(cfg *config.Config, logger *slog.Logger) (*RelayFetcher, error) {
	relays := RelaysFromConfig(&cfg.Relays)
	return &RelayFetcher{
		client:     newHTTPClient(&cfg.Fetcher),
		relays:     relays,
		mgr:        NewRelayManager(relays, logger),
		cfg:        &cfg.Fetcher,
		logger:     logger.With("component", "relay_fetcher"),
		userAgents: cfg.Fetcher.UserAgents,
	}, nil
}

// Fetch walks the relay chain for the request's target URL.
func (f *RelayFetcher) Fetch(ctx context.Context, req *types.FetchRequest) (*types.Snapshot, error) {
	target := req.URLString()
	start := time.Now()

	var last *types.AttemptError
	attempts := 0
	for _, relay := range f.relays {
		attempts++
		attemptStart := time.Now()

		snap, aerr := f.attempt(ctx, req, relay, target)
		if aerr != nil {
			last = aerr
			f.mgr.MarkFailed(relay.Name, aerr)
			f.logger.Warn("relay attempt failed",
				"relay", relay.Name,
				"target", target,
				"error", aerr,
			)
			// A dead context would fail every remaining relay the same
			// way; surface the attempt error instead of exhaustion.
			if ctx.Err() != nil {
				return nil, aerr
			}
			continue
		}

		f.mgr.MarkSuccess(relay.Name, time.Since(attemptStart))
		snap.FetchDuration = time.Since(start)
		snap.Attempts = attempts
		f.logger.Debug("fetch complete",
			"relay", relay.Name,
			"target", target,
			"status", snap.StatusCode,
			"size", len(snap.HTML),
			"duration", snap.FetchDuration,
		)
		return snap, nil
	}

	f.logger.Warn("relay chain exhausted", "target", target, "attempts", attempts)
	return nil, &types.ExhaustedError{Target: target, Attempts: attempts, Last: last}
}

// attempt issues a single GET through one relay.
func (f *RelayFetcher) attempt(ctx context.Context, req *types.FetchRequest, relay Relay, target string) (*types.Snapshot, *types.AttemptError) {
	requestURL := relay.RequestURL(target)

	attemptCtx := ctx
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	httpReq, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, &types.AttemptError{Relay: relay.Name, URL: requestURL, Err: err}
	}

	httpReq.Header.Set("User-Agent", f.nextUserAgent())
	httpReq.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	httpReq.Header.Set("Accept-Language", "en-US,en;q=0.9")
	httpReq.Header.Set("Accept-Encoding", "gzip, deflate, br")

	// Apply custom headers from the request
	for key, values := range req.Headers {
		for _, v := range values {
			httpReq.Header.Set(key, v)
		}
	}

	httpResp, err := f.client.Do(httpReq)
	if err != nil {
		return nil, &types.AttemptError{Relay: relay.Name, URL: requestURL, Err: err}
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, &types.AttemptError{Relay: relay.Name, URL: requestURL, StatusCode: httpResp.StatusCode}
	}

	// Read body with size limit
	var reader io.Reader = httpResp.Body
	if f.cfg.MaxBodySize > 0 {
		reader = io.LimitReader(reader, f.cfg.MaxBodySize)
	}

	// Decompress if needed (gzip, deflate, brotli)
	reader, err = decompressReader(httpResp, reader)
	if err != nil {
		return nil, &types.AttemptError{Relay: relay.Name, URL: requestURL, Err: err}
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, &types.AttemptError{Relay: relay.Name, URL: requestURL, Err: err}
	}

	// Some relays answer 200 with an empty body when the upstream
	// blocked them; treat that as a failed attempt.
	if len(body) == 0 {
		return nil, &types.AttemptError{Relay: relay.Name, URL: requestURL, Err: types.ErrEmptyBody}
	}

	return types.NewSnapshot(req, httpResp, body, relay.Name, 0), nil
}

// Close releases resources.
func (f *RelayFetcher) Close() error {
	f.client.CloseIdleConnections()
	return nil
}

// Type returns the fetcher type identifier.
func (f *RelayFetcher) Type() string {
	return types.ModeRelay
}

// Relays returns the ordered chain this fetcher walks.
func (f *RelayFetcher) Relays() []Relay {
	return f.relays
}

// Manager exposes per-relay status for the API and CLI.
func (f *RelayFetcher) Manager() *RelayManager {
	return f.mgr
}

// nextUserAgent returns the configured User-Agent, rotating through the
// list when one is provided.
func (f *RelayFetcher) nextUserAgent() string {
	if len(f.userAgents) > 0 {
		idx := f.uaIndex.Add(1) % int64(len(f.userAgents))
		return f.userAgents[idx]
	}
	if f.cfg.UserAgent != "" {
		return f.cfg.UserAgent
	}
	return "porthole/" + config.Version
}

// decompressReader wraps a reader with the appropriate decompressor.
// Handles gzip, deflate, and brotli (br) encodings.
func decompressReader(resp *http.Response, reader io.Reader) (io.Reader, error) {
	switch resp.Header.Get("Content-Encoding") {
	case "gzip":
		return gzip.NewReader(reader)
	case "deflate":
		return flate.NewReader(reader), nil
	case "br":
		return brotli.NewReader(reader), nil
	default:
		return reader, nil
	}
}
