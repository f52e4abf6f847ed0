package fetcher

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"

	"github.com/portholelabs/porthole/internal/config"
)

// HealthCheck probes every relay in the chain by requesting a known
// target through it, and updates the manager's per-relay state. It is
// advisory only: fetches still walk the full configured chain.
func (rm *RelayManager) HealthCheck(ctx context.Context, cfg *config.RelaysConfig, userAgent string) []RelayStatus {
	client := resty.New().
		SetTimeout(cfg.HealthTimeout).
		SetHeader("User-Agent", userAgent).
		SetHeader("Accept", "text/html,application/xhtml+xml,*/*;q=0.8")

	target := cfg.HealthTarget
	if target == "" {
		target = "https://example.com"
	}

	rm.mu.RLock()
	relays := make([]Relay, 0, len(rm.entries))
	for _, e := range rm.entries {
		relays = append(relays, e.relay)
	}
	rm.mu.RUnlock()

	for _, r := range relays {
		resp, err := client.R().SetContext(ctx).Get(r.RequestURL(target))
		switch {
		case err != nil:
			rm.MarkFailed(r.Name, err)
		case resp.StatusCode() < 200 || resp.StatusCode() >= 300:
			rm.MarkFailed(r.Name, &statusError{code: resp.StatusCode()})
		default:
			rm.MarkSuccess(r.Name, resp.Time())
		}

		if ctx.Err() != nil {
			break
		}
	}

	rm.logger.Info("relay health check complete",
		"healthy", rm.HealthyCount(),
		"total", rm.Count(),
	)
	return rm.Statuses()
}

type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("health probe returned status %d %s", e.code, http.StatusText(e.code))
}
