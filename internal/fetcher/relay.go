package fetcher

import (
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/portholelabs/porthole/internal/config"
)

// Relay is one CORS relay endpoint. Requests for a target page are sent
// to Prefix + url.QueryEscape(target).
type Relay struct {
	Name   string
	Prefix string
}

// RequestURL composes the relay request URL for target.
func (r Relay) RequestURL(target string) string {
	return r.Prefix + url.QueryEscape(target)
}

// RelaysFromConfig maps configured endpoints to Relay values,
// preserving their order.
func RelaysFromConfig(cfg *config.RelaysConfig) []Relay {
	relays := make([]Relay, 0, len(cfg.Endpoints))
	for _, ep := range cfg.Endpoints {
		relays = append(relays, Relay{Name: ep.Name, Prefix: ep.Prefix})
	}
	return relays
}

// RelayStatus is a point-in-time view of one relay's observed behavior.
type RelayStatus struct {
	Name      string    `json:"name"`
	Prefix    string    `json:"prefix"`
	Healthy   bool      `json:"healthy"`
	LastError string    `json:"last_error,omitempty"`
	LastUse   time.Time `json:"last_use"`
	LatencyMs int64     `json:"latency_ms,omitempty"`
	Attempts  int64     `json:"attempts"`
	Successes int64     `json:"successes"`
}

// RelayManager tracks per-relay health and usage across fetches.
type RelayManager struct {
	entries []*relayEntry
	mu      sync.RWMutex
	logger  *slog.Logger
}

type relayEntry struct {
	relay     Relay
	healthy   bool
	lastErr   error
	lastUse   time.Time
	latency   time.Duration
	attempts  int64
	successes int64
	mu        sync.Mutex
}

// NewRelayManager creates a RelayManager for an ordered relay chain.
func NewRelayManager(relays []Relay, logger *slog.Logger) *RelayManager {
	rm := &RelayManager{
		entries: make([]*relayEntry, 0, len(relays)),
		logger:  logger.With("component", "relay_manager"),
	}
	for _, r := range relays {
		rm.entries = append(rm.entries, &relayEntry{
			relay:   r,
			healthy: true,
		})
	}
	rm.logger.Info("relay chain initialized", "count", len(rm.entries))
	return rm
}

// MarkFailed records a failed attempt against a relay.
func (rm *RelayManager) MarkFailed(name string, err error) {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	for _, e := range rm.entries {
		if e.relay.Name == name {
			e.mu.Lock()
			e.healthy = false
			e.lastErr = err
			e.lastUse = time.Now()
			e.attempts++
			e.mu.Unlock()
			rm.logger.Warn("relay marked unhealthy", "relay", name, "error", err)
			break
		}
	}
}

// MarkSuccess records a successful attempt against a relay.
func (rm *RelayManager) MarkSuccess(name string, latency time.Duration) {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	for _, e := range rm.entries {
		if e.relay.Name == name {
			e.mu.Lock()
			e.healthy = true
			e.lastErr = nil
			e.lastUse = time.Now()
			e.latency = latency
			e.attempts++
			e.successes++
			e.mu.Unlock()
			break
		}
	}
}

// Statuses returns the current state of every relay, in chain order.
func (rm *RelayManager) Statuses() []RelayStatus {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	out := make([]RelayStatus, 0, len(rm.entries))
	for _, e := range rm.entries {
		e.mu.Lock()
		st := RelayStatus{
			Name:      e.relay.Name,
			Prefix:    e.relay.Prefix,
			Healthy:   e.healthy,
			LastUse:   e.lastUse,
			LatencyMs: e.latency.Milliseconds(),
			Attempts:  e.attempts,
			Successes: e.successes,
		}
		if e.lastErr != nil {
			st.LastError = e.lastErr.Error()
		}
		e.mu.Unlock()
		out = append(out, st)
	}
	return out
}

// Count returns the total number of relays in the chain.
func (rm *RelayManager) Count() int {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return len(rm.entries)
}

// HealthyCount returns the number of relays currently considered healthy.
func (rm *RelayManager) HealthyCount() int {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	n := 0
	for _, e := range rm.entries {
		e.mu.Lock()
		if e.healthy {
			n++
		}
		e.mu.Unlock()
	}
	return n
}
