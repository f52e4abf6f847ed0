package observability

import (
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
)

// Metrics tracks operational metrics for the fetch service.
type Metrics struct {
	// Fetch metrics
	FetchesTotal     atomic.Int64
	FetchesSucceeded atomic.Int64
	FetchesFailed    atomic.Int64
	FetchesInFlight  atomic.Int32

	// Relay metrics
	RelayAttempts   atomic.Int64
	RelayFailures   atomic.Int64
	RelaysExhausted atomic.Int64

	// Input metrics
	ValidationsTotal    atomic.Int64
	ValidationsRejected atomic.Int64

	// Output metrics
	BytesFetched  atomic.Int64
	ExportsTotal  atomic.Int64
	ArchiveWrites atomic.Int64
	ArchiveErrors atomic.Int64

	logger *slog.Logger
}

// NewMetrics creates a new Metrics instance.
func NewMetrics(logger *slog.Logger) *Metrics {
	return &Metrics{
		logger: logger.With("component", "metrics"),
	}
}

// ServeHTTP serves metrics in Prometheus text exposition format.
func (m *Metrics) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	metrics := []struct {
		name  string
		help  string
		typ   string
		value int64
	}{
		{"porthole_fetches_total", "Total fetches requested", "counter", m.FetchesTotal.Load()},
		{"porthole_fetches_succeeded_total", "Total fetches that returned a page", "counter", m.FetchesSucceeded.Load()},
		{"porthole_fetches_failed_total", "Total fetches that failed", "counter", m.FetchesFailed.Load()},
		{"porthole_fetches_in_flight", "Fetches currently running", "gauge", int64(m.FetchesInFlight.Load())},
		{"porthole_relay_attempts_total", "Total relay attempts", "counter", m.RelayAttempts.Load()},
		{"porthole_relay_failures_total", "Total failed relay attempts", "counter", m.RelayFailures.Load()},
		{"porthole_relays_exhausted_total", "Total fetches that exhausted the relay chain", "counter", m.RelaysExhausted.Load()},
		{"porthole_validations_total", "Total URL validations", "counter", m.ValidationsTotal.Load()},
		{"porthole_validations_rejected_total", "Total URLs rejected by validation", "counter", m.ValidationsRejected.Load()},
		{"porthole_bytes_fetched_total", "Total page bytes fetched", "counter", m.BytesFetched.Load()},
		{"porthole_exports_total", "Total pages exported to disk", "counter", m.ExportsTotal.Load()},
		{"porthole_archive_writes_total", "Total records archived", "counter", m.ArchiveWrites.Load()},
		{"porthole_archive_errors_total", "Total archive write errors", "counter", m.ArchiveErrors.Load()},
	}

	for _, metric := range metrics {
		fmt.Fprintf(w, "# HELP %s %s\n", metric.name, metric.help)
		fmt.Fprintf(w, "# TYPE %s %s\n", metric.name, metric.typ)
		fmt.Fprintf(w, "%s %d\n", metric.name, metric.value)
	}
}

// StartServer starts the metrics HTTP server.
func (m *Metrics) StartServer(port int, path string) error {
	mux := http.NewServeMux()
	mux.Handle(path, m)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "ok")
	})

	addr := fmt.Sprintf(":%d", port)
	m.logger.Info("metrics server starting", "addr", addr, "path", path)

	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			m.logger.Error("metrics server error", "error", err)
		}
	}()

	return nil
}

// Snapshot returns all metrics as a map.
func (m *Metrics) Snapshot() map[string]int64 {
	return map[string]int64{
		"fetches_total":        m.FetchesTotal.Load(),
		"fetches_succeeded":    m.FetchesSucceeded.Load(),
		"fetches_failed":       m.FetchesFailed.Load(),
		"fetches_in_flight":    int64(m.FetchesInFlight.Load()),
		"relay_attempts":       m.RelayAttempts.Load(),
		"relay_failures":       m.RelayFailures.Load(),
		"relays_exhausted":     m.RelaysExhausted.Load(),
		"validations_total":    m.ValidationsTotal.Load(),
		"validations_rejected": m.ValidationsRejected.Load(),
		"bytes_fetched":        m.BytesFetched.Load(),
		"exports_total":        m.ExportsTotal.Load(),
		"archive_writes":       m.ArchiveWrites.Load(),
		"archive_errors":       m.ArchiveErrors.Load(),
	}
}
