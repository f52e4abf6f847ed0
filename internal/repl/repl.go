package repl

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/portholelabs/porthole/internal/config"
	"github.com/portholelabs/porthole/internal/export"
	"github.com/portholelabs/porthole/internal/fetcher"
	"github.com/portholelabs/porthole/internal/preview"
	"github.com/portholelabs/porthole/internal/types"
)

// REPL provides an interactive command-line interface for Porthole.
type REPL struct {
	cfg     *config.Config
	logger  *slog.Logger
	reader  *bufio.Reader
	fetcher fetcher.Fetcher

	// last is the most recently fetched page. Commands like summary,
	// links and export operate on it when no URL is given.
	last *types.Snapshot

	fetches  int
	failures int
	bytes    int64
	elapsed  time.Duration
}

// New creates a new REPL instance.
func New(cfg *config.Config, logger *slog.Logger) *REPL {
	return &REPL{
		cfg:    cfg,
		logger: logger,
		reader: bufio.NewReader(os.Stdin),
	}
}

// Start begins the interactive REPL loop. It returns when the user
// exits or stdin closes.
func (r *REPL) Start() {
	fmt.Println("🔭 Porthole Interactive Shell")
	fmt.Println("   Type 'help' for available commands, 'exit' to quit.")
	fmt.Println()

	defer r.closeFetcher()

	for {
		fmt.Print("porthole> ")
		line, err := r.reader.ReadString('\n')
		if err != nil {
			break
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		parts := strings.Fields(line)
		cmd := parts[0]
		args := parts[1:]

		switch cmd {
		case "help", "?":
			r.printHelp()
		case "exit", "quit", "q":
			fmt.Println("Goodbye! 👋")
			return
		case "fetch":
			r.cmdFetch(args)
		case "validate":
			r.cmdValidate(args)
		case "summary":
			r.cmdSummary(args)
		case "links":
			r.cmdLinks(args)
		case "text":
			r.cmdText(args)
		case "export":
			r.cmdExport()
		case "relays":
			r.cmdRelays()
		case "check":
			r.cmdCheck()
		case "sanitize":
			r.cmdSanitize(args)
		case "config":
			r.cmdConfig()
		case "set":
			r.cmdSet(args)
		case "stats":
			r.cmdStats()
		case "clear":
			fmt.Print("\033[H\033[2J")
		default:
			fmt.Printf("Unknown command: %s. Type 'help' for available commands.\n", cmd)
		}
	}
}

func (r *REPL) printHelp() {
	fmt.Println(`
Available Commands:
  fetch <url>           Fetch a page through the relay chain
  validate <url>        Check whether a URL is an absolute http(s) URL
  summary [url]         Show title, metadata and element counts
  links [url]           List outgoing links found on the page
  text [url]            Show the page's visible text
  export                Save the last fetched page as a timestamped file

  relays                Show the relay chain and per-relay status
  check                 Probe every relay and report health

  sanitize on|off       Toggle stripping of active content
  config                Show current configuration
  set <key> <value>     Update a setting (mode, timeout, agent, export)

  stats                 Show session statistics
  clear                 Clear the screen
  help                  Show this help
  exit                  Exit the shell

Commands that take [url] reuse the last fetched page when no URL is
given.`)
}

// getFetcher lazily builds the fetcher for the configured mode. It is
// kept across commands so relay state and browser pages survive.
func (r *REPL) getFetcher() (fetcher.Fetcher, error) {
	if r.fetcher != nil {
		return r.fetcher, nil
	}
	f, err := fetcher.New(r.cfg, r.logger)
	if err != nil {
		return nil, err
	}
	r.fetcher = f
	return f, nil
}

func (r *REPL) closeFetcher() {
	if r.fetcher != nil {
		r.fetcher.Close()
		r.fetcher = nil
	}
}

// fetchContext budgets enough time for the whole chain walk, not just
// one attempt.
func (r *REPL) fetchContext() (context.Context, context.CancelFunc) {
	budget := r.cfg.Fetcher.AttemptTimeout * time.Duration(len(r.cfg.Relays.Endpoints)+1)
	if budget <= 0 {
		budget = 60 * time.Second
	}
	return context.WithTimeout(context.Background(), budget)
}

// fetch retrieves url and remembers the snapshot as the last page.
func (r *REPL) fetch(url string) (*types.Snapshot, error) {
	req, err := types.NewFetchRequest(url)
	if err != nil {
		return nil, err
	}
	req.Mode = r.cfg.Fetcher.Mode

	f, err := r.getFetcher()
	if err != nil {
		return nil, err
	}

	ctx, cancel := r.fetchContext()
	defer cancel()

	snap, err := f.Fetch(ctx, req)
	if err != nil {
		r.failures++
		return nil, err
	}

	if r.cfg.Preview.Sanitize {
		snap.HTML = preview.NewSanitizer(r.logger).Sanitize(snap.HTML)
	}

	r.last = snap
	r.fetches++
	r.bytes += int64(len(snap.HTML))
	r.elapsed += snap.FetchDuration
	return snap, nil
}

// page returns the snapshot to operate on: a fresh fetch when args has
// a URL, the last fetched page otherwise.
func (r *REPL) page(args []string) (*types.Snapshot, error) {
	if len(args) > 0 {
		return r.fetch(args[0])
	}
	if r.last == nil {
		return nil, fmt.Errorf("no page fetched yet, use: fetch <url>")
	}
	return r.last, nil
}

func (r *REPL) cmdFetch(args []string) {
	if len(args) == 0 {
		fmt.Println("Usage: fetch <url>")
		return
	}

	url := args[0]
	fmt.Printf("Fetching %s...\n", url)

	snap, err := r.fetch(url)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	via := snap.Relay
	if via == "" {
		via = r.cfg.Fetcher.Mode
	}

	fmt.Printf("\n  Status:       %d\n", snap.StatusCode)
	fmt.Printf("  Via:          %s (attempt %d)\n", via, snap.Attempts)
	fmt.Printf("  Content-Type: %s\n", snap.ContentType)
	fmt.Printf("  Size:         %d bytes\n", snap.ContentLength)
	fmt.Printf("  Final URL:    %s\n", snap.FinalURL)
	fmt.Printf("  Duration:     %s\n", snap.FetchDuration.Round(time.Millisecond))
}

func (r *REPL) cmdValidate(args []string) {
	if len(args) == 0 {
		fmt.Println("Usage: validate <url>")
		return
	}
	if types.ValidTargetURL(args[0]) {
		fmt.Println("  ✅ valid")
	} else {
		fmt.Println("  ❌ invalid: need an absolute http or https URL")
	}
}

func (r *REPL) cmdSummary(args []string) {
	snap, err := r.page(args)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	sum, err := preview.NewSummarizer(r.logger).Summarize(snap)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	fmt.Printf("  Title:       %s\n", sum.Title)
	if sum.Description != "" {
		fmt.Printf("  Description: %s\n", sum.Description)
	}
	if sum.Canonical != "" {
		fmt.Printf("  Canonical:   %s\n", sum.Canonical)
	}
	if sum.OGTitle != "" {
		fmt.Printf("  OG Title:    %s\n", sum.OGTitle)
	}
	if sum.Lang != "" {
		fmt.Printf("  Language:    %s\n", sum.Lang)
	}
	fmt.Printf("  Elements:    %d links, %d images, %d scripts\n",
		sum.Links, sum.Images, sum.Scripts)
	fmt.Printf("  Size:        %d bytes\n", sum.Bytes)
}

func (r *REPL) cmdLinks(args []string) {
	snap, err := r.page(args)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	links, err := preview.Links(snap)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	fmt.Printf("\nFound %d links:\n", len(links))
	for i, link := range links {
		if i >= 20 {
			fmt.Printf("  ... and %d more\n", len(links)-20)
			break
		}
		marks := ""
		if link.External {
			marks += " [ext]"
		}
		if link.NoFollow {
			marks += " [nofollow]"
		}
		fmt.Printf("  %s%s\n", link.URL, marks)
	}
}

func (r *REPL) cmdText(args []string) {
	snap, err := r.page(args)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	text, err := preview.Excerpt(snap, 1000)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Println(text)
}

func (r *REPL) cmdExport() {
	if r.last == nil {
		fmt.Println("No page fetched yet, use: fetch <url>")
		return
	}

	path, err := export.NewExporter(r.cfg.Export.Dir, r.logger).Write(r.last.HTML, time.Now())
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Printf("  Saved %s\n", path)
}

func (r *REPL) cmdRelays() {
	rf, ok := r.fetcher.(*fetcher.RelayFetcher)
	if !ok {
		if r.cfg.Fetcher.Mode != types.ModeRelay {
			fmt.Printf("Fetch mode is %q, no relay chain in use.\n", r.cfg.Fetcher.Mode)
			return
		}
		// Nothing fetched yet, show the configured chain.
		for i, ep := range r.cfg.Relays.Endpoints {
			fmt.Printf("  %d. %-12s %s\n", i+1, ep.Name, ep.Prefix)
		}
		return
	}

	for i, st := range rf.Manager().Statuses() {
		state := "healthy"
		if !st.Healthy {
			state = "failing"
		}
		fmt.Printf("  %d. %-12s %-8s %d/%d ok", i+1, st.Name, state, st.Successes, st.Attempts)
		if st.LastError != "" {
			fmt.Printf("  last error: %s", st.LastError)
		}
		fmt.Println()
	}
}

func (r *REPL) cmdCheck() {
	if r.cfg.Fetcher.Mode != types.ModeRelay {
		fmt.Printf("Fetch mode is %q, nothing to probe.\n", r.cfg.Fetcher.Mode)
		return
	}

	f, err := r.getFetcher()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	rf, ok := f.(*fetcher.RelayFetcher)
	if !ok {
		fmt.Println("Relay chain unavailable.")
		return
	}

	fmt.Println("Probing relays...")
	budget := r.cfg.Relays.HealthTimeout * time.Duration(len(r.cfg.Relays.Endpoints)+1)
	ctx, cancel := context.WithTimeout(context.Background(), budget)
	defer cancel()

	for _, st := range rf.Manager().HealthCheck(ctx, &r.cfg.Relays, r.cfg.Fetcher.UserAgent) {
		if st.Healthy {
			fmt.Printf("  ✅ %-12s %dms\n", st.Name, st.LatencyMs)
		} else {
			fmt.Printf("  ❌ %-12s %s\n", st.Name, st.LastError)
		}
	}
}

func (r *REPL) cmdSanitize(args []string) {
	if len(args) == 0 {
		fmt.Printf("Sanitize is %s. Usage: sanitize on|off\n", onOff(r.cfg.Preview.Sanitize))
		return
	}
	switch args[0] {
	case "on":
		r.cfg.Preview.Sanitize = true
	case "off":
		r.cfg.Preview.Sanitize = false
	default:
		fmt.Println("Usage: sanitize on|off")
		return
	}
	fmt.Printf("  Sanitize %s\n", onOff(r.cfg.Preview.Sanitize))
}

func (r *REPL) cmdConfig() {
	fmt.Printf("  Mode:            %s\n", r.cfg.Fetcher.Mode)
	fmt.Printf("  Attempt Timeout: %s\n", r.cfg.Fetcher.AttemptTimeout)
	fmt.Printf("  User-Agent:      %s\n", r.cfg.Fetcher.UserAgent)
	fmt.Printf("  Max Body Size:   %d bytes\n", r.cfg.Fetcher.MaxBodySize)
	fmt.Printf("  Sanitize:        %s\n", onOff(r.cfg.Preview.Sanitize))
	fmt.Printf("  Export Dir:      %s\n", r.cfg.Export.Dir)
	fmt.Printf("  Relays:\n")
	for i, ep := range r.cfg.Relays.Endpoints {
		fmt.Printf("    %d. %-12s %s\n", i+1, ep.Name, ep.Prefix)
	}
}

func (r *REPL) cmdSet(args []string) {
	if len(args) < 2 {
		fmt.Println("Usage: set <key> <value>")
		fmt.Println("  Keys: mode, timeout, agent, export")
		return
	}

	key := args[0]
	val := strings.Join(args[1:], " ")

	switch key {
	case "mode":
		switch val {
		case types.ModeRelay, types.ModeDirect, types.ModeBrowser:
			r.cfg.Fetcher.Mode = val
			// The old fetcher belongs to the previous mode.
			r.closeFetcher()
			fmt.Printf("  Mode set to %s\n", val)
		default:
			fmt.Printf("  Unknown mode: %s (want relay, direct or browser)\n", val)
		}
	case "timeout":
		d, err := time.ParseDuration(val)
		if err != nil || d <= 0 {
			fmt.Printf("  Invalid duration: %s\n", val)
			return
		}
		r.cfg.Fetcher.AttemptTimeout = d
		r.closeFetcher()
		fmt.Printf("  Attempt timeout set to %s\n", d)
	case "agent":
		r.cfg.Fetcher.UserAgent = val
		r.closeFetcher()
		fmt.Printf("  User-Agent set to %s\n", val)
	case "export":
		r.cfg.Export.Dir = val
		fmt.Printf("  Export directory set to %s\n", val)
	default:
		fmt.Printf("  Unknown key: %s\n", key)
	}
}

func (r *REPL) cmdStats() {
	fmt.Printf("  Fetches:    %d\n", r.fetches)
	fmt.Printf("  Failures:   %d\n", r.failures)
	fmt.Printf("  Bytes:      %d\n", r.bytes)
	fmt.Printf("  Fetch Time: %s\n", r.elapsed.Round(time.Millisecond))
	if r.last != nil {
		fmt.Printf("  Last Page:  %s (%d)\n", r.last.SourceURL, r.last.StatusCode)
	}
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}
