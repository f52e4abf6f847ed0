package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/portholelabs/porthole/internal/archive"
	"github.com/portholelabs/porthole/internal/config"
	"github.com/portholelabs/porthole/internal/export"
	"github.com/portholelabs/porthole/internal/fetcher"
	"github.com/portholelabs/porthole/internal/preview"
	"github.com/portholelabs/porthole/internal/types"
)

var (
	fetchOutput   string
	fetchMode     string
	fetchSanitize bool
	fetchSummary  bool
	fetchExport   bool
	fetchTimeout  string
)

// fetchCmd creates the "fetch" subcommand.
func fetchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch [url]",
		Short: "Fetch a single page through the relay chain",
		Long: `Fetch one URL and print its HTML to stdout. The relays are tried in
order; the first one that answers wins. Use --mode direct to skip the
relays entirely.`,
		Args: cobra.ExactArgs(1),
		RunE: runFetch,
	}

	cmd.Flags().StringVarP(&fetchOutput, "output", "o", "", "write HTML to this file instead of stdout")
	cmd.Flags().StringVarP(&fetchMode, "mode", "m", "", "fetch mode: relay, direct, browser")
	cmd.Flags().BoolVar(&fetchSanitize, "sanitize", false, "strip active content before output")
	cmd.Flags().BoolVarP(&fetchSummary, "summary", "s", false, "print page metadata")
	cmd.Flags().BoolVarP(&fetchExport, "export", "e", false, "save to the export directory instead of stdout")
	cmd.Flags().StringVarP(&fetchTimeout, "timeout", "t", "", "per-attempt timeout (e.g. 10s)")

	return cmd
}

// runFetch executes the fetch command.
func runFetch(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if fetchMode != "" {
		cfg.Fetcher.Mode = fetchMode
	}
	if fetchSanitize {
		cfg.Preview.Sanitize = true
	}
	if fetchTimeout != "" {
		d, err := time.ParseDuration(fetchTimeout)
		if err != nil {
			return fmt.Errorf("invalid timeout: %w", err)
		}
		cfg.Fetcher.AttemptTimeout = d
	}

	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger := setupLogger(cfg)

	req, err := types.NewFetchRequest(args[0])
	if err != nil {
		return err
	}

	f, err := fetcher.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("create fetcher: %w", err)
	}
	defer f.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	snap, err := f.Fetch(ctx, req)

	if cfg.Archive.Enabled {
		if arch, aerr := archive.New(&cfg.Archive, logger); aerr == nil && arch != nil {
			if err != nil {
				arch.Record(types.NewFailureRecord(req.URLString(), err))
			} else {
				arch.Record(types.NewFetchRecord(snap))
			}
			arch.Close()
		}
	}

	if err != nil {
		return err
	}

	html := snap.HTML
	if cfg.Preview.Sanitize {
		html = preview.NewSanitizer(logger).Sanitize(html)
	}

	via := snap.Relay
	if via == "" {
		via = cfg.Fetcher.Mode
	}
	fmt.Fprintf(os.Stderr, "✅ Fetched %s via %s (%d bytes in %s)\n",
		req.URLString(), via, len(html), snap.FetchDuration.Round(time.Millisecond))

	if fetchSummary {
		if sum, serr := preview.NewSummarizer(logger).Summarize(snap); serr == nil {
			fmt.Fprintf(os.Stderr, "   Title:    %s\n", sum.Title)
			if sum.Description != "" {
				fmt.Fprintf(os.Stderr, "   Meta:     %s\n", sum.Description)
			}
			if sum.Canonical != "" {
				fmt.Fprintf(os.Stderr, "   Canonical: %s\n", sum.Canonical)
			}
			fmt.Fprintf(os.Stderr, "   Elements: %d links, %d images, %d scripts\n",
				sum.Links, sum.Images, sum.Scripts)
		}
	}

	switch {
	case fetchExport:
		path, werr := export.NewExporter(cfg.Export.Dir, logger).Write(html, time.Now())
		if werr != nil {
			return werr
		}
		fmt.Fprintf(os.Stderr, "   Saved:    %s\n", path)
	case fetchOutput != "":
		if werr := os.WriteFile(fetchOutput, html, 0o644); werr != nil {
			return fmt.Errorf("write output: %w", werr)
		}
		fmt.Fprintf(os.Stderr, "   Saved:    %s\n", fetchOutput)
	default:
		os.Stdout.Write(html)
	}

	return nil
}
