package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/portholelabs/porthole/internal/config"
)

var (
	cfgFile string
	verbose bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "porthole",
		Short: "Porthole — view pages that refuse to be framed",
		Long: `Porthole is a local web app for viewing pages that block cross-origin
embedding. It fetches the target through an ordered chain of public CORS
relays and renders the result in a sandboxed frame.

Features:
  • Ordered relay chain with first-success short-circuit
  • Automatic failover when a relay is down or blocked
  • Direct and headless-browser fetch modes
  • Sandboxed preview with optional HTML sanitization
  • One-click export to timestamped HTML files
  • Fetch history in JSONL, HTML or MongoDB archives
  • Prometheus metrics endpoint`,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(fetchCmd())
	rootCmd.AddCommand(shellCmd())
	rootCmd.AddCommand(watchCmd())
	rootCmd.AddCommand(relaysCmd())
	rootCmd.AddCommand(versionCmd())
	rootCmd.AddCommand(configCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// versionCmd creates the "version" subcommand.
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Porthole %s\n", config.Version)
		},
	}
}

// configCmd creates the "config" subcommand for inspecting configuration.
func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			fmt.Printf("Server:\n")
			fmt.Printf("  Address:           %s:%d\n", cfg.Server.Host, cfg.Server.Port)
			fmt.Printf("  Shutdown Timeout:  %s\n", cfg.Server.ShutdownTimeout)
			fmt.Printf("\nFetcher:\n")
			fmt.Printf("  Mode:              %s\n", cfg.Fetcher.Mode)
			fmt.Printf("  Attempt Timeout:   %s\n", cfg.Fetcher.AttemptTimeout)
			fmt.Printf("  Follow Redirects:  %v\n", cfg.Fetcher.FollowRedirects)
			fmt.Printf("  Max Body Size:     %d bytes\n", cfg.Fetcher.MaxBodySize)
			fmt.Printf("\nRelays:\n")
			for i, ep := range cfg.Relays.Endpoints {
				fmt.Printf("  %d. %-12s %s\n", i+1, ep.Name, ep.Prefix)
			}
			fmt.Printf("\nPreview:\n")
			fmt.Printf("  Sanitize:          %v\n", cfg.Preview.Sanitize)
			fmt.Printf("  Summary:           %v\n", cfg.Preview.Summary)
			fmt.Printf("\nExport:\n")
			fmt.Printf("  Directory:         %s\n", cfg.Export.Dir)
			fmt.Printf("\nArchive:\n")
			fmt.Printf("  Enabled:           %v\n", cfg.Archive.Enabled)
			fmt.Printf("  Type:              %s\n", cfg.Archive.Type)
			fmt.Printf("  Output Path:       %s\n", cfg.Archive.OutputPath)
			fmt.Printf("\nMetrics:\n")
			fmt.Printf("  Enabled:           %v\n", cfg.Metrics.Enabled)
			fmt.Printf("  Port:              %d\n", cfg.Metrics.Port)
			return nil
		},
	}
}

// setupLogger creates a structured logger from the logging config,
// with --verbose forcing debug level.
func setupLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if verbose {
		level = slog.LevelDebug
	}

	out := os.Stderr
	if cfg.Logging.Output == "stdout" {
		out = os.Stdout
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Logging.Format == "json" {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}
	return slog.New(handler)
}
