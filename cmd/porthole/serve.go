package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/portholelabs/porthole/internal/api"
	"github.com/portholelabs/porthole/internal/archive"
	"github.com/portholelabs/porthole/internal/config"
	"github.com/portholelabs/porthole/internal/fetcher"
)

var (
	serveHost     string
	servePort     int
	serveMode     string
	serveSanitize bool
	serveArchive  bool
)

// serveCmd creates the "serve" subcommand.
func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the local web app",
		Long: `Start the Porthole web app: a single page for fetching a URL through
the relay chain, previewing it in a sandboxed frame, and downloading
the HTML.`,
		RunE: runServe,
	}

	cmd.Flags().StringVar(&serveHost, "host", "", "listen address (default from config)")
	cmd.Flags().IntVarP(&servePort, "port", "p", 0, "listen port (default from config)")
	cmd.Flags().StringVarP(&serveMode, "mode", "m", "", "fetch mode: relay, direct, browser")
	cmd.Flags().BoolVar(&serveSanitize, "sanitize", false, "strip active content from previews")
	cmd.Flags().BoolVar(&serveArchive, "archive", false, "record fetch history")

	return cmd
}

// runServe executes the serve command.
func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if serveHost != "" {
		cfg.Server.Host = serveHost
	}
	if servePort > 0 {
		cfg.Server.Port = servePort
	}
	if serveMode != "" {
		cfg.Fetcher.Mode = serveMode
	}
	if serveSanitize {
		cfg.Preview.Sanitize = true
	}
	if serveArchive {
		cfg.Archive.Enabled = true
	}

	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger := setupLogger(cfg)

	f, err := fetcher.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("create fetcher: %w", err)
	}
	defer f.Close()

	srv := api.NewServer(cfg, f, logger)

	arch, err := archive.New(&cfg.Archive, logger)
	if err != nil {
		return fmt.Errorf("create archive: %w", err)
	}
	if arch != nil {
		srv.SetArchiver(arch)
		defer arch.Close()
	}

	if cfg.Metrics.Enabled {
		if err := srv.Metrics().StartServer(cfg.Metrics.Port, cfg.Metrics.Path); err != nil {
			logger.Warn("failed to start metrics server", "error", err)
		}
	}

	fmt.Printf("Porthole listening on http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		logger.Info("received signal, shutting down...", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return <-errCh
	}
}
