package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/portholelabs/porthole/internal/config"
	"github.com/portholelabs/porthole/internal/fetcher"
	"github.com/portholelabs/porthole/internal/monitor"
)

var (
	watchInterval string
	watchStateDir string
	watchWebhook  string
	watchMode     string
)

// watchCmd creates the "watch" subcommand.
func watchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch [url...]",
		Short: "Re-fetch pages on an interval and report changes",
		Long: `Poll one or more URLs through the relay chain and report when their
content changes. Page state persists between runs, so a restarted
watch only reports what actually changed since last time.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runWatch,
	}

	cmd.Flags().StringVarP(&watchInterval, "interval", "i", "5m", "poll interval (e.g. 30s, 5m)")
	cmd.Flags().StringVar(&watchStateDir, "state", "./watch-state", "directory for page state files")
	cmd.Flags().StringVar(&watchWebhook, "webhook", "", "POST detected changes to this URL")
	cmd.Flags().StringVarP(&watchMode, "mode", "m", "", "fetch mode: relay, direct, browser")

	return cmd
}

// runWatch executes the watch command.
func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if watchMode != "" {
		cfg.Fetcher.Mode = watchMode
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	interval, err := time.ParseDuration(watchInterval)
	if err != nil || interval <= 0 {
		return fmt.Errorf("invalid interval: %s", watchInterval)
	}

	logger := setupLogger(cfg)

	f, err := fetcher.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("create fetcher: %w", err)
	}
	defer f.Close()

	detector := monitor.NewChangeDetector(watchStateDir, logger)

	notifier := monitor.NewNotifier(logger)
	if watchWebhook != "" {
		notifier.AddChannel(monitor.NewWebhookChannel(watchWebhook, 10*time.Second, logger))
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Printf("Watching %d page(s) every %s. Ctrl+C to stop.\n", len(args), interval)

	w := monitor.NewWatcher(f, detector, interval, logger)
	w.Watch(ctx, args, func(changes []monitor.Change) {
		for _, c := range changes {
			switch c.Type {
			case monitor.ChangeAdded:
				fmt.Printf("👀 now watching %s\n", c.URL)
			default:
				if c.Field == "title" {
					fmt.Printf("✏️  %s: title changed from %q to %q\n", c.URL, c.OldValue, c.NewValue)
				} else {
					fmt.Printf("✏️  %s: %s changed\n", c.URL, c.Field)
				}
			}
		}
		notifier.Notify(ctx, changes)
	})

	<-ctx.Done()
	w.Stop()
	fmt.Println("\nWatch stopped.")
	return nil
}
