package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/portholelabs/porthole/internal/config"
	"github.com/portholelabs/porthole/internal/fetcher"
)

var relaysCheck bool

// relaysCmd creates the "relays" subcommand.
func relaysCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "relays",
		Short: "List the configured relay chain",
		Long: `Print the relay chain in the order fetches walk it. With --check, each
relay is probed against the configured health target.`,
		RunE: runRelays,
	}

	cmd.Flags().BoolVar(&relaysCheck, "check", false, "probe each relay and report health")

	return cmd
}

// runRelays executes the relays command.
func runRelays(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger := setupLogger(cfg)

	if len(cfg.Relays.Endpoints) == 0 {
		fmt.Println("No relays configured.")
		return nil
	}

	if !relaysCheck {
		for i, ep := range cfg.Relays.Endpoints {
			fmt.Printf("%d. %-12s %s\n", i+1, ep.Name, ep.Prefix)
		}
		return nil
	}

	f, err := fetcher.NewRelayFetcher(cfg, logger)
	if err != nil {
		return fmt.Errorf("create fetcher: %w", err)
	}
	defer f.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Printf("Probing %d relays against %s\n\n", len(cfg.Relays.Endpoints), cfg.Relays.HealthTarget)

	statuses := f.Manager().HealthCheck(ctx, &cfg.Relays, cfg.Fetcher.UserAgent)

	healthy := 0
	for i, st := range statuses {
		mark := "✅"
		detail := fmt.Sprintf("%dms", st.LatencyMs)
		if !st.Healthy {
			mark = "❌"
			detail = st.LastError
		} else {
			healthy++
		}
		fmt.Printf("%s %d. %-12s %s\n", mark, i+1, st.Name, detail)
	}

	fmt.Printf("\n%d/%d relays healthy\n", healthy, len(statuses))
	if healthy == 0 {
		return fmt.Errorf("no healthy relays")
	}
	return nil
}
