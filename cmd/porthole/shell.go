package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/portholelabs/porthole/internal/config"
	"github.com/portholelabs/porthole/internal/repl"
)

// shellCmd creates the "shell" subcommand.
func shellCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "shell",
		Aliases: []string{"repl"},
		Short:   "Start an interactive shell",
		Long: `Start an interactive shell for fetching pages, inspecting relays and
tuning settings without restarting. Type 'help' inside the shell for
the command list.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := config.Validate(cfg); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}

			repl.New(cfg, setupLogger(cfg)).Start()
			return nil
		},
	}
}
