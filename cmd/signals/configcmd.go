package main

import (
	"encoding/json"

	"github.com/spf13/cobra"
	"github.com/vango-dev/signals/internal/config"
)

func configCmd(load func() (*config.Config, error)) *cobra.Command {
	var write string

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: `Print the configuration after defaults, signals.json and SIGNALS_*
environment overrides have been applied.

Examples:
  signals config
  signals config --write signals.json
  SIGNALS_LIVE_ADDR=:9000 signals config`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}

			if write != "" {
				if err := cfg.SaveTo(write); err != nil {
					return err
				}
				success(cmd.OutOrStdout(), "Wrote %s", write)
				return nil
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(cfg)
		},
	}

	cmd.Flags().StringVarP(&write, "write", "w", "", "Write the configuration to this path instead of printing it")

	return cmd
}
