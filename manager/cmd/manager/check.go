package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/ykhdr/crack-campaign/manager/internal/engine"
	"github.com/ykhdr/crack-campaign/manager/internal/strategy"
)

func newCheckCommand() *cobra.Command {
	var plan string
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Probe the configured engine and validate a plan without running it",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			process, err := engine.NewProcess(cfg.EngineConfig.ToEngineConfig())
			if err != nil {
				return err
			}
			version, err := process.Probe(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "engine: %s (%s)\n", cfg.EngineConfig.Binary, version)
			if plan == "" {
				return nil
			}
			p, err := strategy.LoadPlan(plan)
			if err != nil {
				return err
			}
			if err := strategy.ValidateAll(p.Phases); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(out, "plan: %d phases ok\n", len(p.Phases))
			return nil
		},
	}
	cmd.Flags().StringVar(&plan, "plan", "", "YAML strategy plan to validate")
	return cmd
}
