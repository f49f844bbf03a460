package main

import (
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:           "manager",
		Short:         "Run ordered credential-recovery campaigns against an external engine",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.PersistentFlags().StringP("config", "c", "", "path to the KDL config (default ./config/config.kdl)")
	root.AddCommand(newRunCommand(), newServeCommand(), newCheckCommand())
	if err := root.Execute(); err != nil {
		log.Error().Err(err).Msg("Manager failed")
		os.Exit(1)
	}
}
