package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/joacominatel/peerpods/internal/infrastructure/logging"
)

// version is set at build time via ldflags.
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "peerpods",
	Short: "Peer matching service for learning pods",
	Long: `peerpods ranks learning peers and pairs accountability partners inside pods.

Without a subcommand it behaves like "serve".`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return serve()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logging.New().Error("peerpods failed", "error", err.Error())
		os.Exit(1)
	}
}
