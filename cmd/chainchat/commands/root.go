// Package commands defines the chainchat CLI.
package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const Version = "1.0.0"

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "chainchat",
	Short: "Replicated state machine for membership-gated community channels",
	Long: `Chainchat runs a deterministic state-transition program for a community
platform: paid membership channels with automatic fee splitting and
certificate issuance, plus poll-based governance for moderation and
general questions. The node sequences instructions into a single global
order and applies each one atomically.`,
	Version: Version,
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
