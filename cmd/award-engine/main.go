// Package main provides the award-engine CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "award-engine",
		Short: "Award Engine - award space tracker for BOM ⇄ JFK",
		Long: `Award Engine searches for award space, records the price in the
award_snapshots table and alerts when the price drops.

Run 'award-engine' with no arguments to perform one search cycle.
Run 'award-engine --help' for available commands.`,
		RunE:         runCycle,
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file path")
	rootCmd.PersistentFlags().StringSlice("env-file", nil, "env files to load (default .env.local, .env)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")

	addRunFlags(rootCmd)

	rootCmd.AddCommand(
		runCmd(),
		alertsCmd(),
		optimizeCmd(),
		trendCmd(),
		eventsCmd(),
		versionCmd(),
	)

	return rootCmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "award-engine %s\n", version)
			fmt.Fprintf(out, "  commit: %s\n", commit)
			fmt.Fprintf(out, "  built:  %s\n", date)
		},
	}
}
