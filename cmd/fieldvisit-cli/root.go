package main

import (
	"github.com/spf13/cobra"
)

var (
	// configFile is set by the --config flag.
	configFile string

	// verbose switches the logger from warn-and-above to debug.
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "fieldvisit",
	Short: "Record school observation visits from the terminal",
	Long: `fieldvisit walks a program manager through a multi-step observation
form, uploads any attached media into a per-school, per-date folder tree,
and appends the completed visit as one row in the tracking sheet.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default: ./fieldvisit.yaml or ~/.fieldvisit/fieldvisit.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(stepsCmd)
	rootCmd.AddCommand(versionCmd)
}
