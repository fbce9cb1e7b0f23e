// Package cmd contains the CLI commands for driftwatch.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Used for flags
	verbose    bool
	output     string
	configPath string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "driftwatch",
	Short: "driftwatch - metric anomaly and log pattern monitor",
	Long: `driftwatch pulls metric samples and log batches from a monitored
system, scores them against rolling statistical baselines, and raises
severity-classified alerts when something drifts.

Signals:
  - Metric anomalies: z-score, percentile rank, and trend against a
    per-key rolling baseline
  - Log anomalies: error-pattern match counts per log group

Examples:
  # Run one evaluation cycle
  driftwatch evaluate --config driftwatch.yaml

  # Run cycles continuously at the configured interval
  driftwatch watch --config driftwatch.yaml

  # Score a series of values offline
  driftwatch score 10 10 10 10 50

  # Scan log files for error patterns
  driftwatch analyze /var/log/app/*.log`,
	// Run when no subcommand is specified
	Run: func(cmd *cobra.Command, args []string) {
		// Show help by default
		cmd.Help()
	},
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "table", "output format (table, json)")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file")
}

// IsVerbose returns whether verbose mode is enabled.
func IsVerbose() bool {
	return verbose
}

// GetOutput returns the output format.
func GetOutput() string {
	return output
}

// PrintError prints an error message and exits if fatal is true.
func PrintError(msg string, fatal bool) {
	fmt.Fprintln(os.Stderr, "Error:", msg)
	if fatal {
		os.Exit(1)
	}
}

// PrintVerbose prints a message only if verbose mode is enabled.
func PrintVerbose(format string, args ...interface{}) {
	if verbose {
		fmt.Printf(format+"\n", args...)
	}
}
