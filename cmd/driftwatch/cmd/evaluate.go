package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/driftwatch/driftwatch/internal/pipeline"
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Run one evaluation cycle",
	Long: `Run a single evaluation cycle: pull samples for every configured
metric key and lines for every configured log group, score them, and
dispatch any alert transitions.

Examples:
  # Evaluate with a config file
  driftwatch evaluate --config driftwatch.yaml

  # Evaluate the default watch list with JSON output
  driftwatch evaluate -o json`,
	RunE: runEvaluate,
}

func init() {
	rootCmd.AddCommand(evaluateCmd)
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runner, _, cleanup, err := buildRunner(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := runner.RestoreState(ctx); err != nil {
		return err
	}

	result, err := runner.RunCycle(ctx)
	if err != nil {
		return err
	}

	return printCycleResult(result)
}

func printCycleResult(result *pipeline.CycleResult) error {
	if GetOutput() == "json" {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	fmt.Printf("cycle finished in %s: %d keys evaluated, %d skipped, %d log groups (%d lines)\n",
		result.Duration, result.KeysEvaluated, result.KeysSkipped, result.GroupsScanned, result.LinesScanned)

	if len(result.Scores) > 0 {
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "KEY\tSCORE\tZ\tPCTL\tTREND\tSEVERITY")
		for _, s := range result.Scores {
			fmt.Fprintf(w, "%s\t%.3f\t%.2f\t%.0f\t%s\t%s\n",
				s.Key, s.Value, s.ZScore, s.PercentileRank, s.Trend, s.Severity)
		}
		w.Flush()
	}

	for _, ev := range result.Events {
		fmt.Printf("[%s] %s %s: %s\n", ev.State, ev.Severity, ev.Subject, ev.Summary)
	}
	for _, e := range result.Errors {
		PrintError(e, false)
	}
	return nil
}
