package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/driftwatch/driftwatch/internal/logscan"
	"github.com/driftwatch/driftwatch/internal/models"
)

var analyzePatterns []string

var analyzeCmd = &cobra.Command{
	Use:   "analyze [file...]",
	Short: "Scan log files for error patterns",
	Long: `Scan local log files for the configured error patterns and print
per-pattern match counts with the first matching line of each.

Examples:
  # Scan with the default patterns (ERROR, FATAL, EXCEPTION, TIMEOUT)
  driftwatch analyze /var/log/app/app.log

  # Custom patterns, JSON output
  driftwatch analyze --pattern "panic:" --pattern OOM -o json app.log`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringArrayVar(&analyzePatterns, "pattern", nil, "error pattern (repeatable; default set when omitted)")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	analyzer := logscan.New(analyzePatterns)

	var all []models.LogPatternMatch
	for _, path := range args {
		lines, err := readLines(path)
		if err != nil {
			PrintError(fmt.Sprintf("%s: %v", path, err), false)
			continue
		}
		PrintVerbose("scanning %s (%d lines)", path, len(lines))
		all = append(all, analyzer.Analyze(lines, path)...)
	}

	if GetOutput() == "json" {
		data, err := json.MarshalIndent(map[string]any{
			"matches": all,
			"total":   logscan.TotalCount(all),
		}, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	if len(all) == 0 {
		fmt.Println("no pattern matches")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "GROUP\tPATTERN\tCOUNT\tFIRST MATCH")
	for _, m := range all {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", m.LogGroup, m.Pattern, m.Count, truncate(m.SampleMessage, 80))
	}
	w.Flush()
	fmt.Printf("total: %d matches\n", logscan.TotalCount(all))
	return nil
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines, scanner.Err()
}

// truncate truncates a string to max length with ellipsis.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
