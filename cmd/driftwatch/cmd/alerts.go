package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/driftwatch/driftwatch/internal/storage"
)

var alertsLimit int

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "Show persisted alert events",
	Long: `Show alert events from the state database, newest first. Requires
storage.path to be configured.

Examples:
  # Recent alert history
  driftwatch alerts --config driftwatch.yaml

  # Last 10 events as JSON
  driftwatch alerts --config driftwatch.yaml --limit 10 -o json`,
	RunE: runAlerts,
}

func init() {
	rootCmd.AddCommand(alertsCmd)

	alertsCmd.Flags().IntVar(&alertsLimit, "limit", 50, "maximum events to show")
}

func runAlerts(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Storage.Path == "" {
		return fmt.Errorf("storage.path is not configured; alert history requires persistence")
	}

	store := storage.NewSQLiteStorage(cfg.Storage.Path)
	if err := store.Open(); err != nil {
		return err
	}
	defer store.Close()

	events, err := store.EventHistory(context.Background(), alertsLimit)
	if err != nil {
		return err
	}

	if GetOutput() == "json" {
		data, err := json.MarshalIndent(map[string]any{"events": events}, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	if len(events) == 0 {
		fmt.Println("no alert events")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CREATED\tSTATE\tSEVERITY\tSOURCE\tSUBJECT")
	for _, ev := range events {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			ev.CreatedAt.Format("2006-01-02 15:04:05"), ev.State, ev.Severity, ev.Source, ev.Subject)
	}
	return w.Flush()
}
