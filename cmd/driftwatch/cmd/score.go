package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/driftwatch/driftwatch/internal/baseline"
	"github.com/driftwatch/driftwatch/internal/models"
	"github.com/driftwatch/driftwatch/internal/scorer"
)

var (
	scoreKey    string
	scoreWindow int
)

var scoreCmd = &cobra.Command{
	Use:   "score value...",
	Short: "Score a value series offline",
	Long: `Feed a series of values into a fresh baseline and score the last
one against it. Useful to sanity-check scoring behavior without any
backend.

Examples:
  # Score the final value of a series
  driftwatch score 10 10 10 10 50

  # With an explicit key and window capacity
  driftwatch score --key AWS/Lambda/Duration:Average --window 5 10 10 10 10 50`,
	Args: cobra.MinimumNArgs(2),
	RunE: runScore,
}

func init() {
	rootCmd.AddCommand(scoreCmd)

	scoreCmd.Flags().StringVar(&scoreKey, "key", "Local/Series:Average", "metric key (namespace/metric[:statistic])")
	scoreCmd.Flags().IntVar(&scoreWindow, "window", 0, "window capacity (0 = all values)")
}

func runScore(cmd *cobra.Command, args []string) error {
	key, err := models.ParseMetricKey(scoreKey)
	if err != nil {
		return err
	}

	values := make([]float64, 0, len(args))
	for _, a := range args {
		v, err := strconv.ParseFloat(a, 64)
		if err != nil {
			return fmt.Errorf("invalid value %q: %w", a, err)
		}
		values = append(values, v)
	}

	capacity := scoreWindow
	if capacity <= 0 {
		capacity = len(values)
	}
	store := baseline.NewStore(capacity)
	now := time.Now()
	for i, v := range values {
		store.Record(models.Sample{Key: key, Timestamp: now.Add(time.Duration(i) * time.Minute), Value: v})
	}

	b, err := store.Baseline(key)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	s := scorer.New(scorer.Options{
		ZCap:        cfg.Scorer.ZCap,
		TrendMargin: cfg.Scorer.TrendMargin,
		Thresholds:  cfg.Scorer.Thresholds,
	})

	last := models.Sample{Key: key, Timestamp: now, Value: values[len(values)-1]}
	score, err := s.Score(last, b)
	if err != nil {
		return err
	}

	if GetOutput() == "json" {
		data, err := json.MarshalIndent(map[string]any{"baseline": b, "score": score}, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "key\t%s\n", key)
	fmt.Fprintf(w, "window\t%d values (cap %d)\n", len(b.Window), store.Capacity())
	fmt.Fprintf(w, "mean\t%.4f\n", b.Mean)
	fmt.Fprintf(w, "stddev\t%.4f\n", b.StdDev)
	fmt.Fprintf(w, "p50/p90/p99\t%.4f / %.4f / %.4f\n", b.Percentiles.P50, b.Percentiles.P90, b.Percentiles.P99)
	fmt.Fprintf(w, "z-score\t%.4f\n", score.ZScore)
	fmt.Fprintf(w, "percentile rank\t%.1f\n", score.PercentileRank)
	fmt.Fprintf(w, "trend\t%s\n", score.Trend)
	fmt.Fprintf(w, "anomaly score\t%.4f\n", score.Value)
	fmt.Fprintf(w, "severity\t%s\n", score.Severity)
	return w.Flush()
}
