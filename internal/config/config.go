// Package config loads and validates the driftwatch configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/driftwatch/driftwatch/internal/models"
	"github.com/driftwatch/driftwatch/internal/scorer"
	"github.com/driftwatch/driftwatch/internal/source"
)

// Config represents the full driftwatch configuration.
type Config struct {
	// Keys are the metric series to watch, "namespace/metric[:statistic]".
	Keys []string `yaml:"keys"`
	// LogGroups are the log groups to scan.
	LogGroups []string `yaml:"log_groups"`

	Baseline BaselineConfig `yaml:"baseline"`
	Scorer   ScorerConfig   `yaml:"scorer"`
	Logs     LogsConfig     `yaml:"logs"`
	Engine   EngineConfig   `yaml:"engine"`
	Summary  SummaryConfig  `yaml:"summary"`
	Notify   NotifyConfig   `yaml:"notify"`
	Cycle    CycleConfig    `yaml:"cycle"`
	Storage  StorageConfig  `yaml:"storage"`
	HTTP     HTTPConfig     `yaml:"http"`

	Verbose bool `yaml:"-"` // set via CLI flag
}

// BaselineConfig controls the baseline store.
type BaselineConfig struct {
	// WindowSize is the per-key window capacity in samples (default: 288,
	// i.e. 24h of 5-minute periods).
	WindowSize int `yaml:"window_size"`
	// Period is the metric aggregation period in seconds (default: 300).
	Period int32 `yaml:"period"`
	// Lookback is how far back samples are pulled each cycle (default: 1h).
	Lookback time.Duration `yaml:"lookback"`
}

// ScorerConfig controls anomaly scoring.
type ScorerConfig struct {
	// ZCap is the |z-score| treated as maximally anomalous (default: 5.0).
	ZCap float64 `yaml:"z_cap"`
	// TrendMargin is the relative trend threshold (default: 0.10).
	TrendMargin float64 `yaml:"trend_margin"`
	// Thresholds are severity cut points (defaults: 0.3/0.6/0.85).
	Thresholds scorer.Thresholds `yaml:"thresholds"`
}

// LogsConfig controls log pattern analysis.
type LogsConfig struct {
	// Patterns are the error markers (default: ERROR, FATAL, EXCEPTION,
	// TIMEOUT). Matching is case-sensitive.
	Patterns []string `yaml:"patterns"`
	// CountThreshold is the total match count per window that opens a log
	// alert (default: 10).
	CountThreshold int `yaml:"count_threshold"`
	// Lookback is how far back lines are pulled each cycle (default: 1h).
	Lookback time.Duration `yaml:"lookback"`
	// ClickHouse, when set, reads log lines from ClickHouse instead of
	// CloudWatch Logs.
	ClickHouse *source.ClickHouseConfig `yaml:"clickhouse,omitempty"`
}

// EngineConfig controls the alert decision engine.
type EngineConfig struct {
	// MinSeverity is the lowest anomaly severity that opens a metric alert
	// (default: medium).
	MinSeverity string `yaml:"min_severity"`
}

// SummaryConfig controls AI-generated summaries.
type SummaryConfig struct {
	Enabled bool   `yaml:"enabled"`
	ModelID string `yaml:"model_id"`
	// Timeout bounds each summarization call (default: 10s).
	Timeout time.Duration `yaml:"timeout"`
}

// NotifyConfig controls alert notification channels.
type NotifyConfig struct {
	// WebhookURL, when set, enables the webhook channel.
	WebhookURL string `yaml:"webhook_url"`
	// SNSTopicARN, when set, enables the SNS channel.
	SNSTopicARN string `yaml:"sns_topic_arn"`
	// RatePerMinute caps dispatches per minute (default: 10).
	RatePerMinute int `yaml:"rate_per_minute"`
	// Timeout bounds each delivery attempt (default: 10s).
	Timeout time.Duration `yaml:"timeout"`
}

// CycleConfig controls evaluation cycle execution.
type CycleConfig struct {
	// Interval between cycles in watch mode (default: 5m).
	Interval time.Duration `yaml:"interval"`
	// Timeout bounds one full cycle (default: 2m).
	Timeout time.Duration `yaml:"timeout"`
	// Parallelism is the per-key worker count (default: 4).
	Parallelism int `yaml:"parallelism"`
}

// StorageConfig controls state persistence.
type StorageConfig struct {
	// Path is the SQLite database file; empty disables persistence.
	Path string `yaml:"path"`
	// Retention is how long resolved alert events are kept (default: 168h).
	Retention time.Duration `yaml:"retention"`
}

// HTTPConfig controls the status/metrics server in watch mode.
type HTTPConfig struct {
	// Addr is the listen address; empty disables the server.
	Addr string `yaml:"addr"`
}

// LoadConfig loads configuration from a YAML file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.SetDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// DefaultConfig returns a configuration with default values and the default
// watch list.
func DefaultConfig() *Config {
	cfg := &Config{
		Keys: []string{
			"AWS/Lambda/Duration:Average",
			"AWS/Lambda/Errors:Sum",
			"AWS/ApplicationELB/TargetResponseTime:Average",
		},
	}
	cfg.SetDefaults()
	return cfg
}

// SetDefaults sets default values for missing config fields.
func (c *Config) SetDefaults() {
	if c.Baseline.WindowSize <= 0 {
		c.Baseline.WindowSize = 288
	}
	if c.Baseline.Period <= 0 {
		c.Baseline.Period = 300
	}
	if c.Baseline.Lookback <= 0 {
		c.Baseline.Lookback = time.Hour
	}
	if c.Scorer.ZCap <= 0 {
		c.Scorer.ZCap = 5.0
	}
	if c.Scorer.TrendMargin <= 0 {
		c.Scorer.TrendMargin = 0.10
	}
	if c.Scorer.Thresholds == (scorer.Thresholds{}) {
		c.Scorer.Thresholds = scorer.DefaultThresholds()
	}
	if len(c.Logs.Patterns) == 0 {
		c.Logs.Patterns = []string{"ERROR", "FATAL", "EXCEPTION", "TIMEOUT"}
	}
	if c.Logs.CountThreshold <= 0 {
		c.Logs.CountThreshold = 10
	}
	if c.Logs.Lookback <= 0 {
		c.Logs.Lookback = time.Hour
	}
	if c.Engine.MinSeverity == "" {
		c.Engine.MinSeverity = string(models.SeverityMedium)
	}
	if c.Summary.Timeout <= 0 {
		c.Summary.Timeout = 10 * time.Second
	}
	if c.Notify.RatePerMinute == 0 {
		c.Notify.RatePerMinute = 10
	}
	if c.Notify.Timeout <= 0 {
		c.Notify.Timeout = 10 * time.Second
	}
	if c.Storage.Retention <= 0 {
		c.Storage.Retention = 7 * 24 * time.Hour
	}
	if c.Cycle.Interval <= 0 {
		c.Cycle.Interval = 5 * time.Minute
	}
	if c.Cycle.Timeout <= 0 {
		c.Cycle.Timeout = 2 * time.Minute
	}
	if c.Cycle.Parallelism <= 0 {
		c.Cycle.Parallelism = 4
	}
}

// Validate checks the configuration for errors. It is run at load time and
// again at the start of each cycle after hot reloads.
func (c *Config) Validate() error {
	for _, k := range c.Keys {
		if _, err := models.ParseMetricKey(k); err != nil {
			return err
		}
	}
	t := c.Scorer.Thresholds
	if !(t.Medium > 0 && t.Medium < t.High && t.High < t.Critical && t.Critical <= 1) {
		return fmt.Errorf("scorer.thresholds must satisfy 0 < medium < high < critical <= 1, got %.2f/%.2f/%.2f",
			t.Medium, t.High, t.Critical)
	}
	switch models.Severity(c.Engine.MinSeverity) {
	case models.SeverityLow, models.SeverityMedium, models.SeverityHigh, models.SeverityCritical:
	default:
		return fmt.Errorf("engine.min_severity %q is not a severity", c.Engine.MinSeverity)
	}
	if c.Logs.ClickHouse != nil && len(c.Logs.ClickHouse.Addresses) == 0 {
		return fmt.Errorf("logs.clickhouse.addresses is required when clickhouse is configured")
	}
	return nil
}

// MetricKeys returns the parsed watch list. Call after Validate.
func (c *Config) MetricKeys() []models.MetricKey {
	keys := make([]models.MetricKey, 0, len(c.Keys))
	for _, k := range c.Keys {
		parsed, err := models.ParseMetricKey(k)
		if err != nil {
			continue
		}
		keys = append(keys, parsed)
	}
	return keys
}
