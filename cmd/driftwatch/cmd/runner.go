package cmd

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	"github.com/driftwatch/driftwatch/internal/baseline"
	"github.com/driftwatch/driftwatch/internal/config"
	"github.com/driftwatch/driftwatch/internal/engine"
	"github.com/driftwatch/driftwatch/internal/logscan"
	"github.com/driftwatch/driftwatch/internal/models"
	"github.com/driftwatch/driftwatch/internal/notifier"
	"github.com/driftwatch/driftwatch/internal/pipeline"
	"github.com/driftwatch/driftwatch/internal/scorer"
	"github.com/driftwatch/driftwatch/internal/source"
	"github.com/driftwatch/driftwatch/internal/storage"
	"github.com/driftwatch/driftwatch/internal/summarizer"
)

// loadConfig loads the configuration from --config, falling back to
// defaults when no file is given.
func loadConfig() (*config.Config, error) {
	if configPath == "" {
		return config.DefaultConfig(), nil
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	cfg.Verbose = verbose
	return cfg, nil
}

// buildRunner wires the pipeline against real collaborators. The returned
// cleanup closes everything the runner opened.
func buildRunner(ctx context.Context, cfg *config.Config) (*pipeline.Runner, *engine.Engine, func(), error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load aws config: %w", err)
	}

	cw := source.NewCloudWatch(cloudwatch.NewFromConfig(awsCfg), cfg.Baseline.Period)

	var logSource source.LogSource
	var closers []func()
	if cfg.Logs.ClickHouse != nil {
		ch, err := source.NewClickHouseLogs(*cfg.Logs.ClickHouse)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("clickhouse log source: %w", err)
		}
		closers = append(closers, func() { ch.Close() })
		logSource = ch
	} else {
		logSource = source.NewCloudWatchLogs(cloudwatchlogs.NewFromConfig(awsCfg))
	}

	dispatcher := notifier.NewDispatcher(notifier.Options{
		Timeout:       cfg.Notify.Timeout,
		RatePerMinute: cfg.Notify.RatePerMinute,
	})
	if cfg.Notify.WebhookURL != "" {
		wh, err := notifier.NewWebhookNotifier(notifier.WebhookConfig{URL: cfg.Notify.WebhookURL})
		if err != nil {
			return nil, nil, nil, err
		}
		dispatcher.Register(wh)
	}
	if cfg.Notify.SNSTopicARN != "" {
		sn, err := notifier.NewSNSNotifier(sns.NewFromConfig(awsCfg), cfg.Notify.SNSTopicARN)
		if err != nil {
			return nil, nil, nil, err
		}
		dispatcher.Register(sn)
	}
	closers = append(closers, func() { dispatcher.Close() })

	var summ summarizer.Summarizer = summarizer.Noop{}
	if cfg.Summary.Enabled {
		summ = summarizer.NewBedrock(
			bedrockruntime.NewFromConfig(awsCfg), cfg.Summary.ModelID, cfg.Summary.Timeout)
	}

	var store *storage.SQLiteStorage
	if cfg.Storage.Path != "" {
		store = storage.NewSQLiteStorage(cfg.Storage.Path)
		if err := store.Open(); err != nil {
			return nil, nil, nil, err
		}
		closers = append(closers, func() { store.Close() })
	}

	eng := engine.New(engine.Options{
		MinMetricSeverity: models.Severity(cfg.Engine.MinSeverity),
		LogCountThreshold: cfg.Logs.CountThreshold,
	})

	runner := pipeline.NewRunner(cfg, pipeline.Deps{
		Store: baseline.NewStore(cfg.Baseline.WindowSize),
		Scorer: scorer.New(scorer.Options{
			ZCap:        cfg.Scorer.ZCap,
			TrendMargin: cfg.Scorer.TrendMargin,
			Thresholds:  cfg.Scorer.Thresholds,
		}),
		Analyzer:   logscan.New(cfg.Logs.Patterns),
		Engine:     eng,
		Metrics:    cw,
		Logs:       logSource,
		Publisher:  cw,
		Dispatcher: dispatcher,
		Summarizer: summ,
		Storage:    store,
	})

	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	return runner, eng, cleanup, nil
}
