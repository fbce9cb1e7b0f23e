// Package source defines the external collaborator boundaries of the
// evaluation pipeline: where metric samples and log lines come from, and
// where anomaly scores are published back to.
package source

import (
	"context"
	"time"

	"github.com/driftwatch/driftwatch/internal/models"
)

// MetricSource pulls metric samples for one key over a time range.
type MetricSource interface {
	// FetchSamples returns samples ordered by timestamp ascending.
	FetchSamples(ctx context.Context, key models.MetricKey, start, end time.Time) ([]models.Sample, error)
}

// LogSource pulls raw log lines for one log group over a time range.
type LogSource interface {
	FetchLines(ctx context.Context, logGroup string, start, end time.Time) ([]string, error)
}

// ScorePublisher publishes derived anomaly signals back to the metrics
// backend for downstream dashboards and alarms.
type ScorePublisher interface {
	// PublishScore publishes a metric key's anomaly score value (0-1).
	PublishScore(ctx context.Context, score models.AnomalyScore) error
	// PublishLogCounts publishes a log group's aggregated error count.
	PublishLogCounts(ctx context.Context, logGroup string, errorCount int) error
}

// NoopPublisher discards all publishes. Used in offline commands and tests.
type NoopPublisher struct{}

func (NoopPublisher) PublishScore(context.Context, models.AnomalyScore) error {
	return nil
}

func (NoopPublisher) PublishLogCounts(context.Context, string, int) error {
	return nil
}
