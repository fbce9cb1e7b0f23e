package source

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"github.com/driftwatch/driftwatch/internal/models"
)

const (
	// ScoreNamespace is the namespace anomaly scores are published under.
	ScoreNamespace = "AIOps/AnomalyScores"
	// LogNamespace is the namespace log analysis counts are published under.
	LogNamespace = "AIOps/LogAnalysis"

	// defaultPeriod is the metric aggregation period in seconds.
	defaultPeriod = 300
)

// cloudwatchClient is the subset of the CloudWatch API used here.
// Satisfied by *cloudwatch.Client.
type cloudwatchClient interface {
	GetMetricStatistics(ctx context.Context, params *cloudwatch.GetMetricStatisticsInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.GetMetricStatisticsOutput, error)
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// CloudWatch is both a MetricSource and a ScorePublisher backed by the
// CloudWatch API.
type CloudWatch struct {
	client cloudwatchClient
	period int32
}

// NewCloudWatch creates a CloudWatch source/publisher. periodSeconds <= 0
// selects the default 5-minute period.
func NewCloudWatch(client *cloudwatch.Client, periodSeconds int32) *CloudWatch {
	return newCloudWatch(client, periodSeconds)
}

func newCloudWatch(client cloudwatchClient, periodSeconds int32) *CloudWatch {
	if periodSeconds <= 0 {
		periodSeconds = defaultPeriod
	}
	return &CloudWatch{client: client, period: periodSeconds}
}

// FetchSamples pulls datapoints for key between start and end, ordered by
// timestamp ascending. Datapoints missing the requested statistic are
// skipped rather than failing the fetch.
func (c *CloudWatch) FetchSamples(ctx context.Context, key models.MetricKey, start, end time.Time) ([]models.Sample, error) {
	out, err := c.client.GetMetricStatistics(ctx, &cloudwatch.GetMetricStatisticsInput{
		Namespace:  aws.String(key.Namespace),
		MetricName: aws.String(key.MetricName),
		StartTime:  aws.Time(start),
		EndTime:    aws.Time(end),
		Period:     aws.Int32(c.period),
		Statistics: []types.Statistic{types.Statistic(key.Statistic)},
	})
	if err != nil {
		return nil, fmt.Errorf("get metric statistics %s: %w", key, err)
	}

	samples := make([]models.Sample, 0, len(out.Datapoints))
	for _, dp := range out.Datapoints {
		value, ok := statValue(dp, key.Statistic)
		if !ok || dp.Timestamp == nil {
			continue
		}
		samples = append(samples, models.Sample{
			Key:       key,
			Timestamp: *dp.Timestamp,
			Value:     value,
		})
	}
	sort.Slice(samples, func(i, j int) bool {
		return samples[i].Timestamp.Before(samples[j].Timestamp)
	})
	return samples, nil
}

// statValue extracts the requested statistic from a datapoint.
func statValue(dp types.Datapoint, stat models.Statistic) (float64, bool) {
	var v *float64
	switch stat {
	case models.StatisticAverage:
		v = dp.Average
	case models.StatisticSum:
		v = dp.Sum
	case models.StatisticMaximum:
		v = dp.Maximum
	case models.StatisticMinimum:
		v = dp.Minimum
	case models.StatisticSampleCount:
		v = dp.SampleCount
	}
	if v == nil {
		return 0, false
	}
	return *v, true
}

// PublishScore publishes the anomaly score value under ScoreNamespace with
// the watched metric identified by dimensions.
func (c *CloudWatch) PublishScore(ctx context.Context, score models.AnomalyScore) error {
	_, err := c.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace: aws.String(ScoreNamespace),
		MetricData: []types.MetricDatum{
			{
				MetricName: aws.String("AnomalyScore"),
				Value:      aws.Float64(score.Value),
				Unit:       types.StandardUnitNone,
				Timestamp:  aws.Time(time.Now().UTC()),
				Dimensions: []types.Dimension{
					{Name: aws.String("Namespace"), Value: aws.String(score.Key.Namespace)},
					{Name: aws.String("MetricName"), Value: aws.String(score.Key.MetricName)},
					{Name: aws.String("Statistic"), Value: aws.String(string(score.Key.Statistic))},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("put anomaly score %s: %w", score.Key, err)
	}
	return nil
}

// PublishLogCounts publishes a log group's aggregated error count under
// LogNamespace.
func (c *CloudWatch) PublishLogCounts(ctx context.Context, logGroup string, errorCount int) error {
	_, err := c.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace: aws.String(LogNamespace),
		MetricData: []types.MetricDatum{
			{
				MetricName: aws.String("ErrorCount"),
				Value:      aws.Float64(float64(errorCount)),
				Unit:       types.StandardUnitCount,
				Timestamp:  aws.Time(time.Now().UTC()),
				Dimensions: []types.Dimension{
					{Name: aws.String("LogGroup"), Value: aws.String(logGroup)},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("put log counts %s: %w", logGroup, err)
	}
	return nil
}
