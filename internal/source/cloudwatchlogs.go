package source

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
)

// maxLogEvents caps how many events one fetch may return across pages.
const maxLogEvents = 10000

// logsClient is the subset of the CloudWatch Logs API used here.
// Satisfied by *cloudwatchlogs.Client.
type logsClient interface {
	FilterLogEvents(ctx context.Context, params *cloudwatchlogs.FilterLogEventsInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.FilterLogEventsOutput, error)
}

// CloudWatchLogs is a LogSource backed by the CloudWatch Logs API.
type CloudWatchLogs struct {
	client logsClient
}

// NewCloudWatchLogs creates a CloudWatch Logs source.
func NewCloudWatchLogs(client *cloudwatchlogs.Client) *CloudWatchLogs {
	return &CloudWatchLogs{client: client}
}

// FetchLines pulls raw event messages for logGroup between start and end,
// following pagination up to maxLogEvents.
func (c *CloudWatchLogs) FetchLines(ctx context.Context, logGroup string, start, end time.Time) ([]string, error) {
	var (
		lines     []string
		nextToken *string
	)

	for {
		out, err := c.client.FilterLogEvents(ctx, &cloudwatchlogs.FilterLogEventsInput{
			LogGroupName: aws.String(logGroup),
			StartTime:    aws.Int64(start.UnixMilli()),
			EndTime:      aws.Int64(end.UnixMilli()),
			NextToken:    nextToken,
		})
		if err != nil {
			return nil, fmt.Errorf("filter log events %s: %w", logGroup, err)
		}

		for _, ev := range out.Events {
			if ev.Message == nil {
				continue
			}
			lines = append(lines, *ev.Message)
			if len(lines) >= maxLogEvents {
				return lines, nil
			}
		}

		if out.NextToken == nil {
			return lines, nil
		}
		nextToken = out.NextToken
	}
}
