package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	"github.com/driftwatch/driftwatch/internal/models"
)

// snsClient is the subset of the SNS API the notifier uses. Satisfied by
// *sns.Client.
type snsClient interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNSNotifier publishes alert events to an SNS topic.
type SNSNotifier struct {
	client   snsClient
	topicARN string
}

// NewSNSNotifier creates an SNS notifier for the given topic.
func NewSNSNotifier(client *sns.Client, topicARN string) (*SNSNotifier, error) {
	return newSNSNotifier(client, topicARN)
}

func newSNSNotifier(client snsClient, topicARN string) (*SNSNotifier, error) {
	if topicARN == "" {
		return nil, fmt.Errorf("sns topic ARN is required")
	}
	return &SNSNotifier{client: client, topicARN: topicARN}, nil
}

// Name returns "sns".
func (s *SNSNotifier) Name() string {
	return "sns"
}

// snsMessage is the JSON body published to the topic.
type snsMessage struct {
	AlertType string `json:"alert_type"`
	ID        string `json:"id"`
	Subject   string `json:"subject"`
	Source    string `json:"source"`
	Severity  string `json:"severity"`
	State     string `json:"state"`
	Summary   string `json:"summary"`
	Timestamp string `json:"timestamp"`
}

// Send publishes the event with a severity-tagged subject line.
func (s *SNSNotifier) Send(ctx context.Context, event *models.AlertEvent) error {
	subject := fmt.Sprintf("Anomaly Alert: %s - %s", strings.ToUpper(string(event.Severity)), event.Subject)
	if event.State == models.AlertStateResolved {
		subject = fmt.Sprintf("Anomaly Resolved: %s", event.Subject)
	}
	// SNS caps subjects at 100 characters.
	if len(subject) > 100 {
		subject = subject[:100]
	}

	body, err := json.MarshalIndent(snsMessage{
		AlertType: "anomaly_detection",
		ID:        event.ID,
		Subject:   event.Subject,
		Source:    string(event.Source),
		Severity:  string(event.Severity),
		State:     string(event.State),
		Summary:   event.Summary,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	_, err = s.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(s.topicARN),
		Subject:  aws.String(subject),
		Message:  aws.String(string(body)),
	})
	if err != nil {
		return fmt.Errorf("sns publish: %w", err)
	}
	return nil
}

// Close is a no-op for the SNS notifier.
func (s *SNSNotifier) Close() error {
	return nil
}
