package summarizer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"github.com/driftwatch/driftwatch/internal/models"
)

// DefaultModelID is the Bedrock model used when none is configured.
const DefaultModelID = "anthropic.claude-3-sonnet-20240229-v1:0"

// bedrockClient is the subset of the Bedrock runtime API the summarizer
// uses. Satisfied by *bedrockruntime.Client.
type bedrockClient interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// Bedrock summarizes matches via the AWS Bedrock runtime.
type Bedrock struct {
	client  bedrockClient
	modelID string
	timeout time.Duration
}

// NewBedrock creates a Bedrock summarizer. An empty modelID selects
// DefaultModelID; timeout <= 0 selects 10s.
func NewBedrock(client *bedrockruntime.Client, modelID string, timeout time.Duration) *Bedrock {
	return newBedrock(client, modelID, timeout)
}

func newBedrock(client bedrockClient, modelID string, timeout time.Duration) *Bedrock {
	if modelID == "" {
		modelID = DefaultModelID
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Bedrock{client: client, modelID: modelID, timeout: timeout}
}

// anthropicRequest is the Bedrock messages API payload.
type anthropicRequest struct {
	AnthropicVersion string             `json:"anthropic_version"`
	MaxTokens        int                `json:"max_tokens"`
	Messages         []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
}

// Summarize invokes the model with the aggregated matches. The call is
// bounded by the configured timeout on top of ctx.
func (b *Bedrock) Summarize(ctx context.Context, matches []models.LogPatternMatch) (string, error) {
	if len(matches) == 0 {
		return "", nil
	}

	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	body, err := json.Marshal(anthropicRequest{
		AnthropicVersion: "bedrock-2023-05-31",
		MaxTokens:        1000,
		Messages: []anthropicMessage{
			{Role: "user", Content: buildPrompt(matches)},
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal bedrock request: %w", err)
	}

	out, err := b.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(b.modelID),
		ContentType: aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return "", fmt.Errorf("invoke model %s: %w", b.modelID, err)
	}

	var resp anthropicResponse
	if err := json.Unmarshal(out.Body, &resp); err != nil {
		return "", fmt.Errorf("decode bedrock response: %w", err)
	}
	if len(resp.Content) == 0 {
		return "", nil
	}
	return resp.Content[0].Text, nil
}
