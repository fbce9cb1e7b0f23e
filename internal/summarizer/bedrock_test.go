package summarizer

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"github.com/driftwatch/driftwatch/internal/models"
)

type fakeBedrock struct {
	in   *bedrockruntime.InvokeModelInput
	text string
	err  error
}

func (f *fakeBedrock) InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error) {
	f.in = params
	if f.err != nil {
		return nil, f.err
	}
	body, _ := json.Marshal(map[string]any{
		"content": []map[string]string{{"text": f.text}},
	})
	return &bedrockruntime.InvokeModelOutput{Body: body}, nil
}

var matches = []models.LogPatternMatch{
	{Pattern: "ERROR", LogGroup: "/aws/lambda/api", Count: 12, SampleMessage: "ERROR connection refused"},
	{Pattern: "TIMEOUT", LogGroup: "/aws/lambda/api", Count: 3, SampleMessage: "TIMEOUT calling upstream"},
}

func TestBedrockSummarize(t *testing.T) {
	fake := &fakeBedrock{text: "database connectivity issue; check security groups"}
	b := newBedrock(fake, "", 0)

	got, err := b.Summarize(context.Background(), matches)
	if err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}
	if got != "database connectivity issue; check security groups" {
		t.Errorf("summary = %q", got)
	}

	if *fake.in.ModelId != DefaultModelID {
		t.Errorf("model = %q, want default", *fake.in.ModelId)
	}

	var req anthropicRequest
	if err := json.Unmarshal(fake.in.Body, &req); err != nil {
		t.Fatalf("request body is not JSON: %v", err)
	}
	if req.AnthropicVersion != "bedrock-2023-05-31" {
		t.Errorf("anthropic_version = %q", req.AnthropicVersion)
	}
	if req.MaxTokens != 1000 {
		t.Errorf("max_tokens = %d, want 1000", req.MaxTokens)
	}
	if len(req.Messages) != 1 || req.Messages[0].Role != "user" {
		t.Fatalf("messages = %+v", req.Messages)
	}
	prompt := req.Messages[0].Content
	if !strings.Contains(prompt, `pattern="ERROR"`) || !strings.Contains(prompt, "count=12") {
		t.Errorf("prompt missing match details: %q", prompt)
	}
}

func TestBedrockSummarizeEmptyMatches(t *testing.T) {
	fake := &fakeBedrock{text: "should not be called"}
	b := newBedrock(fake, "", 0)

	got, err := b.Summarize(context.Background(), nil)
	if err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}
	if got != "" {
		t.Errorf("summary = %q, want empty", got)
	}
	if fake.in != nil {
		t.Error("model invoked for empty match set")
	}
}

func TestBedrockSummarizeError(t *testing.T) {
	fake := &fakeBedrock{err: errors.New("throttled")}
	b := newBedrock(fake, "my-model", 0)

	if _, err := b.Summarize(context.Background(), matches); err == nil {
		t.Fatal("Summarize() = nil, want error")
	}
}

func TestBedrockSummarizeEmptyContent(t *testing.T) {
	fake := &fakeBedrock{}
	b := newBedrock(fake, "", 0)

	got, err := b.Summarize(context.Background(), matches)
	if err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}
	if got != "" {
		t.Errorf("summary = %q, want empty on empty content", got)
	}
}

func TestNoopSummarize(t *testing.T) {
	got, err := Noop{}.Summarize(context.Background(), matches)
	if err != nil || got != "" {
		t.Errorf("Noop.Summarize() = %q, %v, want empty, nil", got, err)
	}
}
