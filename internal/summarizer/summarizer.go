// Package summarizer provides optional AI-generated summaries for log
// pattern matches. The summarizer is a best-effort collaborator: any failure
// or timeout degrades to an empty summary and never blocks alerting.
package summarizer

import (
	"context"
	"fmt"
	"strings"

	"github.com/driftwatch/driftwatch/internal/models"
)

// Summarizer produces a short human-readable summary of a match set.
type Summarizer interface {
	// Summarize returns a summary for the aggregated matches of one log
	// group. Implementations must honor ctx cancellation.
	Summarize(ctx context.Context, matches []models.LogPatternMatch) (string, error)
}

// Noop is a Summarizer that always returns an empty summary. Used when AI
// summaries are disabled.
type Noop struct{}

// Summarize returns an empty summary.
func (Noop) Summarize(context.Context, []models.LogPatternMatch) (string, error) {
	return "", nil
}

// buildPrompt renders the match set into the analysis prompt.
func buildPrompt(matches []models.LogPatternMatch) string {
	var b strings.Builder
	b.WriteString("Analyze these aggregated log error patterns and provide insights:\n\n")
	for _, m := range matches {
		fmt.Fprintf(&b, "pattern=%q group=%q count=%d sample=%q\n",
			m.Pattern, m.LogGroup, m.Count, m.SampleMessage)
	}
	b.WriteString("\nProvide a short root cause hypothesis and recommended action in plain text.")
	return b.String()
}
