// Package logscan scans batches of raw log lines for error patterns and
// aggregates matches per pattern.
package logscan

import (
	"strings"
	"unicode/utf8"

	"github.com/driftwatch/driftwatch/internal/models"
)

// DefaultPatterns are the error markers scanned for when none are configured.
func DefaultPatterns() []string {
	return []string{"ERROR", "FATAL", "EXCEPTION", "TIMEOUT"}
}

// Analyzer matches log lines against a fixed set of patterns.
// Matching is case-sensitive substring matching.
type Analyzer struct {
	patterns []string
}

// New creates an Analyzer. An empty pattern set selects DefaultPatterns.
func New(patterns []string) *Analyzer {
	if len(patterns) == 0 {
		patterns = DefaultPatterns()
	}
	return &Analyzer{patterns: patterns}
}

// Patterns returns the configured pattern set.
func (a *Analyzer) Patterns() []string {
	return a.patterns
}

// Analyze scans lines and returns one LogPatternMatch per pattern with at
// least one hit. SampleMessage is the first matching line in input order.
// Empty and invalid-UTF8 lines are skipped; a bad line never fails the
// batch. A single line can count toward several patterns.
func (a *Analyzer) Analyze(lines []string, logGroup string) []models.LogPatternMatch {
	counts := make(map[string]int, len(a.patterns))
	samples := make(map[string]string, len(a.patterns))

	for _, line := range lines {
		if line == "" || !utf8.ValidString(line) {
			continue
		}
		for _, p := range a.patterns {
			if !strings.Contains(line, p) {
				continue
			}
			counts[p]++
			if _, ok := samples[p]; !ok {
				samples[p] = line
			}
		}
	}

	// Preserve configured pattern order in the output.
	var matches []models.LogPatternMatch
	for _, p := range a.patterns {
		if counts[p] == 0 {
			continue
		}
		matches = append(matches, models.LogPatternMatch{
			Pattern:       p,
			LogGroup:      logGroup,
			Count:         counts[p],
			SampleMessage: samples[p],
		})
	}
	return matches
}

// TotalCount sums the match counts of a result set.
func TotalCount(matches []models.LogPatternMatch) int {
	var total int
	for _, m := range matches {
		total += m.Count
	}
	return total
}
