// Package engine decides when anomaly signals become alerts. It keeps one
// lifecycle state machine per (subject, source) pair: no alert -> new ->
// resolved. While an event is active the condition is suppressed, so a
// sustained anomaly produces exactly one alert until it resolves.
package engine

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/driftwatch/driftwatch/internal/logscan"
	"github.com/driftwatch/driftwatch/internal/models"
)

// Options configures the decision engine.
type Options struct {
	// MinMetricSeverity is the lowest anomaly severity that opens a metric
	// alert. Default: medium.
	MinMetricSeverity models.Severity
	// LogCountThreshold is the total pattern match count within one
	// evaluation window that opens a log alert. Default: 10.
	LogCountThreshold int
}

// DefaultOptions returns the default engine options.
func DefaultOptions() Options {
	return Options{
		MinMetricSeverity: models.SeverityMedium,
		LogCountThreshold: 10,
	}
}

// Stats tracks engine counters using atomics for lock-free reads.
type Stats struct {
	Evaluated  atomic.Int64
	Opened     atomic.Int64
	Resolved   atomic.Int64
	Suppressed atomic.Int64
}

type stateKey struct {
	subject string
	source  models.AlertSource
}

// Engine is the alert decision engine. Safe for concurrent use.
type Engine struct {
	mu     sync.Mutex
	active map[stateKey]*models.AlertEvent
	opts   Options
	stats  Stats
}

// New creates an Engine, substituting defaults for zero option fields.
func New(opts Options) *Engine {
	def := DefaultOptions()
	if opts.MinMetricSeverity == "" {
		opts.MinMetricSeverity = def.MinMetricSeverity
	}
	if opts.LogCountThreshold <= 0 {
		opts.LogCountThreshold = def.LogCountThreshold
	}
	return &Engine{
		active: make(map[stateKey]*models.AlertEvent),
		opts:   opts,
	}
}

// EvaluateMetric applies the severity threshold to a metric anomaly score.
// It returns an event to dispatch (new or resolved) or nil when nothing
// changes: either the condition is quiet, or it persists and the existing
// active event suppresses a duplicate.
func (e *Engine) EvaluateMetric(score models.AnomalyScore, windowStart time.Time) *models.AlertEvent {
	triggered := score.Severity.AtLeast(e.opts.MinMetricSeverity)
	summary := fmt.Sprintf("metric %s anomalous: score %.2f (z=%.2f, p%.0f, trend %s, value %.4g vs mean %.4g)",
		score.Key, score.Value, score.ZScore, score.PercentileRank, score.Trend,
		score.SampleValue, score.BaselineMean)

	return e.transition(score.Key.String(), models.AlertSourceMetric, triggered, score.Severity, summary, windowStart)
}

// EvaluateLogs applies the count threshold to a log group's aggregated
// pattern matches. The optional summary is appended to the event summary
// when present.
func (e *Engine) EvaluateLogs(logGroup string, matches []models.LogPatternMatch, aiSummary string, windowStart time.Time) *models.AlertEvent {
	total := logscan.TotalCount(matches)
	triggered := total >= e.opts.LogCountThreshold

	summary := fmt.Sprintf("log group %s: %d error pattern matches across %d patterns (threshold %d)",
		logGroup, total, len(matches), e.opts.LogCountThreshold)
	if sample := firstSample(matches); sample != "" {
		summary += fmt.Sprintf("; first: %s", sample)
	}
	if aiSummary != "" {
		summary += "; analysis: " + aiSummary
	}

	return e.transition(logGroup, models.AlertSourceLog, triggered, e.logSeverity(total), summary, windowStart)
}

// transition runs one step of the (subject, source) state machine.
func (e *Engine) transition(subject string, source models.AlertSource, triggered bool, severity models.Severity, summary string, windowStart time.Time) *models.AlertEvent {
	e.stats.Evaluated.Add(1)

	sk := stateKey{subject: subject, source: source}

	e.mu.Lock()
	defer e.mu.Unlock()

	current, isActive := e.active[sk]

	switch {
	case triggered && !isActive:
		event := &models.AlertEvent{
			ID:        models.NewEventID(subject, source, windowStart),
			Subject:   subject,
			Source:    source,
			Severity:  severity,
			Summary:   summary,
			State:     models.AlertStateNew,
			CreatedAt: time.Now().UTC(),
		}
		e.active[sk] = event
		e.stats.Opened.Add(1)
		return event

	case triggered && isActive:
		e.stats.Suppressed.Add(1)
		return nil

	case !triggered && isActive:
		delete(e.active, sk)
		resolved := *current
		resolved.State = models.AlertStateResolved
		resolved.ResolvedAt = time.Now().UTC()
		resolved.Summary = fmt.Sprintf("resolved: %s", summary)
		e.stats.Resolved.Add(1)
		return &resolved

	default:
		return nil
	}
}

// logSeverity maps a total match count to a severity, scaled off the
// configured threshold.
func (e *Engine) logSeverity(total int) models.Severity {
	t := e.opts.LogCountThreshold
	switch {
	case total >= 10*t:
		return models.SeverityCritical
	case total >= 3*t:
		return models.SeverityHigh
	default:
		return models.SeverityMedium
	}
}

func firstSample(matches []models.LogPatternMatch) string {
	for _, m := range matches {
		if m.SampleMessage != "" {
			return m.SampleMessage
		}
	}
	return ""
}

// Active returns a copy of all currently active (state == new) events.
func (e *Engine) Active() []models.AlertEvent {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]models.AlertEvent, 0, len(e.active))
	for _, ev := range e.active {
		out = append(out, *ev)
	}
	return out
}

// Restore re-enters previously active events, typically loaded from storage
// at the start of an invocation. Resolved events are ignored.
func (e *Engine) Restore(events []models.AlertEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, ev := range events {
		if ev.State != models.AlertStateNew {
			continue
		}
		ev := ev
		e.active[stateKey{subject: ev.Subject, source: ev.Source}] = &ev
	}
}

// StatsSnapshot is a point-in-time copy of engine counters.
type StatsSnapshot struct {
	Evaluated  int64 `json:"evaluated"`
	Opened     int64 `json:"opened"`
	Resolved   int64 `json:"resolved"`
	Suppressed int64 `json:"suppressed"`
}

// Stats returns a snapshot of engine counters.
func (e *Engine) Stats() StatsSnapshot {
	return StatsSnapshot{
		Evaluated:  e.stats.Evaluated.Load(),
		Opened:     e.stats.Opened.Load(),
		Resolved:   e.stats.Resolved.Load(),
		Suppressed: e.stats.Suppressed.Load(),
	}
}
