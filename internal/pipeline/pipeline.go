// Package pipeline runs evaluation cycles: pull metric samples and log
// lines, score them, feed the decision engine, and flush alerts and derived
// metrics as each subject completes. Keys are independent, so they are
// evaluated in parallel with no shared mutable state beyond the baseline
// store's per-key windows.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/driftwatch/driftwatch/internal/baseline"
	"github.com/driftwatch/driftwatch/internal/config"
	"github.com/driftwatch/driftwatch/internal/engine"
	"github.com/driftwatch/driftwatch/internal/logscan"
	"github.com/driftwatch/driftwatch/internal/metrics"
	"github.com/driftwatch/driftwatch/internal/models"
	"github.com/driftwatch/driftwatch/internal/notifier"
	"github.com/driftwatch/driftwatch/internal/scorer"
	"github.com/driftwatch/driftwatch/internal/source"
	"github.com/driftwatch/driftwatch/internal/storage"
	"github.com/driftwatch/driftwatch/internal/summarizer"
)

// ErrNoData is returned when a cycle could not fetch anything at all.
// The external scheduler owns the retry cadence.
var ErrNoData = errors.New("no samples or log lines could be fetched")

// Deps are the pipeline's collaborators.
type Deps struct {
	Store      *baseline.Store
	Scorer     *scorer.Scorer
	Analyzer   *logscan.Analyzer
	Engine     *engine.Engine
	Metrics    source.MetricSource
	Logs       source.LogSource
	Publisher  source.ScorePublisher
	Dispatcher *notifier.Dispatcher
	Summarizer summarizer.Summarizer
	// Storage is optional; nil disables persistence.
	Storage *storage.SQLiteStorage
}

// CycleResult summarizes one evaluation cycle.
type CycleResult struct {
	Started  time.Time `json:"started"`
	Duration string    `json:"duration"`

	KeysEvaluated int `json:"keys_evaluated"`
	KeysSkipped   int `json:"keys_skipped"`
	GroupsScanned int `json:"groups_scanned"`
	LinesScanned  int `json:"lines_scanned"`

	Scores []models.AnomalyScore `json:"scores"`
	Events []models.AlertEvent   `json:"events"`
	Errors []string              `json:"errors,omitempty"`
}

// Runner executes evaluation cycles.
type Runner struct {
	cfg  *config.Config
	deps Deps

	// now is stubbed in tests.
	now func() time.Time
}

// NewRunner creates a Runner. Deps.Store, Scorer, Analyzer and Engine are
// required; source and sink collaborators may be nil in offline use.
func NewRunner(cfg *config.Config, deps Deps) *Runner {
	if deps.Summarizer == nil {
		deps.Summarizer = summarizer.Noop{}
	}
	return &Runner{cfg: cfg, deps: deps, now: time.Now}
}

// RunCycle executes one evaluation cycle. Each key's publish and dispatch
// happen as that key finishes, so cancellation mid-cycle keeps the results
// already flushed. Per-key errors are contained; RunCycle only fails when
// nothing at all could be fetched or the configuration is invalid.
func (r *Runner) RunCycle(ctx context.Context) (*CycleResult, error) {
	if err := r.cfg.Validate(); err != nil {
		metrics.CyclesTotal.WithLabelValues("config_error").Inc()
		return nil, fmt.Errorf("cycle config: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, r.cfg.Cycle.Timeout)
	defer cancel()

	started := r.now()
	// The evaluation window start pins deterministic event ids: the same
	// still-anomalous condition re-evaluated within one window keeps one id.
	windowStart := started.UTC().Truncate(r.cfg.Cycle.Interval)

	result := &CycleResult{Started: started}
	var mu sync.Mutex
	var fetched int

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Cycle.Parallelism)

	for _, key := range r.cfg.MetricKeys() {
		key := key
		g.Go(func() error {
			outcome := r.evaluateKey(gctx, key, windowStart)
			mu.Lock()
			defer mu.Unlock()
			if outcome.fetched {
				fetched++
			}
			if outcome.err != "" {
				result.Errors = append(result.Errors, outcome.err)
			}
			if outcome.skipped {
				result.KeysSkipped++
				return nil
			}
			result.KeysEvaluated++
			result.Scores = append(result.Scores, outcome.score)
			if outcome.event != nil {
				result.Events = append(result.Events, *outcome.event)
			}
			return nil
		})
	}

	for _, group := range r.cfg.LogGroups {
		group := group
		g.Go(func() error {
			outcome := r.evaluateLogGroup(gctx, group, windowStart)
			mu.Lock()
			defer mu.Unlock()
			if outcome.fetched {
				fetched++
			}
			if outcome.err != "" {
				result.Errors = append(result.Errors, outcome.err)
				return nil
			}
			result.GroupsScanned++
			result.LinesScanned += outcome.lines
			if outcome.event != nil {
				result.Events = append(result.Events, *outcome.event)
			}
			return nil
		})
	}

	// Worker funcs never return errors; they contain them. Wait only
	// returns early on context cancellation.
	_ = g.Wait()

	result.Duration = r.now().Sub(started).String()
	metrics.CycleDuration.Observe(r.now().Sub(started).Seconds())

	total := len(r.cfg.MetricKeys()) + len(r.cfg.LogGroups)
	if total > 0 && fetched == 0 {
		metrics.CyclesTotal.WithLabelValues("failed").Inc()
		return result, fmt.Errorf("%w: %d subjects, errors: %v", ErrNoData, total, result.Errors)
	}

	metrics.CyclesTotal.WithLabelValues("ok").Inc()
	return result, nil
}

// keyOutcome is the result of evaluating one metric key.
type keyOutcome struct {
	fetched bool
	skipped bool
	score   models.AnomalyScore
	event   *models.AlertEvent
	err     string
}

// evaluateKey records the key's fresh samples, scores the newest one, runs
// the decision engine, and flushes score and event for this key.
func (r *Runner) evaluateKey(ctx context.Context, key models.MetricKey, windowStart time.Time) keyOutcome {
	end := r.now().UTC()
	start := end.Add(-r.cfg.Baseline.Lookback)

	samples, err := r.deps.Metrics.FetchSamples(ctx, key, start, end)
	if err != nil {
		log.Printf("skipping %s: fetch samples: %v", key, err)
		metrics.KeysSkipped.WithLabelValues("fetch_error").Inc()
		return keyOutcome{skipped: true, err: fmt.Sprintf("%s: %v", key, err)}
	}
	if len(samples) == 0 {
		metrics.KeysSkipped.WithLabelValues("no_samples").Inc()
		return keyOutcome{fetched: true, skipped: true}
	}

	// This goroutine is the single writer for this key's window.
	for _, s := range samples {
		r.deps.Store.Record(s)
	}
	metrics.SamplesRecorded.Add(float64(len(samples)))

	latest := samples[len(samples)-1]

	b, err := r.deps.Store.Baseline(key)
	if err != nil {
		// Baseline immature: skip scoring this cycle, not an error.
		log.Printf("skipping %s: %v", key, err)
		metrics.KeysSkipped.WithLabelValues("not_enough_data").Inc()
		r.persistWindow(ctx, key)
		return keyOutcome{fetched: true, skipped: true}
	}

	score, err := r.deps.Scorer.Score(latest, b)
	if err != nil {
		// Contract violation; local defect, key skipped.
		log.Printf("skipping %s: %v", key, err)
		metrics.KeysSkipped.WithLabelValues("invalid_baseline").Inc()
		r.persistWindow(ctx, key)
		return keyOutcome{fetched: true, skipped: true, err: fmt.Sprintf("%s: %v", key, err)}
	}
	metrics.KeysEvaluated.Inc()

	if r.deps.Publisher != nil {
		if err := r.deps.Publisher.PublishScore(ctx, score); err != nil {
			log.Printf("publish score %s: %v", key, err)
		}
	}

	event := r.deps.Engine.EvaluateMetric(score, windowStart)
	r.flushEvent(ctx, event)
	r.persistWindow(ctx, key)

	return keyOutcome{fetched: true, score: score, event: event}
}

// logOutcome is the result of evaluating one log group.
type logOutcome struct {
	fetched bool
	lines   int
	event   *models.AlertEvent
	err     string
}

// evaluateLogGroup scans a log group's recent lines, aggregates pattern
// matches, optionally summarizes them, and runs the decision engine.
func (r *Runner) evaluateLogGroup(ctx context.Context, group string, windowStart time.Time) logOutcome {
	end := r.now().UTC()
	start := end.Add(-r.cfg.Logs.Lookback)

	lines, err := r.deps.Logs.FetchLines(ctx, group, start, end)
	if err != nil {
		log.Printf("skipping log group %s: fetch lines: %v", group, err)
		return logOutcome{err: fmt.Sprintf("%s: %v", group, err)}
	}

	matches := r.deps.Analyzer.Analyze(lines, group)
	metrics.LogLinesScanned.Add(float64(len(lines)))
	for _, m := range matches {
		metrics.LogPatternHits.WithLabelValues(m.Pattern).Add(float64(m.Count))
	}

	total := logscan.TotalCount(matches)
	if r.deps.Publisher != nil {
		if err := r.deps.Publisher.PublishLogCounts(ctx, group, total); err != nil {
			log.Printf("publish log counts %s: %v", group, err)
		}
	}

	// The summary is best effort; its absence never blocks alerting.
	var summary string
	if r.cfg.Summary.Enabled && total >= r.cfg.Logs.CountThreshold {
		summary, err = r.deps.Summarizer.Summarize(ctx, matches)
		if err != nil {
			log.Printf("summarize %s: %v", group, err)
			summary = ""
		}
	}

	event := r.deps.Engine.EvaluateLogs(group, matches, summary, windowStart)
	r.flushEvent(ctx, event)

	return logOutcome{fetched: true, lines: len(lines), event: event}
}

// flushEvent persists and dispatches a state transition. Dispatch failures
// are logged and dropped; the engine's state is already committed.
func (r *Runner) flushEvent(ctx context.Context, event *models.AlertEvent) {
	if event == nil {
		return
	}

	switch event.State {
	case models.AlertStateNew:
		metrics.AlertsOpened.WithLabelValues(string(event.Source)).Inc()
	case models.AlertStateResolved:
		metrics.AlertsResolved.WithLabelValues(string(event.Source)).Inc()
	}

	if r.deps.Storage != nil {
		if err := r.deps.Storage.SaveEvent(ctx, event); err != nil {
			log.Printf("persist event %s: %v", event.ID, err)
		}
	}

	if r.deps.Dispatcher != nil && r.deps.Dispatcher.Len() > 0 {
		if err := r.deps.Dispatcher.Dispatch(ctx, event); err != nil {
			metrics.DispatchErrors.Inc()
			log.Printf("dispatch event %s: %v", event.ID, err)
		}
	}
}

// persistWindow saves one key's window, keeping persistence incremental so
// a cancelled cycle retains the keys already processed.
func (r *Runner) persistWindow(ctx context.Context, key models.MetricKey) {
	if r.deps.Storage == nil {
		return
	}
	if err := r.deps.Storage.SaveWindow(ctx, key, r.deps.Store.Window(key)); err != nil {
		log.Printf("persist window %s: %v", key, err)
	}
}

// RestoreState loads persisted baseline windows and active alert events.
// Called once at startup before the first cycle.
func (r *Runner) RestoreState(ctx context.Context) error {
	if r.deps.Storage == nil {
		return nil
	}

	windows, err := r.deps.Storage.LoadWindows(ctx)
	if err != nil {
		return fmt.Errorf("restore windows: %w", err)
	}
	for key, values := range windows {
		r.deps.Store.LoadWindow(key, values)
	}

	active, err := r.deps.Storage.ActiveEvents(ctx)
	if err != nil {
		return fmt.Errorf("restore events: %w", err)
	}
	r.deps.Engine.Restore(active)

	if pruned, err := r.deps.Storage.PruneEvents(ctx, r.now().Add(-r.cfg.Storage.Retention)); err != nil {
		log.Printf("prune events: %v", err)
	} else if pruned > 0 {
		log.Printf("pruned %d resolved alerts past retention", pruned)
	}

	log.Printf("restored %d baseline windows, %d active alerts", len(windows), len(active))
	return nil
}
