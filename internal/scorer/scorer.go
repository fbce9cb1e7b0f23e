// Package scorer computes anomaly scores for metric samples against their
// rolling baselines. Scoring is a pure function of the sample, the baseline,
// and the scorer configuration.
package scorer

import (
	"errors"
	"fmt"
	"math"

	"github.com/driftwatch/driftwatch/internal/baseline"
	"github.com/driftwatch/driftwatch/internal/models"
)

// ErrInvalidBaseline is returned when Score is called with a baseline that
// does not satisfy the scorer's contract (nil or fewer than 2 values). This
// indicates a caller bug; the affected key is logged and skipped upstream.
var ErrInvalidBaseline = errors.New("invalid baseline")

// zSentinel stands in for the z-score when stddev is 0 but the sample
// deviates from the mean: infinite surprise, clamped to something finite.
const zSentinel = 1e6

// Thresholds maps the normalized anomaly value to a severity.
type Thresholds struct {
	Medium   float64 `yaml:"medium"`
	High     float64 `yaml:"high"`
	Critical float64 `yaml:"critical"`
}

// DefaultThresholds returns the default severity cut points.
func DefaultThresholds() Thresholds {
	return Thresholds{Medium: 0.3, High: 0.6, Critical: 0.85}
}

// Options configures a Scorer.
type Options struct {
	// ZCap is the |z-score| treated as maximally anomalous (value 1.0).
	ZCap float64
	// TrendMargin is the relative difference between the recent and earliest
	// window thirds required to call a trend, as a fraction (0.10 = 10%).
	TrendMargin float64
	// Thresholds are the severity cut points on the normalized value.
	Thresholds Thresholds
}

// DefaultOptions returns the default scorer configuration.
func DefaultOptions() Options {
	return Options{
		ZCap:        5.0,
		TrendMargin: 0.10,
		Thresholds:  DefaultThresholds(),
	}
}

// Scorer scores samples. Safe for concurrent use; it holds no mutable state.
type Scorer struct {
	opts Options
}

// New creates a Scorer, substituting defaults for zero option fields.
func New(opts Options) *Scorer {
	def := DefaultOptions()
	if opts.ZCap <= 0 {
		opts.ZCap = def.ZCap
	}
	if opts.TrendMargin <= 0 {
		opts.TrendMargin = def.TrendMargin
	}
	if opts.Thresholds == (Thresholds{}) {
		opts.Thresholds = def.Thresholds
	}
	return &Scorer{opts: opts}
}

// Score computes the anomaly score for sample against b.
func (s *Scorer) Score(sample models.Sample, b *baseline.Baseline) (models.AnomalyScore, error) {
	if b == nil || len(b.Window) < 2 {
		return models.AnomalyScore{}, fmt.Errorf("score %s: %w", sample.Key, ErrInvalidBaseline)
	}

	z := zScore(sample.Value, b.Mean, b.StdDev)

	value := math.Abs(z) / s.opts.ZCap
	if value > 1 {
		value = 1
	}

	return models.AnomalyScore{
		Key:            sample.Key,
		Value:          value,
		ZScore:         z,
		PercentileRank: b.PercentileRank(sample.Value),
		Trend:          trend(b.Window, s.opts.TrendMargin),
		Severity:       s.severity(value),
		SampleValue:    sample.Value,
		BaselineMean:   b.Mean,
	}, nil
}

// zScore returns (v-mean)/stddev. A zero stddev yields 0 when v equals the
// mean and a signed sentinel otherwise, so deviation is still flagged
// without dividing by zero.
func zScore(v, mean, sd float64) float64 {
	if sd == 0 {
		switch {
		case v == mean:
			return 0
		case v > mean:
			return zSentinel
		default:
			return -zSentinel
		}
	}
	return (v - mean) / sd
}

// trend compares the mean of the most recent third of the window to the mean
// of the earliest third. A relative difference beyond margin calls the trend.
func trend(window []float64, margin float64) models.Trend {
	third := len(window) / 3
	if third == 0 {
		return models.TrendStable
	}

	earliest := window[:third]
	recent := window[len(window)-third:]
	em := 0.0
	for _, v := range earliest {
		em += v
	}
	em /= float64(third)
	rm := 0.0
	for _, v := range recent {
		rm += v
	}
	rm /= float64(third)

	// Relative to the earliest mean; a tiny floor avoids dividing by zero
	// on all-zero windows.
	base := math.Abs(em)
	if base < 1e-9 {
		base = 1e-9
	}
	diff := (rm - em) / base
	switch {
	case diff > margin:
		return models.TrendIncreasing
	case diff < -margin:
		return models.TrendDecreasing
	default:
		return models.TrendStable
	}
}

// severity maps the normalized value to a severity using the configured
// cut points.
func (s *Scorer) severity(value float64) models.Severity {
	t := s.opts.Thresholds
	switch {
	case value < t.Medium:
		return models.SeverityLow
	case value < t.High:
		return models.SeverityMedium
	case value < t.Critical:
		return models.SeverityHigh
	default:
		return models.SeverityCritical
	}
}
