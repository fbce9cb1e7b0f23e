// Package models defines domain models for driftwatch.
package models

import (
	"fmt"
	"strings"
	"time"
)

// Statistic identifies which statistic of a metric is being watched.
type Statistic string

const (
	StatisticAverage     Statistic = "Average"
	StatisticSum         Statistic = "Sum"
	StatisticMaximum     Statistic = "Maximum"
	StatisticMinimum     Statistic = "Minimum"
	StatisticSampleCount Statistic = "SampleCount"
)

// ParseStatistic converts a string to Statistic.
func ParseStatistic(s string) (Statistic, error) {
	switch strings.ToLower(s) {
	case "average", "avg":
		return StatisticAverage, nil
	case "sum":
		return StatisticSum, nil
	case "maximum", "max":
		return StatisticMaximum, nil
	case "minimum", "min":
		return StatisticMinimum, nil
	case "samplecount", "count":
		return StatisticSampleCount, nil
	default:
		return "", fmt.Errorf("unknown statistic %q", s)
	}
}

// MetricKey identifies one watched metric series. It is immutable and used
// as the baseline lookup key.
type MetricKey struct {
	Namespace  string    `json:"namespace" yaml:"namespace"`
	MetricName string    `json:"metric_name" yaml:"metric_name"`
	Statistic  Statistic `json:"statistic" yaml:"statistic"`
}

// String returns the canonical "namespace/metric:statistic" form.
func (k MetricKey) String() string {
	return fmt.Sprintf("%s/%s:%s", k.Namespace, k.MetricName, k.Statistic)
}

// ParseMetricKey parses the canonical "namespace/metric:statistic" form.
// The statistic defaults to Average when omitted.
func ParseMetricKey(s string) (MetricKey, error) {
	stat := StatisticAverage
	if i := strings.LastIndex(s, ":"); i >= 0 {
		parsed, err := ParseStatistic(s[i+1:])
		if err != nil {
			return MetricKey{}, fmt.Errorf("invalid metric key %q: %w", s, err)
		}
		stat = parsed
		s = s[:i]
	}
	i := strings.LastIndex(s, "/")
	if i <= 0 || i == len(s)-1 {
		return MetricKey{}, fmt.Errorf("invalid metric key %q: want namespace/metric[:statistic]", s)
	}
	return MetricKey{
		Namespace:  s[:i],
		MetricName: s[i+1:],
		Statistic:  stat,
	}, nil
}

// Validate checks that all key fields are populated.
func (k MetricKey) Validate() error {
	if k.Namespace == "" {
		return fmt.Errorf("metric key namespace is required")
	}
	if k.MetricName == "" {
		return fmt.Errorf("metric key metric_name is required")
	}
	switch k.Statistic {
	case StatisticAverage, StatisticSum, StatisticMaximum, StatisticMinimum, StatisticSampleCount:
	default:
		return fmt.Errorf("invalid statistic %q for metric key %s/%s", k.Statistic, k.Namespace, k.MetricName)
	}
	return nil
}

// Sample is one observed metric datapoint. Samples are consumed, never
// mutated.
type Sample struct {
	Key       MetricKey `json:"key"`
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}
