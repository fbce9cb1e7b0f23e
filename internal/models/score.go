package models

// Severity represents alert severity level.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// ParseSeverity converts a string to Severity.
func ParseSeverity(s string) Severity {
	switch s {
	case "low", "LOW":
		return SeverityLow
	case "medium", "MEDIUM":
		return SeverityMedium
	case "high", "HIGH":
		return SeverityHigh
	case "critical", "CRITICAL":
		return SeverityCritical
	default:
		return SeverityMedium
	}
}

// Rank returns the ordinal position of the severity, Low being lowest.
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 0
	case SeverityMedium:
		return 1
	case SeverityHigh:
		return 2
	case SeverityCritical:
		return 3
	default:
		return -1
	}
}

// AtLeast reports whether s is at least as severe as other.
func (s Severity) AtLeast(other Severity) bool {
	return s.Rank() >= other.Rank()
}

// Trend describes the direction of recent values within a baseline window.
type Trend string

const (
	TrendIncreasing Trend = "increasing"
	TrendDecreasing Trend = "decreasing"
	TrendStable     Trend = "stable"
)

// AnomalyScore is the scorer's verdict for one sample against its baseline.
// It is recomputed every evaluation cycle and never persisted.
type AnomalyScore struct {
	Key MetricKey `json:"key"`

	// Value is the normalized anomaly score in [0,1].
	Value float64 `json:"value"`
	// ZScore is the signed deviation of the sample from the baseline mean
	// in units of stddev.
	ZScore float64 `json:"z_score"`
	// PercentileRank is the fraction of window values <= the sample value,
	// scaled to 0-100.
	PercentileRank float64 `json:"percentile_rank"`

	Trend    Trend    `json:"trend"`
	Severity Severity `json:"severity"`

	// SampleValue and BaselineMean carry context for alert summaries.
	SampleValue  float64 `json:"sample_value"`
	BaselineMean float64 `json:"baseline_mean"`
}
