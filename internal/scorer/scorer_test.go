package scorer

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/driftwatch/driftwatch/internal/baseline"
	"github.com/driftwatch/driftwatch/internal/models"
)

var testKey = models.MetricKey{
	Namespace:  "AWS/Lambda",
	MetricName: "Duration",
	Statistic:  models.StatisticAverage,
}

func buildBaseline(t *testing.T, capacity int, values ...float64) *baseline.Baseline {
	t.Helper()
	s := baseline.NewStore(capacity)
	now := time.Now()
	for i, v := range values {
		s.Record(models.Sample{Key: testKey, Timestamp: now.Add(time.Duration(i) * time.Minute), Value: v})
	}
	b, err := s.Baseline(testKey)
	if err != nil {
		t.Fatalf("Baseline: %v", err)
	}
	return b
}

func sample(v float64) models.Sample {
	return models.Sample{Key: testKey, Timestamp: time.Now(), Value: v}
}

func TestScoreInvalidBaseline(t *testing.T) {
	s := New(DefaultOptions())

	if _, err := s.Score(sample(1), nil); !errors.Is(err, ErrInvalidBaseline) {
		t.Errorf("nil baseline: want ErrInvalidBaseline, got %v", err)
	}

	short := &baseline.Baseline{Key: testKey, Window: []float64{1}}
	if _, err := s.Score(sample(1), short); !errors.Is(err, ErrInvalidBaseline) {
		t.Errorf("short window: want ErrInvalidBaseline, got %v", err)
	}
}

func TestScoreSampleAtMean(t *testing.T) {
	s := New(DefaultOptions())
	b := buildBaseline(t, 10, 4, 6, 4, 6)

	score, err := s.Score(sample(5), b)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if score.ZScore != 0 {
		t.Errorf("z = %v, want 0 for sample at mean", score.ZScore)
	}
	if score.Severity != models.SeverityLow {
		t.Errorf("severity = %v, want low", score.Severity)
	}
	if score.Value != 0 {
		t.Errorf("value = %v, want 0", score.Value)
	}
}

func TestScoreZeroStdDevSentinel(t *testing.T) {
	s := New(DefaultOptions())
	b := buildBaseline(t, 10, 7, 7, 7)

	tests := []struct {
		name  string
		value float64
		wantZ float64
	}{
		{"at mean", 7, 0},
		{"above mean", 8, zSentinel},
		{"below mean", 6, -zSentinel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, err := s.Score(sample(tt.value), b)
			if err != nil {
				t.Fatalf("Score: %v", err)
			}
			if score.ZScore != tt.wantZ {
				t.Errorf("z = %v, want %v", score.ZScore, tt.wantZ)
			}
		})
	}

	// The sentinel saturates the normalized value.
	score, _ := s.Score(sample(100), b)
	if score.Value != 1 {
		t.Errorf("value = %v, want 1 for sentinel z", score.Value)
	}
	if score.Severity != models.SeverityCritical {
		t.Errorf("severity = %v, want critical", score.Severity)
	}
}

func TestSeverityThresholds(t *testing.T) {
	s := New(DefaultOptions())

	tests := []struct {
		value float64
		want  models.Severity
	}{
		{0.0, models.SeverityLow},
		{0.29, models.SeverityLow},
		{0.3, models.SeverityMedium},
		{0.59, models.SeverityMedium},
		{0.6, models.SeverityHigh},
		{0.84, models.SeverityHigh},
		{0.85, models.SeverityCritical},
		{1.0, models.SeverityCritical},
	}
	for _, tt := range tests {
		if got := s.severity(tt.value); got != tt.want {
			t.Errorf("severity(%v) = %v, want %v", tt.value, got, tt.want)
		}
	}
}

func TestTrendDetection(t *testing.T) {
	tests := []struct {
		name   string
		window []float64
		want   models.Trend
	}{
		{"increasing", []float64{10, 10, 10, 11, 12, 13, 20, 21, 22}, models.TrendIncreasing},
		{"decreasing", []float64{20, 21, 22, 13, 12, 11, 10, 10, 10}, models.TrendDecreasing},
		{"stable", []float64{10, 10, 10, 10, 10, 10, 10, 10, 10}, models.TrendStable},
		{"within margin", []float64{100, 100, 100, 100, 100, 100, 105, 105, 105}, models.TrendStable},
		{"too short", []float64{1, 2}, models.TrendStable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := trend(tt.window, 0.10); got != tt.want {
				t.Errorf("trend = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestScoreSpikeScenario(t *testing.T) {
	// Window [10,10,10,10,50]: mean 18, stddev sqrt(320) ~= 17.89,
	// z for 50 ~= 1.79, value ~= 0.36 -> medium with default thresholds.
	s := New(DefaultOptions())
	b := buildBaseline(t, 5, 10, 10, 10, 10, 50)

	score, err := s.Score(sample(50), b)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}

	wantZ := (50.0 - 18.0) / math.Sqrt(320)
	if math.Abs(score.ZScore-wantZ) > 1e-9 {
		t.Errorf("z = %v, want %v", score.ZScore, wantZ)
	}
	if score.Severity != models.SeverityMedium {
		t.Errorf("severity = %v, want medium", score.Severity)
	}
	if score.PercentileRank != 100 {
		t.Errorf("percentile rank = %v, want 100", score.PercentileRank)
	}
	if score.Value < 0 || score.Value > 1 {
		t.Errorf("value = %v, out of [0,1]", score.Value)
	}
}

func TestScoreIsPure(t *testing.T) {
	s := New(DefaultOptions())
	b := buildBaseline(t, 10, 1, 2, 3, 4, 5)

	first, err := s.Score(sample(9), b)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	second, err := s.Score(sample(9), b)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if first != second {
		t.Errorf("scoring is not deterministic: %+v vs %+v", first, second)
	}
}
