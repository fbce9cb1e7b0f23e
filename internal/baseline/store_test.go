package baseline

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/driftwatch/driftwatch/internal/models"
)

var testKey = models.MetricKey{
	Namespace:  "AWS/Lambda",
	MetricName: "Duration",
	Statistic:  models.StatisticAverage,
}

func record(s *Store, key models.MetricKey, values ...float64) {
	now := time.Now()
	for i, v := range values {
		s.Record(models.Sample{Key: key, Timestamp: now.Add(time.Duration(i) * time.Minute), Value: v})
	}
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestBaselineNotEnoughData(t *testing.T) {
	s := NewStore(10)

	if _, err := s.Baseline(testKey); !errors.Is(err, ErrNotEnoughData) {
		t.Fatalf("empty store: want ErrNotEnoughData, got %v", err)
	}

	record(s, testKey, 42)
	if _, err := s.Baseline(testKey); !errors.Is(err, ErrNotEnoughData) {
		t.Fatalf("single sample: want ErrNotEnoughData, got %v", err)
	}

	record(s, testKey, 43)
	if _, err := s.Baseline(testKey); err != nil {
		t.Fatalf("two samples: unexpected error %v", err)
	}
}

func TestBaselineStats(t *testing.T) {
	s := NewStore(10)
	record(s, testKey, 10, 10, 10, 10, 50)

	b, err := s.Baseline(testKey)
	if err != nil {
		t.Fatalf("Baseline: %v", err)
	}

	if !almostEqual(b.Mean, 18) {
		t.Errorf("mean = %v, want 18", b.Mean)
	}
	// Unbiased estimator: sqrt(1280/4).
	if want := math.Sqrt(320); !almostEqual(b.StdDev, want) {
		t.Errorf("stddev = %v, want %v", b.StdDev, want)
	}
	if !almostEqual(b.Percentiles.P50, 10) {
		t.Errorf("p50 = %v, want 10", b.Percentiles.P50)
	}
	if b.Percentiles.P99 <= b.Percentiles.P90 {
		t.Errorf("p99 (%v) should exceed p90 (%v) on this window", b.Percentiles.P99, b.Percentiles.P90)
	}
}

func TestBaselineStdDevZeroForConstantWindow(t *testing.T) {
	s := NewStore(10)
	record(s, testKey, 7, 7, 7)

	b, err := s.Baseline(testKey)
	if err != nil {
		t.Fatalf("Baseline: %v", err)
	}
	if b.StdDev != 0 {
		t.Errorf("stddev = %v, want 0", b.StdDev)
	}
}

func TestWindowFIFOEviction(t *testing.T) {
	s := NewStore(5)
	record(s, testKey, 1, 2, 3, 4, 5)

	if got := s.Size(testKey); got != 5 {
		t.Fatalf("size = %d, want 5", got)
	}

	// At capacity: exactly the oldest entry is evicted.
	record(s, testKey, 6)
	window := s.Window(testKey)
	if len(window) != 5 {
		t.Fatalf("window size %d after eviction, want 5", len(window))
	}
	want := []float64{2, 3, 4, 5, 6}
	for i, v := range want {
		if window[i] != v {
			t.Errorf("window[%d] = %v, want %v", i, window[i], v)
		}
	}
}

func TestPercentileRankRange(t *testing.T) {
	s := NewStore(10)
	record(s, testKey, 3, 1, 4, 1, 5, 9, 2, 6)

	b, err := s.Baseline(testKey)
	if err != nil {
		t.Fatalf("Baseline: %v", err)
	}

	for _, v := range []float64{-100, 0, 1, 4.5, 9, 100} {
		r := b.PercentileRank(v)
		if r < 0 || r > 100 {
			t.Errorf("PercentileRank(%v) = %v, out of [0,100]", v, r)
		}
	}
	if r := b.PercentileRank(100); r != 100 {
		t.Errorf("rank above max = %v, want 100", r)
	}
	if r := b.PercentileRank(-100); r != 0 {
		t.Errorf("rank below min = %v, want 0", r)
	}
}

func TestLoadWindowTrimsToCapacity(t *testing.T) {
	s := NewStore(3)
	s.LoadWindow(testKey, []float64{1, 2, 3, 4, 5})

	window := s.Window(testKey)
	want := []float64{3, 4, 5}
	if len(window) != len(want) {
		t.Fatalf("window size %d, want %d", len(window), len(want))
	}
	for i, v := range want {
		if window[i] != v {
			t.Errorf("window[%d] = %v, want %v", i, window[i], v)
		}
	}
}

func TestKeysAreIndependent(t *testing.T) {
	other := models.MetricKey{Namespace: "AWS/Lambda", MetricName: "Errors", Statistic: models.StatisticSum}
	s := NewStore(5)
	record(s, testKey, 1, 2, 3)
	record(s, other, 100)

	if got := s.Size(testKey); got != 3 {
		t.Errorf("size(%s) = %d, want 3", testKey, got)
	}
	if got := s.Size(other); got != 1 {
		t.Errorf("size(%s) = %d, want 1", other, got)
	}
	if got := len(s.Keys()); got != 2 {
		t.Errorf("Keys() len = %d, want 2", got)
	}
}
