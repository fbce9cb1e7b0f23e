// Package baseline maintains rolling statistical baselines per metric key.
// Each key keeps a capacity-bounded FIFO window of the most recent sample
// values; statistics are recomputed from the full window on demand, which is
// numerically stable for the small windows this engine uses.
package baseline

import (
	"errors"
	"sync"

	"github.com/driftwatch/driftwatch/internal/models"
)

// ErrNotEnoughData is returned when a key has fewer than 2 samples.
// Callers treat it as "skip scoring this cycle", not a failure.
var ErrNotEnoughData = errors.New("not enough data for baseline")

// DefaultWindowSize is the default per-key window capacity in samples.
const DefaultWindowSize = 288 // 24h of 5-minute periods

// Percentiles holds the interpolated percentile summary of a window.
type Percentiles struct {
	P50 float64 `json:"p50"`
	P90 float64 `json:"p90"`
	P99 float64 `json:"p99"`
}

// Baseline is a point-in-time statistical summary of one key's window.
// The Window slice is a copy and safe to retain.
type Baseline struct {
	Key         models.MetricKey `json:"key"`
	Window      []float64        `json:"window"`
	Mean        float64          `json:"mean"`
	StdDev      float64          `json:"stddev"`
	Percentiles Percentiles      `json:"percentiles"`
}

// PercentileRank returns the fraction of window values <= v, scaled 0-100.
func (b *Baseline) PercentileRank(v float64) float64 {
	return percentileRank(b.Window, v)
}

// window is one key's bounded FIFO value sequence.
type window struct {
	mu       sync.Mutex
	values   []float64
	capacity int
}

// add appends a value, evicting the oldest when at capacity.
func (w *window) add(v float64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.values) >= w.capacity {
		// FIFO eviction, exactly one entry at a time.
		copy(w.values, w.values[1:])
		w.values = w.values[:len(w.values)-1]
	}
	w.values = append(w.values, v)
}

// snapshot returns a copy of the current values in arrival order.
func (w *window) snapshot() []float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]float64, len(w.values))
	copy(out, w.values)
	return out
}

// Store holds per-key windows. Distinct keys are independent and may be
// recorded and read concurrently; each key's window has its own lock.
type Store struct {
	mu       sync.RWMutex
	windows  map[models.MetricKey]*window
	capacity int
}

// NewStore creates a store with the given per-key window capacity.
// Capacity <= 0 selects DefaultWindowSize.
func NewStore(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultWindowSize
	}
	return &Store{
		windows:  make(map[models.MetricKey]*window),
		capacity: capacity,
	}
}

// Capacity returns the configured per-key window capacity.
func (s *Store) Capacity() int {
	return s.capacity
}

// Record appends a sample value to its key's window.
func (s *Store) Record(sample models.Sample) {
	s.getOrCreate(sample.Key).add(sample.Value)
}

func (s *Store) getOrCreate(key models.MetricKey) *window {
	s.mu.RLock()
	w, ok := s.windows[key]
	s.mu.RUnlock()
	if ok {
		return w
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if w, ok := s.windows[key]; ok {
		return w
	}
	w = &window{capacity: s.capacity, values: make([]float64, 0, s.capacity)}
	s.windows[key] = w
	return w
}

// Baseline computes the current baseline for key. Returns ErrNotEnoughData
// when fewer than 2 samples have been recorded.
func (s *Store) Baseline(key models.MetricKey) (*Baseline, error) {
	s.mu.RLock()
	w, ok := s.windows[key]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotEnoughData
	}

	values := w.snapshot()
	if len(values) < 2 {
		return nil, ErrNotEnoughData
	}

	m := mean(values)
	sorted := sortedCopy(values)
	return &Baseline{
		Key:    key,
		Window: values,
		Mean:   m,
		StdDev: stddev(values, m),
		Percentiles: Percentiles{
			P50: percentile(sorted, 50),
			P90: percentile(sorted, 90),
			P99: percentile(sorted, 99),
		},
	}, nil
}

// Size returns the number of values currently held for key.
func (s *Store) Size(key models.MetricKey) int {
	s.mu.RLock()
	w, ok := s.windows[key]
	s.mu.RUnlock()
	if !ok {
		return 0
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.values)
}

// Keys returns all keys that have at least one recorded value.
func (s *Store) Keys() []models.MetricKey {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]models.MetricKey, 0, len(s.windows))
	for k := range s.windows {
		keys = append(keys, k)
	}
	return keys
}

// Window returns a copy of the raw window values for key, oldest first.
// Used for persistence snapshots.
func (s *Store) Window(key models.MetricKey) []float64 {
	s.mu.RLock()
	w, ok := s.windows[key]
	s.mu.RUnlock()
	if !ok {
		return nil
	}
	return w.snapshot()
}

// LoadWindow replaces the window for key with the given values, oldest
// first, trimming from the front if values exceed capacity. Used to restore
// persisted state between evaluation cycles.
func (s *Store) LoadWindow(key models.MetricKey, values []float64) {
	w := s.getOrCreate(key)
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(values) > w.capacity {
		values = values[len(values)-w.capacity:]
	}
	w.values = append(w.values[:0], values...)
}
