package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/driftwatch/driftwatch/internal/models"
)

func openTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()
	s := NewSQLiteStorage(filepath.Join(t.TempDir(), "driftwatch.db"))
	if err := s.Open(); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

var storageKey = models.MetricKey{
	Namespace:  "AWS/Lambda",
	MetricName: "Duration",
	Statistic:  models.StatisticAverage,
}

func TestWindowRoundTrip(t *testing.T) {
	s := openTestStorage(t)
	ctx := context.Background()

	values := []float64{10, 10, 10, 10, 50}
	if err := s.SaveWindow(ctx, storageKey, values); err != nil {
		t.Fatalf("SaveWindow() error = %v", err)
	}

	other := storageKey
	other.MetricName = "Errors"
	other.Statistic = models.StatisticSum
	if err := s.SaveWindow(ctx, other, []float64{1, 2}); err != nil {
		t.Fatalf("SaveWindow() error = %v", err)
	}

	windows, err := s.LoadWindows(ctx)
	if err != nil {
		t.Fatalf("LoadWindows() error = %v", err)
	}
	if len(windows) != 2 {
		t.Fatalf("len(windows) = %d, want 2", len(windows))
	}

	got := windows[storageKey]
	if len(got) != len(values) {
		t.Fatalf("len(window) = %d, want %d", len(got), len(values))
	}
	for i := range values {
		if got[i] != values[i] {
			t.Errorf("window[%d] = %v, want %v (order must survive)", i, got[i], values[i])
		}
	}
}

func TestSaveWindowReplaces(t *testing.T) {
	s := openTestStorage(t)
	ctx := context.Background()

	if err := s.SaveWindow(ctx, storageKey, []float64{1, 2, 3, 4, 5}); err != nil {
		t.Fatalf("SaveWindow() error = %v", err)
	}
	// Window slid: same key, fewer and different values.
	if err := s.SaveWindow(ctx, storageKey, []float64{3, 4, 5, 6}); err != nil {
		t.Fatalf("SaveWindow() error = %v", err)
	}

	windows, err := s.LoadWindows(ctx)
	if err != nil {
		t.Fatalf("LoadWindows() error = %v", err)
	}
	got := windows[storageKey]
	want := []float64{3, 4, 5, 6}
	if len(got) != len(want) {
		t.Fatalf("len(window) = %d, want %d (old rows must be cleared)", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("window[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestEventUpsertAndActive(t *testing.T) {
	s := openTestStorage(t)
	ctx := context.Background()

	event := &models.AlertEvent{
		ID:        "ev-1",
		Subject:   storageKey.String(),
		Source:    models.AlertSourceMetric,
		Severity:  models.SeverityMedium,
		Summary:   "anomalous",
		State:     models.AlertStateNew,
		CreatedAt: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	if err := s.SaveEvent(ctx, event); err != nil {
		t.Fatalf("SaveEvent() error = %v", err)
	}

	active, err := s.ActiveEvents(ctx)
	if err != nil {
		t.Fatalf("ActiveEvents() error = %v", err)
	}
	if len(active) != 1 || active[0].ID != "ev-1" {
		t.Fatalf("active = %+v, want the new event", active)
	}
	if !active[0].ResolvedAt.IsZero() {
		t.Errorf("ResolvedAt = %v, want zero for active event", active[0].ResolvedAt)
	}

	// Resolve via upsert on the same id.
	event.State = models.AlertStateResolved
	event.ResolvedAt = event.CreatedAt.Add(5 * time.Minute)
	event.Summary = "resolved: back to normal"
	if err := s.SaveEvent(ctx, event); err != nil {
		t.Fatalf("SaveEvent() resolve error = %v", err)
	}

	active, err = s.ActiveEvents(ctx)
	if err != nil {
		t.Fatalf("ActiveEvents() error = %v", err)
	}
	if len(active) != 0 {
		t.Fatalf("active after resolve = %d, want 0", len(active))
	}

	history, err := s.EventHistory(ctx, 10)
	if err != nil {
		t.Fatalf("EventHistory() error = %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("history = %d rows, want 1 (upsert, not insert)", len(history))
	}
	got := history[0]
	if got.State != models.AlertStateResolved {
		t.Errorf("state = %v, want resolved", got.State)
	}
	if got.Summary != "resolved: back to normal" {
		t.Errorf("summary = %q", got.Summary)
	}
	if !got.ResolvedAt.Equal(event.ResolvedAt) {
		t.Errorf("resolved_at = %v, want %v", got.ResolvedAt, event.ResolvedAt)
	}
}

func TestEventHistoryOrderAndLimit(t *testing.T) {
	s := openTestStorage(t)
	ctx := context.Background()

	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		ev := &models.AlertEvent{
			ID:        string(rune('a' + i)),
			Subject:   "s",
			Source:    models.AlertSourceLog,
			Severity:  models.SeverityLow,
			Summary:   "x",
			State:     models.AlertStateNew,
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}
		if err := s.SaveEvent(ctx, ev); err != nil {
			t.Fatalf("SaveEvent() error = %v", err)
		}
	}

	history, err := s.EventHistory(ctx, 3)
	if err != nil {
		t.Fatalf("EventHistory() error = %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("len(history) = %d, want 3", len(history))
	}
	if history[0].ID != "e" || history[2].ID != "c" {
		t.Errorf("history order = %s, %s, %s, want newest first", history[0].ID, history[1].ID, history[2].ID)
	}
}

func TestPruneEvents(t *testing.T) {
	s := openTestStorage(t)
	ctx := context.Background()

	cutoff := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	events := []*models.AlertEvent{
		{ID: "old-resolved", Subject: "s", Source: models.AlertSourceMetric, Severity: models.SeverityLow, Summary: "x", State: models.AlertStateResolved, CreatedAt: cutoff.Add(-48 * time.Hour)},
		{ID: "old-active", Subject: "s2", Source: models.AlertSourceMetric, Severity: models.SeverityLow, Summary: "x", State: models.AlertStateNew, CreatedAt: cutoff.Add(-48 * time.Hour)},
		{ID: "new-resolved", Subject: "s3", Source: models.AlertSourceMetric, Severity: models.SeverityLow, Summary: "x", State: models.AlertStateResolved, CreatedAt: cutoff.Add(time.Hour)},
	}
	for _, ev := range events {
		if err := s.SaveEvent(ctx, ev); err != nil {
			t.Fatalf("SaveEvent(%s) error = %v", ev.ID, err)
		}
	}

	n, err := s.PruneEvents(ctx, cutoff)
	if err != nil {
		t.Fatalf("PruneEvents() error = %v", err)
	}
	if n != 1 {
		t.Errorf("pruned = %d, want 1 (active events are kept regardless of age)", n)
	}

	history, err := s.EventHistory(ctx, 10)
	if err != nil {
		t.Fatalf("EventHistory() error = %v", err)
	}
	if len(history) != 2 {
		t.Errorf("remaining = %d, want 2", len(history))
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "driftwatch.db")

	s := NewSQLiteStorage(path)
	if err := s.Open(); err != nil {
		t.Fatalf("first Open() error = %v", err)
	}
	if err := s.SaveWindow(context.Background(), storageKey, []float64{1, 2}); err != nil {
		t.Fatalf("SaveWindow() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	// Re-opening an existing database must not re-run migrations or lose
	// data.
	s2 := NewSQLiteStorage(path)
	if err := s2.Open(); err != nil {
		t.Fatalf("second Open() error = %v", err)
	}
	defer s2.Close()

	windows, err := s2.LoadWindows(context.Background())
	if err != nil {
		t.Fatalf("LoadWindows() error = %v", err)
	}
	if len(windows[storageKey]) != 2 {
		t.Errorf("window = %v, want data to survive reopen", windows[storageKey])
	}
}
