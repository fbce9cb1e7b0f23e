package engine

import (
	"testing"
	"time"

	"github.com/driftwatch/driftwatch/internal/models"
)

var testKey = models.MetricKey{
	Namespace:  "AWS/Lambda",
	MetricName: "Duration",
	Statistic:  models.StatisticAverage,
}

func metricScore(severity models.Severity) models.AnomalyScore {
	return models.AnomalyScore{
		Key:      testKey,
		Value:    0.5,
		ZScore:   1.8,
		Severity: severity,
		Trend:    models.TrendStable,
	}
}

var window1 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
var window2 = time.Date(2024, 3, 1, 12, 5, 0, 0, time.UTC)

func TestMetricAlertLifecycle(t *testing.T) {
	e := New(DefaultOptions())

	// Below threshold: nothing happens.
	if ev := e.EvaluateMetric(metricScore(models.SeverityLow), window1); ev != nil {
		t.Fatalf("low severity opened an alert: %+v", ev)
	}

	// Crossing the threshold opens exactly one event.
	ev := e.EvaluateMetric(metricScore(models.SeverityMedium), window1)
	if ev == nil {
		t.Fatal("medium severity did not open an alert")
	}
	if ev.State != models.AlertStateNew {
		t.Errorf("state = %v, want new", ev.State)
	}
	if ev.Source != models.AlertSourceMetric {
		t.Errorf("source = %v, want metric", ev.Source)
	}

	// Still anomalous: suppressed, not re-emitted.
	if dup := e.EvaluateMetric(metricScore(models.SeverityHigh), window1); dup != nil {
		t.Fatalf("sustained condition re-emitted: %+v", dup)
	}
	if got := e.Stats().Suppressed; got != 1 {
		t.Errorf("suppressed = %d, want 1", got)
	}

	// Condition clears: exactly one resolution, carrying the original id.
	resolved := e.EvaluateMetric(metricScore(models.SeverityLow), window2)
	if resolved == nil {
		t.Fatal("cleared condition did not resolve")
	}
	if resolved.State != models.AlertStateResolved {
		t.Errorf("state = %v, want resolved", resolved.State)
	}
	if resolved.ID != ev.ID {
		t.Errorf("resolved id = %s, want original %s", resolved.ID, ev.ID)
	}
	if resolved.ResolvedAt.IsZero() {
		t.Error("resolved event has zero ResolvedAt")
	}

	// Fully quiet: no further transitions.
	if ev := e.EvaluateMetric(metricScore(models.SeverityLow), window2); ev != nil {
		t.Fatalf("quiet condition emitted: %+v", ev)
	}
	if len(e.Active()) != 0 {
		t.Errorf("active = %d, want 0", len(e.Active()))
	}
}

func TestDeterministicEventIDs(t *testing.T) {
	a := New(DefaultOptions())
	b := New(DefaultOptions())

	evA := a.EvaluateMetric(metricScore(models.SeverityHigh), window1)
	evB := b.EvaluateMetric(metricScore(models.SeverityHigh), window1)
	if evA.ID != evB.ID {
		t.Errorf("same subject and window produced different ids: %s vs %s", evA.ID, evB.ID)
	}

	c := New(DefaultOptions())
	evC := c.EvaluateMetric(metricScore(models.SeverityHigh), window2)
	if evC.ID == evA.ID {
		t.Error("fresh evaluation window reused the old id")
	}
}

func TestLogAlertThreshold(t *testing.T) {
	e := New(Options{LogCountThreshold: 10})

	few := []models.LogPatternMatch{{Pattern: "ERROR", LogGroup: "g", Count: 9, SampleMessage: "ERROR x"}}
	if ev := e.EvaluateLogs("g", few, "", window1); ev != nil {
		t.Fatalf("below threshold opened an alert: %+v", ev)
	}

	many := []models.LogPatternMatch{
		{Pattern: "ERROR", LogGroup: "g", Count: 8, SampleMessage: "ERROR disk"},
		{Pattern: "TIMEOUT", LogGroup: "g", Count: 2, SampleMessage: "TIMEOUT upstream"},
	}
	ev := e.EvaluateLogs("g", many, "", window1)
	if ev == nil {
		t.Fatal("total count at threshold did not open an alert")
	}
	if ev.Source != models.AlertSourceLog {
		t.Errorf("source = %v, want log", ev.Source)
	}
	if ev.Severity != models.SeverityMedium {
		t.Errorf("severity = %v, want medium at 1x threshold", ev.Severity)
	}

	// Quiet window resolves.
	resolved := e.EvaluateLogs("g", nil, "", window2)
	if resolved == nil || resolved.State != models.AlertStateResolved {
		t.Fatalf("resolved = %+v, want resolved transition", resolved)
	}
}

func TestLogSeverityScaling(t *testing.T) {
	e := New(Options{LogCountThreshold: 10})

	tests := []struct {
		count int
		want  models.Severity
	}{
		{10, models.SeverityMedium},
		{29, models.SeverityMedium},
		{30, models.SeverityHigh},
		{99, models.SeverityHigh},
		{100, models.SeverityCritical},
	}
	for _, tt := range tests {
		if got := e.logSeverity(tt.count); got != tt.want {
			t.Errorf("logSeverity(%d) = %v, want %v", tt.count, got, tt.want)
		}
	}
}

func TestMetricAndLogStatesAreIndependent(t *testing.T) {
	e := New(DefaultOptions())

	m := e.EvaluateMetric(metricScore(models.SeverityHigh), window1)
	l := e.EvaluateLogs(testKey.String(), []models.LogPatternMatch{
		{Pattern: "ERROR", LogGroup: testKey.String(), Count: 50},
	}, "", window1)

	if m == nil || l == nil {
		t.Fatal("expected both sources to open alerts")
	}
	if m.ID == l.ID {
		t.Error("metric and log alerts for the same subject share an id")
	}
	if got := len(e.Active()); got != 2 {
		t.Errorf("active = %d, want 2", got)
	}
}

func TestRestore(t *testing.T) {
	e := New(DefaultOptions())
	e.Restore([]models.AlertEvent{
		{
			ID:       "abc",
			Subject:  testKey.String(),
			Source:   models.AlertSourceMetric,
			Severity: models.SeverityHigh,
			State:    models.AlertStateNew,
		},
		{
			ID:      "def",
			Subject: "g",
			Source:  models.AlertSourceLog,
			State:   models.AlertStateResolved, // ignored
		},
	})

	if got := len(e.Active()); got != 1 {
		t.Fatalf("active = %d, want 1 (resolved events ignored)", got)
	}

	// A still-anomalous signal keeps the restored event suppressing.
	if ev := e.EvaluateMetric(metricScore(models.SeverityHigh), window1); ev != nil {
		t.Fatalf("restored active alert did not suppress: %+v", ev)
	}

	// A quiet signal resolves the restored event with its original id.
	resolved := e.EvaluateMetric(metricScore(models.SeverityLow), window1)
	if resolved == nil || resolved.ID != "abc" {
		t.Fatalf("resolved = %+v, want restored event abc", resolved)
	}
}
