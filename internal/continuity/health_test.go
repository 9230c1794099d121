package continuity

import (
	"testing"
	"time"
)

func TestServiceHealth_LatestReflectsMostRecentProbe(t *testing.T) {
	sh := NewServiceHealth("db", 200)
	base := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	sh.now = func() time.Time { return base }

	sh.Record(StatusHealthy, 50, "")
	sh.now = func() time.Time { return base.Add(time.Minute) }
	sh.Record(StatusUnhealthy, 0, "connection refused")

	latest, ok := sh.Latest()
	if !ok || latest.Status != StatusUnhealthy {
		t.Fatalf("expected latest status unhealthy, got %+v (ok=%v)", latest, ok)
	}
}

func TestServiceHealth_HighLatencyDowngradesToDegraded(t *testing.T) {
	sh := NewServiceHealth("db", 100)
	p := sh.Record(StatusHealthy, 250, "")
	if p.Status != StatusDegraded {
		t.Fatalf("expected a slow healthy probe to downgrade to degraded, got %s", p.Status)
	}
}

func TestSnapshotWindow_AggregatesCountsAndAverageLatency(t *testing.T) {
	sh := NewServiceHealth("db", 1000)
	base := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	sh.now = func() time.Time { return base }

	sh.Record(StatusHealthy, 100, "")
	sh.Record(StatusHealthy, 200, "")
	sh.Record(StatusUnhealthy, 0, "timeout")

	snap := sh.Snapshot1h()
	if snap.SampleCount != 3 {
		t.Fatalf("expected 3 samples in the 1h window, got %d", snap.SampleCount)
	}
	if snap.HealthyCount != 2 || snap.UnhealthyCount != 1 {
		t.Fatalf("unexpected status counts: %+v", snap)
	}
	if snap.AvgLatencyMs != 100 {
		t.Fatalf("expected average latency 100ms, got %f", snap.AvgLatencyMs)
	}
}

func TestSnapshotWindow_ExcludesProbesOutsideWindow(t *testing.T) {
	sh := NewServiceHealth("db", 1000)
	base := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	sh.now = func() time.Time { return base }
	sh.Record(StatusHealthy, 50, "")

	sh.now = func() time.Time { return base.Add(2 * time.Hour) }
	sh.Record(StatusHealthy, 60, "")

	snap := sh.SnapshotWindow(time.Hour)
	if snap.SampleCount != 1 {
		t.Fatalf("expected only the recent probe in a 1h window, got %d", snap.SampleCount)
	}
}

func TestChecker_RegisterIsIdempotentPerService(t *testing.T) {
	c := NewChecker()
	a := c.Register("db", 200)
	b := c.Register("db", 999)
	if a != b {
		t.Fatal("expected re-registering the same service name to return the existing tracker")
	}
}
