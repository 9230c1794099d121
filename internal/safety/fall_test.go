package safety

import (
	"testing"
	"time"

	"github.com/aldric144/rtcc-platform/pkg/geo"
)

func TestReport_CreatesPossibleFallWithConfirmDeadline(t *testing.T) {
	d := NewFallDetector(2 * time.Minute)
	base := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	d.now = func() time.Time { return base }

	ev := d.Report("o1", FallEvent{Location: geo.Point{Lat: 40.0, Lon: -75.0}})
	if ev.State != FallPossible {
		t.Fatalf("expected possible_fall state, got %s", ev.State)
	}
	if !ev.ConfirmBy.Equal(base.Add(2 * time.Minute)) {
		t.Fatalf("expected confirm deadline 2 minutes out, got %v", ev.ConfirmBy)
	}
}

func TestAcknowledge_ClearsPossibleFallBeforeDeadline(t *testing.T) {
	d := NewFallDetector(2 * time.Minute)
	base := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	d.now = func() time.Time { return base }

	d.Report("o1", FallEvent{})
	d.now = func() time.Time { return base.Add(time.Minute) }

	ev, err := d.Acknowledge("o1")
	if err != nil {
		t.Fatalf("expected acknowledge within deadline to succeed, got %v", err)
	}
	if ev.State != FallAcknowledged {
		t.Fatalf("expected acknowledged state, got %s", ev.State)
	}
}

func TestAcknowledge_FailsOnceDeadlineHasPassed(t *testing.T) {
	d := NewFallDetector(2 * time.Minute)
	base := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	d.now = func() time.Time { return base }

	d.Report("o1", FallEvent{})
	d.now = func() time.Time { return base.Add(5 * time.Minute) }

	ev, err := d.Acknowledge("o1")
	if err == nil {
		t.Fatal("expected acknowledge past the confirm deadline to fail")
	}
	if ev.State != FallConfirmed {
		t.Fatalf("expected the event to already be auto-confirmed, got %s", ev.State)
	}
}

func TestSweepConfirmations_AutoConfirmsExpiredPossibleFalls(t *testing.T) {
	d := NewFallDetector(2 * time.Minute)
	base := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	d.now = func() time.Time { return base }

	d.Report("o1", FallEvent{})
	d.Report("o2", FallEvent{})

	d.now = func() time.Time { return base.Add(time.Minute) }
	if confirmed := d.SweepConfirmations(); len(confirmed) != 0 {
		t.Fatalf("expected no confirmations before the deadline, got %d", len(confirmed))
	}

	d.now = func() time.Time { return base.Add(3 * time.Minute) }
	confirmed := d.SweepConfirmations()
	if len(confirmed) != 2 {
		t.Fatalf("expected both pending falls to auto-confirm, got %d", len(confirmed))
	}

	if again := d.SweepConfirmations(); len(again) != 0 {
		t.Fatalf("expected already-confirmed falls not to re-confirm, got %d", len(again))
	}
}

func TestMarkFalseAlarm_ClosesPendingFallWithReason(t *testing.T) {
	d := NewFallDetector(2 * time.Minute)
	base := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	d.now = func() time.Time { return base }

	d.Report("o1", FallEvent{})
	ev, err := d.MarkFalseAlarm("o1", "officer sat down abruptly, device misread")
	if err != nil {
		t.Fatalf("expected false alarm marking to succeed, got %v", err)
	}
	if ev.State != FallFalseAlarm {
		t.Fatalf("expected false_alarm state, got %s", ev.State)
	}
	if ev.FalseAlarmReason == "" {
		t.Fatal("expected the false alarm reason to be recorded")
	}
}

func TestMarkFalseAlarm_FailsWithoutPendingFall(t *testing.T) {
	d := NewFallDetector(2 * time.Minute)
	if _, err := d.MarkFalseAlarm("o1", "no fall reported"); err == nil {
		t.Fatal("expected marking false alarm without a pending fall to fail")
	}
}
