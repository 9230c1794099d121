package dispatch

import (
	"testing"
	"time"

	"github.com/aldric144/rtcc-platform/internal/transport"
)

func TestSubmit_FIFOOrderAndSingleActiveSlot(t *testing.T) {
	q := NewActuatorQueue("d1")

	c1 := &Command{ID: "c1", ActuatorID: "d1", Type: transport.CommandOrbit, Priority: PriorityNormal}
	c2 := &Command{ID: "c2", ActuatorID: "d1", Type: transport.CommandHover, Priority: PriorityNormal}

	q.Submit(c1)
	q.Submit(c2)

	if q.Active() == nil || q.Active().ID != "c1" {
		t.Fatalf("expected c1 to become active, got %+v", q.Active())
	}
	if len(q.Queued()) != 1 || q.Queued()[0].ID != "c2" {
		t.Fatalf("expected c2 to remain queued, got %+v", q.Queued())
	}
}

func TestResolve_PromotesNextQueuedCommand(t *testing.T) {
	q := NewActuatorQueue("d1")
	c1 := &Command{ID: "c1", ActuatorID: "d1", Type: transport.CommandOrbit}
	c2 := &Command{ID: "c2", ActuatorID: "d1", Type: transport.CommandHover}
	q.Submit(c1)
	q.Submit(c2)

	q.Resolve("c1", CmdCompleted, "")

	if c1.State != CmdCompleted {
		t.Fatalf("expected c1 completed, got %s", c1.State)
	}
	if q.Active() == nil || q.Active().ID != "c2" {
		t.Fatalf("expected c2 to be promoted to active, got %+v", q.Active())
	}
}

func TestSubmit_EmergencyPreemptsActiveAndQueued(t *testing.T) {
	q := NewActuatorQueue("d1")
	orbit := &Command{ID: "orbit-1", ActuatorID: "d1", Type: transport.CommandOrbit, Priority: PriorityNormal}
	followUp := &Command{ID: "follow-1", ActuatorID: "d1", Type: transport.CommandFollow, Priority: PriorityNormal}
	q.Submit(orbit)
	q.Submit(followUp)

	stop := &Command{ID: "stop-1", ActuatorID: "d1", Type: transport.CommandEmergencyStop, Priority: PriorityCritical}
	cancelled := q.Submit(stop)

	if len(cancelled) != 2 {
		t.Fatalf("expected both the active and queued command cancelled, got %d", len(cancelled))
	}
	for _, c := range cancelled {
		if c.State != CmdCancelled || c.Reason != ReasonPreemptedByEmergency {
			t.Fatalf("expected cancelled commands to carry the preemption reason, got %+v", c)
		}
	}
	if q.Active() == nil || q.Active().ID != "stop-1" {
		t.Fatalf("expected the emergency command to become active immediately, got %+v", q.Active())
	}
	if q.Active().State != CmdExecuting {
		t.Fatalf("expected the emergency command to start executing, got %s", q.Active().State)
	}
	if len(q.Queued()) != 0 {
		t.Fatalf("expected the queue to be empty after preemption, got %d", len(q.Queued()))
	}
}

func TestSweepTimeouts_FailsOverdueActiveCommandAndPromotesNext(t *testing.T) {
	q := NewActuatorQueue("d1")
	base := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	q.now = func() time.Time { return base }

	slow := &Command{ID: "slow-1", ActuatorID: "d1", Type: transport.CommandGoto, Timeout: time.Minute}
	next := &Command{ID: "next-1", ActuatorID: "d1", Type: transport.CommandHover}
	q.Submit(slow)
	q.Submit(next)

	q.now = func() time.Time { return base.Add(2 * time.Minute) }
	timedOut := q.SweepTimeouts()

	if timedOut == nil || timedOut.ID != "slow-1" || timedOut.State != CmdTimeout {
		t.Fatalf("expected slow-1 to time out, got %+v", timedOut)
	}
	if q.Active() == nil || q.Active().ID != "next-1" {
		t.Fatalf("expected next-1 to be promoted after timeout, got %+v", q.Active())
	}
}

func TestSweepTimeouts_NoOpWithinDeadline(t *testing.T) {
	q := NewActuatorQueue("d1")
	base := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	q.now = func() time.Time { return base }

	cmd := &Command{ID: "c1", ActuatorID: "d1", Type: transport.CommandGoto, Timeout: time.Minute}
	q.Submit(cmd)

	q.now = func() time.Time { return base.Add(30 * time.Second) }
	if q.SweepTimeouts() != nil {
		t.Fatal("expected no timeout before the deadline elapses")
	}
}
