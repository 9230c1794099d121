package continuity

import "testing"

func TestObserveActiveProbe_TripsFailoverAfterNConsecutiveFailures(t *testing.T) {
	fm := NewFailoverManager(FailoverConfig{ServiceType: "dispatch_db", Primary: "p1", Secondary: "s1", FailureThreshold: 3, RecoveryThreshold: 2})

	fm.ObserveActiveProbe(StatusUnhealthy)
	fm.ObserveActiveProbe(StatusUnhealthy)
	if state, _ := fm.State(); state != StateNormal {
		t.Fatalf("expected state to remain normal before threshold, got %s", state)
	}
	fm.ObserveActiveProbe(StatusOffline)

	state, active := fm.State()
	if state != StateFailedOver {
		t.Fatalf("expected failover after 3 consecutive failures, got %s", state)
	}
	if active != "s1" {
		t.Fatalf("expected secondary active after failover, got %s", active)
	}
}

func TestObserveActiveProbe_ResetsFailureCountOnHealthyProbe(t *testing.T) {
	fm := NewFailoverManager(FailoverConfig{ServiceType: "dispatch_db", Primary: "p1", Secondary: "s1", FailureThreshold: 3})

	fm.ObserveActiveProbe(StatusUnhealthy)
	fm.ObserveActiveProbe(StatusUnhealthy)
	fm.ObserveActiveProbe(StatusHealthy)
	fm.ObserveActiveProbe(StatusUnhealthy)
	fm.ObserveActiveProbe(StatusUnhealthy)

	if state, _ := fm.State(); state != StateNormal {
		t.Fatalf("expected the healthy probe to reset the failure streak, got %s", state)
	}
}

func TestObservePrimaryProbe_RecoversAfterMConsecutiveHealthyProbes(t *testing.T) {
	fm := NewFailoverManager(FailoverConfig{ServiceType: "dispatch_db", Primary: "p1", Secondary: "s1", FailureThreshold: 1, RecoveryThreshold: 2})
	fm.ObserveActiveProbe(StatusUnhealthy)
	if state, _ := fm.State(); state != StateFailedOver {
		t.Fatalf("expected failover to trip on a single failure threshold of 1, got %s", state)
	}

	fm.ObservePrimaryProbe(StatusHealthy)
	if state, _ := fm.State(); state != StateFailedOver {
		t.Fatalf("expected one healthy probe short of threshold to stay failed over, got %s", state)
	}
	fm.ObservePrimaryProbe(StatusHealthy)

	state, active := fm.State()
	if state != StateNormal || active != "p1" {
		t.Fatalf("expected automatic recovery to primary, got state=%s active=%s", state, active)
	}
}

func TestManualFailoverAndRecovery_PermittedInAnyState(t *testing.T) {
	fm := NewFailoverManager(FailoverConfig{ServiceType: "dispatch_db", Primary: "p1", Secondary: "s1"})

	ev := fm.Failover("planned maintenance", "ops1")
	if ev.To != StateFailedOver || ev.User != "ops1" {
		t.Fatalf("unexpected failover event: %+v", ev)
	}

	ev = fm.Recover("maintenance complete", "ops1")
	if ev.To != StateNormal {
		t.Fatalf("unexpected recovery event: %+v", ev)
	}
}

func TestBufferWrite_RejectsWhenNotFailedOverOrOverLimit(t *testing.T) {
	fm := NewFailoverManager(FailoverConfig{ServiceType: "dispatch_db", Primary: "p1", Secondary: "s1", BufferLimit: 1})

	if err := fm.BufferWrite("write-1"); err == nil {
		t.Fatal("expected buffering to fail while the service is normal")
	}

	fm.Failover("test", "ops1")
	if err := fm.BufferWrite("write-1"); err != nil {
		t.Fatalf("expected the first buffered write to succeed, got %v", err)
	}
	if err := fm.BufferWrite("write-2"); err == nil {
		t.Fatal("expected the second buffered write to fail over the configured limit")
	}
}

func TestRecover_ReplaysBufferedWritesInOrder(t *testing.T) {
	fm := NewFailoverManager(FailoverConfig{ServiceType: "dispatch_db", Primary: "p1", Secondary: "s1", BufferLimit: 10})
	fm.Failover("test", "ops1")

	fm.BufferWrite("write-1")
	fm.BufferWrite("write-2")
	fm.BufferWrite("write-3")

	ev := fm.Recover("test", "ops1")
	if len(ev.Replayed) != 3 {
		t.Fatalf("expected 3 replayed writes, got %d", len(ev.Replayed))
	}
	for i, want := range []string{"write-1", "write-2", "write-3"} {
		if ev.Replayed[i].Payload != want {
			t.Fatalf("expected replay order preserved, got %v at index %d", ev.Replayed[i].Payload, i)
		}
	}
	if fm.BufferedCount() != 0 {
		t.Fatalf("expected the buffer to drain after replay, got %d remaining", fm.BufferedCount())
	}
}

func TestAutomaticFailover_IgnoredWhenModeManual(t *testing.T) {
	fm := NewFailoverManager(FailoverConfig{ServiceType: "dispatch_db", Primary: "p1", Secondary: "s1", Mode: ModeManual, FailureThreshold: 1})
	fm.ObserveActiveProbe(StatusOffline)
	if state, _ := fm.State(); state != StateNormal {
		t.Fatalf("expected manual mode to ignore automatic probes, got %s", state)
	}
}
