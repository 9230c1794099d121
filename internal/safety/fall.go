package safety

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// FallDetector tracks the fall-detection transition diagram per officer:
// normal -> possible_fall -> {confirmed_fall | false_alarm | acknowledged}.
// A possible_fall not acknowledged within confirmTimeout auto-transitions
// to confirmed_fall.
type FallDetector struct {
	mu             sync.Mutex
	confirmTimeout time.Duration
	events         map[string]*FallEvent // officerID -> latest event
	now            func() time.Time
}

// NewFallDetector creates a detector with confirmTimeout.
func NewFallDetector(confirmTimeout time.Duration) *FallDetector {
	return &FallDetector{
		confirmTimeout: confirmTimeout,
		events:         make(map[string]*FallEvent),
		now:            time.Now,
	}
}

// Report records a device-reported possible fall for officerID.
func (d *FallDetector) Report(officerID string, location FallEvent) *FallEvent {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	ev := &FallEvent{
		ID:         uuid.NewString(),
		OfficerID:  officerID,
		State:      FallPossible,
		DetectedAt: now,
		ConfirmBy:  now.Add(d.confirmTimeout),
		Location:   location.Location,
	}
	d.events[officerID] = ev
	return ev
}

// Acknowledge transitions a pending possible_fall to acknowledged,
// provided it hasn't already auto-confirmed.
func (d *FallDetector) Acknowledge(officerID string) (*FallEvent, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	ev, ok := d.events[officerID]
	if !ok || ev.State != FallPossible {
		return nil, fmt.Errorf("safety: no pending possible_fall for officer %s", officerID)
	}
	if d.now().After(ev.ConfirmBy) {
		ev.State = FallConfirmed
		return ev, fmt.Errorf("safety: fall already auto-confirmed for officer %s", officerID)
	}
	ev.State = FallAcknowledged
	return ev, nil
}

// MarkFalseAlarm lets a supervisor close a pending possible_fall as a
// false alarm, recording reason.
func (d *FallDetector) MarkFalseAlarm(officerID, reason string) (*FallEvent, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	ev, ok := d.events[officerID]
	if !ok || ev.State != FallPossible {
		return nil, fmt.Errorf("safety: no pending possible_fall for officer %s", officerID)
	}
	ev.State = FallFalseAlarm
	ev.FalseAlarmReason = reason
	return ev, nil
}

// SweepConfirmations auto-confirms every possible_fall whose ConfirmBy
// deadline has elapsed, returning the newly confirmed events (each of
// which the caller should raise a critical alert for).
func (d *FallDetector) SweepConfirmations() []*FallEvent {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	var confirmed []*FallEvent
	for _, ev := range d.events {
		if ev.State == FallPossible && now.After(ev.ConfirmBy) {
			ev.State = FallConfirmed
			confirmed = append(confirmed, ev)
		}
	}
	return confirmed
}
