package safety

import (
	"time"

	"github.com/aldric144/rtcc-platform/pkg/geo"
)

// CallRecord is one dispatched call relevant to ambush detection.
type CallRecord struct {
	ID       string
	Location geo.Point
	Time     time.Time
	OfficerID string
}

// AmbushWindow configures the co-occurring-call correlation window.
type AmbushWindow struct {
	DeltaTime     time.Duration // Δt_ambush
	DeltaDistance float64       // Δd_ambush, meters
}

// DefaultAmbushWindow returns the specification's recommended defaults.
func DefaultAmbushWindow() AmbushWindow {
	return AmbushWindow{DeltaTime: 5 * time.Minute, DeltaDistance: 400}
}

// Detector evaluates ambush indicators: co-occurring unrelated calls
// near the same officer area, sudden silence on an active unit, and
// explicit external detector input.
type Detector struct {
	window AmbushWindow
}

// NewDetector creates an ambush detector with window.
func NewDetector(window AmbushWindow) *Detector {
	return &Detector{window: window}
}

// DetectCoOccurrence reports whether two or more unrelated calls,
// targeting the same officer area within the configured time/distance
// window, indicate a possible ambush.
func (d *Detector) DetectCoOccurrence(calls []CallRecord) bool {
	for i := range calls {
		for j := i + 1; j < len(calls); j++ {
			a, b := calls[i], calls[j]
			if a.OfficerID != b.OfficerID {
				continue
			}
			dt := a.Time.Sub(b.Time)
			if dt < 0 {
				dt = -dt
			}
			if dt > d.window.DeltaTime {
				continue
			}
			if geo.HaversineMeters(a.Location, b.Location) <= d.window.DeltaDistance {
				return true
			}
		}
	}
	return false
}

// SuddenSilence reports whether an officer known to be active has gone
// silent: their last check-in (Officer.LastCheckIn) predates now by more
// than silenceThreshold while they were still flagged active.
func SuddenSilence(officer Officer, active bool, now time.Time, silenceThreshold time.Duration) bool {
	if !active {
		return false
	}
	return now.Sub(officer.LastCheckIn) > silenceThreshold
}
