// Package safety implements the Officer Safety & Proximity Engine:
// threat-proximity warnings, ambush detection, hotzone entry/exit,
// check-in discipline, and the fall-detection transition diagram.
package safety

import (
	"time"

	"github.com/aldric144/rtcc-platform/pkg/geo"
)

// ThreatLevel grades the severity of a proximity warning.
type ThreatLevel string

const (
	ThreatLow      ThreatLevel = "low"
	ThreatModerate ThreatLevel = "moderate"
	ThreatHigh     ThreatLevel = "high"
	ThreatCritical ThreatLevel = "critical"
)

func (l ThreatLevel) rank() int {
	switch l {
	case ThreatCritical:
		return 3
	case ThreatHigh:
		return 2
	case ThreatModerate:
		return 1
	default:
		return 0
	}
}

// maxLevel returns whichever of a, b ranks higher.
func maxLevel(a, b ThreatLevel) ThreatLevel {
	if a.rank() >= b.rank() {
		return a
	}
	return b
}

// ThreatType enumerates the kinds of threats the proximity engine scores
// officers against, each carrying its own configured radius.
type ThreatType string

const (
	ThreatWantedPerson  ThreatType = "wanted_person"
	ThreatStolenVehicle ThreatType = "stolen_vehicle"
	ThreatGunfire       ThreatType = "gunfire_cluster"
	ThreatHazard        ThreatType = "hazard"
	ThreatAmbush        ThreatType = "ambush"
	ThreatHotzone       ThreatType = "hotzone"
)

// Threat is one hazard the proximity engine scores officer distance
// against.
type Threat struct {
	ID       string
	Type     ThreatType
	Location geo.Point
	Level    ThreatLevel
}

// Officer is the minimal on-duty officer state the engine tracks.
type Officer struct {
	ID           string
	Location     geo.Point
	LastCheckIn  time.Time
}

// Warning is a materialized proximity, ambush, or hotzone alert on an
// officer's active set.
type Warning struct {
	ID          string
	OfficerID   string
	WarningType ThreatType
	Direction   float64 // bearing in degrees from officer to threat, 0=north
	Distance    float64 // meters
	ThreatLevel ThreatLevel
	CreatedAt   time.Time
	ExpiresAt   time.Time
	Acknowledged bool
	ZoneID      string   // set for hotzone warnings
	Indicators  []string // set for ambush warnings
}

// OfficerStatus is an officer's current aggregate safety state.
type OfficerStatus struct {
	OfficerID   string
	ThreatLevel ThreatLevel
	ThreatScore float64 // aggregate in [0,1]
	Warnings    []Warning
}

// Zone is a hotzone polygon with risk metadata.
type Zone struct {
	ID       string
	Polygon  geo.Polygon
	Level    ThreatLevel
}

// FallState is a position in the fall-detection transition diagram.
type FallState string

const (
	FallNormal        FallState = "normal"
	FallPossible      FallState = "possible_fall"
	FallConfirmed     FallState = "confirmed_fall"
	FallFalseAlarm    FallState = "false_alarm"
	FallAcknowledged  FallState = "acknowledged"
)

// FallEvent is one officer's fall-detection record.
type FallEvent struct {
	ID          string
	OfficerID   string
	State       FallState
	DetectedAt  time.Time
	ConfirmBy   time.Time
	Location    geo.Point
	FalseAlarmReason string
}
