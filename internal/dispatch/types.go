// Package dispatch turns trigger events into actuator missions,
// driving each actuator through a bounded command queue with
// emergency preemption, subject to per-trigger rules and geofence/
// envelope clamping.
package dispatch

import (
	"time"

	"github.com/aldric144/rtcc-platform/internal/transport"
	"github.com/aldric144/rtcc-platform/pkg/geo"
)

// TriggerType enumerates the event kinds that can originate a dispatch.
type TriggerType string

const (
	TriggerGunshot          TriggerType = "shotspotter"
	TriggerOfficerDistress  TriggerType = "officer_distress"
	TriggerAmbush           TriggerType = "ambush"
	TriggerHotVehicle       TriggerType = "hot_vehicle"
	TriggerPursuit          TriggerType = "pursuit"
	TriggerEmergencyCall    TriggerType = "911_keyword"
	TriggerMissingPerson    TriggerType = "missing_person"
	TriggerCrash            TriggerType = "crash"
	TriggerPerimeterBreach  TriggerType = "perimeter_breach"
	TriggerActiveShooter    TriggerType = "active_shooter"
	TriggerManual           TriggerType = "manual"
)

// criticalTriggers always escalate to critical priority regardless of
// the trigger rule's configured default.
var criticalTriggers = map[TriggerType]bool{
	TriggerOfficerDistress: true,
	TriggerAmbush:          true,
	TriggerActiveShooter:   true,
}

// Priority grades a dispatch or command's urgency.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityNormal   Priority = "normal"
	PriorityHigh     Priority = "high"
	PriorityUrgent   Priority = "urgent"
	PriorityCritical Priority = "critical"
)

// priorityScore maps a priority tier to its evaluation-score component.
var priorityScore = map[Priority]float64{
	PriorityLow:      0.3,
	PriorityNormal:   0.5,
	PriorityHigh:     0.7,
	PriorityUrgent:   0.85,
	PriorityCritical: 1.0,
}

// TriggerRule configures how a trigger type is evaluated and routed.
type TriggerRule struct {
	Enabled              bool
	MinPriority           Priority
	AutoDispatch          bool
	RequireApproval       bool
	ResponseRadiusMeters  float64
	RequiredCapabilities  []string
	LoiterBehavior        string
	NotifyChannels        []string
}

// DispatchStatus tracks a DispatchRequest's lifecycle.
type DispatchStatus string

const (
	StatusEvaluating          DispatchStatus = "evaluating"
	StatusCancelled           DispatchStatus = "cancelled"
	StatusPendingApproval     DispatchStatus = "pending"
	StatusDispatched          DispatchStatus = "dispatched"
	StatusNoActuatorAvailable DispatchStatus = "no_actuator_available"
)

// DispatchRequest records the evaluation and routing of a single
// trigger event.
type DispatchRequest struct {
	ID             string
	TriggerType    TriggerType
	Priority       Priority
	ThreatLevel    float64
	Score          float64
	Status         DispatchStatus
	ActuatorID     string
	ResponseTimeMs int64
	Reason         string
	CreatedAt      time.Time
	DispatchedAt   time.Time
}

// Actuator is a dispatchable asset (drone, rover, fixed camera relay)
// available for assignment.
type Actuator struct {
	ID           string
	Capabilities []string
	BatteryPct   float64
	Location     geo.Point
}

func (a Actuator) hasCapabilities(required []string) bool {
	have := make(map[string]bool, len(a.Capabilities))
	for _, c := range a.Capabilities {
		have[c] = true
	}
	for _, req := range required {
		if !have[req] {
			return false
		}
	}
	return true
}

// Envelope bounds motion commands to a safe operating region.
type Envelope struct {
	MinAltitudeM   float64
	MaxAltitudeM   float64
	MaxSpeedMPS    float64
	GeofenceOn     bool
	Geofence       geo.Polygon
}

// CommandParameters carries a command's target state; motion fields
// are clamped against the actuator's Envelope before dispatch.
type CommandParameters struct {
	TargetAltitudeM float64
	SpeedMPS        float64
	Waypoint        geo.Point
	Extra           map[string]any
}

// transportPriority maps a dispatch Priority onto the wire-level
// transport.Priority the actuator connection expects.
func transportPriority(p Priority) transport.Priority {
	switch p {
	case PriorityCritical:
		return transport.PriorityEmergency
	case PriorityUrgent, PriorityHigh:
		return transport.PriorityHigh
	case PriorityLow:
		return transport.PriorityLow
	default:
		return transport.PriorityNormal
	}
}
