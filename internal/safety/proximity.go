package safety

import (
	"time"

	"github.com/google/uuid"

	"github.com/aldric144/rtcc-platform/pkg/geo"
)

// RadiusConfig maps each threat type to its own proximity radius in
// meters.
type RadiusConfig map[ThreatType]float64

// DefaultRadiusConfig returns the specification's recommended per-threat
// radii.
func DefaultRadiusConfig() RadiusConfig {
	return RadiusConfig{
		ThreatWantedPerson:  500,
		ThreatStolenVehicle: 800,
		ThreatGunfire:       1000,
		ThreatHazard:        600,
	}
}

// Engine tracks per-officer active warnings and aggregate threat state,
// modeled on the teacher's alert lifecycle
// (internal/alerts/history.go's active-then-expire entries and
// internal/alerts/unified_eval.go's per-entity active-warning
// aggregation) generalized from system alerts to per-officer safety
// warnings.
type Engine struct {
	radii       RadiusConfig
	warningTTL  time.Duration
	now         func() time.Time

	active map[string][]Warning // officerID -> active warnings
}

// NewEngine creates a proximity engine with the given per-threat radii
// and warning time-to-live.
func NewEngine(radii RadiusConfig, warningTTL time.Duration) *Engine {
	return &Engine{
		radii:      radii,
		warningTTL: warningTTL,
		now:        time.Now,
		active:     make(map[string][]Warning),
	}
}

// ScoreThreat computes geodesic distance from threat to every officer and
// materializes a warning for any officer within the threat type's
// configured radius.
func (e *Engine) ScoreThreat(threat Threat, officers []Officer) []Warning {
	radius, ok := e.radii[threat.Type]
	if !ok {
		radius = 500
	}

	now := e.now()
	var created []Warning
	for _, officer := range officers {
		dist := geo.HaversineMeters(officer.Location, threat.Location)
		if dist > radius {
			continue
		}
		w := Warning{
			ID:          uuid.NewString(),
			OfficerID:   officer.ID,
			WarningType: threat.Type,
			Direction:   geo.BearingDegrees(officer.Location, threat.Location),
			Distance:    dist,
			ThreatLevel: threat.Level,
			CreatedAt:   now,
			ExpiresAt:   now.Add(e.warningTTL),
		}
		e.active[officer.ID] = append(e.active[officer.ID], w)
		created = append(created, w)
	}
	return created
}

// ApplyHotzoneEvents folds the tracker's entry/exit transitions into the
// engine's active warning set: entry adds the new hotzone warning, exit
// clears every hotzone warning for that zone and officer.
func (e *Engine) ApplyHotzoneEvents(officerID string, events []HotzoneEvent) {
	for _, ev := range events {
		if ev.Entered {
			e.active[officerID] = append(e.active[officerID], *ev.Warning)
			continue
		}
		warnings := e.active[officerID]
		kept := warnings[:0]
		for _, w := range warnings {
			if w.WarningType == ThreatHotzone && w.ZoneID == ev.ZoneID {
				continue
			}
			kept = append(kept, w)
		}
		e.active[officerID] = kept
	}
}

// Acknowledge marks a specific officer's warning as acknowledged,
// removing it from their active set.
func (e *Engine) Acknowledge(officerID, warningID string) bool {
	warnings := e.active[officerID]
	for i, w := range warnings {
		if w.ID == warningID {
			e.active[officerID] = append(warnings[:i], warnings[i+1:]...)
			return true
		}
	}
	return false
}

// ExpireStale removes every warning past its ExpiresAt from every
// officer's active set.
func (e *Engine) ExpireStale() {
	now := e.now()
	for officerID, warnings := range e.active {
		kept := warnings[:0]
		for _, w := range warnings {
			if now.Before(w.ExpiresAt) {
				kept = append(kept, w)
			}
		}
		e.active[officerID] = kept
	}
}

// StatusFor returns an officer's aggregate threat level and score: the
// threat level is the max of active warning levels, and the score in
// [0,1] is the mean of per-warning severity weights (low 0.25, moderate
// 0.5, high 0.75, critical 1), so it does not grow with the warning count.
func (e *Engine) StatusFor(officerID string) OfficerStatus {
	warnings := e.active[officerID]
	status := OfficerStatus{OfficerID: officerID, ThreatLevel: ThreatLow, Warnings: append([]Warning{}, warnings...)}

	var scoreSum float64
	for _, w := range warnings {
		status.ThreatLevel = maxLevel(status.ThreatLevel, w.ThreatLevel)
		scoreSum += float64(w.ThreatLevel.rank()+1) / 4.0
	}
	if len(warnings) > 0 {
		status.ThreatScore = geo.Clamp(scoreSum/float64(len(warnings)), 0, 1)
	}
	return status
}

// RaiseAmbush materializes a critical ambush warning for every affected
// officer, carrying the triggering indicators for the dispatcher/officer
// to act on.
func (e *Engine) RaiseAmbush(officerIDs []string, indicators []string) []Warning {
	now := e.now()
	var created []Warning
	for _, officerID := range officerIDs {
		w := Warning{
			ID:          uuid.NewString(),
			OfficerID:   officerID,
			WarningType: ThreatAmbush,
			ThreatLevel: ThreatCritical,
			CreatedAt:   now,
			ExpiresAt:   now.Add(e.warningTTL),
			Indicators:  indicators,
		}
		e.active[officerID] = append(e.active[officerID], w)
		created = append(created, w)
	}
	return created
}
