package safety

import (
	"time"

	"github.com/google/uuid"

	"github.com/aldric144/rtcc-platform/pkg/geo"
)

// HotzoneTracker determines officer entry/exit across configured hotzone
// polygons and maintains the resulting warnings.
type HotzoneTracker struct {
	zones  map[string]Zone
	inside map[string]map[string]bool // zoneID -> officerID -> currently inside
	ttl    time.Duration
	now    func() time.Time
}

// NewHotzoneTracker creates a tracker over zones.
func NewHotzoneTracker(zones []Zone, warningTTL time.Duration) *HotzoneTracker {
	t := &HotzoneTracker{
		zones:  make(map[string]Zone, len(zones)),
		inside: make(map[string]map[string]bool),
		ttl:    warningTTL,
		now:    time.Now,
	}
	for _, z := range zones {
		t.zones[z.ID] = z
		t.inside[z.ID] = make(map[string]bool)
	}
	return t
}

// HotzoneEvent describes one entry or exit transition observed by
// UpdateLocation.
type HotzoneEvent struct {
	ZoneID    string
	Entered   bool
	Warning   *Warning // set when Entered is true
}

// UpdateLocation re-evaluates officer's containment in every tracked
// zone, returning the entry/exit transitions this update produced.
func (t *HotzoneTracker) UpdateLocation(officerID string, location geo.Point) []HotzoneEvent {
	var events []HotzoneEvent
	now := t.now()

	for zoneID, zone := range t.zones {
		wasInside := t.inside[zoneID][officerID]
		isInside := zone.Polygon.ContainsBoundary(location)

		if isInside && !wasInside {
			w := Warning{
				ID:          uuid.NewString(),
				OfficerID:   officerID,
				WarningType: ThreatHotzone,
				ThreatLevel: zone.Level,
				CreatedAt:   now,
				ExpiresAt:   now.Add(t.ttl),
				ZoneID:      zoneID,
			}
			events = append(events, HotzoneEvent{ZoneID: zoneID, Entered: true, Warning: &w})
		} else if !isInside && wasInside {
			events = append(events, HotzoneEvent{ZoneID: zoneID, Entered: false})
		}

		t.inside[zoneID][officerID] = isInside
	}

	return events
}
