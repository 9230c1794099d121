package safety

import (
	"testing"
	"time"

	"github.com/aldric144/rtcc-platform/pkg/geo"
)

func square(minLat, minLon, maxLat, maxLon float64) geo.Polygon {
	return geo.Polygon{
		{Lat: minLat, Lon: minLon},
		{Lat: minLat, Lon: maxLon},
		{Lat: maxLat, Lon: maxLon},
		{Lat: maxLat, Lon: minLon},
	}
}

func TestUpdateLocation_EntryAndExitProduceMatchingEvents(t *testing.T) {
	zone := Zone{ID: "z1", Polygon: square(40.0, -75.0, 40.01, -74.99), Level: ThreatHigh}
	tracker := NewHotzoneTracker([]Zone{zone}, 10*time.Minute)
	base := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	tracker.now = func() time.Time { return base }

	inside := geo.Point{Lat: 40.005, Lon: -74.995}
	events := tracker.UpdateLocation("o1", inside)
	if len(events) != 1 || !events[0].Entered {
		t.Fatalf("expected a single entry event, got %+v", events)
	}
	if events[0].Warning == nil || events[0].Warning.ThreatLevel != ThreatHigh {
		t.Fatalf("expected entry warning to carry the zone's threat level")
	}

	events = tracker.UpdateLocation("o1", inside)
	if len(events) != 0 {
		t.Fatalf("expected no further events while the officer stays inside, got %+v", events)
	}

	outside := geo.Point{Lat: 41.0, Lon: -76.0}
	events = tracker.UpdateLocation("o1", outside)
	if len(events) != 1 || events[0].Entered {
		t.Fatalf("expected a single exit event, got %+v", events)
	}
}

func TestUpdateLocation_TracksOfficersIndependently(t *testing.T) {
	zone := Zone{ID: "z1", Polygon: square(40.0, -75.0, 40.01, -74.99), Level: ThreatModerate}
	tracker := NewHotzoneTracker([]Zone{zone}, 10*time.Minute)

	inside := geo.Point{Lat: 40.005, Lon: -74.995}
	outside := geo.Point{Lat: 41.0, Lon: -76.0}

	events1 := tracker.UpdateLocation("o1", inside)
	events2 := tracker.UpdateLocation("o2", outside)

	if len(events1) != 1 || !events1[0].Entered {
		t.Fatalf("expected o1 to enter, got %+v", events1)
	}
	if len(events2) != 0 {
		t.Fatalf("expected o2 outside the zone to produce no events, got %+v", events2)
	}
}
