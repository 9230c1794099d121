package safety

import (
	"testing"
	"time"

	"github.com/aldric144/rtcc-platform/pkg/geo"
)

func TestScoreThreat_WarnsOfficersWithinTypeRadius(t *testing.T) {
	engine := NewEngine(DefaultRadiusConfig(), 10*time.Minute)
	base := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	engine.now = func() time.Time { return base }

	near := Officer{ID: "o1", Location: geo.Point{Lat: 40.0, Lon: -75.0}}
	far := Officer{ID: "o2", Location: geo.Point{Lat: 41.0, Lon: -76.0}}

	threat := Threat{
		ID:       "t1",
		Type:     ThreatWantedPerson,
		Location: geo.Point{Lat: 40.0001, Lon: -75.0001},
		Level:    ThreatHigh,
	}

	warnings := engine.ScoreThreat(threat, []Officer{near, far})
	if len(warnings) != 1 {
		t.Fatalf("expected exactly 1 warning, got %d", len(warnings))
	}
	if warnings[0].OfficerID != "o1" {
		t.Fatalf("expected warning for near officer, got %s", warnings[0].OfficerID)
	}

	status := engine.StatusFor("o1")
	if status.ThreatLevel != ThreatHigh {
		t.Fatalf("expected aggregate threat level high, got %s", status.ThreatLevel)
	}
}

func TestScoreThreat_UnknownThreatTypeFallsBackToDefaultRadius(t *testing.T) {
	engine := NewEngine(RadiusConfig{}, 10*time.Minute)
	base := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	engine.now = func() time.Time { return base }

	officer := Officer{ID: "o1", Location: geo.Point{Lat: 40.0, Lon: -75.0}}
	threat := Threat{ID: "t1", Type: ThreatHazard, Location: geo.Point{Lat: 40.0001, Lon: -75.0001}, Level: ThreatLow}

	warnings := engine.ScoreThreat(threat, []Officer{officer})
	if len(warnings) != 1 {
		t.Fatalf("expected a warning using the fallback radius, got %d", len(warnings))
	}
}

func TestExpireStale_RemovesWarningsPastTTL(t *testing.T) {
	engine := NewEngine(DefaultRadiusConfig(), time.Minute)
	base := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	engine.now = func() time.Time { return base }

	officer := Officer{ID: "o1", Location: geo.Point{Lat: 40.0, Lon: -75.0}}
	threat := Threat{ID: "t1", Type: ThreatGunfire, Location: geo.Point{Lat: 40.0, Lon: -75.0}, Level: ThreatCritical}
	engine.ScoreThreat(threat, []Officer{officer})

	engine.now = func() time.Time { return base.Add(2 * time.Minute) }
	engine.ExpireStale()

	status := engine.StatusFor("o1")
	if len(status.Warnings) != 0 {
		t.Fatalf("expected stale warning to be expired, got %d remaining", len(status.Warnings))
	}
	if status.ThreatLevel != ThreatLow {
		t.Fatalf("expected threat level to reset to low once warnings expire, got %s", status.ThreatLevel)
	}
}

func TestAcknowledge_RemovesWarningFromActiveSet(t *testing.T) {
	engine := NewEngine(DefaultRadiusConfig(), 10*time.Minute)
	officer := Officer{ID: "o1", Location: geo.Point{Lat: 40.0, Lon: -75.0}}
	threat := Threat{ID: "t1", Type: ThreatWantedPerson, Location: geo.Point{Lat: 40.0, Lon: -75.0}, Level: ThreatModerate}

	created := engine.ScoreThreat(threat, []Officer{officer})
	if len(created) != 1 {
		t.Fatalf("expected 1 warning, got %d", len(created))
	}

	if !engine.Acknowledge("o1", created[0].ID) {
		t.Fatal("expected acknowledge to succeed for an existing warning")
	}
	if engine.Acknowledge("o1", created[0].ID) {
		t.Fatal("expected acknowledge to fail once the warning is already removed")
	}
}

func TestApplyHotzoneEvents_EntryAddsAndExitClearsWarnings(t *testing.T) {
	engine := NewEngine(DefaultRadiusConfig(), 10*time.Minute)
	base := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	engine.now = func() time.Time { return base }

	entryWarning := Warning{ID: "w1", OfficerID: "o1", WarningType: ThreatHotzone, ZoneID: "z1", ThreatLevel: ThreatHigh}
	engine.ApplyHotzoneEvents("o1", []HotzoneEvent{{ZoneID: "z1", Entered: true, Warning: &entryWarning}})

	status := engine.StatusFor("o1")
	if len(status.Warnings) != 1 {
		t.Fatalf("expected entry to add a hotzone warning, got %d", len(status.Warnings))
	}

	engine.ApplyHotzoneEvents("o1", []HotzoneEvent{{ZoneID: "z1", Entered: false}})
	status = engine.StatusFor("o1")
	if len(status.Warnings) != 0 {
		t.Fatalf("expected exit to clear the hotzone warning, got %d remaining", len(status.Warnings))
	}
}

func TestRaiseAmbush_CarriesIndicatorsAsCriticalWarnings(t *testing.T) {
	engine := NewEngine(DefaultRadiusConfig(), 10*time.Minute)
	warnings := engine.RaiseAmbush([]string{"o1", "o2"}, []string{"co_occurring_calls", "sudden_silence"})

	if len(warnings) != 2 {
		t.Fatalf("expected 1 warning per affected officer, got %d", len(warnings))
	}
	for _, w := range warnings {
		if w.ThreatLevel != ThreatCritical {
			t.Fatalf("expected ambush warnings to be critical, got %s", w.ThreatLevel)
		}
		if len(w.Indicators) != 2 {
			t.Fatalf("expected indicators to be carried onto the warning, got %v", w.Indicators)
		}
	}
}
