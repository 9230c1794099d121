package fusion

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aldric144/rtcc-platform/pkg/geo"
)

// Rule maps a tuple of source kinds to the correlation window/radius and
// minimum source count required to fuse them, plus the confidence boost
// applied when the rule fires.
type Rule struct {
	Name                string
	EligibleSources     map[SourceKind]struct{}
	Window              time.Duration
	Radius              float64
	MinSources          int
	ConfidenceBoost     float64
	CorrelationKind     string
	EventType           string
	Severity            string
}

// DefaultRules returns the rule set described in the specification's
// fusion examples (gunshot+LPR, panic beacon, crowd+environmental,
// LPR-only).
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:            "sensor_lpr",
			EligibleSources: kinds(SourceGunshot, SourceLPR, SourceSensor),
			Window:          60 * time.Second,
			Radius:          500,
			MinSources:      2,
			ConfidenceBoost: 0.3,
			CorrelationKind: "sensor_lpr",
			EventType:       "gunshot_incident",
			Severity:        "critical",
		},
		{
			Name:            "emergency_alert",
			EligibleSources: kinds(SourcePanic),
			Window:          60 * time.Second,
			Radius:          200,
			MinSources:      1,
			ConfidenceBoost: 0.3,
			CorrelationKind: "panic_beacon",
			EventType:       "emergency_alert",
			Severity:        "critical",
		},
		{
			Name:            "crowd_hazard",
			EligibleSources: kinds(SourceCrowd, SourceEnvironmental),
			Window:          120 * time.Second,
			Radius:          300,
			MinSources:      2,
			ConfidenceBoost: 0.15,
			CorrelationKind: "crowd_environmental",
			EventType:       "crowd_hazard",
			Severity:        "high",
		},
		{
			Name:            "vehicle_incident",
			EligibleSources: kinds(SourceLPR),
			Window:          60 * time.Second,
			Radius:          500,
			MinSources:      1,
			ConfidenceBoost: 0.0,
			CorrelationKind: "lpr_only",
			EventType:       "vehicle_incident",
			Severity:        "normal",
		},
	}
}

func kinds(ks ...SourceKind) map[SourceKind]struct{} {
	m := make(map[SourceKind]struct{}, len(ks))
	for _, k := range ks {
		m[k] = struct{}{}
	}
	return m
}

func eventConfidence(e RawEvent) float64 {
	switch p := e.Payload.(type) {
	case GunshotPayload:
		return p.Confidence
	case LPRPayload:
		return p.Confidence
	default:
		return 0.7
	}
}

// Engine correlates incoming raw events into fused events according to a
// configured rule set. Ingest holds an internal mutex for the whole call,
// so concurrent callers are serialized.
type Engine struct {
	mu               sync.Mutex
	rules            []Rule
	pending          map[string][]pendingSource
	active           map[string]*FusedEvent
	autoVerifyAt     float64
	now              func() time.Time
}

// NewEngine creates a correlation engine with the given rules and
// auto-verify threshold.
func NewEngine(rules []Rule, autoVerifyThreshold float64) *Engine {
	return &Engine{
		rules:        rules,
		pending:      make(map[string][]pendingSource),
		active:       make(map[string]*FusedEvent),
		autoVerifyAt: autoVerifyThreshold,
		now:          time.Now,
	}
}

// Ingest considers a newly arrived raw event for fusion. It returns the
// created-or-extended FusedEvent, or nil if no rule's minimum source count
// was met yet.
func (e *Engine) Ingest(event RawEvent) *FusedEvent {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	e.evictExpired(now)

	for i := range e.rules {
		rule := &e.rules[i]
		if _, eligible := rule.EligibleSources[event.Source]; !eligible {
			continue
		}

		key := rule.Name
		e.pending[key] = append(e.pending[key], pendingSource{
			event:      event,
			confidence: eventConfidence(event),
			expiresAt:  now.Add(rule.Window),
		})

		matched := e.withinWindow(key, event, rule)
		if len(matched) < rule.MinSources {
			continue
		}

		if fused := e.findExtendable(key, matched); fused != nil {
			e.extend(fused, event, rule)
			return fused
		}
		return e.createFused(rule, matched)
	}

	return nil
}

// withinWindow returns every pending source for rule key within the
// rule's time and distance windows of event.
func (e *Engine) withinWindow(key string, event RawEvent, rule *Rule) []pendingSource {
	var matched []pendingSource
	for _, p := range e.pending[key] {
		if event.Location == nil || p.event.Location == nil {
			if p.event.EventID == event.EventID {
				matched = append(matched, p)
			}
			continue
		}
		dt := event.Timestamp.Sub(p.event.Timestamp)
		if dt < 0 {
			dt = -dt
		}
		if dt > rule.Window {
			continue
		}
		dist := geo.HaversineMeters(
			geo.Point{Lat: event.Location.Lat, Lon: event.Location.Lon},
			geo.Point{Lat: p.event.Location.Lat, Lon: p.event.Location.Lon},
		)
		if dist > rule.Radius {
			continue
		}
		matched = append(matched, p)
	}
	return matched
}

func (e *Engine) findExtendable(key string, matched []pendingSource) *FusedEvent {
	for _, p := range matched {
		for _, fused := range e.active {
			for _, ref := range fused.SourceRefs {
				if ref.EventID == p.event.EventID {
					return fused
				}
			}
		}
	}
	_ = key
	return nil
}

func (e *Engine) extend(fused *FusedEvent, event RawEvent, rule *Rule) {
	fused.SourceRefs = append(fused.SourceRefs, SourceRef{EventID: event.EventID, Source: event.Source, Kind: event.Kind})
	fused.sourceEvents = append(fused.sourceEvents, pendingSource{event: event, confidence: eventConfidence(event)})

	newConfidence := scoreConfidence(fused.sourceEvents, rule) + rule.ConfidenceBoost
	if newConfidence < fused.Confidence {
		newConfidence = fused.Confidence // confidence never decreases when a source is added
	}
	fused.Confidence = geo.Clamp(newConfidence, 0, 1)
	fused.CenterLocation, fused.Radius = recomputeCenter(fused.sourceEvents)
	fused.UpdatedAt = e.now()
	fused.Verified = fused.Confidence >= e.autoVerifyAt
}

func (e *Engine) createFused(rule *Rule, matched []pendingSource) *FusedEvent {
	now := e.now()
	refs := make([]SourceRef, 0, len(matched))
	for _, p := range matched {
		refs = append(refs, SourceRef{EventID: p.event.EventID, Source: p.event.Source, Kind: p.event.Kind})
	}

	center, radius := recomputeCenter(matched)
	confidence := geo.Clamp(scoreConfidence(matched, rule)+rule.ConfidenceBoost, 0, 1)

	fused := &FusedEvent{
		FusionID:        uuid.NewString(),
		CorrelationKind: rule.CorrelationKind,
		SourceRefs:      refs,
		CenterLocation:  center,
		Radius:          radius,
		Confidence:      confidence,
		Severity:        rule.Severity,
		CreatedAt:       now,
		UpdatedAt:       now,
		Verified:        confidence >= e.autoVerifyAt,
		sourceEvents:    append([]pendingSource{}, matched...),
	}
	e.active[fused.FusionID] = fused
	return fused
}

// scoreConfidence implements the specification's formula: mean of source
// confidences scaled by 0.5, plus 0.1 * (|sources| - 2), clamped to [0,1].
// The rule boost is added by the caller.
func scoreConfidence(sources []pendingSource, rule *Rule) float64 {
	if len(sources) == 0 {
		return 0
	}
	var total float64
	for _, s := range sources {
		total += s.confidence
	}
	mean := total / float64(len(sources))
	score := mean*0.5 + 0.1*float64(len(sources)-2)
	_ = rule
	return geo.Clamp(score, 0, 1)
}

func recomputeCenter(sources []pendingSource) (Location, float64) {
	var latSum, lonSum float64
	var n int
	for _, s := range sources {
		if s.event.Location == nil {
			continue
		}
		latSum += s.event.Location.Lat
		lonSum += s.event.Location.Lon
		n++
	}
	if n == 0 {
		return Location{}, 0
	}
	center := Location{Lat: latSum / float64(n), Lon: lonSum / float64(n)}

	var maxRadius float64
	for _, s := range sources {
		if s.event.Location == nil {
			continue
		}
		d := geo.HaversineMeters(geo.Point{Lat: center.Lat, Lon: center.Lon}, geo.Point{Lat: s.event.Location.Lat, Lon: s.event.Location.Lon})
		if d > maxRadius {
			maxRadius = d
		}
	}
	return center, maxRadius
}

func (e *Engine) evictExpired(now time.Time) {
	for key, sources := range e.pending {
		kept := sources[:0]
		for _, s := range sources {
			if now.Before(s.expiresAt) {
				kept = append(kept, s)
			}
		}
		e.pending[key] = kept
	}
}
