// Package fusion implements the Event Fusion Pipeline: entity resolution,
// multi-source correlation, fused-event lifecycle, and anomaly detection
// over the normalized raw-event stream.
package fusion

import "time"

// SourceKind enumerates the accepted normalized inbound event sources.
type SourceKind string

const (
	SourceCAD           SourceKind = "cad"
	SourceLPR           SourceKind = "lpr"
	SourceGunshot       SourceKind = "gunshot"
	SourceBWC           SourceKind = "bwc"
	SourceSensor        SourceKind = "sensor"
	SourcePanic         SourceKind = "panic"
	SourceEnvironmental SourceKind = "environmental"
	SourceCrowd         SourceKind = "crowd"
	SourceVitals        SourceKind = "vitals"
	SourceTranscript    SourceKind = "transcript"
)

// Location is a point with optional altitude.
type Location struct {
	Lat      float64  `json:"lat"`
	Lon      float64  `json:"lon"`
	Altitude *float64 `json:"altitude,omitempty"`
}

// RawEvent is one immutable, normalized inbound event. Payload is a
// discriminated union selected by Kind; Attributes carries only the
// residual opaque vendor fields the typed payload does not interpret.
type RawEvent struct {
	EventID    string         `json:"event_id"`
	Source     SourceKind     `json:"source"`
	Kind       string         `json:"kind"`
	Timestamp  time.Time      `json:"timestamp"`
	IngestTime time.Time      `json:"ingest_time"`
	Location   *Location      `json:"location,omitempty"`
	Payload    any            `json:"payload"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// DedupKey returns the source-qualified event id (source:event_id).
// Nothing on the ingest path calls it, and the pipeline does not
// deduplicate: an event submitted twice with the same event_id is
// ingested twice.
func (e RawEvent) DedupKey() string {
	return string(e.Source) + ":" + e.EventID
}

// CanonicalID returns entityID, or legacyID when entityID is empty.
// Nothing on the ingest path calls it, so incoming events are not
// rewritten.
func CanonicalID(entityID, legacyID string) string {
	if entityID != "" {
		return entityID
	}
	return legacyID
}

// GunshotPayload is the typed payload for SourceGunshot events.
type GunshotPayload struct {
	Rounds     int     `json:"rounds"`
	Confidence float64 `json:"confidence"`
}

// LPRPayload is the typed payload for SourceLPR events.
type LPRPayload struct {
	Plate      string  `json:"plate"`
	State      string  `json:"state,omitempty"`
	Confidence float64 `json:"confidence"`
}

// PanicPayload is the typed payload for SourcePanic (panic beacon) events.
type PanicPayload struct {
	OfficerID string `json:"officer_id,omitempty"`
	BeaconID  string `json:"beacon_id,omitempty"`
}

// CrowdPayload is the typed payload for SourceCrowd events.
type CrowdPayload struct {
	EstimatedSize int     `json:"estimated_size"`
	Density       float64 `json:"density"`
}

// EnvironmentalPayload is the typed payload for SourceEnvironmental events.
type EnvironmentalPayload struct {
	HazardType string  `json:"hazard_type"`
	Reading    float64 `json:"reading"`
}

// EntityType enumerates the resolvable entity categories.
type EntityType string

const (
	EntityPerson    EntityType = "person"
	EntityVehicle   EntityType = "vehicle"
	EntityIncident  EntityType = "incident"
	EntityAddress   EntityType = "address"
	EntityGeneric   EntityType = "generic"
)

// ConfidenceBand buckets a resolution confidence score.
type ConfidenceBand string

const (
	ConfidenceHigh   ConfidenceBand = "high"
	ConfidenceMedium ConfidenceBand = "medium"
	ConfidenceLow    ConfidenceBand = "low"
)

// BandFor returns the confidence band for a similarity score.
func BandFor(score float64) ConfidenceBand {
	switch {
	case score >= 0.90:
		return ConfidenceHigh
	case score >= 0.80:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// Record is one same-type input to entity resolution: the attribute set
// used by the weighted similarity functions, keyed loosely so callers can
// supply whichever fields they have for a given source.
type Record struct {
	ID         string
	Type       EntityType
	Attributes map[string]string
	Location   *Location
}

// ResolvedEntity is a cluster of same-type records believed to refer to
// the same real-world entity.
type ResolvedEntity struct {
	EntityID          string         `json:"entity_id"`
	Type              EntityType     `json:"type"`
	CanonicalAttrs    map[string]string `json:"canonical_attributes"`
	AliasSet          []string       `json:"alias_set"`
	MergeCandidates   []string       `json:"merge_candidates"`
	Confidence        float64        `json:"confidence"`
	SourceIDs         []string       `json:"source_ids"`
}

// SourceRef is a lightweight pointer to a RawEvent, avoiding the cyclic
// fusion<->source reference the design notes flag.
type SourceRef struct {
	EventID string     `json:"event_id"`
	Source  SourceKind `json:"source"`
	Kind    string     `json:"kind"`
}

// FusedEvent is a single event produced from multiple correlated raw events.
type FusedEvent struct {
	FusionID        string      `json:"fusion_id"`
	CorrelationKind string      `json:"correlation_kind"`
	SourceRefs      []SourceRef `json:"sources"`
	CenterLocation  Location    `json:"center_location"`
	Radius          float64     `json:"radius"`
	Confidence      float64     `json:"confidence"`
	Severity        string      `json:"severity"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
	Verified        bool        `json:"verified"`
	IncidentID      string      `json:"incident_id,omitempty"`

	// internal bookkeeping, not part of the wire contract
	sourceEvents []pendingSource
}

// pendingSource pairs a raw event with the time/location it arrived with,
// used internally while scanning for correlation windows.
type pendingSource struct {
	event      RawEvent
	confidence float64
	expiresAt  time.Time
}
