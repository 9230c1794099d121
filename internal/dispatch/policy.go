package dispatch

import (
	"regexp"

	"github.com/aldric144/rtcc-platform/pkg/geo"
)

// DangerousKeywordPolicy matches text against configured dangerous
// keywords, generalizing the teacher's regex-pattern command policy
// (internal/agentexec/policy.go) from shell command text to actuator
// command free-text fields (e.g. an `announce` message or `goto` label).
// Engine builds one from Config.DangerousKeywords but does not consult
// it when evaluating triggers or submitting commands.
type DangerousKeywordPolicy struct {
	patterns []*regexp.Regexp
}

// NewDangerousKeywordPolicy compiles the configured keyword patterns.
// Each keyword is matched case-insensitively as a substring.
func NewDangerousKeywordPolicy(keywords []string) *DangerousKeywordPolicy {
	p := &DangerousKeywordPolicy{}
	for _, kw := range keywords {
		p.patterns = append(p.patterns, regexp.MustCompile(`(?i)`+regexp.QuoteMeta(kw)))
	}
	return p
}

// MatchesAny reports whether text trips any configured dangerous
// keyword.
func (p *DangerousKeywordPolicy) MatchesAny(text string) bool {
	for _, re := range p.patterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// ClampEnvelope clamps a motion command's altitude and speed into the
// actuator's safe operating envelope and verifies any waypoint lies
// within the geofence polygon (when enabled). It returns the clamped
// parameters and, if the geofence rejects the waypoint, a non-empty
// violation reason.
func ClampEnvelope(env Envelope, params CommandParameters) (CommandParameters, string) {
	clamped := params
	clamped.TargetAltitudeM = geo.Clamp(params.TargetAltitudeM, env.MinAltitudeM, env.MaxAltitudeM)
	if env.MaxSpeedMPS > 0 {
		clamped.SpeedMPS = geo.Clamp(params.SpeedMPS, 0, env.MaxSpeedMPS)
	}

	if env.GeofenceOn && len(env.Geofence) > 0 {
		if !env.Geofence.ContainsBoundary(params.Waypoint) {
			return clamped, ReasonEnvelopeViolation
		}
	}

	return clamped, ""
}

// producesMotion reports whether a command type moves the actuator
// and therefore requires envelope clamping.
func producesMotion(t string) bool {
	switch t {
	case "goto", "patrol", "follow", "orbit", "track", "search", "takeoff", "land", "return_home":
		return true
	default:
		return false
	}
}
