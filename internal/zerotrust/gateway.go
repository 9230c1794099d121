package zerotrust

import (
	"time"

	wildcard "github.com/IGLOU-EU/go-wildcard/v2"
)

// ScoreWeights configures the five contributing scores' weights, which
// the specification requires to sum to 1.
type ScoreWeights struct {
	IPAllowlist       float64
	GeoRestriction    float64
	TokenValidity     float64
	RolePermissions   float64
	DeviceFingerprint float64
}

// DefaultScoreWeights returns a weighting that sums to 1: 0.25 each for
// token validity and role permissions, 0.2 each for the IP allowlist and
// geo restriction, and 0.1 for the device fingerprint.
func DefaultScoreWeights() ScoreWeights {
	return ScoreWeights{
		IPAllowlist:       0.20,
		GeoRestriction:    0.20,
		TokenValidity:     0.25,
		RolePermissions:   0.25,
		DeviceFingerprint: 0.10,
	}
}

// NetworkPolicy configures IP/geo hard-fail rules.
type NetworkPolicy struct {
	AllowedNetworks []string // CIDR or plain IPs the IP-allowlist score checks
	AllowedCountries []string
	AllowedStates    []string
}

// Gateway evaluates requests against role policy and network policy,
// generalizing the teacher's cmd/pulse-sensor-proxy authorizePeer
// allow-list-lookup-then-capability-return shape (check an identity
// against an allow-list, return granted capabilities or a denial) from
// a single UID/GID lookup into five independently-scored, independently
// hard-failing factors.
type Gateway struct {
	weights ScoreWeights
	network NetworkPolicy
	roles   map[string]Role
	now     func() time.Time
}

// NewGateway creates a gateway over the given roles.
func NewGateway(weights ScoreWeights, network NetworkPolicy, roles []Role) *Gateway {
	roleMap := make(map[string]Role, len(roles))
	for _, r := range roles {
		roleMap[r.Name] = r
	}
	return &Gateway{weights: weights, network: network, roles: roleMap, now: time.Now}
}

// Evaluate scores req and returns the gateway's decision.
func (g *Gateway) Evaluate(req RequestContext) AccessResult {
	now := g.now()

	if !req.TokenValid {
		return g.denied(now, "invalid token")
	}
	if !g.ipAllowed(req.SourceIP) {
		return g.denied(now, "source IP not in allowed networks")
	}
	if !g.countryAllowed(req.Country) {
		return g.denied(now, "country "+req.Country+" not permitted")
	}
	if !g.stateAllowed(req.State) {
		return g.denied(now, "state "+req.State+" not permitted")
	}

	role, ok := g.roles[req.Role]
	if !ok {
		return g.denied(now, "unknown role "+req.Role)
	}

	breakdown := ScoreBreakdown{
		IPAllowlist:       g.weights.IPAllowlist,
		GeoRestriction:    g.weights.GeoRestriction,
		TokenValidity:     g.weights.TokenValidity,
		RolePermissions:   g.rolePermissionScore(role, req.Resource),
		DeviceFingerprint: g.deviceScore(role, req),
	}

	total := breakdown.Total()
	result := AccessResult{Score: total, Breakdown: breakdown, EvaluatedAt: now}
	result.Decision = classify(total)

	if result.Decision == DecisionAllow && g.outstandingVerification(role, req) {
		result.Decision = DecisionChallenge
	}
	return result
}

// classify maps a total score to a decision band per the specification's
// thresholds.
func classify(score float64) Decision {
	switch {
	case score >= 0.70:
		return DecisionAllow
	case score >= 0.50:
		return DecisionChallenge
	case score >= 0.40:
		return DecisionRequireMFA
	default:
		return DecisionDeny
	}
}

func (g *Gateway) denied(now time.Time, reason string) AccessResult {
	return AccessResult{Decision: DecisionDeny, HardFailReason: reason, EvaluatedAt: now}
}

func (g *Gateway) ipAllowed(ip string) bool {
	if len(g.network.AllowedNetworks) == 0 {
		return true
	}
	for _, pattern := range g.network.AllowedNetworks {
		if wildcard.Match(pattern, ip) {
			return true
		}
	}
	return false
}

func (g *Gateway) countryAllowed(country string) bool {
	return allowedOrUnrestricted(g.network.AllowedCountries, country)
}

func (g *Gateway) stateAllowed(state string) bool {
	return allowedOrUnrestricted(g.network.AllowedStates, state)
}

func allowedOrUnrestricted(allowed []string, value string) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, a := range allowed {
		if a == value {
			return true
		}
	}
	return false
}

// rolePermissionScore returns the role-permissions weight in full when
// resource matches one of the role's glob patterns, zero otherwise.
func (g *Gateway) rolePermissionScore(role Role, resource string) float64 {
	for _, pattern := range role.AllowedResources {
		if wildcard.Match(pattern, resource) {
			return g.weights.RolePermissions
		}
	}
	return 0
}

// deviceScore returns the full device-fingerprint weight when the
// device is verified, and when managed-device is required, also
// enrolled as managed; otherwise a partial credit for a present but
// unverified fingerprint.
func (g *Gateway) deviceScore(role Role, req RequestContext) float64 {
	if req.DeviceVerified && (!role.RequireManagedDevice || req.DeviceManaged) {
		return g.weights.DeviceFingerprint
	}
	if req.DeviceFingerprint != "" {
		return g.weights.DeviceFingerprint / 2
	}
	return 0
}

// outstandingVerification reports whether an otherwise-allowed request
// still owes an MFA or device verification step, downgrading allow to
// challenge.
func (g *Gateway) outstandingVerification(role Role, req RequestContext) bool {
	if role.RequireMFA && !req.MFAVerified {
		return true
	}
	if role.RequireManagedDevice && !req.DeviceVerified {
		return true
	}
	return false
}

// RoleFor returns a configured role by name.
func (g *Gateway) RoleFor(name string) (Role, bool) {
	r, ok := g.roles[name]
	return r, ok
}
