package guardrail

import "github.com/aldric144/rtcc-platform/pkg/geo"

// RiskFactors is the five-factor input to risk scoring, each on a 0-100
// scale.
type RiskFactors struct {
	LegalExposure           float64
	CivilRightsImpact       float64
	JurisdictionalAuthority float64
	OperationalConsequence  float64
	PoliticalRisk           float64
}

// RiskWeights weights each factor; the specification treats these as
// configuration, not a fixed formula.
type RiskWeights struct {
	LegalExposure           float64
	CivilRightsImpact       float64
	JurisdictionalAuthority float64
	OperationalConsequence  float64
	PoliticalRisk           float64
}

// DefaultRiskWeights returns a baseline weighting that sums to 1: 0.25
// each for legal exposure and civil-rights impact, 0.2 each for
// jurisdictional authority and operational consequence, and 0.1 for
// political risk.
func DefaultRiskWeights() RiskWeights {
	return RiskWeights{
		LegalExposure:           0.25,
		CivilRightsImpact:       0.25,
		JurisdictionalAuthority: 0.2,
		OperationalConsequence:  0.2,
		PoliticalRisk:           0.1,
	}
}

// RiskLevel buckets a 0-100 risk score into a named band.
type RiskLevel string

const (
	RiskLevelLow      RiskLevel = "low"
	RiskLevelElevated RiskLevel = "elevated"
	RiskLevelHigh     RiskLevel = "high"
	RiskLevelCritical RiskLevel = "critical"
)

// RiskBands is the configurable low/elevated/high/critical boundary set,
// each an inclusive upper bound.
type RiskBands struct {
	Low      float64
	Elevated float64
	High     float64
}

// DefaultRiskBands returns the specification's recommended bands:
// low <= 25 < elevated <= 50 < high <= 75 < critical.
func DefaultRiskBands() RiskBands {
	return RiskBands{Low: 25, Elevated: 50, High: 75}
}

// LevelFor buckets score into a RiskLevel using bands.
func (b RiskBands) LevelFor(score float64) RiskLevel {
	switch {
	case score <= b.Low:
		return RiskLevelLow
	case score <= b.Elevated:
		return RiskLevelElevated
	case score <= b.High:
		return RiskLevelHigh
	default:
		return RiskLevelCritical
	}
}

// Score computes the weighted 0-100 risk total for factors under weights.
func Score(factors RiskFactors, weights RiskWeights) float64 {
	total := factors.LegalExposure*weights.LegalExposure +
		factors.CivilRightsImpact*weights.CivilRightsImpact +
		factors.JurisdictionalAuthority*weights.JurisdictionalAuthority +
		factors.OperationalConsequence*weights.OperationalConsequence +
		factors.PoliticalRisk*weights.PoliticalRisk
	return geo.Clamp(total, 0, 100)
}
