package guardrail

import "math"

// GroupOutcome is one demographic group's observed AI-output outcomes,
// the raw counts the five fairness metrics are computed from.
type GroupOutcome struct {
	Group            string
	Total            int
	Positives        int // flagged/actioned count
	ActualPositives  int // ground-truth positive count, for TPR
	TruePositives    int
	ActualNegatives  int // ground-truth negative count, for FPR
	FalsePositives   int
	CalibrationScore float64 // mean predicted-probability vs observed-rate gap, 0 = perfectly calibrated
}

func (g GroupOutcome) positiveRate() float64 {
	if g.Total == 0 {
		return 0
	}
	return float64(g.Positives) / float64(g.Total)
}

func (g GroupOutcome) truePositiveRate() float64 {
	if g.ActualPositives == 0 {
		return 0
	}
	return float64(g.TruePositives) / float64(g.ActualPositives)
}

func (g GroupOutcome) falsePositiveRate() float64 {
	if g.ActualNegatives == 0 {
		return 0
	}
	return float64(g.FalsePositives) / float64(g.ActualNegatives)
}

// MetricResult is one fairness metric's computed value and pass/fail
// verdict against its configured threshold.
type MetricResult struct {
	Name      string
	Value     float64
	Threshold float64
	Pass      bool
}

// BiasStatus is the overall rollup across every fairness metric.
type BiasStatus string

const (
	NoBias                BiasStatus = "no_bias"
	PossibleBiasReview    BiasStatus = "possible_bias_review"
	BiasDetectedBlocked   BiasStatus = "bias_detected_blocked"
)

// FairnessReport is the full fairness evaluation for one AI-output batch.
type FairnessReport struct {
	ReferenceGroup string
	Metrics        []MetricResult
	FailingCount   int
	Status         BiasStatus
}

// FairnessThresholds configures the five metric pass thresholds; the
// specification's recommended defaults are returned by
// DefaultFairnessThresholds.
type FairnessThresholds struct {
	DisparateImpactMin      float64 // pass when ratio >= this
	DemographicParityMax    float64 // pass when |diff| <= this
	EqualOpportunityMax     float64
	PredictiveEqualityMax   float64
	CalibrationMax          float64
}

// DefaultFairnessThresholds returns the specification's recommended
// thresholds: disparate impact >= 0.8, all parity differences <= 0.1.
func DefaultFairnessThresholds() FairnessThresholds {
	return FairnessThresholds{
		DisparateImpactMin:    0.8,
		DemographicParityMax:  0.1,
		EqualOpportunityMax:   0.1,
		PredictiveEqualityMax: 0.1,
		CalibrationMax:        0.1,
	}
}

// EvaluateFairness computes the five fairness metrics for groups against
// referenceGroup and rolls them up into a BiasStatus: 0 failing metrics
// is no_bias, 1-2 is possible_bias_review, 3 or more is
// bias_detected_blocked.
func EvaluateFairness(groups []GroupOutcome, referenceGroup string, thresholds FairnessThresholds) FairnessReport {
	report := FairnessReport{ReferenceGroup: referenceGroup}

	var ref *GroupOutcome
	for i := range groups {
		if groups[i].Group == referenceGroup {
			ref = &groups[i]
			break
		}
	}
	if ref == nil {
		report.Status = NoBias
		return report
	}

	report.Metrics = append(report.Metrics, disparateImpact(groups, *ref, thresholds.DisparateImpactMin))
	report.Metrics = append(report.Metrics, demographicParity(groups, *ref, thresholds.DemographicParityMax))
	report.Metrics = append(report.Metrics, equalOpportunity(groups, *ref, thresholds.EqualOpportunityMax))
	report.Metrics = append(report.Metrics, predictiveEquality(groups, *ref, thresholds.PredictiveEqualityMax))
	report.Metrics = append(report.Metrics, calibrationFairness(groups, *ref, thresholds.CalibrationMax))

	for _, m := range report.Metrics {
		if !m.Pass {
			report.FailingCount++
		}
	}

	switch {
	case report.FailingCount == 0:
		report.Status = NoBias
	case report.FailingCount <= 2:
		report.Status = PossibleBiasReview
	default:
		report.Status = BiasDetectedBlocked
	}

	return report
}

func disparateImpact(groups []GroupOutcome, ref GroupOutcome, threshold float64) MetricResult {
	refRate := ref.positiveRate()
	worst := 1.0
	if refRate > 0 {
		for _, g := range groups {
			if g.Group == ref.Group {
				continue
			}
			ratio := g.positiveRate() / refRate
			if ratio < worst {
				worst = ratio
			}
		}
	}
	return MetricResult{Name: "disparate_impact_ratio", Value: worst, Threshold: threshold, Pass: worst >= threshold}
}

func demographicParity(groups []GroupOutcome, ref GroupOutcome, threshold float64) MetricResult {
	maxDiff := 0.0
	for _, g := range groups {
		if g.Group == ref.Group {
			continue
		}
		diff := math.Abs(g.positiveRate() - ref.positiveRate())
		if diff > maxDiff {
			maxDiff = diff
		}
	}
	return MetricResult{Name: "demographic_parity_difference", Value: maxDiff, Threshold: threshold, Pass: maxDiff <= threshold}
}

func equalOpportunity(groups []GroupOutcome, ref GroupOutcome, threshold float64) MetricResult {
	maxDiff := 0.0
	for _, g := range groups {
		if g.Group == ref.Group {
			continue
		}
		diff := math.Abs(g.truePositiveRate() - ref.truePositiveRate())
		if diff > maxDiff {
			maxDiff = diff
		}
	}
	return MetricResult{Name: "equal_opportunity_difference", Value: maxDiff, Threshold: threshold, Pass: maxDiff <= threshold}
}

func predictiveEquality(groups []GroupOutcome, ref GroupOutcome, threshold float64) MetricResult {
	maxDiff := 0.0
	for _, g := range groups {
		if g.Group == ref.Group {
			continue
		}
		diff := math.Abs(g.falsePositiveRate() - ref.falsePositiveRate())
		if diff > maxDiff {
			maxDiff = diff
		}
	}
	return MetricResult{Name: "predictive_equality_difference", Value: maxDiff, Threshold: threshold, Pass: maxDiff <= threshold}
}

func calibrationFairness(groups []GroupOutcome, ref GroupOutcome, threshold float64) MetricResult {
	maxDiff := 0.0
	for _, g := range groups {
		if g.Group == ref.Group {
			continue
		}
		diff := math.Abs(g.CalibrationScore - ref.CalibrationScore)
		if diff > maxDiff {
			maxDiff = diff
		}
	}
	return MetricResult{Name: "calibration_fairness_difference", Value: maxDiff, Threshold: threshold, Pass: maxDiff <= threshold}
}
