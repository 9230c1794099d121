package fusion

import (
	"fmt"
	"math"
	"time"
)

// BaselineKey identifies a rolling baseline bucket.
type BaselineKey struct {
	Zone      string
	HourOfWeek int // 0-167, hour within the week
}

func (k BaselineKey) String() string {
	return fmt.Sprintf("%s/%d", k.Zone, k.HourOfWeek)
}

// Baseline is the online (Welford's method) rolling statistic for one
// (zone, hour-of-week) bucket.
type Baseline struct {
	Count int64
	Mean  float64
	M2    float64
	Peak  float64
}

// StdDev returns the baseline's sample standard deviation.
func (b Baseline) StdDev() float64 {
	if b.Count < 2 {
		return 0
	}
	return math.Sqrt(b.M2 / float64(b.Count-1))
}

// Update folds one new observation into the baseline using Welford's
// method, which lets the baseline update online without retaining full
// history.
func (b *Baseline) Update(value float64) {
	b.Count++
	delta := value - b.Mean
	b.Mean += delta / float64(b.Count)
	delta2 := value - b.Mean
	b.M2 += delta * delta2
	if value > b.Peak {
		b.Peak = value
	}
}

// HourOfWeek converts a timestamp to the 0-167 bucket used by BaselineKey.
func HourOfWeek(t time.Time) int {
	return int(t.Weekday())*24 + t.Hour()
}

// BaselineStore persists rolling baselines so anomaly detection remains
// well-defined across restarts, per the specification's requirement that
// baseline durability survive process restart. Implementations must be
// safe for concurrent use.
type BaselineStore interface {
	Get(key BaselineKey) (Baseline, bool, error)
	Put(key BaselineKey, b Baseline) error
}

// AnomalySeverity grades how far an observation exceeded its baseline.
type AnomalySeverity string

const (
	AnomalyLow      AnomalySeverity = "low"
	AnomalyModerate AnomalySeverity = "moderate"
	AnomalyHigh     AnomalySeverity = "high"
	AnomalyCritical AnomalySeverity = "critical"
)

// AnomalyResult is one observation that exceeded its baseline.
type AnomalyResult struct {
	Key       BaselineKey
	Value     float64
	Mean      float64
	StdDev    float64
	Sigmas    float64
	Severity  AnomalySeverity
}

func severityForSigmas(sigmas float64) AnomalySeverity {
	switch {
	case sigmas >= 5:
		return AnomalyCritical
	case sigmas >= 4:
		return AnomalyHigh
	case sigmas >= 3:
		return AnomalyModerate
	default:
		return AnomalyLow
	}
}

// Detector scores a batch of observations against persisted baselines and
// folds each observation into its baseline afterward, so the baseline
// keeps adapting online.
type Detector struct {
	store  BaselineStore
	kSigma float64
}

// NewDetector creates a Detector backed by store, flagging observations
// beyond mean + kSigma*stddev.
func NewDetector(store BaselineStore, kSigma float64) *Detector {
	return &Detector{store: store, kSigma: kSigma}
}

// Observation is one input to a scoring batch.
type Observation struct {
	Key   BaselineKey
	Value float64
}

// Score evaluates a batch of observations against their baselines,
// returning anomalies for any observation exceeding mean + kSigma*stddev,
// and updates every baseline with its observation regardless of whether
// it was flagged.
func (d *Detector) Score(observations []Observation) ([]AnomalyResult, error) {
	var anomalies []AnomalyResult

	for _, obs := range observations {
		baseline, _, err := d.store.Get(obs.Key)
		if err != nil {
			return nil, err
		}

		if baseline.Count >= 2 {
			threshold := baseline.Mean + d.kSigma*baseline.StdDev()
			if obs.Value > threshold && baseline.StdDev() > 0 {
				sigmas := (obs.Value - baseline.Mean) / baseline.StdDev()
				anomalies = append(anomalies, AnomalyResult{
					Key:      obs.Key,
					Value:    obs.Value,
					Mean:     baseline.Mean,
					StdDev:   baseline.StdDev(),
					Sigmas:   sigmas,
					Severity: severityForSigmas(sigmas),
				})
			}
		}

		baseline.Update(obs.Value)
		if err := d.store.Put(obs.Key, baseline); err != nil {
			return nil, err
		}
	}

	return anomalies, nil
}
