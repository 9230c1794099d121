package continuity

import (
	"sync"
	"time"
)

// LatencySample is one timed observation fed to the predictive analyzer.
type LatencySample struct {
	LatencyMs float64
	Timestamp time.Time
}

// PredictiveAlert is emitted when a source's recent latency window
// degrades sharply against its older window, or its error rate clears
// threshold.
type PredictiveAlert struct {
	Source            string
	RecentMean        float64
	OlderMean         float64
	Ratio             float64
	ErrorRate         float64
	Indicators        []string
	RecommendedActions []string
	RaisedAt          time.Time
}

// PredictiveAnalyzer maintains a rolling latency window per source,
// generalizing the teacher's internal/ai/correlation.Detector pattern
// of retaining a bounded, time-trimmed event history per key and
// deriving a signal from it — here split into a recent half and an
// older half of the same window rather than a correlation graph, since
// the specification's signal is "did this source recently get
// slower/more error-prone," not "did these two sources co-occur."
type PredictiveAnalyzer struct {
	mu                 sync.Mutex
	windowSize         time.Duration
	ratioThreshold     float64 // k, recommended 2.0
	errorRateThreshold float64
	samples            map[string][]LatencySample
	errorRates         map[string]float64
	now                func() time.Time
}

// NewPredictiveAnalyzer creates an analyzer. windowSize is the total
// retained window; the recent/older split is the window's midpoint.
func NewPredictiveAnalyzer(windowSize time.Duration, ratioThreshold, errorRateThreshold float64) *PredictiveAnalyzer {
	if ratioThreshold <= 0 {
		ratioThreshold = 2.0
	}
	return &PredictiveAnalyzer{
		windowSize:         windowSize,
		ratioThreshold:     ratioThreshold,
		errorRateThreshold: errorRateThreshold,
		samples:            make(map[string][]LatencySample),
		errorRates:         make(map[string]float64),
		now:                time.Now,
	}
}

// RecordLatency folds one latency observation into source's rolling
// window and evaluates whether it now warrants a predictive alert.
func (p *PredictiveAnalyzer) RecordLatency(source string, latencyMs float64) *PredictiveAlert {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	p.samples[source] = append(p.samples[source], LatencySample{LatencyMs: latencyMs, Timestamp: now})
	p.trim(source)

	return p.evaluate(source)
}

// RecordErrorRate updates source's current error rate and evaluates
// whether it now warrants a predictive alert.
func (p *PredictiveAnalyzer) RecordErrorRate(source string, rate float64) *PredictiveAlert {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.errorRates[source] = rate
	return p.evaluate(source)
}

// trim drops samples older than windowSize. Caller holds mu.
func (p *PredictiveAnalyzer) trim(source string) {
	cutoff := p.now().Add(-p.windowSize)
	samples := p.samples[source]
	i := 0
	for i < len(samples) && samples[i].Timestamp.Before(cutoff) {
		i++
	}
	p.samples[source] = samples[i:]
}

// evaluate computes the recent/older split means and raises an alert if
// either the latency ratio or error rate clears threshold. Caller holds
// mu.
func (p *PredictiveAnalyzer) evaluate(source string) *PredictiveAlert {
	samples := p.samples[source]
	errorRate := p.errorRates[source]

	var recentMean, olderMean, ratio float64
	hasLatencySignal := false

	if len(samples) >= 4 {
		mid := p.now().Add(-p.windowSize / 2)
		var olderSum, recentSum float64
		var olderCount, recentCount int
		for _, s := range samples {
			if s.Timestamp.Before(mid) {
				olderSum += s.LatencyMs
				olderCount++
			} else {
				recentSum += s.LatencyMs
				recentCount++
			}
		}
		if olderCount > 0 && recentCount > 0 {
			olderMean = olderSum / float64(olderCount)
			recentMean = recentSum / float64(recentCount)
			if olderMean > 0 {
				ratio = recentMean / olderMean
				hasLatencySignal = true
			}
		}
	}

	latencyTripped := hasLatencySignal && ratio >= p.ratioThreshold
	errorTripped := errorRate > p.errorRateThreshold

	if !latencyTripped && !errorTripped {
		return nil
	}

	var indicators, actions []string
	if latencyTripped {
		indicators = append(indicators, "latency degrading relative to baseline")
		actions = append(actions, "inspect recent deploys/config changes for "+source, "consider manual failover if degradation persists")
	}
	if errorTripped {
		indicators = append(indicators, "error rate above threshold")
		actions = append(actions, "check upstream dependency health for "+source)
	}

	return &PredictiveAlert{
		Source:             source,
		RecentMean:         recentMean,
		OlderMean:          olderMean,
		Ratio:              ratio,
		ErrorRate:          errorRate,
		Indicators:         indicators,
		RecommendedActions: actions,
		RaisedAt:           p.now(),
	}
}
