package continuity

import (
	"strings"
	"time"
)

// DiagnosticCategory bins a diagnostic event by subsystem.
type DiagnosticCategory string

const (
	CategoryNetwork        DiagnosticCategory = "network"
	CategoryDatabase       DiagnosticCategory = "database"
	CategoryFederal        DiagnosticCategory = "federal"
	CategoryVendor         DiagnosticCategory = "vendor"
	CategoryCache          DiagnosticCategory = "cache"
	CategoryQueue          DiagnosticCategory = "queue"
	CategoryWebsocket      DiagnosticCategory = "websocket"
	CategoryETL            DiagnosticCategory = "etl"
	CategoryEngine         DiagnosticCategory = "engine"
	CategoryAuthentication DiagnosticCategory = "authentication"
	CategoryConfiguration  DiagnosticCategory = "configuration"
	CategoryResource       DiagnosticCategory = "resource"
	CategoryPerformance    DiagnosticCategory = "performance"
)

// DiagnosticSeverity grades a classified event.
type DiagnosticSeverity string

const (
	DiagnosticInfo     DiagnosticSeverity = "info"
	DiagnosticWarning  DiagnosticSeverity = "warning"
	DiagnosticCritical DiagnosticSeverity = "critical"
)

// RawDiagnosticEvent is an unclassified event fed to the classifier.
type RawDiagnosticEvent struct {
	Source    string
	Message   string
	Duration  time.Duration // zero when not a timed operation
	ErrorRate float64       // 0 when not an error-rate sample
	Timestamp time.Time
}

// ClassifiedEvent is a RawDiagnosticEvent binned into a category and
// severity.
type ClassifiedEvent struct {
	RawDiagnosticEvent
	Category DiagnosticCategory
	Severity DiagnosticSeverity
	SlowQuery bool
}

// Classifier bins raw diagnostic events by keyword matching against
// their source/message, the teacher-style simplest-rule-that-fits
// approach used throughout this pack's classification code (matched
// first rule wins, default falls through to a catch-all category).
type Classifier struct {
	slowQueryThreshold time.Duration
	errorRateThreshold float64
	rules              []classifyRule
}

type classifyRule struct {
	category DiagnosticCategory
	keywords []string
}

// DefaultClassifyRules returns the specification's named categories,
// each keyed by the keywords most likely to appear in that subsystem's
// log source/message.
func DefaultClassifyRules() []classifyRule {
	return []classifyRule{
		{CategoryNetwork, []string{"network", "dns", "tcp", "timeout connecting"}},
		{CategoryDatabase, []string{"database", "sql", "query", "postgres", "sqlite"}},
		{CategoryFederal, []string{"ncic", "nlets", "federal"}},
		{CategoryVendor, []string{"vendor", "third-party", "upstream api"}},
		{CategoryCache, []string{"cache", "redis"}},
		{CategoryQueue, []string{"queue", "dead letter", "broker"}},
		{CategoryWebsocket, []string{"websocket", "ws:"}},
		{CategoryETL, []string{"etl", "ingest", "pipeline"}},
		{CategoryEngine, []string{"engine", "fusion", "correlation"}},
		{CategoryAuthentication, []string{"auth", "token", "credential", "login"}},
		{CategoryConfiguration, []string{"config", "hot-reload", "snapshot"}},
		{CategoryResource, []string{"memory", "cpu", "disk", "resource"}},
	}
}

// NewClassifier creates a classifier with the given slow-query and
// error-rate thresholds.
func NewClassifier(slowQueryThreshold time.Duration, errorRateThreshold float64) *Classifier {
	return &Classifier{
		slowQueryThreshold: slowQueryThreshold,
		errorRateThreshold: errorRateThreshold,
		rules:              DefaultClassifyRules(),
	}
}

// Classify bins one raw event.
func (c *Classifier) Classify(event RawDiagnosticEvent) ClassifiedEvent {
	ce := ClassifiedEvent{RawDiagnosticEvent: event, Category: CategoryPerformance, Severity: DiagnosticInfo}

	for _, rule := range c.rules {
		if matchesAny(event.Source, event.Message, rule.keywords) {
			ce.Category = rule.category
			break
		}
	}

	if event.Duration > 0 && event.Duration > c.slowQueryThreshold {
		ce.SlowQuery = true
		ce.Category = CategoryPerformance
		ce.Severity = DiagnosticWarning
	}
	if event.ErrorRate > 0 && event.ErrorRate > c.errorRateThreshold {
		ce.Severity = DiagnosticCritical
	}
	return ce
}

func matchesAny(source, message string, keywords []string) bool {
	source, message = strings.ToLower(source), strings.ToLower(message)
	for _, kw := range keywords {
		if strings.Contains(source, kw) || strings.Contains(message, kw) {
			return true
		}
	}
	return false
}
