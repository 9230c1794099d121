package continuity

import (
	"testing"
	"time"
)

func TestClassify_BinsEventsByKeyword(t *testing.T) {
	c := NewClassifier(time.Second, 0.1)

	cases := []struct {
		source, message string
		want            DiagnosticCategory
	}{
		{"auth-service", "token validation failed", CategoryAuthentication},
		{"redis-cache", "cache miss storm", CategoryCache},
		{"ncic-gateway", "federal lookup timeout", CategoryFederal},
		{"unrecognized-widget", "something odd happened", CategoryPerformance},
	}
	for _, tc := range cases {
		got := c.Classify(RawDiagnosticEvent{Source: tc.source, Message: tc.message})
		if got.Category != tc.want {
			t.Errorf("source=%s message=%s: expected category %s, got %s", tc.source, tc.message, tc.want, got.Category)
		}
	}
}

func TestClassify_FlagsSlowQueryAboveThreshold(t *testing.T) {
	c := NewClassifier(500*time.Millisecond, 0.1)

	fast := c.Classify(RawDiagnosticEvent{Source: "database", Duration: 100 * time.Millisecond})
	if fast.SlowQuery {
		t.Fatal("expected a fast query not to be flagged slow")
	}

	slow := c.Classify(RawDiagnosticEvent{Source: "database", Duration: time.Second})
	if !slow.SlowQuery || slow.Severity != DiagnosticWarning {
		t.Fatalf("expected a slow query to be flagged with warning severity, got %+v", slow)
	}
}

func TestClassify_EscalatesSeverityOnHighErrorRate(t *testing.T) {
	c := NewClassifier(time.Second, 0.05)
	ce := c.Classify(RawDiagnosticEvent{Source: "queue", ErrorRate: 0.5})
	if ce.Severity != DiagnosticCritical {
		t.Fatalf("expected a high error rate to escalate to critical, got %s", ce.Severity)
	}
}
