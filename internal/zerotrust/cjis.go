package zerotrust

import (
	"sync"
	"time"
)

// QueryRecord is one regulated-data query CJIS requires an audit entry
// for.
type QueryRecord struct {
	TransactionID   string
	UserID          string
	Purpose         string
	Parameters      map[string]any // masked by caller via internal/audit before persistence
	ResponseSummary string
	CaseNumber      string
	Timestamp       time.Time
}

// SuspicionFlag names a suspicious-query heuristic that fired.
type SuspicionFlag string

const (
	FlagRateBurst           SuspicionFlag = "rate_burst"
	FlagSensitiveNoCaseNum  SuspicionFlag = "sensitive_without_case_number"
)

// SuspicionReview is a query flagged for supervisor attention.
type SuspicionReview struct {
	Record QueryRecord
	Flags  []SuspicionFlag
}

// QueryAuditor evaluates CJIS query heuristics: a burst of queries from
// one user in a short window, or a sensitive query submitted without a
// case number to justify it.
type QueryAuditor struct {
	mu               sync.Mutex
	burstWindow      time.Duration
	burstThreshold   int
	sensitivePurposes map[string]struct{}
	recent           map[string][]time.Time // userID -> recent query times
	now              func() time.Time
}

// NewQueryAuditor creates an auditor. sensitivePurposes names the query
// purposes treated as regulated enough to require a case number.
func NewQueryAuditor(burstWindow time.Duration, burstThreshold int, sensitivePurposes []string) *QueryAuditor {
	set := make(map[string]struct{}, len(sensitivePurposes))
	for _, p := range sensitivePurposes {
		set[p] = struct{}{}
	}
	return &QueryAuditor{
		burstWindow:       burstWindow,
		burstThreshold:    burstThreshold,
		sensitivePurposes: set,
		recent:            make(map[string][]time.Time),
		now:               time.Now,
	}
}

// Evaluate records the query for burst tracking and returns a
// SuspicionReview if any heuristic fired, nil otherwise.
func (a *QueryAuditor) Evaluate(record QueryRecord) *SuspicionReview {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.now()
	if record.Timestamp.IsZero() {
		record.Timestamp = now
	}

	var flags []SuspicionFlag

	history := append(a.recent[record.UserID], now)
	cutoff := now.Add(-a.burstWindow)
	trimmed := history[:0]
	for _, t := range history {
		if !t.Before(cutoff) {
			trimmed = append(trimmed, t)
		}
	}
	a.recent[record.UserID] = trimmed
	if len(trimmed) >= a.burstThreshold {
		flags = append(flags, FlagRateBurst)
	}

	if _, sensitive := a.sensitivePurposes[record.Purpose]; sensitive && record.CaseNumber == "" {
		flags = append(flags, FlagSensitiveNoCaseNum)
	}

	if len(flags) == 0 {
		return nil
	}
	return &SuspicionReview{Record: record, Flags: flags}
}
