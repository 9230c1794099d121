package zerotrust

import (
	"testing"
	"time"
)

func TestEvaluate_FlagsRateBurst(t *testing.T) {
	a := NewQueryAuditor(time.Minute, 3, []string{"investigation"})
	base := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	a.now = func() time.Time { return base }

	for i := 0; i < 2; i++ {
		if review := a.Evaluate(QueryRecord{UserID: "u1", Purpose: "routine"}); review != nil {
			t.Fatalf("expected no flag before the burst threshold, got %+v", review)
		}
	}
	review := a.Evaluate(QueryRecord{UserID: "u1", Purpose: "routine"})
	if review == nil {
		t.Fatal("expected a rate-burst flag on the threshold-th query")
	}
	found := false
	for _, f := range review.Flags {
		if f == FlagRateBurst {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected FlagRateBurst among flags, got %v", review.Flags)
	}
}

func TestEvaluate_FlagsSensitiveQueryWithoutCaseNumber(t *testing.T) {
	a := NewQueryAuditor(time.Minute, 100, []string{"investigation"})
	review := a.Evaluate(QueryRecord{UserID: "u1", Purpose: "investigation", CaseNumber: ""})
	if review == nil {
		t.Fatal("expected a flag for a sensitive query without a case number")
	}

	clean := a.Evaluate(QueryRecord{UserID: "u2", Purpose: "investigation", CaseNumber: "CASE-123"})
	if clean != nil {
		t.Fatalf("expected no flag when a case number is present, got %+v", clean)
	}
}

func TestEvaluate_IgnoresNonSensitivePurposeWithoutCaseNumber(t *testing.T) {
	a := NewQueryAuditor(time.Minute, 100, []string{"investigation"})
	review := a.Evaluate(QueryRecord{UserID: "u1", Purpose: "routine_lookup"})
	if review != nil {
		t.Fatalf("expected no flag for a non-sensitive purpose, got %+v", review)
	}
}

func TestEvaluate_BurstWindowResetsOverTime(t *testing.T) {
	a := NewQueryAuditor(time.Minute, 2, nil)
	base := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	a.now = func() time.Time { return base }
	a.Evaluate(QueryRecord{UserID: "u1", Purpose: "routine"})

	a.now = func() time.Time { return base.Add(5 * time.Minute) }
	review := a.Evaluate(QueryRecord{UserID: "u1", Purpose: "routine"})
	if review != nil {
		t.Fatalf("expected the burst window to have reset, got %+v", review)
	}
}
