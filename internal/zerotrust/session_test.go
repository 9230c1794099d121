package zerotrust

import (
	"testing"
	"time"
)

func TestCreate_IssuesUniqueSortableTokens(t *testing.T) {
	store := NewSessionStore()
	role := Role{Name: "dispatcher", SessionTimeout: 30 * time.Minute}

	a := store.Create("u1", role, "10.0.0.1", "fp-1")
	b := store.Create("u1", role, "10.0.0.1", "fp-1")

	if a.Token == b.Token {
		t.Fatal("expected distinct session tokens")
	}
	if store.Count() != 2 {
		t.Fatalf("expected 2 live sessions, got %d", store.Count())
	}
}

func TestTouch_RefreshesActivityAndRejectsExpired(t *testing.T) {
	store := NewSessionStore()
	base := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return base }

	role := Role{Name: "dispatcher", SessionTimeout: 10 * time.Minute}
	sess := store.Create("u1", role, "10.0.0.1", "fp-1")

	store.now = func() time.Time { return base.Add(5 * time.Minute) }
	if _, err := store.Touch(sess.Token); err != nil {
		t.Fatalf("expected touch within timeout to succeed, got %v", err)
	}

	store.now = func() time.Time { return base.Add(30 * time.Minute) }
	if _, err := store.Touch(sess.Token); err == nil {
		t.Fatal("expected touch on an idle-expired session to fail")
	}
}

func TestSweepExpired_RemovesOnlyIdleSessions(t *testing.T) {
	store := NewSessionStore()
	base := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return base }

	role := Role{Name: "dispatcher", SessionTimeout: 10 * time.Minute}
	stale := store.Create("u1", role, "10.0.0.1", "fp-1")
	store.now = func() time.Time { return base.Add(5 * time.Minute) }
	fresh := store.Create("u2", role, "10.0.0.2", "fp-2")

	store.now = func() time.Time { return base.Add(12 * time.Minute) }
	expired := store.SweepExpired()

	if len(expired) != 1 || expired[0] != stale.Token {
		t.Fatalf("expected only the stale session to expire, got %v", expired)
	}
	if store.Count() != 1 {
		t.Fatalf("expected the fresh session to survive, got count %d", store.Count())
	}
	_ = fresh
}

func TestRevoke_RemovesSessionImmediately(t *testing.T) {
	store := NewSessionStore()
	role := Role{Name: "dispatcher", SessionTimeout: time.Hour}
	sess := store.Create("u1", role, "10.0.0.1", "fp-1")

	store.Revoke(sess.Token)
	if _, err := store.Touch(sess.Token); err == nil {
		t.Fatal("expected touch on a revoked session to fail")
	}
}
