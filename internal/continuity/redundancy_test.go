package continuity

import "testing"

func TestConnect_ReturnsActiveInstance(t *testing.T) {
	pool := NewRedundancyPool("cache", Instance{Name: "p1", Address: "10.0.0.1"}, Instance{Name: "s1", Address: "10.0.0.2"})

	h := pool.Connect()
	if h.Instance().Name != "p1" {
		t.Fatalf("expected the primary instance, got %s", h.Instance().Name)
	}
	if !h.Valid() {
		t.Fatal("expected a freshly issued handle to be valid")
	}
}

func TestFailOver_InvalidatesExistingHandles(t *testing.T) {
	pool := NewRedundancyPool("cache", Instance{Name: "p1"}, Instance{Name: "s1"})
	h := pool.Connect()

	if err := pool.FailOver(); err != nil {
		t.Fatalf("expected failover to succeed, got %v", err)
	}
	if h.Valid() {
		t.Fatal("expected the pre-failover handle to be invalidated")
	}

	fresh := pool.Connect()
	if fresh.Instance().Name != "s1" {
		t.Fatalf("expected a fresh connection to the secondary, got %s", fresh.Instance().Name)
	}
}

func TestFailOver_FailsWhenAlreadyOnSecondary(t *testing.T) {
	pool := NewRedundancyPool("cache", Instance{Name: "p1"}, Instance{Name: "s1"})
	if err := pool.FailOver(); err != nil {
		t.Fatalf("unexpected error on first failover: %v", err)
	}
	if err := pool.FailOver(); err == nil {
		t.Fatal("expected a second failover to fail when already on secondary")
	}
}

func TestRecover_RestoresPrimaryAndInvalidatesSecondaryHandles(t *testing.T) {
	pool := NewRedundancyPool("cache", Instance{Name: "p1"}, Instance{Name: "s1"})
	pool.FailOver()
	h := pool.Connect()

	if err := pool.Recover(); err != nil {
		t.Fatalf("expected recovery to succeed, got %v", err)
	}
	if h.Valid() {
		t.Fatal("expected the pre-recovery handle to be invalidated")
	}
	if pool.ActiveInstance().Name != "p1" {
		t.Fatalf("expected primary active after recovery, got %s", pool.ActiveInstance().Name)
	}
}
