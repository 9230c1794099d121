package fusion

import "testing"

func TestMemoryDownstreamStore_WriteAppendsAndAllSnapshots(t *testing.T) {
	s := NewMemoryDownstreamStore()

	if err := s.Write(FusedEvent{FusionID: "f1"}); err != nil {
		t.Fatalf("expected write to succeed, got %v", err)
	}
	if err := s.Write(FusedEvent{FusionID: "f2"}); err != nil {
		t.Fatalf("expected write to succeed, got %v", err)
	}

	all := s.All()
	if len(all) != 2 || all[0].FusionID != "f1" || all[1].FusionID != "f2" {
		t.Fatalf("expected both events in write order, got %+v", all)
	}

	all[0].FusionID = "mutated"
	if s.All()[0].FusionID == "mutated" {
		t.Fatal("expected All() to return a snapshot, not the live slice")
	}
}
