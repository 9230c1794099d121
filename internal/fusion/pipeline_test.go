package fusion

import (
	"errors"
	"testing"
	"time"

	"github.com/aldric144/rtcc-platform/internal/audit"
)

type failingStore struct{ calls int }

func (s *failingStore) Write(event FusedEvent) error {
	s.calls++
	return errors.New("downstream unavailable")
}

type succeedingStore struct{ calls int }

func (s *succeedingStore) Write(event FusedEvent) error {
	s.calls++
	return nil
}

func newTestPipeline(t *testing.T, store DownstreamStore) (*Pipeline, *MemoryDeadLetterQueue) {
	t.Helper()
	engine := NewEngine(DefaultRules(), 0.85)
	dlq := NewMemoryDeadLetterQueue()
	p := NewPipeline(engine, store, dlq, nil, PipelineConfig{RetryDeadline: 50 * time.Millisecond})
	p.sleep = func(time.Duration) {} // don't actually block the test suite
	return p, dlq
}

func TestPipeline_DropsMalformedEventWithoutPanicking(t *testing.T) {
	p, dlq := newTestPipeline(t, &succeedingStore{})
	p.Ingest(RawEvent{Source: SourceLPR, Timestamp: time.Now()}) // missing EventID
	if len(dlq.Entries()) != 0 {
		t.Fatal("a malformed event should never reach the dead-letter queue")
	}
}

func TestPipeline_DeadLettersAfterRetryDeadlineExceeded(t *testing.T) {
	store := &failingStore{}
	p, dlq := newTestPipeline(t, store)

	base := time.Date(2026, 7, 31, 9, 0, 0, 0, time.UTC)
	p.engine.now = func() time.Time { return base }

	p.Ingest(RawEvent{
		EventID: "g1", Source: SourceGunshot, Kind: "gunshot",
		Timestamp: base, Location: loc(40.0, -75.0),
		Payload: GunshotPayload{Rounds: 2, Confidence: 0.9},
	})
	p.engine.now = func() time.Time { return base.Add(time.Second) }
	p.Ingest(RawEvent{
		EventID: "l1", Source: SourceLPR, Kind: "lpr",
		Timestamp: base.Add(time.Second), Location: loc(40.0, -75.0),
		Payload: LPRPayload{Plate: "ABC123", Confidence: 0.9},
	})

	entries := dlq.Entries()
	if len(entries) != 1 {
		t.Fatalf("expected 1 dead-lettered fused event, got %d", len(entries))
	}
	if entries[0].Attempts < 1 {
		t.Fatalf("expected at least one retry attempt recorded")
	}
	if store.calls == 0 {
		t.Fatal("expected the store to have been attempted")
	}
}

func TestPipeline_SuccessfulWriteNeverDeadLetters(t *testing.T) {
	store := &succeedingStore{}
	p, dlq := newTestPipeline(t, store)

	base := time.Date(2026, 7, 31, 9, 0, 0, 0, time.UTC)
	p.engine.now = func() time.Time { return base }
	p.Ingest(RawEvent{
		EventID: "g1", Source: SourceGunshot, Kind: "gunshot",
		Timestamp: base, Location: loc(40.0, -75.0),
		Payload: GunshotPayload{Rounds: 2, Confidence: 0.9},
	})
	p.engine.now = func() time.Time { return base.Add(time.Second) }
	p.Ingest(RawEvent{
		EventID: "l1", Source: SourceLPR, Kind: "lpr",
		Timestamp: base.Add(time.Second), Location: loc(40.0, -75.0),
		Payload: LPRPayload{Plate: "ABC123", Confidence: 0.9},
	})

	if len(dlq.Entries()) != 0 {
		t.Fatal("a successful write must never be dead-lettered")
	}
	if store.calls != 1 {
		t.Fatalf("expected exactly 1 store write, got %d", store.calls)
	}
}

func TestPipeline_WritesThroughAuditLoggerOnDeadLetter(t *testing.T) {
	store := &failingStore{}
	engine := NewEngine(DefaultRules(), 0.85)
	dlq := NewMemoryDeadLetterQueue()

	dir := t.TempDir()
	seg, err := audit.OpenSegment(dir+"/audit.log", "")
	if err != nil {
		t.Fatalf("OpenSegment: %v", err)
	}
	defer seg.Close()
	logger := audit.NewLogger(seg, "")

	p := NewPipeline(engine, store, dlq, logger, PipelineConfig{RetryDeadline: 20 * time.Millisecond})
	p.sleep = func(time.Duration) {}

	base := time.Date(2026, 7, 31, 9, 0, 0, 0, time.UTC)
	p.engine.now = func() time.Time { return base }
	p.Ingest(RawEvent{
		EventID: "g1", Source: SourceGunshot, Kind: "gunshot",
		Timestamp: base, Location: loc(40.0, -75.0),
		Payload: GunshotPayload{Rounds: 2, Confidence: 0.9},
	})
	p.engine.now = func() time.Time { return base.Add(time.Second) }
	p.Ingest(RawEvent{
		EventID: "l1", Source: SourceLPR, Kind: "lpr",
		Timestamp: base.Add(time.Second), Location: loc(40.0, -75.0),
		Payload: LPRPayload{Plate: "ABC123", Confidence: 0.9},
	})

	entries, err := audit.ReadAll(dir + "/audit.log")
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(entries) != 1 || entries[0].ActionKind != "fusion.dead_letter" {
		t.Fatalf("expected one fusion.dead_letter audit entry, got %+v", entries)
	}
}
