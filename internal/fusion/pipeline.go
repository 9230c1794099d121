package fusion

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/aldric144/rtcc-platform/internal/audit"
)

// PipelineConfig configures a Pipeline's retry and dead-letter behavior.
type PipelineConfig struct {
	// RetryDeadline bounds how long a single fused event's store write
	// may be retried before it is parked on the dead-letter queue.
	RetryDeadline time.Duration
}

// DefaultPipelineConfig returns the specification's recommended defaults.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{RetryDeadline: 30 * time.Second}
}

// Pipeline is the Event Fusion Pipeline's ingestion entry point: it
// validates a raw event, hands it to the correlation engine, persists any
// resulting fused event through store with retry/backoff, and never lets
// a malformed event or a failing store block later events.
type Pipeline struct {
	mu sync.Mutex

	engine     *Engine
	store      DownstreamStore
	deadLetter DeadLetterQueue
	auditLog   *audit.Logger
	config     PipelineConfig

	breakers map[SourceKind]*writeBreaker

	now   func() time.Time
	sleep func(time.Duration)
}

// NewPipeline wires a correlation engine, a downstream store, a
// dead-letter queue, and the shared audit logger into one ingestion path.
func NewPipeline(engine *Engine, store DownstreamStore, deadLetter DeadLetterQueue, auditLog *audit.Logger, config PipelineConfig) *Pipeline {
	return &Pipeline{
		engine:     engine,
		store:      store,
		deadLetter: deadLetter,
		auditLog:   auditLog,
		config:     config,
		breakers:   make(map[SourceKind]*writeBreaker),
		now:        time.Now,
		sleep:      time.Sleep,
	}
}

// Ingest validates and correlates a single raw event. A malformed event is
// dropped and recorded in the audit trail rather than returned as an
// error, since a single bad sensor payload must never stall the feed it
// arrived on. A fused event produced by correlation is written through to
// store with retry; if every retry fails before RetryDeadline elapses,
// the fused event is parked on the dead-letter queue and a critical audit
// entry is raised.
func (p *Pipeline) Ingest(event RawEvent) {
	if reason := isMalformed(event); reason != "" {
		p.auditDrop(event, reason)
		return
	}

	fused := p.engine.Ingest(event)
	if fused == nil {
		return
	}

	p.persist(event.Source, *fused)
}

func (p *Pipeline) persist(source SourceKind, fused FusedEvent) {
	breaker := p.breakerFor(source)

	attempts, err := retryWrite(p.store, breaker, fused, p.config.RetryDeadline, p.now, p.sleep)
	if err == nil {
		return
	}

	log.Warn().
		Str("fusion_id", fused.FusionID).
		Int("attempts", attempts).
		Err(err).
		Msg("fusion: dead-lettering fused event after exhausting retries")

	if dlErr := p.deadLetter.Park(DeadLetterEntry{
		Event:    fused,
		Reason:   err.Error(),
		Attempts: attempts,
		FailedAt: p.now(),
	}); dlErr != nil {
		log.Error().Err(dlErr).Str("fusion_id", fused.FusionID).Msg("fusion: dead-letter park failed")
	}

	if p.auditLog != nil {
		_, _ = p.auditLog.Append(audit.Entry{
			ActionKind:  "fusion.dead_letter",
			Severity:    audit.SeverityCritical,
			Source:      "internal/fusion",
			Description: "fused event exceeded retry deadline and was dead-lettered",
			Details: map[string]any{
				"fusion_id": fused.FusionID,
				"attempts":  attempts,
				"reason":    err.Error(),
			},
		})
	}
}

func (p *Pipeline) auditDrop(event RawEvent, reason string) {
	log.Warn().
		Str("event_id", event.EventID).
		Str("reason", reason).
		Msg("fusion: dropping malformed raw event")

	if p.auditLog == nil {
		return
	}
	_, _ = p.auditLog.Append(audit.Entry{
		ActionKind:  "fusion.malformed_event",
		Severity:    audit.SeverityWarning,
		Source:      "internal/fusion",
		Description: "dropped malformed raw event",
		Details: map[string]any{
			"event_id": event.EventID,
			"source":   string(event.Source),
			"reason":   reason,
		},
	})
}

func (p *Pipeline) breakerFor(source SourceKind) *writeBreaker {
	p.mu.Lock()
	defer p.mu.Unlock()
	b, ok := p.breakers[source]
	if !ok {
		b = newWriteBreaker()
		p.breakers[source] = b
	}
	return b
}
