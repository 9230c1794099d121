package continuity

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// FailoverState mirrors the teacher's circuit breaker state machine
// (closed/open/half-open), relabeled to the continuity domain's own
// normal/failed_over vocabulary per the specification: there is no
// half-open probe phase here, since recovery is driven by a run of
// consecutive healthy probes on the primary rather than a single test
// call.
type FailoverState string

const (
	StateNormal     FailoverState = "normal"
	StateFailedOver FailoverState = "failed_over"
)

// FailoverMode controls whether the manager transitions automatically
// on consecutive unhealthy probes, or only on an explicit operator call.
type FailoverMode string

const (
	ModeAuto   FailoverMode = "auto"
	ModeManual FailoverMode = "manual"
)

// FailoverEvent is emitted whenever the manager's state transitions.
type FailoverEvent struct {
	ServiceType string
	From        FailoverState
	To          FailoverState
	Reason      string
	User        string // empty for automatic transitions
	OccurredAt  time.Time
	Replayed    []BufferedWrite // populated on transition back to normal
}

// BufferedWrite is one write captured while its target service was
// failed over, to be replayed in order once the primary recovers.
type BufferedWrite struct {
	Payload any
	QueuedAt time.Time
}

// FailoverManager holds one service-type's primary/secondary failover
// state, generalizing the teacher's internal/ai/circuit.Breaker
// consecutive-failure/consecutive-success counters and backoff-free
// two-state model into the specification's normal/failed_over manager:
// n consecutive unhealthy/offline probes on the active target trips a
// failover, m consecutive healthy probes on the primary permit recovery,
// and a manual operator call is accepted in either state.
type FailoverManager struct {
	mu sync.Mutex

	serviceType string
	primary     string
	secondary   string
	state       FailoverState
	mode        FailoverMode

	failureThreshold  int
	recoveryThreshold int

	consecutiveFailures  int
	consecutiveSuccesses int

	bufferLimit int
	buffer      []BufferedWrite

	now func() time.Time

	onEvent func(FailoverEvent)
}

// FailoverConfig configures a manager.
type FailoverConfig struct {
	ServiceType       string
	Primary           string
	Secondary         string
	Mode              FailoverMode
	FailureThreshold  int // n
	RecoveryThreshold int // m
	BufferLimit       int
}

// NewFailoverManager creates a manager starting in the normal state with
// primary active.
func NewFailoverManager(cfg FailoverConfig) *FailoverManager {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 3
	}
	if cfg.RecoveryThreshold <= 0 {
		cfg.RecoveryThreshold = 2
	}
	if cfg.Mode == "" {
		cfg.Mode = ModeAuto
	}
	return &FailoverManager{
		serviceType:       cfg.ServiceType,
		primary:           cfg.Primary,
		secondary:         cfg.Secondary,
		state:             StateNormal,
		mode:              cfg.Mode,
		failureThreshold:  cfg.FailureThreshold,
		recoveryThreshold: cfg.RecoveryThreshold,
		bufferLimit:       cfg.BufferLimit,
		now:               time.Now,
	}
}

// SetOnEvent registers a callback invoked on every state transition.
func (f *FailoverManager) SetOnEvent(fn func(FailoverEvent)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onEvent = fn
}

// State returns the manager's current state and which target is active.
func (f *FailoverManager) State() (FailoverState, string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state, f.activeTarget()
}

// activeTarget returns the currently active target. Caller holds mu.
func (f *FailoverManager) activeTarget() string {
	if f.state == StateFailedOver {
		return f.secondary
	}
	return f.primary
}

// ObserveActiveProbe folds one health probe result on the active target
// into the failure/success run, tripping an automatic failover once
// failureThreshold consecutive unhealthy/offline probes accumulate.
// Ignored when mode is manual.
func (f *FailoverManager) ObserveActiveProbe(status HealthStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.mode != ModeAuto || f.state != StateNormal {
		return
	}

	if status == StatusUnhealthy || status == StatusOffline {
		f.consecutiveFailures++
		if f.consecutiveFailures >= f.failureThreshold {
			f.transition(StateFailedOver, "automatic: consecutive unhealthy probes on active target", "")
			f.consecutiveFailures = 0
		}
		return
	}
	f.consecutiveFailures = 0
}

// ObservePrimaryProbe folds one health probe result on the primary into
// the recovery run while failed over, recovering automatically once
// recoveryThreshold consecutive healthy probes accumulate.
func (f *FailoverManager) ObservePrimaryProbe(status HealthStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.mode != ModeAuto || f.state != StateFailedOver {
		return
	}

	if status == StatusHealthy {
		f.consecutiveSuccesses++
		if f.consecutiveSuccesses >= f.recoveryThreshold {
			f.recover("automatic: consecutive healthy probes on primary", "")
			f.consecutiveSuccesses = 0
		}
		return
	}
	f.consecutiveSuccesses = 0
}

// Failover manually transitions the service to the secondary target.
// Permitted in any state, per the specification.
func (f *FailoverManager) Failover(reason, user string) FailoverEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.transition(StateFailedOver, reason, user)
}

// Recover manually transitions the service back to the primary and
// replays buffered writes, in order. Permitted in any state.
func (f *FailoverManager) Recover(reason, user string) FailoverEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.recover(reason, user)
}

func (f *FailoverManager) recover(reason, user string) FailoverEvent {
	return f.transition(StateNormal, reason, user)
}

// transition performs the state change, emits an event, and returns it.
// Caller holds mu.
func (f *FailoverManager) transition(to FailoverState, reason, user string) FailoverEvent {
	from := f.state
	ev := FailoverEvent{
		ServiceType: f.serviceType,
		From:        from,
		To:          to,
		Reason:      reason,
		User:        user,
		OccurredAt:  f.now(),
	}
	if from == to {
		return ev
	}
	f.state = to
	f.consecutiveFailures = 0
	f.consecutiveSuccesses = 0

	log.Warn().
		Str("service_type", f.serviceType).
		Str("from", string(from)).
		Str("to", string(to)).
		Str("reason", reason).
		Msg("continuity: failover state transition")

	if to == StateNormal {
		ev.Replayed = f.replayBuffered()
	}
	if f.onEvent != nil {
		go f.onEvent(ev)
	}
	return ev
}

// BufferWrite captures a write destined for the failed-over service, up
// to bufferLimit. Returns an error if the buffer is full or the service
// isn't currently failed over.
func (f *FailoverManager) BufferWrite(payload any) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state != StateFailedOver {
		return fmt.Errorf("continuity: %s is not failed over, nothing to buffer", f.serviceType)
	}
	if len(f.buffer) >= f.bufferLimit {
		return fmt.Errorf("continuity: write buffer full for %s (limit %d)", f.serviceType, f.bufferLimit)
	}
	f.buffer = append(f.buffer, BufferedWrite{Payload: payload, QueuedAt: f.now()})
	return nil
}

// replayBuffered drains the buffer in FIFO order. Caller holds mu.
func (f *FailoverManager) replayBuffered() []BufferedWrite {
	replayed := f.buffer
	f.buffer = nil
	return replayed
}

// BufferedCount reports how many writes are currently queued.
func (f *FailoverManager) BufferedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.buffer)
}
