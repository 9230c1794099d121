package dispatch

import (
	"sync"
	"time"

	"github.com/aldric144/rtcc-platform/internal/transport"
)

// CommandState is a step in an actuator command's bounded lifecycle.
// The enum and guarded-transition shape follows the teacher's chat
// session FSM (internal/ai/chat/fsm.go), generalized from a chat
// tool-call workflow to an actuator command's pending/executing/
// terminal progression.
type CommandState string

const (
	CmdPending   CommandState = "pending"
	CmdQueued    CommandState = "queued"
	CmdExecuting CommandState = "executing"
	CmdCompleted CommandState = "completed"
	CmdFailed    CommandState = "failed"
	CmdTimeout   CommandState = "timeout"
	CmdCancelled CommandState = "cancelled"
)

func (s CommandState) terminal() bool {
	switch s {
	case CmdCompleted, CmdFailed, CmdTimeout, CmdCancelled:
		return true
	default:
		return false
	}
}

// ReasonPreemptedByEmergency is the cancellation reason applied to a
// command displaced by an emergency command.
const ReasonPreemptedByEmergency = "preempted_by_emergency"

// ReasonEnvelopeViolation is the failure reason applied to a motion
// command that fails geofence/altitude/speed clamping.
const ReasonEnvelopeViolation = "envelope_violation"

// Command is a single actuator command moving through its lifecycle.
type Command struct {
	ID         string
	ActuatorID string
	Type       transport.CommandType
	Priority   Priority
	Parameters CommandParameters
	Timeout    time.Duration

	State     CommandState
	Reason    string
	CreatedAt time.Time
	StartedAt time.Time
	EndedAt   time.Time
}

func isEmergency(cmd *Command) bool {
	return cmd.Priority == PriorityCritical ||
		cmd.Type == transport.CommandEmergencyStop ||
		cmd.Type == transport.CommandAbort
}

// ActuatorQueue owns one actuator's ordered FIFO command queue plus
// its single active slot, guaranteeing at most one executing command
// per actuator.
type ActuatorQueue struct {
	mu         sync.Mutex
	actuatorID string
	queue      []*Command
	active     *Command
	now        func() time.Time
}

// NewActuatorQueue builds an empty queue for the given actuator.
func NewActuatorQueue(actuatorID string) *ActuatorQueue {
	return &ActuatorQueue{actuatorID: actuatorID, now: time.Now}
}

// Submit enqueues cmd, or — if it is an emergency command — cancels
// the active command and the entire queue with
// ReasonPreemptedByEmergency and begins executing cmd immediately.
// Returns the commands that were cancelled as a side effect.
func (q *ActuatorQueue) Submit(cmd *Command) []*Command {
	q.mu.Lock()
	defer q.mu.Unlock()

	cmd.CreatedAt = q.now()

	if isEmergency(cmd) {
		cancelled := q.preemptLocked()
		cmd.State = CmdExecuting
		cmd.StartedAt = q.now()
		q.active = cmd
		q.queue = nil
		return cancelled
	}

	cmd.State = CmdQueued
	q.queue = append(q.queue, cmd)
	q.startNextLocked()
	return nil
}

func (q *ActuatorQueue) preemptLocked() []*Command {
	var cancelled []*Command
	if q.active != nil && !q.active.State.terminal() {
		q.active.State = CmdCancelled
		q.active.Reason = ReasonPreemptedByEmergency
		q.active.EndedAt = q.now()
		cancelled = append(cancelled, q.active)
	}
	for _, c := range q.queue {
		c.State = CmdCancelled
		c.Reason = ReasonPreemptedByEmergency
		c.EndedAt = q.now()
		cancelled = append(cancelled, c)
	}
	q.active = nil
	q.queue = nil
	return cancelled
}

// startNextLocked promotes the front of the queue into the active
// slot if nothing is currently executing.
func (q *ActuatorQueue) startNextLocked() {
	if q.active != nil || len(q.queue) == 0 {
		return
	}
	next := q.queue[0]
	q.queue = q.queue[1:]
	next.State = CmdExecuting
	next.StartedAt = q.now()
	q.active = next
}

// Active returns the currently executing command, if any.
func (q *ActuatorQueue) Active() *Command {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.active
}

// Queued returns a snapshot of the pending queue, in order.
func (q *ActuatorQueue) Queued() []*Command {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]*Command, len(q.queue))
	copy(out, q.queue)
	return out
}

// Resolve transitions the active command (if its ID matches) to a
// terminal state and starts the next queued command.
func (q *ActuatorQueue) Resolve(commandID string, state CommandState, reason string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.active == nil || q.active.ID != commandID {
		return
	}
	q.active.State = state
	q.active.Reason = reason
	q.active.EndedAt = q.now()
	q.active = nil
	q.startNextLocked()
}

// SweepTimeouts fails the active command if it has exceeded its
// per-type timeout, then promotes the next queued command.
func (q *ActuatorQueue) SweepTimeouts() *Command {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.active == nil || q.active.Timeout <= 0 {
		return nil
	}
	if q.now().Sub(q.active.StartedAt) < q.active.Timeout {
		return nil
	}
	timedOut := q.active
	timedOut.State = CmdTimeout
	timedOut.EndedAt = q.now()
	q.active = nil
	q.startNextLocked()
	return timedOut
}
