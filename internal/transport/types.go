// Package transport defines the outbound actuator command contract and
// inbound webhook verification the rest of the platform depends on,
// generalizing the teacher's internal/agentexec WebSocket
// request/response correlation pattern from host-agent command
// execution to actuator command dispatch.
package transport

import (
	"context"
	"time"
)

// CommandType enumerates the actuator command vocabulary from the
// external-interfaces contract.
type CommandType string

const (
	CommandTakeoff       CommandType = "takeoff"
	CommandLand          CommandType = "land"
	CommandReturnHome    CommandType = "return_home"
	CommandHover         CommandType = "hover"
	CommandOrbit         CommandType = "orbit"
	CommandPatrol        CommandType = "patrol"
	CommandFollow        CommandType = "follow"
	CommandGoto          CommandType = "goto"
	CommandSearch        CommandType = "search"
	CommandTrack         CommandType = "track"
	CommandSpotlightOn   CommandType = "spotlight_on"
	CommandSpotlightOff  CommandType = "spotlight_off"
	CommandAnnounce      CommandType = "announce"
	CommandStartRecord   CommandType = "start_record"
	CommandStopRecord    CommandType = "stop_record"
	CommandPhoto         CommandType = "photo"
	CommandZoom          CommandType = "zoom"
	CommandGimbal        CommandType = "gimbal"
	CommandEmergencyStop CommandType = "emergency_stop"
	CommandAbort         CommandType = "abort"
)

// Priority grades a command's dispatch urgency.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityNormal   Priority = "normal"
	PriorityHigh     Priority = "high"
	PriorityEmergency Priority = "emergency"
)

// Command is the outbound actuator command envelope, matching the
// external-interfaces contract verbatim.
type Command struct {
	CommandID  string
	ActuatorID string
	Type       CommandType
	Priority   Priority
	Parameters map[string]any
	Deadline   time.Time
}

// TerminalStatus is the result a transport reports once a command
// finishes, or the timeout/error it failed with.
type TerminalStatus string

const (
	StatusCompleted TerminalStatus = "completed"
	StatusFailed    TerminalStatus = "failed"
	StatusTimedOut  TerminalStatus = "timed_out"
	StatusCancelled TerminalStatus = "cancelled"
)

// CommandResult is what the transport returns for a dispatched command.
type CommandResult struct {
	CommandID string
	Status    TerminalStatus
	Detail    string
	Elapsed   time.Duration
}

// ActuatorTransport sends a command to an actuator and blocks until a
// terminal status or the command's deadline elapses. Implementations
// must respect ctx cancellation independently of the command deadline.
type ActuatorTransport interface {
	Send(ctx context.Context, cmd Command) (CommandResult, error)
	IsConnected(actuatorID string) bool
}
