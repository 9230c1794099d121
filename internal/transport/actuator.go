package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// frame is the wire envelope between the center and a connected
// actuator, mirroring the teacher's agentexec Message shape: a typed
// envelope carrying an arbitrary payload correlated by ID.
type frame struct {
	Type    string          `json:"type"`
	ID      string          `json:"id"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

const (
	frameCommand = "command"
	frameResult  = "command_result"
	framePing    = "ping"
	framePong    = "pong"
)

type commandPayload struct {
	CommandID  string          `json:"command_id"`
	ActuatorID string          `json:"actuator_id"`
	Type       CommandType     `json:"type"`
	Priority   Priority        `json:"priority"`
	Parameters map[string]any  `json:"parameters,omitempty"`
	DeadlineMs int64           `json:"deadline_ms"`
}

type resultPayload struct {
	CommandID string `json:"command_id"`
	Status    string `json:"status"`
	Detail    string `json:"detail,omitempty"`
}

type actuatorConn struct {
	id   string
	conn *websocket.Conn
	mu   sync.Mutex
}

func (a *actuatorConn) writeJSON(v any) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.conn.WriteJSON(v)
}

// WebSocketTransport dispatches actuator commands over persistent
// WebSocket connections and correlates results by command ID, the
// same per-request response-channel pattern the teacher's agentexec
// server uses for host agent command execution.
type WebSocketTransport struct {
	mu       sync.Mutex
	conns    map[string]*actuatorConn
	pending  map[string]chan resultPayload
	upgrader websocket.Upgrader
}

// NewWebSocketTransport builds an empty transport ready to accept
// actuator connections via HandleConnection.
func NewWebSocketTransport() *WebSocketTransport {
	return &WebSocketTransport{
		conns:   make(map[string]*actuatorConn),
		pending: make(map[string]chan resultPayload),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
	}
}

// HandleConnection upgrades an inbound HTTP request to a WebSocket and
// registers the actuator under actuatorID, then blocks reading result
// frames until the connection closes.
func (t *WebSocketTransport) HandleConnection(w http.ResponseWriter, r *http.Request, actuatorID string) error {
	conn, err := t.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("upgrade actuator connection: %w", err)
	}

	ac := &actuatorConn{id: actuatorID, conn: conn}
	t.mu.Lock()
	t.conns[actuatorID] = ac
	t.mu.Unlock()

	log.Info().Str("actuator_id", actuatorID).Msg("actuator connected")

	defer func() {
		t.mu.Lock()
		delete(t.conns, actuatorID)
		t.mu.Unlock()
		conn.Close()
		log.Info().Str("actuator_id", actuatorID).Msg("actuator disconnected")
	}()

	for {
		var f frame
		if err := conn.ReadJSON(&f); err != nil {
			return err
		}
		switch f.Type {
		case frameResult:
			var rp resultPayload
			if err := json.Unmarshal(f.Payload, &rp); err != nil {
				log.Warn().Err(err).Str("actuator_id", actuatorID).Msg("malformed command result frame")
				continue
			}
			t.deliver(rp)
		case framePing:
			_ = ac.writeJSON(frame{Type: framePong, ID: f.ID})
		}
	}
}

func (t *WebSocketTransport) deliver(rp resultPayload) {
	t.mu.Lock()
	ch, ok := t.pending[rp.CommandID]
	t.mu.Unlock()
	if !ok {
		return
	}
	select {
	case ch <- rp:
	default:
	}
}

// IsConnected reports whether the given actuator currently has a live
// connection.
func (t *WebSocketTransport) IsConnected(actuatorID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.conns[actuatorID]
	return ok
}

// Send dispatches cmd to its actuator and blocks until a terminal
// result frame arrives, the command deadline elapses, or ctx is
// cancelled.
func (t *WebSocketTransport) Send(ctx context.Context, cmd Command) (CommandResult, error) {
	start := time.Now()

	t.mu.Lock()
	ac, ok := t.conns[cmd.ActuatorID]
	t.mu.Unlock()
	if !ok {
		return CommandResult{}, fmt.Errorf("actuator %s is not connected", cmd.ActuatorID)
	}

	respCh := make(chan resultPayload, 1)
	t.mu.Lock()
	t.pending[cmd.CommandID] = respCh
	t.mu.Unlock()
	defer func() {
		t.mu.Lock()
		delete(t.pending, cmd.CommandID)
		t.mu.Unlock()
	}()

	payload, err := json.Marshal(commandPayload{
		CommandID:  cmd.CommandID,
		ActuatorID: cmd.ActuatorID,
		Type:       cmd.Type,
		Priority:   cmd.Priority,
		Parameters: cmd.Parameters,
		DeadlineMs: cmd.Deadline.UnixMilli(),
	})
	if err != nil {
		return CommandResult{}, fmt.Errorf("marshal command payload: %w", err)
	}

	if err := ac.writeJSON(frame{Type: frameCommand, ID: cmd.CommandID, Payload: payload}); err != nil {
		return CommandResult{}, fmt.Errorf("send command to actuator: %w", err)
	}

	var timer *time.Timer
	if !cmd.Deadline.IsZero() {
		timer = time.NewTimer(time.Until(cmd.Deadline))
		defer timer.Stop()
	} else {
		timer = time.NewTimer(30 * time.Second)
		defer timer.Stop()
	}

	select {
	case rp := <-respCh:
		return CommandResult{
			CommandID: cmd.CommandID,
			Status:    TerminalStatus(rp.Status),
			Detail:    rp.Detail,
			Elapsed:   time.Since(start),
		}, nil
	case <-timer.C:
		log.Warn().Str("command_id", cmd.CommandID).Str("actuator_id", cmd.ActuatorID).Msg("actuator command timed out")
		return CommandResult{
			CommandID: cmd.CommandID,
			Status:    StatusTimedOut,
			Elapsed:   time.Since(start),
		}, nil
	case <-ctx.Done():
		return CommandResult{}, ctx.Err()
	}
}
