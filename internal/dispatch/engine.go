package dispatch

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/aldric144/rtcc-platform/internal/transport"
	"github.com/aldric144/rtcc-platform/internal/transport/notify"
	"github.com/aldric144/rtcc-platform/pkg/geo"
)

// Config holds the engine-wide defaults from the dispatch
// configuration block.
type Config struct {
	MaxConcurrentDispatches     int
	MinBatteryPct               float64
	RequireOperatorApproval     bool
	DangerousKeywords           []string
	DefaultResponseRadiusMeters float64
	CommandDefaultTimeout       time.Duration
	Envelope                    Envelope
}

// Engine evaluates trigger events into dispatch requests and drives
// each actuator's command queue.
type Engine struct {
	mu         sync.Mutex
	cfg        Config
	rules      map[TriggerType]TriggerRule
	actuators  map[string]*Actuator
	queues     map[string]*ActuatorQueue
	dangerous  *DangerousKeywordPolicy
	transport  transport.ActuatorTransport
	dispatcher *notify.Dispatcher
	now        func() time.Time
	seq        int
}

// NewEngine builds a dispatch engine against the given configuration,
// trigger rule table, actuator transport, and alert dispatcher.
func NewEngine(cfg Config, rules map[TriggerType]TriggerRule, tr transport.ActuatorTransport, dispatcher *notify.Dispatcher) *Engine {
	return &Engine{
		cfg:        cfg,
		rules:      rules,
		actuators:  make(map[string]*Actuator),
		queues:     make(map[string]*ActuatorQueue),
		dangerous:  NewDangerousKeywordPolicy(cfg.DangerousKeywords),
		transport:  tr,
		dispatcher: dispatcher,
		now:        time.Now,
	}
}

// RegisterActuator makes an actuator available for dispatch
// assignment and gives it an empty command queue.
func (e *Engine) RegisterActuator(a Actuator) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.actuators[a.ID] = &a
	if _, ok := e.queues[a.ID]; !ok {
		e.queues[a.ID] = NewActuatorQueue(a.ID)
	}
}

// Queue returns the command queue for an actuator, if registered.
func (e *Engine) Queue(actuatorID string) *ActuatorQueue {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.queues[actuatorID]
}

func (e *Engine) nextID(prefix string) string {
	e.seq++
	return fmt.Sprintf("%s-%d", prefix, e.seq)
}

// Evaluate runs the five-step trigger-evaluation sequence: create the
// request, score it, and either cancel, require approval, dispatch an
// actuator, or report no actuator available.
func (e *Engine) Evaluate(trigger TriggerType, threatLevel float64, location geo.Point, approvalOverridden bool) *DispatchRequest {
	e.mu.Lock()
	defer e.mu.Unlock()

	req := &DispatchRequest{
		ID:          e.nextID("dispatch"),
		TriggerType: trigger,
		ThreatLevel: threatLevel,
		Status:      StatusEvaluating,
		CreatedAt:   e.now(),
	}

	rule, known := e.rules[trigger]
	req.Priority = e.priorityFor(trigger, rule, known)

	enabledScore := 0.0
	if known && rule.Enabled {
		enabledScore = 1.0
	}
	req.Score = (priorityScore[req.Priority] + clamp01(threatLevel) + enabledScore) / 3.0

	if req.Score < 0.5 {
		req.Status = StatusCancelled
		req.Reason = "score_below_threshold"
		log.Info().Str("dispatch_id", req.ID).Str("trigger", string(trigger)).Float64("score", req.Score).Msg("dispatch cancelled below evaluation threshold")
		return req
	}

	requireApproval := e.cfg.RequireOperatorApproval || (known && rule.RequireApproval)
	if requireApproval && !approvalOverridden {
		req.Status = StatusPendingApproval
		e.notify(req, "approval_required", "dispatch awaiting operator approval")
		return req
	}

	radius := e.cfg.DefaultResponseRadiusMeters
	var capabilities []string
	if known {
		if rule.ResponseRadiusMeters > 0 {
			radius = rule.ResponseRadiusMeters
		}
		capabilities = rule.RequiredCapabilities
	}

	actuator := e.selectActuator(capabilities, e.cfg.MinBatteryPct, radius, location)
	if actuator == nil {
		req.Status = StatusNoActuatorAvailable
		e.notify(req, "no_actuator_available", "no actuator satisfies capability/battery/range constraints")
		return req
	}

	req.ActuatorID = actuator.ID
	req.Status = StatusDispatched
	req.DispatchedAt = e.now()
	req.ResponseTimeMs = req.DispatchedAt.Sub(req.CreatedAt).Milliseconds()
	return req
}

func (e *Engine) priorityFor(trigger TriggerType, rule TriggerRule, known bool) Priority {
	if criticalTriggers[trigger] {
		return PriorityCritical
	}
	if known && rule.MinPriority != "" {
		return rule.MinPriority
	}
	return PriorityNormal
}

func clamp01(v float64) float64 {
	return geo.Clamp(v, 0, 1)
}

// selectActuator ranks eligible actuators (capability match, battery
// at or above the floor, within radius) by distance as an ETA proxy
// and returns the nearest.
func (e *Engine) selectActuator(capabilities []string, minBattery, radiusMeters float64, origin geo.Point) *Actuator {
	type candidate struct {
		actuator *Actuator
		distance float64
	}

	var candidates []candidate
	for _, a := range e.actuators {
		if !a.hasCapabilities(capabilities) {
			continue
		}
		if a.BatteryPct < minBattery {
			continue
		}
		d := geo.HaversineMeters(origin, a.Location)
		if radiusMeters > 0 && d > radiusMeters {
			continue
		}
		candidates = append(candidates, candidate{actuator: a, distance: d})
	}

	if len(candidates) == 0 {
		return nil
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].distance < candidates[j].distance })
	return candidates[0].actuator
}

func (e *Engine) notify(req *DispatchRequest, title, body string) {
	if e.dispatcher == nil {
		return
	}
	go e.dispatcher.Dispatch(context.Background(), notify.Alert{
		Source:   "dispatch",
		Severity: "warning",
		Title:    title,
		Body:     body,
		RaisedAt: e.now(),
		Metadata: map[string]any{"dispatch_id": req.ID, "trigger": string(req.TriggerType)},
	})
}

// SubmitCommand clamps a motion command's envelope (if applicable),
// submits it to the actuator's queue, and — once accepted — hands it
// to the transport for execution, reporting the terminal result back
// into the queue.
func (e *Engine) SubmitCommand(ctx context.Context, cmd *Command) ([]*Command, error) {
	if producesMotion(string(cmd.Type)) {
		clamped, violation := ClampEnvelope(e.cfg.Envelope, cmd.Parameters)
		cmd.Parameters = clamped
		if violation != "" {
			cmd.State = CmdFailed
			cmd.Reason = violation
			return nil, nil
		}
	}

	e.mu.Lock()
	q, ok := e.queues[cmd.ActuatorID]
	e.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("actuator %s is not registered", cmd.ActuatorID)
	}

	cancelled := q.Submit(cmd)

	if cmd.State == CmdExecuting {
		go e.run(ctx, q, cmd)
	}
	return cancelled, nil
}

func (e *Engine) run(ctx context.Context, q *ActuatorQueue, cmd *Command) {
	deadline := cmd.CreatedAt.Add(cmd.Timeout)
	if cmd.Timeout <= 0 {
		fallback := e.cfg.CommandDefaultTimeout
		if fallback <= 0 {
			fallback = 30 * time.Second
		}
		deadline = e.now().Add(fallback)
	}

	result, err := e.transport.Send(ctx, transport.Command{
		CommandID:  cmd.ID,
		ActuatorID: cmd.ActuatorID,
		Type:       cmd.Type,
		Priority:   transportPriority(cmd.Priority),
		Parameters: cmd.Parameters.Extra,
		Deadline:   deadline,
	})
	if err != nil {
		log.Warn().Err(err).Str("command_id", cmd.ID).Msg("actuator transport failed")
		q.Resolve(cmd.ID, CmdFailed, "transport_error")
		return
	}

	switch result.Status {
	case transport.StatusCompleted:
		q.Resolve(cmd.ID, CmdCompleted, "")
	case transport.StatusTimedOut:
		q.Resolve(cmd.ID, CmdTimeout, "")
	case transport.StatusCancelled:
		q.Resolve(cmd.ID, CmdCancelled, "")
	default:
		q.Resolve(cmd.ID, CmdFailed, result.Detail)
	}
}
