package main

import (
	"github.com/rs/zerolog/log"

	"github.com/aldric144/rtcc-platform/internal/dispatch"
	"github.com/aldric144/rtcc-platform/internal/fusion"
	"github.com/aldric144/rtcc-platform/pkg/geo"
)

// sourceTriggers maps a fused event's contributing source kinds to the
// dispatch trigger type they originate, per the external-interfaces
// shape's accepted sources. A fused event may carry several source
// refs; the first recognized mapping wins, since a single fusion can
// only be routed to one auto-dispatch evaluation.
var sourceTriggers = map[fusion.SourceKind]dispatch.TriggerType{
	fusion.SourceGunshot: dispatch.TriggerGunshot,
	fusion.SourcePanic:   dispatch.TriggerOfficerDistress,
}

func triggerForFusedEvent(event fusion.FusedEvent) (dispatch.TriggerType, bool) {
	for _, ref := range event.SourceRefs {
		if t, ok := sourceTriggers[ref.Source]; ok {
			return t, true
		}
	}
	return "", false
}

// DispatchBridgeStore decorates a fusion.DownstreamStore so that every
// successfully persisted fused event also feeds the dispatch engine's
// trigger evaluation, wiring the fusion-to-dispatch path the
// specification's end-to-end scenario describes (a correlated gunshot
// fusion auto-dispatches the nearest qualifying actuator) without
// reaching into the fusion pipeline's internals.
type DispatchBridgeStore struct {
	inner    fusion.DownstreamStore
	dispatch *dispatch.Engine
}

// NewDispatchBridgeStore wraps inner, evaluating engine for every write
// whose fused event maps to a known dispatch trigger.
func NewDispatchBridgeStore(inner fusion.DownstreamStore, engine *dispatch.Engine) *DispatchBridgeStore {
	return &DispatchBridgeStore{inner: inner, dispatch: engine}
}

// Write persists event through the wrapped store, then evaluates a
// dispatch trigger for it if one applies. A dispatch evaluation never
// blocks or fails the store write it rides along with.
func (s *DispatchBridgeStore) Write(event fusion.FusedEvent) error {
	if err := s.inner.Write(event); err != nil {
		return err
	}

	trigger, ok := triggerForFusedEvent(event)
	if !ok || s.dispatch == nil {
		return nil
	}

	loc := geo.Point{Lat: event.CenterLocation.Lat, Lon: event.CenterLocation.Lon}
	req := s.dispatch.Evaluate(trigger, event.Confidence, loc, false)
	log.Info().
		Str("fusion_id", event.FusionID).
		Str("trigger", string(trigger)).
		Str("dispatch_status", string(req.Status)).
		Msg("fusion event routed to dispatch evaluation")
	return nil
}
