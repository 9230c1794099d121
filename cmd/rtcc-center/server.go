package main

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/aldric144/rtcc-platform/internal/audit"
	"github.com/aldric144/rtcc-platform/internal/fusion"
	"github.com/aldric144/rtcc-platform/internal/transport"
)

// Server is the rtcc-center process's inbound surface: normalized event
// ingestion, per-vendor signed webhook ingestion, and the actuator
// WebSocket endpoint. Everything else — the correlation, dispatch,
// safety, guardrail, continuity, and zero-trust engines — is a
// transport-adapter boundary around the core, per the specification's
// treatment of REST/WebSocket as contracts rather than engine internals.
type Server struct {
	pipeline *fusion.Pipeline
	ws       *transport.WebSocketTransport
	webhooks map[string]*transport.WebhookVerifier
	auditLog *audit.Logger
}

// NewServer wires the ingestion surface to the fusion pipeline, the
// actuator transport, and one HMAC verifier per configured webhook.
func NewServer(pipeline *fusion.Pipeline, ws *transport.WebSocketTransport, webhooks map[string]*transport.WebhookVerifier, auditLog *audit.Logger) *Server {
	return &Server{pipeline: pipeline, ws: ws, webhooks: webhooks, auditLog: auditLog}
}

// RegisterRoutes adds the ingestion surface's routes to mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/events", s.handleEvent)
	mux.HandleFunc("/webhooks/", s.handleWebhook)
	mux.HandleFunc("/ws/actuator/", s.handleActuatorWS)
	mux.HandleFunc("/healthz", s.handleHealth)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleEvent accepts a normalized inbound event per the specification's
// external-interfaces shape and hands it to the fusion pipeline. A body
// that is not valid JSON is rejected here; an event that decodes but
// lacks required fields is accepted here and dropped by the pipeline's
// own malformed-event check.
func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var event fusion.RawEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		http.Error(w, "malformed event payload", http.StatusBadRequest)
		return
	}
	if event.IngestTime.IsZero() {
		event.IngestTime = time.Now()
	}

	s.pipeline.Ingest(event)
	w.WriteHeader(http.StatusAccepted)
}

// handleWebhook verifies an inbound vendor webhook's HMAC-SHA256
// signature against the configured shared secret for that vendor before
// decoding and ingesting it; a missing or mismatched signature is
// rejected without ever reaching the pipeline.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	vendor := r.URL.Path[len("/webhooks/"):]
	verifier, ok := s.webhooks[vendor]
	if !ok {
		http.Error(w, "unknown webhook vendor", http.StatusNotFound)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "unreadable body", http.StatusBadRequest)
		return
	}

	signature := r.Header.Get("X-RTCC-Signature")
	if err := verifier.Verify(body, signature); err != nil {
		log.Warn().Str("vendor", vendor).Msg("rejected webhook with missing or mismatched signature")
		if s.auditLog != nil {
			_, _ = s.auditLog.Append(audit.Entry{
				ActionKind:  "webhook_signature_rejected",
				Severity:    audit.SeverityWarning,
				Source:      "webhook:" + vendor,
				Description: "rejected webhook with missing or mismatched signature",
				Details: map[string]any{
					"vendor": vendor,
					"reason": err.Error(),
				},
			})
		}
		http.Error(w, "signature verification failed", http.StatusUnauthorized)
		return
	}

	var event fusion.RawEvent
	if err := json.Unmarshal(body, &event); err != nil {
		http.Error(w, "malformed event payload", http.StatusBadRequest)
		return
	}
	if event.IngestTime.IsZero() {
		event.IngestTime = time.Now()
	}

	s.pipeline.Ingest(event)
	w.WriteHeader(http.StatusAccepted)
}

// handleActuatorWS upgrades an actuator's inbound connection to a
// WebSocket, keyed by the actuator id in the path.
func (s *Server) handleActuatorWS(w http.ResponseWriter, r *http.Request) {
	actuatorID := r.URL.Path[len("/ws/actuator/"):]
	if actuatorID == "" {
		http.Error(w, "missing actuator id", http.StatusBadRequest)
		return
	}
	if err := s.ws.HandleConnection(w, r, actuatorID); err != nil {
		log.Error().Err(err).Str("actuator_id", actuatorID).Msg("actuator websocket connection ended with an error")
	}
}
