package main

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/aldric144/rtcc-platform/internal/guardrail"
	"github.com/aldric144/rtcc-platform/internal/safety"
	"github.com/aldric144/rtcc-platform/internal/zerotrust"
)

// OfficerSurface is the officer-facing HTTP surface: check-ins, fall
// reports, and the action-gating guardrail evaluation a field action
// must clear before an operator may proceed. This is the caller the
// safety and guardrail engines were built for; the fusion/dispatch
// ingestion surface in server.go has no need of them.
type OfficerSurface struct {
	checkIns  *safety.CheckInTracker
	falls     *safety.FallDetector
	proximity *safety.Engine
	guardrail *guardrail.Engine
	gateway   *zerotrust.Gateway
	sessions  *zerotrust.SessionStore
}

// NewOfficerSurface wires the safety and guardrail engines to an HTTP
// handler set.
func NewOfficerSurface(checkIns *safety.CheckInTracker, falls *safety.FallDetector, proximity *safety.Engine, ge *guardrail.Engine, gateway *zerotrust.Gateway, sessions *zerotrust.SessionStore) *OfficerSurface {
	return &OfficerSurface{checkIns: checkIns, falls: falls, proximity: proximity, guardrail: ge, gateway: gateway, sessions: sessions}
}

// Routes registers the officer-facing endpoints onto mux.
func (o *OfficerSurface) Routes(mux *http.ServeMux) {
	mux.HandleFunc("/officers/checkin", o.withSession(o.handleCheckIn))
	mux.HandleFunc("/officers/fall", o.withSession(o.handleFall))
	mux.HandleFunc("/officers/status", o.withSession(o.handleStatus))
	mux.HandleFunc("/guardrail/evaluate", o.withSession(o.handleGuardrailEvaluate))
	mux.HandleFunc("/sessions", o.handleCreateSession)
}

// withSession gates every wrapped handler behind the zero-trust gateway:
// a bearer token that doesn't resolve to a live session, or a request
// the gateway denies, never reaches the officer-safety or guardrail
// engines.
func (o *OfficerSurface) withSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get("Authorization")
		sess, err := o.sessions.Touch(token)
		if err != nil {
			http.Error(w, "invalid or expired session", http.StatusUnauthorized)
			return
		}
		role, ok := o.gateway.RoleFor(sess.Role)
		if !ok {
			http.Error(w, "unknown role", http.StatusForbidden)
			return
		}
		result := o.gateway.Evaluate(zerotrust.RequestContext{
			Token:             token,
			TokenValid:        true,
			SourceIP:          sess.SourceIP,
			DeviceFingerprint: sess.DeviceFingerprint,
			DeviceVerified:    true,
			Role:              role.Name,
			Resource:          r.URL.Path,
		})
		if result.Decision == zerotrust.DecisionDeny {
			log.Warn().Str("resource", r.URL.Path).Str("reason", result.HardFailReason).Msg("zero-trust gateway denied request")
			http.Error(w, "access denied", http.StatusForbidden)
			return
		}
		next(w, r)
	}
}

func (o *OfficerSurface) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		UserID            string `json:"user_id"`
		RoleName          string `json:"role"`
		DeviceFingerprint string `json:"device_fingerprint"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "malformed session request", http.StatusBadRequest)
		return
	}
	role, ok := o.gateway.RoleFor(req.RoleName)
	if !ok {
		http.Error(w, "unknown role", http.StatusBadRequest)
		return
	}
	sess := o.sessions.Create(req.UserID, role, r.RemoteAddr, req.DeviceFingerprint)
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(sess)
}

func (o *OfficerSurface) handleCheckIn(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		OfficerID string              `json:"officer_id"`
		Kind      safety.CheckInKind `json:"kind"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "malformed check-in", http.StatusBadRequest)
		return
	}
	alert := o.checkIns.CheckIn(req.OfficerID, req.Kind)
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(struct {
		Alert *safety.CheckInAlert `json:"alert,omitempty"`
	}{Alert: alert})
}

func (o *OfficerSurface) handleFall(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		OfficerID string           `json:"officer_id"`
		Location  safety.FallEvent `json:"location"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "malformed fall report", http.StatusBadRequest)
		return
	}
	event := o.falls.Report(req.OfficerID, req.Location)
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(event)
}

func (o *OfficerSurface) handleStatus(w http.ResponseWriter, r *http.Request) {
	officerID := r.URL.Query().Get("officer_id")
	if officerID == "" {
		http.Error(w, "missing officer_id", http.StatusBadRequest)
		return
	}
	status := o.proximity.StatusFor(officerID)
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(status)
}

func (o *OfficerSurface) handleGuardrailEvaluate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		ActionID string                  `json:"action_id"`
		Context  guardrail.ActionContext `json:"context"`
		Factors  guardrail.RiskFactors   `json:"factors"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "malformed evaluation request", http.StatusBadRequest)
		return
	}
	decision := o.guardrail.Evaluate(req.ActionID, req.Context, req.Factors)
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(decision)
}
