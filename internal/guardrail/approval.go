package guardrail

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ApprovalStatus is the lifecycle state of a human-in-the-loop approval
// request. Valid terminal transitions from Pending are Approved, Denied,
// Escalated, and Expired.
type ApprovalStatus string

const (
	ApprovalPending   ApprovalStatus = "pending"
	ApprovalApproved  ApprovalStatus = "approved"
	ApprovalDenied    ApprovalStatus = "denied"
	ApprovalEscalated ApprovalStatus = "escalated"
	ApprovalExpired   ApprovalStatus = "expired"
)

// ApprovalTier ranks the role level required to approve a request; higher
// numeric value meets any lower required tier.
type ApprovalTier int

const (
	TierSupervisor ApprovalTier = iota
	TierWatchCommander
	TierCommandStaff
	TierCivilRightsOfficer
)

// ApprovalRequest is a pending gated action awaiting a human decision,
// generalized from the teacher's internal/ai/approval.ApprovalRequest
// (pending/approved/denied/expired, single-use command-hash replay
// protection) into the guardrail's approval_chain/required_approval_tier
// vocabulary.
type ApprovalRequest struct {
	ID                   string
	ActionID             string
	RiskScore            float64
	RequiredApprovalTier ApprovalTier
	ApprovalChain        []string // usernames/roles consulted, in order
	Status               ApprovalStatus
	RequestedAt          time.Time
	ExpiresAt            time.Time
	DecidedAt            *time.Time
	DecidedBy            string
	DenyReason           string
	ActionHash           string
	Consumed             bool
}

// ActionHash computes a replay-protection hash over actionID and a
// canonical description of the action, mirroring the teacher's
// ComputeCommandHash(command, targetType, targetID).
func ActionHash(actionID, description string) string {
	h := sha256.New()
	h.Write([]byte(actionID))
	h.Write([]byte("|"))
	h.Write([]byte(description))
	return hex.EncodeToString(h.Sum(nil))
}

// ApprovalStore holds pending and decided approval requests in memory,
// with a default timeout and expiry sweep, mirroring the teacher's
// approval.Store without its file-persistence layer (the audit log is
// the platform's durable record of every decision, so the approval
// store itself does not need its own disk persistence).
type ApprovalStore struct {
	mu             sync.RWMutex
	requests       map[string]*ApprovalRequest
	defaultTimeout time.Duration
	maxPending     int
	now            func() time.Time
}

// ApprovalStoreConfig configures an ApprovalStore.
type ApprovalStoreConfig struct {
	DefaultTimeout time.Duration
	MaxPending     int
}

// DefaultApprovalStoreConfig returns sensible defaults: a 15-minute
// timeout and 200 concurrently pending requests.
func DefaultApprovalStoreConfig() ApprovalStoreConfig {
	return ApprovalStoreConfig{DefaultTimeout: 15 * time.Minute, MaxPending: 200}
}

// NewApprovalStore creates an empty store.
func NewApprovalStore(cfg ApprovalStoreConfig) *ApprovalStore {
	if cfg.DefaultTimeout <= 0 {
		cfg.DefaultTimeout = 15 * time.Minute
	}
	if cfg.MaxPending <= 0 {
		cfg.MaxPending = 200
	}
	return &ApprovalStore{
		requests:       make(map[string]*ApprovalRequest),
		defaultTimeout: cfg.DefaultTimeout,
		maxPending:     cfg.MaxPending,
		now:            time.Now,
	}
}

// Create registers a new pending approval request for actionID.
func (s *ApprovalStore) Create(actionID, description string, riskScore float64, tier ApprovalTier) (*ApprovalRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pending := 0
	for _, r := range s.requests {
		if r.Status == ApprovalPending {
			pending++
		}
	}
	if pending >= s.maxPending {
		return nil, fmt.Errorf("guardrail: maximum pending approvals (%d) reached", s.maxPending)
	}

	now := s.now()
	req := &ApprovalRequest{
		ID:                   uuid.NewString(),
		ActionID:             actionID,
		RiskScore:            riskScore,
		RequiredApprovalTier: tier,
		Status:               ApprovalPending,
		RequestedAt:          now,
		ExpiresAt:            now.Add(s.defaultTimeout),
		ActionHash:           ActionHash(actionID, description),
	}
	s.requests[req.ID] = req

	log.Info().Str("approval_id", req.ID).Str("action_id", actionID).Float64("risk_score", riskScore).Msg("guardrail: approval requested")
	return req, nil
}

// Decide applies role and (when required) MFA validity to an approval
// request's decision. Approval requires roleTier to meet or exceed the
// request's RequiredApprovalTier; when the request's tier requires MFA,
// mfaValid must be true.
func (s *ApprovalStore) Decide(id string, approve bool, decidedBy string, roleTier ApprovalTier, mfaRequired, mfaValid bool, reason string) (*ApprovalRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.requests[id]
	if !ok {
		return nil, fmt.Errorf("guardrail: approval request not found: %s", id)
	}
	if req.Status != ApprovalPending {
		return nil, fmt.Errorf("guardrail: approval request is not pending (status: %s)", req.Status)
	}
	if s.now().After(req.ExpiresAt) {
		req.Status = ApprovalExpired
		return nil, fmt.Errorf("guardrail: approval request %s has expired", id)
	}

	if approve {
		if roleTier < req.RequiredApprovalTier {
			return nil, fmt.Errorf("guardrail: role does not meet required approval tier")
		}
		if mfaRequired && !mfaValid {
			return nil, fmt.Errorf("guardrail: MFA assertion required and not valid")
		}
		req.Status = ApprovalApproved
	} else {
		req.Status = ApprovalDenied
		req.DenyReason = reason
	}

	now := s.now()
	req.DecidedAt = &now
	req.DecidedBy = decidedBy
	req.ApprovalChain = append(req.ApprovalChain, decidedBy)

	log.Info().Str("approval_id", id).Str("by", decidedBy).Str("status", string(req.Status)).Msg("guardrail: approval decided")
	return req, nil
}

// Escalate moves a pending request to Escalated, appending the escalating
// user to the approval chain for the next tier to review.
func (s *ApprovalStore) Escalate(id, escalatedBy string) (*ApprovalRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.requests[id]
	if !ok {
		return nil, fmt.Errorf("guardrail: approval request not found: %s", id)
	}
	if req.Status != ApprovalPending {
		return nil, fmt.Errorf("guardrail: approval request is not pending (status: %s)", req.Status)
	}
	req.Status = ApprovalEscalated
	req.ApprovalChain = append(req.ApprovalChain, escalatedBy)
	return req, nil
}

// Consume validates and single-use-consumes an approved request for
// actionID/description, rejecting a hash mismatch as a possible replay.
func (s *ApprovalStore) Consume(id, actionID, description string) (*ApprovalRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.requests[id]
	if !ok {
		return nil, fmt.Errorf("guardrail: approval request not found: %s", id)
	}
	if req.Status != ApprovalApproved {
		return nil, fmt.Errorf("guardrail: approval request is not approved (status: %s)", req.Status)
	}
	if req.Consumed {
		return nil, fmt.Errorf("guardrail: approval request %s has already been consumed", id)
	}
	if s.now().After(req.ExpiresAt) {
		req.Status = ApprovalExpired
		return nil, fmt.Errorf("guardrail: approval request %s has expired", id)
	}
	if expected := ActionHash(actionID, description); expected != req.ActionHash {
		log.Warn().Str("approval_id", id).Msg("guardrail: action hash mismatch on consume, possible replay")
		return nil, fmt.Errorf("guardrail: approval is for a different action")
	}

	req.Consumed = true
	return req, nil
}

// Get returns the approval request for id.
func (s *ApprovalStore) Get(id string) (*ApprovalRequest, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	req, ok := s.requests[id]
	return req, ok
}

// SweepExpired transitions every pending request past its deadline to
// Expired and returns how many were swept.
func (s *ApprovalStore) SweepExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	count := 0
	for _, req := range s.requests {
		if req.Status == ApprovalPending && now.After(req.ExpiresAt) {
			req.Status = ApprovalExpired
			count++
		}
	}
	return count
}
