package guardrail

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Engine evaluates an ActionContext against a configured rule set, a
// five-factor risk score, and an approval-threshold override, generalizing
// the teacher's destructive-command classifier
// (internal/ai/investigation/guardrails.go's IsDestructiveAction /
// ClassifyRisk / RequiresApproval) from "is this shell command
// destructive" into "does this action clear the precedence chain".
type Engine struct {
	rules            []Rule
	riskWeights      RiskWeights
	riskBands        RiskBands
	approvalThreshold float64
	now              func() time.Time
}

// NewEngine creates an Engine over rules, scoring factors with weights
// and bucketing with bands. approvalThreshold is the risk score at or
// above which an action always requires approval regardless of rule
// outcome.
func NewEngine(rules []Rule, weights RiskWeights, bands RiskBands, approvalThreshold float64) *Engine {
	return &Engine{
		rules:             rules,
		riskWeights:       weights,
		riskBands:         bands,
		approvalThreshold: approvalThreshold,
		now:               time.Now,
	}
}

// Evaluate decides whether actionID, described by ctx and scored by
// factors, is allowed, requires approval, or is denied.
func (e *Engine) Evaluate(actionID string, ctx ActionContext, factors RiskFactors) GuardrailDecision {
	riskScore := Score(factors, e.riskWeights)
	riskLevel := e.riskBands.LevelFor(riskScore)

	decision := GuardrailDecision{
		DecisionID: uuid.NewString(),
		ActionID:   actionID,
		Result:     ActionAllow,
		RiskScore:  riskScore,
		RiskLevel:  riskLevel,
		Timestamp:  e.now(),
	}

	for _, layer := range layerOrder {
		applicable := e.applicableRules(layer, ctx)
		if len(applicable) == 0 {
			continue
		}
		for _, r := range applicable {
			decision.PrecedenceChain = append(decision.PrecedenceChain, fmt.Sprintf("%s:%s", layer, r.Name))
		}

		// The layer's decision is neutral unless some applicable rule's
		// action is non-allow; the first such layer wins outright.
		winner, found := firstNonAllow(applicable)
		if !found {
			continue
		}

		decision.Result = winner.Action
		decision.RulesApplied = append(decision.RulesApplied, winner.Name)
		decision.Reason = winner.Reason
		classifyIssue(&decision, winner)
		break
	}

	if riskScore >= e.approvalThreshold && decision.Result != ActionDeny {
		decision.Result = ActionRequireApproval
		if decision.Reason == "" {
			decision.Reason = "risk score meets or exceeds the approval threshold"
		}
	}

	decision.SupervisorAlertRequired = riskLevel == RiskLevelHigh || riskLevel == RiskLevelCritical
	decision.CommandStaffAlertRequired = riskLevel == RiskLevelCritical || decision.Result == ActionDeny

	if len(decision.ConstitutionalIssues) > 0 || len(decision.PolicyIssues) > 0 {
		decision.Recommendations = append(decision.Recommendations, "route to legal/compliance review before proceeding")
	}

	return decision
}

// applicableRules returns layer's active rules whose condition matches
// ctx, sorted by descending priority (ties break by declaration order).
func (e *Engine) applicableRules(layer Layer, ctx ActionContext) []Rule {
	var matched []Rule
	for _, r := range e.rules {
		if r.Layer != layer || !r.Active {
			continue
		}
		if r.Condition == nil || r.Condition(ctx) {
			matched = append(matched, r)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool { return matched[i].Priority > matched[j].Priority })
	return matched
}

func firstNonAllow(rules []Rule) (Rule, bool) {
	for _, r := range rules {
		if r.Action != ActionAllow {
			return r, true
		}
	}
	return Rule{}, false
}

func classifyIssue(decision *GuardrailDecision, r Rule) {
	switch r.Layer {
	case LayerConstitutional:
		decision.ConstitutionalIssues = append(decision.ConstitutionalIssues, r.Reason)
	case LayerFederalStatute, LayerStateStatute, LayerLocalOrdinance, LayerAgencySOP, LayerModelConstraint:
		decision.PolicyIssues = append(decision.PolicyIssues, r.Reason)
	}
}
