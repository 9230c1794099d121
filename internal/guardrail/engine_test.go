package guardrail

import "testing"

func TestEngine_ConstitutionalDenyOutranksLowerLayers(t *testing.T) {
	rules := []Rule{
		{
			Layer:     LayerConstitutional,
			Name:      "no_search_without_cause",
			Active:    true,
			Priority:  10,
			Action:    ActionDeny,
			Reason:    "search lacks probable cause or consent",
			Condition: func(ctx ActionContext) bool { return ctx.ActionType == "search" && !ctx.ProbableCause && !ctx.ConsentGiven },
		},
		{
			Layer:     LayerAgencySOP,
			Name:      "sop_allows_search",
			Active:    true,
			Priority:  1,
			Action:    ActionAllow,
			Condition: func(ctx ActionContext) bool { return ctx.ActionType == "search" },
		},
	}

	engine := NewEngine(rules, DefaultRiskWeights(), DefaultRiskBands(), 90)
	decision := engine.Evaluate("act-1", ActionContext{ActionType: "search"}, RiskFactors{})

	if decision.Result != ActionDeny {
		t.Fatalf("expected deny, got %s", decision.Result)
	}
	if len(decision.ConstitutionalIssues) != 1 {
		t.Fatalf("expected 1 constitutional issue, got %d", len(decision.ConstitutionalIssues))
	}
}

func TestEngine_NoMatchingRulesAllowsByDefault(t *testing.T) {
	engine := NewEngine(nil, DefaultRiskWeights(), DefaultRiskBands(), 90)
	decision := engine.Evaluate("act-2", ActionContext{ActionType: "patrol"}, RiskFactors{LegalExposure: 5})
	if decision.Result != ActionAllow {
		t.Fatalf("expected allow with no applicable rules, got %s", decision.Result)
	}
}

func TestEngine_HighRiskScoreForcesApprovalEvenWhenRulesAllow(t *testing.T) {
	rules := []Rule{
		{Layer: LayerAgencySOP, Name: "allow_all", Active: true, Action: ActionAllow, Condition: func(ActionContext) bool { return true }},
	}
	engine := NewEngine(rules, DefaultRiskWeights(), DefaultRiskBands(), 50)
	decision := engine.Evaluate("act-3", ActionContext{}, RiskFactors{
		LegalExposure: 80, CivilRightsImpact: 80, JurisdictionalAuthority: 80, OperationalConsequence: 80, PoliticalRisk: 80,
	})
	if decision.Result != ActionRequireApproval {
		t.Fatalf("expected require_approval from risk threshold, got %s", decision.Result)
	}
}

func TestEngine_DenyIsNotOverriddenByRiskThreshold(t *testing.T) {
	rules := []Rule{
		{Layer: LayerConstitutional, Name: "deny_all", Active: true, Action: ActionDeny, Reason: "blocked", Condition: func(ActionContext) bool { return true }},
	}
	engine := NewEngine(rules, DefaultRiskWeights(), DefaultRiskBands(), 10)
	decision := engine.Evaluate("act-4", ActionContext{}, RiskFactors{LegalExposure: 90})
	if decision.Result != ActionDeny {
		t.Fatalf("expected deny to remain the terminal result, got %s", decision.Result)
	}
}

func TestEngine_InactiveRuleNeverApplies(t *testing.T) {
	rules := []Rule{
		{Layer: LayerConstitutional, Name: "would_deny", Active: false, Action: ActionDeny, Condition: func(ActionContext) bool { return true }},
	}
	engine := NewEngine(rules, DefaultRiskWeights(), DefaultRiskBands(), 90)
	decision := engine.Evaluate("act-5", ActionContext{}, RiskFactors{})
	if decision.Result != ActionAllow {
		t.Fatalf("expected inactive rule to be skipped, got %s", decision.Result)
	}
}

func TestRiskBands_LevelFor(t *testing.T) {
	bands := DefaultRiskBands()
	cases := map[float64]RiskLevel{
		0:   RiskLevelLow,
		25:  RiskLevelLow,
		26:  RiskLevelElevated,
		50:  RiskLevelElevated,
		51:  RiskLevelHigh,
		75:  RiskLevelHigh,
		76:  RiskLevelCritical,
		100: RiskLevelCritical,
	}
	for score, want := range cases {
		if got := bands.LevelFor(score); got != want {
			t.Errorf("LevelFor(%f) = %s, want %s", score, got, want)
		}
	}
}
