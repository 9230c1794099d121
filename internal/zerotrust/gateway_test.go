package zerotrust

import "testing"

func testRoles() []Role {
	return []Role{
		{
			Name:             "RTCC_COMMANDER",
			AllowedResources: []string{"/dispatch/*", "/fusion/*"},
			TrustLevel:       0.9,
			RequireMFA:       true,
			SessionTimeout:   0,
		},
	}
}

func baseContext() RequestContext {
	return RequestContext{
		Token:             "valid-token",
		TokenValid:        true,
		SourceIP:          "10.0.0.5",
		Country:           "US",
		State:             "FL",
		DeviceFingerprint: "fp-1",
		DeviceVerified:    true,
		MFAVerified:       true,
		Role:              "RTCC_COMMANDER",
		Resource:          "/dispatch/commands",
	}
}

func TestEvaluate_AllowsFullyVerifiedRequest(t *testing.T) {
	gw := NewGateway(DefaultScoreWeights(), NetworkPolicy{AllowedCountries: []string{"US"}, AllowedStates: []string{"FL"}}, testRoles())
	result := gw.Evaluate(baseContext())
	if result.Decision != DecisionAllow {
		t.Fatalf("expected allow, got %s (score %f)", result.Decision, result.Score)
	}
}

func TestEvaluate_DeniesInvalidToken(t *testing.T) {
	gw := NewGateway(DefaultScoreWeights(), NetworkPolicy{}, testRoles())
	ctx := baseContext()
	ctx.TokenValid = false

	result := gw.Evaluate(ctx)
	if result.Decision != DecisionDeny || result.HardFailReason == "" {
		t.Fatalf("expected a hard-fail deny for invalid token, got %+v", result)
	}
}

func TestEvaluate_DeniesDisallowedCountry(t *testing.T) {
	gw := NewGateway(DefaultScoreWeights(), NetworkPolicy{AllowedCountries: []string{"US"}}, testRoles())
	ctx := baseContext()
	ctx.Country = "XX"

	result := gw.Evaluate(ctx)
	if result.Decision != DecisionDeny {
		t.Fatalf("expected deny for disallowed country, got %s", result.Decision)
	}
	if result.HardFailReason == "" {
		t.Fatal("expected the hard-fail reason to reference the country")
	}
}

func TestEvaluate_ChallengesWhenMFAOutstanding(t *testing.T) {
	gw := NewGateway(DefaultScoreWeights(), NetworkPolicy{}, testRoles())
	ctx := baseContext()
	ctx.MFAVerified = false

	result := gw.Evaluate(ctx)
	if result.Decision != DecisionChallenge {
		t.Fatalf("expected challenge when MFA is outstanding on an otherwise-allowed request, got %s", result.Decision)
	}
}

func TestEvaluate_ScoresUnmatchedResourceAsZeroPermission(t *testing.T) {
	gw := NewGateway(DefaultScoreWeights(), NetworkPolicy{}, testRoles())
	ctx := baseContext()
	ctx.Resource = "/admin/users"

	result := gw.Evaluate(ctx)
	if result.Breakdown.RolePermissions != 0 {
		t.Fatalf("expected zero role-permission score for an unmatched resource, got %f", result.Breakdown.RolePermissions)
	}
}

func TestClassify_BoundaryAtExactThresholds(t *testing.T) {
	if classify(0.70) != DecisionAllow {
		t.Fatal("expected exactly 0.70 to be allow")
	}
	if classify(0.6999) != DecisionChallenge {
		t.Fatal("expected just below 0.70 to be challenge")
	}
	if classify(0.50) != DecisionChallenge {
		t.Fatal("expected exactly 0.50 to be challenge")
	}
	if classify(0.40) != DecisionRequireMFA {
		t.Fatal("expected exactly 0.40 to be require_mfa")
	}
	if classify(0.3999) != DecisionDeny {
		t.Fatal("expected just below 0.40 to be deny")
	}
}
