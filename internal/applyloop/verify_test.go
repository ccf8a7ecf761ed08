package applyloop

import (
	"testing"

	"bman/internal/schema"
)

func sc(id string, covers []string, assertions ...schema.BehaviorAssertion) schema.ScenarioSpec {
	return schema.ScenarioSpec{
		ID:         id,
		Kind:       schema.ScenarioKindBehavior,
		Covers:     covers,
		Assertions: assertions,
	}
}

func TestClassifyScenarioFailedRunIsUnverified(t *testing.T) {
	be := behaviorEvidence{outcome: schema.ScenarioOutcome{Pass: false, EvidencePath: "e.json"}}
	row := classifyScenario(sc("s1", []string{"--foo"}), be)
	if row.BehaviorStatus != schema.BehaviorUnverified {
		t.Fatalf("expected unverified, got %v", row.BehaviorStatus)
	}
	if row.ReasonCode != schema.ReasonScenarioError {
		t.Errorf("expected scenario_error reason, got %v", row.ReasonCode)
	}
}

func TestClassifyScenarioNoAssertionsPassedRunIsVerified(t *testing.T) {
	be := behaviorEvidence{outcome: schema.ScenarioOutcome{Pass: true, EvidencePath: "e.json"}}
	row := classifyScenario(sc("s1", []string{"--foo"}), be)
	if row.BehaviorStatus != schema.BehaviorVerified {
		t.Fatalf("expected verified, got %v", row.BehaviorStatus)
	}
}

func TestClassifyScenarioAssertionFailureSetsReason(t *testing.T) {
	scenario := sc("s1", []string{"--foo"}, schema.BehaviorAssertion{
		Kind:     schema.AssertVariantStdoutContainsSeedPath,
		SeedPath: "needle.txt",
	})
	be := behaviorEvidence{
		outcome: schema.ScenarioOutcome{Pass: true, EvidencePath: "e.json"},
		variant: &schema.ScenarioEvidence{Stdout: "no match here\n"},
	}
	row := classifyScenario(scenario, be)
	if row.BehaviorStatus != schema.BehaviorUnverified {
		t.Fatalf("expected unverified, got %v", row.BehaviorStatus)
	}
	if row.ReasonCode != schema.ReasonAssertionFailed {
		t.Errorf("expected assertion_failed reason, got %v", row.ReasonCode)
	}
	if row.AssertionKind != string(schema.AssertVariantStdoutContainsSeedPath) {
		t.Errorf("expected assertion kind recorded, got %q", row.AssertionKind)
	}
}

func TestClassifyScenarioOutputsEqualReason(t *testing.T) {
	scenario := sc("s1", []string{"--foo"}, schema.BehaviorAssertion{
		Kind: schema.AssertVariantStdoutDiffersFromBaseline,
	})
	be := behaviorEvidence{
		outcome:     schema.ScenarioOutcome{Pass: true, EvidencePath: "e.json"},
		variant:     &schema.ScenarioEvidence{Stdout: "same\n"},
		baseline:    &schema.ScenarioEvidence{Stdout: "same\n"},
		hasBaseline: true,
	}
	row := classifyScenario(scenario, be)
	if row.BehaviorStatus != schema.BehaviorUnverified {
		t.Fatalf("expected unverified, got %v", row.BehaviorStatus)
	}
	if row.ReasonCode != schema.ReasonOutputsEqual {
		t.Errorf("expected outputs_equal reason, got %v", row.ReasonCode)
	}
	if row.DeltaOutcome != schema.DeltaOutputsEqual {
		t.Errorf("expected outputs_equal delta, got %v", row.DeltaOutcome)
	}
}

func TestClassifyScenarioDiffersFromBaselinePasses(t *testing.T) {
	scenario := sc("s1", []string{"--foo"}, schema.BehaviorAssertion{
		Kind: schema.AssertVariantStdoutDiffersFromBaseline,
	})
	be := behaviorEvidence{
		outcome:     schema.ScenarioOutcome{Pass: true, EvidencePath: "e.json"},
		variant:     &schema.ScenarioEvidence{Stdout: "new output\n"},
		baseline:    &schema.ScenarioEvidence{Stdout: "old output\n"},
		hasBaseline: true,
	}
	row := classifyScenario(scenario, be)
	if row.BehaviorStatus != schema.BehaviorVerified {
		t.Fatalf("expected verified, got %v", row.BehaviorStatus)
	}
	if row.DeltaOutcome != schema.DeltaDiffers {
		t.Errorf("expected differs delta, got %v", row.DeltaOutcome)
	}
}

func TestClassifyScenarioDiffersWithNoBaselineIsOutputsEqual(t *testing.T) {
	scenario := sc("s1", []string{"--foo"}, schema.BehaviorAssertion{
		Kind: schema.AssertVariantStdoutDiffersFromBaseline,
	})
	be := behaviorEvidence{
		outcome: schema.ScenarioOutcome{Pass: true, EvidencePath: "e.json"},
		variant: &schema.ScenarioEvidence{Stdout: "anything\n"},
	}
	row := classifyScenario(scenario, be)
	if row.BehaviorStatus != schema.BehaviorUnverified {
		t.Fatalf("expected unverified with no baseline, got %v", row.BehaviorStatus)
	}
	if row.DeltaOutcome != schema.DeltaOutputsEqual {
		t.Errorf("expected outputs_equal delta when baseline missing, got %v", row.DeltaOutcome)
	}
}

func TestEvaluateAssertionHasLineMatchesWholeLine(t *testing.T) {
	be := behaviorEvidence{variant: &schema.ScenarioEvidence{Stdout: "a\n  token  \nb\n"}}
	ok, _ := evaluateAssertion(schema.BehaviorAssertion{
		Kind:        schema.AssertVariantStdoutHasLine,
		StdoutToken: "token",
	}, be)
	if !ok {
		t.Error("expected has-line assertion to match trimmed whole-line token")
	}

	ok, _ = evaluateAssertion(schema.BehaviorAssertion{
		Kind:        schema.AssertVariantStdoutHasLine,
		StdoutToken: "a",
	}, behaviorEvidence{variant: &schema.ScenarioEvidence{Stdout: "abc\n"}})
	if ok {
		t.Error("expected has-line assertion not to match a substring within a longer line")
	}
}

func TestBuildVerificationRowsSkipsScenariosWithoutEvidence(t *testing.T) {
	plan := &schema.ScenarioPlan{Scenarios: []schema.ScenarioSpec{
		sc("s1", []string{"--foo"}),
	}}
	rows := buildVerificationRows(plan, map[string]behaviorEvidence{})
	if len(rows) != 0 {
		t.Fatalf("expected no rows when no evidence is available, got %d", len(rows))
	}
}

func TestBuildVerificationRowsPrefersVerifiedAcrossCoveringScenarios(t *testing.T) {
	plan := &schema.ScenarioPlan{Scenarios: []schema.ScenarioSpec{
		sc("fails", []string{"--foo"}),
		sc("passes", []string{"--foo"}),
	}}
	evidence := map[string]behaviorEvidence{
		"fails":  {outcome: schema.ScenarioOutcome{Pass: false, EvidencePath: "f.json"}},
		"passes": {outcome: schema.ScenarioOutcome{Pass: true, EvidencePath: "p.json"}},
	}
	rows := buildVerificationRows(plan, evidence)
	if len(rows) != 1 {
		t.Fatalf("expected one row for --foo, got %d", len(rows))
	}
	if rows[0].BehaviorStatus != schema.BehaviorVerified {
		t.Errorf("expected the passing scenario's classification to win regardless of map order, got %v", rows[0].BehaviorStatus)
	}
}

func TestBuildVerificationRowsRecordsConfoundedCoverage(t *testing.T) {
	plan := &schema.ScenarioPlan{Scenarios: []schema.ScenarioSpec{
		sc("combo", []string{"--foo", "--bar"}),
	}}
	evidence := map[string]behaviorEvidence{
		"combo": {outcome: schema.ScenarioOutcome{Pass: true, EvidencePath: "c.json"}},
	}
	rows := buildVerificationRows(plan, evidence)
	if len(rows) != 2 {
		t.Fatalf("expected one row per covered surface, got %d", len(rows))
	}
	for _, row := range rows {
		if len(row.ConfoundedExtraSurfaceIDs) != 1 {
			t.Errorf("expected the other covered surface listed as confounded for %s, got %v", row.SurfaceID, row.ConfoundedExtraSurfaceIDs)
		}
	}
}
