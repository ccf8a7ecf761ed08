package requirement

import (
	"strings"
	"testing"

	"bman/internal/schema"
)

func TestCoverageNextAction_ScaffoldsEditWhenPatchValidates(t *testing.T) {
	plan := &schema.ScenarioPlan{}
	st := schema.RequirementStatus{ID: schema.RequirementCoverage, Evidence: []string{"--verbose"}}

	action := coverageNextAction(Input{Plan: plan}, st)
	edit, ok := action.Action.(schema.EditAction)
	if !ok {
		t.Fatalf("expected EditAction, got %T", action.Action)
	}
	if edit.Path != "scenarios/plan.json" {
		t.Errorf("Path = %q, want scenarios/plan.json", edit.Path)
	}
	if edit.EditStrategy != schema.EditMergeBehaviorScenarios {
		t.Errorf("EditStrategy = %q, want merge_behavior_scenarios", edit.EditStrategy)
	}
	if !strings.Contains(edit.Content, "--verbose") {
		t.Errorf("Content = %q, want it to mention --verbose", edit.Content)
	}
}

func TestCoverageNextAction_FallsBackToCommandWithoutEvidence(t *testing.T) {
	action := coverageNextAction(Input{Plan: &schema.ScenarioPlan{}}, schema.RequirementStatus{ID: schema.RequirementCoverage})
	if _, ok := action.Action.(schema.CommandAction); !ok {
		t.Fatalf("expected CommandAction, got %T", action.Action)
	}
}

func TestVerificationNextAction_OutputsEqualCapReachedSuggestsExclusion(t *testing.T) {
	ver := &schema.VerificationLedger{Items: []schema.VerificationLedgerItem{
		{SurfaceID: "--x", BehaviorStatus: schema.BehaviorUnverified, BehaviorUnverifiedReasonCode: schema.ReasonOutputsEqual},
	}}
	progress := &schema.VerificationProgress{OutputsEqualRetriesBySurface: map[string]schema.OutputsEqualRetry{
		"--x": {DeltaSignature: "sig", RetryCount: 3},
	}}
	st := schema.RequirementStatus{ID: schema.RequirementVerification, Evidence: []string{"--x"}}

	action := verificationNextAction(Input{Verification: ver, Progress: progress, Plan: &schema.ScenarioPlan{}}, st)
	cmd, ok := action.Action.(schema.CommandAction)
	if !ok {
		t.Fatalf("expected CommandAction, got %T", action.Action)
	}
	if cmd.Hint != "add_exclusion" {
		t.Errorf("Hint = %q, want add_exclusion", cmd.Hint)
	}
}

func TestVerificationNextAction_NoScenarioScaffoldsBaselineAndVariant(t *testing.T) {
	ver := &schema.VerificationLedger{Items: []schema.VerificationLedgerItem{
		{SurfaceID: "--x", BehaviorStatus: schema.BehaviorUnverified, BehaviorUnverifiedReasonCode: schema.ReasonNoScenario},
	}}
	st := schema.RequirementStatus{ID: schema.RequirementVerification, Evidence: []string{"--x"}}

	action := verificationNextAction(Input{Verification: ver, Plan: &schema.ScenarioPlan{}}, st)
	edit, ok := action.Action.(schema.EditAction)
	if !ok {
		t.Fatalf("expected EditAction, got %T", action.Action)
	}
	if !strings.Contains(edit.Content, "baseline") {
		t.Errorf("Content = %q, want it to scaffold a baseline scenario", edit.Content)
	}
}

func TestVerificationNextAction_UnknownTargetFallsBackToCommand(t *testing.T) {
	ver := &schema.VerificationLedger{}
	st := schema.RequirementStatus{ID: schema.RequirementVerification, Evidence: []string{"--missing"}}
	action := verificationNextAction(Input{Verification: ver, Plan: &schema.ScenarioPlan{}}, st)
	if _, ok := action.Action.(schema.CommandAction); !ok {
		t.Fatalf("expected CommandAction, got %T", action.Action)
	}
}

func TestScaffoldRequiredValueMissing_PreservesExistingBaseline(t *testing.T) {
	plan := &schema.ScenarioPlan{Scenarios: []schema.ScenarioSpec{
		{ID: "verify_x", BaselineScenarioID: "custom_baseline"},
	}}
	item := schema.VerificationLedgerItem{SurfaceID: "x"}

	patch, ok := scaffoldRequiredValueMissing(plan, item)
	if !ok {
		t.Fatal("expected scaffold to succeed")
	}
	if len(patch.UpsertScenarios) != 1 || patch.UpsertScenarios[0].BaselineScenarioID != "custom_baseline" {
		t.Errorf("expected existing baseline_scenario_id to be preserved, got %+v", patch.UpsertScenarios)
	}
}

func TestScaffoldOutputsEqual_RequiresExistingScenario(t *testing.T) {
	plan := &schema.ScenarioPlan{}
	item := schema.VerificationLedgerItem{SurfaceID: "x", BehaviorUnverifiedScenarioID: "missing"}
	if _, ok := scaffoldOutputsEqual(plan, item); ok {
		t.Error("expected scaffold to fail when the referenced scenario does not exist")
	}
}

func TestSanitizeScenarioID(t *testing.T) {
	if got := sanitizeScenarioID("--output=file"); got != "__output_file" {
		t.Errorf("sanitizeScenarioID = %q, want __output_file", got)
	}
}

func TestApplyPatch_DoesNotMutateOriginalPlan(t *testing.T) {
	plan := &schema.ScenarioPlan{Scenarios: []schema.ScenarioSpec{{ID: "a"}}}
	patch := ScenarioPlanPatch{UpsertScenarios: []schema.ScenarioSpec{{ID: "b", Kind: schema.ScenarioKindBehavior, Argv: []string{"b"}, Publish: true}}}

	applyPatch(plan, patch)

	if len(plan.Scenarios) != 1 {
		t.Errorf("expected original plan untouched, got %d scenarios", len(plan.Scenarios))
	}
}
