package lmadapter

import (
	"context"
	"strings"
	"testing"
	"time"

	"bman/internal/schema"
	"bman/internal/toolconfig"
)

type fakeInvoker struct {
	responses []string
	calls     int
}

func (f *fakeInvoker) Invoke(ctx context.Context, command, prompt string, timeout time.Duration) (string, error) {
	resp := f.responses[f.calls]
	f.calls++
	return resp, nil
}

func TestInvokeForBehaviorSucceedsFirstAttempt(t *testing.T) {
	batch := `{"schema_version":1,"responses":[{"surface_id":"--verbose","action":{"kind":"add_behavior_scenario","scenario":{"id":"verify_verbose","kind":"behavior","argv":["--verbose"],"covers":["--verbose"],"publish":true,"assertions":[{"kind":"variant_stdout_differs_from_baseline"}]}}}]}`
	inv := &fakeInvoker{responses: []string{batch}}
	req := Request{
		BinaryName: "grep",
		Targets:    []BehaviorTarget{{SurfaceID: "--verbose", ReasonCode: schema.ReasonNoScenario}},
	}

	result, err := InvokeForBehavior(context.Background(), inv, toolconfig.LmConfig{Command: "fake", Timeout: "5s"}, req)
	if err != nil {
		t.Fatalf("InvokeForBehavior failed: %v", err)
	}
	if result.Attempts != 1 {
		t.Errorf("expected 1 attempt, got %d", result.Attempts)
	}
	if len(result.Batch.Responses) != 1 {
		t.Fatalf("expected 1 response, got %d", len(result.Batch.Responses))
	}
}

func TestInvokeForBehaviorRetriesOnInvalidSurfaceID(t *testing.T) {
	bad := `{"schema_version":1,"responses":[{"surface_id":"--unknown","action":{"kind":"skip","reason":"n/a"}}]}`
	good := `{"schema_version":1,"responses":[{"surface_id":"--verbose","action":{"kind":"skip","reason":"deferred"}}]}`
	inv := &fakeInvoker{responses: []string{bad, good}}
	req := Request{
		BinaryName: "grep",
		Targets:    []BehaviorTarget{{SurfaceID: "--verbose", ReasonCode: schema.ReasonOutputsEqual, RetryCount: 1}},
	}

	result, err := InvokeForBehavior(context.Background(), inv, toolconfig.LmConfig{Command: "fake", Timeout: "5s"}, req)
	if err != nil {
		t.Fatalf("InvokeForBehavior failed: %v", err)
	}
	if result.Attempts != 2 {
		t.Errorf("expected 2 attempts, got %d", result.Attempts)
	}
}

func TestInvokeForBehaviorExhaustsRetries(t *testing.T) {
	bad := `not json at all`
	inv := &fakeInvoker{responses: []string{bad, bad, bad}}
	req := Request{
		BinaryName: "grep",
		Targets:    []BehaviorTarget{{SurfaceID: "--verbose"}},
	}

	_, err := InvokeForBehavior(context.Background(), inv, toolconfig.LmConfig{Command: "fake", Timeout: "5s"}, req)
	if err == nil {
		t.Fatal("expected an error after exhausting retries")
	}
}

func TestExtractJSONHandlesFencedBlock(t *testing.T) {
	text := "Here you go:\n```json\n{\"a\":1}\n```\nThanks"
	got := ExtractJSON(text)
	if got != `{"a":1}` {
		t.Errorf("expected extracted JSON, got %q", got)
	}
}

func TestExtractJSONHandlesBareBraces(t *testing.T) {
	text := "prefix {\"a\":1} suffix"
	got := ExtractJSON(text)
	if got != `{"a":1}` {
		t.Errorf("expected extracted JSON, got %q", got)
	}
}

func TestFixCommonTyposCorrectsActionKind(t *testing.T) {
	in := `{"responses":[{"action":{"kind":"add_scenarios"}}]}`
	out := fixCommonTypos(in)
	if strings.Contains(out, "add_scenarios") {
		t.Errorf("expected typo fixed, got %q", out)
	}
}

func TestEvaluateRepeatExpressions(t *testing.T) {
	in := `"contents": "A".repeat(5)`
	out := evaluateRepeatExpressions(in)
	if !strings.Contains(out, `"AAAAA"`) {
		t.Errorf("expected repeated string, got %q", out)
	}
}

func TestEvaluateRepeatExpressionsCapsAtOneHundred(t *testing.T) {
	in := `"x".repeat(1000)`
	out := evaluateRepeatExpressions(in)
	if strings.Count(out, "x") != 100 {
		t.Errorf("expected 100 repetitions, got %d", strings.Count(out, "x"))
	}
}

func TestSanitizeScenarioStripsBinaryName(t *testing.T) {
	s := schema.ScenarioSpec{Argv: []string{"grep", "--verbose"}}
	sanitizeScenario(&s, "grep")
	if len(s.Argv) != 1 || s.Argv[0] != "--verbose" {
		t.Errorf("expected binary name stripped, got %v", s.Argv)
	}
}

func TestSanitizeSeedDropsInvalidAndDuplicatePaths(t *testing.T) {
	mode644 := uint32(644)
	seed := &schema.ScenarioSeedSpec{Entries: []schema.ScenarioSeedEntry{
		{Path: "..", Kind: schema.SeedEntryDir},
		{Path: "config.toml", Kind: schema.SeedEntryFile, Mode: &mode644},
		{Path: "config.toml", Kind: schema.SeedEntryFile},
		{Path: "../escape", Kind: schema.SeedEntryFile},
	}}
	sanitizeSeed(seed)
	if len(seed.Entries) != 1 {
		t.Fatalf("expected 1 surviving entry, got %d", len(seed.Entries))
	}
	if *seed.Entries[0].Mode != 0o644 {
		t.Errorf("expected mode translated to octal 0644, got %o", *seed.Entries[0].Mode)
	}
}

func TestValidateBatchRejectsUnknownSurfaceID(t *testing.T) {
	batch := schema.LmResponseBatch{Responses: []schema.LmDecisionResponse{
		{SurfaceID: "--unknown", Action: schema.SkipAction{}},
	}}
	errs := ValidateBatch(batch, map[string]bool{"--verbose": true})
	if len(errs) != 1 {
		t.Fatalf("expected 1 error, got %d", len(errs))
	}
}

func TestValidateBatchRejectsScenarioNotCoveringTarget(t *testing.T) {
	batch := schema.LmResponseBatch{Responses: []schema.LmDecisionResponse{
		{SurfaceID: "--verbose", Action: schema.AddScenarioAction{
			Scenario: schema.ScenarioSpec{ID: "s1", Argv: []string{"--verbose"}, Covers: []string{"--other"}},
		}},
	}}
	errs := ValidateBatch(batch, map[string]bool{"--verbose": true})
	if len(errs) != 1 {
		t.Fatalf("expected 1 error, got %d", len(errs))
	}
}

func TestMergeResponsesUpsertsScenario(t *testing.T) {
	plan := &schema.ScenarioPlan{}
	overlays := &schema.SurfaceOverlays{}
	responses := []schema.LmDecisionResponse{
		{SurfaceID: "--verbose", Action: schema.AddScenarioAction{
			Scenario: schema.ScenarioSpec{ID: "verify_verbose", Argv: []string{"--verbose"}, Covers: []string{"--verbose"}, BaselineScenarioID: "baseline"},
		}},
	}
	outcome := MergeResponses(plan, overlays, nil, responses)
	if outcome.AppliedCount != 2 { // synthesized baseline + the upsert itself
		t.Errorf("expected 2 applied (baseline + scenario), got %d", outcome.AppliedCount)
	}
	if _, ok := plan.ScenarioByID("baseline"); !ok {
		t.Error("expected a synthesized baseline scenario")
	}
	if _, ok := plan.ScenarioByID("verify_verbose"); !ok {
		t.Error("expected the upserted scenario")
	}
}

func TestMergeResponsesInvalidatesCoveringScenariosOnInvocationEdit(t *testing.T) {
	plan := &schema.ScenarioPlan{Scenarios: []schema.ScenarioSpec{
		{ID: "verify_config", Covers: []string{"--config"}},
		{ID: "verify_multi", Covers: []string{"--config", "--other"}},
	}}
	overlays := &schema.SurfaceOverlays{}
	responses := []schema.LmDecisionResponse{
		{SurfaceID: "--config", Action: schema.AddRequiresArgvAction{RequiresArgv: []string{"--format=json"}}},
	}
	outcome := MergeResponses(plan, overlays, nil, responses)
	if len(outcome.InvalidatedScenarioIDs) != 1 || outcome.InvalidatedScenarioIDs[0] != "verify_config" {
		t.Errorf("expected only verify_config invalidated, got %v", outcome.InvalidatedScenarioIDs)
	}
	if _, ok := plan.ScenarioByID("verify_config"); ok {
		t.Error("expected verify_config removed from plan")
	}
	if _, ok := plan.ScenarioByID("verify_multi"); !ok {
		t.Error("expected verify_multi to survive (covers more than the changed surface)")
	}
}

func TestMergeResponsesDefersExclusionWithoutDeltaEvidence(t *testing.T) {
	plan := &schema.ScenarioPlan{}
	overlays := &schema.SurfaceOverlays{}
	responses := []schema.LmDecisionResponse{
		{SurfaceID: "--risky", Action: schema.AddExclusionAction{ReasonCode: schema.ReasonUnsafeSideEffects, Note: "deletes files"}},
	}
	outcome := MergeResponses(plan, overlays, nil, responses)
	if len(outcome.DeferredExclusions) != 1 {
		t.Fatalf("expected exclusion deferred, got applied=%d deferred=%v", outcome.AppliedCount, outcome.DeferredExclusions)
	}
	if _, ok := overlays.OverlayByID("--risky"); ok {
		t.Error("expected no overlay written for a deferred exclusion")
	}
}

func TestMergeResponsesAppliesExclusionWithDeltaEvidence(t *testing.T) {
	plan := &schema.ScenarioPlan{}
	overlays := &schema.SurfaceOverlays{}
	verification := &schema.VerificationLedger{Items: []schema.VerificationLedgerItem{
		{SurfaceID: "--risky", DeltaEvidencePaths: []string{"inventory/scenarios/verify_risky.json"}},
	}}
	responses := []schema.LmDecisionResponse{
		{SurfaceID: "--risky", Action: schema.AddExclusionAction{ReasonCode: schema.ReasonUnsafeSideEffects, Note: "deletes files"}},
	}
	outcome := MergeResponses(plan, overlays, verification, responses)
	if outcome.AppliedCount != 1 {
		t.Fatalf("expected exclusion applied, got %+v", outcome)
	}
	ov, ok := overlays.OverlayByID("--risky")
	if !ok || ov.BehaviorExclusion == nil {
		t.Fatal("expected a behavior_exclusion overlay to be written")
	}
}

func TestMergePrereqResponse(t *testing.T) {
	file := &schema.PrereqsFile{}
	text := `{"definitions":{"tmp_config":{"description":"a config file"}},"surface_map":{"--config":["tmp_config"]}}`
	if err := MergePrereqResponse(file, text); err != nil {
		t.Fatalf("MergePrereqResponse failed: %v", err)
	}
	if _, ok := file.Definitions["tmp_config"]; !ok {
		t.Error("expected tmp_config definition merged in")
	}
	if len(file.SurfaceMap["--config"]) != 1 {
		t.Errorf("expected --config to reference tmp_config, got %v", file.SurfaceMap["--config"])
	}
}
