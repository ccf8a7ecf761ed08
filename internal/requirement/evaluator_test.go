package requirement

import (
	"errors"
	"testing"

	"bman/internal/schema"
)

func statusFor(t *testing.T, out Output, id schema.RequirementId) schema.RequirementStatus {
	t.Helper()
	for _, s := range out.Requirements {
		if s.ID == id {
			return s
		}
	}
	t.Fatalf("no status for requirement %q", id)
	return schema.RequirementStatus{}
}

func baseConfig() *schema.EnrichConfig {
	return &schema.EnrichConfig{Requirements: []schema.RequirementId{
		schema.RequirementSurface, schema.RequirementCoverage, schema.RequirementVerification,
	}}
}

func TestEvaluate_SurfaceMissingIsBlocked(t *testing.T) {
	out := Evaluate(Input{Config: baseConfig(), SurfaceErr: errors.New("bad surface")})
	st := statusFor(t, out, schema.RequirementSurface)
	if st.State != schema.RequirementBlocked {
		t.Errorf("state = %s, want blocked", st.State)
	}
	if out.NextAction == nil || out.NextAction.Action.Kind() != "command" {
		t.Fatal("expected a command next action when surface is blocked")
	}
}

func TestEvaluate_SurfaceEmptyIsUnmet(t *testing.T) {
	out := Evaluate(Input{Config: baseConfig(), Surface: &schema.SurfaceInventory{}})
	st := statusFor(t, out, schema.RequirementSurface)
	if st.State != schema.RequirementUnmet {
		t.Errorf("state = %s, want unmet", st.State)
	}
}

func TestEvaluate_SurfaceStaleAgainstLock(t *testing.T) {
	surf := &schema.SurfaceInventory{Items: []schema.SurfaceItem{{ID: "--x"}}, InputsHash: "old"}
	out := Evaluate(Input{
		Config: baseConfig(), Surface: surf,
		LockPresent: true, LockFresh: true, CurrentHash: "new",
	})
	st := statusFor(t, out, schema.RequirementSurface)
	if st.State != schema.RequirementUnmet {
		t.Errorf("state = %s, want unmet (stale)", st.State)
	}
}

func TestEvaluate_SurfaceMet(t *testing.T) {
	surf := &schema.SurfaceInventory{Items: []schema.SurfaceItem{{ID: "--x"}}, InputsHash: "h"}
	out := Evaluate(Input{
		Config: baseConfig(), Surface: surf,
		LockPresent: true, LockFresh: true, CurrentHash: "h",
	})
	st := statusFor(t, out, schema.RequirementSurface)
	if st.State != schema.RequirementMet {
		t.Errorf("state = %s, want met", st.State)
	}
}

func TestEvaluate_CoverageUncoveredNonEntryPoints(t *testing.T) {
	surf := &schema.SurfaceInventory{Items: []schema.SurfaceItem{
		{ID: "--verbose"},
		{ID: "root", ContextArgv: []string{"root"}},
	}}
	cov := &schema.CoverageLedger{Items: []schema.CoverageLedgerItem{
		{SurfaceID: "--verbose", Status: schema.CoverageUncovered},
	}}
	out := Evaluate(Input{Config: baseConfig(), Surface: surf, Coverage: cov})
	st := statusFor(t, out, schema.RequirementCoverage)
	if st.State != schema.RequirementUnmet {
		t.Errorf("state = %s, want unmet", st.State)
	}
	if st.CoverageUncoveredCount == nil || *st.CoverageUncoveredCount != 1 {
		t.Errorf("CoverageUncoveredCount = %v, want 1", st.CoverageUncoveredCount)
	}
	if len(st.Evidence) != 1 || st.Evidence[0] != "--verbose" {
		t.Errorf("Evidence = %v, want [--verbose]", st.Evidence)
	}
}

func TestEvaluate_CoverageMetIgnoresEntryPoints(t *testing.T) {
	surf := &schema.SurfaceInventory{Items: []schema.SurfaceItem{
		{ID: "root", ContextArgv: []string{"root"}},
	}}
	cov := &schema.CoverageLedger{}
	out := Evaluate(Input{Config: baseConfig(), Surface: surf, Coverage: cov})
	st := statusFor(t, out, schema.RequirementCoverage)
	if st.State != schema.RequirementMet {
		t.Errorf("state = %s, want met (entry point excluded)", st.State)
	}
}

func TestEvaluate_VerificationBlockedWithoutLedger(t *testing.T) {
	out := Evaluate(Input{Config: baseConfig()})
	st := statusFor(t, out, schema.RequirementVerification)
	if st.State != schema.RequirementBlocked {
		t.Errorf("state = %s, want blocked", st.State)
	}
}

func TestEvaluate_VerificationUnmetWithTargets(t *testing.T) {
	ver := &schema.VerificationLedger{
		Items: []schema.VerificationLedgerItem{
			{SurfaceID: "--x", BehaviorStatus: schema.BehaviorUnverified},
		},
		VerifiedCount: 2, ExcludedCount: 1,
	}
	out := Evaluate(Input{Config: baseConfig(), Verification: ver})
	st := statusFor(t, out, schema.RequirementVerification)
	if st.State != schema.RequirementUnmet {
		t.Errorf("state = %s, want unmet", st.State)
	}
	if st.Verification.BehaviorVerifiedCount != 2 || st.Verification.BehaviorExcludedCount != 1 {
		t.Errorf("Verification summary = %+v, want verified=2 excluded=1", st.Verification)
	}
	if st.BehaviorUnverifiedCount == nil || *st.BehaviorUnverifiedCount != 1 {
		t.Errorf("BehaviorUnverifiedCount = %v, want 1", st.BehaviorUnverifiedCount)
	}
}

func TestEvaluate_VerificationMet(t *testing.T) {
	ver := &schema.VerificationLedger{VerifiedCount: 3}
	out := Evaluate(Input{Config: baseConfig(), Verification: ver})
	st := statusFor(t, out, schema.RequirementVerification)
	if st.State != schema.RequirementMet {
		t.Errorf("state = %s, want met", st.State)
	}
}

func TestEvaluate_ArtifactRequirementStaleVsMissing(t *testing.T) {
	cfg := &schema.EnrichConfig{Requirements: []schema.RequirementId{schema.RequirementManPage}}

	missing := Evaluate(Input{Config: cfg})
	if st := statusFor(t, missing, schema.RequirementManPage); st.State != schema.RequirementUnmet {
		t.Errorf("missing artifact state = %s, want unmet", st.State)
	}

	stale := Evaluate(Input{
		Config: cfg, LockPresent: true, LockFresh: true, CurrentHash: "new",
		ManPageFile: ArtifactStatus{Present: true, InputsHash: "old"},
	})
	if st := statusFor(t, stale, schema.RequirementManPage); st.State != schema.RequirementUnmet {
		t.Errorf("stale artifact state = %s, want unmet", st.State)
	}

	fresh := Evaluate(Input{
		Config: cfg, LockPresent: true, LockFresh: true, CurrentHash: "h",
		ManPageFile: ArtifactStatus{Present: true, InputsHash: "h"},
	})
	if st := statusFor(t, fresh, schema.RequirementManPage); st.State != schema.RequirementMet {
		t.Errorf("fresh artifact state = %s, want met", st.State)
	}
}

func TestEvaluate_DefaultRequirementsWhenConfigEmpty(t *testing.T) {
	out := Evaluate(Input{Config: &schema.EnrichConfig{}})
	if len(out.Requirements) != len(schema.DefaultRequirements) {
		t.Errorf("got %d requirements, want %d (defaults)", len(out.Requirements), len(schema.DefaultRequirements))
	}
}

func TestEvaluate_NextActionPrefersEarliestUnmetRequirement(t *testing.T) {
	out := Evaluate(Input{Config: baseConfig(), SurfaceErr: errors.New("bad")})
	if out.NextAction == nil {
		t.Fatal("expected a next action")
	}
	cmd, ok := out.NextAction.Action.(schema.CommandAction)
	if !ok {
		t.Fatalf("expected CommandAction, got %T", out.NextAction.Action)
	}
	if cmd.Command != "bman apply" {
		t.Errorf("Command = %q, want bman apply", cmd.Command)
	}
}

func TestEvaluate_NoNextActionWhenAllMet(t *testing.T) {
	cfg := &schema.EnrichConfig{Requirements: []schema.RequirementId{schema.RequirementVerification}}
	out := Evaluate(Input{Config: cfg, Verification: &schema.VerificationLedger{}})
	if out.NextAction != nil {
		t.Errorf("expected nil NextAction when the only configured requirement is met, got %+v", out.NextAction)
	}
}
