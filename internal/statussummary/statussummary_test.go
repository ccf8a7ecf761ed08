package statussummary

import (
	"testing"

	"bman/internal/requirement"
	"bman/internal/schema"
)

func TestBuild_MissingLockIsBlocked(t *testing.T) {
	s := Build(false, true, true, nil, nil, requirement.Output{})
	if s.Decision != schema.DecisionBlocked {
		t.Errorf("Decision = %s, want Blocked", s.Decision)
	}
}

func TestBuild_MissingArtifactIsBlocked(t *testing.T) {
	s := Build(true, true, true, nil, []string{"inventory/surface.json"}, requirement.Output{})
	if s.Decision != schema.DecisionBlocked {
		t.Errorf("Decision = %s, want Blocked", s.Decision)
	}
	if len(s.MissingArtifacts) != 1 {
		t.Errorf("MissingArtifacts = %v, want 1 entry", s.MissingArtifacts)
	}
}

func TestBuild_PreBlockerForcesBlocked(t *testing.T) {
	s := Build(true, true, true, []schema.Blocker{{Code: "config_unreadable", Message: "bad json"}}, nil, requirement.Output{})
	if s.Decision != schema.DecisionBlocked {
		t.Errorf("Decision = %s, want Blocked", s.Decision)
	}
	if len(s.Blockers) != 1 || s.Blockers[0].Code != "config_unreadable" {
		t.Errorf("Blockers = %v, want [config_unreadable]", s.Blockers)
	}
}

func TestBuild_RequirementBlockedPropagates(t *testing.T) {
	evalOut := requirement.Output{Requirements: []schema.RequirementStatus{
		{ID: schema.RequirementSurface, State: schema.RequirementBlocked, Reason: "bad surface",
			Blockers: []schema.Blocker{{Code: "surface_error", Message: "parse failure"}}},
	}}
	s := Build(true, true, true, nil, nil, evalOut)
	if s.Decision != schema.DecisionBlocked {
		t.Errorf("Decision = %s, want Blocked", s.Decision)
	}
	if s.Reason != "surface: bad surface" {
		t.Errorf("Reason = %q, want %q", s.Reason, "surface: bad surface")
	}
	if len(s.Blockers) != 1 {
		t.Errorf("expected the requirement's own blocker to be folded in, got %v", s.Blockers)
	}
}

func TestBuild_UnmetIsIncomplete(t *testing.T) {
	evalOut := requirement.Output{Requirements: []schema.RequirementStatus{
		{ID: schema.RequirementCoverage, State: schema.RequirementUnmet, Reason: "surface items remain uncovered"},
	}}
	s := Build(true, true, true, nil, nil, evalOut)
	if s.Decision != schema.DecisionIncomplete {
		t.Errorf("Decision = %s, want Incomplete", s.Decision)
	}
	if s.Reason != "coverage: surface items remain uncovered" {
		t.Errorf("Reason = %q", s.Reason)
	}
}

func TestBuild_AllMetIsComplete(t *testing.T) {
	evalOut := requirement.Output{Requirements: []schema.RequirementStatus{
		{ID: schema.RequirementSurface, State: schema.RequirementMet},
	}}
	s := Build(true, true, true, nil, nil, evalOut)
	if s.Decision != schema.DecisionComplete {
		t.Errorf("Decision = %s, want Complete", s.Decision)
	}
	if s.Reason != "every configured requirement is met" {
		t.Errorf("Reason = %q", s.Reason)
	}
}

func TestBuild_VerificationCountsSurfaced(t *testing.T) {
	n := 2
	evalOut := requirement.Output{Requirements: []schema.RequirementStatus{
		{
			ID:                      schema.RequirementVerification,
			State:                   schema.RequirementUnmet,
			Reason:                  "incomplete",
			BehaviorUnverifiedCount: &n,
			Verification: &schema.VerificationSummary{
				BehaviorVerifiedCount: 5,
				BehaviorExcludedCount: 1,
			},
		},
	}}
	s := Build(true, true, true, nil, nil, evalOut)
	if s.BehaviorVerifiedCount != 5 || s.ExcludedCount != 1 || s.BehaviorUnverifiedCount != 2 {
		t.Errorf("counts = verified=%d excluded=%d unverified=%d, want 5/1/2",
			s.BehaviorVerifiedCount, s.ExcludedCount, s.BehaviorUnverifiedCount)
	}
}

func TestTriagePreview(t *testing.T) {
	ids := make([]string, 15)
	for i := range ids {
		ids[i] = string(rune('a' + i))
	}

	if got := TriagePreview(ids, false); len(got) != 10 {
		t.Errorf("capped length = %d, want 10", len(got))
	}
	if got := TriagePreview(ids, true); len(got) != 15 {
		t.Errorf("full length = %d, want 15", len(got))
	}

	short := ids[:3]
	if got := TriagePreview(short, false); len(got) != 3 {
		t.Errorf("short list length = %d, want 3 (no cap needed)", len(got))
	}
}
