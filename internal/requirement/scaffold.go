package requirement

import (
	"encoding/json"
	"fmt"

	"bman/internal/progress"
	"bman/internal/schema"
	"bman/internal/scenarioengine"
)

// ScenarioPlanPatch is the small JSON patch shape synthesized by the
// evaluator for a merge_behavior_scenarios edit: §4.5.1.
type ScenarioPlanPatch struct {
	Defaults       *schema.ScenarioDefaults `json:"defaults,omitempty"`
	UpsertScenarios []schema.ScenarioSpec   `json:"upsert_scenarios"`
}

// applyPatch clones plan and applies patch's defaults/upserts, for
// validate-before-offer checking.
func applyPatch(plan *schema.ScenarioPlan, patch ScenarioPlanPatch) *schema.ScenarioPlan {
	clone := *plan
	clone.Scenarios = append([]schema.ScenarioSpec(nil), plan.Scenarios...)
	if patch.Defaults != nil {
		clone.Defaults = patch.Defaults
	}
	for _, s := range patch.UpsertScenarios {
		clone.UpsertScenario(s)
	}
	return &clone
}

func encodePatch(patch ScenarioPlanPatch) string {
	raw, err := json.MarshalIndent(patch, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(raw)
}

func coverageNextAction(in Input, st schema.RequirementStatus) *schema.NextActionEnvelope {
	if len(st.Evidence) == 0 || in.Plan == nil {
		return &schema.NextActionEnvelope{Action: schema.CommandAction{
			Command: "bman apply",
			Reason:  "surface items remain uncovered",
		}}
	}
	target := st.Evidence[0]
	patch := ScenarioPlanPatch{
		UpsertScenarios: []schema.ScenarioSpec{{
			ID:           "cover_" + sanitizeScenarioID(target),
			Kind:         schema.ScenarioKindBehavior,
			Argv:         []string{target},
			CoverageTier: schema.CoverageTierAcceptance,
			Covers:       []string{target},
			Publish:      true,
		}},
	}
	if !patchValidates(in.Plan, patch) {
		return &schema.NextActionEnvelope{Action: schema.CommandAction{
			Command: "bman apply",
			Reason:  fmt.Sprintf("%s is uncovered; no automatic scaffold validated, add a scenario covering it manually", target),
		}}
	}
	return &schema.NextActionEnvelope{Action: schema.EditAction{
		Path:         "scenarios/plan.json",
		Content:      encodePatch(patch),
		Reason:       fmt.Sprintf("add a scenario covering %q", target),
		EditStrategy: schema.EditMergeBehaviorScenarios,
	}}
}

func verificationNextAction(in Input, st schema.RequirementStatus) *schema.NextActionEnvelope {
	if in.Verification == nil || len(st.Evidence) == 0 {
		return &schema.NextActionEnvelope{Action: schema.CommandAction{
			Command: "bman apply",
			Reason:  "behavior verification is incomplete",
		}}
	}
	targetID := st.Evidence[0]
	item, ok := in.Verification.ItemByID(targetID)
	if !ok {
		return &schema.NextActionEnvelope{Action: schema.CommandAction{
			Command: "bman apply",
			Reason:  "behavior verification is incomplete",
		}}
	}

	if item.BehaviorUnverifiedReasonCode == schema.ReasonOutputsEqual && in.Progress != nil {
		if retry, ok := in.Progress.OutputsEqualRetriesBySurface[targetID]; ok && retry.RetryCount >= progress.BehaviorRerunCap {
			return &schema.NextActionEnvelope{Action: schema.CommandAction{
				Command: "bman apply",
				Reason:  fmt.Sprintf("%s has reproduced the same outputs_equal delta %d times; consider a behavior_exclusion overlay instead of another LM cycle", targetID, retry.RetryCount),
				Hint:    "add_exclusion",
			}}
		}
	}

	patch, ok := scaffoldFor(in.Plan, *item)
	if !ok || !patchValidates(in.Plan, patch) {
		return &schema.NextActionEnvelope{Action: schema.CommandAction{
			Command: "bman apply",
			Reason:  fmt.Sprintf("%s is unverified (%s); invoking the LM adapter to propose a fix", targetID, item.BehaviorUnverifiedReasonCode),
		}}
	}
	return &schema.NextActionEnvelope{Action: schema.EditAction{
		Path:         "scenarios/plan.json",
		Content:      encodePatch(patch),
		Reason:       fmt.Sprintf("scaffold a behavior scenario for %q (%s)", targetID, item.BehaviorUnverifiedReasonCode),
		EditStrategy: schema.EditMergeBehaviorScenarios,
	}}
}

// scaffoldFor builds the §4.5.1 starter patch for one unverified item, keyed
// by its reason code.
func scaffoldFor(plan *schema.ScenarioPlan, item schema.VerificationLedgerItem) (ScenarioPlanPatch, bool) {
	if plan == nil {
		return ScenarioPlanPatch{}, false
	}
	switch item.BehaviorUnverifiedReasonCode {
	case schema.ReasonNoScenario:
		return scaffoldNoScenario(plan, item)
	case schema.ReasonOutputsEqual:
		return scaffoldOutputsEqual(plan, item)
	case schema.ReasonAssertionFailed:
		return scaffoldAssertionFailed(plan, item)
	case schema.ReasonRequiredValueMissing:
		return scaffoldRequiredValueMissing(plan, item)
	default:
		return ScenarioPlanPatch{}, false
	}
}

func scaffoldNoScenario(plan *schema.ScenarioPlan, item schema.VerificationLedgerItem) (ScenarioPlanPatch, bool) {
	var upserts []schema.ScenarioSpec
	if _, ok := plan.ScenarioByID("baseline"); !ok {
		upserts = append(upserts, schema.ScenarioSpec{
			ID:      "baseline",
			Kind:    schema.ScenarioKindBehavior,
			Argv:    []string{},
			Publish: true,
			Expect:  schema.ScenarioExpect{},
		})
	}
	variantID := "verify_" + sanitizeScenarioID(item.SurfaceID)
	upserts = append(upserts, schema.ScenarioSpec{
		ID:                 variantID,
		Kind:               schema.ScenarioKindBehavior,
		Argv:               []string{item.SurfaceID},
		CoverageTier:       schema.CoverageTierBehavior,
		BaselineScenarioID: "baseline",
		Covers:             []string{item.SurfaceID},
		Publish:            true,
		Assertions: []schema.BehaviorAssertion{
			{Kind: schema.AssertVariantStdoutDiffersFromBaseline},
		},
	})
	return ScenarioPlanPatch{UpsertScenarios: upserts}, true
}

func scaffoldOutputsEqual(plan *schema.ScenarioPlan, item schema.VerificationLedgerItem) (ScenarioPlanPatch, bool) {
	if item.BehaviorUnverifiedScenarioID == "" {
		return ScenarioPlanPatch{}, false
	}
	existing, ok := plan.ScenarioByID(item.BehaviorUnverifiedScenarioID)
	if !ok {
		return ScenarioPlanPatch{}, false
	}
	clone := *existing
	clone.Argv = append([]string(nil), existing.Argv...)
	for _, hint := range companionArgvHints(plan, item.SurfaceID) {
		clone.Argv = append(clone.Argv, hint)
	}
	return ScenarioPlanPatch{UpsertScenarios: []schema.ScenarioSpec{clone}}, true
}

func companionArgvHints(plan *schema.ScenarioPlan, surfaceID string) []string {
	return nil
}

func scaffoldAssertionFailed(plan *schema.ScenarioPlan, item schema.VerificationLedgerItem) (ScenarioPlanPatch, bool) {
	if item.BehaviorUnverifiedScenarioID == "" {
		return ScenarioPlanPatch{}, false
	}
	existing, ok := plan.ScenarioByID(item.BehaviorUnverifiedScenarioID)
	if !ok {
		return ScenarioPlanPatch{}, false
	}
	clone := *existing
	var assertion schema.BehaviorAssertion
	switch {
	case item.BehaviorUnverifiedAssertionSeedPath != "":
		assertion = schema.BehaviorAssertion{
			Kind:     schema.AssertVariantStdoutContainsSeedPath,
			SeedPath: item.BehaviorUnverifiedAssertionSeedPath,
		}
	default:
		assertion = schema.BehaviorAssertion{Kind: schema.AssertVariantStdoutDiffersFromBaseline}
	}
	clone.Assertions = []schema.BehaviorAssertion{assertion}
	return ScenarioPlanPatch{UpsertScenarios: []schema.ScenarioSpec{clone}}, true
}

func scaffoldRequiredValueMissing(plan *schema.ScenarioPlan, item schema.VerificationLedgerItem) (ScenarioPlanPatch, bool) {
	variantID := "verify_" + sanitizeScenarioID(item.SurfaceID)
	placeholder := "__value__"
	upsert := schema.ScenarioSpec{
		ID:           variantID,
		Kind:         schema.ScenarioKindBehavior,
		Argv:         []string{item.SurfaceID, placeholder},
		CoverageTier: schema.CoverageTierBehavior,
		Covers:       []string{item.SurfaceID},
		Publish:      true,
		Assertions: []schema.BehaviorAssertion{
			{Kind: schema.AssertVariantStdoutDiffersFromBaseline},
		},
	}
	if existing, ok := plan.ScenarioByID(variantID); ok {
		upsert.BaselineScenarioID = existing.BaselineScenarioID
	} else {
		upsert.BaselineScenarioID = "baseline"
	}
	return ScenarioPlanPatch{UpsertScenarios: []schema.ScenarioSpec{upsert}}, true
}

func patchValidates(plan *schema.ScenarioPlan, patch ScenarioPlanPatch) bool {
	if plan == nil {
		return false
	}
	candidate := applyPatch(plan, patch)
	return scenarioengine.ValidatePlan(candidate) == nil
}

func sanitizeScenarioID(id string) string {
	out := make([]rune, 0, len(id))
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			out = append(out, r)
		default:
			out = append(out, '_')
		}
	}
	return string(out)
}
