package lmadapter

import (
	"fmt"

	"bman/internal/schema"
)

// MergeOutcome reports what MergeResponses changed, so the caller can
// update progress counters and the LM log entry.
type MergeOutcome struct {
	AppliedCount        int
	ErrorCount          int
	UpdatedScenarioIDs  []string
	InvalidatedScenarioIDs []string
	DeferredExclusions  []string
	Errors              []error
}

// MergeResponses applies every LmDecisionResponse in batch to plan and
// overlays in place, per spec §4.7's merge rules:
//
//   - scenario upserts replace by id, synthesizing a minimal baseline when
//     an upsert references baseline_scenario_id=baseline and none exists;
//   - add_value_examples/add_requires_argv overlay edits invalidate (delete)
//     every scenario whose covers set is wholly within the surfaces whose
//     invocation overlay changed;
//   - add_exclusion without delta evidence in the verification ledger is
//     deferred rather than written.
func MergeResponses(
	plan *schema.ScenarioPlan,
	overlays *schema.SurfaceOverlays,
	verification *schema.VerificationLedger,
	responses []schema.LmDecisionResponse,
) MergeOutcome {
	var out MergeOutcome
	changedInvocationSurfaces := map[string]bool{}

	for _, r := range responses {
		switch a := r.Action.(type) {
		case schema.AddScenarioAction:
			mergeAddScenario(plan, a.Scenario, &out)
		case schema.FixAssertionsAction:
			mergeFixAssertions(plan, a, &out)
		case schema.AddValueExamplesAction:
			mergeInvocationOverlay(overlays, r.SurfaceID, func(inv *schema.Invocation) {
				inv.ValueExamples = unionAppend(inv.ValueExamples, a.ValueExamples)
			}, &out)
			changedInvocationSurfaces[r.SurfaceID] = true
		case schema.AddRequiresArgvAction:
			mergeInvocationOverlay(overlays, r.SurfaceID, func(inv *schema.Invocation) {
				inv.RequiresArgv = unionAppend(inv.RequiresArgv, a.RequiresArgv)
			}, &out)
			changedInvocationSurfaces[r.SurfaceID] = true
		case schema.UpdateBaselineAction:
			mergeUpdateBaseline(plan, a, &out)
		case schema.AddExclusionAction:
			mergeAddExclusion(overlays, verification, r.SurfaceID, a, &out)
		case schema.SkipAction:
			// no-op: the target is deferred to a later cycle
		default:
			out.ErrorCount++
			out.Errors = append(out.Errors, fmt.Errorf("%s: unrecognized action %T", r.SurfaceID, a))
		}
	}

	if len(changedInvocationSurfaces) > 0 {
		invalidateCoveringScenarios(plan, changedInvocationSurfaces, &out)
	}

	return out
}

func mergeAddScenario(plan *schema.ScenarioPlan, s schema.ScenarioSpec, out *MergeOutcome) {
	if s.BaselineScenarioID == "baseline" {
		if _, ok := plan.ScenarioByID("baseline"); !ok {
			plan.UpsertScenario(schema.ScenarioSpec{
				ID:      "baseline",
				Kind:    schema.ScenarioKindBehavior,
				Argv:    []string{},
				Publish: true,
			})
			out.UpdatedScenarioIDs = append(out.UpdatedScenarioIDs, "baseline")
			out.AppliedCount++
		}
	}
	plan.UpsertScenario(s)
	out.UpdatedScenarioIDs = append(out.UpdatedScenarioIDs, s.ID)
	out.AppliedCount++
}

func mergeFixAssertions(plan *schema.ScenarioPlan, a schema.FixAssertionsAction, out *MergeOutcome) {
	existing, ok := plan.ScenarioByID(a.ScenarioID)
	if !ok {
		out.ErrorCount++
		out.Errors = append(out.Errors, fmt.Errorf("fix_assertions: scenario %q not found", a.ScenarioID))
		return
	}
	existing.Assertions = a.Assertions
	out.UpdatedScenarioIDs = append(out.UpdatedScenarioIDs, a.ScenarioID)
	out.AppliedCount++
}

func mergeUpdateBaseline(plan *schema.ScenarioPlan, a schema.UpdateBaselineAction, out *MergeOutcome) {
	existing, ok := plan.ScenarioByID(a.ScenarioID)
	if !ok {
		out.ErrorCount++
		out.Errors = append(out.Errors, fmt.Errorf("update_baseline: scenario %q not found", a.ScenarioID))
		return
	}
	existing.BaselineScenarioID = a.BaselineScenarioID
	out.UpdatedScenarioIDs = append(out.UpdatedScenarioIDs, a.ScenarioID)
	out.AppliedCount++
}

func mergeInvocationOverlay(overlays *schema.SurfaceOverlays, surfaceID string, edit func(*schema.Invocation), out *MergeOutcome) {
	ov, ok := overlays.OverlayByID(surfaceID)
	if !ok {
		overlays.Overlays = append(overlays.Overlays, schema.SurfaceOverlay{ID: surfaceID, Kind: "option"})
		ov, _ = overlays.OverlayByID(surfaceID)
	}
	if ov.Invocation == nil {
		ov.Invocation = &schema.Invocation{}
	}
	edit(ov.Invocation)
	out.AppliedCount++
}

// mergeAddExclusion writes a behavior_exclusion overlay immediately if the
// verification ledger already has delta evidence for surfaceID; otherwise
// it defers the exclusion to a later cycle, per spec §4.7.
func mergeAddExclusion(overlays *schema.SurfaceOverlays, verification *schema.VerificationLedger, surfaceID string, a schema.AddExclusionAction, out *MergeOutcome) {
	var deltaPath string
	if verification != nil {
		if item, ok := verification.ItemByID(surfaceID); ok && len(item.DeltaEvidencePaths) > 0 {
			deltaPath = item.DeltaEvidencePaths[0]
		}
	}
	if deltaPath == "" {
		out.DeferredExclusions = append(out.DeferredExclusions, surfaceID)
		return
	}

	ov, ok := overlays.OverlayByID(surfaceID)
	if !ok {
		overlays.Overlays = append(overlays.Overlays, schema.SurfaceOverlay{ID: surfaceID, Kind: "option"})
		ov, _ = overlays.OverlayByID(surfaceID)
	}
	ov.BehaviorExclusion = &schema.BehaviorExclusion{
		ReasonCode: a.ReasonCode,
		Note:       a.Note,
		Evidence:   schema.BehaviorExclusionEvidence{DeltaVariantPath: deltaPath},
	}
	out.AppliedCount++
}

// invalidateCoveringScenarios deletes every scenario whose covers set is
// wholly within changedSurfaces, since its argv is no longer canonical
// after an invocation overlay edit.
func invalidateCoveringScenarios(plan *schema.ScenarioPlan, changedSurfaces map[string]bool, out *MergeOutcome) {
	var toDelete []string
	for _, s := range plan.Scenarios {
		if len(s.Covers) == 0 {
			continue
		}
		wholly := true
		for _, c := range s.Covers {
			if !changedSurfaces[c] {
				wholly = false
				break
			}
		}
		if wholly {
			toDelete = append(toDelete, s.ID)
		}
	}
	for _, id := range toDelete {
		plan.RemoveScenario(id)
		out.InvalidatedScenarioIDs = append(out.InvalidatedScenarioIDs, id)
	}
}

func unionAppend(existing, additions []string) []string {
	seen := make(map[string]bool, len(existing))
	out := append([]string(nil), existing...)
	for _, s := range existing {
		seen[s] = true
	}
	for _, s := range additions {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
