package applyloop

import (
	"context"
	"fmt"

	"bman/internal/lmadapter"
	"bman/internal/requirement"
	"bman/internal/schema"
)

// gatherBehaviorTargets collects every surface id the verification ledger
// still marks unverified, carrying its reason code and current LM-failure
// retry count so the prompt can explain prior attempts (spec §4.7).
func gatherBehaviorTargets(verification *schema.VerificationLedger, prog *schema.VerificationProgress) []lmadapter.BehaviorTarget {
	var targets []lmadapter.BehaviorTarget
	for _, item := range verification.Items {
		if item.BehaviorStatus != schema.BehaviorUnverified {
			continue
		}
		retryCount := 0
		if prog != nil {
			retryCount = prog.LmFailuresBySurface[item.SurfaceID]
		}
		targets = append(targets, lmadapter.BehaviorTarget{
			SurfaceID:  item.SurfaceID,
			ReasonCode: item.BehaviorUnverifiedReasonCode,
			RetryCount: retryCount,
		})
	}
	return targets
}

// gatherScaffoldHints collects value-arity-required options still missing
// examples, so the LM prompt calls them out explicitly.
func gatherScaffoldHints(inv *schema.SurfaceInventory) []lmadapter.ScaffoldHint {
	var hints []lmadapter.ScaffoldHint
	for _, item := range inv.Items {
		if item.Invocation.ValueArity != schema.ArityRequired || len(item.Invocation.ValueExamples) > 0 {
			continue
		}
		hints = append(hints, lmadapter.ScaffoldHint{
			OptionID:    item.ID,
			Placeholder: item.Display,
			Description: item.Description,
		})
	}
	return hints
}

// invokeLM renders and sends one behavior-verification request, returning
// the parsed, validated batch.
func invokeLM(ctx context.Context, deps Dependencies, targets []lmadapter.BehaviorTarget, hints []lmadapter.ScaffoldHint, cycle int) (lmadapter.Result, error) {
	req := lmadapter.Request{
		BinaryName: deps.BinaryName,
		Targets:    targets,
		ValueHints: hints,
		Cycle:      cycle,
	}
	return lmadapter.InvokeForBehavior(ctx, deps.LmInvoker, deps.ToolConfig.LM, req)
}

// applyMergeBehaviorScenariosEdit decodes action.Content as a
// ScenarioPlanPatch and applies it directly to plan, with no LM round
// trip — this is the deterministic scaffold path the evaluator already
// offers (internal/requirement/scaffold.go) whenever a fix can be
// synthesized mechanically from the unverified reason code.
func applyMergeBehaviorScenariosEdit(plan *schema.ScenarioPlan, content string) error {
	var patch requirement.ScenarioPlanPatch
	if err := decodeJSON(content, &patch); err != nil {
		return fmt.Errorf("decode merge_behavior_scenarios patch: %w", err)
	}
	if patch.Defaults != nil {
		plan.Defaults = patch.Defaults
	}
	for _, s := range patch.UpsertScenarios {
		plan.UpsertScenario(s)
	}
	return nil
}

func decodeJSON(content string, v any) error {
	return schema.DecodeStrict([]byte(content), v)
}
