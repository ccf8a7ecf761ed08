package applyloop

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"bman/internal/bmanerr"
	"bman/internal/clock"
	"bman/internal/enrichlock"
	"bman/internal/lmadapter"
	"bman/internal/pathmodel"
	"bman/internal/progress"
	"bman/internal/schema"
	"bman/internal/scenarioengine"
	"bman/internal/statussummary"
	"bman/internal/toolconfig"
)

// Dependencies bundles every collaborator Run needs: paths, the process
// clock, operator config, and the three external-process adapters (lens
// engine's command lives inside ToolConfig; the scenario runner and LM
// adapter are passed as already-constructed values so tests can substitute
// fakes).
type Dependencies struct {
	Paths      pathmodel.Paths
	Clock      clock.Clock
	ToolConfig *toolconfig.Config
	Runner     scenarioengine.Runner
	LmInvoker  lmadapter.Invoker
	BinaryName string
}

// Outcome is what Run returns: the final persisted report plus how many
// cycles actually ran.
type Outcome struct {
	Report    *schema.EnrichReport
	Summary   statussummary.Summary
	CyclesRun int
}

// Run drives the full apply loop described in spec §4.9: load context,
// verify the plan against the lock, then repeatedly stage a cycle, build
// ledgers, publish, evaluate requirements, and either finish, apply a
// deterministic scaffold edit, or invoke the LM — until the requirements
// are met, a blocker stops progress, or a cap is hit.
func Run(ctx context.Context, deps Dependencies, opts Options) (Outcome, error) {
	opts = opts.effective()
	paths := deps.Paths

	cfg, err := loadEnrichConfig(paths)
	if err != nil {
		return Outcome{}, bmanerr.Wrap("load context", err)
	}

	storedLock, lockPresent, err := loadStoredLock(paths)
	if err != nil {
		return Outcome{}, bmanerr.Wrap("load context", err)
	}

	currentLock, err := enrichlock.BuildLock(paths, cfg, paths.Config(), deps.Clock)
	if err != nil {
		return Outcome{}, bmanerr.Wrap("build lock", err)
	}
	lockFresh := lockPresent && storedLock.InputsHash == currentLock.InputsHash

	plan, planPresent, err := loadEnrichPlan(paths)
	if err != nil {
		return Outcome{}, bmanerr.Wrap("load plan", err)
	}

	if lockPresent && planPresent && !plan.MatchesLock(currentLock) && !opts.Force {
		integrityErr := &bmanerr.IntegrityError{Reason: "plan.out.json does not match the current lock; rerun `bman plan` or pass --force"}
		appendHistory(paths, deps.Clock, 0, false, false, schema.DecisionBlocked, integrityErr.Error())
		return Outcome{}, integrityErr
	}

	var (
		lastUnverified  *int
		noProgressCount int
		lmFailures      int
		cycle           int
		last            cycleResult
	)

	for cycle = 1; cycle <= opts.MaxCycles; cycle++ {
		result, err := runCycle(ctx, deps, opts, cfg, currentLock, lockPresent, lockFresh, planPresent, cycle)
		if err != nil {
			appendHistory(paths, deps.Clock, cycle, false, opts.Force, schema.DecisionBlocked, err.Error())
			return Outcome{}, err
		}
		last = result

		if result.Summary.Decision == schema.DecisionBlocked && !opts.Force {
			report := writeFinalReport(paths, deps.Clock, result.Summary)
			appendHistory(paths, deps.Clock, cycle, false, opts.Force, result.Summary.Decision, result.Summary.Reason)
			return Outcome{Report: report, Summary: result.Summary, CyclesRun: cycle}, nil
		}

		if result.Summary.Decision == schema.DecisionComplete || result.Summary.NextAction == nil {
			report := writeFinalReport(paths, deps.Clock, result.Summary)
			appendHistory(paths, deps.Clock, cycle, true, opts.Force, result.Summary.Decision, result.Summary.Reason)
			return Outcome{Report: report, Summary: result.Summary, CyclesRun: cycle}, nil
		}

		done, loopErr := applyNextAction(ctx, deps, opts, result, cycle, &lastUnverified, &noProgressCount, &lmFailures)
		if loopErr != nil {
			appendHistory(paths, deps.Clock, cycle, false, opts.Force, result.Summary.Decision, loopErr.Error())
			return Outcome{}, loopErr
		}
		appendHistory(paths, deps.Clock, cycle, true, opts.Force, result.Summary.Decision, result.Summary.Reason)
		if done {
			report := writeFinalReport(paths, deps.Clock, result.Summary)
			return Outcome{Report: report, Summary: result.Summary, CyclesRun: cycle}, nil
		}
	}

	report := writeFinalReport(paths, deps.Clock, last.Summary)
	return Outcome{Report: report, Summary: last.Summary, CyclesRun: opts.MaxCycles}, nil
}

// applyNextAction executes the evaluator's single recommended next action
// for this cycle. It returns done=true when the loop should stop (the
// action is an operator-facing command other than "bman apply", or a cap
// was hit), and done=false when another cycle should run immediately.
func applyNextAction(ctx context.Context, deps Dependencies, opts Options, result cycleResult, cycle int, lastUnverified **int, noProgressCount, lmFailures *int) (bool, error) {
	action := result.Summary.NextAction.Action

	switch a := action.(type) {
	case schema.EditAction:
		if a.EditStrategy != schema.EditMergeBehaviorScenarios {
			return true, nil // unrecognized edit strategy: surface to the operator
		}
		plan, err := loadScenarioPlan(deps.Paths)
		if err != nil {
			return false, bmanerr.Wrap("reload scenario plan for edit", err)
		}
		if err := applyMergeBehaviorScenariosEdit(plan, a.Content); err != nil {
			return false, err
		}
		if err := writeScenarioPlan(deps.Paths, plan); err != nil {
			return false, bmanerr.Wrap("persist scenario plan edit", err)
		}
		return false, nil

	case schema.CommandAction:
		if a.Command != "bman apply" {
			return true, nil // an external command the operator must run themselves
		}
		return invokeLMCycle(ctx, deps, opts, result, cycle, lastUnverified, noProgressCount, lmFailures)

	default:
		return true, nil
	}
}

func invokeLMCycle(ctx context.Context, deps Dependencies, opts Options, result cycleResult, cycle int, lastUnverified **int, noProgressCount, lmFailures *int) (bool, error) {
	paths := deps.Paths
	prog, err := progress.Load(paths)
	if err != nil {
		return false, bmanerr.Wrap("load verification progress", err)
	}

	targets := gatherBehaviorTargets(result.Verification, prog)
	currentUnverified := len(targets)
	if currentUnverified == 0 {
		return true, nil // nothing left for the LM to act on
	}

	inv, err := loadSurfaceInventory(paths)
	if err != nil {
		return false, bmanerr.Wrap("reload surface inventory for LM prompt", err)
	}
	hints := gatherScaffoldHints(inv)

	lmStart := deps.Clock.NowMs()
	lmRes, lmErr := invokeLM(ctx, deps, targets, hints, cycle)

	plan, err := loadScenarioPlan(paths)
	if err != nil {
		return false, bmanerr.Wrap("reload scenario plan for LM merge", err)
	}
	overlays, err := loadSurfaceOverlays(paths)
	if err != nil {
		return false, bmanerr.Wrap("reload surface overlays for LM merge", err)
	}

	var mergeOutcome lmadapter.MergeOutcome
	targetIDs := make([]string, len(targets))
	for i, t := range targets {
		targetIDs[i] = t.SurfaceID
	}

	outcome := schema.LmOutcomeSuccess
	if lmErr != nil {
		*lmFailures++
		outcome = schema.LmOutcomeFailed
	} else {
		mergeOutcome = lmadapter.MergeResponses(plan, overlays, result.Verification, lmRes.Batch.Responses)
		if mergeOutcome.AppliedCount == 0 {
			outcome = schema.LmOutcomeFailed
		} else if mergeOutcome.ErrorCount > 0 {
			outcome = schema.LmOutcomePartial
		}
		if err := writeScenarioPlan(paths, plan); err != nil {
			return false, bmanerr.Wrap("persist scenario plan after LM merge", err)
		}
		if err := writeSurfaceOverlays(paths, overlays); err != nil {
			return false, bmanerr.Wrap("persist surface overlays after LM merge", err)
		}
	}

	appendLmLog(paths, deps.Clock, cycle, schema.LmLogBehavior, outcome, len(targets), mergeOutcome, deps.Clock.NowMs()-lmStart)

	procResult := progress.ProcessLmResult(paths, mergeOutcome.AppliedCount, mergeOutcome.UpdatedScenarioIDs, lmErr, targetIDs, targetIDs, opts.MaxLmFailures)

	cp, newCount := progress.CheckProgress(currentUnverified, *lastUnverified, *noProgressCount, opts.MaxNoProgress)
	*noProgressCount = newCount
	cur := currentUnverified
	*lastUnverified = &cur
	if procResult.IncrementNoProgress && cp == progress.HitLimit {
		return true, nil
	}
	if *lmFailures >= opts.MaxLmFailures {
		return true, nil
	}
	return false, nil
}

func appendHistory(paths pathmodel.Paths, ck clock.Clock, cycle int, success, forceUsed bool, decision schema.EnrichDecision, message string) {
	entry := schema.EnrichHistoryEntry{
		CycleEpochMs: ck.NowMs(),
		Cycle:        cycle,
		Success:      success,
		Message:      message,
		ForceUsed:    forceUsed,
		Decision:     decision,
	}
	_ = appendJSONL(paths.History(), entry)
}

func appendLmLog(paths pathmodel.Paths, ck clock.Clock, cycle int, kind schema.LmLogKind, outcome schema.LmLogOutcome, targetCount int, merge lmadapter.MergeOutcome, durationMs int64) {
	entry := schema.LmLogEntry{
		CycleEpochMs: ck.NowMs(),
		Cycle:        cycle,
		Kind:         kind,
		Outcome:      outcome,
		TargetCount:  targetCount,
		AppliedCount: merge.AppliedCount,
		ErrorCount:   merge.ErrorCount,
		DurationMs:   durationMs,
	}
	_ = appendJSONL(paths.LmLog(), entry)
}

func appendJSONL(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = f.Write(append(raw, '\n'))
	return err
}

func writeFinalReport(paths pathmodel.Paths, ck clock.Clock, summary statussummary.Summary) *schema.EnrichReport {
	report := &schema.EnrichReport{
		SchemaVersion:      1,
		GeneratedAtEpochMs: ck.NowMs(),
		Decision:           summary.Decision,
		Reason:             summary.Reason,
		Requirements:       summary.Requirements,
		MissingArtifacts:   summary.MissingArtifacts,
		NextAction:         summary.NextAction,
	}
	raw, err := marshalIndent(report)
	if err == nil {
		_ = os.MkdirAll(paths.EnrichDir(), 0o755)
		_ = os.WriteFile(paths.Report(), raw, 0o644)
	}
	return report
}
