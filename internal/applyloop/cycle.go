package applyloop

import (
	"context"
	"fmt"
	"os"

	"bman/internal/bmanerr"
	"bman/internal/ledger"
	"bman/internal/pathmodel"
	"bman/internal/progress"
	"bman/internal/renderdriver"
	"bman/internal/requirement"
	"bman/internal/schema"
	"bman/internal/scenarioengine"
	"bman/internal/staging"
	"bman/internal/statussummary"
	"bman/internal/surfacediscovery"
)

// lensJSONFlag is the external query engine's JSON-output flag (spec §6).
// Not operator-configurable: every engine the pack ships against accepts
// the same flag, so there is no toolconfig field for it.
const lensJSONFlag = "--json"

// cycleResult is everything one StageCycle/BuildLedgers/Publish/Evaluate
// pass produced, handed back to loop.go for the decision step.
type cycleResult struct {
	Summary      statussummary.Summary
	Verification *schema.VerificationLedger
	Plan         *schema.ScenarioPlan
	Overlays     *schema.SurfaceOverlays
}

// runCycle executes one apply cycle: (re)discover the surface, run every
// scenario, build the coverage/verification ledgers, render the man page,
// publish the staged tree, then evaluate requirements into a Summary.
// Grounded on the original implementation's src/workflow/run.rs cycle shape.
func runCycle(ctx context.Context, deps Dependencies, opts Options, cfg *schema.EnrichConfig, lock schema.EnrichLock, lockPresent, lockFresh, planPresent bool, cycle int) (cycleResult, error) {
	paths := deps.Paths
	nowMs := deps.Clock.NowMs()
	ts := txnTimestamp(nowMs)
	stagingRoot := paths.Staging(ts)
	backupRoot := paths.Backup(ts)
	if err := os.MkdirAll(stagingRoot, 0o755); err != nil {
		return cycleResult{}, fmt.Errorf("create staging dir: %w", err)
	}

	plan, err := loadScenarioPlan(paths)
	if err != nil {
		return cycleResult{}, bmanerr.Wrap("load scenario plan", err)
	}
	overlays, err := loadSurfaceOverlays(paths)
	if err != nil {
		return cycleResult{}, bmanerr.Wrap("load surface overlays", err)
	}

	var blockers []schema.Blocker
	onBlocker := func(code, message string, evidence ...string) {
		blockers = append(blockers, schema.Blocker{Code: code, Message: message, Evidence: evidence})
	}

	lensTemplateAbs, err := paths.Abs(cfg.UsageLensTemplate)
	if err != nil {
		return cycleResult{}, fmt.Errorf("resolve usage lens template: %w", err)
	}
	lensEngine := surfacediscovery.LensEngine{
		Command:  deps.ToolConfig.FactPack.QueryEngineCommand,
		JSONFlag: lensJSONFlag,
		FactsDir: paths.BinaryLensFactsDir(),
	}
	surfaceCtx, cancel := context.WithTimeout(ctx, deps.ToolConfig.QueryTimeout())
	defer cancel()
	inv, err := surfacediscovery.Discover(surfaceCtx, paths, lensEngine, []string{lensTemplateAbs}, overlays, lock.InputsHash, onBlocker)
	if err != nil {
		return cycleResult{}, bmanerr.Wrap("surface discovery", err)
	}
	if err := staging.WriteJSON(stagingRoot, "inventory/surface.json", inv); err != nil {
		return cycleResult{}, bmanerr.Wrap("stage surface inventory", err)
	}

	idx := loadScenarioIndex(paths)
	priorReport := loadExamplesReport(paths)
	runMode := scenarioengine.RunModeDefault
	if opts.Full {
		runMode = scenarioengine.RunModeRerunAll
	}
	engine := scenarioengine.Engine{Paths: paths, Runner: deps.Runner, Clock: deps.Clock}
	outcomes, idx, err := engine.Run(ctx, scenarioengine.RunArgs{
		Binary:      deps.BinaryName,
		Plan:        plan,
		Index:       idx,
		PriorReport: priorReport,
		StagingRoot: stagingRoot,
		TxnRoot:     paths.Txn(ts),
		Mode:        runMode,
		Filter:      scenarioengine.KindFilter{All: true},
	})
	if err != nil {
		return cycleResult{}, bmanerr.Wrap("run scenarios", err)
	}
	if err := staging.WriteJSON(stagingRoot, "inventory/scenarios/index.json", idx); err != nil {
		return cycleResult{}, bmanerr.Wrap("stage scenario index", err)
	}
	examplesReport := scenarioengine.PublishableExamplesReport(outcomes)
	if examplesReport != nil {
		if err := staging.WriteJSON(stagingRoot, "man/examples_report.json", examplesReport); err != nil {
			return cycleResult{}, bmanerr.Wrap("stage examples report", err)
		}
	}

	coverage := ledger.BuildCoverage(plan, inv)
	if err := staging.WriteJSON(stagingRoot, "scenarios/coverage.json", coverage); err != nil {
		return cycleResult{}, bmanerr.Wrap("stage coverage ledger", err)
	}

	evidenceByScenario := buildEvidenceMap(paths, stagingRoot, plan, idx, outcomes)
	rows := buildVerificationRows(plan, evidenceByScenario)
	verification, err := ledger.BuildVerification(inv, overlays, rows)
	if err != nil {
		return cycleResult{}, &bmanerr.IntegrityError{Reason: "verification ledger", Err: err}
	}
	if err := staging.WriteJSON(stagingRoot, "scenarios/verification.json", verification); err != nil {
		return cycleResult{}, bmanerr.Wrap("stage verification ledger", err)
	}

	renderIn, err := renderdriver.BuildRenderInput(paths, deps.BinaryName, inv, examplesReport)
	if err != nil {
		return cycleResult{}, bmanerr.Wrap("build render input", err)
	}
	renderRes, err := renderdriver.Render(ctx, deps.ToolConfig, renderIn)
	if err != nil {
		return cycleResult{}, bmanerr.Wrap("render man page", err)
	}
	if err := renderdriver.StageAndMeta(stagingRoot, paths, deps.BinaryName, lock.InputsHash, renderRes, deps.Clock); err != nil {
		return cycleResult{}, bmanerr.Wrap("stage man page", err)
	}

	if _, err := staging.Publish(stagingRoot, backupRoot, paths.Root()); err != nil {
		return cycleResult{}, &bmanerr.IntegrityError{Reason: "publish staged cycle", Err: err}
	}

	manPageStatus := renderedArtifactStatus(paths.ManMeta())
	progressStore, err := progress.Load(paths)
	if err != nil {
		return cycleResult{}, bmanerr.Wrap("load verification progress", err)
	}
	examplesReportStatus := requirement.ArtifactStatus{}
	if examplesReport != nil {
		examplesReportStatus = requirement.ArtifactStatus{Present: true, InputsHash: lock.InputsHash}
	}
	evalOut := requirement.Evaluate(requirement.Input{
		Config:       cfg,
		LockPresent:  lockPresent,
		LockFresh:    lockFresh,
		CurrentHash:  lock.InputsHash,
		Surface:      inv,
		Plan:         plan,
		Coverage:     coverage,
		Verification: verification,
		Progress:     progressStore,
		CoverageLedgerFile: requirement.ArtifactStatus{Present: true, InputsHash: lock.InputsHash},
		ExamplesReportFile: examplesReportStatus,
		ManPageFile:        manPageStatus,
	})

	missing := missingArtifacts(paths)
	summary := statussummary.Build(lockPresent, lockFresh, planPresent, blockers, missing, evalOut)

	return cycleResult{Summary: summary, Verification: verification, Plan: plan, Overlays: overlays}, nil
}

func renderedArtifactStatus(path string) requirement.ArtifactStatus {
	raw, err := os.ReadFile(path)
	if err != nil {
		return requirement.ArtifactStatus{}
	}
	meta := &schema.RenderMeta{}
	if err := schema.DecodeStrict(raw, meta); err != nil {
		return requirement.ArtifactStatus{}
	}
	return requirement.ArtifactStatus{Present: true, InputsHash: meta.InputsHash}
}

func missingArtifacts(paths pathmodel.Paths) []string {
	var missing []string
	for _, p := range []string{paths.Surface(), paths.ScenariosPlan()} {
		if _, err := os.Stat(p); err != nil {
			rel, relErr := paths.Rel(p)
			if relErr != nil {
				rel = p
			}
			missing = append(missing, rel)
		}
	}
	return missing
}
