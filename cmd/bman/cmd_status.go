package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"bman/internal/clock"
	"bman/internal/enrichlock"
	"bman/internal/pathmodel"
	"bman/internal/progress"
	"bman/internal/requirement"
	"bman/internal/schema"
	"bman/internal/statussummary"
)

var statusJSON bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "evaluate requirements against the currently published doc pack, read-only",
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "print the status summary as JSON instead of text")
}

// runStatus mirrors the evaluation half of applyloop's runCycle but never
// stages, discovers, runs scenarios, or renders: it only reads whatever is
// currently published and reports where things stand. Per spec, status
// always exits zero; the decision is surfaced in the output, not the exit
// code.
func runStatus(cmd *cobra.Command, args []string) error {
	paths, err := docPackPaths()
	if err != nil {
		return err
	}

	summary, err := computeStatus(paths)
	if err != nil {
		return err
	}

	if statusJSON {
		out, err := marshalIndent(summary)
		if err != nil {
			return err
		}
		os.Stdout.Write(out)
		os.Stdout.WriteString("\n")
		return nil
	}

	printStatusText(summary)
	return nil
}

// computeStatus mirrors the evaluation half of applyloop's runCycle but
// never stages, discovers, runs scenarios, or renders: it only reads
// whatever is currently published. Shared by `status` and
// `merge-behavior-edit`, which needs the same NextAction without running a
// full apply cycle.
func computeStatus(paths pathmodel.Paths) (statussummary.Summary, error) {
	cfg, cfgErr := loadEnrichConfig(paths)
	var blockers []schema.Blocker
	if cfgErr != nil {
		blockers = append(blockers, schema.Blocker{Code: "config_unreadable", Message: cfgErr.Error()})
		cfg = &schema.EnrichConfig{}
	}

	storedLock, lockPresent, err := loadStoredLockFile(paths)
	if err != nil {
		blockers = append(blockers, schema.Blocker{Code: "lock_unreadable", Message: err.Error()})
	}

	plan, planPresent, err := loadEnrichPlanFile(paths)
	if err != nil {
		blockers = append(blockers, schema.Blocker{Code: "plan_unreadable", Message: err.Error()})
	}
	_ = plan

	lockFresh := false
	if lockPresent && cfgErr == nil {
		current, buildErr := rebuildCurrentLock(paths, cfg)
		if buildErr != nil {
			blockers = append(blockers, schema.Blocker{Code: "lock_rebuild_failed", Message: buildErr.Error()})
		} else {
			lockFresh = storedLock.InputsHash == current.InputsHash
		}
	}

	scenarioPlan, err := loadScenarioPlanFile(paths)
	if err != nil {
		blockers = append(blockers, schema.Blocker{Code: "scenario_plan_unreadable", Message: err.Error()})
	}

	surface, surfaceErr := loadSurfaceInventoryFile(paths)
	coverage := loadCoverageLedger(paths)
	verification := loadVerificationLedger(paths)
	progressStore, err := progress.Load(paths)
	if err != nil {
		blockers = append(blockers, schema.Blocker{Code: "progress_unreadable", Message: err.Error()})
		progressStore = nil
	}

	currentHash := ""
	if lockPresent {
		currentHash = storedLock.InputsHash
	}

	evalOut := requirement.Evaluate(requirement.Input{
		Config:             cfg,
		LockPresent:        lockPresent,
		LockFresh:          lockFresh,
		CurrentHash:        currentHash,
		Surface:            surface,
		SurfaceErr:         surfaceErr,
		Plan:               scenarioPlan,
		Coverage:           coverage,
		Verification:       verification,
		Progress:           progressStore,
		CoverageLedgerFile: artifactStatus(coverage != nil, currentHash),
		ExamplesReportFile: artifactStatus(fileExists(paths.ExamplesReport()), currentHash),
		ManPageFile:        renderedArtifactStatusFile(paths.ManMeta()),
	})

	var missing []string
	for _, p := range []string{paths.Surface(), paths.ScenariosPlan()} {
		if !fileExists(p) {
			if rel, relErr := paths.Rel(p); relErr == nil {
				missing = append(missing, rel)
			} else {
				missing = append(missing, p)
			}
		}
	}

	return statussummary.Build(lockPresent, lockFresh, planPresent, blockers, missing, evalOut), nil
}

func artifactStatus(present bool, hash string) requirement.ArtifactStatus {
	if !present {
		return requirement.ArtifactStatus{}
	}
	return requirement.ArtifactStatus{Present: true, InputsHash: hash}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func renderedArtifactStatusFile(path string) requirement.ArtifactStatus {
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

func loadStoredLockFile(paths pathmodel.Paths) (schema.EnrichLock, bool, error) {
	raw, err := os.ReadFile(paths.Lock())
	if os.IsNotExist(err) {
		return schema.EnrichLock{}, false, nil
	}
	if err != nil {
		return schema.EnrichLock{}, false, err
	}
	var lock schema.EnrichLock
	if err := schema.DecodeStrict(raw, &lock); err != nil {
		return schema.EnrichLock{}, false, err
	}
	return lock, true, nil
}

func loadEnrichPlanFile(paths pathmodel.Paths) (*schema.EnrichPlan, bool, error) {
	raw, err := os.ReadFile(paths.PlanOut())
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	plan := &schema.EnrichPlan{}
	if err := schema.DecodeStrict(raw, plan); err != nil {
		return nil, false, err
	}
	return plan, true, nil
}

func loadScenarioPlanFile(paths pathmodel.Paths) (*schema.ScenarioPlan, error) {
	raw, err := os.ReadFile(paths.ScenariosPlan())
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	plan := &schema.ScenarioPlan{}
	if err := schema.DecodeStrict(raw, plan); err != nil {
		return nil, err
	}
	return plan, nil
}

func loadSurfaceInventoryFile(paths pathmodel.Paths) (*schema.SurfaceInventory, error) {
	raw, err := os.ReadFile(paths.Surface())
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	inv := &schema.SurfaceInventory{}
	if err := schema.DecodeStrict(raw, inv); err != nil {
		return nil, err
	}
	return inv, nil
}

func loadCoverageLedger(paths pathmodel.Paths) *schema.CoverageLedger {
	raw, err := os.ReadFile(filepath.Join(paths.Root(), "scenarios", "coverage.json"))
	if err != nil {
		return nil
	}
	ledger := &schema.CoverageLedger{}
	if err := schema.DecodeStrict(raw, ledger); err != nil {
		return nil
	}
	return ledger
}

func loadVerificationLedger(paths pathmodel.Paths) *schema.VerificationLedger {
	raw, err := os.ReadFile(filepath.Join(paths.Root(), "scenarios", "verification.json"))
	if err != nil {
		return nil
	}
	ledger := &schema.VerificationLedger{}
	if err := schema.DecodeStrict(raw, ledger); err != nil {
		return nil
	}
	return ledger
}

func rebuildCurrentLock(paths pathmodel.Paths, cfg *schema.EnrichConfig) (schema.EnrichLock, error) {
	return enrichlock.BuildLock(paths, cfg, paths.Config(), clock.System{})
}

func printStatusText(s statussummary.Summary) {
	fmt.Printf("decision: %s\n", s.Decision)
	if s.Reason != "" {
		fmt.Printf("reason: %s\n", s.Reason)
	}
	fmt.Printf("behavior verified/unverified: %d/%d (excluded %d)\n", s.BehaviorVerifiedCount, s.BehaviorUnverifiedCount, s.ExcludedCount)
	for _, b := range s.Blockers {
		fmt.Printf("blocker: %s: %s\n", b.Code, b.Message)
	}
	for _, m := range s.MissingArtifacts {
		fmt.Printf("missing: %s\n", m)
	}
	if s.NextAction != nil && s.NextAction.Action != nil {
		fmt.Printf("next action: %s\n", s.NextAction.Action.Kind())
	}
}
