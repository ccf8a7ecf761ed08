// Package progress tracks LM-failure and no-progress counters across apply
// cycles and auto-excludes surfaces that stay stuck past their caps.
// Grounded on the original implementation's src/workflow/apply/progress.rs,
// reworked onto this module's schema types and pathmodel.Paths.
package progress

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"bman/internal/pathmodel"
	"bman/internal/schema"
)

func mustAbs(paths pathmodel.Paths, rel string) string {
	abs, err := paths.Abs(rel)
	if err != nil {
		return filepath.Join(paths.Root(), rel)
	}
	return abs
}

// BehaviorRerunCap bounds how many consecutive identical outputs_equal
// deltas the evaluator tolerates before it stops recommending a rerun.
const BehaviorRerunCap = 2

// Load reads the persisted verification progress store, returning a fresh
// zero-valued one if it does not yet exist.
func Load(paths pathmodel.Paths) (*schema.VerificationProgress, error) {
	return loadFrom(paths.Progress())
}

func loadFrom(path string) (*schema.VerificationProgress, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return schema.NewVerificationProgress(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	p := schema.NewVerificationProgress()
	if err := schema.DecodeStrict(raw, p); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if p.LmFailuresBySurface == nil {
		p.LmFailuresBySurface = map[string]int{}
	}
	if p.LmNoProgressBySurface == nil {
		p.LmNoProgressBySurface = map[string]int{}
	}
	if p.OutputsEqualRetriesBySurface == nil {
		p.OutputsEqualRetriesBySurface = map[string]schema.OutputsEqualRetry{}
	}
	return p, nil
}

// Write persists the progress store as indented JSON.
func Write(paths pathmodel.Paths, p *schema.VerificationProgress) error {
	raw, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("encode verification progress: %w", err)
	}
	if err := os.MkdirAll(paths.EnrichDir(), 0o755); err != nil {
		return fmt.Errorf("create enrich dir: %w", err)
	}
	if err := os.WriteFile(paths.Progress(), raw, 0o644); err != nil {
		return fmt.Errorf("write verification progress: %w", err)
	}
	return nil
}

// CycleProgress is the outcome of comparing this cycle's unverified count
// against the previous cycle's.
type CycleProgress int

const (
	Advanced CycleProgress = iota
	Stalled
	HitLimit
)

// CheckProgress compares the current unverified count against the last
// cycle's, advancing, incrementing the stall counter, or signalling the
// no-progress cap was hit.
func CheckProgress(currentUnverified int, lastUnverified *int, noProgressCount, maxNoProgress int) (CycleProgress, int) {
	if lastUnverified == nil || currentUnverified < *lastUnverified {
		return Advanced, 0
	}
	newCount := noProgressCount + 1
	if newCount >= maxNoProgress {
		return HitLimit, newCount
	}
	return Stalled, newCount
}

// LmProcessingResult is the outcome of feeding one LM invocation's result
// through the progress tracker.
type LmProcessingResult struct {
	IncrementNoProgress bool
	UpdatedScenarioIDs  []string
	ProcessedSurfaces   []string
}

// ProcessLmResult handles a successful or failed LM invocation: on zero
// applied responses it defers to HandleLmFailureForTargets; on any applied
// responses it clears failure counts for the targeted surfaces.
func ProcessLmResult(paths pathmodel.Paths, appliedCount int, updatedScenarioIDs []string, lmErr error, targetIDs []string, currentTargets []string, maxLmFailures int) LmProcessingResult {
	if lmErr != nil {
		return LmProcessingResult{}
	}
	if appliedCount == 0 {
		autoExcluded, err := HandleLmFailureForTargets(paths, targetIDs, maxLmFailures)
		if err != nil {
			autoExcluded = 0
		}
		return LmProcessingResult{
			IncrementNoProgress: autoExcluded == 0,
			UpdatedScenarioIDs:  updatedScenarioIDs,
		}
	}
	ClearLmFailuresForTargets(paths, targetIDs)
	return LmProcessingResult{
		IncrementNoProgress: false,
		UpdatedScenarioIDs:  updatedScenarioIDs,
		ProcessedSurfaces:   append([]string(nil), currentTargets...),
	}
}

// HandleLmFailureForTargets increments lm_failures_by_surface for every
// target id and auto-excludes any that reach maxFailures, returning the
// number of surfaces auto-excluded.
func HandleLmFailureForTargets(paths pathmodel.Paths, targetIDs []string, maxFailures int) (int, error) {
	p, err := loadFrom(paths.Progress())
	if err != nil {
		return 0, err
	}

	var toExclude []string
	for _, id := range targetIDs {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		p.LmFailuresBySurface[id]++
		if p.LmFailuresBySurface[id] >= maxFailures {
			toExclude = append(toExclude, id)
		}
	}

	if err := Write(paths, p); err != nil {
		return 0, err
	}

	if len(toExclude) == 0 {
		return 0, nil
	}
	if err := AutoExcludeStuckSurfaces(paths, toExclude); err != nil {
		return 0, err
	}
	for _, id := range toExclude {
		delete(p.LmFailuresBySurface, id)
	}
	_ = Write(paths, p)
	return len(toExclude), nil
}

// ClearLmFailuresForTargets removes lm_failures_by_surface entries for every
// target id. lm_no_progress is left untouched here; its entry for a surface
// is removed only when HandleLmNoProgressForTargets auto-excludes that
// surface, and no code path clears it when the surface becomes verified.
func ClearLmFailuresForTargets(paths pathmodel.Paths, targetIDs []string) {
	p, err := loadFrom(paths.Progress())
	if err != nil {
		return
	}
	changed := false
	for _, id := range targetIDs {
		id = strings.TrimSpace(id)
		if _, ok := p.LmFailuresBySurface[id]; ok {
			delete(p.LmFailuresBySurface, id)
			changed = true
		}
	}
	if changed {
		_ = Write(paths, p)
	}
}

// HandleLmNoProgressForTargets increments lm_no_progress_by_surface for
// every surface still unverified despite being targeted, auto-excluding any
// that reach maxNoProgress.
func HandleLmNoProgressForTargets(paths pathmodel.Paths, stillUnverified []string, maxNoProgress int) (int, error) {
	p, err := loadFrom(paths.Progress())
	if err != nil {
		return 0, err
	}

	var toExclude []string
	for _, id := range stillUnverified {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		p.LmNoProgressBySurface[id]++
		if p.LmNoProgressBySurface[id] >= maxNoProgress {
			toExclude = append(toExclude, id)
		}
	}

	if err := Write(paths, p); err != nil {
		return 0, err
	}

	if len(toExclude) == 0 {
		return 0, nil
	}
	if err := AutoExcludeStuckSurfaces(paths, toExclude); err != nil {
		return 0, err
	}
	for _, id := range toExclude {
		delete(p.LmNoProgressBySurface, id)
	}
	_ = Write(paths, p)
	return len(toExclude), nil
}

// AutoExcludeStuckSurfaces writes a behavior_exclusion overlay, reason
// "assertion_gap", for every surface id that has exhausted its failure
// budget. Already-excluded surfaces are left untouched.
func AutoExcludeStuckSurfaces(paths pathmodel.Paths, surfaceIDs []string) error {
	overlays, err := loadOverlays(paths)
	if err != nil {
		return err
	}

	evidenceBySurface := scenarioDeltaEvidence(paths)

	for _, id := range surfaceIDs {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		ov, ok := overlays.OverlayByID(id)
		if !ok {
			overlays.Overlays = append(overlays.Overlays, schema.SurfaceOverlay{ID: id, Kind: "option"})
			ov = &overlays.Overlays[len(overlays.Overlays)-1]
		}
		if ov.BehaviorExclusion != nil {
			continue
		}

		deltaPath, ok := evidenceBySurface[id]
		if !ok {
			deltaPath = fmt.Sprintf("inventory/scenarios/verify_%s.json", strings.ReplaceAll(id, "-", "_"))
		}

		ov.BehaviorExclusion = &schema.BehaviorExclusion{
			ReasonCode: schema.ReasonAssertionGap,
			Note:       "Auto-excluded after repeated LM failures",
			Evidence:   schema.BehaviorExclusionEvidence{DeltaVariantPath: deltaPath},
		}
	}

	return writeOverlays(paths, overlays)
}

func loadOverlays(paths pathmodel.Paths) (*schema.SurfaceOverlays, error) {
	raw, err := os.ReadFile(paths.SurfaceOverlays())
	if os.IsNotExist(err) {
		return &schema.SurfaceOverlays{SchemaVersion: 3}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read surface overlays: %w", err)
	}
	var overlays schema.SurfaceOverlays
	if err := schema.DecodeStrict(raw, &overlays); err != nil {
		return nil, fmt.Errorf("decode surface overlays: %w", err)
	}
	return &overlays, nil
}

func writeOverlays(paths pathmodel.Paths, overlays *schema.SurfaceOverlays) error {
	raw, err := json.MarshalIndent(overlays, "", "  ")
	if err != nil {
		return fmt.Errorf("encode surface overlays: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(paths.SurfaceOverlays()), 0o755); err != nil {
		return fmt.Errorf("create inventory dir: %w", err)
	}
	return os.WriteFile(paths.SurfaceOverlays(), raw, 0o644)
}

// scenarioDeltaEvidence maps each surface id named by a scenario's first
// covers entry to that scenario's most recent evidence file path, as recorded
// in the scenario index, for scenarios whose evidence has actually been
// written.
func scenarioDeltaEvidence(paths pathmodel.Paths) map[string]string {
	out := map[string]string{}
	raw, err := os.ReadFile(paths.ScenariosPlan())
	if err != nil {
		return out
	}
	var plan schema.ScenarioPlan
	if err := schema.DecodeStrict(raw, &plan); err != nil {
		return out
	}
	var idx schema.ScenarioIndex
	if rawIdx, err := os.ReadFile(paths.ScenarioIndex()); err == nil {
		_ = schema.DecodeStrict(rawIdx, &idx)
	}
	for _, s := range plan.Scenarios {
		if len(s.Covers) == 0 {
			continue
		}
		if entry, ok := idx.EntryByID(s.ID); ok && len(entry.EvidencePaths) > 0 {
			out[s.Covers[0]] = entry.EvidencePaths[len(entry.EvidencePaths)-1]
		}
	}
	return out
}

// GetUnverifiedCount extracts the behavior_unverified_count from the
// Verification requirement's status, if present.
func GetUnverifiedCount(req []schema.RequirementStatus) int {
	for _, r := range req {
		if r.ID == schema.RequirementVerification && r.BehaviorUnverifiedCount != nil {
			return *r.BehaviorUnverifiedCount
		}
	}
	return 0
}

// GetExcludedCount extracts the behavior_excluded_count from the
// Verification requirement's summary, if present.
func GetExcludedCount(req []schema.RequirementStatus) int {
	for _, r := range req {
		if r.ID == schema.RequirementVerification && r.Verification != nil {
			return r.Verification.BehaviorExcludedCount
		}
	}
	return 0
}
