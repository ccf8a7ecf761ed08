package applyloop

import (
	"os"

	"bman/internal/pathmodel"
	"bman/internal/schema"
)

// readEvidence loads one scenario's evidence file, trying the current
// cycle's staging root first (for scenarios rerun this cycle, whose
// evidence is not yet published) and falling back to the doc pack root
// (for scenarios unchanged since a prior cycle, already published by
// staging.Publish).
func readEvidence(paths pathmodel.Paths, stagingRoot, relPath string) (*schema.ScenarioEvidence, error) {
	if relPath == "" {
		return nil, nil
	}
	if stagingRoot != "" {
		if raw, err := os.ReadFile(joinStagingPath(stagingRoot, relPath)); err == nil {
			ev := &schema.ScenarioEvidence{}
			if err := schema.DecodeStrict(raw, ev); err != nil {
				return nil, err
			}
			return ev, nil
		}
	}
	abs, err := paths.Abs(relPath)
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(abs)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	ev := &schema.ScenarioEvidence{}
	if err := schema.DecodeStrict(raw, ev); err != nil {
		return nil, err
	}
	return ev, nil
}

func joinStagingPath(stagingRoot, rel string) string {
	return stagingRoot + string(os.PathSeparator) + rel
}

// buildEvidenceMap pairs each published behavior outcome with its own
// evidence and, when the scenario names a baseline_scenario_id, that
// scenario's most recent evidence (from the index).
func buildEvidenceMap(paths pathmodel.Paths, stagingRoot string, plan *schema.ScenarioPlan, idx *schema.ScenarioIndex, outcomes []schema.ScenarioOutcome) map[string]behaviorEvidence {
	out := make(map[string]behaviorEvidence, len(outcomes))
	for _, oc := range outcomes {
		sc, ok := plan.ScenarioByID(oc.ScenarioID)
		if !ok || sc.Kind != schema.ScenarioKindBehavior {
			continue
		}
		be := behaviorEvidence{outcome: oc}
		if variant, err := readEvidence(paths, stagingRoot, oc.EvidencePath); err == nil {
			be.variant = variant
		}
		if sc.BaselineScenarioID != "" {
			if entry, ok := idx.EntryByID(sc.BaselineScenarioID); ok && len(entry.EvidencePaths) > 0 {
				baselineRel := entry.EvidencePaths[len(entry.EvidencePaths)-1]
				if baseline, err := readEvidence(paths, stagingRoot, baselineRel); err == nil && baseline != nil {
					be.baseline = baseline
					be.hasBaseline = true
				}
			}
		}
		out[oc.ScenarioID] = be
	}
	return out
}
