package applyloop

import (
	"strings"

	"bman/internal/ledger"
	"bman/internal/schema"
)

// behaviorEvidence is the pair of executed runs a behavior scenario needs
// to evaluate its assertions: the scenario's own outcome/evidence (the
// "variant") and, when BaselineScenarioID names one, that scenario's most
// recent evidence.
type behaviorEvidence struct {
	outcome     schema.ScenarioOutcome
	variant     *schema.ScenarioEvidence
	baseline    *schema.ScenarioEvidence
	hasBaseline bool
}

// buildVerificationRows classifies every behavior-kind scenario in plan
// against its most recent outcome/evidence, grouped by the surface ids it
// covers. There is no external lens for this step (unlike surface
// discovery and fact-pack queries): the original implementation computes
// it in-process from scenario run evidence
// (status/evaluate/verification_requirement/*.rs operates on rows already
// classified by the scenario layer), so this mirrors that shape directly
// rather than inventing a lens indirection.
func buildVerificationRows(plan *schema.ScenarioPlan, evidenceByScenario map[string]behaviorEvidence) []ledger.VerificationLensRow {
	rowsBySurface := map[string]ledger.VerificationLensRow{}

	for _, sc := range plan.Scenarios {
		if sc.Kind != schema.ScenarioKindBehavior || len(sc.Covers) == 0 {
			continue
		}
		be, ok := evidenceByScenario[sc.ID]
		if !ok {
			continue
		}
		row := classifyScenario(sc, be)
		for _, surfaceID := range sc.Covers {
			existing, seen := rowsBySurface[surfaceID]
			if seen && existing.BehaviorStatus == schema.BehaviorVerified {
				continue // a prior covering scenario already verified this surface
			}
			row.SurfaceID = surfaceID
			if len(sc.Covers) > 1 {
				row.ConfoundedScenarioIDs = []string{sc.ID}
				row.ConfoundedExtraSurfaceIDs = otherCovers(sc.Covers, surfaceID)
			}
			rowsBySurface[surfaceID] = row
		}
	}

	rows := make([]ledger.VerificationLensRow, 0, len(rowsBySurface))
	for _, row := range rowsBySurface {
		rows = append(rows, row)
	}
	return rows
}

func otherCovers(covers []string, exclude string) []string {
	var out []string
	for _, c := range covers {
		if c != exclude {
			out = append(out, c)
		}
	}
	return out
}

func classifyScenario(sc schema.ScenarioSpec, be behaviorEvidence) ledger.VerificationLensRow {
	row := ledger.VerificationLensRow{
		ScenarioID:          sc.ID,
		BehaviorScenarioIDs: []string{sc.ID},
		Evidence:            []string{be.outcome.EvidencePath},
	}

	if !be.outcome.Pass {
		row.BehaviorStatus = schema.BehaviorUnverified
		row.ReasonCode = schema.ReasonScenarioError
		return row
	}

	if len(sc.Assertions) == 0 {
		row.BehaviorStatus = schema.BehaviorVerified
		return row
	}

	for _, a := range sc.Assertions {
		ok, delta := evaluateAssertion(a, be)
		if delta != "" {
			row.DeltaOutcome = schema.DeltaOutcome(delta)
		}
		if !ok {
			row.BehaviorStatus = schema.BehaviorUnverified
			row.AssertionKind = string(a.Kind)
			row.AssertionSeedPath = a.SeedPath
			if a.Kind == schema.AssertVariantStdoutDiffersFromBaseline {
				row.ReasonCode = schema.ReasonOutputsEqual
			} else {
				row.ReasonCode = schema.ReasonAssertionFailed
			}
			return row
		}
	}

	row.BehaviorStatus = schema.BehaviorVerified
	return row
}

// evaluateAssertion checks one BehaviorAssertion against be, returning
// (pass, delta_outcome). delta_outcome is only set for the
// baseline/variant-comparison kind.
func evaluateAssertion(a schema.BehaviorAssertion, be behaviorEvidence) (bool, string) {
	variantStdout := ""
	if be.variant != nil {
		variantStdout = be.variant.Stdout
	}
	baselineStdout := ""
	if be.baseline != nil {
		baselineStdout = be.baseline.Stdout
	}

	switch a.Kind {
	case schema.AssertBaselineStdoutContainsSeedPath:
		return strings.Contains(baselineStdout, a.SeedPath), ""
	case schema.AssertBaselineStdoutNotContainsSeedPath:
		return !strings.Contains(baselineStdout, a.SeedPath), ""
	case schema.AssertVariantStdoutContainsSeedPath:
		return strings.Contains(variantStdout, a.SeedPath), ""
	case schema.AssertVariantStdoutNotContainsSeedPath:
		return !strings.Contains(variantStdout, a.SeedPath), ""
	case schema.AssertBaselineStdoutHasLine:
		return hasLine(baselineStdout, a.StdoutToken), ""
	case schema.AssertBaselineStdoutNotHasLine:
		return !hasLine(baselineStdout, a.StdoutToken), ""
	case schema.AssertVariantStdoutHasLine:
		return hasLine(variantStdout, a.StdoutToken), ""
	case schema.AssertVariantStdoutNotHasLine:
		return !hasLine(variantStdout, a.StdoutToken), ""
	case schema.AssertVariantStdoutDiffersFromBaseline:
		if !be.hasBaseline {
			return false, string(schema.DeltaOutputsEqual)
		}
		if variantStdout != baselineStdout {
			return true, string(schema.DeltaDiffers)
		}
		return false, string(schema.DeltaOutputsEqual)
	default:
		return false, ""
	}
}

func hasLine(stdout, token string) bool {
	for _, line := range strings.Split(stdout, "\n") {
		if strings.TrimSpace(line) == token {
			return true
		}
	}
	return false
}
