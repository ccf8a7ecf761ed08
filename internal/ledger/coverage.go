// Package ledger builds the coverage and verification ledgers from the
// scenario plan, the surface inventory, scenario evidence, overlays, and
// (for verification) a SQL lens over the fact pack. Grounded on the
// original implementation's src/scenarios/ledger/coverage.rs and
// src/status/verification_tests.rs shapes, reworked into Go's map-keyed
// indexed-identity stores per the design notes.
package ledger

import (
	"sort"

	"bman/internal/schema"
)

// BuildCoverage walks scenarios and classifies each covers token into
// behavior/rejection/acceptance based on coverage_tier, applies
// coverage.blocked entries, and resolves precedence
// behavior > rejected > acceptance > blocked > uncovered.
func BuildCoverage(plan *schema.ScenarioPlan, inv *schema.SurfaceInventory) *schema.CoverageLedger {
	status := map[string]schema.CoverageStatus{}
	scenarioIDs := map[string][]string{}
	evidence := map[string][]string{}
	known := map[string]bool{}
	for _, item := range inv.Items {
		known[item.ID] = true
		status[item.ID] = schema.CoverageUncovered
	}

	var warnings []string
	unknownSeen := map[string]bool{}
	var unknownItems []string

	for _, s := range plan.Scenarios {
		if s.CoverageIgnore {
			continue
		}
		tier := classifyTier(s.CoverageTier)
		for _, ref := range s.Covers {
			if !known[ref] {
				if !unknownSeen[ref] {
					unknownSeen[ref] = true
					unknownItems = append(unknownItems, ref)
				}
				continue
			}
			status[ref] = schema.HigherCoverageStatus(status[ref], tier)
			scenarioIDs[ref] = append(scenarioIDs[ref], s.ID)
			if s.Publish {
				evidence[ref] = append(evidence[ref], s.ID)
			}
		}
	}

	if plan.Coverage != nil {
		for _, b := range plan.Coverage.Blocked {
			if status[b.ID] == schema.CoverageBehavior {
				warnings = append(warnings, "blocked item "+b.ID+" has behavior coverage anyway")
				continue
			}
			status[b.ID] = schema.HigherCoverageStatus(status[b.ID], schema.CoverageBlockedSt)
		}
	}

	ids := make([]string, 0, len(status))
	for id := range status {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	ledger := &schema.CoverageLedger{SchemaVersion: 1, UnknownItems: unknownItems, Warnings: warnings}
	for _, id := range ids {
		ledger.Items = append(ledger.Items, schema.CoverageLedgerItem{
			SurfaceID:   id,
			Status:      status[id],
			ScenarioIDs: scenarioIDs[id],
			Evidence:    evidence[id],
		})
	}
	return ledger
}

func classifyTier(tier schema.CoverageTier) schema.CoverageStatus {
	switch tier {
	case schema.CoverageTierBehavior:
		return schema.CoverageBehavior
	case schema.CoverageTierRejection:
		return schema.CoverageRejected
	default:
		return schema.CoverageAcceptance
	}
}
