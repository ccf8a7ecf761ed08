package ledger

import (
	"fmt"
	"sort"

	"bman/internal/schema"
)

// VerificationLensRow is one row the external verification lens reports for
// a surface item, before overlay exclusions are layered on top.
type VerificationLensRow struct {
	SurfaceID                     string
	BehaviorStatus                schema.BehaviorStatus
	ReasonCode                    schema.UnverifiedReasonCode
	ScenarioID                    string
	AssertionKind                 string
	AssertionSeedPath             string
	ScenarioIDs                   []string
	BehaviorScenarioIDs           []string
	DeltaOutcome                  schema.DeltaOutcome
	DeltaEvidencePaths            []string
	ConfoundedScenarioIDs         []string
	ConfoundedExtraSurfaceIDs     []string
	AutoVerify                    *schema.AutoVerifyResult
	Evidence                      []string
}

// BuildVerification classifies every surface item into
// verified/unverified/excluded, per §4.4. Overlay-declared behavior
// exclusions take precedence over the lens row; duplicate behavior_exclusion
// overlays for the same surface_id are a hard error (Testable Property 5).
func BuildVerification(inv *schema.SurfaceInventory, overlays *schema.SurfaceOverlays, rows []VerificationLensRow) (*schema.VerificationLedger, error) {
	exclusionSeen := map[string]bool{}
	if overlays != nil {
		for _, ov := range overlays.Overlays {
			if ov.BehaviorExclusion == nil {
				continue
			}
			if exclusionSeen[ov.ID] {
				return nil, fmt.Errorf("duplicate behavior_exclusion overlay for surface id %q", ov.ID)
			}
			exclusionSeen[ov.ID] = true
		}
	}

	rowsByID := map[string]VerificationLensRow{}
	for _, r := range rows {
		rowsByID[r.SurfaceID] = r
	}

	ledger := &schema.VerificationLedger{SchemaVersion: 1}
	for _, item := range inv.Items {
		li := schema.VerificationLedgerItem{SurfaceID: item.ID}

		var excl *schema.BehaviorExclusion
		if overlays != nil {
			if ov, ok := overlays.OverlayByID(item.ID); ok {
				excl = ov.BehaviorExclusion
			}
		}

		switch {
		case excl != nil:
			li.BehaviorStatus = schema.BehaviorExcluded
			li.Evidence = []string{excl.Evidence.DeltaVariantPath}
			ledger.ExcludedCount++
		case item.Invocation.ValueArity == schema.ArityRequired && len(item.Invocation.ValueExamples) == 0 && !hasBehaviorScenario(rowsByID[item.ID]):
			li.BehaviorStatus = schema.BehaviorUnverified
			li.BehaviorUnverifiedReasonCode = schema.ReasonRequiredValueMissing
			ledger.UnverifiedCount++
		default:
			row, ok := rowsByID[item.ID]
			if !ok {
				li.BehaviorStatus = schema.BehaviorUnverified
				li.BehaviorUnverifiedReasonCode = schema.ReasonNoScenario
				ledger.UnverifiedCount++
				break
			}
			li.BehaviorStatus = row.BehaviorStatus
			li.BehaviorUnverifiedReasonCode = row.ReasonCode
			li.BehaviorUnverifiedScenarioID = row.ScenarioID
			li.BehaviorUnverifiedAssertionKind = row.AssertionKind
			li.BehaviorUnverifiedAssertionSeedPath = row.AssertionSeedPath
			li.ScenarioIDs = row.ScenarioIDs
			li.BehaviorScenarioIDs = row.BehaviorScenarioIDs
			li.DeltaOutcome = row.DeltaOutcome
			li.DeltaEvidencePaths = row.DeltaEvidencePaths
			li.AutoVerify = row.AutoVerify
			li.Evidence = row.Evidence

			if len(row.ConfoundedExtraSurfaceIDs) > 0 {
				li.BehaviorConfoundedScenarioIDs = row.ConfoundedScenarioIDs
				li.BehaviorConfoundedExtraSurfaceIDs = row.ConfoundedExtraSurfaceIDs
			}

			switch row.BehaviorStatus {
			case schema.BehaviorVerified:
				ledger.VerifiedCount++
			case schema.BehaviorExcluded:
				ledger.ExcludedCount++
			default:
				ledger.UnverifiedCount++
			}
		}
		ledger.Items = append(ledger.Items, li)
	}

	sort.Slice(ledger.Items, func(i, j int) bool { return ledger.Items[i].SurfaceID < ledger.Items[j].SurfaceID })
	return ledger, nil
}

func hasBehaviorScenario(row VerificationLensRow) bool {
	return len(row.BehaviorScenarioIDs) > 0
}
