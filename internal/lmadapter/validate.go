package lmadapter

import (
	"fmt"
	"strings"

	"bman/internal/schema"
)

// ValidateBatch checks every response against validSurfaceIDs and the
// per-action-kind rules of spec §4.7, returning one error per invalid
// response. An empty result means the batch is acceptable to merge.
func ValidateBatch(batch schema.LmResponseBatch, validSurfaceIDs map[string]bool) []error {
	var errs []error
	for _, r := range batch.Responses {
		if !validSurfaceIDs[r.SurfaceID] {
			errs = append(errs, fmt.Errorf("response targets unknown surface id %q", r.SurfaceID))
			continue
		}
		if err := validateAction(r.SurfaceID, r.Action); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

func validateAction(surfaceID string, action schema.LmAction) error {
	switch a := action.(type) {
	case schema.AddScenarioAction:
		if a.Scenario.ID == "" {
			return fmt.Errorf("%s: add_*_scenario requires a non-empty scenario id", surfaceID)
		}
		if len(a.Scenario.Argv) == 0 {
			return fmt.Errorf("%s: add_*_scenario requires non-empty argv", surfaceID)
		}
		if !containsString(a.Scenario.Covers, surfaceID) {
			return fmt.Errorf("%s: scenario.covers must contain the target surface id", surfaceID)
		}
	case schema.FixAssertionsAction:
		if a.ScenarioID == "" {
			return fmt.Errorf("%s: fix_assertions requires a non-empty scenario_id", surfaceID)
		}
		if len(a.Assertions) == 0 {
			return fmt.Errorf("%s: fix_assertions requires at least one assertion", surfaceID)
		}
		for _, assertion := range a.Assertions {
			if err := assertion.Validate(); err != nil {
				return fmt.Errorf("%s: %w", surfaceID, err)
			}
		}
	case schema.AddExclusionAction:
		note := strings.TrimSpace(a.Note)
		if note == "" {
			return fmt.Errorf("%s: add_exclusion requires a non-empty note", surfaceID)
		}
		if len(note) > 200 {
			return fmt.Errorf("%s: add_exclusion note exceeds 200 characters", surfaceID)
		}
	case schema.UpdateBaselineAction:
		if a.ScenarioID == "" || a.BaselineScenarioID == "" {
			return fmt.Errorf("%s: update_baseline requires scenario_id and baseline_scenario_id", surfaceID)
		}
	case schema.AddValueExamplesAction, schema.AddRequiresArgvAction, schema.SkipAction:
		// no additional constraints beyond the surface id check
	case nil:
		return fmt.Errorf("%s: response has no action", surfaceID)
	default:
		return fmt.Errorf("%s: unrecognized action type %T", surfaceID, a)
	}
	return nil
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}
