package ledger

import (
	"strings"
	"testing"

	"bman/internal/schema"
)

func TestBuildVerification_VerifiedFromLensRow(t *testing.T) {
	inv := &schema.SurfaceInventory{Items: []schema.SurfaceItem{{ID: "--verbose"}}}
	rows := []VerificationLensRow{
		{SurfaceID: "--verbose", BehaviorStatus: schema.BehaviorVerified, ScenarioIDs: []string{"s1"}},
	}

	got, err := BuildVerification(inv, nil, rows)
	if err != nil {
		t.Fatalf("BuildVerification: %v", err)
	}
	if got.VerifiedCount != 1 {
		t.Errorf("VerifiedCount = %d, want 1", got.VerifiedCount)
	}
	item, ok := got.ItemByID("--verbose")
	if !ok {
		t.Fatal("expected item for --verbose")
	}
	if item.BehaviorStatus != schema.BehaviorVerified {
		t.Errorf("BehaviorStatus = %s, want verified", item.BehaviorStatus)
	}
}

func TestBuildVerification_NoRowIsUnverifiedNoScenario(t *testing.T) {
	inv := &schema.SurfaceInventory{Items: []schema.SurfaceItem{{ID: "--color"}}}

	got, err := BuildVerification(inv, nil, nil)
	if err != nil {
		t.Fatalf("BuildVerification: %v", err)
	}
	if got.UnverifiedCount != 1 {
		t.Errorf("UnverifiedCount = %d, want 1", got.UnverifiedCount)
	}
	item, _ := got.ItemByID("--color")
	if item.BehaviorUnverifiedReasonCode != schema.ReasonNoScenario {
		t.Errorf("reason code = %s, want no_scenario", item.BehaviorUnverifiedReasonCode)
	}
}

func TestBuildVerification_RequiredValueMissingExample(t *testing.T) {
	inv := &schema.SurfaceInventory{Items: []schema.SurfaceItem{
		{ID: "--output", Invocation: schema.Invocation{ValueArity: schema.ArityRequired}},
	}}

	got, err := BuildVerification(inv, nil, nil)
	if err != nil {
		t.Fatalf("BuildVerification: %v", err)
	}
	item, _ := got.ItemByID("--output")
	if item.BehaviorUnverifiedReasonCode != schema.ReasonRequiredValueMissing {
		t.Errorf("reason code = %s, want required_value_missing", item.BehaviorUnverifiedReasonCode)
	}
}

func TestBuildVerification_RequiredValueWithBehaviorScenarioIsNotBlockedByMissingExample(t *testing.T) {
	inv := &schema.SurfaceInventory{Items: []schema.SurfaceItem{
		{ID: "--output", Invocation: schema.Invocation{ValueArity: schema.ArityRequired}},
	}}
	rows := []VerificationLensRow{
		{SurfaceID: "--output", BehaviorStatus: schema.BehaviorVerified, BehaviorScenarioIDs: []string{"s1"}},
	}

	got, err := BuildVerification(inv, nil, rows)
	if err != nil {
		t.Fatalf("BuildVerification: %v", err)
	}
	item, _ := got.ItemByID("--output")
	if item.BehaviorStatus != schema.BehaviorVerified {
		t.Errorf("BehaviorStatus = %s, want verified", item.BehaviorStatus)
	}
}

func TestBuildVerification_OverlayExclusionTakesPrecedence(t *testing.T) {
	inv := &schema.SurfaceInventory{Items: []schema.SurfaceItem{{ID: "--dangerous"}}}
	overlays := &schema.SurfaceOverlays{Overlays: []schema.SurfaceOverlay{
		{ID: "--dangerous", BehaviorExclusion: &schema.BehaviorExclusion{
			ReasonCode: schema.ReasonUnsafeSideEffects,
			Evidence:   schema.BehaviorExclusionEvidence{DeltaVariantPath: "evidence/x.json"},
		}},
	}}
	rows := []VerificationLensRow{
		{SurfaceID: "--dangerous", BehaviorStatus: schema.BehaviorVerified},
	}

	got, err := BuildVerification(inv, overlays, rows)
	if err != nil {
		t.Fatalf("BuildVerification: %v", err)
	}
	if got.ExcludedCount != 1 {
		t.Errorf("ExcludedCount = %d, want 1", got.ExcludedCount)
	}
	item, _ := got.ItemByID("--dangerous")
	if item.BehaviorStatus != schema.BehaviorExcluded {
		t.Errorf("BehaviorStatus = %s, want excluded despite a verified lens row", item.BehaviorStatus)
	}
}

func TestBuildVerification_DuplicateExclusionOverlaysError(t *testing.T) {
	inv := &schema.SurfaceInventory{Items: []schema.SurfaceItem{{ID: "--dangerous"}}}
	overlays := &schema.SurfaceOverlays{Overlays: []schema.SurfaceOverlay{
		{ID: "--dangerous", BehaviorExclusion: &schema.BehaviorExclusion{ReasonCode: schema.ReasonFixtureGap}},
		{ID: "--dangerous", BehaviorExclusion: &schema.BehaviorExclusion{ReasonCode: schema.ReasonNondeterministic}},
	}}

	_, err := BuildVerification(inv, overlays, nil)
	if err == nil {
		t.Fatal("expected an error for duplicate behavior_exclusion overlays")
	}
	if !strings.Contains(err.Error(), "--dangerous") {
		t.Errorf("error = %v, want it to mention --dangerous", err)
	}
}

func TestBuildVerification_SortedByID(t *testing.T) {
	inv := &schema.SurfaceInventory{Items: []schema.SurfaceItem{
		{ID: "--zeta"}, {ID: "--alpha"},
	}}
	got, err := BuildVerification(inv, nil, nil)
	if err != nil {
		t.Fatalf("BuildVerification: %v", err)
	}
	if got.Items[0].SurfaceID != "--alpha" || got.Items[1].SurfaceID != "--zeta" {
		t.Errorf("items not sorted: %v", got.Items)
	}
}
