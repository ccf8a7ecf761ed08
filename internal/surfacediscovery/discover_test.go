package surfacediscovery

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"bman/internal/pathmodel"
	"bman/internal/schema"
)

func blockerCollector() (BlockerFunc, *[]string) {
	var codes []string
	return func(code, message string, evidence ...string) {
		codes = append(codes, code)
	}, &codes
}

func TestDiscover_MissingScenarioPlanRecordsBlockerAndDiscoveryEntry(t *testing.T) {
	root := t.TempDir()
	paths := pathmodel.New(root)
	onBlocker, codes := blockerCollector()

	inv, err := Discover(context.Background(), paths, LensEngine{Command: "__bman_test_nonexistent__"}, nil, nil, "h1", onBlocker)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(inv.Discovery) != 1 || inv.Discovery[0].Status != schema.DiscoveryMissing {
		t.Errorf("Discovery = %+v, want one missing entry", inv.Discovery)
	}
	if len(*codes) != 1 || (*codes)[0] != "scenarios_plan_missing" {
		t.Errorf("blocker codes = %v, want [scenarios_plan_missing]", *codes)
	}
}

func TestDiscover_PresentScenarioPlanRecordsUsed(t *testing.T) {
	root := t.TempDir()
	paths := pathmodel.New(root)
	if err := os.MkdirAll(filepath.Dir(paths.ScenariosPlan()), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(paths.ScenariosPlan(), []byte(`{}`), 0o644); err != nil {
		t.Fatalf("write plan: %v", err)
	}
	onBlocker, _ := blockerCollector()

	inv, err := Discover(context.Background(), paths, LensEngine{Command: "__bman_test_nonexistent__"}, nil, nil, "h1", onBlocker)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(inv.Discovery) != 1 || inv.Discovery[0].Status != schema.DiscoveryUsed {
		t.Errorf("Discovery = %+v, want one used entry", inv.Discovery)
	}
}

func TestDiscover_LensEngineFailureRecordsErrorEntry(t *testing.T) {
	root := t.TempDir()
	paths := pathmodel.New(root)
	tmplPath := filepath.Join(root, "lens.sql")
	if err := os.WriteFile(tmplPath, []byte("select 1"), 0o644); err != nil {
		t.Fatalf("write template: %v", err)
	}
	onBlocker, _ := blockerCollector()

	inv, err := Discover(context.Background(), paths, LensEngine{Command: "__bman_test_nonexistent__"}, []string{tmplPath}, nil, "h1", onBlocker)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	found := false
	for _, d := range inv.Discovery {
		if d.Code == "lens.sql" && d.Status == schema.DiscoveryError {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a lens.sql error discovery entry, got %+v", inv.Discovery)
	}
}

func TestDiscover_OverlayTargetingUnknownIDProducesBlocker(t *testing.T) {
	root := t.TempDir()
	paths := pathmodel.New(root)
	overlays := &schema.SurfaceOverlays{Overlays: []schema.SurfaceOverlay{
		{ID: "--ghost", Invocation: &schema.Invocation{ValueArity: schema.ArityNone}},
	}}
	onBlocker, codes := blockerCollector()

	_, err := Discover(context.Background(), paths, LensEngine{Command: "__bman_test_nonexistent__"}, nil, overlays, "h1", onBlocker)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	found := false
	for _, c := range *codes {
		if c == "surface_overlays_missing_targets" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected surface_overlays_missing_targets blocker, got %v", *codes)
	}
}

func TestDiscover_OverlayIdentityItemSeedsNewSurfaceItem(t *testing.T) {
	root := t.TempDir()
	paths := pathmodel.New(root)
	overlays := &schema.SurfaceOverlays{Items: []schema.IdentityItem{
		{ID: "--new-flag", Display: "--new-flag"},
	}}
	onBlocker, _ := blockerCollector()

	inv, err := Discover(context.Background(), paths, LensEngine{Command: "__bman_test_nonexistent__"}, nil, overlays, "h1", onBlocker)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	found := false
	for _, item := range inv.Items {
		if item.ID == "--new-flag" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected --new-flag to be seeded from overlays.items, got %+v", inv.Items)
	}
}
