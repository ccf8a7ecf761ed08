package applyloop

import (
	"fmt"
	"os"

	"bman/internal/pathmodel"
	"bman/internal/schema"
)

func loadEnrichConfig(paths pathmodel.Paths) (*schema.EnrichConfig, error) {
	raw, err := os.ReadFile(paths.Config())
	if err != nil {
		return nil, fmt.Errorf("read enrich config: %w", err)
	}
	cfg := &schema.EnrichConfig{}
	if err := schema.DecodeStrict(raw, cfg); err != nil {
		return nil, fmt.Errorf("decode enrich config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid enrich config: %w", err)
	}
	return cfg, nil
}

func loadStoredLock(paths pathmodel.Paths) (schema.EnrichLock, bool, error) {
	raw, err := os.ReadFile(paths.Lock())
	if os.IsNotExist(err) {
		return schema.EnrichLock{}, false, nil
	}
	if err != nil {
		return schema.EnrichLock{}, false, fmt.Errorf("read lock: %w", err)
	}
	var lock schema.EnrichLock
	if err := schema.DecodeStrict(raw, &lock); err != nil {
		return schema.EnrichLock{}, false, fmt.Errorf("decode lock: %w", err)
	}
	return lock, true, nil
}

func loadEnrichPlan(paths pathmodel.Paths) (*schema.EnrichPlan, bool, error) {
	raw, err := os.ReadFile(paths.PlanOut())
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read plan.out.json: %w", err)
	}
	plan := &schema.EnrichPlan{}
	if err := schema.DecodeStrict(raw, plan); err != nil {
		return nil, false, fmt.Errorf("decode plan.out.json: %w", err)
	}
	return plan, true, nil
}

func loadScenarioPlan(paths pathmodel.Paths) (*schema.ScenarioPlan, error) {
	raw, err := os.ReadFile(paths.ScenariosPlan())
	if err != nil {
		return nil, fmt.Errorf("read scenarios/plan.json: %w", err)
	}
	plan := &schema.ScenarioPlan{}
	if err := schema.DecodeStrict(raw, plan); err != nil {
		return nil, fmt.Errorf("decode scenarios/plan.json: %w", err)
	}
	return plan, nil
}

func writeScenarioPlan(paths pathmodel.Paths, plan *schema.ScenarioPlan) error {
	raw, err := marshalIndent(plan)
	if err != nil {
		return fmt.Errorf("encode scenarios/plan.json: %w", err)
	}
	return os.WriteFile(paths.ScenariosPlan(), raw, 0o644)
}

func loadSurfaceOverlays(paths pathmodel.Paths) (*schema.SurfaceOverlays, error) {
	raw, err := os.ReadFile(paths.SurfaceOverlays())
	if os.IsNotExist(err) {
		return &schema.SurfaceOverlays{SchemaVersion: 3}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read surface overlays: %w", err)
	}
	overlays := &schema.SurfaceOverlays{}
	if err := schema.DecodeStrict(raw, overlays); err != nil {
		return nil, fmt.Errorf("decode surface overlays: %w", err)
	}
	return overlays, nil
}

func writeSurfaceOverlays(paths pathmodel.Paths, overlays *schema.SurfaceOverlays) error {
	raw, err := marshalIndent(overlays)
	if err != nil {
		return fmt.Errorf("encode surface overlays: %w", err)
	}
	return os.WriteFile(paths.SurfaceOverlays(), raw, 0o644)
}

func loadSurfaceInventory(paths pathmodel.Paths) (*schema.SurfaceInventory, error) {
	raw, err := os.ReadFile(paths.Surface())
	if err != nil {
		return nil, fmt.Errorf("read inventory/surface.json: %w", err)
	}
	inv := &schema.SurfaceInventory{}
	if err := schema.DecodeStrict(raw, inv); err != nil {
		return nil, fmt.Errorf("decode inventory/surface.json: %w", err)
	}
	return inv, nil
}

func loadScenarioIndex(paths pathmodel.Paths) *schema.ScenarioIndex {
	raw, err := os.ReadFile(paths.ScenarioIndex())
	if err != nil {
		return &schema.ScenarioIndex{}
	}
	idx := &schema.ScenarioIndex{}
	if err := schema.DecodeStrict(raw, idx); err != nil {
		return &schema.ScenarioIndex{}
	}
	return idx
}

func loadExamplesReport(paths pathmodel.Paths) *schema.ExamplesReport {
	raw, err := os.ReadFile(paths.ExamplesReport())
	if err != nil {
		return nil
	}
	report := &schema.ExamplesReport{}
	if err := schema.DecodeStrict(raw, report); err != nil {
		return nil
	}
	return report
}
