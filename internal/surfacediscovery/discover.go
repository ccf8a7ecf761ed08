package surfacediscovery

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"bman/internal/pathmodel"
	"bman/internal/schema"
)

// BlockerFunc lets callers accumulate blockers without importing bmanerr
// into this package (keeps the dependency graph a DAG: bmanerr is a leaf).
type BlockerFunc func(code, message string, evidence ...string)

// Discover builds a SurfaceInventory from the scenario plan, the configured
// lens templates, and the current overlays, following §4.3's sequence.
func Discover(ctx context.Context, paths pathmodel.Paths, engine LensEngine, lensTemplates []string, overlays *schema.SurfaceOverlays, inputsHash string, onBlocker BlockerFunc) (*schema.SurfaceInventory, error) {
	inv := &schema.SurfaceInventory{SchemaVersion: 1, InputsHash: inputsHash}

	if _, err := os.Stat(paths.ScenariosPlan()); err != nil {
		onBlocker("scenarios_plan_missing", "scenarios/plan.json is missing or invalid")
		inv.Discovery = append(inv.Discovery, schema.DiscoveryEntry{Code: "scenarios_plan", Status: schema.DiscoveryMissing})
	} else {
		inv.Discovery = append(inv.Discovery, schema.DiscoveryEntry{Code: "scenarios_plan", Status: schema.DiscoveryUsed})
	}

	var allRows []SurfaceRow
	anyMultiCommandHint := false
	for _, tmpl := range lensTemplates {
		rows, err := engine.Eval(ctx, tmpl)
		code := filepath.Base(tmpl)
		if err != nil {
			inv.Discovery = append(inv.Discovery, schema.DiscoveryEntry{Code: code, Status: schema.DiscoveryError, Message: err.Error()})
			continue
		}
		parsed, err := ParseRows(rows)
		if err != nil {
			inv.Discovery = append(inv.Discovery, schema.DiscoveryEntry{Code: code, Status: schema.DiscoveryError, Message: err.Error()})
			continue
		}
		if len(parsed) == 0 {
			inv.Discovery = append(inv.Discovery, schema.DiscoveryEntry{Code: code, Status: schema.DiscoveryEmpty})
			continue
		}
		inv.Discovery = append(inv.Discovery, schema.DiscoveryEntry{Code: code, Status: schema.DiscoveryUsed})
		allRows = append(allRows, parsed...)
		for _, r := range parsed {
			if r.MultiCommandHint {
				anyMultiCommandHint = true
			}
		}
	}

	itemsByID := map[string]schema.SurfaceItem{}
	var order []string
	for _, row := range allRows {
		item := row.ToItem()
		if item.ID == "" {
			continue
		}
		if existing, ok := itemsByID[item.ID]; ok {
			itemsByID[item.ID] = schema.MergeItem(existing, item)
		} else {
			itemsByID[item.ID] = item
			order = append(order, item.ID)
		}
	}

	if overlays != nil {
		for _, id := range overlays.Items {
			if _, ok := itemsByID[id.ID]; !ok {
				itemsByID[id.ID] = schema.SurfaceItem{ID: id.ID, Display: id.Display}
				order = append(order, id.ID)
			}
		}
		for _, ov := range overlays.Overlays {
			item, ok := itemsByID[ov.ID]
			if !ok {
				onBlocker("surface_overlays_missing_targets", fmt.Sprintf("overlay targets unknown surface id %q", ov.ID), ov.ID)
				continue
			}
			if ov.Invocation != nil {
				item.Invocation = schema.MergeItem(item, schema.SurfaceItem{Invocation: *ov.Invocation}).Invocation
			}
			itemsByID[ov.ID] = item
		}
	}

	if anyMultiCommandHint {
		hasEntryPoint := false
		for _, id := range order {
			if itemsByID[id].IsEntryPoint() {
				hasEntryPoint = true
				break
			}
		}
		if !hasEntryPoint {
			onBlocker("surface_entry_points_missing", "lens rows carried a multi_command_hint but no entry-point items were discovered")
		}
	}

	for _, id := range order {
		inv.Items = append(inv.Items, itemsByID[id])
	}
	return inv, nil
}
