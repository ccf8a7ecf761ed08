package inspect

import (
	"encoding/json"
	"os"

	"bman/internal/pathmodel"
	"bman/internal/schema"
)

// Artifact is one browsable doc-pack file: a stable ID for the list, the
// path it was loaded from, whether it exists yet, and a pretty-printed
// rendering of its content for the detail pane.
type Artifact struct {
	ID       string
	Label    string
	Path     string
	Exists   bool
	Rendered string // markdown, ready for glamour
	Err      error
}

// catalogEntry describes one well-known doc-pack file: how to resolve its
// path and how to render it once loaded.
type catalogEntry struct {
	id       string
	label    string
	path     func(pathmodel.Paths) string
	render   func(raw []byte) (string, error)
}

func catalog() []catalogEntry {
	return []catalogEntry{
		{id: "config", label: "enrich/config.json", path: pathmodel.Paths.Config, render: renderTyped(&schema.EnrichConfig{})},
		{id: "semantics", label: "enrich/semantics.json", path: pathmodel.Paths.Semantics, render: renderSemantics},
		{id: "lock", label: "enrich/lock.json", path: pathmodel.Paths.Lock, render: renderTyped(&schema.EnrichLock{})},
		{id: "plan.out", label: "enrich/plan.out.json", path: pathmodel.Paths.PlanOut, render: renderTyped(&schema.EnrichPlan{})},
		{id: "report", label: "enrich/report.json", path: pathmodel.Paths.Report, render: renderTyped(&schema.EnrichReport{})},
		{id: "progress", label: "enrich/progress.json", path: pathmodel.Paths.Progress, render: renderTyped(&schema.VerificationProgress{})},
		{id: "scenarios.plan", label: "scenarios/plan.json", path: pathmodel.Paths.ScenariosPlan, render: renderTyped(&schema.ScenarioPlan{})},
		{id: "surface", label: "inventory/surface.json", path: pathmodel.Paths.Surface, render: renderTyped(&schema.SurfaceInventory{})},
		{id: "surface.overlays", label: "inventory/surface.overlays.json", path: pathmodel.Paths.SurfaceOverlays, render: renderTyped(&schema.SurfaceOverlays{})},
		{id: "scenarios.index", label: "inventory/scenarios/index.json", path: pathmodel.Paths.ScenarioIndex, render: renderTyped(&schema.ScenarioIndex{})},
		{id: "scenarios.coverage", label: "scenarios/coverage.json", path: scenariosCoveragePath, render: renderTyped(&schema.CoverageLedger{})},
		{id: "scenarios.verification", label: "scenarios/verification.json", path: scenariosVerificationPath, render: renderTyped(&schema.VerificationLedger{})},
		{id: "man.examples_report", label: "man/examples_report.json", path: pathmodel.Paths.ExamplesReport, render: renderTyped(&schema.ExamplesReport{})},
		{id: "man.meta", label: "man/meta.json", path: pathmodel.Paths.ManMeta, render: renderTyped(&schema.RenderMeta{})},
	}
}

// scenarios/coverage.json and scenarios/verification.json are published
// relative to the doc pack root rather than under enrich/ or inventory/;
// pathmodel has no dedicated accessor for them (applyloop writes them via
// staging.WriteJSON with a literal relative path), so inspect resolves them
// the same way: root-relative, not through a Paths method.
func scenariosCoveragePath(p pathmodel.Paths) string {
	abs, _ := p.Abs("scenarios/coverage.json")
	return abs
}

func scenariosVerificationPath(p pathmodel.Paths) string {
	abs, _ := p.Abs("scenarios/verification.json")
	return abs
}

// Load reads every cataloged artifact, tolerating missing files: a missing
// file is a non-error Artifact with Exists=false, since most of these
// haven't been produced yet on a fresh or partially-run doc pack.
func Load(paths pathmodel.Paths) []Artifact {
	entries := catalog()
	out := make([]Artifact, 0, len(entries))
	for _, e := range entries {
		out = append(out, loadOne(paths, e))
	}
	return out
}

func loadOne(paths pathmodel.Paths, e catalogEntry) Artifact {
	path := e.path(paths)
	a := Artifact{ID: e.id, Label: e.label, Path: path}

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return a
		}
		a.Err = err
		return a
	}
	a.Exists = true
	rendered, err := e.render(raw)
	if err != nil {
		a.Err = err
		return a
	}
	a.Rendered = rendered
	return a
}

func renderTyped(v any) func([]byte) (string, error) {
	return func(raw []byte) (string, error) {
		if err := json.Unmarshal(raw, v); err != nil {
			return "", err
		}
		pretty, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return "", err
		}
		return "```json\n" + string(pretty) + "\n```\n", nil
	}
}

// renderSemantics treats enrich/semantics.json as opaque pack-owned JSON:
// no schema describes it anywhere in this module. It pretty-prints the
// whole document, and if a top-level "description" string is present,
// surfaces it separately as its own markdown section so the pack author's
// prose reads like prose rather than a quoted JSON string.
func renderSemantics(raw []byte) (string, error) {
	var generic map[string]any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return "", err
	}
	pretty, err := json.MarshalIndent(generic, "", "  ")
	if err != nil {
		return "", err
	}
	out := "```json\n" + string(pretty) + "\n```\n"
	if desc, ok := generic["description"].(string); ok && desc != "" {
		out = "## description\n\n" + desc + "\n\n" + out
	}
	return out, nil
}
