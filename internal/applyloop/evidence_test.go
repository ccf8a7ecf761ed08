package applyloop

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"bman/internal/pathmodel"
	"bman/internal/schema"
)

func writeEvidenceFile(t *testing.T, path string, ev *schema.ScenarioEvidence) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	raw, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("marshal evidence: %v", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatalf("write evidence: %v", err)
	}
}

func TestReadEvidencePrefersStagingRootOverPublished(t *testing.T) {
	root := t.TempDir()
	paths := pathmodel.New(root)
	rel := "inventory/scenarios/s1-1.json"

	writeEvidenceFile(t, filepath.Join(root, rel), &schema.ScenarioEvidence{ScenarioID: "s1", Stdout: "published\n"})

	stagingRoot := filepath.Join(root, "enrich", "txns", "20260101T000000.000Z", "staging")
	writeEvidenceFile(t, filepath.Join(stagingRoot, rel), &schema.ScenarioEvidence{ScenarioID: "s1", Stdout: "staged\n"})

	ev, err := readEvidence(paths, stagingRoot, rel)
	if err != nil {
		t.Fatalf("readEvidence: %v", err)
	}
	if ev == nil || ev.Stdout != "staged\n" {
		t.Fatalf("expected staged evidence to win, got %+v", ev)
	}
}

func TestReadEvidenceFallsBackToPublishedWhenNotStaged(t *testing.T) {
	root := t.TempDir()
	paths := pathmodel.New(root)
	rel := "inventory/scenarios/s1-1.json"
	writeEvidenceFile(t, filepath.Join(root, rel), &schema.ScenarioEvidence{ScenarioID: "s1", Stdout: "published\n"})

	stagingRoot := filepath.Join(root, "enrich", "txns", "20260101T000000.000Z", "staging")

	ev, err := readEvidence(paths, stagingRoot, rel)
	if err != nil {
		t.Fatalf("readEvidence: %v", err)
	}
	if ev == nil || ev.Stdout != "published\n" {
		t.Fatalf("expected published evidence fallback, got %+v", ev)
	}
}

func TestReadEvidenceMissingFileReturnsNilNotError(t *testing.T) {
	root := t.TempDir()
	paths := pathmodel.New(root)

	ev, err := readEvidence(paths, "", "inventory/scenarios/does-not-exist.json")
	if err != nil {
		t.Fatalf("expected no error for a missing evidence file, got %v", err)
	}
	if ev != nil {
		t.Fatalf("expected nil evidence, got %+v", ev)
	}
}

func TestReadEvidenceEmptyPathIsNoop(t *testing.T) {
	paths := pathmodel.New(t.TempDir())
	ev, err := readEvidence(paths, "", "")
	if err != nil || ev != nil {
		t.Fatalf("expected (nil, nil) for an empty relative path, got (%+v, %v)", ev, err)
	}
}

func TestBuildEvidenceMapPairsVariantAndBaseline(t *testing.T) {
	root := t.TempDir()
	paths := pathmodel.New(root)

	baselineRel := "inventory/scenarios/baseline-1.json"
	variantRel := "inventory/scenarios/variant-1.json"
	writeEvidenceFile(t, filepath.Join(root, baselineRel), &schema.ScenarioEvidence{ScenarioID: "baseline", Stdout: "old\n"})
	writeEvidenceFile(t, filepath.Join(root, variantRel), &schema.ScenarioEvidence{ScenarioID: "variant", Stdout: "new\n"})

	plan := &schema.ScenarioPlan{Scenarios: []schema.ScenarioSpec{
		{ID: "baseline", Kind: schema.ScenarioKindBehavior, Covers: []string{"--foo"}},
		{ID: "variant", Kind: schema.ScenarioKindBehavior, Covers: []string{"--foo"}, BaselineScenarioID: "baseline"},
	}}
	idx := &schema.ScenarioIndex{Scenarios: []schema.ScenarioIndexEntry{
		{ScenarioID: "baseline", EvidencePaths: []string{baselineRel}},
	}}
	outcomes := []schema.ScenarioOutcome{
		{ScenarioID: "variant", Pass: true, EvidencePath: variantRel},
	}

	m := buildEvidenceMap(paths, "", plan, idx, outcomes)
	be, ok := m["variant"]
	if !ok {
		t.Fatal("expected an entry for the variant scenario")
	}
	if be.variant == nil || be.variant.Stdout != "new\n" {
		t.Fatalf("expected variant evidence loaded, got %+v", be.variant)
	}
	if !be.hasBaseline || be.baseline == nil || be.baseline.Stdout != "old\n" {
		t.Fatalf("expected baseline evidence resolved via the scenario index, got hasBaseline=%v baseline=%+v", be.hasBaseline, be.baseline)
	}
}

func TestBuildEvidenceMapSkipsHelpScenarios(t *testing.T) {
	root := t.TempDir()
	paths := pathmodel.New(root)
	plan := &schema.ScenarioPlan{Scenarios: []schema.ScenarioSpec{
		{ID: "help1", Kind: schema.ScenarioKindHelp},
	}}
	outcomes := []schema.ScenarioOutcome{{ScenarioID: "help1", Pass: true, EvidencePath: "x.json"}}
	m := buildEvidenceMap(paths, "", plan, &schema.ScenarioIndex{}, outcomes)
	if len(m) != 0 {
		t.Fatalf("expected help-kind scenarios excluded from the evidence map, got %v", m)
	}
}
