package inspect

import (
	"os"
	"path/filepath"
	"testing"

	"bman/internal/pathmodel"
)

func TestLoad_MissingArtifactsAreNonErrorNotExists(t *testing.T) {
	paths := pathmodel.New(t.TempDir())
	artifacts := Load(paths)
	if len(artifacts) != len(catalog()) {
		t.Fatalf("got %d artifacts, want %d", len(artifacts), len(catalog()))
	}
	for _, a := range artifacts {
		if a.Exists || a.Err != nil {
			t.Errorf("artifact %s: Exists=%v Err=%v, want absent with no error", a.ID, a.Exists, a.Err)
		}
	}
}

func TestLoad_RendersExistingConfig(t *testing.T) {
	paths := pathmodel.New(t.TempDir())
	if err := os.MkdirAll(filepath.Dir(paths.Config()), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(paths.Config(), []byte(`{"schema_version":1}`), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	artifacts := Load(paths)
	var cfg *Artifact
	for i := range artifacts {
		if artifacts[i].ID == "config" {
			cfg = &artifacts[i]
		}
	}
	if cfg == nil {
		t.Fatal("expected a config artifact in the catalog")
	}
	if !cfg.Exists || cfg.Err != nil {
		t.Errorf("config artifact = %+v, want Exists=true Err=nil", cfg)
	}
	if cfg.Rendered == "" {
		t.Error("expected non-empty rendered markdown")
	}
}

func TestLoad_UnparsableContentSetsErr(t *testing.T) {
	paths := pathmodel.New(t.TempDir())
	if err := os.MkdirAll(filepath.Dir(paths.Config()), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(paths.Config(), []byte(`not json`), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	artifacts := Load(paths)
	for _, a := range artifacts {
		if a.ID == "config" {
			if a.Err == nil {
				t.Error("expected a render error for unparsable JSON")
			}
			return
		}
	}
	t.Fatal("expected a config artifact in the catalog")
}

func TestRenderSemantics_SurfacesDescriptionSeparately(t *testing.T) {
	rendered, err := renderSemantics([]byte(`{"description":"what this binary does"}`))
	if err != nil {
		t.Fatalf("renderSemantics: %v", err)
	}
	if !contains(rendered, "## description") || !contains(rendered, "what this binary does") {
		t.Errorf("rendered = %q, want a description section", rendered)
	}
}

func TestRenderSemantics_NoDescriptionOmitsSection(t *testing.T) {
	rendered, err := renderSemantics([]byte(`{"other":"value"}`))
	if err != nil {
		t.Fatalf("renderSemantics: %v", err)
	}
	if contains(rendered, "## description") {
		t.Errorf("rendered = %q, want no description section", rendered)
	}
}

func contains(s, sub string) bool {
	return len(sub) == 0 || (len(s) >= len(sub) && indexOf(s, sub) >= 0)
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}
