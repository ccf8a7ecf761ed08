package scenarioengine

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"bman/internal/schema"
)

func TestDefaultBehaviorSeed_IncludesSymlinkExceptOnWindows(t *testing.T) {
	seed := DefaultBehaviorSeed()
	hasSymlink := false
	for _, e := range seed.Entries {
		if e.Kind == schema.SeedEntrySymlink {
			hasSymlink = true
		}
	}
	if runtime.GOOS == "windows" {
		if hasSymlink {
			t.Error("expected no symlink entry on windows")
		}
	} else if !hasSymlink {
		t.Error("expected a symlink entry on unix")
	}
}

func TestNormalizeSeedPath(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "", wantErr: true},
		{in: "   ", wantErr: true},
		{in: "/abs/path", wantErr: true},
		{in: "a/../b", wantErr: true},
		{in: "a\\b", want: "a/b"},
		{in: "work/file.txt", want: "work/file.txt"},
	}
	for _, c := range cases {
		got, err := NormalizeSeedPath(c.in)
		if c.wantErr {
			if err == nil {
				t.Errorf("NormalizeSeedPath(%q) expected error, got none", c.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("NormalizeSeedPath(%q) unexpected error: %v", c.in, err)
			continue
		}
		if got != c.want {
			t.Errorf("NormalizeSeedPath(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestNormalizeSeedPath_Idempotent(t *testing.T) {
	once, err := NormalizeSeedPath("work\\nested\\file.txt")
	if err != nil {
		t.Fatalf("NormalizeSeedPath: %v", err)
	}
	twice, err := NormalizeSeedPath(once)
	if err != nil {
		t.Fatalf("NormalizeSeedPath (second pass): %v", err)
	}
	if once != twice {
		t.Errorf("NormalizeSeedPath is not idempotent: %q != %q", once, twice)
	}
}

func TestValidateSeedSpec_NilIsValid(t *testing.T) {
	if err := ValidateSeedSpec(nil, 0, 0); err != nil {
		t.Errorf("expected nil spec to be valid, got %v", err)
	}
}

func TestValidateSeedSpec_DuplicatePathRejected(t *testing.T) {
	spec := &schema.ScenarioSeedSpec{Entries: []schema.ScenarioSeedEntry{
		{Path: "a.txt", Kind: schema.SeedEntryFile},
		{Path: "a.txt", Kind: schema.SeedEntryFile},
	}}
	if err := ValidateSeedSpec(spec, 0, 0); err == nil {
		t.Error("expected an error for duplicate seed paths")
	}
}

func TestValidateSeedSpec_EntryCountCap(t *testing.T) {
	spec := &schema.ScenarioSeedSpec{Entries: []schema.ScenarioSeedEntry{
		{Path: "a.txt", Kind: schema.SeedEntryFile},
		{Path: "b.txt", Kind: schema.SeedEntryFile},
	}}
	if err := ValidateSeedSpec(spec, 1, 0); err == nil {
		t.Error("expected an error when entries exceed the cap")
	}
}

func TestValidateSeedSpec_TotalBytesCap(t *testing.T) {
	spec := &schema.ScenarioSeedSpec{Entries: []schema.ScenarioSeedEntry{
		{Path: "a.txt", Kind: schema.SeedEntryFile, Contents: "0123456789"},
	}}
	if err := ValidateSeedSpec(spec, 0, 5); err == nil {
		t.Error("expected an error when total bytes exceed the cap")
	}
}

func TestValidateSeedSpec_ShapeRules(t *testing.T) {
	cases := []struct {
		name    string
		entry   schema.ScenarioSeedEntry
		wantErr bool
	}{
		{name: "dir with contents", entry: schema.ScenarioSeedEntry{Path: "d", Kind: schema.SeedEntryDir, Contents: "x"}, wantErr: true},
		{name: "file with target", entry: schema.ScenarioSeedEntry{Path: "f", Kind: schema.SeedEntryFile, Target: "x"}, wantErr: true},
		{name: "symlink without target", entry: schema.ScenarioSeedEntry{Path: "l", Kind: schema.SeedEntrySymlink}, wantErr: true},
		{name: "symlink with contents", entry: schema.ScenarioSeedEntry{Path: "l", Kind: schema.SeedEntrySymlink, Target: "x", Contents: "y"}, wantErr: true},
		{name: "unknown kind", entry: schema.ScenarioSeedEntry{Path: "u", Kind: "bogus"}, wantErr: true},
		{name: "valid file", entry: schema.ScenarioSeedEntry{Path: "f", Kind: schema.SeedEntryFile, Contents: "x"}, wantErr: false},
		{name: "valid symlink", entry: schema.ScenarioSeedEntry{Path: "l", Kind: schema.SeedEntrySymlink, Target: "f"}, wantErr: false},
	}
	for _, c := range cases {
		spec := &schema.ScenarioSeedSpec{Entries: []schema.ScenarioSeedEntry{c.entry}}
		err := ValidateSeedSpec(spec, 0, 0)
		if c.wantErr && err == nil {
			t.Errorf("%s: expected an error, got none", c.name)
		}
		if !c.wantErr && err != nil {
			t.Errorf("%s: unexpected error: %v", c.name, err)
		}
	}
}

func TestMaterializeInlineSeed_NilSpecReturnsNil(t *testing.T) {
	m, err := MaterializeInlineSeed(t.TempDir(), "x", 1000, nil)
	if err != nil {
		t.Fatalf("MaterializeInlineSeed: %v", err)
	}
	if m != nil {
		t.Errorf("expected nil result for a nil spec, got %+v", m)
	}
}

func TestMaterializeInlineSeed_WritesFilesAndDirs(t *testing.T) {
	txnRoot := t.TempDir()
	spec := &schema.ScenarioSeedSpec{Entries: []schema.ScenarioSeedEntry{
		{Path: "work", Kind: schema.SeedEntryDir},
		{Path: "work/file.txt", Kind: schema.SeedEntryFile, Contents: "hello\n"},
	}}

	m, err := MaterializeInlineSeed(txnRoot, "cover --verbose", 1700000000000, spec)
	if err != nil {
		t.Fatalf("MaterializeInlineSeed: %v", err)
	}
	if m == nil {
		t.Fatal("expected a non-nil materialized seed")
	}

	want := filepath.Join(txnRoot, "scratch", "seeds", "cover_--verbose-1700000000000", "work", "file.txt")
	got, err := os.ReadFile(want)
	if err != nil {
		t.Fatalf("read materialized file: %v", err)
	}
	if string(got) != "hello\n" {
		t.Errorf("file content = %q, want %q", got, "hello\n")
	}
	if m.AbsPath != filepath.Join(txnRoot, "scratch", "seeds", "cover_--verbose-1700000000000") {
		t.Errorf("AbsPath = %q", m.AbsPath)
	}
}

func TestMaterializeInlineSeed_Symlink(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks are not exercised on windows")
	}
	txnRoot := t.TempDir()
	spec := &schema.ScenarioSeedSpec{Entries: []schema.ScenarioSeedEntry{
		{Path: "file1.txt", Kind: schema.SeedEntryFile, Contents: "a"},
		{Path: "link", Kind: schema.SeedEntrySymlink, Target: "file1.txt"},
	}}

	m, err := MaterializeInlineSeed(txnRoot, "x", 1, spec)
	if err != nil {
		t.Fatalf("MaterializeInlineSeed: %v", err)
	}
	target, err := os.Readlink(filepath.Join(m.AbsPath, "link"))
	if err != nil {
		t.Fatalf("Readlink: %v", err)
	}
	if target != "file1.txt" {
		t.Errorf("symlink target = %q, want file1.txt", target)
	}
}
