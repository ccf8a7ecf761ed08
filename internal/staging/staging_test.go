package staging

import (
	"os"
	"path/filepath"
	"testing"
)

func TestWriteBytesAndText(t *testing.T) {
	root := t.TempDir()

	if err := WriteBytes(root, "a/b/c.bin", []byte{1, 2, 3}); err != nil {
		t.Fatalf("WriteBytes: %v", err)
	}
	got, err := os.ReadFile(filepath.Join(root, "a", "b", "c.bin"))
	if err != nil {
		t.Fatalf("read written file: %v", err)
	}
	if len(got) != 3 || got[0] != 1 {
		t.Errorf("WriteBytes content = %v, want [1 2 3]", got)
	}

	if err := WriteText(root, "note.txt", "hello"); err != nil {
		t.Fatalf("WriteText: %v", err)
	}
	text, err := os.ReadFile(filepath.Join(root, "note.txt"))
	if err != nil {
		t.Fatalf("read note.txt: %v", err)
	}
	if string(text) != "hello" {
		t.Errorf("WriteText content = %q, want hello", text)
	}
}

func TestWriteJSON(t *testing.T) {
	root := t.TempDir()
	type payload struct {
		Name string `json:"name"`
	}
	if err := WriteJSON(root, "enrich/config.json", payload{Name: "bman"}); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(root, "enrich", "config.json"))
	if err != nil {
		t.Fatalf("read config.json: %v", err)
	}
	if want := `"name": "bman"`; !contains(string(data), want) {
		t.Errorf("WriteJSON output %q does not contain %q", data, want)
	}
}

func contains(s, sub string) bool {
	return len(s) >= len(sub) && (func() bool {
		for i := 0; i+len(sub) <= len(s); i++ {
			if s[i:i+len(sub)] == sub {
				return true
			}
		}
		return false
	})()
}

func TestCollectFilesRecursive_MissingRoot(t *testing.T) {
	files, err := CollectFilesRecursive(filepath.Join(t.TempDir(), "does-not-exist"))
	if err != nil {
		t.Fatalf("expected no error for missing root, got %v", err)
	}
	if len(files) != 0 {
		t.Errorf("expected no files, got %v", files)
	}
}

func TestCollectFilesRecursive_SortedNested(t *testing.T) {
	root := t.TempDir()
	mustWrite(t, filepath.Join(root, "z.txt"), "z")
	mustWrite(t, filepath.Join(root, "a", "b.txt"), "b")
	mustWrite(t, filepath.Join(root, "a", "a.txt"), "a")

	files, err := CollectFilesRecursive(root)
	if err != nil {
		t.Fatalf("CollectFilesRecursive: %v", err)
	}
	if len(files) != 3 {
		t.Fatalf("expected 3 files, got %d: %v", len(files), files)
	}
	for i := 1; i < len(files); i++ {
		if files[i-1] > files[i] {
			t.Errorf("files not sorted: %v", files)
		}
	}
}

func TestPublish_NewFiles(t *testing.T) {
	staging := t.TempDir()
	backup := t.TempDir()
	pack := t.TempDir()

	mustWrite(t, filepath.Join(staging, "man", "grep.1"), "man content")
	mustWrite(t, filepath.Join(staging, "enrich", "report.json"), "{}")

	published, err := Publish(staging, backup, pack)
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(published) != 2 {
		t.Fatalf("expected 2 published files, got %d: %v", len(published), published)
	}

	got, err := os.ReadFile(filepath.Join(pack, "man", "grep.1"))
	if err != nil {
		t.Fatalf("published file missing: %v", err)
	}
	if string(got) != "man content" {
		t.Errorf("published content = %q, want %q", got, "man content")
	}
}

func TestPublish_BacksUpExistingDestination(t *testing.T) {
	staging := t.TempDir()
	backup := t.TempDir()
	pack := t.TempDir()

	mustWrite(t, filepath.Join(pack, "man", "grep.1"), "old content")
	mustWrite(t, filepath.Join(staging, "man", "grep.1"), "new content")

	published, err := Publish(staging, backup, pack)
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(published) != 1 {
		t.Fatalf("expected 1 published file, got %d", len(published))
	}

	got, err := os.ReadFile(filepath.Join(pack, "man", "grep.1"))
	if err != nil {
		t.Fatalf("read published file: %v", err)
	}
	if string(got) != "new content" {
		t.Errorf("published content = %q, want %q", got, "new content")
	}

	backedUp, err := os.ReadFile(filepath.Join(backup, "man", "grep.1"))
	if err != nil {
		t.Fatalf("expected backup of prior content: %v", err)
	}
	if string(backedUp) != "old content" {
		t.Errorf("backup content = %q, want %q", backedUp, "old content")
	}
}

func TestPublish_MissingStagingRootIsNoop(t *testing.T) {
	published, err := Publish(filepath.Join(t.TempDir(), "missing"), t.TempDir(), t.TempDir())
	if err != nil {
		t.Fatalf("expected no error for missing staging root, got %v", err)
	}
	if published != nil {
		t.Errorf("expected nil published list, got %v", published)
	}
}

func mustWrite(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
