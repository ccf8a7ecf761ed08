// Package pathmodel provides typed resolution of the artifact paths inside a
// doc pack. Most consumers go through a Paths value; a few packages still
// build some doc-pack-relative paths (such as evidence and placeholder
// paths) as literal strings.
package pathmodel

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Paths resolves every artifact location relative to a doc pack root.
type Paths struct {
	root string
}

// New returns a Paths rooted at root. root must be an absolute or
// caller-resolved directory; PathModel does not stat it.
func New(root string) Paths {
	return Paths{root: filepath.Clean(root)}
}

// Root returns the doc pack root directory.
func (p Paths) Root() string { return p.root }

func (p Paths) join(rel ...string) string {
	parts := append([]string{p.root}, rel...)
	return filepath.Join(parts...)
}

func (p Paths) EnrichDir() string        { return p.join("enrich") }
func (p Paths) Config() string           { return p.join("enrich", "config.json") }
func (p Paths) Semantics() string        { return p.join("enrich", "semantics.json") }
func (p Paths) Lock() string             { return p.join("enrich", "lock.json") }
func (p Paths) PlanOut() string          { return p.join("enrich", "plan.out.json") }
func (p Paths) Report() string           { return p.join("enrich", "report.json") }
func (p Paths) Progress() string         { return p.join("enrich", "progress.json") }
func (p Paths) History() string          { return p.join("enrich", "history.jsonl") }
func (p Paths) LmLog() string            { return p.join("enrich", "lm_log.jsonl") }
func (p Paths) LmLogDir() string         { return p.join("enrich", "lm_log") }
func (p Paths) Prereqs() string          { return p.join("enrich", "prereqs.json") }
func (p Paths) TxnsDir() string          { return p.join("enrich", "txns") }
func (p Paths) Txn(ts string) string     { return p.join("enrich", "txns", ts) }
func (p Paths) Staging(ts string) string { return p.join("enrich", "txns", ts, "staging") }
func (p Paths) Backup(ts string) string  { return p.join("enrich", "txns", ts, "backup") }

func (p Paths) ScenariosPlan() string     { return p.join("scenarios", "plan.json") }
func (p Paths) Surface() string           { return p.join("inventory", "surface.json") }
func (p Paths) SurfaceOverlays() string   { return p.join("inventory", "surface.overlays.json") }
func (p Paths) ScenarioIndex() string     { return p.join("inventory", "scenarios", "index.json") }
func (p Paths) ScenariosInventoryDir() string {
	return p.join("inventory", "scenarios")
}
func (p Paths) ScenarioEvidence(id string, ts int64) string {
	return p.join("inventory", "scenarios", fmt.Sprintf("%s-%d.json", sanitize(id), ts))
}

func (p Paths) BinaryLensManifest() string { return p.join("binary.lens", "manifest.json") }
func (p Paths) BinaryLensFactsDir() string { return p.join("binary.lens", "facts") }
func (p Paths) BinaryLensRunsIndex() string {
	return p.join("binary.lens", "runs", "index.json")
}
func (p Paths) BinaryLensRunsDir() string { return p.join("binary.lens", "runs") }
func (p Paths) ExportPlan() string        { return p.join("binary_lens", "export_plan.json") }

func (p Paths) ManPage(binary string) string { return p.join("man", binary+".1") }
func (p Paths) ManMeta() string              { return p.join("man", "meta.json") }
func (p Paths) ExamplesReport() string       { return p.join("man", "examples_report.json") }
func (p Paths) QueriesDir() string           { return p.join("queries") }
func (p Paths) Query(name string) string     { return p.join("queries", name) }

func sanitize(id string) string {
	r := strings.NewReplacer(" ", "_", "/", "_")
	return r.Replace(id)
}

// Rel returns path relative to the doc pack root using forward slashes.
// It rejects absolute paths and anything that escapes the root.
func (p Paths) Rel(abs string) (string, error) {
	rel, err := filepath.Rel(p.root, abs)
	if err != nil {
		return "", fmt.Errorf("relativize %s against %s: %w", abs, p.root, err)
	}
	rel = filepath.ToSlash(rel)
	if err := ValidateRelPath(rel); err != nil {
		return "", err
	}
	return rel, nil
}

// Abs resolves a doc-pack-relative path (forward-slash, no "..") to an
// absolute filesystem path under the root.
func (p Paths) Abs(rel string) (string, error) {
	if err := ValidateRelPath(rel); err != nil {
		return "", err
	}
	return filepath.Join(p.root, filepath.FromSlash(rel)), nil
}

// ValidateRelPath rejects absolute paths and paths containing ".." segments,
// per the data model's "no .." / "relative to the doc pack root" invariant.
func ValidateRelPath(rel string) error {
	if rel == "" {
		return fmt.Errorf("relative path is empty")
	}
	if filepath.IsAbs(rel) || strings.HasPrefix(rel, "/") {
		return fmt.Errorf("relative path %q must not be absolute", rel)
	}
	for _, seg := range strings.Split(rel, "/") {
		if seg == ".." {
			return fmt.Errorf("relative path %q must not contain ..", rel)
		}
	}
	return nil
}

// EvidenceRef is a pointer to evidence content, with an optional digest.
type EvidenceRef struct {
	Path   string `json:"path"`
	SHA256 string `json:"sha256,omitempty"`
}
