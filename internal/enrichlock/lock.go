// Package enrichlock builds and checks the content-addressed EnrichLock,
// grounded on the original implementation's src/enrich/lock.rs: a recursive
// hash over every tracked input, with a stable projection for the embedded
// binary-analysis manifest so mutable bookkeeping fields (timestamps,
// coverage summaries) never perturb the fingerprint.
package enrichlock

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"bman/internal/clock"
	"bman/internal/pathmodel"
	"bman/internal/schema"
)

// BuildLock resolves the union of tracked inputs from config, appends the
// config/semantics/surface-overlays/pack-manifest paths plus a fixtures/
// directory if present, sorts and dedups, and computes inputs_hash.
func BuildLock(paths pathmodel.Paths, cfg *schema.EnrichConfig, configPath string, ck clock.Clock) (schema.EnrichLock, error) {
	inputs := map[string]bool{}

	add := func(rel string) {
		if rel != "" {
			inputs[rel] = true
		}
	}

	configRel, err := paths.Rel(configPath)
	if err != nil {
		return schema.EnrichLock{}, fmt.Errorf("relativize config path: %w", err)
	}
	add(configRel)
	if rel, err := paths.Rel(paths.Semantics()); err == nil {
		if _, statErr := os.Stat(paths.Semantics()); statErr == nil {
			add(rel)
		}
	}
	if rel, err := paths.Rel(paths.SurfaceOverlays()); err == nil {
		if _, statErr := os.Stat(paths.SurfaceOverlays()); statErr == nil {
			add(rel)
		}
	}
	if rel, err := paths.Rel(paths.BinaryLensManifest()); err == nil {
		if _, statErr := os.Stat(paths.BinaryLensManifest()); statErr == nil {
			add(rel)
		}
	}
	usageLensAbs := filepath.Join(paths.Root(), filepath.FromSlash(cfg.UsageLensTemplate))
	if rel, err := paths.Rel(usageLensAbs); err == nil {
		add(rel)
	}
	fixturesAbs := filepath.Join(paths.Root(), "fixtures")
	if info, err := os.Stat(fixturesAbs); err == nil && info.IsDir() {
		add("fixtures")
	}

	sorted := make([]string, 0, len(inputs))
	for rel := range inputs {
		sorted = append(sorted, rel)
	}
	sort.Strings(sorted)

	hash, err := HashPaths(paths.Root(), sorted)
	if err != nil {
		return schema.EnrichLock{}, fmt.Errorf("hash inputs: %w", err)
	}

	return schema.EnrichLock{
		SchemaVersion:      1,
		GeneratedAtEpochMs: ck.NowMs(),
		ConfigPath:         configRel,
		Inputs:             sorted,
		InputsHash:         hash,
	}, nil
}

// LockStatus reports whether a lock is present and whether it is stale
// against the current input set.
type LockStatus struct {
	Present bool
	Stale   bool
}

// Status compares current (freshly built) against stored (loaded from
// disk). A missing stored lock is Present=false.
func Status(stored *schema.EnrichLock, current schema.EnrichLock) LockStatus {
	if stored == nil {
		return LockStatus{Present: false, Stale: true}
	}
	return LockStatus{Present: true, Stale: stored.InputsHash != current.InputsHash}
}

// HashPaths computes the canonical fingerprint of rels (each relative to
// root): missing paths hash as "missing:<rel>"; symlinks as
// "symlink:<rel>:<target>"; directories as "dir:<rel>" followed by sorted
// children; files as "file:<rel>:<bytes>" where bytes is the file's
// (possibly stable-projected) content.
func HashPaths(root string, rels []string) (string, error) {
	h := sha256.New()
	sortedRels := append([]string(nil), rels...)
	sort.Strings(sortedRels)
	for _, rel := range sortedRels {
		tag, err := hashPath(root, rel)
		if err != nil {
			return "", err
		}
		h.Write([]byte(tag))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func hashPath(root, rel string) (string, error) {
	abs := filepath.Join(root, filepath.FromSlash(rel))
	info, err := os.Lstat(abs)
	if os.IsNotExist(err) {
		return "missing:" + rel, nil
	}
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", abs, err)
	}
	if info.Mode()&os.ModeSymlink != 0 {
		target, err := os.Readlink(abs)
		if err != nil {
			return "", fmt.Errorf("readlink %s: %w", abs, err)
		}
		return fmt.Sprintf("symlink:%s:%s", rel, target), nil
	}
	if info.IsDir() {
		entries, err := os.ReadDir(abs)
		if err != nil {
			return "", fmt.Errorf("read dir %s: %w", abs, err)
		}
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		sort.Strings(names)
		var b strings.Builder
		b.WriteString("dir:" + rel)
		for _, name := range names {
			childTag, err := hashPath(root, rel+"/"+name)
			if err != nil {
				return "", err
			}
			b.WriteString(";")
			b.WriteString(childTag)
		}
		return b.String(), nil
	}

	var content []byte
	if IsBinaryLensManifestPath(rel) {
		raw, err := os.ReadFile(abs)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", abs, err)
		}
		content, err = StableBinaryLensManifestBytes(raw)
		if err != nil {
			return "", fmt.Errorf("project manifest %s: %w", abs, err)
		}
	} else {
		raw, err := os.ReadFile(abs)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", abs, err)
		}
		content = raw
	}
	return fmt.Sprintf("file:%s:%s", rel, content), nil
}

// IsBinaryLensManifestPath reports whether rel names the fact-pack manifest
// whose mutable fields must be projected away before hashing.
func IsBinaryLensManifestPath(rel string) bool {
	return rel == "binary.lens/manifest.json"
}

var stableDroppedFields = []string{"created_at", "created_at_epoch_seconds", "created_at_source", "coverage_summary"}

// StableBinaryLensManifestBytes projects the manifest to a stable byte
// representation: when export_config_digest is present, only that field is
// hashed; otherwise the mutable bookkeeping fields are stripped and the
// remaining object is re-serialized with sorted keys.
func StableBinaryLensManifestBytes(raw []byte) ([]byte, error) {
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return raw, nil // not JSON; hash the raw bytes verbatim.
	}
	if digest, ok := obj["export_config_digest"]; ok {
		return json.Marshal(map[string]any{"export_config_digest": digest})
	}
	for _, field := range stableDroppedFields {
		delete(obj, field)
	}
	return json.Marshal(obj)
}
