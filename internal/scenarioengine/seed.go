package scenarioengine

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"bman/internal/schema"
)

// DefaultBehaviorSeedDir is the conventional seed directory name for
// auto-generated behavior scenarios.
const DefaultBehaviorSeedDir = "work"

// DefaultBehaviorSeed returns the canonical fixture used by auto-generated
// behavior scenarios: a work/ directory with two files, a nested
// subdirectory, and (unix only) a symlink.
func DefaultBehaviorSeed() schema.ScenarioSeedSpec {
	entries := []schema.ScenarioSeedEntry{
		{Path: "work", Kind: schema.SeedEntryDir},
		{Path: "work/file1.txt", Kind: schema.SeedEntryFile, Contents: "a\n"},
		{Path: "work/file2", Kind: schema.SeedEntryFile, Contents: "b\n"},
		{Path: "work/subdir", Kind: schema.SeedEntryDir},
		{Path: "work/subdir/nested.txt", Kind: schema.SeedEntryFile, Contents: "c\n"},
	}
	if runtime.GOOS != "windows" {
		entries = append(entries, schema.ScenarioSeedEntry{
			Path: "work/link", Kind: schema.SeedEntrySymlink, Target: "file1.txt",
		})
	}
	return schema.ScenarioSeedSpec{Entries: entries}
}

// NormalizeSeedPath rejects empty, absolute, ".."-containing, and
// pure-whitespace paths, and normalizes backslashes to forward slashes.
// Idempotent on its own output, per Testable Property 3.
func NormalizeSeedPath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("seed path must not be empty or whitespace")
	}
	norm := strings.ReplaceAll(path, "\\", "/")
	if strings.HasPrefix(norm, "/") {
		return "", fmt.Errorf("seed path %q must not be absolute", path)
	}
	for _, seg := range strings.Split(norm, "/") {
		if seg == ".." {
			return "", fmt.Errorf("seed path %q must not contain ..", path)
		}
	}
	return norm, nil
}

// ValidateSeedSpec checks the ScenarioSeedSpec invariants: unique relative
// paths, dir/file/symlink payload shape, total byte/entry-count bounds.
func ValidateSeedSpec(spec *schema.ScenarioSeedSpec, maxEntries int, maxTotalBytes int) error {
	if spec == nil {
		return nil
	}
	if maxEntries > 0 && len(spec.Entries) > maxEntries {
		return fmt.Errorf("seed spec has %d entries, exceeds cap %d", len(spec.Entries), maxEntries)
	}
	seen := map[string]bool{}
	totalBytes := 0
	for _, e := range spec.Entries {
		norm, err := NormalizeSeedPath(e.Path)
		if err != nil {
			return fmt.Errorf("seed entry %q: %w", e.Path, err)
		}
		if seen[norm] {
			return fmt.Errorf("duplicate seed path %q", norm)
		}
		seen[norm] = true
		if err := validateSeedEntryShape(e); err != nil {
			return fmt.Errorf("seed entry %q: %w", norm, err)
		}
		if e.Mode != nil && *e.Mode > 0o777 {
			return fmt.Errorf("seed entry %q: mode %o exceeds 0o777", norm, *e.Mode)
		}
		totalBytes += len(e.Contents)
	}
	if maxTotalBytes > 0 && totalBytes > maxTotalBytes {
		return fmt.Errorf("seed spec totals %d bytes, exceeds cap %d", totalBytes, maxTotalBytes)
	}
	return nil
}

func validateSeedEntryShape(e schema.ScenarioSeedEntry) error {
	switch e.Kind {
	case schema.SeedEntryDir:
		if e.Contents != "" || e.Target != "" {
			return fmt.Errorf("dir entries must not set contents or target")
		}
	case schema.SeedEntryFile:
		if e.Target != "" {
			return fmt.Errorf("file entries must not set target")
		}
	case schema.SeedEntrySymlink:
		if e.Target == "" {
			return fmt.Errorf("symlink entries require target")
		}
		if e.Contents != "" {
			return fmt.Errorf("symlink entries must not set contents")
		}
	default:
		return fmt.Errorf("unknown seed entry kind %q", e.Kind)
	}
	return nil
}

// MaterializedSeed is the result of writing one inline seed spec to disk.
type MaterializedSeed struct {
	RelPath string
	AbsPath string
}

// MaterializeInlineSeed writes spec's entries beneath
// <txnRoot>/scratch/seeds/<scenarioID>-<nowMs>, in entry order so that
// directories are created before the files/symlinks they contain.
func MaterializeInlineSeed(txnRoot, scenarioID string, nowMs int64, spec *schema.ScenarioSeedSpec) (*MaterializedSeed, error) {
	if spec == nil {
		return nil, nil
	}
	relRoot := filepath.Join("scratch", "seeds", fmt.Sprintf("%s-%d", sanitizeID(scenarioID), nowMs))
	absRoot := filepath.Join(txnRoot, relRoot)
	if err := os.MkdirAll(absRoot, 0o755); err != nil {
		return nil, fmt.Errorf("create seed scratch dir %s: %w", absRoot, err)
	}
	for _, e := range spec.Entries {
		norm, err := NormalizeSeedPath(e.Path)
		if err != nil {
			return nil, err
		}
		dest := filepath.Join(absRoot, filepath.FromSlash(norm))
		mode := os.FileMode(0o644)
		if e.Mode != nil {
			mode = os.FileMode(*e.Mode)
		}
		switch e.Kind {
		case schema.SeedEntryDir:
			if e.Mode != nil {
				if err := os.MkdirAll(dest, mode|0o700); err != nil {
					return nil, fmt.Errorf("create seed dir %s: %w", dest, err)
				}
			} else if err := os.MkdirAll(dest, 0o755); err != nil {
				return nil, fmt.Errorf("create seed dir %s: %w", dest, err)
			}
		case schema.SeedEntryFile:
			if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
				return nil, fmt.Errorf("create seed parent for %s: %w", dest, err)
			}
			if err := os.WriteFile(dest, []byte(e.Contents), mode); err != nil {
				return nil, fmt.Errorf("write seed file %s: %w", dest, err)
			}
		case schema.SeedEntrySymlink:
			if err := applySeedSymlink(dest, e.Target); err != nil {
				return nil, err
			}
		}
	}
	return &MaterializedSeed{RelPath: relRoot, AbsPath: absRoot}, nil
}

func sanitizeID(id string) string {
	r := strings.NewReplacer(" ", "_", "/", "_")
	return r.Replace(id)
}
