// Package scenarioengine validates scenario plans, computes effective
// per-scenario run configuration and its content-addressed digest, decides
// whether a scenario needs to run under the configured cache policy,
// materializes inline seed fixtures, and invokes the external scenario
// runner to capture evidence. Grounded on the teacher's
// internal/tools/shell/execute.go subprocess-invocation idiom and the
// original implementation's src/scenarios/config.rs merge/digest algorithm.
package scenarioengine

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"

	"bman/internal/schema"
)

const (
	defaultSnippetMaxLines = 12
	defaultSnippetMaxBytes = 1024
	defaultTimeoutSeconds  = 30.0
)

// EffectiveConfig merges plan-level defaults with a scenario's own overrides
// following explicit-wins precedence and computes the scenario's digest.
//
// Env merge precedence (lowest to highest): plan.default_env ← plan.defaults.env
// ← scenario.env. Seeds and scalars follow explicit-wins: scenario.seed >
// scenario.seed_dir > plan.defaults.seed/seed_dir.
func EffectiveConfig(plan *schema.ScenarioPlan, s *schema.ScenarioSpec) schema.ScenarioRunConfig {
	env := mergeEnv(plan.DefaultEnv, defaultsEnv(plan), s.Env)

	seed, seedDir := effectiveSeed(plan, s)
	cwd := s.Cwd
	if cwd == "" && plan.Defaults != nil {
		cwd = plan.Defaults.Cwd
	}

	timeout := defaultTimeoutSeconds
	if s.TimeoutSeconds != nil {
		timeout = *s.TimeoutSeconds
	} else if plan.Defaults != nil && plan.Defaults.TimeoutSeconds != nil {
		timeout = *plan.Defaults.TimeoutSeconds
	}

	netMode := s.NetMode
	if netMode == "" && plan.Defaults != nil {
		netMode = plan.Defaults.NetMode
	}
	if netMode == "" {
		netMode = schema.NetModeOff
	}

	noSandbox := s.NoSandbox
	noStrace := s.NoStrace
	if plan.Defaults != nil {
		noSandbox = noSandbox || plan.Defaults.NoSandbox
		noStrace = noStrace || plan.Defaults.NoStrace
	}

	snippetLines := defaultSnippetMaxLines
	if s.SnippetMaxLines != nil {
		snippetLines = *s.SnippetMaxLines
	} else if plan.Defaults != nil && plan.Defaults.SnippetMaxLines != nil {
		snippetLines = *plan.Defaults.SnippetMaxLines
	}
	snippetBytes := defaultSnippetMaxBytes
	if s.SnippetMaxBytes != nil {
		snippetBytes = *s.SnippetMaxBytes
	} else if plan.Defaults != nil && plan.Defaults.SnippetMaxBytes != nil {
		snippetBytes = *plan.Defaults.SnippetMaxBytes
	}

	cfg := schema.ScenarioRunConfig{
		Argv:            s.Argv,
		Env:             env,
		Seed:            seed,
		SeedDir:         seedDir,
		Cwd:             cwd,
		TimeoutSeconds:  timeout,
		NetMode:         netMode,
		NoSandbox:       noSandbox,
		NoStrace:        noStrace,
		SnippetMaxLines: snippetLines,
		SnippetMaxBytes: snippetBytes,
		Expect:          s.Expect,
	}
	cfg.ScenarioDigest = ScenarioDigest(cfg)
	return cfg
}

func defaultsEnv(plan *schema.ScenarioPlan) map[string]string {
	if plan.Defaults == nil {
		return nil
	}
	return plan.Defaults.Env
}

func mergeEnv(layers ...map[string]string) map[string]string {
	out := map[string]string{}
	for _, layer := range layers {
		for k, v := range layer {
			out[k] = v
		}
	}
	return out
}

// effectiveSeed applies explicit-wins precedence: scenario.seed wins over
// scenario.seed_dir, which wins over plan.defaults.seed/seed_dir.
func effectiveSeed(plan *schema.ScenarioPlan, s *schema.ScenarioSpec) (*schema.ScenarioSeedSpec, string) {
	if s.Seed != nil {
		return s.Seed, ""
	}
	if s.SeedDir != "" {
		return nil, s.SeedDir
	}
	if plan.Defaults != nil {
		if plan.Defaults.Seed != nil {
			return plan.Defaults.Seed, ""
		}
		if plan.Defaults.SeedDir != "" {
			return nil, plan.Defaults.SeedDir
		}
	}
	return nil, ""
}

// scenarioDigestInput is the exact canonical projection hashed into
// scenario_digest: argv, expect, seed entries sorted by normalized path,
// seed_dir, cwd, timeout, net_mode, sandbox flags, snippet caps, and merged
// env. Field order here is irrelevant because encoding/json sorts map keys
// and we serialize a struct with fixed field order, giving a stable byte
// representation independent of plan field ordering.
type scenarioDigestInput struct {
	Argv            []string                  `json:"argv"`
	Expect          schema.ScenarioExpect      `json:"expect"`
	Seed            []scenarioSeedEntryDigest  `json:"seed,omitempty"`
	SeedDir         string                     `json:"seed_dir,omitempty"`
	Cwd             string                     `json:"cwd,omitempty"`
	TimeoutSeconds  float64                    `json:"timeout_seconds"`
	NetMode         schema.NetMode             `json:"net_mode"`
	NoSandbox       bool                       `json:"no_sandbox"`
	NoStrace        bool                       `json:"no_strace"`
	SnippetMaxLines int                        `json:"snippet_max_lines"`
	SnippetMaxBytes int                        `json:"snippet_max_bytes"`
	Env             map[string]string          `json:"env"`
}

type scenarioSeedEntryDigest struct {
	Path     string              `json:"path"`
	Kind     schema.SeedEntryKind `json:"kind"`
	Contents string              `json:"contents,omitempty"`
	Target   string              `json:"target,omitempty"`
	Mode     *uint32             `json:"mode,omitempty"`
}

// ScenarioDigest computes the SHA-256 hex digest over the canonical
// projection of cfg, per Testable Property 1 ("digest determinism").
func ScenarioDigest(cfg schema.ScenarioRunConfig) string {
	input := scenarioDigestInput{
		Argv:            cfg.Argv,
		Expect:          cfg.Expect,
		SeedDir:         cfg.SeedDir,
		Cwd:             cfg.Cwd,
		TimeoutSeconds:  cfg.TimeoutSeconds,
		NetMode:         cfg.NetMode,
		NoSandbox:       cfg.NoSandbox,
		NoStrace:        cfg.NoStrace,
		SnippetMaxLines: cfg.SnippetMaxLines,
		SnippetMaxBytes: cfg.SnippetMaxBytes,
		Env:             cfg.Env,
	}
	if cfg.Seed != nil {
		entries := make([]scenarioSeedEntryDigest, len(cfg.Seed.Entries))
		for i, e := range cfg.Seed.Entries {
			entries[i] = scenarioSeedEntryDigest{
				Path: e.Path, Kind: e.Kind, Contents: e.Contents, Target: e.Target, Mode: e.Mode,
			}
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
		input.Seed = entries
	}
	// Normalize env to a nil-safe, still-stable-sorted map; encoding/json
	// already sorts map keys for us.
	data, err := json.Marshal(input)
	if err != nil {
		// Marshaling a closed, known-serializable struct cannot fail.
		panic(fmt.Sprintf("marshal scenario digest input: %v", err))
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
