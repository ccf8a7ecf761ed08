package schema

// ScenarioKind distinguishes the two scenario families.
type ScenarioKind string

const (
	ScenarioKindHelp     ScenarioKind = "help"
	ScenarioKindBehavior ScenarioKind = "behavior"
)

// NetMode controls whether a scenario run may reach the network.
type NetMode string

const (
	NetModeOff     NetMode = "off"
	NetModeInherit NetMode = "inherit"
)

// CoverageTier classifies what a scenario demonstrates about the surfaces
// it covers.
type CoverageTier string

const (
	CoverageTierAcceptance CoverageTier = "acceptance"
	CoverageTierBehavior   CoverageTier = "behavior"
	CoverageTierRejection  CoverageTier = "rejection"
)

// SeedEntryKind names the filesystem entity a seed entry materializes.
type SeedEntryKind string

const (
	SeedEntryDir     SeedEntryKind = "dir"
	SeedEntryFile    SeedEntryKind = "file"
	SeedEntrySymlink SeedEntryKind = "symlink"
)

// ScenarioSeedEntry is one inline fixture entry.
type ScenarioSeedEntry struct {
	Path     string        `json:"path"`
	Kind     SeedEntryKind `json:"kind"`
	Contents string        `json:"contents,omitempty"`
	Target   string        `json:"target,omitempty"`
	Mode     *uint32       `json:"mode,omitempty"`
}

// ScenarioSeedSpec is an ordered list of inline seed entries.
type ScenarioSeedSpec struct {
	Entries []ScenarioSeedEntry `json:"entries"`
}

// ScenarioExpect specifies the pass/fail predicates evaluated against one
// run's evidence.
type ScenarioExpect struct {
	ExitCode          *int     `json:"exit_code,omitempty"`
	ExitSignal        *int     `json:"exit_signal,omitempty"`
	StdoutContainsAll []string `json:"stdout_contains_all,omitempty"`
	StdoutContainsAny []string `json:"stdout_contains_any,omitempty"`
	StderrContainsAll []string `json:"stderr_contains_all,omitempty"`
	StderrContainsAny []string `json:"stderr_contains_any,omitempty"`
	StdoutRegexAll    []string `json:"stdout_regex_all,omitempty"`
	StdoutRegexAny    []string `json:"stdout_regex_any,omitempty"`
	StderrRegexAll    []string `json:"stderr_regex_all,omitempty"`
	StderrRegexAny    []string `json:"stderr_regex_any,omitempty"`
}

// ScenarioDefaults is the plan-wide default env/seed/cwd/timeout/limits
// applied unless a scenario overrides them explicitly.
type ScenarioDefaults struct {
	Env               map[string]string `json:"env,omitempty"`
	Seed              *ScenarioSeedSpec `json:"seed,omitempty"`
	SeedDir           string            `json:"seed_dir,omitempty"`
	Cwd               string            `json:"cwd,omitempty"`
	TimeoutSeconds    *float64          `json:"timeout_seconds,omitempty"`
	NetMode           NetMode           `json:"net_mode,omitempty"`
	NoSandbox         bool              `json:"no_sandbox,omitempty"`
	NoStrace          bool              `json:"no_strace,omitempty"`
	SnippetMaxLines   *int              `json:"snippet_max_lines,omitempty"`
	SnippetMaxBytes   *int              `json:"snippet_max_bytes,omitempty"`
}

// ScenarioSpec is one scenario definition inside a ScenarioPlan.
type ScenarioSpec struct {
	ID                 string             `json:"id"`
	Kind               ScenarioKind       `json:"kind"`
	Argv               []string           `json:"argv"`
	Env                map[string]string  `json:"env,omitempty"`
	Seed               *ScenarioSeedSpec  `json:"seed,omitempty"`
	SeedDir            string             `json:"seed_dir,omitempty"`
	Cwd                string             `json:"cwd,omitempty"`
	TimeoutSeconds     *float64           `json:"timeout_seconds,omitempty"`
	NetMode            NetMode            `json:"net_mode,omitempty"`
	NoSandbox          bool               `json:"no_sandbox,omitempty"`
	NoStrace           bool               `json:"no_strace,omitempty"`
	SnippetMaxLines    *int               `json:"snippet_max_lines,omitempty"`
	SnippetMaxBytes    *int               `json:"snippet_max_bytes,omitempty"`
	CoverageTier       CoverageTier       `json:"coverage_tier,omitempty"`
	BaselineScenarioID string             `json:"baseline_scenario_id,omitempty"`
	Assertions         []BehaviorAssertion `json:"assertions,omitempty"`
	Covers             []string           `json:"covers,omitempty"`
	CoverageIgnore     bool               `json:"coverage_ignore,omitempty"`
	Publish            bool               `json:"publish"`
	Expect             ScenarioExpect     `json:"expect"`
}

// CoverageBlocked marks an item as intentionally excluded from the coverage
// ledger, e.g. because the feature is unsupported in this environment.
type CoverageBlocked struct {
	ID     string `json:"id"`
	Reason string `json:"reason,omitempty"`
}

// CoverageNotes is plan-owned guidance consumed by the LedgerBuilder.
type CoverageNotes struct {
	Blocked []CoverageBlocked `json:"blocked,omitempty"`
}

// VerificationTargetKind narrows a queue entry to a scenario or surface
// target.
type VerificationTargetKind string

const (
	VerificationTargetScenario VerificationTargetKind = "scenario"
	VerificationTargetSurface  VerificationTargetKind = "surface"
)

// VerificationQueueEntry is one triaged entry in the verification queue.
type VerificationQueueEntry struct {
	Kind VerificationTargetKind `json:"kind"`
	ID   string                 `json:"id"`
}

// VerificationPolicy bounds how many new verification runs an apply cycle
// may schedule.
type VerificationPolicy struct {
	Kinds             []VerificationTargetKind `json:"kinds,omitempty"`
	MaxNewRunsPerApply *int                    `json:"max_new_runs_per_apply,omitempty"`
}

// VerificationPlan is the plan-owned verification queue and policy.
type VerificationPlan struct {
	Queue  []VerificationQueueEntry `json:"queue,omitempty"`
	Policy *VerificationPolicy      `json:"policy,omitempty"`
}

// ScenarioPlan is the pack-owned scenario plan: defaults, coverage notes,
// the verification queue, and every ScenarioSpec.
type ScenarioPlan struct {
	SchemaVersion int               `json:"schema_version"`
	Binary        string            `json:"binary,omitempty"`
	DefaultEnv    map[string]string `json:"default_env,omitempty"`
	Defaults      *ScenarioDefaults `json:"defaults,omitempty"`
	Coverage      *CoverageNotes    `json:"coverage,omitempty"`
	Verification  VerificationPlan  `json:"verification"`
	Scenarios     []ScenarioSpec    `json:"scenarios"`
}

// ScenarioByID returns the scenario with the given id, if present.
func (p *ScenarioPlan) ScenarioByID(id string) (*ScenarioSpec, bool) {
	for i := range p.Scenarios {
		if p.Scenarios[i].ID == id {
			return &p.Scenarios[i], true
		}
	}
	return nil, false
}

// UpsertScenario replaces the scenario with the same id, or appends it.
func (p *ScenarioPlan) UpsertScenario(s ScenarioSpec) {
	for i := range p.Scenarios {
		if p.Scenarios[i].ID == s.ID {
			p.Scenarios[i] = s
			return
		}
	}
	p.Scenarios = append(p.Scenarios, s)
}

// RemoveScenario deletes the scenario with the given id, if present.
func (p *ScenarioPlan) RemoveScenario(id string) {
	out := p.Scenarios[:0]
	for _, s := range p.Scenarios {
		if s.ID != id {
			out = append(out, s)
		}
	}
	p.Scenarios = out
}

// CollectQueueExclusions returns the set of ids named in the verification
// queue so evaluators can separate triaged ids from the remaining pool.
func (p *ScenarioPlan) CollectQueueExclusions() map[string]bool {
	out := make(map[string]bool, len(p.Verification.Queue))
	for _, e := range p.Verification.Queue {
		out[e.ID] = true
	}
	return out
}
