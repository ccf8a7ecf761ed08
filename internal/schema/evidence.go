package schema

// ScenarioEvidence is the one-file-per-run record of a scenario's executed
// result, stored under inventory/scenarios/<id>-<ts>.json.
type ScenarioEvidence struct {
	SchemaVersion    int               `json:"schema_version"`
	GeneratedAtEpochMs int64           `json:"generated_at_epoch_ms"`
	ScenarioID       string            `json:"scenario_id"`
	Argv             []string          `json:"argv"`
	Env              map[string]string `json:"env,omitempty"`
	SeedDir          string            `json:"seed_dir,omitempty"`
	Cwd              string            `json:"cwd,omitempty"`
	TimeoutSeconds   float64           `json:"timeout_seconds,omitempty"`
	ExitCode         *int              `json:"exit_code,omitempty"`
	ExitSignal       *int              `json:"exit_signal,omitempty"`
	TimedOut         bool              `json:"timed_out"`
	DurationMs       int64             `json:"duration_ms"`
	Stdout           string            `json:"stdout"`
	Stderr           string            `json:"stderr"`
}

// ScenarioIndexEntry tracks one scenario's cache state across runs.
type ScenarioIndexEntry struct {
	ScenarioID       string   `json:"scenario_id"`
	ScenarioDigest   string   `json:"scenario_digest"`
	LastRunEpochMs   *int64   `json:"last_run_epoch_ms,omitempty"`
	LastPass         *bool    `json:"last_pass,omitempty"`
	Failures         int      `json:"failures"`
	EvidencePaths    []string `json:"evidence_paths,omitempty"`
}

// ScenarioIndex is the full per-scenario cache-state table, rewritten
// atomically whenever any entry changes or stale entries are pruned.
type ScenarioIndex struct {
	Scenarios []ScenarioIndexEntry `json:"scenarios"`
}

// EntryByID returns the index entry for id, if present.
func (idx *ScenarioIndex) EntryByID(id string) (*ScenarioIndexEntry, bool) {
	for i := range idx.Scenarios {
		if idx.Scenarios[i].ScenarioID == id {
			return &idx.Scenarios[i], true
		}
	}
	return nil, false
}

// Upsert replaces the entry with the same scenario id, or appends it.
func (idx *ScenarioIndex) Upsert(e ScenarioIndexEntry) {
	for i := range idx.Scenarios {
		if idx.Scenarios[i].ScenarioID == e.ScenarioID {
			idx.Scenarios[i] = e
			return
		}
	}
	idx.Scenarios = append(idx.Scenarios, e)
}

// Prune drops entries whose scenario id is not present in liveIDs.
func (idx *ScenarioIndex) Prune(liveIDs map[string]bool) {
	out := idx.Scenarios[:0]
	for _, e := range idx.Scenarios {
		if liveIDs[e.ScenarioID] {
			out = append(out, e)
		}
	}
	idx.Scenarios = out
}

// ScenarioOutcome is one scenario's pass/fail result for one run, used to
// build the published examples report.
type ScenarioOutcome struct {
	ScenarioID     string   `json:"scenario_id"`
	Pass           bool     `json:"pass"`
	FailureStrings []string `json:"failure_strings,omitempty"`
	EvidencePath   string   `json:"evidence_path"`
	RunID          string   `json:"run_id,omitempty"`
}

// ExamplesReport is the publishable set of scenario outcomes, filtered to
// publish=true scenarios.
type ExamplesReport struct {
	SchemaVersion int               `json:"schema_version"`
	InputsHash    string            `json:"inputs_hash,omitempty"`
	RunIDs        []string          `json:"run_ids"`
	PassCount     int               `json:"pass_count"`
	FailCount     int               `json:"fail_count"`
	Outcomes      []ScenarioOutcome `json:"outcomes"`
}
