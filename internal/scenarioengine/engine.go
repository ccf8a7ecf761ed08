package scenarioengine

import (
	"context"
	"fmt"
	"sort"

	"bman/internal/clock"
	"bman/internal/pathmodel"
	"bman/internal/schema"
	"bman/internal/staging"
)

// Engine runs a ScenarioPlan's scenarios (filtered by kind), caching by
// scenario_digest, and produces an ExamplesReport plus an updated
// ScenarioIndex.
type Engine struct {
	Paths  pathmodel.Paths
	Runner Runner
	Clock  clock.Clock
}

// KindFilter restricts Run to scenarios of one kind, or all kinds if empty.
type KindFilter struct {
	Kind schema.ScenarioKind
	All  bool
}

// RunArgs bundles one invocation's inputs.
type RunArgs struct {
	Binary      string
	Plan        *schema.ScenarioPlan
	Index       *schema.ScenarioIndex
	PriorReport *schema.ExamplesReport
	StagingRoot string
	TxnRoot     string
	Mode        RunMode
	Filter      KindFilter
}

// Run executes every scenario passing the kind filter, honoring the cache
// policy, and returns the updated outcomes plus the updated index. Evidence
// is always written to staging; callers publish the staging tree
// separately.
func (e Engine) Run(ctx context.Context, args RunArgs) ([]schema.ScenarioOutcome, *schema.ScenarioIndex, error) {
	if args.Index == nil {
		args.Index = &schema.ScenarioIndex{}
	}
	priorOutcomes := map[string]bool{}
	if args.PriorReport != nil {
		for _, o := range args.PriorReport.Outcomes {
			priorOutcomes[o.ScenarioID] = true
		}
	}

	var outcomes []schema.ScenarioOutcome
	for i := range args.Plan.Scenarios {
		s := &args.Plan.Scenarios[i]
		if !args.Filter.All && s.Kind != args.Filter.Kind {
			continue
		}

		cfg := EffectiveConfig(args.Plan, s)
		entry, hadEntry := args.Index.EntryByID(s.ID)
		_ = hadEntry
		shouldRun := ShouldRunScenario(args.Mode, cfg.ScenarioDigest, entry, priorOutcomes[s.ID])

		if !shouldRun {
			if s.Publish && entry != nil {
				outcomes = append(outcomes, outcomeFromIndexEntry(s.ID, entry))
			}
			continue
		}

		outcome, newEntry, err := e.runOne(ctx, args, s, cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("run scenario %s: %w", s.ID, err)
		}
		args.Index.Upsert(newEntry)
		if s.Publish {
			outcomes = append(outcomes, outcome)
		}
	}

	live := map[string]bool{}
	for _, s := range args.Plan.Scenarios {
		live[s.ID] = true
	}
	args.Index.Prune(live)

	return outcomes, args.Index, nil
}

func outcomeFromIndexEntry(id string, entry *schema.ScenarioIndexEntry) schema.ScenarioOutcome {
	pass := entry.LastPass != nil && *entry.LastPass
	var evidence string
	if len(entry.EvidencePaths) > 0 {
		evidence = entry.EvidencePaths[len(entry.EvidencePaths)-1]
	}
	return schema.ScenarioOutcome{ScenarioID: id, Pass: pass, EvidencePath: evidence}
}

func (e Engine) runOne(ctx context.Context, args RunArgs, s *schema.ScenarioSpec, cfg schema.ScenarioRunConfig) (schema.ScenarioOutcome, schema.ScenarioIndexEntry, error) {
	nowMs := e.Clock.NowMs()

	var seedDirAbs string
	if cfg.Seed != nil {
		materialized, err := MaterializeInlineSeed(args.TxnRoot, s.ID, nowMs, cfg.Seed)
		if err != nil {
			return schema.ScenarioOutcome{}, schema.ScenarioIndexEntry{}, fmt.Errorf("materialize seed: %w", err)
		}
		if materialized != nil {
			seedDirAbs = materialized.AbsPath
		}
	} else if cfg.SeedDir != "" {
		abs, err := e.Paths.Abs(cfg.SeedDir)
		if err != nil {
			return schema.ScenarioOutcome{}, schema.ScenarioIndexEntry{}, fmt.Errorf("resolve seed_dir: %w", err)
		}
		seedDirAbs = abs
	}

	result, runErr := e.Runner.Run(ctx, args.Binary, cfg, seedDirAbs)

	pass := false
	var failures []string
	if runErr != nil {
		failures = append(failures, runErr.Error())
	} else if result.TimedOut {
		failures = append(failures, "scenario timed out")
	} else {
		pass, failures = EvaluateExpect(cfg.Expect, result.ExitCode, result.ExitSignal, result.Stdout, result.Stderr)
	}

	evidence := schema.ScenarioEvidence{
		SchemaVersion:      1,
		GeneratedAtEpochMs: nowMs,
		ScenarioID:         s.ID,
		Argv:               cfg.Argv,
		Env:                cfg.Env,
		SeedDir:            cfg.SeedDir,
		Cwd:                cfg.Cwd,
		TimeoutSeconds:     cfg.TimeoutSeconds,
		ExitCode:           result.ExitCode,
		ExitSignal:         result.ExitSignal,
		TimedOut:           result.TimedOut,
		DurationMs:         result.DurationMs,
		Stdout:             snippet(result.Stdout, cfg.SnippetMaxLines, cfg.SnippetMaxBytes),
		Stderr:             snippet(result.Stderr, cfg.SnippetMaxLines, cfg.SnippetMaxBytes),
	}

	relEvidence := fmt.Sprintf("inventory/scenarios/%s-%d.json", sanitizeID(s.ID), nowMs)
	if err := staging.WriteJSON(args.StagingRoot, relEvidence, evidence); err != nil {
		return schema.ScenarioOutcome{}, schema.ScenarioIndexEntry{}, fmt.Errorf("write evidence: %w", err)
	}

	entry := schema.ScenarioIndexEntry{
		ScenarioID:     s.ID,
		ScenarioDigest: cfg.ScenarioDigest,
		LastRunEpochMs: &nowMs,
		LastPass:       &pass,
		EvidencePaths:  []string{relEvidence},
	}
	if !pass {
		entry.Failures = 1
	}

	outcome := schema.ScenarioOutcome{
		ScenarioID:     s.ID,
		Pass:           pass,
		FailureStrings: failures,
		EvidencePath:   relEvidence,
	}
	return outcome, entry, nil
}

func snippet(s string, maxLines, maxBytes int) string {
	lines := splitLines(s)
	if maxLines > 0 && len(lines) > maxLines {
		lines = lines[:maxLines]
	}
	out := joinLines(lines)
	if maxBytes > 0 && len(out) > maxBytes {
		out = out[:maxBytes]
	}
	return out
}

func splitLines(s string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			lines = append(lines, s[start:i])
			start = i + 1
		}
	}
	if start < len(s) {
		lines = append(lines, s[start:])
	}
	return lines
}

func joinLines(lines []string) string {
	out := ""
	for i, l := range lines {
		if i > 0 {
			out += "\n"
		}
		out += l
	}
	return out
}

// PublishableExamplesReport filters outcomes to publish=true scenarios
// (already enforced by Run's caller-visible list) and recomputes counts and
// sorted run_ids. Returns nil if the result is empty.
func PublishableExamplesReport(outcomes []schema.ScenarioOutcome) *schema.ExamplesReport {
	if len(outcomes) == 0 {
		return nil
	}
	report := &schema.ExamplesReport{SchemaVersion: 1, Outcomes: outcomes}
	ids := make([]string, 0, len(outcomes))
	for _, o := range outcomes {
		if o.Pass {
			report.PassCount++
		} else {
			report.FailCount++
		}
		if o.RunID != "" {
			ids = append(ids, o.RunID)
		}
	}
	sort.Strings(ids)
	report.RunIDs = ids
	return report
}
