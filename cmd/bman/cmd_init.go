package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"bman/internal/schema"
	"bman/internal/scenarioengine"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "bootstrap a new doc pack: enrich/config.json, a seed scenario plan, and a lens query template",
	RunE:  runInit,
}

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "overwrite an existing enrich/config.json")
}

const defaultLensTemplate = "queries/surface.sql"

func runInit(cmd *cobra.Command, args []string) error {
	paths, err := docPackPaths()
	if err != nil {
		return err
	}

	if _, err := os.Stat(paths.Config()); err == nil && !initForce {
		return fmt.Errorf("%s already exists; pass --force to overwrite", paths.Config())
	}

	if err := os.MkdirAll(paths.EnrichDir(), 0o755); err != nil {
		return fmt.Errorf("create enrich dir: %w", err)
	}
	if err := os.MkdirAll(paths.QueriesDir(), 0o755); err != nil {
		return fmt.Errorf("create queries dir: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(paths.ScenariosPlan()), 0o755); err != nil {
		return fmt.Errorf("create scenarios dir: %w", err)
	}

	binary := effectiveBinaryName(paths)

	cfg := &schema.EnrichConfig{
		SchemaVersion:     1,
		UsageLensTemplate: defaultLensTemplate,
		Requirements:      schema.DefaultRequirements,
		VerificationTier:  schema.VerificationTierAccepted,
	}
	if err := writeJSONFile(paths.Config(), cfg); err != nil {
		return fmt.Errorf("write enrich config: %w", err)
	}

	semantics := map[string]any{
		"description": fmt.Sprintf("%s enriches its man page from discovered surface and executed scenario evidence.", binary),
	}
	if err := writeJSONFile(paths.Semantics(), semantics); err != nil {
		return fmt.Errorf("write enrich semantics: %w", err)
	}

	plan := seedScenarioPlan(binary)
	if err := scenarioengine.ValidatePlan(plan); err != nil {
		return fmt.Errorf("seed scenario plan failed validation: %w", err)
	}
	if err := writeJSONFile(paths.ScenariosPlan(), plan); err != nil {
		return fmt.Errorf("write scenario plan: %w", err)
	}

	if err := os.WriteFile(filepath.Join(paths.Root(), defaultLensTemplate), []byte(defaultLensQuery), 0o644); err != nil {
		return fmt.Errorf("write lens query template: %w", err)
	}

	fmt.Printf("initialized doc pack at %s for binary %q\n", paths.Root(), binary)
	return nil
}

// seedScenarioPlan returns the minimal plan init writes: a single
// auto-generated help scenario (id must begin with "help--" per
// scenarioengine's validation contract) plus one behavior scenario
// exercising the seeded work/ fixture, so a fresh pack has something for
// `bman apply` to run on the very first cycle.
func seedScenarioPlan(binary string) *schema.ScenarioPlan {
	seed := scenarioengine.DefaultBehaviorSeed()
	return &schema.ScenarioPlan{
		SchemaVersion: 1,
		Binary:        binary,
		Verification: schema.VerificationPlan{
			Queue: []schema.VerificationQueueEntry{
				{Kind: schema.VerificationTargetScenario, ID: "help--root"},
			},
		},
		Scenarios: []schema.ScenarioSpec{
			{
				ID:      "help--root",
				Kind:    schema.ScenarioKindHelp,
				Argv:    []string{binary, "--help"},
				Publish: true,
				Expect:  schema.ScenarioExpect{ExitCode: intPtr(0)},
			},
			{
				ID:           "list-work-dir",
				Kind:         schema.ScenarioKindBehavior,
				Argv:         []string{binary, "work"},
				Seed:         &seed,
				CoverageTier: schema.CoverageTierBehavior,
				Publish:      true,
				Expect:       schema.ScenarioExpect{ExitCode: intPtr(0)},
			},
		},
	}
}

func intPtr(v int) *int { return &v }

func writeJSONFile(path string, v any) error {
	out, err := marshalIndent(v)
	if err != nil {
		return err
	}
	return os.WriteFile(path, out, 0o644)
}

// defaultLensQuery is a starting-point lens template over the fact pack's
// parquet files (spec §6's external query-engine contract): {{name}}
// placeholders are resolved by the lens engine to paths under the fact
// pack's facts/ directory before the query is handed to the external
// engine, so this file ships with the pack and is meant to be edited once
// the operator knows the generator's actual parquet schema.
const defaultLensQuery = `-- Seed lens query: adjust column names to match the fact-pack
-- generator's actual parquet schema. {{facts.parquet}} is resolved to a
-- path under binary.lens/facts/ before this query reaches the engine.
SELECT
  id,
  display,
  description,
  parent_id,
  context_argv,
  forms,
  invocation,
  scenario_path,
  multi_command_hint
FROM read_parquet('{{facts.parquet}}');
`
