package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"bman/internal/requirement"
	"bman/internal/schema"
	"bman/internal/scenarioengine"
)

var mergeBehaviorEditCmd = &cobra.Command{
	Use:   "merge-behavior-edit",
	Short: "apply the current status's merge_behavior_scenarios edit to scenarios/plan.json",
	RunE:  runMergeBehaviorEdit,
}

// runMergeBehaviorEdit recomputes status (the same read-only evaluation
// `bman status` runs) and, if its NextAction is an EditAction using the
// merge_behavior_scenarios strategy against scenarios/plan.json, applies the
// patch and writes the updated plan. Any other NextAction shape is a
// contract violation for this command and fails closed.
func runMergeBehaviorEdit(cmd *cobra.Command, args []string) error {
	paths, err := docPackPaths()
	if err != nil {
		return err
	}

	summary, err := computeStatus(paths)
	if err != nil {
		return err
	}
	if summary.NextAction == nil || summary.NextAction.Action == nil {
		return fmt.Errorf("no pending next action to apply")
	}
	edit, ok := summary.NextAction.Action.(schema.EditAction)
	if !ok {
		return fmt.Errorf("next action is a %q, not an edit", summary.NextAction.Action.Kind())
	}
	if edit.EditStrategy != schema.EditMergeBehaviorScenarios {
		return fmt.Errorf("next action's edit strategy is %q, not merge_behavior_scenarios", edit.EditStrategy)
	}
	if edit.Path != "scenarios/plan.json" {
		return fmt.Errorf("next action's path is %q, not scenarios/plan.json", edit.Path)
	}

	plan, err := loadScenarioPlanFile(paths)
	if err != nil {
		return fmt.Errorf("read scenario plan: %w", err)
	}
	if plan == nil {
		return fmt.Errorf("scenarios/plan.json does not exist")
	}

	var patch requirement.ScenarioPlanPatch
	if err := schema.DecodeStrict([]byte(edit.Content), &patch); err != nil {
		return fmt.Errorf("decode merge_behavior_scenarios patch: %w", err)
	}
	if patch.Defaults != nil {
		plan.Defaults = patch.Defaults
	}
	for _, s := range patch.UpsertScenarios {
		plan.UpsertScenario(s)
	}

	if err := scenarioengine.ValidatePlan(plan); err != nil {
		return fmt.Errorf("merged plan failed validation: %w", err)
	}

	out, err := marshalIndent(plan)
	if err != nil {
		return fmt.Errorf("encode scenario plan: %w", err)
	}
	if err := os.WriteFile(paths.ScenariosPlan(), out, 0o644); err != nil {
		return fmt.Errorf("write scenario plan: %w", err)
	}

	fmt.Printf("merged %d scenario(s) into %s\n", len(patch.UpsertScenarios), paths.ScenariosPlan())
	return nil
}
