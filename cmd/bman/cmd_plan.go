package main

import (
	"fmt"
	"os"

	"bman/internal/clock"
	"bman/internal/enrichlock"
	"bman/internal/schema"

	"github.com/spf13/cobra"
)

var planForce bool

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "read the lock, derive planned actions, and write enrich/plan.out.json",
	RunE:  runPlan,
}

func init() {
	planCmd.Flags().BoolVarP(&planForce, "force", "f", false, "write a plan even though the stored lock is stale")
}

func runPlan(cmd *cobra.Command, args []string) error {
	paths, err := docPackPaths()
	if err != nil {
		return err
	}

	raw, err := os.ReadFile(paths.Lock())
	if err != nil {
		return fmt.Errorf("read lock (run `bman validate` first): %w", err)
	}
	var stored schema.EnrichLock
	if err := schema.DecodeStrict(raw, &stored); err != nil {
		return fmt.Errorf("decode lock: %w", err)
	}

	cfg, err := loadEnrichConfig(paths)
	if err != nil {
		return err
	}
	current, err := enrichlock.BuildLock(paths, cfg, paths.Config(), clock.System{})
	if err != nil {
		return fmt.Errorf("build current lock: %w", err)
	}

	status := enrichlock.Status(&stored, current)
	if status.Stale && !planForce {
		return fmt.Errorf("stored lock is stale against current inputs; rerun `bman validate` or pass --force")
	}

	lock := stored
	if status.Stale {
		lock = current // --force: plan against what's actually on disk right now
	}

	plan := &schema.EnrichPlan{
		Lock: lock,
		PlannedActions: []schema.PlannedAction{
			schema.ActionSurfaceDiscovery,
			schema.ActionScenarioRuns,
			schema.ActionRenderManPage,
		},
	}

	out, err := marshalIndent(plan)
	if err != nil {
		return fmt.Errorf("encode plan: %w", err)
	}
	if err := os.MkdirAll(paths.EnrichDir(), 0o755); err != nil {
		return fmt.Errorf("create enrich dir: %w", err)
	}
	if err := os.WriteFile(paths.PlanOut(), out, 0o644); err != nil {
		return fmt.Errorf("write plan: %w", err)
	}

	fmt.Printf("wrote %s (%d planned actions)\n", paths.PlanOut(), len(plan.PlannedActions))
	return nil
}
