package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"bman/internal/applyloop"
	"bman/internal/clock"
	"bman/internal/lmadapter"
	"bman/internal/scenarioengine"
	"bman/internal/schema"
)

var (
	applyForce       bool
	applyFull        bool
	applyMaxCycles   int
	applyMaxLmFail   int
	applyMaxNoProg   int
)

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "run the apply loop: stage a cycle, evaluate requirements, and either finish or ask the LM",
	RunE:  runApply,
}

func init() {
	applyCmd.Flags().BoolVarP(&applyForce, "force", "f", false, "apply even on a stale lock/plan mismatch, and ignore blockers")
	applyCmd.Flags().BoolVar(&applyFull, "full", false, "rerun every scenario instead of only those the cache says changed")
	applyCmd.Flags().IntVar(&applyMaxCycles, "max-cycles", 0, "cap on apply cycles (0 = default)")
	applyCmd.Flags().IntVar(&applyMaxLmFail, "max-lm-failures", 0, "cap on consecutive LM failures (0 = default)")
	applyCmd.Flags().IntVar(&applyMaxNoProg, "max-no-progress", 0, "cap on cycles with no verification progress (0 = default)")
}

func runApply(cmd *cobra.Command, args []string) error {
	paths, err := docPackPaths()
	if err != nil {
		return err
	}
	toolCfg, err := loadToolConfig(paths)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	deps := applyloop.Dependencies{
		Paths:      paths,
		Clock:      clock.System{},
		ToolConfig: toolCfg,
		Runner:     scenarioengine.Runner{Command: toolCfg.Runner.Command},
		LmInvoker:  lmadapter.CommandInvoker{},
		BinaryName: effectiveBinaryName(paths),
	}
	opts := applyloop.Options{
		Force:         applyForce,
		RefreshPack:   false,
		Full:          applyFull,
		MaxCycles:     applyMaxCycles,
		MaxLmFailures: applyMaxLmFail,
		MaxNoProgress: applyMaxNoProg,
	}

	outcome, err := applyloop.Run(ctx, deps, opts)
	if err != nil {
		return fmt.Errorf("apply: %w", err)
	}

	fmt.Printf("decision=%s cycles=%d\n", outcome.Summary.Decision, outcome.CyclesRun)
	if outcome.Summary.Reason != "" {
		fmt.Println(outcome.Summary.Reason)
	}
	if outcome.Summary.Decision != schema.DecisionComplete {
		os.Exit(1)
	}
	return nil
}
