package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"bman/internal/clock"
	"bman/internal/enrichlock"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "read the enrich config, build the lock, and write enrich/lock.json",
	RunE:  runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	paths, err := docPackPaths()
	if err != nil {
		return err
	}

	cfg, err := loadEnrichConfig(paths)
	if err != nil {
		return err
	}

	lock, err := enrichlock.BuildLock(paths, cfg, paths.Config(), clock.System{})
	if err != nil {
		return fmt.Errorf("build lock: %w", err)
	}

	out, err := marshalIndent(lock)
	if err != nil {
		return fmt.Errorf("encode lock: %w", err)
	}
	if err := os.MkdirAll(paths.EnrichDir(), 0o755); err != nil {
		return fmt.Errorf("create enrich dir: %w", err)
	}
	if err := os.WriteFile(paths.Lock(), out, 0o644); err != nil {
		return fmt.Errorf("write lock: %w", err)
	}

	fmt.Printf("wrote %s (inputs_hash=%s)\n", paths.Lock(), lock.InputsHash)
	return nil
}
