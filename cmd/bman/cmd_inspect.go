package main

import (
	"github.com/spf13/cobra"

	"bman/internal/inspect"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "browse the doc pack's staged and published artifacts in a terminal UI",
	RunE:  runInspect,
}

func runInspect(cmd *cobra.Command, args []string) error {
	paths, err := docPackPaths()
	if err != nil {
		return err
	}
	return inspect.Run(paths)
}
