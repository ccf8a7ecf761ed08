// Package main implements the bman CLI: a machine-generated man-page
// enrichment tool. The actual subcommand implementations live in one
// cmd_<name>.go file per command, mirroring the teacher's cmd/nerd layout.
//
// # File Index
//
//   - main.go                       - entry point, rootCmd, global flags
//   - cmd_init.go                   - init
//   - cmd_validate.go               - validate
//   - cmd_plan.go                   - plan
//   - cmd_apply.go                  - apply
//   - cmd_status.go                 - status
//   - cmd_inspect.go                - inspect
//   - cmd_merge_behavior_edit.go    - merge-behavior-edit
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"bman/internal/logging"
	"bman/internal/pathmodel"
	"bman/internal/toolconfig"
)

var (
	verbose    bool
	workspace  string
	binaryName string

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "bman",
	Short: "bman enriches machine-generated man pages with executed evidence",
	Long: `bman turns a bare usage dump into a man page backed by evidence: it
discovers a binary's option/command surface, runs scenarios against it,
asks a language model to propose fixes for whatever isn't yet verified,
and renders the result — all inside a doc pack directory it owns.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config := zap.NewProductionConfig()
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = config.Build()
		if err != nil {
			return fmt.Errorf("initialize logger: %w", err)
		}

		ws := workspace
		if ws == "" {
			ws, _ = os.Getwd()
		} else if abs, absErr := filepath.Abs(ws); absErr == nil {
			ws = abs
		}
		if err := logging.Initialize(ws); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to initialize file logging: %v\n", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		logging.CloseAll()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "doc pack root (default: current directory)")
	rootCmd.PersistentFlags().StringVar(&binaryName, "binary", "", "binary name the doc pack documents (default: doc pack directory name)")

	rootCmd.AddCommand(
		initCmd,
		validateCmd,
		planCmd,
		applyCmd,
		statusCmd,
		inspectCmd,
		mergeBehaviorEditCmd,
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// docPackPaths resolves the doc pack root from --workspace (default cwd).
func docPackPaths() (pathmodel.Paths, error) {
	root := workspace
	if root == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return pathmodel.Paths{}, fmt.Errorf("resolve doc pack root: %w", err)
		}
		root = cwd
	} else if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	return pathmodel.New(root), nil
}

// effectiveBinaryName returns --binary, defaulting to the doc pack
// directory's base name.
func effectiveBinaryName(paths pathmodel.Paths) string {
	if binaryName != "" {
		return binaryName
	}
	return filepath.Base(paths.Root())
}

// loadToolConfig reads the operator-level tool config from
// <doc-pack-root>/bman.yaml, falling back to defaults when absent.
func loadToolConfig(paths pathmodel.Paths) (*toolconfig.Config, error) {
	cfgPath := filepath.Join(paths.Root(), "bman.yaml")
	cfg, err := toolconfig.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load tool config: %w", err)
	}
	return cfg, nil
}
