package inspect

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"bman/internal/logging"
	"bman/internal/pathmodel"
)

// Run opens the interactive doc-pack inspector over paths' root until the
// operator quits. It starts a DocPackWatcher for live refresh and stops it
// on exit. The core enrichment loop never calls this — it is reached only
// from cmd/bman's own "inspect" subcommand.
func Run(paths pathmodel.Paths) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	watcher, err := NewDocPackWatcher(paths)
	if err != nil {
		logging.InspectWarn("inspect: failed to start doc-pack watcher, live refresh disabled: %v", err)
		watcher = nil
	}
	if watcher != nil {
		if err := watcher.Start(ctx); err != nil {
			logging.InspectWarn("inspect: doc-pack watcher failed to start: %v", err)
			watcher = nil
		}
		defer func() {
			if watcher != nil {
				watcher.Stop()
			}
		}()
	}

	model := NewModel(paths, watcher)
	program := tea.NewProgram(model, tea.WithAltScreen())
	_, err = program.Run()
	return err
}
