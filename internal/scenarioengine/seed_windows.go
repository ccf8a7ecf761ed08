//go:build windows

package scenarioengine

import "fmt"

// applySeedSymlink is unsupported on windows, matching the original
// implementation's unix-only symlink support.
func applySeedSymlink(dest, target string) error {
	return fmt.Errorf("symlink seed entries are not supported on windows: %s -> %s", dest, target)
}
