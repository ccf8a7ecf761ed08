//go:build !windows

package scenarioengine

import "os"

// applySeedSymlink creates a symlink, matching the original implementation's
// unix-only symlink support.
func applySeedSymlink(dest, target string) error {
	_ = os.Remove(dest)
	if err := os.Symlink(target, dest); err != nil {
		return err
	}
	return nil
}
