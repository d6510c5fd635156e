//go:build unix

package release

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// checkExecutable fails unless path is a regular file this process can both
// read and execute.
func checkExecutable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("not a regular file (%s)", info.Mode().Type())
	}

	if err := unix.Access(path, unix.R_OK|unix.X_OK); err != nil {
		return fmt.Errorf("not readable and executable: %w", err)
	}
	return nil
}
