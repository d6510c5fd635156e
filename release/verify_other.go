//go:build !unix

package release

import (
	"fmt"
	"os"
)

// checkExecutable fails unless path is a regular file that can be opened.
// There is no portable access(2) here; files are executable by extension.
func checkExecutable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("not a regular file (%s)", info.Mode().Type())
	}

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("not readable: %w", err)
	}
	return file.Close()
}
