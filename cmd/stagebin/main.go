// Command stagebin stages the platform specific binaries of a release into an
// install root and runs the one matching the current host.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()

	os.Exit(exitCode(err))
}

// exitCode prints err and maps it to the process exit code.
// Errors from a binary started by exec carry that binary's exit code and
// aren't printed; the binary already had its say.
func exitCode(err error) int {
	if err == nil {
		return 0
	}

	var exit *exitError
	if errors.As(err, &exit) {
		return exit.code
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	return 1
}

// exitError reports a non zero exit code of a child process.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}
