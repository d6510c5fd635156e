package main

import (
	"errors"
	"fmt"
	"os"
	"os/exec"

	"github.com/spf13/cobra"

	"github.com/aexvir/stagebin"
)

func newExecCmd(g *globals) *cobra.Command {
	var opts whichOptions

	cmd := &cobra.Command{
		Use:   "exec [flags] -- [args...]",
		Short: "Run the binary for this host, forwarding arguments and exit code",
		Example: `  stagebin exec -- --help
  stagebin exec -- ./script.dotslash`,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := locate(cmd.Context(), g, opts)
			if err != nil {
				return err
			}

			if _, err := os.Stat(path); err != nil {
				if errors.Is(err, os.ErrNotExist) {
					return fmt.Errorf("%s isn't staged; run stagebin package first", path)
				}
				return err
			}

			err = stagebin.Run(
				cmd.Context(),
				path,
				stagebin.WithArgs(args...),
				stagebin.WithStdIn(cmd.InOrStdin()),
				stagebin.WithStdOut(cmd.OutOrStdout()),
				stagebin.WithStdErr(cmd.ErrOrStderr()),
				stagebin.WithQuiet(),
			)

			var exit *exec.ExitError
			if errors.As(err, &exit) && exit.ExitCode() > 0 {
				return &exitError{code: exit.ExitCode()}
			}
			return err
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.os, "os", "", "platform to resolve instead of the host's")
	flags.StringVar(&opts.arch, "arch", "", "architecture to resolve instead of the host's")
	flags.BoolVar(&opts.kernelArch, "kernel-arch", false, "use the architecture reported by the kernel")

	return cmd
}
