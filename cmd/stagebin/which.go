package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aexvir/stagebin/platform"
)

type whichOptions struct {
	os         string
	arch       string
	kernelArch bool
}

func newWhichCmd(g *globals) *cobra.Command {
	var opts whichOptions

	cmd := &cobra.Command{
		Use:   "which",
		Short: "Print the path of the binary for this host",
		Example: `  stagebin which
  stagebin which --os darwin --arch arm64`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := locate(cmd.Context(), g, opts)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.os, "os", "", "platform to resolve instead of the host's")
	flags.StringVar(&opts.arch, "arch", "", "architecture to resolve instead of the host's")
	flags.BoolVar(&opts.kernelArch, "kernel-arch", false, "use the architecture reported by the kernel rather than the one stagebin was built for")

	return cmd
}

// locate resolves the binary path for the host, with --os and --arch
// overriding what was detected.
func locate(ctx context.Context, g *globals, opts whichOptions) (string, error) {
	matrix, err := g.loadMatrix()
	if err != nil {
		return "", err
	}

	var detector platform.Detector = platform.RuntimeDetector{}
	if opts.kernelArch {
		detector = platform.KernelDetector{}
	}

	resolver := platform.NewResolver(matrix, g.root)
	if opts.os == "" && opts.arch == "" {
		return resolver.LocateHost(ctx, detector)
	}

	host, err := detector.Detect(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to detect host: %w", err)
	}
	if opts.os != "" {
		host.OS = opts.os
	}
	if opts.arch != "" {
		host.Arch = opts.arch
	}

	return resolver.Locate(host.OS, host.Arch)
}
